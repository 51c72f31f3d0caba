package manifest

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/habedi/dcli/client"
	"github.com/habedi/dcli/db"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testContentPath = "/common/destiny2_content/sqlite/en/world_sql_content_abc.content"
	testItemJSON    = `{"displayProperties":{"name":"Graviton Lance"},"hash":3628991658}`
)

// testItemHash is larger than MaxInt32, so the manifest stores it as a negative id.
var testItemHash uint32 = 3628991658

// buildContentDB writes a small manifest content database and returns its bytes.
func buildContentDB(t *testing.T) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "content.sqlite")
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, gdb.Exec("CREATE TABLE DestinyInventoryItemDefinition (id INTEGER PRIMARY KEY NOT NULL, json BLOB)").Error)
	require.NoError(t, gdb.Exec("INSERT INTO DestinyInventoryItemDefinition (id, json) VALUES (?, ?)",
		int32(testItemHash), []byte(testItemJSON)).Error)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func zipBytes(t *testing.T, name string, content []byte) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	w, err := zw.Create(name)
	require.NoError(t, err)
	_, err = w.Write(content)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

type fakeAPI struct {
	manifest    client.Manifest
	metaErr     error
	archive     []byte
	downloadErr error
	downloads   int
}

func newFakeAPI(t *testing.T, version string) *fakeAPI {
	return &fakeAPI{
		manifest: client.Manifest{
			Version:                 version,
			MobileWorldContentPaths: map[string]string{"en": testContentPath},
		},
		archive: zipBytes(t, "world_sql_content_abc.content", buildContentDB(t)),
	}
}

func (f *fakeAPI) GetManifest(ctx context.Context) (client.Manifest, error) {
	return f.manifest, f.metaErr
}

func (f *fakeAPI) DownloadManifest(ctx context.Context, contentPath, destPath string, progress io.Writer) (int64, error) {
	f.downloads++
	if f.downloadErr != nil {
		return 0, f.downloadErr
	}
	if err := os.WriteFile(destPath, f.archive, 0o644); err != nil {
		return 0, err
	}
	return int64(len(f.archive)), nil
}

type memRepo struct {
	rec *db.ManifestRecord
}

func (r *memRepo) Get(ctx context.Context) (*db.ManifestRecord, error) {
	if r.rec == nil {
		return nil, nil
	}
	cp := *r.rec
	return &cp, nil
}

func (r *memRepo) Upsert(ctx context.Context, rec *db.ManifestRecord) error {
	cp := *rec
	r.rec = &cp
	return nil
}

func (r *memRepo) Clear(ctx context.Context) error {
	r.rec = nil
	return nil
}
