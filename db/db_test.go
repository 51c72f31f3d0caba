package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/habedi/dcli/pkg/dclierr"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestInitDB_CreatesDirectory(t *testing.T) {
	Path = filepath.Join(t.TempDir(), "nested", "dcli.db")
	require.NoError(t, InitDB())
	t.Cleanup(func() { _ = CloseDB() })

	assert.NotNil(t, GetDB())
	_, err := os.Stat(Path)
	assert.NoError(t, err)
}

func TestInitDB_DirectoryIsFile(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	Path = filepath.Join(blocker, "dcli.db")

	err := InitDB()
	require.Error(t, err)
	assert.Equal(t, dclierr.KindDirIsFile, dclierr.KindOf(err))
	assert.Contains(t, err.Error(), "Expected directory but found file. expected "+blocker)
}

func TestCloseDB_BeforeInit(t *testing.T) {
	Db = nil
	assert.NoError(t, CloseDB())
}

func TestGormLogLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	zerolog.SetGlobalLevel(zerolog.Disabled)
	assert.Equal(t, logger.Silent, gormLogLevel())
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	assert.Equal(t, logger.Info, gormLogLevel())
}
