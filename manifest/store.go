package manifest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/habedi/dcli/pkg/dclierr"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var tablePattern = regexp.MustCompile(`^Destiny[A-Za-z]+Definition$`)

// Store reads definitions from an extracted manifest content database.
type Store struct {
	db *gorm.DB
}

// OpenStore opens the content database at path read-only.
func OpenStore(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, dclierr.FromFilesystem(err)
	}
	gdb, err := gorm.Open(sqlite.Open("file:"+path+"?mode=ro"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, dclierr.FromFilesystem(err)
	}
	return &Store{db: gdb}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return dclierr.Unknown(fmt.Sprintf("manifest store : %v", err))
	}
	if err := sqlDB.Close(); err != nil {
		return dclierr.FromFilesystem(err)
	}
	return nil
}

// Definition returns the raw JSON stored for hash in table. Manifest rows are
// keyed by the hash reinterpreted as a signed 32-bit integer.
func (s *Store) Definition(ctx context.Context, table string, hash uint32) ([]byte, error) {
	if !tablePattern.MatchString(table) {
		return nil, dclierr.ParameterParse()
	}
	if !s.db.WithContext(ctx).Migrator().HasTable(table) {
		return nil, dclierr.InvalidParameters()
	}

	var raw []byte
	err := s.db.WithContext(ctx).Raw("SELECT json FROM "+table+" WHERE id = ?", int32(hash)).Row().Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dclierr.InvalidParameters()
	}
	if err != nil {
		return nil, dclierr.Unknown(fmt.Sprintf("query %s %d : %v", table, hash, err))
	}
	return raw, nil
}
