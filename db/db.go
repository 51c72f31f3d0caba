package db

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/habedi/dcli/pkg/dclierr"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database variables
var (
	Db   *gorm.DB                                            // GORM database instance
	Path = filepath.Join(os.Getenv("HOME"), ".dcli/dcli.db") // Default database path
)

// InitDB opens the local state database at Path and creates its tables.
func InitDB() error {
	if err := createDBDirectory(); err != nil {
		return err
	}

	if err := openDatabase(); err != nil {
		return err
	}

	if err := migrateTables(); err != nil {
		return err
	}

	configureLogger()

	log.Info().Str("path", Path).Msg("Database initialized successfully")
	return nil
}

// GetDB returns the open database, or nil before InitDB.
func GetDB() *gorm.DB { return Db }

// createDBDirectory makes sure the parent of Path is a directory.
func createDBDirectory() error {
	dir := filepath.Dir(Path)
	info, err := os.Stat(dir)
	switch {
	case err == nil && !info.IsDir():
		log.Error().Str("path", dir).Msg("Database directory is a file")
		return dclierr.DirIsFile(fmt.Sprintf("expected %s but found file", dir))
	case err == nil:
		return nil
	case !os.IsNotExist(err):
		log.Error().Err(err).Msg("Failed to check database directory")
		return dclierr.FromFilesystem(err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.Error().Err(err).Msg("Failed to create database directory")
		return dclierr.FromFilesystem(err)
	}
	return nil
}

func openDatabase() error {
	var err error
	Db, err = gorm.Open(sqlite.Open(Path), &gorm.Config{})
	if err != nil {
		log.Error().Err(err).Msg("Failed to open database")
		return dclierr.FromFilesystem(err)
	}
	return nil
}

func migrateTables() error {
	if err := Db.AutoMigrate(&ManifestRecord{}); err != nil {
		log.Error().Err(err).Msg("Failed to auto-migrate database")
		return dclierr.Unknown(fmt.Sprintf("migrate %s : %v", Path, err))
	}
	return nil
}

// configureLogger silences GORM unless debug logging is on.
func configureLogger() {
	Db.Logger = Db.Logger.LogMode(gormLogLevel())
}

func gormLogLevel() logger.LogLevel {
	if zerolog.GlobalLevel() == zerolog.Disabled || zerolog.GlobalLevel() > zerolog.DebugLevel {
		return logger.Silent
	}
	return logger.Info
}

// CloseDB closes the database connection. It is a no-op before InitDB.
func CloseDB() error {
	if Db == nil {
		return nil
	}
	sqlDB, err := Db.DB()
	if err != nil {
		log.Error().Err(err).Msg("Failed to get raw database connection")
		return dclierr.Unknown(fmt.Sprintf("close %s : %v", Path, err))
	}
	if err := sqlDB.Close(); err != nil {
		return dclierr.FromFilesystem(err)
	}
	Db = nil
	return nil
}
