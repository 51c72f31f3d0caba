package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/habedi/dcli/pkg/dclierr"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ManifestRecord describes the manifest content database installed locally.
// There is at most one row.
type ManifestRecord struct {
	ID        uint   `gorm:"primaryKey"`
	Version   string `gorm:"not null"`
	Language  string `gorm:"not null"`
	Path      string `gorm:"not null"`
	Checksum  string
	Bytes     int64
	UpdatedAt time.Time
}

// ManifestRepository persists the installed manifest record.
type ManifestRepository interface {
	Get(ctx context.Context) (*ManifestRecord, error)
	Upsert(ctx context.Context, rec *ManifestRecord) error
	Clear(ctx context.Context) error
}

// gormManifestRepo is a GORM-backed implementation of ManifestRepository.
// Use constructor NewManifestRepository to obtain an instance.
type gormManifestRepo struct{ db *gorm.DB }

// NewManifestRepository creates a ManifestRepository. Accepts *gorm.DB to avoid global access.
func NewManifestRepository(db *gorm.DB) ManifestRepository { return &gormManifestRepo{db: db} }

var errNotInitialized = dclierr.Unknown("repository not initialized")

func (r *gormManifestRepo) Get(ctx context.Context) (*ManifestRecord, error) {
	if r.db == nil {
		return nil, errNotInitialized
	}
	var rec ManifestRecord
	err := r.db.WithContext(ctx).First(&rec, "id = ?", 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dclierr.Unknown(fmt.Sprintf("read manifest record : %v", err))
	}
	return &rec, nil
}

func (r *gormManifestRepo) Upsert(ctx context.Context, rec *ManifestRecord) error {
	if r.db == nil {
		return errNotInitialized
	}
	rec.ID = 1
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"version", "language", "path", "checksum", "bytes", "updated_at"}),
	}).Create(rec).Error
	if err != nil {
		return dclierr.Unknown(fmt.Sprintf("save manifest record : %v", err))
	}
	return nil
}

func (r *gormManifestRepo) Clear(ctx context.Context) error {
	if r.db == nil {
		return errNotInitialized
	}
	err := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&ManifestRecord{}).Error
	if err != nil {
		return dclierr.Unknown(fmt.Sprintf("clear manifest record : %v", err))
	}
	return nil
}
