// Package manifest keeps a local copy of the Destiny 2 manifest content
// database up to date and answers definition lookups from it.
package manifest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/habedi/dcli/client"
	"github.com/habedi/dcli/db"
	"github.com/habedi/dcli/pkg/dclierr"
	"github.com/habedi/dcli/pkg/hasher"
	"github.com/rs/zerolog/log"
)

// API is the part of client.Client the manager needs.
type API interface {
	GetManifest(ctx context.Context) (client.Manifest, error)
	DownloadManifest(ctx context.Context, contentPath, destPath string, progress io.Writer) (int64, error)
}

// Manager owns the manifest directory and its installed record.
type Manager struct {
	dir      string
	language string
	api      API
	repo     db.ManifestRepository

	// Progress receives the download progress bar; nil hides it.
	Progress io.Writer
}

// SyncResult reports what Sync did.
type SyncResult struct {
	Record  *db.ManifestRecord
	Updated bool
}

// NewManager returns a Manager that keeps manifests for language in dir.
func NewManager(dir, language string, api API, repo db.ManifestRepository) *Manager {
	return &Manager{dir: dir, language: language, api: api, repo: repo}
}

// EnsureDir makes sure path is a directory, creating it when missing.
func EnsureDir(path string) error {
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			log.Error().Str("path", path).Msg("Path exists but is not a directory")
			return dclierr.DirIsFile(fmt.Sprintf("expected %s but found file", path))
		}
		return nil
	}
	if !os.IsNotExist(err) {
		log.Error().Err(err).Str("path", path).Msg("Error checking directory")
		return dclierr.FromFilesystem(err)
	}
	log.Info().Str("path", path).Msg("Creating directory")
	if err := os.MkdirAll(path, 0o755); err != nil {
		return dclierr.FromFilesystem(err)
	}
	return nil
}

// Sync downloads and installs the current manifest unless the installed one
// already matches it. force reinstalls regardless.
func (m *Manager) Sync(ctx context.Context, force bool) (SyncResult, error) {
	if err := EnsureDir(m.dir); err != nil {
		return SyncResult{}, err
	}

	meta, err := m.api.GetManifest(ctx)
	if err != nil {
		return SyncResult{}, err
	}
	contentPath, ok := meta.ContentPath(m.language)
	if !ok {
		log.Error().Str("language", m.language).Str("version", meta.Version).Msg("Manifest has no content for language")
		return SyncResult{}, dclierr.InvalidParameters()
	}

	current, err := m.repo.Get(ctx)
	if err != nil {
		return SyncResult{}, err
	}
	if !force && upToDate(current, meta.Version, m.language) {
		log.Info().Str("version", meta.Version).Msg("Manifest is up to date")
		return SyncResult{Record: current}, nil
	}

	target := filepath.Join(m.dir, filepath.Base(contentPath))
	archive := filepath.Join(m.dir, "manifest.zip.part")
	defer func() {
		if err := os.Remove(archive); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", archive).Msg("Failed to remove manifest archive")
		}
	}()

	n, err := m.api.DownloadManifest(ctx, contentPath, archive, m.Progress)
	if err != nil {
		return SyncResult{}, err
	}
	if err := extract(archive, target); err != nil {
		return SyncResult{}, err
	}
	sum, err := hasher.File(target, hasher.Default)
	if err != nil {
		return SyncResult{}, err
	}

	rec := &db.ManifestRecord{
		Version:   meta.Version,
		Language:  m.language,
		Path:      target,
		Checksum:  sum,
		Bytes:     n,
		UpdatedAt: time.Now(),
	}
	if err := m.repo.Upsert(ctx, rec); err != nil {
		return SyncResult{}, err
	}
	if current != nil && current.Path != "" && current.Path != target {
		if err := os.Remove(current.Path); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", current.Path).Msg("Failed to remove previous manifest")
		}
	}

	log.Info().Str("version", rec.Version).Str("path", rec.Path).Msg("Manifest installed")
	return SyncResult{Record: rec, Updated: true}, nil
}

func upToDate(rec *db.ManifestRecord, version, language string) bool {
	if rec == nil || rec.Version != version || rec.Language != language {
		return false
	}
	info, err := os.Stat(rec.Path)
	return err == nil && info.Mode().IsRegular()
}

// Info returns the installed manifest record.
func (m *Manager) Info(ctx context.Context) (*db.ManifestRecord, error) {
	rec, err := m.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, dclierr.Unknown("no manifest installed; run `dcli manifest sync` first")
	}
	return rec, nil
}

// Verify recomputes the checksum of the installed manifest.
func (m *Manager) Verify(ctx context.Context) (bool, error) {
	rec, err := m.Info(ctx)
	if err != nil {
		return false, err
	}
	sum, err := hasher.File(rec.Path, hasher.Default)
	if err != nil {
		return false, err
	}
	return sum == rec.Checksum, nil
}

// Lookup returns the JSON definition with the given hash from table.
func (m *Manager) Lookup(ctx context.Context, table string, hash uint32) ([]byte, error) {
	rec, err := m.Info(ctx)
	if err != nil {
		return nil, err
	}
	store, err := OpenStore(rec.Path)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.Definition(ctx, table, hash)
}

// Digest hashes the installed manifest with algo, one of hasher.Algorithms.
func (m *Manager) Digest(ctx context.Context, algo string) (string, error) {
	if !hasher.IsValidAlgorithm(algo) {
		log.Error().Str("algo", algo).Msg("Unsupported hash algorithm")
		return "", dclierr.ParameterParse()
	}
	rec, err := m.Info(ctx)
	if err != nil {
		return "", err
	}
	return hasher.File(rec.Path, algo)
}

// Remove deletes the installed manifest file and its record. It returns the
// record that was removed.
func (m *Manager) Remove(ctx context.Context) (*db.ManifestRecord, error) {
	rec, err := m.Info(ctx)
	if err != nil {
		return nil, err
	}
	if err := os.Remove(rec.Path); err != nil && !os.IsNotExist(err) {
		log.Error().Err(err).Str("path", rec.Path).Msg("Failed to remove manifest")
		return nil, dclierr.FromFilesystem(err)
	}
	if err := m.repo.Clear(ctx); err != nil {
		return nil, err
	}
	log.Info().Str("version", rec.Version).Str("path", rec.Path).Msg("Manifest removed")
	return rec, nil
}
