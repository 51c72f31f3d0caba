package manifest

import (
	"archive/zip"
	"io"
	"os"

	"github.com/habedi/dcli/pkg/dclierr"
	"github.com/rs/zerolog/log"
)

// writeTracker tells write failures apart from failures reading the archive.
type writeTracker struct {
	w   io.Writer
	err error
}

func (t *writeTracker) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil {
		t.err = err
	}
	return n, err
}

// extract writes the single content database inside archive to target. The
// file is written next to target and renamed into place once complete.
func extract(archive, target string) error {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		log.Error().Err(err).Str("archive", archive).Msg("Failed to open manifest archive")
		return dclierr.FromArchive(err)
	}
	defer zr.Close()

	var entry *zip.File
	for _, f := range zr.File {
		if !f.FileInfo().IsDir() {
			entry = f
			break
		}
	}
	if entry == nil {
		return dclierr.Zip("archive " + archive + " contains no files")
	}

	src, err := entry.Open()
	if err != nil {
		return dclierr.FromArchive(err)
	}
	defer src.Close()

	tmp := target + ".tmp"
	dst, err := os.Create(tmp)
	if err != nil {
		return dclierr.FromFilesystem(err)
	}
	out := &writeTracker{w: dst}
	_, copyErr := io.Copy(out, src)
	closeErr := dst.Close()

	switch {
	case copyErr != nil && out.err != nil:
		_ = os.Remove(tmp)
		return dclierr.FromFilesystem(copyErr)
	case copyErr != nil:
		_ = os.Remove(tmp)
		log.Error().Err(copyErr).Str("entry", entry.Name).Msg("Failed to decompress manifest entry")
		return dclierr.FromArchive(copyErr)
	case closeErr != nil:
		_ = os.Remove(tmp)
		return dclierr.FromFilesystem(closeErr)
	}

	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return dclierr.FromFilesystem(err)
	}
	log.Debug().Str("entry", entry.Name).Str("target", target).Msg("Extracted manifest")
	return nil
}
