package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/habedi/dcli/pkg/dclierr"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
)

// ContentURL resolves a manifest content path against the API host.
func (c *Client) ContentURL(contentPath string) string {
	if strings.HasPrefix(contentPath, "http://") || strings.HasPrefix(contentPath, "https://") {
		return contentPath
	}
	host := strings.TrimSuffix(c.baseURL, "/Platform")
	return host + "/" + strings.TrimLeft(contentPath, "/")
}

// fileWriter remembers write failures so they are reported as file system
// errors instead of transport errors.
type fileWriter struct {
	f   *os.File
	err error
}

func (w *fileWriter) Write(p []byte) (int, error) {
	n, err := w.f.Write(p)
	if err != nil {
		w.err = err
	}
	return n, err
}

// DownloadManifest streams the manifest archive at contentPath into destPath.
// Progress is drawn on progress when it is non-nil. It returns the number of
// bytes written.
func (c *Client) DownloadManifest(ctx context.Context, contentPath, destPath string, progress io.Writer) (int64, error) {
	src := c.ContentURL(contentPath)
	log.Info().Str("url", src).Str("dest", destPath).Msg("Downloading manifest archive")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return 0, dclierr.FromTransport(err)
	}
	req.Header.Set("User-Agent", userAgent)
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	// No overall timeout here; the archive can take minutes on slow links.
	httpClient := &http.Client{Transport: c.httpClient.Transport}
	resp, err := httpClient.Do(req)
	if err != nil {
		log.Error().Err(err).Str("url", src).Msg("Manifest download request failed")
		return 0, dclierr.FromTransport(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Error().Int("status", resp.StatusCode).Str("url", src).Msg("Manifest download returned non-OK status")
		return 0, statusFailure(resp.StatusCode, body)
	}

	file, err := os.Create(destPath)
	if err != nil {
		log.Error().Err(err).Str("path", destPath).Msg("Failed to create manifest archive file")
		return 0, dclierr.FromFilesystem(err)
	}
	out := &fileWriter{f: file}

	if progress == nil {
		progress = io.Discard
	}
	bar := progressbar.NewOptions64(
		resp.ContentLength,
		progressbar.OptionSetDescription("Downloading manifest"),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionThrottle(250*time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSpinnerType(14),
	)
	reader := progressbar.NewReader(throttle(ctx, resp.Body, c.limiter), bar)

	buffer := make([]byte, 32*1024)
	written, copyErr := io.CopyBuffer(out, &reader, buffer)
	closeErr := file.Close()
	_ = bar.Finish()

	switch {
	case copyErr != nil && out.err != nil:
		return written, dclierr.FromFilesystem(copyErr)
	case copyErr != nil:
		log.Error().Err(copyErr).Int64("written", written).Msg("Manifest download interrupted")
		return written, dclierr.FromTransport(copyErr)
	case closeErr != nil:
		return written, dclierr.FromFilesystem(closeErr)
	}
	if resp.ContentLength > 0 && written != resp.ContentLength {
		return written, dclierr.APIRequest(fmt.Sprintf("short read: got %d of %d bytes", written, resp.ContentLength))
	}

	log.Info().Int64("bytes", written).Str("dest", destPath).Msg("Manifest archive downloaded")
	return written, nil
}
