package dclierr

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"strings"
	"syscall"
)

// FromTransport classifies an error returned while sending a request or
// reading its response as KindAPIRequest.
func FromTransport(err error) *Error {
	var tags []string
	switch {
	case errors.Is(err, context.Canceled):
		tags = append(tags, "canceled")
	case errors.Is(err, context.DeadlineExceeded):
		tags = append(tags, "deadline exceeded")
	default:
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			tags = append(tags, "timeout")
		}
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		tags = append(tags, "connection refused")
	}
	if errors.Is(err, syscall.ECONNRESET) {
		tags = append(tags, "connection reset")
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		tags = append(tags, "host not found")
	}
	return adapted(KindAPIRequest, err, tags)
}

// FromParse classifies a JSON decoding error as KindAPIParse.
func FromParse(err error) *Error {
	var tags []string
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		tags = append(tags, fmt.Sprintf("offset %d", syntaxErr.Offset))
	case errors.As(err, &typeErr):
		tags = append(tags, fmt.Sprintf("field %q wants %v, got %s at offset %d",
			typeErr.Field, typeErr.Type, typeErr.Value, typeErr.Offset))
	case errors.Is(err, io.ErrUnexpectedEOF):
		tags = append(tags, "truncated body")
	}
	return adapted(KindAPIParse, err, tags)
}

// FromFilesystem classifies a local I/O error as KindIO. A path that should
// be a directory but is a file is reported by callers with DirIsFile instead.
func FromFilesystem(err error) *Error {
	var tags []string
	switch {
	case errors.Is(err, fs.ErrNotExist):
		tags = append(tags, "not found")
	case errors.Is(err, fs.ErrPermission):
		tags = append(tags, "permission denied")
	case errors.Is(err, fs.ErrExist):
		tags = append(tags, "already exists")
	case errors.Is(err, syscall.ENOSPC):
		tags = append(tags, "no space left")
	}
	return adapted(KindIO, err, tags)
}

// FromArchive classifies an archive/zip error as KindZip.
func FromArchive(err error) *Error {
	var tags []string
	switch {
	case errors.Is(err, zip.ErrFormat):
		tags = append(tags, "bad format")
	case errors.Is(err, zip.ErrChecksum):
		tags = append(tags, "checksum mismatch")
	case errors.Is(err, zip.ErrAlgorithm):
		tags = append(tags, "unsupported compression")
	case errors.Is(err, zip.ErrInsecurePath):
		tags = append(tags, "insecure path")
	}
	return adapted(KindZip, err, tags)
}

// adapted builds the failure for err. A taxonomy value inside err is returned
// as is and keeps its own kind.
func adapted(kind Kind, err error, tags []string) *Error {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e
	}
	desc := describe(err)
	// The text may already say what a tag would add.
	var extra []string
	for _, tag := range tags {
		if !strings.Contains(desc, tag) {
			extra = append(extra, tag)
		}
	}
	if len(extra) > 0 {
		desc += " [" + strings.Join(extra, ", ") + "]"
	}
	return &Error{kind: kind, description: desc, cause: err}
}

// describe keeps the Go type of err next to its text so the origin survives flattening.
func describe(err error) string {
	if err == nil {
		return "no underlying error"
	}
	return fmt.Sprintf("%T : %v", err, err)
}
