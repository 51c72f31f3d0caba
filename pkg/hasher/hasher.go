package hasher

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/habedi/dcli/pkg/dclierr"
)

// Algorithms is a list of supported hashing algorithms.
var Algorithms = []string{"md5", "sha1", "sha256", "sha512"}

// Default is the algorithm recorded for installed manifests.
const Default = "sha256"

func newHash(algo string) (hash.Hash, bool) {
	switch strings.ToLower(algo) {
	case "md5":
		return md5.New(), true
	case "sha1":
		return sha1.New(), true
	case "sha256":
		return sha256.New(), true
	case "sha512":
		return sha512.New(), true
	default:
		return nil, false
	}
}

// IsValidAlgorithm checks if the provided algorithm string is supported.
func IsValidAlgorithm(algo string) bool {
	_, ok := newHash(algo)
	return ok
}

// File returns the hex digest of the file at path. An unsupported algorithm
// is a parameter parse failure; I/O problems are file system failures.
func File(path, algo string) (string, error) {
	h, ok := newHash(algo)
	if !ok {
		return "", dclierr.ParameterParse()
	}

	file, err := os.Open(path)
	if err != nil {
		return "", dclierr.FromFilesystem(err)
	}
	defer file.Close()

	if _, err := io.Copy(h, file); err != nil {
		return "", dclierr.FromFilesystem(err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
