package cmd

import (
	"strings"

	"github.com/dustin/go-humanize"
)

// formatBytes renders n with binary units and no spaces, e.g. 1.5MiB.
func formatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return strings.ReplaceAll(humanize.IBytes(uint64(n)), " ", "")
}
