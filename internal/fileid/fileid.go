// Package fileid derives a stable source identifier from a file path.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

const prefix = "file:"

// SourceID returns the same ID for every ingestion of the file at absolutePath.
// Documents carry it so repeated ingestions of one file can be grouped.
func SourceID(absolutePath string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(absolutePath)))
	return prefix + hex.EncodeToString(sum[:])
}
