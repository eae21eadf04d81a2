package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()
	write := func(path string, size int) {
		t.Helper()
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
			t.Fatal(err)
		}
	}

	db := filepath.Join(dir, "agentflow.db")
	vectors := filepath.Join(dir, "vectors.idx")
	keywordDir := filepath.Join(dir, "keyword.bleve")
	write(db, 40)
	write(vectors, 16)
	write(filepath.Join(keywordDir, "store", "root.bolt"), 7)
	write(filepath.Join(keywordDir, "index_meta.json"), 3)

	tests := []struct {
		name  string
		paths []string
		want  int64
	}{
		{"database file", []string{db}, 40},
		{"keyword index directory", []string{keywordDir}, 10},
		{"whole store", []string{db, vectors, keywordDir}, 66},
		{"in-memory parts are empty paths", []string{"", db, ""}, 40},
		{"index not saved yet", []string{db, filepath.Join(dir, "missing.idx")}, 40},
		{"nothing", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiskUsageBytes(tt.paths...)
			if err != nil {
				t.Fatalf("DiskUsageBytes: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %d bytes, want %d", got, tt.want)
			}
		})
	}
}
