package vector

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// faissFileSuffix is appended to the index path for the FAISS index file.
const faissFileSuffix = ".faiss"

// IndexType represents the type of vector index to use.
type IndexType string

const (
	// IndexTypeMemory uses in-memory brute-force search.
	IndexTypeMemory IndexType = "memory"
	// IndexTypeFAISS uses a FAISS flat L2 index. Requires the FAISS C library and -tags=faiss.
	IndexTypeFAISS IndexType = "faiss"
)

// NewVectorIndex creates a vector index of the specified type.
// Supported types: "memory" (default), "faiss".
func NewVectorIndex(indexType string, dimensions int) (VectorIndex, error) {
	switch IndexType(indexType) {
	case IndexTypeMemory, "":
		return NewMemoryIndex(dimensions)
	case IndexTypeFAISS:
		return NewFAISSIndex(dimensions)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: memory, faiss)", indexType)
	}
}

// IsFAISSAvailable returns true if FAISS support is compiled in.
func IsFAISSAvailable() bool {
	idx, err := NewFAISSIndex(1)
	if err != nil {
		return false
	}
	_ = idx.Close()
	return true
}

// LoadVectorIndex opens the index of the given type saved at path. It returns
// nil, nil when nothing has been saved there yet. For the memory type the
// dimension is read from the file; a positive dimensions argument must match it.
func LoadVectorIndex(indexType, path string, dimensions int) (VectorIndex, error) {
	if path == "" {
		return nil, nil
	}
	switch IndexType(indexType) {
	case IndexTypeMemory, "":
		d, err := ReadIndexDimensions(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if dimensions > 0 && d != dimensions {
			return nil, fmt.Errorf("index at %s has %d dimensions, want %d", path, d, dimensions)
		}
		dimensions = d
	case IndexTypeFAISS:
		if _, err := os.Stat(path + faissFileSuffix); errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
	}
	idx, err := NewVectorIndex(indexType, dimensions)
	if err != nil {
		return nil, err
	}
	if err := idx.Load(path); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("load index: %w", err)
	}
	return idx, nil
}
