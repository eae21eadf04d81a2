//go:build faiss && cgo
// +build faiss,cgo

package vector

/*
#cgo CFLAGS: -I/opt/homebrew/include -I/usr/local/include
#cgo LDFLAGS: -L/opt/homebrew/lib -L/usr/local/lib -lfaiss_c

#include <stdlib.h>
#include <faiss/c_api/Index_c.h>
#include <faiss/c_api/IndexFlat_c.h>
#include <faiss/c_api/index_io_c.h>
#include <faiss/c_api/error_c.h>
*/
import "C"

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"unsafe"
)

// FAISSIndex wraps a FAISS IndexFlatL2. FAISS labels are sequential insertion
// positions, so ids[label] maps a hit back to its chunk ID.
type FAISSIndex struct {
	index      *C.FaissIndex
	dimensions int
	ids        []string
	mu         sync.RWMutex
}

// NewFAISSIndex creates an exact L2 FAISS index with the given dimension.
func NewFAISSIndex(dimensions int) (*FAISSIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	var index *C.FaissIndexFlatL2
	if C.faiss_IndexFlatL2_new_with(&index, C.idx_t(dimensions)) != 0 {
		return nil, fmt.Errorf("failed to create FAISS index: %s", faissLastError())
	}
	return &FAISSIndex{index: (*C.FaissIndex)(index), dimensions: dimensions}, nil
}

func faissLastError() string {
	cErr := C.faiss_get_last_error()
	if cErr == nil {
		return "unknown error"
	}
	return C.GoString(cErr)
}

// Add appends vectors with the given IDs.
func (f *FAISSIndex) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	if len(ids) == 0 {
		return nil
	}
	flat := make([]float32, len(vectors)*f.dimensions)
	for i, vec := range vectors {
		if len(vec) != f.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vec), f.dimensions)
		}
		copy(flat[i*f.dimensions:], vec)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if C.faiss_Index_add(f.index, C.idx_t(len(vectors)), (*C.float)(unsafe.Pointer(&flat[0]))) != 0 {
		return fmt.Errorf("failed to add vectors to FAISS index: %s", faissLastError())
	}
	f.ids = append(f.ids, ids...)
	return nil
}

// Search returns up to k vectors ordered by increasing squared L2 distance.
// Ties are ordered by insertion position.
func (f *FAISSIndex) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), f.dimensions)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if k <= 0 || len(f.ids) == 0 {
		return nil, nil
	}
	if k > len(f.ids) {
		k = len(f.ids)
	}
	distances := make([]float32, k)
	labels := make([]int64, k)
	if C.faiss_Index_search(
		f.index,
		1,
		(*C.float)(unsafe.Pointer(&query[0])),
		C.idx_t(k),
		(*C.float)(unsafe.Pointer(&distances[0])),
		(*C.idx_t)(unsafe.Pointer(&labels[0])),
	) != 0 {
		return nil, fmt.Errorf("FAISS search failed: %s", faissLastError())
	}

	type hit struct {
		label    int64
		distance float64
	}
	hits := make([]hit, 0, k)
	for i, label := range labels {
		if label < 0 || int(label) >= len(f.ids) {
			continue
		}
		hits = append(hits, hit{label: label, distance: float64(distances[i])})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].distance != hits[j].distance {
			return hits[i].distance < hits[j].distance
		}
		return hits[i].label < hits[j].label
	})
	results := make([]*VectorResult, len(hits))
	for i, h := range hits {
		results[i] = &VectorResult{ID: f.ids[h.label], Distance: h.distance}
	}
	return results, nil
}

// Save writes the FAISS index to path+".faiss" and the label-to-ID table to path+".ids".
func (f *FAISSIndex) Save(path string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	cPath := C.CString(path + faissFileSuffix)
	defer C.free(unsafe.Pointer(cPath))
	if C.faiss_write_index_fname(f.index, cPath) != 0 {
		return fmt.Errorf("failed to save FAISS index: %s", faissLastError())
	}
	idsFile, err := os.Create(path + ".ids")
	if err != nil {
		return fmt.Errorf("create id file: %w", err)
	}
	defer idsFile.Close()
	w := bufio.NewWriter(idsFile)
	if err := gob.NewEncoder(w).Encode(f.ids); err != nil {
		return fmt.Errorf("encode ids: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush ids: %w", err)
	}
	return idsFile.Close()
}

// Load reads an index written by Save. Missing files leave the index unchanged.
func (f *FAISSIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	faissPath := path + faissFileSuffix
	if _, err := os.Stat(faissPath); os.IsNotExist(err) {
		return nil
	}
	idsFile, err := os.Open(path + ".ids")
	if err != nil {
		return fmt.Errorf("open id file: %w", err)
	}
	defer idsFile.Close()
	var ids []string
	if err := gob.NewDecoder(bufio.NewReader(idsFile)).Decode(&ids); err != nil {
		return fmt.Errorf("decode ids: %w", err)
	}

	cPath := C.CString(faissPath)
	defer C.free(unsafe.Pointer(cPath))
	var loaded *C.FaissIndex
	if C.faiss_read_index_fname(cPath, 0, &loaded) != 0 {
		return fmt.Errorf("failed to load FAISS index: %s", faissLastError())
	}
	if int(C.faiss_Index_d(loaded)) != f.dimensions || int(C.faiss_Index_ntotal(loaded)) != len(ids) {
		C.faiss_Index_free(loaded)
		return fmt.Errorf("FAISS index at %s does not match dimension %d and %d ids", faissPath, f.dimensions, len(ids))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.index != nil {
		C.faiss_Index_free(f.index)
	}
	f.index = loaded
	f.ids = ids
	return nil
}

// Size returns the number of stored vectors.
func (f *FAISSIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.ids)
}

// Dimensions returns the vector dimension.
func (f *FAISSIndex) Dimensions() int {
	return f.dimensions
}

// Close frees the FAISS index.
func (f *FAISSIndex) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.index != nil {
		C.faiss_Index_free(f.index)
		f.index = nil
	}
	return nil
}

// Type returns the index type identifier.
func (f *FAISSIndex) Type() string {
	return string(IndexTypeFAISS)
}
