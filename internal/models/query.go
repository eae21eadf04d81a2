package models

import (
	"fmt"
	"strings"
)

// DefaultK is the number of chunks returned when a caller does not ask for a positive k.
const DefaultK = 4

// RetrieveRequest is a top-k retrieval request.
type RetrieveRequest struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

// Normalize replaces a non-positive K with defaultK (DefaultK when defaultK is not positive).
func (r *RetrieveRequest) Normalize(defaultK int) {
	if defaultK <= 0 {
		defaultK = DefaultK
	}
	if r.K <= 0 {
		r.K = defaultK
	}
}

// IngestRequest asks the server to ingest a local file.
type IngestRequest struct {
	Path string `json:"path"`
}

// Validate returns an error if the path is empty.
func (r *IngestRequest) Validate() error {
	if strings.TrimSpace(r.Path) == "" {
		return fmt.Errorf("path cannot be empty")
	}
	return nil
}
