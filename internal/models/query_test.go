package models

import (
	"testing"
)

func TestRetrieveRequest_Normalize(t *testing.T) {
	tests := []struct {
		name     string
		k        int
		defaultK int
		want     int
	}{
		{"keeps positive k", 7, 4, 7},
		{"zero uses default", 0, 4, 4},
		{"negative uses default", -3, 4, 4},
		{"configured default", 0, 10, 10},
		{"invalid default falls back", 0, 0, DefaultK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &RetrieveRequest{Query: "q", K: tt.k}
			r.Normalize(tt.defaultK)
			if r.K != tt.want {
				t.Errorf("K = %d, want %d", r.K, tt.want)
			}
		})
	}
}

func TestIngestRequest_Validate(t *testing.T) {
	if err := (&IngestRequest{Path: "  "}).Validate(); err == nil {
		t.Error("expected error for blank path")
	}
	if err := (&IngestRequest{Path: "doc.pdf"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
