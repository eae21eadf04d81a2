package indexer

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNewChunker_Invalid(t *testing.T) {
	tests := []struct {
		name          string
		size, overlap int
	}{
		{"zero size", 0, 0},
		{"negative overlap", 10, -1},
		{"overlap equals size", 10, 10},
		{"overlap exceeds size", 10, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewChunker(tt.size, tt.overlap); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestChunker_Chunk(t *testing.T) {
	c, err := NewChunker(3, 1)
	if err != nil {
		t.Fatal(err)
	}
	chunks := c.Chunk("doc1", "abcdefg")
	want := []string{"abc", "cde", "efg"}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(chunks))
	}
	ids := map[string]bool{}
	for i, ch := range chunks {
		if ch.Content != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, ch.Content, want[i])
		}
		if ch.DocumentID != "doc1" {
			t.Errorf("chunk %d DocumentID=%s", i, ch.DocumentID)
		}
		if ch.Position != i {
			t.Errorf("chunk %d Position=%d", i, ch.Position)
		}
		if ch.ID == "" || ids[ch.ID] {
			t.Errorf("chunk %d has empty or duplicate ID %q", i, ch.ID)
		}
		ids[ch.ID] = true
	}
}

func TestChunker_ChunkEmpty(t *testing.T) {
	c, _ := NewChunker(5, 1)
	if chunks := c.Chunk("d", ""); chunks != nil {
		t.Errorf("empty text should return nil, got %v", chunks)
	}
}

func TestChunker_ShortText(t *testing.T) {
	c, _ := NewChunker(DefaultChunkSize, DefaultChunkOverlap)
	parts := c.Split("short text")
	if len(parts) != 1 || parts[0] != "short text" {
		t.Errorf("got %q", parts)
	}
}

func TestChunker_NoTrailingOverlapOnlyChunk(t *testing.T) {
	c, _ := NewChunker(10, 2)
	// 18 runes: windows [0,10) and [8,18); a third window would lie entirely inside the overlap.
	parts := c.Split(strings.Repeat("x", 18))
	if len(parts) != 2 {
		t.Errorf("expected 2 chunks, got %d", len(parts))
	}
}

func TestChunker_DefaultWindowProperties(t *testing.T) {
	c, _ := NewChunker(DefaultChunkSize, DefaultChunkOverlap)
	var b strings.Builder
	for i := 0; b.Len() < 3000; i++ {
		b.WriteString("línea número ")
		b.WriteString(strings.Repeat("é", i%7))
		b.WriteString(" ✓\n")
	}
	text := b.String()
	parts := c.Split(text)
	if len(parts) < 3 {
		t.Fatalf("expected several chunks, got %d", len(parts))
	}
	for i, p := range parts {
		if n := utf8.RuneCountInString(p); n > DefaultChunkSize {
			t.Errorf("chunk %d has %d runes", i, n)
		}
		if i == 0 {
			continue
		}
		prev := []rune(parts[i-1])
		cur := []rune(p)
		tail := string(prev[len(prev)-DefaultChunkOverlap:])
		head := string(cur[:DefaultChunkOverlap])
		if tail != head {
			t.Errorf("chunks %d and %d do not share exactly %d characters", i-1, i, DefaultChunkOverlap)
		}
	}

	// Reassembling the windows without their overlap yields the original text.
	var joined strings.Builder
	for i, p := range parts {
		if i == 0 {
			joined.WriteString(p)
			continue
		}
		joined.WriteString(string([]rune(p)[DefaultChunkOverlap:]))
	}
	if joined.String() != text {
		t.Error("reassembled chunks differ from input text")
	}
}
