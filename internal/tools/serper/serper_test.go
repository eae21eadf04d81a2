package serper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) *Response {
	t.Helper()
	var r Response
	require.NoError(t, json.Unmarshal([]byte(s), &r))
	return &r
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "answer box answer",
			body: `{"answerBox":{"answer":"42","snippet":"ignored"},"organic":[{"snippet":"x"}]}`,
			want: "42",
		},
		{
			name: "answer box snippet newlines flattened",
			body: `{"answerBox":{"snippet":"line one\nline two"}}`,
			want: "line one line two",
		},
		{
			name: "answer box highlighted",
			body: `{"answerBox":{"snippetHighlighted":["a","b"]}}`,
			want: "a b",
		},
		{
			name: "knowledge graph and organic",
			body: `{"knowledgeGraph":{"title":"Go","type":"Programming language","description":"Go is a language.","attributes":{"Designed by":"Robert Griesemer"}},
				"organic":[{"snippet":"First hit."},{"snippet":"Second hit.","attributes":{"Rating":"5"}}]}`,
			want: "Go: Programming language. Go is a language. Go Designed by: Robert Griesemer. First hit. Second hit. Rating: 5.",
		},
		{
			name: "empty",
			body: `{}`,
			want: NoResult,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summarize(decode(t, tt.body), 10))
		})
	}
}

func TestSummarize_LimitsOrganic(t *testing.T) {
	r := decode(t, `{"organic":[{"snippet":"a"},{"snippet":"b"},{"snippet":"c"}]}`)
	assert.Equal(t, "a b", Summarize(r, 2))
}

func TestClient_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-API-KEY"))
		var req searchRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "golang", req.Q)
		w.Write([]byte(`{"organic":[{"snippet":"The Go programming language."}]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "secret")
	require.NoError(t, err)
	got, err := c.Search(context.Background(), "golang")
	require.NoError(t, err)
	assert.Equal(t, "The Go programming language.", got)
}

func TestClient_SearchErrors(t *testing.T) {
	_, err := NewClient("", "")
	assert.ErrorIs(t, err, ErrNotConfigured)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()
	c, err := NewClient(srv.URL, "key")
	require.NoError(t, err)
	_, err = c.Search(context.Background(), "q")
	assert.ErrorContains(t, err, "403")

	_, err = c.Search(context.Background(), "  ")
	assert.Error(t, err)
}
