// Package cli formats command output for the agentflow binary.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/agentflow/internal/models"
	"github.com/hyperjump/agentflow/pkg/utils"
)

// OutputFormat selects how results are written.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
	// OutputContext writes only the joined context, exactly as the rag_retrieve tool returns it.
	OutputContext OutputFormat = "context"
)

// ParseOutputFormat validates a --format flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case OutputText, OutputJSON, OutputContext:
		return f, nil
	case "":
		return OutputText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (supported: text, json, context)", s)
	}
}

// WriteRetrieveResults writes a retrieval response to w in the given format.
func WriteRetrieveResults(w io.Writer, resp *models.RetrieveResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, resp)
	case OutputContext:
		_, err := fmt.Fprintln(w, resp.Context)
		return err
	default:
		writeRetrieveText(w, resp)
		return nil
	}
}

func writeRetrieveText(w io.Writer, resp *models.RetrieveResponse) {
	if len(resp.Results) == 0 {
		fmt.Fprintln(w, resp.Context)
		return
	}
	fmt.Fprintf(w, "\n%d of %d chunks in %dms\n\n", len(resp.Results), resp.K, resp.QueryTime)
	for _, res := range resp.Results {
		writeOneResult(w, res)
	}
}

func writeOneResult(w io.Writer, res *models.RetrievedChunk) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	if res.Score != 0 {
		fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", res.Rank, res.Score)
	} else {
		fmt.Fprintf(w, "Rank: %d | Distance: %.4f\n", res.Rank, res.Distance)
	}
	if res.DocumentName != "" {
		fmt.Fprintf(w, "Document: %s (chunk %d)\n", res.DocumentName, res.Chunk.Position)
	}
	fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(res.Chunk.Content, 200))
}

// WriteIngestResult writes the outcome of an ingestion.
func WriteIngestResult(w io.Writer, res *models.IngestResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	fmt.Fprintln(w, res.Message)
	if format == OutputText && res.Document != nil {
		fmt.Fprintf(w, "  id: %s\n  pages: %d\n  chunks: %d\n", res.Document.ID, res.Document.Pages, res.Document.Chunks)
	}
	return nil
}

// WriteStatus writes store statistics.
func WriteStatus(w io.Writer, st *models.StatusResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "Documents:        %d\n", st.Documents)
	fmt.Fprintf(w, "Chunks:           %d\n", st.Chunks)
	fmt.Fprintf(w, "Vector index:     %s (%d vectors)\n", st.VectorIndex, st.VectorIndexSize)
	if st.EmbeddingModel != "" {
		fmt.Fprintf(w, "Embedding model:  %s\n", st.EmbeddingModel)
	}
	fmt.Fprintf(w, "Chunking:         %d runes, %d overlap\n", st.ChunkSize, st.ChunkOverlap)
	if st.DiskUsageBytes > 0 {
		fmt.Fprintf(w, "Disk usage:       %s\n", FormatBytes(st.DiskUsageBytes))
	}
	return nil
}

// FormatBytes renders n using binary units.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
