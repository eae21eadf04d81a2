package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/agentflow/internal/embedding"
	"github.com/hyperjump/agentflow/internal/extract"
	"github.com/hyperjump/agentflow/internal/fileid"
	"github.com/hyperjump/agentflow/internal/models"
	"github.com/hyperjump/agentflow/internal/rag"
	"github.com/hyperjump/agentflow/pkg/utils"
)

// IngestMessage is the confirmation returned to agents after a successful ingestion.
func IngestMessage(name string) string {
	return fmt.Sprintf("PDF '%s' ingested for RAG.", name)
}

// Ingestor extracts, chunks, and embeds files and appends them to a rag.Store.
type Ingestor struct {
	store       *rag.Store
	embedder    embedding.Embedder
	chunker     *Chunker
	extractor   *extract.Extractor
	allowedExts []string
	logger      *zap.Logger
}

// IngestorOption configures an Ingestor.
type IngestorOption func(*Ingestor)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) IngestorOption {
	return func(in *Ingestor) { in.logger = l }
}

// WithExtensions restricts Ingest to files with one of exts (case-insensitive, dot optional).
func WithExtensions(exts []string) IngestorOption {
	return func(in *Ingestor) { in.allowedExts = exts }
}

// NewIngestor creates an ingestor writing to store.
func NewIngestor(store *rag.Store, embedder embedding.Embedder, chunker *Chunker, opts ...IngestorOption) *Ingestor {
	in := &Ingestor{
		store:     store,
		embedder:  embedder,
		chunker:   chunker,
		extractor: extract.NewExtractor(),
	}
	for _, opt := range opts {
		opt(in)
	}
	in.logger = utils.LoggerOrNop(in.logger)
	return in
}

// Ingest reads the file at path and appends its chunks to the store. Every call
// adds new chunks, even for a file that was ingested before.
//
// Errors wrap rag.ErrFileNotFound, rag.ErrParseFailure, rag.ErrEmptyDocument or
// rag.ErrEmbeddingFailure.
func (in *Ingestor) Ingest(ctx context.Context, path string) (*models.IngestResult, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	name := filepath.Base(absPath)
	in.logger.Debug("ingesting file", zap.String("path", absPath))

	info, err := os.Stat(absPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", rag.ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: not a regular file: %s", rag.ErrFileNotFound, path)
	}
	if len(in.allowedExts) > 0 && !extensionAllowed(filepath.Ext(absPath), in.allowedExts) {
		return nil, fmt.Errorf("%w: extension %q not accepted", rag.ErrParseFailure, filepath.Ext(absPath))
	}

	text, err := in.extractor.Extract(absPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", rag.ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %w", rag.ErrParseFailure, name, err)
	}
	if text.Empty() {
		return nil, fmt.Errorf("%w: %s", rag.ErrEmptyDocument, name)
	}

	docID := uuid.New().String()
	chunks := in.chunker.Chunk(docID, text.Content)
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}
	embeddings, err := in.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", rag.ErrEmbeddingFailure, err)
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d chunks", rag.ErrEmbeddingFailure, len(embeddings), len(chunks))
	}

	doc := &models.Document{
		ID:         docID,
		SourceID:   fileid.SourceID(absPath),
		Name:       name,
		Path:       absPath,
		Pages:      text.Pages,
		Chunks:     len(chunks),
		IngestedAt: time.Now().UTC(),
	}
	if err := in.store.Append(ctx, doc, chunks, embeddings); err != nil {
		return nil, err
	}
	in.logger.Debug("file ingested",
		zap.String("path", absPath),
		zap.String("doc_id", docID),
		zap.Int("pages", doc.Pages),
		zap.Int("chunks", doc.Chunks))
	return &models.IngestResult{Document: doc, Message: IngestMessage(name)}, nil
}

// IngestDirectory walks dir recursively and ingests each regular file with an
// accepted extension. Files that fail are logged and skipped. Returns the number
// of files ingested.
func (in *Ingestor) IngestDirectory(ctx context.Context, dir string) (n int, err error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", absDir)
	}
	err = filepath.WalkDir(absDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if len(in.allowedExts) > 0 && !extensionAllowed(filepath.Ext(path), in.allowedExts) {
			return nil
		}
		if _, ingestErr := in.Ingest(ctx, path); ingestErr != nil {
			if errors.Is(ingestErr, context.Canceled) || errors.Is(ingestErr, context.DeadlineExceeded) {
				return ingestErr
			}
			in.logger.Warn("skipping file", zap.String("path", path), zap.Error(ingestErr))
			return nil
		}
		n++
		return nil
	})
	return n, err
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
