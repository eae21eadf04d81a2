// Package rag owns the similarity index shared by ingestion and retrieval:
// a vector index of chunk embeddings plus the chunk text store.
package rag

import "errors"

// NoDataMessage is returned by retrieval while nothing has been ingested.
const NoDataMessage = "No PDF data ingested yet."

var (
	// ErrFileNotFound is returned when the file to ingest does not exist.
	ErrFileNotFound = errors.New("file not found")
	// ErrParseFailure is returned when the file cannot be parsed.
	ErrParseFailure = errors.New("failed to parse document")
	// ErrEmptyDocument is returned when a document yields no text.
	ErrEmptyDocument = errors.New("document contains no extractable text")
	// ErrEmbeddingFailure wraps any error from the embedder.
	ErrEmbeddingFailure = errors.New("embedding failed")
	// ErrEmptyQuery is returned for a blank query against a non-empty index.
	ErrEmptyQuery = errors.New("query cannot be empty")
	// ErrKeywordSearchDisabled is returned when the store has no keyword index.
	ErrKeywordSearchDisabled = errors.New("keyword search is not enabled")
)
