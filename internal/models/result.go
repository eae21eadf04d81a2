package models

// IngestResult is returned after a file has been ingested.
type IngestResult struct {
	Document *Document `json:"document"`
	Message  string    `json:"message"`
}

// RetrievedChunk is a single retrieval hit. For similarity retrieval Distance is the
// squared L2 distance between query and chunk embeddings (lower is closer). Keyword
// hits carry a BM25 Score instead (higher is better).
type RetrievedChunk struct {
	Chunk        *Chunk  `json:"chunk"`
	DocumentName string  `json:"document_name,omitempty"`
	Distance     float64 `json:"distance,omitempty"`
	Score        float64 `json:"score,omitempty"`
	Rank         int     `json:"rank"`
}

// RetrieveResponse is the response for a retrieval request.
// Context is the chunk contents joined by blank lines, or the no-data message.
type RetrieveResponse struct {
	Context   string            `json:"context"`
	Results   []*RetrievedChunk `json:"results"`
	Query     string            `json:"query"`
	K         int               `json:"k"`
	QueryTime int64             `json:"query_time_ms"`
}

// StatusResponse summarizes the state of the RAG store.
type StatusResponse struct {
	Documents       int    `json:"documents"`
	Chunks          int    `json:"chunks"`
	VectorIndexSize int    `json:"vector_index_size"`
	EmbeddingModel  string `json:"embedding_model"`
	VectorIndex     string `json:"vector_index"`
	ChunkSize       int    `json:"chunk_size"`
	ChunkOverlap    int    `json:"chunk_overlap"`
	DiskUsageBytes  int64  `json:"disk_usage_bytes,omitempty"`
}
