package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/agentflow/internal/config"
	"github.com/hyperjump/agentflow/internal/keyword"
	"github.com/hyperjump/agentflow/internal/models"
	"github.com/hyperjump/agentflow/internal/rag"
	"github.com/hyperjump/agentflow/internal/storage"
	"github.com/hyperjump/agentflow/internal/tools"
	"github.com/hyperjump/agentflow/internal/tools/calendar"
	"github.com/hyperjump/agentflow/internal/tools/files"
)

// statusFor maps an operation error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, rag.ErrFileNotFound),
		errors.Is(err, tools.ErrUnknownTool),
		errors.Is(err, storage.ErrNotFound),
		errors.Is(err, calendar.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, rag.ErrParseFailure), errors.Is(err, rag.ErrEmptyDocument):
		return http.StatusUnprocessableEntity
	case errors.Is(err, rag.ErrEmbeddingFailure):
		return http.StatusBadGateway
	case errors.Is(err, rag.ErrEmptyQuery),
		errors.Is(err, rag.ErrKeywordSearchDisabled),
		errors.Is(err, tools.ErrInvalidArguments),
		errors.Is(err, calendar.ErrInvalidEvent):
		return http.StatusBadRequest
	case errors.Is(err, files.ErrPathEscapesRoot), errors.Is(err, calendar.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, calendar.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, calendar.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req models.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("ingest request", zap.String("path", req.Path))
	res, err := s.ingestor.Ingest(r.Context(), req.Path)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("ingest failed", zap.String("path", req.Path), zap.Error(err))
		}
		s.respondError(w, status, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, res)
}

// retrieveRequest extends the retrieval request with keyword mode.
type retrieveRequest struct {
	models.RetrieveRequest
	Mode  string `json:"mode,omitempty"` // "similarity" (default) or "keyword"
	Fuzzy bool   `json:"fuzzy,omitempty"`
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("retrieve request",
		zap.String("query", req.Query),
		zap.Int("k", req.K),
		zap.String("mode", req.Mode))

	var (
		resp *models.RetrieveResponse
		err  error
	)
	switch req.Mode {
	case "", "similarity":
		resp, err = s.retriever.Search(r.Context(), &req.RetrieveRequest)
	case "keyword":
		var opts *keyword.SearchOptions
		if req.Fuzzy {
			opts = &keyword.SearchOptions{FuzzyEnabled: true}
		}
		resp, err = s.retriever.KeywordSearch(r.Context(), &req.RetrieveRequest, opts)
	default:
		s.respondError(w, http.StatusBadRequest, "mode must be similarity or keyword")
		return
	}
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("retrieve failed", zap.Error(err))
		}
		s.respondError(w, status, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset")
	if err != nil || offset < 0 {
		s.respondError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil || limit < 0 {
		s.respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	ctx := r.Context()
	docs, err := s.store.Documents(ctx, offset, limit)
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total, _, err := s.store.Counts(ctx)
	if err != nil {
		s.logger.Error("count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"total":     total,
	})
}

// queryInt parses an optional integer query parameter; missing means 0.
func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := BuildStatus(r.Context(), s.store, s.config)
	if err != nil {
		s.logger.Error("status failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// BuildStatus summarizes the store and, when cfg is set, the chunking and
// embedding settings and the disk usage of the persistence paths.
func BuildStatus(ctx context.Context, store *rag.Store, cfg *config.Config) (*models.StatusResponse, error) {
	docCount, chunkCount, err := store.Counts(ctx)
	if err != nil {
		return nil, err
	}
	resp := &models.StatusResponse{
		Documents:       int(docCount),
		Chunks:          int(chunkCount),
		VectorIndexSize: store.Size(),
		VectorIndex:     store.IndexType(),
	}
	if cfg == nil {
		return resp, nil
	}
	resp.EmbeddingModel = cfg.Embedding.Provider
	if cfg.Embedding.Model != "" {
		resp.EmbeddingModel += "/" + cfg.Embedding.Model
	}
	resp.ChunkSize = cfg.RAG.ChunkSize
	resp.ChunkOverlap = cfg.RAG.ChunkOverlap
	st := cfg.Storage
	if diskBytes, err := storage.DiskUsageBytes(st.DatabasePath, st.IndexPath, st.KeywordIndexPath); err == nil {
		resp.DiskUsageBytes = diskBytes
	}
	return resp, nil
}

func (s *Server) handleListTools(w http.ResponseWriter, _ *http.Request) {
	list := s.registry.List()
	if list == nil {
		list = []tools.Tool{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"tools": list})
}

func (s *Server) handleCallTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	args, err := io.ReadAll(r.Body)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("tool call", zap.String("tool", name))
	out, err := s.registry.Call(r.Context(), name, args)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("tool call failed", zap.String("tool", name), zap.Error(err))
		}
		s.respondError(w, status, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"tool": name, "result": out})
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, _ *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.watch.Directories()})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := false
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatch()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path query parameter is required")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatch()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

// persistWatch saves the current inbox directories to the config file, if any.
func (s *Server) persistWatch() {
	if s.configPath == "" || s.config == nil {
		return
	}
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.config.Watch.Directories = s.watch.Directories()
	if err := config.Save(s.configPath, s.config); err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
