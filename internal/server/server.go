// Package server provides the HTTP API for AgentFlow.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/agentflow/internal/config"
	"github.com/hyperjump/agentflow/internal/indexer"
	"github.com/hyperjump/agentflow/internal/rag"
	"github.com/hyperjump/agentflow/internal/search"
	"github.com/hyperjump/agentflow/internal/tools"
	"github.com/hyperjump/agentflow/pkg/utils"
)

// WatchService manages inbox directories at runtime.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the AgentFlow API.
type Server struct {
	ingestor  *indexer.Ingestor
	retriever *search.Retriever
	store     *rag.Store
	registry  *tools.Registry
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server

	watch      WatchService // nil when no inbox is configured
	configPath string       // when set, watch changes are saved here
	configMu   sync.Mutex
}

// NewServer creates a server with the given dependencies. watch may be nil.
func NewServer(
	ingestor *indexer.Ingestor,
	retriever *search.Retriever,
	store *rag.Store,
	registry *tools.Registry,
	cfg *config.Config,
	logger *zap.Logger,
	watch WatchService,
	configPath string,
) *Server {
	return &Server{
		ingestor:   ingestor,
		retriever:  retriever,
		store:      store,
		registry:   registry,
		config:     cfg,
		logger:     utils.LoggerOrNop(logger),
		watch:      watch,
		configPath: configPath,
	}
}

// Router returns the API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/ingest", s.handleIngest)
		r.Post("/retrieve", s.handleRetrieve)
		r.Get("/documents", s.handleListDocuments)
		r.Get("/status", s.handleStatus)
		r.Get("/tools", s.handleListTools)
		r.Post("/tools/{name}", s.handleCallTool)
		r.Get("/watch/directories", s.handleWatchDirectoriesList)
		r.Post("/watch/directories", s.handleWatchDirectoriesAdd)
		r.Delete("/watch/directories", s.handleWatchDirectoriesRemove)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// requestLogger logs each request at debug level.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
