// Package main is the AgentFlow CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/agentflow/internal/cli"
	"github.com/hyperjump/agentflow/internal/config"
	"github.com/hyperjump/agentflow/internal/keyword"
	"github.com/hyperjump/agentflow/internal/mcp"
	"github.com/hyperjump/agentflow/internal/models"
	"github.com/hyperjump/agentflow/internal/server"
	"github.com/hyperjump/agentflow/internal/watcher"
	"github.com/hyperjump/agentflow/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/agentflow/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in
// the current directory takes precedence, and a missing default file falls back
// to environment and built-in defaults. Returns the path actually loaded, or ""
// when no file was used.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(fallback); err == nil {
				cfg, err := config.Load(fallback)
				if err != nil {
					return nil, "", err
				}
				return cfg, fallback, nil
			}
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			cfg, err := config.Default()
			return cfg, "", err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "mcp":
		runMCP()
	case "ingest":
		runIngest()
	case "retrieve":
		runRetrieve()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("agentflow version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads config and builds a logger. Failures exit the process.
func setup(configPath string, debug bool) (*config.Config, string, *zap.Logger) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg.Debug = cfg.Debug || debug
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", cfg.Debug))
	return cfg, resolved, logger
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger := setup(*configPath, *debug)
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	// The watcher runs even with no configured directories so the API can add some.
	w := newInboxWatcher(ctx, cfg, components, logger)
	if err := w.Start(ctx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	defer w.Stop()
	if cfg.Watch.SyncExisting && len(cfg.Watch.Directories) > 0 {
		go w.SyncExistingFiles()
	}

	srv := server.NewServer(
		components.Ingestor,
		components.Retriever,
		components.Store,
		components.Registry,
		cfg,
		logger,
		w,
		resolvedConfigPath,
	)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", zap.Error(err))
		}
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
}

// newInboxWatcher ingests each new file that lands in a watched directory.
func newInboxWatcher(ctx context.Context, cfg *config.Config, c *Components, logger *zap.Logger) *watcher.Watcher {
	return watcher.NewWatcher(
		cfg.Watch.Directories,
		cfg.Watch.Extensions,
		cfg.Watch.RecursiveOrDefault(),
		func(path string) {
			res, err := c.Ingestor.Ingest(ctx, path)
			if err != nil {
				logger.Warn("inbox ingest failed", zap.String("path", path), zap.Error(err))
				return
			}
			logger.Info(res.Message, zap.String("path", path), zap.Int("chunks", res.Document.Chunks))
			if err := c.Save(); err != nil {
				logger.Warn("vector index save failed", zap.Error(err))
			}
		},
		watcher.WithLogger(logger),
	)
}

func runMCP() {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (stderr)")
	port := fs.Int("port", 0, "serve streamable HTTP on this port instead of stdio")
	_ = fs.Parse(os.Args[2:])

	cfg, _, logger := setup(*configPath, *debug)
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srv, err := mcp.NewServer(&mcp.Ports{
		Tools:     components.Toolset,
		Documents: components.Store,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("Failed to create MCP server", zap.Error(err))
	}

	if *port > 0 {
		err = srv.RunHTTP(ctx, fmt.Sprintf("%s:%d", cfg.Server.Host, *port))
	} else {
		err = srv.Run(ctx)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("MCP server stopped", zap.Error(err))
	}
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = ingest into the local store)")
	outputFormat := fs.String("output", "text", "output format: text, json or context")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: agentflow ingest [flags] <file>...")
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *serverURL != "" {
		api := newAPIClient(*serverURL)
		failed := false
		for _, path := range fs.Args() {
			abs, err := filepath.Abs(path)
			if err != nil {
				abs = path
			}
			res, err := api.Ingest(context.Background(), abs)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Ingest %s failed: %v\n", path, err)
				failed = true
				continue
			}
			_ = cli.WriteIngestResult(os.Stdout, res, format)
		}
		if failed {
			os.Exit(1)
		}
		return
	}

	cfg, _, logger := setup(*configPath, *debug)
	defer logger.Sync() //nolint:errcheck
	if !cfg.Storage.Persistent() {
		fmt.Fprintln(os.Stderr, "Warning: no storage.database_path/index_path configured; ingested chunks are discarded on exit.")
	}

	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	failed := false
	for _, path := range fs.Args() {
		res, err := components.Ingestor.Ingest(ctx, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ingest %s failed: %v\n", path, err)
			failed = true
			continue
		}
		_ = cli.WriteIngestResult(os.Stdout, res, format)
	}
	components.Close()
	if failed {
		os.Exit(1)
	}
}

func runRetrieve() {
	fs := flag.NewFlagSet("retrieve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = query the local store)")
	k := fs.Int("k", 0, "number of chunks (default: rag.default_k)")
	outputFormat := fs.String("output", "context", "output format: context, text or json")
	useKeyword := fs.Bool("keyword", false, "rank by keyword (BM25) instead of embedding similarity")
	fuzzy := fs.Bool("fuzzy", false, "tolerate typos in keyword mode")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	query := buildQuery(fs.Args())
	if query == "" {
		fmt.Fprintln(os.Stderr, "Usage: agentflow retrieve [flags] <query>")
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var resp *models.RetrieveResponse
	if *serverURL != "" {
		resp, err = newAPIClient(*serverURL).Retrieve(context.Background(), query, *k, *useKeyword, *fuzzy)
	} else {
		cfg, _, logger := setup(*configPath, *debug)
		defer logger.Sync() //nolint:errcheck
		ctx := context.Background()
		components, initErr := initializeComponents(ctx, cfg, logger)
		if initErr != nil {
			logger.Fatal("Failed to initialize components", zap.Error(initErr))
		}
		defer components.Close()

		req := &models.RetrieveRequest{Query: query, K: *k}
		if *useKeyword {
			var opts *keyword.SearchOptions
			if *fuzzy {
				opts = &keyword.SearchOptions{FuzzyEnabled: true}
			}
			resp, err = components.Retriever.KeywordSearch(ctx, req, opts)
		} else {
			resp, err = components.Retriever.Search(ctx, req)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Retrieve failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteRetrieveResults(os.Stdout, resp, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = read the local store)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var status *models.StatusResponse
	if *serverURL != "" {
		status, err = newAPIClient(*serverURL).Status(context.Background())
	} else {
		cfg, _, logger := setup(*configPath, false)
		defer logger.Sync() //nolint:errcheck
		ctx := context.Background()
		components, initErr := initializeComponents(ctx, cfg, logger)
		if initErr != nil {
			logger.Fatal("Failed to initialize components", zap.Error(initErr))
		}
		defer components.Close()
		status, err = server.BuildStatus(ctx, components.Store, cfg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteStatus(os.Stdout, status, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// buildQuery joins positional args so multi-word queries work with or without quotes.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// reorderArgs moves flags that follow the positional arguments to the front,
// since flag.Parse stops at the first non-flag argument.
func reorderArgs(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func printUsage() {
	fmt.Println(`agentflow - agent tools with PDF retrieval

Usage:
  agentflow server [flags]            Start the HTTP API (and inbox watcher, if configured)
  agentflow mcp [flags]               Serve the tools over MCP (stdio, or HTTP with --port)
  agentflow ingest [flags] <file>...  Ingest PDF files for retrieval
  agentflow retrieve [flags] <query>  Retrieve context for a query
  agentflow status [flags]            Show store status
  agentflow version                   Show version
  agentflow help                      Show this help

Common Flags:
  --config string    Config file path (default: ./config.yaml, then /usr/local/etc/agentflow/config.yaml)
  --debug            Enable debug logging (always on stderr)

MCP Flags:
  --port int         Serve streamable HTTP on this port instead of stdio

Ingest / Retrieve / Status Flags:
  --server string    Server URL. When set, the running server does the work; otherwise
                     the local store is used (persistent only if storage paths are configured).
  --output string    text, json or context

Retrieve Flags:
  -k int             Number of chunks (default: rag.default_k)
  --keyword          Rank by keyword (BM25) instead of embedding similarity
  --fuzzy            Tolerate typos in keyword mode

Environment:
  PUSHOVER_TOKEN, PUSHOVER_USER   enable send_push_notification
  SERPER_API_KEY                  enables search
  OPENAI_API_KEY                  used by the openai embedding provider
  FILE_TOOL_ROOT                  root directory of the file tools (default: reports)
  GOOGLE_TOKEN_PATH               authorized-user token enabling the calendar tools
  GOOGLE_CALENDAR_ID              default calendar (default: primary)

Examples:
  agentflow server --config config.yaml
  agentflow ingest handbook.pdf
  agentflow retrieve -k 3 "vacation policy"
  agentflow retrieve --server http://localhost:8080 --keyword --fuzzy "reimbursment"
  agentflow status --output json`)
}
