package tools

import (
	"context"
	"errors"
	"strings"

	"github.com/hyperjump/agentflow/internal/keyword"
	"github.com/hyperjump/agentflow/internal/models"
	"github.com/hyperjump/agentflow/internal/tools/calendar"
	"github.com/hyperjump/agentflow/internal/tools/files"
)

// Tool definitions. Names and descriptions are what agents see.
var (
	DefIngestPDF     = Definition{"ingest_pdf_for_rag", "Ingest a PDF file for RAG. Input: path to PDF file."}
	DefRetrieve      = Definition{"rag_retrieve", "Retrieve relevant context from ingested PDFs for a query. Input: query string."}
	DefKeywordSearch = Definition{"rag_keyword_search", "Keyword (BM25) search over text ingested from PDFs. Input: query string."}
	DefPush          = Definition{"send_push_notification", "Send a push notification via Pushover"}
	DefSearch        = Definition{"search", "Run a Google Serper web search"}
	DefWikipedia     = Definition{"wikipedia", "A wrapper around Wikipedia. Useful for when you need to answer general questions about people, places, companies, facts, historical events, or other subjects. Input should be a search query."}
	DefReadFile      = Definition{"read_file", "Read file from disk"}
	DefWriteFile     = Definition{"write_file", "Write file to disk"}
	DefListDirectory = Definition{"list_directory", "List files and directories in a specified folder"}
	DefCopyFile      = Definition{"copy_file", "Create a copy of a file in a specified location"}
	DefMoveFile      = Definition{"move_file", "Move or rename a file from one location to another"}
	DefDeleteFile    = Definition{"file_delete", "Delete a file"}
	DefFileSearch    = Definition{"file_search", "Recursively search for files in a subdirectory that match the glob pattern"}
	DefCreateEvent   = Definition{"create_calendar_event", "Schedule an event: summary, start_iso (RFC3339), end_iso (RFC3339), [description], [calendar_id]"}
	DefListEvents    = Definition{"list_upcoming_events", "List upcoming events on the specified or primary calendar."}
)

// Ingester ingests a file into the RAG store.
type Ingester interface {
	Ingest(ctx context.Context, path string) (*models.IngestResult, error)
}

// Retriever answers RAG queries.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) (string, error)
	KeywordSearch(ctx context.Context, req *models.RetrieveRequest, opts *keyword.SearchOptions) (*models.RetrieveResponse, error)
}

// Pusher sends push notifications.
type Pusher interface {
	Push(ctx context.Context, message string) error
}

// WebSearcher runs web searches.
type WebSearcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// Encyclopedia looks up article summaries.
type Encyclopedia interface {
	Lookup(ctx context.Context, query string) (string, error)
}

// Calendar creates and lists events.
type Calendar interface {
	CreateEvent(ctx context.Context, in calendar.EventInput) (string, error)
	ListUpcoming(ctx context.Context, calendarID string, maxResults int) (string, error)
}

// Toolset binds tool inputs to the services behind them. The RAG pair is
// required; every other service is optional and its tools are only offered
// when it is set.
type Toolset struct {
	Ingester  Ingester
	Retriever Retriever
	Files     *files.Toolkit
	Pusher    Pusher
	Search    WebSearcher
	Wikipedia Encyclopedia
	Calendar  Calendar
}

// ErrMissingRAG is returned when the toolset has no ingester or retriever.
var ErrMissingRAG = errors.New("tools: ingester and retriever are required")

// Validate checks that the required services are set.
func (ts *Toolset) Validate() error {
	if ts.Ingester == nil || ts.Retriever == nil {
		return ErrMissingRAG
	}
	return nil
}

// Inputs. The jsonschema tags describe each field to MCP clients.
type (
	IngestInput struct {
		Path string `json:"path" jsonschema:"path to the PDF file"`
	}
	RetrieveInput struct {
		Query string `json:"query" jsonschema:"the question or topic to find context for"`
		K     int    `json:"k,omitempty" jsonschema:"number of chunks to return (default 4)"`
	}
	KeywordSearchInput struct {
		Query string `json:"query" jsonschema:"keywords to search for"`
		K     int    `json:"k,omitempty" jsonschema:"number of chunks to return (default 4)"`
		Fuzzy bool   `json:"fuzzy,omitempty" jsonschema:"tolerate small typos in the query terms"`
	}
	PushInput struct {
		Text string `json:"text" jsonschema:"the notification message"`
	}
	QueryInput struct {
		Query string `json:"query" jsonschema:"the search query"`
	}
	FilePathInput struct {
		FilePath string `json:"file_path" jsonschema:"path relative to the file tool root"`
	}
	WriteFileInput struct {
		FilePath string `json:"file_path" jsonschema:"path relative to the file tool root"`
		Text     string `json:"text" jsonschema:"text to write"`
		Append   bool   `json:"append,omitempty" jsonschema:"append instead of overwriting"`
	}
	DirInput struct {
		DirPath string `json:"dir_path,omitempty" jsonschema:"directory relative to the file tool root (default: the root)"`
	}
	CopyMoveInput struct {
		SourcePath      string `json:"source_path" jsonschema:"source path relative to the file tool root"`
		DestinationPath string `json:"destination_path" jsonschema:"destination path relative to the file tool root"`
	}
	FileSearchInput struct {
		DirPath string `json:"dir_path,omitempty" jsonschema:"directory to search (default: the root)"`
		Pattern string `json:"pattern" jsonschema:"glob pattern matched against file names, e.g. *.md"`
	}
	CreateEventInput struct {
		Summary     string `json:"summary" jsonschema:"event title"`
		StartISO    string `json:"start_iso" jsonschema:"start time, RFC 3339"`
		EndISO      string `json:"end_iso" jsonschema:"end time, RFC 3339"`
		Description string `json:"description,omitempty" jsonschema:"event description"`
		CalendarID  string `json:"calendar_id,omitempty" jsonschema:"calendar ID (default: the configured calendar)"`
	}
	ListEventsInput struct {
		CalendarID string `json:"calendar_id,omitempty" jsonschema:"calendar ID (default: the configured calendar)"`
		MaxResults int    `json:"max_results,omitempty" jsonschema:"maximum number of events (default 5)"`
	}
)

// IngestPDF ingests the file at in.Path and returns the confirmation message.
func (ts *Toolset) IngestPDF(ctx context.Context, in IngestInput) (string, error) {
	if strings.TrimSpace(in.Path) == "" {
		return "", errors.New("path cannot be empty")
	}
	res, err := ts.Ingester.Ingest(ctx, in.Path)
	if err != nil {
		return "", err
	}
	return res.Message, nil
}

// Retrieve returns the context for in.Query.
func (ts *Toolset) Retrieve(ctx context.Context, in RetrieveInput) (string, error) {
	return ts.Retriever.Retrieve(ctx, in.Query, in.K)
}

// KeywordSearch returns chunks matching in.Query by keyword.
func (ts *Toolset) KeywordSearch(ctx context.Context, in KeywordSearchInput) (string, error) {
	var opts *keyword.SearchOptions
	if in.Fuzzy {
		opts = &keyword.SearchOptions{FuzzyEnabled: true}
	}
	resp, err := ts.Retriever.KeywordSearch(ctx, &models.RetrieveRequest{Query: in.Query, K: in.K}, opts)
	if err != nil {
		return "", err
	}
	return resp.Context, nil
}

// Push sends a notification and returns "success".
func (ts *Toolset) Push(ctx context.Context, in PushInput) (string, error) {
	if err := ts.Pusher.Push(ctx, in.Text); err != nil {
		return "", err
	}
	return "success", nil
}

// WebSearch runs a web search.
func (ts *Toolset) WebSearch(ctx context.Context, in QueryInput) (string, error) {
	return ts.Search.Search(ctx, in.Query)
}

// Wiki looks up Wikipedia summaries.
func (ts *Toolset) Wiki(ctx context.Context, in QueryInput) (string, error) {
	return ts.Wikipedia.Lookup(ctx, in.Query)
}

// ReadFile returns a file's contents.
func (ts *Toolset) ReadFile(_ context.Context, in FilePathInput) (string, error) {
	return ts.Files.ReadFile(in.FilePath)
}

// WriteFile writes or appends to a file.
func (ts *Toolset) WriteFile(_ context.Context, in WriteFileInput) (string, error) {
	return ts.Files.WriteFile(in.FilePath, in.Text, in.Append)
}

// ListDirectory lists a directory.
func (ts *Toolset) ListDirectory(_ context.Context, in DirInput) (string, error) {
	return ts.Files.ListDirectory(in.DirPath)
}

// CopyFile copies a file.
func (ts *Toolset) CopyFile(_ context.Context, in CopyMoveInput) (string, error) {
	return ts.Files.CopyFile(in.SourcePath, in.DestinationPath)
}

// MoveFile moves a file.
func (ts *Toolset) MoveFile(_ context.Context, in CopyMoveInput) (string, error) {
	return ts.Files.MoveFile(in.SourcePath, in.DestinationPath)
}

// DeleteFile deletes a file.
func (ts *Toolset) DeleteFile(_ context.Context, in FilePathInput) (string, error) {
	return ts.Files.DeleteFile(in.FilePath)
}

// FileSearch finds files by glob.
func (ts *Toolset) FileSearch(_ context.Context, in FileSearchInput) (string, error) {
	return ts.Files.SearchFiles(in.DirPath, in.Pattern)
}

// CreateEvent schedules a calendar event.
func (ts *Toolset) CreateEvent(ctx context.Context, in CreateEventInput) (string, error) {
	return ts.Calendar.CreateEvent(ctx, calendar.EventInput{
		Summary:     in.Summary,
		Start:       in.StartISO,
		End:         in.EndISO,
		Description: in.Description,
		CalendarID:  in.CalendarID,
	})
}

// ListEvents lists upcoming calendar events.
func (ts *Toolset) ListEvents(ctx context.Context, in ListEventsInput) (string, error) {
	return ts.Calendar.ListUpcoming(ctx, in.CalendarID, in.MaxResults)
}

// Register adds every enabled tool to r.
func (ts *Toolset) Register(r *Registry) error {
	if err := ts.Validate(); err != nil {
		return err
	}
	errs := []error{
		add(r, DefIngestPDF, ts.IngestPDF),
		add(r, DefRetrieve, ts.Retrieve),
		add(r, DefKeywordSearch, ts.KeywordSearch),
	}
	if ts.Files != nil {
		errs = append(errs,
			add(r, DefReadFile, ts.ReadFile),
			add(r, DefWriteFile, ts.WriteFile),
			add(r, DefListDirectory, ts.ListDirectory),
			add(r, DefCopyFile, ts.CopyFile),
			add(r, DefMoveFile, ts.MoveFile),
			add(r, DefDeleteFile, ts.DeleteFile),
			add(r, DefFileSearch, ts.FileSearch),
		)
	}
	if ts.Pusher != nil {
		errs = append(errs, add(r, DefPush, ts.Push))
	}
	if ts.Search != nil {
		errs = append(errs, add(r, DefSearch, ts.WebSearch))
	}
	if ts.Wikipedia != nil {
		errs = append(errs, add(r, DefWikipedia, ts.Wiki))
	}
	if ts.Calendar != nil {
		errs = append(errs,
			add(r, DefCreateEvent, ts.CreateEvent),
			add(r, DefListEvents, ts.ListEvents),
		)
	}
	return errors.Join(errs...)
}
