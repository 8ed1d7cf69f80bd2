// Package webhook serves the HTTP surface of the service: the Jira
// automation endpoint that turns a ticket into a published press release,
// plus health and run-history endpoints.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ezwire/presskit/config"
	"github.com/ezwire/presskit/dropbox"
	"github.com/ezwire/presskit/ftpup"
	"github.com/ezwire/presskit/joblog"
	"github.com/ezwire/presskit/notify"
	"github.com/ezwire/presskit/release"
	"github.com/ezwire/presskit/render"
	"github.com/ezwire/presskit/shield"
	"github.com/ezwire/presskit/ticket"
)

// Downloader fetches press-release folders from the shared file store.
type Downloader interface {
	DownloadFolder(ctx context.Context, dropboxPath, localDir string) (string, error)
	FindFolderByName(ctx context.Context, folderName, searchPath string) (string, error)
}

// Uploader publishes processed files to the web server.
type Uploader interface {
	Upload(ctx context.Context, files []release.Upload, folderName, monthFolder string) ftpup.Result
}

// Notifier reports run outcomes to the review channel.
type Notifier interface {
	ReleaseReady(ctx context.Context, ticketKey, folderName string, previews map[string]string) error
	Failure(ctx context.Context, ticketKey, errorMessage string) error
}

// Recorder persists and lists run history.
type Recorder interface {
	RecordAsync(r *joblog.Run)
	List(ctx context.Context, limit int) ([]*joblog.Run, error)
}

// Server handles the automation webhook end to end: fetch from Dropbox,
// process, upload over FTP, notify Slack, record the run.
type Server struct {
	cfg       *config.Config
	processor *release.Processor
	templates release.Templates
	dropbox   Downloader
	ftp       Uploader
	notifier  Notifier
	runs      Recorder
	logger    *slog.Logger
}

// Option overrides a Server dependency, mainly for tests.
type Option func(*Server)

// WithDownloader replaces the Dropbox client.
func WithDownloader(d Downloader) Option { return func(s *Server) { s.dropbox = d } }

// WithUploader replaces the FTP uploader.
func WithUploader(u Uploader) Option { return func(s *Server) { s.ftp = u } }

// WithNotifier replaces the Slack notifier.
func WithNotifier(n Notifier) Option { return func(s *Server) { s.notifier = n } }

// New builds a Server from the configuration. Dropbox and FTP stay nil
// when unconfigured; the handlers degrade accordingly. runs may be nil to
// disable run history.
func New(cfg *config.Config, runs Recorder, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:       cfg,
		processor: release.NewProcessor(cfg, logger),
		templates: release.LoadTemplates(cfg.TemplateDir),
		runs:      runs,
		logger:    logger,
	}
	if cfg.TemplateDir != "" {
		logger.Info("using template dir", "dir", cfg.TemplateDir)
	}
	if cfg.Dropbox.AccessToken != "" {
		client, err := dropbox.New(cfg.Dropbox.AccessToken, logger)
		if err != nil {
			logger.Error("dropbox client", "error", err)
		} else {
			s.dropbox = client
		}
	}
	if cfg.FTP.Host != "" {
		s.ftp = ftpup.New(cfg.FTP, logger)
	}
	s.notifier = notify.New(cfg.Slack.WebhookURL, logger)
	for _, o := range opts {
		o(s)
	}
	return s
}

// Routes builds the HTTP handler: middleware stack plus the three routes.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	for _, mw := range shield.DefaultStack(s.logger) {
		r.Use(mw)
	}
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "presskit"})
	})
	r.Get("/runs", s.handleRuns)
	r.Post("/webhook/jira", s.handleJira)
	return r
}

func (s *Server) handleJira(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := shield.GetLogger(ctx)
	start := time.Now()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Invalid body: %v", err)})
		return
	}
	if s.cfg.WebhookSecret != "" && !validSignature(s.cfg.WebhookSecret, r.Header.Get("X-Signature-256"), body) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "Invalid signature"})
		return
	}

	var payload ticket.Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Invalid JSON: %v", err)})
		return
	}
	info := ticket.FromPayload(&payload)
	logger.Info("ticket received", "ticket", info.Key, "folder", info.FolderPath)

	if missing := info.Missing(); len(missing) > 0 {
		msg := "Missing required fields: " + strings.Join(missing, ", ")
		s.fail(ctx, logger, info, nil, msg, start)
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": msg, "ticket": info.Key})
		return
	}

	tmpDir, err := os.MkdirTemp("", "mouser_pr_")
	if err != nil {
		msg := err.Error()
		s.fail(ctx, logger, info, nil, msg, start)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Unexpected error", "details": msg, "ticket": info.Key})
		return
	}
	defer os.RemoveAll(tmpDir)

	localFolder, err := s.fetchFolder(ctx, logger, info.FolderPath, tmpDir)
	if err != nil {
		msg := err.Error()
		s.fail(ctx, logger, info, nil, msg, start)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Unexpected error", "details": msg, "ticket": info.Key})
		return
	}

	result := s.processor.Process(localFolder, s.templates, render.Options{
		ImageURL: info.ImageURL,
		Subject:  info.Subject,
	})
	if !result.Success {
		s.fail(ctx, logger, info, result, strings.Join(result.Errors, "; "), start)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Processing failed", "details": result.Errors, "ticket": info.Key})
		return
	}

	upload := s.upload(ctx, logger, result)
	if !upload.Success {
		s.fail(ctx, logger, info, result, "FTP upload failed: "+upload.Error, start)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Upload failed", "details": upload.Error, "ticket": info.Key})
		return
	}

	if s.notifier != nil {
		if err := s.notifier.ReleaseReady(ctx, info.Key, result.FolderName, result.PreviewURLs); err != nil {
			logger.Warn("ready notification", "error", err)
		}
	}
	s.record(info, result, upload.Uploaded, nil, true, start)
	logger.Info("release processed", "ticket", info.Key, "folder", result.FolderName, "uploaded", upload.Uploaded)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"ticket":         info.Key,
		"folder":         result.FolderName,
		"preview_urls":   result.PreviewURLs,
		"files_uploaded": upload.Uploaded,
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "Run history not configured"})
		return
	}
	runs, err := s.runs.List(r.Context(), queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []*joblog.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

// fetchFolder downloads the ticket's folder into tmpDir. A failed direct
// download falls back to searching the month folders by base name. The
// local directory keeps the Dropbox folder's base name, which downstream
// becomes the published folder name.
func (s *Server) fetchFolder(ctx context.Context, logger *slog.Logger, folderPath, tmpDir string) (string, error) {
	if s.dropbox == nil {
		return "", errors.New("Dropbox access token not configured")
	}
	if !strings.HasPrefix(folderPath, "/") {
		folderPath = "/" + folderPath
	}
	local, err := s.dropbox.DownloadFolder(ctx, folderPath, filepath.Join(tmpDir, path.Base(folderPath)))
	if err == nil {
		return local, nil
	}
	logger.Warn("direct download failed, searching by name", "path", folderPath, "error", err)
	found, ferr := s.dropbox.FindFolderByName(ctx, path.Base(folderPath), s.cfg.Dropbox.RootPath)
	if ferr != nil {
		return "", ferr
	}
	if found == "" {
		return "", fmt.Errorf("Could not find folder: %s", folderPath)
	}
	return s.dropbox.DownloadFolder(ctx, found, filepath.Join(tmpDir, path.Base(found)))
}

func (s *Server) upload(ctx context.Context, logger *slog.Logger, res *release.Result) ftpup.Result {
	if s.ftp == nil {
		logger.Warn("FTP not configured, skipping upload")
		return ftpup.Result{Success: true}
	}
	return s.ftp.Upload(ctx, res.Uploads, res.FolderName, res.MonthFolder)
}

func (s *Server) fail(ctx context.Context, logger *slog.Logger, info *ticket.Info, res *release.Result, msg string, start time.Time) {
	logger.Error("processing failed", "ticket", info.Key, "error", msg)
	if s.notifier != nil {
		if err := s.notifier.Failure(ctx, info.Key, msg); err != nil {
			logger.Warn("failure notification", "error", err)
		}
	}
	errs := []string{msg}
	if res != nil && len(res.Errors) > 0 {
		errs = res.Errors
	}
	s.record(info, res, 0, errs, false, start)
}

func (s *Server) record(info *ticket.Info, res *release.Result, uploaded int, errs []string, ok bool, start time.Time) {
	if s.runs == nil {
		return
	}
	run := &joblog.Run{
		TicketKey:     info.Key,
		Success:       ok,
		Errors:        errs,
		FilesUploaded: uploaded,
		DurationMs:    time.Since(start).Milliseconds(),
	}
	if res != nil {
		run.FolderName = res.FolderName
		run.MonthFolder = res.MonthFolder
	} else if info.FolderPath != "" {
		run.FolderName = path.Base(info.FolderPath)
	}
	s.runs.RecordAsync(run)
}

// validSignature checks a GitHub-style X-Signature-256 header: the
// hex-encoded HMAC-SHA256 of the body, optionally prefixed "sha256=".
// Comparison is constant-time.
func validSignature(secret, signature string, body []byte) bool {
	if signature == "" {
		return false
	}
	signature = strings.TrimPrefix(signature, "sha256=")
	decoded, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), decoded)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
