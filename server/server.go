package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"content_machine/generator"
	"content_machine/publisher"
	"content_machine/runner"
)

//go:embed web
var embeddedStatic embed.FS

const sessionCookie = "cm_session"

// DefaultRunTimeout bounds one generation started from the browser.
const DefaultRunTimeout = 15 * time.Minute

type Server struct {
	runner     *runner.Runner
	pub        *publisher.Publisher
	form       runner.FormChoices
	warnings   []string
	configErr  error
	runTimeout time.Duration
	store      *sessionStore
	staticFS   http.Handler
	logger     *slog.Logger
}

// Options wires a Server. Runner may be nil only when ConfigErr is set; the
// UI then still serves history but refuses to start runs.
type Options struct {
	Runner     *runner.Runner
	Publisher  *publisher.Publisher
	Form       runner.FormChoices
	Warnings   []string
	ConfigErr  error
	RunTimeout time.Duration
	Logger     *slog.Logger
}

type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*generator.Session
}

func newStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*generator.Session)}
}

func (s *sessionStore) getOrCreate(id string, run generator.RunFunc) *generator.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess
	}
	sess := generator.NewSession(id, run)
	s.sessions[id] = sess
	return sess
}

func (s *sessionStore) get(id string) (*generator.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func New(opts Options) (*Server, error) {
	if opts.Runner == nil && opts.ConfigErr == nil {
		return nil, errors.New("server: runner required")
	}
	pub := opts.Publisher
	if pub == nil && opts.Runner != nil {
		pub = opts.Runner.Publisher()
	}
	if pub == nil {
		return nil, errors.New("server: publisher required")
	}

	sub, err := fs.Sub(embeddedStatic, "web")
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.RunTimeout
	if timeout <= 0 {
		timeout = DefaultRunTimeout
	}
	form := opts.Form
	if len(form.Tones) == 0 {
		form = runner.DefaultForm(generator.RunRequest{UseSearch: true})
	}

	return &Server{
		runner:     opts.Runner,
		pub:        pub,
		form:       form,
		warnings:   opts.Warnings,
		configErr:  opts.ConfigErr,
		runTimeout: timeout,
		store:      newStore(),
		staticFS:   http.FileServer(http.FS(sub)),
		logger:     logger.With("component", "server"),
	}, nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/runs", s.handleRunCreate)
	mux.HandleFunc("GET /api/runs", s.handleRunLast)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/options", s.handleOptions)
	mux.HandleFunc("GET /api/articles/{name}", s.handleArticle)
	mux.HandleFunc("GET /api/articles/{name}/download", s.handleDownload)
	mux.Handle("/", s.staticHandler())
	return logMiddleware(s.logger, mux)
}

func (s *Server) staticHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
			return
		}
		s.staticFS.ServeHTTP(w, r)
	})
}

// --- Handlers ---

type runResp struct {
	SessionID string             `json:"session_id"`
	Busy      bool               `json:"busy"`
	Outcome   *generator.Outcome `json:"outcome,omitempty"`
	File      string             `json:"file,omitempty"`
	Markdown  string             `json:"markdown,omitempty"`
	HTML      string             `json:"html,omitempty"`
	History   []generator.Turn   `json:"history,omitempty"`
}

type optionsResp struct {
	Form      runner.FormChoices `json:"form"`
	Warnings  []string           `json:"warnings"`
	ConfigErr string             `json:"config_error,omitempty"`
	OutputDir string             `json:"output_dir"`
}

type articleResp struct {
	Name     string `json:"name"`
	Markdown string `json:"markdown"`
	HTML     string `json:"html"`
}

func (s *Server) handleRunCreate(w http.ResponseWriter, r *http.Request) {
	if s.configErr != nil {
		writeError(w, http.StatusServiceUnavailable, s.configErr)
		return
	}
	var req generator.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.form.Check(req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	id := s.sessionID(w, r)
	sess := s.store.getOrCreate(id, s.runner.RunFunc(nil))
	ctx, cancel := context.WithTimeout(r.Context(), s.runTimeout)
	defer cancel()
	out, err := sess.Generate(ctx, req)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	resp := runResp{SessionID: id, Outcome: &out, File: filepath.Base(out.MarkdownPath), Markdown: out.Result.FinalText}
	if html, err := publisher.RenderHTML(out.Result.FinalText); err == nil {
		resp.HTML = html
	} else {
		s.logger.Warn("render failed", "file", resp.File, "error", err)
	}
	writeJSON(w, resp)
}

func (s *Server) handleRunLast(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	sess, ok := s.store.get(c.Value)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	resp := runResp{SessionID: sess.ID, Busy: sess.Busy(), History: sess.History()}
	if out, ok := sess.Last(); ok {
		resp.Outcome = &out
		resp.File = filepath.Base(out.MarkdownPath)
		resp.Markdown = out.Result.FinalText
		resp.HTML, _ = publisher.RenderHTML(out.Result.FinalText)
	}
	writeJSON(w, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.pub.History()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	type entry struct {
		publisher.HistoryEntry
		MetadataError string `json:"metadata_error,omitempty"`
	}
	out := make([]entry, 0, len(entries))
	for _, e := range entries {
		item := entry{HistoryEntry: e}
		if e.MetadataErr != nil {
			item.MetadataError = e.MetadataErr.Error()
		}
		out = append(out, item)
	}
	writeJSON(w, out)
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	resp := optionsResp{Form: s.form, Warnings: s.warnings, OutputDir: s.pub.Dir()}
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}
	if s.configErr != nil {
		resp.ConfigErr = s.configErr.Error()
	}
	writeJSON(w, resp)
}

func (s *Server) handleArticle(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	md, err := s.pub.ReadArticle(name)
	if err != nil {
		writeError(w, articleStatus(err), err)
		return
	}
	html, err := publisher.RenderHTML(md)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, articleResp{Name: strings.TrimSuffix(name, ".md"), Markdown: md, HTML: html})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	md, err := s.pub.ReadArticle(name)
	if err != nil {
		writeError(w, articleStatus(err), err)
		return
	}
	file := strings.TrimSuffix(name, ".md") + ".md"
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file))
	_, _ = w.Write([]byte(md))
}

// --- Helpers ---

// sessionID returns the caller's session, issuing a new cookie when absent.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: id, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
	return id
}

func statusFor(err error) int {
	var verr *generator.ValidationError
	var serr *generator.StageError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, generator.ErrSessionBusy):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &serr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func articleStatus(err error) int {
	switch {
	case errors.Is(err, publisher.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		path := r.URL.Path
		if path == "" {
			path = "/"
		}
		logger.Info("http request", "method", r.Method, "path", path, "status", rec.status, "duration", time.Since(start))
	})
}
