package ui

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/me/actorrun/internal/apify"
	"github.com/me/actorrun/internal/results"
	"github.com/me/actorrun/internal/store"
	"github.com/me/actorrun/internal/workbench"
	"github.com/me/actorrun/pkg/model"
)

// UI handles the web user interface.
type UI struct {
	store     store.Store
	sessions  *SessionManager
	platforms apify.Factory
	cache     *apify.Cache
	benches   *workbench.Manager
	runs      *workbench.Controller
	logger    *slog.Logger
	startTime time.Time
	secure    bool // Use secure cookies (HTTPS)
	sanitize  bool // Sanitize field descriptions
}

// Config holds UI configuration.
type Config struct {
	Secure               bool          // Use secure cookies for HTTPS
	SessionTTL           time.Duration // Login session lifetime
	SanitizeDescriptions bool
}

// New creates a new UI handler.
func New(st store.Store, platforms apify.Factory, cache *apify.Cache, logger *slog.Logger, cfg Config) *UI {
	sessions := NewSessionManager(st, cfg.SessionTTL)
	return &UI{
		store:     st,
		sessions:  sessions,
		platforms: platforms,
		cache:     cache,
		benches:   workbench.NewManager(sessions.ttl, logger),
		runs:      workbench.NewController(st, logger),
		logger:    logger.With("component", "ui"),
		startTime: time.Now(),
		secure:    cfg.Secure,
		sanitize:  cfg.SanitizeDescriptions,
	}
}

// Sweep removes expired sessions and idle workbenches.
func (ui *UI) Sweep(ctx context.Context) {
	n, err := ui.sessions.CleanupExpiredSessions(ctx)
	if err != nil {
		ui.logger.Warn("session cleanup failed", "error", err)
	}
	idle := ui.benches.Cleanup()
	if n > 0 || idle > 0 {
		ui.logger.Info("sweep", "expired_sessions", n, "idle_workbenches", idle)
	}
}

// HandleLogin renders the login page.
func (ui *UI) HandleLogin(w http.ResponseWriter, r *http.Request) {
	// If already logged in, redirect to the runner.
	if sess, _ := ui.sessions.GetSessionFromRequest(r); sess != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	data := map[string]any{
		"Title": "Login - ActorRun",
		"Error": r.URL.Query().Get("error"),
	}
	ui.render(w, "login", data)
}

// HandleLoginPost verifies the submitted API key and starts a session.
func (ui *UI) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		loginError(w, r, "Invalid request")
		return
	}

	apiKey := strings.TrimSpace(r.FormValue("api_key"))
	if apiKey == "" {
		loginError(w, r, "API key required")
		return
	}

	user, err := ui.cache.User(r.Context(), apiKey, ui.platforms(apiKey))
	if err != nil {
		ui.logger.Warn("login failed", "error", err)
		msg, _ := workbench.Describe(err, "Could not reach Apify. Please try again.")
		loginError(w, r, msg)
		return
	}

	sess, err := ui.sessions.CreateSession(r.Context(), user.ID, user.Username, apiKey)
	if err != nil {
		ui.logger.Error("create session failed", "error", err)
		loginError(w, r, "Session creation failed")
		return
	}
	SetSessionCookie(w, sess, ui.secure)

	ui.logger.Info("user logged in", "username", user.Username, "session", sess.ID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func loginError(w http.ResponseWriter, r *http.Request, msg string) {
	http.Redirect(w, r, "/login?error="+url.QueryEscape(msg), http.StatusSeeOther)
}

// HandleLogout clears the session and redirects to login.
func (ui *UI) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := SessionFromContext(r.Context()); sess != nil {
		_ = ui.sessions.DeleteSession(r.Context(), sess.ID)
		ui.benches.Remove(sess.ID)
		ui.cache.Forget(sess.Token)
		ui.logger.Info("user logged out", "username", sess.Username, "session", sess.ID)
	}
	ClearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// HandleRunner renders the actor picker, the input form, notices and the
// last result.
func (ui *UI) HandleRunner(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	wb := ui.benches.Get(sess.ID, sess.UserID)

	actors, err := ui.cache.Actors(r.Context(), sess.Token, ui.platforms(sess.Token))
	var actorsError string
	if err != nil {
		ui.logger.Warn("list actors failed", "error", err)
		actorsError, _ = workbench.Describe(err, "Failed to load actors.")
	}

	snap := wb.Snapshot()
	data := map[string]any{
		"Title":       "ActorRun",
		"Session":     sess,
		"Actors":      actors,
		"ActorsError": actorsError,
		"Snap":        snap,
		"Widgets":     ui.widgets(snap.Widgets),
		"JSONFile":    results.JSONFilename,
		"CSVFile":     results.CSVFilename,
	}
	ui.render(w, "runner", data)
}

// HandleSelect makes the posted actor current and loads its schema.
func (ui *UI) HandleSelect(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	wb := ui.benches.Get(sess.ID, sess.UserID)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	actorID := strings.TrimSpace(r.FormValue("actor_id"))
	if actorID == "" {
		wb.Select("")
	} else {
		ui.runs.SelectAndLoad(r.Context(), wb, ui.platforms(sess.Token), actorID)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleRun applies the posted form and runs the current actor.
func (ui *UI) HandleRun(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	wb := ui.benches.Get(sess.ID, sess.UserID)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	wb.ApplyForm(r.PostForm)
	if err := ui.runs.Run(r.Context(), wb, ui.platforms(sess.Token)); err != nil {
		wb.Reject(err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleDismiss removes a notice.
func (ui *UI) HandleDismiss(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err == nil {
		ui.benches.Get(sess.ID, sess.UserID).Dismiss(id)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleDownloadJSON serves the last result rows as they came from the platform.
func (ui *UI) HandleDownloadJSON(w http.ResponseWriter, r *http.Request) {
	view := ui.currentView(r)
	if view == nil {
		http.Error(w, "No results to download", http.StatusNotFound)
		return
	}
	attachment(w, "application/json", results.JSONFilename)
	w.Write(view.DownloadJSON())
}

// HandleDownloadCSV serves the last result table as CSV.
func (ui *UI) HandleDownloadCSV(w http.ResponseWriter, r *http.Request) {
	view := ui.currentView(r)
	if view == nil {
		http.Error(w, "No results to download", http.StatusNotFound)
		return
	}
	var buf bytes.Buffer
	if err := view.WriteCSV(&buf); err != nil {
		if errors.Is(err, results.ErrNotTabular) {
			http.Error(w, "Results are not tabular; download JSON instead", http.StatusConflict)
			return
		}
		ui.logger.Error("csv export failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	attachment(w, "text/csv; charset=utf-8", results.CSVFilename)
	buf.WriteTo(w)
}

func (ui *UI) currentView(r *http.Request) *results.View {
	sess := SessionFromContext(r.Context())
	return ui.benches.Get(sess.ID, sess.UserID).Snapshot().Results
}

func attachment(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
}

// HandleHistory renders the user's run history.
func (ui *UI) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	opts := ui.parseListOptions(r)

	recs, total, err := ui.store.ListRunRecords(r.Context(), sess.UserID, opts)
	if err != nil {
		ui.renderError(w, "Failed to load run history", err)
		return
	}

	data := map[string]any{
		"Title":      "Run history - ActorRun",
		"Session":    sess,
		"Runs":       recs,
		"Actor":      opts.ActorID,
		"Pagination": ui.buildPagination(opts, total),
	}
	ui.render(w, "history", data)
}

func (ui *UI) parseListOptions(r *http.Request) model.ListOptions {
	opts := model.DefaultListOptions()

	if limit := r.URL.Query().Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n > 0 && n <= 100 {
			opts.Limit = n
		}
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		if n, err := strconv.Atoi(offset); err == nil && n >= 0 {
			opts.Offset = n
		}
	}
	opts.ActorID = r.URL.Query().Get("actor")
	return opts
}

func (ui *UI) buildPagination(opts model.ListOptions, total int) map[string]any {
	return map[string]any{
		"Total":      total,
		"Limit":      opts.Limit,
		"Offset":     opts.Offset,
		"HasMore":    opts.Offset+opts.Limit < total,
		"HasPrev":    opts.Offset > 0,
		"NextOffset": opts.Offset + opts.Limit,
		"PrevOffset": max(0, opts.Offset-opts.Limit),
	}
}

func (ui *UI) render(w http.ResponseWriter, template string, data map[string]any) {
	ui.renderStatus(w, http.StatusOK, template, data)
}

func (ui *UI) renderStatus(w http.ResponseWriter, status int, template string, data map[string]any) {
	var buf bytes.Buffer
	if err := renderTemplate(&buf, template, data); err != nil {
		ui.logger.Error("template render failed", "template", template, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (ui *UI) renderError(w http.ResponseWriter, message string, err error) {
	ui.logger.Error(message, "error", err)
	data := map[string]any{
		"Title":   "Error - ActorRun",
		"Message": message,
	}
	ui.renderStatus(w, http.StatusInternalServerError, "error", data)
}
