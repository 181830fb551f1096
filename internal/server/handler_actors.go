package server

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/me/actorrun/internal/apify"
	"github.com/me/actorrun/internal/form"
	"github.com/me/actorrun/internal/results"
	"github.com/me/actorrun/internal/workbench"
	"github.com/me/actorrun/pkg/model"
)

type verifyKeyRequest struct {
	APIKey string `json:"apiKey"`
}

type verifyKeyResponse struct {
	Valid bool        `json:"valid"`
	User  *apify.User `json:"user"`
}

// handleVerifyKey checks an API key against the platform.
// POST /api/v1/verify-key
func (s *Server) handleVerifyKey(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req verifyKeyRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid JSON body: "+err.Error()))
		return
	}
	key := strings.TrimSpace(req.APIKey)
	if key == "" {
		key = extractToken(r)
	}
	if key == "" {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("apiKey is required",
			model.FieldError{Field: "apiKey", Message: "required"}))
		return
	}

	user, err := s.cache.User(r.Context(), key, s.platforms(key))
	if err != nil {
		s.logger.Info("api key rejected", "error", err)
		respondPlatformError(w, reqID, err)
		return
	}
	respondOK(w, reqID, verifyKeyResponse{Valid: true, User: user})
}

type actorInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Title    string `json:"title,omitempty"`
	FullName string `json:"fullName"`
}

// handleListActors returns the actors of the token's account.
// GET /api/v1/actors
func (s *Server) handleListActors(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	token := TokenFromContext(r.Context())

	actors, err := s.cache.Actors(r.Context(), token, s.platforms(token))
	if err != nil {
		respondPlatformError(w, reqID, err)
		return
	}

	out := make([]actorInfo, len(actors))
	for i, a := range actors {
		out[i] = actorInfo{ID: a.ID, Name: a.Name, Username: a.Username, Title: a.Title, FullName: a.FullName()}
	}
	respondList(w, reqID, out, &model.Pagination{
		Total: len(out), Limit: len(out), Offset: 0, HasMore: false,
	})
}

type schemaResponse struct {
	ActorID       string                 `json:"actorId"`
	Fields        []form.FieldDescriptor `json:"fields"`
	InitialValues form.RawFormState      `json:"initialValues"`
	Widgets       []form.Widget          `json:"widgets"`
	InputSchema   json.RawMessage        `json:"inputSchema,omitempty"`
	Notice        string                 `json:"notice,omitempty"`
}

// handleGetSchema returns the form derived from an actor's input schema.
// GET /api/v1/actors/{actorId}/schema
func (s *Server) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	actorID := chi.URLParam(r, "actorId")
	token := TokenFromContext(r.Context())

	wb, _, err := s.loadForm(r.Context(), s.platforms(token), "", actorID, nil)
	if err != nil {
		respondPlatformError(w, reqID, err)
		return
	}

	snap := wb.Snapshot()
	resp := schemaResponse{
		ActorID:       actorID,
		Fields:        []form.FieldDescriptor{},
		InitialValues: snap.State,
		Widgets:       snap.Widgets,
		InputSchema:   snap.RawSchema(),
	}
	if snap.Schema != nil {
		resp.Fields = snap.Schema.Fields
	} else {
		resp.Notice = workbench.MsgNoUsableSchema
	}
	respondOK(w, reqID, resp)
}

type valuesRequest struct {
	Values map[string]any `json:"values"`
}

type previewResponse struct {
	Payload    form.Payload          `json:"payload"`
	Issues     []*form.CoercionError `json:"issues"`
	Advisories []form.Advisory       `json:"advisories"`
	Ignored    []string              `json:"ignored,omitempty"`
}

// handlePreview coerces form values into the payload a run would submit.
// POST /api/v1/actors/{actorId}/preview
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	actorID := chi.URLParam(r, "actorId")
	token := TokenFromContext(r.Context())

	var req valuesRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid JSON body: "+err.Error()))
		return
	}

	wb, ignored, err := s.loadForm(r.Context(), s.platforms(token), "", actorID, req.Values)
	if err != nil {
		respondPlatformError(w, reqID, err)
		return
	}
	sub, err := wb.BeginRun()
	if err != nil {
		respondSubmitError(w, reqID, err)
		return
	}

	advisories, err := form.CheckPayload(wb.Snapshot().RawSchema(), sub.Payload)
	if err != nil {
		// The input schema is not something gojsonschema can load; the
		// preview is still useful without advisories.
		s.logger.Debug("payload check skipped", "actor_id", actorID, "error", err)
	}
	respondOK(w, reqID, previewResponse{
		Payload:    sub.Payload,
		Issues:     orEmpty(sub.Issues),
		Advisories: orEmpty(advisories),
		Ignored:    ignored,
	})
}

type runResponse struct {
	RunInfo apify.Run             `json:"runInfo"`
	Results []json.RawMessage     `json:"results"`
	View    *results.View         `json:"view"`
	Issues  []*form.CoercionError `json:"issues"`
	Ignored []string              `json:"ignored,omitempty"`
}

// handleRunActor coerces form values, runs the actor and returns its rows.
// POST /api/v1/actors/{actorId}/run
func (s *Server) handleRunActor(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	actorID := chi.URLParam(r, "actorId")
	token := TokenFromContext(r.Context())
	p := s.platforms(token)

	var req valuesRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid JSON body: "+err.Error()))
		return
	}

	user, err := s.cache.User(r.Context(), token, p)
	if err != nil {
		respondPlatformError(w, reqID, err)
		return
	}
	wb, ignored, err := s.loadForm(r.Context(), p, user.ID, actorID, req.Values)
	if err != nil {
		respondPlatformError(w, reqID, err)
		return
	}
	sub, err := wb.BeginRun()
	if err != nil {
		respondSubmitError(w, reqID, err)
		return
	}

	res, err := s.runs.Execute(r.Context(), wb, p, sub)
	if err != nil {
		s.logger.Warn("run failed", "actor_id", actorID, "error", err)
		respondPlatformError(w, reqID, err)
		return
	}

	items := res.Items
	if items == nil {
		items = []json.RawMessage{}
	}
	respondOK(w, reqID, runResponse{
		RunInfo: res.Run,
		Results: items,
		View:    results.Interpret(res.Items),
		Issues:  orEmpty(sub.Issues),
		Ignored: ignored,
	})
}

// loadForm builds a one-off workbench for actorID with values applied over
// the schema defaults. Keys the schema does not declare are skipped and
// returned sorted.
func (s *Server) loadForm(ctx context.Context, p apify.Platform, owner, actorID string, values map[string]any) (*workbench.Workbench, []string, error) {
	wb := workbench.New(owner, s.logger)
	t := wb.Select(actorID)
	doc, err := p.FetchSchema(ctx, actorID)
	if err != nil {
		return nil, nil, err
	}
	wb.ApplySchema(t, doc)

	var ignored []string
	for _, key := range slices.Sorted(maps.Keys(values)) {
		if err := wb.Edit(key, values[key]); err != nil {
			ignored = append(ignored, key)
		}
	}
	return wb, ignored, nil
}

func respondSubmitError(w http.ResponseWriter, reqID string, err error) {
	if errors.Is(err, workbench.ErrNoSchema) {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError(workbench.MsgNoUsableSchema))
		return
	}
	respondError(w, reqID, http.StatusConflict, &model.APIError{Code: model.ErrConflict, Message: err.Error()})
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
