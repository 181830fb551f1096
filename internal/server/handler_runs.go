package server

import (
	"net/http"
	"strconv"

	"github.com/me/actorrun/pkg/model"
)

// handleListRuns returns the run history of the token's account, newest first.
// GET /api/v1/runs?limit=&offset=&actor=
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	token := TokenFromContext(r.Context())

	user, err := s.cache.User(r.Context(), token, s.platforms(token))
	if err != nil {
		respondPlatformError(w, reqID, err)
		return
	}

	opts := parseListOptions(r)
	recs, total, err := s.store.ListRunRecords(r.Context(), user.ID, opts)
	if err != nil {
		s.logger.Error("list runs", "error", err)
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}
	if recs == nil {
		recs = []*model.RunRecord{}
	}
	respondList(w, reqID, recs, &model.Pagination{
		Total:   total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
		HasMore: opts.Offset+len(recs) < total,
	})
}

func parseListOptions(r *http.Request) model.ListOptions {
	opts := model.DefaultListOptions()
	q := r.URL.Query()
	if n, err := strconv.Atoi(q.Get("limit")); err == nil {
		opts.Limit = n
	}
	if n, err := strconv.Atoi(q.Get("offset")); err == nil {
		opts.Offset = n
	}
	opts.ActorID = q.Get("actor")
	opts.Clamp()
	return opts
}
