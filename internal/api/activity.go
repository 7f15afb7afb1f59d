package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/edgard/guildwatch/internal/database"
)

type activityResponse struct {
	Events []database.ActivityEvent `json:"events"`
}

// handleActivity lists a guild's activity events, newest first.
// GET /guilds/{guildID}/activity?author_id=&event=&limit=
func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	guildID, err := strconv.ParseUint(chi.URLParam(r, "guildID"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid guild id")
		return
	}

	q := r.URL.Query()
	var filter database.ActivityFilter

	if raw := q.Get("author_id"); raw != "" {
		authorID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid author_id")
			return
		}
		filter.AuthorID = &authorID
	}
	if raw := q.Get("event"); raw != "" {
		kind, ok := database.ParseEventKind(raw)
		if !ok {
			s.writeError(w, http.StatusBadRequest, "unknown event kind")
			return
		}
		filter.Kind = string(kind)
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	events, err := s.activity.QueryActivity(r.Context(), guildID, filter)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to query activity", "guild_id", guildID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to query activity")
		return
	}
	if events == nil {
		events = []database.ActivityEvent{}
	}
	writeJSON(w, http.StatusOK, activityResponse{Events: events})
}

type ignoreRequest struct {
	MessageIDs []string `json:"message_ids"`
}

// handleIgnoreDeletes suppresses the deleted events of messages about to be
// removed by a moderation tool.
// POST /guilds/{guildID}/ignored-deletions
func (s *Server) handleIgnoreDeletes(w http.ResponseWriter, r *http.Request) {
	if _, err := strconv.ParseUint(chi.URLParam(r, "guildID"), 10, 64); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid guild id")
		return
	}

	var req ignoreRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.MessageIDs) == 0 {
		s.writeError(w, http.StatusBadRequest, "message_ids required")
		return
	}

	ids := make([]uint64, 0, len(req.MessageIDs))
	for _, raw := range req.MessageIDs {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid message id "+strconv.Quote(raw))
			return
		}
		ids = append(ids, id)
	}

	s.activity.IgnoreDeletes(ids...)
	s.logger.InfoContext(r.Context(), "Deletions suppressed", "count", len(ids))
	w.WriteHeader(http.StatusAccepted)
}
