package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/serroba/opsportal/internal/activity"
)

// handleListActions handles GET /api/logs/actions. Supported query
// parameters: userId, actionType, targetType, range (today, week, month),
// page and pageSize.
func (s *Server) handleListActions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := activity.Filter{
		ActionType: q.Get("actionType"),
		TargetType: q.Get("targetType"),
		Since:      activity.SinceFor(q.Get("range"), time.Now()),
	}

	if raw := q.Get("userId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid userId")

			return
		}

		filter.UserID = id
	}

	page, err := s.activity.Actions(r.Context(), filter, activity.Page{
		Number: queryInt(r, "page"),
		Size:   queryInt(r, "pageSize"),
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to list actions")
		writeMessage(w, http.StatusInternalServerError, "failed to fetch activity logs")

		return
	}

	if page.Actions == nil {
		page.Actions = []activity.Action{}
	}

	writeJSON(w, http.StatusOK, page)
}

// handleListVisits handles GET /api/logs/visits?userId={id}&limit={n}. The
// caller's own visits are listed when userId is omitted.
func (s *Server) handleListVisits(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	if raw := r.URL.Query().Get("userId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid userId")

			return
		}

		userID = id
	}

	visits, err := s.activity.Visits(r.Context(), userID, queryInt(r, "limit"))
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("Failed to list visits")
		writeMessage(w, http.StatusInternalServerError, "failed to fetch activity logs")

		return
	}

	if visits == nil {
		visits = []activity.Visit{}
	}

	writeJSON(w, http.StatusOK, visits)
}
