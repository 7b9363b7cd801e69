package api

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
)

const (
	headerUserID = "X-User-Id"
	cookieUserID = "userId"
)

// Guarded page routes.
const (
	routeDrive       = "/drive"
	routePermissions = "/permissions"
	routeLogs        = "/logs"
)

// authMiddleware resolves the caller from the userId cookie or the
// X-User-Id header and adds it to the request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requestUserID(r)
		if !ok {
			writeMessage(w, http.StatusUnauthorized, "not authenticated")

			return
		}

		ctx := withUserID(r.Context(), userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestUserID(r *http.Request) (int64, bool) {
	raw := r.Header.Get(headerUserID)
	if raw == "" {
		if c, err := r.Cookie(cookieUserID); err == nil {
			raw = c.Value
		}
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}

	return id, true
}

// guard lets the request through only when the caller may open route.
// Denials are reported as not found so hidden pages stay hidden.
func (s *Server) guard(route string, next http.HandlerFunc) http.Handler {
	return s.authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := UserIDFromContext(r.Context())

		result := s.checker.CheckAccess(r.Context(), userID, route)
		if !result.Granted {
			log.Debug().
				Int64("user_id", userID).
				Str("route", route).
				Str("reason", result.Error).
				Msg("Route guard denied request")

			writeMessage(w, http.StatusNotFound, "page not found")

			return
		}

		next(w, r)
	}))
}
