// Package api exposes the portal over HTTP.
package api

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/serroba/opsportal/internal/access"
	"github.com/serroba/opsportal/internal/acl"
	"github.com/serroba/opsportal/internal/activity"
	"github.com/serroba/opsportal/internal/drive"
	"github.com/serroba/opsportal/internal/events"
	"github.com/serroba/opsportal/internal/ws"
)

// DefaultMaxUpload bounds the size of a multipart upload.
const DefaultMaxUpload int64 = 100 << 20

// Server handles HTTP requests for the portal API.
type Server struct {
	checker   *access.Checker
	admin     *acl.Admin
	activity  activity.Store
	drive     *drive.Manager
	hub       *ws.Hub
	relay     events.Notifier
	upgrader  websocket.Upgrader
	maxUpload int64
}

// ServerConfig holds configuration for creating a server.
type ServerConfig struct {
	Checker  *access.Checker
	Admin    *acl.Admin
	Activity activity.Store
	Drive    *drive.Manager
	Hub      *ws.Hub
	// MaxUpload defaults to DefaultMaxUpload.
	MaxUpload int64
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig) *Server {
	maxUpload := cfg.MaxUpload
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}

	return &Server{
		checker:   cfg.Checker,
		admin:     cfg.Admin,
		activity:  cfg.Activity,
		drive:     cfg.Drive,
		hub:       cfg.Hub,
		relay:     events.NewHubNotifier(cfg.Hub),
		maxUpload: maxUpload,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
	}
}

// Handler returns an http.Handler with all routes configured.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /api/access", s.authMiddleware(http.HandlerFunc(s.handleCheckAccess)))

	// Drive
	mux.Handle("GET /api/drive/contents", s.guard(routeDrive, s.handleFolderContents))
	mux.Handle("GET /api/drive/path", s.guard(routeDrive, s.handleFolderPath))
	mux.Handle("POST /api/drive/folders", s.guard(routeDrive, s.handleCreateFolder))
	mux.Handle("PATCH /api/drive/folders/{id}", s.guard(routeDrive, s.handleRenameFolder))
	mux.Handle("POST /api/drive/folders/{id}/move", s.guard(routeDrive, s.handleMoveFolder))
	mux.Handle("DELETE /api/drive/folders/{id}", s.guard(routeDrive, s.handleDeleteFolder))
	mux.Handle("POST /api/drive/files", s.guard(routeDrive, s.handleUploadFile))
	mux.Handle("GET /api/drive/files/{id}", s.guard(routeDrive, s.handleFileDetails))
	mux.Handle("GET /api/drive/files/{id}/content", s.guard(routeDrive, s.handleFileContent))
	mux.Handle("GET /api/drive/file/{blob}", s.guard(routeDrive, s.handleBlob))
	mux.Handle("PATCH /api/drive/files/{id}", s.guard(routeDrive, s.handleRenameFile))
	mux.Handle("POST /api/drive/files/{id}/move", s.guard(routeDrive, s.handleMoveFile))
	mux.Handle("DELETE /api/drive/files/{id}", s.guard(routeDrive, s.handleDeleteFile))
	mux.Handle("POST /api/drive/files/{id}/permissions", s.guard(routeDrive, s.handleShareFile))
	mux.Handle("DELETE /api/drive/files/{id}/permissions/{userId}", s.guard(routeDrive, s.handleUnshareFile))
	mux.Handle("GET /api/drive/users", s.guard(routeDrive, s.handleUsersForSharing))

	// Live refresh
	mux.Handle("GET /api/drive-events", s.authMiddleware(http.HandlerFunc(s.handleDriveEvents)))
	mux.HandleFunc("POST /api/drive-events", s.handleRebroadcast)

	// Route permission admin
	mux.Handle("GET /api/permissions", s.guard(routePermissions, s.handleListPermissions))
	mux.Handle("POST /api/permissions", s.guard(routePermissions, s.handleCreatePermission))
	mux.Handle("GET /api/permissions/{id}", s.guard(routePermissions, s.handleGetPermission))
	mux.Handle("PATCH /api/permissions/{id}", s.guard(routePermissions, s.handleUpdatePermission))
	mux.Handle("DELETE /api/permissions/{id}", s.guard(routePermissions, s.handleDeletePermission))

	// Activity log
	mux.Handle("GET /api/logs/actions", s.guard(routeLogs, s.handleListActions))
	mux.Handle("GET /api/logs/visits", s.guard(routeLogs, s.handleListVisits))

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCheckAccess handles GET /api/access?route={route}.
func (s *Server) handleCheckAccess(w http.ResponseWriter, r *http.Request) {
	route := r.URL.Query().Get("route")
	if route == "" {
		writeMessage(w, http.StatusBadRequest, "route query parameter is required")

		return
	}

	writeJSON(w, http.StatusOK, s.checker.CheckAccess(r.Context(), UserIDFromContext(r.Context()), route))
}
