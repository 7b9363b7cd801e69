package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/serroba/opsportal/internal/access"
	"github.com/serroba/opsportal/internal/acl"
	"github.com/serroba/opsportal/internal/activity"
	"github.com/serroba/opsportal/internal/api"
	"github.com/serroba/opsportal/internal/blob"
	"github.com/serroba/opsportal/internal/drive"
	"github.com/serroba/opsportal/internal/events"
	"github.com/serroba/opsportal/internal/user"
	"github.com/serroba/opsportal/internal/ws"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const (
	alice int64 = 7
	bob   int64 = 8
)

type fixture struct {
	handler  http.Handler
	perms    *acl.MemoryStore
	activity *activity.MemoryStore
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	ctx := context.Background()

	users := user.NewMemoryStore()
	require.NoError(t, users.Create(ctx, &user.User{ID: alice, Username: "alice", Roles: []string{"admin"}}))
	require.NoError(t, users.Create(ctx, &user.User{ID: bob, Username: "bob", Roles: []string{"staff"}}))

	perms := acl.NewMemoryStore()
	log := activity.NewMemoryStore()
	recorder := activity.NewRecorder(activity.RecorderConfig{Store: log})
	hub := ws.NewHub()

	server := api.NewServer(api.ServerConfig{
		Checker: access.NewChecker(access.CheckerConfig{Users: users, Perms: perms, Recorder: recorder}),
		Admin:   acl.NewAdmin(acl.AdminConfig{Store: perms, Recorder: recorder}),
		Drive: drive.NewManager(drive.ManagerConfig{
			Store:    drive.NewMemoryStore(),
			Blobs:    blob.NewStore(afero.NewMemMapFs(), "uploads/drive"),
			Users:    users,
			Recorder: recorder,
			Notifier: events.NewHubNotifier(hub),
		}),
		Activity: log,
		Hub:      hub,
	})

	return fixture{handler: server.Handler(), perms: perms, activity: log}
}

// do sends a request as userID; a zero userID sends no credentials.
func (f fixture) do(t *testing.T, method, path string, userID int64, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader

	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if userID != 0 {
		req.Header.Set("X-User-Id", strconv.FormatInt(userID, 10))
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	return rec
}

func (f fixture) upload(t *testing.T, userID int64, name, content string, folderID *int64) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer

	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)

	_, err = part.Write([]byte(content))
	require.NoError(t, err)

	if folderID != nil {
		require.NoError(t, mw.WriteField("folderId", strconv.FormatInt(*folderID, 10)))
	}

	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/drive/files", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-User-Id", strconv.FormatInt(userID, 10))

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))

	return v
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	return decodeBody[api.ErrorResponse](t, rec).Error
}

func ptr(v int64) *int64 {
	return &v
}

func TestHealth(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	if rec := f.do(t, http.MethodGet, "/health", 0, nil); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	t.Run("returns 401 without credentials", func(t *testing.T) {
		t.Parallel()

		rec := f.do(t, http.MethodGet, "/api/drive/contents", 0, nil)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("returns 401 for a malformed id", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/api/drive/contents", nil)
		req.Header.Set("X-User-Id", "alice")

		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("accepts the userId cookie", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/api/drive/contents", nil)
		req.AddCookie(&http.Cookie{Name: "userId", Value: "7"})

		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})
}

func TestCheckAccess(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.perms.Create(ctx, &acl.RoutePermission{Route: "/logs", Roles: []string{"admin"}}))

	tests := []struct {
		name    string
		userID  int64
		route   string
		granted bool
	}{
		{"open route", bob, "/drive", true},
		{"role granted", alice, "/logs", true},
		{"role missing", bob, "/logs", false},
		{"unknown user", 99, "/drive", false},
	}

	for _, tt := range tests {
		rec := f.do(t, http.MethodGet, "/api/access?route="+tt.route, tt.userID, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		if got := decodeBody[access.Result](t, rec); got.Granted != tt.granted {
			t.Errorf("%s: expected granted=%v, got %+v", tt.name, tt.granted, got)
		}
	}

	if rec := f.do(t, http.MethodGet, "/api/access", bob, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without route, got %d", rec.Code)
	}
}

func TestRouteGuard_DeniedIsNotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	require.NoError(t, f.perms.Create(context.Background(), &acl.RoutePermission{Route: "/drive", UserIDs: []int64{alice}}))

	if rec := f.do(t, http.MethodGet, "/api/drive/contents", bob, nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for denied route, got %d", rec.Code)
	}

	if rec := f.do(t, http.MethodGet, "/api/drive/contents", alice, nil); rec.Code != http.StatusOK {
		t.Errorf("expected 200 for granted user, got %d", rec.Code)
	}

	visits, err := f.activity.Visits(context.Background(), bob, 0)
	require.NoError(t, err)
	require.Len(t, visits, 1)
	require.Equal(t, "/drive", visits[0].Route)
}
