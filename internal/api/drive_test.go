package api_test

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/serroba/opsportal/internal/drive"
	"github.com/serroba/opsportal/internal/user"
	"github.com/stretchr/testify/require"
)

func TestDriveFolders(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/drive/folders", alice, map[string]any{"name": "Reports"})
	require.Equal(t, http.StatusCreated, rec.Code)

	reports := decodeBody[drive.Folder](t, rec)
	require.Equal(t, int64(700000), reports.ID)

	rec = f.do(t, http.MethodPost, "/api/drive/folders", alice, map[string]any{"name": "2024", "parentId": reports.ID})
	require.Equal(t, http.StatusCreated, rec.Code)

	year := decodeBody[drive.Folder](t, rec)

	rec = f.do(t, http.MethodGet, "/api/drive/path?folderId="+strconv.FormatInt(year.ID, 10), alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	path := decodeBody[[]drive.PathEntry](t, rec)
	require.Len(t, path, 3)

	if path[0].Name != "My Drive" || path[2].Name != "2024" {
		t.Errorf("unexpected breadcrumb %+v", path)
	}

	rec = f.do(t, http.MethodGet, "/api/drive/path?folderId="+strconv.FormatInt(year.ID, 10), bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	if path := decodeBody[[]drive.PathEntry](t, rec); len(path) != 1 {
		t.Errorf("expected bob to see the root only, got %+v", path)
	}

	folderPath := "/api/drive/folders/" + strconv.FormatInt(reports.ID, 10)

	rec = f.do(t, http.MethodPost, folderPath+"/move", alice, map[string]any{"parentId": year.ID})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for move into descendant, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPatch, folderPath, bob, map[string]any{"name": "Mine"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for foreign rename, got %d", rec.Code)
	}

	if msg := errorMessage(t, rec); msg != "you don't have permission to rename this folder" {
		t.Errorf("unexpected message %q", msg)
	}

	rec = f.do(t, http.MethodPatch, folderPath, alice, map[string]any{"name": "Quarterly"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Quarterly", decodeBody[drive.Folder](t, rec).Name)

	rec = f.do(t, http.MethodDelete, folderPath, alice, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/drive/contents", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	if contents := decodeBody[drive.Contents](t, rec); len(contents.Folders) != 0 {
		t.Errorf("expected empty root after delete, got %+v", contents.Folders)
	}
}

func TestDriveFolders_BadInput(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"empty name", http.MethodPost, "/api/drive/folders", map[string]any{"name": " "}, http.StatusBadRequest},
		{"missing parent", http.MethodPost, "/api/drive/folders", map[string]any{"name": "x", "parentId": 1}, http.StatusNotFound},
		{"bad id", http.MethodDelete, "/api/drive/folders/abc", nil, http.StatusBadRequest},
		{"unknown folder", http.MethodDelete, "/api/drive/folders/123", nil, http.StatusNotFound},
		{"bad folderId", http.MethodGet, "/api/drive/contents?folderId=x", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		if rec := f.do(t, tt.method, tt.path, alice, tt.body); rec.Code != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.name, tt.want, rec.Code)
		}
	}
}

func TestDriveFiles_UploadShareDownload(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	rec := f.upload(t, alice, "q1.pdf", "quarterly numbers", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	file := decodeBody[drive.File](t, rec)
	require.Equal(t, "pdf", file.Type)

	rec = f.do(t, http.MethodGet, file.URL, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "quarterly numbers", rec.Body.String())

	filePath := "/api/drive/files/" + strconv.FormatInt(file.ID, 10)

	if rec := f.do(t, http.MethodGet, filePath+"/content", bob, nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 before share, got %d", rec.Code)
	}

	if rec := f.do(t, http.MethodGet, filePath, bob, nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 details before share, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, filePath+"/permissions", alice, map[string]any{"userId": bob, "access": "read"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, filePath+"/content", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "quarterly numbers", rec.Body.String())

	rec = f.do(t, http.MethodGet, filePath, bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeBody[drive.FileDetails](t, rec).Permissions, 1)

	rec = f.do(t, http.MethodGet, "/api/drive/contents", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeBody[drive.Contents](t, rec).Files, 1)

	rec = f.do(t, http.MethodDelete, filePath+"/permissions/"+strconv.FormatInt(bob, 10), alice, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	if rec := f.do(t, http.MethodGet, file.URL, bob, nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after unshare, got %d", rec.Code)
	}
}

func TestDriveFiles_RenameMoveDelete(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/drive/folders", alice, map[string]any{"name": "Archive"})
	require.Equal(t, http.StatusCreated, rec.Code)

	archive := decodeBody[drive.Folder](t, rec)

	rec = f.upload(t, alice, "notes.txt", "hello", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	file := decodeBody[drive.File](t, rec)
	filePath := "/api/drive/files/" + strconv.FormatInt(file.ID, 10)

	rec = f.do(t, http.MethodPatch, filePath, alice, map[string]any{"name": "notes.md"})
	require.Equal(t, http.StatusOK, rec.Code)

	renamed := decodeBody[drive.File](t, rec)
	require.Equal(t, "md", renamed.Type)

	rec = f.do(t, http.MethodGet, renamed.URL, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "hello", rec.Body.String())

	if rec := f.do(t, http.MethodPost, filePath+"/move", bob, map[string]any{"folderId": archive.ID}); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for foreign move, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, filePath+"/move", alice, map[string]any{"folderId": archive.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, archive.ID, *decodeBody[drive.File](t, rec).FolderID)

	rec = f.do(t, http.MethodDelete, filePath, alice, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	if rec := f.do(t, http.MethodGet, filePath, alice, nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestDriveFiles_UploadRequiresFile(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	if rec := f.do(t, http.MethodPost, "/api/drive/files", alice, map[string]any{"name": "x"}); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}

	if rec := f.upload(t, alice, "x.txt", "x", ptr(42)); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing folder, got %d", rec.Code)
	}
}

func TestUsersForSharing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/drive/users", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	users := decodeBody[[]user.User](t, rec)
	require.Len(t, users, 1)
	require.Equal(t, "bob", users[0].Username)
}
