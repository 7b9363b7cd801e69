package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/serroba/opsportal/internal/drive"
)

// CreateFolderRequest is the request body for creating a folder.
type CreateFolderRequest struct {
	Name     string `json:"name"`
	ParentID *int64 `json:"parentId"`
}

// RenameRequest is the request body for renaming a folder or file.
type RenameRequest struct {
	Name string `json:"name"`
}

// MoveFolderRequest is the request body for moving a folder. A nil
// ParentID moves it to the drive root.
type MoveFolderRequest struct {
	ParentID *int64 `json:"parentId"`
}

// MoveFileRequest is the request body for moving a file.
type MoveFileRequest struct {
	FolderID *int64 `json:"folderId"`
}

// ShareRequest is the request body for sharing a file.
type ShareRequest struct {
	UserID int64        `json:"userId"`
	Access drive.Access `json:"access"`
}

// handleFolderContents handles GET /api/drive/contents?folderId={id}.
func (s *Server) handleFolderContents(w http.ResponseWriter, r *http.Request) {
	folderID, ok := queryFolderID(w, r)
	if !ok {
		return
	}

	contents, err := s.drive.GetFolderContents(r.Context(), folderID, UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, contents)
}

// handleFolderPath handles GET /api/drive/path?folderId={id}.
func (s *Server) handleFolderPath(w http.ResponseWriter, r *http.Request) {
	folderID, ok := queryFolderID(w, r)
	if !ok {
		return
	}

	path, err := s.drive.GetFolderPath(r.Context(), folderID, UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, path)
}

// handleCreateFolder handles POST /api/drive/folders.
func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var req CreateFolderRequest
	if !decode(w, r, &req) {
		return
	}

	folder, err := s.drive.CreateFolder(r.Context(), req.Name, req.ParentID, UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusCreated, folder)
}

// handleRenameFolder handles PATCH /api/drive/folders/{id}.
func (s *Server) handleRenameFolder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req RenameRequest
	if !decode(w, r, &req) {
		return
	}

	folder, err := s.drive.RenameFolder(r.Context(), id, req.Name, UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, folder)
}

// handleMoveFolder handles POST /api/drive/folders/{id}/move.
func (s *Server) handleMoveFolder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req MoveFolderRequest
	if !decode(w, r, &req) {
		return
	}

	folder, err := s.drive.MoveFolder(r.Context(), id, req.ParentID, UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, folder)
}

// handleDeleteFolder handles DELETE /api/drive/folders/{id}.
func (s *Server) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := s.drive.DeleteFolder(r.Context(), id, UserIDFromContext(r.Context())); err != nil {
		writeError(w, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleUploadFile handles POST /api/drive/files with a multipart body
// carrying "file" and an optional "folderId".
func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	part, header, err := r.FormFile("file")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "file is required")

		return
	}

	defer func() { _ = part.Close() }()

	var folderID *int64

	if raw := r.FormValue("folderId"); raw != "" && raw != "root" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid folderId")

			return
		}

		folderID = &id
	}

	file, err := s.drive.UploadFile(r.Context(), drive.Upload{
		Name:     header.Filename,
		FolderID: folderID,
		Content:  part,
	}, UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusCreated, file)
}

// handleFileDetails handles GET /api/drive/files/{id}.
func (s *Server) handleFileDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	details, err := s.drive.GetFileDetails(r.Context(), id, UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, details)
}

// handleFileContent handles GET /api/drive/files/{id}/content.
func (s *Server) handleFileContent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	file, content, err := s.drive.OpenFile(r.Context(), id, UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)

		return
	}

	serveFile(w, r, file, content)
}

// handleBlob handles GET /api/drive/file/{blob}, the URL stored on each file.
func (s *Server) handleBlob(w http.ResponseWriter, r *http.Request) {
	file, content, err := s.drive.OpenBlob(r.Context(), r.PathValue("blob"), UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)

		return
	}

	serveFile(w, r, file, content)
}

func serveFile(w http.ResponseWriter, r *http.Request, file drive.File, content io.ReadSeekCloser) {
	defer func() {
		if err := content.Close(); err != nil {
			log.Warn().Err(err).Int64("file_id", file.ID).Msg("Failed to close blob")
		}
	}()

	w.Header().Set("Content-Disposition", "inline; filename="+strconv.Quote(file.Name))
	http.ServeContent(w, r, file.Name, file.UpdatedAt, content)
}

// handleRenameFile handles PATCH /api/drive/files/{id}.
func (s *Server) handleRenameFile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req RenameRequest
	if !decode(w, r, &req) {
		return
	}

	file, err := s.drive.RenameFile(r.Context(), id, req.Name, UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, file)
}

// handleMoveFile handles POST /api/drive/files/{id}/move.
func (s *Server) handleMoveFile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req MoveFileRequest
	if !decode(w, r, &req) {
		return
	}

	file, err := s.drive.MoveFile(r.Context(), id, req.FolderID, UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, file)
}

// handleDeleteFile handles DELETE /api/drive/files/{id}.
func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := s.drive.DeleteFile(r.Context(), id, UserIDFromContext(r.Context())); err != nil {
		writeError(w, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleShareFile handles POST /api/drive/files/{id}/permissions.
func (s *Server) handleShareFile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req ShareRequest
	if !decode(w, r, &req) {
		return
	}

	perm, err := s.drive.ShareFile(r.Context(), id, req.UserID, req.Access, UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, perm)
}

// handleUnshareFile handles DELETE /api/drive/files/{id}/permissions/{userId}.
func (s *Server) handleUnshareFile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}

	if err := s.drive.RemoveFilePermission(r.Context(), id, userID, UserIDFromContext(r.Context())); err != nil {
		writeError(w, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleUsersForSharing handles GET /api/drive/users.
func (s *Server) handleUsersForSharing(w http.ResponseWriter, r *http.Request) {
	users, err := s.drive.UsersForSharing(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, users)
}
