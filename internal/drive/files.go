package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/serroba/opsportal/internal/apperr"
	"github.com/serroba/opsportal/internal/blob"
	"github.com/serroba/opsportal/internal/events"
)

// maxCopyProbes bounds the "(copy N)" search for a free file name.
const maxCopyProbes = 10000

// Upload describes a file being added to the drive.
type Upload struct {
	Name     string
	FolderID *int64
	Content  io.Reader
}

func fileName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.Invalid("file name is required")
	}

	return name, nil
}

// blobName derives the storage name of an upload.
func (m *Manager) blobName(ownerID int64, name string) string {
	return fmt.Sprintf("%d-%d-%s", m.now().UnixMilli(), ownerID, sanitize(name))
}

// freeName returns name, or the first of "base (copy).ext", "base (copy 2).ext",
// ... that ownerID does not already have under folderID.
func freeName(ctx context.Context, store Store, ownerID int64, folderID *int64, name string) (string, error) {
	base, ext := splitName(name)
	candidate := name

	for n := 1; n <= maxCopyProbes; n++ {
		exists, err := store.FileNameExists(ctx, ownerID, folderID, candidate)
		if err != nil {
			return "", err
		}

		if !exists {
			return candidate, nil
		}

		if n == 1 {
			candidate = fmt.Sprintf("%s (copy)%s", base, ext)
		} else {
			candidate = fmt.Sprintf("%s (copy %d)%s", base, n, ext)
		}
	}

	return "", apperr.Invalid("too many files named " + strconv.Quote(name))
}

// UploadFile stores the bytes of up and creates its file record for
// ownerID. A name already used in the target folder gets a "(copy)" suffix.
func (m *Manager) UploadFile(ctx context.Context, up Upload, ownerID int64) (File, error) {
	if err := requireCaller(ownerID); err != nil {
		return File{}, err
	}

	name, err := fileName(up.Name)
	if err != nil {
		return File{}, err
	}

	if up.Content == nil {
		return File{}, apperr.Invalid("no file provided")
	}

	if err := destination(ctx, m.store, up.FolderID, ownerID); err != nil {
		return File{}, fail("failed to upload file", err)
	}

	stored := m.blobName(ownerID, name)

	size, err := m.blobs.Write(stored, up.Content)
	if err != nil {
		return File{}, fail("failed to upload file", err)
	}

	file := File{
		Type:      fileType(name),
		Size:      size,
		FolderID:  cloneID(up.FolderID),
		OwnerID:   ownerID,
		URL:       URLPrefix + stored,
		Blob:      stored,
		CreatedAt: m.now(),
	}

	err = m.store.WithinTx(ctx, func(ctx context.Context, tx Store) error {
		if err := tx.LockOwner(ctx, ownerID); err != nil {
			return err
		}

		free, err := freeName(ctx, tx, ownerID, up.FolderID, name)
		if err != nil {
			return err
		}

		file.Name = free

		return tx.CreateFile(ctx, &file)
	})
	if err != nil {
		if rmErr := m.blobs.Remove(stored); rmErr != nil {
			log.Warn().Err(rmErr).Str("blob", stored).Msg("Failed to remove orphaned blob")
		}

		return File{}, fail("failed to upload file", err)
	}

	m.recorder.Action(ctx, ownerID, "Uploaded File", targetFile, file.ID, "Uploaded file: "+file.Name)

	e := events.New(events.FileUploaded, ownerID)
	e.FileID = ptr(file.ID)
	e.FolderID = cloneID(file.FolderID)
	m.emit(ctx, e)

	return file, nil
}

// RenameFile renames a file and its stored blob. The blob is renamed first;
// if the record update then fails the blob is renamed back.
func (m *Manager) RenameFile(ctx context.Context, fileID int64, name string, callerID int64) (File, error) {
	if err := requireCaller(callerID); err != nil {
		return File{}, err
	}

	name, err := fileName(name)
	if err != nil {
		return File{}, err
	}

	file, err := ownedFile(ctx, m.store, fileID, callerID, "rename")
	if err != nil {
		return File{}, fail("failed to rename file", err)
	}

	stored := m.blobName(callerID, name)

	if err := m.blobs.Rename(file.Blob, stored); err != nil {
		return File{}, fail("failed to rename file", err)
	}

	url := URLPrefix + stored
	kind := fileType(name)

	if err := m.store.UpdateFileName(ctx, fileID, name, kind, stored, url); err != nil {
		if rbErr := m.blobs.Rename(stored, file.Blob); rbErr != nil {
			log.Error().Err(rbErr).Int64("file_id", fileID).Str("blob", stored).Msg("Failed to restore blob name")
		}

		return File{}, fail("failed to rename file", err)
	}

	file.Name, file.Type, file.Blob, file.URL = name, kind, stored, url

	m.recorder.Action(ctx, callerID, "Renamed File", targetFile, fileID, "Renamed file to "+name)

	e := events.New(events.FileRenamed, callerID)
	e.FileID = ptr(fileID)
	e.FolderID = cloneID(file.FolderID)
	m.emit(ctx, e)

	return file, nil
}

// MoveFile places a file in folderID (nil for the root).
func (m *Manager) MoveFile(ctx context.Context, fileID int64, folderID *int64, callerID int64) (File, error) {
	if err := requireCaller(callerID); err != nil {
		return File{}, err
	}

	var (
		file     File
		previous *int64
	)

	err := m.store.WithinTx(ctx, func(ctx context.Context, tx Store) error {
		var err error

		file, err = ownedFile(ctx, tx, fileID, callerID, "move")
		if err != nil {
			return err
		}

		if err := destination(ctx, tx, folderID, callerID); err != nil {
			return err
		}

		if err := tx.MoveFile(ctx, fileID, folderID); err != nil {
			return err
		}

		previous = file.FolderID
		file.FolderID = cloneID(folderID)

		return nil
	})
	if err != nil {
		return File{}, fail("failed to move file", err)
	}

	m.recorder.Action(ctx, callerID, "Moved File", targetFile, fileID, movedDetails("file", file.Name, folderID))

	e := events.New(events.FileMoved, callerID)
	e.FileID = ptr(fileID)
	e.FolderID = cloneID(folderID)
	e.PreviousID = previous
	m.emit(ctx, e)

	return file, nil
}

// DeleteFile removes a file and its grants, then its blob on a best-effort
// basis.
func (m *Manager) DeleteFile(ctx context.Context, fileID, callerID int64) error {
	if err := requireCaller(callerID); err != nil {
		return err
	}

	var file File

	err := m.store.WithinTx(ctx, func(ctx context.Context, tx Store) error {
		var err error

		file, err = ownedFile(ctx, tx, fileID, callerID, "delete")
		if err != nil {
			return err
		}

		if err := tx.DeletePermissionsForFiles(ctx, []int64{fileID}); err != nil {
			return err
		}

		return tx.DeleteFiles(ctx, []int64{fileID})
	})
	if err != nil {
		return fail("failed to delete file", err)
	}

	m.removeBlob(file)

	m.recorder.Action(ctx, callerID, "Deleted File", targetFile, fileID, "Deleted file: "+file.Name)

	e := events.New(events.FileDeleted, callerID)
	e.FileID = ptr(fileID)
	e.FolderID = cloneID(file.FolderID)
	m.emit(ctx, e)

	return nil
}

func (m *Manager) removeBlob(f File) {
	if f.Blob == "" {
		return
	}

	if err := m.blobs.Remove(f.Blob); err != nil {
		log.Warn().Err(err).Int64("file_id", f.ID).Str("blob", f.Blob).Msg("Failed to remove blob")
	}
}

// readable checks that callerID owns f or holds a grant on it. Others get
// NotAuthorized so the file's existence is not revealed.
func (m *Manager) readable(ctx context.Context, f File, callerID int64) error {
	if f.OwnerID == callerID {
		return nil
	}

	_, err := m.store.GetPermission(ctx, f.ID, callerID)
	if errors.Is(err, ErrPermissionNotFound) {
		return apperr.NotAuthorized("file not found")
	}

	return err
}

// GetFileDetails returns a file with its grants to its owner or a grantee.
func (m *Manager) GetFileDetails(ctx context.Context, fileID, callerID int64) (FileDetails, error) {
	if err := requireCaller(callerID); err != nil {
		return FileDetails{}, err
	}

	file, err := m.store.GetFile(ctx, fileID)
	if err != nil {
		return FileDetails{}, fail("failed to fetch file details", err)
	}

	if err := m.readable(ctx, file, callerID); err != nil {
		return FileDetails{}, fail("failed to fetch file details", err)
	}

	perms, err := m.store.ListPermissions(ctx, fileID)
	if err != nil {
		return FileDetails{}, fail("failed to fetch file details", err)
	}

	return FileDetails{File: file, Permissions: perms}, nil
}

// OpenFile returns the file record and a reader for its bytes. The caller
// must close the reader.
func (m *Manager) OpenFile(ctx context.Context, fileID, callerID int64) (File, io.ReadSeekCloser, error) {
	if err := requireCaller(callerID); err != nil {
		return File{}, nil, err
	}

	file, err := m.store.GetFile(ctx, fileID)
	if err != nil {
		return File{}, nil, fail("failed to open file", err)
	}

	return m.open(ctx, file, callerID)
}

// OpenBlob is OpenFile addressed by the blob name from a file URL.
func (m *Manager) OpenBlob(ctx context.Context, blobName string, callerID int64) (File, io.ReadSeekCloser, error) {
	if err := requireCaller(callerID); err != nil {
		return File{}, nil, err
	}

	file, err := m.store.FileByBlob(ctx, blobName)
	if err != nil {
		return File{}, nil, fail("failed to open file", err)
	}

	return m.open(ctx, file, callerID)
}

func (m *Manager) open(ctx context.Context, file File, callerID int64) (File, io.ReadSeekCloser, error) {
	if err := m.readable(ctx, file, callerID); err != nil {
		return File{}, nil, fail("failed to open file", err)
	}

	r, err := m.blobs.Open(file.Blob)
	if errors.Is(err, blob.ErrBlobNotFound) {
		return File{}, nil, apperr.NotFound("file not found on server")
	}

	if err != nil {
		return File{}, nil, fail("failed to open file", err)
	}

	return file, r, nil
}
