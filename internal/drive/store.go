package drive

import (
	"context"
	"errors"
)

// Store errors.
var (
	ErrFolderNotFound     = errors.New("folder not found")
	ErrFileNotFound       = errors.New("file not found")
	ErrPermissionNotFound = errors.New("file permission not found")
	ErrDuplicateID        = errors.New("duplicate folder id")
)

// Store defines the interface for persisting the drive.
type Store interface {
	// WithinTx runs fn as one atomic unit. If fn returns an error, none of
	// the writes made through tx are kept.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error

	// LockOwner serializes folder id allocation for an owner until the
	// surrounding transaction ends.
	LockOwner(ctx context.Context, ownerID int64) error

	// MaxFolderID returns the highest id in [lo, hi) among folders of
	// ownerID. ok is false when there is none.
	MaxFolderID(ctx context.Context, ownerID, lo, hi int64) (id int64, ok bool, err error)

	// CreateFolder inserts a folder with its explicit ID.
	// Returns ErrDuplicateID if the id is taken.
	CreateFolder(ctx context.Context, f *Folder) error

	// GetFolder returns ErrFolderNotFound if the folder does not exist.
	GetFolder(ctx context.Context, id int64) (Folder, error)

	// ListFolders returns the folders of ownerID directly under parentID,
	// ordered by name.
	ListFolders(ctx context.Context, parentID *int64, ownerID int64) ([]Folder, error)

	// ChildFolderIDs returns the ids of the folders directly under parentID.
	ChildFolderIDs(ctx context.Context, parentID int64) ([]int64, error)

	// RenameFolder sets a folder's name.
	RenameFolder(ctx context.Context, id int64, name string) error

	// MoveFolder sets a folder's parent.
	MoveFolder(ctx context.Context, id int64, parentID *int64) error

	// DeleteFolders removes the folders with the given ids.
	DeleteFolders(ctx context.Context, ids []int64) error

	// CreateFile inserts a file and assigns its ID.
	CreateFile(ctx context.Context, f *File) error

	// GetFile returns ErrFileNotFound if the file does not exist.
	GetFile(ctx context.Context, id int64) (File, error)

	// FileByBlob returns the file stored under a blob name.
	FileByBlob(ctx context.Context, blob string) (File, error)

	// ListFiles returns the files directly under folderID that viewerID
	// owns or holds a grant for, ordered by Order then name.
	ListFiles(ctx context.Context, folderID *int64, viewerID int64) ([]File, error)

	// FilesInFolders returns every file directly inside any of folderIDs.
	FilesInFolders(ctx context.Context, folderIDs []int64) ([]File, error)

	// FileNameExists reports whether ownerID already has a file called name
	// directly under folderID.
	FileNameExists(ctx context.Context, ownerID int64, folderID *int64, name string) (bool, error)

	// UpdateFileName sets a file's name, type, blob and URL.
	UpdateFileName(ctx context.Context, id int64, name, fileType, blob, url string) error

	// MoveFile sets a file's folder.
	MoveFile(ctx context.Context, id int64, folderID *int64) error

	// DeleteFiles removes the files with the given ids.
	DeleteFiles(ctx context.Context, ids []int64) error

	// UpsertPermission creates the grant for (FileID, UserID) or overwrites
	// its access, grantor and time.
	UpsertPermission(ctx context.Context, p *FilePermission) error

	// GetPermission returns ErrPermissionNotFound if no grant exists.
	GetPermission(ctx context.Context, fileID, userID int64) (FilePermission, error)

	// ListPermissions returns the grants of a file ordered by grant time.
	ListPermissions(ctx context.Context, fileID int64) ([]FilePermission, error)

	// DeletePermission removes one grant.
	// Returns ErrPermissionNotFound if it does not exist.
	DeletePermission(ctx context.Context, fileID, userID int64) error

	// DeletePermissionsForFiles removes every grant on the given files.
	DeletePermissionsForFiles(ctx context.Context, fileIDs []int64) error
}
