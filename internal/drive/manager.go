package drive

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/serroba/opsportal/internal/activity"
	"github.com/serroba/opsportal/internal/apperr"
	"github.com/serroba/opsportal/internal/blob"
	"github.com/serroba/opsportal/internal/events"
	"github.com/serroba/opsportal/internal/user"
)

// Activity target types.
const (
	targetFolder = "DriveFolder"
	targetFile   = "DriveFile"
)

// Manager runs drive operations on behalf of a calling user. Every public
// method returns *apperr.Error values only.
type Manager struct {
	store    Store
	blobs    *blob.Store
	users    user.Store
	recorder *activity.Recorder
	notifier events.Notifier
	now      func() time.Time
}

// ManagerConfig holds configuration for creating a manager.
type ManagerConfig struct {
	Store    Store
	Blobs    *blob.Store
	Users    user.Store
	Recorder *activity.Recorder
	Notifier events.Notifier
	Now      func() time.Time
}

// NewManager creates a new drive manager.
func NewManager(cfg ManagerConfig) *Manager {
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = events.Nop{}
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Manager{
		store:    cfg.Store,
		blobs:    cfg.Blobs,
		users:    cfg.Users,
		recorder: cfg.Recorder,
		notifier: notifier,
		now:      now,
	}
}

func requireCaller(callerID int64) error {
	if callerID <= 0 {
		return apperr.New(apperr.ErrNotAuthenticated, "you must be logged in to use the drive")
	}

	return nil
}

// fail converts a store, blob or lookup error into an app error. Errors
// that already carry a kind pass through unchanged.
func fail(message string, err error) error {
	var appErr *apperr.Error

	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, ErrFolderNotFound):
		return apperr.NotFound("folder not found")
	case errors.Is(err, ErrFileNotFound):
		return apperr.NotFound("file not found")
	case errors.Is(err, ErrPermissionNotFound):
		return apperr.NotFound("permission not found")
	case errors.Is(err, user.ErrUserNotFound):
		return apperr.NotFound("user not found")
	}

	log.Error().Err(err).Msg(message)

	return apperr.Dependency(message, err)
}

func (m *Manager) emit(ctx context.Context, e events.Event) {
	m.notifier.Notify(ctx, e)
}

// ownedFolder loads a folder and checks that callerID owns it.
func ownedFolder(ctx context.Context, store Store, id, callerID int64, verb string) (Folder, error) {
	f, err := store.GetFolder(ctx, id)
	if err != nil {
		return Folder{}, err
	}

	if f.OwnerID != callerID {
		return Folder{}, apperr.Ownership(verb, "folder")
	}

	return f, nil
}

// ownedFile loads a file and checks that callerID owns it.
func ownedFile(ctx context.Context, store Store, id, callerID int64, verb string) (File, error) {
	f, err := store.GetFile(ctx, id)
	if err != nil {
		return File{}, err
	}

	if f.OwnerID != callerID {
		return File{}, apperr.Ownership(verb, "file")
	}

	return f, nil
}

// destination checks that a target folder, when given, exists and is
// owned by callerID.
func destination(ctx context.Context, store Store, folderID *int64, callerID int64) error {
	if folderID == nil {
		return nil
	}

	f, err := store.GetFolder(ctx, *folderID)
	if errors.Is(err, ErrFolderNotFound) {
		return apperr.NotFound("destination folder not found")
	}

	if err != nil {
		return err
	}

	if f.OwnerID != callerID {
		return apperr.Ownership("add items to", "folder")
	}

	return nil
}
