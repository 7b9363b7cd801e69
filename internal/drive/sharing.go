package drive

import (
	"context"
	"fmt"

	"github.com/serroba/opsportal/internal/apperr"
	"github.com/serroba/opsportal/internal/events"
	"github.com/serroba/opsportal/internal/user"
)

// ShareFile grants granteeID access to a file owned by granterID. Sharing
// the same pair again overwrites the access level, grantor and time.
func (m *Manager) ShareFile(ctx context.Context, fileID, granteeID int64, access Access, granterID int64) (FilePermission, error) {
	if err := requireCaller(granterID); err != nil {
		return FilePermission{}, err
	}

	if access == "" {
		access = AccessRead
	}

	if !access.Valid() {
		return FilePermission{}, apperr.Invalid(fmt.Sprintf("invalid access level %q", access))
	}

	file, err := ownedFile(ctx, m.store, fileID, granterID, "share")
	if err != nil {
		return FilePermission{}, fail("failed to share file", err)
	}

	if granteeID == granterID {
		return FilePermission{}, apperr.Invalid("you already own this file")
	}

	if _, err := m.users.Get(ctx, granteeID); err != nil {
		return FilePermission{}, fail("failed to share file", err)
	}

	perm := FilePermission{
		FileID:    fileID,
		UserID:    granteeID,
		Access:    access,
		GrantedBy: granterID,
		GrantedAt: m.now(),
	}

	if err := m.store.UpsertPermission(ctx, &perm); err != nil {
		return FilePermission{}, fail("failed to share file", err)
	}

	m.recorder.Action(ctx, granterID, "Shared File", targetFile, fileID,
		fmt.Sprintf("Shared file: %s with user ID: %d", file.Name, granteeID))

	e := events.New(events.FileShared, granterID)
	e.FileID = ptr(fileID)
	e.FolderID = cloneID(file.FolderID)
	m.emit(ctx, e)

	return perm, nil
}

// RemoveFilePermission revokes the grant of userID on a file owned by callerID.
func (m *Manager) RemoveFilePermission(ctx context.Context, fileID, userID, callerID int64) error {
	if err := requireCaller(callerID); err != nil {
		return err
	}

	file, err := ownedFile(ctx, m.store, fileID, callerID, "manage permissions of")
	if err != nil {
		return fail("failed to remove file permission", err)
	}

	if err := m.store.DeletePermission(ctx, fileID, userID); err != nil {
		return fail("failed to remove file permission", err)
	}

	m.recorder.Action(ctx, callerID, "Removed File Permission", targetFile, fileID,
		fmt.Sprintf("Removed access for user ID: %d from file: %s", userID, file.Name))

	e := events.New(events.FileUnshared, callerID)
	e.FileID = ptr(fileID)
	e.FolderID = cloneID(file.FolderID)
	m.emit(ctx, e)

	return nil
}

// UsersForSharing lists every user except the caller, ordered by username.
func (m *Manager) UsersForSharing(ctx context.Context, callerID int64) ([]user.User, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}

	users, err := user.ForSharing(ctx, m.users, callerID)
	if err != nil {
		return nil, fail("failed to fetch users", err)
	}

	return users, nil
}
