package drive

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/serroba/opsportal/internal/apperr"
	"github.com/serroba/opsportal/internal/events"
)

// ErrRangeExhausted is returned when an owner has used every folder id of
// its range.
var ErrRangeExhausted = errors.New("folder id range exhausted")

// ErrCycle is returned when the parent chain of a folder loops.
var ErrCycle = errors.New("folder hierarchy contains a cycle")

// maxOwnerID keeps ownerID*FolderRangeSize+FolderRangeSize within int64.
const maxOwnerID = math.MaxInt64/FolderRangeSize - 1

// FolderRange returns the id range [lo, hi) reserved for ownerID.
func FolderRange(ownerID int64) (int64, int64) {
	lo := ownerID * FolderRangeSize

	return lo, lo + FolderRangeSize
}

func folderName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.Invalid("folder name is required")
	}

	return name, nil
}

// CreateFolder creates a folder for ownerID under parentID (nil for the
// root). The id is the next free one in the owner's range; allocation is
// serialized per owner.
func (m *Manager) CreateFolder(ctx context.Context, name string, parentID *int64, ownerID int64) (Folder, error) {
	if err := requireCaller(ownerID); err != nil {
		return Folder{}, err
	}

	if ownerID > maxOwnerID {
		return Folder{}, apperr.Invalid("owner id out of range")
	}

	name, err := folderName(name)
	if err != nil {
		return Folder{}, err
	}

	var folder Folder

	err = m.store.WithinTx(ctx, func(ctx context.Context, tx Store) error {
		if err := destination(ctx, tx, parentID, ownerID); err != nil {
			return err
		}

		if err := tx.LockOwner(ctx, ownerID); err != nil {
			return err
		}

		lo, hi := FolderRange(ownerID)

		latest, ok, err := tx.MaxFolderID(ctx, ownerID, lo, hi)
		if err != nil {
			return err
		}

		id := lo
		if ok {
			id = latest + 1
		}

		if id >= hi {
			return fmt.Errorf("owner %d: %w", ownerID, ErrRangeExhausted)
		}

		folder = Folder{
			ID:        id,
			Name:      name,
			ParentID:  cloneID(parentID),
			OwnerID:   ownerID,
			CreatedAt: m.now(),
		}

		return tx.CreateFolder(ctx, &folder)
	})
	if err != nil {
		return Folder{}, fail("failed to create folder", err)
	}

	m.recorder.Action(ctx, ownerID, "Created Folder", targetFolder, folder.ID, "Created folder: "+folder.Name)

	e := events.New(events.FolderCreated, ownerID)
	e.FolderID = ptr(folder.ID)
	e.ParentID = cloneID(folder.ParentID)
	m.emit(ctx, e)

	return folder, nil
}

// GetFolderContents lists the level under folderID (nil for the root) as
// seen by userID: the caller's own folders and the files the caller owns
// or has been granted.
func (m *Manager) GetFolderContents(ctx context.Context, folderID *int64, userID int64) (Contents, error) {
	if err := requireCaller(userID); err != nil {
		return Contents{}, err
	}

	folders, err := m.store.ListFolders(ctx, folderID, userID)
	if err != nil {
		return Contents{}, fail("failed to fetch folder contents", err)
	}

	files, err := m.store.ListFiles(ctx, folderID, userID)
	if err != nil {
		return Contents{}, fail("failed to fetch folder contents", err)
	}

	return Contents{Folders: folders, Files: files}, nil
}

// GetFolderPath returns the breadcrumb from the drive root to folderID
// inclusive, as seen by viewerID. A nil or unknown folder yields the root
// entry alone. Folders owned by someone else are treated as unknown, so the
// walk stops below them.
func (m *Manager) GetFolderPath(ctx context.Context, folderID *int64, viewerID int64) ([]PathEntry, error) {
	root := PathEntry{ID: nil, Name: RootName}

	if folderID == nil {
		return []PathEntry{root}, nil
	}

	var chain []PathEntry

	visited := make(map[int64]struct{})

	for id := folderID; id != nil; {
		if _, seen := visited[*id]; seen {
			log.Error().Int64("folder_id", *folderID).Int64("repeated_id", *id).Msg("Folder hierarchy contains a cycle")

			return nil, apperr.Dependency("failed to fetch folder path", ErrCycle)
		}

		visited[*id] = struct{}{}

		f, err := m.store.GetFolder(ctx, *id)
		if err == nil && f.OwnerID != viewerID {
			err = ErrFolderNotFound
		}

		if errors.Is(err, ErrFolderNotFound) {
			if len(chain) == 0 {
				return []PathEntry{root}, nil
			}

			// A dangling parent ends the chain.
			break
		}

		if err != nil {
			return nil, fail("failed to fetch folder path", err)
		}

		chain = append(chain, PathEntry{ID: ptr(f.ID), Name: f.Name})
		id = f.ParentID
	}

	chain = append(chain, root)
	slices.Reverse(chain)

	return chain, nil
}

// CanWatch reports whether userID may follow changes to folderID. The root
// is open to every caller; any other folder only to its owner. A foreign
// folder is reported as not found.
func (m *Manager) CanWatch(ctx context.Context, folderID *int64, userID int64) error {
	if err := requireCaller(userID); err != nil {
		return err
	}

	if folderID == nil {
		return nil
	}

	f, err := m.store.GetFolder(ctx, *folderID)
	if err == nil && f.OwnerID != userID {
		err = ErrFolderNotFound
	}

	if err != nil {
		return fail("failed to check folder", err)
	}

	return nil
}

// subtree returns rootID and every folder below it, collected with an
// explicit stack.
func subtree(ctx context.Context, store Store, rootID int64) ([]int64, error) {
	ids := []int64{rootID}
	seen := map[int64]struct{}{rootID: {}}
	stack := []int64{rootID}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, err := store.ChildFolderIDs(ctx, id)
		if err != nil {
			return nil, err
		}

		for _, child := range children {
			if _, dup := seen[child]; dup {
				continue
			}

			seen[child] = struct{}{}
			ids = append(ids, child)
			stack = append(stack, child)
		}
	}

	return ids, nil
}

// DeleteFolder removes a folder with every subfolder, every file in them
// and every grant on those files, in one transaction. Blobs of the deleted
// files are removed afterwards on a best-effort basis.
func (m *Manager) DeleteFolder(ctx context.Context, folderID, callerID int64) error {
	if err := requireCaller(callerID); err != nil {
		return err
	}

	var (
		folder  Folder
		deleted []File
	)

	err := m.store.WithinTx(ctx, func(ctx context.Context, tx Store) error {
		var err error

		folder, err = ownedFolder(ctx, tx, folderID, callerID, "delete")
		if err != nil {
			return err
		}

		ids, err := subtree(ctx, tx, folderID)
		if err != nil {
			return err
		}

		deleted, err = tx.FilesInFolders(ctx, ids)
		if err != nil {
			return err
		}

		fileIDs := make([]int64, len(deleted))
		for i, f := range deleted {
			fileIDs[i] = f.ID
		}

		if err := tx.DeletePermissionsForFiles(ctx, fileIDs); err != nil {
			return err
		}

		if err := tx.DeleteFiles(ctx, fileIDs); err != nil {
			return err
		}

		return tx.DeleteFolders(ctx, ids)
	})
	if err != nil {
		return fail("failed to delete folder", err)
	}

	for _, f := range deleted {
		m.removeBlob(f)
	}

	m.recorder.Action(ctx, callerID, "Deleted Folder", targetFolder, folderID, "Deleted folder: "+folder.Name)

	e := events.New(events.FolderDeleted, callerID)
	e.FolderID = ptr(folderID)
	e.ParentID = cloneID(folder.ParentID)
	m.emit(ctx, e)

	return nil
}

// MoveFolder reparents a folder. The new parent, when given, must be owned
// by the caller and must not be the folder itself or one of its
// descendants.
func (m *Manager) MoveFolder(ctx context.Context, folderID int64, newParentID *int64, callerID int64) (Folder, error) {
	if err := requireCaller(callerID); err != nil {
		return Folder{}, err
	}

	var (
		folder   Folder
		previous *int64
	)

	err := m.store.WithinTx(ctx, func(ctx context.Context, tx Store) error {
		var err error

		folder, err = ownedFolder(ctx, tx, folderID, callerID, "move")
		if err != nil {
			return err
		}

		if newParentID != nil && *newParentID == folderID {
			return apperr.Invalid("a folder cannot be moved into itself")
		}

		if err := destination(ctx, tx, newParentID, callerID); err != nil {
			return err
		}

		if err := checkNotDescendant(ctx, tx, folderID, newParentID); err != nil {
			return err
		}

		if err := tx.MoveFolder(ctx, folderID, newParentID); err != nil {
			return err
		}

		previous = folder.ParentID
		folder.ParentID = cloneID(newParentID)

		return nil
	})
	if err != nil {
		return Folder{}, fail("failed to move folder", err)
	}

	m.recorder.Action(ctx, callerID, "Moved Folder", targetFolder, folderID, movedDetails("folder", folder.Name, newParentID))

	e := events.New(events.FolderMoved, callerID)
	e.FolderID = ptr(folderID)
	e.ParentID = cloneID(newParentID)
	e.PreviousID = previous
	m.emit(ctx, e)

	return folder, nil
}

// checkNotDescendant walks the ancestors of parentID and fails if folderID
// is among them.
func checkNotDescendant(ctx context.Context, store Store, folderID int64, parentID *int64) error {
	visited := make(map[int64]struct{})

	for id := parentID; id != nil; {
		if *id == folderID {
			return apperr.Invalid("a folder cannot be moved into one of its subfolders")
		}

		if _, seen := visited[*id]; seen {
			return ErrCycle
		}

		visited[*id] = struct{}{}

		f, err := store.GetFolder(ctx, *id)
		if errors.Is(err, ErrFolderNotFound) {
			return nil
		}

		if err != nil {
			return err
		}

		id = f.ParentID
	}

	return nil
}

// RenameFolder sets a folder's name.
func (m *Manager) RenameFolder(ctx context.Context, folderID int64, name string, callerID int64) (Folder, error) {
	if err := requireCaller(callerID); err != nil {
		return Folder{}, err
	}

	name, err := folderName(name)
	if err != nil {
		return Folder{}, err
	}

	folder, err := ownedFolder(ctx, m.store, folderID, callerID, "rename")
	if err != nil {
		return Folder{}, fail("failed to rename folder", err)
	}

	oldName := folder.Name

	if err := m.store.RenameFolder(ctx, folderID, name); err != nil {
		return Folder{}, fail("failed to rename folder", err)
	}

	folder.Name = name

	m.recorder.Action(ctx, callerID, "Renamed Folder", targetFolder, folderID,
		fmt.Sprintf("Renamed folder from %s to %s", oldName, name))

	e := events.New(events.FolderRenamed, callerID)
	e.FolderID = ptr(folderID)
	e.ParentID = cloneID(folder.ParentID)
	m.emit(ctx, e)

	return folder, nil
}

func movedDetails(kind, name string, to *int64) string {
	if to == nil {
		return fmt.Sprintf("Moved %s %s to %s", kind, name, RootName)
	}

	return fmt.Sprintf("Moved %s %s to folder ID: %d", kind, name, *to)
}
