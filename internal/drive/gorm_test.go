package drive_test

import (
	"context"
	"errors"
	"testing"

	"github.com/serroba/opsportal/internal/database/databasetest"
	"github.com/serroba/opsportal/internal/drive"
	"github.com/stretchr/testify/require"
)

func TestGormStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := drive.NewGormStore(databasetest.Open(t))
	require.NoError(t, store.Migrate(ctx))

	root := &drive.Folder{ID: 700000, Name: "Reports", OwnerID: 7}
	require.NoError(t, store.CreateFolder(ctx, root))

	if err := store.CreateFolder(ctx, &drive.Folder{ID: 700000, Name: "dup", OwnerID: 7}); !errors.Is(err, drive.ErrDuplicateID) {
		t.Errorf("expected ErrDuplicateID, got %v", err)
	}

	child := &drive.Folder{ID: 700001, Name: "2024", ParentID: ptr(root.ID), OwnerID: 7}
	require.NoError(t, store.CreateFolder(ctx, child))

	maxID, ok, err := store.MaxFolderID(ctx, 7, 700000, 800000)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(700001), maxID)

	folders, err := store.ListFolders(ctx, nil, 7)
	require.NoError(t, err)
	require.Equal(t, []string{"Reports"}, folderNames(folders))

	file := &drive.File{Name: "q1.pdf", Type: "pdf", FolderID: ptr(child.ID), OwnerID: 7, Blob: "1-7-q1.pdf"}
	require.NoError(t, store.CreateFile(ctx, file))

	files, err := store.ListFiles(ctx, ptr(child.ID), 8)
	require.NoError(t, err)
	require.Empty(t, files)

	for _, access := range []drive.Access{drive.AccessRead, drive.AccessWrite} {
		require.NoError(t, store.UpsertPermission(ctx, &drive.FilePermission{FileID: file.ID, UserID: 8, Access: access, GrantedBy: 7}))
	}

	perms, err := store.ListPermissions(ctx, file.ID)
	require.NoError(t, err)
	require.Len(t, perms, 1)
	require.Equal(t, drive.AccessWrite, perms[0].Access)

	files, err = store.ListFiles(ctx, ptr(child.ID), 8)
	require.NoError(t, err)
	require.Equal(t, []string{"q1.pdf"}, fileNames(files))

	exists, err := store.FileNameExists(ctx, 7, ptr(child.ID), "q1.pdf")
	require.NoError(t, err)
	require.True(t, exists)

	err = store.WithinTx(ctx, func(ctx context.Context, tx drive.Store) error {
		if err := tx.LockOwner(ctx, 7); err != nil {
			return err
		}

		if err := tx.DeletePermissionsForFiles(ctx, []int64{file.ID}); err != nil {
			return err
		}

		if err := tx.DeleteFiles(ctx, []int64{file.ID}); err != nil {
			return err
		}

		return tx.DeleteFolders(ctx, []int64{root.ID, child.ID})
	})
	require.NoError(t, err)

	if _, err := store.GetFolder(ctx, root.ID); !errors.Is(err, drive.ErrFolderNotFound) {
		t.Errorf("expected ErrFolderNotFound, got %v", err)
	}

	if _, err := store.GetPermission(ctx, file.ID, 8); !errors.Is(err, drive.ErrPermissionNotFound) {
		t.Errorf("expected ErrPermissionNotFound, got %v", err)
	}
}
