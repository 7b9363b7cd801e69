package drive_test

import (
	"context"
	"testing"

	"github.com/serroba/opsportal/internal/access"
	"github.com/serroba/opsportal/internal/acl"
	"github.com/serroba/opsportal/internal/activity"
	"github.com/serroba/opsportal/internal/drive"
	"github.com/serroba/opsportal/internal/user"
	"github.com/stretchr/testify/require"
)

func TestScenario_ShareMakesFileVisible(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	reports := f.folder(t, "Reports", nil, alice)
	require.Equal(t, int64(700000), reports.ID)

	year := f.folder(t, "2024", ptr(reports.ID), alice)
	require.Equal(t, int64(700001), year.ID)

	q1 := f.upload(t, "q1.pdf", ptr(year.ID), alice)

	users := user.NewMemoryStore()
	require.NoError(t, users.Create(ctx, &user.User{ID: bob, Username: "bob", Roles: []string{"staff"}}))

	checker := access.NewChecker(access.CheckerConfig{
		Users:    users,
		Perms:    acl.NewMemoryStore(),
		Recorder: activity.NewRecorder(activity.RecorderConfig{Store: activity.NewMemoryStore()}),
	})

	if res := checker.CheckAccess(ctx, bob, "/drive"); !res.Granted {
		t.Fatalf("expected /drive to be open, got %+v", res)
	}

	contents, err := f.mgr.GetFolderContents(ctx, ptr(year.ID), bob)
	require.NoError(t, err)

	if len(contents.Files) != 0 {
		t.Fatalf("expected q1.pdf to be invisible to bob, got %v", fileNames(contents.Files))
	}

	_, err = f.mgr.ShareFile(ctx, q1.ID, bob, drive.AccessRead, alice)
	require.NoError(t, err)

	contents, err = f.mgr.GetFolderContents(ctx, ptr(year.ID), bob)
	require.NoError(t, err)
	require.Equal(t, []string{"q1.pdf"}, fileNames(contents.Files))
}
