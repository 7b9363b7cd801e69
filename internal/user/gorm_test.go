package user_test

import (
	"context"
	"errors"
	"testing"

	"github.com/serroba/opsportal/internal/database/databasetest"
	"github.com/serroba/opsportal/internal/user"
	"github.com/stretchr/testify/require"
)

func TestGormStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := user.NewGormStore(databasetest.Open(t))
	require.NoError(t, store.Migrate(ctx))

	u := &user.User{Username: "alice", Roles: []string{"staff", "hr"}}
	require.NoError(t, store.Create(ctx, u))

	got, err := store.Get(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"staff", "hr"}, got.Roles)

	_, err = store.Get(ctx, u.ID+1000)
	if !errors.Is(err, user.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}
