package activity_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/serroba/opsportal/internal/activity"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Visits_NewestFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := activity.NewMemoryStore()

	for _, route := range []string{"/drive", "/logs", "/crm"} {
		require.NoError(t, store.RecordVisit(ctx, &activity.Visit{UserID: 1, Route: route}))
	}

	require.NoError(t, store.RecordVisit(ctx, &activity.Visit{UserID: 2, Route: "/drive"}))

	visits, err := store.Visits(ctx, 1, 2)
	require.NoError(t, err)

	if len(visits) != 2 {
		t.Fatalf("expected 2 visits, got %d", len(visits))
	}

	if visits[0].Route != "/crm" || visits[1].Route != "/logs" {
		t.Errorf("unexpected order: %+v", visits)
	}
}

func TestMemoryStore_Actions_Pagination(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := activity.NewMemoryStore()
	base := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)

	for i := range 25 {
		require.NoError(t, store.LogAction(ctx, &activity.Action{
			UserID:     1,
			ActionType: "Uploaded File",
			TargetType: "DriveFile",
			TargetID:   int64(i),
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	page, err := store.Actions(ctx, activity.Filter{UserID: 1}, activity.Page{Number: 3, Size: 10})
	require.NoError(t, err)

	if page.TotalCount != 25 {
		t.Errorf("expected total 25, got %d", page.TotalCount)
	}

	if page.PageCount != 3 {
		t.Errorf("expected 3 pages, got %d", page.PageCount)
	}

	if len(page.Actions) != 5 {
		t.Fatalf("expected 5 actions on last page, got %d", len(page.Actions))
	}

	// Newest first: the oldest action is last.
	if page.Actions[4].TargetID != 0 {
		t.Errorf("expected oldest action last, got target %d", page.Actions[4].TargetID)
	}
}

func TestMemoryStore_Actions_PastEnd(t *testing.T) {
	t.Parallel()

	page, err := activity.NewMemoryStore().Actions(context.Background(), activity.Filter{}, activity.Page{Number: 4})
	require.NoError(t, err)

	if len(page.Actions) != 0 || page.TotalCount != 0 {
		t.Errorf("expected empty page, got %+v", page)
	}
}

func TestMemoryStore_ConcurrentVisits(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := activity.NewMemoryStore()

	var wg sync.WaitGroup

	for range 20 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			// Note: Using _ here since require is not goroutine-safe
			_ = store.RecordVisit(ctx, &activity.Visit{UserID: 1, Route: "/drive"})
		}()
	}

	wg.Wait()

	visits, err := store.Visits(ctx, 1, 0)
	require.NoError(t, err)

	if len(visits) != 20 {
		t.Errorf("expected 20 visits, got %d", len(visits))
	}
}

// errorStore is a mock store that returns errors for testing.
type errorStore struct {
	err error
}

func (e *errorStore) RecordVisit(context.Context, *activity.Visit) error { return e.err }

func (e *errorStore) Visits(context.Context, int64, int) ([]activity.Visit, error) {
	return nil, e.err
}

func (e *errorStore) LogAction(context.Context, *activity.Action) error { return e.err }

func (e *errorStore) Actions(context.Context, activity.Filter, activity.Page) (activity.ActionPage, error) {
	return activity.ActionPage{}, e.err
}

func TestRecorder_SwallowsStoreErrors(t *testing.T) {
	t.Parallel()

	recorder := activity.NewRecorder(activity.RecorderConfig{
		Store: &errorStore{err: errors.New("store down")},
	})

	// Must not panic or propagate.
	recorder.Visit(context.Background(), 1, "alice", "/drive")
	recorder.Action(context.Background(), 1, "Created Folder", "DriveFolder", 100000, "Created folder: x")
}

func TestRecorder_UsesClock(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)
	store := activity.NewMemoryStore()
	recorder := activity.NewRecorder(activity.RecorderConfig{
		Store: store,
		Now:   func() time.Time { return at },
	})

	recorder.Visit(context.Background(), 3, "carol", "/tickets")

	visits, err := store.Visits(context.Background(), 3, 0)
	require.NoError(t, err)
	require.Len(t, visits, 1)

	if !visits[0].VisitedAt.Equal(at) || visits[0].Username != "carol" {
		t.Errorf("unexpected visit %+v", visits[0])
	}
}

func TestRecorder_NilIsNoop(t *testing.T) {
	t.Parallel()

	var recorder *activity.Recorder

	recorder.Visit(context.Background(), 1, "a", "/")
	recorder.Action(context.Background(), 1, "x", "y", 0, "")
}
