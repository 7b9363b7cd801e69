package drive_test

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/serroba/opsportal/internal/activity"
	"github.com/serroba/opsportal/internal/blob"
	"github.com/serroba/opsportal/internal/drive"
	"github.com/serroba/opsportal/internal/events"
	"github.com/serroba/opsportal/internal/user"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const (
	alice int64 = 7
	bob   int64 = 8
	carol int64 = 9
)

// clock advances one millisecond per reading so blob names never repeat.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.t = c.t.Add(time.Millisecond)

	return c.t
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingNotifier) Notify(_ context.Context, e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, e)
}

func (r *recordingNotifier) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]events.Type, len(r.events))
	for i, e := range r.events {
		result[i] = e.Type
	}

	return result
}

func (r *recordingNotifier) last() events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.events[len(r.events)-1]
}

type fixture struct {
	mgr      *drive.Manager
	store    *drive.MemoryStore
	blobs    *blob.Store
	fs       afero.Fs
	activity *activity.MemoryStore
	notes    *recordingNotifier
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	return newFixtureWith(t, nil)
}

// newFixtureWith builds a manager; wrap, when given, decorates the store
// the manager sees.
func newFixtureWith(t *testing.T, wrap func(drive.Store) drive.Store) fixture {
	t.Helper()

	ctx := context.Background()

	users := user.NewMemoryStore()
	require.NoError(t, users.Create(ctx, &user.User{ID: alice, Username: "alice", Roles: []string{"admin"}}))
	require.NoError(t, users.Create(ctx, &user.User{ID: bob, Username: "bob", Roles: []string{"staff"}}))
	require.NoError(t, users.Create(ctx, &user.User{ID: carol, Username: "carol", Roles: []string{"staff"}}))

	store := drive.NewMemoryStore()

	var managed drive.Store = store
	if wrap != nil {
		managed = wrap(store)
	}

	fs := afero.NewMemMapFs()
	blobs := blob.NewStore(fs, "uploads/drive")
	log := activity.NewMemoryStore()
	notes := &recordingNotifier{}
	clk := &clock{t: time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)}

	mgr := drive.NewManager(drive.ManagerConfig{
		Store:    managed,
		Blobs:    blobs,
		Users:    users,
		Recorder: activity.NewRecorder(activity.RecorderConfig{Store: log, Now: clk.Now}),
		Notifier: notes,
		Now:      clk.Now,
	})

	return fixture{mgr: mgr, store: store, blobs: blobs, fs: fs, activity: log, notes: notes}
}

func (f fixture) folder(t *testing.T, name string, parentID *int64, ownerID int64) drive.Folder {
	t.Helper()

	folder, err := f.mgr.CreateFolder(context.Background(), name, parentID, ownerID)
	require.NoError(t, err)

	return folder
}

func (f fixture) upload(t *testing.T, name string, folderID *int64, ownerID int64) drive.File {
	t.Helper()

	file, err := f.mgr.UploadFile(context.Background(), drive.Upload{
		Name:     name,
		FolderID: folderID,
		Content:  strings.NewReader("content of " + name),
	}, ownerID)
	require.NoError(t, err)

	return file
}

func (f fixture) actions(t *testing.T, actionType string) []activity.Action {
	t.Helper()

	page, err := f.activity.Actions(context.Background(), activity.Filter{ActionType: actionType}, activity.Page{Size: 100})
	require.NoError(t, err)

	return page.Actions
}

func (f fixture) blobExists(t *testing.T, name string) bool {
	t.Helper()

	ok, err := f.blobs.Exists(name)
	require.NoError(t, err)

	return ok
}

// blobCount returns the number of stored blobs.
func (f fixture) blobCount(t *testing.T) int {
	t.Helper()

	ok, err := afero.DirExists(f.fs, "uploads/drive")
	require.NoError(t, err)

	if !ok {
		return 0
	}

	entries, err := afero.ReadDir(f.fs, "uploads/drive")
	require.NoError(t, err)

	return len(entries)
}

func readAll(t *testing.T, r io.ReadCloser) string {
	t.Helper()

	defer r.Close()

	data, err := io.ReadAll(r)
	require.NoError(t, err)

	return string(data)
}

func ptr(v int64) *int64 {
	return &v
}

func names[T any](items []T, name func(T) string) []string {
	result := make([]string, len(items))
	for i, item := range items {
		result[i] = name(item)
	}

	return result
}

func fileNames(files []drive.File) []string {
	return names(files, func(f drive.File) string { return f.Name })
}

func folderNames(folders []drive.Folder) []string {
	return names(folders, func(f drive.Folder) string { return f.Name })
}

// faults makes selected store calls fail.
type faults struct {
	deleteFolders  error
	createFile     error
	updateFileName error
}

// faultStore injects faults into a store and every transaction it opens.
type faultStore struct {
	drive.Store
	f *faults
}

func (s faultStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx drive.Store) error) error {
	return s.Store.WithinTx(ctx, func(ctx context.Context, tx drive.Store) error {
		return fn(ctx, faultStore{Store: tx, f: s.f})
	})
}

func (s faultStore) DeleteFolders(ctx context.Context, ids []int64) error {
	if s.f.deleteFolders != nil {
		return s.f.deleteFolders
	}

	return s.Store.DeleteFolders(ctx, ids)
}

func (s faultStore) CreateFile(ctx context.Context, file *drive.File) error {
	if s.f.createFile != nil {
		return s.f.createFile
	}

	return s.Store.CreateFile(ctx, file)
}

func (s faultStore) UpdateFileName(ctx context.Context, id int64, name, fileType, blobName, url string) error {
	if s.f.updateFileName != nil {
		return s.f.updateFileName
	}

	return s.Store.UpdateFileName(ctx, id, name, fileType, blobName, url)
}

func withFaults(f *faults) func(drive.Store) drive.Store {
	return func(s drive.Store) drive.Store {
		return faultStore{Store: s, f: f}
	}
}
