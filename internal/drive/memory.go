package drive

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"
)

type permissionKey struct {
	fileID int64
	userID int64
}

// MemoryStore is an in-memory implementation of the Store interface.
//
// Writers are serialized by writeMu. A transaction works on a private copy
// of the state that replaces the committed one only when fn succeeds, so
// readers never see uncommitted writes. Inside fn, use the tx argument:
// writing through the MemoryStore itself would wait for the transaction.
type MemoryStore struct {
	writeMu sync.Mutex

	mu    sync.RWMutex
	state *memoryState
}

type memoryState struct {
	folders     map[int64]Folder
	files       map[int64]File
	permissions map[permissionKey]FilePermission
	nextFileID  int64
}

func (s *memoryState) clone() *memoryState {
	return &memoryState{
		folders:     maps.Clone(s.folders),
		files:       maps.Clone(s.files),
		permissions: maps.Clone(s.permissions),
		nextFileID:  s.nextFileID,
	}
}

// NewMemoryStore creates a new in-memory drive store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: &memoryState{
			folders:     make(map[int64]Folder),
			files:       make(map[int64]File),
			permissions: make(map[permissionKey]FilePermission),
			nextFileID:  1,
		},
	}
}

// WithinTx runs fn atomically against a staged copy of the state.
func (m *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.RLock()
	staged := m.state.clone()
	m.mu.RUnlock()

	if err := fn(ctx, memoryTx{staged}); err != nil {
		return err
	}

	m.mu.Lock()
	m.state = staged
	m.mu.Unlock()

	return nil
}

// LockOwner is a no-op: writers are already serialized.
func (m *MemoryStore) LockOwner(context.Context, int64) error {
	return nil
}

func (m *MemoryStore) write(fn func(s *memoryState) error) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	return fn(m.state)
}

func read[T any](m *MemoryStore, fn func(s *memoryState) (T, error)) (T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return fn(m.state)
}

// MaxFolderID returns the highest id in [lo, hi) among folders of ownerID.
func (m *MemoryStore) MaxFolderID(ctx context.Context, ownerID, lo, hi int64) (int64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state.MaxFolderID(ctx, ownerID, lo, hi)
}

// CreateFolder inserts a folder with its explicit ID.
func (m *MemoryStore) CreateFolder(ctx context.Context, f *Folder) error {
	return m.write(func(s *memoryState) error { return s.CreateFolder(ctx, f) })
}

// GetFolder returns a folder by id.
func (m *MemoryStore) GetFolder(ctx context.Context, id int64) (Folder, error) {
	return read(m, func(s *memoryState) (Folder, error) { return s.GetFolder(ctx, id) })
}

// ListFolders returns the folders of ownerID directly under parentID.
func (m *MemoryStore) ListFolders(ctx context.Context, parentID *int64, ownerID int64) ([]Folder, error) {
	return read(m, func(s *memoryState) ([]Folder, error) { return s.ListFolders(ctx, parentID, ownerID) })
}

// ChildFolderIDs returns the ids of the folders directly under parentID.
func (m *MemoryStore) ChildFolderIDs(ctx context.Context, parentID int64) ([]int64, error) {
	return read(m, func(s *memoryState) ([]int64, error) { return s.ChildFolderIDs(ctx, parentID) })
}

// RenameFolder sets a folder's name.
func (m *MemoryStore) RenameFolder(ctx context.Context, id int64, name string) error {
	return m.write(func(s *memoryState) error { return s.RenameFolder(ctx, id, name) })
}

// MoveFolder sets a folder's parent.
func (m *MemoryStore) MoveFolder(ctx context.Context, id int64, parentID *int64) error {
	return m.write(func(s *memoryState) error { return s.MoveFolder(ctx, id, parentID) })
}

// DeleteFolders removes the folders with the given ids.
func (m *MemoryStore) DeleteFolders(ctx context.Context, ids []int64) error {
	return m.write(func(s *memoryState) error { return s.DeleteFolders(ctx, ids) })
}

// CreateFile inserts a file and assigns its ID.
func (m *MemoryStore) CreateFile(ctx context.Context, f *File) error {
	return m.write(func(s *memoryState) error { return s.CreateFile(ctx, f) })
}

// GetFile returns a file by id.
func (m *MemoryStore) GetFile(ctx context.Context, id int64) (File, error) {
	return read(m, func(s *memoryState) (File, error) { return s.GetFile(ctx, id) })
}

// FileByBlob returns the file stored under a blob name.
func (m *MemoryStore) FileByBlob(ctx context.Context, blob string) (File, error) {
	return read(m, func(s *memoryState) (File, error) { return s.FileByBlob(ctx, blob) })
}

// ListFiles returns the files under folderID visible to viewerID.
func (m *MemoryStore) ListFiles(ctx context.Context, folderID *int64, viewerID int64) ([]File, error) {
	return read(m, func(s *memoryState) ([]File, error) { return s.ListFiles(ctx, folderID, viewerID) })
}

// FilesInFolders returns every file directly inside any of folderIDs.
func (m *MemoryStore) FilesInFolders(ctx context.Context, folderIDs []int64) ([]File, error) {
	return read(m, func(s *memoryState) ([]File, error) { return s.FilesInFolders(ctx, folderIDs) })
}

// FileNameExists reports whether ownerID has a file called name under folderID.
func (m *MemoryStore) FileNameExists(ctx context.Context, ownerID int64, folderID *int64, name string) (bool, error) {
	return read(m, func(s *memoryState) (bool, error) { return s.FileNameExists(ctx, ownerID, folderID, name) })
}

// UpdateFileName sets a file's name, type, blob and URL.
func (m *MemoryStore) UpdateFileName(ctx context.Context, id int64, name, fileType, blob, url string) error {
	return m.write(func(s *memoryState) error { return s.UpdateFileName(ctx, id, name, fileType, blob, url) })
}

// MoveFile sets a file's folder.
func (m *MemoryStore) MoveFile(ctx context.Context, id int64, folderID *int64) error {
	return m.write(func(s *memoryState) error { return s.MoveFile(ctx, id, folderID) })
}

// DeleteFiles removes the files with the given ids.
func (m *MemoryStore) DeleteFiles(ctx context.Context, ids []int64) error {
	return m.write(func(s *memoryState) error { return s.DeleteFiles(ctx, ids) })
}

// UpsertPermission creates or overwrites the grant for (FileID, UserID).
func (m *MemoryStore) UpsertPermission(ctx context.Context, p *FilePermission) error {
	return m.write(func(s *memoryState) error { return s.UpsertPermission(ctx, p) })
}

// GetPermission returns the grant for (fileID, userID).
func (m *MemoryStore) GetPermission(ctx context.Context, fileID, userID int64) (FilePermission, error) {
	return read(m, func(s *memoryState) (FilePermission, error) { return s.GetPermission(ctx, fileID, userID) })
}

// ListPermissions returns the grants of a file ordered by grant time.
func (m *MemoryStore) ListPermissions(ctx context.Context, fileID int64) ([]FilePermission, error) {
	return read(m, func(s *memoryState) ([]FilePermission, error) { return s.ListPermissions(ctx, fileID) })
}

// DeletePermission removes one grant.
func (m *MemoryStore) DeletePermission(ctx context.Context, fileID, userID int64) error {
	return m.write(func(s *memoryState) error { return s.DeletePermission(ctx, fileID, userID) })
}

// DeletePermissionsForFiles removes every grant on the given files.
func (m *MemoryStore) DeletePermissionsForFiles(ctx context.Context, fileIDs []int64) error {
	return m.write(func(s *memoryState) error { return s.DeletePermissionsForFiles(ctx, fileIDs) })
}

func (s *memoryState) MaxFolderID(_ context.Context, ownerID, lo, hi int64) (int64, bool, error) {
	var (
		maxID int64
		found bool
	)

	for id, f := range s.folders {
		if f.OwnerID == ownerID && id >= lo && id < hi && (!found || id > maxID) {
			maxID, found = id, true
		}
	}

	return maxID, found, nil
}

func (s *memoryState) CreateFolder(_ context.Context, f *Folder) error {
	if _, exists := s.folders[f.ID]; exists {
		return ErrDuplicateID
	}

	now := time.Now()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}

	f.UpdatedAt = now
	s.folders[f.ID] = cloneFolder(*f)

	return nil
}

func (s *memoryState) GetFolder(_ context.Context, id int64) (Folder, error) {
	f, exists := s.folders[id]
	if !exists {
		return Folder{}, ErrFolderNotFound
	}

	return cloneFolder(f), nil
}

func (s *memoryState) ListFolders(_ context.Context, parentID *int64, ownerID int64) ([]Folder, error) {
	result := make([]Folder, 0)

	for _, f := range s.folders {
		if f.OwnerID == ownerID && sameFolder(f.ParentID, parentID) {
			result = append(result, cloneFolder(f))
		}
	}

	slices.SortFunc(result, func(a, b Folder) int {
		return cmp.Or(strings.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})

	return result, nil
}

func (s *memoryState) ChildFolderIDs(_ context.Context, parentID int64) ([]int64, error) {
	var ids []int64

	for id, f := range s.folders {
		if f.ParentID != nil && *f.ParentID == parentID {
			ids = append(ids, id)
		}
	}

	slices.Sort(ids)

	return ids, nil
}

func (s *memoryState) RenameFolder(_ context.Context, id int64, name string) error {
	return s.modifyFolder(id, func(f *Folder) {
		f.Name = name
	})
}

func (s *memoryState) MoveFolder(_ context.Context, id int64, parentID *int64) error {
	return s.modifyFolder(id, func(f *Folder) {
		f.ParentID = cloneID(parentID)
	})
}

func (s *memoryState) modifyFolder(id int64, fn func(f *Folder)) error {
	f, exists := s.folders[id]
	if !exists {
		return ErrFolderNotFound
	}

	fn(&f)
	f.UpdatedAt = time.Now()
	s.folders[id] = f

	return nil
}

func (s *memoryState) DeleteFolders(_ context.Context, ids []int64) error {
	for _, id := range ids {
		delete(s.folders, id)
	}

	return nil
}

func (s *memoryState) CreateFile(_ context.Context, f *File) error {
	f.ID = s.nextFileID
	s.nextFileID++

	now := time.Now()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}

	f.UpdatedAt = now
	s.files[f.ID] = cloneFile(*f)

	return nil
}

func (s *memoryState) GetFile(_ context.Context, id int64) (File, error) {
	f, exists := s.files[id]
	if !exists {
		return File{}, ErrFileNotFound
	}

	return cloneFile(f), nil
}

func (s *memoryState) FileByBlob(_ context.Context, blob string) (File, error) {
	for _, f := range s.files {
		if f.Blob == blob {
			return cloneFile(f), nil
		}
	}

	return File{}, ErrFileNotFound
}

func (s *memoryState) ListFiles(_ context.Context, folderID *int64, viewerID int64) ([]File, error) {
	result := make([]File, 0)

	for _, f := range s.files {
		if !sameFolder(f.FolderID, folderID) {
			continue
		}

		_, shared := s.permissions[permissionKey{f.ID, viewerID}]
		if f.OwnerID == viewerID || shared {
			result = append(result, cloneFile(f))
		}
	}

	slices.SortFunc(result, func(a, b File) int {
		return cmp.Or(cmp.Compare(a.Order, b.Order), strings.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})

	return result, nil
}

func (s *memoryState) FilesInFolders(_ context.Context, folderIDs []int64) ([]File, error) {
	var result []File

	for _, f := range s.files {
		if f.FolderID != nil && slices.Contains(folderIDs, *f.FolderID) {
			result = append(result, cloneFile(f))
		}
	}

	slices.SortFunc(result, func(a, b File) int {
		return cmp.Compare(a.ID, b.ID)
	})

	return result, nil
}

func (s *memoryState) FileNameExists(_ context.Context, ownerID int64, folderID *int64, name string) (bool, error) {
	for _, f := range s.files {
		if f.OwnerID == ownerID && f.Name == name && sameFolder(f.FolderID, folderID) {
			return true, nil
		}
	}

	return false, nil
}

func (s *memoryState) UpdateFileName(_ context.Context, id int64, name, fileType, blob, url string) error {
	return s.modifyFile(id, func(f *File) {
		f.Name = name
		f.Type = fileType
		f.Blob = blob
		f.URL = url
	})
}

func (s *memoryState) MoveFile(_ context.Context, id int64, folderID *int64) error {
	return s.modifyFile(id, func(f *File) {
		f.FolderID = cloneID(folderID)
	})
}

func (s *memoryState) modifyFile(id int64, fn func(f *File)) error {
	f, exists := s.files[id]
	if !exists {
		return ErrFileNotFound
	}

	fn(&f)
	f.UpdatedAt = time.Now()
	s.files[id] = f

	return nil
}

func (s *memoryState) DeleteFiles(_ context.Context, ids []int64) error {
	for _, id := range ids {
		delete(s.files, id)
	}

	return nil
}

func (s *memoryState) UpsertPermission(_ context.Context, p *FilePermission) error {
	if _, exists := s.files[p.FileID]; !exists {
		return ErrFileNotFound
	}

	if p.GrantedAt.IsZero() {
		p.GrantedAt = time.Now()
	}

	s.permissions[permissionKey{p.FileID, p.UserID}] = *p

	return nil
}

func (s *memoryState) GetPermission(_ context.Context, fileID, userID int64) (FilePermission, error) {
	p, exists := s.permissions[permissionKey{fileID, userID}]
	if !exists {
		return FilePermission{}, ErrPermissionNotFound
	}

	return p, nil
}

func (s *memoryState) ListPermissions(_ context.Context, fileID int64) ([]FilePermission, error) {
	result := make([]FilePermission, 0)

	for key, p := range s.permissions {
		if key.fileID == fileID {
			result = append(result, p)
		}
	}

	slices.SortFunc(result, func(a, b FilePermission) int {
		return cmp.Or(a.GrantedAt.Compare(b.GrantedAt), cmp.Compare(a.UserID, b.UserID))
	})

	return result, nil
}

func (s *memoryState) DeletePermission(_ context.Context, fileID, userID int64) error {
	key := permissionKey{fileID, userID}
	if _, exists := s.permissions[key]; !exists {
		return ErrPermissionNotFound
	}

	delete(s.permissions, key)

	return nil
}

func (s *memoryState) DeletePermissionsForFiles(_ context.Context, fileIDs []int64) error {
	for key := range s.permissions {
		if slices.Contains(fileIDs, key.fileID) {
			delete(s.permissions, key)
		}
	}

	return nil
}

// Counts returns the number of folders, files and grants held.
func (m *MemoryStore) Counts() (folders, files, permissions int) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.state.folders), len(m.state.files), len(m.state.permissions)
}

func cloneID(id *int64) *int64 {
	if id == nil {
		return nil
	}

	return ptr(*id)
}

func cloneFolder(f Folder) Folder {
	f.ParentID = cloneID(f.ParentID)

	return f
}

func cloneFile(f File) File {
	f.FolderID = cloneID(f.FolderID)

	return f
}

// memoryTx is the Store handed to a transaction body. It writes to the
// staged state only; nested transactions join the outer one.
type memoryTx struct {
	*memoryState
}

func (t memoryTx) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return fn(ctx, t)
}

func (memoryTx) LockOwner(context.Context, int64) error {
	return nil
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

var _ Store = memoryTx{}
