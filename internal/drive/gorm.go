package drive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// uniqueViolation is the postgres SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

type folderRow struct {
	ID        int64  `gorm:"primaryKey;autoIncrement:false"`
	Name      string `gorm:"size:255;not null"`
	ParentID  *int64 `gorm:"index"`
	OwnerID   int64  `gorm:"index;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (folderRow) TableName() string {
	return "drive_folders"
}

type fileRow struct {
	ID        int64  `gorm:"primaryKey"`
	Name      string `gorm:"size:255;not null"`
	Type      string `gorm:"size:50"`
	Size      int64
	SortOrder int    `gorm:"not null;default:0"`
	FolderID  *int64 `gorm:"index"`
	OwnerID   int64  `gorm:"index;not null"`
	URL       string `gorm:"size:512"`
	BlobName  string `gorm:"size:512;uniqueIndex"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (fileRow) TableName() string {
	return "drive_files"
}

type filePermissionRow struct {
	FileID    int64  `gorm:"primaryKey;autoIncrement:false"`
	UserID    int64  `gorm:"primaryKey;autoIncrement:false"`
	Access    string `gorm:"size:20;not null"`
	GrantedBy int64  `gorm:"not null"`
	GrantedAt time.Time
}

func (filePermissionRow) TableName() string {
	return "drive_file_permissions"
}

func (r folderRow) toFolder() Folder {
	return Folder{
		ID:        r.ID,
		Name:      r.Name,
		ParentID:  r.ParentID,
		OwnerID:   r.OwnerID,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (r fileRow) toFile() File {
	return File{
		ID:        r.ID,
		Name:      r.Name,
		Type:      r.Type,
		Size:      r.Size,
		Order:     r.SortOrder,
		FolderID:  r.FolderID,
		OwnerID:   r.OwnerID,
		URL:       r.URL,
		Blob:      r.BlobName,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (r filePermissionRow) toPermission() FilePermission {
	return FilePermission{
		FileID:    r.FileID,
		UserID:    r.UserID,
		Access:    Access(r.Access),
		GrantedBy: r.GrantedBy,
		GrantedAt: r.GrantedAt,
	}
}

// GormStore is a postgres implementation of the Store interface.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a drive store backed by db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the drive tables.
func (s *GormStore) Migrate(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(&folderRow{}, &fileRow{}, &filePermissionRow{})
	if err != nil {
		return fmt.Errorf("failed to migrate drive: %w", err)
	}

	return nil
}

// WithinTx runs fn in a database transaction.
func (s *GormStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &GormStore{db: tx})
	})
}

// LockOwner takes a transaction-scoped advisory lock keyed on the owner.
func (s *GormStore) LockOwner(ctx context.Context, ownerID int64) error {
	if err := s.db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(?)", ownerID).Error; err != nil {
		return fmt.Errorf("failed to lock owner %d: %w", ownerID, err)
	}

	return nil
}

// MaxFolderID returns the highest id in [lo, hi) among folders of ownerID.
func (s *GormStore) MaxFolderID(ctx context.Context, ownerID, lo, hi int64) (int64, bool, error) {
	var maxID *int64

	err := s.db.WithContext(ctx).
		Model(&folderRow{}).
		Where("owner_id = ? AND id >= ? AND id < ?", ownerID, lo, hi).
		Select("MAX(id)").
		Scan(&maxID).Error
	if err != nil {
		return 0, false, fmt.Errorf("failed to find latest folder id: %w", err)
	}

	if maxID == nil {
		return 0, false, nil
	}

	return *maxID, true, nil
}

// CreateFolder inserts a folder with its explicit ID.
func (s *GormStore) CreateFolder(ctx context.Context, f *Folder) error {
	row := folderRow{
		ID:        f.ID,
		Name:      f.Name,
		ParentID:  f.ParentID,
		OwnerID:   f.OwnerID,
		CreatedAt: f.CreatedAt,
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateID
		}

		return fmt.Errorf("failed to create folder: %w", err)
	}

	*f = row.toFolder()

	return nil
}

// GetFolder returns a folder by id.
func (s *GormStore) GetFolder(ctx context.Context, id int64) (Folder, error) {
	var row folderRow

	err := s.db.WithContext(ctx).First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Folder{}, ErrFolderNotFound
	}

	if err != nil {
		return Folder{}, fmt.Errorf("failed to get folder: %w", err)
	}

	return row.toFolder(), nil
}

// inFolder matches rows whose column equals id, treating nil as IS NULL.
func inFolder(db *gorm.DB, column string, id *int64) *gorm.DB {
	if id == nil {
		return db.Where(column + " IS NULL")
	}

	return db.Where(column+" = ?", *id)
}

// ListFolders returns the folders of ownerID directly under parentID.
func (s *GormStore) ListFolders(ctx context.Context, parentID *int64, ownerID int64) ([]Folder, error) {
	var rows []folderRow

	q := inFolder(s.db.WithContext(ctx), "parent_id", parentID).Where("owner_id = ?", ownerID)
	if err := q.Order("name ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}

	result := make([]Folder, len(rows))
	for i, r := range rows {
		result[i] = r.toFolder()
	}

	return result, nil
}

// ChildFolderIDs returns the ids of the folders directly under parentID.
func (s *GormStore) ChildFolderIDs(ctx context.Context, parentID int64) ([]int64, error) {
	var ids []int64

	err := s.db.WithContext(ctx).
		Model(&folderRow{}).
		Where("parent_id = ?", parentID).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list subfolders: %w", err)
	}

	return ids, nil
}

func (s *GormStore) updateFolder(ctx context.Context, id int64, values map[string]any) error {
	values["updated_at"] = time.Now()

	result := s.db.WithContext(ctx).Model(&folderRow{}).Where("id = ?", id).Updates(values)
	if result.Error != nil {
		return fmt.Errorf("failed to update folder: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrFolderNotFound
	}

	return nil
}

// RenameFolder sets a folder's name.
func (s *GormStore) RenameFolder(ctx context.Context, id int64, name string) error {
	return s.updateFolder(ctx, id, map[string]any{"name": name})
}

// MoveFolder sets a folder's parent.
func (s *GormStore) MoveFolder(ctx context.Context, id int64, parentID *int64) error {
	return s.updateFolder(ctx, id, map[string]any{"parent_id": parentID})
}

// DeleteFolders removes the folders with the given ids.
func (s *GormStore) DeleteFolders(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&folderRow{}).Error; err != nil {
		return fmt.Errorf("failed to delete folders: %w", err)
	}

	return nil
}

// CreateFile inserts a file and assigns its ID.
func (s *GormStore) CreateFile(ctx context.Context, f *File) error {
	row := fileRow{
		Name:      f.Name,
		Type:      f.Type,
		Size:      f.Size,
		SortOrder: f.Order,
		FolderID:  f.FolderID,
		OwnerID:   f.OwnerID,
		URL:       f.URL,
		BlobName:  f.Blob,
		CreatedAt: f.CreatedAt,
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	*f = row.toFile()

	return nil
}

func (s *GormStore) firstFile(ctx context.Context, query string, args ...any) (File, error) {
	var row fileRow

	err := s.db.WithContext(ctx).Where(query, args...).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return File{}, ErrFileNotFound
	}

	if err != nil {
		return File{}, fmt.Errorf("failed to get file: %w", err)
	}

	return row.toFile(), nil
}

// GetFile returns a file by id.
func (s *GormStore) GetFile(ctx context.Context, id int64) (File, error) {
	return s.firstFile(ctx, "id = ?", id)
}

// FileByBlob returns the file stored under a blob name.
func (s *GormStore) FileByBlob(ctx context.Context, blob string) (File, error) {
	return s.firstFile(ctx, "blob_name = ?", blob)
}

func toFiles(rows []fileRow) []File {
	result := make([]File, len(rows))
	for i, r := range rows {
		result[i] = r.toFile()
	}

	return result
}

// ListFiles returns the files under folderID visible to viewerID.
func (s *GormStore) ListFiles(ctx context.Context, folderID *int64, viewerID int64) ([]File, error) {
	var rows []fileRow

	shared := s.db.Model(&filePermissionRow{}).Select("file_id").Where("user_id = ?", viewerID)

	q := inFolder(s.db.WithContext(ctx), "folder_id", folderID).
		Where(s.db.Where("owner_id = ?", viewerID).Or("id IN (?)", shared))
	if err := q.Order("sort_order ASC, name ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return toFiles(rows), nil
}

// FilesInFolders returns every file directly inside any of folderIDs.
func (s *GormStore) FilesInFolders(ctx context.Context, folderIDs []int64) ([]File, error) {
	if len(folderIDs) == 0 {
		return nil, nil
	}

	var rows []fileRow

	if err := s.db.WithContext(ctx).Where("folder_id IN ?", folderIDs).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list folder files: %w", err)
	}

	return toFiles(rows), nil
}

// FileNameExists reports whether ownerID has a file called name under folderID.
func (s *GormStore) FileNameExists(ctx context.Context, ownerID int64, folderID *int64, name string) (bool, error) {
	var count int64

	q := inFolder(s.db.WithContext(ctx).Model(&fileRow{}), "folder_id", folderID).
		Where("owner_id = ? AND name = ?", ownerID, name)
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check file name: %w", err)
	}

	return count > 0, nil
}

func (s *GormStore) updateFile(ctx context.Context, id int64, values map[string]any) error {
	values["updated_at"] = time.Now()

	result := s.db.WithContext(ctx).Model(&fileRow{}).Where("id = ?", id).Updates(values)
	if result.Error != nil {
		return fmt.Errorf("failed to update file: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrFileNotFound
	}

	return nil
}

// UpdateFileName sets a file's name, type, blob and URL.
func (s *GormStore) UpdateFileName(ctx context.Context, id int64, name, fileType, blob, url string) error {
	return s.updateFile(ctx, id, map[string]any{
		"name":      name,
		"type":      fileType,
		"blob_name": blob,
		"url":       url,
	})
}

// MoveFile sets a file's folder.
func (s *GormStore) MoveFile(ctx context.Context, id int64, folderID *int64) error {
	return s.updateFile(ctx, id, map[string]any{"folder_id": folderID})
}

// DeleteFiles removes the files with the given ids.
func (s *GormStore) DeleteFiles(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&fileRow{}).Error; err != nil {
		return fmt.Errorf("failed to delete files: %w", err)
	}

	return nil
}

// UpsertPermission creates or overwrites the grant for (FileID, UserID).
func (s *GormStore) UpsertPermission(ctx context.Context, p *FilePermission) error {
	if p.GrantedAt.IsZero() {
		p.GrantedAt = time.Now()
	}

	row := filePermissionRow{
		FileID:    p.FileID,
		UserID:    p.UserID,
		Access:    string(p.Access),
		GrantedBy: p.GrantedBy,
		GrantedAt: p.GrantedAt,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "file_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"access", "granted_by", "granted_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save file permission: %w", err)
	}

	return nil
}

// GetPermission returns the grant for (fileID, userID).
func (s *GormStore) GetPermission(ctx context.Context, fileID, userID int64) (FilePermission, error) {
	var row filePermissionRow

	err := s.db.WithContext(ctx).Where("file_id = ? AND user_id = ?", fileID, userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return FilePermission{}, ErrPermissionNotFound
	}

	if err != nil {
		return FilePermission{}, fmt.Errorf("failed to get file permission: %w", err)
	}

	return row.toPermission(), nil
}

// ListPermissions returns the grants of a file ordered by grant time.
func (s *GormStore) ListPermissions(ctx context.Context, fileID int64) ([]FilePermission, error) {
	var rows []filePermissionRow

	err := s.db.WithContext(ctx).Where("file_id = ?", fileID).Order("granted_at ASC, user_id ASC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list file permissions: %w", err)
	}

	result := make([]FilePermission, len(rows))
	for i, r := range rows {
		result[i] = r.toPermission()
	}

	return result, nil
}

// DeletePermission removes one grant.
func (s *GormStore) DeletePermission(ctx context.Context, fileID, userID int64) error {
	result := s.db.WithContext(ctx).
		Where("file_id = ? AND user_id = ?", fileID, userID).
		Delete(&filePermissionRow{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete file permission: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrPermissionNotFound
	}

	return nil
}

// DeletePermissionsForFiles removes every grant on the given files.
func (s *GormStore) DeletePermissionsForFiles(ctx context.Context, fileIDs []int64) error {
	if len(fileIDs) == 0 {
		return nil
	}

	if err := s.db.WithContext(ctx).Where("file_id IN ?", fileIDs).Delete(&filePermissionRow{}).Error; err != nil {
		return fmt.Errorf("failed to delete file permissions: %w", err)
	}

	return nil
}

// Ensure GormStore implements Store.
var _ Store = (*GormStore)(nil)
