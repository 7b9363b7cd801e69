package acl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type pagePermissionRow struct {
	ID           int64  `gorm:"primaryKey"`
	Route        string `gorm:"size:255;index;not null"`
	Description  string `gorm:"type:text"`
	CreatedAt    time.Time
	AllowedRoles []rolePermissionRow `gorm:"foreignKey:PagePermissionID;constraint:OnDelete:CASCADE"`
	AllowedUsers []userPermissionRow `gorm:"foreignKey:PagePermissionID;constraint:OnDelete:CASCADE"`
}

func (pagePermissionRow) TableName() string {
	return "page_permissions"
}

type rolePermissionRow struct {
	ID               int64  `gorm:"primaryKey"`
	RoleName         string `gorm:"size:100;not null"`
	PagePermissionID int64  `gorm:"index;not null"`
}

func (rolePermissionRow) TableName() string {
	return "role_permissions"
}

type userPermissionRow struct {
	ID               int64 `gorm:"primaryKey"`
	UserID           int64 `gorm:"index;not null"`
	PagePermissionID int64 `gorm:"index;not null"`
}

func (userPermissionRow) TableName() string {
	return "user_permissions"
}

func (r pagePermissionRow) toPermission() RoutePermission {
	p := RoutePermission{
		ID:          r.ID,
		Route:       r.Route,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
		Roles:       make([]string, 0, len(r.AllowedRoles)),
		UserIDs:     make([]int64, 0, len(r.AllowedUsers)),
	}

	for _, role := range r.AllowedRoles {
		p.Roles = append(p.Roles, role.RoleName)
	}

	for _, u := range r.AllowedUsers {
		p.UserIDs = append(p.UserIDs, u.UserID)
	}

	return p
}

// GormStore is a relational implementation of the Store interface.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a permission store backed by db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the permission tables.
func (s *GormStore) Migrate(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(&pagePermissionRow{}, &rolePermissionRow{}, &userPermissionRow{})
	if err != nil {
		return fmt.Errorf("failed to migrate permissions: %w", err)
	}

	return nil
}

// WithinTx runs fn in a database transaction.
func (s *GormStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &GormStore{db: tx})
	})
}

func (s *GormStore) withGrants(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Preload("AllowedRoles").Preload("AllowedUsers")
}

// List returns all route permissions ordered by route.
func (s *GormStore) List(ctx context.Context) ([]RoutePermission, error) {
	var rows []pagePermissionRow

	if err := s.withGrants(ctx).Order("route ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}

	return toPermissions(rows), nil
}

// ForRoute returns the entries whose route equals route.
func (s *GormStore) ForRoute(ctx context.Context, route string) ([]RoutePermission, error) {
	var rows []pagePermissionRow

	if err := s.withGrants(ctx).Where("route = ?", route).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get permissions for route: %w", err)
	}

	return toPermissions(rows), nil
}

// Get returns a route permission with its grants.
func (s *GormStore) Get(ctx context.Context, id int64) (RoutePermission, error) {
	var row pagePermissionRow

	err := s.withGrants(ctx).First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return RoutePermission{}, ErrPermissionNotFound
	}

	if err != nil {
		return RoutePermission{}, fmt.Errorf("failed to get permission: %w", err)
	}

	return row.toPermission(), nil
}

// Create inserts a route permission; gorm inserts the grant rows with it.
func (s *GormStore) Create(ctx context.Context, p *RoutePermission) error {
	row := pagePermissionRow{
		Route:       p.Route,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
	}

	for _, role := range p.Roles {
		row.AllowedRoles = append(row.AllowedRoles, rolePermissionRow{RoleName: role})
	}

	for _, id := range p.UserIDs {
		row.AllowedUsers = append(row.AllowedUsers, userPermissionRow{UserID: id})
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create permission: %w", err)
	}

	p.ID = row.ID
	p.CreatedAt = row.CreatedAt

	return nil
}

// SetFields overwrites route and description.
func (s *GormStore) SetFields(ctx context.Context, id int64, route, description string) error {
	result := s.db.WithContext(ctx).
		Model(&pagePermissionRow{}).
		Where("id = ?", id).
		Updates(map[string]any{"route": route, "description": description})
	if result.Error != nil {
		return fmt.Errorf("failed to update permission: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrPermissionNotFound
	}

	return nil
}

// ReplaceRoles deletes every role grant of the permission and creates roles.
func (s *GormStore) ReplaceRoles(ctx context.Context, id int64, roles []string) error {
	db := s.db.WithContext(ctx)

	if err := db.Where("page_permission_id = ?", id).Delete(&rolePermissionRow{}).Error; err != nil {
		return fmt.Errorf("failed to delete role grants: %w", err)
	}

	if len(roles) == 0 {
		return nil
	}

	rows := make([]rolePermissionRow, len(roles))
	for i, role := range roles {
		rows[i] = rolePermissionRow{RoleName: role, PagePermissionID: id}
	}

	if err := db.Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to create role grants: %w", err)
	}

	return nil
}

// ReplaceUsers deletes every user grant of the permission and creates userIDs.
func (s *GormStore) ReplaceUsers(ctx context.Context, id int64, userIDs []int64) error {
	db := s.db.WithContext(ctx)

	if err := db.Where("page_permission_id = ?", id).Delete(&userPermissionRow{}).Error; err != nil {
		return fmt.Errorf("failed to delete user grants: %w", err)
	}

	if len(userIDs) == 0 {
		return nil
	}

	rows := make([]userPermissionRow, len(userIDs))
	for i, userID := range userIDs {
		rows[i] = userPermissionRow{UserID: userID, PagePermissionID: id}
	}

	if err := db.Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to create user grants: %w", err)
	}

	return nil
}

// Delete removes a route permission and its grants in one transaction.
func (s *GormStore) Delete(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("page_permission_id = ?", id).Delete(&rolePermissionRow{}).Error; err != nil {
			return fmt.Errorf("failed to delete role grants: %w", err)
		}

		if err := tx.Where("page_permission_id = ?", id).Delete(&userPermissionRow{}).Error; err != nil {
			return fmt.Errorf("failed to delete user grants: %w", err)
		}

		result := tx.Delete(&pagePermissionRow{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete permission: %w", result.Error)
		}

		if result.RowsAffected == 0 {
			return ErrPermissionNotFound
		}

		return nil
	})
}

func toPermissions(rows []pagePermissionRow) []RoutePermission {
	result := make([]RoutePermission, len(rows))
	for i, r := range rows {
		result[i] = r.toPermission()
	}

	return result
}

// Ensure GormStore implements Store.
var _ Store = (*GormStore)(nil)
