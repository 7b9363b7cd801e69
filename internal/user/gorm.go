package user

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// userRow is the persisted shape of a user. Role holds either a single role
// name or a JSON array of names; ParseRoles normalizes both.
type userRow struct {
	ID       int64  `gorm:"primaryKey"`
	Username string `gorm:"uniqueIndex;size:150;not null"`
	Email    string `gorm:"size:255"`
	Role     string `gorm:"type:text"`
}

func (userRow) TableName() string {
	return "users"
}

func (r userRow) toUser() User {
	return User{
		ID:       r.ID,
		Username: r.Username,
		Email:    r.Email,
		Roles:    ParseRoles(r.Role),
	}
}

// GormStore is a relational implementation of the Store interface.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a user store backed by db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the users table.
func (s *GormStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&userRow{}); err != nil {
		return fmt.Errorf("failed to migrate users: %w", err)
	}

	return nil
}

// Get returns the user with the given id.
func (s *GormStore) Get(ctx context.Context, id int64) (User, error) {
	var row userRow

	err := s.db.WithContext(ctx).First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, ErrUserNotFound
	}

	if err != nil {
		return User{}, fmt.Errorf("failed to get user: %w", err)
	}

	return row.toUser(), nil
}

// List returns all users ordered by username.
func (s *GormStore) List(ctx context.Context) ([]User, error) {
	var rows []userRow

	if err := s.db.WithContext(ctx).Order("username ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]User, len(rows))
	for i, r := range rows {
		users[i] = r.toUser()
	}

	return users, nil
}

// Create inserts a user.
func (s *GormStore) Create(ctx context.Context, u *User) error {
	row := userRow{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     FormatRoles(u.Roles),
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	u.ID = row.ID

	return nil
}

// Ensure GormStore implements Store.
var _ Store = (*GormStore)(nil)
