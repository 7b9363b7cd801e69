package activity

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type visitRow struct {
	ID        int64     `gorm:"primaryKey"`
	UserID    int64     `gorm:"index;not null"`
	Username  string    `gorm:"size:150"`
	Page      string    `gorm:"size:255;not null"`
	LoginTime time.Time `gorm:"index;not null"`
}

func (visitRow) TableName() string {
	return "user_activities"
}

type actionRow struct {
	ID         int64     `gorm:"primaryKey"`
	UserID     int64     `gorm:"index;not null"`
	ActionType string    `gorm:"size:100;index;not null"`
	TargetType string    `gorm:"size:100;index;not null"`
	TargetID   int64
	Details    string    `gorm:"type:text"`
	Timestamp  time.Time `gorm:"index;not null"`
}

func (actionRow) TableName() string {
	return "activity_logs"
}

func (r actionRow) toAction() Action {
	return Action{
		ID:         r.ID,
		UserID:     r.UserID,
		ActionType: r.ActionType,
		TargetType: r.TargetType,
		TargetID:   r.TargetID,
		Details:    r.Details,
		Timestamp:  r.Timestamp,
	}
}

// GormStore is a relational implementation of the Store interface.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates an activity store backed by db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the activity tables.
func (s *GormStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&visitRow{}, &actionRow{}); err != nil {
		return fmt.Errorf("failed to migrate activity: %w", err)
	}

	return nil
}

// RecordVisit appends a visit.
func (s *GormStore) RecordVisit(ctx context.Context, v *Visit) error {
	row := visitRow{
		UserID:    v.UserID,
		Username:  v.Username,
		Page:      v.Route,
		LoginTime: v.VisitedAt,
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to record visit: %w", err)
	}

	v.ID = row.ID

	return nil
}

// Visits returns the most recent visits of a user, newest first.
func (s *GormStore) Visits(ctx context.Context, userID int64, limit int) ([]Visit, error) {
	query := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("login_time DESC, id DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []visitRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}

	visits := make([]Visit, len(rows))
	for i, r := range rows {
		visits[i] = Visit{
			ID:        r.ID,
			UserID:    r.UserID,
			Username:  r.Username,
			Route:     r.Page,
			VisitedAt: r.LoginTime,
		}
	}

	return visits, nil
}

// LogAction appends an action.
func (s *GormStore) LogAction(ctx context.Context, a *Action) error {
	row := actionRow{
		UserID:     a.UserID,
		ActionType: a.ActionType,
		TargetType: a.TargetType,
		TargetID:   a.TargetID,
		Details:    a.Details,
		Timestamp:  a.Timestamp,
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to log action: %w", err)
	}

	a.ID = row.ID

	return nil
}

// Actions returns a page of matching actions, newest first.
func (s *GormStore) Actions(ctx context.Context, filter Filter, page Page) (ActionPage, error) {
	var total int64

	err := s.db.WithContext(ctx).
		Model(&actionRow{}).
		Scopes(filterScope(filter)).
		Count(&total).Error
	if err != nil {
		return ActionPage{}, fmt.Errorf("failed to count actions: %w", err)
	}

	var rows []actionRow

	err = s.db.WithContext(ctx).
		Scopes(filterScope(filter)).
		Order("timestamp DESC, id DESC").
		Offset(page.Offset()).
		Limit(page.Limit()).
		Find(&rows).Error
	if err != nil {
		return ActionPage{}, fmt.Errorf("failed to list actions: %w", err)
	}

	actions := make([]Action, len(rows))
	for i, r := range rows {
		actions[i] = r.toAction()
	}

	return newActionPage(actions, int(total), page), nil
}

func filterScope(filter Filter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filter.UserID != 0 {
			db = db.Where("user_id = ?", filter.UserID)
		}

		if filter.ActionType != "" {
			db = db.Where("action_type = ?", filter.ActionType)
		}

		if filter.TargetType != "" {
			db = db.Where("target_type = ?", filter.TargetType)
		}

		if !filter.Since.IsZero() {
			db = db.Where("timestamp >= ?", filter.Since)
		}

		return db
	}
}

// Ensure GormStore implements Store.
var _ Store = (*GormStore)(nil)
