package activity

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Recorder writes activity on a best-effort basis: a failed write is logged
// and never reported to the caller.
type Recorder struct {
	store Store
	now   func() time.Time
}

// RecorderConfig holds configuration for creating a recorder.
type RecorderConfig struct {
	Store Store
	Now   func() time.Time
}

// NewRecorder creates a new best-effort recorder.
func NewRecorder(cfg RecorderConfig) *Recorder {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Recorder{store: cfg.Store, now: now}
}

// Visit records that a user navigated to route.
func (r *Recorder) Visit(ctx context.Context, userID int64, username, route string) {
	if r == nil || r.store == nil {
		return
	}

	v := &Visit{
		UserID:    userID,
		Username:  username,
		Route:     route,
		VisitedAt: r.now(),
	}

	if err := r.store.RecordVisit(ctx, v); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Str("route", route).Msg("Failed to record visit")
	}
}

// Action records a user-initiated mutation.
func (r *Recorder) Action(ctx context.Context, userID int64, actionType, targetType string, targetID int64, details string) {
	if r == nil || r.store == nil {
		return
	}

	a := &Action{
		UserID:     userID,
		ActionType: actionType,
		TargetType: targetType,
		TargetID:   targetID,
		Details:    details,
		Timestamp:  r.now(),
	}

	if err := r.store.LogAction(ctx, a); err != nil {
		log.Warn().
			Err(err).
			Int64("user_id", userID).
			Str("action_type", actionType).
			Str("target_type", targetType).
			Int64("target_id", targetID).
			Msg("Failed to log activity")
	}
}
