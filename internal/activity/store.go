package activity

import "context"

// Store persists visits and actions.
type Store interface {
	// RecordVisit appends a visit and assigns its ID.
	RecordVisit(ctx context.Context, v *Visit) error

	// Visits returns the most recent visits of a user, newest first.
	// A non-positive limit returns all of them.
	Visits(ctx context.Context, userID int64, limit int) ([]Visit, error)

	// LogAction appends an action and assigns its ID.
	LogAction(ctx context.Context, a *Action) error

	// Actions returns a page of actions matching filter, newest first.
	Actions(ctx context.Context, filter Filter, page Page) (ActionPage, error)
}
