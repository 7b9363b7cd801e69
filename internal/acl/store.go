package acl

import (
	"context"
	"errors"
)

// ErrPermissionNotFound is returned when no route permission has the requested id.
var ErrPermissionNotFound = errors.New("permission not found")

// Store defines the interface for persisting route permissions.
type Store interface {
	// WithinTx runs fn as one atomic unit. If fn returns an error, none of
	// the writes made through tx are kept.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error

	// List returns all route permissions ordered by route.
	List(ctx context.Context) ([]RoutePermission, error)

	// ForRoute returns the entries whose route equals route.
	ForRoute(ctx context.Context, route string) ([]RoutePermission, error)

	// Get returns a route permission with its grants.
	// Returns ErrPermissionNotFound if it does not exist.
	Get(ctx context.Context, id int64) (RoutePermission, error)

	// Create inserts a route permission with its grants and assigns its ID.
	Create(ctx context.Context, p *RoutePermission) error

	// SetFields overwrites route and description.
	// Returns ErrPermissionNotFound if it does not exist.
	SetFields(ctx context.Context, id int64, route, description string) error

	// ReplaceRoles deletes every role grant of the permission and creates roles.
	ReplaceRoles(ctx context.Context, id int64, roles []string) error

	// ReplaceUsers deletes every user grant of the permission and creates userIDs.
	ReplaceUsers(ctx context.Context, id int64, userIDs []int64) error

	// Delete removes a route permission and all of its grants.
	// Returns ErrPermissionNotFound if it does not exist.
	Delete(ctx context.Context, id int64) error
}
