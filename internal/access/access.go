// Package access answers whether a user may open a route. Every check is
// recorded as a visit before the decision is returned.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/serroba/opsportal/internal/acl"
	"github.com/serroba/opsportal/internal/activity"
	"github.com/serroba/opsportal/internal/user"
)

// Error messages carried in a denied Result.
const (
	msgCheckFailed = "failed to check permission"
	msgUnknownUser = "user not found"
)

// Result is the outcome of a route check. A Result with a non-empty Error
// is a denial.
type Result struct {
	Granted bool   `json:"granted"`
	Error   string `json:"error,omitempty"`
}

// Checker combines user lookup, visit recording and permission evaluation.
type Checker struct {
	users    user.Store
	perms    acl.Store
	recorder *activity.Recorder
}

// CheckerConfig holds configuration for creating a checker.
type CheckerConfig struct {
	Users    user.Store
	Perms    acl.Store
	Recorder *activity.Recorder
}

// NewChecker creates a new route checker.
func NewChecker(cfg CheckerConfig) *Checker {
	return &Checker{
		users:    cfg.Users,
		perms:    cfg.Perms,
		recorder: cfg.Recorder,
	}
}

// CheckAccess decides whether userID may open route. It never panics and
// never returns an error: store failures become a denial.
func (c *Checker) CheckAccess(ctx context.Context, userID int64, route string) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Int64("user_id", userID).Str("route", route).Msg("Access check panicked")

			result = Result{Granted: false, Error: msgCheckFailed}
		}
	}()

	u, err := c.users.Get(ctx, userID)
	if errors.Is(err, user.ErrUserNotFound) {
		return Result{Granted: false, Error: msgUnknownUser}
	}

	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Str("route", route).Msg("Failed to look up user")

		return Result{Granted: false, Error: msgCheckFailed}
	}

	c.recorder.Visit(ctx, u.ID, u.Username, route)

	decision, err := c.Decide(ctx, u, route)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Str("route", route).Msg("Failed to check permission")

		return Result{Granted: false, Error: msgCheckFailed}
	}

	log.Debug().
		Int64("user_id", userID).
		Str("route", route).
		Bool("granted", decision.Granted).
		Stringer("reason", decision.Reason).
		Msg("Access checked")

	return Result{Granted: decision.Granted}
}

// Permits reports whether userID may open route. Unlike CheckAccess it
// records no visit and returns store failures to the caller.
func (c *Checker) Permits(ctx context.Context, userID int64, route string) (bool, error) {
	u, err := c.users.Get(ctx, userID)
	if errors.Is(err, user.ErrUserNotFound) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("failed to look up user %d: %w", userID, err)
	}

	decision, err := c.Decide(ctx, u, route)
	if err != nil {
		return false, err
	}

	return decision.Granted, nil
}

// Decide evaluates u against the entries of route without recording a visit.
func (c *Checker) Decide(ctx context.Context, u user.User, route string) (acl.Decision, error) {
	perms, err := c.perms.ForRoute(ctx, route)
	if err != nil {
		return acl.Decision{}, fmt.Errorf("failed to load permissions for %s: %w", route, err)
	}

	return acl.Evaluate(u, perms), nil
}
