package acl

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/serroba/opsportal/internal/activity"
	"github.com/serroba/opsportal/internal/apperr"
)

const targetPagePermission = "PagePermission"

// Admin manages route permissions on behalf of administrators.
type Admin struct {
	store    Store
	recorder *activity.Recorder
}

// AdminConfig holds configuration for creating an admin.
type AdminConfig struct {
	Store    Store
	Recorder *activity.Recorder
}

// NewAdmin creates a new route permission admin.
func NewAdmin(cfg AdminConfig) *Admin {
	return &Admin{store: cfg.Store, recorder: cfg.Recorder}
}

// List returns every route permission ordered by route.
func (a *Admin) List(ctx context.Context) ([]RoutePermission, error) {
	perms, err := a.store.List(ctx)
	if err != nil {
		return nil, dependency("failed to list permissions", err)
	}

	return perms, nil
}

// Get returns one route permission.
func (a *Admin) Get(ctx context.Context, id int64) (RoutePermission, error) {
	p, err := a.store.Get(ctx, id)
	if err != nil {
		return RoutePermission{}, translate("failed to get permission", err)
	}

	return p, nil
}

// Create adds a route permission with its grants.
func (a *Admin) Create(ctx context.Context, actorID int64, in Input) (RoutePermission, error) {
	route, err := validRoute(in.Route)
	if err != nil {
		return RoutePermission{}, err
	}

	p := RoutePermission{
		Route:       route,
		Description: strings.TrimSpace(in.Description),
		Roles:       dedupeRoles(in.Roles),
		UserIDs:     dedupeUsers(in.UserIDs),
	}

	if err := a.store.Create(ctx, &p); err != nil {
		return RoutePermission{}, dependency("failed to create permission", err)
	}

	a.recorder.Action(ctx, actorID, "Created", targetPagePermission, p.ID, "route "+p.Route)

	return p, nil
}

// Update applies upd to a route permission. Field updates and grant
// replacement run in one transaction.
func (a *Admin) Update(ctx context.Context, actorID, id int64, upd Update) (RoutePermission, error) {
	if upd.Route != nil {
		route, err := validRoute(*upd.Route)
		if err != nil {
			return RoutePermission{}, err
		}

		upd.Route = &route
	}

	var updated RoutePermission

	err := a.store.WithinTx(ctx, func(ctx context.Context, tx Store) error {
		current, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}

		route, description := current.Route, current.Description
		if upd.Route != nil {
			route = *upd.Route
		}

		if upd.Description != nil {
			description = strings.TrimSpace(*upd.Description)
		}

		if err := tx.SetFields(ctx, id, route, description); err != nil {
			return err
		}

		if upd.Roles != nil {
			if err := tx.ReplaceRoles(ctx, id, dedupeRoles(*upd.Roles)); err != nil {
				return err
			}
		}

		if upd.UserIDs != nil {
			if err := tx.ReplaceUsers(ctx, id, dedupeUsers(*upd.UserIDs)); err != nil {
				return err
			}
		}

		updated, err = tx.Get(ctx, id)

		return err
	})
	if err != nil {
		return RoutePermission{}, translate("failed to update permission", err)
	}

	a.recorder.Action(ctx, actorID, "Updated", targetPagePermission, id, "route "+updated.Route)

	return updated, nil
}

// Delete removes a route permission and its grants.
func (a *Admin) Delete(ctx context.Context, actorID, id int64) error {
	if err := a.store.Delete(ctx, id); err != nil {
		return translate("failed to delete permission", err)
	}

	a.recorder.Action(ctx, actorID, "Deleted", targetPagePermission, id, "")

	return nil
}

func validRoute(route string) (string, error) {
	route = strings.TrimSpace(route)

	if route == "" {
		return "", apperr.Invalid("route is required")
	}

	if !strings.HasPrefix(route, "/") {
		return "", apperr.Invalid(fmt.Sprintf("route %q must start with /", route))
	}

	return route, nil
}

func translate(message string, err error) error {
	if errors.Is(err, ErrPermissionNotFound) {
		return apperr.NotFound("permission not found")
	}

	return dependency(message, err)
}

func dependency(message string, err error) error {
	log.Error().Err(err).Msg(message)

	return apperr.Dependency(message, err)
}
