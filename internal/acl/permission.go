package acl

import (
	"slices"
	"time"
)

// RoutePermission is an access policy attached to one application route.
// A route with no entries at all is open to every authenticated user.
type RoutePermission struct {
	ID          int64     `json:"id"`
	Route       string    `json:"route"`
	Description string    `json:"description"`
	Roles       []string  `json:"roles"`
	UserIDs     []int64   `json:"userIds"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Input describes a new route permission.
type Input struct {
	Route       string
	Description string
	Roles       []string
	UserIDs     []int64
}

// Update describes changes to a route permission. Nil fields are left
// unchanged; a non-nil list replaces the whole grant set.
type Update struct {
	Route       *string
	Description *string
	Roles       *[]string
	UserIDs     *[]int64
}

func (p RoutePermission) clone() RoutePermission {
	p.Roles = slices.Clone(p.Roles)
	p.UserIDs = slices.Clone(p.UserIDs)

	return p
}

// dedupe drops empty and repeated role names, keeping first-seen order.
func dedupeRoles(roles []string) []string {
	result := make([]string, 0, len(roles))

	for _, r := range roles {
		if r != "" && !slices.Contains(result, r) {
			result = append(result, r)
		}
	}

	return result
}

func dedupeUsers(ids []int64) []int64 {
	result := make([]int64, 0, len(ids))

	for _, id := range ids {
		if !slices.Contains(result, id) {
			result = append(result, id)
		}
	}

	return result
}
