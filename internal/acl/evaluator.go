package acl

import (
	"slices"

	"github.com/serroba/opsportal/internal/user"
)

// Reason explains an access decision.
type Reason int

const (
	// ReasonOpenRoute means the route has no permission entries.
	ReasonOpenRoute Reason = iota
	// ReasonUserGrant means a user grant names the user.
	ReasonUserGrant
	// ReasonRoleGrant means one of the user's roles is granted.
	ReasonRoleGrant
	// ReasonNoMatch means entries exist but none match the user.
	ReasonNoMatch
)

// String returns the string representation of the reason.
func (r Reason) String() string {
	switch r {
	case ReasonOpenRoute:
		return "open_route"
	case ReasonUserGrant:
		return "user_grant"
	case ReasonRoleGrant:
		return "role_grant"
	case ReasonNoMatch:
		return "no_match"
	default:
		return "unknown"
	}
}

// Decision is the outcome of evaluating a user against a route's entries.
type Decision struct {
	Granted bool
	Reason  Reason
}

// Evaluate decides whether u may access a route whose permission entries
// are perms. It has no side effects.
func Evaluate(u user.User, perms []RoutePermission) Decision {
	if len(perms) == 0 {
		return Decision{Granted: true, Reason: ReasonOpenRoute}
	}

	for _, p := range perms {
		if slices.Contains(p.UserIDs, u.ID) {
			return Decision{Granted: true, Reason: ReasonUserGrant}
		}
	}

	for _, p := range perms {
		if u.HasAnyRole(p.Roles) {
			return Decision{Granted: true, Reason: ReasonRoleGrant}
		}
	}

	return Decision{Granted: false, Reason: ReasonNoMatch}
}
