package user

import (
	"encoding/json"
	"slices"
	"strings"
)

// User is a portal account as seen by the permission and drive subsystems.
type User struct {
	ID       int64    `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

// HasAnyRole reports whether the user holds at least one of roles.
func (u User) HasAnyRole(roles []string) bool {
	for _, role := range roles {
		if slices.Contains(u.Roles, role) {
			return true
		}
	}

	return false
}

// ParseRoles normalizes a stored role value into a set of role names.
// The stored value is either a single role ("admin") or a JSON array of
// roles (["admin","hr"]). Empty names and duplicates are dropped.
func ParseRoles(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var values []string

	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &values); err != nil {
			values = []string{raw}
		}
	} else {
		var single string
		if err := json.Unmarshal([]byte(raw), &single); err == nil {
			values = []string{single}
		} else {
			values = []string{raw}
		}
	}

	roles := make([]string, 0, len(values))

	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || slices.Contains(roles, v) {
			continue
		}

		roles = append(roles, v)
	}

	return roles
}

// FormatRoles is the inverse of ParseRoles: a single role is stored as-is,
// several roles as a JSON array.
func FormatRoles(roles []string) string {
	switch len(roles) {
	case 0:
		return ""
	case 1:
		return roles[0]
	default:
		data, _ := json.Marshal(roles)

		return string(data)
	}
}
