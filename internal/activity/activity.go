// Package activity records who visited which route and which actions users
// performed. Records are append-only.
package activity

import (
	"time"
)

// Visit is one navigation attempt, written for every access check.
type Visit struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Username  string    `json:"username"`
	Route     string    `json:"route"`
	VisitedAt time.Time `json:"visitedAt"`
}

// Action is one user-initiated mutation, such as creating a folder.
type Action struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"userId"`
	ActionType string    `json:"actionType"`
	TargetType string    `json:"targetType"`
	TargetID   int64     `json:"targetId"`
	Details    string    `json:"details"`
	Timestamp  time.Time `json:"timestamp"`
}

// Filter narrows an action listing. Zero fields match everything.
type Filter struct {
	UserID     int64
	ActionType string
	TargetType string
	Since      time.Time
}

// Matches reports whether a passes the filter.
func (f Filter) Matches(a Action) bool {
	if f.UserID != 0 && a.UserID != f.UserID {
		return false
	}

	if f.ActionType != "" && a.ActionType != f.ActionType {
		return false
	}

	if f.TargetType != "" && a.TargetType != f.TargetType {
		return false
	}

	if !f.Since.IsZero() && a.Timestamp.Before(f.Since) {
		return false
	}

	return true
}

// DefaultPageSize is used when a page request carries no size.
const DefaultPageSize = 10

// Page selects a 1-based page of results.
type Page struct {
	Number int
	Size   int
}

func (p Page) normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}

	if p.Size < 1 {
		p.Size = DefaultPageSize
	}

	return p
}

// Offset returns the number of records skipped before the page.
func (p Page) Offset() int {
	p = p.normalize()

	return (p.Number - 1) * p.Size
}

// Limit returns the page size.
func (p Page) Limit() int {
	return p.normalize().Size
}

// ActionPage is one page of actions, newest first.
type ActionPage struct {
	Actions    []Action `json:"actions"`
	TotalCount int      `json:"totalCount"`
	PageCount  int      `json:"pageCount"`
}

func newActionPage(actions []Action, total int, page Page) ActionPage {
	size := page.Limit()

	return ActionPage{
		Actions:    actions,
		TotalCount: total,
		PageCount:  (total + size - 1) / size,
	}
}

// SinceFor returns the start of the named range relative to now: "today"
// (local midnight), "week" (last Sunday midnight) or "month" (first of the
// month). Unknown names return the zero time.
func SinceFor(name string, now time.Time) time.Time {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch name {
	case "today":
		return midnight
	case "week":
		return midnight.AddDate(0, 0, -int(now.Weekday()))
	case "month":
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	default:
		return time.Time{}
	}
}
