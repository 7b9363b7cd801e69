package activity_test

import (
	"testing"
	"time"

	"github.com/serroba/opsportal/internal/activity"
)

func TestSinceFor(t *testing.T) {
	t.Parallel()

	// Wednesday.
	now := time.Date(2024, time.May, 15, 13, 45, 0, 0, time.UTC)

	tests := []struct {
		name     string
		expected time.Time
	}{
		{"today", time.Date(2024, time.May, 15, 0, 0, 0, 0, time.UTC)},
		{"week", time.Date(2024, time.May, 12, 0, 0, 0, 0, time.UTC)},
		{"month", time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)},
		{"year", time.Time{}},
	}

	for _, tt := range tests {
		if got := activity.SinceFor(tt.name, now); !got.Equal(tt.expected) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.expected, got)
		}
	}
}

func TestPage_Defaults(t *testing.T) {
	t.Parallel()

	p := activity.Page{}

	if p.Limit() != activity.DefaultPageSize {
		t.Errorf("expected default size %d, got %d", activity.DefaultPageSize, p.Limit())
	}

	if p.Offset() != 0 {
		t.Errorf("expected offset 0, got %d", p.Offset())
	}

	if off := (activity.Page{Number: 3, Size: 20}).Offset(); off != 40 {
		t.Errorf("expected offset 40, got %d", off)
	}
}

func TestFilter_Matches(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, time.May, 15, 0, 0, 0, 0, time.UTC)
	a := activity.Action{UserID: 7, ActionType: "Created Folder", TargetType: "DriveFolder", Timestamp: at}

	tests := []struct {
		name   string
		filter activity.Filter
		want   bool
	}{
		{"empty", activity.Filter{}, true},
		{"user", activity.Filter{UserID: 7}, true},
		{"other user", activity.Filter{UserID: 8}, false},
		{"action type", activity.Filter{ActionType: "Deleted Folder"}, false},
		{"target type", activity.Filter{TargetType: "DriveFolder"}, true},
		{"since before", activity.Filter{Since: at.Add(-time.Hour)}, true},
		{"since after", activity.Filter{Since: at.Add(time.Hour)}, false},
	}

	for _, tt := range tests {
		if got := tt.filter.Matches(a); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}
