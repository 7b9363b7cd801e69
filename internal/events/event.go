// Package events delivers drive change notifications to live views and
// external listeners. Delivery is fire-and-forget: a Notifier never reports
// an error and never blocks the mutation that produced the event.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type identifies the kind of drive change.
type Type string

// Drive event types.
const (
	FolderCreated Type = "folder_created"
	FolderRenamed Type = "folder_renamed"
	FolderMoved   Type = "folder_moved"
	FolderDeleted Type = "folder_deleted"
	FileUploaded  Type = "file_uploaded"
	FileRenamed   Type = "file_renamed"
	FileMoved     Type = "file_moved"
	FileDeleted   Type = "file_deleted"
	FileShared    Type = "file_shared"
	FileUnshared  Type = "file_unshared"
)

// Event describes one drive change. FolderID is the affected folder for
// folder events and the containing folder for file events; a nil FolderID
// or ParentID means the drive root. PreviousID is set on moves and holds
// the former parent or containing folder.
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	FolderID   *int64    `json:"folderId"`
	FileID     *int64    `json:"fileId,omitempty"`
	ParentID   *int64    `json:"parentId,omitempty"`
	PreviousID *int64    `json:"previousId,omitempty"`
	UserID     int64     `json:"userId"`
	At         time.Time `json:"at"`
}

// New returns an event of type t by userID with a fresh id.
func New(t Type, userID int64) Event {
	return Event{
		ID:     uuid.New().String(),
		Type:   t,
		UserID: userID,
		At:     time.Now(),
	}
}

// IsFolderEvent reports whether the event describes a folder.
func (e Event) IsFolderEvent() bool {
	switch e.Type {
	case FolderCreated, FolderRenamed, FolderMoved, FolderDeleted:
		return true
	default:
		return false
	}
}

// Valid reports whether the event carries a known type.
func (e Event) Valid() bool {
	switch e.Type {
	case FolderCreated, FolderRenamed, FolderMoved, FolderDeleted,
		FileUploaded, FileRenamed, FileMoved, FileDeleted, FileShared, FileUnshared:
		return true
	default:
		return false
	}
}

// Notifier delivers events.
type Notifier interface {
	Notify(ctx context.Context, e Event)
}

// Nop discards every event.
type Nop struct{}

// Notify does nothing.
func (Nop) Notify(context.Context, Event) {}

// Fanout delivers each event to every notifier in order.
type Fanout []Notifier

// Notify delivers e to every notifier.
func (f Fanout) Notify(ctx context.Context, e Event) {
	for _, n := range f {
		if n != nil {
			n.Notify(ctx, e)
		}
	}
}
