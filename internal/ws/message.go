package ws

import "strconv"

// MessageType identifies the kind of WebSocket message.
type MessageType string

const (
	// Client to Server messages.
	MessageTypeWatch MessageType = "watch" // Client opens a folder view

	// Server to Client messages.
	MessageTypeWatching   MessageType = "watching"    // Server confirms the watched topic
	MessageTypeDriveEvent MessageType = "drive_event" // Server pushes a drive change
	MessageTypeError      MessageType = "error"       // Server reports an error
)

// Message is the envelope for all WebSocket communication.
type Message struct {
	Type    MessageType `json:"type"`
	Payload any         `json:"payload,omitempty"`
}

// WatchPayload selects the folder a client is looking at. A nil FolderID is
// the drive root; All subscribes to every change.
type WatchPayload struct {
	FolderID *int64 `json:"folderId"`
	All      bool   `json:"all,omitempty"`
}

// WatchingPayload confirms a subscription.
type WatchingPayload struct {
	Topic string `json:"topic"`
}

// ErrorPayload reports an error to the client.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	ErrorCodeInvalidMessage = "invalid_message"
	ErrorCodeInternalError  = "internal_error"
	ErrorCodeForbidden      = "forbidden"
)

// AllTopic receives every broadcast.
const AllTopic = "*"

// FolderTopic names the topic of clients viewing a folder.
func FolderTopic(folderID *int64) string {
	if folderID == nil {
		return "folder:root"
	}

	return "folder:" + strconv.FormatInt(*folderID, 10)
}

// Topic returns the topic a watch request subscribes to.
func (p WatchPayload) Topic() string {
	if p.All {
		return AllTopic
	}

	return FolderTopic(p.FolderID)
}
