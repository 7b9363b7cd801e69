// Package drive manages the per-user folder tree, the files placed in it
// and the share grants layered on top of file ownership.
//
// Folders are never shared: every folder listing is filtered by owner.
// Files are visible to their owner and to every user holding a grant.
package drive

import (
	"path"
	"regexp"
	"strings"
	"time"
)

// RootName is the label of the synthetic breadcrumb entry for the drive root.
const RootName = "My Drive"

// FolderRangeSize is the number of folder ids reserved for each owner.
// Owner n allocates from [n*FolderRangeSize, (n+1)*FolderRangeSize).
const FolderRangeSize int64 = 100000

// Folder is a node of an owner's tree. A nil ParentID is the drive root.
type Folder struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	ParentID  *int64    `json:"parentId"`
	OwnerID   int64     `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// File is an uploaded blob placed in a folder. A nil FolderID is the drive root.
type File struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Size      int64     `json:"size"`
	Order     int       `json:"order"`
	FolderID  *int64    `json:"folderId"`
	OwnerID   int64     `json:"ownerId"`
	URL       string    `json:"url"`
	Blob      string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Access is the level of a share grant.
type Access string

// Share grant levels.
const (
	AccessRead    Access = "read"
	AccessWrite   Access = "write"
	AccessComment Access = "comment"
)

// Valid reports whether a is a known access level.
func (a Access) Valid() bool {
	switch a {
	case AccessRead, AccessWrite, AccessComment:
		return true
	default:
		return false
	}
}

// FilePermission grants a user access to someone else's file. There is at
// most one grant per (FileID, UserID).
type FilePermission struct {
	FileID    int64     `json:"fileId"`
	UserID    int64     `json:"userId"`
	Access    Access    `json:"access"`
	GrantedBy int64     `json:"grantedBy"`
	GrantedAt time.Time `json:"grantedAt"`
}

// PathEntry is one breadcrumb element. The root entry has a nil ID.
type PathEntry struct {
	ID   *int64 `json:"id"`
	Name string `json:"name"`
}

// Contents lists one folder level as seen by a user.
type Contents struct {
	Folders []Folder `json:"folders"`
	Files   []File   `json:"files"`
}

// FileDetails is a file together with its share grants.
type FileDetails struct {
	File        File             `json:"file"`
	Permissions []FilePermission `json:"permissions"`
}

// URLPrefix is prepended to a blob name to form a file's download URL.
const URLPrefix = "/api/drive/file/"

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9.-]`)

// sanitize replaces every character outside [A-Za-z0-9.-] with an underscore.
func sanitize(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}

// fileType derives a file's type from its extension, lower-cased and
// without the dot.
func fileType(name string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
}

// splitName splits a file name into base and extension (with the dot).
// A name whose only dot is the first character has no extension.
func splitName(name string) (string, string) {
	i := strings.LastIndex(name, ".")
	if i <= 0 {
		return name, ""
	}

	return name[:i], name[i:]
}

func sameFolder(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	return *a == *b
}

func ptr(v int64) *int64 {
	return &v
}
