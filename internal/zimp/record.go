package zimp

import (
	"path"
	"strings"
	"time"
)

// Kind distinguishes document records from folder records.
type Kind string

const (
	KindFile   Kind = "file"
	KindFolder Kind = "folder"
)

// DefaultApplication is the application tag given to imported records.
const DefaultApplication = "media-library"

// Share grants rights on a record to a user or a group.
type Share struct {
	UserID  string   `json:"userId,omitempty"`
	GroupID string   `json:"groupId,omitempty"`
	Rights  []string `json:"rights"`
}

// Metadata describes the stored content of a document record.
type Metadata struct {
	Filename    string `json:"filename"`
	Extension   string `json:"extension,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size"`
}

// Record is a document or folder as persisted in the document store.
// ParentID is empty for roots and is never reassigned after creation.
type Record struct {
	ID              string            `json:"_id"`
	Kind            Kind              `json:"eType"`
	OwnerID         string            `json:"owner"`
	OwnerName       string            `json:"ownerName"`
	Name            string            `json:"name"`
	Application     string            `json:"application"`
	ParentID        string            `json:"eParent,omitempty"`
	Shared          []Share           `json:"shared"`
	InheritedShares []Share           `json:"inheritedShares"`
	IsShared        bool              `json:"isShared"`
	FileID          string            `json:"file,omitempty"`
	Metadata        *Metadata         `json:"metadata,omitempty"`
	Thumbnails      map[string]string `json:"thumbnails,omitempty"`
	Created         time.Time         `json:"created"`
	Modified        time.Time         `json:"modified"`
}

// IsFolder reports whether r is a folder record.
func (r *Record) IsFolder() bool {
	return r.Kind == KindFolder
}

// Owner identifies the user performing an import.
type Owner struct {
	ID   string
	Name string
}

func newRecord(kind Kind, id string, owner Owner, name, application string, now time.Time) *Record {
	r := &Record{
		ID:              id,
		Kind:            kind,
		OwnerID:         owner.ID,
		OwnerName:       owner.Name,
		Name:            name,
		Application:     application,
		Shared:          []Share{},
		InheritedShares: []Share{},
		Created:         now,
		Modified:        now,
	}
	if kind == KindFile {
		r.Metadata = &Metadata{
			Filename:  name,
			Extension: strings.TrimPrefix(path.Ext(name), "."),
		}
	}
	return r
}
