package models

import "time"

// EventKind classifies a ledger entry.
type EventKind string

const (
	EventDraftSaved   EventKind = "draft_saved"
	EventDraftDeleted EventKind = "draft_deleted"
	EventSubmitted    EventKind = "submitted"
	EventSyncOK       EventKind = "sync_ok"
	EventSyncFailed   EventKind = "sync_failed"
)

// Event is one entry in the local history ledger.
type Event struct {
	ID        string    `json:"id"`
	Kind      EventKind `json:"kind"`
	ProjectID string    `json:"project_id,omitempty"`
	Path      string    `json:"path,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
