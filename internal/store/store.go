package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aimcr/aimcr/internal/models"
)

// DraftSummary describes one draft file for listing.
type DraftSummary struct {
	Name          string    `json:"name"`
	Path          string    `json:"path"`
	ProjectID     string    `json:"project_id"`
	ProposalTitle string    `json:"proposal_title"`
	Modified      time.Time `json:"modified"`
}

// Documents is the on-disk contract for drafts and final submissions.
// Handles are draft file names relative to the drafts area.
type Documents interface {
	SaveDraft(doc *models.ReviewDocument) (string, error)
	ListDrafts() ([]DraftSummary, error)
	LoadDraft(handle string) *models.ReviewDocument
	DraftPath(handle string) (string, error)
	DeleteDraft(handle string) error
	SaveFinal(doc *models.ReviewDocument) (string, error)
	Root() string
}

// EventFilter narrows ledger listings.
type EventFilter struct {
	ProjectID string
	Kind      models.EventKind
	Limit     int
}

// Ledger records a local history of saves, submissions and sync outcomes.
type Ledger interface {
	Record(ctx context.Context, e *models.Event) error
	List(ctx context.Context, filter EventFilter) ([]*models.Event, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// StorageError wraps a disk failure on read, write or delete.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// LoadError reports a document that could not be read or parsed.
type LoadError struct {
	Handle string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("could not load %s: %v", e.Handle, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
