package review

import (
	"errors"
	"fmt"
	"sync"

	"github.com/aimcr/aimcr/internal/models"
)

// ErrNoDocument is returned when the session has no review in progress.
var ErrNoDocument = errors.New("no review in progress")

// Session owns the in-memory review being edited. Readers get deep copies,
// so snapshots handed to the background writer never alias live state.
type Session struct {
	mu    sync.Mutex
	doc   *models.ReviewDocument
	draft string
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{}
}

// Start begins editing doc, or a fresh document when doc is nil. draft is the
// handle the document was loaded from, if any.
func (s *Session) Start(doc *models.ReviewDocument, draft string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc == nil {
		doc = models.NewReviewDocument()
	} else {
		doc = doc.Clone()
	}
	doc.Normalize()
	s.doc = doc
	s.draft = draft
}

// Reset discards the current document.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = nil
	s.draft = ""
}

// Active reports whether a document is loaded.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc != nil
}

// Document returns a snapshot of the current document, or nil.
func (s *Session) Document() *models.ReviewDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil
	}
	return s.doc.Clone()
}

// Draft returns the handle of the draft being edited.
func (s *Session) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// SetDraft records the handle of the most recent save.
func (s *Session) SetDraft(handle string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = handle
}

func (s *Session) update(fn func(doc *models.ReviewDocument) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return ErrNoDocument
	}
	return fn(s.doc)
}

func (s *Session) SetMetadata(m models.Metadata) error {
	return s.update(func(doc *models.ReviewDocument) error {
		doc.Metadata = m
		return nil
	})
}

func (s *Session) SetNotes(observations, recommendation string) error {
	return s.update(func(doc *models.ReviewDocument) error {
		doc.Observations = observations
		doc.Recommendation = recommendation
		return nil
	})
}

// SetDecision sets the final decision. An empty decision clears it.
func (s *Session) SetDecision(d models.Decision) error {
	if d != "" && !d.Valid() {
		return fmt.Errorf("invalid decision: %q", d)
	}
	return s.update(func(doc *models.ReviewDocument) error {
		doc.FinalDecision = d
		return nil
	})
}

func (s *Session) SetSourceCodeDetails(d *models.SourceCodeDetails) error {
	return s.update(func(doc *models.ReviewDocument) error {
		doc.SourceCodeDetails = d
		return nil
	})
}

func (s *Session) SetDatasetDetails(d *models.DatasetDetails) error {
	return s.update(func(doc *models.ReviewDocument) error {
		doc.DatasetDetails = d
		return nil
	})
}

func (s *Session) SetModelDetails(d *models.ModelDetails) error {
	return s.update(func(doc *models.ReviewDocument) error {
		doc.ModelDetails = d
		return nil
	})
}

func checkLength(section models.Section, checks []models.CheckResult) error {
	if want := section.ChecklistSize(); len(checks) != want {
		return fmt.Errorf("%s expects %d checks, got %d", section, want, len(checks))
	}
	return nil
}

// AddArtifact appends an artifact to section with a new identifier. Nil
// checks start from the section checklist at the lowest score.
func (s *Session) AddArtifact(section models.Section, name string, checks []models.CheckResult) (models.Artifact, error) {
	if checks == nil {
		checks = section.NewChecks()
	}
	if err := checkLength(section, checks); err != nil {
		return models.Artifact{}, err
	}

	a := models.Artifact{ID: models.NewArtifactID(), Name: name, Checks: checks}
	err := s.update(func(doc *models.ReviewDocument) error {
		return doc.SetArtifacts(section, append(doc.Artifacts(section), a.Clone()))
	})
	if err != nil {
		return models.Artifact{}, err
	}
	return a, nil
}

// ReplaceArtifact overwrites the artifact at index, keeping its identifier.
func (s *Session) ReplaceArtifact(section models.Section, index int, a models.Artifact) error {
	if err := checkLength(section, a.Checks); err != nil {
		return err
	}
	return s.update(func(doc *models.ReviewDocument) error {
		artifacts := doc.Artifacts(section)
		if index < 0 || index >= len(artifacts) {
			return fmt.Errorf("%s has no artifact at index %d", section, index)
		}
		a = a.Clone()
		if a.ID == "" {
			a.ID = artifacts[index].ID
		}
		artifacts[index] = a
		return nil
	})
}

// DeleteArtifact removes the artifact at index.
func (s *Session) DeleteArtifact(section models.Section, index int) error {
	return s.update(func(doc *models.ReviewDocument) error {
		artifacts := doc.Artifacts(section)
		if index < 0 || index >= len(artifacts) {
			return fmt.Errorf("%s has no artifact at index %d", section, index)
		}
		out := make([]models.Artifact, 0, len(artifacts)-1)
		out = append(out, artifacts[:index]...)
		out = append(out, artifacts[index+1:]...)
		return doc.SetArtifacts(section, out)
	})
}

// ArtifactIndex returns the position of the artifact with id, or -1.
func (s *Session) ArtifactIndex(section models.Section, id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil || id == "" {
		return -1
	}
	for i, a := range s.doc.Artifacts(section) {
		if a.ID == id {
			return i
		}
	}
	return -1
}
