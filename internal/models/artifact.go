package models

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// UnnamedArtifact is the display label used when an artifact name is blank.
const UnnamedArtifact = "(Unnamed component)"

// Artifact is one reviewed item (library, repository, dataset or model) with
// a checklist result per item of its section's checklist.
type Artifact struct {
	ID     string        `json:"id,omitempty"`
	Name   string        `json:"name"`
	Checks []CheckResult `json:"checks" validate:"dive"`
}

// NewArtifactID returns a new opaque artifact identifier.
func NewArtifactID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// DisplayName returns the artifact name, or the placeholder when blank.
func (a Artifact) DisplayName() string {
	if a.Name == "" {
		return UnnamedArtifact
	}
	return a.Name
}

// Scores returns the check scores in checklist order.
func (a Artifact) Scores() []Score {
	out := make([]Score, len(a.Checks))
	for i, c := range a.Checks {
		out[i] = c.Score
	}
	return out
}

// Clone returns a deep copy of the artifact.
func (a Artifact) Clone() Artifact {
	c := a
	if a.Checks != nil {
		c.Checks = make([]CheckResult, len(a.Checks))
		copy(c.Checks, a.Checks)
	}
	return c
}
