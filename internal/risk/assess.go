package risk

import (
	"fmt"

	"github.com/aimcr/aimcr/internal/models"
)

// ArtifactScore is the per-artifact view: the raw sum of its checks and the
// critical gate.
type ArtifactScore struct {
	ID               string   `json:"id,omitempty"`
	Name             string   `json:"name"`
	ArtifactRawTotal int      `json:"artifact_raw_total"`
	Tier             Tier     `json:"tier"`
	Critical         bool     `json:"critical"`
	CriticalChecks   []string `json:"critical_checks,omitempty"`
}

// SectionScore is the section-level view built from max-per-check aggregation.
type SectionScore struct {
	Section           models.Section  `json:"section"`
	SectionMaxTotal   int             `json:"section_max_total"`
	MaxScoresPerCheck []int           `json:"max_scores_per_check"`
	Tier              Tier            `json:"tier"`
	Critical          bool            `json:"critical"`
	Artifacts         []ArtifactScore `json:"artifacts"`
}

// Assessment covers every section of a review document.
type Assessment struct {
	Sections    []SectionScore  `json:"sections"`
	HighestTier Tier            `json:"highest_tier"`
	Critical    bool            `json:"critical"`
	Advisory    models.Decision `json:"advisory_decision"`
}

// Section returns the score for s, or nil if absent.
func (a *Assessment) Section(s models.Section) *SectionScore {
	for i := range a.Sections {
		if a.Sections[i].Section == s {
			return &a.Sections[i]
		}
	}
	return nil
}

// ScoreArtifact computes the per-artifact metrics.
func ScoreArtifact(a models.Artifact) ArtifactScore {
	raw := ArtifactRawTotal(a)
	as := ArtifactScore{
		ID:               a.ID,
		Name:             a.DisplayName(),
		ArtifactRawTotal: raw,
		Tier:             Classify(raw),
	}
	for _, c := range a.Checks {
		if c.Score == models.ScoreCritical {
			as.Critical = true
			as.CriticalChecks = append(as.CriticalChecks, c.Name)
		}
	}
	return as
}

// ScoreSection aggregates one section.
func ScoreSection(s models.Section, artifacts []models.Artifact) (SectionScore, error) {
	total, maxima, err := Aggregate(artifacts)
	if err != nil {
		return SectionScore{}, fmt.Errorf("%s: %w", s, err)
	}

	ss := SectionScore{
		Section:           s,
		SectionMaxTotal:   total,
		MaxScoresPerCheck: maxima,
		Tier:              Classify(total),
		Artifacts:         make([]ArtifactScore, 0, len(artifacts)),
	}
	for _, a := range artifacts {
		as := ScoreArtifact(a)
		if as.Critical {
			ss.Critical = true
		}
		ss.Artifacts = append(ss.Artifacts, as)
	}
	return ss, nil
}

// Assess scores every section of the document and derives the advisory decision.
func Assess(doc *models.ReviewDocument) (*Assessment, error) {
	a := &Assessment{HighestTier: TierGreen}
	for _, s := range models.Sections {
		ss, err := ScoreSection(s, doc.Artifacts(s))
		if err != nil {
			return nil, err
		}
		a.HighestTier = a.HighestTier.Worse(ss.Tier)
		if ss.Critical {
			a.Critical = true
		}
		a.Sections = append(a.Sections, ss)
	}
	a.Advisory = Recommend(a, doc.ModelDetails)
	return a, nil
}

// Recommend derives an advisory decision. It never replaces the reviewer's
// final decision.
func Recommend(a *Assessment, md *models.ModelDetails) models.Decision {
	switch {
	case a.HighestTier == TierRed:
		return models.DecisionRejected
	case a.Critical, md != nil && md.ExceedsThreshold:
		return models.DecisionEscalated
	case a.HighestTier == TierOrange, a.HighestTier == TierYellow:
		return models.DecisionApprovedWithMonitoring
	default:
		return models.DecisionApproved
	}
}
