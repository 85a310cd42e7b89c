package risk

import (
	"errors"
	"fmt"

	"github.com/aimcr/aimcr/internal/models"
)

// ErrChecklistMismatch is returned when artifacts aggregated together carry
// checklists of different lengths.
var ErrChecklistMismatch = errors.New("checklist length mismatch")

// Tier is the severity band a cumulative score falls into.
type Tier string

const (
	TierGreen  Tier = "green"
	TierYellow Tier = "yellow"
	TierOrange Tier = "orange"
	TierRed    Tier = "red"
)

// Tier thresholds applied to cumulative totals.
const (
	YellowThreshold = 10
	OrangeThreshold = 15
	RedThreshold    = 21
)

// Classify maps a cumulative score to its tier.
func Classify(score int) Tier {
	switch {
	case score >= RedThreshold:
		return TierRed
	case score >= OrangeThreshold:
		return TierOrange
	case score >= YellowThreshold:
		return TierYellow
	default:
		return TierGreen
	}
}

func (t Tier) rank() int {
	switch t {
	case TierYellow:
		return 1
	case TierOrange:
		return 2
	case TierRed:
		return 3
	default:
		return 0
	}
}

// Worse returns the more severe of t and o.
func (t Tier) Worse(o Tier) Tier {
	if o.rank() > t.rank() {
		return o
	}
	return t
}

// Aggregate computes, for every checklist position, the maximum score across
// all artifacts, and the section total as the sum of those maxima.
// An empty input yields (0, []). Artifacts with differing checklist lengths
// fail with ErrChecklistMismatch.
func Aggregate(artifacts []models.Artifact) (int, []int, error) {
	if len(artifacts) == 0 {
		return 0, []int{}, nil
	}

	n := len(artifacts[0].Checks)
	for i, a := range artifacts[1:] {
		if len(a.Checks) != n {
			return 0, nil, fmt.Errorf("%w: artifact %d (%s) has %d checks, expected %d",
				ErrChecklistMismatch, i+1, a.DisplayName(), len(a.Checks), n)
		}
	}

	maxima := make([]int, n)
	total := 0
	for i := 0; i < n; i++ {
		m := int(artifacts[0].Checks[i].Score)
		for _, a := range artifacts[1:] {
			if s := int(a.Checks[i].Score); s > m {
				m = s
			}
		}
		maxima[i] = m
		total += m
	}
	return total, maxima, nil
}

// HasCritical reports whether any check scored the critical level.
func HasCritical(checks []models.CheckResult) bool {
	for _, c := range checks {
		if c.Score == models.ScoreCritical {
			return true
		}
	}
	return false
}

// ArtifactRawTotal is the plain sum of an artifact's own check scores.
// It is not the section score; see SectionScore.SectionMaxTotal.
func ArtifactRawTotal(a models.Artifact) int {
	total := 0
	for _, c := range a.Checks {
		total += int(c.Score)
	}
	return total
}
