package models

import "fmt"

// Score is a 1-5 risk rating for a single check.
type Score int

const (
	ScoreNoRisk       Score = 1
	ScoreLowRisk      Score = 2
	ScoreModerateRisk Score = 3
	ScoreHighRisk     Score = 4
	ScoreCritical     Score = 5
)

// Scores lists every valid score in ascending order.
var Scores = []Score{ScoreNoRisk, ScoreLowRisk, ScoreModerateRisk, ScoreHighRisk, ScoreCritical}

// Valid reports whether s is one of the five defined levels.
func (s Score) Valid() bool {
	return s >= ScoreNoRisk && s <= ScoreCritical
}

// Label returns the human-readable name of the score level.
func (s Score) Label() string {
	switch s {
	case ScoreNoRisk:
		return "No Risk"
	case ScoreLowRisk:
		return "Low Risk"
	case ScoreModerateRisk:
		return "Moderate Risk"
	case ScoreHighRisk:
		return "High Risk"
	case ScoreCritical:
		return "Critical Risk"
	default:
		return fmt.Sprintf("Invalid (%d)", int(s))
	}
}

// CheckResult is one scored answer to a checklist item.
type CheckResult struct {
	Name  string `json:"name"`
	Score Score  `json:"score" validate:"min=1,max=5"`
	Notes string `json:"notes"`
}
