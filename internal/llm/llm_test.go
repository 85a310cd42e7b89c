package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimcr/aimcr/internal/models"
	"github.com/aimcr/aimcr/internal/risk"
)

func reviewFixture(t *testing.T) (*models.ReviewDocument, *risk.Assessment) {
	t.Helper()
	doc := models.NewReviewDocument()
	doc.Metadata = models.Metadata{ProposalTitle: "Weather model", ProjectID: "WX9", PrincipalInvestigator: "Dr. Lee"}

	checks := models.SectionModels.NewChecks()
	checks[0].Score = models.ScoreCritical
	checks[0].Notes = "weights from unknown source"
	checks[1].Score = models.ScoreModerateRisk
	doc.Models = []models.Artifact{{Name: "storm-net", Checks: checks}}
	doc.ModelDetails = &models.ModelDetails{ModelName: "storm-net", TrainingFLOPs: "3e26", ExceedsThreshold: false}

	a, err := risk.Assess(doc)
	require.NoError(t, err)
	return doc, a
}

func TestBuildSuggestPrompt(t *testing.T) {
	doc, a := reviewFixture(t)
	system, user := buildSuggestPrompt(doc, a)

	t.Run("system prompt describes the output", func(t *testing.T) {
		assert.Contains(t, system, `"observations"`)
		assert.Contains(t, system, `"recommendation"`)
		assert.Contains(t, system, "10-14 yellow")
		assert.Contains(t, system, "no markdown fencing")
	})

	t.Run("user prompt carries scores", func(t *testing.T) {
		assert.Contains(t, user, "Proposal: Weather model")
		assert.Contains(t, user, "Principal investigator: Dr. Lee")
		assert.Contains(t, user, "Advisory decision: Escalated")
		assert.Contains(t, user, "storm-net (raw total")
		assert.Contains(t, user, "weights from unknown source")
		assert.Contains(t, user, "[CRITICAL]")
		assert.Contains(t, user, "training FLOPs 3e26")
	})

	t.Run("empty sections and low scores are omitted", func(t *testing.T) {
		assert.NotContains(t, user, models.SectionDatasets.Title())
		assert.NotContains(t, user, ": 1 (No Risk)")
	})
}

func TestParseReply(t *testing.T) {
	t.Run("plain json", func(t *testing.T) {
		s, err := parseReply(`{"observations":"o","recommendation":"r"}`)
		require.NoError(t, err)
		assert.Equal(t, "o", s.Observations)
		assert.Equal(t, "r", s.Recommendation)
	})

	t.Run("fenced json", func(t *testing.T) {
		s, err := parseReply("```json\n{\"observations\":\"o\",\"recommendation\":\"r\"}\n```")
		require.NoError(t, err)
		assert.Equal(t, "r", s.Recommendation)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := parseReply("not json")
		assert.ErrorContains(t, err, "raw response: not json")
	})
}

func TestNewClient(t *testing.T) {
	c := NewClient("test-key", "claude-sonnet-4-5")
	require.NotNil(t, c.api)
	assert.Equal(t, "claude-sonnet-4-5", string(c.model))
}
