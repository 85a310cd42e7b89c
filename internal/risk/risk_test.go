package risk

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimcr/aimcr/internal/models"
)

func artifactWithScores(name string, scores ...int) models.Artifact {
	a := models.Artifact{Name: name}
	for i, s := range scores {
		a.Checks = append(a.Checks, models.CheckResult{
			Name:  string(rune('A' + i)),
			Score: models.Score(s),
		})
	}
	return a
}

func TestAggregate_Empty(t *testing.T) {
	total, maxima, err := Aggregate(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Equal(t, []int{}, maxima)

	total, maxima, err = Aggregate([]models.Artifact{})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, maxima)
}

func TestAggregate_Scenario(t *testing.T) {
	artifacts := []models.Artifact{
		artifactWithScores("a", 2, 3, 1, 4, 5),
		artifactWithScores("b", 4, 1, 2, 2, 1),
	}

	total, maxima, err := Aggregate(artifacts)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 3, 2, 4, 5}, maxima)
	assert.Equal(t, 18, total)
	assert.Equal(t, TierOrange, Classify(total))

	ss, err := ScoreSection(models.SectionSourceCode, artifacts)
	require.NoError(t, err)
	assert.Equal(t, TierOrange, ss.Tier, "tier follows the total threshold")
	assert.True(t, ss.Critical, "the single 5 raises the critical gate")
}

func TestAggregate_SingleArtifact(t *testing.T) {
	total, maxima, err := Aggregate([]models.Artifact{artifactWithScores("solo", 1, 2, 3, 4, 5, 1)})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 1}, maxima)
	assert.Equal(t, 16, total)
}

func TestAggregate_LengthMismatch(t *testing.T) {
	artifacts := []models.Artifact{
		artifactWithScores("a", 1, 1, 1, 1, 1),
		artifactWithScores("b", 1, 1, 1),
	}
	_, _, err := Aggregate(artifacts)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChecklistMismatch)
	assert.Contains(t, err.Error(), "b")
}

func TestAggregate_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for iter := 0; iter < 200; iter++ {
		n := 5 + rng.Intn(4)
		count := 1 + rng.Intn(6)

		artifacts := make([]models.Artifact, count)
		for i := range artifacts {
			scores := make([]int, n)
			for j := range scores {
				scores[j] = 1 + rng.Intn(5)
			}
			artifacts[i] = artifactWithScores("x", scores...)
		}

		total, maxima, err := Aggregate(artifacts)
		require.NoError(t, err)
		require.Len(t, maxima, n)

		sum := 0
		for i, m := range maxima {
			sum += m
			want := 0
			for _, a := range artifacts {
				if s := int(a.Checks[i].Score); s > want {
					want = s
				}
			}
			assert.Equal(t, want, m, "maximum at position %d must be tight", i)
		}
		assert.Equal(t, sum, total)
	}
}

func TestAggregate_LowRiskArtifactsDoNotDilute(t *testing.T) {
	artifacts := []models.Artifact{artifactWithScores("risky", 5, 4, 1, 1, 1)}
	before, _, err := Aggregate(artifacts)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		artifacts = append(artifacts, artifactWithScores("benign", 1, 1, 1, 1, 1))
	}
	after, _, err := Aggregate(artifacts)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestClassify_Boundaries(t *testing.T) {
	tests := []struct {
		score int
		want  Tier
	}{
		{0, TierGreen},
		{9, TierGreen},
		{10, TierYellow},
		{14, TierYellow},
		{15, TierOrange},
		{20, TierOrange},
		{21, TierRed},
		{40, TierRed},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.score), "score %d", tt.score)
	}
}

func TestClassify_Partition(t *testing.T) {
	for s := 0; s <= 100; s++ {
		tier := Classify(s)
		hits := 0
		if s < YellowThreshold && tier == TierGreen {
			hits++
		}
		if s >= YellowThreshold && s < OrangeThreshold && tier == TierYellow {
			hits++
		}
		if s >= OrangeThreshold && s < RedThreshold && tier == TierOrange {
			hits++
		}
		if s >= RedThreshold && tier == TierRed {
			hits++
		}
		assert.Equal(t, 1, hits, "score %d maps to exactly one tier", s)
	}
}

func TestTierWorse(t *testing.T) {
	assert.Equal(t, TierRed, TierGreen.Worse(TierRed))
	assert.Equal(t, TierOrange, TierOrange.Worse(TierYellow))
	assert.Equal(t, TierGreen, TierGreen.Worse(TierGreen))
}

func TestHasCritical(t *testing.T) {
	assert.False(t, HasCritical(artifactWithScores("a", 4, 4, 4, 4, 4).Checks))
	assert.True(t, HasCritical(artifactWithScores("a", 1, 1, 5, 1, 1).Checks))
	assert.False(t, HasCritical(nil))
}

func TestCriticalIndependentOfTotal(t *testing.T) {
	a := artifactWithScores("low-total", 5, 1, 1, 1, 1)
	as := ScoreArtifact(a)
	assert.Equal(t, 9, as.ArtifactRawTotal)
	assert.Equal(t, TierGreen, as.Tier)
	assert.True(t, as.Critical)
	assert.Equal(t, []string{"A"}, as.CriticalChecks)
}

func TestArtifactRawTotalVsSectionMaxTotal(t *testing.T) {
	artifacts := []models.Artifact{
		artifactWithScores("a", 2, 3, 1, 4, 5),
		artifactWithScores("b", 4, 1, 2, 2, 1),
	}
	ss, err := ScoreSection(models.SectionSourceCode, artifacts)
	require.NoError(t, err)

	assert.Equal(t, 18, ss.SectionMaxTotal)
	require.Len(t, ss.Artifacts, 2)
	assert.Equal(t, 15, ss.Artifacts[0].ArtifactRawTotal)
	assert.Equal(t, 10, ss.Artifacts[1].ArtifactRawTotal)
}

func TestScoreArtifact_UnnamedPlaceholder(t *testing.T) {
	as := ScoreArtifact(artifactWithScores("", 1, 1, 1, 1, 1))
	assert.Equal(t, models.UnnamedArtifact, as.Name)
}

func fullArtifact(s models.Section, score models.Score) models.Artifact {
	checks := s.NewChecks()
	for i := range checks {
		checks[i].Score = score
	}
	return models.Artifact{Name: string(s), Checks: checks}
}

func TestAssess_EmptyDocument(t *testing.T) {
	a, err := Assess(models.NewReviewDocument())
	require.NoError(t, err)
	require.Len(t, a.Sections, 4)
	assert.Equal(t, TierGreen, a.HighestTier)
	assert.False(t, a.Critical)
	assert.Equal(t, models.DecisionApproved, a.Advisory)
	for _, ss := range a.Sections {
		assert.Equal(t, 0, ss.SectionMaxTotal)
		assert.Empty(t, ss.MaxScoresPerCheck)
	}
}

func TestAssess_SectionLookup(t *testing.T) {
	doc := models.NewReviewDocument()
	doc.Models = []models.Artifact{fullArtifact(models.SectionModels, models.ScoreHighRisk)}

	a, err := Assess(doc)
	require.NoError(t, err)

	ms := a.Section(models.SectionModels)
	require.NotNil(t, ms)
	assert.Equal(t, 32, ms.SectionMaxTotal)
	assert.Equal(t, TierRed, ms.Tier)
	assert.Equal(t, TierRed, a.HighestTier)
	assert.Equal(t, models.DecisionRejected, a.Advisory)
	assert.Nil(t, a.Section(models.Section("bogus")))
}

func TestAssess_MismatchIsReported(t *testing.T) {
	doc := models.NewReviewDocument()
	bad := fullArtifact(models.SectionSourceCode, models.ScoreNoRisk)
	bad.Checks = bad.Checks[:3]
	doc.SourceCode = []models.Artifact{fullArtifact(models.SectionSourceCode, models.ScoreNoRisk), bad}

	_, err := Assess(doc)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChecklistMismatch)
	assert.Contains(t, err.Error(), "source_code")
}

func TestRecommend(t *testing.T) {
	tests := []struct {
		name     string
		a        *Assessment
		md       *models.ModelDetails
		expected models.Decision
	}{
		{"green", &Assessment{HighestTier: TierGreen}, nil, models.DecisionApproved},
		{"yellow", &Assessment{HighestTier: TierYellow}, nil, models.DecisionApprovedWithMonitoring},
		{"orange", &Assessment{HighestTier: TierOrange}, nil, models.DecisionApprovedWithMonitoring},
		{"critical", &Assessment{HighestTier: TierGreen, Critical: true}, nil, models.DecisionEscalated},
		{"flops threshold", &Assessment{HighestTier: TierGreen}, &models.ModelDetails{ExceedsThreshold: true}, models.DecisionEscalated},
		{"red wins", &Assessment{HighestTier: TierRed, Critical: true}, nil, models.DecisionRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Recommend(tt.a, tt.md))
		})
	}
}
