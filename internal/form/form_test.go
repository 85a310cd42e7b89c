package form

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimcr/aimcr/internal/models"
	"github.com/aimcr/aimcr/internal/review"
	"github.com/aimcr/aimcr/internal/validate"
)

func scoredArtifact(s models.Section, name string, scores ...int) models.Artifact {
	checks := s.NewChecks()
	for i, v := range scores {
		checks[i].Score = models.Score(v)
	}
	return models.Artifact{Name: name, Checks: checks}
}

func TestSummary(t *testing.T) {
	doc := models.NewReviewDocument()
	doc.Metadata = models.Metadata{ProposalTitle: "Ocean model", ProjectID: "OC1"}
	doc.SourceCode = []models.Artifact{
		scoredArtifact(models.SectionSourceCode, "a", 2, 3, 1, 4, 5),
		scoredArtifact(models.SectionSourceCode, "b", 4, 1, 2, 2, 1),
	}

	out := Summary(doc)
	assert.Contains(t, out, "Ocean model")
	assert.Contains(t, out, "OC1")
	assert.Contains(t, out, "total 18")
	assert.Contains(t, out, "ORANGE")
	assert.Contains(t, out, "CRITICAL")
	assert.Contains(t, out, "Advisory: Escalated")
}

func TestSummary_Untitled(t *testing.T) {
	out := Summary(models.NewReviewDocument())
	assert.Contains(t, out, "Untitled review")
	assert.Contains(t, out, "Advisory: Approved")
	assert.NotContains(t, out, "CRITICAL")
}

func TestSummary_StructuralError(t *testing.T) {
	doc := models.NewReviewDocument()
	doc.Models = []models.Artifact{{Name: "m", Checks: []models.CheckResult{{Name: "x", Score: 1}}}}
	assert.Contains(t, Summary(doc), "checklist")
}

func TestScoreWarning(t *testing.T) {
	assert.Empty(t, ScoreWarning(models.ScoreModerateRisk))
	assert.Contains(t, ScoreWarning(models.ScoreHighRisk), "high risk")
	assert.Contains(t, ScoreWarning(models.ScoreCritical), "escalation")
}

func TestValidDate(t *testing.T) {
	assert.NoError(t, validDate(""))
	assert.NoError(t, validDate("2025-02-28"))
	assert.Error(t, validDate("28/02/2025"))
	assert.Error(t, validDate("2025-02-30"))
}

func TestParseFLOPs(t *testing.T) {
	v, err := parseFLOPs("3.2e26")
	require.NoError(t, err)
	assert.InDelta(t, 3.2e26, v, 1e20)

	v, err = parseFLOPs("")
	require.NoError(t, err)
	assert.Zero(t, v)

	_, err = parseFLOPs("lots")
	assert.Error(t, err)
	_, err = parseFLOPs("-1")
	assert.Error(t, err)
}

func TestExceedsThreshold(t *testing.T) {
	assert.False(t, exceedsThreshold("5e26", "4e26"))
	assert.True(t, exceedsThreshold("6e26", "5e26"))
	assert.False(t, exceedsThreshold("1e27", ""), "threshold is exclusive")
	assert.False(t, exceedsThreshold("junk", "2e27"))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a.csv", "b.parquet"}, splitList(" a.csv, ,b.parquet "))
	assert.Nil(t, splitList(""))
}

func TestMenuOptions(t *testing.T) {
	doc := models.NewReviewDocument()
	assert.Len(t, menuOptions(doc), 8, "no edit/delete without artifacts")

	doc.Models = []models.Artifact{scoredArtifact(models.SectionModels, "m")}
	assert.Len(t, menuOptions(doc), 10)
}

func TestArtifactOptions(t *testing.T) {
	doc := models.NewReviewDocument()
	doc.SourceCode = []models.Artifact{
		scoredArtifact(models.SectionSourceCode, "", 5),
		scoredArtifact(models.SectionSourceCode, "repo"),
	}
	opts := artifactOptions(doc, models.SectionSourceCode)
	require.Len(t, opts, 2)
	assert.Equal(t, "1. (Unnamed component) (total 9) CRITICAL", opts[0].Key)
	assert.Equal(t, 0, opts[0].Value)
	assert.Equal(t, "2. repo (total 5)", opts[1].Key)
}

func TestScoreAndDecisionOptions(t *testing.T) {
	scores := scoreOptions()
	require.Len(t, scores, 5)
	assert.Equal(t, "5 - Critical Risk", scores[4].Key)

	decisions := decisionOptions()
	require.Len(t, decisions, 5)
	assert.Equal(t, models.Decision(""), decisions[0].Value)
	assert.Len(t, sectionOptions(), 4)
}

func TestCheckFieldsBindToChecks(t *testing.T) {
	checks := models.SectionModels.NewChecks()
	groups := checkFields(checks)
	assert.Len(t, groups, len(checks))
}

type fakeSaver struct {
	res *review.Result
	err error
}

func (f *fakeSaver) Save(context.Context) (*review.Result, error) { return f.res, f.err }

type fakeSubmitter struct {
	err error
	got *models.ReviewDocument
}

func (f *fakeSubmitter) Submit(_ context.Context, doc *models.ReviewDocument) (*review.Result, error) {
	f.got = doc
	if f.err != nil {
		return nil, f.err
	}
	return &review.Result{Path: "submissions/AIMCR-P-01-01-2025"}, nil
}

func TestEditorSaveAndSubmit(t *testing.T) {
	var out bytes.Buffer
	s := review.NewSession()
	s.Start(nil, "")
	e := &Editor{Session: s, Out: &out}

	e.Saver = &fakeSaver{res: &review.Result{Path: "draft_P_20250101_000000.json", SyncWarning: assert.AnError}}
	e.save(context.Background())
	assert.Equal(t, "draft_P_20250101_000000.json", s.Draft())
	assert.Contains(t, out.String(), "Saved locally, sync failed")

	out.Reset()
	e.Saver = &fakeSaver{err: validate.Errors{{Field: "metadata.project_id", Reason: "is required"}}}
	e.save(context.Background())
	assert.Contains(t, out.String(), "metadata.project_id: is required")

	sub := &fakeSubmitter{err: validate.Errors{{Field: "final_decision", Reason: "is required"}}}
	e.Submitter = sub
	assert.False(t, e.submit(context.Background()))
	require.NotNil(t, sub.got)

	sub.err = nil
	out.Reset()
	assert.True(t, e.submit(context.Background()))
	assert.True(t, strings.Contains(out.String(), "Submitted: submissions/AIMCR-P-01-01-2025"))
}

func TestDispatchQuit(t *testing.T) {
	e := &Editor{Session: review.NewSession(), Out: &bytes.Buffer{}}
	done, err := e.dispatch(context.Background(), actionQuit)
	require.NoError(t, err)
	assert.True(t, done)

	_, err = e.dispatch(context.Background(), action("bogus"))
	assert.Error(t, err)
}
