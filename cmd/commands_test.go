package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimcr/aimcr/internal/models"
	"github.com/aimcr/aimcr/internal/risk"
	"github.com/aimcr/aimcr/internal/store"
)

// captureUI redirects ui output into buffers.
func captureUI(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	ui.Out = &out
	ui.ErrOut = &errOut
	return &out, &errOut
}

func testCmd() *cobra.Command {
	c := &cobra.Command{}
	c.SetContext(context.Background())
	return c
}

func reviewDoc(projectID string, score models.Score) *models.ReviewDocument {
	doc := models.NewReviewDocument()
	doc.Metadata = models.Metadata{
		ProposalTitle: "Protein folding at scale",
		ReviewerName:  "R. Reviewer",
		ProjectID:     projectID,
		AIMCRDate:     "2025-03-01",
	}
	checks := models.SectionModels.NewChecks()
	for i := range checks {
		checks[i].Score = score
	}
	doc.Models = []models.Artifact{{ID: models.NewArtifactID(), Name: "fold-net", Checks: checks}}
	return doc
}

func writeDocFile(t *testing.T, dir, name string, doc *models.ReviewDocument) string {
	t.Helper()
	data, err := store.Encode(doc)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func draftNames(t *testing.T) []string {
	t.Helper()
	docs, err := getDocuments()
	require.NoError(t, err)
	drafts, err := docs.ListDrafts()
	require.NoError(t, err)
	var names []string
	for _, d := range drafts {
		names = append(names, d.Name)
	}
	return names
}

func TestLoadDocument_FileAndDraft(t *testing.T) {
	dir := testEnv(t)
	captureUI(t)
	path := writeDocFile(t, dir, "review.json", reviewDoc("P1", models.ScoreLowRisk))

	ld, err := loadDocument(path)
	require.NoError(t, err)
	assert.Empty(t, ld.Draft)
	assert.Equal(t, "P1", ld.Doc.Metadata.ProjectID)

	require.NoError(t, draftImportRun(testCmd(), path))
	names := draftNames(t)
	require.Len(t, names, 1)

	ld, err = loadDocument("draft_P1")
	require.NoError(t, err)
	assert.Equal(t, names[0], ld.Draft)
	assert.Equal(t, filepath.Join(dir, "workspace", store.DraftsDir, names[0]), ld.Path)
}

func TestLoadDocument_Missing(t *testing.T) {
	testEnv(t)
	captureUI(t)

	_, err := loadDocument("draft_nothing")
	var le *store.LoadError
	assert.ErrorAs(t, err, &le)

	_, err = loadDocument(filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorAs(t, err, &le)
}

func TestDraftImport_InvalidReportsErrors(t *testing.T) {
	dir := testEnv(t)
	_, errOut := captureUI(t)

	doc := reviewDoc("P1", models.ScoreLowRisk)
	doc.Metadata.ProposalTitle = ""
	path := writeDocFile(t, dir, "bad.json", doc)

	err := draftImportRun(testCmd(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation error")
	assert.Contains(t, errOut.String(), "metadata.proposal_title")
	assert.Empty(t, draftNames(t))
}

func TestDraftListAndShow(t *testing.T) {
	dir := testEnv(t)
	out, _ := captureUI(t)

	require.NoError(t, draftListRun())
	assert.Contains(t, out.String(), "No drafts")

	require.NoError(t, draftImportRun(testCmd(), writeDocFile(t, dir, "a.json", reviewDoc("P1", models.ScoreLowRisk))))
	out.Reset()
	require.NoError(t, draftListRun())
	assert.Contains(t, out.String(), "P1")
	assert.Contains(t, out.String(), "Protein folding at scale")

	out.Reset()
	draftShowJSON = true
	require.NoError(t, draftShowRun("draft_P1"))
	var doc models.ReviewDocument
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.Equal(t, "fold-net", doc.Models[0].Name)
}

func TestDraftDelete(t *testing.T) {
	dir := testEnv(t)
	captureUI(t)
	require.NoError(t, draftImportRun(testCmd(), writeDocFile(t, dir, "a.json", reviewDoc("P1", models.ScoreLowRisk))))

	dryRun = true
	require.NoError(t, draftDeleteRun(testCmd(), "draft_P1"))
	assert.Len(t, draftNames(t), 1, "dry run keeps the draft")

	dryRun = false
	require.NoError(t, draftDeleteRun(testCmd(), "draft_P1"))
	assert.Empty(t, draftNames(t))

	l, err := getLedger()
	require.NoError(t, err)
	events, err := l.List(context.Background(), store.EventFilter{})
	require.NoError(t, err)
	var kinds []models.EventKind
	for _, e := range events {
		kinds = append(kinds, e.Kind)
	}
	assert.ElementsMatch(t, []models.EventKind{models.EventDraftSaved, models.EventDraftDeleted}, kinds)
}

func TestSubmit_DeletesDraftWhenAsked(t *testing.T) {
	dir := testEnv(t)
	captureUI(t)
	doc := reviewDoc("P1", models.ScoreLowRisk)
	doc.FinalDecision = models.DecisionApproved
	require.NoError(t, draftImportRun(testCmd(), writeDocFile(t, dir, "a.json", doc)))

	submitDeleteDraft = true
	require.NoError(t, submitRun(testCmd(), "draft_P1"))

	matches, err := filepath.Glob(filepath.Join(dir, "workspace", store.SubmissionsDir, "AIMCR-P1-*", store.SubmissionFile))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	saved, err := store.ReadDocument(matches[0])
	require.NoError(t, err)
	assert.Equal(t, models.DecisionApproved, saved.FinalDecision)
	assert.Empty(t, draftNames(t))
}

func TestSubmit_RequiresDecision(t *testing.T) {
	dir := testEnv(t)
	_, errOut := captureUI(t)
	path := writeDocFile(t, dir, "a.json", reviewDoc("P1", models.ScoreLowRisk))

	err := submitRun(testCmd(), path)
	require.Error(t, err)
	assert.Contains(t, errOut.String(), "final_decision")

	_, statErr := os.Stat(filepath.Join(dir, "workspace", store.SubmissionsDir))
	assert.True(t, os.IsNotExist(statErr))
}

func TestScore_Table(t *testing.T) {
	dir := testEnv(t)
	out, _ := captureUI(t)

	doc := reviewDoc("P1", models.ScoreLowRisk)
	doc.Models[0].Checks[0].Score = models.ScoreCritical
	path := writeDocFile(t, dir, "a.json", doc)

	require.NoError(t, scoreRun(path))
	text := out.String()
	assert.Contains(t, text, "AI Models")
	assert.Contains(t, text, "fold-net")
	assert.Contains(t, text, "CRITICAL")
	assert.Contains(t, text, string(models.DecisionEscalated))
}

func TestScore_JSON(t *testing.T) {
	dir := testEnv(t)
	out, _ := captureUI(t)
	path := writeDocFile(t, dir, "a.json", reviewDoc("P1", models.ScoreModerateRisk))

	scoreJSON = true
	require.NoError(t, scoreRun(path))

	var a risk.Assessment
	require.NoError(t, json.Unmarshal(out.Bytes(), &a))
	ms := a.Section(models.SectionModels)
	require.NotNil(t, ms)
	assert.Equal(t, 3*models.SectionModels.ChecklistSize(), ms.SectionMaxTotal)
	assert.Equal(t, risk.Classify(ms.SectionMaxTotal), ms.Tier)
	assert.False(t, a.Critical)
}

func TestScore_StructuralError(t *testing.T) {
	dir := testEnv(t)
	captureUI(t)
	doc := reviewDoc("P1", models.ScoreLowRisk)
	short := doc.Models[0].Clone()
	short.Name = "short"
	short.Checks = short.Checks[:2]
	doc.Models = append(doc.Models, short)
	path := writeDocFile(t, dir, "a.json", doc)

	err := scoreRun(path)
	assert.ErrorIs(t, err, risk.ErrChecklistMismatch)
}

func TestValidate_Levels(t *testing.T) {
	dir := testEnv(t)
	out, _ := captureUI(t)
	path := writeDocFile(t, dir, "a.json", reviewDoc("P1", models.ScoreLowRisk))

	require.NoError(t, validateRun(path))
	assert.Contains(t, out.String(), "Valid draft")

	validateFinal = true
	assert.Error(t, validateRun(path))

	out.Reset()
	validateJSON = true
	err := validateRun(path)
	require.Error(t, err)
	var got struct {
		Valid  bool `json:"valid"`
		Errors []struct {
			Field string `json:"field"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.False(t, got.Valid)
	require.Len(t, got.Errors, 1)
	assert.Equal(t, "final_decision", got.Errors[0].Field)
}

func TestExport_Formats(t *testing.T) {
	dir := testEnv(t)
	out, _ := captureUI(t)
	path := writeDocFile(t, dir, "a.json", reviewDoc("P1", models.ScoreLowRisk))

	require.NoError(t, exportRun(path))
	assert.Contains(t, out.String(), "# AI Model Control Review")

	exportFormat = "csv"
	exportOutput = filepath.Join(dir, "out.csv")
	require.NoError(t, exportRun(path))
	data, err := os.ReadFile(exportOutput)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, "section,artifact_index,artifact,check,score,notes,artifact_raw_total", lines[0])
	assert.Len(t, lines, 1+models.SectionModels.ChecklistSize())
}

func TestExport_UnknownFormat(t *testing.T) {
	testEnv(t)
	captureUI(t)
	exportFormat = "pdf"

	err := exportRun("anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestChecklist(t *testing.T) {
	testEnv(t)
	out, _ := captureUI(t)

	require.NoError(t, checklistRun(""))
	for _, s := range models.Sections {
		assert.Contains(t, out.String(), s.Title())
	}

	out.Reset()
	require.NoError(t, checklistRun("code"))
	assert.Contains(t, out.String(), models.SectionSourceCode.Title())
	assert.NotContains(t, out.String(), models.SectionModels.Title())

	assert.Error(t, checklistRun("nope"))
}

func TestHistory_FilterByProject(t *testing.T) {
	dir := testEnv(t)
	out, _ := captureUI(t)

	require.NoError(t, historyRun(testCmd()))
	assert.Contains(t, out.String(), "No history")

	require.NoError(t, draftImportRun(testCmd(), writeDocFile(t, dir, "a.json", reviewDoc("P1", models.ScoreLowRisk))))
	require.NoError(t, draftImportRun(testCmd(), writeDocFile(t, dir, "b.json", reviewDoc("P2", models.ScoreLowRisk))))

	out.Reset()
	historyProject = "P2"
	require.NoError(t, historyRun(testCmd()))
	assert.Contains(t, out.String(), "P2")
	assert.NotContains(t, out.String(), "draft_P1")
}

func TestArchive_Errors(t *testing.T) {
	dir := testEnv(t)
	captureUI(t)

	err := archiveRun(testCmd(), "AIMCR-P1-01-03-2025")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "submission not found")

	sub := filepath.Join(dir, "workspace", store.SubmissionsDir, "AIMCR-P1-01-03-2025")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	err = archiveRun(testCmd(), "AIMCR-P1-01-03-2025")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive.bucket")

	viper.Set("archive.bucket", "reviews")
	dryRun = true
	ui.DryRun = true
	assert.NoError(t, archiveRun(testCmd(), sub))
}

func TestSuggest_RequiresAPIKey(t *testing.T) {
	testEnv(t)
	captureUI(t)

	err := suggestRun(testCmd(), "draft_P1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestSync_Disabled(t *testing.T) {
	testEnv(t)
	captureUI(t)

	err := syncRun(testCmd())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync is disabled")
}
