// Package form drives interactive review entry with huh forms. Every edit
// goes through review.Session; saves go through the autosave writer so the
// foreground and periodic saves never overlap.
package form

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/aimcr/aimcr/internal/models"
	"github.com/aimcr/aimcr/internal/review"
	"github.com/aimcr/aimcr/internal/risk"
	"github.com/aimcr/aimcr/internal/validate"
)

// Saver performs a foreground save. *autosave.Writer implements it.
type Saver interface {
	Save(ctx context.Context) (*review.Result, error)
}

// Submitter performs the final submission. *autosave.Writer implements it.
type Submitter interface {
	Submit(ctx context.Context, doc *models.ReviewDocument) (*review.Result, error)
}

type action string

const (
	actionMetadata  action = "metadata"
	actionAdd       action = "add"
	actionEdit      action = "edit"
	actionDelete    action = "delete"
	actionDetails   action = "details"
	actionNotes     action = "notes"
	actionDecision  action = "decision"
	actionSave      action = "save"
	actionSubmit    action = "submit"
	actionQuit      action = "quit"
)

const (
	dateLayout      = "2006-01-02"
	maxArtifactName = 200
)

// Editor runs the interactive loop for one session.
type Editor struct {
	Session    *review.Session
	Saver      Saver
	Submitter  Submitter
	Out        io.Writer
	Accessible bool
}

func (e *Editor) run(f *huh.Form) error {
	return f.WithAccessible(e.Accessible).Run()
}

// Run loops over the main menu until the reviewer quits or submits.
func (e *Editor) Run(ctx context.Context) error {
	if !e.Session.Active() {
		e.Session.Start(nil, "")
	}
	for {
		doc := e.Session.Document()
		fmt.Fprintln(e.Out, Summary(doc))

		var choice action
		err := e.run(huh.NewForm(huh.NewGroup(
			huh.NewSelect[action]().
				Title("What next?").
				Options(menuOptions(doc)...).
				Value(&choice),
		)))
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		if err != nil {
			return err
		}

		done, err := e.dispatch(ctx, choice)
		if err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				continue
			}
			return err
		}
		if done {
			return nil
		}
	}
}

func (e *Editor) dispatch(ctx context.Context, choice action) (bool, error) {
	switch choice {
	case actionMetadata:
		return false, e.editMetadata()
	case actionAdd:
		return false, e.addArtifact()
	case actionEdit:
		return false, e.editArtifact()
	case actionDelete:
		return false, e.deleteArtifact()
	case actionDetails:
		return false, e.editDetails()
	case actionNotes:
		return false, e.editNotes()
	case actionDecision:
		return false, e.editDecision()
	case actionSave:
		e.save(ctx)
		return false, nil
	case actionSubmit:
		return e.submit(ctx), nil
	case actionQuit:
		return true, nil
	}
	return false, fmt.Errorf("unknown action %q", choice)
}

func menuOptions(doc *models.ReviewDocument) []huh.Option[action] {
	opts := []huh.Option[action]{
		huh.NewOption("Review information", actionMetadata),
		huh.NewOption("Add artifact", actionAdd),
	}
	if countArtifacts(doc) > 0 {
		opts = append(opts,
			huh.NewOption("Edit artifact", actionEdit),
			huh.NewOption("Delete artifact", actionDelete),
		)
	}
	opts = append(opts,
		huh.NewOption("Section details", actionDetails),
		huh.NewOption("Observations and recommendation", actionNotes),
		huh.NewOption("Final decision", actionDecision),
		huh.NewOption("Save draft", actionSave),
		huh.NewOption("Submit", actionSubmit),
		huh.NewOption("Quit", actionQuit),
	)
	return opts
}

func countArtifacts(doc *models.ReviewDocument) int {
	n := 0
	for _, s := range models.Sections {
		n += len(doc.Artifacts(s))
	}
	return n
}

// validDate accepts an empty string or YYYY-MM-DD.
func validDate(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, err := time.Parse(dateLayout, strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("use YYYY-MM-DD")
	}
	return nil
}

func required(label string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", label)
		}
		return nil
	}
}

func (e *Editor) editMetadata() error {
	m := e.Session.Document().Metadata
	if m.AIMCRDate == "" {
		m.AIMCRDate = time.Now().Format(dateLayout)
	}
	err := e.run(huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Proposal title").Value(&m.ProposalTitle).Validate(required("proposal title")),
			huh.NewInput().Title("Principal investigator").Value(&m.PrincipalInvestigator),
			huh.NewInput().Title("Proposal date").Placeholder(dateLayout).Value(&m.ProposalDate).Validate(validDate),
			huh.NewInput().Title("Project ID").Value(&m.ProjectID).Validate(required("project ID")),
		),
		huh.NewGroup(
			huh.NewInput().Title("Reviewer name").Value(&m.ReviewerName).Validate(required("reviewer name")),
			huh.NewInput().Title("Reviewer ID").Value(&m.ReviewerID),
			huh.NewInput().Title("AIMCR date").Placeholder(dateLayout).Value(&m.AIMCRDate).Validate(validDate),
		),
	))
	if err != nil {
		return err
	}
	m.ProjectID = strings.TrimSpace(m.ProjectID)
	return e.Session.SetMetadata(m)
}

func sectionOptions() []huh.Option[models.Section] {
	opts := make([]huh.Option[models.Section], 0, len(models.Sections))
	for _, s := range models.Sections {
		opts = append(opts, huh.NewOption(s.Title(), s))
	}
	return opts
}

func scoreOptions() []huh.Option[models.Score] {
	opts := make([]huh.Option[models.Score], 0, len(models.Scores))
	for _, s := range models.Scores {
		opts = append(opts, huh.NewOption(fmt.Sprintf("%d - %s", s, s.Label()), s))
	}
	return opts
}

func (e *Editor) pickSection() (models.Section, error) {
	section := models.SectionThirdPartySoftware
	err := e.run(huh.NewForm(huh.NewGroup(
		huh.NewSelect[models.Section]().Title("Section").Options(sectionOptions()...).Value(&section),
	)))
	return section, err
}

// artifactOptions labels each artifact with its raw total; values are indices.
func artifactOptions(doc *models.ReviewDocument, section models.Section) []huh.Option[int] {
	artifacts := doc.Artifacts(section)
	opts := make([]huh.Option[int], 0, len(artifacts))
	for i, a := range artifacts {
		label := fmt.Sprintf("%d. %s (total %d)", i+1, a.DisplayName(), risk.ArtifactRawTotal(a))
		if risk.HasCritical(a.Checks) {
			label += " CRITICAL"
		}
		opts = append(opts, huh.NewOption(label, i))
	}
	return opts
}

func (e *Editor) pickArtifact() (models.Section, int, error) {
	section, err := e.pickSection()
	if err != nil {
		return section, -1, err
	}
	opts := artifactOptions(e.Session.Document(), section)
	if len(opts) == 0 {
		fmt.Fprintf(e.Out, "%s has no artifacts.\n", section.Title())
		return section, -1, nil
	}
	index := 0
	err = e.run(huh.NewForm(huh.NewGroup(
		huh.NewSelect[int]().Title("Artifact").Options(opts...).Value(&index),
	)))
	return section, index, err
}

// checkFields builds one group per check so each score is shown with its notes.
func checkFields(checks []models.CheckResult) []*huh.Group {
	groups := make([]*huh.Group, 0, len(checks))
	for i := range checks {
		c := &checks[i]
		groups = append(groups, huh.NewGroup(
			huh.NewSelect[models.Score]().
				Title(c.Name).
				Options(scoreOptions()...).
				Value(&c.Score),
			huh.NewText().Title("Notes").Value(&c.Notes).CharLimit(2000),
		))
	}
	return groups
}

func validArtifactName(s string) error {
	if len(s) > maxArtifactName {
		return fmt.Errorf("name must be at most %d characters", maxArtifactName)
	}
	return nil
}

func (e *Editor) addArtifact() error {
	section, err := e.pickSection()
	if err != nil {
		return err
	}
	var name string
	checks := section.NewChecks()
	groups := append([]*huh.Group{huh.NewGroup(
		huh.NewInput().Title(section.Title()+" name").Value(&name).Validate(validArtifactName),
	)}, checkFields(checks)...)
	if err := e.run(huh.NewForm(groups...)); err != nil {
		return err
	}
	a, err := e.Session.AddArtifact(section, strings.TrimSpace(name), checks)
	if err != nil {
		return err
	}
	e.warnCritical(a)
	return nil
}

func (e *Editor) editArtifact() error {
	section, index, err := e.pickArtifact()
	if err != nil || index < 0 {
		return err
	}
	a := e.Session.Document().Artifacts(section)[index].Clone()
	groups := append([]*huh.Group{huh.NewGroup(
		huh.NewInput().Title("Name").Value(&a.Name).Validate(validArtifactName),
	)}, checkFields(a.Checks)...)
	if err := e.run(huh.NewForm(groups...)); err != nil {
		return err
	}
	if err := e.Session.ReplaceArtifact(section, index, a); err != nil {
		return err
	}
	e.warnCritical(a)
	return nil
}

func (e *Editor) deleteArtifact() error {
	section, index, err := e.pickArtifact()
	if err != nil || index < 0 {
		return err
	}
	confirm := false
	err = e.run(huh.NewForm(huh.NewGroup(
		huh.NewConfirm().Title("Delete this artifact?").Value(&confirm),
	)))
	if err != nil || !confirm {
		return err
	}
	return e.Session.DeleteArtifact(section, index)
}

func (e *Editor) warnCritical(a models.Artifact) {
	for _, c := range a.Checks {
		if w := ScoreWarning(c.Score); w != "" {
			fmt.Fprintf(e.Out, "%s: %s %s\n", a.DisplayName(), c.Name, w)
		}
	}
}

// parseFLOPs accepts plain or scientific notation, e.g. 3.2e26.
func parseFLOPs(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("enter a non-negative number such as 3.2e26")
	}
	return v, nil
}

// flopsThreshold is the combined compute above which a model is escalated.
const flopsThreshold = 1e27

// exceedsThreshold reports whether training plus planned compute is above 1e27.
func exceedsThreshold(training, planned string) bool {
	t, err1 := parseFLOPs(training)
	p, err2 := parseFLOPs(planned)
	if err1 != nil || err2 != nil {
		return false
	}
	return t+p > flopsThreshold
}

func (e *Editor) editDetails() error {
	doc := e.Session.Document()
	sc := models.SourceCodeDetails{}
	if doc.SourceCodeDetails != nil {
		sc = *doc.SourceCodeDetails
	}
	ds := models.DatasetDetails{}
	if doc.DatasetDetails != nil {
		ds = *doc.DatasetDetails
	}
	md := models.ModelDetails{}
	if doc.ModelDetails != nil {
		md = *doc.ModelDetails
	}
	files := strings.Join(ds.UploadedFiles, ", ")

	err := e.run(huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Source code repository URL").Value(&sc.RepositoryURL),
		),
		huh.NewGroup(
			huh.NewText().Title("Dataset sampling guideline").Value(&ds.SampleGuideline),
			huh.NewInput().Title("Uploaded files (comma separated)").Value(&files),
		),
		huh.NewGroup(
			huh.NewInput().Title("Model name").Value(&md.ModelName),
			huh.NewInput().Title("Training FLOPs").Value(&md.TrainingFLOPs).Validate(func(s string) error { _, err := parseFLOPs(s); return err }),
			huh.NewInput().Title("Planned FLOPs on the target system").Value(&md.EstimatedFLOPs).Validate(func(s string) error { _, err := parseFLOPs(s); return err }),
			huh.NewConfirm().Title("Total above 1e27 FLOPs (escalate)?").Value(&md.ExceedsThreshold),
		),
	))
	if err != nil {
		return err
	}

	ds.UploadedFiles = splitList(files)
	if exceedsThreshold(md.TrainingFLOPs, md.EstimatedFLOPs) {
		md.ExceedsThreshold = true
	}
	if err := e.Session.SetSourceCodeDetails(&sc); err != nil {
		return err
	}
	if err := e.Session.SetDatasetDetails(&ds); err != nil {
		return err
	}
	return e.Session.SetModelDetails(&md)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (e *Editor) editNotes() error {
	doc := e.Session.Document()
	obs, rec := doc.Observations, doc.Recommendation
	err := e.run(huh.NewForm(huh.NewGroup(
		huh.NewText().Title("General observations").Value(&obs),
		huh.NewText().Title("Final recommendation").Value(&rec),
	)))
	if err != nil {
		return err
	}
	return e.Session.SetNotes(obs, rec)
}

func decisionOptions() []huh.Option[models.Decision] {
	opts := []huh.Option[models.Decision]{huh.NewOption("(undecided)", models.Decision(""))}
	for _, d := range models.Decisions {
		opts = append(opts, huh.NewOption(string(d), d))
	}
	return opts
}

func (e *Editor) editDecision() error {
	doc := e.Session.Document()
	decision := doc.FinalDecision
	if a, err := risk.Assess(doc); err == nil {
		fmt.Fprintf(e.Out, "Advisory decision: %s\n", a.Advisory)
	}
	err := e.run(huh.NewForm(huh.NewGroup(
		huh.NewSelect[models.Decision]().Title("Final decision").Options(decisionOptions()...).Value(&decision),
	)))
	if err != nil {
		return err
	}
	return e.Session.SetDecision(decision)
}

func (e *Editor) save(ctx context.Context) {
	res, err := e.Saver.Save(ctx)
	if err != nil {
		e.reportError(err)
		return
	}
	e.Session.SetDraft(res.Path)
	fmt.Fprintf(e.Out, "Draft saved: %s\n", res.Path)
	if res.SyncWarning != nil {
		fmt.Fprintf(e.Out, "Saved locally, sync failed: %v\n", res.SyncWarning)
	}
}

func (e *Editor) submit(ctx context.Context) bool {
	res, err := e.Submitter.Submit(ctx, e.Session.Document())
	if err != nil {
		e.reportError(err)
		return false
	}
	fmt.Fprintf(e.Out, "Submitted: %s\n", res.Path)
	if res.SyncWarning != nil {
		fmt.Fprintf(e.Out, "Saved locally, sync failed: %v\n", res.SyncWarning)
	}
	return true
}

func (e *Editor) reportError(err error) {
	if errs, ok := validate.AsErrors(err); ok {
		fmt.Fprintln(e.Out, styles.Critical.Render("Please fix the following:"))
		for _, fe := range errs {
			fmt.Fprintf(e.Out, "  - %s: %s\n", fe.Field, fe.Reason)
		}
		return
	}
	fmt.Fprintln(e.Out, styles.Critical.Render(err.Error()))
}
