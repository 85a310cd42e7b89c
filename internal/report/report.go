// Package report renders a review document with its computed risk scores as
// Markdown, CSV or JSON.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"

	"github.com/aimcr/aimcr/internal/models"
	"github.com/aimcr/aimcr/internal/risk"
)

// Format is an export format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
)

// Formats lists the supported export formats.
var Formats = []Format{FormatMarkdown, FormatCSV, FormatJSON}

// ParseFormat accepts a format name or a common file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "markdown", "md":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown format %q (want markdown, csv or json)", s)
}

const (
	noObservations   = "None recorded."
	noRecommendation = "Not provided."
	noItems          = "No items in this category."
)

var metadataFields = []struct {
	label string
	value func(m models.Metadata) string
}{
	{"Proposal Title", func(m models.Metadata) string { return m.ProposalTitle }},
	{"Principal Investigator", func(m models.Metadata) string { return m.PrincipalInvestigator }},
	{"Proposal Date", func(m models.Metadata) string { return m.ProposalDate }},
	{"Reviewer Name", func(m models.Metadata) string { return m.ReviewerName }},
	{"Reviewer ID", func(m models.Metadata) string { return m.ReviewerID }},
	{"AIMCR Date", func(m models.Metadata) string { return m.AIMCRDate }},
	{"Project ID", func(m models.Metadata) string { return m.ProjectID }},
}

// Write renders doc in the given format. The assessment is computed here so
// every format reports the same numbers.
func Write(w io.Writer, doc *models.ReviewDocument, format Format, generated time.Time) error {
	a, err := risk.Assess(doc)
	if err != nil {
		return err
	}
	switch format {
	case FormatMarkdown:
		return writeMarkdown(w, doc, a, generated)
	case FormatCSV:
		return writeCSV(w, doc)
	case FormatJSON:
		return writeJSON(w, doc, a, generated)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return strings.TrimSpace(s)
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

func markdownTable(w io.Writer, headers []string, rows [][]string) error {
	table := tablewriter.NewTable(w, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header(headers)
	for _, r := range rows {
		if err := table.Append(r); err != nil {
			return err
		}
	}
	return table.Render()
}

func writeMarkdown(w io.Writer, doc *models.ReviewDocument, a *risk.Assessment, generated time.Time) error {
	var b strings.Builder
	b.WriteString("# AI Model Control Review\n\n## Review Information\n\n")

	var meta [][]string
	for _, f := range metadataFields {
		meta = append(meta, []string{f.label, cell(orDefault(f.value(doc.Metadata), "N/A"))})
	}
	if err := markdownTable(&b, []string{"Field", "Value"}, meta); err != nil {
		return err
	}

	for _, s := range models.Sections {
		ss := a.Section(s)
		fmt.Fprintf(&b, "\n## %s\n\n", s.Title())
		artifacts := doc.Artifacts(s)
		if len(artifacts) == 0 {
			fmt.Fprintf(&b, "%s\n", noItems)
			continue
		}
		critical := "no"
		if ss.Critical {
			critical = "yes"
		}
		fmt.Fprintf(&b, "Section max total: **%d** (%s), critical: %s\n", ss.SectionMaxTotal, ss.Tier, critical)

		for i, art := range artifacts {
			fmt.Fprintf(&b, "\n### %d. %s\n\n", i+1, cell(art.DisplayName()))
			var rows [][]string
			for _, c := range art.Checks {
				rows = append(rows, []string{cell(c.Name), strconv.Itoa(int(c.Score)), cell(c.Notes)})
			}
			if err := markdownTable(&b, []string{"Check", "Score", "Notes"}, rows); err != nil {
				return err
			}
			fmt.Fprintf(&b, "\nArtifact raw total: **%d**\n", risk.ArtifactRawTotal(art))
		}
	}

	writeDetails(&b, doc)

	fmt.Fprintf(&b, "\n## General Observations\n\n%s\n", orDefault(doc.Observations, noObservations))
	fmt.Fprintf(&b, "\n## Final Recommendation\n\n%s\n", orDefault(doc.Recommendation, noRecommendation))
	if doc.FinalDecision != "" {
		fmt.Fprintf(&b, "\n**Decision:** %s\n", doc.FinalDecision)
	}
	fmt.Fprintf(&b, "\n---\n\nReport generated on %s\n", generated.Format("2006-01-02 15:04:05"))

	_, err := io.WriteString(w, b.String())
	return err
}

func writeDetails(b *strings.Builder, doc *models.ReviewDocument) {
	if d := doc.SourceCodeDetails; d != nil && d.RepositoryURL != "" {
		fmt.Fprintf(b, "\n**Repository:** %s\n", d.RepositoryURL)
	}
	if d := doc.DatasetDetails; d != nil {
		if d.SampleGuideline != "" {
			fmt.Fprintf(b, "\n**Dataset sampling:** %s\n", d.SampleGuideline)
		}
		if len(d.UploadedFiles) > 0 {
			fmt.Fprintf(b, "\n**Uploaded files:** %s\n", strings.Join(d.UploadedFiles, ", "))
		}
	}
	if d := doc.ModelDetails; d != nil {
		fmt.Fprintf(b, "\n**Model:** %s (training %s FLOPs, planned %s FLOPs)\n",
			orDefault(d.ModelName, "N/A"), orDefault(d.TrainingFLOPs, "N/A"), orDefault(d.EstimatedFLOPs, "N/A"))
		if d.ExceedsThreshold {
			b.WriteString("\n**Compute above 1e27 FLOPs: escalate.**\n")
		}
	}
}

// writeCSV emits one row per check.
func writeCSV(w io.Writer, doc *models.ReviewDocument) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"section", "artifact_index", "artifact", "check", "score", "notes", "artifact_raw_total"}); err != nil {
		return err
	}
	for _, s := range models.Sections {
		for i, art := range doc.Artifacts(s) {
			total := strconv.Itoa(risk.ArtifactRawTotal(art))
			for _, c := range art.Checks {
				row := []string{string(s), strconv.Itoa(i + 1), art.DisplayName(), c.Name, strconv.Itoa(int(c.Score)), c.Notes, total}
				if err := cw.Write(row); err != nil {
					return err
				}
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// Summary is the JSON export.
type Summary struct {
	Metadata       models.Metadata  `json:"metadata"`
	Sections       []SectionSummary `json:"sections"`
	HighestTier    risk.Tier        `json:"highest_tier"`
	Critical       bool             `json:"critical"`
	Advisory       models.Decision  `json:"advisory_decision"`
	FinalDecision  models.Decision  `json:"final_decision,omitempty"`
	Observations   string           `json:"observations"`
	Recommendation string           `json:"recommendation"`
	GeneratedAt    time.Time        `json:"generated_at"`
}

// SectionSummary carries both the per-artifact and the section-level metric.
type SectionSummary struct {
	Section           models.Section    `json:"section"`
	Title             string            `json:"title"`
	SectionMaxTotal   int               `json:"section_max_total"`
	MaxScoresPerCheck []int             `json:"max_scores_per_check"`
	Tier              risk.Tier         `json:"tier"`
	Critical          bool              `json:"critical"`
	Artifacts         []ArtifactSummary `json:"artifacts"`
}

// ArtifactSummary is one artifact's raw total.
type ArtifactSummary struct {
	ID               string `json:"id,omitempty"`
	Name             string `json:"name"`
	ArtifactRawTotal int    `json:"artifact_raw_total"`
	Critical         bool   `json:"critical"`
}

// Summarize builds the JSON export structure.
func Summarize(doc *models.ReviewDocument, a *risk.Assessment, generated time.Time) Summary {
	out := Summary{
		Metadata:       doc.Metadata,
		HighestTier:    a.HighestTier,
		Critical:       a.Critical,
		Advisory:       a.Advisory,
		FinalDecision:  doc.FinalDecision,
		Observations:   orDefault(doc.Observations, noObservations),
		Recommendation: orDefault(doc.Recommendation, noRecommendation),
		GeneratedAt:    generated.UTC(),
	}
	for _, ss := range a.Sections {
		sec := SectionSummary{
			Section:           ss.Section,
			Title:             ss.Section.Title(),
			SectionMaxTotal:   ss.SectionMaxTotal,
			MaxScoresPerCheck: ss.MaxScoresPerCheck,
			Tier:              ss.Tier,
			Critical:          ss.Critical,
			Artifacts:         []ArtifactSummary{},
		}
		for _, as := range ss.Artifacts {
			sec.Artifacts = append(sec.Artifacts, ArtifactSummary{
				ID:               as.ID,
				Name:             as.Name,
				ArtifactRawTotal: as.ArtifactRawTotal,
				Critical:         as.Critical,
			})
		}
		out.Sections = append(out.Sections, sec)
	}
	return out
}

func writeJSON(w io.Writer, doc *models.ReviewDocument, a *risk.Assessment, generated time.Time) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Summarize(doc, a, generated))
}
