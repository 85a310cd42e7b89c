package form

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/aimcr/aimcr/internal/models"
	"github.com/aimcr/aimcr/internal/risk"
)

var (
	colorGreen  = lipgloss.Color("#2ECC71")
	colorYellow = lipgloss.Color("#F4D03F")
	colorOrange = lipgloss.Color("#E67E22")
	colorRed    = lipgloss.Color("#E74C3C")
	colorMuted  = lipgloss.Color("#7F8C8D")
	colorAccent = lipgloss.Color("#3498DB")
)

var styles = struct {
	Title    lipgloss.Style
	Muted    lipgloss.Style
	Critical lipgloss.Style
	Box      lipgloss.Style
	Tier     map[risk.Tier]lipgloss.Style
}{
	Title:    lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
	Muted:    lipgloss.NewStyle().Foreground(colorMuted),
	Critical: lipgloss.NewStyle().Bold(true).Foreground(colorRed),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorAccent).
		Padding(0, 1),
	Tier: map[risk.Tier]lipgloss.Style{
		risk.TierGreen:  lipgloss.NewStyle().Foreground(colorGreen),
		risk.TierYellow: lipgloss.NewStyle().Foreground(colorYellow),
		risk.TierOrange: lipgloss.NewStyle().Foreground(colorOrange),
		risk.TierRed:    lipgloss.NewStyle().Bold(true).Foreground(colorRed),
	},
}

func tierStyle(t risk.Tier) lipgloss.Style {
	if s, ok := styles.Tier[t]; ok {
		return s
	}
	return lipgloss.NewStyle()
}

// Summary renders the live score panel shown between form steps.
func Summary(doc *models.ReviewDocument) string {
	var b strings.Builder
	title := doc.Metadata.ProposalTitle
	if title == "" {
		title = "Untitled review"
	}
	b.WriteString(styles.Title.Render(title))
	if doc.Metadata.ProjectID != "" {
		b.WriteString(styles.Muted.Render("  " + doc.Metadata.ProjectID))
	}
	b.WriteString("\n")

	a, err := risk.Assess(doc)
	if err != nil {
		b.WriteString(styles.Critical.Render(err.Error()))
		return styles.Box.Render(b.String())
	}

	for _, ss := range a.Sections {
		line := fmt.Sprintf("%-22s %2d artifacts  total %2d  %s",
			ss.Section.Title(), len(ss.Artifacts), ss.SectionMaxTotal, strings.ToUpper(string(ss.Tier)))
		b.WriteString(tierStyle(ss.Tier).Render(line))
		if ss.Critical {
			b.WriteString(" " + styles.Critical.Render("CRITICAL"))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nAdvisory: %s", a.Advisory)
	if doc.FinalDecision != "" {
		fmt.Fprintf(&b, "   Decision: %s", doc.FinalDecision)
	}
	return styles.Box.Render(b.String())
}

// ScoreWarning returns the inline warning for a single check score, or "".
func ScoreWarning(s models.Score) string {
	switch {
	case s >= models.ScoreCritical:
		return styles.Critical.Render("critical: requires escalation")
	case s == models.ScoreHighRisk:
		return tierStyle(risk.TierOrange).Render("high risk")
	default:
		return ""
	}
}
