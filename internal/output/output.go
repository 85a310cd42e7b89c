package output

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/aimcr/aimcr/internal/models"
	"github.com/aimcr/aimcr/internal/risk"
	"github.com/aimcr/aimcr/internal/validate"
)

// UI provides colored output and respects verbose/dry-run modes.
type UI struct {
	Verbose bool
	DryRun  bool
	Out     io.Writer
	ErrOut  io.Writer
}

// New creates a UI with default stdout/stderr writers.
func New() *UI {
	return &UI{
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	}
}

var (
	infoPrefix    = color.New(color.FgHiBlue).Sprint("i")
	successPrefix = color.New(color.FgHiGreen).Sprint("\u2713")
	warningPrefix = color.New(color.FgHiYellow).Sprint("\u26a0")
	errorPrefix   = color.New(color.FgHiRed).Sprint("\u2717")
	verbosePrefix = color.New(color.FgHiBlue).Sprint("  \u2192")
	cyan          = color.New(color.FgHiCyan).SprintFunc()
	green         = color.New(color.FgHiGreen).SprintFunc()
	yellow        = color.New(color.FgHiYellow).SprintFunc()
	red           = color.New(color.FgHiRed).SprintFunc()
	magenta       = color.New(color.FgHiMagenta).SprintFunc()
)

// Cyan returns a cyan-colored string.
func Cyan(s string) string { return cyan(s) }

// Green returns a green-colored string.
func Green(s string) string { return green(s) }

// Yellow returns a yellow-colored string.
func Yellow(s string) string { return yellow(s) }

// Red returns a red-colored string.
func Red(s string) string { return red(s) }

// TierColor returns s colored by risk tier.
func TierColor(tier risk.Tier, s string) string {
	switch tier {
	case risk.TierGreen:
		return green(s)
	case risk.TierYellow:
		return yellow(s)
	case risk.TierOrange:
		return magenta(s)
	case risk.TierRed:
		return red(s)
	default:
		return s
	}
}

// TotalColor renders a section total colored by its tier.
func TotalColor(total int) string {
	return TierColor(risk.Classify(total), fmt.Sprintf("%d", total))
}

// ScoreColor renders a single check score; 5 is red, 4 yellow.
func ScoreColor(score models.Score) string {
	s := fmt.Sprintf("%d", score)
	switch {
	case score >= models.ScoreCritical:
		return red(s)
	case score == models.ScoreHighRisk:
		return yellow(s)
	default:
		return s
	}
}

// CriticalMark renders the critical gate for a table cell.
func CriticalMark(critical bool) string {
	if critical {
		return red("CRITICAL")
	}
	return "-"
}

// DecisionColor returns the decision colored by outcome.
func DecisionColor(d models.Decision) string {
	switch d {
	case models.DecisionApproved:
		return green(string(d))
	case models.DecisionApprovedWithMonitoring:
		return yellow(string(d))
	case models.DecisionEscalated:
		return magenta(string(d))
	case models.DecisionRejected:
		return red(string(d))
	case "":
		return "(none)"
	default:
		return string(d)
	}
}

func (u *UI) Info(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", infoPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Success(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", successPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Warning(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", warningPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Error(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", errorPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) VerboseLog(format string, a ...any) {
	if u.Verbose {
		fmt.Fprintf(u.Out, "%s %s\n", verbosePrefix, fmt.Sprintf(format, a...))
	}
}

func (u *UI) DryRunMsg(format string, a ...any) {
	if u.DryRun {
		u.Warning("[DRY-RUN] "+format, a...)
	}
}

// Table creates a new tablewriter configured with consistent styling.
func (u *UI) Table(headers []string) *tablewriter.Table {
	table := tablewriter.NewTable(u.Out,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header(headers)
	return table
}

// ValidationErrors prints one line per validation failure.
func (u *UI) ValidationErrors(errs validate.Errors) {
	for _, e := range errs {
		fmt.Fprintf(u.ErrOut, "  %s %s: %s\n", errorPrefix, e.Field, e.Reason)
	}
}
