package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aimcr/aimcr/internal/output"
	"github.com/aimcr/aimcr/internal/risk"
)

var (
	scoreJSON   bool
	scoreChecks bool
)

var scoreCmd = &cobra.Command{
	Use:   "score <draft-or-file>",
	Short: "Show section and artifact risk scores",
	Long: `Show both risk metrics for a review:

  section max total   sum over checks of the highest score any artifact got
  artifact raw total  sum of one artifact's own check scores

Tiers: green < 10, yellow 10-14, orange 15-20, red >= 21. A single score of
5 marks the section CRITICAL whatever the total.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return scoreRun(args[0])
	},
}

func init() {
	scoreCmd.Flags().BoolVar(&scoreJSON, "json", false, "Print the assessment as JSON")
	scoreCmd.Flags().BoolVar(&scoreChecks, "checks", false, "Show the per-check maxima for each section")
	rootCmd.AddCommand(scoreCmd)
}

func scoreRun(arg string) error {
	ld, err := loadDocument(arg)
	if err != nil {
		return err
	}
	a, err := risk.Assess(ld.Doc)
	if err != nil {
		return err
	}

	if scoreJSON {
		data, err := json.MarshalIndent(a, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(ui.Out, string(data))
		return nil
	}

	table := ui.Table([]string{"Section", "Artifacts", "Max Total", "Tier", "Critical"})
	for _, ss := range a.Sections {
		_ = table.Append([]string{
			ss.Section.Title(),
			fmt.Sprintf("%d", len(ss.Artifacts)),
			output.TotalColor(ss.SectionMaxTotal),
			output.TierColor(ss.Tier, string(ss.Tier)),
			output.CriticalMark(ss.Critical),
		})
	}
	_ = table.Render()

	if scoreChecks {
		fmt.Fprintln(ui.Out)
		for _, ss := range a.Sections {
			if len(ss.Artifacts) == 0 {
				continue
			}
			fmt.Fprintf(ui.Out, "%s\n", output.Cyan(ss.Section.Title()))
			names := ss.Section.Checklist()
			for i, m := range ss.MaxScoresPerCheck {
				name := fmt.Sprintf("check %d", i+1)
				if i < len(names) {
					name = names[i]
				}
				fmt.Fprintf(ui.Out, "  %-40s %d\n", name, m)
			}
		}
	}

	var rows [][]string
	for _, ss := range a.Sections {
		for i, as := range ss.Artifacts {
			crit := output.CriticalMark(as.Critical)
			if as.Critical {
				crit += " (" + strings.Join(as.CriticalChecks, ", ") + ")"
			}
			rows = append(rows, []string{
				ss.Section.Title(),
				fmt.Sprintf("%d", i+1),
				as.Name,
				output.TotalColor(as.ArtifactRawTotal),
				output.TierColor(as.Tier, string(as.Tier)),
				crit,
			})
		}
	}
	if len(rows) > 0 {
		fmt.Fprintln(ui.Out)
		at := ui.Table([]string{"Section", "#", "Artifact", "Raw Total", "Tier", "Critical"})
		for _, r := range rows {
			_ = at.Append(r)
		}
		_ = at.Render()
	}

	fmt.Fprintln(ui.Out)
	fmt.Fprintf(ui.Out, "Highest tier:      %s\n", output.TierColor(a.HighestTier, string(a.HighestTier)))
	fmt.Fprintf(ui.Out, "Critical:          %s\n", output.CriticalMark(a.Critical))
	fmt.Fprintf(ui.Out, "Advisory decision: %s\n", output.DecisionColor(a.Advisory))
	fmt.Fprintf(ui.Out, "Final decision:    %s\n", output.DecisionColor(ld.Doc.FinalDecision))
	return nil
}
