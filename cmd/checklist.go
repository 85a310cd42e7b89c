package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aimcr/aimcr/internal/models"
	"github.com/aimcr/aimcr/internal/output"
)

var checklistCmd = &cobra.Command{
	Use:   "checklist [section]",
	Short: "Print the fixed checklist for each section",
	Long: `Print the checks every artifact is scored against. Sections accept the
JSON key or a short alias (tps, code, data, model).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		section := ""
		if len(args) == 1 {
			section = args[0]
		}
		return checklistRun(section)
	},
}

func init() {
	rootCmd.AddCommand(checklistCmd)
}

func checklistRun(section string) error {
	sections := models.Sections
	if section != "" {
		s, err := models.ParseSection(section)
		if err != nil {
			return err
		}
		sections = []models.Section{s}
	}

	for i, s := range sections {
		if i > 0 {
			fmt.Fprintln(ui.Out)
		}
		fmt.Fprintf(ui.Out, "%s (%s, %d checks)\n", output.Cyan(s.Title()), s, s.ChecklistSize())
		for j, name := range s.Checklist() {
			fmt.Fprintf(ui.Out, "  %d. %s\n", j+1, name)
		}
	}
	return nil
}
