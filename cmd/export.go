package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aimcr/aimcr/internal/report"
)

// timeNow is the report clock, replaceable in tests.
var timeNow = time.Now

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export <draft-or-file>",
	Short: "Export a review as markdown, csv or json",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return exportRun(args[0])
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "markdown", "Output format: markdown, csv, json")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to file instead of stdout")
	rootCmd.AddCommand(exportCmd)
}

func exportRun(arg string) error {
	format, err := report.ParseFormat(exportFormat)
	if err != nil {
		return err
	}
	ld, err := loadDocument(arg)
	if err != nil {
		return err
	}

	if exportOutput == "" {
		return report.Write(ui.Out, ld.Doc, format, timeNow())
	}

	if dryRun {
		ui.DryRunMsg("Would write %s report to %s", format, exportOutput)
		return nil
	}
	f, err := os.Create(exportOutput)
	if err != nil {
		return fmt.Errorf("create %s: %w", exportOutput, err)
	}
	if err := writeReport(f, ld, format); err != nil {
		_ = f.Close()
		_ = os.Remove(exportOutput)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	ui.Success("Wrote %s", exportOutput)
	return nil
}

func writeReport(w io.Writer, ld *loadedDocument, format report.Format) error {
	return report.Write(w, ld.Doc, format, timeNow())
}
