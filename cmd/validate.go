package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aimcr/aimcr/internal/validate"
)

var (
	validateFinal bool
	validateJSON  bool
)

var validateCmd = &cobra.Command{
	Use:   "validate <draft-or-file>",
	Short: "Check a review for missing or invalid fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return validateRun(args[0])
	},
}

func init() {
	validateCmd.Flags().BoolVar(&validateFinal, "final", false, "Apply submission rules (final decision required)")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Print errors as JSON")
	rootCmd.AddCommand(validateCmd)
}

func validateRun(arg string) error {
	ld, err := loadDocument(arg)
	if err != nil {
		return err
	}

	level := validate.Draft
	if validateFinal {
		level = validate.Final
	}
	verr := validate.Document(ld.Doc, level)

	if validateJSON {
		errs, _ := validate.AsErrors(verr)
		if errs == nil {
			errs = validate.Errors{}
		}
		data, err := json.MarshalIndent(map[string]any{
			"valid":  verr == nil,
			"errors": errs,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(ui.Out, string(data))
		if verr != nil {
			return fmt.Errorf("%d validation error(s)", len(errs))
		}
		return nil
	}

	if verr != nil {
		return reportValidation(verr)
	}
	if validateFinal {
		ui.Success("Ready to submit")
	} else {
		ui.Success("Valid draft")
	}
	return nil
}
