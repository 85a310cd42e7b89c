package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aimcr/aimcr/internal/store"
	"github.com/aimcr/aimcr/internal/validate"
)

var submitDeleteDraft bool

var submitCmd = &cobra.Command{
	Use:   "submit <draft-or-file>",
	Short: "Validate and save a final submission",
	Long: `Validate a review strictly (a final decision is required), write it to
submissions/AIMCR-<project>-<date>/aimcr_data.json and sync it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return submitRun(cmd, args[0])
	},
}

func init() {
	submitCmd.Flags().BoolVar(&submitDeleteDraft, "delete-draft", false, "Delete the draft after a successful submission")
	rootCmd.AddCommand(submitCmd)
}

func submitRun(cmd *cobra.Command, arg string) error {
	ld, err := loadDocument(arg)
	if err != nil {
		return err
	}

	if dryRun {
		if err := validate.Document(ld.Doc, validate.Final); err != nil {
			return reportValidation(err)
		}
		ui.DryRunMsg("Would submit %s as %s", arg, store.SubmissionFolderName(ld.Doc.Metadata.ProjectID, timeNow()))
		return nil
	}

	svc, err := getService()
	if err != nil {
		return err
	}
	res, err := svc.Submit(cmd.Context(), ld.Doc)
	if err != nil {
		return reportValidation(err)
	}
	ui.Success("Submitted: %s", res.Path)
	warnSync(res.SyncWarning)

	if submitDeleteDraft && ld.Draft != "" {
		dres, err := svc.DeleteDraft(cmd.Context(), ld.Draft)
		if err != nil {
			ui.Warning("Submitted, but could not delete draft %s: %v", ld.Draft, err)
			return nil
		}
		ui.Info("Deleted draft %s", dres.Path)
		warnSync(dres.SyncWarning)
	}
	return nil
}

// reportValidation prints field errors and returns a short summary error.
// Other errors pass through unchanged.
func reportValidation(err error) error {
	errs, ok := validate.AsErrors(err)
	if !ok {
		return err
	}
	ui.Error("Review is not valid:")
	ui.ValidationErrors(errs)
	return fmt.Errorf("%d validation error(s)", len(errs))
}

func warnSync(err error) {
	if err != nil {
		ui.Warning("Saved locally, sync failed: %v", err)
	}
}
