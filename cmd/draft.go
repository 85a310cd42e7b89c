package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aimcr/aimcr/internal/form"
	"github.com/aimcr/aimcr/internal/store"
)

var draftShowJSON bool

var draftCmd = &cobra.Command{
	Use:     "draft",
	Aliases: []string{"drafts"},
	Short:   "Manage saved drafts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return draftListRun()
	},
}

var draftListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List drafts, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return draftListRun()
	},
}

var draftShowCmd = &cobra.Command{
	Use:   "show <draft>",
	Short: "Show a draft summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return draftShowRun(args[0])
	},
}

var draftDeleteCmd = &cobra.Command{
	Use:     "delete <draft>",
	Aliases: []string{"rm"},
	Short:   "Delete a draft",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return draftDeleteRun(cmd, args[0])
	},
}

var draftImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Save a review JSON file as a new draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return draftImportRun(cmd, args[0])
	},
}

func init() {
	draftShowCmd.Flags().BoolVar(&draftShowJSON, "json", false, "Print the raw document")

	draftCmd.AddCommand(draftListCmd)
	draftCmd.AddCommand(draftShowCmd)
	draftCmd.AddCommand(draftDeleteCmd)
	draftCmd.AddCommand(draftImportCmd)
	rootCmd.AddCommand(draftCmd)
}

func draftListRun() error {
	docs, err := getDocuments()
	if err != nil {
		return err
	}
	drafts, err := docs.ListDrafts()
	if err != nil {
		return err
	}
	if len(drafts) == 0 {
		ui.Info("No drafts. Start one with: aimcr new")
		return nil
	}

	table := ui.Table([]string{"Draft", "Project", "Title", "Modified"})
	for _, d := range drafts {
		_ = table.Append([]string{
			d.Name,
			d.ProjectID,
			d.ProposalTitle,
			d.Modified.Local().Format("2006-01-02 15:04:05"),
		})
	}
	_ = table.Render()
	return nil
}

func draftShowRun(handle string) error {
	ld, err := loadDocument(handle)
	if err != nil {
		return err
	}
	if draftShowJSON {
		data, err := json.MarshalIndent(ld.Doc, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(ui.Out, string(data))
		return nil
	}
	ui.Info("%s", ld.Path)
	fmt.Fprintln(ui.Out, form.Summary(ld.Doc))
	return nil
}

func draftDeleteRun(cmd *cobra.Command, handle string) error {
	svc, err := getService()
	if err != nil {
		return err
	}
	name, err := svc.ResolveDraft(handle)
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would delete draft %s", name)
		return nil
	}
	res, err := svc.DeleteDraft(cmd.Context(), name)
	if err != nil {
		return err
	}
	ui.Success("Deleted draft %s", res.Path)
	warnSync(res.SyncWarning)
	return nil
}

func draftImportRun(cmd *cobra.Command, path string) error {
	doc, err := store.ReadDocument(path)
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would import %s as a draft for %s", path, doc.Metadata.ProjectID)
		return nil
	}
	svc, err := getService()
	if err != nil {
		return err
	}
	res, err := svc.SaveDraft(cmd.Context(), doc)
	if err != nil {
		return reportValidation(err)
	}
	ui.Success("Imported %s as draft %s", path, res.Path)
	warnSync(res.SyncWarning)
	return nil
}
