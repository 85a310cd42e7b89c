package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aimcr/aimcr/internal/llm"
	"github.com/aimcr/aimcr/internal/risk"
)

var suggestApply bool

var suggestCmd = &cobra.Command{
	Use:   "suggest <draft-or-file>",
	Short: "Draft observations and a recommendation with Claude",
	Long: `Send the review's scores and notes to the Anthropic API and print
suggested observations and recommendation text. The final decision is never
changed. With --apply the text is written into a new draft.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return suggestRun(cmd, args[0])
	},
}

func init() {
	suggestCmd.Flags().BoolVar(&suggestApply, "apply", false, "Save the suggestion into a new draft")
	rootCmd.AddCommand(suggestCmd)
}

func suggestRun(cmd *cobra.Command, arg string) error {
	apiKey := viper.GetString("anthropic.api_key")
	if apiKey == "" {
		return fmt.Errorf("anthropic API key not configured (set AIMCR_ANTHROPIC_API_KEY or anthropic.api_key in config)")
	}

	ld, err := loadDocument(arg)
	if err != nil {
		return err
	}
	a, err := risk.Assess(ld.Doc)
	if err != nil {
		return err
	}

	ui.Info("Asking %s for a suggestion...", viper.GetString("anthropic.model"))
	client := llm.NewClient(apiKey, viper.GetString("anthropic.model"))
	s, err := client.SuggestRecommendation(cmd.Context(), ld.Doc, a)
	if err != nil {
		return err
	}

	fmt.Fprintln(ui.Out)
	fmt.Fprintln(ui.Out, "Observations:")
	fmt.Fprintln(ui.Out, s.Observations)
	fmt.Fprintln(ui.Out)
	fmt.Fprintln(ui.Out, "Recommendation:")
	fmt.Fprintln(ui.Out, s.Recommendation)

	if !suggestApply {
		return nil
	}
	if dryRun {
		ui.DryRunMsg("Would save the suggestion into a new draft")
		return nil
	}

	doc := ld.Doc.Clone()
	doc.Observations = s.Observations
	doc.Recommendation = s.Recommendation
	svc, err := getService()
	if err != nil {
		return err
	}
	res, err := svc.SaveDraft(cmd.Context(), doc)
	if err != nil {
		return reportValidation(err)
	}
	fmt.Fprintln(ui.Out)
	ui.Success("Saved draft %s", res.Path)
	warnSync(res.SyncWarning)
	return nil
}
