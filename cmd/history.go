package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aimcr/aimcr/internal/models"
	"github.com/aimcr/aimcr/internal/output"
	"github.com/aimcr/aimcr/internal/store"
)

var (
	historyProject string
	historyKind    string
	historyLimit   int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the local history of saves, submissions and syncs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return historyRun(cmd)
	},
}

func init() {
	historyCmd.Flags().StringVarP(&historyProject, "project", "p", "", "Filter by project ID")
	historyCmd.Flags().StringVar(&historyKind, "kind", "", "Filter by event kind (draft_saved, draft_deleted, submitted, sync_ok, sync_failed)")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "Maximum number of entries")
	rootCmd.AddCommand(historyCmd)
}

func historyRun(cmd *cobra.Command) error {
	l, err := getLedger()
	if err != nil {
		return err
	}
	events, err := l.List(cmd.Context(), store.EventFilter{
		ProjectID: historyProject,
		Kind:      models.EventKind(historyKind),
		Limit:     historyLimit,
	})
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}
	if len(events) == 0 {
		ui.Info("No history yet")
		return nil
	}

	table := ui.Table([]string{"When", "Event", "Project", "Path", "Detail"})
	for _, e := range events {
		_ = table.Append([]string{
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			kindColor(e.Kind),
			e.ProjectID,
			e.Path,
			e.Detail,
		})
	}
	_ = table.Render()
	return nil
}

func kindColor(k models.EventKind) string {
	switch k {
	case models.EventSubmitted, models.EventSyncOK:
		return output.Green(string(k))
	case models.EventSyncFailed:
		return output.Red(string(k))
	case models.EventDraftDeleted:
		return output.Yellow(string(k))
	default:
		return string(k)
	}
}
