package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/aimcr/aimcr/internal/mcp"
	"github.com/aimcr/aimcr/internal/store"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for Claude Code integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets Claude Code read drafts, scores and validation results from aimcr.
Configure in Claude Code with:

  {
    "mcpServers": {
      "aimcr": { "command": "aimcr", "args": ["mcp"] }
    }
  }

Available tools: aimcr_list_drafts, aimcr_score_review,
aimcr_validate_review, aimcr_checklist, aimcr_history`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcpRun(cmd)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func mcpRun(cmd *cobra.Command) error {
	// stdout carries the protocol; route messages to stderr
	ui.Out = os.Stderr

	svc, err := getService()
	if err != nil {
		return err
	}
	var l store.Ledger
	if lg, err := getLedger(); err == nil {
		l = lg
	}
	return mcp.NewServer(svc, l, buildVersion).ServeStdio(cmd.Context())
}
