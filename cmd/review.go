package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/aimcr/aimcr/internal/autosave"
	"github.com/aimcr/aimcr/internal/form"
	"github.com/aimcr/aimcr/internal/models"
	"github.com/aimcr/aimcr/internal/review"
)

var accessible bool

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Start a new review interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewRun(cmd.Context(), nil, "")
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <draft>",
	Short: "Resume a saved draft interactively",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := getService()
		if err != nil {
			return err
		}
		name, doc, err := svc.LoadDraft(args[0])
		if err != nil {
			return err
		}
		return reviewRun(cmd.Context(), doc, name)
	},
}

func init() {
	for _, c := range []*cobra.Command{newCmd, editCmd} {
		c.Flags().BoolVar(&accessible, "accessible", false, "Plain prompts for screen readers")
		rootCmd.AddCommand(c)
	}
}

// reviewRun opens an editing session on doc (nil for a new review) with
// background auto-save, and blocks until the reviewer quits or submits.
func reviewRun(ctx context.Context, doc *models.ReviewDocument, draft string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	svc, err := getService()
	if err != nil {
		return err
	}
	log := getLogger()

	// Pull before editing so the reviewer sees teammates' drafts.
	cfg := review.DefaultConfig()
	if cfg.SyncEnabled {
		if msg, err := svc.Setup(ctx); err != nil {
			ui.Warning("Sync unavailable, working locally: %v", err)
		} else {
			ui.VerboseLog("%s", msg)
		}
	}

	sess := review.NewSession()
	sess.Start(doc, draft)

	w := autosave.NewWriter(svc, sess.Document, log)
	w.OnSaved = func(res *review.Result) {
		sess.SetDraft(res.Path)
	}

	var stop func()
	if viper.GetBool("autosave.enabled") {
		interval := viper.GetDuration("autosave.interval")
		if interval <= 0 {
			interval = autosave.DefaultInterval
		}
		stop, err = autosave.Run(ctx, w, interval, log)
		if err != nil {
			return err
		}
		log.Info("autosave enabled", zap.Duration("interval", interval))
	} else {
		w.Start(ctx)
		stop = w.Stop
	}
	defer stop()

	editor := &form.Editor{
		Session:    sess,
		Saver:      w,
		Submitter:  w,
		Out:        ui.Out,
		Accessible: accessible,
	}
	return editor.Run(ctx)
}
