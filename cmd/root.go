package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/aimcr/aimcr/internal/git"
	"github.com/aimcr/aimcr/internal/logging"
	"github.com/aimcr/aimcr/internal/output"
	"github.com/aimcr/aimcr/internal/review"
	"github.com/aimcr/aimcr/internal/store"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	ledger    store.Ledger
	documents store.Documents
	service   *review.Service
	logger    *zap.Logger

	verbose bool
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "aimcr",
	Short: "AI Model Control Review - score and record third-party AI risk reviews",
	Long: `aimcr records AI Model Control Reviews for research proposals.

A reviewer scores each third-party software package, source code base,
dataset and model against a fixed checklist. aimcr aggregates the scores
per section, classifies the risk tier, saves drafts and final submissions
as JSON, and can push them to a shared git repository.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	err := rootCmd.Execute()
	closeDeps()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return rootRun(cmd)
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/aimcr/config.yaml)")
}

func initConfig() {
	// .env in the working directory is optional
	_ = godotenv.Load()

	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		viper.AddConfigPath(filepath.Join(home, ".config", "aimcr"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("AIMCR")
	viper.AutomaticEnv()

	home, _ := os.UserHomeDir()
	setDefaults(filepath.Join(home, ".config", "aimcr"))

	_ = viper.ReadInConfig()
}

// setDefaults registers every known key. Paths derive from stateDir.
func setDefaults(stateDir string) {
	viper.SetDefault("state_dir", stateDir)
	viper.SetDefault("db_path", filepath.Join(stateDir, "aimcr.db"))
	viper.SetDefault("workspace", filepath.Join(stateDir, "workspace"))
	viper.SetDefault("log.file", filepath.Join(stateDir, "aimcr.log"))

	viper.SetDefault("sync.enabled", false)
	viper.SetDefault("sync.repo_url", "")
	viper.SetDefault("sync.token", "")
	viper.SetDefault("sync.timeout", git.DefaultTimeout)

	viper.SetDefault("autosave.enabled", true)
	viper.SetDefault("autosave.interval", "10s")

	viper.SetDefault("archive.bucket", "")
	viper.SetDefault("archive.region", "us-east-1")
	viper.SetDefault("archive.endpoint", "")
	viper.SetDefault("archive.prefix", "aimcr")
	viper.SetDefault("archive.access_key", "")
	viper.SetDefault("archive.secret_key", "")

	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	// Ledger, documents and service are opened lazily so config and
	// version commands run without touching the state directory.
}

func closeDeps() {
	if ledger != nil {
		_ = ledger.Close()
	}
	if logger != nil {
		_ = logger.Sync()
	}
}

// rootRun handles `aimcr` with no subcommand: list drafts when there are
// any, otherwise show help.
func rootRun(cmd *cobra.Command) error {
	docs, err := getDocuments()
	if err != nil {
		return cmd.Help()
	}
	drafts, err := docs.ListDrafts()
	if err != nil || len(drafts) == 0 {
		return cmd.Help()
	}
	return draftListRun()
}

// getLogger returns the shared zap logger, writing to log.file.
func getLogger() *zap.Logger {
	if logger != nil {
		return logger
	}
	l, err := logging.New(verbose, viper.GetString("log.file"))
	if err != nil {
		ui.VerboseLog("logging disabled: %v", err)
		l = logging.Nop()
	}
	logger = l
	return logger
}

// getLedger returns the shared history ledger, initializing it on first call.
func getLedger() (store.Ledger, error) {
	if ledger != nil {
		return ledger, nil
	}

	dbPath := viper.GetString("db_path")
	l, err := store.NewSQLiteLedger(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := l.Migrate(context.Background()); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	ledger = l
	return ledger, nil
}

// getDocuments returns the file store rooted at the workspace.
func getDocuments() (store.Documents, error) {
	if documents != nil {
		return documents, nil
	}
	dir := viper.GetString("workspace")
	if dir == "" {
		return nil, fmt.Errorf("workspace is not configured")
	}
	documents = store.NewFileStore(dir)
	return documents, nil
}

// getService wires the review service. A ledger failure only disables
// history; the review itself still works.
func getService() (*review.Service, error) {
	if service != nil {
		return service, nil
	}
	docs, err := getDocuments()
	if err != nil {
		return nil, err
	}

	var l store.Ledger
	if lg, err := getLedger(); err != nil {
		ui.Warning("History disabled: %v", err)
	} else {
		l = lg
	}

	cfg := review.DefaultConfig()
	var syncer git.Syncer
	if cfg.SyncEnabled {
		c := git.NewClient(viper.GetString("sync.token"))
		if d := viper.GetDuration("sync.timeout"); d > 0 {
			c.Timeout = d
		}
		syncer = c
	}

	service = review.NewService(docs, l, syncer, cfg, getLogger())
	return service, nil
}
