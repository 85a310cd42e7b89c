package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aimcr/aimcr/internal/archive"
	"github.com/aimcr/aimcr/internal/store"
)

var archiveCmd = &cobra.Command{
	Use:   "archive <submission>",
	Short: "Upload a submission folder to S3-compatible storage",
	Long: `Upload every file in a submission folder to the configured bucket.
<submission> is a folder name under submissions/ (AIMCR-<project>-<date>)
or a path to the folder.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return archiveRun(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)
}

// submissionDir resolves a folder name or path to a submission directory.
func submissionDir(arg string) (string, error) {
	if info, err := os.Stat(arg); err == nil && info.IsDir() {
		return arg, nil
	}
	docs, err := getDocuments()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(docs.Root(), store.SubmissionsDir, arg)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return "", fmt.Errorf("submission not found: %s", arg)
	}
	return dir, nil
}

func archiveRun(cmd *cobra.Command, arg string) error {
	dir, err := submissionDir(arg)
	if err != nil {
		return err
	}
	cfg := archive.DefaultConfig()
	if cfg.Bucket == "" {
		return fmt.Errorf("archive.bucket is not configured (set AIMCR_ARCHIVE_BUCKET or add it to the config file)")
	}

	if dryRun {
		ui.DryRunMsg("Would upload %s to s3://%s/%s", dir, cfg.Bucket, archive.NewUploader(nil, cfg).Key(dir, ""))
		return nil
	}

	client, err := archive.NewS3Client(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	keys, err := archive.NewUploader(client, cfg).UploadSubmission(cmd.Context(), dir)
	for _, k := range keys {
		ui.VerboseLog("uploaded s3://%s/%s", cfg.Bucket, k)
	}
	if err != nil {
		return err
	}
	ui.Success("Archived %d file(s) from %s to s3://%s", len(keys), filepath.Base(dir), cfg.Bucket)
	return nil
}
