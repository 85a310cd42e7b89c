package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "aimcr"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage aimcr configuration.

Running bare 'aimcr config' is the same as 'aimcr config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# aimcr configuration
# See: aimcr config show (for effective values and sources)
# Every key can also be set from the environment, e.g. AIMCR_SYNC_ENABLED=true,
# or from a .env file in the working directory.

# State directory (default: ~/.config/aimcr)
# state_dir: {{ .StateDir }}

# History database (default: <state_dir>/aimcr.db)
# db_path: {{ .DBPath }}

# Local working copy holding drafts/ and submissions/
workspace: "{{ .Workspace }}"

# Sync drafts and submissions with a shared git repository
sync:
  enabled: {{ .SyncEnabled }}
  repo_url: "{{ .SyncRepoURL }}"
  # HTTPS token; prefer AIMCR_SYNC_TOKEN over storing it here
  # token: ""
  timeout: {{ .SyncTimeout }}

# Background draft saving while editing
autosave:
  enabled: {{ .AutosaveEnabled }}
  interval: {{ .AutosaveInterval }}

# S3-compatible archive for submissions (aimcr archive)
archive:
  bucket: "{{ .ArchiveBucket }}"
  region: "{{ .ArchiveRegion }}"
  # endpoint: "http://localhost:9000"
  prefix: "{{ .ArchivePrefix }}"

# Anthropic API (aimcr suggest)
anthropic:
  # api_key: ""
  model: "{{ .AnthropicModel }}"
`

type configTemplateData struct {
	StateDir         string
	DBPath           string
	Workspace        string
	SyncEnabled      bool
	SyncRepoURL      string
	SyncTimeout      string
	AutosaveEnabled  bool
	AutosaveInterval string
	ArchiveBucket    string
	ArchiveRegion    string
	ArchivePrefix    string
	AnthropicModel   string
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	// Build template data from current viper values
	data := configTemplateData{
		StateDir:         viper.GetString("state_dir"),
		DBPath:           viper.GetString("db_path"),
		Workspace:        viper.GetString("workspace"),
		SyncEnabled:      viper.GetBool("sync.enabled"),
		SyncRepoURL:      viper.GetString("sync.repo_url"),
		SyncTimeout:      viper.GetDuration("sync.timeout").String(),
		AutosaveEnabled:  viper.GetBool("autosave.enabled"),
		AutosaveInterval: viper.GetDuration("autosave.interval").String(),
		ArchiveBucket:    viper.GetString("archive.bucket"),
		ArchiveRegion:    viper.GetString("archive.region"),
		ArchivePrefix:    viper.GetString("archive.prefix"),
		AnthropicModel:   viper.GetString("anthropic.model"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	if dryRun {
		ui.DryRunMsg("Would create config file: %s", cfgPath)
		fmt.Fprintln(ui.Out)
		fmt.Fprint(ui.Out, buf.String())
		return nil
	}

	// Create config directory
	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKeyInfo describes a config key for display purposes.
type configKeyInfo struct {
	Key    string
	EnvVar string
	Secret bool
}

var configKeys = []configKeyInfo{
	{Key: "state_dir", EnvVar: "AIMCR_STATE_DIR"},
	{Key: "db_path", EnvVar: "AIMCR_DB_PATH"},
	{Key: "workspace", EnvVar: "AIMCR_WORKSPACE"},
	{Key: "log.file", EnvVar: "AIMCR_LOG_FILE"},
	{Key: "sync.enabled", EnvVar: "AIMCR_SYNC_ENABLED"},
	{Key: "sync.repo_url", EnvVar: "AIMCR_SYNC_REPO_URL"},
	{Key: "sync.token", EnvVar: "AIMCR_SYNC_TOKEN", Secret: true},
	{Key: "sync.timeout", EnvVar: "AIMCR_SYNC_TIMEOUT"},
	{Key: "autosave.enabled", EnvVar: "AIMCR_AUTOSAVE_ENABLED"},
	{Key: "autosave.interval", EnvVar: "AIMCR_AUTOSAVE_INTERVAL"},
	{Key: "archive.bucket", EnvVar: "AIMCR_ARCHIVE_BUCKET"},
	{Key: "archive.region", EnvVar: "AIMCR_ARCHIVE_REGION"},
	{Key: "archive.endpoint", EnvVar: "AIMCR_ARCHIVE_ENDPOINT"},
	{Key: "archive.prefix", EnvVar: "AIMCR_ARCHIVE_PREFIX"},
	{Key: "archive.access_key", EnvVar: "AIMCR_ARCHIVE_ACCESS_KEY", Secret: true},
	{Key: "archive.secret_key", EnvVar: "AIMCR_ARCHIVE_SECRET_KEY", Secret: true},
	{Key: "anthropic.api_key", EnvVar: "AIMCR_ANTHROPIC_API_KEY", Secret: true},
	{Key: "anthropic.model", EnvVar: "AIMCR_ANTHROPIC_MODEL"},
}

// displayValue masks secrets that are set.
func displayValue(k configKeyInfo) any {
	val := viper.Get(k.Key)
	if k.Secret && viper.GetString(k.Key) != "" {
		return "********"
	}
	return val
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if config file exists
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	// Read config file values to determine file source
	fileValues := readConfigFileValues(cfgPath)

	for _, k := range configKeys {
		source := detectSource(k.Key, k.EnvVar, fileValues)
		fmt.Fprintf(ui.Out, "  %-22s %v  %s\n", k.Key, displayValue(k), source)
	}

	return nil
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	// Flatten nested keys with dot notation
	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return fmt.Sprintf("(env: %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set; set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'aimcr config init' first)", cfgPath)
	}

	if dryRun {
		ui.DryRunMsg("Would open %s in %s", cfgPath, editor)
		return nil
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
