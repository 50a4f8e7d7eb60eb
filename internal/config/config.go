package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "git.home.luguber.info/inful/bookforge/internal/errors"
)

// Config represents the application configuration
type Config struct {
	Manuscript ManuscriptConfig `yaml:"manuscript"`
	Build      BuildConfig      `yaml:"build"`
	Release    ReleaseConfig    `yaml:"release"`
	Daemon     *DaemonConfig    `yaml:"daemon,omitempty"`
	Notify     *NotifyConfig    `yaml:"notify,omitempty"`
}

// ManuscriptConfig describes the manuscript source tree.
type ManuscriptConfig struct {
	Root       string   `yaml:"root"`                  // repository root containing the manuscript
	Entry      string   `yaml:"entry"`                 // top-level entry document the engine is invoked against
	WatchPaths []string `yaml:"watch_paths,omitempty"` // globs relative to root that trigger check builds
}

// BuildConfig controls engine invocation.
type BuildConfig struct {
	Engine      string        `yaml:"engine,omitempty"`      // typesetting engine binary, default latexmk
	Highlighter string        `yaml:"highlighter,omitempty"` // listing renderer binary, default pygmentize
	ShellEscape bool          `yaml:"shell_escape"`          // allow the engine to shell out to the highlighter
	OutputDir   string        `yaml:"output_dir,omitempty"`  // where the artifact is copied after a successful build
	Timeout     time.Duration `yaml:"timeout,omitempty"`
}

// ReleaseConfig identifies the forge release channel.
type ReleaseConfig struct {
	APIURL    string `yaml:"api_url"`
	Owner     string `yaml:"owner"`
	Repo      string `yaml:"repo"`
	Tag       string `yaml:"tag,omitempty"`        // fixed release tag, default "current"
	AssetName string `yaml:"asset_name,omitempty"` // default derived from entry document name
	Token     string `yaml:"token,omitempty"`      // supports ${ENV} expansion
	NotesFile string `yaml:"notes_file,omitempty"` // optional markdown file for the release body
}

// DaemonConfig controls scheduled and watch-triggered runs.
type DaemonConfig struct {
	Schedule  string        `yaml:"schedule,omitempty"` // cron expression for release runs, default daily
	Debounce  time.Duration `yaml:"debounce,omitempty"` // watch event debounce window
	HistoryDB string        `yaml:"history_db,omitempty"`
	Metrics   bool          `yaml:"metrics,omitempty"`
}

// NotifyConfig enables run-completion events over NATS.
type NotifyConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// Load loads configuration from the specified file
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists; missing files are fine.
	loadEnvFile()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, apperrors.ConfigNotFound(configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryConfig, apperrors.SeverityFatal,
			"failed to read config file").WithContext("path", configPath)
	}

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryConfig, apperrors.SeverityFatal,
			"failed to parse config file").WithContext("path", configPath)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Manuscript.Root == "" {
		c.Manuscript.Root = "."
	}
	if c.Manuscript.Entry == "" {
		c.Manuscript.Entry = "main.tex"
	}
	if len(c.Manuscript.WatchPaths) == 0 {
		c.Manuscript.WatchPaths = []string{"*.tex", "chapters/**", "images/**", "fonts/**"}
	}
	if c.Build.Engine == "" {
		c.Build.Engine = "latexmk"
	}
	if c.Build.Highlighter == "" {
		c.Build.Highlighter = "pygmentize"
	}
	if c.Build.OutputDir == "" {
		c.Build.OutputDir = "./out"
	}
	if c.Build.Timeout == 0 {
		c.Build.Timeout = 30 * time.Minute
	}
	if c.Release.Tag == "" {
		c.Release.Tag = "current"
	}
	if c.Daemon != nil {
		if c.Daemon.Schedule == "" {
			c.Daemon.Schedule = "0 4 * * *"
		}
		if c.Daemon.Debounce == 0 {
			c.Daemon.Debounce = 2 * time.Second
		}
	}
	if c.Notify != nil && c.Notify.Subject == "" {
		c.Notify.Subject = "bookforge.runs"
	}
}

// Init creates a new configuration file with example content
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	exampleConfig := Config{
		Manuscript: ManuscriptConfig{
			Root:       ".",
			Entry:      "main.tex",
			WatchPaths: []string{"*.tex", "chapters/**", "images/**", "fonts/**"},
		},
		Build: BuildConfig{
			Engine:      "latexmk",
			Highlighter: "pygmentize",
			ShellEscape: true,
			OutputDir:   "./out",
		},
		Release: ReleaseConfig{
			APIURL:    "https://git.example.com/api/v1",
			Owner:     "example",
			Repo:      "book",
			Tag:       "current",
			Token:     "${BOOKFORGE_TOKEN}",
			NotesFile: "NOTES.md",
		},
		Daemon: &DaemonConfig{
			Schedule: "0 4 * * *",
			Debounce: 2 * time.Second,
		},
	}

	data, err := yaml.Marshal(&exampleConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
