package config

import "time"

// ExecutorMode selects how cluster mutations are carried out.
type ExecutorMode string

const (
	// ExecutorModeAPI talks to the API server through a controller-runtime client.
	ExecutorModeAPI ExecutorMode = "api"
	// ExecutorModeCLI shells out to oc or kubectl.
	ExecutorModeCLI ExecutorMode = "cli"
)

// Config is the top-level configuration structure for the site watcher.
type Config struct {
	Watch     WatchConfig     `yaml:"watch"`
	Staging   StagingConfig   `yaml:"staging"`
	Renderer  RendererConfig  `yaml:"renderer"`
	Executor  ExecutorConfig  `yaml:"executor"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	LogLevel  string          `yaml:"logLevel,omitempty"` // debug, info, warn or error
}

// WatchConfig describes the watched resource and how long each watch call lasts.
type WatchConfig struct {
	Group          string        `yaml:"group,omitempty"`
	Version        string        `yaml:"version,omitempty"`
	TimeoutSeconds int           `yaml:"timeoutSeconds,omitempty"`
	PollInterval   time.Duration `yaml:"pollInterval,omitempty"` // Pause between batches in follow mode
}

// StagingConfig controls the per-batch staging area.
type StagingConfig struct {
	Dir  string `yaml:"dir,omitempty"`  // Parent of staging directories, os.TempDir() when empty
	Keep bool   `yaml:"keep,omitempty"` // Keep staged manifests after the batch
}

// RendererConfig configures the external policy renderer.
type RendererConfig struct {
	Command          string   `yaml:"command,omitempty"`
	Args             []string `yaml:"args,omitempty"`
	WorkDir          string   `yaml:"workDir,omitempty"`
	SourceLibraryDir string   `yaml:"sourceLibraryDir,omitempty"`
	PluginConfigFile string   `yaml:"pluginConfigFile,omitempty"`
}

// ExecutorConfig configures how rendered manifests reach the cluster.
type ExecutorConfig struct {
	Mode       ExecutorMode `yaml:"mode,omitempty"`
	Binary     string       `yaml:"binary,omitempty"`     // CLI mode only
	FieldOwner string       `yaml:"fieldOwner,omitempty"` // API mode only
}

// ReconcileConfig bounds policy reconciliation.
type ReconcileConfig struct {
	Parallelism int `yaml:"parallelism,omitempty"` // Namespaces reconciled concurrently
}
