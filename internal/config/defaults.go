package config

import "time"

const (
	DefaultGroup            = "ran.openshift.io"
	DefaultVersion          = "v1"
	DefaultTimeoutSeconds   = 5
	DefaultPollInterval     = 10 * time.Second
	DefaultRendererCommand  = "kustomize"
	DefaultPluginConfigFile = "policyGenerator.yaml"
	DefaultExecutorBinary   = "oc"
	DefaultFieldOwner       = "sitewatcher"
	DefaultParallelism      = 4
	DefaultLogLevel         = "info"
)

// DefaultRendererArgs are the arguments enabling exec plugins in kustomize.
var DefaultRendererArgs = []string{"build", "--enable-alpha-plugins"}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Watch: WatchConfig{
			Group:          DefaultGroup,
			Version:        DefaultVersion,
			TimeoutSeconds: DefaultTimeoutSeconds,
			PollInterval:   DefaultPollInterval,
		},
		Renderer: RendererConfig{
			Command:          DefaultRendererCommand,
			Args:             append([]string(nil), DefaultRendererArgs...),
			PluginConfigFile: DefaultPluginConfigFile,
		},
		Executor: ExecutorConfig{
			Mode:       ExecutorModeCLI,
			Binary:     DefaultExecutorBinary,
			FieldOwner: DefaultFieldOwner,
		},
		Reconcile: ReconcileConfig{
			Parallelism: DefaultParallelism,
		},
		LogLevel: DefaultLogLevel,
	}
}
