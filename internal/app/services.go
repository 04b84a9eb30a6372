package app

import (
	"fmt"

	"k8s.io/client-go/rest"
	ctrl "sigs.k8s.io/controller-runtime"

	"sitewatcher/internal/batch"
	"sitewatcher/internal/config"
	"sitewatcher/internal/executor"
	"sitewatcher/internal/policy"
	"sitewatcher/internal/render"
	"sitewatcher/internal/watch"
	"sitewatcher/pkg/logging"
)

// getRESTConfig is a variable to allow mocking in tests
var getRESTConfig = ctrl.GetConfig

// Services holds the initialized batch collaborators.
type Services struct {
	Source    watch.Source
	Executor  executor.Executor
	Renderer  render.Renderer
	Processor *batch.Processor
}

// restConfigOnce resolves the cluster connection on first use.
type restConfigOnce struct {
	cfg *rest.Config
	err error
	set bool
}

func (r *restConfigOnce) get() (*rest.Config, error) {
	if !r.set {
		r.cfg, r.err = getRESTConfig()
		r.set = true
		if r.err != nil {
			r.err = fmt.Errorf("failed to get cluster configuration: %w", r.err)
		}
	}
	return r.cfg, r.err
}

// InitializeServices builds the watch source, executor, renderer and processor
// from cfg.SiteWatcherConfig.
func InitializeServices(cfg *Config, logger logging.Logger) (*Services, error) {
	swCfg := cfg.SiteWatcherConfig
	if swCfg == nil {
		defaults := config.DefaultConfig()
		swCfg = &defaults
	}
	var restCfg restConfigOnce

	var source watch.Source
	if cfg.PayloadFile != "" {
		logger.Info("Bootstrap", "Replaying watch payload from %s", cfg.PayloadFile)
		source = watch.FileSource{Path: cfg.PayloadFile}
	} else {
		rc, err := restCfg.get()
		if err != nil {
			return nil, err
		}
		source, err = watch.NewKubernetesSource(rc, watch.SourceOptions{
			Group:          swCfg.Watch.Group,
			Version:        swCfg.Watch.Version,
			TimeoutSeconds: swCfg.Watch.TimeoutSeconds,
		}, logger)
		if err != nil {
			return nil, err
		}
	}

	var ex executor.Executor
	switch swCfg.Executor.Mode {
	case config.ExecutorModeAPI:
		rc, err := restCfg.get()
		if err != nil {
			return nil, err
		}
		ex, err = executor.NewKube(rc, swCfg.Executor.FieldOwner, logger)
		if err != nil {
			return nil, err
		}
	default:
		cli, err := executor.NewCLI(swCfg.Executor.Binary, logger)
		if err != nil {
			return nil, err
		}
		ex = cli
	}

	renderer, err := render.NewKustomize(render.Options{
		Command:          swCfg.Renderer.Command,
		Args:             swCfg.Renderer.Args,
		WorkDir:          swCfg.Renderer.WorkDir,
		SourceLibraryDir: swCfg.Renderer.SourceLibraryDir,
		PluginConfigFile: swCfg.Renderer.PluginConfigFile,
	}, logger)
	if err != nil {
		return nil, err
	}

	processor := batch.NewProcessor(batch.Dependencies{
		Source:     source,
		Renderer:   renderer,
		Executor:   ex,
		Reconciler: policy.NewReconciler(ex, swCfg.Reconcile.Parallelism, logger),
	}, batch.Options{
		StagingDir: swCfg.Staging.Dir,
		KeepStaged: swCfg.Staging.Keep,
	}, logger)

	return &Services{
		Source:    source,
		Executor:  ex,
		Renderer:  renderer,
		Processor: processor,
	}, nil
}
