package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/vk/capsulrun/internal/builder"
	"github.com/vk/capsulrun/internal/completion"
	"github.com/vk/capsulrun/internal/config"
	"github.com/vk/capsulrun/internal/ctxlog"
	"github.com/vk/capsulrun/internal/dispatch"
	"github.com/vk/capsulrun/internal/engine"
	"github.com/vk/capsulrun/internal/executor"
	"github.com/vk/capsulrun/internal/registry"
	"github.com/vk/capsulrun/internal/studyconfig"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	config     *Config
	logger     *slog.Logger
	registry   *registry.Registry
	study      *studyconfig.StudyConfig
	builder    *builder.Builder
	dispatcher *dispatch.Dispatcher
}

// Options tune how an App is assembled. Zero values select the defaults.
type Options struct {
	// Engine replaces the engine built from the process environment.
	Engine *engine.Engine
	// Controllers replaces the workflow controller factory.
	Controllers dispatch.ControllerFactory
	Modules     []registry.Module
}

// NewApp is the constructor for the main application. Process output goes
// to outW; logs go to errW.
//
// Manifest or registry errors are programmer or installation errors and
// panic; the entrypoint recovers them.
func NewApp(outW, errW io.Writer, cfg *Config, loader config.Loader, opts Options) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, errW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	eng := opts.Engine
	if eng == nil {
		eng = engine.New()
	}
	study, err := studyconfig.New(ctx, eng)
	if err != nil {
		return nil, err
	}
	if cfg.StudyConfigPath != "" {
		if err := study.Load(ctx, cfg.StudyConfigPath); err != nil {
			return nil, err
		}
	} else if _, err := study.ReadConfiguration(ctx); err != nil {
		return nil, err
	}

	reg := registry.New()
	modules := opts.Modules
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(modules))

	var paths []string
	for _, p := range []string{study.ModulesPath, cfg.ModulesPath} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	model, err := loader.Load(ctx, reg.Manifests(), paths...)
	if err != nil {
		panic(fmt.Errorf("failed to load process manifests: %w", err))
	}
	reg.PopulateDefinitionsFromModel(model)
	if err := reg.ValidateRegistry(ctx); err != nil {
		panic(err)
	}
	logger.Debug("Registry validation passed.", "processes", len(reg.ProcessRegistry), "pipelines", len(reg.PipelineRegistry))

	exec := executor.New(reg, eng, outW, errW)
	controllers := opts.Controllers
	if controllers == nil {
		controllers = dispatch.NewControllerFactory(dispatch.ResourceOptions{
			DatabasePath:   workflowDatabase(cfg, study),
			Workers:        cfg.WorkerCount,
			Runner:         exec,
			DialTimeout:    15 * time.Second,
			RequestTimeout: 30 * time.Second,
		})
	}

	return &App{
		config:     cfg,
		logger:     logger,
		registry:   reg,
		study:      study,
		builder:    builder.New(reg, completion.NewTemplateEngine(study)),
		dispatcher: dispatch.New(study, exec, controllers),
	}, nil
}

// workflowDatabase picks the SQLite file of the local workflow resource.
func workflowDatabase(cfg *Config, study *studyconfig.StudyConfig) string {
	if cfg.WorkflowDatabase != "" {
		return cfg.WorkflowDatabase
	}
	if study.WorkflowDatabase != "" {
		return study.WorkflowDatabase
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "capsul", "workflows.sqlite")
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Study returns the study configuration.
func (a *App) Study() *studyconfig.StudyConfig {
	return a.study
}
