package app

import (
	"context"

	"github.com/vk/capsulrun/internal/ctxlog"
	"github.com/vk/capsulrun/internal/dispatch"
	"github.com/vk/capsulrun/internal/executor"
	"github.com/vk/capsulrun/internal/params"
)

// Run builds the configured process and dispatches it. The result is
// returned alongside the error when the process ran but failed.
func (a *App) Run(ctx context.Context) (*executor.Result, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	cfg := a.config

	args := params.Partition(cfg.Args)
	a.logger.Debug("Arguments partitioned.", "positional", len(args.Positional), "named", len(args.Named))

	p, err := a.builder.GetProcessWithParams(ctx, cfg.ProcessName, cfg.Iterate, args)
	if err != nil {
		return nil, err
	}

	a.logger.Info("🚀 Starting process.", "process", cfg.ProcessName)
	result, err := a.dispatcher.Run(ctx, p, dispatch.Options{
		UseSomaWorkflow:    cfg.UseSomaWorkflow,
		ResourceID:         cfg.ResourceID,
		Login:              cfg.Login,
		Password:           cfg.Password,
		RSAKeyPass:         cfg.RSAKeyPass,
		Queue:              cfg.Queue,
		InputProcessing:    cfg.InputProcessing,
		OutputProcessing:   cfg.OutputProcessing,
		KeepWorkflow:       cfg.KeepWorkflow,
		KeepFailedWorkflow: cfg.KeepFailedWorkflow,
	})
	if err != nil {
		return result, err
	}
	a.logger.Info("🏁 Execution finished.", "steps", len(result.Steps))
	return result, nil
}
