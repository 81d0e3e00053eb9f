package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vk/capsulrun/internal/app"
	"github.com/vk/capsulrun/internal/cli"
	"github.com/vk/capsulrun/internal/hcl"
)

// main is the entrypoint for the runprocess command.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Stdout, os.Stderr, os.Args[1:])
	stop()

	// The real main function handles errors and exit codes.
	if err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Message != "" {
				fmt.Fprintln(os.Stderr, exitErr.Message)
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitFailure)
	}
}

// run encapsulates the main application logic for easier testing and error
// handling. The exit status is taken from the run result.
func run(ctx context.Context, outW, errW io.Writer, args []string) (err error) {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	// The app panics on critical manifest errors, so we recover here to
	// provide a clean exit message to the user.
	defer func() {
		if r := recover(); r != nil {
			err = &cli.ExitError{Code: cli.ExitFailure, Message: fmt.Sprintf("application startup panicked: %v", r)}
		}
	}()

	a, err := app.NewApp(outW, errW, appConfig, hcl.NewLoader(), app.Options{})
	if err != nil {
		return &cli.ExitError{Code: cli.ExitFailure, Message: err.Error()}
	}

	if appConfig.ListProcesses || len(appConfig.ProcessHelp) > 0 {
		return document(a, outW, appConfig)
	}

	result, err := a.Run(ctx)
	if err != nil {
		return &cli.ExitError{Code: cli.ExitFailure, Message: err.Error()}
	}
	if code := result.ExitCode(); code != cli.ExitSuccess {
		return &cli.ExitError{Code: code}
	}
	return nil
}

func document(a *app.App, outW io.Writer, cfg *app.Config) error {
	if cfg.ListProcesses {
		if err := a.ListProcesses(outW); err != nil {
			return err
		}
	}
	for _, name := range cfg.ProcessHelp {
		if err := a.ProcessHelp(outW, name); err != nil {
			return &cli.ExitError{Code: cli.ExitFailure, Message: err.Error()}
		}
	}
	return nil
}
