package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/vk/capsulrun/internal/app"
)

// Exit codes.
const (
	ExitSuccess = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

const longHelp = `Run a CAPSUL process or pipeline, locally or through a workflow resource.

Parameters follow the process name: plain values are assigned to the
process parameters in declaration order, name=value tokens assign a named
parameter (use dotted names such as node.param for pipeline nodes).
Values starting with [, ( or { and the words None, True and False are
parsed as literals; anything else is a string.

Examples:
  runprocess fsl.threshold /data/t1.nii.gz /data/t1_thr.nii.gz 80
  runprocess fsl.threshold input=/data/t1.nii.gz threshold1=80
  runprocess -i input -i output fsl.threshold input=[a.nii,b.nii] output=[a_thr.nii,b_thr.nii]
  runprocess --swf -r cluster --queue long fsl.bet /data/t1.nii.gz`

type flags struct {
	studyConfig        string
	swf                bool
	resourceID         string
	login              string
	password           string
	rsaPass            string
	queue              string
	inputProcessing    string
	outputProcessing   string
	keepWorkflow       bool
	keepFailedWorkflow bool
	iterate            []string
	listProcesses      bool
	processHelp        []string
	modulesPath        string
	workflowDB         string
	workers            int
	logFormat          string
	logLevel           string
}

// NewCommand builds the root command. onConfig receives the validated
// configuration when the command runs.
func NewCommand(output io.Writer, onConfig func(*app.Config) error) *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:           "runprocess [options] PROCESS [ARGS...] [NAME=VALUE...]",
		Short:         "Run a CAPSUL process",
		Long:          longHelp,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.config(cmd, args)
			if err != nil {
				return err
			}
			return onConfig(cfg)
		},
	}
	cmd.SetOut(output)
	cmd.SetErr(output)

	fs := cmd.Flags()
	// Flags after the process name belong to the process.
	fs.SetInterspersed(false)
	f.register(fs)

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: ExitUsage, Message: err.Error()}
	})
	return cmd
}

func (f *flags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.studyConfig, "studyconfig", "", "Study configuration file (JSON or YAML).")
	fs.BoolVar(&f.swf, "swf", false, "Run through the workflow manager.")
	fs.BoolVar(&f.swf, "soma_workflow", false, "Alias of --swf.")
	fs.StringVarP(&f.resourceID, "resource_id", "r", "", "Computing resource to submit to (default: study config, then localhost).")
	fs.StringVarP(&f.login, "login", "l", "", "Login on the computing resource.")
	fs.StringVarP(&f.password, "password", "p", "", "Password on the computing resource.")
	fs.StringVar(&f.rsaPass, "rsa-pass", "", "Passphrase of the RSA key used to reach the resource.")
	fs.StringVar(&f.queue, "queue", "", "Queue to submit jobs to.")
	fs.StringVar(&f.inputProcessing, "input-processing", "", "Input file processing: local_path, transfer, translate or translate_shared.")
	fs.StringVar(&f.outputProcessing, "output-processing", "", "Output file processing: local_path, transfer or translate.")
	fs.BoolVar(&f.keepWorkflow, "keep-workflow", false, "Keep the workflow on the resource after it finishes.")
	fs.BoolVar(&f.keepFailedWorkflow, "keep-failed-workflow", false, "Keep the workflow on the resource when it fails.")
	fs.StringArrayVarP(&f.iterate, "iterate", "i", nil, "Iterate over this parameter (repeatable).")
	fs.BoolVar(&f.listProcesses, "list-processes", false, "List processes and pipelines and exit.")
	fs.StringArrayVar(&f.processHelp, "process-help", nil, "Display the parameters of a process and exit (repeatable).")
	fs.StringVar(&f.modulesPath, "modules-path", "", "Directory of additional .hcl process manifests.")
	fs.StringVar(&f.workflowDB, "workflow-db", "", "SQLite database of the local workflow resource.")
	fs.IntVar(&f.workers, "workers", 4, "Number of jobs the local workflow resource runs at once.")
	fs.StringVar(&f.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	fs.StringVar(&f.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
}

func (f *flags) config(cmd *cobra.Command, args []string) (*app.Config, error) {
	logFormat := strings.ToLower(f.logFormat)
	if logFormat != "text" && logFormat != "json" {
		return nil, &ExitError{Code: ExitUsage, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(f.logLevel)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, &ExitError{Code: ExitUsage, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	documenting := f.listProcesses || len(f.processHelp) > 0
	if len(args) == 0 && !documenting {
		return nil, &ExitError{Code: ExitUsage, Message: "requires a process name\nRun 'runprocess --help' for usage."}
	}
	var name string
	var params []string
	if len(args) > 0 {
		name, params = args[0], args[1:]
	}

	var useSWF *bool
	if cmd.Flags().Changed("swf") || cmd.Flags().Changed("soma_workflow") {
		useSWF = &f.swf
	}

	cfg, err := app.NewConfig(app.Config{
		ProcessName:        name,
		Args:               params,
		Iterate:            f.iterate,
		ListProcesses:      f.listProcesses,
		ProcessHelp:        f.processHelp,
		StudyConfigPath:    f.studyConfig,
		ModulesPath:        f.modulesPath,
		UseSomaWorkflow:    useSWF,
		ResourceID:         f.resourceID,
		Login:              f.login,
		Password:           f.password,
		RSAKeyPass:         f.rsaPass,
		Queue:              f.queue,
		InputProcessing:    f.inputProcessing,
		OutputProcessing:   f.outputProcessing,
		KeepWorkflow:       f.keepWorkflow,
		KeepFailedWorkflow: f.keepFailedWorkflow,
		WorkflowDatabase:   f.workflowDB,
		LogFormat:          logFormat,
		LogLevel:           logLevel,
		WorkerCount:        f.workers,
	})
	if err != nil {
		return nil, &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	return cfg, nil
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	var parsed *app.Config
	cmd := NewCommand(output, func(cfg *app.Config) error {
		parsed = cfg
		return nil
	})
	cmd.SetArgs(args)

	if err := cmd.Execute(); err != nil {
		if exitErr, ok := err.(*ExitError); ok {
			return nil, false, exitErr
		}
		return nil, false, &ExitError{Code: ExitUsage, Message: fmt.Sprintf("%v\nRun 'runprocess --help' for usage.", err)}
	}
	if parsed == nil {
		// --help was handled by cobra.
		return nil, true, nil
	}
	slog.Debug("CLI parser finished successfully.", "process", parsed.ProcessName)
	return parsed, false, nil
}
