package app

import (
	"errors"
	"fmt"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ProcessName string
	// Args are the raw parameter tokens following the process name.
	Args []string
	// Iterate lists the parameters to iterate over.
	Iterate []string

	// ListProcesses and ProcessHelp print documentation instead of running.
	ListProcesses bool
	ProcessHelp   []string

	StudyConfigPath string
	ModulesPath     string // extra .hcl manifests

	// UseSomaWorkflow overrides the study setting when non-nil.
	UseSomaWorkflow    *bool
	ResourceID         string
	Login              string
	Password           string
	RSAKeyPass         string
	Queue              string
	InputProcessing    string
	OutputProcessing   string
	KeepWorkflow       bool
	KeepFailedWorkflow bool
	WorkflowDatabase   string

	LogFormat   string
	LogLevel    string
	WorkerCount int
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.ProcessName == "" && !cfg.ListProcesses && len(cfg.ProcessHelp) == 0 {
		return nil, errors.New("ProcessName is a required configuration field and cannot be empty")
	}
	if cfg.WorkerCount < 1 {
		return nil, fmt.Errorf("workers must be at least 1, got %d", cfg.WorkerCount)
	}
	return &cfg, nil
}
