package workflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/vk/capsulrun/internal/ctyconv"
	"github.com/vk/capsulrun/internal/executor"
	"github.com/vk/capsulrun/internal/process"
)

// Job is one unit of a workflow.
type Job struct {
	ID      string `json:"id"`
	Process string `json:"process"`
	// Command is empty for Go runner jobs.
	Command     []string       `json:"command,omitempty"`
	Env         []string       `json:"env,omitempty"`
	Runner      string         `json:"runner,omitempty"`
	Parameters  map[string]any `json:"parameters"`
	DependsOn   []string       `json:"depends_on,omitempty"`
	InputFiles  []string       `json:"input_files,omitempty"`
	OutputFiles []string       `json:"output_files,omitempty"`

	// Instance is kept for runner jobs executed in-process.
	Instance *process.Instance `json:"-"`
}

// Workflow is a set of jobs submitted together.
type Workflow struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Queue            string `json:"queue,omitempty"`
	InputProcessing  Mode   `json:"input_processing"`
	OutputProcessing Mode   `json:"output_processing"`
	// SharedRoot maps study paths for the translate modes.
	SharedRoot string `json:"shared_root,omitempty"`
	// TransferRoot is the staging directory for the transfer mode.
	TransferRoot string `json:"transfer_root,omitempty"`
	Jobs         []*Job `json:"jobs"`
}

// Uses reports whether either direction uses mode m.
func (wf *Workflow) Uses(m Mode) bool {
	return wf.InputProcessing == m || wf.OutputProcessing == m
}

// Controller submits workflows to a computing resource.
type Controller interface {
	// Submit hands the workflow to the resource and returns its id.
	// Rejections are *SubmissionError.
	Submit(ctx context.Context, wf *Workflow) (string, error)
	// Wait blocks until the workflow finishes. Failed jobs yield an
	// *ExecutionError alongside the result.
	Wait(ctx context.Context, id string) (*executor.Result, error)
	// Delete removes the workflow from the resource.
	Delete(ctx context.Context, id string) error
	Close() error
}

// CommandBuilder resolves the command line of a leaf process.
type CommandBuilder interface {
	Command(inst *process.Instance) (*executor.Invocation, error)
}

// FromPlan builds a workflow with a fresh id from plan steps.
func FromPlan(name string, steps []*executor.Step, commands CommandBuilder, fp FileProcessing) (*Workflow, error) {
	wf := &Workflow{
		ID:               uuid.NewString(),
		Name:             name,
		InputProcessing:  fp.Input,
		OutputProcessing: fp.Output,
	}
	for _, step := range steps {
		inst := step.Instance
		def := inst.Definition()
		params, err := ctyconv.MapToInterface(inst.Values())
		if err != nil {
			return nil, fmt.Errorf("job %q: %w", step.ID, err)
		}
		job := &Job{
			ID:         step.ID,
			Process:    def.Name,
			Runner:     def.Runner,
			Parameters: params,
			DependsOn:  step.DependsOn,
			Instance:   inst,
		}
		if def.Runner == "" {
			inv, err := commands.Command(inst)
			if err != nil {
				return nil, fmt.Errorf("job %q: %w", step.ID, err)
			}
			job.Command = inv.Argv
			job.Env = inv.Env
		}
		for _, param := range def.Parameters {
			v, ok := params[param.Name].(string)
			if !param.Path || !ok {
				continue
			}
			if param.Output {
				job.OutputFiles = append(job.OutputFiles, v)
			} else {
				job.InputFiles = append(job.InputFiles, v)
			}
		}
		wf.Jobs = append(wf.Jobs, job)
	}
	return wf, nil
}
