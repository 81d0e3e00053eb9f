package studyconfig

import (
	"context"

	"github.com/vk/capsulrun/internal/engine"
)

// Module keeps a fixed set of study attributes in step with the engine.
type Module interface {
	Name() string
	// Initialize loads the backing engine module and refreshes from it.
	Initialize(ctx context.Context) error
	// Apply copies the study attributes to the engine.
	Apply()
	// Refresh copies the engine attributes to the study.
	Refresh()
}

// FSLConfig mirrors fsl_config, fsl_prefix and use_fsl.
type FSLConfig struct {
	sc *StudyConfig
}

func (m *FSLConfig) Name() string { return "FSLConfig" }

func (m *FSLConfig) Initialize(ctx context.Context) error {
	if err := m.sc.engine.LoadModule(ctx, engine.ModuleFSL); err != nil {
		return err
	}
	m.Refresh()
	return nil
}

func (m *FSLConfig) Apply() {
	m.sc.engine.FSL.Config = m.sc.FSLConfig
	m.sc.engine.FSL.Prefix = m.sc.FSLPrefix
	m.sc.engine.FSL.Use = m.sc.UseFSL
}

func (m *FSLConfig) Refresh() {
	m.sc.FSLConfig = m.sc.engine.FSL.Config
	m.sc.FSLPrefix = m.sc.engine.FSL.Prefix
	m.sc.UseFSL = m.sc.engine.FSL.Use
}

// MatlabConfig mirrors matlab_exec and use_matlab.
type MatlabConfig struct {
	sc *StudyConfig
}

func (m *MatlabConfig) Name() string { return "MatlabConfig" }

func (m *MatlabConfig) Initialize(ctx context.Context) error {
	if err := m.sc.engine.LoadModule(ctx, engine.ModuleMatlab); err != nil {
		return err
	}
	m.Refresh()
	return nil
}

func (m *MatlabConfig) Apply() {
	m.sc.engine.Matlab.Executable = m.sc.MatlabExec
	m.sc.engine.Matlab.Use = m.sc.UseMatlab
}

func (m *MatlabConfig) Refresh() {
	m.sc.MatlabExec = m.sc.engine.Matlab.Executable
	m.sc.UseMatlab = m.sc.engine.Matlab.Use
}

// SomaWorkflowConfig mirrors use_soma_workflow.
type SomaWorkflowConfig struct {
	sc *StudyConfig
}

func (m *SomaWorkflowConfig) Name() string { return "SomaWorkflowConfig" }

func (m *SomaWorkflowConfig) Initialize(ctx context.Context) error {
	if err := m.sc.engine.LoadModule(ctx, engine.ModuleSomaWorkflow); err != nil {
		return err
	}
	m.Refresh()
	return nil
}

func (m *SomaWorkflowConfig) Apply() {
	m.sc.engine.SomaWorkflow.Use = m.sc.UseSomaWorkflow
}

func (m *SomaWorkflowConfig) Refresh() {
	m.sc.UseSomaWorkflow = m.sc.engine.SomaWorkflow.Use
}
