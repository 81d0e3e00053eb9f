package studyconfig

import (
	"context"
	"fmt"

	"github.com/vk/capsulrun/internal/ctxlog"
	"github.com/vk/capsulrun/internal/engine"
	"github.com/zclconf/go-cty/cty"
)

// DefaultResource is the computing resource used when none is configured.
const DefaultResource = "localhost"

// StudyConfig is the front-end configuration of a study.
type StudyConfig struct {
	Settings

	engine  *engine.Engine
	modules []Module
}

// New creates a study configuration bound to eng and initialises every
// config module from it.
func New(ctx context.Context, eng *engine.Engine) (*StudyConfig, error) {
	sc := &StudyConfig{engine: eng}
	sc.modules = []Module{
		&FSLConfig{sc: sc},
		&MatlabConfig{sc: sc},
		&SomaWorkflowConfig{sc: sc},
	}
	for _, m := range sc.modules {
		if err := m.Initialize(ctx); err != nil {
			return nil, fmt.Errorf("initializing %s: %w", m.Name(), err)
		}
		ctxlog.FromContext(ctx).Debug("Study config module initialized.", "module", m.Name())
	}
	return sc, nil
}

// Engine returns the engine the study configuration is bound to.
func (sc *StudyConfig) Engine() *engine.Engine { return sc.engine }

// Modules returns the config modules in initialisation order.
func (sc *StudyConfig) Modules() []Module { return sc.modules }

// Module finds a config module by name.
func (sc *StudyConfig) Module(name string) (Module, bool) {
	for _, m := range sc.modules {
		if m.Name() == name {
			return m, true
		}
	}
	return nil, false
}

// Apply pushes the study attributes of every module to the engine.
func (sc *StudyConfig) Apply() {
	for _, m := range sc.modules {
		m.Apply()
	}
}

// Refresh pulls the engine attributes of every module into the study.
func (sc *StudyConfig) Refresh() {
	for _, m := range sc.modules {
		m.Refresh()
	}
}

// SetStudyConfiguration replaces the settings and applies them.
func (sc *StudyConfig) SetStudyConfiguration(s Settings) {
	sc.Settings = s
	sc.Apply()
}

// SetUseSomaWorkflow sets use_soma_workflow and applies it.
func (sc *StudyConfig) SetUseSomaWorkflow(use bool) {
	sc.UseSomaWorkflow = use
	sc.Apply()
}

// ResourceID resolves a computing resource id. An empty id falls back to
// the configured resource, then to DefaultResource. With setIt the result
// becomes the configured resource.
func (sc *StudyConfig) ResourceID(id string, setIt bool) string {
	if id == "" {
		id = sc.SomaWorkflowComputingResource
	}
	if id == "" {
		id = DefaultResource
	}
	if setIt {
		sc.SomaWorkflowComputingResource = id
	}
	return id
}

// Resource returns the settings of a computing resource, creating an empty
// entry when missing.
func (sc *StudyConfig) Resource(id string) *ResourceConfig {
	if sc.SomaWorkflowComputingResourcesConfig == nil {
		sc.SomaWorkflowComputingResourcesConfig = make(map[string]*ResourceConfig)
	}
	rc, ok := sc.SomaWorkflowComputingResourcesConfig[id]
	if !ok || rc == nil {
		rc = &ResourceConfig{}
		sc.SomaWorkflowComputingResourcesConfig[id] = rc
	}
	return rc
}

// SetResourcePassword stores credentials for a computing resource. Empty
// values leave the stored ones untouched.
func (sc *StudyConfig) SetResourcePassword(id, password, rsaKeyPass string) {
	rc := sc.Resource(id)
	if password != "" {
		rc.Password = password
	}
	if rsaKeyPass != "" {
		rc.RSAKeyPass = rsaKeyPass
	}
}

// SetResourceLogin stores the login for a computing resource.
func (sc *StudyConfig) SetResourceLogin(id, login string) {
	if login != "" {
		sc.Resource(id).Login = login
	}
}

// Variables exposes the study attributes to completion templates as the
// `study` object.
func (sc *StudyConfig) Variables() map[string]cty.Value {
	return map[string]cty.Value{
		"output_directory": cty.StringVal(sc.OutputDirectory),
		"input_directory":  cty.StringVal(sc.InputDirectory),
		"fsl_prefix":       cty.StringVal(sc.FSLPrefix),
		"use_fsl":          cty.BoolVal(sc.UseFSL),
		"use_matlab":       cty.BoolVal(sc.UseMatlab),
	}
}
