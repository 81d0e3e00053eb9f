package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/vk/capsulrun/internal/ctxlog"
)

// Module names.
const (
	ModuleFSL          = "fsl"
	ModuleMatlab       = "matlab"
	ModuleSomaWorkflow = "somaworkflow"
)

var (
	// ErrUnknownModule is returned for module names the engine does not know.
	ErrUnknownModule = errors.New("unknown engine module")
	// ErrModuleDisabled is returned when a process requires a module whose
	// use flag is off.
	ErrModuleDisabled = errors.New("engine module disabled")
	// ErrModuleNotConfigured is returned when a required module lacks the
	// settings needed to run.
	ErrModuleNotConfigured = errors.New("engine module not configured")
)

// FSL is the engine-side FSL configuration.
type FSL struct {
	// Config is the path of fsl.sh.
	Config string
	// Prefix is prepended to every FSL command line.
	Prefix string
	Use    bool
}

// Dir returns the FSL installation directory derived from Config.
func (f FSL) Dir() string {
	if f.Config == "" {
		return ""
	}
	// <FSLDIR>/etc/fslconf/fsl.sh
	return filepath.Dir(filepath.Dir(filepath.Dir(f.Config)))
}

// Matlab is the engine-side Matlab configuration.
type Matlab struct {
	Executable string
	Use        bool
}

// SomaWorkflow is the engine-side workflow manager configuration.
type SomaWorkflow struct {
	Use bool
}

// Engine owns the engine-side configuration of every module.
type Engine struct {
	FSL          FSL
	Matlab       Matlab
	SomaWorkflow SomaWorkflow

	mu       sync.Mutex
	loaded   map[string]struct{}
	getenv   func(string) string
	lookPath func(string) (string, error)
}

// Option customises how an Engine inspects the host.
type Option func(*Engine)

// WithGetenv replaces os.Getenv.
func WithGetenv(fn func(string) string) Option {
	return func(e *Engine) { e.getenv = fn }
}

// WithLookPath replaces exec.LookPath.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(e *Engine) { e.lookPath = fn }
}

// New creates an engine with no module loaded.
func New(opts ...Option) *Engine {
	e := &Engine{
		loaded:   make(map[string]struct{}),
		getenv:   os.Getenv,
		lookPath: exec.LookPath,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IsLoaded reports whether LoadModule already ran for name.
func (e *Engine) IsLoaded(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.loaded[name]
	return ok
}

// LoadModule initialises a module from the host environment. Loading an
// already loaded module is a no-op, so later configuration is preserved.
func (e *Engine) LoadModule(ctx context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.loaded[name]; ok {
		return nil
	}
	logger := ctxlog.FromContext(ctx)

	switch name {
	case ModuleFSL:
		if dir := e.getenv("FSLDIR"); dir != "" {
			e.FSL.Config = filepath.Join(dir, "etc", "fslconf", "fsl.sh")
			e.FSL.Use = true
		}
		logger.Debug("Engine module loaded.", "module", name, "config", e.FSL.Config, "use", e.FSL.Use)
	case ModuleMatlab:
		if path, err := e.lookPath("matlab"); err == nil {
			e.Matlab.Executable = path
			e.Matlab.Use = true
		}
		logger.Debug("Engine module loaded.", "module", name, "executable", e.Matlab.Executable, "use", e.Matlab.Use)
	case ModuleSomaWorkflow:
		logger.Debug("Engine module loaded.", "module", name)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownModule, name)
	}
	e.loaded[name] = struct{}{}
	return nil
}

// Env is the execution environment contributed by engine modules to a
// command.
type Env struct {
	// Vars are KEY=VALUE pairs added to the process environment.
	Vars []string
	// Prefix is prepended to the command line.
	Prefix []string
	// Substitute maps program names to replacements.
	Substitute map[string]string
}

// Apply returns argv with substitutions and prefix applied.
func (env *Env) Apply(argv []string) []string {
	out := make([]string, 0, len(env.Prefix)+len(argv))
	out = append(out, env.Prefix...)
	for i, a := range argv {
		if i == 0 {
			if sub, ok := env.Substitute[a]; ok {
				a = sub
			}
		}
		out = append(out, a)
	}
	return out
}

// Environment validates that every required module is usable and returns
// the environment they contribute.
func (e *Engine) Environment(requires []string) (*Env, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	env := &Env{Substitute: make(map[string]string)}
	for _, name := range requires {
		switch name {
		case ModuleFSL:
			if e.FSL.Config == "" {
				return nil, fmt.Errorf("%w: %s: fsl_config is not set", ErrModuleNotConfigured, name)
			}
			if !e.FSL.Use {
				return nil, fmt.Errorf("%w: %s", ErrModuleDisabled, name)
			}
			dir := e.FSL.Dir()
			env.Vars = append(env.Vars,
				"FSLDIR="+dir,
				"FSLOUTPUTTYPE=NIFTI_GZ",
				"PATH="+filepath.Join(dir, "bin")+string(os.PathListSeparator)+e.getenv("PATH"),
			)
			env.Prefix = append(env.Prefix, strings.Fields(e.FSL.Prefix)...)
		case ModuleMatlab:
			if e.Matlab.Executable == "" {
				return nil, fmt.Errorf("%w: %s: matlab_exec is not set", ErrModuleNotConfigured, name)
			}
			if !e.Matlab.Use {
				return nil, fmt.Errorf("%w: %s", ErrModuleDisabled, name)
			}
			env.Substitute["matlab"] = e.Matlab.Executable
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownModule, name)
		}
	}
	return env, nil
}
