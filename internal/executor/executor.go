package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/capsulrun/internal/completion"
	"github.com/vk/capsulrun/internal/ctxlog"
	"github.com/vk/capsulrun/internal/engine"
	"github.com/vk/capsulrun/internal/parampath"
	"github.com/vk/capsulrun/internal/process"
	"github.com/vk/capsulrun/internal/registry"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Invocation is a fully resolved external command.
type Invocation struct {
	Argv []string
	// Env holds KEY=VALUE pairs added to the inherited environment.
	Env []string
}

// Executor runs steps on the local machine.
type Executor struct {
	registry *registry.Registry
	engine   *engine.Engine
	stdout   io.Writer
	stderr   io.Writer
}

// New creates an executor writing process output to stdout and stderr.
func New(reg *registry.Registry, eng *engine.Engine, stdout, stderr io.Writer) *Executor {
	return &Executor{registry: reg, engine: eng, stdout: stdout, stderr: stderr}
}

// Command evaluates the command template of inst and applies the engine
// environment of the modules it requires.
func (e *Executor) Command(inst *process.Instance) (*Invocation, error) {
	def := inst.Definition()
	if def.Command == nil {
		return nil, fmt.Errorf("process %q has no command", def.Name)
	}
	vars := make(map[string]cty.Value, len(def.Parameters))
	for _, param := range def.Parameters {
		v, err := inst.Get(parampath.Of(param.Name))
		if err != nil {
			return nil, err
		}
		vars[param.Name] = v
	}
	val, diags := def.Command.Value(&hcl.EvalContext{Variables: vars, Functions: completion.Functions()})
	if diags.HasErrors() {
		return nil, fmt.Errorf("process %q: evaluating command: %w", def.Name, diags)
	}
	argv, err := toArgv(val)
	if err != nil {
		return nil, fmt.Errorf("process %q: %w", def.Name, err)
	}

	env, err := e.engine.Environment(def.Requires)
	if err != nil {
		return nil, fmt.Errorf("process %q: %w", def.Name, err)
	}
	return &Invocation{Argv: env.Apply(argv), Env: env.Vars}, nil
}

func toArgv(val cty.Value) ([]string, error) {
	list, err := convert.Convert(val, cty.List(cty.String))
	if err != nil {
		return nil, fmt.Errorf("command must be a list of strings: %w", err)
	}
	if list.IsNull() || list.LengthInt() == 0 {
		return nil, errors.New("command is empty")
	}
	argv := make([]string, 0, list.LengthInt())
	for it := list.ElementIterator(); it.Next(); {
		_, v := it.Element()
		if v.IsNull() {
			return nil, errors.New("command contains a null element")
		}
		argv = append(argv, v.AsString())
	}
	return argv, nil
}

// RunCommand runs an invocation and waits for it to exit.
func (e *Executor) RunCommand(ctx context.Context, inv *Invocation) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Running command.", "argv", inv.Argv, "env", inv.Env)

	name, err := lookPath(inv.Argv[0], inv.Env)
	if err != nil {
		return fmt.Errorf("starting %q: %w", inv.Argv[0], err)
	}
	cmd := exec.CommandContext(ctx, name, inv.Argv[1:]...)
	cmd.Args[0] = inv.Argv[0]
	cmd.Env = append(os.Environ(), inv.Env...)
	cmd.Stdout = e.stdout
	cmd.Stderr = e.stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{Argv: inv.Argv, Code: exitErr.ExitCode()}
		}
		return fmt.Errorf("starting %q: %w", inv.Argv[0], err)
	}
	return nil
}

// lookPath resolves name against the PATH of env when it sets one, so that
// module bin directories take effect.
func lookPath(name string, env []string) (string, error) {
	if strings.ContainsRune(name, filepath.Separator) {
		return name, nil
	}
	path, found := "", false
	for _, kv := range env {
		if v, ok := strings.CutPrefix(kv, "PATH="); ok {
			path, found = v, true
		}
	}
	if !found {
		return exec.LookPath(name)
	}
	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() && info.Mode()&0o111 != 0 {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s", exec.ErrNotFound, name)
}

// RunHandler decodes the values of inst into the input struct of its Go
// runner and calls it.
func (e *Executor) RunHandler(ctx context.Context, inst *process.Instance) error {
	def := inst.Definition()
	handler, ok := e.registry.HandlerRegistry[def.Runner]
	if !ok {
		return fmt.Errorf("runner '%s' not registered", def.Runner)
	}

	var input any
	if handler.NewInput != nil {
		input = handler.NewInput()
		if err := decodeInput(input, inst.Values()); err != nil {
			return fmt.Errorf("process %q: decoding input: %w", def.Name, err)
		}
	}

	handlerFunc := reflect.ValueOf(handler.Fn)
	callArgs := []reflect.Value{
		reflect.ValueOf(ctx),
		reflect.ValueOf(&registry.RunEnv{Stdout: e.stdout, Stderr: e.stderr}),
	}
	if input == nil {
		callArgs = append(callArgs, reflect.Zero(handlerFunc.Type().In(2)))
	} else {
		callArgs = append(callArgs, reflect.ValueOf(input))
	}

	results := handlerFunc.Call(callArgs)
	if errResult := results[1].Interface(); errResult != nil {
		return errResult.(error)
	}
	ctxlog.FromContext(ctx).Debug("Runner returned.", "runner", def.Runner, "output", results[0].Interface())
	return nil
}

// decodeInput assigns each set value to the field tagged with its name.
func decodeInput(input any, values map[string]cty.Value) error {
	structVal := reflect.ValueOf(input).Elem()
	fields := registry.StructFields(structVal.Type())
	for name, val := range values {
		field, ok := fields[name]
		if !ok {
			continue
		}
		target := structVal.FieldByIndex(field.Index)
		if err := gocty.FromCtyValue(val, target.Addr().Interface()); err != nil {
			return fmt.Errorf("parameter %q: %w", name, err)
		}
	}
	return nil
}

// RunStep runs a single step.
func (e *Executor) RunStep(ctx context.Context, step *Step) error {
	inst := step.Instance
	if inst.Definition().Runner != "" {
		return e.RunHandler(ctx, inst)
	}
	inv, err := e.Command(inst)
	if err != nil {
		return err
	}
	return e.RunCommand(ctx, inv)
}

// Run plans p and runs its steps in order, stopping at the first failure.
// Steps after a failure are reported as skipped.
func (e *Executor) Run(ctx context.Context, p process.Process) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	steps, err := Plan(p)
	if err != nil {
		return nil, err
	}
	logger.Info("▶️ Running process locally.", "process", p.Name(), "steps", len(steps))

	result := &Result{}
	var runErr error
	for _, step := range steps {
		if runErr != nil {
			result.Steps = append(result.Steps, StepResult{ID: step.ID, Status: StatusSkipped})
			continue
		}
		stepLogger := logger.With("step", step.ID)
		stepLogger.Info("▶️ Starting step")
		start := time.Now()
		err := e.RunStep(ctxlog.WithLogger(ctx, stepLogger), step)
		sr := StepResult{ID: step.ID, Status: StatusDone, Duration: time.Since(start)}
		if err != nil {
			stepLogger.Error("Step failed.", "error", err)
			sr.Status = StatusFailed
			sr.Err = err
			runErr = &ExecutionError{Step: step.ID, Err: err}
		} else {
			stepLogger.Info("✅ Finished step", "duration", sr.Duration)
		}
		result.Steps = append(result.Steps, sr)
	}
	return result, runErr
}
