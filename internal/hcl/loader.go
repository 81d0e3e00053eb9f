package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/capsulrun/internal/config"
	"github.com/vk/capsulrun/internal/ctxlog"
	"github.com/vk/capsulrun/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL manifest loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses embedded sources first, then every .hcl file under paths.
// Later definitions with the same name replace earlier ones, so files on
// disk can override built-in modules.
func (l *Loader) Load(ctx context.Context, sources []config.Source, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "sources", len(sources), "path_count", len(paths))

	model := config.NewModel()
	parser := hclparse.NewParser()

	for _, src := range sources {
		file, diags := parser.ParseHCL(src.Data, src.Filename)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL source %s: %w", src.Filename, diags)
		}
		if err := l.merge(ctx, model, file, src.Filename); err != nil {
			return nil, err
		}
	}

	files, err := fsutil.FindFilesByExtension(".hcl", paths...)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	for _, path := range files {
		file, diags := parser.ParseHCLFile(path)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
		}
		if err := l.merge(ctx, model, file, path); err != nil {
			return nil, err
		}
	}

	logger.Debug("HCL loading complete.", "processes", len(model.Processes), "pipelines", len(model.Pipelines))
	return model, nil
}

func (l *Loader) merge(ctx context.Context, model *config.Model, file *hcl.File, filename string) error {
	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	for _, p := range root.Processes {
		def, err := l.translateProcess(ctx, p)
		if err != nil {
			return fmt.Errorf("process %q in %s: %w", p.Name, filename, err)
		}
		def.Source = filename
		model.Processes[def.Name] = def
	}
	for _, p := range root.Pipelines {
		def := l.translatePipeline(p)
		def.Source = filename
		model.Pipelines[def.Name] = def
	}
	return nil
}
