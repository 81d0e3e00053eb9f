package app

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/vk/capsulrun/internal/config"
	"github.com/vk/capsulrun/internal/ctyconv"
)

// ListProcesses writes every resolvable process and pipeline, sorted by
// name, with its description.
func (a *App) ListProcesses(w io.Writer) error {
	names := a.registry.Names()
	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, name := range names {
		kind, desc := a.describe(name)
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, kind, desc)
	}
	return tw.Flush()
}

func (a *App) describe(name string) (kind, description string) {
	if def, ok := a.registry.ProcessRegistry[name]; ok {
		return "process", def.Description
	}
	if def, ok := a.registry.PipelineRegistry[name]; ok {
		return "pipeline", def.Description
	}
	return "", ""
}

// ProcessHelp writes the signature of a process: its parameters in
// declaration order, which is also the order positional arguments fill.
func (a *App) ProcessHelp(w io.Writer, name string) error {
	p, err := a.registry.GetProcessInstance(name)
	if err != nil {
		return err
	}
	kind, desc := a.describe(name)
	fmt.Fprintf(w, "%s (%s)\n", name, kind)
	if desc != "" {
		fmt.Fprintf(w, "  %s\n", desc)
	}
	fmt.Fprintln(w, "\nParameters:")

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, param := range p.Parameters() {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", param.Name, param.Type.FriendlyName(), paramFlags(param), param.Description)
	}
	return tw.Flush()
}

func paramFlags(param *config.ParameterDefinition) string {
	var flags []string
	switch {
	case param.Default != nil:
		flags = append(flags, fmt.Sprintf("default=%v", ctyconv.FormatForLogs(*param.Default)))
	case param.Optional:
		flags = append(flags, "optional")
	default:
		flags = append(flags, "required")
	}
	if param.Output {
		flags = append(flags, "output")
	}
	if param.Complete != nil {
		flags = append(flags, "completed")
	}
	return strings.Join(flags, ",")
}
