package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/argosync/internal/content"
	"github.com/roach88/argosync/internal/moderation"
)

// TypesResult lists the compiled registry.
type TypesResult struct {
	Types     []content.EntityType  `json:"types"`
	Workflows []moderation.Workflow `json:"workflows"`
}

// WriteText implements textRenderer.
func (r TypesResult) WriteText(w io.Writer) {
	for _, t := range r.Types {
		var caps []string
		if t.Editorial() {
			caps = append(caps, "syncable")
		}
		if t.Revisionable {
			caps = append(caps, "revisionable")
		}
		if t.Publishable {
			caps = append(caps, "publishable")
		}
		if t.HasOwner {
			caps = append(caps, "owner")
		}
		if t.Fragment {
			caps = append(caps, "fragment")
		}
		fmt.Fprintf(w, "%-16s %-16s %s\n", t.ID, t.Label, strings.Join(caps, ","))
	}
	for _, wf := range r.Workflows {
		when := wf.When
		if when == "" {
			when = "true"
		}
		fmt.Fprintf(w, "workflow %s: %s when %s (initial %s)\n",
			wf.Name, strings.Join(wf.States, " -> "), when, wf.InitialState())
	}
}

// NewTypesCommand creates the types command.
func NewTypesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "types",
		Short: "Compile and list entity types and workflows",
		Long: `Compile the CUE type registry (ARGO_TYPES_FILE, or the built-in types when
the default file is absent) and list every entity type and moderation
workflow. Workflow conditions are compiled as CEL expressions.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTypes(rootOpts, cmd)
		},
	}
	return cmd
}

func runTypes(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	reg, err := LoadRegistry(opts.Config.TypesFile)
	if err != nil {
		return formatter.Error(ExitFailure, ErrCodeTypes, "failed to compile types", err)
	}

	formatter.VerboseLog("compiled %s", opts.Config.TypesFile)
	return formatter.Success(TypesResult{Types: reg.Types(), Workflows: reg.Workflows()})
}
