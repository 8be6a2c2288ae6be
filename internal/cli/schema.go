package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/cyfilter/internal/schema"
)

// EntitySummary describes one entity of a loaded schema.
type EntitySummary struct {
	Name    string   `json:"name"`
	Kind    string   `json:"kind"`
	Fields  int      `json:"fields,omitempty"`
	Members []string `json:"members,omitempty"`
}

// SchemaResult is the JSON shape of the schema command.
type SchemaResult struct {
	Valid    bool            `json:"valid"`
	Entities []EntitySummary `json:"entities,omitempty"`
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema [path]",
		Short: "Load and validate a schema",
		Long: `Load a schema from a .yaml/.yml/.cue file or a CUE package directory,
validate it, and list its entities. Without a path the configured schema is used.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runSchema(rootOpts, path, cmd)
		},
	}
	return cmd
}

func runSchema(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.config()
	if err != nil {
		return err
	}
	path = cfg.ResolvedSchema(path)

	s, err := LoadSchema(path)
	if err != nil {
		var de *schema.DocumentError
		if errors.As(err, &de) && formatter.Format != "json" {
			return outputSchemaErrors(formatter, de)
		}
		return formatter.Fail(err)
	}

	summaries := summarize(s)
	if formatter.Format == "json" {
		return formatter.Success(SchemaResult{Valid: true, Entities: summaries})
	}

	fmt.Fprintf(formatter.Writer, "✓ Schema valid: %d entities\n\n", len(summaries))
	for _, e := range summaries {
		switch {
		case len(e.Members) > 0:
			fmt.Fprintf(formatter.Writer, "  %s (%s): %s\n", e.Name, e.Kind, strings.Join(e.Members, " | "))
		default:
			fmt.Fprintf(formatter.Writer, "  %s (%s): %d field(s)\n", e.Name, e.Kind, e.Fields)
		}
	}
	return nil
}

func summarize(s *schema.Schema) []EntitySummary {
	var out []EntitySummary
	for _, entity := range s.Entities() {
		switch e := entity.(type) {
		case *schema.Node:
			out = append(out, EntitySummary{Name: e.Name, Kind: string(schema.KindNode), Fields: len(e.Fields)})
		case *schema.Interface:
			out = append(out, EntitySummary{Name: e.Name, Kind: string(schema.KindInterface), Fields: len(e.Fields)})
		case *schema.Properties:
			out = append(out, EntitySummary{Name: e.Name, Kind: string(schema.KindProperties), Fields: len(e.Fields)})
		case *schema.Union:
			members := make([]string, len(e.Members))
			for i, m := range e.Members {
				members[i] = m.Name
			}
			out = append(out, EntitySummary{Name: e.Name, Kind: string(schema.KindUnion), Members: members})
		}
	}
	return out
}

// outputSchemaErrors lists every validation error as text (exit code 1).
func outputSchemaErrors(formatter *OutputFormatter, de *schema.DocumentError) error {
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, e := range de.Errors {
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n", e.Code, e.Path, e.Message)
	}
	return WrapExitError(ExitCodeFor(ErrCodeSchemaErrors), ErrCodeSchemaErrors, de)
}
