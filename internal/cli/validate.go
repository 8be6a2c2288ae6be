package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cyfilter/internal/compiler"
	"github.com/roach88/cyfilter/internal/optimize"
	"github.com/roach88/cyfilter/internal/predicate"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Schema string
}

// ValidationResult is the JSON shape of the validate command.
type ValidationResult struct {
	Valid      bool   `json:"valid"`
	Entity     string `json:"entity"`
	Predicates int    `json:"predicates"`

	// Optimizable reports whether the optimized translator accepts the
	// filter; FallbackReason says why not.
	Optimizable    bool   `json:"optimizable"`
	FallbackReason string `json:"fallback_reason,omitempty"`

	// MatchesAll is set when the filter carries no condition, so every
	// element of the entity matches.
	MatchesAll bool `json:"matches_all,omitempty"`

	// Traverses is set when any condition follows a relationship.
	Traverses bool `json:"traverses_relationships,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <entity> <filter>",
		Short: "Check a filter against the schema without compiling it",
		Long: `Build the predicate tree of a filter to check every key and value against
the schema, and report whether the optimized translator can handle it.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Schema, "schema", "", "schema file or CUE package directory")

	return cmd
}

func runValidate(opts *ValidateOptions, entityName, filterPath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.config()
	if err != nil {
		return err
	}

	s, err := LoadSchema(cfg.ResolvedSchema(opts.Schema))
	if err != nil {
		return formatter.Fail(err)
	}
	raw, err := LoadFilter(filterPath, cmd.InOrStdin())
	if err != nil {
		return formatter.Fail(err)
	}

	entity, err := compiler.ResolveRoot(s, entityName)
	if err != nil {
		return formatter.Fail(err)
	}

	builder := predicate.NewBuilder(
		predicate.WithFeatures(cfg.PredicateFeatures()),
		predicate.WithMaxDepth(cfg.MaxDepth),
	)
	tree, err := builder.Build(entity, raw)
	if err != nil {
		return formatter.Fail(err)
	}

	result := ValidationResult{
		Valid:       true,
		Entity:      entityName,
		Predicates:  countPredicates(tree),
		Optimizable: true,
		MatchesAll:  tree.Empty(),
		Traverses:   tree.HasRelations(),
	}
	if _, err := optimize.New(builder).Compile(entity, raw); err != nil {
		var fb *optimize.FallbackRequired
		if !errors.As(err, &fb) {
			return formatter.Fail(err)
		}
		result.Optimizable = false
		result.FallbackReason = fb.Reason
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Filter valid: %d predicate(s) on %s\n", result.Predicates, entityName)
	if result.MatchesAll {
		fmt.Fprintf(formatter.Writer, "  matches every %s\n", entityName)
	}
	if result.Traverses {
		fmt.Fprintln(formatter.Writer, "  traverses relationships")
	}
	if result.Optimizable {
		fmt.Fprintln(formatter.Writer, "  optimized translator: yes")
	} else {
		fmt.Fprintf(formatter.Writer, "  optimized translator: no (%s)\n", result.FallbackReason)
	}
	return nil
}

// countPredicates counts the leaves of a predicate tree, including the
// leaves of implementation overrides.
func countPredicates(t predicate.Tree) int {
	g, ok := t.(*predicate.Group)
	if !ok {
		return 1
	}
	if g == nil {
		return 0
	}
	n := 0
	for _, child := range g.Children {
		n += countPredicates(child)
	}
	for _, o := range g.Overrides {
		n += countPredicates(o.Tree)
	}
	return n
}
