package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/cyfilter/internal/compiler"
	"github.com/roach88/cyfilter/internal/store"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Schema   string // schema path, overrides config
	Strategy string // overrides config
	DB       string // history database path, overrides config
	Output   string // output file path

	// Aggregate holds field:METHOD selections. When set, the statement
	// returns the match count and one aggregate column per selection
	// instead of the matching elements.
	Aggregate []string
}

// CompilationResult is the JSON shape of one compiled filter.
type CompilationResult struct {
	RunID          string         `json:"run_id"`
	Entity         string         `json:"entity"`
	Fingerprint    string         `json:"fingerprint"`
	Strategy       string         `json:"strategy"`
	FallbackReason string         `json:"fallback_reason,omitempty"`
	Statement      string         `json:"statement"`
	Params         map[string]any `json:"params"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <entity> <filter>",
		Short: "Compile a filter into a Cypher statement",
		Long: `Compile a filter object on an entity into a Cypher read statement.

The filter is read from a .json, .yaml or .yml file, or from stdin with "-".
With --db every compilation is recorded and can be listed with history.
With --aggregate the statement returns one row: the number of matches as
"count" plus a <field>_<METHOD> column per selection, e.g.
--aggregate age:AVERAGE --aggregate name:LONGEST.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Schema, "schema", "", "schema file or CUE package directory")
	cmd.Flags().StringVar(&opts.Strategy, "strategy", "", "compilation strategy (auto|general|optimized)")
	cmd.Flags().StringVar(&opts.DB, "db", "", "record the compilation in this SQLite database")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the statement to this file")
	cmd.Flags().StringSliceVar(&opts.Aggregate, "aggregate", nil, "return aggregates over the matches (field:METHOD, repeatable)")

	return cmd
}

func runCompile(opts *CompileOptions, entity, filterPath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.config()
	if err != nil {
		return err
	}

	strategyName := cfg.Strategy
	if opts.Strategy != "" {
		strategyName = opts.Strategy
	}
	strategy, err := compiler.ParseStrategy(strategyName)
	if err != nil {
		return formatter.FailWith(ErrCodeGeneric, err)
	}

	var selections []compiler.Selection
	for _, a := range opts.Aggregate {
		sel, err := compiler.ParseSelection(a)
		if err != nil {
			return formatter.FailWith(ErrCodeGeneric, err)
		}
		selections = append(selections, sel)
	}

	schemaPath := cfg.ResolvedSchema(opts.Schema)
	s, err := LoadSchema(schemaPath)
	if err != nil {
		return formatter.Fail(err)
	}
	formatter.VerboseLog("Loaded schema %s (%d entities)", schemaPath, len(s.Entities()))

	raw, err := LoadFilter(filterPath, cmd.InOrStdin())
	if err != nil {
		return formatter.Fail(err)
	}

	compilerOpts := []compiler.Option{
		compiler.WithStrategy(strategy),
		compiler.WithMaxDepth(cfg.MaxDepth),
		compiler.WithFeatures(cfg.PredicateFeatures()),
		compiler.WithLogger(opts.logger(formatter.GetErrWriter())),
	}
	if cfg.Cache.Size > 0 {
		compilerOpts = append(compilerOpts, compiler.WithCache(cfg.Cache.Size))
	}
	if dbPath := cfg.ResolvedStorePath(opts.DB); dbPath != "" {
		st, err := store.Open(dbPath)
		if err != nil {
			return formatter.FailWith(ErrCodeStoreFailed, err)
		}
		defer st.Close()
		compilerOpts = append(compilerOpts, compiler.WithStore(st))
	}

	c := compiler.New(s, compilerOpts...)
	var out *compiler.Compiled
	if selections != nil {
		out, err = c.Aggregate(cmd.Context(), entity, raw, selections)
	} else {
		out, err = c.Compile(cmd.Context(), entity, raw)
	}
	if err != nil {
		return formatter.Fail(err)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(out.Statement+"\n"), 0o644); err != nil {
			return formatter.FailWith(ErrCodeWriteFailed, fmt.Errorf("writing output file: %w", err))
		}
	}

	return outputCompileSuccess(formatter, out)
}

// outputCompileSuccess outputs the compiled statement and its parameters.
func outputCompileSuccess(formatter *OutputFormatter, out *compiler.Compiled) error {
	if formatter.Format == "json" {
		params := out.Params
		if params == nil {
			params = map[string]any{}
		}
		return json.NewEncoder(formatter.Writer).Encode(CLIResponse{
			Status: "ok",
			RunID:  out.RunID,
			Data: CompilationResult{
				RunID:          out.RunID,
				Entity:         out.Entity,
				Fingerprint:    out.Fingerprint,
				Strategy:       string(out.Strategy),
				FallbackReason: out.FallbackReason,
				Statement:      out.Statement,
				Params:         params,
			},
		})
	}

	fmt.Fprintln(formatter.Writer, out.Statement)
	if len(out.Params) > 0 {
		fmt.Fprintln(formatter.Writer)
		fmt.Fprintln(formatter.Writer, "Params:")
		names := make([]string, 0, len(out.Params))
		for name := range out.Params {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			value, _ := json.Marshal(out.Params[name])
			fmt.Fprintf(formatter.Writer, "  $%s = %s\n", name, value)
		}
	}
	if out.FallbackReason != "" {
		formatter.VerboseLog("Fell back to the general translator: %s", out.FallbackReason)
	}
	return nil
}
