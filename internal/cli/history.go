package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cyfilter/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	DB          string
	Entity      string
	Fingerprint string
	Limit       int
}

// HistoryEntry is the JSON shape of one recorded compilation.
type HistoryEntry struct {
	Seq            int64          `json:"seq"`
	RunID          string         `json:"run_id"`
	Entity         string         `json:"entity"`
	Fingerprint    string         `json:"fingerprint"`
	Strategy       string         `json:"strategy"`
	FallbackReason string         `json:"fallback_reason,omitempty"`
	Statement      string         `json:"statement"`
	Params         map[string]any `json:"params"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "history",
		Short:         "List recorded compilations",
		Long:          `List the compilations recorded with compile --db, oldest first.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "SQLite database to read")
	cmd.Flags().StringVar(&opts.Entity, "entity", "", "only compilations rooted at this entity")
	cmd.Flags().StringVar(&opts.Fingerprint, "fingerprint", "", "only compilations of this filter fingerprint")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of entries (0 = all)")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.config()
	if err != nil {
		return err
	}

	dbPath := cfg.ResolvedStorePath(opts.DB)
	if dbPath == "" {
		return formatter.FailWith(ErrCodeStoreFailed,
			fmt.Errorf("no database given: pass --db or set store.path in cyfilter.yaml"))
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return formatter.FailWith(ErrCodeStoreFailed, err)
	}
	defer st.Close()

	records, err := st.List(cmd.Context(), store.ListOptions{
		Entity:      opts.Entity,
		Fingerprint: opts.Fingerprint,
		Limit:       opts.Limit,
	})
	if err != nil {
		return formatter.FailWith(ErrCodeStoreFailed, err)
	}
	formatter.VerboseLog("Read %d compilation(s) from %s", len(records), dbPath)

	if formatter.Format == "json" {
		entries := make([]HistoryEntry, len(records))
		for i, r := range records {
			entries[i] = HistoryEntry{
				Seq:            r.Seq,
				RunID:          r.RunID,
				Entity:         r.Entity,
				Fingerprint:    r.Fingerprint,
				Strategy:       r.Strategy,
				FallbackReason: r.FallbackReason,
				Statement:      r.Statement,
				Params:         r.Params,
			}
		}
		return formatter.Success(entries)
	}

	if len(records) == 0 {
		fmt.Fprintln(formatter.Writer, "No compilations recorded")
		return nil
	}
	for _, r := range records {
		fmt.Fprintf(formatter.Writer, "%d  %s  %s  %s  %s\n", r.Seq, r.RunID, r.Entity, r.Strategy, shortFingerprint(r.Fingerprint))
		if r.FallbackReason != "" {
			fmt.Fprintf(formatter.Writer, "    fallback: %s\n", r.FallbackReason)
		}
	}
	return nil
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
