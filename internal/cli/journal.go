package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/cui/internal/ir"
	"github.com/roach88/cui/internal/query"
	"github.com/roach88/cui/internal/store"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Database string
	Session  string
	Element  int
	Event    string
	Outcomes []string
	Limit    int
}

// JournalResult is the list of matching dispatches.
type JournalResult struct {
	Dispatches []store.DispatchRecord `json:"dispatches"`
	Count      int                    `json:"count"`
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List journaled dispatches",
		Long: `List dispatches recorded in a journal database, ordered by session
and sequence number. Filters combine with AND.

Examples:
  cui journal --db ./cui.db
  cui journal --db ./cui.db --session demo --event click
  cui journal --db ./cui.db --outcome rejected,unknown_element --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "only this session")
	cmd.Flags().IntVar(&opts.Element, "element", -1, "only this element ID")
	cmd.Flags().StringVar(&opts.Event, "event", "", "only this event name")
	cmd.Flags().StringSliceVar(&opts.Outcomes, "outcome", nil, "only these outcomes")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum dispatches to list (0 = all)")

	return cmd
}

// filter builds the journal query from the command's flags.
func (o *JournalOptions) filter() query.Predicate {
	var preds []query.Predicate
	if o.Session != "" {
		preds = append(preds, query.Equals{Field: "session", Value: o.Session})
	}
	if o.Element >= 0 {
		preds = append(preds, query.Equals{Field: "element_id", Value: ir.ElementID(o.Element)})
	}
	if o.Event != "" {
		preds = append(preds, query.Equals{Field: "event", Value: o.Event})
	}
	if len(o.Outcomes) > 0 {
		values := make([]any, len(o.Outcomes))
		for i, out := range o.Outcomes {
			values[i] = out
		}
		preds = append(preds, query.In{Field: "outcome", Values: values})
	}
	if len(preds) == 0 {
		return nil
	}
	return query.And{Predicates: preds}
}

func runJournal(opts *JournalOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	if _, err := os.Stat(opts.Database); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.Database), nil)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("opening database: %v", err), nil)
	}
	defer st.Close()

	records, err := st.QueryDispatches(ctx, opts.filter(), opts.Limit)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
	}

	if formatter.IsJSON() {
		return formatter.Success(JournalResult{Dispatches: records, Count: len(records)})
	}

	w := formatter.Writer
	if len(records) == 0 {
		fmt.Fprintln(w, "No dispatches found.")
		return nil
	}
	for _, r := range records {
		fmt.Fprintf(w, "%s  %4d  #%-3d %-10s %-16s epoch %d\n", r.Session, r.Seq, r.Element, r.Event, r.Outcome, r.Epoch)
		if r.Error != "" {
			fmt.Fprintf(w, "    %s\n", r.Error)
		}
	}
	return nil
}
