package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/cui/internal/engine"
	"github.com/roach88/cui/internal/ir"
	"github.com/roach88/cui/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database    string
	Session     string // optional - specific session only
	ExtraEvents []string
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Sessions         []*engine.ReplayResult `json:"sessions"`
	Skipped          []string               `json:"skipped,omitempty"`
	TotalSessions    int                    `json:"total_sessions"`
	AllDeterministic bool                   `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <rules-file>",
		Short: "Replay journaled sessions and verify determinism",
		Long: `Recompile the rule file and re-apply every journaled dispatch,
comparing outcomes, epochs and document hashes against the journal.

Without --session, every session recorded against these exact rules is
replayed; sessions recorded against other rules are skipped.

Exit codes:
  0 - All sessions reproduced exactly
  1 - Replay diverged from the journal
  2 - Command error (database not found, etc.)

Examples:
  cui replay rules.yaml --db ./cui.db
  cui replay rules.yaml --db ./cui.db --session demo
  cui replay rules.yaml --db ./cui.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "replay specific session only")
	cmd.Flags().StringSliceVar(&opts.ExtraEvents, "extra-events", nil, "additional event names to accept")

	return cmd
}

func runReplay(opts *ReplayOptions, path string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd)

	root, err := loadRules(path)
	if err != nil {
		code, message := errorCode(err)
		return formatter.Fail(ExitCommandError, code, message, nil)
	}
	ruleHash, err := ir.RuleTreeHash(root)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	if _, err := os.Stat(opts.Database); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.Database), nil)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("opening database: %v", err), nil)
	}
	defer st.Close()

	var sessions []string
	var skipped []string
	if opts.Session != "" {
		sessions = []string{opts.Session}
	} else {
		all, err := st.ListSessions(ctx)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("listing sessions: %v", err), nil)
		}
		for _, s := range all {
			if s.RuleHash != ruleHash {
				formatter.VerboseLog("Skipping session %s: recorded against other rules", s.ID)
				skipped = append(skipped, s.ID)
				continue
			}
			sessions = append(sessions, s.ID)
		}
	}

	result := ReplayResult{
		Sessions:         make([]*engine.ReplayResult, 0, len(sessions)),
		Skipped:          skipped,
		TotalSessions:    len(sessions),
		AllDeterministic: true,
	}

	for _, id := range sessions {
		formatter.VerboseLog("Replaying session %s", id)
		res, err := engine.Replay(ctx, st, id, root,
			engine.WithEventSet(eventSet(opts.ExtraEvents)),
			engine.WithLogger(logger),
		)
		switch {
		case errors.Is(err, store.ErrNotFound):
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("session not found: %s", id), nil)
		case errors.Is(err, engine.ErrRuleHashMismatch):
			return formatter.Fail(ExitFailure, ErrCodeDeterminism, err.Error(), nil)
		case err != nil:
			code, message := errorCode(err)
			return formatter.Fail(ExitCommandError, code, message, nil)
		}

		result.Sessions = append(result.Sessions, res)
		if !res.OK() {
			result.AllDeterministic = false
		}
	}

	return outputReplayResult(formatter, result)
}

func outputReplayResult(formatter *OutputFormatter, result ReplayResult) error {
	var exitErr error
	if !result.AllDeterministic {
		// Determinism failure = exit code 1
		exitErr = NewExitError(ExitFailure, "determinism verification failed")
	}

	if formatter.IsJSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if exitErr != nil {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeDeterminism, Message: "determinism verification failed"}
		}
		if err := formatter.Response(resp); err != nil {
			return err
		}
		return exitErr
	}

	w := formatter.Writer
	if result.TotalSessions == 0 {
		fmt.Fprintln(w, "No sessions found for these rules.")
		return nil
	}

	fmt.Fprintf(w, "Replay Summary: %d session(s)\n\n", result.TotalSessions)
	for _, s := range result.Sessions {
		if s.OK() {
			fmt.Fprintf(w, "✓ %s: %d dispatch(es), final hash %s\n", s.Session, s.Dispatches, s.FinalHash)
			continue
		}
		fmt.Fprintf(w, "✗ %s: %d mismatch(es)\n", s.Session, len(s.Mismatches))
		for _, m := range s.Mismatches {
			fmt.Fprintf(w, "    %s\n", m)
		}
	}
	if len(result.Skipped) > 0 {
		fmt.Fprintf(w, "\nSkipped %d session(s) recorded against other rules\n", len(result.Skipped))
	}
	return exitErr
}
