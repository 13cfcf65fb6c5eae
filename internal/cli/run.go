package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/cui/internal/engine"
	"github.com/roach88/cui/internal/ir"
	"github.com/roach88/cui/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database    string
	Session     string
	Events      []string
	ExtraEvents []string

	// SessionGenerator allows overriding the session ID generator (for testing).
	// If nil and --session is empty, defaults to UUIDv7Generator.
	SessionGenerator engine.SessionGenerator
}

// RunStep is one dispatched event as the run command reports it.
type RunStep struct {
	Seq      int64  `json:"seq,omitempty"`
	Dispatch string `json:"dispatch"`
	Element  string `json:"element,omitempty"`
	Outcome  string `json:"outcome"`
	Epoch    int64  `json:"epoch"`
	Error    string `json:"error,omitempty"`
}

// outcomeUnresolved marks a step whose path matched no live element, so
// nothing was dispatched.
const outcomeUnresolved = "unresolved"

// RunResult summarises a run.
type RunResult struct {
	Session      string    `json:"session"`
	RuleHash     string    `json:"rule_hash"`
	Database     string    `json:"database"`
	Steps        []RunStep `json:"steps"`
	Epoch        int64     `json:"epoch"`
	DocumentHash string    `json:"document_hash"`
}

// failed reports whether any step was rejected or unresolved.
func (r *RunResult) failed() bool {
	for _, s := range r.Steps {
		if s.Outcome == string(engine.OutcomeRejected) || s.Outcome == outcomeUnresolved {
			return true
		}
	}
	return false
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <rules-file>",
		Short: "Dispatch events against compiled rules",
		Long: `Compile a rule file, start the single-writer engine and dispatch a
sequence of events against it, one at a time and in order.

Each --events entry is "<element-path>:<event>". Paths resolve against the
document as it stands when the event is dispatched, so later entries see
elements created by earlier effects.

Every dispatch is journaled to the SQLite database given by --db (an
in-memory database when omitted) and can be verified with "cui replay".

Example:
  cui run rules.yaml --events 'root/a[0]:click,root/a[1]:click'
  cui run rules.cue --db ./cui.db --session demo --events 'root:focus'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", ":memory:", "path to SQLite journal database")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session ID (default: generated UUIDv7)")
	cmd.Flags().StringSliceVar(&opts.Events, "events", nil, "events to dispatch, as path:event")
	cmd.Flags().StringSliceVar(&opts.ExtraEvents, "extra-events", nil, "additional event names to accept")

	return cmd
}

func runEngine(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd)

	args, err := parseDispatches(opts.Events)
	if err != nil {
		code, message := errorCode(err)
		return formatter.Fail(ExitCommandError, code, message, nil)
	}

	_, rt, err := compileRules(path, opts.ExtraEvents, logger)
	if err != nil {
		code, message := errorCode(err)
		exit := ExitCommandError
		if isBuildFailure(err) {
			exit = ExitFailure
		}
		return formatter.Fail(exit, code, message, nil)
	}

	formatter.VerboseLog("Opening journal %s", opts.Database)
	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("opening database: %v", err), nil)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	sessions := opts.SessionGenerator
	switch {
	case opts.Session != "":
		sessions = engine.NewFixedGenerator(opts.Session)
	case sessions == nil:
		sessions = engine.UUIDv7Generator{}
	}

	dispatched := make(chan engine.Dispatch, 1)
	done := make(chan error, 1)
	eng := engine.New(rt,
		engine.WithJournal(st),
		engine.WithSessionGenerator(sessions),
		engine.WithObserver(func(d engine.Dispatch) { dispatched <- d }),
		engine.WithSource(path),
		engine.WithLogger(logger),
	)

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	go func() { done <- eng.Run(ctx) }()

	result := &RunResult{RuleHash: rt.RuleHash(), Database: opts.Database}
	for _, arg := range args {
		step, err := dispatchStep(eng, arg, dispatched, done)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("%s: %v", arg, err), nil)
		}
		formatter.VerboseLog("%s -> %s", arg, step.Outcome)
		result.Steps = append(result.Steps, step)
	}

	eng.Stop()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("engine: %v", err), nil)
	}

	doc := eng.Document()
	result.Session = eng.Session()
	result.Epoch = doc.Epoch
	result.DocumentHash, err = ir.DocumentHash(doc)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("hashing document: %v", err), nil)
	}

	return outputRunResult(formatter, result)
}

// dispatchStep resolves arg against the current document, enqueues it and
// waits for it to settle.
func dispatchStep(eng *engine.Engine, arg DispatchArg, dispatched <-chan engine.Dispatch, done <-chan error) (RunStep, error) {
	step := RunStep{Dispatch: arg.String()}

	doc := eng.Document()
	id, err := doc.Find(arg.Path)
	if err != nil {
		step.Outcome = outcomeUnresolved
		step.Epoch = doc.Epoch
		step.Error = err.Error()
		return step, nil
	}

	if err := eng.Enqueue(engine.Event{Element: id, Name: arg.Event}); err != nil {
		return step, err
	}

	select {
	case d := <-dispatched:
		step.Seq = d.Seq
		step.Element = doc.ElementPath(id)
		step.Outcome = string(d.Result.Outcome)
		step.Epoch = d.Result.Epoch
		if d.Err != nil {
			step.Error = d.Err.Error()
		}
		return step, nil
	case err := <-done:
		if err == nil {
			err = errors.New("engine stopped")
		}
		return step, err
	}
}

func outputRunResult(formatter *OutputFormatter, result *RunResult) error {
	var exitErr error
	if result.failed() {
		exitErr = NewExitError(ExitFailure, "one or more dispatches failed")
	}

	if formatter.IsJSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if exitErr != nil {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeDispatch, Message: "one or more dispatches failed"}
		}
		if err := formatter.Response(resp); err != nil {
			return err
		}
		return exitErr
	}

	w := formatter.Writer
	for _, s := range result.Steps {
		mark := "✓"
		if s.Outcome == string(engine.OutcomeRejected) || s.Outcome == outcomeUnresolved {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s → %s (epoch %d)\n", mark, s.Dispatch, s.Outcome, s.Epoch)
		if s.Error != "" {
			fmt.Fprintf(w, "    %s\n", s.Error)
		}
	}
	if len(result.Steps) > 0 {
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "Session:       %s\n", result.Session)
	fmt.Fprintf(w, "Epoch:         %d\n", result.Epoch)
	fmt.Fprintf(w, "Document hash: %s\n", result.DocumentHash)
	return exitErr
}
