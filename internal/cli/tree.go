package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cui/internal/ir"
)

// TreeOptions holds flags for the tree command.
type TreeOptions struct {
	*RootOptions
	Events      []string
	ExtraEvents []string
}

// TreeResult is the rendered document after any dispatches.
type TreeResult struct {
	Epoch    int64          `json:"epoch"`
	Tree     string         `json:"tree"`
	Document map[string]any `json:"document"`
}

// NewTreeCommand creates the tree command.
func NewTreeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TreeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tree <rules-file>",
		Short: "Print the resolved element tree",
		Long: `Compile a rule file and print the live element tree with each
element's ID, resolved properties and bound events.

With --events, the events are applied in order first (without a journal)
and the tree is printed as it stands afterwards.

Example:
  cui tree rules.yaml
  cui tree rules.yaml --events 'root/a[0]:click'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTree(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Events, "events", nil, "events to apply first, as path:event")
	cmd.Flags().StringSliceVar(&opts.ExtraEvents, "extra-events", nil, "additional event names to accept")

	return cmd
}

func runTree(opts *TreeOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	args, err := parseDispatches(opts.Events)
	if err != nil {
		code, message := errorCode(err)
		return formatter.Fail(ExitCommandError, code, message, nil)
	}

	_, rt, err := compileRules(path, opts.ExtraEvents, newLogger(opts.RootOptions, cmd))
	if err != nil {
		code, message := errorCode(err)
		exit := ExitCommandError
		if isBuildFailure(err) {
			exit = ExitFailure
		}
		return formatter.Fail(exit, code, message, nil)
	}

	for _, arg := range args {
		res, err := rt.DispatchPath(arg.Path, arg.Event)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeDispatch, fmt.Sprintf("%s: %v", arg, err), nil)
		}
		formatter.VerboseLog("%s -> %s (epoch %d)", arg, res.Outcome, res.Epoch)
	}

	doc := rt.Document()
	if formatter.IsJSON() {
		return formatter.Success(TreeResult{Epoch: doc.Epoch, Tree: ir.RenderTree(doc), Document: doc.Canonical()})
	}
	fmt.Fprint(formatter.Writer, ir.RenderTree(doc))
	return nil
}
