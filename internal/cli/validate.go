package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cui/internal/compiler"
	"github.com/roach88/cui/internal/engine"
	"github.com/roach88/cui/internal/resolve"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	ExtraEvents []string
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool                       `json:"valid"`
	Errors     []compiler.ValidationError `json:"errors,omitempty"`
	BuildError *resolve.BuildError        `json:"build_error,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <rules-file>",
		Short: "Check a rule file and report every problem",
		Long: `Validate a YAML or CUE rule file.

Static checks (names, property keys, event names) report every finding at
once. If those pass, the rules are resolved and dry-run to surface
structure conflicts, undefined variables and variable cycles.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.ExtraEvents, "extra-events", nil, "additional event names to accept")

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	root, err := loadRules(path)
	if err != nil {
		code, message := errorCode(err)
		exit := ExitCommandError
		if isBuildFailure(err) {
			exit = ExitFailure
		}
		return formatter.Fail(exit, code, message, nil)
	}

	events := eventSet(opts.ExtraEvents)
	formatter.VerboseLog("Validating %s against %d event name(s)", path, len(events.Names()))

	result := ValidationResult{Errors: compiler.Validate(root, events)}
	if len(result.Errors) == 0 {
		_, err := engine.Compile(root, engine.WithEventSet(events), engine.WithLogger(newLogger(opts.RootOptions, cmd)))
		var be *resolve.BuildError
		switch {
		case errors.As(err, &be):
			result.BuildError = be
		case err != nil:
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
		}
	}

	result.Valid = len(result.Errors) == 0 && result.BuildError == nil
	if !result.Valid {
		return outputValidationFailure(formatter, result)
	}

	if formatter.IsJSON() {
		return formatter.Success(result)
	}
	fmt.Fprintln(formatter.Writer, "✓ Rules valid")
	return nil
}

// outputValidationFailure reports findings. Invalid rules exit 1.
func outputValidationFailure(formatter *OutputFormatter, result ValidationResult) error {
	count := len(result.Errors)
	if result.BuildError != nil {
		count = 1
	}
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", count))

	if formatter.IsJSON() {
		first := &CLIError{}
		if result.BuildError != nil {
			first.Code, first.Message = result.BuildError.Code, result.BuildError.Message
		} else {
			first.Code, first.Message = result.Errors[0].Code, result.Errors[0].Message
		}
		if err := formatter.Response(CLIResponse{Status: "error", Data: result, Error: first}); err != nil {
			return err
		}
		return exitErr
	}

	w := formatter.Writer
	fmt.Fprintln(w, "✗ Validation failed")
	fmt.Fprintln(w)
	for _, e := range result.Errors {
		if e.Line > 0 {
			fmt.Fprintf(w, "%s:%d\n", e.Loc.File, e.Line)
		}
		fmt.Fprintf(w, "  %s: %s: %s\n\n", e.Code, e.Field, e.Message)
	}
	if be := result.BuildError; be != nil {
		fmt.Fprintf(w, "  %s\n\n", be.Error())
	}
	return exitErr
}
