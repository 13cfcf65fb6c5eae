package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/cui/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output      string   // output file path
	ExtraEvents []string // event names added to the built-in set
}

// CompilationResult summarises a compiled rule tree.
type CompilationResult struct {
	RuleHash     string         `json:"rule_hash"`
	DocumentHash string         `json:"document_hash"`
	Elements     int            `json:"elements"`
	Listeners    int            `json:"listeners"`
	Document     map[string]any `json:"document"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <rules-file>",
		Short: "Compile a rule file to its resolved document",
		Long: `Compile a YAML or CUE rule file into the resolved element tree.

Every class, element and listener rule is matched and resolved, and every
listener effect is dry-run, so a file that compiles cannot fail at dispatch
time. The canonical JSON of the initial document can be written with -o.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the canonical document to this file")
	cmd.Flags().StringSliceVar(&opts.ExtraEvents, "extra-events", nil, "additional event names to accept")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	formatter.VerboseLog("Compiling %s", path)
	_, rt, err := compileRules(path, opts.ExtraEvents, newLogger(opts.RootOptions, cmd))
	if err != nil {
		code, message := errorCode(err)
		exit := ExitCommandError
		if isBuildFailure(err) {
			exit = ExitFailure
		}
		return formatter.Fail(exit, code, message, nil)
	}

	doc := rt.Document()
	docHash, err := ir.DocumentHash(doc)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("hashing document: %v", err), nil)
	}

	result := &CompilationResult{
		RuleHash:     rt.RuleHash(),
		DocumentHash: docHash,
		Elements:     len(doc.Elements),
		Listeners:    len(doc.Listeners),
		Document:     doc.Canonical(),
	}

	if opts.Output != "" {
		if err := writeDocument(doc, opts.Output); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
		formatter.VerboseLog("Wrote %s", opts.Output)
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.IsJSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d element(s), %d listener(s)\n\n", result.Elements, result.Listeners)
	fmt.Fprintf(w, "  rule hash:     %s\n", result.RuleHash)
	fmt.Fprintf(w, "  document hash: %s\n", result.DocumentHash)
	if outputFile != "" {
		fmt.Fprintf(w, "\nWrote canonical document to %s\n", outputFile)
	}
	return nil
}

// writeDocument writes the document in canonical JSON, the same bytes the
// document hash is computed over.
func writeDocument(doc *ir.Document, filename string) error {
	data, err := ir.MarshalCanonicalDocument(doc)
	if err != nil {
		return fmt.Errorf("marshaling document: %w", err)
	}
	return os.WriteFile(filename, data, 0o644)
}
