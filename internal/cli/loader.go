package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/roach88/cui/internal/compiler"
	"github.com/roach88/cui/internal/engine"
	"github.com/roach88/cui/internal/ir"
	"github.com/roach88/cui/internal/resolve"
)

// Error code constants - unified across all CLI commands. Build errors
// carry their own E2xx codes and validation findings their E3xx codes.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeLoadFailed   = "E004" // Rule file could not be parsed
	ErrCodeNotFound     = "E005" // Path not found
	ErrCodeWriteFailed  = "E007" // File write error
	ErrCodeBadDispatch  = "E008" // Malformed --events entry
	ErrCodeDatabase     = "E009" // Journal database error
	ErrCodeDispatch     = "E010" // A dispatch did not commit or no-op
	ErrCodeDeterminism  = "E011" // Replay diverged from the journal
	ErrCodeTestsFailed  = "E012" // One or more scenarios failed
)

// LoadError represents an error that occurred while reading a rule file.
type LoadError struct {
	Code    string
	Message string
	File    string
	Line    int
	Column  int
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.File, e.Line, e.Column, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// loadRules reads a .yaml, .yml or .cue rule file.
func loadRules(path string) (*ir.RuleNode, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("rule file not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing rule file: %v", err)}
	}
	if info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a file: %s", path)}
	}

	root, err := compiler.LoadFile(path)
	if err != nil {
		var ce *compiler.CompileError
		if errors.As(err, &ce) {
			return nil, &LoadError{
				Code:    ErrCodeLoadFailed,
				Message: fmt.Sprintf("%s: %s", ce.Field, ce.Message),
				File:    ce.File,
				Line:    ce.Line,
				Column:  ce.Column,
			}
		}
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
	}
	return root, nil
}

// eventSet is the built-in event set plus names registered with --extra-events.
func eventSet(extra []string) compiler.EventSet {
	return compiler.BuiltinEvents().With(extra...)
}

// compileRules loads and compiles a rule file.
func compileRules(path string, extra []string, logger *slog.Logger) (*ir.RuleNode, *engine.Runtime, error) {
	root, err := loadRules(path)
	if err != nil {
		return nil, nil, err
	}
	rt, err := engine.Compile(root, engine.WithEventSet(eventSet(extra)), engine.WithLogger(logger))
	if err != nil {
		return root, nil, err
	}
	return root, rt, nil
}

// DispatchArg is one "path:event" entry of --events.
type DispatchArg struct {
	Path  string `json:"path"`
	Event string `json:"event"`
}

func (d DispatchArg) String() string {
	return d.Path + ":" + d.Event
}

// parseDispatches parses "root/a[0]:click" entries. The event is whatever
// follows the last colon.
func parseDispatches(entries []string) ([]DispatchArg, error) {
	args := make([]DispatchArg, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		i := strings.LastIndexByte(entry, ':')
		if i < 0 || i == len(entry)-1 {
			return nil, &LoadError{Code: ErrCodeBadDispatch, Message: fmt.Sprintf("malformed dispatch %q (want path:event)", entry)}
		}
		args = append(args, DispatchArg{Path: entry[:i], Event: entry[i+1:]})
	}
	return args, nil
}

// errorCode extracts an error code and message from a load or build error.
func errorCode(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		if loadErr.Line > 0 {
			return loadErr.Code, fmt.Sprintf("%s:%d:%d: %s", loadErr.File, loadErr.Line, loadErr.Column, loadErr.Message)
		}
		return loadErr.Code, loadErr.Message
	}
	var be *resolve.BuildError
	if errors.As(err, &be) {
		return be.Code, be.Error()
	}
	return ErrCodeGeneric, err.Error()
}

// isBuildFailure reports whether err means the rules are wrong rather than
// the command being misused.
func isBuildFailure(err error) bool {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code == ErrCodeLoadFailed
	}
	return resolve.IsBuildError(err)
}
