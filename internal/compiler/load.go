package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/cui/internal/ir"
)

// LoadFile reads a rule tree from a .yaml, .yml or .cue file.
func LoadFile(path string) (*ir.RuleNode, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules: %w", err)
	}
	return LoadBytes(path, src)
}

// LoadBytes parses src according to the extension of filename.
func LoadBytes(filename string, src []byte) (*ir.RuleNode, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return LoadYAML(filename, src)
	case ".cue":
		return LoadCUE(filename, src)
	default:
		return nil, &CompileError{
			File:    filename,
			Field:   "file",
			Message: fmt.Sprintf("unsupported rule file extension %q (want .yaml, .yml or .cue)", filepath.Ext(filename)),
		}
	}
}
