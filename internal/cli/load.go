package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/tnpcore/internal/compiler"
	"github.com/roach88/tnpcore/internal/ir"
	"github.com/roach88/tnpcore/internal/kernel"
)

// loadDocument compiles path and returns the document called name, or the
// only document when name is empty. Contract violations are left to the
// rebuild, which reports them per feature.
func loadDocument(path, name string) (*ir.Document, error) {
	result, errs := compiler.Load(path, compiler.LoadModeFailFast)
	if len(errs) > 0 {
		return nil, loadExitError(errs[0])
	}

	var doc *ir.Document
	switch {
	case name != "":
		doc = result.Document(name)
		if doc == nil {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("document %q not found in %s", name, path))
		}
	case len(result.Documents) == 1:
		doc = result.Documents[0]
	default:
		names := make([]string, len(result.Documents))
		for i, d := range result.Documents {
			names[i] = d.Name
		}
		return nil, NewExitError(ExitCommandError,
			fmt.Sprintf("%s declares %d documents (%s); choose one with --document", path, len(names), strings.Join(names, ", ")))
	}
	return doc, nil
}

func loadExitError(err error) error {
	var le *compiler.LoadError
	if errors.As(err, &le) && le.Code == compiler.ErrCodeCompile {
		return WrapExitError(ExitFailure, "document does not compile", err)
	}
	return WrapExitError(ExitCommandError, "load failed", err)
}

func loadScript(path string) (*kernel.Script, error) {
	if path == "" {
		return nil, NewExitError(ExitCommandError, "--script is required")
	}
	s, err := kernel.LoadScript(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load kernel script", err)
	}
	return s, nil
}
