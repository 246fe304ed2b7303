package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tnpcore/internal/canon"
	"github.com/roach88/tnpcore/internal/ir"
	"github.com/roach88/tnpcore/internal/kernel"
	"github.com/roach88/tnpcore/internal/rebuild"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Script   string
	Document string
	Runs     int
}

// VerifyCheck is one digest comparison.
type VerifyCheck struct {
	Name   string `json:"name"`
	Digest string `json:"digest"`
	Match  bool   `json:"match"`
}

// VerifyResult is the output of the verify command.
type VerifyResult struct {
	Document      string        `json:"document"`
	Expected      string        `json:"expected_digest"`
	Checks        []VerifyCheck `json:"checks"`
	Deterministic bool          `json:"deterministic"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify <doc.cue>",
		Short: "Verify rebuild determinism",
		Long: `Rebuild a document several times and check that every path yields the
same Digest:

  run N     - an independent rebuild from the compiled document
  roundtrip - the first result encoded to canonical JSON and decoded again
  reload    - the decoded document rebuilt with a cold shape cache

Exit codes:
  0 - All digests match
  1 - Digests diverged
  2 - Command error (invalid paths, etc.)

Examples:
  tnpcore verify part.cue --script kernel.yaml
  tnpcore verify part.cue --script kernel.yaml --runs 10 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Script, "script", "", "path to kernel script YAML (required)")
	cmd.Flags().StringVar(&opts.Document, "document", "", "document name when the path declares several")
	cmd.Flags().IntVar(&opts.Runs, "runs", 3, "number of independent rebuilds")
	_ = cmd.MarkFlagRequired("script")

	return cmd
}

func runVerify(opts *VerifyOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	ctx := commandContext(cmd)

	if opts.Runs < 1 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--runs must be at least 1, got %d", opts.Runs))
	}
	doc, err := loadDocument(path, opts.Document)
	if err != nil {
		return err
	}
	script, err := loadScript(opts.Script)
	if err != nil {
		return err
	}

	// Every rebuild gets its own kernel and clock so no state is shared.
	rebuildOnce := func(d *ir.Document) (*rebuild.Result, error) {
		orch := rebuild.New(kernel.NewMemory(script), rebuild.WithLogger(logger))
		return orch.Rebuild(ctx, d, "")
	}

	result := VerifyResult{Document: doc.Name, Deterministic: true}
	check := func(name, digest string) {
		match := digest == result.Expected
		result.Checks = append(result.Checks, VerifyCheck{Name: name, Digest: digest, Match: match})
		if !match {
			result.Deterministic = false
			logger.Warn("digest diverged", "check", name, "expected", result.Expected, "got", digest)
		}
	}

	var first *rebuild.Result
	for i := 1; i <= opts.Runs; i++ {
		res, err := rebuildOnce(doc.Clone())
		if err != nil {
			return rebuildExitError(err)
		}
		if first == nil {
			first = res
			result.Expected = res.Pass.Digest
		}
		check(fmt.Sprintf("run %d", i), res.Pass.Digest)
	}

	data, err := canon.EncodeDocument(first.Document)
	if err != nil {
		return WrapExitError(ExitFailure, "roundtrip encode failed", err)
	}
	decoded, err := canon.DecodeDocument(data)
	if err != nil {
		return WrapExitError(ExitFailure, "roundtrip decode failed", err)
	}
	digest, err := canon.Digest(decoded)
	if err != nil {
		return WrapExitError(ExitFailure, "roundtrip digest failed", err)
	}
	check("roundtrip", digest)

	reloaded, err := rebuildOnce(decoded)
	if err != nil {
		return rebuildExitError(err)
	}
	check("reload", reloaded.Pass.Digest)

	if opts.Format == "json" {
		status := "ok"
		var cliErr *CLIError
		if !result.Deterministic {
			status = "error"
			cliErr = &CLIError{Code: "E_NONDETERMINISTIC", Message: "digests diverged"}
		}
		if err := formatter.JSON(status, result, cliErr); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Verifying %s\n", result.Document)
		for _, c := range result.Checks {
			mark := "✓"
			if !c.Match {
				mark = "✗"
			}
			fmt.Fprintf(w, "  %s %-10s %s\n", mark, c.Name, shortHash(c.Digest))
		}
		if result.Deterministic {
			fmt.Fprintln(w, "✓ Deterministic")
		} else {
			fmt.Fprintln(w, "✗ Digests diverged")
		}
	}

	if !result.Deterministic {
		return NewExitError(ExitFailure, "digests diverged")
	}
	return nil
}
