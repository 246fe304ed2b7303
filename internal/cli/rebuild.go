package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/tnpcore/internal/ir"
	"github.com/roach88/tnpcore/internal/kernel"
	"github.com/roach88/tnpcore/internal/rebuild"
	"github.com/roach88/tnpcore/internal/store"
)

// RebuildOptions holds flags for the rebuild command.
type RebuildOptions struct {
	*RootOptions
	Script   string
	From     string
	Database string
	Document string

	// PassTokens overrides the pass token generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	PassTokens rebuild.PassTokenGenerator
}

// RebuildReport is the output of a rebuild.
type RebuildReport struct {
	Document           string          `json:"document"`
	Token              string          `json:"pass_token"`
	Seq                int64           `json:"seq"`
	Start              string          `json:"start,omitempty"`
	Evaluated          []string        `json:"evaluated"`
	Counts             map[string]int  `json:"counts"`
	Digest             string          `json:"digest"`
	SummaryFingerprint string          `json:"summary_fingerprint"`
	Features           []FeatureReport `json:"features"`
}

// NewRebuildCommand creates the rebuild command.
func NewRebuildCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RebuildOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "rebuild <doc.cue>",
		Short: "Rebuild a document against a scripted kernel",
		Long: `Rebuild a document's feature history against a scripted kernel and
report every feature's Status Envelope.

With --from only the named feature, its dependents and any upstream
feature without a cached shape are evaluated. With --db the rebuilt
document and the pass are persisted to SQLite.

Exit codes:
  0 - Every feature is Ok or Warning
  1 - A feature ended in Error, Blocked or Critical, or the document is rejected
  2 - Command error (invalid paths, unknown start feature, etc.)

Examples:
  tnpcore rebuild part.cue --script kernel.yaml
  tnpcore rebuild part.cue --script kernel.yaml --from fillet1 --db part.db
  tnpcore rebuild parts/ --document bracket --script kernel.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRebuild(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Script, "script", "", "path to kernel script YAML (required)")
	cmd.Flags().StringVar(&opts.From, "from", "", "feature to rebuild from (default: all)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database to record the pass in")
	cmd.Flags().StringVar(&opts.Document, "document", "", "document name when the path declares several")
	_ = cmd.MarkFlagRequired("script")

	return cmd
}

func runRebuild(opts *RebuildOptions, path string, cmd *cobra.Command) error {
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := commandContext(cmd)

	doc, err := loadDocument(path, opts.Document)
	if err != nil {
		return err
	}
	script, err := loadScript(opts.Script)
	if err != nil {
		return err
	}

	var st *store.Store
	clock := rebuild.NewClock()
	if opts.Database != "" {
		logger.Info("opening database", "path", opts.Database)
		st, err = store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		seq, err := st.LastSeq(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read history", err)
		}
		clock = rebuild.NewClockAt(seq)
	}

	tokens := opts.PassTokens
	if tokens == nil {
		tokens = rebuild.UUIDv7Generator{}
	}
	orch := rebuild.New(kernel.NewMemory(script),
		rebuild.WithLogger(logger),
		rebuild.WithClock(clock),
		rebuild.WithPassTokens(tokens),
	)

	res, err := orch.Rebuild(ctx, doc, opts.From)
	if err != nil {
		return rebuildExitError(err)
	}

	if st != nil {
		if err := st.SaveDocument(ctx, res.Document, res.Pass.Seq); err != nil {
			return WrapExitError(ExitCommandError, "failed to save document", err)
		}
		if err := st.RecordPass(ctx, res.Document.Name, res.Pass); err != nil {
			return WrapExitError(ExitCommandError, "failed to record pass", err)
		}
		logger.Info("pass recorded", "db", opts.Database, "pass", res.Pass.Token, "seq", res.Pass.Seq)
	}

	report := newRebuildReport(res)
	if opts.Format == "json" {
		status := "ok"
		var cliErr *CLIError
		if res.Failed() {
			status = "error"
			cliErr = &CLIError{Code: "E_FEATURE_FAILED", Message: failedSummary(res)}
		}
		if err := formatter.JSON(status, report, cliErr); err != nil {
			return err
		}
	} else {
		writeRebuildText(cmd.OutOrStdout(), report)
	}

	if res.Failed() {
		return NewExitError(ExitFailure, failedSummary(res))
	}
	return nil
}

func newRebuildReport(res *rebuild.Result) RebuildReport {
	return RebuildReport{
		Document:           res.Document.Name,
		Token:              res.Pass.Token,
		Seq:                res.Pass.Seq,
		Start:              res.Pass.Start,
		Evaluated:          res.Pass.Evaluated,
		Counts:             statusCounts(res.Pass.Counts),
		Digest:             res.Pass.Digest,
		SummaryFingerprint: res.Pass.SummaryFingerprint,
		Features:           featureReports(res.Document),
	}
}

func writeRebuildText(w io.Writer, r RebuildReport) {
	fmt.Fprintf(w, "Rebuilt %s (pass %s, seq %d)\n", r.Document, r.Token, r.Seq)
	fmt.Fprintf(w, "Evaluated: %s\n\n", joinOrDash(r.Evaluated))
	writeFeatureTable(w, r.Features)
	fmt.Fprintln(w)

	statuses := make([]string, 0, len(r.Counts))
	for s := range r.Counts {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)
	for _, s := range statuses {
		if r.Counts[s] > 0 {
			fmt.Fprintf(w, "%s: %d  ", s, r.Counts[s])
		}
	}
	fmt.Fprintf(w, "\nDigest: %s\n", r.Digest)
}

func failedSummary(res *rebuild.Result) string {
	n := 0
	for _, f := range res.Document.Features {
		if f.Status.Status.Failed() {
			n++
		}
	}
	return fmt.Sprintf("%d feature(s) failed", n)
}

// rebuildExitError maps whole-pass errors: a broken document is a failure,
// anything else (unknown start feature, cancellation) a command error.
func rebuildExitError(err error) error {
	var re *rebuild.RebuildError
	if errors.As(err, &re) && (re.Code == rebuild.ErrCodeCycleDetected || re.Code == rebuild.ErrCodeInvalidDoc) {
		return WrapExitError(ExitFailure, "rebuild rejected", err)
	}
	return WrapExitError(ExitCommandError, "rebuild failed", err)
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func statusCounts(counts map[ir.Status]int) map[string]int {
	out := make(map[string]int, len(counts))
	for s, n := range counts {
		out[string(s)] = n
	}
	return out
}
