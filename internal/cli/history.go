package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/tnpcore/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Document string
}

// HistoryPass is one rebuild pass in history output.
type HistoryPass struct {
	Token              string         `json:"pass_token"`
	Document           string         `json:"document"`
	Seq                int64          `json:"seq"`
	Start              string         `json:"start,omitempty"`
	Evaluated          int            `json:"evaluated"`
	Counts             map[string]int `json:"counts"`
	Digest             string         `json:"digest"`
	SummaryFingerprint string         `json:"summary_fingerprint"`
}

// HistoryResult is the output of the history command.
type HistoryResult struct {
	Documents []store.DocumentInfo `json:"documents"`
	Passes    []HistoryPass        `json:"passes"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded rebuild passes",
		Long: `List the documents stored in a database and their rebuild passes in
logical order.

Examples:
  tnpcore history --db part.db
  tnpcore history --db part.db --document bracket --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Document, "document", "", "only passes of this document")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := commandContext(cmd)

	// Open would create a missing database.
	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.Database))
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	docs, err := st.ListDocuments(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list documents", err)
	}
	records, err := st.ListPasses(ctx, opts.Document)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list passes", err)
	}

	result := HistoryResult{Documents: docs, Passes: make([]HistoryPass, len(records))}
	for i, p := range records {
		result.Passes[i] = HistoryPass{
			Token:              p.Token,
			Document:           p.Document,
			Seq:                p.Seq,
			Start:              p.Start,
			Evaluated:          p.Evaluated,
			Counts:             statusCounts(p.Counts),
			Digest:             p.Digest,
			SummaryFingerprint: p.SummaryFingerprint,
		}
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}

	w := cmd.OutOrStdout()
	if len(result.Passes) == 0 {
		fmt.Fprintln(w, "No passes recorded.")
		return nil
	}
	for _, d := range result.Documents {
		if opts.Document != "" && d.Name != opts.Document {
			continue
		}
		fmt.Fprintf(w, "Document %s: %d features, saved at seq %d, digest %s\n",
			d.Name, d.Features, d.SavedSeq, shortHash(d.Digest))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-5s  %-12s  %-36s  %-10s  %-9s  %s\n", "SEQ", "DOCUMENT", "PASS", "START", "EVALUATED", "DIGEST")
	for _, p := range result.Passes {
		start := p.Start
		if start == "" {
			start = "(all)"
		}
		fmt.Fprintf(w, "%-5d  %-12s  %-36s  %-10s  %-9d  %s\n",
			p.Seq, p.Document, p.Token, start, p.Evaluated, shortHash(p.Digest))
	}
	return nil
}
