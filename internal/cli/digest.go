package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tnpcore/internal/kernel"
	"github.com/roach88/tnpcore/internal/rebuild"
)

// DigestOptions holds flags for the digest command.
type DigestOptions struct {
	*RootOptions
	Script   string
	Document string
}

// DigestResult is the output of the digest command.
type DigestResult struct {
	Document           string `json:"document"`
	Digest             string `json:"digest"`
	SummaryFingerprint string `json:"summary_fingerprint"`
	Features           int    `json:"features"`
}

// NewDigestCommand creates the digest command.
func NewDigestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DigestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "digest <doc.cue>",
		Short: "Print the regression digest of a rebuilt document",
		Long: `Rebuild a document and print its Digest and SummaryFingerprint.

The Digest covers policy, features, parameters, inputs, canonical
reference slots, envelopes and stable snapshots. The SummaryFingerprint
covers only each feature's id, status, code and stable snapshot. Both are
independent of pass tokens and equal across runs of the same inputs.

Examples:
  tnpcore digest part.cue --script kernel.yaml
  tnpcore digest part.cue --script kernel.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDigest(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Script, "script", "", "path to kernel script YAML (required)")
	cmd.Flags().StringVar(&opts.Document, "document", "", "document name when the path declares several")
	_ = cmd.MarkFlagRequired("script")

	return cmd
}

func runDigest(opts *DigestOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	doc, err := loadDocument(path, opts.Document)
	if err != nil {
		return err
	}
	script, err := loadScript(opts.Script)
	if err != nil {
		return err
	}

	orch := rebuild.New(kernel.NewMemory(script),
		rebuild.WithLogger(newLogger(opts.RootOptions, cmd.ErrOrStderr())))
	res, err := orch.Rebuild(commandContext(cmd), doc, "")
	if err != nil {
		return rebuildExitError(err)
	}

	result := DigestResult{
		Document:           res.Document.Name,
		Digest:             res.Pass.Digest,
		SummaryFingerprint: res.Pass.SummaryFingerprint,
		Features:           len(res.Document.Features),
	}
	if opts.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "digest %s\nsummary %s\n", result.Digest, result.SummaryFingerprint)
	return nil
}
