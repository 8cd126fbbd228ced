package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/localfinderx/localfinderx/internal/preflight"
)

func newDoctorCmd() *cobra.Command {
	var asJSON bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run preflight checks: disk space, memory, permissions, embedder model, and network egress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sess, err := openSession(ctx, dataDirFlag, noModel)
			if err != nil {
				return err
			}
			defer func() { _ = sess.Close() }()

			checker := preflight.New(
				preflight.WithVerbose(verbose),
				preflight.WithOutput(cmd.OutOrStdout()),
			)

			results := checker.RunAll(ctx, sess.layout.DataDir)
			results = append(results, checker.CheckNoEgress(func(egressCtx context.Context) {
				_ = sess.tokenizer.Tokenize("preflight self-test")
				if sess.embedder != nil && sess.embedder.Available(egressCtx) {
					_, _ = sess.embedder.Embed(egressCtx, "preflight self-test")
				}
			}))

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(results); err != nil {
					return err
				}
			} else {
				checker.PrintResults(results)
			}

			if checker.HasCriticalFailures(results) {
				return fmt.Errorf("one or more required preflight checks failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output results as JSON")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Print details for passing checks too")

	return cmd
}
