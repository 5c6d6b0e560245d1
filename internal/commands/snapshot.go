package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/accounts"
	"github.com/cleared-dev/ledger/internal/gitops"
	"github.com/cleared-dev/ledger/internal/journal"
)

// snapshot exports the chart and the journal as CSV under export/ and
// commits them when git is enabled for the ledger.
func (a *app) snapshot(ctx context.Context, message string) (string, error) {
	chart, err := a.accounts.List(ctx, a.sess)
	if err != nil {
		return "", err
	}
	entries, err := a.journal.FetchAllEntries(ctx, a.sess)
	if err != nil {
		return "", err
	}
	codes := make(map[int64]string, len(chart))
	for _, acct := range chart {
		codes[acct.ID] = acct.Code
	}

	files := map[string]gitops.Writer{
		"accounts.csv": func(w io.Writer) error { return accounts.WriteAccounts(w, chart) },
		"journal.csv":  func(w io.Writer) error { return journal.WriteLines(w, entries, codes) },
	}
	git := a.cfg.Git
	return gitops.Snapshot(ctx, a.dir, files, git.AutoCommit, message, git.AuthorName, git.AuthorEmail)
}

func newSnapshotCommand(opts *rootOptions) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Export the books to export/*.csv and commit them if git is enabled",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = withLedger(opts, func(ctx context.Context, a *app, _ []string) error {
		hash, err := a.snapshot(ctx, message)
		if err != nil {
			return err
		}
		switch {
		case !a.cfg.Git.AutoCommit:
			fmt.Fprintf(a.out, "Wrote snapshot to %s/\n", gitops.ExportDir)
		case hash == "":
			fmt.Fprintln(a.out, "Snapshot unchanged, nothing committed")
		default:
			fmt.Fprintf(a.out, "Committed snapshot %s\n", hash)
		}
		return nil
	})
	cmd.Flags().StringVarP(&message, "message", "m", "snapshot", "commit message")
	return cmd
}
