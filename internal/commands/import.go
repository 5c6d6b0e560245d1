package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/auditlog"
	"github.com/cleared-dev/ledger/internal/bankimport"
	"github.com/cleared-dev/ledger/internal/errs"
)

func newImportCommand(opts *rootOptions) *cobra.Command {
	var format, bank, offset string

	cmd := &cobra.Command{
		Use:   "import [statement.csv]",
		Short: "Post a bank statement; without a file, every CSV in import/ is posted and moved to import/processed/",
		Args:  cobra.MaximumNArgs(1),
	}
	cmd.RunE = withLedger(opts, func(ctx context.Context, a *app, args []string) error {
		parser := bankimport.DefaultRegistry().Get(format)
		if parser == nil {
			return errs.Validation("unknown statement format %q", format)
		}
		bankID, err := a.accountID(ctx, bank)
		if err != nil {
			return fmt.Errorf("bank account: %w", err)
		}
		offsetID, err := a.accountID(ctx, offset)
		if err != nil {
			return fmt.Errorf("offset account: %w", err)
		}

		post := func(path string, lines []bankimport.StatementLine) error {
			res, err := a.imports.Import(ctx, a.sess, lines, bankID, offsetID)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			a.record(auditlog.ActionImport, path, fmt.Sprintf("posted %d, skipped %d", res.Posted, res.Skipped))
			fmt.Fprintf(a.out, "%s: posted %d, skipped %d already imported\n", path, res.Posted, res.Skipped)
			return nil
		}

		if len(args) == 1 {
			lines, err := bankimport.ParseFile(parser, args[0])
			if err != nil {
				return err
			}
			return post(args[0], lines)
		}
		files, err := bankimport.Scan(a.dir)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Fprintln(a.out, "Nothing to import.")
			return nil
		}
		// Every file must parse before any is posted.
		parsed, err := bankimport.ParseFiles(ctx, parser, files)
		if err != nil {
			return err
		}
		for i, f := range files {
			if err := post(f.Path, parsed[i]); err != nil {
				return err
			}
			if err := bankimport.MarkProcessed(a.dir, f.Name); err != nil {
				return err
			}
		}
		return nil
	})
	cmd.Flags().StringVar(&format, "format", "chase", "statement format: chase or simple")
	cmd.Flags().StringVar(&bank, "bank", "1000", "bank account code")
	cmd.Flags().StringVar(&offset, "offset", "", "account code to post the other side to")
	_ = cmd.MarkFlagRequired("offset")
	return cmd
}

func newActivityCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "activity",
		Short: "Show the activity log",
		Args:  cobra.NoArgs,
		RunE: withLedger(opts, func(ctx context.Context, a *app, _ []string) error {
			recs, err := a.audit.Read()
			if err != nil {
				return err
			}
			tw := a.table()
			fmt.Fprintln(tw, "TIME\tUSER\tACTION\tREFERENCE\tDETAILS")
			for _, r := range recs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Timestamp.Format("2006-01-02 15:04"), r.UserID, r.Action, r.Reference, r.Details)
			}
			return tw.Flush()
		}),
	}
}
