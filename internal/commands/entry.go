package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/auditlog"
	"github.com/cleared-dev/ledger/internal/calc"
	"github.com/cleared-dev/ledger/internal/journal"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/store"
)

func newEntryCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entry",
		Short: "Post and inspect journal entries",
	}
	cmd.AddCommand(
		newEntryCreateCommand(opts),
		newEntryListCommand(opts),
		newEntryShowCommand(opts),
		newEntryDeleteCommand(opts),
		newEntryReverseCommand(opts),
		newEntryNextNumberCommand(opts),
		newEntryExportCommand(opts),
	)
	return cmd
}

func newEntryCreateCommand(opts *rootOptions) *cobra.Command {
	var date, description, typ string
	var debits, credits []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Post a balanced journal entry",
		Example: `  ledger entry create --description "Owner contribution" \
    --debit 1000=5000 --credit 3000=5000`,
		Args: cobra.NoArgs,
	}
	cmd.RunE = withLedger(opts, func(ctx context.Context, a *app, _ []string) error {
		d, err := parseDate(date)
		if err != nil {
			return err
		}
		e := model.JournalEntry{Type: model.TransactionType(typ), Date: d, Description: description}
		lines, err := a.lines(ctx, debits, model.Debit)
		if err != nil {
			return err
		}
		e.Lines = append(e.Lines, lines...)
		lines, err = a.lines(ctx, credits, model.Credit)
		if err != nil {
			return err
		}
		e.Lines = append(e.Lines, lines...)

		id, err := a.journal.CreateEntry(ctx, a.sess, e)
		if err != nil {
			return err
		}
		posted, err := a.journal.FetchEntry(ctx, a.sess, id)
		if err != nil {
			return err
		}
		a.record(auditlog.ActionEntryCreate, posted.Number, posted.Description)
		fmt.Fprintf(a.out, "Posted %s\n", posted.Number)
		return nil
	})

	cmd.Flags().StringVar(&date, "date", "", "entry date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&typ, "type", string(model.TypeJournal), "transaction type: JE, BILL, PAY, INV, REC, SP")
	cmd.Flags().StringArrayVar(&debits, "debit", nil, "debit posting CODE=AMOUNT (repeatable)")
	cmd.Flags().StringArrayVar(&credits, "credit", nil, "credit posting CODE=AMOUNT (repeatable)")
	return cmd
}

// lines turns CODE=AMOUNT postings into line items on one side.
func (a *app) lines(ctx context.Context, postings []string, side model.EntryType) ([]model.LineItem, error) {
	out := make([]model.LineItem, 0, len(postings))
	for _, p := range postings {
		code, amt, err := parsePosting(p)
		if err != nil {
			return nil, err
		}
		id, err := a.accountID(ctx, code)
		if err != nil {
			return nil, err
		}
		out = append(out, model.LineItem{AccountID: id, EntryType: side, Amount: amt})
	}
	return out, nil
}

func newEntryListCommand(opts *rootOptions) *cobra.Command {
	var typ, from, to string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List journal entries",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = withLedger(opts, func(ctx context.Context, a *app, _ []string) error {
		f := store.EntryFilter{Type: model.TransactionType(typ)}
		var err error
		if from != "" {
			if f.From, err = parseDate(from); err != nil {
				return err
			}
		}
		if to != "" {
			if f.To, err = parseDate(to); err != nil {
				return err
			}
		}
		entries, err := a.journal.FetchEntries(ctx, a.sess, f)
		if err != nil {
			return err
		}

		tw := a.table()
		fmt.Fprintln(tw, "NUMBER\tDATE\tDESCRIPTION\tAMOUNT")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Number, e.Date.Format(dateLayout), e.Description, money(calc.TotalDebits(e.Lines)))
		}
		return tw.Flush()
	})
	cmd.Flags().StringVar(&typ, "type", "", "only this transaction type")
	cmd.Flags().StringVar(&from, "from", "", "first date YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last date YYYY-MM-DD")
	return cmd
}

func newEntryShowCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <number>",
		Short: "Show an entry and its lines",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = withLedger(opts, func(ctx context.Context, a *app, args []string) error {
		e, err := a.journal.FetchEntryByNumber(ctx, a.sess, args[0])
		if err != nil {
			return err
		}
		codes, err := a.codes(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintf(a.out, "%s  %s  %s\n", e.Number, e.Date.Format(dateLayout), e.Description)
		if e.ReversesID != nil {
			fmt.Fprintf(a.out, "reverses entry id %d\n", *e.ReversesID)
		}
		tw := a.table()
		fmt.Fprintln(tw, "LINE\tID\tACCOUNT\tDEBIT\tCREDIT\tOPEN ITEM\tMEMO")
		for _, l := range e.Lines {
			debit, credit := money(l.Amount), ""
			if !l.IsDebit() {
				debit, credit = "", money(l.Amount)
			}
			fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\t%s\n", l.Number, l.ID, codes[l.AccountID], debit, credit, l.OpenItemStatus, l.Memo)
		}
		return tw.Flush()
	})
	return cmd
}

func newEntryDeleteCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <number>",
		Short: "Delete an entry and undo its balance effect",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = withLedger(opts, func(ctx context.Context, a *app, args []string) error {
		e, err := a.journal.FetchEntryByNumber(ctx, a.sess, args[0])
		if err != nil {
			return err
		}
		if err := a.journal.DeleteEntry(ctx, a.sess, e.ID); err != nil {
			return err
		}
		a.record(auditlog.ActionEntryDelete, e.Number, e.Description)
		fmt.Fprintf(a.out, "Deleted %s\n", e.Number)
		return nil
	})
	return cmd
}

func newEntryReverseCommand(opts *rootOptions) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "reverse <number>",
		Short: "Post the mirror image of an entry",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = withLedger(opts, func(ctx context.Context, a *app, args []string) error {
		d, err := parseDate(date)
		if err != nil {
			return err
		}
		e, err := a.journal.FetchEntryByNumber(ctx, a.sess, args[0])
		if err != nil {
			return err
		}
		rev, err := a.journal.ReverseEntry(ctx, a.sess, e.ID, d)
		if err != nil {
			return err
		}
		a.record(auditlog.ActionEntryReverse, rev.Number, rev.Description)
		fmt.Fprintf(a.out, "Posted %s reversing %s\n", rev.Number, e.Number)
		return nil
	})
	cmd.Flags().StringVar(&date, "date", "", "reversal date YYYY-MM-DD (default today)")
	return cmd
}

func newEntryNextNumberCommand(opts *rootOptions) *cobra.Command {
	var typ string

	cmd := &cobra.Command{
		Use:   "next-number",
		Short: "Print the number the next entry of a type would get",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = withLedger(opts, func(ctx context.Context, a *app, _ []string) error {
		n, err := a.journal.GenerateEntryNumber(ctx, a.sess, model.TransactionType(typ))
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, n)
		return nil
	})
	cmd.Flags().StringVar(&typ, "type", string(model.TypeJournal), "transaction type")
	return cmd
}

func newEntryExportCommand(opts *rootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every line item as CSV",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = withLedger(opts, func(ctx context.Context, a *app, _ []string) error {
		entries, err := a.journal.FetchAllEntries(ctx, a.sess)
		if err != nil {
			return err
		}
		codes, err := a.codes(ctx)
		if err != nil {
			return err
		}
		if file == "" {
			return journal.WriteLines(a.out, entries, codes)
		}
		f, err := os.Create(file)
		if err != nil {
			return fmt.Errorf("creating %s: %w", file, err)
		}
		if err := journal.WriteLines(f, entries, codes); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	})
	cmd.Flags().StringVarP(&file, "output", "o", "", "file to write (default stdout)")
	return cmd
}
