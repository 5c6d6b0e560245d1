package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/errs"
)

func newOpenItemsCommand(opts *rootOptions) *cobra.Command {
	var account, partner string

	cmd := &cobra.Command{
		Use:   "open-items",
		Short: "List unsettled receivable and payable lines",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = withLedger(opts, func(ctx context.Context, a *app, _ []string) error {
		var accountID int64
		var err error
		if account != "" {
			if accountID, err = a.accountID(ctx, account); err != nil {
				return err
			}
		}
		partnerID, err := a.partnerID(ctx, partner)
		if err != nil {
			return err
		}
		items, err := a.openItems.ListOpen(ctx, a.sess, accountID, partnerID)
		if err != nil {
			return err
		}
		codes, err := a.codes(ctx)
		if err != nil {
			return err
		}

		tw := a.table()
		fmt.Fprintln(tw, "LINE\tENTRY\tDATE\tACCOUNT\tSIDE\tAMOUNT\tSTATUS")
		for _, it := range items {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", it.Line.ID, it.EntryNumber, it.EntryDate.Format(dateLayout),
				codes[it.Line.AccountID], it.Line.EntryType, money(it.Line.Amount), it.Line.OpenItemStatus)
		}
		return tw.Flush()
	})
	cmd.Flags().StringVar(&account, "account", "", "only this account code")
	cmd.Flags().StringVar(&partner, "partner", "", "only this partner")

	cmd.AddCommand(&cobra.Command{
		Use:   "revalue <line id>",
		Short: "Mark an open item as revalued",
		Args:  cobra.ExactArgs(1),
		RunE: withLedger(opts, func(ctx context.Context, a *app, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return errs.Validation("line id %q is not a number", args[0])
			}
			if err := a.openItems.Revalue(ctx, a.sess, id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Line %d revalued\n", id)
			return nil
		}),
	})
	return cmd
}
