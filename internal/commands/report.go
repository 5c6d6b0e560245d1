package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/errs"
)

func newReportCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print balance reports",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "trial-balance",
			Short: "Debit and credit balances per account",
			Args:  cobra.NoArgs,
			RunE: withLedger(opts, func(ctx context.Context, a *app, _ []string) error {
				tb, err := a.reports.TrialBalance(ctx, a.sess)
				if err != nil {
					return err
				}
				tw := a.table()
				fmt.Fprintln(tw, "CODE\tNAME\tDEBIT\tCREDIT")
				for _, r := range tb.Rows {
					debit, credit := "", ""
					if r.Debit.IsPositive() {
						debit = money(r.Debit)
					} else {
						credit = money(r.Credit)
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Account.Code, r.Account.Name, debit, credit)
				}
				fmt.Fprintf(tw, "\tTotal\t%s\t%s\n", money(tb.TotalDebits), money(tb.TotalCredits))
				if err := tw.Flush(); err != nil {
					return err
				}
				if !tb.Balanced() {
					return errs.Validation("trial balance is out by %s", money(tb.TotalDebits.Sub(tb.TotalCredits)))
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "equation",
			Short: "Check assets = liabilities + equity",
			Args:  cobra.NoArgs,
			RunE: withLedger(opts, func(ctx context.Context, a *app, _ []string) error {
				eq, err := a.reports.Equation(ctx, a.sess)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Assets:           %s\n", money(eq.Assets))
				fmt.Fprintf(a.out, "Liabilities:      %s\n", money(eq.Liabilities))
				fmt.Fprintf(a.out, "Equity:           %s\n", money(eq.Equity))
				fmt.Fprintf(a.out, "Current earnings: %s\n", money(eq.CurrentEarnings))
				if !eq.Holds {
					return errs.Validation("accounting equation does not hold")
				}
				fmt.Fprintln(a.out, "Equation holds.")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "pnl",
			Short: "Profit and loss",
			Args:  cobra.NoArgs,
			RunE: withLedger(opts, func(ctx context.Context, a *app, _ []string) error {
				p, err := a.reports.ProfitAndLoss(ctx, a.sess)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Revenue:      %s\n", money(p.Revenue))
				fmt.Fprintf(a.out, "COGS:         %s\n", money(p.COGS))
				fmt.Fprintf(a.out, "Gross profit: %s (%s%%)\n", money(p.GrossProfit), money(p.GrossMargin))
				fmt.Fprintf(a.out, "Expenses:     %s\n", money(p.Expenses))
				fmt.Fprintf(a.out, "Net profit:   %s (%s%%)\n", money(p.NetProfit), money(p.NetMargin))
				return nil
			}),
		},
		&cobra.Command{
			Use:   "reconcile",
			Short: "Recompute balances from posted lines and list differences",
			Args:  cobra.NoArgs,
			RunE: withLedger(opts, func(ctx context.Context, a *app, _ []string) error {
				drift, err := a.reports.Reconcile(ctx, a.sess)
				if err != nil {
					return err
				}
				if len(drift) == 0 {
					fmt.Fprintln(a.out, "All balances agree with their postings.")
					return nil
				}
				tw := a.table()
				fmt.Fprintln(tw, "CODE\tSTORED\tFROM LINES")
				for _, d := range drift {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Account.Code, money(d.Account.Balance), money(d.Expected))
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				return errs.Validation("%d account balances disagree with their postings", len(drift))
			}),
		},
	)
	return cmd
}
