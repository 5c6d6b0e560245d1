package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/auditlog"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/posting"
)

// partnerID resolves a partner by name; empty stays empty.
func (a *app) partnerID(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", nil
	}
	p, err := a.partners.Find(ctx, a.sess, name)
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

func newPaymentCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payment",
		Short: "Record money received or paid",
	}
	cmd.AddCommand(
		newPaymentDirectionCommand(opts, model.PaymentIncoming),
		newPaymentDirectionCommand(opts, model.PaymentOutgoing),
	)
	return cmd
}

func newPaymentDirectionCommand(opts *rootOptions, dir model.PaymentDirection) *cobra.Command {
	var partner, amount, date, cash, reference string
	var clears int64

	use, short := "in", "Record a customer payment (Dr cash, Cr receivables)"
	if dir == model.PaymentOutgoing {
		use, short = "out", "Record a vendor payment (Dr payables, Cr cash)"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
	}
	cmd.RunE = withLedger(opts, func(ctx context.Context, a *app, _ []string) error {
		in := posting.PaymentInput{Reference: reference}
		var err error
		if in.PartnerID, err = a.partnerID(ctx, partner); err != nil {
			return err
		}
		if in.Amount, err = parseAmount(amount); err != nil {
			return err
		}
		if in.Date, err = parseDate(date); err != nil {
			return err
		}
		if cash != "" {
			if in.CashAccountID, err = a.accountID(ctx, cash); err != nil {
				return err
			}
		}
		if clears != 0 {
			in.ClearsLineID = &clears
		}

		var pay model.Payment
		if dir == model.PaymentIncoming {
			pay, err = a.posting.IncomingPayment(ctx, a.sess, in)
		} else {
			pay, err = a.posting.OutgoingPayment(ctx, a.sess, in)
		}
		if err != nil {
			return err
		}
		e, err := a.journal.FetchEntry(ctx, a.sess, pay.EntryID)
		if err != nil {
			return err
		}
		a.record(auditlog.ActionPayment, e.Number, fmt.Sprintf("%s %s", dir, money(pay.Amount)))
		fmt.Fprintf(a.out, "Posted %s: %s %s\n", e.Number, dir, money(pay.Amount))
		return nil
	})
	cmd.Flags().StringVar(&partner, "partner", "", "partner name")
	cmd.Flags().StringVar(&amount, "amount", "", "amount")
	cmd.Flags().StringVar(&date, "date", "", "payment date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&cash, "account", "", "cash or bank account code (default the cash account)")
	cmd.Flags().StringVar(&reference, "reference", "", "cheque or transfer reference")
	cmd.Flags().Int64Var(&clears, "clears", 0, "id of the open invoice or bill line this payment settles")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newSaleCommand(opts *rootOptions) *cobra.Command {
	var partner, amount, cost, date, revenue string

	cmd := &cobra.Command{
		Use:   "sale",
		Short: "Invoice a customer",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = withLedger(opts, func(ctx context.Context, a *app, _ []string) error {
		in := posting.SaleInput{}
		var err error
		if in.PartnerID, err = a.partnerID(ctx, partner); err != nil {
			return err
		}
		if in.Amount, err = parseAmount(amount); err != nil {
			return err
		}
		if in.Cost, err = parseAmount(cost); err != nil {
			return err
		}
		if in.Date, err = parseDate(date); err != nil {
			return err
		}
		if in.RevenueAccountID, err = a.optionalAccountID(ctx, revenue); err != nil {
			return err
		}

		sale, err := a.posting.Sale(ctx, a.sess, in)
		if err != nil {
			return err
		}
		a.record(auditlog.ActionSale, sale.Number, fmt.Sprintf("%s to %s", money(sale.Amount), partner))
		fmt.Fprintf(a.out, "Posted %s: %s\n", sale.Number, money(sale.Amount))
		return nil
	})
	cmd.Flags().StringVar(&partner, "partner", "", "customer name")
	cmd.Flags().StringVar(&amount, "amount", "", "invoice amount")
	cmd.Flags().StringVar(&cost, "cost", "", "cost of the goods sold, if any")
	cmd.Flags().StringVar(&date, "date", "", "invoice date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&revenue, "revenue-account", "", "revenue account code (default sales revenue)")
	_ = cmd.MarkFlagRequired("partner")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newPurchaseCommand(opts *rootOptions) *cobra.Command {
	var partner, amount, date, account string

	cmd := &cobra.Command{
		Use:   "purchase",
		Short: "Record a vendor bill",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = withLedger(opts, func(ctx context.Context, a *app, _ []string) error {
		in := posting.PurchaseInput{}
		var err error
		if in.PartnerID, err = a.partnerID(ctx, partner); err != nil {
			return err
		}
		if in.Amount, err = parseAmount(amount); err != nil {
			return err
		}
		if in.Date, err = parseDate(date); err != nil {
			return err
		}
		if in.DebitAccountID, err = a.optionalAccountID(ctx, account); err != nil {
			return err
		}

		pur, err := a.posting.Purchase(ctx, a.sess, in)
		if err != nil {
			return err
		}
		a.record(auditlog.ActionPurchase, pur.Number, fmt.Sprintf("%s from %s", money(pur.Amount), partner))
		fmt.Fprintf(a.out, "Posted %s: %s\n", pur.Number, money(pur.Amount))
		return nil
	})
	cmd.Flags().StringVar(&partner, "partner", "", "vendor name")
	cmd.Flags().StringVar(&amount, "amount", "", "bill amount")
	cmd.Flags().StringVar(&date, "date", "", "bill date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&account, "account", "", "account to debit (default inventory)")
	_ = cmd.MarkFlagRequired("partner")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newInventoryCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "Manage stock valuation",
	}
	cmd.AddCommand(
		newInventoryClassCommand(opts),
		newInventoryCapitalizeCommand(opts),
		newInventoryListCommand(opts),
	)
	return cmd
}

func newInventoryClassCommand(opts *rootOptions) *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "class <name>",
		Short: "Create a valuation class carried on an inventory account",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = withLedger(opts, func(ctx context.Context, a *app, args []string) error {
		id, err := a.accountID(ctx, account)
		if err != nil {
			return err
		}
		vc, err := a.posting.CreateValuationClass(ctx, a.sess, args[0], id)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Created valuation class %s (%s)\n", vc.Name, vc.ID)
		return nil
	})
	cmd.Flags().StringVar(&account, "account", "1200", "inventory account code")
	return cmd
}

func newInventoryCapitalizeCommand(opts *rootOptions) *cobra.Command {
	var class, qty, price, date string

	cmd := &cobra.Command{
		Use:   "capitalize <item name>",
		Short: "Bring opening stock onto the books (Dr inventory, Cr owner's equity)",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = withLedger(opts, func(ctx context.Context, a *app, args []string) error {
		in := posting.InventoryInput{Name: args[0], ValuationClassID: class}
		var err error
		if in.Quantity, err = parseAmount(qty); err != nil {
			return err
		}
		if in.PurchasePrice, err = parseAmount(price); err != nil {
			return err
		}
		if in.Date, err = parseDate(date); err != nil {
			return err
		}
		item, err := a.posting.InitialInventory(ctx, a.sess, in)
		if err != nil {
			return err
		}
		a.record(auditlog.ActionInventory, item.ID, fmt.Sprintf("%s %s", item.Name, money(item.Value())))
		fmt.Fprintf(a.out, "Capitalized %s: %s\n", item.Name, money(item.Value()))
		return nil
	})
	cmd.Flags().StringVar(&class, "class", "", "valuation class id")
	cmd.Flags().StringVar(&qty, "qty", "", "quantity on hand")
	cmd.Flags().StringVar(&price, "price", "", "unit purchase price")
	cmd.Flags().StringVar(&date, "date", "", "date YYYY-MM-DD (default today)")
	_ = cmd.MarkFlagRequired("class")
	_ = cmd.MarkFlagRequired("qty")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}

func newInventoryListCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List capitalized stock items",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = withLedger(opts, func(ctx context.Context, a *app, _ []string) error {
		items, err := a.posting.Inventory(ctx, a.sess)
		if err != nil {
			return err
		}
		tw := a.table()
		fmt.Fprintln(tw, "ITEM\tQTY\tPRICE\tVALUE")
		for _, it := range items {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", it.Name, it.Quantity, money(it.PurchasePrice), money(it.Value()))
		}
		return tw.Flush()
	})
	return cmd
}
