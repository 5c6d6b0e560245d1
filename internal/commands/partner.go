package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/auditlog"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/partners"
)

func newPartnerCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "partner",
		Short: "Manage customers and vendors",
	}
	cmd.AddCommand(newPartnerAddCommand(opts), newPartnerListCommand(opts))
	return cmd
}

func newPartnerAddCommand(opts *rootOptions) *cobra.Command {
	var name, typ, reconciliation string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a customer or vendor",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = withLedger(opts, func(ctx context.Context, a *app, _ []string) error {
		recon, err := a.optionalAccountID(ctx, reconciliation)
		if err != nil {
			return fmt.Errorf("reconciliation account: %w", err)
		}
		p, err := a.partners.Create(ctx, a.sess, partners.NewPartner{
			Name:                    name,
			Type:                    model.PartnerType(typ),
			ReconciliationAccountID: recon,
		})
		if err != nil {
			return err
		}
		a.record(auditlog.ActionPartnerAdd, p.ID, p.Name)
		fmt.Fprintf(a.out, "Added %s %s (%s)\n", p.Type, p.Name, p.ID)
		return nil
	})
	cmd.Flags().StringVar(&name, "name", "", "partner name")
	cmd.Flags().StringVar(&typ, "type", string(model.PartnerCustomer), "customer, vendor or both")
	cmd.Flags().StringVar(&reconciliation, "reconciliation-account", "", "account code the partner's items post to")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newPartnerListCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List partners with their open balances",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = withLedger(opts, func(ctx context.Context, a *app, _ []string) error {
		list, err := a.partners.List(ctx, a.sess)
		if err != nil {
			return err
		}
		tw := a.table()
		fmt.Fprintln(tw, "NAME\tTYPE\tBALANCE\tID")
		for _, p := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Name, p.Type, money(p.Balance), p.ID)
		}
		return tw.Flush()
	})
	return cmd
}
