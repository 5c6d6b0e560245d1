package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/accounts"
	"github.com/cleared-dev/ledger/internal/auditlog"
	"github.com/cleared-dev/ledger/internal/model"
)

func newAccountCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage the chart of accounts",
	}
	cmd.AddCommand(
		newAccountListCommand(opts),
		newAccountAddCommand(opts),
		newAccountDeleteCommand(opts),
		newAccountSuggestCodeCommand(opts),
		newAccountImportCommand(opts),
		newAccountExportCommand(opts),
	)
	return cmd
}

func newAccountListCommand(opts *rootOptions) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts with their balances",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = withLedger(opts, func(ctx context.Context, a *app, _ []string) error {
		var (
			list []model.Account
			err  error
		)
		if category != "" {
			cat, perr := model.ParseCategory(category)
			if perr != nil {
				return perr
			}
			list, err = a.accounts.ByCategory(ctx, a.sess, cat)
		} else {
			list, err = a.accounts.List(ctx, a.sess)
		}
		if err != nil {
			return err
		}

		tw := a.table()
		fmt.Fprintln(tw, "CODE\tNAME\tTYPE\tROLE\tBALANCE")
		for _, acct := range list {
			name := acct.Name
			if !acct.IsActive {
				name += " (inactive)"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", acct.Code, name, acct.Type, acct.Role, money(acct.Balance))
		}
		return tw.Flush()
	})
	cmd.Flags().StringVar(&category, "category", "", "only accounts in this category (asset, liability, equity, revenue, expense)")
	return cmd
}

func newAccountAddCommand(opts *rootOptions) *cobra.Command {
	var in accounts.NewAccount
	var typ, role, parent string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an account",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = withLedger(opts, func(ctx context.Context, a *app, _ []string) error {
		in.Type = model.AccountType(typ)
		in.Role = model.SystemRole(role)
		parentID, err := a.optionalAccountID(ctx, parent)
		if err != nil {
			return fmt.Errorf("parent: %w", err)
		}
		in.ParentID = parentID

		acct, err := a.accounts.Create(ctx, a.sess, in)
		if err != nil {
			return err
		}
		a.record(auditlog.ActionAccountAdd, acct.Code, acct.Name)
		fmt.Fprintf(a.out, "Added %s %s (%s)\n", acct.Code, acct.Name, acct.Type)
		return nil
	})

	cmd.Flags().StringVar(&in.Code, "code", "", "account code; its first digit must match the category")
	cmd.Flags().StringVar(&in.Name, "name", "", "account name")
	cmd.Flags().StringVar(&typ, "type", "", "account type, e.g. bank, expense, accounts_payable")
	cmd.Flags().StringVar(&role, "role", "", "system role, e.g. cash")
	cmd.Flags().StringVar(&parent, "parent", "", "parent account code")
	cmd.Flags().StringVar(&in.Description, "description", "", "description")
	_ = cmd.MarkFlagRequired("code")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func newAccountDeleteCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <code>",
		Short: "Delete an account with a zero balance",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = withLedger(opts, func(ctx context.Context, a *app, args []string) error {
		acct, err := a.account(ctx, args[0])
		if err != nil {
			return err
		}
		if err := a.accounts.Delete(ctx, a.sess, acct.ID); err != nil {
			return err
		}
		a.record(auditlog.ActionAccountDelete, acct.Code, acct.Name)
		fmt.Fprintf(a.out, "Deleted %s %s\n", acct.Code, acct.Name)
		return nil
	})
	return cmd
}

func newAccountSuggestCodeCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest-code <category>",
		Short: "Print the next free code in a category",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = withLedger(opts, func(ctx context.Context, a *app, args []string) error {
		cat, err := model.ParseCategory(args[0])
		if err != nil {
			return err
		}
		code, err := a.accounts.NextCode(ctx, a.sess, cat)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, code)
		return nil
	})
	return cmd
}

func newAccountImportCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import accounts from CSV; nothing is added if any row fails",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = withLedger(opts, func(ctx context.Context, a *app, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening %s: %w", args[0], err)
		}
		defer f.Close()
		rows, err := accounts.ReadAccounts(f)
		if err != nil {
			return err
		}
		list, parents := accounts.Split(rows)

		n, err := a.accounts.Import(ctx, a.sess, list, parents)
		if err != nil {
			return err
		}
		a.record(auditlog.ActionAccountImport, args[0], fmt.Sprintf("%d accounts", n))
		fmt.Fprintf(a.out, "Imported %d accounts\n", n)
		return nil
	})
	return cmd
}

func newAccountExportCommand(opts *rootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the chart of accounts as CSV",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = withLedger(opts, func(ctx context.Context, a *app, _ []string) error {
		list, err := a.accounts.List(ctx, a.sess)
		if err != nil {
			return err
		}
		if file == "" {
			return accounts.WriteAccounts(a.out, list)
		}
		f, err := os.Create(file)
		if err != nil {
			return fmt.Errorf("creating %s: %w", file, err)
		}
		if err := accounts.WriteAccounts(f, list); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	})
	cmd.Flags().StringVarP(&file, "output", "o", "", "file to write (default stdout)")
	return cmd
}
