package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/auditlog"
	"github.com/cleared-dev/ledger/internal/bankimport"
	"github.com/cleared-dev/ledger/internal/config"
	"github.com/cleared-dev/ledger/internal/store"
	"github.com/cleared-dev/ledger/internal/tenant"
)

func newInitCommand(opts *rootOptions) *cobra.Command {
	var name, companyCode, currency string
	var useGit bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a new ledger with the default chart of accounts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := opts.dir
			if len(args) > 0 {
				dir = args[0]
			}
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			if companyCode == "" {
				companyCode = deriveCompanyCode(name)
			}
			return runInit(cmd, opts, absDir, name, companyCode, currency, useGit)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "business name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&companyCode, "company-code", "", "short company code (default derived from the name)")
	cmd.Flags().StringVar(&currency, "currency", "USD", "base currency")
	cmd.Flags().BoolVar(&useGit, "git", false, "keep CSV snapshots of the books in a git repository")

	return cmd
}

func runInit(cmd *cobra.Command, opts *rootOptions, dir, name, companyCode, currency string, useGit bool) error {
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists in %s", config.FileName, dir)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", cfgPath, err)
	}

	for _, d := range []string{"logs", bankimport.Inbox} {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfg := config.Default(name, companyCode)
	cfg.Business.Currency = currency
	cfg.Git.AutoCommit = useGit
	if err := config.ApplyEnv(cfg, filepath.Join(dir, ".env")); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	st, err := store.Open(ctx, dbPath(dir, cfg), opts.log)
	if err != nil {
		return err
	}
	defer st.Close()

	sess, err := tenant.Create(ctx, st, cfg.Business.CompanyCode, name, currency)
	if err != nil {
		return err
	}
	sess.UserID = opts.user

	a := newApp(dir, cfg, opts.log, st, sess, cmd.OutOrStdout())
	n, err := a.accounts.Seed(ctx, a.sess)
	if err != nil {
		return fmt.Errorf("seeding chart of accounts: %w", err)
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return err
	}
	a.record(auditlog.ActionInit, cfg.Business.CompanyCode, fmt.Sprintf("created %s with %d accounts", name, n))

	if useGit {
		hash, err := a.snapshot(ctx, "init: "+name)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Committed initial snapshot %s\n", hash)
	}

	fmt.Fprintf(a.out, "Initialized ledger for %s (%s) at %s with %d accounts\n", name, cfg.Business.CompanyCode, dir, n)
	return nil
}

// deriveCompanyCode upper-cases the letters and digits of the first word of name.
func deriveCompanyCode(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	code := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' {
			return r - 'a' + 'A'
		}
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, fields[0])
	if len(code) > 8 {
		code = code[:8]
	}
	return code
}
