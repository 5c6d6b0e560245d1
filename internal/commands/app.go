package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/accounts"
	"github.com/cleared-dev/ledger/internal/auditlog"
	"github.com/cleared-dev/ledger/internal/bankimport"
	"github.com/cleared-dev/ledger/internal/config"
	"github.com/cleared-dev/ledger/internal/errs"
	"github.com/cleared-dev/ledger/internal/journal"
	"github.com/cleared-dev/ledger/internal/logging"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/openitem"
	"github.com/cleared-dev/ledger/internal/partners"
	"github.com/cleared-dev/ledger/internal/posting"
	"github.com/cleared-dev/ledger/internal/report"
	"github.com/cleared-dev/ledger/internal/session"
	"github.com/cleared-dev/ledger/internal/store"
	"github.com/cleared-dev/ledger/internal/tenant"
)

// app is an opened ledger directory with its services wired up.
type app struct {
	dir  string
	cfg  *config.Config
	log  *slog.Logger
	sess session.Session
	out  io.Writer

	store     *store.Store
	accounts  *accounts.Service
	journal   *journal.Service
	partners  *partners.Service
	posting   *posting.Service
	openItems *openitem.Tracker
	reports   *report.Reporter
	imports   *bankimport.Importer
	audit     *auditlog.Log
}

// openLedger loads ledger.yaml from --dir, applies .env overrides, opens the
// database and resolves the configured tenant.
func openLedger(cmd *cobra.Command, opts *rootOptions) (*app, error) {
	dir, err := filepath.Abs(opts.dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	if err != nil {
		return nil, fmt.Errorf("not a ledger directory (run ledger init): %w", err)
	}
	if err := config.ApplyEnv(cfg, filepath.Join(dir, ".env")); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", config.FileName, err)
	}

	log := opts.log
	if !opts.debug {
		level, err := logging.ParseLevel(cfg.Log.Level)
		if err != nil {
			return nil, err
		}
		log = logging.New(level, cmd.ErrOrStderr())
	}

	ctx := cmd.Context()
	st, err := store.Open(ctx, dbPath(dir, cfg), log)
	if err != nil {
		return nil, err
	}
	sess, err := tenant.Open(ctx, st, cfg.Business.CompanyCode, opts.user)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("opening company %s: %w", cfg.Business.CompanyCode, err)
	}
	return newApp(dir, cfg, log, st, sess, cmd.OutOrStdout()), nil
}

func newApp(dir string, cfg *config.Config, log *slog.Logger, st *store.Store, sess session.Session, out io.Writer) *app {
	j := journal.NewService(st, log, cfg.Numbering.Width)
	return &app{
		dir:       dir,
		cfg:       cfg,
		log:       log,
		sess:      sess,
		out:       out,
		store:     st,
		accounts:  accounts.NewService(st, log),
		journal:   j,
		partners:  partners.NewService(st, log),
		posting:   posting.NewService(j, log),
		openItems: openitem.NewTracker(st, log),
		reports:   report.New(st),
		imports:   bankimport.NewImporter(j, log),
		audit:     auditlog.New(dir),
	}
}

func dbPath(dir string, cfg *config.Config) string {
	if filepath.IsAbs(cfg.Database.Path) {
		return cfg.Database.Path
	}
	return filepath.Join(dir, cfg.Database.Path)
}

func (a *app) Close() error {
	return a.store.Close()
}

// withLedger opens the ledger, runs fn and closes it again.
func withLedger(opts *rootOptions, fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openLedger(cmd, opts)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd.Context(), a, args)
	}
}

// record appends to the activity log. A failed write is reported but does not
// undo the committed change.
func (a *app) record(action auditlog.Action, ref, details string) {
	err := a.audit.Append(auditlog.Record{
		CompanyCode: a.sess.CompanyCode,
		UserID:      a.sess.UserID,
		Action:      action,
		Reference:   ref,
		Details:     details,
	})
	if err != nil {
		a.log.Warn("activity log not written", "action", action, "error", err)
	}
}

func (a *app) account(ctx context.Context, code string) (model.Account, error) {
	return a.accounts.ByCode(ctx, a.sess, code)
}

func (a *app) accountID(ctx context.Context, code string) (int64, error) {
	acct, err := a.account(ctx, code)
	if err != nil {
		return 0, err
	}
	return acct.ID, nil
}

// optionalAccountID resolves code to an id pointer, or nil when code is empty.
func (a *app) optionalAccountID(ctx context.Context, code string) (*int64, error) {
	if code == "" {
		return nil, nil
	}
	id, err := a.accountID(ctx, code)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// codes maps account ids to codes for display.
func (a *app) codes(ctx context.Context) (map[int64]string, error) {
	all, err := a.accounts.List(ctx, a.sess)
	if err != nil {
		return nil, err
	}
	m := make(map[int64]string, len(all))
	for _, acct := range all {
		m[acct.ID] = acct.Code
	}
	return m, nil
}

func (a *app) table() *tabwriter.Writer {
	return tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
}

const dateLayout = "2006-01-02"

// parseDate reads YYYY-MM-DD; empty means today.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, errs.Validation("date %q is not YYYY-MM-DD", s)
	}
	return d, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, errs.Validation("amount %q is not a number", s)
	}
	return d, nil
}

// parsePosting splits "CODE=AMOUNT".
func parsePosting(s string) (string, decimal.Decimal, error) {
	code, amt, ok := strings.Cut(s, "=")
	if !ok || code == "" {
		return "", decimal.Decimal{}, errs.Validation("posting %q must look like CODE=AMOUNT", s)
	}
	d, err := parseAmount(amt)
	if err != nil {
		return "", decimal.Decimal{}, err
	}
	return code, d, nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
