package openitem_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledger/internal/accounts"
	"github.com/cleared-dev/ledger/internal/errs"
	"github.com/cleared-dev/ledger/internal/journal"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/openitem"
	"github.com/cleared-dev/ledger/internal/session"
	"github.com/cleared-dev/ledger/internal/store/storetest"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestIsEligible(t *testing.T) {
	tests := []struct {
		name string
		acct model.Account
		want bool
	}{
		{"receivable type", model.Account{Type: model.AccountTypeAccountsReceivable}, true},
		{"payable type", model.Account{Type: model.AccountTypeAccountsPayable}, true},
		{"receivable role on a plain asset", model.Account{Type: model.AccountTypeBank, Role: model.RoleAccountsReceivable}, true},
		{"cash", model.Account{Type: model.AccountTypeCash, Role: model.RoleCash}, false},
		{"revenue", model.Account{Type: model.AccountTypeRevenue}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, openitem.IsEligible(tt.acct))
		})
	}
}

func TestInitialStatus(t *testing.T) {
	ar := model.Account{Type: model.AccountTypeAccountsReceivable}
	cash := model.Account{Type: model.AccountTypeCash}
	target := int64(9)

	assert.Equal(t, model.OpenItemOpen, openitem.InitialStatus(ar, model.DebitLine(1, dec("10"), "")))
	assert.Equal(t, model.OpenItemNone, openitem.InitialStatus(cash, model.DebitLine(1, dec("10"), "")))

	clearing := model.CreditLine(1, dec("10"), "")
	clearing.ClearsLineID = &target
	assert.Equal(t, model.OpenItemNone, openitem.InitialStatus(ar, clearing))
}

func TestValidate(t *testing.T) {
	open := model.LineItem{ID: 7, AccountID: 1, EntryType: model.Debit, Amount: dec("100"), OpenItemStatus: model.OpenItemOpen}
	revalued := open
	revalued.OpenItemStatus = model.OpenItemRevalued
	cleared := open
	cleared.OpenItemStatus = model.OpenItemCleared

	tests := []struct {
		name     string
		target   model.LineItem
		clearing model.LineItem
		wantErr  bool
	}{
		{"matches", open, model.CreditLine(1, dec("100"), ""), false},
		{"revalued is clearable", revalued, model.CreditLine(1, dec("100"), ""), false},
		{"within tolerance", open, model.CreditLine(1, dec("100.0000000001"), ""), false},
		{"other account", open, model.CreditLine(2, dec("100"), ""), true},
		{"same side", open, model.DebitLine(1, dec("100"), ""), true},
		{"partial amount", open, model.CreditLine(1, dec("60"), ""), true},
		{"already cleared", cleared, model.CreditLine(1, dec("100"), ""), true},
		{"not an open item", model.LineItem{ID: 3, AccountID: 1, EntryType: model.Debit, Amount: dec("100")}, model.CreditLine(1, dec("100"), ""), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := openitem.Validate(tt.target, tt.clearing)
			if tt.wantErr {
				assert.ErrorIs(t, err, errs.ErrValidationFailed)
				return
			}
			assert.NoError(t, err)
		})
	}
}

type fixture struct {
	tracker *openitem.Tracker
	journal *journal.Service
	sess    session.Session
	ids     map[string]int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st, sess := storetest.New(t)
	accts := accounts.NewService(st, nil)
	_, err := accts.Seed(ctx, sess)
	require.NoError(t, err)
	chart, err := accts.List(ctx, sess)
	require.NoError(t, err)
	ids := make(map[string]int64)
	for _, a := range chart {
		ids[a.Code] = a.ID
	}
	return &fixture{
		tracker: openitem.NewTracker(st, nil),
		journal: journal.NewService(st, nil, 4),
		sess:    sess,
		ids:     ids,
	}
}

// invoice posts Dr A/R, Cr revenue and returns the receivable line.
func (f *fixture) invoice(t *testing.T, amount string) model.LineItem {
	t.Helper()
	ctx := context.Background()
	id, err := f.journal.CreateEntry(ctx, f.sess, model.JournalEntry{
		Type:        model.TypeInvoice,
		Date:        time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		Description: "invoice",
		Lines: []model.LineItem{
			model.DebitLine(f.ids["1100"], dec(amount), ""),
			model.CreditLine(f.ids["4000"], dec(amount), ""),
		},
	})
	require.NoError(t, err)
	e, err := f.journal.FetchEntry(ctx, f.sess, id)
	require.NoError(t, err)
	return e.Lines[0]
}

func TestRevalueAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.invoice(t, "100")
	second := f.invoice(t, "250")

	items, err := f.tracker.ListOpen(ctx, f.sess, f.ids["1100"], "")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "INV-0001", items[0].EntryNumber)

	require.NoError(t, f.tracker.Revalue(ctx, f.sess, first.ID))
	assert.ErrorIs(t, f.tracker.Revalue(ctx, f.sess, first.ID), errs.ErrValidationFailed, "only open items can be revalued")

	items, err = f.tracker.ListOpen(ctx, f.sess, 0, "")
	require.NoError(t, err)
	require.Len(t, items, 2, "revalued items stay listed")
	assert.Equal(t, model.OpenItemRevalued, items[0].Line.OpenItemStatus)

	// Settle the revalued item.
	clearing := model.CreditLine(f.ids["1100"], dec("100"), "")
	clearing.ClearsLineID = &first.ID
	_, err = f.journal.CreateEntry(ctx, f.sess, model.JournalEntry{
		Type:        model.TypeReceipt,
		Date:        time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC),
		Description: "receipt",
		Lines:       []model.LineItem{model.DebitLine(f.ids["1000"], dec("100"), ""), clearing},
	})
	require.NoError(t, err)

	items, err = f.tracker.ListOpen(ctx, f.sess, f.ids["1100"], "")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, second.ID, items[0].Line.ID)
}

func TestRevalueRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.tracker.Revalue(ctx, session.Session{}, 1), errs.ErrAuthenticationRequired)
	assert.ErrorIs(t, f.tracker.Revalue(ctx, f.sess, 999), errs.ErrDataNotFound)

	id, err := f.journal.CreateEntry(ctx, f.sess, model.JournalEntry{
		Date:        time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		Description: "cash sale",
		Lines: []model.LineItem{
			model.DebitLine(f.ids["1000"], dec("5"), ""),
			model.CreditLine(f.ids["4000"], dec("5"), ""),
		},
	})
	require.NoError(t, err)
	e, err := f.journal.FetchEntry(ctx, f.sess, id)
	require.NoError(t, err)
	assert.ErrorIs(t, f.tracker.Revalue(ctx, f.sess, e.Lines[0].ID), errs.ErrValidationFailed)
}
