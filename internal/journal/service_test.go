package journal

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledger/internal/accounts"
	"github.com/cleared-dev/ledger/internal/calc"
	"github.com/cleared-dev/ledger/internal/errs"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/session"
	"github.com/cleared-dev/ledger/internal/store"
	"github.com/cleared-dev/ledger/internal/store/storetest"
)

type fixture struct {
	svc   *Service
	accts *accounts.Service
	st    *store.Store
	sess  session.Session
	ids   map[string]int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, sess := storetest.New(t)
	accts := accounts.NewService(st, nil)
	_, err := accts.Seed(context.Background(), sess)
	require.NoError(t, err)

	chart, err := accts.List(context.Background(), sess)
	require.NoError(t, err)
	ids := make(map[string]int64)
	for _, a := range chart {
		ids[a.Code] = a.ID
	}
	return &fixture{svc: NewService(st, nil, 4), accts: accts, st: st, sess: sess, ids: ids}
}

func (f *fixture) balance(t *testing.T, code string) string {
	t.Helper()
	a, err := f.accts.ByCode(context.Background(), f.sess, code)
	require.NoError(t, err)
	return a.Balance.StringFixed(2)
}

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func (f *fixture) entry(debitCode, creditCode, amount string) model.JournalEntry {
	return model.JournalEntry{
		Date:        date(2025, 1, 15),
		Description: "test",
		Lines: []model.LineItem{
			model.DebitLine(f.ids[debitCode], dec(amount), ""),
			model.CreditLine(f.ids[creditCode], dec(amount), ""),
		},
	}
}

func TestCreateEntry_PostsBalances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.CreateEntry(ctx, f.sess, f.entry("1000", "3000", "1000.00"))
	require.NoError(t, err)
	_, err = f.svc.CreateEntry(ctx, f.sess, f.entry("5000", "1000", "250.00"))
	require.NoError(t, err)

	assert.Equal(t, "750.00", f.balance(t, "1000"))
	assert.Equal(t, "1000.00", f.balance(t, "3000"), "equity is stored credit-positive")
	assert.Equal(t, "250.00", f.balance(t, "5000"))

	e, err := f.svc.FetchEntry(ctx, f.sess, id)
	require.NoError(t, err)
	assert.Equal(t, "JE-0001", e.Number)
	assert.Equal(t, model.TypeJournal, e.Type)
	assert.Equal(t, "USD", e.Currency)
	assert.True(t, e.ExchangeRate.Equal(dec("1")))
	assert.Equal(t, "tester", e.CreatedBy)
	assert.True(t, e.Posted)
	require.Len(t, e.Lines, 2)
	assert.Equal(t, 1, e.Lines[0].Number)
	assert.Equal(t, 2, e.Lines[1].Number)
}

func TestCreateEntry_UnbalancedPersistsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e := f.entry("1000", "3000", "100")
	e.Lines[1].Amount = dec("90")
	_, err := f.svc.CreateEntry(ctx, f.sess, e)
	assert.ErrorIs(t, err, errs.ErrValidationFailed)

	all, err := f.svc.FetchAllEntries(ctx, f.sess)
	require.NoError(t, err)
	assert.Empty(t, all, "no header row may exist after a rejected entry")
	assert.Equal(t, "0.00", f.balance(t, "1000"))
}

func TestCreateEntry_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.accts.UpdateMetadata(ctx, f.sess, f.ids["5300"], "Office Supplies", "", false))

	tests := []struct {
		name   string
		mutate func(*model.JournalEntry)
		want   error
	}{
		{"single line", func(e *model.JournalEntry) { e.Lines = e.Lines[:1] }, errs.ErrValidationFailed},
		{"zero amount", func(e *model.JournalEntry) { e.Lines[0].Amount = dec("0"); e.Lines[1].Amount = dec("0") }, errs.ErrValidationFailed},
		{"unknown account", func(e *model.JournalEntry) { e.Lines[0].AccountID = 99999 }, errs.ErrDataNotFound},
		{"inactive account", func(e *model.JournalEntry) { e.Lines[0].AccountID = f.ids["5300"] }, errs.ErrValidationFailed},
		{"unknown partner", func(e *model.JournalEntry) { e.Lines[0].PartnerID = "nobody" }, errs.ErrDataNotFound},
		{"unknown type", func(e *model.JournalEntry) { e.Type = "XX" }, errs.ErrValidationFailed},
		{"no date", func(e *model.JournalEntry) { e.Date = time.Time{} }, errs.ErrRequiredFieldMissing},
		{"negative rate", func(e *model.JournalEntry) { e.ExchangeRate = dec("-1") }, errs.ErrValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := f.entry("5000", "1000", "10")
			tt.mutate(&e)
			_, err := f.svc.CreateEntry(ctx, f.sess, e)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	all, err := f.svc.FetchAllEntries(ctx, f.sess)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreateEntry_RequiresSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateEntry(context.Background(), session.Session{}, f.entry("1000", "3000", "1"))
	assert.ErrorIs(t, err, errs.ErrAuthenticationRequired)
}

func TestCreateEntry_OtherTenantAccount(t *testing.T) {
	f := newFixture(t)
	other := storetest.Tenant(t, f.st, "OTHER")
	_, err := f.svc.CreateEntry(context.Background(), other, f.entry("1000", "3000", "1"))
	assert.ErrorIs(t, err, errs.ErrDataNotFound)
}

func TestCreateEntry_BalanceInvariant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	amounts := []string{"0.01", "19.99", "1234.56", "0.10", "99999.99"}
	for _, a := range amounts {
		e := model.JournalEntry{
			Date: date(2025, 2, 1),
			Lines: []model.LineItem{
				model.DebitLine(f.ids["5000"], dec(a), ""),
				model.DebitLine(f.ids["5100"], dec(a), ""),
				model.CreditLine(f.ids["1000"], dec(a).Mul(dec("2")), ""),
			},
		}
		_, err := f.svc.CreateEntry(ctx, f.sess, e)
		require.NoError(t, err)
	}

	all, err := f.svc.FetchAllEntries(ctx, f.sess)
	require.NoError(t, err)
	require.Len(t, all, len(amounts))
	for _, e := range all {
		assert.True(t, calc.IsBalanced(e.Lines), e.Number)
	}
}

func TestGenerateEntryNumber(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n, err := f.svc.GenerateEntryNumber(ctx, f.sess, model.TypeJournal)
	require.NoError(t, err)
	assert.Equal(t, "JE-0001", n)

	for i := 0; i < 3; i++ {
		_, err := f.svc.CreateEntry(ctx, f.sess, f.entry("1000", "3000", "1"))
		require.NoError(t, err)
	}
	n, err = f.svc.GenerateEntryNumber(ctx, f.sess, model.TypeJournal)
	require.NoError(t, err)
	assert.Equal(t, "JE-0004", n)

	bill, err := f.svc.GenerateEntryNumber(ctx, f.sess, model.TypeBill)
	require.NoError(t, err)
	assert.Equal(t, "BILL-0001", bill, "numbers are per transaction type")

	_, err = f.svc.GenerateEntryNumber(ctx, f.sess, "NOPE")
	assert.ErrorIs(t, err, errs.ErrValidationFailed)
}

func TestGenerateEntryNumber_Gap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e := f.entry("1000", "3000", "1")
	_, err := f.svc.CreateEntry(ctx, f.sess, e)
	require.NoError(t, err)
	e.Number = "JE-0005"
	_, err = f.svc.CreateEntry(ctx, f.sess, e)
	require.NoError(t, err)

	n, err := f.svc.GenerateEntryNumber(ctx, f.sess, model.TypeJournal)
	require.NoError(t, err)
	assert.Equal(t, "JE-0006", n)

	e.Number = "JE-0005"
	_, err = f.svc.CreateEntry(ctx, f.sess, e)
	assert.ErrorIs(t, err, errs.ErrValidationFailed, "numbers are unique per tenant and type")
}

func TestCreateEntry_ConcurrentWritersGetDistinctNumbers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	errCh := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateEntry(ctx, f.sess, f.entry("1000", "3000", "1"))
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		require.NoError(t, err)
	}

	all, err := f.svc.FetchAllEntries(ctx, f.sess)
	require.NoError(t, err)
	seen := make(map[string]bool)
	for _, e := range all {
		assert.False(t, seen[e.Number], "duplicate number %s", e.Number)
		seen[e.Number] = true
	}
	for i := 1; i <= n; i++ {
		assert.True(t, seen[fmt.Sprintf("JE-%04d", i)])
	}
	assert.Equal(t, "20.00", f.balance(t, "1000"))
}

func TestUpdateEntry_ReplacesLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.CreateEntry(ctx, f.sess, f.entry("5000", "1000", "100"))
	require.NoError(t, err)

	upd := f.entry("5100", "1000", "40")
	upd.Description = "corrected"
	upd.Date = date(2025, 1, 20)
	require.NoError(t, f.svc.UpdateEntry(ctx, f.sess, id, upd))

	assert.Equal(t, "0.00", f.balance(t, "5000"))
	assert.Equal(t, "40.00", f.balance(t, "5100"))
	assert.Equal(t, "-40.00", f.balance(t, "1000"))

	e, err := f.svc.FetchEntry(ctx, f.sess, id)
	require.NoError(t, err)
	assert.Equal(t, "JE-0001", e.Number)
	assert.Equal(t, "corrected", e.Description)
	assert.Equal(t, date(2025, 1, 20), e.Date)
	require.Len(t, e.Lines, 2)
	assert.Equal(t, f.ids["5100"], e.Lines[0].AccountID)
}

func TestUpdateEntry_InvalidLeavesEntryUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.CreateEntry(ctx, f.sess, f.entry("5000", "1000", "100"))
	require.NoError(t, err)

	bad := f.entry("5100", "1000", "40")
	bad.Lines[1].AccountID = 99999
	assert.ErrorIs(t, f.svc.UpdateEntry(ctx, f.sess, id, bad), errs.ErrDataNotFound)

	assert.Equal(t, "100.00", f.balance(t, "5000"))
	e, err := f.svc.FetchEntry(ctx, f.sess, id)
	require.NoError(t, err)
	assert.Equal(t, f.ids["5000"], e.Lines[0].AccountID)
}

func TestUpdateEntry_ReversedEntryIsFrozen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.CreateEntry(ctx, f.sess, f.entry("5000", "1000", "75"))
	require.NoError(t, err)
	_, err = f.svc.ReverseEntry(ctx, f.sess, id, date(2025, 1, 31))
	require.NoError(t, err)

	err = f.svc.UpdateEntry(ctx, f.sess, id, f.entry("5000", "1000", "999"))
	assert.ErrorIs(t, err, errs.ErrValidationFailed)
	assert.Equal(t, "0.00", f.balance(t, "5000"), "the reversal still mirrors its original")
	assert.Equal(t, "0.00", f.balance(t, "1000"))
}

func TestDocumentEntryIsFrozen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := f.entry("1000", "1100", "500")
	rec.Type = model.TypeReceipt
	id, err := f.svc.CreateEntry(ctx, f.sess, rec)
	require.NoError(t, err)
	require.NoError(t, f.st.Atomic(ctx, func(ctx context.Context, r *store.Repo) error {
		return r.InsertPayment(ctx, model.Payment{
			ID:            "pay-1",
			TenantID:      f.sess.TenantID,
			Direction:     model.PaymentIncoming,
			CashAccountID: f.ids["1000"],
			Amount:        dec("500"),
			Date:          date(2025, 1, 15),
			EntryID:       id,
		})
	}))

	upd := f.entry("1000", "1100", "300")
	assert.ErrorIs(t, f.svc.UpdateEntry(ctx, f.sess, id, upd), errs.ErrValidationFailed)
	assert.ErrorIs(t, f.svc.DeleteEntry(ctx, f.sess, id), errs.ErrValidationFailed)

	assert.Equal(t, "500.00", f.balance(t, "1000"))
	e, err := f.svc.FetchEntry(ctx, f.sess, id)
	require.NoError(t, err)
	assert.Equal(t, "500.00", calc.TotalDebits(e.Lines).StringFixed(2))
}

func TestDeleteEntry_ReversesBalances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.CreateEntry(ctx, f.sess, f.entry("1000", "3000", "500"))
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteEntry(ctx, f.sess, id))

	assert.Equal(t, "0.00", f.balance(t, "1000"))
	assert.Equal(t, "0.00", f.balance(t, "3000"))
	_, err = f.svc.FetchEntry(ctx, f.sess, id)
	assert.ErrorIs(t, err, errs.ErrDataNotFound)

	assert.ErrorIs(t, f.svc.DeleteEntry(ctx, f.sess, id), errs.ErrDataNotFound)
}

func TestReverseEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.CreateEntry(ctx, f.sess, f.entry("5000", "1000", "75"))
	require.NoError(t, err)

	rev, err := f.svc.ReverseEntry(ctx, f.sess, id, date(2025, 1, 31))
	require.NoError(t, err)
	assert.Equal(t, "JE-0002", rev.Number)
	assert.Equal(t, "Reversal of JE-0001", rev.Description)
	require.NotNil(t, rev.ReversesID)
	assert.Equal(t, id, *rev.ReversesID)
	require.Len(t, rev.Lines, 2)
	assert.Equal(t, model.Credit, rev.Lines[0].EntryType)
	assert.Equal(t, model.Debit, rev.Lines[1].EntryType)

	assert.Equal(t, "0.00", f.balance(t, "5000"))
	assert.Equal(t, "0.00", f.balance(t, "1000"))

	_, err = f.svc.ReverseEntry(ctx, f.sess, id, time.Time{})
	assert.ErrorIs(t, err, errs.ErrValidationFailed, "an entry is reversed once")
	assert.ErrorIs(t, f.svc.DeleteEntry(ctx, f.sess, id), errs.ErrValidationFailed, "a reversed entry stays")

	require.NoError(t, f.svc.DeleteEntry(ctx, f.sess, rev.ID))
	assert.Equal(t, "75.00", f.balance(t, "5000"))
}

func TestOpenItems_ClearAndReopen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	invoiceID, err := f.svc.CreateEntry(ctx, f.sess, model.JournalEntry{
		Type: model.TypeInvoice,
		Date: date(2025, 3, 1),
		Lines: []model.LineItem{
			model.DebitLine(f.ids["1100"], dec("500"), ""),
			model.CreditLine(f.ids["4000"], dec("500"), ""),
		},
	})
	require.NoError(t, err)
	invoice, err := f.svc.FetchEntry(ctx, f.sess, invoiceID)
	require.NoError(t, err)
	assert.Equal(t, "INV-0001", invoice.Number)
	assert.Equal(t, model.OpenItemOpen, invoice.Lines[0].OpenItemStatus)
	assert.Equal(t, model.OpenItemNone, invoice.Lines[1].OpenItemStatus)

	arLine := invoice.Lines[0].ID
	receipt := model.JournalEntry{
		Type: model.TypeReceipt,
		Date: date(2025, 3, 10),
		Lines: []model.LineItem{
			model.DebitLine(f.ids["1000"], dec("500"), ""),
			{AccountID: f.ids["1100"], EntryType: model.Credit, Amount: dec("500"), ClearsLineID: &arLine},
		},
	}
	receiptID, err := f.svc.CreateEntry(ctx, f.sess, receipt)
	require.NoError(t, err)

	invoice, err = f.svc.FetchEntry(ctx, f.sess, invoiceID)
	require.NoError(t, err)
	assert.Equal(t, model.OpenItemCleared, invoice.Lines[0].OpenItemStatus)

	_, err = f.svc.CreateEntry(ctx, f.sess, receipt)
	assert.ErrorIs(t, err, errs.ErrValidationFailed, "a cleared item cannot be cleared twice")

	assert.ErrorIs(t, f.svc.DeleteEntry(ctx, f.sess, invoiceID), errs.ErrValidationFailed,
		"an entry cleared by another cannot be deleted")

	require.NoError(t, f.svc.DeleteEntry(ctx, f.sess, receiptID))
	invoice, err = f.svc.FetchEntry(ctx, f.sess, invoiceID)
	require.NoError(t, err)
	assert.Equal(t, model.OpenItemOpen, invoice.Lines[0].OpenItemStatus)
	assert.Equal(t, "500.00", f.balance(t, "1100"))
}

func TestOpenItems_ClearingRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	invoiceID, err := f.svc.CreateEntry(ctx, f.sess, model.JournalEntry{
		Type: model.TypeInvoice,
		Date: date(2025, 3, 1),
		Lines: []model.LineItem{
			model.DebitLine(f.ids["1100"], dec("500"), ""),
			model.CreditLine(f.ids["4000"], dec("500"), ""),
		},
	})
	require.NoError(t, err)
	invoice, err := f.svc.FetchEntry(ctx, f.sess, invoiceID)
	require.NoError(t, err)
	arLine := invoice.Lines[0].ID
	revLine := invoice.Lines[1].ID

	tests := []struct {
		name  string
		lines []model.LineItem
	}{
		{"different account", []model.LineItem{
			model.DebitLine(f.ids["1000"], dec("500"), ""),
			{AccountID: f.ids["4000"], EntryType: model.Credit, Amount: dec("500"), ClearsLineID: &arLine},
		}},
		{"same side", []model.LineItem{
			{AccountID: f.ids["1100"], EntryType: model.Debit, Amount: dec("500"), ClearsLineID: &arLine},
			model.CreditLine(f.ids["4000"], dec("500"), ""),
		}},
		{"partial amount", []model.LineItem{
			model.DebitLine(f.ids["1000"], dec("200"), ""),
			{AccountID: f.ids["1100"], EntryType: model.Credit, Amount: dec("200"), ClearsLineID: &arLine},
		}},
		{"target not open", []model.LineItem{
			{AccountID: f.ids["4000"], EntryType: model.Debit, Amount: dec("500"), ClearsLineID: &revLine},
			model.CreditLine(f.ids["1000"], dec("500"), ""),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateEntry(ctx, f.sess, model.JournalEntry{Type: model.TypeReceipt, Date: date(2025, 3, 10), Lines: tt.lines})
			assert.ErrorIs(t, err, errs.ErrValidationFailed)
		})
	}

	receipts, err := f.svc.FetchEntries(ctx, f.sess, store.EntryFilter{Type: model.TypeReceipt})
	require.NoError(t, err)
	assert.Empty(t, receipts)
}

func TestReverseEntry_ClearsOpenItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	invoiceID, err := f.svc.CreateEntry(ctx, f.sess, model.JournalEntry{
		Type: model.TypeInvoice,
		Date: date(2025, 3, 1),
		Lines: []model.LineItem{
			model.DebitLine(f.ids["1100"], dec("80"), ""),
			model.CreditLine(f.ids["4000"], dec("80"), ""),
		},
	})
	require.NoError(t, err)

	rev, err := f.svc.ReverseEntry(ctx, f.sess, invoiceID, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "INV-0002", rev.Number)
	assert.Equal(t, date(2025, 3, 1), rev.Date)

	open, err := f.st.Reader().ListOpenItems(ctx, store.OpenItemFilter{TenantID: f.sess.TenantID})
	require.NoError(t, err)
	assert.Empty(t, open)
}
