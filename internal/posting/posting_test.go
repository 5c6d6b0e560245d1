package posting

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledger/internal/accounts"
	"github.com/cleared-dev/ledger/internal/calc"
	"github.com/cleared-dev/ledger/internal/errs"
	"github.com/cleared-dev/ledger/internal/journal"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/partners"
	"github.com/cleared-dev/ledger/internal/session"
	"github.com/cleared-dev/ledger/internal/store/storetest"
)

type fixture struct {
	svc      *Service
	journal  *journal.Service
	accts    *accounts.Service
	partners *partners.Service
	sess     session.Session
	ids      map[string]int64
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
	j := journal.NewService(st, nil, 4)
	return &fixture{
		svc:      NewService(j, nil),
		journal:  j,
		accts:    accts,
		partners: partners.NewService(st, nil),
		sess:     sess,
		ids:      ids,
	}
}

func (f *fixture) partner(t *testing.T, name string, typ model.PartnerType) model.BusinessPartner {
	t.Helper()
	p, err := f.partners.Create(context.Background(), f.sess, partners.NewPartner{Name: name, Type: typ})
	require.NoError(t, err)
	return p
}

func (f *fixture) balance(t *testing.T, code string) string {
	t.Helper()
	a, err := f.accts.ByCode(context.Background(), f.sess, code)
	require.NoError(t, err)
	return a.Balance.StringFixed(2)
}

func (f *fixture) partnerBalance(t *testing.T, id string) string {
	t.Helper()
	p, err := f.partners.Get(context.Background(), f.sess, id)
	require.NoError(t, err)
	return p.Balance.StringFixed(2)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var jan15 = time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

func TestPaymentLines(t *testing.T) {
	in := PaymentLines(model.PaymentIncoming, 1, 2, dec("500"))
	require.Len(t, in, 2)
	assert.Equal(t, int64(1), in[0].AccountID)
	assert.True(t, in[0].IsDebit())
	assert.Equal(t, int64(2), in[1].AccountID)
	assert.False(t, in[1].IsDebit())

	out := PaymentLines(model.PaymentOutgoing, 1, 2, dec("500"))
	assert.Equal(t, int64(2), out[0].AccountID)
	assert.True(t, out[0].IsDebit())
	assert.Equal(t, int64(1), out[1].AccountID)
	assert.False(t, out[1].IsDebit())

	assert.True(t, calc.IsBalanced(in))
	assert.True(t, calc.IsBalanced(out))
}

func TestIncomingPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme := f.partner(t, "Acme", model.PartnerCustomer)

	pay, err := f.svc.IncomingPayment(ctx, f.sess, PaymentInput{PartnerID: acme.ID, Amount: dec("500"), Date: jan15})
	require.NoError(t, err)
	assert.NotEmpty(t, pay.ID)
	assert.Equal(t, f.ids["1000"], pay.CashAccountID)

	entries, err := f.journal.FetchAllEntries(ctx, f.sess)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, pay.EntryID, e.ID)
	assert.Equal(t, "REC-0001", e.Number)
	assert.Equal(t, "Payment from Acme", e.Description)
	require.Len(t, e.Lines, 2)
	assert.Equal(t, f.ids["1000"], e.Lines[0].AccountID)
	assert.True(t, e.Lines[0].IsDebit())
	assert.Equal(t, "500.00", e.Lines[0].Amount.StringFixed(2))
	assert.Equal(t, f.ids["1100"], e.Lines[1].AccountID)
	assert.False(t, e.Lines[1].IsDebit())
	assert.Equal(t, acme.ID, e.Lines[1].PartnerID)
	assert.True(t, calc.IsBalanced(e.Lines))

	assert.Equal(t, "500.00", f.balance(t, "1000"))
	assert.Equal(t, "-500.00", f.balance(t, "1100"))
	assert.Equal(t, "-500.00", f.partnerBalance(t, acme.ID), "customer paid ahead of any invoice")

	list, err := f.svc.Payments(ctx, f.sess)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.PaymentIncoming, list[0].Direction)
}

func TestSaleThenPaymentSettles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme := f.partner(t, "Acme", model.PartnerCustomer)

	sale, err := f.svc.Sale(ctx, f.sess, SaleInput{PartnerID: acme.ID, Date: jan15, Amount: dec("800"), Cost: dec("300")})
	require.NoError(t, err)
	assert.Equal(t, "INV-0001", sale.Number)
	assert.Equal(t, "800.00", f.partnerBalance(t, acme.ID))
	assert.Equal(t, "800.00", f.balance(t, "4000"))
	assert.Equal(t, "300.00", f.balance(t, "6000"))
	assert.Equal(t, "-300.00", f.balance(t, "1200"))

	e, err := f.journal.FetchEntry(ctx, f.sess, sale.EntryID)
	require.NoError(t, err)
	require.Len(t, e.Lines, 4)
	invoiceLine := e.Lines[0]
	assert.Equal(t, model.OpenItemOpen, invoiceLine.OpenItemStatus)

	_, err = f.svc.IncomingPayment(ctx, f.sess, PaymentInput{
		PartnerID: acme.ID, Amount: dec("800"), Date: jan15, Reference: "chq 1042", ClearsLineID: &invoiceLine.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "0.00", f.partnerBalance(t, acme.ID))
	assert.Equal(t, "0.00", f.balance(t, "1100"))

	e, err = f.journal.FetchEntry(ctx, f.sess, sale.EntryID)
	require.NoError(t, err)
	assert.Equal(t, model.OpenItemCleared, e.Lines[0].OpenItemStatus)

	sales, err := f.svc.Sales(ctx, f.sess)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, "300.00", sales[0].Cost.StringFixed(2))
}

func TestServiceSaleHasNoCostLines(t *testing.T) {
	f := newFixture(t)
	acme := f.partner(t, "Acme", model.PartnerBoth)
	revenue := f.ids["4100"]

	sale, err := f.svc.Sale(context.Background(), f.sess, SaleInput{
		PartnerID: acme.ID, Date: jan15, Amount: dec("120"), RevenueAccountID: &revenue,
	})
	require.NoError(t, err)
	e, err := f.journal.FetchEntry(context.Background(), f.sess, sale.EntryID)
	require.NoError(t, err)
	assert.Len(t, e.Lines, 2)
	assert.Equal(t, "120.00", f.balance(t, "4100"))
	assert.Equal(t, "0.00", f.balance(t, "4000"))
}

func TestPartnerOfBothTypesNetsBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	both := f.partner(t, "Northwind", model.PartnerBoth)
	revenue := f.ids["4100"]
	supplies := f.ids["5300"]

	_, err := f.svc.Sale(ctx, f.sess, SaleInput{PartnerID: both.ID, Date: jan15, Amount: dec("100"), RevenueAccountID: &revenue})
	require.NoError(t, err)
	assert.Equal(t, "100.00", f.partnerBalance(t, both.ID), "they owe us")

	_, err = f.svc.Purchase(ctx, f.sess, PurchaseInput{PartnerID: both.ID, Date: jan15, Amount: dec("100"), DebitAccountID: &supplies})
	require.NoError(t, err)
	assert.Equal(t, "0.00", f.partnerBalance(t, both.ID), "what we owe offsets what they owe")

	_, err = f.svc.OutgoingPayment(ctx, f.sess, PaymentInput{PartnerID: both.ID, Amount: dec("40"), Date: jan15})
	require.NoError(t, err)
	assert.Equal(t, "40.00", f.partnerBalance(t, both.ID))
}

func TestPurchaseThenOutgoingPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	supplier := f.partner(t, "Paper Co", model.PartnerVendor)
	supplies := f.ids["5300"]

	pur, err := f.svc.Purchase(ctx, f.sess, PurchaseInput{PartnerID: supplier.ID, Date: jan15, Amount: dec("75.50"), DebitAccountID: &supplies})
	require.NoError(t, err)
	assert.Equal(t, "BILL-0001", pur.Number)
	assert.Equal(t, "75.50", f.balance(t, "5300"))
	assert.Equal(t, "75.50", f.balance(t, "2000"))
	assert.Equal(t, "75.50", f.partnerBalance(t, supplier.ID), "we owe the vendor")

	_, err = f.svc.OutgoingPayment(ctx, f.sess, PaymentInput{PartnerID: supplier.ID, Amount: dec("75.50"), Date: jan15})
	require.NoError(t, err)
	assert.Equal(t, "0.00", f.partnerBalance(t, supplier.ID))
	assert.Equal(t, "-75.50", f.balance(t, "1000"))

	e, err := f.journal.FetchEntryByNumber(ctx, f.sess, "PAY-0001")
	require.NoError(t, err)
	assert.Equal(t, "Payment to Paper Co", e.Description)
}

func TestPurchaseDefaultsToInventory(t *testing.T) {
	f := newFixture(t)
	v := f.partner(t, "Widgets Ltd", model.PartnerVendor)

	_, err := f.svc.Purchase(context.Background(), f.sess, PurchaseInput{PartnerID: v.ID, Date: jan15, Amount: dec("40")})
	require.NoError(t, err)
	assert.Equal(t, "40.00", f.balance(t, "1200"))
}

func TestPostingRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customer := f.partner(t, "Acme", model.PartnerCustomer)
	vendor := f.partner(t, "Paper Co", model.PartnerVendor)
	expense := f.ids["5000"]
	payable := f.ids["2000"]
	revenue := f.ids["4000"]
	cash := f.ids["1000"]

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"zero amount", func() error {
			_, err := f.svc.IncomingPayment(ctx, f.sess, PaymentInput{PartnerID: customer.ID, Amount: dec("0"), Date: jan15})
			return err
		}, errs.ErrValidationFailed},
		{"no date", func() error {
			_, err := f.svc.IncomingPayment(ctx, f.sess, PaymentInput{PartnerID: customer.ID, Amount: dec("1")})
			return err
		}, errs.ErrRequiredFieldMissing},
		{"vendor on incoming", func() error {
			_, err := f.svc.IncomingPayment(ctx, f.sess, PaymentInput{PartnerID: vendor.ID, Amount: dec("1"), Date: jan15})
			return err
		}, errs.ErrValidationFailed},
		{"unknown partner", func() error {
			_, err := f.svc.OutgoingPayment(ctx, f.sess, PaymentInput{PartnerID: "nope", Amount: dec("1"), Date: jan15})
			return err
		}, errs.ErrDataNotFound},
		{"cash account is an expense", func() error {
			_, err := f.svc.OutgoingPayment(ctx, f.sess, PaymentInput{CashAccountID: expense, Amount: dec("1"), Date: jan15})
			return err
		}, errs.ErrValidationFailed},
		{"sale without partner", func() error {
			_, err := f.svc.Sale(ctx, f.sess, SaleInput{Date: jan15, Amount: dec("1")})
			return err
		}, errs.ErrRequiredFieldMissing},
		{"sale to vendor", func() error {
			_, err := f.svc.Sale(ctx, f.sess, SaleInput{PartnerID: vendor.ID, Date: jan15, Amount: dec("1")})
			return err
		}, errs.ErrValidationFailed},
		{"negative cost", func() error {
			_, err := f.svc.Sale(ctx, f.sess, SaleInput{PartnerID: customer.ID, Date: jan15, Amount: dec("1"), Cost: dec("-1")})
			return err
		}, errs.ErrValidationFailed},
		{"purchase from customer", func() error {
			_, err := f.svc.Purchase(ctx, f.sess, PurchaseInput{PartnerID: customer.ID, Date: jan15, Amount: dec("1")})
			return err
		}, errs.ErrValidationFailed},
		{"purchase debiting a liability", func() error {
			_, err := f.svc.Purchase(ctx, f.sess, PurchaseInput{PartnerID: vendor.ID, Date: jan15, Amount: dec("1"), DebitAccountID: &payable})
			return err
		}, errs.ErrValidationFailed},
		{"purchase debiting revenue", func() error {
			_, err := f.svc.Purchase(ctx, f.sess, PurchaseInput{PartnerID: vendor.ID, Date: jan15, Amount: dec("1"), DebitAccountID: &revenue})
			return err
		}, errs.ErrValidationFailed},
		{"sale crediting cash", func() error {
			_, err := f.svc.Sale(ctx, f.sess, SaleInput{PartnerID: customer.ID, Date: jan15, Amount: dec("1"), RevenueAccountID: &cash})
			return err
		}, errs.ErrValidationFailed},
		{"sale crediting an expense", func() error {
			_, err := f.svc.Sale(ctx, f.sess, SaleInput{PartnerID: customer.ID, Date: jan15, Amount: dec("1"), RevenueAccountID: &expense})
			return err
		}, errs.ErrValidationFailed},
		{"no session", func() error {
			_, err := f.svc.Purchase(ctx, session.Session{}, PurchaseInput{PartnerID: vendor.ID, Date: jan15, Amount: dec("1")})
			return err
		}, errs.ErrAuthenticationRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), tt.want)
		})
	}

	entries, err := f.journal.FetchAllEntries(ctx, f.sess)
	require.NoError(t, err)
	assert.Empty(t, entries)
	payments, err := f.svc.Payments(ctx, f.sess)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestMissingRoleAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme := f.partner(t, "Acme", model.PartnerCustomer)

	cogs, err := f.accts.ByRole(ctx, f.sess, model.RoleCostOfGoodsSold)
	require.NoError(t, err)
	require.NoError(t, f.accts.Delete(ctx, f.sess, cogs.ID))

	_, err = f.svc.Sale(ctx, f.sess, SaleInput{PartnerID: acme.ID, Date: jan15, Amount: dec("10"), Cost: dec("4")})
	assert.ErrorIs(t, err, errs.ErrDataNotFound)
	assert.Equal(t, "0.00", f.partnerBalance(t, acme.ID), "nothing from the failed sale survives")

	sales, err := f.svc.Sales(ctx, f.sess)
	require.NoError(t, err)
	assert.Empty(t, sales)
}

func TestInitialInventory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	vc, err := f.svc.CreateValuationClass(ctx, f.sess, "Finished goods", f.ids["1200"])
	require.NoError(t, err)

	item, err := f.svc.InitialInventory(ctx, f.sess, InventoryInput{
		Name: "Blue widget", ValuationClassID: vc.ID, Quantity: dec("12"), PurchasePrice: dec("2.50"), Date: jan15,
	})
	require.NoError(t, err)
	require.NotNil(t, item.EntryID)
	assert.Equal(t, "30.00", f.balance(t, "1200"))
	assert.Equal(t, "30.00", f.balance(t, "3000"))

	e, err := f.journal.FetchEntry(ctx, f.sess, *item.EntryID)
	require.NoError(t, err)
	assert.Equal(t, model.TypeSpecial, e.Type)

	items, err := f.svc.Inventory(ctx, f.sess)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "30.00", items[0].Value().StringFixed(2))
}

func TestValuationClassRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateValuationClass(ctx, f.sess, "Goods", f.ids["5000"])
	assert.ErrorIs(t, err, errs.ErrValidationFailed)
	_, err = f.svc.CreateValuationClass(ctx, f.sess, "", f.ids["1200"])
	assert.ErrorIs(t, err, errs.ErrRequiredFieldMissing)

	_, err = f.svc.InitialInventory(ctx, f.sess, InventoryInput{
		Name: "x", ValuationClassID: "missing", Quantity: dec("1"), PurchasePrice: dec("1"), Date: jan15,
	})
	assert.ErrorIs(t, err, errs.ErrDataNotFound)

	vc, err := f.svc.CreateValuationClass(ctx, f.sess, "Goods", f.ids["1200"])
	require.NoError(t, err)
	_, err = f.svc.InitialInventory(ctx, f.sess, InventoryInput{
		Name: "x", ValuationClassID: vc.ID, Quantity: dec("0"), PurchasePrice: dec("1"), Date: jan15,
	})
	assert.ErrorIs(t, err, errs.ErrValidationFailed)
}
