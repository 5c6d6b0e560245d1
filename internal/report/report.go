// Package report builds read-only views over a tenant's balances.
package report

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledger/internal/balance"
	"github.com/cleared-dev/ledger/internal/calc"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/session"
	"github.com/cleared-dev/ledger/internal/store"
)

// TrialBalanceRow is one account in a trial balance. Exactly one of Debit and
// Credit is non-zero unless the account balance is zero.
type TrialBalanceRow struct {
	Account model.Account
	Debit   decimal.Decimal
	Credit  decimal.Decimal
}

// TrialBalance lists every account with a non-zero balance in debit/credit columns.
type TrialBalance struct {
	Rows         []TrialBalanceRow
	TotalDebits  decimal.Decimal
	TotalCredits decimal.Decimal
}

// Balanced reports whether the two columns agree within calc.BalanceTolerance.
func (tb TrialBalance) Balanced() bool {
	return calc.WithinTolerance(tb.TotalDebits, tb.TotalCredits, calc.BalanceTolerance)
}

// EquationCheck compares assets with liabilities plus equity. Current
// earnings (revenue less expenses not yet closed to retained earnings) are
// counted on the equity side.
type EquationCheck struct {
	Assets          decimal.Decimal
	Liabilities     decimal.Decimal
	Equity          decimal.Decimal
	CurrentEarnings decimal.Decimal
	Holds           bool
}

// ProfitAndLoss summarises revenue and costs.
type ProfitAndLoss struct {
	Revenue     decimal.Decimal
	COGS        decimal.Decimal
	Expenses    decimal.Decimal
	GrossProfit decimal.Decimal
	GrossMargin decimal.Decimal
	NetProfit   decimal.Decimal
	NetMargin   decimal.Decimal
}

// Reporter reads balances from a store.
type Reporter struct {
	store *store.Store
}

// New creates a Reporter.
func New(st *store.Store) *Reporter {
	return &Reporter{store: st}
}

func (r *Reporter) accounts(ctx context.Context, sess session.Session) ([]model.Account, error) {
	if err := session.Require(sess); err != nil {
		return nil, err
	}
	accts, err := r.store.Reader().ListAccounts(ctx, store.AccountFilter{TenantID: sess.TenantID})
	if err != nil {
		return nil, fmt.Errorf("loading accounts: %w", err)
	}
	return accts, nil
}

// TrialBalance builds the tenant's trial balance from stored balances.
func (r *Reporter) TrialBalance(ctx context.Context, sess session.Session) (TrialBalance, error) {
	accts, err := r.accounts(ctx, sess)
	if err != nil {
		return TrialBalance{}, err
	}
	return BuildTrialBalance(accts), nil
}

// BuildTrialBalance places each account's signed balance in the debit or
// credit column.
func BuildTrialBalance(accts []model.Account) TrialBalance {
	tb := TrialBalance{TotalDebits: decimal.Zero, TotalCredits: decimal.Zero}
	for _, a := range accts {
		signed := balance.SignedBalance(a)
		if signed.IsZero() {
			continue
		}
		row := TrialBalanceRow{Account: a, Debit: decimal.Zero, Credit: decimal.Zero}
		if signed.IsPositive() {
			row.Debit = signed
			tb.TotalDebits = tb.TotalDebits.Add(signed)
		} else {
			row.Credit = signed.Neg()
			tb.TotalCredits = tb.TotalCredits.Add(row.Credit)
		}
		tb.Rows = append(tb.Rows, row)
	}
	return tb
}

// Equation checks the accounting equation for the tenant.
func (r *Reporter) Equation(ctx context.Context, sess session.Session) (EquationCheck, error) {
	accts, err := r.accounts(ctx, sess)
	if err != nil {
		return EquationCheck{}, err
	}
	return CheckEquation(accts), nil
}

// CheckEquation sums normal-oriented balances per category.
func CheckEquation(accts []model.Account) EquationCheck {
	sums := totals(accts)
	eq := EquationCheck{
		Assets:          sums[model.CategoryAsset],
		Liabilities:     sums[model.CategoryLiability],
		Equity:          sums[model.CategoryEquity],
		CurrentEarnings: sums[model.CategoryRevenue].Sub(sums[model.CategoryExpense]).Sub(sums[model.CategoryCostOfGoodsSold]),
	}
	eq.Holds = calc.VerifyAccountingEquation(eq.Assets, eq.Liabilities, eq.Equity.Add(eq.CurrentEarnings))
	return eq
}

// ProfitAndLoss summarises the tenant's income statement.
func (r *Reporter) ProfitAndLoss(ctx context.Context, sess session.Session) (ProfitAndLoss, error) {
	accts, err := r.accounts(ctx, sess)
	if err != nil {
		return ProfitAndLoss{}, err
	}
	return BuildProfitAndLoss(accts), nil
}

// BuildProfitAndLoss splits expenses into cost of goods sold and the rest.
func BuildProfitAndLoss(accts []model.Account) ProfitAndLoss {
	revenue, cogs, expenses := decimal.Zero, decimal.Zero, decimal.Zero
	for _, a := range accts {
		switch {
		case a.Category() == model.CategoryRevenue:
			revenue = revenue.Add(a.Balance)
		case a.Type == model.AccountTypeCostOfGoodsSold:
			cogs = cogs.Add(a.Balance)
		case a.Category() == model.CategoryExpense:
			expenses = expenses.Add(a.Balance)
		}
	}
	return ProfitAndLoss{
		Revenue:     revenue,
		COGS:        cogs,
		Expenses:    expenses,
		GrossProfit: calc.GrossProfit(revenue, cogs),
		GrossMargin: calc.GrossMargin(revenue, cogs),
		NetProfit:   calc.NetProfit(revenue, cogs, expenses),
		NetMargin:   calc.NetMargin(revenue, cogs, expenses),
	}
}

// Drift is an account whose stored balance disagrees with its posted lines.
type Drift struct {
	Account  model.Account
	Expected decimal.Decimal
}

// Reconcile recomputes every balance from posted lines and returns the
// accounts whose stored balance differs.
func (r *Reporter) Reconcile(ctx context.Context, sess session.Session) ([]Drift, error) {
	accts, err := r.accounts(ctx, sess)
	if err != nil {
		return nil, err
	}
	sums, err := r.store.Reader().AccountTotals(ctx, sess.TenantID)
	if err != nil {
		return nil, fmt.Errorf("summing lines: %w", err)
	}
	var drift []Drift
	for _, a := range accts {
		t := sums[a.ID]
		want := calc.AccountBalanceFromCategory(a.Category(), t.Debits, t.Credits)
		if !calc.WithinTolerance(want, a.Balance, calc.BalanceTolerance) {
			drift = append(drift, Drift{Account: a, Expected: want})
		}
	}
	return drift, nil
}

func totals(accts []model.Account) map[model.Category]decimal.Decimal {
	sums := map[model.Category]decimal.Decimal{
		model.CategoryAsset:           decimal.Zero,
		model.CategoryLiability:       decimal.Zero,
		model.CategoryEquity:          decimal.Zero,
		model.CategoryRevenue:         decimal.Zero,
		model.CategoryExpense:         decimal.Zero,
		model.CategoryCostOfGoodsSold: decimal.Zero,
	}
	for _, a := range accts {
		sums[a.Category()] = sums[a.Category()].Add(a.Balance)
	}
	return sums
}
