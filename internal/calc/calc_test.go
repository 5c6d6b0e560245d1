package calc

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/cleared-dev/ledger/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestTotalsAndBalance(t *testing.T) {
	lines := []model.LineItem{
		model.DebitLine(1, dec("60.00"), ""),
		model.DebitLine(2, dec("40.00"), ""),
		model.CreditLine(3, dec("100.00"), ""),
	}
	assert.True(t, TotalDebits(lines).Equal(dec("100")))
	assert.True(t, TotalCredits(lines).Equal(dec("100")))
	assert.True(t, IsBalanced(lines))

	lines[2].Amount = dec("99.99")
	assert.False(t, IsBalanced(lines))
}

func TestIsBalanced_Tolerance(t *testing.T) {
	within := []model.LineItem{
		model.DebitLine(1, dec("10.0000000001"), ""),
		model.CreditLine(2, dec("10"), ""),
	}
	assert.True(t, IsBalanced(within), "1e-10 difference is inside tolerance")

	outside := []model.LineItem{
		model.DebitLine(1, dec("10.000000001"), ""),
		model.CreditLine(2, dec("10"), ""),
	}
	assert.False(t, IsBalanced(outside), "1e-9 difference is not strictly inside tolerance")
}

func TestAccountBalanceFromCategory(t *testing.T) {
	debits, credits := dec("300"), dec("120")
	for _, c := range model.Categories {
		got := AccountBalanceFromCategory(c, debits, credits)
		if model.NormalBalanceFor(c) == model.NormalDebit {
			assert.True(t, got.Equal(dec("180")), "%s: got %s", c, got)
		} else {
			assert.True(t, got.Equal(dec("-180")), "%s: got %s", c, got)
		}
	}
}

func TestProfitAndMargins(t *testing.T) {
	assert.True(t, GrossProfit(dec("1000"), dec("400")).Equal(dec("600")))
	assert.True(t, GrossMargin(dec("1000"), dec("400")).Equal(dec("60")))
	assert.True(t, NetProfit(dec("1000"), dec("400"), dec("350")).Equal(dec("250")))
	assert.True(t, NetMargin(dec("1000"), dec("400"), dec("350")).Equal(dec("25")))

	assert.True(t, GrossMargin(decimal.Zero, dec("50")).IsZero())
	assert.True(t, NetMargin(decimal.Zero, dec("50"), dec("10")).IsZero())
}

func TestVerifyAccountingEquation(t *testing.T) {
	assert.True(t, VerifyAccountingEquation(dec("1000"), dec("400"), dec("600")))
	assert.True(t, VerifyAccountingEquation(dec("1000.005"), dec("400"), dec("600")))
	assert.False(t, VerifyAccountingEquation(dec("1000.02"), dec("400"), dec("600")))
}
