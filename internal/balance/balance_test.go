package balance

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/cleared-dev/ledger/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestApplyPosting_AllCategories(t *testing.T) {
	start := dec("1000")
	amount := dec("250")

	tests := []struct {
		category model.Category
		isDebit  bool
		want     string
	}{
		{model.CategoryAsset, true, "1250"},
		{model.CategoryAsset, false, "750"},
		{model.CategoryLiability, true, "750"},
		{model.CategoryLiability, false, "1250"},
		{model.CategoryEquity, true, "750"},
		{model.CategoryEquity, false, "1250"},
		{model.CategoryRevenue, true, "750"},
		{model.CategoryRevenue, false, "1250"},
		{model.CategoryExpense, true, "1250"},
		{model.CategoryExpense, false, "750"},
		{model.CategoryCostOfGoodsSold, true, "1250"},
		{model.CategoryCostOfGoodsSold, false, "750"},
	}
	for _, tt := range tests {
		got := ApplyPosting(start, tt.category, amount, tt.isDebit)
		assert.True(t, got.Equal(dec(tt.want)), "%s debit=%v: got %s want %s", tt.category, tt.isDebit, got, tt.want)
	}
}

func TestApplyPosting_DebitAndCreditAreMirrored(t *testing.T) {
	start := dec("42.17")
	amount := dec("9.99")
	for _, c := range model.Categories {
		debitDelta := ApplyPosting(start, c, amount, true).Sub(start)
		creditDelta := ApplyPosting(start, c, amount, false).Sub(start)
		assert.True(t, debitDelta.Equal(creditDelta.Neg()), "%s: debit delta %s, credit delta %s", c, debitDelta, creditDelta)
	}
}

func TestPostUnpost_RoundTrip(t *testing.T) {
	acct := model.Account{Type: model.AccountTypeAccountsPayable, Balance: dec("100")}
	line := model.CreditLine(1, dec("40"), "")

	posted := Post(acct, line)
	assert.True(t, posted.Balance.Equal(dec("140")))

	back := Unpost(posted, line)
	assert.True(t, back.Balance.Equal(dec("100")))
}

func TestDisplayAndSignedBalance(t *testing.T) {
	cash := model.Account{Type: model.AccountTypeCash, Balance: dec("500")}
	loan := model.Account{Type: model.AccountTypeLongTermLiability, Balance: dec("300")}

	assert.True(t, DisplayBalance(cash).Equal(dec("500")))
	assert.True(t, DisplayBalance(loan).Equal(dec("300")))

	assert.True(t, SignedBalance(cash).Equal(dec("500")))
	assert.True(t, SignedBalance(loan).Equal(dec("-300")))
}

func TestCanDelete(t *testing.T) {
	assert.True(t, CanDelete(decimal.Zero))
	assert.True(t, CanDelete(dec("0.0049")))
	assert.True(t, CanDelete(dec("-0.0049")))
	assert.False(t, CanDelete(dec("0.02")))
	assert.False(t, CanDelete(dec("-0.02")))
}
