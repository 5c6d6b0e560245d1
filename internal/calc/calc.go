// Package calc holds stateless accounting arithmetic shared by the engine and reporting.
package calc

import (
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledger/internal/model"
)

var (
	// BalanceTolerance is the largest debit/credit difference the journal engine accepts.
	BalanceTolerance = decimal.New(1, -9)
	// EquationTolerance is the advisory tolerance for the balance-sheet equation check.
	EquationTolerance = decimal.New(1, -2)
)

// TotalDebits sums the debit line amounts.
func TotalDebits(lines []model.LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		if l.EntryType == model.Debit {
			total = total.Add(l.Amount)
		}
	}
	return total
}

// TotalCredits sums the credit line amounts.
func TotalCredits(lines []model.LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		if l.EntryType == model.Credit {
			total = total.Add(l.Amount)
		}
	}
	return total
}

// IsBalanced reports whether debits equal credits within BalanceTolerance.
func IsBalanced(lines []model.LineItem) bool {
	return WithinTolerance(TotalDebits(lines), TotalCredits(lines), BalanceTolerance)
}

// WithinTolerance reports whether |a-b| < tol.
func WithinTolerance(a, b, tol decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(tol)
}

// AccountBalanceFromCategory derives a normal-oriented balance from debit and credit totals.
func AccountBalanceFromCategory(c model.Category, debits, credits decimal.Decimal) decimal.Decimal {
	if model.NormalBalanceFor(c) == model.NormalDebit {
		return debits.Sub(credits)
	}
	return credits.Sub(debits)
}

// GrossProfit is revenue minus cost of goods sold.
func GrossProfit(revenue, cogs decimal.Decimal) decimal.Decimal {
	return revenue.Sub(cogs)
}

// GrossMargin is gross profit as a percentage of revenue; zero revenue yields 0.
func GrossMargin(revenue, cogs decimal.Decimal) decimal.Decimal {
	if revenue.IsZero() {
		return decimal.Zero
	}
	return GrossProfit(revenue, cogs).Div(revenue).Mul(decimal.NewFromInt(100))
}

// NetProfit is revenue minus cost of goods sold and expenses.
func NetProfit(revenue, cogs, expenses decimal.Decimal) decimal.Decimal {
	return revenue.Sub(cogs).Sub(expenses)
}

// NetMargin is net profit as a percentage of revenue; zero revenue yields 0.
func NetMargin(revenue, cogs, expenses decimal.Decimal) decimal.Decimal {
	if revenue.IsZero() {
		return decimal.Zero
	}
	return NetProfit(revenue, cogs, expenses).Div(revenue).Mul(decimal.NewFromInt(100))
}

// VerifyAccountingEquation checks assets == liabilities + equity within EquationTolerance.
// It is a reporting check, not a write gate.
func VerifyAccountingEquation(assets, liabilities, equity decimal.Decimal) bool {
	return WithinTolerance(assets, liabilities.Add(equity), EquationTolerance)
}
