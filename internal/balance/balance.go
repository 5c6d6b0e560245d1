// Package balance applies postings to account balances.
//
// Balances are stored normal-oriented: an asset with a debit balance and a
// liability with a credit balance are both positive. Every posting in the
// ledger goes through ApplyPosting.
package balance

import (
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledger/internal/model"
)

// DeletionTolerance is the largest absolute balance an account may carry and still be deleted.
var DeletionTolerance = decimal.New(5, -3)

// ApplyPosting returns the balance after posting amount to an account of category c.
func ApplyPosting(current decimal.Decimal, c model.Category, amount decimal.Decimal, isDebit bool) decimal.Decimal {
	increases := isDebit
	if model.NormalBalanceFor(c) == model.NormalCredit {
		increases = !isDebit
	}
	if increases {
		return current.Add(amount)
	}
	return current.Sub(amount)
}

// Post applies one line item to an account and returns the updated account.
func Post(acct model.Account, line model.LineItem) model.Account {
	acct.Balance = ApplyPosting(acct.Balance, acct.Category(), line.Amount, line.IsDebit())
	return acct
}

// Unpost removes the effect of a previously posted line item.
func Unpost(acct model.Account, line model.LineItem) model.Account {
	acct.Balance = ApplyPosting(acct.Balance, acct.Category(), line.Amount, !line.IsDebit())
	return acct
}

// DisplayBalance is the value shown to a user. Because storage is
// normal-oriented it is the stored balance unchanged.
func DisplayBalance(acct model.Account) decimal.Decimal {
	return acct.Balance
}

// SignedBalance returns the balance in debit-positive convention,
// the form a trial balance sums.
func SignedBalance(acct model.Account) decimal.Decimal {
	if acct.NormalBalance() == model.NormalDebit {
		return acct.Balance
	}
	return acct.Balance.Neg()
}

// CanDelete reports whether a balance is close enough to zero for the account to be removed.
func CanDelete(b decimal.Decimal) bool {
	return b.Abs().LessThan(DeletionTolerance)
}
