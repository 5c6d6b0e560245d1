package accounts

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cleared-dev/ledger/internal/model"
)

// DefaultChart returns the seed chart of accounts for a new tenant: one level
// deep, zero balances, system roles set on the accounts postings resolve.
func DefaultChart(tenantID string) []model.Account {
	chart := []model.Account{
		{Code: "1000", Name: "Cash", Type: model.AccountTypeCash, Role: model.RoleCash, Description: "Cash on hand and in bank"},
		{Code: "1100", Name: "Accounts Receivable", Type: model.AccountTypeAccountsReceivable, Role: model.RoleAccountsReceivable},
		{Code: "1200", Name: "Inventory", Type: model.AccountTypeInventory, Role: model.RoleInventory},
		{Code: "1500", Name: "Fixed Assets", Type: model.AccountTypeFixedAsset},
		{Code: "2000", Name: "Accounts Payable", Type: model.AccountTypeAccountsPayable, Role: model.RoleAccountsPayable},
		{Code: "2500", Name: "Loans Payable", Type: model.AccountTypeLongTermLiability},
		{Code: "3000", Name: "Owner's Capital", Type: model.AccountTypeEquity, Role: model.RoleOwnersEquity},
		{Code: "3100", Name: "Retained Earnings", Type: model.AccountTypeRetainedEarnings, Role: model.RoleRetainedEarnings},
		{Code: "4000", Name: "Sales Revenue", Type: model.AccountTypeRevenue, Role: model.RoleSalesRevenue},
		{Code: "4100", Name: "Service Revenue", Type: model.AccountTypeRevenue},
		{Code: "5000", Name: "Rent Expense", Type: model.AccountTypeExpense},
		{Code: "5100", Name: "Salaries Expense", Type: model.AccountTypeExpense},
		{Code: "5200", Name: "Utilities Expense", Type: model.AccountTypeExpense},
		{Code: "5300", Name: "Office Supplies", Type: model.AccountTypeExpense},
		{Code: "6000", Name: "Cost of Goods Sold", Type: model.AccountTypeCostOfGoodsSold, Role: model.RoleCostOfGoodsSold},
	}
	for i := range chart {
		chart[i].TenantID = tenantID
		chart[i].IsActive = true
	}
	return chart
}

// SuggestCode proposes the next code for a category: the highest numeric code
// already in the category plus one, or prefix+"001" when the category is empty.
// Codes outside the category or not numeric are ignored. When the increment
// would leave the category's prefix, the first free code in prefix+"001" to
// prefix+"999" is used instead; "" means that range is full.
func SuggestCode(existing []model.Account, cat model.Category) string {
	prefix := cat.Prefix()
	used := make(map[string]bool, len(existing))
	highest := -1
	for _, a := range existing {
		if !strings.HasPrefix(a.Code, prefix) {
			continue
		}
		used[a.Code] = true
		n, err := strconv.Atoi(a.Code)
		if err != nil || n < 0 {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	if highest < 0 {
		return prefix + "001"
	}
	if next := strconv.Itoa(highest + 1); strings.HasPrefix(next, prefix) {
		return next
	}
	for n := 1; n <= 999; n++ {
		code := fmt.Sprintf("%s%03d", prefix, n)
		if !used[code] {
			return code
		}
	}
	return ""
}
