package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType classifies accounts in the chart of accounts.
type AccountType string

const (
	AccountTypeCash               AccountType = "cash"
	AccountTypeBank               AccountType = "bank"
	AccountTypeAccountsReceivable AccountType = "accounts_receivable"
	AccountTypeInventory          AccountType = "inventory"
	AccountTypeFixedAsset         AccountType = "fixed_asset"
	AccountTypeAccountsPayable    AccountType = "accounts_payable"
	AccountTypeCreditCard         AccountType = "credit_card"
	AccountTypeLongTermLiability  AccountType = "long_term_liability"
	AccountTypeEquity             AccountType = "equity"
	AccountTypeRetainedEarnings   AccountType = "retained_earnings"
	AccountTypeRevenue            AccountType = "revenue"
	AccountTypeOtherIncome        AccountType = "other_income"
	AccountTypeExpense            AccountType = "expense"
	AccountTypeCostOfGoodsSold    AccountType = "cost_of_goods_sold"
)

// AccountTypes lists every account type in chart order.
var AccountTypes = []AccountType{
	AccountTypeCash,
	AccountTypeBank,
	AccountTypeAccountsReceivable,
	AccountTypeInventory,
	AccountTypeFixedAsset,
	AccountTypeAccountsPayable,
	AccountTypeCreditCard,
	AccountTypeLongTermLiability,
	AccountTypeEquity,
	AccountTypeRetainedEarnings,
	AccountTypeRevenue,
	AccountTypeOtherIncome,
	AccountTypeExpense,
	AccountTypeCostOfGoodsSold,
}

// ParseAccountType converts a stored value into an AccountType.
// Unknown values are an error; there is no fallback.
func ParseAccountType(s string) (AccountType, error) {
	for _, t := range AccountTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown account type %q", s)
}

// Category groups account types for normal-balance and code-prefix rules.
type Category string

const (
	CategoryAsset           Category = "asset"
	CategoryLiability       Category = "liability"
	CategoryEquity          Category = "equity"
	CategoryRevenue         Category = "revenue"
	CategoryExpense         Category = "expense"
	CategoryCostOfGoodsSold Category = "cost_of_goods_sold"
)

// Categories lists every category in code-prefix order.
var Categories = []Category{
	CategoryAsset,
	CategoryLiability,
	CategoryEquity,
	CategoryRevenue,
	CategoryExpense,
	CategoryCostOfGoodsSold,
}

// ParseCategory converts a stored or user-supplied value into a Category.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown account category %q", s)
}

// CategoryFor returns the category an account type belongs to.
func CategoryFor(t AccountType) Category {
	switch t {
	case AccountTypeCash, AccountTypeBank, AccountTypeAccountsReceivable, AccountTypeInventory, AccountTypeFixedAsset:
		return CategoryAsset
	case AccountTypeAccountsPayable, AccountTypeCreditCard, AccountTypeLongTermLiability:
		return CategoryLiability
	case AccountTypeEquity, AccountTypeRetainedEarnings:
		return CategoryEquity
	case AccountTypeRevenue, AccountTypeOtherIncome:
		return CategoryRevenue
	case AccountTypeExpense:
		return CategoryExpense
	case AccountTypeCostOfGoodsSold:
		return CategoryCostOfGoodsSold
	}
	panic(fmt.Sprintf("account type %q has no category", t))
}

// Prefix returns the single-digit code prefix for the category.
func (c Category) Prefix() string {
	switch c {
	case CategoryAsset:
		return "1"
	case CategoryLiability:
		return "2"
	case CategoryEquity:
		return "3"
	case CategoryRevenue:
		return "4"
	case CategoryExpense:
		return "5"
	case CategoryCostOfGoodsSold:
		return "6"
	}
	panic(fmt.Sprintf("category %q has no prefix", c))
}

// NormalBalance is the posting direction that increases an account.
type NormalBalance string

const (
	NormalDebit  NormalBalance = "debit"
	NormalCredit NormalBalance = "credit"
)

// NormalBalanceFor returns the normal balance side of a category.
func NormalBalanceFor(c Category) NormalBalance {
	switch c {
	case CategoryAsset, CategoryExpense, CategoryCostOfGoodsSold:
		return NormalDebit
	case CategoryLiability, CategoryEquity, CategoryRevenue:
		return NormalCredit
	}
	panic(fmt.Sprintf("category %q has no normal balance", c))
}

// ValidateAccountCode reports whether code carries the prefix of the type's category.
func ValidateAccountCode(code string, t AccountType) bool {
	if code == "" {
		return false
	}
	return strings.HasPrefix(code, CategoryFor(t).Prefix())
}

// SystemRole tags the accounts posting generators resolve by lookup.
type SystemRole string

const (
	RoleNone               SystemRole = ""
	RoleCash               SystemRole = "cash"
	RoleAccountsReceivable SystemRole = "accounts_receivable"
	RoleAccountsPayable    SystemRole = "accounts_payable"
	RoleOwnersEquity       SystemRole = "owners_equity"
	RoleRetainedEarnings   SystemRole = "retained_earnings"
	RoleSalesRevenue       SystemRole = "sales_revenue"
	RoleCostOfGoodsSold    SystemRole = "cost_of_goods_sold"
	RoleInventory          SystemRole = "inventory"
)

var systemRoles = []SystemRole{
	RoleCash,
	RoleAccountsReceivable,
	RoleAccountsPayable,
	RoleOwnersEquity,
	RoleRetainedEarnings,
	RoleSalesRevenue,
	RoleCostOfGoodsSold,
	RoleInventory,
}

// ParseSystemRole converts a stored value into a SystemRole. Empty means no role.
func ParseSystemRole(s string) (SystemRole, error) {
	if s == "" {
		return RoleNone, nil
	}
	for _, r := range systemRoles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown system role %q", s)
}

// Account represents one postable account in a tenant's chart.
type Account struct {
	ID          int64
	TenantID    string
	Code        string
	Name        string
	Description string
	Type        AccountType
	Role        SystemRole
	IsActive    bool
	Balance     decimal.Decimal // normal-oriented: positive when on its normal side
	ParentID    *int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Category returns the account's category.
func (a Account) Category() Category {
	return CategoryFor(a.Type)
}

// NormalBalance returns the account's normal balance side.
func (a Account) NormalBalance() NormalBalance {
	return NormalBalanceFor(a.Category())
}
