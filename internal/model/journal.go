package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EntryType is the side of a line item.
type EntryType string

const (
	Debit  EntryType = "debit"
	Credit EntryType = "credit"
)

// ParseEntryType converts a stored value into an EntryType.
func ParseEntryType(s string) (EntryType, error) {
	switch EntryType(s) {
	case Debit, Credit:
		return EntryType(s), nil
	}
	return "", fmt.Errorf("unknown entry type %q", s)
}

// Opposite returns the other side.
func (t EntryType) Opposite() EntryType {
	if t == Debit {
		return Credit
	}
	return Debit
}

// TransactionType tags the business origin of an entry and prefixes its number.
type TransactionType string

const (
	TypeJournal TransactionType = "JE"
	TypeBill    TransactionType = "BILL"
	TypePayment TransactionType = "PAY"
	TypeInvoice TransactionType = "INV"
	TypeReceipt TransactionType = "REC"
	TypeSpecial TransactionType = "SP"
)

// ParseTransactionType converts a stored value into a TransactionType.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(s) {
	case TypeJournal, TypeBill, TypePayment, TypeInvoice, TypeReceipt, TypeSpecial:
		return TransactionType(s), nil
	}
	return "", fmt.Errorf("unknown transaction type %q", s)
}

// OpenItemStatus is the clearing state of a receivable/payable line.
type OpenItemStatus string

const (
	OpenItemNone     OpenItemStatus = ""
	OpenItemOpen     OpenItemStatus = "open"
	OpenItemCleared  OpenItemStatus = "cleared"
	OpenItemRevalued OpenItemStatus = "revalued"
)

// ParseOpenItemStatus converts a stored value into an OpenItemStatus.
func ParseOpenItemStatus(s string) (OpenItemStatus, error) {
	switch OpenItemStatus(s) {
	case OpenItemNone, OpenItemOpen, OpenItemCleared, OpenItemRevalued:
		return OpenItemStatus(s), nil
	}
	return "", fmt.Errorf("unknown open item status %q", s)
}

// JournalEntry is a dated, balanced set of line items.
type JournalEntry struct {
	ID           int64
	TenantID     string
	Number       string // "JE-0001"
	Type         TransactionType
	Date         time.Time
	Description  string
	CreatedBy    string
	Currency     string
	ExchangeRate decimal.Decimal
	Posted       bool
	ReversesID   *int64
	CreatedAt    time.Time
	Lines        []LineItem
}

// LineItem is one debit or credit posting against one account.
type LineItem struct {
	ID             int64
	EntryID        int64
	Number         int
	AccountID      int64
	EntryType      EntryType
	Amount         decimal.Decimal
	Memo           string
	CostCenter     string
	ProfitCenter   string
	BusinessArea   string
	PartnerID      string
	ClearsLineID   *int64
	OpenItemStatus OpenItemStatus
}

// IsDebit reports whether the line is on the debit side.
func (l LineItem) IsDebit() bool {
	return l.EntryType == Debit
}

// DebitLine builds a debit line item.
func DebitLine(accountID int64, amount decimal.Decimal, memo string) LineItem {
	return LineItem{AccountID: accountID, EntryType: Debit, Amount: amount, Memo: memo}
}

// CreditLine builds a credit line item.
func CreditLine(accountID int64, amount decimal.Decimal, memo string) LineItem {
	return LineItem{AccountID: accountID, EntryType: Credit, Amount: amount, Memo: memo}
}
