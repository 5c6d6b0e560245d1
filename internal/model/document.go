package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentDirection distinguishes money received from money paid out.
type PaymentDirection string

const (
	PaymentIncoming PaymentDirection = "incoming"
	PaymentOutgoing PaymentDirection = "outgoing"
)

// ParsePaymentDirection converts a stored value into a PaymentDirection.
func ParsePaymentDirection(s string) (PaymentDirection, error) {
	switch PaymentDirection(s) {
	case PaymentIncoming, PaymentOutgoing:
		return PaymentDirection(s), nil
	}
	return "", fmt.Errorf("unknown payment direction %q", s)
}

// Payment is a persisted incoming or outgoing payment record.
type Payment struct {
	ID            string
	TenantID      string
	Direction     PaymentDirection
	PartnerID     string
	CashAccountID int64
	Amount        decimal.Decimal
	Date          time.Time
	Reference     string
	EntryID       int64
}

// Sale is a customer invoice.
type Sale struct {
	ID               string
	TenantID         string
	PartnerID        string
	Number           string
	Date             time.Time
	Amount           decimal.Decimal
	Cost             decimal.Decimal // zero when no goods leave inventory
	RevenueAccountID *int64
	EntryID          int64
}

// Purchase is a vendor bill.
type Purchase struct {
	ID             string
	TenantID       string
	PartnerID      string
	Number         string
	Date           time.Time
	Amount         decimal.Decimal
	DebitAccountID *int64 // defaults to the inventory role account
	EntryID        int64
}

// ValuationClass maps stock items to the inventory account that carries them.
type ValuationClass struct {
	ID                 string
	TenantID           string
	Name               string
	InventoryAccountID int64
}

// InventoryItem is a stock item with an opening quantity and unit cost.
type InventoryItem struct {
	ID               string
	TenantID         string
	Name             string
	ValuationClassID string
	Quantity         decimal.Decimal
	PurchasePrice    decimal.Decimal
	EntryID          *int64
}

// Value returns purchase price times quantity.
func (i InventoryItem) Value() decimal.Decimal {
	return i.PurchasePrice.Mul(i.Quantity)
}
