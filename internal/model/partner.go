package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PartnerType says whether a business partner buys, sells, or both.
type PartnerType string

const (
	PartnerCustomer PartnerType = "customer"
	PartnerVendor   PartnerType = "vendor"
	PartnerBoth     PartnerType = "both"
)

// ParsePartnerType converts a stored value into a PartnerType.
func ParsePartnerType(s string) (PartnerType, error) {
	switch PartnerType(s) {
	case PartnerCustomer, PartnerVendor, PartnerBoth:
		return PartnerType(s), nil
	}
	return "", fmt.Errorf("unknown partner type %q", s)
}

// BusinessPartner is a customer or vendor with a running open balance.
// For customers Balance is what they owe us; for vendors it is what we owe them.
// A partner of type both carries the net of the two: positive means they owe us.
type BusinessPartner struct {
	ID                      string
	TenantID                string
	Name                    string
	Type                    PartnerType
	Balance                 decimal.Decimal
	ReconciliationAccountID *int64
	CreatedAt               time.Time
}

// Tenant is the company a set of books belongs to.
type Tenant struct {
	ID          string
	CompanyCode string
	Name        string
	Currency    string
	CreatedAt   time.Time
}
