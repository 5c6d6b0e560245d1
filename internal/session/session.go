// Package session carries the tenant and user a ledger call acts for.
package session

import "github.com/cleared-dev/ledger/internal/errs"

// Session identifies the tenant whose books an operation touches and the user performing it.
type Session struct {
	TenantID    string
	CompanyCode string
	UserID      string
	Currency    string
}

// Require returns ErrAuthenticationRequired unless the session names a tenant.
func Require(s Session) error {
	if s.TenantID == "" {
		return errs.ErrAuthenticationRequired
	}
	return nil
}
