// Package tenant creates the company a set of books belongs to and opens
// sessions against it.
package tenant

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/cleared-dev/ledger/internal/errs"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/session"
	"github.com/cleared-dev/ledger/internal/store"
)

// Create registers a new tenant and returns a session for it.
func Create(ctx context.Context, st *store.Store, companyCode, name, currency string) (session.Session, error) {
	companyCode = strings.TrimSpace(companyCode)
	if companyCode == "" {
		return session.Session{}, errs.MissingField("company_code")
	}
	if name == "" {
		return session.Session{}, errs.MissingField("name")
	}
	if currency == "" {
		currency = "USD"
	}

	t := model.Tenant{ID: uuid.NewString(), CompanyCode: companyCode, Name: name, Currency: currency}
	err := st.Atomic(ctx, func(ctx context.Context, r *store.Repo) error {
		return r.InsertTenant(ctx, t)
	})
	if err != nil {
		return session.Session{}, fmt.Errorf("creating tenant: %w", err)
	}
	return For(t, ""), nil
}

// Open returns a session for an existing tenant acting as userID.
func Open(ctx context.Context, st *store.Store, companyCode, userID string) (session.Session, error) {
	t, err := st.Reader().GetTenantByCompanyCode(ctx, companyCode)
	if err != nil {
		return session.Session{}, err
	}
	return For(t, userID), nil
}

// For builds the session of a tenant.
func For(t model.Tenant, userID string) session.Session {
	return session.Session{
		TenantID:    t.ID,
		CompanyCode: t.CompanyCode,
		UserID:      userID,
		Currency:    t.Currency,
	}
}
