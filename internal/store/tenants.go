package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/cleared-dev/ledger/internal/errs"
	"github.com/cleared-dev/ledger/internal/model"
)

// InsertTenant creates a tenant row.
func (r *Repo) InsertTenant(ctx context.Context, t model.Tenant) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := r.exec(ctx, psql.Insert("tenants").
		Columns("id", "company_code", "name", "currency", "created_at").
		Values(t.ID, t.CompanyCode, t.Name, t.Currency, t.CreatedAt.Format(time.RFC3339Nano)))
	if err != nil {
		return fmt.Errorf("inserting tenant %s: %w", t.CompanyCode, err)
	}
	return nil
}

// GetTenantByCompanyCode looks a tenant up by its company code.
func (r *Repo) GetTenantByCompanyCode(ctx context.Context, code string) (model.Tenant, error) {
	row, err := r.queryRow(ctx, psql.Select("id", "company_code", "name", "currency", "created_at").
		From("tenants").
		Where(sq.Eq{"company_code": code}))
	if err != nil {
		return model.Tenant{}, err
	}

	var t model.Tenant
	var created string
	if err := row.Scan(&t.ID, &t.CompanyCode, &t.Name, &t.Currency, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Tenant{}, errs.NotFound("tenant", code)
		}
		return model.Tenant{}, fmt.Errorf("reading tenant %s: %w", code, err)
	}
	if t.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return model.Tenant{}, fmt.Errorf("parsing tenant created_at %q: %w", created, err)
	}
	return t, nil
}

// DeleteTenant removes a tenant and, by cascade, every row it owns.
func (r *Repo) DeleteTenant(ctx context.Context, id string) error {
	res, err := r.exec(ctx, psql.Delete("tenants").Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("deleting tenant %s: %w", id, err)
	}
	return requireAffected(res, "tenant", id)
}

func requireAffected(res sql.Result, what string, key any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if n == 0 {
		return errs.NotFound(what, key)
	}
	return nil
}
