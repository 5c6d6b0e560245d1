package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledger/internal/errs"
	"github.com/cleared-dev/ledger/internal/model"
)

var accountColumns = []string{
	"id", "tenant_id", "code", "name", "description", "account_type", "system_role",
	"is_active", "balance", "parent_id", "created_at", "updated_at",
}

// AccountFilter narrows ListAccounts.
type AccountFilter struct {
	TenantID   string
	Types      []model.AccountType
	ActiveOnly bool
}

// InsertAccount stores a new account and returns its id.
func (r *Repo) InsertAccount(ctx context.Context, a model.Account) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := r.exec(ctx, psql.Insert("accounts").
		Columns("tenant_id", "code", "name", "description", "account_type", "system_role",
			"is_active", "balance", "parent_id", "created_at", "updated_at").
		Values(a.TenantID, a.Code, a.Name, a.Description, string(a.Type), nullString(string(a.Role)),
			a.IsActive, a.Balance.String(), nullInt64(a.ParentID), now, now))
	if err != nil {
		return 0, fmt.Errorf("inserting account %s: %w", a.Code, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading account id: %w", err)
	}
	return id, nil
}

// GetAccount returns an account of the tenant by id.
func (r *Repo) GetAccount(ctx context.Context, tenantID string, id int64) (model.Account, error) {
	return r.getAccount(ctx, sq.Eq{"tenant_id": tenantID, "id": id}, id)
}

// GetAccountByCode returns an account of the tenant by code.
func (r *Repo) GetAccountByCode(ctx context.Context, tenantID, code string) (model.Account, error) {
	return r.getAccount(ctx, sq.Eq{"tenant_id": tenantID, "code": code}, code)
}

// GetAccountByRole returns the tenant's account holding a system role.
func (r *Repo) GetAccountByRole(ctx context.Context, tenantID string, role model.SystemRole) (model.Account, error) {
	return r.getAccount(ctx, sq.Eq{"tenant_id": tenantID, "system_role": string(role)}, "with role "+string(role))
}

func (r *Repo) getAccount(ctx context.Context, where sq.Eq, key any) (model.Account, error) {
	row, err := r.queryRow(ctx, psql.Select(accountColumns...).From("accounts").Where(where))
	if err != nil {
		return model.Account{}, err
	}
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, errs.NotFound("account", key)
	}
	return a, err
}

// ListAccounts returns accounts ordered by code.
func (r *Repo) ListAccounts(ctx context.Context, f AccountFilter) ([]model.Account, error) {
	b := psql.Select(accountColumns...).From("accounts").
		Where(sq.Eq{"tenant_id": f.TenantID}).
		OrderBy("code")
	if len(f.Types) > 0 {
		types := make([]string, len(f.Types))
		for i, t := range f.Types {
			types[i] = string(t)
		}
		b = b.Where(sq.Eq{"account_type": types})
	}
	if f.ActiveOnly {
		b = b.Where(sq.Eq{"is_active": true})
	}

	rows, err := r.query(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// UpdateAccountMetadata writes name, description and active flag.
func (r *Repo) UpdateAccountMetadata(ctx context.Context, a model.Account) error {
	res, err := r.exec(ctx, psql.Update("accounts").
		Set("name", a.Name).
		Set("description", a.Description).
		Set("is_active", a.IsActive).
		Set("updated_at", time.Now().UTC().Format(time.RFC3339Nano)).
		Where(sq.Eq{"tenant_id": a.TenantID, "id": a.ID}))
	if err != nil {
		return fmt.Errorf("updating account %d: %w", a.ID, err)
	}
	return requireAffected(res, "account", a.ID)
}

// SetAccountBalance writes a new running balance. Only the journal engine calls it.
func (r *Repo) SetAccountBalance(ctx context.Context, id int64, bal decimal.Decimal) error {
	res, err := r.exec(ctx, psql.Update("accounts").
		Set("balance", bal.String()).
		Set("updated_at", time.Now().UTC().Format(time.RFC3339Nano)).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("updating balance of account %d: %w", id, err)
	}
	return requireAffected(res, "account", id)
}

// DeleteAccount removes an account row.
func (r *Repo) DeleteAccount(ctx context.Context, tenantID string, id int64) error {
	res, err := r.exec(ctx, psql.Delete("accounts").Where(sq.Eq{"tenant_id": tenantID, "id": id}))
	if err != nil {
		return fmt.Errorf("deleting account %d: %w", id, err)
	}
	return requireAffected(res, "account", id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(s rowScanner) (model.Account, error) {
	var (
		a                model.Account
		typ, bal         string
		role             sql.NullString
		parent           sql.NullInt64
		created, updated string
	)
	err := s.Scan(&a.ID, &a.TenantID, &a.Code, &a.Name, &a.Description, &typ, &role,
		&a.IsActive, &bal, &parent, &created, &updated)
	if err != nil {
		return model.Account{}, err
	}

	if a.Type, err = model.ParseAccountType(typ); err != nil {
		return model.Account{}, fmt.Errorf("account %d: %w", a.ID, err)
	}
	if a.Role, err = model.ParseSystemRole(role.String); err != nil {
		return model.Account{}, fmt.Errorf("account %d: %w", a.ID, err)
	}
	if a.Balance, err = decimal.NewFromString(bal); err != nil {
		return model.Account{}, fmt.Errorf("account %d: parsing balance %q: %w", a.ID, bal, err)
	}
	if a.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return model.Account{}, fmt.Errorf("account %d: parsing created_at: %w", a.ID, err)
	}
	if a.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return model.Account{}, fmt.Errorf("account %d: parsing updated_at: %w", a.ID, err)
	}
	a.ParentID = ptrInt64(parent)
	return a, nil
}
