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

var partnerColumns = []string{
	"id", "tenant_id", "name", "partner_type", "balance", "reconciliation_account_id", "created_at",
}

// InsertPartner stores a business partner.
func (r *Repo) InsertPartner(ctx context.Context, p model.BusinessPartner) error {
	created := p.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.exec(ctx, psql.Insert("business_partners").
		Columns(partnerColumns...).
		Values(p.ID, p.TenantID, p.Name, string(p.Type), p.Balance.String(),
			nullInt64(p.ReconciliationAccountID), created.Format(time.RFC3339Nano)))
	if err != nil {
		return fmt.Errorf("inserting partner %s: %w", p.Name, err)
	}
	return nil
}

// GetPartner returns a partner of the tenant.
func (r *Repo) GetPartner(ctx context.Context, tenantID, id string) (model.BusinessPartner, error) {
	row, err := r.queryRow(ctx, psql.Select(partnerColumns...).From("business_partners").
		Where(sq.Eq{"tenant_id": tenantID, "id": id}))
	if err != nil {
		return model.BusinessPartner{}, err
	}
	p, err := scanPartner(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.BusinessPartner{}, errs.NotFound("business partner", id)
	}
	return p, err
}

// ListPartners returns the tenant's partners ordered by name.
func (r *Repo) ListPartners(ctx context.Context, tenantID string) ([]model.BusinessPartner, error) {
	rows, err := r.query(ctx, psql.Select(partnerColumns...).From("business_partners").
		Where(sq.Eq{"tenant_id": tenantID}).
		OrderBy("name"))
	if err != nil {
		return nil, fmt.Errorf("listing partners: %w", err)
	}
	defer rows.Close()

	var partners []model.BusinessPartner
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, err
		}
		partners = append(partners, p)
	}
	return partners, rows.Err()
}

// SetPartnerBalance writes a partner's open balance.
func (r *Repo) SetPartnerBalance(ctx context.Context, id string, bal decimal.Decimal) error {
	res, err := r.exec(ctx, psql.Update("business_partners").
		Set("balance", bal.String()).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("updating balance of partner %s: %w", id, err)
	}
	return requireAffected(res, "business partner", id)
}

func scanPartner(s rowScanner) (model.BusinessPartner, error) {
	var (
		p                 model.BusinessPartner
		typ, bal, created string
		recon             sql.NullInt64
	)
	if err := s.Scan(&p.ID, &p.TenantID, &p.Name, &typ, &bal, &recon, &created); err != nil {
		return model.BusinessPartner{}, err
	}

	var err error
	if p.Type, err = model.ParsePartnerType(typ); err != nil {
		return model.BusinessPartner{}, fmt.Errorf("partner %s: %w", p.ID, err)
	}
	if p.Balance, err = decimal.NewFromString(bal); err != nil {
		return model.BusinessPartner{}, fmt.Errorf("partner %s: parsing balance %q: %w", p.ID, bal, err)
	}
	if p.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return model.BusinessPartner{}, fmt.Errorf("partner %s: parsing created_at: %w", p.ID, err)
	}
	p.ReconciliationAccountID = ptrInt64(recon)
	return p, nil
}
