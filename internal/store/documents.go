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

// CountDocumentsFor counts the payments, sales, purchases and inventory items
// posted by an entry.
func (r *Repo) CountDocumentsFor(ctx context.Context, entryID int64) (int, error) {
	total := 0
	for _, table := range []string{"payments", "sales", "purchases", "inventory_items"} {
		n, err := r.count(ctx, psql.Select("COUNT(*)").From(table).Where(sq.Eq{"entry_id": entryID}))
		if err != nil {
			return 0, fmt.Errorf("counting %s of entry %d: %w", table, entryID, err)
		}
		total += n
	}
	return total, nil
}

// InsertPayment stores a payment document.
func (r *Repo) InsertPayment(ctx context.Context, p model.Payment) error {
	_, err := r.exec(ctx, psql.Insert("payments").
		Columns("id", "tenant_id", "direction", "partner_id", "cash_account_id", "amount",
			"payment_date", "reference", "entry_id").
		Values(p.ID, p.TenantID, string(p.Direction), nullString(p.PartnerID), p.CashAccountID,
			p.Amount.String(), p.Date.Format(dateFormat), p.Reference, p.EntryID))
	if err != nil {
		return fmt.Errorf("inserting payment %s: %w", p.ID, err)
	}
	return nil
}

// ListPayments returns the tenant's payments, oldest first.
func (r *Repo) ListPayments(ctx context.Context, tenantID string) ([]model.Payment, error) {
	rows, err := r.query(ctx, psql.Select("id", "tenant_id", "direction", "partner_id", "cash_account_id",
		"amount", "payment_date", "reference", "entry_id").
		From("payments").
		Where(sq.Eq{"tenant_id": tenantID}).
		OrderBy("payment_date", "id"))
	if err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}
	defer rows.Close()

	var payments []model.Payment
	for rows.Next() {
		var (
			p                 model.Payment
			dir, amount, date string
			partner           sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.TenantID, &dir, &partner, &p.CashAccountID,
			&amount, &date, &p.Reference, &p.EntryID); err != nil {
			return nil, err
		}
		if p.Direction, err = model.ParsePaymentDirection(dir); err != nil {
			return nil, fmt.Errorf("payment %s: %w", p.ID, err)
		}
		if p.Amount, p.Date, err = amountAndDate(amount, date); err != nil {
			return nil, fmt.Errorf("payment %s: %w", p.ID, err)
		}
		p.PartnerID = partner.String
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// InsertSale stores a sale document.
func (r *Repo) InsertSale(ctx context.Context, s model.Sale) error {
	_, err := r.exec(ctx, psql.Insert("sales").
		Columns("id", "tenant_id", "partner_id", "number", "sale_date", "amount", "cost", "entry_id").
		Values(s.ID, s.TenantID, s.PartnerID, s.Number, s.Date.Format(dateFormat),
			s.Amount.String(), s.Cost.String(), s.EntryID))
	if err != nil {
		return fmt.Errorf("inserting sale %s: %w", s.Number, err)
	}
	return nil
}

// ListSales returns the tenant's sales, oldest first.
func (r *Repo) ListSales(ctx context.Context, tenantID string) ([]model.Sale, error) {
	rows, err := r.query(ctx, psql.Select("id", "tenant_id", "partner_id", "number", "sale_date",
		"amount", "cost", "entry_id").
		From("sales").
		Where(sq.Eq{"tenant_id": tenantID}).
		OrderBy("sale_date", "number"))
	if err != nil {
		return nil, fmt.Errorf("listing sales: %w", err)
	}
	defer rows.Close()

	var sales []model.Sale
	for rows.Next() {
		var s model.Sale
		var amount, cost, date string
		if err := rows.Scan(&s.ID, &s.TenantID, &s.PartnerID, &s.Number, &date,
			&amount, &cost, &s.EntryID); err != nil {
			return nil, err
		}
		if s.Amount, s.Date, err = amountAndDate(amount, date); err != nil {
			return nil, fmt.Errorf("sale %s: %w", s.Number, err)
		}
		if s.Cost, err = decimal.NewFromString(cost); err != nil {
			return nil, fmt.Errorf("sale %s: parsing cost %q: %w", s.Number, cost, err)
		}
		sales = append(sales, s)
	}
	return sales, rows.Err()
}

// InsertPurchase stores a purchase document.
func (r *Repo) InsertPurchase(ctx context.Context, p model.Purchase) error {
	_, err := r.exec(ctx, psql.Insert("purchases").
		Columns("id", "tenant_id", "partner_id", "number", "purchase_date", "amount", "entry_id").
		Values(p.ID, p.TenantID, p.PartnerID, p.Number, p.Date.Format(dateFormat),
			p.Amount.String(), p.EntryID))
	if err != nil {
		return fmt.Errorf("inserting purchase %s: %w", p.Number, err)
	}
	return nil
}

// ListPurchases returns the tenant's purchases, oldest first.
func (r *Repo) ListPurchases(ctx context.Context, tenantID string) ([]model.Purchase, error) {
	rows, err := r.query(ctx, psql.Select("id", "tenant_id", "partner_id", "number", "purchase_date",
		"amount", "entry_id").
		From("purchases").
		Where(sq.Eq{"tenant_id": tenantID}).
		OrderBy("purchase_date", "number"))
	if err != nil {
		return nil, fmt.Errorf("listing purchases: %w", err)
	}
	defer rows.Close()

	var purchases []model.Purchase
	for rows.Next() {
		var p model.Purchase
		var amount, date string
		if err := rows.Scan(&p.ID, &p.TenantID, &p.PartnerID, &p.Number, &date,
			&amount, &p.EntryID); err != nil {
			return nil, err
		}
		if p.Amount, p.Date, err = amountAndDate(amount, date); err != nil {
			return nil, fmt.Errorf("purchase %s: %w", p.Number, err)
		}
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}

// InsertValuationClass stores a valuation class.
func (r *Repo) InsertValuationClass(ctx context.Context, v model.ValuationClass) error {
	_, err := r.exec(ctx, psql.Insert("valuation_classes").
		Columns("id", "tenant_id", "name", "inventory_account_id").
		Values(v.ID, v.TenantID, v.Name, v.InventoryAccountID))
	if err != nil {
		return fmt.Errorf("inserting valuation class %s: %w", v.Name, err)
	}
	return nil
}

// GetValuationClass returns a valuation class of the tenant.
func (r *Repo) GetValuationClass(ctx context.Context, tenantID, id string) (model.ValuationClass, error) {
	row, err := r.queryRow(ctx, psql.Select("id", "tenant_id", "name", "inventory_account_id").
		From("valuation_classes").
		Where(sq.Eq{"tenant_id": tenantID, "id": id}))
	if err != nil {
		return model.ValuationClass{}, err
	}
	var v model.ValuationClass
	if err := row.Scan(&v.ID, &v.TenantID, &v.Name, &v.InventoryAccountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ValuationClass{}, errs.NotFound("valuation class", id)
		}
		return model.ValuationClass{}, err
	}
	return v, nil
}

// InsertInventoryItem stores an inventory item.
func (r *Repo) InsertInventoryItem(ctx context.Context, i model.InventoryItem) error {
	_, err := r.exec(ctx, psql.Insert("inventory_items").
		Columns("id", "tenant_id", "name", "valuation_class_id", "quantity", "purchase_price", "entry_id").
		Values(i.ID, i.TenantID, i.Name, i.ValuationClassID, i.Quantity.String(),
			i.PurchasePrice.String(), nullInt64(i.EntryID)))
	if err != nil {
		return fmt.Errorf("inserting inventory item %s: %w", i.Name, err)
	}
	return nil
}

// ListInventoryItems returns the tenant's inventory items by name.
func (r *Repo) ListInventoryItems(ctx context.Context, tenantID string) ([]model.InventoryItem, error) {
	rows, err := r.query(ctx, psql.Select("id", "tenant_id", "name", "valuation_class_id", "quantity",
		"purchase_price", "entry_id").
		From("inventory_items").
		Where(sq.Eq{"tenant_id": tenantID}).
		OrderBy("name"))
	if err != nil {
		return nil, fmt.Errorf("listing inventory items: %w", err)
	}
	defer rows.Close()

	var items []model.InventoryItem
	for rows.Next() {
		var i model.InventoryItem
		var qty, price string
		var entry sql.NullInt64
		if err := rows.Scan(&i.ID, &i.TenantID, &i.Name, &i.ValuationClassID, &qty, &price, &entry); err != nil {
			return nil, err
		}
		if i.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("inventory item %s: parsing quantity %q: %w", i.Name, qty, err)
		}
		if i.PurchasePrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("inventory item %s: parsing price %q: %w", i.Name, price, err)
		}
		i.EntryID = ptrInt64(entry)
		items = append(items, i)
	}
	return items, rows.Err()
}

func amountAndDate(amount, date string) (decimal.Decimal, time.Time, error) {
	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Decimal{}, time.Time{}, fmt.Errorf("parsing amount %q: %w", amount, err)
	}
	d, err := time.Parse(dateFormat, date)
	if err != nil {
		return decimal.Decimal{}, time.Time{}, fmt.Errorf("parsing date %q: %w", date, err)
	}
	return amt, d, nil
}
