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

var entryColumns = []string{
	"id", "tenant_id", "number", "transaction_type", "entry_date", "description", "created_by",
	"currency", "exchange_rate", "posted", "reverses_entry_id", "created_at",
}

var lineColumns = []string{
	"l.id", "l.entry_id", "l.line_number", "l.account_id", "l.entry_type", "l.amount", "l.memo",
	"l.cost_center", "l.profit_center", "l.business_area", "l.partner_id",
	"l.clears_line_item_id", "l.open_item_status",
}

// EntryFilter narrows ListEntries. Zero values match everything.
type EntryFilter struct {
	TenantID string
	Type     model.TransactionType
	From, To time.Time
}

// OpenItem is an open line together with the entry it belongs to.
type OpenItem struct {
	Line        model.LineItem
	EntryNumber string
	EntryDate   time.Time
}

// OpenItemFilter narrows ListOpenItems.
type OpenItemFilter struct {
	TenantID  string
	AccountID int64
	PartnerID string
}

// LineTotals is the sum of debits and credits posted to one account.
type LineTotals struct {
	Debits  decimal.Decimal
	Credits decimal.Decimal
}

// InsertEntry stores an entry header and returns its id. Lines are inserted separately.
func (r *Repo) InsertEntry(ctx context.Context, e model.JournalEntry) (int64, error) {
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	res, err := r.exec(ctx, psql.Insert("journal_entries").
		Columns("tenant_id", "number", "transaction_type", "entry_date", "description", "created_by",
			"currency", "exchange_rate", "posted", "reverses_entry_id", "created_at").
		Values(e.TenantID, e.Number, string(e.Type), e.Date.Format(dateFormat), e.Description, e.CreatedBy,
			e.Currency, e.ExchangeRate.String(), e.Posted, nullInt64(e.ReversesID), created.Format(time.RFC3339Nano)))
	if err != nil {
		return 0, fmt.Errorf("inserting entry %s: %w", e.Number, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading entry id: %w", err)
	}
	return id, nil
}

// UpdateEntryHeader rewrites the mutable header fields of an entry.
func (r *Repo) UpdateEntryHeader(ctx context.Context, e model.JournalEntry) error {
	res, err := r.exec(ctx, psql.Update("journal_entries").
		Set("entry_date", e.Date.Format(dateFormat)).
		Set("description", e.Description).
		Set("currency", e.Currency).
		Set("exchange_rate", e.ExchangeRate.String()).
		Where(sq.Eq{"tenant_id": e.TenantID, "id": e.ID}))
	if err != nil {
		return fmt.Errorf("updating entry %d: %w", e.ID, err)
	}
	return requireAffected(res, "journal entry", e.ID)
}

// InsertLine stores one line item of an entry and returns its id.
func (r *Repo) InsertLine(ctx context.Context, entryID int64, l model.LineItem) (int64, error) {
	res, err := r.exec(ctx, psql.Insert("line_items").
		Columns("entry_id", "line_number", "account_id", "entry_type", "amount", "memo",
			"cost_center", "profit_center", "business_area", "partner_id",
			"clears_line_item_id", "open_item_status").
		Values(entryID, l.Number, l.AccountID, string(l.EntryType), l.Amount.String(), l.Memo,
			l.CostCenter, l.ProfitCenter, l.BusinessArea, nullString(l.PartnerID),
			nullInt64(l.ClearsLineID), string(l.OpenItemStatus)))
	if err != nil {
		return 0, fmt.Errorf("inserting line %d of entry %d: %w", l.Number, entryID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading line id: %w", err)
	}
	return id, nil
}

// DeleteLines removes every line of an entry.
func (r *Repo) DeleteLines(ctx context.Context, entryID int64) error {
	if _, err := r.exec(ctx, psql.Delete("line_items").Where(sq.Eq{"entry_id": entryID})); err != nil {
		return fmt.Errorf("deleting lines of entry %d: %w", entryID, err)
	}
	return nil
}

// DeleteEntry removes an entry header; its lines go with it.
func (r *Repo) DeleteEntry(ctx context.Context, tenantID string, id int64) error {
	res, err := r.exec(ctx, psql.Delete("journal_entries").Where(sq.Eq{"tenant_id": tenantID, "id": id}))
	if err != nil {
		return fmt.Errorf("deleting entry %d: %w", id, err)
	}
	return requireAffected(res, "journal entry", id)
}

// GetEntry returns an entry of the tenant with its lines in line order.
func (r *Repo) GetEntry(ctx context.Context, tenantID string, id int64) (model.JournalEntry, error) {
	return r.getEntry(ctx, sq.Eq{"tenant_id": tenantID, "id": id}, id)
}

// GetEntryByNumber returns an entry of the tenant by its document number.
func (r *Repo) GetEntryByNumber(ctx context.Context, tenantID, number string) (model.JournalEntry, error) {
	return r.getEntry(ctx, sq.Eq{"tenant_id": tenantID, "number": number}, number)
}

func (r *Repo) getEntry(ctx context.Context, where sq.Eq, key any) (model.JournalEntry, error) {
	row, err := r.queryRow(ctx, psql.Select(entryColumns...).From("journal_entries").Where(where))
	if err != nil {
		return model.JournalEntry{}, err
	}
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.JournalEntry{}, errs.NotFound("journal entry", key)
	}
	if err != nil {
		return model.JournalEntry{}, err
	}

	lines, err := r.linesOf(ctx, []int64{e.ID})
	if err != nil {
		return model.JournalEntry{}, err
	}
	e.Lines = lines[e.ID]
	return e, nil
}

// ListEntries returns entries with their lines, ordered by date then number.
func (r *Repo) ListEntries(ctx context.Context, f EntryFilter) ([]model.JournalEntry, error) {
	b := psql.Select(entryColumns...).From("journal_entries").
		Where(sq.Eq{"tenant_id": f.TenantID}).
		OrderBy("entry_date", "number")
	if f.Type != "" {
		b = b.Where(sq.Eq{"transaction_type": string(f.Type)})
	}
	if !f.From.IsZero() {
		b = b.Where(sq.GtOrEq{"entry_date": f.From.Format(dateFormat)})
	}
	if !f.To.IsZero() {
		b = b.Where(sq.LtOrEq{"entry_date": f.To.Format(dateFormat)})
	}

	rows, err := r.query(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	var entries []model.JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		entries = append(entries, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	lines, err := r.linesOf(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Lines = lines[entries[i].ID]
	}
	return entries, nil
}

// ListEntryNumbers returns every number used by a tenant for one transaction type.
func (r *Repo) ListEntryNumbers(ctx context.Context, tenantID string, typ model.TransactionType) ([]string, error) {
	rows, err := r.query(ctx, psql.Select("number").From("journal_entries").
		Where(sq.Eq{"tenant_id": tenantID, "transaction_type": string(typ)}))
	if err != nil {
		return nil, fmt.Errorf("listing entry numbers: %w", err)
	}
	defer rows.Close()

	var numbers []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		numbers = append(numbers, n)
	}
	return numbers, rows.Err()
}

// GetLine returns a line item belonging to one of the tenant's entries.
func (r *Repo) GetLine(ctx context.Context, tenantID string, id int64) (model.LineItem, error) {
	row, err := r.queryRow(ctx, psql.Select(lineColumns...).From("line_items l").
		Join("journal_entries e ON e.id = l.entry_id").
		Where(sq.Eq{"e.tenant_id": tenantID, "l.id": id}))
	if err != nil {
		return model.LineItem{}, err
	}
	l, err := scanLine(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.LineItem{}, errs.NotFound("line item", id)
	}
	return l, err
}

// SetLineStatus writes the open-item status of a line.
func (r *Repo) SetLineStatus(ctx context.Context, id int64, status model.OpenItemStatus) error {
	res, err := r.exec(ctx, psql.Update("line_items").
		Set("open_item_status", string(status)).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("updating status of line %d: %w", id, err)
	}
	return requireAffected(res, "line item", id)
}

// CountForeignClearings counts lines outside the entry that clear one of its lines.
func (r *Repo) CountForeignClearings(ctx context.Context, entryID int64) (int, error) {
	return r.count(ctx, psql.Select("COUNT(*)").From("line_items c").
		Join("line_items t ON t.id = c.clears_line_item_id").
		Where(sq.Eq{"t.entry_id": entryID}).
		Where(sq.NotEq{"c.entry_id": entryID}))
}

// CountReversalsOf counts entries that reverse the given entry.
func (r *Repo) CountReversalsOf(ctx context.Context, entryID int64) (int, error) {
	return r.count(ctx, psql.Select("COUNT(*)").From("journal_entries").
		Where(sq.Eq{"reverses_entry_id": entryID}))
}

func (r *Repo) count(ctx context.Context, b sq.SelectBuilder) (int, error) {
	row, err := r.queryRow(ctx, b)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("counting: %w", err)
	}
	return n, nil
}

// ListOpenItems returns open and revalued lines, oldest first.
func (r *Repo) ListOpenItems(ctx context.Context, f OpenItemFilter) ([]OpenItem, error) {
	cols := append(append([]string{}, lineColumns...), "e.number", "e.entry_date")
	b := psql.Select(cols...).From("line_items l").
		Join("journal_entries e ON e.id = l.entry_id").
		Where(sq.Eq{
			"e.tenant_id":        f.TenantID,
			"l.open_item_status": []string{string(model.OpenItemOpen), string(model.OpenItemRevalued)},
		}).
		OrderBy("e.entry_date", "e.number", "l.line_number")
	if f.AccountID != 0 {
		b = b.Where(sq.Eq{"l.account_id": f.AccountID})
	}
	if f.PartnerID != "" {
		b = b.Where(sq.Eq{"l.partner_id": f.PartnerID})
	}

	rows, err := r.query(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("listing open items: %w", err)
	}
	defer rows.Close()

	var items []OpenItem
	for rows.Next() {
		var item OpenItem
		var date string
		item.Line, err = scanLine(rows, &item.EntryNumber, &date)
		if err != nil {
			return nil, err
		}
		if item.EntryDate, err = time.Parse(dateFormat, date); err != nil {
			return nil, fmt.Errorf("parsing entry date %q: %w", date, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// AccountTotals sums every posted line of the tenant per account.
func (r *Repo) AccountTotals(ctx context.Context, tenantID string) (map[int64]LineTotals, error) {
	rows, err := r.query(ctx, psql.Select("l.account_id", "l.entry_type", "l.amount").
		From("line_items l").
		Join("journal_entries e ON e.id = l.entry_id").
		Where(sq.Eq{"e.tenant_id": tenantID, "e.posted": true}))
	if err != nil {
		return nil, fmt.Errorf("summing lines: %w", err)
	}
	defer rows.Close()

	totals := make(map[int64]LineTotals)
	for rows.Next() {
		var (
			accountID    int64
			side, amount string
		)
		if err := rows.Scan(&accountID, &side, &amount); err != nil {
			return nil, err
		}
		amt, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parsing amount %q: %w", amount, err)
		}
		t := totals[accountID]
		if model.EntryType(side) == model.Debit {
			t.Debits = t.Debits.Add(amt)
		} else {
			t.Credits = t.Credits.Add(amt)
		}
		totals[accountID] = t
	}
	return totals, rows.Err()
}

func (r *Repo) linesOf(ctx context.Context, entryIDs []int64) (map[int64][]model.LineItem, error) {
	rows, err := r.query(ctx, psql.Select(lineColumns...).From("line_items l").
		Where(sq.Eq{"l.entry_id": entryIDs}).
		OrderBy("l.entry_id", "l.line_number"))
	if err != nil {
		return nil, fmt.Errorf("loading lines: %w", err)
	}
	defer rows.Close()

	lines := make(map[int64][]model.LineItem)
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		lines[l.EntryID] = append(lines[l.EntryID], l)
	}
	return lines, rows.Err()
}

func scanEntry(s rowScanner) (model.JournalEntry, error) {
	var (
		e               model.JournalEntry
		typ, date, rate string
		created         string
		reverses        sql.NullInt64
	)
	err := s.Scan(&e.ID, &e.TenantID, &e.Number, &typ, &date, &e.Description, &e.CreatedBy,
		&e.Currency, &rate, &e.Posted, &reverses, &created)
	if err != nil {
		return model.JournalEntry{}, err
	}

	if e.Type, err = model.ParseTransactionType(typ); err != nil {
		return model.JournalEntry{}, fmt.Errorf("entry %s: %w", e.Number, err)
	}
	if e.Date, err = time.Parse(dateFormat, date); err != nil {
		return model.JournalEntry{}, fmt.Errorf("entry %s: parsing date %q: %w", e.Number, date, err)
	}
	if e.ExchangeRate, err = decimal.NewFromString(rate); err != nil {
		return model.JournalEntry{}, fmt.Errorf("entry %s: parsing exchange rate %q: %w", e.Number, rate, err)
	}
	if e.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return model.JournalEntry{}, fmt.Errorf("entry %s: parsing created_at: %w", e.Number, err)
	}
	e.ReversesID = ptrInt64(reverses)
	return e, nil
}

// scanLine reads lineColumns, followed by any extra destinations.
func scanLine(s rowScanner, extra ...any) (model.LineItem, error) {
	var (
		l                    model.LineItem
		side, amount, status string
		partner              sql.NullString
		clears               sql.NullInt64
	)
	dest := []any{&l.ID, &l.EntryID, &l.Number, &l.AccountID, &side, &amount, &l.Memo,
		&l.CostCenter, &l.ProfitCenter, &l.BusinessArea, &partner, &clears, &status}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return model.LineItem{}, err
	}

	var err error
	if l.EntryType, err = model.ParseEntryType(side); err != nil {
		return model.LineItem{}, fmt.Errorf("line %d: %w", l.ID, err)
	}
	if l.Amount, err = decimal.NewFromString(amount); err != nil {
		return model.LineItem{}, fmt.Errorf("line %d: parsing amount %q: %w", l.ID, amount, err)
	}
	if l.OpenItemStatus, err = model.ParseOpenItemStatus(status); err != nil {
		return model.LineItem{}, fmt.Errorf("line %d: %w", l.ID, err)
	}
	l.PartnerID = partner.String
	l.ClearsLineID = ptrInt64(clears)
	return l, nil
}
