package store

import (
	"context"
	"fmt"
)

// Schema creates every ledger table. Amounts and balances are decimal strings.
// References without an ON DELETE action are NO ACTION: a referenced row cannot
// be deleted, but a tenant delete still cascades through all of its rows.
const Schema = `
CREATE TABLE IF NOT EXISTS tenants (
    id TEXT PRIMARY KEY,
    company_code TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    currency TEXT NOT NULL DEFAULT 'USD',
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS accounts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    tenant_id TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
    code TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    account_type TEXT NOT NULL,
    system_role TEXT,
    is_active INTEGER NOT NULL DEFAULT 1,
    balance TEXT NOT NULL DEFAULT '0',
    parent_id INTEGER REFERENCES accounts(id),
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    UNIQUE(code, tenant_id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_tenant_role
    ON accounts(tenant_id, system_role) WHERE system_role IS NOT NULL;

CREATE TABLE IF NOT EXISTS journal_entries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    tenant_id TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
    number TEXT NOT NULL,
    transaction_type TEXT NOT NULL DEFAULT 'JE',
    entry_date TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created_by TEXT NOT NULL DEFAULT '',
    currency TEXT NOT NULL,
    exchange_rate TEXT NOT NULL DEFAULT '1',
    posted INTEGER NOT NULL DEFAULT 1,
    reverses_entry_id INTEGER REFERENCES journal_entries(id),
    created_at TEXT NOT NULL,
    UNIQUE(number, tenant_id, transaction_type)
);

CREATE TABLE IF NOT EXISTS business_partners (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    partner_type TEXT NOT NULL,
    balance TEXT NOT NULL DEFAULT '0',
    reconciliation_account_id INTEGER REFERENCES accounts(id),
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS line_items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    entry_id INTEGER NOT NULL REFERENCES journal_entries(id) ON DELETE CASCADE,
    line_number INTEGER NOT NULL,
    account_id INTEGER NOT NULL REFERENCES accounts(id),
    entry_type TEXT NOT NULL,
    amount TEXT NOT NULL,
    memo TEXT NOT NULL DEFAULT '',
    cost_center TEXT NOT NULL DEFAULT '',
    profit_center TEXT NOT NULL DEFAULT '',
    business_area TEXT NOT NULL DEFAULT '',
    partner_id TEXT REFERENCES business_partners(id),
    clears_line_item_id INTEGER REFERENCES line_items(id),
    open_item_status TEXT NOT NULL DEFAULT '',
    UNIQUE(entry_id, line_number)
);

CREATE INDEX IF NOT EXISTS idx_line_items_account
    ON line_items(account_id, open_item_status);

CREATE INDEX IF NOT EXISTS idx_line_items_clears
    ON line_items(clears_line_item_id);

CREATE TABLE IF NOT EXISTS payments (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
    direction TEXT NOT NULL,
    partner_id TEXT REFERENCES business_partners(id),
    cash_account_id INTEGER NOT NULL REFERENCES accounts(id),
    amount TEXT NOT NULL,
    payment_date TEXT NOT NULL,
    reference TEXT NOT NULL DEFAULT '',
    entry_id INTEGER NOT NULL REFERENCES journal_entries(id)
);

CREATE TABLE IF NOT EXISTS sales (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
    partner_id TEXT NOT NULL REFERENCES business_partners(id),
    number TEXT NOT NULL,
    sale_date TEXT NOT NULL,
    amount TEXT NOT NULL,
    cost TEXT NOT NULL DEFAULT '0',
    entry_id INTEGER NOT NULL REFERENCES journal_entries(id)
);

CREATE TABLE IF NOT EXISTS purchases (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
    partner_id TEXT NOT NULL REFERENCES business_partners(id),
    number TEXT NOT NULL,
    purchase_date TEXT NOT NULL,
    amount TEXT NOT NULL,
    entry_id INTEGER NOT NULL REFERENCES journal_entries(id)
);

CREATE TABLE IF NOT EXISTS valuation_classes (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    inventory_account_id INTEGER NOT NULL REFERENCES accounts(id)
);

CREATE TABLE IF NOT EXISTS inventory_items (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    valuation_class_id TEXT NOT NULL REFERENCES valuation_classes(id),
    quantity TEXT NOT NULL,
    purchase_price TEXT NOT NULL,
    entry_id INTEGER REFERENCES journal_entries(id) ON DELETE SET NULL
);
`

// InitializeSchema creates all tables if they don't exist.
func (s *Store) InitializeSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}
