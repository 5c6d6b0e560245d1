// Package openitem tracks the clearing state of receivable and payable lines.
//
// A line posted to an eligible account starts Open. A later line on the same
// account, on the opposite side and for the same amount, may name it in
// ClearsLineID; the target then becomes Cleared. Revalued marks an open item
// whose base-currency value was adjusted without settling it.
package openitem

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/cleared-dev/ledger/internal/calc"
	"github.com/cleared-dev/ledger/internal/errs"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/session"
	"github.com/cleared-dev/ledger/internal/store"
)

// IsEligible reports whether lines on the account are tracked as open items.
func IsEligible(a model.Account) bool {
	switch a.Role {
	case model.RoleAccountsReceivable, model.RoleAccountsPayable:
		return true
	}
	switch a.Type {
	case model.AccountTypeAccountsReceivable, model.AccountTypeAccountsPayable:
		return true
	}
	return false
}

// InitialStatus is the status a new line on a starts with. Clearing lines
// settle something else and are never open themselves.
func InitialStatus(a model.Account, l model.LineItem) model.OpenItemStatus {
	if l.ClearsLineID != nil || !IsEligible(a) {
		return model.OpenItemNone
	}
	return model.OpenItemOpen
}

// Validate checks that clearing may settle target.
func Validate(target, clearing model.LineItem) error {
	if target.AccountID != clearing.AccountID {
		return errs.Validation("line %d is on account %d, clearing line is on account %d",
			target.ID, target.AccountID, clearing.AccountID)
	}
	switch target.OpenItemStatus {
	case model.OpenItemOpen, model.OpenItemRevalued:
	default:
		return errs.Validation("line %d is not open (status %q)", target.ID, target.OpenItemStatus)
	}
	if target.EntryType == clearing.EntryType {
		return errs.Validation("line %d is a %s; a clearing line must be a %s",
			target.ID, target.EntryType, target.EntryType.Opposite())
	}
	if !calc.WithinTolerance(target.Amount, clearing.Amount, calc.BalanceTolerance) {
		return errs.Validation("line %d is for %s, clearing line is for %s", target.ID, target.Amount, clearing.Amount)
	}
	return nil
}

// Clear settles the line clearing points at. It must run inside the write
// that inserts clearing.
func Clear(ctx context.Context, r *store.Repo, tenantID string, clearing model.LineItem) error {
	if clearing.ClearsLineID == nil {
		return nil
	}
	target, err := r.GetLine(ctx, tenantID, *clearing.ClearsLineID)
	if err != nil {
		return fmt.Errorf("cleared line: %w", err)
	}
	if err := Validate(target, clearing); err != nil {
		return err
	}
	return r.SetLineStatus(ctx, target.ID, model.OpenItemCleared)
}

// Reopen undoes Clear for a line that is being removed.
func Reopen(ctx context.Context, r *store.Repo, tenantID string, clearing model.LineItem) error {
	if clearing.ClearsLineID == nil {
		return nil
	}
	target, err := r.GetLine(ctx, tenantID, *clearing.ClearsLineID)
	if err != nil {
		return fmt.Errorf("cleared line: %w", err)
	}
	if target.OpenItemStatus != model.OpenItemCleared {
		return nil
	}
	return r.SetLineStatus(ctx, target.ID, model.OpenItemOpen)
}

// Tracker answers open-item queries for a tenant.
type Tracker struct {
	store *store.Store
	log   *slog.Logger
}

// NewTracker creates a Tracker.
func NewTracker(st *store.Store, log *slog.Logger) *Tracker {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Tracker{store: st, log: log}
}

// Revalue marks an open item as revalued. It stays clearable.
func (t *Tracker) Revalue(ctx context.Context, sess session.Session, lineID int64) error {
	if err := session.Require(sess); err != nil {
		return err
	}
	err := t.store.Atomic(ctx, func(ctx context.Context, r *store.Repo) error {
		l, err := r.GetLine(ctx, sess.TenantID, lineID)
		if err != nil {
			return err
		}
		if l.OpenItemStatus != model.OpenItemOpen {
			return errs.Validation("line %d is not open (status %q)", lineID, l.OpenItemStatus)
		}
		return r.SetLineStatus(ctx, lineID, model.OpenItemRevalued)
	})
	if err != nil {
		return err
	}
	t.log.Info("open item revalued", "line", lineID)
	return nil
}

// ListOpen returns open and revalued items, optionally narrowed to an account
// (accountID != 0) and a partner (partnerID != "").
func (t *Tracker) ListOpen(ctx context.Context, sess session.Session, accountID int64, partnerID string) ([]store.OpenItem, error) {
	if err := session.Require(sess); err != nil {
		return nil, err
	}
	return t.store.Reader().ListOpenItems(ctx, store.OpenItemFilter{
		TenantID:  sess.TenantID,
		AccountID: accountID,
		PartnerID: partnerID,
	})
}
