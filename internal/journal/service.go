// Package journal validates and persists balanced journal entries and keeps
// account, partner and open-item state in step with them.
package journal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledger/internal/balance"
	"github.com/cleared-dev/ledger/internal/docnum"
	"github.com/cleared-dev/ledger/internal/errs"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/openitem"
	"github.com/cleared-dev/ledger/internal/session"
	"github.com/cleared-dev/ledger/internal/store"
)

// Service is the journal engine. Every mutation runs in one store.Atomic
// write, so number generation, header, lines and balance updates commit or
// roll back together.
type Service struct {
	store *store.Store
	log   *slog.Logger
	width int
}

// NewService creates a journal Service. width is the zero-padded width of
// generated entry numbers.
func NewService(st *store.Store, log *slog.Logger, width int) *Service {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if width <= 0 {
		width = docnum.DefaultWidth
	}
	return &Service{store: st, log: log, width: width}
}

// Store returns the store the engine writes to, for callers composing a
// larger atomic write around CreateEntryTx.
func (s *Service) Store() *store.Store {
	return s.store
}

// CreateEntry validates and persists an entry and returns its id. Lines are
// renumbered 1..n in the order given. An empty Number is generated.
func (s *Service) CreateEntry(ctx context.Context, sess session.Session, e model.JournalEntry) (int64, error) {
	if err := session.Require(sess); err != nil {
		return 0, err
	}
	e = normalize(sess, e)
	if err := checkEntry(e); err != nil {
		s.log.Warn("entry rejected", "error", err)
		return 0, err
	}

	var created model.JournalEntry
	err := s.store.Atomic(ctx, func(ctx context.Context, r *store.Repo) error {
		var err error
		created, err = s.CreateEntryTx(ctx, r, sess, e)
		return err
	})
	if err != nil {
		s.log.Warn("entry rejected", "error", err)
		return 0, err
	}
	return created.ID, nil
}

// CreateEntryTx is CreateEntry for callers already inside store.Atomic.
func (s *Service) CreateEntryTx(ctx context.Context, r *store.Repo, sess session.Session, e model.JournalEntry) (model.JournalEntry, error) {
	if err := session.Require(sess); err != nil {
		return model.JournalEntry{}, err
	}
	e = normalize(sess, e)
	if err := checkEntry(e); err != nil {
		return model.JournalEntry{}, err
	}

	p := newPoster(r, sess.TenantID)
	if err := p.resolve(ctx, e.Lines); err != nil {
		return model.JournalEntry{}, err
	}

	if e.Number == "" {
		n, err := s.nextNumber(ctx, r, sess.TenantID, e.Type)
		if err != nil {
			return model.JournalEntry{}, err
		}
		e.Number = n
	}

	id, err := r.InsertEntry(ctx, e)
	if err != nil {
		return model.JournalEntry{}, err
	}
	e.ID = id

	if e.Lines, err = p.insertLines(ctx, id, e.Lines); err != nil {
		return model.JournalEntry{}, err
	}
	if err := p.flush(ctx); err != nil {
		return model.JournalEntry{}, err
	}

	s.log.Info("entry created", "number", e.Number, "lines", len(e.Lines))
	return e, nil
}

// UpdateEntry replaces the header fields and all lines of an entry. The old
// lines' balance effects are reversed and items they cleared are reopened
// before the new lines are posted. Number and type do not change. The same
// entries DeleteEntry refuses cannot be updated.
func (s *Service) UpdateEntry(ctx context.Context, sess session.Session, id int64, e model.JournalEntry) error {
	if err := session.Require(sess); err != nil {
		return err
	}
	e = normalize(sess, e)
	if err := checkEntry(e); err != nil {
		s.log.Warn("entry update rejected", "id", id, "error", err)
		return err
	}

	err := s.store.Atomic(ctx, func(ctx context.Context, r *store.Repo) error {
		old, err := r.GetEntry(ctx, sess.TenantID, id)
		if err != nil {
			return err
		}
		if err := guardEntry(ctx, r, old); err != nil {
			return err
		}

		p := newPoster(r, sess.TenantID)
		if err := p.remove(ctx, old.Lines); err != nil {
			return err
		}
		if err := r.DeleteLines(ctx, id); err != nil {
			return err
		}

		if err := p.resolve(ctx, e.Lines); err != nil {
			return err
		}
		e.ID, e.TenantID = old.ID, old.TenantID
		if err := r.UpdateEntryHeader(ctx, e); err != nil {
			return err
		}
		if _, err := p.insertLines(ctx, id, e.Lines); err != nil {
			return err
		}
		return p.flush(ctx)
	})
	if err != nil {
		s.log.Warn("entry update rejected", "id", id, "error", err)
		return err
	}
	s.log.Info("entry updated", "id", id, "lines", len(e.Lines))
	return nil
}

// DeleteEntry removes an entry, reversing its balance effects and reopening
// the items it cleared. Entries that other entries clear or reverse, and
// entries backing a business document, cannot be deleted.
func (s *Service) DeleteEntry(ctx context.Context, sess session.Session, id int64) error {
	if err := session.Require(sess); err != nil {
		return err
	}
	var number string
	err := s.store.Atomic(ctx, func(ctx context.Context, r *store.Repo) error {
		old, err := r.GetEntry(ctx, sess.TenantID, id)
		if err != nil {
			return err
		}
		number = old.Number
		if err := guardEntry(ctx, r, old); err != nil {
			return err
		}

		p := newPoster(r, sess.TenantID)
		if err := p.remove(ctx, old.Lines); err != nil {
			return err
		}
		if err := r.DeleteEntry(ctx, sess.TenantID, id); err != nil {
			return err
		}
		return p.flush(ctx)
	})
	if err != nil {
		s.log.Warn("entry delete rejected", "id", id, "error", err)
		return err
	}
	s.log.Info("entry deleted", "number", number)
	return nil
}

// ReverseEntry posts a new entry that mirrors every line of the original and
// links back to it. Open items of the original are cleared by their mirror
// line. An entry can be reversed once.
func (s *Service) ReverseEntry(ctx context.Context, sess session.Session, id int64, date time.Time) (model.JournalEntry, error) {
	if err := session.Require(sess); err != nil {
		return model.JournalEntry{}, err
	}
	var reversal model.JournalEntry
	err := s.store.Atomic(ctx, func(ctx context.Context, r *store.Repo) error {
		orig, err := r.GetEntry(ctx, sess.TenantID, id)
		if err != nil {
			return err
		}
		n, err := r.CountReversalsOf(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return errs.Validation("entry %s is already reversed", orig.Number)
		}

		if date.IsZero() {
			date = orig.Date
		}
		rev := model.JournalEntry{
			Type:         orig.Type,
			Date:         date,
			Description:  "Reversal of " + orig.Number,
			Currency:     orig.Currency,
			ExchangeRate: orig.ExchangeRate,
			ReversesID:   &orig.ID,
		}
		for _, l := range orig.Lines {
			l := l
			m := model.LineItem{
				AccountID:    l.AccountID,
				EntryType:    l.EntryType.Opposite(),
				Amount:       l.Amount,
				Memo:         l.Memo,
				CostCenter:   l.CostCenter,
				ProfitCenter: l.ProfitCenter,
				BusinessArea: l.BusinessArea,
				PartnerID:    l.PartnerID,
			}
			if l.OpenItemStatus == model.OpenItemOpen || l.OpenItemStatus == model.OpenItemRevalued {
				m.ClearsLineID = &l.ID
			}
			rev.Lines = append(rev.Lines, m)
		}

		reversal, err = s.CreateEntryTx(ctx, r, sess, rev)
		return err
	})
	if err != nil {
		s.log.Warn("entry reversal rejected", "id", id, "error", err)
		return model.JournalEntry{}, err
	}
	return reversal, nil
}

// GenerateEntryNumber returns the number the next entry of typ would get.
// It reads under the write lock; CreateEntry generates its own number inside
// its write, so the preview is advisory.
func (s *Service) GenerateEntryNumber(ctx context.Context, sess session.Session, typ model.TransactionType) (string, error) {
	if err := session.Require(sess); err != nil {
		return "", err
	}
	if _, err := model.ParseTransactionType(string(typ)); err != nil {
		return "", errs.Validation("%v", err)
	}
	var number string
	err := s.store.Atomic(ctx, func(ctx context.Context, r *store.Repo) error {
		var err error
		number, err = s.nextNumber(ctx, r, sess.TenantID, typ)
		return err
	})
	return number, err
}

func (s *Service) nextNumber(ctx context.Context, r *store.Repo, tenantID string, typ model.TransactionType) (string, error) {
	existing, err := r.ListEntryNumbers(ctx, tenantID, typ)
	if err != nil {
		return "", err
	}
	return docnum.Next(string(typ), existing, s.width), nil
}

// FetchEntry returns one entry with its lines.
func (s *Service) FetchEntry(ctx context.Context, sess session.Session, id int64) (model.JournalEntry, error) {
	if err := session.Require(sess); err != nil {
		return model.JournalEntry{}, err
	}
	return s.store.Reader().GetEntry(ctx, sess.TenantID, id)
}

// FetchEntryByNumber returns one entry by its document number.
func (s *Service) FetchEntryByNumber(ctx context.Context, sess session.Session, number string) (model.JournalEntry, error) {
	if err := session.Require(sess); err != nil {
		return model.JournalEntry{}, err
	}
	return s.store.Reader().GetEntryByNumber(ctx, sess.TenantID, number)
}

// FetchAllEntries returns every entry of the tenant, oldest first.
func (s *Service) FetchAllEntries(ctx context.Context, sess session.Session) ([]model.JournalEntry, error) {
	return s.FetchEntries(ctx, sess, store.EntryFilter{})
}

// FetchEntries returns the tenant's entries matching f. f.TenantID is ignored.
func (s *Service) FetchEntries(ctx context.Context, sess session.Session, f store.EntryFilter) ([]model.JournalEntry, error) {
	if err := session.Require(sess); err != nil {
		return nil, err
	}
	f.TenantID = sess.TenantID
	return s.store.Reader().ListEntries(ctx, f)
}

func normalize(sess session.Session, e model.JournalEntry) model.JournalEntry {
	e.TenantID = sess.TenantID
	if e.Type == "" {
		e.Type = model.TypeJournal
	}
	if e.Currency == "" {
		e.Currency = sess.Currency
	}
	if e.ExchangeRate.IsZero() {
		e.ExchangeRate = decimal.NewFromInt(1)
	}
	if e.CreatedBy == "" {
		e.CreatedBy = sess.UserID
	}
	e.Posted = true
	e.Lines = slices.Clone(e.Lines)
	return e
}

func checkEntry(e model.JournalEntry) error {
	if _, err := model.ParseTransactionType(string(e.Type)); err != nil {
		return errs.Validation("%v", err)
	}
	if e.Date.IsZero() {
		return errs.MissingField("date")
	}
	if !e.ExchangeRate.IsPositive() {
		return errs.Validation("exchange rate %s must be positive", e.ExchangeRate)
	}
	return ValidateLines(e.Lines)
}

// guardEntry refuses to change or remove an entry other records depend on.
func guardEntry(ctx context.Context, r *store.Repo, e model.JournalEntry) error {
	n, err := r.CountForeignClearings(ctx, e.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		return errs.Validation("entry %s has %d line(s) cleared by other entries", e.Number, n)
	}
	if n, err = r.CountReversalsOf(ctx, e.ID); err != nil {
		return err
	}
	if n > 0 {
		return errs.Validation("entry %s has been reversed", e.Number)
	}
	if n, err = r.CountDocumentsFor(ctx, e.ID); err != nil {
		return err
	}
	if n > 0 {
		return errs.Validation("entry %s is the posting of a business document", e.Number)
	}
	return nil
}

// poster accumulates balance changes for one write and flushes them once.
type poster struct {
	r        *store.Repo
	tenantID string
	accounts map[int64]model.Account
	partners map[string]model.BusinessPartner
}

func newPoster(r *store.Repo, tenantID string) *poster {
	return &poster{
		r:        r,
		tenantID: tenantID,
		accounts: make(map[int64]model.Account),
		partners: make(map[string]model.BusinessPartner),
	}
}

func (p *poster) account(ctx context.Context, id int64) (model.Account, error) {
	if a, ok := p.accounts[id]; ok {
		return a, nil
	}
	a, err := p.r.GetAccount(ctx, p.tenantID, id)
	if err != nil {
		return model.Account{}, err
	}
	p.accounts[id] = a
	return a, nil
}

func (p *poster) partner(ctx context.Context, id string) (model.BusinessPartner, error) {
	if bp, ok := p.partners[id]; ok {
		return bp, nil
	}
	bp, err := p.r.GetPartner(ctx, p.tenantID, id)
	if err != nil {
		return model.BusinessPartner{}, err
	}
	p.partners[id] = bp
	return bp, nil
}

// resolve checks that every account and partner a new line names exists in
// the tenant and that the accounts are active.
func (p *poster) resolve(ctx context.Context, lines []model.LineItem) error {
	for i, l := range lines {
		a, err := p.account(ctx, l.AccountID)
		if err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
		if !a.IsActive {
			return errs.Validation("line %d: account %s is inactive", i+1, a.Code)
		}
		if l.PartnerID != "" {
			if _, err := p.partner(ctx, l.PartnerID); err != nil {
				return fmt.Errorf("line %d: %w", i+1, err)
			}
		}
	}
	return nil
}

func (p *poster) insertLines(ctx context.Context, entryID int64, lines []model.LineItem) ([]model.LineItem, error) {
	out := make([]model.LineItem, len(lines))
	for i, l := range lines {
		a, err := p.account(ctx, l.AccountID)
		if err != nil {
			return nil, err
		}
		l.EntryID = entryID
		l.Number = i + 1
		l.OpenItemStatus = openitem.InitialStatus(a, l)
		if err := openitem.Clear(ctx, p.r, p.tenantID, l); err != nil {
			return nil, fmt.Errorf("line %d: %w", l.Number, err)
		}
		if l.ID, err = p.r.InsertLine(ctx, entryID, l); err != nil {
			return nil, err
		}
		if err := p.apply(ctx, a, l, l.IsDebit()); err != nil {
			return nil, err
		}
		out[i] = l
	}
	return out, nil
}

// remove reverses the balance effect of lines and reopens what they cleared.
func (p *poster) remove(ctx context.Context, lines []model.LineItem) error {
	for _, l := range lines {
		a, err := p.account(ctx, l.AccountID)
		if err != nil {
			return err
		}
		if err := openitem.Reopen(ctx, p.r, p.tenantID, l); err != nil {
			return err
		}
		if err := p.apply(ctx, a, l, !l.IsDebit()); err != nil {
			return err
		}
	}
	return nil
}

// apply posts l's amount on side debit. Partner balances follow the
// reconciliation account they are posted against.
func (p *poster) apply(ctx context.Context, a model.Account, l model.LineItem, debit bool) error {
	a.Balance = balance.ApplyPosting(a.Balance, a.Category(), l.Amount, debit)
	p.accounts[a.ID] = a

	if l.PartnerID == "" || !openitem.IsEligible(a) {
		return nil
	}
	bp, err := p.partner(ctx, l.PartnerID)
	if err != nil {
		return err
	}
	bp.Balance = balance.ApplyPosting(bp.Balance, partnerCategory(bp, a), l.Amount, debit)
	p.partners[bp.ID] = bp
	return nil
}

// partnerCategory orients a partner's balance. A partner that is both customer
// and vendor carries one net receivable, so its payables count against it.
func partnerCategory(bp model.BusinessPartner, a model.Account) model.Category {
	if bp.Type == model.PartnerBoth {
		return model.CategoryAsset
	}
	return a.Category()
}

func (p *poster) flush(ctx context.Context) error {
	ids := make([]int64, 0, len(p.accounts))
	for id := range p.accounts {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if err := p.r.SetAccountBalance(ctx, id, p.accounts[id].Balance); err != nil {
			return err
		}
	}

	pids := make([]string, 0, len(p.partners))
	for id := range p.partners {
		pids = append(pids, id)
	}
	slices.Sort(pids)
	for _, id := range pids {
		if err := p.r.SetPartnerBalance(ctx, id, p.partners[id].Balance); err != nil {
			return err
		}
	}
	return nil
}
