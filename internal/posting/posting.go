// Package posting turns business documents into journal entries.
//
// Each generator resolves the accounts it needs by system role, builds a
// balanced set of lines and hands them to the journal engine. The document
// record, its entry and the partner balance change are written in one
// atomic unit.
package posting

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledger/internal/errs"
	"github.com/cleared-dev/ledger/internal/journal"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/session"
	"github.com/cleared-dev/ledger/internal/store"
)

// Service runs the document posting generators.
type Service struct {
	journal *journal.Service
	store   *store.Store
	log     *slog.Logger
}

// NewService creates a posting Service on top of the journal engine.
func NewService(j *journal.Service, log *slog.Logger) *Service {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{journal: j, store: j.Store(), log: log}
}

// PaymentLines maps a payment onto two lines. An incoming (credit-type)
// payment debits the specified account and credits the counter account; an
// outgoing (debit-type) payment mirrors that.
func PaymentLines(dir model.PaymentDirection, specified, counter int64, amount decimal.Decimal) []model.LineItem {
	if dir == model.PaymentIncoming {
		return []model.LineItem{
			model.DebitLine(specified, amount, ""),
			model.CreditLine(counter, amount, ""),
		}
	}
	return []model.LineItem{
		model.DebitLine(counter, amount, ""),
		model.CreditLine(specified, amount, ""),
	}
}

// PaymentInput describes money received from a customer or paid to a vendor.
type PaymentInput struct {
	PartnerID     string
	CashAccountID int64 // zero selects the cash role account
	Amount        decimal.Decimal
	Date          time.Time
	Reference     string
	ClearsLineID  *int64 // open invoice or bill line this payment settles
}

// IncomingPayment records a customer payment: Dr cash, Cr accounts receivable.
func (s *Service) IncomingPayment(ctx context.Context, sess session.Session, in PaymentInput) (model.Payment, error) {
	return s.payment(ctx, sess, model.PaymentIncoming, in)
}

// OutgoingPayment records a vendor payment: Dr accounts payable, Cr cash.
func (s *Service) OutgoingPayment(ctx context.Context, sess session.Session, in PaymentInput) (model.Payment, error) {
	return s.payment(ctx, sess, model.PaymentOutgoing, in)
}

func (s *Service) payment(ctx context.Context, sess session.Session, dir model.PaymentDirection, in PaymentInput) (model.Payment, error) {
	if err := session.Require(sess); err != nil {
		return model.Payment{}, err
	}
	if err := checkAmount(in.Amount, in.Date); err != nil {
		return model.Payment{}, err
	}

	counterRole, typ, partnerTypes := model.RoleAccountsReceivable, model.TypeReceipt, customers
	if dir == model.PaymentOutgoing {
		counterRole, typ, partnerTypes = model.RoleAccountsPayable, model.TypePayment, vendors
	}

	pay := model.Payment{
		ID:        uuid.NewString(),
		TenantID:  sess.TenantID,
		Direction: dir,
		PartnerID: in.PartnerID,
		Amount:    in.Amount,
		Date:      in.Date,
		Reference: in.Reference,
	}
	err := s.store.Atomic(ctx, func(ctx context.Context, r *store.Repo) error {
		cash, err := cashAccount(ctx, r, sess.TenantID, in.CashAccountID)
		if err != nil {
			return err
		}
		counter, err := byRole(ctx, r, sess.TenantID, counterRole)
		if err != nil {
			return err
		}

		desc := "Payment"
		if in.PartnerID != "" {
			p, err := partnerOf(ctx, r, sess.TenantID, in.PartnerID, partnerTypes)
			if err != nil {
				return err
			}
			if dir == model.PaymentIncoming {
				desc = "Payment from " + p.Name
			} else {
				desc = "Payment to " + p.Name
			}
		}
		if in.Reference != "" {
			desc += " (" + in.Reference + ")"
		}

		lines := PaymentLines(dir, cash.ID, counter.ID, in.Amount)
		for i := range lines {
			if lines[i].AccountID == counter.ID {
				lines[i].PartnerID = in.PartnerID
				lines[i].ClearsLineID = in.ClearsLineID
			}
		}

		e, err := s.journal.CreateEntryTx(ctx, r, sess, model.JournalEntry{
			Type: typ, Date: in.Date, Description: desc, Lines: lines,
		})
		if err != nil {
			return err
		}
		pay.CashAccountID = cash.ID
		pay.EntryID = e.ID
		return r.InsertPayment(ctx, pay)
	})
	if err != nil {
		s.log.Warn("payment rejected", "direction", dir, "error", err)
		return model.Payment{}, err
	}
	s.log.Info("payment posted", "direction", dir, "amount", pay.Amount.StringFixed(2))
	return pay, nil
}

// SaleInput describes a customer invoice.
type SaleInput struct {
	PartnerID        string
	Date             time.Time
	Amount           decimal.Decimal
	Cost             decimal.Decimal // cost of the goods sold; zero for services
	RevenueAccountID *int64          // defaults to the sales revenue role account
}

// Sale posts an invoice: Dr accounts receivable (open item), Cr revenue, and
// when goods leave stock, Dr cost of goods sold, Cr inventory.
func (s *Service) Sale(ctx context.Context, sess session.Session, in SaleInput) (model.Sale, error) {
	if err := session.Require(sess); err != nil {
		return model.Sale{}, err
	}
	if in.PartnerID == "" {
		return model.Sale{}, errs.MissingField("partner_id")
	}
	if err := checkAmount(in.Amount, in.Date); err != nil {
		return model.Sale{}, err
	}
	if in.Cost.IsNegative() {
		return model.Sale{}, errs.Validation("cost %s must not be negative", in.Cost)
	}

	sale := model.Sale{
		ID:               uuid.NewString(),
		TenantID:         sess.TenantID,
		PartnerID:        in.PartnerID,
		Date:             in.Date,
		Amount:           in.Amount,
		Cost:             in.Cost,
		RevenueAccountID: in.RevenueAccountID,
	}
	err := s.store.Atomic(ctx, func(ctx context.Context, r *store.Repo) error {
		p, err := partnerOf(ctx, r, sess.TenantID, in.PartnerID, customers)
		if err != nil {
			return err
		}
		ar, err := byRole(ctx, r, sess.TenantID, model.RoleAccountsReceivable)
		if err != nil {
			return err
		}
		revenue, err := accountOrRole(ctx, r, sess.TenantID, in.RevenueAccountID, model.RoleSalesRevenue,
			"take sales revenue", model.CategoryRevenue)
		if err != nil {
			return err
		}

		receivable := model.DebitLine(ar.ID, in.Amount, "")
		receivable.PartnerID = p.ID
		lines := []model.LineItem{receivable, model.CreditLine(revenue.ID, in.Amount, "")}

		if in.Cost.IsPositive() {
			cogs, err := byRole(ctx, r, sess.TenantID, model.RoleCostOfGoodsSold)
			if err != nil {
				return err
			}
			inv, err := byRole(ctx, r, sess.TenantID, model.RoleInventory)
			if err != nil {
				return err
			}
			lines = append(lines,
				model.DebitLine(cogs.ID, in.Cost, "cost of goods sold"),
				model.CreditLine(inv.ID, in.Cost, "cost of goods sold"))
		}

		e, err := s.journal.CreateEntryTx(ctx, r, sess, model.JournalEntry{
			Type: model.TypeInvoice, Date: in.Date, Description: "Sale to " + p.Name, Lines: lines,
		})
		if err != nil {
			return err
		}
		sale.Number = e.Number
		sale.EntryID = e.ID
		return r.InsertSale(ctx, sale)
	})
	if err != nil {
		s.log.Warn("sale rejected", "error", err)
		return model.Sale{}, err
	}
	s.log.Info("sale posted", "number", sale.Number, "amount", sale.Amount.StringFixed(2))
	return sale, nil
}

// PurchaseInput describes a vendor bill.
type PurchaseInput struct {
	PartnerID      string
	Date           time.Time
	Amount         decimal.Decimal
	DebitAccountID *int64 // defaults to the inventory role account
}

// Purchase posts a bill: Dr inventory or the given expense account, Cr
// accounts payable (open item).
func (s *Service) Purchase(ctx context.Context, sess session.Session, in PurchaseInput) (model.Purchase, error) {
	if err := session.Require(sess); err != nil {
		return model.Purchase{}, err
	}
	if in.PartnerID == "" {
		return model.Purchase{}, errs.MissingField("partner_id")
	}
	if err := checkAmount(in.Amount, in.Date); err != nil {
		return model.Purchase{}, err
	}

	pur := model.Purchase{
		ID:             uuid.NewString(),
		TenantID:       sess.TenantID,
		PartnerID:      in.PartnerID,
		Date:           in.Date,
		Amount:         in.Amount,
		DebitAccountID: in.DebitAccountID,
	}
	err := s.store.Atomic(ctx, func(ctx context.Context, r *store.Repo) error {
		p, err := partnerOf(ctx, r, sess.TenantID, in.PartnerID, vendors)
		if err != nil {
			return err
		}
		ap, err := byRole(ctx, r, sess.TenantID, model.RoleAccountsPayable)
		if err != nil {
			return err
		}
		debit, err := accountOrRole(ctx, r, sess.TenantID, in.DebitAccountID, model.RoleInventory,
			"be debited by a purchase", model.CategoryAsset, model.CategoryExpense, model.CategoryCostOfGoodsSold)
		if err != nil {
			return err
		}

		payable := model.CreditLine(ap.ID, in.Amount, "")
		payable.PartnerID = p.ID
		e, err := s.journal.CreateEntryTx(ctx, r, sess, model.JournalEntry{
			Type:        model.TypeBill,
			Date:        in.Date,
			Description: "Purchase from " + p.Name,
			Lines:       []model.LineItem{model.DebitLine(debit.ID, in.Amount, ""), payable},
		})
		if err != nil {
			return err
		}
		pur.Number = e.Number
		pur.EntryID = e.ID
		return r.InsertPurchase(ctx, pur)
	})
	if err != nil {
		s.log.Warn("purchase rejected", "error", err)
		return model.Purchase{}, err
	}
	s.log.Info("purchase posted", "number", pur.Number, "amount", pur.Amount.StringFixed(2))
	return pur, nil
}

// CreateValuationClass registers a group of stock items carried on an asset account.
func (s *Service) CreateValuationClass(ctx context.Context, sess session.Session, name string, inventoryAccountID int64) (model.ValuationClass, error) {
	if err := session.Require(sess); err != nil {
		return model.ValuationClass{}, err
	}
	if name == "" {
		return model.ValuationClass{}, errs.MissingField("name")
	}
	vc := model.ValuationClass{ID: uuid.NewString(), TenantID: sess.TenantID, Name: name, InventoryAccountID: inventoryAccountID}
	err := s.store.Atomic(ctx, func(ctx context.Context, r *store.Repo) error {
		a, err := r.GetAccount(ctx, sess.TenantID, inventoryAccountID)
		if err != nil {
			return err
		}
		if a.Category() != model.CategoryAsset {
			return errs.Validation("inventory account %s is not an asset account", a.Code)
		}
		return r.InsertValuationClass(ctx, vc)
	})
	if err != nil {
		return model.ValuationClass{}, err
	}
	return vc, nil
}

// InventoryInput describes opening stock brought into the business.
type InventoryInput struct {
	Name             string
	ValuationClassID string
	Quantity         decimal.Decimal
	PurchasePrice    decimal.Decimal
	Date             time.Time
}

// InitialInventory capitalizes opening stock: Dr the valuation class's
// inventory account, Cr owner's equity, for purchase price times quantity.
func (s *Service) InitialInventory(ctx context.Context, sess session.Session, in InventoryInput) (model.InventoryItem, error) {
	if err := session.Require(sess); err != nil {
		return model.InventoryItem{}, err
	}
	if in.Name == "" {
		return model.InventoryItem{}, errs.MissingField("name")
	}
	if in.ValuationClassID == "" {
		return model.InventoryItem{}, errs.MissingField("valuation_class_id")
	}
	item := model.InventoryItem{
		ID:               uuid.NewString(),
		TenantID:         sess.TenantID,
		Name:             in.Name,
		ValuationClassID: in.ValuationClassID,
		Quantity:         in.Quantity,
		PurchasePrice:    in.PurchasePrice,
	}
	if err := checkAmount(item.Value(), in.Date); err != nil {
		return model.InventoryItem{}, err
	}

	err := s.store.Atomic(ctx, func(ctx context.Context, r *store.Repo) error {
		vc, err := r.GetValuationClass(ctx, sess.TenantID, in.ValuationClassID)
		if err != nil {
			return err
		}
		inv, err := r.GetAccount(ctx, sess.TenantID, vc.InventoryAccountID)
		if err != nil {
			return err
		}
		equity, err := byRole(ctx, r, sess.TenantID, model.RoleOwnersEquity)
		if err != nil {
			return err
		}

		value := item.Value()
		e, err := s.journal.CreateEntryTx(ctx, r, sess, model.JournalEntry{
			Type:        model.TypeSpecial,
			Date:        in.Date,
			Description: "Initial inventory: " + in.Name,
			Lines: []model.LineItem{
				model.DebitLine(inv.ID, value, in.Name),
				model.CreditLine(equity.ID, value, in.Name),
			},
		})
		if err != nil {
			return err
		}
		item.EntryID = &e.ID
		return r.InsertInventoryItem(ctx, item)
	})
	if err != nil {
		s.log.Warn("inventory capitalization rejected", "item", in.Name, "error", err)
		return model.InventoryItem{}, err
	}
	s.log.Info("inventory capitalized", "item", item.Name, "value", item.Value().StringFixed(2))
	return item, nil
}

// Payments lists the tenant's payment documents.
func (s *Service) Payments(ctx context.Context, sess session.Session) ([]model.Payment, error) {
	if err := session.Require(sess); err != nil {
		return nil, err
	}
	return s.store.Reader().ListPayments(ctx, sess.TenantID)
}

// Sales lists the tenant's sale documents.
func (s *Service) Sales(ctx context.Context, sess session.Session) ([]model.Sale, error) {
	if err := session.Require(sess); err != nil {
		return nil, err
	}
	return s.store.Reader().ListSales(ctx, sess.TenantID)
}

// Purchases lists the tenant's purchase documents.
func (s *Service) Purchases(ctx context.Context, sess session.Session) ([]model.Purchase, error) {
	if err := session.Require(sess); err != nil {
		return nil, err
	}
	return s.store.Reader().ListPurchases(ctx, sess.TenantID)
}

// Inventory lists the tenant's capitalized stock items.
func (s *Service) Inventory(ctx context.Context, sess session.Session) ([]model.InventoryItem, error) {
	if err := session.Require(sess); err != nil {
		return nil, err
	}
	return s.store.Reader().ListInventoryItems(ctx, sess.TenantID)
}

var (
	customers = []model.PartnerType{model.PartnerCustomer, model.PartnerBoth}
	vendors   = []model.PartnerType{model.PartnerVendor, model.PartnerBoth}
)

func checkAmount(amount decimal.Decimal, date time.Time) error {
	if !amount.IsPositive() {
		return errs.Validation("amount %s must be positive", amount)
	}
	if date.IsZero() {
		return errs.MissingField("date")
	}
	return nil
}

func byRole(ctx context.Context, r *store.Repo, tenantID string, role model.SystemRole) (model.Account, error) {
	a, err := r.GetAccountByRole(ctx, tenantID, role)
	if err != nil {
		return model.Account{}, fmt.Errorf("resolving %s account: %w", role, err)
	}
	return a, nil
}

// accountOrRole returns the chosen account, or the role's account when none is
// chosen. A chosen account must belong to one of the allowed categories.
func accountOrRole(ctx context.Context, r *store.Repo, tenantID string, id *int64, role model.SystemRole, use string, allowed ...model.Category) (model.Account, error) {
	if id == nil {
		return byRole(ctx, r, tenantID, role)
	}
	a, err := r.GetAccount(ctx, tenantID, *id)
	if err != nil {
		return model.Account{}, err
	}
	if !slices.Contains(allowed, a.Category()) {
		return model.Account{}, errs.Validation("account %s (%s) cannot %s", a.Code, a.Category(), use)
	}
	return a, nil
}

func cashAccount(ctx context.Context, r *store.Repo, tenantID string, id int64) (model.Account, error) {
	if id == 0 {
		return byRole(ctx, r, tenantID, model.RoleCash)
	}
	a, err := r.GetAccount(ctx, tenantID, id)
	if err != nil {
		return model.Account{}, fmt.Errorf("cash account: %w", err)
	}
	if a.Category() != model.CategoryAsset {
		return model.Account{}, errs.Validation("account %s cannot receive or pay money", a.Code)
	}
	return a, nil
}

func partnerOf(ctx context.Context, r *store.Repo, tenantID, id string, allowed []model.PartnerType) (model.BusinessPartner, error) {
	p, err := r.GetPartner(ctx, tenantID, id)
	if err != nil {
		return model.BusinessPartner{}, err
	}
	for _, t := range allowed {
		if p.Type == t {
			return p, nil
		}
	}
	return model.BusinessPartner{}, errs.Validation("partner %s is a %s", p.Name, p.Type)
}
