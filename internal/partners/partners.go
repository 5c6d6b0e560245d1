// Package partners manages customers and vendors. A partner's balance is
// only ever moved by journal postings against it.
package partners

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/cleared-dev/ledger/internal/errs"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/session"
	"github.com/cleared-dev/ledger/internal/store"
)

// Service creates and looks up business partners.
type Service struct {
	store *store.Store
	log   *slog.Logger
}

// NewService creates a partner Service.
func NewService(st *store.Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{store: st, log: log}
}

// NewPartner is the input to Create.
type NewPartner struct {
	Name                    string            `field:"name" validate:"required"`
	Type                    model.PartnerType `field:"type" validate:"required,oneof=customer vendor both"`
	ReconciliationAccountID *int64            `field:"reconciliation_account_id"`
}

// Create stores a partner with a zero balance.
func (s *Service) Create(ctx context.Context, sess session.Session, in NewPartner) (model.BusinessPartner, error) {
	if err := session.Require(sess); err != nil {
		return model.BusinessPartner{}, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := errs.Struct(in); err != nil {
		return model.BusinessPartner{}, err
	}

	p := model.BusinessPartner{
		ID:                      uuid.NewString(),
		TenantID:                sess.TenantID,
		Name:                    in.Name,
		Type:                    in.Type,
		ReconciliationAccountID: in.ReconciliationAccountID,
	}
	err := s.store.Atomic(ctx, func(ctx context.Context, r *store.Repo) error {
		if p.ReconciliationAccountID != nil {
			if _, err := r.GetAccount(ctx, sess.TenantID, *p.ReconciliationAccountID); err != nil {
				return fmt.Errorf("reconciliation account: %w", err)
			}
		}
		if err := r.InsertPartner(ctx, p); err != nil {
			return err
		}
		var err error
		p, err = r.GetPartner(ctx, sess.TenantID, p.ID)
		return err
	})
	if err != nil {
		return model.BusinessPartner{}, err
	}
	s.log.Info("partner created", "name", p.Name, "type", p.Type)
	return p, nil
}

// Get returns a partner by id.
func (s *Service) Get(ctx context.Context, sess session.Session, id string) (model.BusinessPartner, error) {
	if err := session.Require(sess); err != nil {
		return model.BusinessPartner{}, err
	}
	return s.store.Reader().GetPartner(ctx, sess.TenantID, id)
}

// List returns every partner of the tenant ordered by name.
func (s *Service) List(ctx context.Context, sess session.Session) ([]model.BusinessPartner, error) {
	if err := session.Require(sess); err != nil {
		return nil, err
	}
	return s.store.Reader().ListPartners(ctx, sess.TenantID)
}

// Find returns the partner whose name matches exactly, ignoring case.
func (s *Service) Find(ctx context.Context, sess session.Session, name string) (model.BusinessPartner, error) {
	all, err := s.List(ctx, sess)
	if err != nil {
		return model.BusinessPartner{}, err
	}
	for _, p := range all {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return model.BusinessPartner{}, errs.NotFound("business partner", name)
}
