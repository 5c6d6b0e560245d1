package accounts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/cleared-dev/ledger/internal/balance"
	"github.com/cleared-dev/ledger/internal/errs"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/session"
	"github.com/cleared-dev/ledger/internal/store"
)

// Service manages a tenant's chart of accounts.
type Service struct {
	store *store.Store
	log   *slog.Logger
}

// NewService creates a Service over a store.
func NewService(st *store.Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{store: st, log: log}
}

// NewAccount is the input to Create.
type NewAccount struct {
	Code        string            `field:"code" validate:"required"`
	Name        string            `field:"name" validate:"required"`
	Type        model.AccountType `field:"type" validate:"required"`
	Role        model.SystemRole  `field:"role"`
	ParentID    *int64            `field:"parent_id"`
	Description string            `field:"description"`
}

// Create validates and stores a new active account with a zero balance.
func (s *Service) Create(ctx context.Context, sess session.Session, in NewAccount) (model.Account, error) {
	if err := session.Require(sess); err != nil {
		return model.Account{}, err
	}
	if err := checkNewAccount(in); err != nil {
		return model.Account{}, err
	}

	var created model.Account
	err := s.store.Atomic(ctx, func(ctx context.Context, r *store.Repo) error {
		var err error
		created, err = insert(ctx, r, sess.TenantID, in)
		return err
	})
	if err != nil {
		s.log.Warn("account rejected", "code", in.Code, "error", err)
		return model.Account{}, err
	}
	s.log.Info("account created", "code", created.Code, "type", created.Type)
	return created, nil
}

func checkNewAccount(in NewAccount) error {
	if err := errs.Struct(in); err != nil {
		return err
	}
	if _, err := model.ParseAccountType(string(in.Type)); err != nil {
		return errs.Validation("%v", err)
	}
	if _, err := model.ParseSystemRole(string(in.Role)); err != nil {
		return errs.Validation("%v", err)
	}
	if !model.ValidateAccountCode(in.Code, in.Type) {
		cat := model.CategoryFor(in.Type)
		return errs.Validation("account code %s must start with %s for %s accounts", in.Code, cat.Prefix(), cat)
	}
	return nil
}

// insert runs inside an open write. Duplicate codes and roles surface as
// ErrValidationFailed from the unique constraints.
func insert(ctx context.Context, r *store.Repo, tenantID string, in NewAccount) (model.Account, error) {
	if in.ParentID != nil {
		if _, err := r.GetAccount(ctx, tenantID, *in.ParentID); err != nil {
			return model.Account{}, fmt.Errorf("parent account: %w", err)
		}
	}
	id, err := r.InsertAccount(ctx, model.Account{
		TenantID:    tenantID,
		Code:        in.Code,
		Name:        in.Name,
		Description: in.Description,
		Type:        in.Type,
		Role:        in.Role,
		IsActive:    true,
		ParentID:    in.ParentID,
	})
	if err != nil {
		return model.Account{}, err
	}
	return r.GetAccount(ctx, tenantID, id)
}

// Get returns an account by id.
func (s *Service) Get(ctx context.Context, sess session.Session, id int64) (model.Account, error) {
	if err := session.Require(sess); err != nil {
		return model.Account{}, err
	}
	return s.store.Reader().GetAccount(ctx, sess.TenantID, id)
}

// ByCode returns an account by code.
func (s *Service) ByCode(ctx context.Context, sess session.Session, code string) (model.Account, error) {
	if err := session.Require(sess); err != nil {
		return model.Account{}, err
	}
	return s.store.Reader().GetAccountByCode(ctx, sess.TenantID, code)
}

// ByRole returns the account carrying a system role.
func (s *Service) ByRole(ctx context.Context, sess session.Session, role model.SystemRole) (model.Account, error) {
	if err := session.Require(sess); err != nil {
		return model.Account{}, err
	}
	return s.store.Reader().GetAccountByRole(ctx, sess.TenantID, role)
}

// ByCategory returns every account whose type falls in the category.
func (s *Service) ByCategory(ctx context.Context, sess session.Session, cat model.Category) ([]model.Account, error) {
	if err := session.Require(sess); err != nil {
		return nil, err
	}
	return s.store.Reader().ListAccounts(ctx, store.AccountFilter{TenantID: sess.TenantID, Types: TypesIn(cat)})
}

// List returns the whole chart ordered by code.
func (s *Service) List(ctx context.Context, sess session.Session) ([]model.Account, error) {
	if err := session.Require(sess); err != nil {
		return nil, err
	}
	return s.store.Reader().ListAccounts(ctx, store.AccountFilter{TenantID: sess.TenantID})
}

// UpdateMetadata changes name, description and active flag. Code, type and
// balance are not editable.
func (s *Service) UpdateMetadata(ctx context.Context, sess session.Session, id int64, name, description string, active bool) error {
	if err := session.Require(sess); err != nil {
		return err
	}
	if name == "" {
		return errs.MissingField("name")
	}
	return s.store.Atomic(ctx, func(ctx context.Context, r *store.Repo) error {
		a, err := r.GetAccount(ctx, sess.TenantID, id)
		if err != nil {
			return err
		}
		a.Name, a.Description, a.IsActive = name, description, active
		return r.UpdateAccountMetadata(ctx, a)
	})
}

// Delete removes an account whose balance is within DeletionTolerance of zero.
// Accounts still referenced by line items, partners or children are refused
// by the store.
func (s *Service) Delete(ctx context.Context, sess session.Session, id int64) error {
	if err := session.Require(sess); err != nil {
		return err
	}
	err := s.store.Atomic(ctx, func(ctx context.Context, r *store.Repo) error {
		a, err := r.GetAccount(ctx, sess.TenantID, id)
		if err != nil {
			return err
		}
		if !balance.CanDelete(a.Balance) {
			return errs.Validation("account %s has balance %s", a.Code, a.Balance)
		}
		return r.DeleteAccount(ctx, sess.TenantID, id)
	})
	if err != nil {
		return err
	}
	s.log.Info("account deleted", "id", id)
	return nil
}

// Seed installs DefaultChart for the session's tenant. Accounts whose code
// already exists are skipped, so seeding twice is harmless. It returns the
// number of accounts created.
func (s *Service) Seed(ctx context.Context, sess session.Session) (int, error) {
	if err := session.Require(sess); err != nil {
		return 0, err
	}
	return s.importAccounts(ctx, sess, DefaultChart(sess.TenantID), nil)
}

// Import creates the given accounts in one write, skipping existing codes.
// parentCodes maps an account code to the code of its parent; parents must be
// created earlier in the slice or already exist.
func (s *Service) Import(ctx context.Context, sess session.Session, accounts []model.Account, parentCodes map[string]string) (int, error) {
	if err := session.Require(sess); err != nil {
		return 0, err
	}
	return s.importAccounts(ctx, sess, accounts, parentCodes)
}

func (s *Service) importAccounts(ctx context.Context, sess session.Session, accounts []model.Account, parentCodes map[string]string) (int, error) {
	created := 0
	err := s.store.Atomic(ctx, func(ctx context.Context, r *store.Repo) error {
		created = 0
		for _, a := range accounts {
			_, err := r.GetAccountByCode(ctx, sess.TenantID, a.Code)
			if err == nil {
				continue
			}
			if !errors.Is(err, errs.ErrDataNotFound) {
				return err
			}

			in := NewAccount{Code: a.Code, Name: a.Name, Type: a.Type, Role: a.Role, Description: a.Description}
			if pc := parentCodes[a.Code]; pc != "" {
				parent, err := r.GetAccountByCode(ctx, sess.TenantID, pc)
				if err != nil {
					return fmt.Errorf("account %s parent: %w", a.Code, err)
				}
				in.ParentID = &parent.ID
			}
			if err := checkNewAccount(in); err != nil {
				return fmt.Errorf("account %s: %w", a.Code, err)
			}
			if _, err := insert(ctx, r, sess.TenantID, in); err != nil {
				return fmt.Errorf("account %s: %w", a.Code, err)
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("accounts imported", "created", created, "skipped", len(accounts)-created)
	return created, nil
}

// NextCode suggests the next free code in a category.
func (s *Service) NextCode(ctx context.Context, sess session.Session, cat model.Category) (string, error) {
	existing, err := s.ByCategory(ctx, sess, cat)
	if err != nil {
		return "", err
	}
	code := SuggestCode(existing, cat)
	if code == "" {
		return "", errs.Validation("no free account codes left in category %s", cat)
	}
	return code, nil
}

// TypesIn returns the account types that belong to a category.
func TypesIn(cat model.Category) []model.AccountType {
	var types []model.AccountType
	for _, t := range model.AccountTypes {
		if model.CategoryFor(t) == cat {
			types = append(types, t)
		}
	}
	return types
}
