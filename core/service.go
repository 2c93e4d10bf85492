// Package core is the operation surface of the canteen engine. It owns the
// role checks and the cross-component transactions; transports stay thin.
package core

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/xopoww/canteen/database"
	"github.com/xopoww/canteen/types"
)

// Principal is an authenticated caller: an account identity plus its role.
// How the token that produced it was issued is not this package's concern.
type Principal struct {
	AccountID int
	Role      types.Role
}

// Service exposes every operation of the canteen core. Each method performs
// its role check once, up front, against the closed role enum.
type Service struct {
	db  *database.DB
	log *logrus.Logger
}

func New(db *database.DB, log *logrus.Logger) *Service {
	return &Service{db: db, log: log}
}

// 	Check that the principal carries one of the allowed roles.
func (s *Service) require(p Principal, roles ...types.Role) error {
	if !types.ValidRole(p.Role) {
		return fmt.Errorf("unknown role %q: %w", p.Role, types.ErrUnauthorized)
	}
	for _, r := range roles {
		if p.Role == r {
			return nil
		}
	}
	return fmt.Errorf("role %s: %w", p.Role, types.ErrUnauthorized)
}

// ======== Accounts ========

// 	Register a new account.
// Password hashing happens upstream; the core only stores the hash.
func (s *Service) Register(name string, passhash []byte, role types.Role, allergens string, balance int64) (*types.Account, error) {
	return s.db.CreateAccount(name, passhash, role, allergens, balance)
}

// 	Look up an account by name (used by the session layer to authenticate).
func (s *Service) AccountByName(name string) (*types.Account, error) {
	return s.db.GetAccountByName(name)
}

// 	Look up an account by id.
func (s *Service) Account(id int) (*types.Account, error) {
	return s.db.GetAccount(id)
}

// ======== Menu ========

func (s *Service) ListMenu(p Principal, meal types.MealType, day string) ([]types.MenuItem, error) {
	if err := s.require(p, types.RoleConsumer, types.RoleStaff, types.RoleOperator); err != nil {
		return nil, err
	}
	return s.db.ListMenuItems(meal, day)
}

func (s *Service) AddMenuItem(p Principal, item *types.MenuItem) (*types.MenuItem, error) {
	if err := s.require(p, types.RoleStaff, types.RoleOperator); err != nil {
		return nil, err
	}
	return s.db.AddMenuItem(item)
}

func (s *Service) UpdateMenuItem(p Principal, item *types.MenuItem) (*types.MenuItem, error) {
	if err := s.require(p, types.RoleStaff, types.RoleOperator); err != nil {
		return nil, err
	}
	return s.db.UpdateMenuItem(item)
}

// ======== Orders ========

// 	Get list of orders for the account.
// A consumer only ever sees their own orders regardless of the id asked for;
// an operator may inspect any account.
func (s *Service) ListOrders(p Principal, accountID int) ([]types.Order, error) {
	if err := s.require(p, types.RoleConsumer, types.RoleOperator); err != nil {
		return nil, err
	}
	if p.Role == types.RoleConsumer {
		accountID = p.AccountID
	}
	return s.db.ListOrdersByAccount(accountID)
}

// ======== Inventory ========

func (s *Service) ListInventory(p Principal) ([]types.InventoryItem, error) {
	if err := s.require(p, types.RoleStaff, types.RoleOperator); err != nil {
		return nil, err
	}
	return s.db.ListInventory()
}

// 	Set the absolute stock quantity of a product, bypassing recipe logic.
func (s *Service) AdjustInventory(p Principal, product string, qty decimal.Decimal, unit string) (*types.InventoryItem, error) {
	if err := s.require(p, types.RoleOperator); err != nil {
		return nil, err
	}
	return s.db.AdjustStock(product, qty, unit)
}

// ======== Procurement ========

func (s *Service) CreatePurchaseRequest(p Principal, product string, qty decimal.Decimal, unit string) (*types.PurchaseRequest, error) {
	if err := s.require(p, types.RoleStaff); err != nil {
		return nil, err
	}
	return s.db.CreatePurchaseRequest(p.AccountID, product, qty, unit)
}

func (s *Service) ListPurchaseRequests(p Principal, status types.RequestStatus) ([]types.PurchaseRequest, error) {
	if err := s.require(p, types.RoleOperator); err != nil {
		return nil, err
	}
	return s.db.ListPurchaseRequests(status)
}

// 	Approve a pending purchase request, crediting stock exactly once.
func (s *Service) ApprovePurchaseRequest(p Principal, id int) (*types.PurchaseRequest, error) {
	if err := s.require(p, types.RoleOperator); err != nil {
		return nil, err
	}
	var req *types.PurchaseRequest
	err := s.withRetry("approve purchase request", func() error {
		var e error
		req, e = s.db.ApprovePurchaseRequest(id, p.AccountID)
		return e
	})
	return req, err
}

func (s *Service) RejectPurchaseRequest(p Principal, id int) (*types.PurchaseRequest, error) {
	if err := s.require(p, types.RoleOperator); err != nil {
		return nil, err
	}
	var req *types.PurchaseRequest
	err := s.withRetry("reject purchase request", func() error {
		var e error
		req, e = s.db.RejectPurchaseRequest(id, p.AccountID)
		return e
	})
	return req, err
}

// ======== Reports ========

func (s *Service) DailyReport(p Principal, date string) (*types.DailyReport, error) {
	if err := s.require(p, types.RoleOperator); err != nil {
		return nil, err
	}
	return s.db.DailyReport(date)
}

// ======== Reviews ========

func (s *Service) AddReview(p Principal, itemID, rating int, comment string) (*types.Review, error) {
	if err := s.require(p, types.RoleConsumer); err != nil {
		return nil, err
	}
	return s.db.AddReview(p.AccountID, itemID, rating, comment)
}

// 	Get list of reviews for an item; a zero itemID asks for all reviews,
// which only an operator may do.
func (s *Service) ListReviews(p Principal, itemID int) ([]types.Review, error) {
	if itemID == 0 {
		if err := s.require(p, types.RoleOperator); err != nil {
			return nil, err
		}
	} else if err := s.require(p, types.RoleConsumer, types.RoleStaff, types.RoleOperator); err != nil {
		return nil, err
	}
	return s.db.ListReviews(itemID)
}
