package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/xopoww/canteen/database"
	"github.com/xopoww/canteen/types"
)

// Bounded retry for storage contention. Business failures are never
// retried here; the caller decides.
const (
	maxAttempts  = 3
	retryBackoff = 50 * time.Millisecond
)

// 	Run fn, retrying up to maxAttempts times while the failure is a
// storage contention error. Once the budget is spent the error surfaces
// wrapped as types.ErrTransient, which callers know is safe to retry.
func (s *Service) withRetry(op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = fn(); err == nil || !database.Transient(err) {
			return err
		}
		s.log.Warnf("Storage busy during %s (attempt %d/%d), retrying.", op, attempt, maxAttempts)
		time.Sleep(time.Duration(attempt) * retryBackoff)
	}
	return fmt.Errorf("%s: %w: %s", op, types.ErrTransient, err)
}

// 	Place an order: convert balance into a paid order record atomically.
//
// The item must exist and be available, and its text must not contain any of
// the account's declared allergens; both checks run before any money moves.
// The balance debit and the order creation then share one transaction, so a
// failure at either step leaves no debited-but-orderless state behind. The
// whole operation is safe to retry: nothing commits before the single
// transactional boundary.
func (s *Service) PlaceOrder(p Principal, itemID int, orderDate string) (*types.Order, error) {
	if err := s.require(p, types.RoleConsumer); err != nil {
		return nil, err
	}

	item, err := s.db.GetMenuItem(itemID)
	if err != nil {
		return nil, err
	}
	if !item.Available {
		return nil, fmt.Errorf("menu item %d: %w", itemID, types.ErrItemUnavailable)
	}

	account, err := s.db.GetAccount(p.AccountID)
	if err != nil {
		return nil, err
	}
	if tok := allergenHit(account.AllergenTokens(), item.Name+" "+item.Description); tok != "" {
		return nil, fmt.Errorf("%q: %w", tok, types.ErrAllergenConflict)
	}

	snap, err := s.db.SnapshotItem(itemID)
	if err != nil {
		return nil, err
	}

	var order *types.Order
	err = s.withRetry("place order", func() error {
		return s.db.WithTx(func(tx *sqlx.Tx) error {
			if _, err := s.db.Debit(p.AccountID, snap.Price, tx); err != nil {
				return err
			}
			var e error
			order, e = s.db.CreateOrder(p.AccountID, snap, orderDate, tx)
			return e
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// 	Fulfill an order: convert it into inventory depletion atomically.
//
// The deduction uses the recipe snapshot captured at order time, not the
// live menu entry. If any ingredient is short, nothing is deducted and the
// order stays placed so that fulfillment can be retried once stock is
// replenished. The deduction and the state transition share one transaction;
// the transition is a guarded update, so a concurrent or repeated attempt
// gets types.ErrAlreadyFulfilled and deducts nothing.
func (s *Service) FulfillOrder(p Principal, orderID int) (*types.Order, error) {
	if err := s.require(p, types.RoleStaff); err != nil {
		return nil, err
	}

	order, err := s.db.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order.State == types.OrderFulfilled {
		return nil, fmt.Errorf("order %d: %w", orderID, types.ErrAlreadyFulfilled)
	}

	var fulfilled *types.Order
	err = s.withRetry("fulfill order", func() error {
		return s.db.WithTx(func(tx *sqlx.Tx) error {
			if err := s.db.DeductMany(order.Snapshot.Recipe, tx); err != nil {
				return err
			}
			var e error
			fulfilled, e = s.db.MarkFulfilled(orderID, tx)
			return e
		})
	})
	if err != nil {
		return nil, err
	}
	return fulfilled, nil
}

// 	Find the first declared allergen token contained in the item text.
// Matching is a case-insensitive substring check, mirroring how allergens
// are written into free-form ingredient descriptions.
func allergenHit(tokens []string, text string) string {
	text = strings.ToLower(text)
	for _, tok := range tokens {
		if strings.Contains(text, tok) {
			return tok
		}
	}
	return ""
}
