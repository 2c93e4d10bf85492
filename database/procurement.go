package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/xopoww/canteen/types"
)

// 	Add a new purchase request in the pending state.
func (db *DB) CreatePurchaseRequest(staffID int, product string, qty decimal.Decimal, unit string) (*types.PurchaseRequest, error) {
	if product == "" {
		return nil, fmt.Errorf("%w: empty product name", ErrInvalid)
	}
	if !qty.IsPositive() {
		return nil, fmt.Errorf("%w: requested quantity must be positive", ErrInvalid)
	}
	res, err := db.Exec(`INSERT INTO "PurchaseRequests" (product, quantity, unit, status, requested_by) VALUES ($1, $2, $3, $4, $5)`,
		product, qty, unit, types.RequestPending, staffID)
	if err != nil {
		return nil, fmt.Errorf("insert into purchase requests: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	db.Debugf("Purchase request %d created: %s %s of %q.", id, qty, unit, product)
	return db.GetPurchaseRequest(int(id))
}

// 	Get a purchase request by its id.
func (db *DB) GetPurchaseRequest(id int) (*types.PurchaseRequest, error) {
	return db.getPurchaseRequest(db.DB, id)
}

func (db *DB) getPurchaseRequest(h sqlx.Ext, id int) (*types.PurchaseRequest, error) {
	var req types.PurchaseRequest
	err := sqlx.Get(h, &req, `SELECT * FROM "PurchaseRequests" WHERE id = $1`, id)
	switch {
	case err == nil:
		return &req, nil
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("purchase request %d: %w", id, types.ErrNotFound)
	default:
		return nil, err
	}
}

// 	Get list of purchase requests, oldest first.
// Oldest-first keeps the approval queue fair for staff awaiting restock.
// An empty status matches all requests.
func (db *DB) ListPurchaseRequests(status types.RequestStatus) ([]types.PurchaseRequest, error) {
	if status != "" && !types.ValidRequestStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalid, status)
	}
	r, err := db.Queryx(`SELECT * FROM "PurchaseRequests" WHERE ($1 = '' OR status = $1) ORDER BY created_at, id`, string(status))
	if err != nil {
		return nil, fmt.Errorf("select from purchase requests: %w", err)
	}
	defer func() {
		if e := r.Close(); e != nil {
			db.Errorf("Cannot close a result: %s", e)
		}
	}()

	reqs := make([]types.PurchaseRequest, 0)
	for r.Next() {
		var req types.PurchaseRequest
		if err = r.StructScan(&req); err != nil {
			return nil, fmt.Errorf("struct scan: %w", err)
		}
		reqs = append(reqs, req)
	}
	return reqs, r.Err()
}

// 	Approve a pending purchase request and credit the stock, all or nothing.
// The status flip is a guarded update on the pending state, so a repeated
// approval (including a client retry after a timeout) gets
// types.ErrAlreadyDecided and can never credit the stock twice. The flip and
// the inventory credit share one transaction: either the request is approved
// and the stock grows, or neither happens.
func (db *DB) ApprovePurchaseRequest(id, operatorID int) (*types.PurchaseRequest, error) {
	var req *types.PurchaseRequest
	err := db.WithTx(func(tx *sqlx.Tx) error {
		var err error
		if req, err = db.decideRequest(tx, id, operatorID, types.RequestApproved); err != nil {
			return err
		}
		return db.CreditStock(req.Product, req.Quantity, req.Unit, tx)
	})
	if err != nil {
		return nil, err
	}
	db.Infof("Purchase request %d approved by account %d.", id, operatorID)
	return req, nil
}

// 	Reject a pending purchase request.
// Terminal the same way approval is; no stock moves.
func (db *DB) RejectPurchaseRequest(id, operatorID int) (*types.PurchaseRequest, error) {
	var req *types.PurchaseRequest
	err := db.WithTx(func(tx *sqlx.Tx) error {
		var err error
		req, err = db.decideRequest(tx, id, operatorID, types.RequestRejected)
		return err
	})
	if err != nil {
		return nil, err
	}
	db.Infof("Purchase request %d rejected by account %d.", id, operatorID)
	return req, nil
}

func (db *DB) decideRequest(tx *sqlx.Tx, id, operatorID int, status types.RequestStatus) (*types.PurchaseRequest, error) {
	res, err := tx.Exec(`UPDATE "PurchaseRequests" SET status = $1, decided_by = $2, decided_at = $3 WHERE id = $4 AND status = $5`,
		status, operatorID, time.Now().UTC(), id, types.RequestPending)
	if err != nil {
		return nil, fmt.Errorf("update purchase requests: %w", err)
	}
	nrows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if nrows == 0 {
		req, err := db.getPurchaseRequest(tx, id)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("purchase request %d is %s: %w", req.ID, req.Status, types.ErrAlreadyDecided)
	}
	return db.getPurchaseRequest(tx, id)
}
