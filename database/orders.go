package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/xopoww/canteen/types"
)

// orderRow mirrors the Orders table; the captured snapshot is stored
// as a JSON column.
type orderRow struct {
	ID          int              `db:"id"`
	AccountID   int              `db:"account_id"`
	ItemID      int              `db:"item_id"`
	Price       int64            `db:"price"`
	Snapshot    string           `db:"snapshot"`
	OrderDate   string           `db:"order_date"`
	State       types.OrderState `db:"state"`
	CreatedAt   time.Time        `db:"created_at"`
	FulfilledAt *time.Time       `db:"fulfilled_at"`
}

func (r *orderRow) toOrder() (*types.Order, error) {
	order := &types.Order{
		ID:          r.ID,
		AccountID:   r.AccountID,
		ItemID:      r.ItemID,
		Price:       r.Price,
		OrderDate:   r.OrderDate,
		State:       r.State,
		CreatedAt:   r.CreatedAt,
		FulfilledAt: r.FulfilledAt,
	}
	if err := json.Unmarshal([]byte(r.Snapshot), &order.Snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return order, nil
}

// 	Record a new order in the placed state.
// The snapshot (captured price and recipe) is marshalled into the order row,
// so the order stays immune to later menu edits. Takes an optional
// transaction so the coordinator can pair it with the balance debit.
func (db *DB) CreateOrder(accountID int, snap *types.ItemSnapshot, orderDate string, tx *sqlx.Tx) (*types.Order, error) {
	if tx == nil {
		var order *types.Order
		err := db.WithTx(func(tx *sqlx.Tx) error {
			var e error
			order, e = db.CreateOrder(accountID, snap, orderDate, tx)
			return e
		})
		return order, err
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	res, err := tx.Exec(`INSERT INTO "Orders" (account_id, item_id, price, snapshot, order_date, state, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		accountID, snap.ItemID, snap.Price, string(raw), orderDate, types.OrderPlaced, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("insert into orders: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	db.Infof("An order (id %d) successfully placed by account %d.", id, accountID)
	return db.getOrder(tx, int(id))
}

// 	Get an order by its id.
func (db *DB) GetOrder(id int) (*types.Order, error) {
	return db.getOrder(db.DB, id)
}

func (db *DB) getOrder(h sqlx.Ext, id int) (*types.Order, error) {
	var row orderRow
	err := sqlx.Get(h, &row, `SELECT * FROM "Orders" WHERE id = $1`, id)
	switch {
	case err == nil:
		return row.toOrder()
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("order %d: %w", id, types.ErrNotFound)
	default:
		return nil, err
	}
}

// 	Get list of all orders belonging to the account, most recent first.
func (db *DB) ListOrdersByAccount(accountID int) ([]types.Order, error) {
	r, err := db.Queryx(`SELECT * FROM "Orders" WHERE account_id = $1 ORDER BY created_at DESC, id DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("select from orders: %w", err)
	}
	defer func() {
		if e := r.Close(); e != nil {
			db.Errorf("Cannot close a result: %s", e)
		}
	}()

	orders := make([]types.Order, 0)
	for r.Next() {
		var row orderRow
		if err = r.StructScan(&row); err != nil {
			return nil, fmt.Errorf("struct scan: %w", err)
		}
		order, err := row.toOrder()
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	db.Tracef("Got %d orders for account %d.", len(orders), accountID)
	return orders, r.Err()
}

// 	Transition an order from placed to fulfilled.
// The state check and the transition are a single guarded update, so of two
// concurrent attempts exactly one succeeds and the other gets
// types.ErrAlreadyFulfilled. Retrying a fulfilled order reports the same
// terminal error and applies no side effects.
func (db *DB) MarkFulfilled(id int, tx *sqlx.Tx) (*types.Order, error) {
	if tx == nil {
		var order *types.Order
		err := db.WithTx(func(tx *sqlx.Tx) error {
			var e error
			order, e = db.MarkFulfilled(id, tx)
			return e
		})
		return order, err
	}

	res, err := tx.Exec(`UPDATE "Orders" SET state = $1, fulfilled_at = $2 WHERE id = $3 AND state = $4`,
		types.OrderFulfilled, time.Now().UTC(), id, types.OrderPlaced)
	if err != nil {
		return nil, fmt.Errorf("update orders: %w", err)
	}
	nrows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if nrows == 0 {
		order, err := db.getOrder(tx, id)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("order %d: %w", order.ID, types.ErrAlreadyFulfilled)
	}
	db.Infof("Order %d fulfilled.", id)
	return db.getOrder(tx, id)
}

// 	Check whether the account has at least one fulfilled order of the item.
func (db *DB) HasFulfilledOrder(accountID, itemID int) (bool, error) {
	var n int
	err := db.Get(&n, `SELECT COUNT(*) FROM "Orders" WHERE account_id = $1 AND item_id = $2 AND state = $3`,
		accountID, itemID, types.OrderFulfilled)
	if err != nil {
		return false, fmt.Errorf("select from orders: %w", err)
	}
	return n > 0, nil
}

// 	Aggregate one day of ordering activity.
// Revenue sums the captured order prices, not the live menu prices, so menu
// edits after ordering never change a historical report.
func (db *DB) DailyReport(date string) (*types.DailyReport, error) {
	report := &types.DailyReport{Date: date}
	err := db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(price), 0) FROM "Orders" WHERE order_date = $1`, date).
		Scan(&report.OrderCount, &report.TotalRevenue)
	if err != nil {
		return nil, fmt.Errorf("select order totals: %w", err)
	}
	err = db.Get(&report.FulfilledCount, `SELECT COUNT(*) FROM "Orders" WHERE order_date = $1 AND state = $2`,
		date, types.OrderFulfilled)
	if err != nil {
		return nil, fmt.Errorf("select fulfilled count: %w", err)
	}
	if report.OrderCount > 0 {
		report.AttendanceRate = float64(report.FulfilledCount) / float64(report.OrderCount) * 100
	}
	return report, nil
}
