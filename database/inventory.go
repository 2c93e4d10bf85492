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

// 	Get list of all stocked products, ordered by product name.
func (db *DB) ListInventory() ([]types.InventoryItem, error) {
	r, err := db.Queryx(`SELECT * FROM "Inventory" ORDER BY product`)
	if err != nil {
		return nil, fmt.Errorf("select from inventory: %w", err)
	}
	defer func() {
		if e := r.Close(); e != nil {
			db.Errorf("Cannot close a result: %s", e)
		}
	}()

	items := make([]types.InventoryItem, 0)
	for r.Next() {
		var item types.InventoryItem
		if err = r.StructScan(&item); err != nil {
			return nil, fmt.Errorf("struct scan: %w", err)
		}
		items = append(items, item)
	}
	db.Tracef("Got %d inventory items.", len(items))
	return items, r.Err()
}

// 	Get a stocked product by its name.
func (db *DB) GetInventoryItem(product string) (*types.InventoryItem, error) {
	return db.getInventoryItem(db.DB, product)
}

func (db *DB) getInventoryItem(h sqlx.Ext, product string) (*types.InventoryItem, error) {
	var item types.InventoryItem
	err := sqlx.Get(h, &item, `SELECT * FROM "Inventory" WHERE product = $1`, product)
	switch {
	case err == nil:
		return &item, nil
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("product %q: %w", product, types.ErrNotFound)
	default:
		return nil, err
	}
}

// 	Add qty to the quantity on hand of the product.
// If the product is not stocked yet, its row is created with a zero base
// quantity (the case of a procurement introducing a new product). If tx is
// not nil, the read and the write are part of that transaction; otherwise a
// fresh one is opened. Quantities are decimals stored as text, so the
// check-and-set happens here rather than in a guarded SQL update; the
// immediate transaction makes it atomic all the same.
func (db *DB) CreditStock(product string, qty decimal.Decimal, unit string, tx *sqlx.Tx) error {
	if tx == nil {
		return db.WithTx(func(tx *sqlx.Tx) error {
			return db.CreditStock(product, qty, unit, tx)
		})
	}
	if product == "" {
		return fmt.Errorf("%w: empty product name", ErrInvalid)
	}
	if qty.IsNegative() {
		return fmt.Errorf("%w: negative credit quantity", ErrInvalid)
	}

	item, err := db.getInventoryItem(tx, product)
	switch {
	case err == nil:
		if unit == "" {
			unit = item.Unit
		}
		_, err = tx.Exec(`UPDATE "Inventory" SET quantity = $1, unit = $2, updated_at = $3 WHERE product = $4`,
			item.Quantity.Add(qty), unit, time.Now().UTC(), product)
		if err != nil {
			return fmt.Errorf("update inventory: %w", err)
		}
	case errors.Is(err, types.ErrNotFound):
		_, err = tx.Exec(`INSERT INTO "Inventory" (product, quantity, unit) VALUES ($1, $2, $3)`,
			product, qty, unit)
		if err != nil {
			return fmt.Errorf("insert into inventory: %w", err)
		}
	default:
		return err
	}
	db.Debugf("Credited %s %s of %q to stock.", qty, unit, product)
	return nil
}

// 	Subtract qty from the quantity on hand of the product.
// Returns types.ErrInsufficientStock (with no mutation) if the product is
// missing or the quantity on hand is smaller than qty. Takes an optional
// transaction the same way CreditStock does.
func (db *DB) DeductStock(product string, qty decimal.Decimal, tx *sqlx.Tx) error {
	if tx == nil {
		return db.WithTx(func(tx *sqlx.Tx) error {
			return db.DeductStock(product, qty, tx)
		})
	}
	if qty.IsNegative() {
		return fmt.Errorf("%w: negative deduct quantity", ErrInvalid)
	}

	item, err := db.getInventoryItem(tx, product)
	switch {
	case err == nil:
		break
	case errors.Is(err, types.ErrNotFound):
		// never stocked counts as zero on hand
		return fmt.Errorf("product %q: %w", product, types.ErrInsufficientStock)
	default:
		return err
	}
	if item.Quantity.LessThan(qty) {
		return fmt.Errorf("product %q: %w", product, types.ErrInsufficientStock)
	}
	_, err = tx.Exec(`UPDATE "Inventory" SET quantity = $1, updated_at = $2 WHERE product = $3`,
		item.Quantity.Sub(qty), time.Now().UTC(), product)
	if err != nil {
		return fmt.Errorf("update inventory: %w", err)
	}
	return nil
}

// 	Subtract every line from stock, all or nothing.
// If any line cannot be satisfied, the whole transaction is rolled back and
// the error names the first failing product. Lines are processed in order.
func (db *DB) DeductMany(lines []types.RecipeLine, tx *sqlx.Tx) error {
	if tx == nil {
		return db.WithTx(func(tx *sqlx.Tx) error {
			return db.DeductMany(lines, tx)
		})
	}
	for _, line := range lines {
		if err := db.DeductStock(line.Product, line.Quantity, tx); err != nil {
			return err
		}
	}
	return nil
}

// 	Set the absolute quantity on hand of the product.
// This is the operator override: it bypasses recipe logic entirely and
// creates the row if the product is not stocked yet.
func (db *DB) AdjustStock(product string, qty decimal.Decimal, unit string) (*types.InventoryItem, error) {
	if qty.IsNegative() {
		return nil, fmt.Errorf("%w: quantity must be non-negative", ErrInvalid)
	}
	err := db.WithTx(func(tx *sqlx.Tx) error {
		item, err := db.getInventoryItem(tx, product)
		switch {
		case err == nil:
			if unit == "" {
				unit = item.Unit
			}
			_, err = tx.Exec(`UPDATE "Inventory" SET quantity = $1, unit = $2, updated_at = $3 WHERE product = $4`,
				qty, unit, time.Now().UTC(), product)
			if err != nil {
				return fmt.Errorf("update inventory: %w", err)
			}
			return nil
		case errors.Is(err, types.ErrNotFound):
			_, err = tx.Exec(`INSERT INTO "Inventory" (product, quantity, unit) VALUES ($1, $2, $3)`,
				product, qty, unit)
			if err != nil {
				return fmt.Errorf("insert into inventory: %w", err)
			}
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	db.Infof("Stock of %q set to %s by operator override.", product, qty)
	return db.GetInventoryItem(product)
}
