package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/xopoww/canteen/types"
)

// 	Add a new menu item (with its recipe) to the database.
// Validates the price, the meal type and the recipe quantities.
// On success, returns the item with its id filled in.
func (db *DB) AddMenuItem(item *types.MenuItem) (*types.MenuItem, error) {
	if item.Price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalid)
	}
	if !types.ValidMealType(item.MealType) {
		return nil, fmt.Errorf("%w: unknown meal type %q", ErrInvalid, item.MealType)
	}
	for _, line := range item.Recipe {
		if line.Product == "" {
			return nil, fmt.Errorf("%w: recipe line with empty product", ErrInvalid)
		}
		if line.Quantity.IsNegative() {
			return nil, fmt.Errorf("%w: negative recipe quantity for %q", ErrInvalid, line.Product)
		}
	}

	err := db.WithTx(func(tx *sqlx.Tx) error {
		res, err := tx.Exec(`INSERT INTO "MenuItems" (name, description, price, meal_type, serve_date, available) VALUES ($1, $2, $3, $4, $5, $6)`,
			item.Name, item.Description, item.Price, item.MealType, item.ServeDate, item.Available)
		if err != nil {
			return fmt.Errorf("insert into menu items: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		item.ID = int(id)
		for i, line := range item.Recipe {
			_, err = tx.Exec(`INSERT INTO "RecipeLines" (item_id, line_no, product, quantity) VALUES ($1, $2, $3, $4)`,
				item.ID, i, line.Product, line.Quantity)
			if err != nil {
				return fmt.Errorf("insert into recipe lines: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	db.Debugf("Added menu item %q (id %d) with %d recipe lines.", item.Name, item.ID, len(item.Recipe))
	return item, nil
}

// 	Get list of menu items, ordered by id ascending.
// Both filters are optional: an empty meal type matches all items and an
// empty day matches every serve date.
func (db *DB) ListMenuItems(meal types.MealType, day string) ([]types.MenuItem, error) {
	query := `SELECT * FROM "MenuItems" WHERE ($1 = '' OR meal_type = $1) AND ($2 = '' OR serve_date = $2) ORDER BY id`
	r, err := db.Queryx(query, string(meal), day)
	if err != nil {
		return nil, fmt.Errorf("select from menu items: %w", err)
	}
	defer func() {
		if e := r.Close(); e != nil {
			db.Errorf("Cannot close a result: %s", e)
		}
	}()

	items := make([]types.MenuItem, 0)
	for r.Next() {
		var item types.MenuItem
		if err = r.StructScan(&item); err != nil {
			return nil, fmt.Errorf("struct scan: %w", err)
		}
		items = append(items, item)
	}
	if err = r.Err(); err != nil {
		return nil, err
	}

	for i := range items {
		recipe, err := db.getRecipe(db.DB, items[i].ID)
		if err != nil {
			return nil, fmt.Errorf("get recipe: %w", err)
		}
		items[i].Recipe = recipe
	}
	db.Tracef("Got total of %d menu items.", len(items))
	return items, nil
}

// 	Get a menu item (with its recipe) by its id.
func (db *DB) GetMenuItem(id int) (*types.MenuItem, error) {
	var item types.MenuItem
	err := db.QueryRowx(`SELECT * FROM "MenuItems" WHERE id = $1`, id).StructScan(&item)
	switch {
	case err == nil:
		break
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("menu item %d: %w", id, types.ErrNotFound)
	default:
		return nil, err
	}
	recipe, err := db.getRecipe(db.DB, id)
	if err != nil {
		return nil, fmt.Errorf("get recipe: %w", err)
	}
	item.Recipe = recipe
	return &item, nil
}

// 	Replace the stored fields (and recipe) of a menu item.
// Orders placed before the edit keep their captured snapshot; the edit only
// affects orders placed afterwards.
func (db *DB) UpdateMenuItem(item *types.MenuItem) (*types.MenuItem, error) {
	if item.Price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalid)
	}
	if !types.ValidMealType(item.MealType) {
		return nil, fmt.Errorf("%w: unknown meal type %q", ErrInvalid, item.MealType)
	}
	for _, line := range item.Recipe {
		if line.Quantity.IsNegative() {
			return nil, fmt.Errorf("%w: negative recipe quantity for %q", ErrInvalid, line.Product)
		}
	}

	err := db.WithTx(func(tx *sqlx.Tx) error {
		res, err := tx.Exec(`UPDATE "MenuItems" SET name = $1, description = $2, price = $3, meal_type = $4, serve_date = $5, available = $6 WHERE id = $7`,
			item.Name, item.Description, item.Price, item.MealType, item.ServeDate, item.Available, item.ID)
		if err != nil {
			return fmt.Errorf("update menu items: %w", err)
		}
		nrows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if nrows == 0 {
			return fmt.Errorf("menu item %d: %w", item.ID, types.ErrNotFound)
		}
		if _, err = tx.Exec(`DELETE FROM "RecipeLines" WHERE item_id = $1`, item.ID); err != nil {
			return fmt.Errorf("delete from recipe lines: %w", err)
		}
		for i, line := range item.Recipe {
			_, err = tx.Exec(`INSERT INTO "RecipeLines" (item_id, line_no, product, quantity) VALUES ($1, $2, $3, $4)`,
				item.ID, i, line.Product, line.Quantity)
			if err != nil {
				return fmt.Errorf("insert into recipe lines: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return db.GetMenuItem(item.ID)
}

// 	Set the availability flag of a menu item.
func (db *DB) SetItemAvailability(id int, available bool) error {
	res, err := db.Exec(`UPDATE "MenuItems" SET available = $1 WHERE id = $2`, available, id)
	if err != nil {
		return fmt.Errorf("update menu items: %w", err)
	}
	nrows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if nrows == 0 {
		return fmt.Errorf("menu item %d: %w", id, types.ErrNotFound)
	}
	return nil
}

// 	Take an immutable copy of the item's current name, price and recipe.
// Orders embed the snapshot so that later menu edits never change the cost
// or stock impact of already placed orders.
func (db *DB) SnapshotItem(id int) (*types.ItemSnapshot, error) {
	item, err := db.GetMenuItem(id)
	if err != nil {
		return nil, err
	}
	snap := &types.ItemSnapshot{
		ItemID: item.ID,
		Name:   item.Name,
		Price:  item.Price,
		Recipe: make([]types.RecipeLine, len(item.Recipe)),
	}
	copy(snap.Recipe, item.Recipe)
	return snap, nil
}

func (db *DB) getRecipe(h sqlx.Ext, itemID int) ([]types.RecipeLine, error) {
	r, err := h.Queryx(`SELECT product, quantity FROM "RecipeLines" WHERE item_id = $1 ORDER BY line_no`, itemID)
	if err != nil {
		return nil, fmt.Errorf("select from recipe lines: %w", err)
	}
	defer func() {
		if e := r.Close(); e != nil {
			db.Errorf("Cannot close a result: %s", e)
		}
	}()

	lines := make([]types.RecipeLine, 0)
	for r.Next() {
		var line types.RecipeLine
		if err = r.StructScan(&line); err != nil {
			return nil, fmt.Errorf("struct scan: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, r.Err()
}
