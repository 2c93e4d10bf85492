package database

import (
	"fmt"

	"github.com/xopoww/canteen/types"
)

// 	Add a review for a menu item.
// Only items the account has actually received (a fulfilled order exists)
// can be reviewed; otherwise types.ErrUnauthorized is returned.
func (db *DB) AddReview(accountID, itemID, rating int, comment string) (*types.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalid)
	}
	if _, err := db.GetMenuItem(itemID); err != nil {
		return nil, err
	}
	received, err := db.HasFulfilledOrder(accountID, itemID)
	if err != nil {
		return nil, err
	}
	if !received {
		return nil, fmt.Errorf("item %d not received by account %d: %w", itemID, accountID, types.ErrUnauthorized)
	}

	res, err := db.Exec(`INSERT INTO "Reviews" (account_id, item_id, rating, comment) VALUES ($1, $2, $3, $4)`,
		accountID, itemID, rating, comment)
	if err != nil {
		return nil, fmt.Errorf("insert into reviews: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	var review types.Review
	if err := db.Get(&review, `SELECT * FROM "Reviews" WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("select from reviews: %w", err)
	}
	db.Debugf("Account %d rated item %d: %d/5.", accountID, itemID, rating)
	return &review, nil
}

// 	Get list of reviews. A zero itemID matches every item.
func (db *DB) ListReviews(itemID int) ([]types.Review, error) {
	r, err := db.Queryx(`SELECT * FROM "Reviews" WHERE ($1 = 0 OR item_id = $1) ORDER BY created_at DESC, id DESC`, itemID)
	if err != nil {
		return nil, fmt.Errorf("select from reviews: %w", err)
	}
	defer func() {
		if e := r.Close(); e != nil {
			db.Errorf("Cannot close a result: %s", e)
		}
	}()

	reviews := make([]types.Review, 0)
	for r.Next() {
		var review types.Review
		if err = r.StructScan(&review); err != nil {
			return nil, fmt.Errorf("struct scan: %w", err)
		}
		reviews = append(reviews, review)
	}
	return reviews, r.Err()
}
