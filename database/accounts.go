package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/xopoww/canteen/types"
)

// 	Add a new account to the database.
// Allergens must already be a comma-separated list of lowercase tokens.
// On success, returns the account created.
func (db *DB) CreateAccount(name string, passhash []byte, role types.Role, allergens string, balance int64) (*types.Account, error) {
	if !types.ValidRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalid, role)
	}
	if balance < 0 {
		return nil, fmt.Errorf("%w: negative starting balance", ErrInvalid)
	}
	res, err := db.Exec(`INSERT INTO "Accounts" (name, passhash, role, allergens, balance) VALUES ($1, $2, $3, $4, $5)`,
		name, passhash, role, allergens, balance)
	if err != nil {
		return nil, fmt.Errorf("insert into accounts: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	db.Debugf("Registered %s account %q (id %d).", role, name, id)
	return db.GetAccount(int(id))
}

// 	Get an account by its id.
func (db *DB) GetAccount(id int) (*types.Account, error) {
	return db.getAccount(db.DB, id)
}

func (db *DB) getAccount(h sqlx.Ext, id int) (*types.Account, error) {
	var a types.Account
	err := sqlx.Get(h, &a, `SELECT * FROM "Accounts" WHERE id = $1`, id)
	switch {
	case err == nil:
		return &a, nil
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("account %d: %w", id, types.ErrNotFound)
	default:
		return nil, err
	}
}

// 	Get an account by its unique name.
func (db *DB) GetAccountByName(name string) (*types.Account, error) {
	var a types.Account
	err := db.Get(&a, `SELECT * FROM "Accounts" WHERE name = $1`, name)
	switch {
	case err == nil:
		return &a, nil
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("account %q: %w", name, types.ErrNotFound)
	default:
		return nil, err
	}
}

// 	Deactivate an account.
// Accounts are never deleted; a deactivated account can no longer be
// debited or credited.
func (db *DB) DeactivateAccount(id int) error {
	res, err := db.Exec(`UPDATE "Accounts" SET active = 0 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update accounts: %w", err)
	}
	nrows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if nrows == 0 {
		return fmt.Errorf("account %d: %w", id, types.ErrNotFound)
	}
	return nil
}

// 	Subtract amount cents from the account balance and record a ledger entry.
// If tx is not nil, both statements execute as part of that transaction;
// otherwise a fresh transaction is opened. The balance check and the
// subtraction are a single guarded update, so two concurrent debits can
// never both succeed past the point of overdraw. Returns
// types.ErrInsufficientFunds when the balance cannot cover the amount.
func (db *DB) Debit(accountID int, amount int64, tx *sqlx.Tx) (*types.Receipt, error) {
	if tx == nil {
		var rec *types.Receipt
		err := db.WithTx(func(tx *sqlx.Tx) error {
			var e error
			rec, e = db.Debit(accountID, amount, tx)
			return e
		})
		return rec, err
	}

	if amount <= 0 {
		return nil, fmt.Errorf("%w: debit amount must be positive", ErrInvalid)
	}

	res, err := tx.Exec(`UPDATE "Accounts" SET balance = balance - $1 WHERE id = $2 AND active = 1 AND balance >= $1`,
		amount, accountID)
	if err != nil {
		return nil, fmt.Errorf("update accounts: %w", err)
	}
	nrows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if nrows == 0 {
		if _, err := db.getAccount(tx, accountID); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("account %d: %w", accountID, types.ErrInsufficientFunds)
	}

	rec, err := db.recordEntry(tx, accountID, -amount, "debit")
	if err != nil {
		return nil, err
	}
	db.Debugf("Debited %d cents from account %d (seq %d).", amount, accountID, rec.Seq)
	return rec, nil
}

// 	Add amount cents to the account balance and record a ledger entry.
// Takes an optional transaction the same way Debit does.
func (db *DB) Credit(accountID int, amount int64, tx *sqlx.Tx) (*types.Receipt, error) {
	if tx == nil {
		var rec *types.Receipt
		err := db.WithTx(func(tx *sqlx.Tx) error {
			var e error
			rec, e = db.Credit(accountID, amount, tx)
			return e
		})
		return rec, err
	}

	if amount <= 0 {
		return nil, fmt.Errorf("%w: credit amount must be positive", ErrInvalid)
	}

	res, err := tx.Exec(`UPDATE "Accounts" SET balance = balance + $1 WHERE id = $2 AND active = 1`,
		amount, accountID)
	if err != nil {
		return nil, fmt.Errorf("update accounts: %w", err)
	}
	nrows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if nrows == 0 {
		return nil, fmt.Errorf("account %d: %w", accountID, types.ErrNotFound)
	}

	rec, err := db.recordEntry(tx, accountID, amount, "credit")
	if err != nil {
		return nil, err
	}
	db.Debugf("Credited %d cents to account %d (seq %d).", amount, accountID, rec.Seq)
	return rec, nil
}

// Insert an audit row and read back the resulting balance.
// The seq column is AUTOINCREMENT, which gives the monotonically
// increasing transaction sequence number.
func (db *DB) recordEntry(tx *sqlx.Tx, accountID int, amount int64, kind string) (*types.Receipt, error) {
	ref := uuid.NewString()
	res, err := tx.Exec(`INSERT INTO "LedgerEntries" (ref, account_id, amount, kind) VALUES ($1, $2, $3, $4)`,
		ref, accountID, amount, kind)
	if err != nil {
		return nil, fmt.Errorf("insert into ledger entries: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	var balance int64
	if err := tx.Get(&balance, `SELECT balance FROM "Accounts" WHERE id = $1`, accountID); err != nil {
		return nil, fmt.Errorf("select balance: %w", err)
	}
	return &types.Receipt{Seq: seq, Ref: ref, Balance: balance}, nil
}
