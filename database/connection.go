package database

import (
	_ "embed"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

//go:embed schema.sql
var schema string

// DB is a combination of database handle and logger
// made for dependency injection.
type DB struct {
	*sqlx.DB
	*logrus.Logger
}

type Config struct {
	// Path to the SQLite database file. ":memory:" opens a throwaway database.
	Path   string
	Logger *logrus.Logger
}

// 	Open a database handle and bootstrap the schema.
// Write transactions take the write lock immediately so that read-check-write
// sequences inside a transaction cannot deadlock on lock upgrade. A Close call
// must be made when working with the database is finished.
func Open(cfg *Config) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_txlock=immediate&_fk=1&_loc=UTC", cfg.Path)
	handle, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	db := &DB{
		handle,
		cfg.Logger,
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	db.Info("Opened a database.")
	return db, nil
}

// 	Run fn inside a single write transaction.
// On error the transaction is rolled back and the error returned as is,
// so sentinel errors survive for errors.Is checks upstream.
func (db *DB) WithTx(fn func(tx *sqlx.Tx) error) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if e := tx.Rollback(); e != nil {
			db.Errorf("Cannot rollback a transaction: %s", e)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		db.Errorf("Cannot commit a transaction: %s", err)
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
