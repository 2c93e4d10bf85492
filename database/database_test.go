package database_test

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/xopoww/canteen/database"
	"github.com/xopoww/canteen/types"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	db, err := database.Open(&database.Config{
		Path:   filepath.Join(t.TempDir(), "canteen_test.db"),
		Logger: logger,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func mustAccount(t *testing.T, db *database.DB, name string, role types.Role, balance int64, allergens string) *types.Account {
	t.Helper()
	a, err := db.CreateAccount(name, []byte("x"), role, allergens, balance)
	require.NoError(t, err)
	return a
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}
