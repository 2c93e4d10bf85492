package main

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/xopoww/canteen/types"
)

// 	Populate the database with demo data: one account per role, a stocked
// pantry and a lunch item whose recipe consumes it.
func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Populate the database with demo data",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, _, logger, err := setup()
			if err != nil {
				return err
			}
			defer db.Close()

			hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
			if err != nil {
				return err
			}

			if _, err := db.CreateAccount("admin", hash, types.RoleOperator, "", 0); err != nil {
				return err
			}
			if _, err := db.CreateAccount("cook", hash, types.RoleStaff, "", 0); err != nil {
				return err
			}
			if _, err := db.CreateAccount("student", hash, types.RoleConsumer, "nuts", 100_00); err != nil {
				return err
			}

			if err := db.CreditStock("flour", decimal.RequireFromString("10"), "kg", nil); err != nil {
				return err
			}
			if err := db.CreditStock("cheese", decimal.RequireFromString("5"), "kg", nil); err != nil {
				return err
			}

			_, err = db.AddMenuItem(&types.MenuItem{
				Name:        "School pizza",
				Description: "Tasty pizza with cheese and flour. No nuts.",
				Price:       70_00,
				MealType:    types.MealLunch,
				ServeDate:   time.Now().Format("2006-01-02"),
				Available:   true,
				Recipe: []types.RecipeLine{
					{Product: "flour", Quantity: decimal.RequireFromString("0.2")},
					{Product: "cheese", Quantity: decimal.RequireFromString("0.1")},
				},
			})
			if err != nil {
				return err
			}

			logger.Info("Seeded demo data.")
			return nil
		},
	}
}
