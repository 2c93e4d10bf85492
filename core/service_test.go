package core_test

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/xopoww/canteen/core"
	"github.com/xopoww/canteen/database"
	"github.com/xopoww/canteen/types"
)

type fixture struct {
	svc      *core.Service
	db       *database.DB
	consumer core.Principal
	staff    core.Principal
	operator core.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	db, err := database.Open(&database.Config{
		Path:   filepath.Join(t.TempDir(), "core_test.db"),
		Logger: logger,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{svc: core.New(db, logger), db: db}
	f.consumer = f.register(t, "student", types.RoleConsumer, "nuts", 100)
	f.staff = f.register(t, "cook", types.RoleStaff, "", 0)
	f.operator = f.register(t, "admin", types.RoleOperator, "", 0)
	return f
}

func (f *fixture) register(t *testing.T, name string, role types.Role, allergens string, balance int64) core.Principal {
	t.Helper()
	acc, err := f.svc.Register(name, []byte("x"), role, allergens, balance)
	require.NoError(t, err)
	return core.Principal{AccountID: acc.ID, Role: acc.Role}
}

func (f *fixture) addItem(t *testing.T, item *types.MenuItem) *types.MenuItem {
	t.Helper()
	created, err := f.svc.AddMenuItem(f.staff, item)
	require.NoError(t, err)
	return created
}

func (f *fixture) stock(t *testing.T, product, qty, unit string) {
	t.Helper()
	_, err := f.svc.AdjustInventory(f.operator, product, decimal.RequireFromString(qty), unit)
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T, p core.Principal) int64 {
	t.Helper()
	acc, err := f.svc.Account(p.AccountID)
	require.NoError(t, err)
	return acc.Balance
}

func TestPlaceOrderHappyPath(t *testing.T) {
	f := newFixture(t)
	item := f.addItem(t, &types.MenuItem{Name: "soup", Price: 30, MealType: types.MealLunch, Available: true})

	// balance 50 covers a price of 30
	_, err := f.db.Debit(f.consumer.AccountID, 50, nil)
	require.NoError(t, err)

	order, err := f.svc.PlaceOrder(f.consumer, item.ID, "2026-09-01")
	require.NoError(t, err)
	assert.Equal(t, types.OrderPlaced, order.State)
	assert.EqualValues(t, 30, order.Price)
	assert.EqualValues(t, 20, f.balance(t, f.consumer))
}

func TestPlaceOrderInsufficientFunds(t *testing.T) {
	f := newFixture(t)
	item := f.addItem(t, &types.MenuItem{Name: "steak", Price: 500, MealType: types.MealLunch, Available: true})

	_, err := f.svc.PlaceOrder(f.consumer, item.ID, "2026-09-01")
	require.ErrorIs(t, err, types.ErrInsufficientFunds)

	assert.EqualValues(t, 100, f.balance(t, f.consumer))
	orders, err := f.svc.ListOrders(f.consumer, 0)
	require.NoError(t, err)
	assert.Empty(t, orders, "no debited-but-orderless state and no order either")
}

func TestPlaceOrderAllergenConflict(t *testing.T) {
	f := newFixture(t)
	item := f.addItem(t, &types.MenuItem{
		Name:        "Peanut Sauce",
		Description: "contains nuts",
		Price:       30, MealType: types.MealLunch, Available: true,
	})

	_, err := f.svc.PlaceOrder(f.consumer, item.ID, "2026-09-01")
	require.ErrorIs(t, err, types.ErrAllergenConflict)

	// no funds moved, no order created
	assert.EqualValues(t, 100, f.balance(t, f.consumer))
	orders, err := f.svc.ListOrders(f.consumer, 0)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestPlaceOrderUnavailableOrMissing(t *testing.T) {
	f := newFixture(t)
	item := f.addItem(t, &types.MenuItem{Name: "special", Price: 30, MealType: types.MealLunch, Available: false})

	_, err := f.svc.PlaceOrder(f.consumer, item.ID, "2026-09-01")
	assert.ErrorIs(t, err, types.ErrItemUnavailable)

	_, err = f.svc.PlaceOrder(f.consumer, 404, "2026-09-01")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestFulfillOrderInsufficientStockIsRetryable(t *testing.T) {
	f := newFixture(t)
	f.stock(t, "flour", "1", "kg")
	f.stock(t, "egg", "3", "pcs")
	item := f.addItem(t, &types.MenuItem{
		Name: "pancakes", Price: 30, MealType: types.MealBreakfast, Available: true,
		Recipe: []types.RecipeLine{
			{Product: "flour", Quantity: decimal.RequireFromString("2")},
			{Product: "egg", Quantity: decimal.RequireFromString("1")},
		},
	})
	order, err := f.svc.PlaceOrder(f.consumer, item.ID, "2026-09-01")
	require.NoError(t, err)

	_, err = f.svc.FulfillOrder(f.staff, order.ID)
	require.ErrorIs(t, err, types.ErrInsufficientStock)

	// order still placed, stock untouched
	got, err := f.db.GetOrder(order.ID)
	require.NoError(t, err)
	assert.Equal(t, types.OrderPlaced, got.State)
	flour, err := f.db.GetInventoryItem("flour")
	require.NoError(t, err)
	assert.True(t, flour.Quantity.Equal(decimal.RequireFromString("1")))
	egg, err := f.db.GetInventoryItem("egg")
	require.NoError(t, err)
	assert.True(t, egg.Quantity.Equal(decimal.RequireFromString("3")))

	// the designed retry path: restock, then fulfill the same order
	f.stock(t, "flour", "2", "kg")
	fulfilled, err := f.svc.FulfillOrder(f.staff, order.ID)
	require.NoError(t, err)
	assert.Equal(t, types.OrderFulfilled, fulfilled.State)
	flour, err = f.db.GetInventoryItem("flour")
	require.NoError(t, err)
	assert.True(t, flour.Quantity.Equal(decimal.RequireFromString("0")))
}

func TestFulfillUsesSnapshotNotLiveRecipe(t *testing.T) {
	f := newFixture(t)
	f.stock(t, "rice", "1", "kg")
	item := f.addItem(t, &types.MenuItem{
		Name: "pilaf", Price: 30, MealType: types.MealLunch, Available: true,
		Recipe: []types.RecipeLine{{Product: "rice", Quantity: decimal.RequireFromString("0.2")}},
	})
	order, err := f.svc.PlaceOrder(f.consumer, item.ID, "2026-09-01")
	require.NoError(t, err)

	// menu edit after placement must not change the order's stock impact
	item.Recipe = []types.RecipeLine{{Product: "rice", Quantity: decimal.RequireFromString("0.9")}}
	_, err = f.svc.UpdateMenuItem(f.staff, item)
	require.NoError(t, err)

	_, err = f.svc.FulfillOrder(f.staff, order.ID)
	require.NoError(t, err)
	rice, err := f.db.GetInventoryItem("rice")
	require.NoError(t, err)
	assert.True(t, rice.Quantity.Equal(decimal.RequireFromString("0.8")))
}

func TestConcurrentFulfillmentsSucceedOnce(t *testing.T) {
	f := newFixture(t)
	f.stock(t, "rice", "10", "kg")
	item := f.addItem(t, &types.MenuItem{
		Name: "pilaf", Price: 10, MealType: types.MealLunch, Available: true,
		Recipe: []types.RecipeLine{{Product: "rice", Quantity: decimal.RequireFromString("0.5")}},
	})
	order, err := f.svc.PlaceOrder(f.consumer, item.ID, "2026-09-01")
	require.NoError(t, err)

	results := make(chan error, 4)
	var g errgroup.Group
	for i := 0; i < 4; i++ {
		g.Go(func() error {
			_, err := f.svc.FulfillOrder(f.staff, order.ID)
			results <- err
			return nil
		})
	}
	require.NoError(t, g.Wait())
	close(results)

	var ok, already int
	for err := range results {
		switch {
		case err == nil:
			ok++
		default:
			require.ErrorIs(t, err, types.ErrAlreadyFulfilled)
			already++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 3, already)

	// inventory deducted exactly once
	rice, err := f.db.GetInventoryItem("rice")
	require.NoError(t, err)
	assert.True(t, rice.Quantity.Equal(decimal.RequireFromString("9.5")))
}

func TestRoleChecks(t *testing.T) {
	f := newFixture(t)
	item := f.addItem(t, &types.MenuItem{Name: "soup", Price: 30, MealType: types.MealLunch, Available: true})

	_, err := f.svc.PlaceOrder(f.staff, item.ID, "2026-09-01")
	assert.ErrorIs(t, err, types.ErrUnauthorized, "staff cannot place orders")

	_, err = f.svc.AddMenuItem(f.consumer, &types.MenuItem{Name: "x", Price: 10, MealType: types.MealLunch})
	assert.ErrorIs(t, err, types.ErrUnauthorized, "consumers cannot edit the menu")

	_, err = f.svc.FulfillOrder(f.consumer, 1)
	assert.ErrorIs(t, err, types.ErrUnauthorized)
	_, err = f.svc.FulfillOrder(f.operator, 1)
	assert.ErrorIs(t, err, types.ErrUnauthorized, "fulfillment is a staff operation")

	_, err = f.svc.AdjustInventory(f.staff, "rice", decimal.RequireFromString("1"), "kg")
	assert.ErrorIs(t, err, types.ErrUnauthorized, "only operators override stock")

	_, err = f.svc.ListPurchaseRequests(f.staff, "")
	assert.ErrorIs(t, err, types.ErrUnauthorized)

	_, err = f.svc.DailyReport(f.consumer, "2026-09-01")
	assert.ErrorIs(t, err, types.ErrUnauthorized)

	_, err = f.svc.ListInventory(f.consumer)
	assert.ErrorIs(t, err, types.ErrUnauthorized)
}

func TestListOrdersScoping(t *testing.T) {
	f := newFixture(t)
	item := f.addItem(t, &types.MenuItem{Name: "soup", Price: 10, MealType: types.MealLunch, Available: true})
	_, err := f.svc.PlaceOrder(f.consumer, item.ID, "2026-09-01")
	require.NoError(t, err)

	other := f.register(t, "student2", types.RoleConsumer, "", 100)

	// a consumer asking for another account still gets their own orders
	mine, err := f.svc.ListOrders(other, f.consumer.AccountID)
	require.NoError(t, err)
	assert.Empty(t, mine)

	// an operator may inspect any account
	any, err := f.svc.ListOrders(f.operator, f.consumer.AccountID)
	require.NoError(t, err)
	assert.Len(t, any, 1)
}

func TestProcurementThroughService(t *testing.T) {
	f := newFixture(t)

	req, err := f.svc.CreatePurchaseRequest(f.staff, "rice", decimal.RequireFromString("10"), "kg")
	require.NoError(t, err)

	_, err = f.svc.ApprovePurchaseRequest(f.staff, req.ID)
	assert.ErrorIs(t, err, types.ErrUnauthorized)

	approved, err := f.svc.ApprovePurchaseRequest(f.operator, req.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RequestApproved, approved.Status)

	items, err := f.svc.ListInventory(f.operator)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].Quantity.Equal(decimal.RequireFromString("10")))

	_, err = f.svc.ApprovePurchaseRequest(f.operator, req.ID)
	assert.ErrorIs(t, err, types.ErrAlreadyDecided)
}

func TestDailyReportThroughService(t *testing.T) {
	f := newFixture(t)
	item := f.addItem(t, &types.MenuItem{Name: "soup", Price: 40, MealType: types.MealLunch, Available: true})
	_, err := f.svc.PlaceOrder(f.consumer, item.ID, "2026-09-01")
	require.NoError(t, err)

	// menu price edits after ordering never change the report
	item.Price = 999
	_, err = f.svc.UpdateMenuItem(f.operator, item)
	require.NoError(t, err)

	report, err := f.svc.DailyReport(f.operator, "2026-09-01")
	require.NoError(t, err)
	assert.Equal(t, 1, report.OrderCount)
	assert.EqualValues(t, 40, report.TotalRevenue)
}

func TestReviewsThroughService(t *testing.T) {
	f := newFixture(t)
	f.stock(t, "rice", "5", "kg")
	item := f.addItem(t, &types.MenuItem{
		Name: "pilaf", Price: 10, MealType: types.MealLunch, Available: true,
		Recipe: []types.RecipeLine{{Product: "rice", Quantity: decimal.RequireFromString("0.2")}},
	})

	_, err := f.svc.AddReview(f.consumer, item.ID, 5, "yum")
	require.ErrorIs(t, err, types.ErrUnauthorized, "cannot review before receiving")

	order, err := f.svc.PlaceOrder(f.consumer, item.ID, "2026-09-01")
	require.NoError(t, err)
	_, err = f.svc.FulfillOrder(f.staff, order.ID)
	require.NoError(t, err)

	_, err = f.svc.AddReview(f.consumer, item.ID, 5, "yum")
	require.NoError(t, err)

	_, err = f.svc.ListReviews(f.consumer, 0)
	assert.ErrorIs(t, err, types.ErrUnauthorized, "all-reviews listing is operator only")

	all, err := f.svc.ListReviews(f.operator, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
