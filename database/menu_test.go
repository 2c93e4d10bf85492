package database_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xopoww/canteen/database"
	"github.com/xopoww/canteen/types"
)

func TestAddMenuItemValidation(t *testing.T) {
	db := openTestDB(t)

	_, err := db.AddMenuItem(&types.MenuItem{Name: "free lunch", Price: 0, MealType: types.MealLunch})
	assert.ErrorIs(t, err, database.ErrInvalid)

	_, err = db.AddMenuItem(&types.MenuItem{Name: "brunch", Price: 100, MealType: "brunch"})
	assert.ErrorIs(t, err, database.ErrInvalid)

	_, err = db.AddMenuItem(&types.MenuItem{
		Name: "soup", Price: 100, MealType: types.MealLunch,
		Recipe: []types.RecipeLine{{Product: "water", Quantity: dec(t, "-1")}},
	})
	assert.ErrorIs(t, err, database.ErrInvalid)
}

func TestListMenuItemsFilterAndOrder(t *testing.T) {
	db := openTestDB(t)

	for _, spec := range []struct {
		name string
		meal types.MealType
	}{
		{"porridge", types.MealBreakfast},
		{"soup", types.MealLunch},
		{"omelette", types.MealBreakfast},
	} {
		_, err := db.AddMenuItem(&types.MenuItem{Name: spec.name, Price: 50, MealType: spec.meal, Available: true})
		require.NoError(t, err)
	}

	all, err := db.ListMenuItems("", "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].ID < all[1].ID && all[1].ID < all[2].ID, "ordered by id ascending")

	breakfast, err := db.ListMenuItems(types.MealBreakfast, "")
	require.NoError(t, err)
	require.Len(t, breakfast, 2)
	assert.Equal(t, "porridge", breakfast[0].Name)
	assert.Equal(t, "omelette", breakfast[1].Name)
}

func TestGetMenuItemWithRecipe(t *testing.T) {
	db := openTestDB(t)
	item, err := db.AddMenuItem(&types.MenuItem{
		Name: "pancakes", Price: 120, MealType: types.MealBreakfast, Available: true,
		Recipe: []types.RecipeLine{
			{Product: "flour", Quantity: dec(t, "0.2")},
			{Product: "egg", Quantity: dec(t, "1")},
		},
	})
	require.NoError(t, err)

	got, err := db.GetMenuItem(item.ID)
	require.NoError(t, err)
	require.Len(t, got.Recipe, 2)
	assert.Equal(t, "flour", got.Recipe[0].Product, "recipe keeps its order")
	assert.True(t, got.Recipe[1].Quantity.Equal(dec(t, "1")))

	_, err = db.GetMenuItem(404)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestSnapshotImmuneToEdits(t *testing.T) {
	db := openTestDB(t)
	item, err := db.AddMenuItem(&types.MenuItem{
		Name: "pizza", Price: 700, MealType: types.MealLunch, Available: true,
		Recipe: []types.RecipeLine{{Product: "cheese", Quantity: dec(t, "0.1")}},
	})
	require.NoError(t, err)

	snap, err := db.SnapshotItem(item.ID)
	require.NoError(t, err)

	item.Price = 900
	item.Recipe = []types.RecipeLine{{Product: "cheese", Quantity: dec(t, "0.3")}}
	_, err = db.UpdateMenuItem(item)
	require.NoError(t, err)

	assert.EqualValues(t, 700, snap.Price)
	require.Len(t, snap.Recipe, 1)
	assert.True(t, snap.Recipe[0].Quantity.Equal(dec(t, "0.1")))

	fresh, err := db.SnapshotItem(item.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 900, fresh.Price)
}
