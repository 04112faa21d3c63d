package masterdata

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestBaseQtyConversion(t *testing.T) {
	item := Item{
		BaseUnit: "piece",
		Units: []PackingUnit{
			{Name: "box", Factor: decimal.NewFromInt(12)},
			{Name: "carton", Factor: decimal.NewFromInt(144)},
		},
	}

	qty, err := item.BaseQty("piece", decimal.NewFromInt(5))
	require.NoError(t, err)
	require.True(t, qty.Equal(decimal.NewFromInt(5)))

	qty, err = item.BaseQty("", decimal.NewFromInt(7))
	require.NoError(t, err)
	require.True(t, qty.Equal(decimal.NewFromInt(7)))

	qty, err = item.BaseQty("box", decimal.NewFromInt(3))
	require.NoError(t, err)
	require.True(t, qty.Equal(decimal.NewFromInt(36)))

	qty, err = item.BaseQty("carton", decimal.NewFromFloat(0.5))
	require.NoError(t, err)
	require.True(t, qty.Equal(decimal.NewFromInt(72)))

	_, err = item.BaseQty("pallet", decimal.NewFromInt(1))
	require.ErrorIs(t, err, ErrUnknownUnit)
}

func TestRepositoryPartyBalances(t *testing.T) {
	repo := NewRepository()
	now := time.Now().UTC()

	c := repo.CreateCustomer(CreateCustomerRequest{Name: "Ali"}, now)
	require.Equal(t, "CUS-0001", c.Code)
	require.True(t, c.Balance.IsZero())

	s := repo.CreateSupplier(CreateSupplierRequest{Name: "Omar"}, now)
	require.Equal(t, "SUP-0001", s.Code)

	require.NoError(t, repo.AdjustCustomerBalance(c.ID, decimal.NewFromInt(100)))
	require.NoError(t, repo.AdjustCustomerBalance(c.ID, decimal.NewFromInt(-40)))
	require.NoError(t, repo.AdjustSupplierBalance(s.ID, decimal.NewFromInt(250)))

	got, err := repo.Customer(c.ID)
	require.NoError(t, err)
	require.True(t, got.Balance.Equal(decimal.NewFromInt(60)))

	require.True(t, repo.SumCustomerBalances().Equal(decimal.NewFromInt(60)))
	require.True(t, repo.SumSupplierBalances().Equal(decimal.NewFromInt(250)))

	require.ErrorIs(t, repo.AdjustCustomerBalance(99, decimal.NewFromInt(1)), ErrCustomerNotFound)
	require.ErrorIs(t, repo.AdjustSupplierBalance(99, decimal.NewFromInt(1)), ErrSupplierNotFound)
}

func TestRepositoryItemLifecycle(t *testing.T) {
	repo := NewRepository()
	now := time.Now().UTC()

	it, err := repo.CreateItem(CreateItemRequest{
		Name:          "Sugar",
		BaseUnit:      "kg",
		Units:         []PackingUnitRequest{{Name: "sack", Factor: decimal.NewFromInt(50)}},
		PurchasePrice: decimal.NewFromInt(10),
		SalePrice:     decimal.NewFromInt(14),
		OpeningStock:  decimal.NewFromInt(100),
	}, now)
	require.NoError(t, err)
	require.Equal(t, "ITM-0001", it.Code)
	require.True(t, it.Stock.Equal(decimal.NewFromInt(100)))

	_, err = repo.CreateItem(CreateItemRequest{
		Name:     "Bad",
		BaseUnit: "kg",
		Units:    []PackingUnitRequest{{Name: "sack", Factor: decimal.Zero}},
	}, now)
	require.ErrorIs(t, err, ErrInvalidFactor)

	require.NoError(t, repo.AdjustStock(it.ID, decimal.NewFromInt(-5)))
	got, err := repo.Item(it.ID)
	require.NoError(t, err)
	require.True(t, got.Stock.Equal(decimal.NewFromInt(95)))

	newPrice := decimal.NewFromInt(12)
	updated, err := repo.UpdateItem(it.ID, UpdateItemRequest{PurchasePrice: &newPrice})
	require.NoError(t, err)
	require.True(t, updated.PurchasePrice.Equal(newPrice))
	// stock untouched by field updates
	require.True(t, updated.Stock.Equal(decimal.NewFromInt(95)))

	_, err = repo.UpdateItem(42, UpdateItemRequest{})
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestSectionsRoundTrip(t *testing.T) {
	repo := NewRepository()
	now := time.Now().UTC()
	c := repo.CreateCustomer(CreateCustomerRequest{Name: "Ali"}, now)
	require.NoError(t, repo.AdjustCustomerBalance(c.ID, decimal.NewFromInt(75)))
	_, err := repo.CreateItem(CreateItemRequest{Name: "Sugar", BaseUnit: "kg", OpeningStock: decimal.NewFromInt(20)}, now)
	require.NoError(t, err)

	snapCust, err := repo.CustomersSection().Snapshot()
	require.NoError(t, err)
	snapItems, err := repo.ItemsSection().Snapshot()
	require.NoError(t, err)

	fresh := NewRepository()
	require.NoError(t, fresh.CustomersSection().Restore(snapCust))
	require.NoError(t, fresh.ItemsSection().Restore(snapItems))

	got, err := fresh.Customer(c.ID)
	require.NoError(t, err)
	require.True(t, got.Balance.Equal(decimal.NewFromInt(75)))

	// counters continue past restored data
	next := fresh.CreateCustomer(CreateCustomerRequest{Name: "Sara"}, now)
	require.Equal(t, int64(2), next.ID)
	require.Equal(t, "CUS-0002", next.Code)

	// older backups without counters still restore
	var legacy map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(snapCust, &legacy))
	delete(legacy, "nextId")
	delete(legacy, "sequence")
	trimmed, err := json.Marshal(legacy)
	require.NoError(t, err)
	legacyRepo := NewRepository()
	require.NoError(t, legacyRepo.CustomersSection().Restore(trimmed))
	again := legacyRepo.CreateCustomer(CreateCustomerRequest{Name: "Sara"}, now)
	require.Equal(t, int64(2), again.ID)
}
