package inventory

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/daftar-erp/daftar/internal/ledger"
	"github.com/daftar-erp/daftar/internal/masterdata"
	"github.com/daftar-erp/daftar/internal/settings"
	"github.com/daftar-erp/daftar/internal/store"
)

type settingsStub struct{ allowNegative bool }

func (s settingsStub) AllowNegativeStock() bool { return s.allowNegative }

type fixture struct {
	store   *store.Store
	ledger  *ledger.Repository
	parties *masterdata.Repository
	svc     *Service
	item    masterdata.Item
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.New(filepath.Join(t.TempDir(), "data.json"), time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
	lg := ledger.NewRepository()
	parties := masterdata.NewRepository()
	f := &fixture{
		store:   st,
		ledger:  lg,
		parties: parties,
		svc:     NewService(st, NewRepository(), lg, parties, settingsStub{}, nil),
	}
	require.NoError(t, st.Apply(func() error {
		if _, err := lg.EnsureSeedAccounts(); err != nil {
			return err
		}
		item, err := parties.CreateItem(masterdata.CreateItemRequest{
			Name:          "Flour",
			BaseUnit:      "kg",
			PurchasePrice: decimal.NewFromInt(6),
			SalePrice:     decimal.NewFromInt(9),
			OpeningStock:  decimal.NewFromInt(30),
		}, time.Now().UTC())
		if err != nil {
			return err
		}
		f.item = *item
		return nil
	}))
	return f
}

func (f *fixture) stock(t *testing.T) decimal.Decimal {
	t.Helper()
	var stock decimal.Decimal
	f.store.View(func() {
		item, err := f.parties.Item(f.item.ID)
		require.NoError(t, err)
		stock = item.Stock
	})
	return stock
}

func (f *fixture) accountBalance(t *testing.T, code string) decimal.Decimal {
	t.Helper()
	var balance decimal.Decimal
	f.store.View(func() {
		account, err := f.ledger.AccountByCode(code)
		require.NoError(t, err)
		balance = account.Balance
	})
	return balance
}

func TestAdjustmentIncrease(t *testing.T) {
	f := newFixture(t)

	adj, err := f.svc.AddAdjustment(context.Background(), CreateAdjustmentRequest{
		Kind:   KindIncrease,
		ItemID: f.item.ID,
		Qty:    decimal.NewFromInt(10),
		Reason: "جرد",
	})
	require.NoError(t, err)
	require.Equal(t, "ADJ-0001", adj.Number)
	require.True(t, adj.Value.Equal(decimal.NewFromInt(60)))

	require.True(t, f.stock(t).Equal(decimal.NewFromInt(40)))
	require.True(t, f.accountBalance(t, ledger.CodeInventory).Equal(decimal.NewFromInt(60)))
	require.True(t, f.accountBalance(t, ledger.CodeInventoryVariance).Equal(decimal.NewFromInt(-60)))
}

func TestAdjustmentDecreaseAndArchive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cost := decimal.NewFromInt(5)
	adj, err := f.svc.AddAdjustment(ctx, CreateAdjustmentRequest{
		Kind:     KindDecrease,
		ItemID:   f.item.ID,
		Qty:      decimal.NewFromInt(8),
		UnitCost: &cost,
	})
	require.NoError(t, err)
	require.True(t, adj.Value.Equal(decimal.NewFromInt(40)))

	require.True(t, f.stock(t).Equal(decimal.NewFromInt(22)))
	require.True(t, f.accountBalance(t, ledger.CodeInventory).Equal(decimal.NewFromInt(-40)))
	require.True(t, f.accountBalance(t, ledger.CodeInventoryVariance).Equal(decimal.NewFromInt(40)))

	result := f.svc.ArchiveAdjustment(ctx, adj.ID, true)
	require.True(t, result.Success)
	require.True(t, f.stock(t).Equal(decimal.NewFromInt(30)))
	require.True(t, f.accountBalance(t, ledger.CodeInventory).IsZero())
	require.True(t, f.accountBalance(t, ledger.CodeInventoryVariance).IsZero())

	result = f.svc.ArchiveAdjustment(ctx, adj.ID, false)
	require.True(t, result.Success)
	require.True(t, f.stock(t).Equal(decimal.NewFromInt(22)))
}

func TestAdjustmentGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddAdjustment(ctx, CreateAdjustmentRequest{
		Kind:   KindDecrease,
		ItemID: f.item.ID,
		Qty:    decimal.NewFromInt(100),
	})
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.True(t, f.stock(t).Equal(decimal.NewFromInt(30)))

	_, err = f.svc.AddAdjustment(ctx, CreateAdjustmentRequest{
		Kind:   KindIncrease,
		ItemID: f.item.ID,
		Qty:    decimal.Zero,
	})
	require.ErrorIs(t, err, ErrInvalidQty)

	_, err = f.svc.AddAdjustment(ctx, CreateAdjustmentRequest{
		Kind:   KindIncrease,
		ItemID: 777,
		Qty:    decimal.NewFromInt(1),
	})
	require.ErrorIs(t, err, masterdata.ErrItemNotFound)

	result := f.svc.ArchiveAdjustment(ctx, 5, true)
	require.False(t, result.Success)
	require.Equal(t, "adjustment not found", result.Message)
}

func TestDecreaseWithStoreBackedSettings(t *testing.T) {
	st := store.New(filepath.Join(t.TempDir(), "data.json"), time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
	lg := ledger.NewRepository()
	parties := masterdata.NewRepository()
	settingsRepo := settings.NewRepository()
	settingsSvc := settings.NewService(st, settingsRepo, nil)
	svc := NewService(st, NewRepository(), lg, parties, settingsRepo, nil)

	var item masterdata.Item
	require.NoError(t, st.Apply(func() error {
		if _, err := lg.EnsureSeedAccounts(); err != nil {
			return err
		}
		created, err := parties.CreateItem(masterdata.CreateItemRequest{
			Name:          "Flour",
			BaseUnit:      "kg",
			PurchasePrice: decimal.NewFromInt(6),
			SalePrice:     decimal.NewFromInt(9),
			OpeningStock:  decimal.NewFromInt(30),
		}, time.Now().UTC())
		if err != nil {
			return err
		}
		item = *created
		return nil
	}))

	ctx := context.Background()
	_, err := svc.AddAdjustment(ctx, CreateAdjustmentRequest{
		Kind:   KindDecrease,
		ItemID: item.ID,
		Qty:    decimal.NewFromInt(50),
	})
	require.ErrorIs(t, err, ErrInsufficientStock)

	require.NoError(t, settingsSvc.UpdateGeneral(ctx, settings.GeneralSettings{AllowNegativeStock: true}))
	adj, err := svc.AddAdjustment(ctx, CreateAdjustmentRequest{
		Kind:   KindDecrease,
		ItemID: item.ID,
		Qty:    decimal.NewFromInt(50),
	})
	require.NoError(t, err)
	require.Equal(t, "ADJ-0001", adj.Number)
}
