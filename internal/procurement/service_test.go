package procurement

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
	store    *store.Store
	ledger   *ledger.Repository
	parties  *masterdata.Repository
	svc      *Service
	supplier masterdata.Supplier
	item     masterdata.Item
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
		now := time.Now().UTC()
		f.supplier = *parties.CreateSupplier(masterdata.CreateSupplierRequest{Name: "Omar"}, now)
		item, err := parties.CreateItem(masterdata.CreateItemRequest{
			Name:          "Rice",
			BaseUnit:      "kg",
			Units:         []masterdata.PackingUnitRequest{{Name: "sack", Factor: decimal.NewFromInt(25)}},
			PurchasePrice: decimal.NewFromInt(8),
			SalePrice:     decimal.NewFromInt(12),
		}, now)
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

func (f *fixture) supplierBalance(t *testing.T) decimal.Decimal {
	t.Helper()
	var balance decimal.Decimal
	f.store.View(func() {
		s, err := f.parties.Supplier(f.supplier.ID)
		require.NoError(t, err)
		balance = s.Balance
	})
	return balance
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

func TestPurchasePostingAndArchive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.svc.AddPurchase(ctx, CreatePurchaseRequest{
		SupplierID: f.supplier.ID,
		Lines:      []LineRequest{{ItemID: f.item.ID, Unit: "sack", Qty: decimal.NewFromInt(4), Price: decimal.NewFromInt(200)}},
		Discount:   decimal.NewFromInt(50),
	})
	require.NoError(t, err)
	require.Equal(t, "PUR-0001", p.Number)
	require.True(t, p.Subtotal.Equal(decimal.NewFromInt(800)))
	require.True(t, p.Total.Equal(decimal.NewFromInt(750)))

	require.True(t, f.stock(t).Equal(decimal.NewFromInt(100)))
	require.True(t, f.supplierBalance(t).Equal(decimal.NewFromInt(750)))
	require.True(t, f.accountBalance(t, ledger.CodeInventory).Equal(decimal.NewFromInt(800)))
	require.True(t, f.accountBalance(t, ledger.CodeSuppliers).Equal(decimal.NewFromInt(-750)))
	require.True(t, f.accountBalance(t, ledger.CodePurchaseDiscount).Equal(decimal.NewFromInt(-50)))

	result := f.svc.ArchivePurchase(ctx, p.ID, true)
	require.True(t, result.Success)
	require.True(t, f.stock(t).IsZero())
	require.True(t, f.supplierBalance(t).IsZero())
	require.True(t, f.accountBalance(t, ledger.CodeInventory).IsZero())
	require.True(t, f.accountBalance(t, ledger.CodeSuppliers).IsZero())

	result = f.svc.ArchivePurchase(ctx, p.ID, false)
	require.True(t, result.Success)
	require.True(t, f.stock(t).Equal(decimal.NewFromInt(100)))
	require.True(t, f.supplierBalance(t).Equal(decimal.NewFromInt(750)))
}

func TestPurchaseReturn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddPurchase(ctx, CreatePurchaseRequest{
		SupplierID: f.supplier.ID,
		Lines:      []LineRequest{{ItemID: f.item.ID, Qty: decimal.NewFromInt(50), Price: decimal.NewFromInt(8)}},
	})
	require.NoError(t, err)

	ret, err := f.svc.AddReturn(ctx, CreateReturnRequest{
		SupplierID: f.supplier.ID,
		Lines:      []LineRequest{{ItemID: f.item.ID, Qty: decimal.NewFromInt(10), Price: decimal.NewFromInt(8)}},
	})
	require.NoError(t, err)
	require.Equal(t, "PRT-0001", ret.Number)

	require.True(t, f.stock(t).Equal(decimal.NewFromInt(40)))
	require.True(t, f.supplierBalance(t).Equal(decimal.NewFromInt(320)))
	require.True(t, f.accountBalance(t, ledger.CodeInventory).Equal(decimal.NewFromInt(320)))
	require.True(t, f.accountBalance(t, ledger.CodeSuppliers).Equal(decimal.NewFromInt(-320)))

	result := f.svc.ArchiveReturn(ctx, ret.ID, true)
	require.True(t, result.Success)
	require.True(t, f.stock(t).Equal(decimal.NewFromInt(50)))
	require.True(t, f.supplierBalance(t).Equal(decimal.NewFromInt(400)))
}

func TestPurchaseReturnInsufficientStock(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.AddReturn(context.Background(), CreateReturnRequest{
		SupplierID: f.supplier.ID,
		Lines:      []LineRequest{{ItemID: f.item.ID, Qty: decimal.NewFromInt(5), Price: decimal.NewFromInt(8)}},
	})
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.True(t, f.stock(t).IsZero())
	require.True(t, f.supplierBalance(t).IsZero())
}

func TestPurchaseArchiveSoftFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result := f.svc.ArchivePurchase(ctx, 7, true)
	require.False(t, result.Success)
	require.Equal(t, "purchase not found", result.Message)

	p, err := f.svc.AddPurchase(ctx, CreatePurchaseRequest{
		SupplierID: f.supplier.ID,
		Lines:      []LineRequest{{ItemID: f.item.ID, Qty: decimal.NewFromInt(1), Price: decimal.NewFromInt(8)}},
	})
	require.NoError(t, err)

	result = f.svc.ArchivePurchase(ctx, p.ID, false)
	require.False(t, result.Success)
	require.Equal(t, "purchase not archived", result.Message)
}

func TestReturnWithStoreBackedSettings(t *testing.T) {
	st := store.New(filepath.Join(t.TempDir(), "data.json"), time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
	lg := ledger.NewRepository()
	parties := masterdata.NewRepository()
	settingsRepo := settings.NewRepository()
	settingsSvc := settings.NewService(st, settingsRepo, nil)
	svc := NewService(st, NewRepository(), lg, parties, settingsRepo, nil)

	var supplier masterdata.Supplier
	var item masterdata.Item
	require.NoError(t, st.Apply(func() error {
		if _, err := lg.EnsureSeedAccounts(); err != nil {
			return err
		}
		now := time.Now().UTC()
		supplier = *parties.CreateSupplier(masterdata.CreateSupplierRequest{Name: "Omar"}, now)
		created, err := parties.CreateItem(masterdata.CreateItemRequest{
			Name:          "Rice",
			BaseUnit:      "kg",
			PurchasePrice: decimal.NewFromInt(8),
			SalePrice:     decimal.NewFromInt(12),
		}, now)
		if err != nil {
			return err
		}
		item = *created
		return nil
	}))

	ctx := context.Background()
	_, err := svc.AddReturn(ctx, CreateReturnRequest{
		SupplierID: supplier.ID,
		Lines:      []LineRequest{{ItemID: item.ID, Qty: decimal.NewFromInt(5), Price: decimal.NewFromInt(8)}},
	})
	require.ErrorIs(t, err, ErrInsufficientStock)

	require.NoError(t, settingsSvc.UpdateGeneral(ctx, settings.GeneralSettings{AllowNegativeStock: true}))
	ret, err := svc.AddReturn(ctx, CreateReturnRequest{
		SupplierID: supplier.ID,
		Lines:      []LineRequest{{ItemID: item.ID, Qty: decimal.NewFromInt(5), Price: decimal.NewFromInt(8)}},
	})
	require.NoError(t, err)
	require.Equal(t, "PRT-0001", ret.Number)
}

func TestReturnLinesJointlyOverdrawingStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddPurchase(ctx, CreatePurchaseRequest{
		SupplierID: f.supplier.ID,
		Lines:      []LineRequest{{ItemID: f.item.ID, Qty: decimal.NewFromInt(10), Price: decimal.NewFromInt(8)}},
	})
	require.NoError(t, err)

	_, err = f.svc.AddReturn(ctx, CreateReturnRequest{
		SupplierID: f.supplier.ID,
		Lines: []LineRequest{
			{ItemID: f.item.ID, Qty: decimal.NewFromInt(6), Price: decimal.NewFromInt(8)},
			{ItemID: f.item.ID, Qty: decimal.NewFromInt(6), Price: decimal.NewFromInt(8)},
		},
	})
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.True(t, f.stock(t).Equal(decimal.NewFromInt(10)))
}
