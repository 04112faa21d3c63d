package sales

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

	customer masterdata.Customer
	item     masterdata.Item
}

func newFixture(t *testing.T, allowNegative bool) *fixture {
	t.Helper()
	st := store.New(filepath.Join(t.TempDir(), "data.json"), time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
	lg := ledger.NewRepository()
	parties := masterdata.NewRepository()
	f := &fixture{
		store:   st,
		ledger:  lg,
		parties: parties,
		svc:     NewService(st, NewRepository(), lg, parties, settingsStub{allowNegative: allowNegative}, nil),
	}
	require.NoError(t, st.Apply(func() error {
		if _, err := lg.EnsureSeedAccounts(); err != nil {
			return err
		}
		now := time.Now().UTC()
		f.customer = *parties.CreateCustomer(masterdata.CreateCustomerRequest{Name: "Ali"}, now)
		item, err := parties.CreateItem(masterdata.CreateItemRequest{
			Name:          "Sugar",
			BaseUnit:      "piece",
			Units:         []masterdata.PackingUnitRequest{{Name: "box", Factor: decimal.NewFromInt(12)}},
			PurchasePrice: decimal.NewFromInt(10),
			SalePrice:     decimal.NewFromInt(20),
			OpeningStock:  decimal.NewFromInt(100),
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

func (f *fixture) customerBalance(t *testing.T) decimal.Decimal {
	t.Helper()
	var balance decimal.Decimal
	f.store.View(func() {
		c, err := f.parties.Customer(f.customer.ID)
		require.NoError(t, err)
		balance = c.Balance
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

func TestInvoicePostingEndToEnd(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	inv, err := f.svc.AddInvoice(ctx, CreateInvoiceRequest{
		CustomerID: f.customer.ID,
		Lines:      []LineRequest{{ItemID: f.item.ID, Qty: decimal.NewFromInt(5), Price: decimal.NewFromInt(20)}},
	})
	require.NoError(t, err)
	require.Equal(t, "INV-0001", inv.Number)
	require.True(t, inv.Total.Equal(decimal.NewFromInt(100)))

	require.True(t, f.stock(t).Equal(decimal.NewFromInt(95)))
	require.True(t, f.customerBalance(t).Equal(decimal.NewFromInt(100)))
	require.True(t, f.accountBalance(t, ledger.CodeCustomers).Equal(decimal.NewFromInt(100)))
	require.True(t, f.accountBalance(t, ledger.CodeSales).Equal(decimal.NewFromInt(-100)))
	require.True(t, f.accountBalance(t, ledger.CodeCOGS).Equal(decimal.NewFromInt(50)))
	require.True(t, f.accountBalance(t, ledger.CodeInventory).Equal(decimal.NewFromInt(-50)))

	var entry ledger.JournalEntry
	f.store.View(func() {
		var err error
		entry, err = f.ledger.Entry(inv.JournalEntryID)
		require.NoError(t, err)
	})
	require.Len(t, entry.Lines, 4)
	require.True(t, entry.Debit.Equal(decimal.NewFromInt(150)))
	require.True(t, entry.Credit.Equal(decimal.NewFromInt(150)))

	result := f.svc.ArchiveInvoice(ctx, inv.ID, true)
	require.True(t, result.Success)

	require.True(t, f.stock(t).Equal(decimal.NewFromInt(100)))
	require.True(t, f.customerBalance(t).IsZero())
	require.True(t, f.accountBalance(t, ledger.CodeCustomers).IsZero())
	require.True(t, f.accountBalance(t, ledger.CodeSales).IsZero())
	require.True(t, f.accountBalance(t, ledger.CodeCOGS).IsZero())
	require.True(t, f.accountBalance(t, ledger.CodeInventory).IsZero())

	f.store.View(func() {
		entry, err = f.ledger.Entry(inv.JournalEntryID)
		require.NoError(t, err)
	})
	require.True(t, entry.IsArchived)

	result = f.svc.ArchiveInvoice(ctx, inv.ID, false)
	require.True(t, result.Success)
	require.True(t, f.stock(t).Equal(decimal.NewFromInt(95)))
	require.True(t, f.customerBalance(t).Equal(decimal.NewFromInt(100)))
	require.True(t, f.accountBalance(t, ledger.CodeSales).Equal(decimal.NewFromInt(-100)))
}

func TestInvoiceDiscount(t *testing.T) {
	f := newFixture(t, false)

	inv, err := f.svc.AddInvoice(context.Background(), CreateInvoiceRequest{
		CustomerID: f.customer.ID,
		Lines:      []LineRequest{{ItemID: f.item.ID, Qty: decimal.NewFromInt(5), Price: decimal.NewFromInt(20)}},
		Discount:   decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	require.True(t, inv.Subtotal.Equal(decimal.NewFromInt(100)))
	require.True(t, inv.Total.Equal(decimal.NewFromInt(90)))

	require.True(t, f.customerBalance(t).Equal(decimal.NewFromInt(90)))
	require.True(t, f.accountBalance(t, ledger.CodeSalesDiscount).Equal(decimal.NewFromInt(10)))
	require.True(t, f.accountBalance(t, ledger.CodeSales).Equal(decimal.NewFromInt(-100)))

	var entry ledger.JournalEntry
	f.store.View(func() {
		var err error
		entry, err = f.ledger.Entry(inv.JournalEntryID)
		require.NoError(t, err)
	})
	require.True(t, entry.Debit.Equal(entry.Credit))
}

func TestInvoiceExcessiveDiscountRejected(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.svc.AddInvoice(context.Background(), CreateInvoiceRequest{
		CustomerID: f.customer.ID,
		Lines:      []LineRequest{{ItemID: f.item.ID, Qty: decimal.NewFromInt(1), Price: decimal.NewFromInt(20)}},
		Discount:   decimal.NewFromInt(30),
	})
	require.ErrorIs(t, err, ErrExcessiveDiscount)
	require.True(t, f.stock(t).Equal(decimal.NewFromInt(100)))
}

func TestInvoiceInsufficientStock(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.svc.AddInvoice(context.Background(), CreateInvoiceRequest{
		CustomerID: f.customer.ID,
		Lines:      []LineRequest{{ItemID: f.item.ID, Qty: decimal.NewFromInt(150), Price: decimal.NewFromInt(20)}},
	})
	require.ErrorIs(t, err, ErrInsufficientStock)

	// rejection leaves everything untouched
	require.True(t, f.stock(t).Equal(decimal.NewFromInt(100)))
	require.True(t, f.customerBalance(t).IsZero())
	f.store.View(func() {
		require.Empty(t, f.ledger.Entries())
	})
}

func TestInvoiceNegativeStockAllowed(t *testing.T) {
	f := newFixture(t, true)

	_, err := f.svc.AddInvoice(context.Background(), CreateInvoiceRequest{
		CustomerID: f.customer.ID,
		Lines:      []LineRequest{{ItemID: f.item.ID, Qty: decimal.NewFromInt(150), Price: decimal.NewFromInt(20)}},
	})
	require.NoError(t, err)
	require.True(t, f.stock(t).Equal(decimal.NewFromInt(-50)))
}

func TestInvoicePackingUnitConversion(t *testing.T) {
	f := newFixture(t, false)

	inv, err := f.svc.AddInvoice(context.Background(), CreateInvoiceRequest{
		CustomerID: f.customer.ID,
		Lines:      []LineRequest{{ItemID: f.item.ID, Unit: "box", Qty: decimal.NewFromInt(2), Price: decimal.NewFromInt(200)}},
	})
	require.NoError(t, err)
	require.True(t, inv.Lines[0].BaseQty.Equal(decimal.NewFromInt(24)))
	require.True(t, f.stock(t).Equal(decimal.NewFromInt(76)))
	// cost of goods priced at base-unit cost
	require.True(t, f.accountBalance(t, ledger.CodeCOGS).Equal(decimal.NewFromInt(240)))

	_, err = f.svc.AddInvoice(context.Background(), CreateInvoiceRequest{
		CustomerID: f.customer.ID,
		Lines:      []LineRequest{{ItemID: f.item.ID, Unit: "pallet", Qty: decimal.NewFromInt(1), Price: decimal.NewFromInt(1)}},
	})
	require.ErrorIs(t, err, masterdata.ErrUnknownUnit)
}

func TestSaleReturnRoundTrip(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.svc.AddInvoice(ctx, CreateInvoiceRequest{
		CustomerID: f.customer.ID,
		Lines:      []LineRequest{{ItemID: f.item.ID, Qty: decimal.NewFromInt(10), Price: decimal.NewFromInt(20)}},
	})
	require.NoError(t, err)

	ret, err := f.svc.AddReturn(ctx, CreateReturnRequest{
		CustomerID: f.customer.ID,
		Lines:      []LineRequest{{ItemID: f.item.ID, Qty: decimal.NewFromInt(4), Price: decimal.NewFromInt(20)}},
	})
	require.NoError(t, err)
	require.Equal(t, "RET-0001", ret.Number)

	require.True(t, f.stock(t).Equal(decimal.NewFromInt(94)))
	require.True(t, f.customerBalance(t).Equal(decimal.NewFromInt(120)))
	require.True(t, f.accountBalance(t, ledger.CodeSalesReturns).Equal(decimal.NewFromInt(80)))

	result := f.svc.ArchiveReturn(ctx, ret.ID, true)
	require.True(t, result.Success)
	require.True(t, f.stock(t).Equal(decimal.NewFromInt(90)))
	require.True(t, f.customerBalance(t).Equal(decimal.NewFromInt(200)))
	require.True(t, f.accountBalance(t, ledger.CodeSalesReturns).IsZero())
}

func TestArchiveSoftFailures(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	result := f.svc.ArchiveInvoice(ctx, 99, true)
	require.False(t, result.Success)
	require.Equal(t, "invoice not found", result.Message)

	inv, err := f.svc.AddInvoice(ctx, CreateInvoiceRequest{
		CustomerID: f.customer.ID,
		Lines:      []LineRequest{{ItemID: f.item.ID, Qty: decimal.NewFromInt(1), Price: decimal.NewFromInt(20)}},
	})
	require.NoError(t, err)

	require.True(t, f.svc.ArchiveInvoice(ctx, inv.ID, true).Success)
	second := f.svc.ArchiveInvoice(ctx, inv.ID, true)
	require.False(t, second.Success)
	require.Equal(t, "invoice already archived", second.Message)

	// double archive must not move stock twice
	require.True(t, f.stock(t).Equal(decimal.NewFromInt(100)))
}

func TestInvoiceWithStoreBackedSettings(t *testing.T) {
	st := store.New(filepath.Join(t.TempDir(), "data.json"), time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
	lg := ledger.NewRepository()
	parties := masterdata.NewRepository()
	settingsRepo := settings.NewRepository()
	settingsSvc := settings.NewService(st, settingsRepo, nil)
	svc := NewService(st, NewRepository(), lg, parties, settingsRepo, nil)

	var customer masterdata.Customer
	var item masterdata.Item
	require.NoError(t, st.Apply(func() error {
		if _, err := lg.EnsureSeedAccounts(); err != nil {
			return err
		}
		now := time.Now().UTC()
		customer = *parties.CreateCustomer(masterdata.CreateCustomerRequest{Name: "Ali"}, now)
		created, err := parties.CreateItem(masterdata.CreateItemRequest{
			Name:          "Sugar",
			BaseUnit:      "piece",
			PurchasePrice: decimal.NewFromInt(10),
			SalePrice:     decimal.NewFromInt(20),
			OpeningStock:  decimal.NewFromInt(10),
		}, now)
		if err != nil {
			return err
		}
		item = *created
		return nil
	}))

	ctx := context.Background()

	// The policy read happens inside store.Apply while the write lock is
	// held; it must not block on the store lock.
	done := make(chan error, 1)
	go func() {
		_, err := svc.AddInvoice(ctx, CreateInvoiceRequest{
			CustomerID: customer.ID,
			Lines:      []LineRequest{{ItemID: item.ID, Qty: decimal.NewFromInt(2), Price: decimal.NewFromInt(20)}},
		})
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("AddInvoice blocked reading the stock policy")
	}

	_, err := svc.AddInvoice(ctx, CreateInvoiceRequest{
		CustomerID: customer.ID,
		Lines:      []LineRequest{{ItemID: item.ID, Qty: decimal.NewFromInt(50), Price: decimal.NewFromInt(20)}},
	})
	require.ErrorIs(t, err, ErrInsufficientStock)

	require.NoError(t, settingsSvc.UpdateGeneral(ctx, settings.GeneralSettings{AllowNegativeStock: true}))
	_, err = svc.AddInvoice(ctx, CreateInvoiceRequest{
		CustomerID: customer.ID,
		Lines:      []LineRequest{{ItemID: item.ID, Qty: decimal.NewFromInt(50), Price: decimal.NewFromInt(20)}},
	})
	require.NoError(t, err)
}

func TestInvoiceLinesJointlyOverdrawingStock(t *testing.T) {
	f := newFixture(t, false)

	// Each line passes against pre-posting stock on its own; together
	// they draw 120 of 100.
	_, err := f.svc.AddInvoice(context.Background(), CreateInvoiceRequest{
		CustomerID: f.customer.ID,
		Lines: []LineRequest{
			{ItemID: f.item.ID, Qty: decimal.NewFromInt(60), Price: decimal.NewFromInt(20)},
			{ItemID: f.item.ID, Qty: decimal.NewFromInt(60), Price: decimal.NewFromInt(20)},
		},
	})
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.True(t, f.stock(t).Equal(decimal.NewFromInt(100)))
	require.True(t, f.customerBalance(t).IsZero())
}
