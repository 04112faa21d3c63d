package treasury

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
	"github.com/daftar-erp/daftar/internal/store"
)

type fixture struct {
	store    *store.Store
	ledger   *ledger.Repository
	parties  *masterdata.Repository
	svc      *Service
	customer masterdata.Customer
	supplier masterdata.Supplier
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
		svc:     NewService(st, NewRepository(), lg, parties, nil),
	}
	require.NoError(t, st.Apply(func() error {
		if _, err := lg.EnsureSeedAccounts(); err != nil {
			return err
		}
		now := time.Now().UTC()
		f.customer = *parties.CreateCustomer(masterdata.CreateCustomerRequest{Name: "Ali"}, now)
		f.supplier = *parties.CreateSupplier(masterdata.CreateSupplierRequest{Name: "Omar"}, now)
		// open with a receivable and a payable
		if err := parties.AdjustCustomerBalance(f.customer.ID, decimal.NewFromInt(500)); err != nil {
			return err
		}
		return parties.AdjustSupplierBalance(f.supplier.ID, decimal.NewFromInt(300))
	}))
	return f
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

func TestCustomerReceipt(t *testing.T) {
	f := newFixture(t)

	v, err := f.svc.AddVoucher(context.Background(), CreateVoucherRequest{
		Kind:      KindReceipt,
		Amount:    decimal.NewFromInt(200),
		PartyType: PartyCustomer,
		PartyID:   f.customer.ID,
	})
	require.NoError(t, err)
	require.Equal(t, "TRV-0001", v.Number)

	require.True(t, f.customerBalance(t).Equal(decimal.NewFromInt(300)))
	require.True(t, f.accountBalance(t, ledger.CodeTreasury).Equal(decimal.NewFromInt(200)))
	require.True(t, f.accountBalance(t, ledger.CodeCustomers).Equal(decimal.NewFromInt(-200)))

	result := f.svc.ArchiveVoucher(context.Background(), v.ID, true)
	require.True(t, result.Success)
	require.True(t, f.customerBalance(t).Equal(decimal.NewFromInt(500)))
	require.True(t, f.accountBalance(t, ledger.CodeTreasury).IsZero())
}

func TestSupplierPayment(t *testing.T) {
	f := newFixture(t)

	v, err := f.svc.AddVoucher(context.Background(), CreateVoucherRequest{
		Kind:      KindPayment,
		Amount:    decimal.NewFromInt(300),
		PartyType: PartySupplier,
		PartyID:   f.supplier.ID,
	})
	require.NoError(t, err)

	require.True(t, f.supplierBalance(t).IsZero())
	require.True(t, f.accountBalance(t, ledger.CodeTreasury).Equal(decimal.NewFromInt(-300)))
	require.True(t, f.accountBalance(t, ledger.CodeSuppliers).Equal(decimal.NewFromInt(300)))

	result := f.svc.ArchiveVoucher(context.Background(), v.ID, true)
	require.True(t, result.Success)
	require.True(t, f.supplierBalance(t).Equal(decimal.NewFromInt(300)))
}

func TestAccountVoucher(t *testing.T) {
	f := newFixture(t)

	var rentID int64
	require.NoError(t, f.store.Apply(func() error {
		parent, err := f.ledger.AccountByCode("42")
		if err != nil {
			return err
		}
		account, err := f.ledger.AddAccount(&parent.ID, "إيجار", "4299")
		if err != nil {
			return err
		}
		rentID = account.ID
		return nil
	}))

	_, err := f.svc.AddVoucher(context.Background(), CreateVoucherRequest{
		Kind:            KindPayment,
		Amount:          decimal.NewFromInt(150),
		PartyType:       PartyAccount,
		ContraAccountID: rentID,
	})
	require.NoError(t, err)
	require.True(t, f.accountBalance(t, "4299").Equal(decimal.NewFromInt(150)))
	require.True(t, f.accountBalance(t, ledger.CodeTreasury).Equal(decimal.NewFromInt(-150)))
}

func TestVoucherValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddVoucher(ctx, CreateVoucherRequest{
		Kind:      KindReceipt,
		Amount:    decimal.Zero,
		PartyType: PartyCustomer,
		PartyID:   f.customer.ID,
	})
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.svc.AddVoucher(ctx, CreateVoucherRequest{
		Kind:      KindReceipt,
		Amount:    decimal.NewFromInt(10),
		PartyType: PartyAccount,
	})
	require.ErrorIs(t, err, ErrInvalidParty)

	_, err = f.svc.AddVoucher(ctx, CreateVoucherRequest{
		Kind:      KindReceipt,
		Amount:    decimal.NewFromInt(10),
		PartyType: PartyCustomer,
		PartyID:   404,
	})
	require.ErrorIs(t, err, masterdata.ErrCustomerNotFound)

	result := f.svc.ArchiveVoucher(ctx, 9, true)
	require.False(t, result.Success)
	require.Equal(t, "voucher not found", result.Message)
}
