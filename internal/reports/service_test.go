package reports

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/daftar-erp/daftar/internal/ledger"
	"github.com/daftar-erp/daftar/internal/masterdata"
	"github.com/daftar-erp/daftar/internal/store"
)

type fixture struct {
	store   *store.Store
	ledger  *ledger.Repository
	parties *masterdata.Repository
	svc     *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.New(filepath.Join(t.TempDir(), "data.json"), time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
	lg := ledger.NewRepository()
	parties := masterdata.NewRepository()
	require.NoError(t, st.Apply(func() error {
		_, err := lg.EnsureSeedAccounts()
		return err
	}))
	return &fixture{store: st, ledger: lg, parties: parties, svc: NewService(st, lg, parties)}
}

func (f *fixture) post(t *testing.T, module string, lines []ledger.PostingLineInput) ledger.JournalEntry {
	t.Helper()
	var entry ledger.JournalEntry
	require.NoError(t, f.store.Apply(func() error {
		var err error
		entry, err = f.ledger.Post(ledger.PostingInput{
			Date:         time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
			Description:  "test posting",
			SourceModule: module,
			SourceRef:    uuid.New(),
			Lines:        lines,
		})
		return err
	}))
	return entry
}

func (f *fixture) accountID(t *testing.T, code string) int64 {
	t.Helper()
	var id int64
	f.store.View(func() {
		account, err := f.ledger.AccountByCode(code)
		require.NoError(t, err)
		id = account.ID
	})
	return id
}

func TestTrialBalance(t *testing.T) {
	f := newFixture(t)
	treasury := f.accountID(t, ledger.CodeTreasury)
	sales := f.accountID(t, ledger.CodeSales)

	f.post(t, "journal", []ledger.PostingLineInput{
		{AccountID: treasury, Debit: decimal.NewFromInt(250)},
		{AccountID: sales, Credit: decimal.NewFromInt(250)},
	})
	archived := f.post(t, "journal2", []ledger.PostingLineInput{
		{AccountID: treasury, Debit: decimal.NewFromInt(99)},
		{AccountID: sales, Credit: decimal.NewFromInt(99)},
	})
	require.NoError(t, f.store.Apply(func() error {
		res := f.ledger.Archive(archived.ID, true)
		require.True(t, res.Success)
		return nil
	}))

	tb, err := f.svc.TrialBalance(context.Background())
	require.NoError(t, err)
	require.True(t, tb.TotalDebit.Equal(decimal.NewFromInt(250)))
	require.True(t, tb.TotalCredit.Equal(decimal.NewFromInt(250)))
	require.Len(t, tb.Groups, 2)

	var found bool
	for _, grp := range tb.Groups {
		for _, row := range grp.Rows {
			if row.Code == ledger.CodeTreasury {
				found = true
				// archived entry excluded
				require.True(t, row.Debit.Equal(decimal.NewFromInt(250)))
				require.True(t, row.Closing.Equal(decimal.NewFromInt(250)))
			}
		}
	}
	require.True(t, found)
}

func TestAccountStatement(t *testing.T) {
	f := newFixture(t)
	treasury := f.accountID(t, ledger.CodeTreasury)
	sales := f.accountID(t, ledger.CodeSales)

	f.post(t, "a", []ledger.PostingLineInput{
		{AccountID: treasury, Debit: decimal.NewFromInt(100)},
		{AccountID: sales, Credit: decimal.NewFromInt(100)},
	})
	f.post(t, "b", []ledger.PostingLineInput{
		{AccountID: sales, Debit: decimal.NewFromInt(30)},
		{AccountID: treasury, Credit: decimal.NewFromInt(30)},
	})

	stmt, err := f.svc.AccountStatement(context.Background(), treasury, nil, nil)
	require.NoError(t, err)
	require.Len(t, stmt.Lines, 2)
	require.True(t, stmt.Lines[0].Balance.Equal(decimal.NewFromInt(100)))
	require.True(t, stmt.Lines[1].Balance.Equal(decimal.NewFromInt(70)))
	require.True(t, stmt.TotalDebit.Equal(decimal.NewFromInt(100)))
	require.True(t, stmt.TotalCredit.Equal(decimal.NewFromInt(30)))

	// date range excludes everything
	from := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	stmt, err = f.svc.AccountStatement(context.Background(), treasury, &from, nil)
	require.NoError(t, err)
	require.Empty(t, stmt.Lines)

	_, err = f.svc.AccountStatement(context.Background(), 9999, nil, nil)
	require.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestReconciliationDetectsDrift(t *testing.T) {
	f := newFixture(t)
	customers := f.accountID(t, ledger.CodeCustomers)
	sales := f.accountID(t, ledger.CodeSales)

	var customerID int64
	require.NoError(t, f.store.Apply(func() error {
		c := f.parties.CreateCustomer(masterdata.CreateCustomerRequest{Name: "Ali"}, time.Now().UTC())
		customerID = c.ID
		return f.parties.AdjustCustomerBalance(c.ID, decimal.NewFromInt(100))
	}))
	f.post(t, "sale", []ledger.PostingLineInput{
		{AccountID: customers, Debit: decimal.NewFromInt(100)},
		{AccountID: sales, Credit: decimal.NewFromInt(100)},
	})

	rec, err := f.svc.Reconcile(context.Background())
	require.NoError(t, err)
	require.True(t, rec.Customers.InSync)
	require.True(t, rec.Suppliers.InSync)

	// inject drift directly into the sub-ledger
	require.NoError(t, f.store.Apply(func() error {
		return f.parties.AdjustCustomerBalance(customerID, decimal.NewFromInt(7))
	}))
	rec, err = f.svc.Reconcile(context.Background())
	require.NoError(t, err)
	require.False(t, rec.Customers.InSync)
	require.True(t, rec.Customers.Difference.Equal(decimal.NewFromInt(-7)))
}

func TestWriteTrialBalanceCSV(t *testing.T) {
	f := newFixture(t)
	treasury := f.accountID(t, ledger.CodeTreasury)
	sales := f.accountID(t, ledger.CodeSales)
	f.post(t, "csv", []ledger.PostingLineInput{
		{AccountID: treasury, Debit: decimal.NewFromInt(1500)},
		{AccountID: sales, Credit: decimal.NewFromInt(1500)},
	})

	tb, err := f.svc.TrialBalance(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteTrialBalanceCSV(&buf, tb, language.English))
	out := buf.String()
	require.True(t, strings.HasPrefix(out, "Code,Name,Debit,Credit,Closing"))
	require.Contains(t, out, ledger.CodeTreasury)
	require.Contains(t, out, "1,500.00")
}
