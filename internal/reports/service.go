package reports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/daftar-erp/daftar/internal/ledger"
	"github.com/daftar-erp/daftar/internal/masterdata"
	"github.com/daftar-erp/daftar/internal/store"
)

// StatementLine is one journal line touching the statement's account.
type StatementLine struct {
	EntryID     int64           `json:"entryId"`
	Number      string          `json:"number"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Balance     decimal.Decimal `json:"balance"`
}

// Statement is the movement history of one account.
type Statement struct {
	AccountID   int64           `json:"accountId"`
	AccountCode string          `json:"accountCode"`
	AccountName string          `json:"accountName"`
	From        *time.Time      `json:"from,omitempty"`
	To          *time.Time      `json:"to,omitempty"`
	Lines       []StatementLine `json:"lines"`
	TotalDebit  decimal.Decimal `json:"totalDebit"`
	TotalCredit decimal.Decimal `json:"totalCredit"`
}

// ReconciliationSide compares a control account against its sub-ledger.
type ReconciliationSide struct {
	ControlCode    string          `json:"controlCode"`
	ControlName    string          `json:"controlName"`
	ControlBalance decimal.Decimal `json:"controlBalance"`
	PartyTotal     decimal.Decimal `json:"partyTotal"`
	Difference     decimal.Decimal `json:"difference"`
	InSync         bool            `json:"inSync"`
}

// Reconciliation reports whether party balances match their control
// accounts. Differences are surfaced, never repaired.
type Reconciliation struct {
	Customers ReconciliationSide `json:"customers"`
	Suppliers ReconciliationSide `json:"suppliers"`
}

// Service builds reports under the store's read lock. Concurrent
// requests for the same report share one build via singleflight.
type Service struct {
	store   *store.Store
	ledger  *ledger.Repository
	parties *masterdata.Repository
	group   singleflight.Group
}

// NewService wires the reports service.
func NewService(st *store.Store, lg *ledger.Repository, parties *masterdata.Repository) *Service {
	return &Service{store: st, ledger: lg, parties: parties}
}

// TrialBalance aggregates unarchived journal activity per account.
func (s *Service) TrialBalance(ctx context.Context) (TrialBalance, error) {
	v, err, _ := s.group.Do("trial-balance", func() (any, error) {
		var tb TrialBalance
		s.store.View(func() {
			type totals struct {
				debit  decimal.Decimal
				credit decimal.Decimal
			}
			byAccount := make(map[int64]*totals)
			for _, entry := range s.ledger.Entries() {
				if entry.IsArchived {
					continue
				}
				for _, line := range entry.Lines {
					t, ok := byAccount[line.AccountID]
					if !ok {
						t = &totals{debit: decimal.Zero, credit: decimal.Zero}
						byAccount[line.AccountID] = t
					}
					t.debit = t.debit.Add(line.Debit)
					t.credit = t.credit.Add(line.Credit)
				}
			}
			activity := make([]AccountActivity, 0, len(byAccount))
			for id, t := range byAccount {
				account, err := s.ledger.AccountByID(id)
				if err != nil {
					continue
				}
				activity = append(activity, AccountActivity{
					Code:   account.Code,
					Name:   account.Name,
					Debit:  t.debit,
					Credit: t.credit,
				})
			}
			tb = BuildTrialBalance(activity)
		})
		return tb, nil
	})
	if err != nil {
		return TrialBalance{}, err
	}
	return v.(TrialBalance), nil
}

// AccountStatement lists the unarchived journal lines touching one
// account inside the optional date range, with a running balance.
func (s *Service) AccountStatement(ctx context.Context, accountID int64, from, to *time.Time) (Statement, error) {
	var (
		stmt Statement
		err  error
	)
	s.store.View(func() {
		account, lookupErr := s.ledger.AccountByID(accountID)
		if lookupErr != nil {
			err = lookupErr
			return
		}
		stmt = Statement{
			AccountID:   account.ID,
			AccountCode: account.Code,
			AccountName: account.Name,
			From:        from,
			To:          to,
			TotalDebit:  decimal.Zero,
			TotalCredit: decimal.Zero,
		}
		running := decimal.Zero
		for _, entry := range s.ledger.Entries() {
			if entry.IsArchived {
				continue
			}
			if from != nil && entry.Date.Before(*from) {
				continue
			}
			if to != nil && entry.Date.After(*to) {
				continue
			}
			for _, line := range entry.Lines {
				if line.AccountID != accountID {
					continue
				}
				running = running.Add(line.Debit).Sub(line.Credit)
				stmt.Lines = append(stmt.Lines, StatementLine{
					EntryID:     entry.ID,
					Number:      entry.Number,
					Date:        entry.Date,
					Description: entry.Description,
					Debit:       line.Debit,
					Credit:      line.Credit,
					Balance:     running,
				})
				stmt.TotalDebit = stmt.TotalDebit.Add(line.Debit)
				stmt.TotalCredit = stmt.TotalCredit.Add(line.Credit)
			}
		}
	})
	return stmt, err
}

// Reconcile compares party balance totals against the control accounts.
// The customers control is an asset, so party balances track it directly;
// the suppliers control is a liability and tracks the negated balance.
func (s *Service) Reconcile(ctx context.Context) (Reconciliation, error) {
	var (
		rec Reconciliation
		err error
	)
	s.store.View(func() {
		customers, lookupErr := s.ledger.AccountByCode(ledger.CodeCustomers)
		if lookupErr != nil {
			err = lookupErr
			return
		}
		suppliers, lookupErr := s.ledger.AccountByCode(ledger.CodeSuppliers)
		if lookupErr != nil {
			err = lookupErr
			return
		}
		customerTotal := s.parties.SumCustomerBalances()
		supplierTotal := s.parties.SumSupplierBalances()
		customerDiff := customers.Balance.Sub(customerTotal)
		supplierDiff := suppliers.Balance.Neg().Sub(supplierTotal)
		rec = Reconciliation{
			Customers: ReconciliationSide{
				ControlCode:    customers.Code,
				ControlName:    customers.Name,
				ControlBalance: customers.Balance,
				PartyTotal:     customerTotal,
				Difference:     customerDiff,
				InSync:         customerDiff.IsZero(),
			},
			Suppliers: ReconciliationSide{
				ControlCode:    suppliers.Code,
				ControlName:    suppliers.Name,
				ControlBalance: suppliers.Balance,
				PartyTotal:     supplierTotal,
				Difference:     supplierDiff,
				InSync:         supplierDiff.IsZero(),
			},
		}
	})
	return rec, err
}
