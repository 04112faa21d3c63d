// Package ledger implements the double-entry core: the chart of accounts
// tree, the journal, and balance propagation. Every transactional module
// funnels its postings through this package; account balances change
// nowhere else.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryStatus enumerates journal lifecycle values.
type EntryStatus string

const (
	EntryStatusPosted   EntryStatus = "POSTED"
	EntryStatusArchived EntryStatus = "ARCHIVED"
)

// Account is a chart of accounts node. Balance is rolled up: it includes
// the node's own postings and those of every descendant, because
// propagation credits every ancestor on the path to a posted line.
type Account struct {
	ID       int64           `json:"id"`
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	Balance  decimal.Decimal `json:"balance"`
	Children []*Account      `json:"children,omitempty"`
}

// Clone returns a deep copy of the subtree rooted at a.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	cp := &Account{ID: a.ID, Code: a.Code, Name: a.Name, Balance: a.Balance}
	for _, child := range a.Children {
		cp.Children = append(cp.Children, child.Clone())
	}
	return cp
}

// JournalEntry is one balanced business event. Entries are never deleted;
// "delete" elsewhere in the application archives the entry and reverses
// its balance effects.
type JournalEntry struct {
	ID           int64           `json:"id"`
	Number       string          `json:"number"`
	Date         time.Time       `json:"date"`
	Description  string          `json:"description"`
	Debit        decimal.Decimal `json:"debit"`
	Credit       decimal.Decimal `json:"credit"`
	Status       EntryStatus     `json:"status"`
	IsArchived   bool            `json:"isArchived"`
	SourceModule string          `json:"sourceModule"`
	SourceRef    uuid.UUID       `json:"sourceRef"`
	Lines        []JournalLine   `json:"lines"`
}

// JournalLine stores a debit or credit amount against an account.
// AccountName is a denormalized snapshot taken at posting time.
type JournalLine struct {
	AccountID   int64           `json:"accountId"`
	AccountName string          `json:"accountName"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// PostingLineInput describes one line of a posting request.
type PostingLineInput struct {
	AccountID int64
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// PostingInput groups everything required to post a journal entry.
type PostingInput struct {
	Date         time.Time
	Description  string
	SourceModule string
	SourceRef    uuid.UUID
	Lines        []PostingLineInput
}

// ArchiveResult reports soft failures: archiving something missing or
// already in the target state is not an error, it is Success=false.
type ArchiveResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

var (
	// ErrAccountNotFound indicates a missing account id or code.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrDuplicateCode indicates an account code collision.
	ErrDuplicateCode = errors.New("ledger: account code already exists")
	// ErrUnbalanced indicates debit != credit across lines.
	ErrUnbalanced = errors.New("ledger: journal lines must balance")
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = errors.New("ledger: journal requires at least two lines")
	// ErrEntryNotFound indicates a missing journal entry.
	ErrEntryNotFound = errors.New("ledger: journal entry not found")
	// ErrSourceAlreadyLinked indicates the document already posted an entry.
	ErrSourceAlreadyLinked = errors.New("ledger: source already linked")
	// ErrMissingCoreAccounts indicates required control accounts are absent.
	ErrMissingCoreAccounts = errors.New("ledger: missing core account(s)")
)

// Validate ensures the posting meets minimum criteria. Posting is
// all-or-nothing downstream: account resolution happens before any
// balance is touched.
func (in PostingInput) Validate() error {
	if len(in.Lines) < 2 {
		return ErrTooFewLines
	}
	var debit, credit decimal.Decimal
	for idx, line := range in.Lines {
		if line.AccountID == 0 {
			return fmt.Errorf("ledger: line %d missing account", idx)
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return fmt.Errorf("ledger: line %d negative amount", idx)
		}
		if line.Debit.IsPositive() && line.Credit.IsPositive() {
			return fmt.Errorf("ledger: line %d cannot be both debit and credit", idx)
		}
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	if !debit.Equal(credit) {
		return ErrUnbalanced
	}
	if in.SourceModule == "" {
		return errors.New("ledger: source module required")
	}
	if in.SourceRef == uuid.Nil {
		return errors.New("ledger: source ref required")
	}
	return nil
}

// Control account codes the document compilers resolve at posting time.
const (
	CodeTreasury          = "1101"
	CodeCustomers         = "1103"
	CodeInventory         = "1104"
	CodeSuppliers         = "2101"
	CodeSales             = "4101"
	CodeSalesDiscount     = "4102"
	CodePurchaseDiscount  = "4103"
	CodeSalesReturns      = "4105"
	CodeCOGS              = "4204"
	CodeInventoryVariance = "4301"
)

// seedAccount is one row of the chart migration list.
type seedAccount struct {
	Code       string
	Name       string
	ParentCode string
}

// seedAccounts lists every account the application requires. The store is
// schemaless, so this list doubles as the chart migration: on load any
// missing node is synthesized with a zero balance under its parent.
var seedAccounts = []seedAccount{
	{"1", "الأصول", ""},
	{"11", "الأصول المتداولة", "1"},
	{CodeTreasury, "الخزينة", "11"},
	{CodeCustomers, "العملاء", "11"},
	{CodeInventory, "المخزون", "11"},
	{"2", "الالتزامات", ""},
	{"21", "الالتزامات المتداولة", "2"},
	{CodeSuppliers, "الموردون", "21"},
	{"3", "حقوق الملكية", ""},
	{"4", "قائمة الدخل", ""},
	{"41", "الإيرادات", "4"},
	{CodeSales, "المبيعات", "41"},
	{CodeSalesDiscount, "خصم المبيعات", "41"},
	{CodePurchaseDiscount, "خصم المشتريات", "41"},
	{CodeSalesReturns, "مردودات المبيعات", "41"},
	{"42", "المصروفات", "4"},
	{CodeCOGS, "تكلفة البضاعة المباعة", "42"},
	{"43", "التسويات المخزنية", "4"},
	{CodeInventoryVariance, "فروقات جرد المخزون", "43"},
}
