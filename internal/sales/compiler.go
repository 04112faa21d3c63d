package sales

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/daftar-erp/daftar/internal/ledger"
)

// controlAccounts holds the resolved account ids a sales posting needs.
type controlAccounts struct {
	Customers     int64
	Sales         int64
	SalesDiscount int64
	SalesReturns  int64
	COGS          int64
	Inventory     int64
}

// stockCheck answers whether stock may go negative and what an item's
// current stock is. It is evaluated under the store write lock, so the
// answer is authoritative for the posting being compiled.
type stockCheck struct {
	allowNegative bool
	stockOf       func(itemID int64) decimal.Decimal
}

// compileInvoice turns priced invoice lines into balanced journal lines:
// the customer control account is debited with the total, the discount
// account with the discount, sales is credited with the subtotal, and
// cost of goods sold moves value out of inventory at the snapshot cost.
func compileInvoice(acct controlAccounts, lines []InvoiceLine, subtotal, discount, total decimal.Decimal, check stockCheck) ([]ledger.PostingLineInput, error) {
	if len(lines) == 0 {
		return nil, ErrNoLines
	}
	if discount.GreaterThan(subtotal) {
		return nil, ErrExcessiveDiscount
	}
	cogs := decimal.Zero
	// Draws accumulate per item so several lines of one item cannot
	// jointly overdraw stock.
	draw := make(map[int64]decimal.Decimal, len(lines))
	for _, line := range lines {
		if !check.allowNegative {
			drawn := draw[line.ItemID].Add(line.BaseQty)
			if check.stockOf(line.ItemID).LessThan(drawn) {
				return nil, fmt.Errorf("%w: item %s", ErrInsufficientStock, line.ItemName)
			}
			draw[line.ItemID] = drawn
		}
		cogs = cogs.Add(line.BaseQty.Mul(line.UnitCost))
	}
	posting := []ledger.PostingLineInput{
		{AccountID: acct.Customers, Debit: total},
	}
	if discount.IsPositive() {
		posting = append(posting, ledger.PostingLineInput{AccountID: acct.SalesDiscount, Debit: discount})
	}
	posting = append(posting, ledger.PostingLineInput{AccountID: acct.Sales, Credit: subtotal})
	if cogs.IsPositive() {
		posting = append(posting,
			ledger.PostingLineInput{AccountID: acct.COGS, Debit: cogs},
			ledger.PostingLineInput{AccountID: acct.Inventory, Credit: cogs},
		)
	}
	return posting, nil
}

// compileReturn mirrors the invoice: the returns account is debited, the
// customer credited, and the goods move back into inventory at the cost
// snapshot carried on the lines.
func compileReturn(acct controlAccounts, lines []InvoiceLine, total decimal.Decimal) ([]ledger.PostingLineInput, error) {
	if len(lines) == 0 {
		return nil, ErrNoLines
	}
	cogs := decimal.Zero
	for _, line := range lines {
		cogs = cogs.Add(line.BaseQty.Mul(line.UnitCost))
	}
	posting := []ledger.PostingLineInput{
		{AccountID: acct.SalesReturns, Debit: total},
		{AccountID: acct.Customers, Credit: total},
	}
	if cogs.IsPositive() {
		posting = append(posting,
			ledger.PostingLineInput{AccountID: acct.Inventory, Debit: cogs},
			ledger.PostingLineInput{AccountID: acct.COGS, Credit: cogs},
		)
	}
	return posting, nil
}
