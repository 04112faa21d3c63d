package procurement

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/daftar-erp/daftar/internal/ledger"
)

// controlAccounts holds the resolved account ids a purchase posting needs.
type controlAccounts struct {
	Suppliers        int64
	Inventory        int64
	PurchaseDiscount int64
}

// stockCheck mirrors the sales-side guard: purchase returns take goods
// out of stock and must not drive it negative unless policy allows.
type stockCheck struct {
	allowNegative bool
	stockOf       func(itemID int64) decimal.Decimal
}

// compilePurchase debits inventory with the goods value and credits the
// supplier control account with the amount owed, splitting out any
// discount received.
func compilePurchase(acct controlAccounts, lines []PurchaseLine, subtotal, discount, total decimal.Decimal) ([]ledger.PostingLineInput, error) {
	if len(lines) == 0 {
		return nil, ErrNoLines
	}
	if discount.GreaterThan(subtotal) {
		return nil, ErrExcessiveDiscount
	}
	posting := []ledger.PostingLineInput{
		{AccountID: acct.Inventory, Debit: subtotal},
		{AccountID: acct.Suppliers, Credit: total},
	}
	if discount.IsPositive() {
		posting = append(posting, ledger.PostingLineInput{AccountID: acct.PurchaseDiscount, Credit: discount})
	}
	return posting, nil
}

// compileReturn mirrors the purchase: the supplier is debited and goods
// leave inventory at the price on the return lines.
func compileReturn(acct controlAccounts, lines []PurchaseLine, total decimal.Decimal, check stockCheck) ([]ledger.PostingLineInput, error) {
	if len(lines) == 0 {
		return nil, ErrNoLines
	}
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
	}
	return []ledger.PostingLineInput{
		{AccountID: acct.Suppliers, Debit: total},
		{AccountID: acct.Inventory, Credit: total},
	}, nil
}
