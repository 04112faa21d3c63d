// Package reports builds read-only views over the ledger: trial balance,
// account statements, and control-account reconciliation.
package reports

import (
	"sort"

	"github.com/shopspring/decimal"
)

// AccountActivity models one account's aggregated journal activity.
type AccountActivity struct {
	Code   string
	Name   string
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// Closing computes the closing balance for the account.
func (a AccountActivity) Closing() decimal.Decimal {
	return a.Debit.Sub(a.Credit)
}

// groupKey groups rows by the top of the account code hierarchy.
func (a AccountActivity) groupKey() string {
	if len(a.Code) >= 2 {
		return a.Code[:2]
	}
	return a.Code
}

// TrialBalanceRow is one account row inside a group.
type TrialBalanceRow struct {
	Code    string          `json:"code"`
	Name    string          `json:"name"`
	Debit   decimal.Decimal `json:"debit"`
	Credit  decimal.Decimal `json:"credit"`
	Closing decimal.Decimal `json:"closing"`
}

// TrialBalanceGroup aggregates rows for presentation.
type TrialBalanceGroup struct {
	Key     string            `json:"key"`
	Rows    []TrialBalanceRow `json:"rows"`
	Debit   decimal.Decimal   `json:"debit"`
	Credit  decimal.Decimal   `json:"credit"`
	Closing decimal.Decimal   `json:"closing"`
}

// TrialBalance is the final grouped structure.
type TrialBalance struct {
	Groups      []TrialBalanceGroup `json:"groups"`
	TotalDebit  decimal.Decimal     `json:"totalDebit"`
	TotalCredit decimal.Decimal     `json:"totalCredit"`
}

// BuildTrialBalance converts account activity into grouped trial balance
// data. Totals across all groups must come out equal when the underlying
// journal is balanced.
func BuildTrialBalance(accounts []AccountActivity) TrialBalance {
	groups := make(map[string]*TrialBalanceGroup)
	keys := make([]string, 0)
	for _, acc := range accounts {
		key := acc.groupKey()
		grp, ok := groups[key]
		if !ok {
			grp = &TrialBalanceGroup{Key: key, Debit: decimal.Zero, Credit: decimal.Zero, Closing: decimal.Zero}
			groups[key] = grp
			keys = append(keys, key)
		}
		row := TrialBalanceRow{
			Code:    acc.Code,
			Name:    acc.Name,
			Debit:   acc.Debit,
			Credit:  acc.Credit,
			Closing: acc.Closing(),
		}
		grp.Rows = append(grp.Rows, row)
		grp.Debit = grp.Debit.Add(row.Debit)
		grp.Credit = grp.Credit.Add(row.Credit)
		grp.Closing = grp.Closing.Add(row.Closing)
	}

	sort.Strings(keys)
	result := TrialBalance{TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	for _, key := range keys {
		grp := groups[key]
		sort.Slice(grp.Rows, func(i, j int) bool {
			return grp.Rows[i].Code < grp.Rows[j].Code
		})
		result.Groups = append(result.Groups, *grp)
		result.TotalDebit = result.TotalDebit.Add(grp.Debit)
		result.TotalCredit = result.TotalCredit.Add(grp.Credit)
	}
	return result
}
