package reports

import (
	"encoding/csv"
	"io"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// formatter renders amounts with locale-aware digit grouping.
type formatter struct {
	printer *message.Printer
}

func newFormatter(tag language.Tag) formatter {
	return formatter{printer: message.NewPrinter(tag)}
}

func (f formatter) amount(d decimal.Decimal) string {
	return f.printer.Sprintf("%.2f", d.InexactFloat64())
}

// WriteTrialBalanceCSV serialises a trial balance, one row per account
// with group subtotals.
func WriteTrialBalanceCSV(w io.Writer, tb TrialBalance, tag language.Tag) error {
	f := newFormatter(tag)
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Code", "Name", "Debit", "Credit", "Closing"}); err != nil {
		return err
	}
	for _, group := range tb.Groups {
		for _, row := range group.Rows {
			if err := writer.Write([]string{
				row.Code,
				row.Name,
				f.amount(row.Debit),
				f.amount(row.Credit),
				f.amount(row.Closing),
			}); err != nil {
				return err
			}
		}
		if err := writer.Write([]string{
			group.Key,
			"",
			f.amount(group.Debit),
			f.amount(group.Credit),
			f.amount(group.Closing),
		}); err != nil {
			return err
		}
	}
	if err := writer.Write([]string{
		"",
		"Total",
		f.amount(tb.TotalDebit),
		f.amount(tb.TotalCredit),
		"",
	}); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// WriteStatementCSV serialises an account statement.
func WriteStatementCSV(w io.Writer, stmt Statement, tag language.Tag) error {
	f := newFormatter(tag)
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Number", "Date", "Description", "Debit", "Credit", "Balance"}); err != nil {
		return err
	}
	for _, line := range stmt.Lines {
		if err := writer.Write([]string{
			line.Number,
			line.Date.Format("2006-01-02"),
			line.Description,
			f.amount(line.Debit),
			f.amount(line.Credit),
			f.amount(line.Balance),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
