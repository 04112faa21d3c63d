package sales

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/daftar-erp/daftar/internal/ledger"
	"github.com/daftar-erp/daftar/internal/masterdata"
	"github.com/daftar-erp/daftar/internal/shared"
	"github.com/daftar-erp/daftar/internal/store"
)

// AuditPort records sales events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// SettingsPort answers posting policy questions. It is consulted
// inside store.Apply, so implementations must not take the store lock.
type SettingsPort interface {
	AllowNegativeStock() bool
}

// Service posts sales documents. Every AddX composes the journal posting,
// the stock movement, and the customer balance change inside one store
// write, so readers never observe a half-applied sale.
type Service struct {
	store    *store.Store
	repo     *Repository
	ledger   *ledger.Repository
	parties  *masterdata.Repository
	settings SettingsPort
	audit    AuditPort
	now      func() time.Time
}

// NewService wires the sales service.
func NewService(st *store.Store, repo *Repository, lg *ledger.Repository, parties *masterdata.Repository, settings SettingsPort, audit AuditPort) *Service {
	return &Service{store: st, repo: repo, ledger: lg, parties: parties, settings: settings, audit: audit, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) resolveAccounts() (controlAccounts, error) {
	found, err := s.ledger.ResolveControlAccounts(
		ledger.CodeCustomers, ledger.CodeSales, ledger.CodeSalesDiscount,
		ledger.CodeSalesReturns, ledger.CodeCOGS, ledger.CodeInventory,
	)
	if err != nil {
		return controlAccounts{}, err
	}
	return controlAccounts{
		Customers:     found[ledger.CodeCustomers].ID,
		Sales:         found[ledger.CodeSales].ID,
		SalesDiscount: found[ledger.CodeSalesDiscount].ID,
		SalesReturns:  found[ledger.CodeSalesReturns].ID,
		COGS:          found[ledger.CodeCOGS].ID,
		Inventory:     found[ledger.CodeInventory].ID,
	}, nil
}

// buildLines resolves each requested line against the item catalogue and
// snapshots base quantity and unit cost.
func (s *Service) buildLines(reqs []LineRequest) ([]InvoiceLine, decimal.Decimal, error) {
	lines := make([]InvoiceLine, 0, len(reqs))
	subtotal := decimal.Zero
	for _, req := range reqs {
		if !req.Qty.IsPositive() {
			return nil, decimal.Zero, fmt.Errorf("sales: item %d quantity must be positive", req.ItemID)
		}
		if req.Price.IsNegative() {
			return nil, decimal.Zero, fmt.Errorf("sales: item %d price cannot be negative", req.ItemID)
		}
		item, err := s.parties.Item(req.ItemID)
		if err != nil {
			return nil, decimal.Zero, err
		}
		baseQty, err := item.BaseQty(req.Unit, req.Qty)
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("%w: item %s unit %q", masterdata.ErrUnknownUnit, item.Name, req.Unit)
		}
		lineTotal := req.Qty.Mul(req.Price)
		lines = append(lines, InvoiceLine{
			ItemID:   item.ID,
			ItemName: item.Name,
			Unit:     req.Unit,
			Qty:      req.Qty,
			BaseQty:  baseQty,
			Price:    req.Price,
			UnitCost: item.PurchasePrice,
			Total:    lineTotal,
		})
		subtotal = subtotal.Add(lineTotal)
	}
	return lines, subtotal, nil
}

// AddInvoice posts a sales invoice: journal entry, stock decrease, and
// customer balance increase as one atomic change.
func (s *Service) AddInvoice(ctx context.Context, req CreateInvoiceRequest) (Invoice, error) {
	if req.Discount.IsNegative() {
		return Invoice{}, fmt.Errorf("sales: discount cannot be negative")
	}
	date := req.Date
	if date.IsZero() {
		date = s.now().UTC()
	}
	var out Invoice
	err := s.store.Apply(func() error {
		customer, err := s.parties.Customer(req.CustomerID)
		if err != nil {
			return err
		}
		acct, err := s.resolveAccounts()
		if err != nil {
			return err
		}
		lines, subtotal, err := s.buildLines(req.Lines)
		if err != nil {
			return err
		}
		total := subtotal.Sub(req.Discount)
		check := stockCheck{
			allowNegative: s.settings.AllowNegativeStock(),
			stockOf: func(itemID int64) decimal.Decimal {
				item, err := s.parties.Item(itemID)
				if err != nil {
					return decimal.Zero
				}
				return item.Stock
			},
		}
		posting, err := compileInvoice(acct, lines, subtotal, req.Discount, total, check)
		if err != nil {
			return err
		}
		src := uuid.New()
		entry, err := s.ledger.Post(ledger.PostingInput{
			Date:         date,
			Description:  fmt.Sprintf("فاتورة مبيعات - %s", customer.Name),
			SourceModule: "sales",
			SourceRef:    src,
			Lines:        posting,
		})
		if err != nil {
			return err
		}
		for _, line := range lines {
			_ = s.parties.AdjustStock(line.ItemID, line.BaseQty.Neg())
		}
		_ = s.parties.AdjustCustomerBalance(customer.ID, total)
		inv := &Invoice{
			Date:           date,
			CustomerID:     customer.ID,
			CustomerName:   customer.Name,
			Lines:          lines,
			Subtotal:       subtotal,
			Discount:       req.Discount,
			Total:          total,
			Notes:          req.Notes,
			JournalEntryID: entry.ID,
			SourceRef:      src,
			CreatedAt:      s.now().UTC(),
		}
		s.repo.insertInvoice(inv)
		out = *inv
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	s.record(ctx, "sales.invoice.add", "sales_invoice", out.ID, map[string]any{"number": out.Number, "total": out.Total.String()})
	return out, nil
}

// ArchiveInvoice reverses an invoice: the journal entry's deltas are
// negated and stock and the customer balance move back. Unarchiving
// re-applies everything. Missing or already-archived invoices are soft
// failures, never errors.
func (s *Service) ArchiveInvoice(ctx context.Context, id int64, archiving bool) ledger.ArchiveResult {
	var result ledger.ArchiveResult
	_ = s.store.Apply(func() error {
		inv, ok := s.repo.invoices[id]
		if !ok {
			result = ledger.ArchiveResult{Success: false, Message: "invoice not found"}
			return nil
		}
		if inv.IsArchived == archiving {
			if archiving {
				result = ledger.ArchiveResult{Success: false, Message: "invoice already archived"}
			} else {
				result = ledger.ArchiveResult{Success: false, Message: "invoice not archived"}
			}
			return nil
		}
		result = s.ledger.Archive(inv.JournalEntryID, archiving)
		if !result.Success {
			return nil
		}
		sign := decimal.NewFromInt(1)
		if !archiving {
			sign = sign.Neg()
		}
		for _, line := range inv.Lines {
			_ = s.parties.AdjustStock(line.ItemID, line.BaseQty.Mul(sign))
		}
		_ = s.parties.AdjustCustomerBalance(inv.CustomerID, inv.Total.Mul(sign).Neg())
		inv.IsArchived = archiving
		return nil
	})
	if result.Success {
		action := "sales.invoice.archive"
		if !archiving {
			action = "sales.invoice.unarchive"
		}
		s.record(ctx, action, "sales_invoice", id, nil)
	}
	return result
}

// AddReturn posts a sale return: goods come back into stock and the
// customer balance drops by the return total.
func (s *Service) AddReturn(ctx context.Context, req CreateReturnRequest) (Return, error) {
	date := req.Date
	if date.IsZero() {
		date = s.now().UTC()
	}
	var out Return
	err := s.store.Apply(func() error {
		customer, err := s.parties.Customer(req.CustomerID)
		if err != nil {
			return err
		}
		acct, err := s.resolveAccounts()
		if err != nil {
			return err
		}
		lines, total, err := s.buildLines(req.Lines)
		if err != nil {
			return err
		}
		posting, err := compileReturn(acct, lines, total)
		if err != nil {
			return err
		}
		src := uuid.New()
		entry, err := s.ledger.Post(ledger.PostingInput{
			Date:         date,
			Description:  fmt.Sprintf("مردودات مبيعات - %s", customer.Name),
			SourceModule: "sales_return",
			SourceRef:    src,
			Lines:        posting,
		})
		if err != nil {
			return err
		}
		for _, line := range lines {
			_ = s.parties.AdjustStock(line.ItemID, line.BaseQty)
		}
		_ = s.parties.AdjustCustomerBalance(customer.ID, total.Neg())
		ret := &Return{
			Date:           date,
			CustomerID:     customer.ID,
			CustomerName:   customer.Name,
			Lines:          lines,
			Total:          total,
			Notes:          req.Notes,
			JournalEntryID: entry.ID,
			SourceRef:      src,
			CreatedAt:      s.now().UTC(),
		}
		s.repo.insertReturn(ret)
		out = *ret
		return nil
	})
	if err != nil {
		return Return{}, err
	}
	s.record(ctx, "sales.return.add", "sale_return", out.ID, map[string]any{"number": out.Number, "total": out.Total.String()})
	return out, nil
}

// ArchiveReturn reverses a sale return with the same soft-failure rules
// as ArchiveInvoice.
func (s *Service) ArchiveReturn(ctx context.Context, id int64, archiving bool) ledger.ArchiveResult {
	var result ledger.ArchiveResult
	_ = s.store.Apply(func() error {
		ret, ok := s.repo.returns[id]
		if !ok {
			result = ledger.ArchiveResult{Success: false, Message: "return not found"}
			return nil
		}
		if ret.IsArchived == archiving {
			if archiving {
				result = ledger.ArchiveResult{Success: false, Message: "return already archived"}
			} else {
				result = ledger.ArchiveResult{Success: false, Message: "return not archived"}
			}
			return nil
		}
		result = s.ledger.Archive(ret.JournalEntryID, archiving)
		if !result.Success {
			return nil
		}
		sign := decimal.NewFromInt(1)
		if !archiving {
			sign = sign.Neg()
		}
		for _, line := range ret.Lines {
			_ = s.parties.AdjustStock(line.ItemID, line.BaseQty.Mul(sign).Neg())
		}
		_ = s.parties.AdjustCustomerBalance(ret.CustomerID, ret.Total.Mul(sign))
		ret.IsArchived = archiving
		return nil
	})
	if result.Success {
		action := "sales.return.archive"
		if !archiving {
			action = "sales.return.unarchive"
		}
		s.record(ctx, action, "sale_return", id, nil)
	}
	return result
}

// GetInvoice returns one invoice.
func (s *Service) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	var (
		out Invoice
		err error
	)
	s.store.View(func() { out, err = s.repo.Invoice(id) })
	return out, err
}

// ListInvoices returns all invoices.
func (s *Service) ListInvoices(ctx context.Context) []Invoice {
	var out []Invoice
	s.store.View(func() { out = s.repo.Invoices() })
	return out
}

// GetReturn returns one sale return.
func (s *Service) GetReturn(ctx context.Context, id int64) (Return, error) {
	var (
		out Return
		err error
	)
	s.store.View(func() { out, err = s.repo.Return(id) })
	return out, err
}

// ListReturns returns all sale returns.
func (s *Service) ListReturns(ctx context.Context) []Return {
	var out []Return
	s.store.View(func() { out = s.repo.Returns() })
	return out
}

func (s *Service) record(ctx context.Context, action, entity string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	actor := ""
	if sess := shared.SessionFromContext(ctx); sess != nil {
		actor = sess.User()
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
		At:       s.now().UTC(),
	})
}
