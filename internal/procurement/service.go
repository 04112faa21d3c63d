package procurement

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

// AuditPort records procurement events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// SettingsPort answers posting policy questions. It is consulted
// inside store.Apply, so implementations must not take the store lock.
type SettingsPort interface {
	AllowNegativeStock() bool
}

// Service posts purchase documents atomically: journal entry, stock
// increase, and supplier balance change under one store write.
type Service struct {
	store    *store.Store
	repo     *Repository
	ledger   *ledger.Repository
	parties  *masterdata.Repository
	settings SettingsPort
	audit    AuditPort
	now      func() time.Time
}

// NewService wires the procurement service.
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
		ledger.CodeSuppliers, ledger.CodeInventory, ledger.CodePurchaseDiscount,
	)
	if err != nil {
		return controlAccounts{}, err
	}
	return controlAccounts{
		Suppliers:        found[ledger.CodeSuppliers].ID,
		Inventory:        found[ledger.CodeInventory].ID,
		PurchaseDiscount: found[ledger.CodePurchaseDiscount].ID,
	}, nil
}

func (s *Service) buildLines(reqs []LineRequest) ([]PurchaseLine, decimal.Decimal, error) {
	lines := make([]PurchaseLine, 0, len(reqs))
	subtotal := decimal.Zero
	for _, req := range reqs {
		if !req.Qty.IsPositive() {
			return nil, decimal.Zero, fmt.Errorf("procurement: item %d quantity must be positive", req.ItemID)
		}
		if req.Price.IsNegative() {
			return nil, decimal.Zero, fmt.Errorf("procurement: item %d price cannot be negative", req.ItemID)
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
		lines = append(lines, PurchaseLine{
			ItemID:   item.ID,
			ItemName: item.Name,
			Unit:     req.Unit,
			Qty:      req.Qty,
			BaseQty:  baseQty,
			Price:    req.Price,
			Total:    lineTotal,
		})
		subtotal = subtotal.Add(lineTotal)
	}
	return lines, subtotal, nil
}

// AddPurchase posts a purchase invoice.
func (s *Service) AddPurchase(ctx context.Context, req CreatePurchaseRequest) (Purchase, error) {
	if req.Discount.IsNegative() {
		return Purchase{}, fmt.Errorf("procurement: discount cannot be negative")
	}
	date := req.Date
	if date.IsZero() {
		date = s.now().UTC()
	}
	var out Purchase
	err := s.store.Apply(func() error {
		supplier, err := s.parties.Supplier(req.SupplierID)
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
		posting, err := compilePurchase(acct, lines, subtotal, req.Discount, total)
		if err != nil {
			return err
		}
		src := uuid.New()
		entry, err := s.ledger.Post(ledger.PostingInput{
			Date:         date,
			Description:  fmt.Sprintf("فاتورة مشتريات - %s", supplier.Name),
			SourceModule: "procurement",
			SourceRef:    src,
			Lines:        posting,
		})
		if err != nil {
			return err
		}
		for _, line := range lines {
			_ = s.parties.AdjustStock(line.ItemID, line.BaseQty)
		}
		_ = s.parties.AdjustSupplierBalance(supplier.ID, total)
		p := &Purchase{
			Date:           date,
			SupplierID:     supplier.ID,
			SupplierName:   supplier.Name,
			Lines:          lines,
			Subtotal:       subtotal,
			Discount:       req.Discount,
			Total:          total,
			Notes:          req.Notes,
			JournalEntryID: entry.ID,
			SourceRef:      src,
			CreatedAt:      s.now().UTC(),
		}
		s.repo.insertPurchase(p)
		out = *p
		return nil
	})
	if err != nil {
		return Purchase{}, err
	}
	s.record(ctx, "procurement.purchase.add", "purchase", out.ID, map[string]any{"number": out.Number, "total": out.Total.String()})
	return out, nil
}

// ArchivePurchase reverses a purchase with soft-failure semantics.
func (s *Service) ArchivePurchase(ctx context.Context, id int64, archiving bool) ledger.ArchiveResult {
	var result ledger.ArchiveResult
	_ = s.store.Apply(func() error {
		p, ok := s.repo.purchases[id]
		if !ok {
			result = ledger.ArchiveResult{Success: false, Message: "purchase not found"}
			return nil
		}
		if p.IsArchived == archiving {
			if archiving {
				result = ledger.ArchiveResult{Success: false, Message: "purchase already archived"}
			} else {
				result = ledger.ArchiveResult{Success: false, Message: "purchase not archived"}
			}
			return nil
		}
		result = s.ledger.Archive(p.JournalEntryID, archiving)
		if !result.Success {
			return nil
		}
		sign := decimal.NewFromInt(1)
		if !archiving {
			sign = sign.Neg()
		}
		for _, line := range p.Lines {
			_ = s.parties.AdjustStock(line.ItemID, line.BaseQty.Mul(sign).Neg())
		}
		_ = s.parties.AdjustSupplierBalance(p.SupplierID, p.Total.Mul(sign).Neg())
		p.IsArchived = archiving
		return nil
	})
	if result.Success {
		action := "procurement.purchase.archive"
		if !archiving {
			action = "procurement.purchase.unarchive"
		}
		s.record(ctx, action, "purchase", id, nil)
	}
	return result
}

// AddReturn posts a purchase return.
func (s *Service) AddReturn(ctx context.Context, req CreateReturnRequest) (Return, error) {
	date := req.Date
	if date.IsZero() {
		date = s.now().UTC()
	}
	var out Return
	err := s.store.Apply(func() error {
		supplier, err := s.parties.Supplier(req.SupplierID)
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
		posting, err := compileReturn(acct, lines, total, check)
		if err != nil {
			return err
		}
		src := uuid.New()
		entry, err := s.ledger.Post(ledger.PostingInput{
			Date:         date,
			Description:  fmt.Sprintf("مردودات مشتريات - %s", supplier.Name),
			SourceModule: "procurement_return",
			SourceRef:    src,
			Lines:        posting,
		})
		if err != nil {
			return err
		}
		for _, line := range lines {
			_ = s.parties.AdjustStock(line.ItemID, line.BaseQty.Neg())
		}
		_ = s.parties.AdjustSupplierBalance(supplier.ID, total.Neg())
		ret := &Return{
			Date:           date,
			SupplierID:     supplier.ID,
			SupplierName:   supplier.Name,
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
	s.record(ctx, "procurement.return.add", "purchase_return", out.ID, map[string]any{"number": out.Number, "total": out.Total.String()})
	return out, nil
}

// ArchiveReturn reverses a purchase return with soft-failure semantics.
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
			_ = s.parties.AdjustStock(line.ItemID, line.BaseQty.Mul(sign))
		}
		_ = s.parties.AdjustSupplierBalance(ret.SupplierID, ret.Total.Mul(sign))
		ret.IsArchived = archiving
		return nil
	})
	if result.Success {
		action := "procurement.return.archive"
		if !archiving {
			action = "procurement.return.unarchive"
		}
		s.record(ctx, action, "purchase_return", id, nil)
	}
	return result
}

// GetPurchase returns one purchase.
func (s *Service) GetPurchase(ctx context.Context, id int64) (Purchase, error) {
	var (
		out Purchase
		err error
	)
	s.store.View(func() { out, err = s.repo.Purchase(id) })
	return out, err
}

// ListPurchases returns all purchases.
func (s *Service) ListPurchases(ctx context.Context) []Purchase {
	var out []Purchase
	s.store.View(func() { out = s.repo.Purchases() })
	return out
}

// GetReturn returns one purchase return.
func (s *Service) GetReturn(ctx context.Context, id int64) (Return, error) {
	var (
		out Return
		err error
	)
	s.store.View(func() { out, err = s.repo.Return(id) })
	return out, err
}

// ListReturns returns all purchase returns.
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
