package inventory

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/daftar-erp/daftar/internal/ledger"
	"github.com/daftar-erp/daftar/internal/masterdata"
	"github.com/daftar-erp/daftar/internal/shared"
	"github.com/daftar-erp/daftar/internal/store"
)

// AuditPort records inventory events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// SettingsPort answers posting policy questions. It is consulted
// inside store.Apply, so implementations must not take the store lock.
type SettingsPort interface {
	AllowNegativeStock() bool
}

// Service posts valued stock adjustments: the journal entry and the
// stock movement land under one store write.
type Service struct {
	store    *store.Store
	repo     *Repository
	ledger   *ledger.Repository
	parties  *masterdata.Repository
	settings SettingsPort
	audit    AuditPort
	now      func() time.Time
}

// NewService wires the inventory service.
func NewService(st *store.Store, repo *Repository, lg *ledger.Repository, parties *masterdata.Repository, settings SettingsPort, audit AuditPort) *Service {
	return &Service{store: st, repo: repo, ledger: lg, parties: parties, settings: settings, audit: audit, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// AddAdjustment posts a stock increase or decrease valued at the unit
// cost: increases debit inventory and credit the contra account,
// decreases mirror that.
func (s *Service) AddAdjustment(ctx context.Context, req CreateAdjustmentRequest) (Adjustment, error) {
	if !req.Qty.IsPositive() {
		return Adjustment{}, ErrInvalidQty
	}
	if req.Kind != KindIncrease && req.Kind != KindDecrease {
		return Adjustment{}, ErrInvalidKind
	}
	date := req.Date
	if date.IsZero() {
		date = s.now().UTC()
	}
	var out Adjustment
	err := s.store.Apply(func() error {
		item, err := s.parties.Item(req.ItemID)
		if err != nil {
			return err
		}
		baseQty, err := item.BaseQty(req.Unit, req.Qty)
		if err != nil {
			return fmt.Errorf("%w: item %s unit %q", masterdata.ErrUnknownUnit, item.Name, req.Unit)
		}
		unitCost := item.PurchasePrice
		if req.UnitCost != nil {
			if req.UnitCost.IsNegative() {
				return fmt.Errorf("inventory: unit cost cannot be negative")
			}
			unitCost = *req.UnitCost
		}
		if req.Kind == KindDecrease && !s.settings.AllowNegativeStock() && item.Stock.LessThan(baseQty) {
			return fmt.Errorf("%w: item %s", ErrInsufficientStock, item.Name)
		}
		inventoryAcct, err := s.ledger.AccountByCode(ledger.CodeInventory)
		if err != nil {
			return fmt.Errorf("%w: %s", ledger.ErrMissingCoreAccounts, ledger.CodeInventory)
		}
		contraID := req.ContraAccountID
		if contraID == 0 {
			variance, err := s.ledger.AccountByCode(ledger.CodeInventoryVariance)
			if err != nil {
				return fmt.Errorf("%w: %s", ledger.ErrMissingCoreAccounts, ledger.CodeInventoryVariance)
			}
			contraID = variance.ID
		} else if _, err := s.ledger.AccountByID(contraID); err != nil {
			return err
		}
		value := baseQty.Mul(unitCost)
		var posting []ledger.PostingLineInput
		var label string
		if req.Kind == KindIncrease {
			label = "إضافة مخزون"
			posting = []ledger.PostingLineInput{
				{AccountID: inventoryAcct.ID, Debit: value},
				{AccountID: contraID, Credit: value},
			}
		} else {
			label = "صرف مخزون"
			posting = []ledger.PostingLineInput{
				{AccountID: contraID, Debit: value},
				{AccountID: inventoryAcct.ID, Credit: value},
			}
		}
		src := uuid.New()
		entry, err := s.ledger.Post(ledger.PostingInput{
			Date:         date,
			Description:  fmt.Sprintf("%s - %s", label, item.Name),
			SourceModule: "inventory",
			SourceRef:    src,
			Lines:        posting,
		})
		if err != nil {
			return err
		}
		delta := baseQty
		if req.Kind == KindDecrease {
			delta = delta.Neg()
		}
		_ = s.parties.AdjustStock(item.ID, delta)
		adj := &Adjustment{
			Kind:            req.Kind,
			Date:            date,
			ItemID:          item.ID,
			ItemName:        item.Name,
			Unit:            req.Unit,
			Qty:             req.Qty,
			BaseQty:         baseQty,
			UnitCost:        unitCost,
			Value:           value,
			ContraAccountID: contraID,
			Reason:          req.Reason,
			JournalEntryID:  entry.ID,
			SourceRef:       src,
			CreatedAt:       s.now().UTC(),
		}
		s.repo.insert(adj)
		out = *adj
		return nil
	})
	if err != nil {
		return Adjustment{}, err
	}
	s.record(ctx, "inventory.adjustment.add", "inventory_adjustment", out.ID, map[string]any{"number": out.Number, "kind": string(out.Kind)})
	return out, nil
}

// ArchiveAdjustment reverses an adjustment with soft-failure semantics.
func (s *Service) ArchiveAdjustment(ctx context.Context, id int64, archiving bool) ledger.ArchiveResult {
	var result ledger.ArchiveResult
	_ = s.store.Apply(func() error {
		a, ok := s.repo.adjustments[id]
		if !ok {
			result = ledger.ArchiveResult{Success: false, Message: "adjustment not found"}
			return nil
		}
		if a.IsArchived == archiving {
			if archiving {
				result = ledger.ArchiveResult{Success: false, Message: "adjustment already archived"}
			} else {
				result = ledger.ArchiveResult{Success: false, Message: "adjustment not archived"}
			}
			return nil
		}
		result = s.ledger.Archive(a.JournalEntryID, archiving)
		if !result.Success {
			return nil
		}
		delta := a.BaseQty
		if a.Kind == KindIncrease {
			delta = delta.Neg()
		}
		if !archiving {
			delta = delta.Neg()
		}
		_ = s.parties.AdjustStock(a.ItemID, delta)
		a.IsArchived = archiving
		return nil
	})
	if result.Success {
		action := "inventory.adjustment.archive"
		if !archiving {
			action = "inventory.adjustment.unarchive"
		}
		s.record(ctx, action, "inventory_adjustment", id, nil)
	}
	return result
}

// GetAdjustment returns one adjustment.
func (s *Service) GetAdjustment(ctx context.Context, id int64) (Adjustment, error) {
	var (
		out Adjustment
		err error
	)
	s.store.View(func() { out, err = s.repo.Adjustment(id) })
	return out, err
}

// ListAdjustments returns all adjustments.
func (s *Service) ListAdjustments(ctx context.Context) []Adjustment {
	var out []Adjustment
	s.store.View(func() { out = s.repo.Adjustments() })
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
