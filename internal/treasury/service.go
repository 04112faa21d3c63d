package treasury

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

// AuditPort records treasury events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service posts treasury vouchers. A party-linked voucher moves the
// party's running balance together with the control-account posting, so
// the sub-ledger never drifts from the chart.
type Service struct {
	store   *store.Store
	repo    *Repository
	ledger  *ledger.Repository
	parties *masterdata.Repository
	audit   AuditPort
	now     func() time.Time
}

// NewService wires the treasury service.
func NewService(st *store.Store, repo *Repository, lg *ledger.Repository, parties *masterdata.Repository, audit AuditPort) *Service {
	return &Service{store: st, repo: repo, ledger: lg, parties: parties, audit: audit, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// partyDelta is the change a voucher applies to its party's running
// balance. Receipts credit the party's control account; for a customer
// that settles debt, for a supplier it records a refund owed back.
func partyDelta(v *Voucher) decimal.Decimal {
	switch v.PartyType {
	case PartyCustomer:
		if v.Kind == KindReceipt {
			return v.Amount.Neg()
		}
		return v.Amount
	case PartySupplier:
		if v.Kind == KindReceipt {
			return v.Amount
		}
		return v.Amount.Neg()
	default:
		return decimal.Zero
	}
}

func (s *Service) applyPartyDelta(v *Voucher, delta decimal.Decimal) {
	switch v.PartyType {
	case PartyCustomer:
		_ = s.parties.AdjustCustomerBalance(v.PartyID, delta)
	case PartySupplier:
		_ = s.parties.AdjustSupplierBalance(v.PartyID, delta)
	}
}

// AddVoucher posts a receipt or payment voucher.
func (s *Service) AddVoucher(ctx context.Context, req CreateVoucherRequest) (Voucher, error) {
	if !req.Amount.IsPositive() {
		return Voucher{}, ErrInvalidAmount
	}
	if req.Kind != KindReceipt && req.Kind != KindPayment {
		return Voucher{}, ErrInvalidKind
	}
	date := req.Date
	if date.IsZero() {
		date = s.now().UTC()
	}
	var out Voucher
	err := s.store.Apply(func() error {
		treasuryAcct, err := s.ledger.AccountByCode(ledger.CodeTreasury)
		if err != nil {
			return fmt.Errorf("%w: %s", ledger.ErrMissingCoreAccounts, ledger.CodeTreasury)
		}
		voucher := &Voucher{
			Kind:            req.Kind,
			Date:            date,
			Amount:          req.Amount,
			PartyType:       req.PartyType,
			PartyID:         req.PartyID,
			ContraAccountID: req.ContraAccountID,
			Description:     req.Description,
			CreatedAt:       s.now().UTC(),
		}
		var contraID int64
		switch req.PartyType {
		case PartyCustomer:
			customer, err := s.parties.Customer(req.PartyID)
			if err != nil {
				return err
			}
			voucher.PartyName = customer.Name
			contra, err := s.ledger.AccountByCode(ledger.CodeCustomers)
			if err != nil {
				return fmt.Errorf("%w: %s", ledger.ErrMissingCoreAccounts, ledger.CodeCustomers)
			}
			contraID = contra.ID
		case PartySupplier:
			supplier, err := s.parties.Supplier(req.PartyID)
			if err != nil {
				return err
			}
			voucher.PartyName = supplier.Name
			contra, err := s.ledger.AccountByCode(ledger.CodeSuppliers)
			if err != nil {
				return fmt.Errorf("%w: %s", ledger.ErrMissingCoreAccounts, ledger.CodeSuppliers)
			}
			contraID = contra.ID
		case PartyAccount:
			if req.ContraAccountID == 0 {
				return fmt.Errorf("%w: contra account required", ErrInvalidParty)
			}
			contra, err := s.ledger.AccountByID(req.ContraAccountID)
			if err != nil {
				return err
			}
			contraID = contra.ID
		default:
			return fmt.Errorf("%w: %q", ErrInvalidParty, req.PartyType)
		}
		voucher.ContraAccountID = contraID

		var posting []ledger.PostingLineInput
		var label string
		if req.Kind == KindReceipt {
			label = "سند قبض"
			posting = []ledger.PostingLineInput{
				{AccountID: treasuryAcct.ID, Debit: req.Amount},
				{AccountID: contraID, Credit: req.Amount},
			}
		} else {
			label = "سند صرف"
			posting = []ledger.PostingLineInput{
				{AccountID: contraID, Debit: req.Amount},
				{AccountID: treasuryAcct.ID, Credit: req.Amount},
			}
		}
		description := label
		if voucher.PartyName != "" {
			description = fmt.Sprintf("%s - %s", label, voucher.PartyName)
		}
		src := uuid.New()
		entry, err := s.ledger.Post(ledger.PostingInput{
			Date:         date,
			Description:  description,
			SourceModule: "treasury",
			SourceRef:    src,
			Lines:        posting,
		})
		if err != nil {
			return err
		}
		voucher.JournalEntryID = entry.ID
		voucher.SourceRef = src
		s.applyPartyDelta(voucher, partyDelta(voucher))
		s.repo.insert(voucher)
		out = *voucher
		return nil
	})
	if err != nil {
		return Voucher{}, err
	}
	s.record(ctx, "treasury.voucher.add", "treasury_voucher", out.ID, map[string]any{"number": out.Number, "kind": string(out.Kind)})
	return out, nil
}

// ArchiveVoucher reverses a voucher with soft-failure semantics.
func (s *Service) ArchiveVoucher(ctx context.Context, id int64, archiving bool) ledger.ArchiveResult {
	var result ledger.ArchiveResult
	_ = s.store.Apply(func() error {
		v, ok := s.repo.vouchers[id]
		if !ok {
			result = ledger.ArchiveResult{Success: false, Message: "voucher not found"}
			return nil
		}
		if v.IsArchived == archiving {
			if archiving {
				result = ledger.ArchiveResult{Success: false, Message: "voucher already archived"}
			} else {
				result = ledger.ArchiveResult{Success: false, Message: "voucher not archived"}
			}
			return nil
		}
		result = s.ledger.Archive(v.JournalEntryID, archiving)
		if !result.Success {
			return nil
		}
		delta := partyDelta(v)
		if archiving {
			delta = delta.Neg()
		}
		s.applyPartyDelta(v, delta)
		v.IsArchived = archiving
		return nil
	})
	if result.Success {
		action := "treasury.voucher.archive"
		if !archiving {
			action = "treasury.voucher.unarchive"
		}
		s.record(ctx, action, "treasury_voucher", id, nil)
	}
	return result
}

// GetVoucher returns one voucher.
func (s *Service) GetVoucher(ctx context.Context, id int64) (Voucher, error) {
	var (
		out Voucher
		err error
	)
	s.store.View(func() { out, err = s.repo.Voucher(id) })
	return out, err
}

// ListVouchers returns all vouchers.
func (s *Service) ListVouchers(ctx context.Context) []Voucher {
	var out []Voucher
	s.store.View(func() { out = s.repo.Vouchers() })
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
