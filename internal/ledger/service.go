package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/daftar-erp/daftar/internal/shared"
	"github.com/daftar-erp/daftar/internal/store"
)

// AuditPort records ledger events for the audit trail.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates posting and archiving journal entries and chart
// maintenance, wrapping every mutation in the store's write lock.
type Service struct {
	store *store.Store
	repo  *Repository
	audit AuditPort
	now   func() time.Time
}

// NewService constructs the ledger service.
func NewService(st *store.Store, repo *Repository, audit AuditPort) *Service {
	return &Service{store: st, repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Repo exposes the repository for modules that post inside their own
// store.Apply closure.
func (s *Service) Repo() *Repository { return s.repo }

// ManualEntryInput is a caller-supplied journal entry draft.
type ManualEntryInput struct {
	Date        time.Time         `json:"date"`
	Description string            `json:"description"`
	Lines       []ManualLineInput `json:"lines" validate:"required,min=2,dive"`
}

// ManualLineInput is one draft line keyed by account code or id.
type ManualLineInput struct {
	AccountID int64           `json:"accountId" validate:"required,gt=0"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
}

// PostEntry posts a manual journal entry. Draft lines must already
// balance; an unbalanced draft is rejected, never silently accepted.
func (s *Service) PostEntry(ctx context.Context, input ManualEntryInput) (JournalEntry, error) {
	date := input.Date
	if date.IsZero() {
		date = s.now().UTC()
	}
	posting := PostingInput{
		Date:         date,
		Description:  input.Description,
		SourceModule: "journal",
		SourceRef:    uuid.New(),
	}
	for _, line := range input.Lines {
		posting.Lines = append(posting.Lines, PostingLineInput{
			AccountID: line.AccountID,
			Debit:     line.Debit,
			Credit:    line.Credit,
		})
	}
	var entry JournalEntry
	err := s.store.Apply(func() error {
		var err error
		entry, err = s.repo.Post(posting)
		return err
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, "journal.post", "journal_entry", fmt.Sprint(entry.ID), map[string]any{"number": entry.Number})
	return entry, nil
}

// Archive archives or unarchives a journal entry, reversing (resp.
// re-applying) its balance deltas.
func (s *Service) Archive(ctx context.Context, id int64, archiving bool) ArchiveResult {
	var result ArchiveResult
	_ = s.store.Apply(func() error {
		result = s.repo.Archive(id, archiving)
		return nil
	})
	if result.Success {
		action := "journal.archive"
		if !archiving {
			action = "journal.unarchive"
		}
		s.record(ctx, action, "journal_entry", fmt.Sprint(id), nil)
	}
	return result
}

// GetEntry returns one journal entry.
func (s *Service) GetEntry(ctx context.Context, id int64) (JournalEntry, error) {
	var entry JournalEntry
	var err error
	s.store.View(func() {
		entry, err = s.repo.Entry(id)
	})
	return entry, err
}

// ListEntries returns every journal entry in posting order.
func (s *Service) ListEntries(ctx context.Context) []JournalEntry {
	var entries []JournalEntry
	s.store.View(func() {
		entries = s.repo.Entries()
	})
	return entries
}

// ListAccounts returns a deep copy of the chart of accounts forest.
func (s *Service) ListAccounts(ctx context.Context) []*Account {
	var accounts []*Account
	s.store.View(func() {
		accounts = s.repo.Accounts()
	})
	return accounts
}

// AddAccountInput describes a new chart node.
type AddAccountInput struct {
	ParentID *int64 `json:"parentId"`
	Name     string `json:"name" validate:"required,max=200"`
	Code     string `json:"code" validate:"required,max=30"`
}

// AddAccount appends a zero-balance account to the chart.
func (s *Service) AddAccount(ctx context.Context, input AddAccountInput) (*Account, error) {
	var account *Account
	err := s.store.Apply(func() error {
		var err error
		account, err = s.repo.AddAccount(input.ParentID, input.Name, input.Code)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, "account.add", "account", account.Code, map[string]any{"name": account.Name})
	return account, nil
}

// EnsureSeedAccounts runs the chart migration after load or import.
func (s *Service) EnsureSeedAccounts(ctx context.Context) (int, error) {
	var created int
	err := s.store.Apply(func() error {
		var err error
		created, err = s.repo.EnsureSeedAccounts()
		return err
	})
	return created, err
}

func (s *Service) record(ctx context.Context, action, entity, entityID string, meta map[string]any) {
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
		EntityID: entityID,
		Meta:     meta,
		At:       s.now().UTC(),
	})
}
