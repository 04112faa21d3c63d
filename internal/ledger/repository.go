package ledger

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/daftar-erp/daftar/internal/platform/numerator"
	"github.com/daftar-erp/daftar/internal/store"
)

// Repository owns the chart of accounts and the journal. Methods assume
// the caller holds the store lock; the Service wraps them accordingly,
// and other modules call them inside their own store.Apply closures so a
// document, its journal entry, and its side effects commit together.
type Repository struct {
	roots         []*Account
	nextAccountID int64

	entries     []*JournalEntry
	byID        map[int64]*JournalEntry
	nextEntryID int64
	seq         *numerator.Sequence
	sourceLinks map[string]int64
}

// NewRepository builds an empty ledger repository.
func NewRepository() *Repository {
	return &Repository{
		byID:        make(map[int64]*JournalEntry),
		seq:         numerator.NewSequence("JV", 4),
		sourceLinks: make(map[string]int64),
	}
}

// Accounts returns a deep copy of the chart forest.
func (r *Repository) Accounts() []*Account {
	out := make([]*Account, 0, len(r.roots))
	for _, root := range r.roots {
		out = append(out, root.Clone())
	}
	return out
}

// AccountByID resolves an account by id.
func (r *Repository) AccountByID(id int64) (*Account, error) {
	if node := findByID(r.roots, id); node != nil {
		return node, nil
	}
	return nil, fmt.Errorf("%w: id %d", ErrAccountNotFound, id)
}

// AccountByCode resolves an account by its unique code.
func (r *Repository) AccountByCode(code string) (*Account, error) {
	if node := findByCode(r.roots, code); node != nil {
		return node, nil
	}
	return nil, fmt.Errorf("%w: code %s", ErrAccountNotFound, code)
}

// ResolveControlAccounts resolves every code or reports all missing ones
// in a single configuration error, the message an administrator sees.
func (r *Repository) ResolveControlAccounts(codes ...string) (map[string]*Account, error) {
	found := make(map[string]*Account, len(codes))
	var missing []string
	for _, code := range codes {
		if node := findByCode(r.roots, code); node != nil {
			found[code] = node
			continue
		}
		missing = append(missing, code)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingCoreAccounts, strings.Join(missing, ", "))
	}
	return found, nil
}

// AddAccount appends a zero-balance leaf under parentID, or a new root
// when parentID is nil. A missing parent is an error, never a silent
// no-op.
func (r *Repository) AddAccount(parentID *int64, name, code string) (*Account, error) {
	if code == "" || name == "" {
		return nil, fmt.Errorf("ledger: account name and code required")
	}
	if findByCode(r.roots, code) != nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateCode, code)
	}
	node := &Account{ID: r.nextID(), Code: code, Name: name, Balance: decimal.Zero}
	if parentID == nil {
		r.roots = append(r.roots, node)
		return node.Clone(), nil
	}
	parent := findByID(r.roots, *parentID)
	if parent == nil {
		return nil, fmt.Errorf("%w: parent id %d", ErrAccountNotFound, *parentID)
	}
	parent.Children = append(parent.Children, node)
	return node.Clone(), nil
}

func (r *Repository) nextID() int64 {
	r.nextAccountID++
	return r.nextAccountID
}

// EnsureSeedAccounts synthesizes any required account that is missing,
// attaching it under its expected parent. Idempotent; run once after the
// store is loaded or imported. Returns the number of nodes created.
func (r *Repository) EnsureSeedAccounts() (int, error) {
	created := 0
	for _, seed := range seedAccounts {
		if findByCode(r.roots, seed.Code) != nil {
			continue
		}
		node := &Account{ID: r.nextID(), Code: seed.Code, Name: seed.Name, Balance: decimal.Zero}
		if seed.ParentCode == "" {
			r.roots = append(r.roots, node)
			created++
			continue
		}
		parent := findByCode(r.roots, seed.ParentCode)
		if parent == nil {
			// The list is ordered parent-first, so this means the list
			// itself is malformed.
			return created, fmt.Errorf("ledger: seed parent %s missing for %s", seed.ParentCode, seed.Code)
		}
		parent.Children = append(parent.Children, node)
		created++
	}
	return created, nil
}

// Post validates, resolves every line account, then applies each line's
// (debit - credit) delta through propagation. Resolution happens for all
// lines before any balance changes, so a bad account id aborts the whole
// entry.
func (r *Repository) Post(input PostingInput) (JournalEntry, error) {
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	linkKey := sourceKey(input.SourceModule, input.SourceRef)
	if _, exists := r.sourceLinks[linkKey]; exists {
		return JournalEntry{}, ErrSourceAlreadyLinked
	}
	lines := make([]JournalLine, 0, len(input.Lines))
	var debit, credit decimal.Decimal
	for _, in := range input.Lines {
		account := findByID(r.roots, in.AccountID)
		if account == nil {
			return JournalEntry{}, fmt.Errorf("%w: id %d", ErrAccountNotFound, in.AccountID)
		}
		lines = append(lines, JournalLine{
			AccountID:   in.AccountID,
			AccountName: account.Name,
			Debit:       in.Debit,
			Credit:      in.Credit,
		})
		debit = debit.Add(in.Debit)
		credit = credit.Add(in.Credit)
	}
	for _, line := range lines {
		// Cannot fail: every id resolved above and the tree is only
		// mutated under the store lock we already hold.
		if err := applyDelta(r.roots, line.AccountID, line.Debit.Sub(line.Credit)); err != nil {
			return JournalEntry{}, err
		}
	}
	r.nextEntryID++
	entry := &JournalEntry{
		ID:           r.nextEntryID,
		Number:       r.seq.Next(),
		Date:         input.Date,
		Description:  input.Description,
		Debit:        debit,
		Credit:       credit,
		Status:       EntryStatusPosted,
		SourceModule: input.SourceModule,
		SourceRef:    input.SourceRef,
		Lines:        lines,
	}
	r.entries = append(r.entries, entry)
	r.byID[entry.ID] = entry
	r.sourceLinks[linkKey] = entry.ID
	return *entry, nil
}

// Archive toggles the archived flag, applying the negated line deltas
// when archiving and re-applying them when unarchiving. Idempotent: a
// second call in the same direction is a Success=false no-op.
func (r *Repository) Archive(id int64, archiving bool) ArchiveResult {
	entry, ok := r.byID[id]
	if !ok {
		return ArchiveResult{Success: false, Message: "journal entry not found"}
	}
	if entry.IsArchived == archiving {
		if archiving {
			return ArchiveResult{Success: false, Message: "journal entry already archived"}
		}
		return ArchiveResult{Success: false, Message: "journal entry not archived"}
	}
	for _, line := range entry.Lines {
		delta := line.Debit.Sub(line.Credit)
		if archiving {
			delta = delta.Neg()
		}
		_ = applyDelta(r.roots, line.AccountID, delta)
	}
	entry.IsArchived = archiving
	if archiving {
		entry.Status = EntryStatusArchived
	} else {
		entry.Status = EntryStatusPosted
	}
	return ArchiveResult{Success: true}
}

// Entry returns a copy of the journal entry.
func (r *Repository) Entry(id int64) (JournalEntry, error) {
	entry, ok := r.byID[id]
	if !ok {
		return JournalEntry{}, fmt.Errorf("%w: id %d", ErrEntryNotFound, id)
	}
	return *entry, nil
}

// Entries returns copies of every journal entry in posting order.
func (r *Repository) Entries() []JournalEntry {
	out := make([]JournalEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, *entry)
	}
	return out
}

func sourceKey(module string, ref uuid.UUID) string {
	return module + ":" + ref.String()
}

// --- persistence sections ---

type accountsPayload struct {
	Roots         []*Account `json:"roots"`
	NextAccountID int64      `json:"nextAccountId"`
}

type journalPayload struct {
	Entries     []*JournalEntry     `json:"entries"`
	NextEntryID int64               `json:"nextEntryId"`
	Sequence    *numerator.Sequence `json:"sequence"`
	SourceLinks map[string]int64    `json:"sourceLinks"`
}

type accountsSection struct{ repo *Repository }
type journalSection struct{ repo *Repository }

// AccountsSection exposes the chart as the "accounts" top-level key.
func (r *Repository) AccountsSection() store.Section {
	return accountsSection{repo: r}
}

// JournalSection exposes the journal as the "journal" top-level key.
func (r *Repository) JournalSection() store.Section {
	return journalSection{repo: r}
}

func (s accountsSection) Name() string { return "accounts" }

func (s accountsSection) Snapshot() (json.RawMessage, error) {
	return json.Marshal(accountsPayload{Roots: s.repo.roots, NextAccountID: s.repo.nextAccountID})
}

func (s accountsSection) Restore(data json.RawMessage) error {
	var payload accountsPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	s.repo.roots = payload.Roots
	s.repo.nextAccountID = payload.NextAccountID
	if s.repo.nextAccountID == 0 {
		// Older backups carry no counter.
		walk(s.repo.roots, func(node *Account, _ int) {
			if node.ID > s.repo.nextAccountID {
				s.repo.nextAccountID = node.ID
			}
		})
	}
	return nil
}

func (s journalSection) Name() string { return "journal" }

func (s journalSection) Snapshot() (json.RawMessage, error) {
	return json.Marshal(journalPayload{
		Entries:     s.repo.entries,
		NextEntryID: s.repo.nextEntryID,
		Sequence:    s.repo.seq,
		SourceLinks: s.repo.sourceLinks,
	})
}

func (s journalSection) Restore(data json.RawMessage) error {
	var payload journalPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	s.repo.entries = payload.Entries
	s.repo.nextEntryID = payload.NextEntryID
	if payload.Sequence != nil {
		s.repo.seq = payload.Sequence
	}
	s.repo.sourceLinks = payload.SourceLinks
	if s.repo.sourceLinks == nil {
		s.repo.sourceLinks = make(map[string]int64)
	}
	s.repo.byID = make(map[int64]*JournalEntry, len(s.repo.entries))
	for _, entry := range s.repo.entries {
		s.repo.byID[entry.ID] = entry
		if entry.ID > s.repo.nextEntryID {
			s.repo.nextEntryID = entry.ID
		}
	}
	sort.Slice(s.repo.entries, func(i, j int) bool { return s.repo.entries[i].ID < s.repo.entries[j].ID })
	return nil
}
