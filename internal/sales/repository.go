package sales

import (
	"encoding/json"
	"sort"

	"github.com/daftar-erp/daftar/internal/platform/numerator"
	"github.com/daftar-erp/daftar/internal/store"
)

// Repository holds sales invoices and returns. Mutating methods run
// inside a store.Apply closure.
type Repository struct {
	invoices   map[int64]*Invoice
	returns    map[int64]*Return
	nextInv    int64
	nextRet    int64
	invSeq     *numerator.Sequence
	retSeq     *numerator.Sequence
}

// NewRepository returns an empty sales repository.
func NewRepository() *Repository {
	return &Repository{
		invoices: make(map[int64]*Invoice),
		returns:  make(map[int64]*Return),
		nextInv:  1,
		nextRet:  1,
		invSeq:   numerator.NewSequence("INV", 4),
		retSeq:   numerator.NewSequence("RET", 4),
	}
}

func (r *Repository) insertInvoice(inv *Invoice) {
	inv.ID = r.nextInv
	inv.Number = r.invSeq.Next()
	r.nextInv++
	r.invoices[inv.ID] = inv
}

func (r *Repository) insertReturn(ret *Return) {
	ret.ID = r.nextRet
	ret.Number = r.retSeq.Next()
	r.nextRet++
	r.returns[ret.ID] = ret
}

// Invoice returns a copy of one invoice.
func (r *Repository) Invoice(id int64) (Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return Invoice{}, ErrInvoiceNotFound
	}
	cp := *inv
	cp.Lines = append([]InvoiceLine(nil), inv.Lines...)
	return cp, nil
}

// Return returns a copy of one sale return.
func (r *Repository) Return(id int64) (Return, error) {
	ret, ok := r.returns[id]
	if !ok {
		return Return{}, ErrReturnNotFound
	}
	cp := *ret
	cp.Lines = append([]InvoiceLine(nil), ret.Lines...)
	return cp, nil
}

// Invoices returns all invoices ordered by ID.
func (r *Repository) Invoices() []Invoice {
	out := make([]Invoice, 0, len(r.invoices))
	for _, inv := range r.invoices {
		cp := *inv
		cp.Lines = append([]InvoiceLine(nil), inv.Lines...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Returns returns all sale returns ordered by ID.
func (r *Repository) Returns() []Return {
	out := make([]Return, 0, len(r.returns))
	for _, ret := range r.returns {
		cp := *ret
		cp.Lines = append([]InvoiceLine(nil), ret.Lines...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type invoicesPayload struct {
	Invoices []*Invoice          `json:"invoices"`
	NextID   int64               `json:"nextId"`
	Sequence *numerator.Sequence `json:"sequence"`
}

type returnsPayload struct {
	Returns  []*Return           `json:"returns"`
	NextID   int64               `json:"nextId"`
	Sequence *numerator.Sequence `json:"sequence"`
}

type invoicesSection struct{ repo *Repository }

func (s invoicesSection) Name() string { return "salesInvoices" }

func (s invoicesSection) Snapshot() (json.RawMessage, error) {
	list := make([]*Invoice, 0, len(s.repo.invoices))
	for _, inv := range s.repo.invoices {
		list = append(list, inv)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return json.Marshal(invoicesPayload{Invoices: list, NextID: s.repo.nextInv, Sequence: s.repo.invSeq})
}

func (s invoicesSection) Restore(raw json.RawMessage) error {
	var p invoicesPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return err
	}
	s.repo.invoices = make(map[int64]*Invoice, len(p.Invoices))
	var maxID int64
	for _, inv := range p.Invoices {
		s.repo.invoices[inv.ID] = inv
		if inv.ID > maxID {
			maxID = inv.ID
		}
	}
	s.repo.nextInv = p.NextID
	if s.repo.nextInv <= maxID {
		s.repo.nextInv = maxID + 1
	}
	if p.Sequence != nil {
		s.repo.invSeq = p.Sequence
	}
	return nil
}

type returnsSection struct{ repo *Repository }

func (s returnsSection) Name() string { return "saleReturns" }

func (s returnsSection) Snapshot() (json.RawMessage, error) {
	list := make([]*Return, 0, len(s.repo.returns))
	for _, ret := range s.repo.returns {
		list = append(list, ret)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return json.Marshal(returnsPayload{Returns: list, NextID: s.repo.nextRet, Sequence: s.repo.retSeq})
}

func (s returnsSection) Restore(raw json.RawMessage) error {
	var p returnsPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return err
	}
	s.repo.returns = make(map[int64]*Return, len(p.Returns))
	var maxID int64
	for _, ret := range p.Returns {
		s.repo.returns[ret.ID] = ret
		if ret.ID > maxID {
			maxID = ret.ID
		}
	}
	s.repo.nextRet = p.NextID
	if s.repo.nextRet <= maxID {
		s.repo.nextRet = maxID + 1
	}
	if p.Sequence != nil {
		s.repo.retSeq = p.Sequence
	}
	return nil
}

// InvoicesSection exposes the invoices collection for persistence.
func (r *Repository) InvoicesSection() store.Section { return invoicesSection{repo: r} }

// ReturnsSection exposes the sale returns collection for persistence.
func (r *Repository) ReturnsSection() store.Section { return returnsSection{repo: r} }
