package procurement

import (
	"encoding/json"
	"sort"

	"github.com/daftar-erp/daftar/internal/platform/numerator"
	"github.com/daftar-erp/daftar/internal/store"
)

// Repository holds purchases and purchase returns. Mutating methods run
// inside a store.Apply closure.
type Repository struct {
	purchases map[int64]*Purchase
	returns   map[int64]*Return
	nextPur   int64
	nextRet   int64
	purSeq    *numerator.Sequence
	retSeq    *numerator.Sequence
}

// NewRepository returns an empty procurement repository.
func NewRepository() *Repository {
	return &Repository{
		purchases: make(map[int64]*Purchase),
		returns:   make(map[int64]*Return),
		nextPur:   1,
		nextRet:   1,
		purSeq:    numerator.NewSequence("PUR", 4),
		retSeq:    numerator.NewSequence("PRT", 4),
	}
}

func (r *Repository) insertPurchase(p *Purchase) {
	p.ID = r.nextPur
	p.Number = r.purSeq.Next()
	r.nextPur++
	r.purchases[p.ID] = p
}

func (r *Repository) insertReturn(ret *Return) {
	ret.ID = r.nextRet
	ret.Number = r.retSeq.Next()
	r.nextRet++
	r.returns[ret.ID] = ret
}

// Purchase returns a copy of one purchase.
func (r *Repository) Purchase(id int64) (Purchase, error) {
	p, ok := r.purchases[id]
	if !ok {
		return Purchase{}, ErrPurchaseNotFound
	}
	cp := *p
	cp.Lines = append([]PurchaseLine(nil), p.Lines...)
	return cp, nil
}

// Return returns a copy of one purchase return.
func (r *Repository) Return(id int64) (Return, error) {
	ret, ok := r.returns[id]
	if !ok {
		return Return{}, ErrReturnNotFound
	}
	cp := *ret
	cp.Lines = append([]PurchaseLine(nil), ret.Lines...)
	return cp, nil
}

// Purchases returns all purchases ordered by ID.
func (r *Repository) Purchases() []Purchase {
	out := make([]Purchase, 0, len(r.purchases))
	for _, p := range r.purchases {
		cp := *p
		cp.Lines = append([]PurchaseLine(nil), p.Lines...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Returns returns all purchase returns ordered by ID.
func (r *Repository) Returns() []Return {
	out := make([]Return, 0, len(r.returns))
	for _, ret := range r.returns {
		cp := *ret
		cp.Lines = append([]PurchaseLine(nil), ret.Lines...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type purchasesPayload struct {
	Purchases []*Purchase         `json:"purchases"`
	NextID    int64               `json:"nextId"`
	Sequence  *numerator.Sequence `json:"sequence"`
}

type returnsPayload struct {
	Returns  []*Return           `json:"returns"`
	NextID   int64               `json:"nextId"`
	Sequence *numerator.Sequence `json:"sequence"`
}

type purchasesSection struct{ repo *Repository }

func (s purchasesSection) Name() string { return "purchases" }

func (s purchasesSection) Snapshot() (json.RawMessage, error) {
	list := make([]*Purchase, 0, len(s.repo.purchases))
	for _, p := range s.repo.purchases {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return json.Marshal(purchasesPayload{Purchases: list, NextID: s.repo.nextPur, Sequence: s.repo.purSeq})
}

func (s purchasesSection) Restore(raw json.RawMessage) error {
	var p purchasesPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return err
	}
	s.repo.purchases = make(map[int64]*Purchase, len(p.Purchases))
	var maxID int64
	for _, pur := range p.Purchases {
		s.repo.purchases[pur.ID] = pur
		if pur.ID > maxID {
			maxID = pur.ID
		}
	}
	s.repo.nextPur = p.NextID
	if s.repo.nextPur <= maxID {
		s.repo.nextPur = maxID + 1
	}
	if p.Sequence != nil {
		s.repo.purSeq = p.Sequence
	}
	return nil
}

type returnsSection struct{ repo *Repository }

func (s returnsSection) Name() string { return "purchaseReturns" }

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

// PurchasesSection exposes the purchases collection for persistence.
func (r *Repository) PurchasesSection() store.Section { return purchasesSection{repo: r} }

// ReturnsSection exposes the purchase returns collection for persistence.
func (r *Repository) ReturnsSection() store.Section { return returnsSection{repo: r} }
