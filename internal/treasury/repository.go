package treasury

import (
	"encoding/json"
	"sort"

	"github.com/daftar-erp/daftar/internal/platform/numerator"
	"github.com/daftar-erp/daftar/internal/store"
)

// Repository holds treasury vouchers. Mutating methods run inside a
// store.Apply closure.
type Repository struct {
	vouchers map[int64]*Voucher
	nextID   int64
	seq      *numerator.Sequence
}

// NewRepository returns an empty treasury repository.
func NewRepository() *Repository {
	return &Repository{
		vouchers: make(map[int64]*Voucher),
		nextID:   1,
		seq:      numerator.NewSequence("TRV", 4),
	}
}

func (r *Repository) insert(v *Voucher) {
	v.ID = r.nextID
	v.Number = r.seq.Next()
	r.nextID++
	r.vouchers[v.ID] = v
}

// Voucher returns a copy of one voucher.
func (r *Repository) Voucher(id int64) (Voucher, error) {
	v, ok := r.vouchers[id]
	if !ok {
		return Voucher{}, ErrVoucherNotFound
	}
	return *v, nil
}

// Vouchers returns all vouchers ordered by ID.
func (r *Repository) Vouchers() []Voucher {
	out := make([]Voucher, 0, len(r.vouchers))
	for _, v := range r.vouchers {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type vouchersPayload struct {
	Vouchers []*Voucher          `json:"vouchers"`
	NextID   int64               `json:"nextId"`
	Sequence *numerator.Sequence `json:"sequence"`
}

type vouchersSection struct{ repo *Repository }

func (s vouchersSection) Name() string { return "treasuryVouchers" }

func (s vouchersSection) Snapshot() (json.RawMessage, error) {
	list := make([]*Voucher, 0, len(s.repo.vouchers))
	for _, v := range s.repo.vouchers {
		list = append(list, v)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return json.Marshal(vouchersPayload{Vouchers: list, NextID: s.repo.nextID, Sequence: s.repo.seq})
}

func (s vouchersSection) Restore(raw json.RawMessage) error {
	var p vouchersPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return err
	}
	s.repo.vouchers = make(map[int64]*Voucher, len(p.Vouchers))
	var maxID int64
	for _, v := range p.Vouchers {
		s.repo.vouchers[v.ID] = v
		if v.ID > maxID {
			maxID = v.ID
		}
	}
	s.repo.nextID = p.NextID
	if s.repo.nextID <= maxID {
		s.repo.nextID = maxID + 1
	}
	if p.Sequence != nil {
		s.repo.seq = p.Sequence
	}
	return nil
}

// Section exposes the vouchers collection for persistence.
func (r *Repository) Section() store.Section { return vouchersSection{repo: r} }
