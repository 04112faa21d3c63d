package inventory

import (
	"encoding/json"
	"sort"

	"github.com/daftar-erp/daftar/internal/platform/numerator"
	"github.com/daftar-erp/daftar/internal/store"
)

// Repository holds stock adjustments. Mutating methods run inside a
// store.Apply closure.
type Repository struct {
	adjustments map[int64]*Adjustment
	nextID      int64
	seq         *numerator.Sequence
}

// NewRepository returns an empty inventory repository.
func NewRepository() *Repository {
	return &Repository{
		adjustments: make(map[int64]*Adjustment),
		nextID:      1,
		seq:         numerator.NewSequence("ADJ", 4),
	}
}

func (r *Repository) insert(a *Adjustment) {
	a.ID = r.nextID
	a.Number = r.seq.Next()
	r.nextID++
	r.adjustments[a.ID] = a
}

// Adjustment returns a copy of one adjustment.
func (r *Repository) Adjustment(id int64) (Adjustment, error) {
	a, ok := r.adjustments[id]
	if !ok {
		return Adjustment{}, ErrAdjustmentNotFound
	}
	return *a, nil
}

// Adjustments returns all adjustments ordered by ID.
func (r *Repository) Adjustments() []Adjustment {
	out := make([]Adjustment, 0, len(r.adjustments))
	for _, a := range r.adjustments {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type adjustmentsPayload struct {
	Adjustments []*Adjustment       `json:"adjustments"`
	NextID      int64               `json:"nextId"`
	Sequence    *numerator.Sequence `json:"sequence"`
}

type adjustmentsSection struct{ repo *Repository }

func (s adjustmentsSection) Name() string { return "inventoryAdjustments" }

func (s adjustmentsSection) Snapshot() (json.RawMessage, error) {
	list := make([]*Adjustment, 0, len(s.repo.adjustments))
	for _, a := range s.repo.adjustments {
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return json.Marshal(adjustmentsPayload{Adjustments: list, NextID: s.repo.nextID, Sequence: s.repo.seq})
}

func (s adjustmentsSection) Restore(raw json.RawMessage) error {
	var p adjustmentsPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return err
	}
	s.repo.adjustments = make(map[int64]*Adjustment, len(p.Adjustments))
	var maxID int64
	for _, a := range p.Adjustments {
		s.repo.adjustments[a.ID] = a
		if a.ID > maxID {
			maxID = a.ID
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

// Section exposes the adjustments collection for persistence.
func (r *Repository) Section() store.Section { return adjustmentsSection{repo: r} }
