package masterdata

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/daftar-erp/daftar/internal/platform/numerator"
	"github.com/daftar-erp/daftar/internal/store"
)

// Repository holds the master data collections. All mutating methods must
// be called inside a store.Apply closure.
type Repository struct {
	customers   map[int64]*Customer
	suppliers   map[int64]*Supplier
	items       map[int64]*Item
	nextCust    int64
	nextSupp    int64
	nextItem    int64
	custSeq     *numerator.Sequence
	suppSeq     *numerator.Sequence
	itemSeq     *numerator.Sequence
}

// NewRepository returns an empty master data repository.
func NewRepository() *Repository {
	return &Repository{
		customers: make(map[int64]*Customer),
		suppliers: make(map[int64]*Supplier),
		items:     make(map[int64]*Item),
		nextCust:  1,
		nextSupp:  1,
		nextItem:  1,
		custSeq:   numerator.NewSequence("CUS", 4),
		suppSeq:   numerator.NewSequence("SUP", 4),
		itemSeq:   numerator.NewSequence("ITM", 4),
	}
}

// CreateCustomer inserts a customer with a zero balance.
func (r *Repository) CreateCustomer(req CreateCustomerRequest, now time.Time) *Customer {
	c := &Customer{
		ID:        r.nextCust,
		Code:      r.custSeq.Next(),
		Name:      req.Name,
		Phone:     req.Phone,
		Address:   req.Address,
		Notes:     req.Notes,
		Balance:   decimal.Zero,
		IsActive:  true,
		CreatedAt: now,
	}
	r.nextCust++
	r.customers[c.ID] = c
	return c
}

// CreateSupplier inserts a supplier with a zero balance.
func (r *Repository) CreateSupplier(req CreateSupplierRequest, now time.Time) *Supplier {
	s := &Supplier{
		ID:        r.nextSupp,
		Code:      r.suppSeq.Next(),
		Name:      req.Name,
		Phone:     req.Phone,
		Address:   req.Address,
		Notes:     req.Notes,
		Balance:   decimal.Zero,
		IsActive:  true,
		CreatedAt: now,
	}
	r.nextSupp++
	r.suppliers[s.ID] = s
	return s
}

// CreateItem inserts an item. Opening stock is recorded directly on the
// item; the opening journal entry, if any, is the caller's concern.
func (r *Repository) CreateItem(req CreateItemRequest, now time.Time) (*Item, error) {
	units := make([]PackingUnit, 0, len(req.Units))
	for _, u := range req.Units {
		if !u.Factor.IsPositive() {
			return nil, ErrInvalidFactor
		}
		units = append(units, PackingUnit{Name: u.Name, Factor: u.Factor})
	}
	it := &Item{
		ID:            r.nextItem,
		Code:          r.itemSeq.Next(),
		Name:          req.Name,
		BaseUnit:      req.BaseUnit,
		Units:         units,
		PurchasePrice: req.PurchasePrice,
		SalePrice:     req.SalePrice,
		Stock:         req.OpeningStock,
		IsActive:      true,
		CreatedAt:     now,
	}
	r.nextItem++
	r.items[it.ID] = it
	return it, nil
}

// UpdateItem applies the non-nil fields of req. Stock is never touched here.
func (r *Repository) UpdateItem(id int64, req UpdateItemRequest) (*Item, error) {
	it, ok := r.items[id]
	if !ok {
		return nil, ErrItemNotFound
	}
	if req.Name != nil {
		it.Name = *req.Name
	}
	if req.Units != nil {
		units := make([]PackingUnit, 0, len(req.Units))
		for _, u := range req.Units {
			if !u.Factor.IsPositive() {
				return nil, ErrInvalidFactor
			}
			units = append(units, PackingUnit{Name: u.Name, Factor: u.Factor})
		}
		it.Units = units
	}
	if req.PurchasePrice != nil {
		it.PurchasePrice = *req.PurchasePrice
	}
	if req.SalePrice != nil {
		it.SalePrice = *req.SalePrice
	}
	if req.IsActive != nil {
		it.IsActive = *req.IsActive
	}
	return it, nil
}

// Customer returns a copy of the customer.
func (r *Repository) Customer(id int64) (Customer, error) {
	c, ok := r.customers[id]
	if !ok {
		return Customer{}, ErrCustomerNotFound
	}
	return *c, nil
}

// Supplier returns a copy of the supplier.
func (r *Repository) Supplier(id int64) (Supplier, error) {
	s, ok := r.suppliers[id]
	if !ok {
		return Supplier{}, ErrSupplierNotFound
	}
	return *s, nil
}

// Item returns a copy of the item.
func (r *Repository) Item(id int64) (Item, error) {
	it, ok := r.items[id]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	cp := *it
	cp.Units = append([]PackingUnit(nil), it.Units...)
	return cp, nil
}

// Customers returns all customers ordered by ID.
func (r *Repository) Customers() []Customer {
	out := make([]Customer, 0, len(r.customers))
	for _, c := range r.customers {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Suppliers returns all suppliers ordered by ID.
func (r *Repository) Suppliers() []Supplier {
	out := make([]Supplier, 0, len(r.suppliers))
	for _, s := range r.suppliers {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Items returns all items ordered by ID.
func (r *Repository) Items() []Item {
	out := make([]Item, 0, len(r.items))
	for _, it := range r.items {
		cp := *it
		cp.Units = append([]PackingUnit(nil), it.Units...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AdjustCustomerBalance adds delta to the customer's running balance.
func (r *Repository) AdjustCustomerBalance(id int64, delta decimal.Decimal) error {
	c, ok := r.customers[id]
	if !ok {
		return ErrCustomerNotFound
	}
	c.Balance = c.Balance.Add(delta)
	return nil
}

// AdjustSupplierBalance adds delta to the supplier's running balance.
func (r *Repository) AdjustSupplierBalance(id int64, delta decimal.Decimal) error {
	s, ok := r.suppliers[id]
	if !ok {
		return ErrSupplierNotFound
	}
	s.Balance = s.Balance.Add(delta)
	return nil
}

// AdjustStock adds delta (in base units) to the item's stock.
func (r *Repository) AdjustStock(id int64, delta decimal.Decimal) error {
	it, ok := r.items[id]
	if !ok {
		return ErrItemNotFound
	}
	it.Stock = it.Stock.Add(delta)
	return nil
}

// SumCustomerBalances totals all customer balances for reconciliation
// against the customers control account.
func (r *Repository) SumCustomerBalances() decimal.Decimal {
	total := decimal.Zero
	for _, c := range r.customers {
		total = total.Add(c.Balance)
	}
	return total
}

// SumSupplierBalances totals all supplier balances for reconciliation
// against the suppliers control account.
func (r *Repository) SumSupplierBalances() decimal.Decimal {
	total := decimal.Zero
	for _, s := range r.suppliers {
		total = total.Add(s.Balance)
	}
	return total
}

type customersPayload struct {
	Customers []*Customer         `json:"customers"`
	NextID    int64               `json:"nextId"`
	Sequence  *numerator.Sequence `json:"sequence"`
}

type suppliersPayload struct {
	Suppliers []*Supplier         `json:"suppliers"`
	NextID    int64               `json:"nextId"`
	Sequence  *numerator.Sequence `json:"sequence"`
}

type itemsPayload struct {
	Items    []*Item             `json:"items"`
	NextID   int64               `json:"nextId"`
	Sequence *numerator.Sequence `json:"sequence"`
}

type customersSection struct{ repo *Repository }

func (s customersSection) Name() string { return "customers" }

func (s customersSection) Snapshot() (json.RawMessage, error) {
	list := make([]*Customer, 0, len(s.repo.customers))
	for _, c := range s.repo.customers {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return json.Marshal(customersPayload{Customers: list, NextID: s.repo.nextCust, Sequence: s.repo.custSeq})
}

func (s customersSection) Restore(raw json.RawMessage) error {
	var p customersPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return err
	}
	s.repo.customers = make(map[int64]*Customer, len(p.Customers))
	var maxID int64
	for _, c := range p.Customers {
		s.repo.customers[c.ID] = c
		if c.ID > maxID {
			maxID = c.ID
		}
	}
	s.repo.nextCust = p.NextID
	if s.repo.nextCust <= maxID {
		s.repo.nextCust = maxID + 1
	}
	if p.Sequence != nil {
		s.repo.custSeq = p.Sequence
	}
	return nil
}

type suppliersSection struct{ repo *Repository }

func (s suppliersSection) Name() string { return "suppliers" }

func (s suppliersSection) Snapshot() (json.RawMessage, error) {
	list := make([]*Supplier, 0, len(s.repo.suppliers))
	for _, sp := range s.repo.suppliers {
		list = append(list, sp)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return json.Marshal(suppliersPayload{Suppliers: list, NextID: s.repo.nextSupp, Sequence: s.repo.suppSeq})
}

func (s suppliersSection) Restore(raw json.RawMessage) error {
	var p suppliersPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return err
	}
	s.repo.suppliers = make(map[int64]*Supplier, len(p.Suppliers))
	var maxID int64
	for _, sp := range p.Suppliers {
		s.repo.suppliers[sp.ID] = sp
		if sp.ID > maxID {
			maxID = sp.ID
		}
	}
	s.repo.nextSupp = p.NextID
	if s.repo.nextSupp <= maxID {
		s.repo.nextSupp = maxID + 1
	}
	if p.Sequence != nil {
		s.repo.suppSeq = p.Sequence
	}
	return nil
}

type itemsSection struct{ repo *Repository }

func (s itemsSection) Name() string { return "items" }

func (s itemsSection) Snapshot() (json.RawMessage, error) {
	list := make([]*Item, 0, len(s.repo.items))
	for _, it := range s.repo.items {
		list = append(list, it)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return json.Marshal(itemsPayload{Items: list, NextID: s.repo.nextItem, Sequence: s.repo.itemSeq})
}

func (s itemsSection) Restore(raw json.RawMessage) error {
	var p itemsPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return err
	}
	s.repo.items = make(map[int64]*Item, len(p.Items))
	var maxID int64
	for _, it := range p.Items {
		s.repo.items[it.ID] = it
		if it.ID > maxID {
			maxID = it.ID
		}
	}
	s.repo.nextItem = p.NextID
	if s.repo.nextItem <= maxID {
		s.repo.nextItem = maxID + 1
	}
	if p.Sequence != nil {
		s.repo.itemSeq = p.Sequence
	}
	return nil
}

// CustomersSection exposes the customers collection for persistence.
func (r *Repository) CustomersSection() store.Section { return customersSection{repo: r} }

// SuppliersSection exposes the suppliers collection for persistence.
func (r *Repository) SuppliersSection() store.Section { return suppliersSection{repo: r} }

// ItemsSection exposes the items collection for persistence.
func (r *Repository) ItemsSection() store.Section { return itemsSection{repo: r} }
