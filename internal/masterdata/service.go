package masterdata

import (
	"context"
	"strconv"
	"time"

	"github.com/daftar-erp/daftar/internal/shared"
	"github.com/daftar-erp/daftar/internal/store"
)

// AuditPort records master data changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates master data operations through the store.
type Service struct {
	store *store.Store
	repo  *Repository
	audit AuditPort
	now   func() time.Time
}

// NewService wires a master data service.
func NewService(st *store.Store, repo *Repository, audit AuditPort) *Service {
	return &Service{store: st, repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// Repo exposes the repository so document services can adjust balances and
// stock inside their own store.Apply closures.
func (s *Service) Repo() *Repository { return s.repo }

// CreateCustomer adds a customer.
func (s *Service) CreateCustomer(ctx context.Context, req CreateCustomerRequest) (Customer, error) {
	var out Customer
	err := s.store.Apply(func() error {
		out = *s.repo.CreateCustomer(req, s.now().UTC())
		return nil
	})
	if err != nil {
		return Customer{}, err
	}
	s.record(ctx, "customer.create", "customer", out.ID, map[string]any{"name": out.Name})
	return out, nil
}

// CreateSupplier adds a supplier.
func (s *Service) CreateSupplier(ctx context.Context, req CreateSupplierRequest) (Supplier, error) {
	var out Supplier
	err := s.store.Apply(func() error {
		out = *s.repo.CreateSupplier(req, s.now().UTC())
		return nil
	})
	if err != nil {
		return Supplier{}, err
	}
	s.record(ctx, "supplier.create", "supplier", out.ID, map[string]any{"name": out.Name})
	return out, nil
}

// CreateItem adds an inventory item.
func (s *Service) CreateItem(ctx context.Context, req CreateItemRequest) (Item, error) {
	var out Item
	err := s.store.Apply(func() error {
		it, err := s.repo.CreateItem(req, s.now().UTC())
		if err != nil {
			return err
		}
		out = *it
		return nil
	})
	if err != nil {
		return Item{}, err
	}
	s.record(ctx, "item.create", "item", out.ID, map[string]any{"name": out.Name})
	return out, nil
}

// UpdateItem applies partial changes to an item.
func (s *Service) UpdateItem(ctx context.Context, id int64, req UpdateItemRequest) (Item, error) {
	var out Item
	err := s.store.Apply(func() error {
		it, err := s.repo.UpdateItem(id, req)
		if err != nil {
			return err
		}
		out = *it
		return nil
	})
	if err != nil {
		return Item{}, err
	}
	s.record(ctx, "item.update", "item", id, nil)
	return out, nil
}

// GetCustomer returns one customer.
func (s *Service) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	var (
		out Customer
		err error
	)
	s.store.View(func() { out, err = s.repo.Customer(id) })
	return out, err
}

// GetSupplier returns one supplier.
func (s *Service) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	var (
		out Supplier
		err error
	)
	s.store.View(func() { out, err = s.repo.Supplier(id) })
	return out, err
}

// GetItem returns one item.
func (s *Service) GetItem(ctx context.Context, id int64) (Item, error) {
	var (
		out Item
		err error
	)
	s.store.View(func() { out, err = s.repo.Item(id) })
	return out, err
}

// ListCustomers returns all customers.
func (s *Service) ListCustomers(ctx context.Context) []Customer {
	var out []Customer
	s.store.View(func() { out = s.repo.Customers() })
	return out
}

// ListSuppliers returns all suppliers.
func (s *Service) ListSuppliers(ctx context.Context) []Supplier {
	var out []Supplier
	s.store.View(func() { out = s.repo.Suppliers() })
	return out
}

// ListItems returns all items.
func (s *Service) ListItems(ctx context.Context) []Item {
	var out []Item
	s.store.View(func() { out = s.repo.Items() })
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
