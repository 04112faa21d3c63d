// Package masterdata manages customers, suppliers, and inventory items.
// Party balances and item stock live here but are mutated only by the
// document compilers, alongside the matching control-account postings,
// so the sub-ledger and the chart of accounts move together.
package masterdata

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Customer is a sales party with a signed running balance. A positive
// balance means the customer owes us.
type Customer struct {
	ID        int64           `json:"id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Phone     string          `json:"phone,omitempty"`
	Address   string          `json:"address,omitempty"`
	Notes     string          `json:"notes,omitempty"`
	Balance   decimal.Decimal `json:"balance"`
	IsActive  bool            `json:"isActive"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Supplier is a purchase party with a signed running balance. A positive
// balance means we owe the supplier.
type Supplier struct {
	ID        int64           `json:"id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Phone     string          `json:"phone,omitempty"`
	Address   string          `json:"address,omitempty"`
	Notes     string          `json:"notes,omitempty"`
	Balance   decimal.Decimal `json:"balance"`
	IsActive  bool            `json:"isActive"`
	CreatedAt time.Time       `json:"createdAt"`
}

// PackingUnit is an alternate unit of measure with a fixed multiplicative
// conversion factor to the item's base unit.
type PackingUnit struct {
	Name   string          `json:"name"`
	Factor decimal.Decimal `json:"factor"`
}

// Item is an inventory item. Stock is kept in base units.
type Item struct {
	ID            int64           `json:"id"`
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	BaseUnit      string          `json:"baseUnit"`
	Units         []PackingUnit   `json:"units,omitempty"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	SalePrice     decimal.Decimal `json:"salePrice"`
	Stock         decimal.Decimal `json:"stock"`
	IsActive      bool            `json:"isActive"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// BaseQty converts a quantity expressed in unit to base units. An empty
// unit or the base unit itself has factor 1.
func (i Item) BaseQty(unit string, qty decimal.Decimal) (decimal.Decimal, error) {
	if unit == "" || unit == i.BaseUnit {
		return qty, nil
	}
	for _, u := range i.Units {
		if u.Name == unit {
			return qty.Mul(u.Factor), nil
		}
	}
	return decimal.Zero, ErrUnknownUnit
}

var (
	// ErrCustomerNotFound indicates a missing customer.
	ErrCustomerNotFound = errors.New("masterdata: customer not found")
	// ErrSupplierNotFound indicates a missing supplier.
	ErrSupplierNotFound = errors.New("masterdata: supplier not found")
	// ErrItemNotFound indicates a missing item.
	ErrItemNotFound = errors.New("masterdata: item not found")
	// ErrUnknownUnit indicates a packing unit the item does not define.
	ErrUnknownUnit = errors.New("masterdata: unknown packing unit")
	// ErrInvalidFactor indicates a non-positive unit factor.
	ErrInvalidFactor = errors.New("masterdata: packing unit factor must be positive")
)

// CreateCustomerRequest describes a new customer.
type CreateCustomerRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Phone   string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Address string `json:"address,omitempty" validate:"omitempty,max=300"`
	Notes   string `json:"notes,omitempty"`
}

// CreateSupplierRequest describes a new supplier.
type CreateSupplierRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Phone   string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Address string `json:"address,omitempty" validate:"omitempty,max=300"`
	Notes   string `json:"notes,omitempty"`
}

// PackingUnitRequest describes one alternate unit.
type PackingUnitRequest struct {
	Name   string          `json:"name" validate:"required,max=50"`
	Factor decimal.Decimal `json:"factor"`
}

// CreateItemRequest describes a new inventory item.
type CreateItemRequest struct {
	Name          string               `json:"name" validate:"required,max=200"`
	BaseUnit      string               `json:"baseUnit" validate:"required,max=50"`
	Units         []PackingUnitRequest `json:"units,omitempty" validate:"omitempty,dive"`
	PurchasePrice decimal.Decimal      `json:"purchasePrice"`
	SalePrice     decimal.Decimal      `json:"salePrice"`
	OpeningStock  decimal.Decimal      `json:"openingStock"`
}

// UpdateItemRequest carries optional field overrides.
type UpdateItemRequest struct {
	Name          *string              `json:"name,omitempty" validate:"omitempty,max=200"`
	Units         []PackingUnitRequest `json:"units,omitempty" validate:"omitempty,dive"`
	PurchasePrice *decimal.Decimal     `json:"purchasePrice,omitempty"`
	SalePrice     *decimal.Decimal     `json:"salePrice,omitempty"`
	IsActive      *bool                `json:"isActive,omitempty"`
}
