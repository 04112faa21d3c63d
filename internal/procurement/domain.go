// Package procurement manages purchase invoices and purchase returns.
// A purchase brings goods into inventory at cost and raises the supplier
// balance; a return mirrors it.
package procurement

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseLine is one bought item. The unit price paid is the cost that
// enters inventory; BaseQty is snapshotted so archiving reverses the
// original movement exactly.
type PurchaseLine struct {
	ItemID   int64           `json:"itemId"`
	ItemName string          `json:"itemName"`
	Unit     string          `json:"unit,omitempty"`
	Qty      decimal.Decimal `json:"qty"`
	BaseQty  decimal.Decimal `json:"baseQty"`
	Price    decimal.Decimal `json:"price"`
	Total    decimal.Decimal `json:"total"`
}

// Purchase is a posted purchase invoice.
type Purchase struct {
	ID             int64           `json:"id"`
	Number         string          `json:"number"`
	Date           time.Time       `json:"date"`
	SupplierID     int64           `json:"supplierId"`
	SupplierName   string          `json:"supplierName"`
	Lines          []PurchaseLine  `json:"lines"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Discount       decimal.Decimal `json:"discount"`
	Total          decimal.Decimal `json:"total"`
	Notes          string          `json:"notes,omitempty"`
	JournalEntryID int64           `json:"journalEntryId"`
	SourceRef      uuid.UUID       `json:"sourceRef"`
	IsArchived     bool            `json:"isArchived"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// Return is a purchase return sending goods back to the supplier.
type Return struct {
	ID             int64           `json:"id"`
	Number         string          `json:"number"`
	Date           time.Time       `json:"date"`
	SupplierID     int64           `json:"supplierId"`
	SupplierName   string          `json:"supplierName"`
	Lines          []PurchaseLine  `json:"lines"`
	Total          decimal.Decimal `json:"total"`
	Notes          string          `json:"notes,omitempty"`
	JournalEntryID int64           `json:"journalEntryId"`
	SourceRef      uuid.UUID       `json:"sourceRef"`
	IsArchived     bool            `json:"isArchived"`
	CreatedAt      time.Time       `json:"createdAt"`
}

var (
	// ErrPurchaseNotFound indicates a missing purchase invoice.
	ErrPurchaseNotFound = errors.New("procurement: purchase not found")
	// ErrReturnNotFound indicates a missing purchase return.
	ErrReturnNotFound = errors.New("procurement: return not found")
	// ErrNoLines indicates a document without item lines.
	ErrNoLines = errors.New("procurement: document requires at least one line")
	// ErrInsufficientStock indicates a return would drive stock negative.
	ErrInsufficientStock = errors.New("procurement: insufficient stock")
	// ErrExcessiveDiscount indicates discount exceeding the subtotal.
	ErrExcessiveDiscount = errors.New("procurement: discount exceeds subtotal")
)

// LineRequest is one requested document line.
type LineRequest struct {
	ItemID int64           `json:"itemId" validate:"required,gt=0"`
	Unit   string          `json:"unit,omitempty"`
	Qty    decimal.Decimal `json:"qty"`
	Price  decimal.Decimal `json:"price"`
}

// CreatePurchaseRequest describes a new purchase invoice.
type CreatePurchaseRequest struct {
	Date       time.Time       `json:"date"`
	SupplierID int64           `json:"supplierId" validate:"required,gt=0"`
	Lines      []LineRequest   `json:"lines" validate:"required,min=1,dive"`
	Discount   decimal.Decimal `json:"discount"`
	Notes      string          `json:"notes,omitempty"`
}

// CreateReturnRequest describes a new purchase return.
type CreateReturnRequest struct {
	Date       time.Time     `json:"date"`
	SupplierID int64         `json:"supplierId" validate:"required,gt=0"`
	Lines      []LineRequest `json:"lines" validate:"required,min=1,dive"`
	Notes      string        `json:"notes,omitempty"`
}
