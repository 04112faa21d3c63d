// Package sales manages sales invoices and sale returns. Each document
// compiles into one balanced journal entry plus the matching stock and
// customer balance movements, all applied under a single store write.
package sales

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceLine is one sold item. BaseQty and UnitCost are snapshots taken
// at creation so archiving reverses the exact original amounts even if
// the item's units or purchase price change later.
type InvoiceLine struct {
	ItemID   int64           `json:"itemId"`
	ItemName string          `json:"itemName"`
	Unit     string          `json:"unit,omitempty"`
	Qty      decimal.Decimal `json:"qty"`
	BaseQty  decimal.Decimal `json:"baseQty"`
	Price    decimal.Decimal `json:"price"`
	UnitCost decimal.Decimal `json:"unitCost"`
	Total    decimal.Decimal `json:"total"`
}

// Invoice is a posted sales invoice.
type Invoice struct {
	ID             int64           `json:"id"`
	Number         string          `json:"number"`
	Date           time.Time       `json:"date"`
	CustomerID     int64           `json:"customerId"`
	CustomerName   string          `json:"customerName"`
	Lines          []InvoiceLine   `json:"lines"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Discount       decimal.Decimal `json:"discount"`
	Total          decimal.Decimal `json:"total"`
	Notes          string          `json:"notes,omitempty"`
	JournalEntryID int64           `json:"journalEntryId"`
	SourceRef      uuid.UUID       `json:"sourceRef"`
	IsArchived     bool            `json:"isArchived"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// Return is a sale return referencing sold goods coming back.
type Return struct {
	ID             int64           `json:"id"`
	Number         string          `json:"number"`
	Date           time.Time       `json:"date"`
	CustomerID     int64           `json:"customerId"`
	CustomerName   string          `json:"customerName"`
	Lines          []InvoiceLine   `json:"lines"`
	Total          decimal.Decimal `json:"total"`
	Notes          string          `json:"notes,omitempty"`
	JournalEntryID int64           `json:"journalEntryId"`
	SourceRef      uuid.UUID       `json:"sourceRef"`
	IsArchived     bool            `json:"isArchived"`
	CreatedAt      time.Time       `json:"createdAt"`
}

var (
	// ErrInvoiceNotFound indicates a missing sales invoice.
	ErrInvoiceNotFound = errors.New("sales: invoice not found")
	// ErrReturnNotFound indicates a missing sale return.
	ErrReturnNotFound = errors.New("sales: return not found")
	// ErrNoLines indicates a document without item lines.
	ErrNoLines = errors.New("sales: document requires at least one line")
	// ErrInsufficientStock indicates a sale would drive stock negative.
	ErrInsufficientStock = errors.New("sales: insufficient stock")
	// ErrExcessiveDiscount indicates discount exceeding the subtotal.
	ErrExcessiveDiscount = errors.New("sales: discount exceeds subtotal")
)

// LineRequest is one requested document line.
type LineRequest struct {
	ItemID int64           `json:"itemId" validate:"required,gt=0"`
	Unit   string          `json:"unit,omitempty"`
	Qty    decimal.Decimal `json:"qty"`
	Price  decimal.Decimal `json:"price"`
}

// CreateInvoiceRequest describes a new sales invoice.
type CreateInvoiceRequest struct {
	Date       time.Time       `json:"date"`
	CustomerID int64           `json:"customerId" validate:"required,gt=0"`
	Lines      []LineRequest   `json:"lines" validate:"required,min=1,dive"`
	Discount   decimal.Decimal `json:"discount"`
	Notes      string          `json:"notes,omitempty"`
}

// CreateReturnRequest describes a new sale return.
type CreateReturnRequest struct {
	Date       time.Time     `json:"date"`
	CustomerID int64         `json:"customerId" validate:"required,gt=0"`
	Lines      []LineRequest `json:"lines" validate:"required,min=1,dive"`
	Notes      string        `json:"notes,omitempty"`
}
