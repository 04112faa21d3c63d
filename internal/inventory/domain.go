// Package inventory manages manual stock adjustments (إضافة / صرف):
// valued corrections that move quantity in or out of stock against a
// variance or other contra account.
package inventory

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind distinguishes stock increases from decreases.
type Kind string

const (
	KindIncrease Kind = "INCREASE"
	KindDecrease Kind = "DECREASE"
)

// Adjustment is a posted stock correction. BaseQty and UnitCost are
// snapshots so archiving reverses the original movement exactly.
type Adjustment struct {
	ID              int64           `json:"id"`
	Number          string          `json:"number"`
	Kind            Kind            `json:"kind"`
	Date            time.Time       `json:"date"`
	ItemID          int64           `json:"itemId"`
	ItemName        string          `json:"itemName"`
	Unit            string          `json:"unit,omitempty"`
	Qty             decimal.Decimal `json:"qty"`
	BaseQty         decimal.Decimal `json:"baseQty"`
	UnitCost        decimal.Decimal `json:"unitCost"`
	Value           decimal.Decimal `json:"value"`
	ContraAccountID int64           `json:"contraAccountId"`
	Reason          string          `json:"reason,omitempty"`
	JournalEntryID  int64           `json:"journalEntryId"`
	SourceRef       uuid.UUID       `json:"sourceRef"`
	IsArchived      bool            `json:"isArchived"`
	CreatedAt       time.Time       `json:"createdAt"`
}

var (
	// ErrAdjustmentNotFound indicates a missing adjustment.
	ErrAdjustmentNotFound = errors.New("inventory: adjustment not found")
	// ErrInvalidQty indicates a non-positive quantity.
	ErrInvalidQty = errors.New("inventory: quantity must be positive")
	// ErrInvalidKind indicates an unknown adjustment kind.
	ErrInvalidKind = errors.New("inventory: unknown adjustment kind")
	// ErrInsufficientStock indicates a decrease would drive stock negative.
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
)

// CreateAdjustmentRequest describes a new stock adjustment. UnitCost
// defaults to the item's purchase price; ContraAccountID defaults to the
// inventory variance account.
type CreateAdjustmentRequest struct {
	Kind            Kind             `json:"kind" validate:"required,oneof=INCREASE DECREASE"`
	Date            time.Time        `json:"date"`
	ItemID          int64            `json:"itemId" validate:"required,gt=0"`
	Unit            string           `json:"unit,omitempty"`
	Qty             decimal.Decimal  `json:"qty"`
	UnitCost        *decimal.Decimal `json:"unitCost,omitempty"`
	ContraAccountID int64            `json:"contraAccountId,omitempty"`
	Reason          string           `json:"reason,omitempty"`
}
