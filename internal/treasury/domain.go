// Package treasury manages cash vouchers: receipts (سند قبض) bring money
// into the cash box, payments (سند صرف) take it out. Party-linked
// vouchers settle customer or supplier balances alongside the posting.
package treasury

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind distinguishes receipts from payments.
type Kind string

const (
	KindReceipt Kind = "RECEIPT"
	KindPayment Kind = "PAYMENT"
)

// PartyType names the other side of a voucher.
type PartyType string

const (
	PartyCustomer PartyType = "customer"
	PartySupplier PartyType = "supplier"
	PartyAccount  PartyType = "account"
)

// Voucher is a posted treasury document. For customer and supplier
// vouchers the contra account is the matching control account; for
// account vouchers the caller names the contra account directly.
type Voucher struct {
	ID              int64           `json:"id"`
	Number          string          `json:"number"`
	Kind            Kind            `json:"kind"`
	Date            time.Time       `json:"date"`
	Amount          decimal.Decimal `json:"amount"`
	PartyType       PartyType       `json:"partyType"`
	PartyID         int64           `json:"partyId,omitempty"`
	PartyName       string          `json:"partyName,omitempty"`
	ContraAccountID int64           `json:"contraAccountId,omitempty"`
	Description     string          `json:"description,omitempty"`
	JournalEntryID  int64           `json:"journalEntryId"`
	SourceRef       uuid.UUID       `json:"sourceRef"`
	IsArchived      bool            `json:"isArchived"`
	CreatedAt       time.Time       `json:"createdAt"`
}

var (
	// ErrVoucherNotFound indicates a missing voucher.
	ErrVoucherNotFound = errors.New("treasury: voucher not found")
	// ErrInvalidAmount indicates a non-positive voucher amount.
	ErrInvalidAmount = errors.New("treasury: amount must be positive")
	// ErrInvalidKind indicates an unknown voucher kind.
	ErrInvalidKind = errors.New("treasury: unknown voucher kind")
	// ErrInvalidParty indicates an unknown party type or missing party reference.
	ErrInvalidParty = errors.New("treasury: invalid party")
)

// CreateVoucherRequest describes a new treasury voucher.
type CreateVoucherRequest struct {
	Kind            Kind            `json:"kind" validate:"required,oneof=RECEIPT PAYMENT"`
	Date            time.Time       `json:"date"`
	Amount          decimal.Decimal `json:"amount"`
	PartyType       PartyType       `json:"partyType" validate:"required,oneof=customer supplier account"`
	PartyID         int64           `json:"partyId,omitempty"`
	ContraAccountID int64           `json:"contraAccountId,omitempty"`
	Description     string          `json:"description,omitempty"`
}
