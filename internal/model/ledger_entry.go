package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EntryType represents the kind of balance movement.
type EntryType string

const (
	EntryTypeTopUp  EntryType = "topup"
	EntryTypeCharge EntryType = "charge"
	EntryTypeAdjust EntryType = "adjust"
)

// Direction represents which way a movement changes the balance.
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// LedgerEntry is an immutable record of one balance movement. Entries
// are append-only: they are never updated or individually deleted, only
// discarded as part of whole-card teardown. BalanceAfter is the card's
// balance immediately after the entry was applied.
type LedgerEntry struct {
	ID           uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	CardID       uuid.UUID       `json:"card_id" gorm:"type:char(36);not null;index"`
	Type         EntryType       `json:"type" gorm:"type:varchar(20);not null;index"`
	Amount       decimal.Decimal `json:"amount" gorm:"type:decimal(20,2);not null"`
	Direction    Direction       `json:"direction" gorm:"type:varchar(10);not null"`
	Channel      string          `json:"channel" gorm:"size:50;not null;default:'other'"`
	Reference    string          `json:"reference,omitempty" gorm:"size:255"`
	Note         string          `json:"note,omitempty" gorm:"type:text"`
	BalanceAfter decimal.Decimal `json:"balance_after" gorm:"type:decimal(20,2);not null"`
	CreatedBy    uuid.UUID       `json:"created_by" gorm:"type:char(36);index"`
	CreatedAt    time.Time       `json:"created_at" gorm:"index"`

	// Resolved for display, never persisted.
	CreatedByName string `json:"created_by_name,omitempty" gorm:"-"`
}

// BeforeCreate sets UUID before creating the record.
func (e *LedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// SignedAmount returns the entry's amount with its direction applied:
// positive for credits, negative for debits.
func (e *LedgerEntry) SignedAmount() decimal.Decimal {
	if e.Direction == DirectionDebit {
		return e.Amount.Neg()
	}
	return e.Amount
}
