package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CardStatus represents the status of a card. Inactive is informational
// only and does not block balance mutation.
type CardStatus string

const (
	CardStatusActive   CardStatus = "active"
	CardStatusInactive CardStatus = "inactive"
)

// Card represents a prepaid advertising card. Balance is a cached
// projection of the card's ledger entries and is only ever written
// together with the entry that changed it.
//
// Cards are hard-deleted: a soft-delete marker would keep the removed
// row inside the last4 unique index, making the digits unusable for
// any future card and blocking catalog re-seeding.
type Card struct {
	ID          uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	DisplayName string          `json:"display_name" gorm:"size:255;not null"`
	Last4       string          `json:"last4" gorm:"uniqueIndex;size:4;not null"`
	Channels    ChannelSet      `json:"channels" gorm:"type:text"`
	Balance     decimal.Decimal `json:"balance" gorm:"type:decimal(20,2);not null;default:0"`
	Currency    string          `json:"currency" gorm:"size:3;not null;default:'USD'"`
	Status      CardStatus      `json:"status" gorm:"type:varchar(20);not null;default:'active';index"`
	CreatedBy   uuid.UUID       `json:"created_by" gorm:"type:char(36);index"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// BeforeCreate sets UUID before creating the record.
func (c *Card) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
