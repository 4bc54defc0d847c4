package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Operator roles. Cards and ledger operations require account or admin.
const (
	RoleAdmin   = "admin"
	RoleAccount = "account"
	RoleViewer  = "viewer"
)

// Operator represents a finance operator using the CRM backend.
type Operator struct {
	ID           uuid.UUID      `json:"id" gorm:"type:char(36);primaryKey"`
	Name         string         `json:"name" gorm:"size:255;not null"`
	Email        string         `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string         `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Role         string         `json:"role" gorm:"size:50;not null;default:'account';index"`
	Active       bool           `json:"active" gorm:"default:true;index"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

// BeforeCreate sets UUID before creating the record.
func (o *Operator) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
