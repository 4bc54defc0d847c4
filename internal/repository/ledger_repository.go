package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"adcards/internal/model"
)

// LedgerRepository defines ledger entry persistence. The interface is
// deliberately append-only: entries are created once and never updated;
// the only delete is the whole-card cascade.
type LedgerRepository interface {
	Create(ctx context.Context, entry *model.LedgerEntry) error
	ListByCard(ctx context.Context, cardID uuid.UUID, limit int) ([]model.LedgerEntry, error)
	DeleteByCard(ctx context.Context, cardID uuid.UUID) error
}

type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a new ledger repository.
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

// Create appends a new ledger entry.
func (r *ledgerRepository) Create(ctx context.Context, entry *model.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListByCard returns a card's entries newest-first, capped at limit.
func (r *ledgerRepository) ListByCard(ctx context.Context, cardID uuid.UUID, limit int) ([]model.LedgerEntry, error) {
	var entries []model.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("card_id = ?", cardID).
		Order("created_at desc").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// DeleteByCard removes all entries of a card. Only called as part of
// card teardown, in the same transaction that removes the card.
func (r *ledgerRepository) DeleteByCard(ctx context.Context, cardID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("card_id = ?", cardID).Delete(&model.LedgerEntry{}).Error
}
