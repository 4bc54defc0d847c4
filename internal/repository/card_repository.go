package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"adcards/internal/model"
)

// CardRepository defines card persistence operations.
type CardRepository interface {
	Create(ctx context.Context, card *model.Card) error
	Save(ctx context.Context, card *model.Card) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Card, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Card, error)
	FindByLast4(ctx context.Context, last4 string) (*model.Card, error)
	ListByLast4(ctx context.Context) ([]model.Card, error)
	UpdateBalance(ctx context.Context, id uuid.UUID, newBalance decimal.Decimal) error
	InsertIfAbsent(ctx context.Context, card *model.Card) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// WithTransaction runs fn with card and ledger repositories bound to
	// one database transaction: either everything fn writes commits, or
	// nothing does.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, cards CardRepository, entries LedgerRepository) error) error
}

type cardRepository struct {
	db *gorm.DB
}

// NewCardRepository creates a new card repository.
func NewCardRepository(db *gorm.DB) CardRepository {
	return &cardRepository{db: db}
}

// Create creates a new card.
func (r *cardRepository) Create(ctx context.Context, card *model.Card) error {
	return r.db.WithContext(ctx).Create(card).Error
}

// Save persists all fields of an existing card.
func (r *cardRepository) Save(ctx context.Context, card *model.Card) error {
	return r.db.WithContext(ctx).Save(card).Error
}

// FindByID finds a card by ID.
func (r *cardRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Card, error) {
	var card model.Card
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&card).Error; err != nil {
		return nil, err
	}
	return &card, nil
}

// FindByIDForUpdate finds a card by ID holding a row-level write lock
// for the remainder of the surrounding transaction.
func (r *cardRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Card, error) {
	var card model.Card
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&card).Error; err != nil {
		return nil, err
	}
	return &card, nil
}

// FindByLast4 finds a card by its last four digits.
func (r *cardRepository) FindByLast4(ctx context.Context, last4 string) (*model.Card, error) {
	var card model.Card
	if err := r.db.WithContext(ctx).Where("last4 = ?", last4).First(&card).Error; err != nil {
		return nil, err
	}
	return &card, nil
}

// ListByLast4 lists all cards ordered by last4 ascending.
func (r *cardRepository) ListByLast4(ctx context.Context) ([]model.Card, error) {
	var cards []model.Card
	if err := r.db.WithContext(ctx).Order("last4 asc").Find(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}

// UpdateBalance updates only the balance column of a card.
func (r *cardRepository) UpdateBalance(ctx context.Context, id uuid.UUID, newBalance decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&model.Card{}).
		Where("id = ?", id).
		Update("balance", newBalance).Error
}

// InsertIfAbsent inserts the card unless one with the same last4 already
// exists, as a single conditional insert. Returns whether a row was
// created; an existing card is left untouched either way.
func (r *cardRepository) InsertIfAbsent(ctx context.Context, card *model.Card) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "last4"}},
		DoNothing: true,
	}).Create(card)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Delete removes the card row permanently, freeing its last4 for reuse.
func (r *cardRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Card{}).Error
}

// WithTransaction executes fn within a database transaction.
func (r *cardRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, cards CardRepository, entries LedgerRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &cardRepository{db: tx}, &ledgerRepository{db: tx})
	})
}
