package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"adcards/internal/cache"
	"adcards/internal/config"
	"adcards/internal/errors"
	"adcards/internal/model"
	"adcards/internal/repository"
)

const cardCacheTTL = 5 * time.Minute

func cardCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("card:%s", id.String())
}

// cachedCard is the cache-aside card read shared by display paths
// (single-card lookup, ledger listing). Every balance mutation, metadata
// update and delete invalidates the key, so a cache hit is never stale
// with respect to this process's own writes.
func cachedCard(ctx context.Context, cards repository.CardRepository, c *cache.Client, id uuid.UUID) (*model.Card, error) {
	var cached model.Card
	if c.GetJSON(ctx, cardCacheKey(id), &cached) {
		return &cached, nil
	}

	card, err := cards.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrCardNotFound
		}
		return nil, err
	}

	c.SetJSON(ctx, cardCacheKey(id), card, cardCacheTTL)
	return card, nil
}

// CardUpdate carries the optional fields of a partial card update.
type CardUpdate struct {
	DisplayName *string
	Last4       *string
	Channels    *[]string
	Status      *model.CardStatus
}

// CardService manages card lifecycle and metadata. It never touches
// balances; every balance-affecting operation goes through LedgerService.
type CardService interface {
	Create(ctx context.Context, displayName, last4 string, channels []string, status model.CardStatus, currency string, actor uuid.UUID) (*model.Card, error)
	Update(ctx context.Context, id uuid.UUID, upd CardUpdate) (*model.Card, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Card, error)
	List(ctx context.Context) ([]model.Card, error)
	Delete(ctx context.Context, id uuid.UUID) (*model.Card, error)
	SeedDefaults(ctx context.Context, actor uuid.UUID) error
}

type cardService struct {
	cardRepo   repository.CardRepository
	ledgerRepo repository.LedgerRepository
	cache      *cache.Client
	catalog    []config.CardSeed
}

// NewCardService creates a new card service. The catalog is the fixed
// set of starter cards applied by SeedDefaults.
func NewCardService(
	cardRepo repository.CardRepository,
	ledgerRepo repository.LedgerRepository,
	cache *cache.Client,
	catalog []config.CardSeed,
) CardService {
	return &cardService{
		cardRepo:   cardRepo,
		ledgerRepo: ledgerRepo,
		cache:      cache,
		catalog:    catalog,
	}
}

// Create registers a new card with a zero balance.
func (s *cardService) Create(ctx context.Context, displayName, last4 string, channels []string, status model.CardStatus, currency string, actor uuid.UUID) (*model.Card, error) {
	if status == "" {
		status = model.CardStatusActive
	}
	if currency == "" {
		currency = "USD"
	}

	if _, err := s.cardRepo.FindByLast4(ctx, last4); err == nil {
		return nil, errors.ErrDuplicateLast4
	} else if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("check last4: %w", err)
	}

	card := &model.Card{
		DisplayName: displayName,
		Last4:       last4,
		Channels:    model.ChannelSet(channels),
		Currency:    currency,
		Status:      status,
		CreatedBy:   actor,
	}
	if err := s.cardRepo.Create(ctx, card); err != nil {
		// The unique index catches creations that raced the pre-check.
		if err == gorm.ErrDuplicatedKey {
			return nil, errors.ErrDuplicateLast4
		}
		return nil, fmt.Errorf("create card: %w", err)
	}
	return card, nil
}

// Update applies a partial metadata update. A last4 change re-checks
// uniqueness excluding the card itself.
func (s *cardService) Update(ctx context.Context, id uuid.UUID, upd CardUpdate) (*model.Card, error) {
	card, err := s.cardRepo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrCardNotFound
		}
		return nil, err
	}

	if upd.Last4 != nil && *upd.Last4 != card.Last4 {
		existing, err := s.cardRepo.FindByLast4(ctx, *upd.Last4)
		if err == nil && existing.ID != card.ID {
			return nil, errors.ErrDuplicateLast4
		}
		if err != nil && err != gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("check last4: %w", err)
		}
		card.Last4 = *upd.Last4
	}
	if upd.DisplayName != nil {
		card.DisplayName = *upd.DisplayName
	}
	if upd.Channels != nil {
		card.Channels = model.ChannelSet(*upd.Channels)
	}
	if upd.Status != nil {
		card.Status = *upd.Status
	}

	if err := s.cardRepo.Save(ctx, card); err != nil {
		if err == gorm.ErrDuplicatedKey {
			return nil, errors.ErrDuplicateLast4
		}
		return nil, fmt.Errorf("update card: %w", err)
	}

	_ = s.cache.Delete(ctx, cardCacheKey(card.ID))
	return card, nil
}

// Get retrieves a card by ID with caching.
func (s *cardService) Get(ctx context.Context, id uuid.UUID) (*model.Card, error) {
	return cachedCard(ctx, s.cardRepo, s.cache, id)
}

// List returns all cards ordered by last4 ascending.
func (s *cardService) List(ctx context.Context) ([]model.Card, error) {
	return s.cardRepo.ListByLast4(ctx)
}

// Delete permanently removes a card together with all of its ledger
// entries in one transaction, so no orphaned entries remain and the
// card's last4 becomes available again. Returns the removed card.
func (s *cardService) Delete(ctx context.Context, id uuid.UUID) (*model.Card, error) {
	card, err := s.cardRepo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrCardNotFound
		}
		return nil, err
	}

	err = s.cardRepo.WithTransaction(ctx, func(ctx context.Context, cards repository.CardRepository, entries repository.LedgerRepository) error {
		if err := entries.DeleteByCard(ctx, card.ID); err != nil {
			return fmt.Errorf("delete ledger entries: %w", err)
		}
		if err := cards.Delete(ctx, card.ID); err != nil {
			return fmt.Errorf("delete card: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = s.cache.Delete(ctx, cardCacheKey(card.ID))
	return card, nil
}

// SeedDefaults inserts every catalog card that is not present yet, keyed
// by last4. Each insert is a single conditional write, so seeding is
// idempotent and safe to run concurrently with balance mutation:
// existing cards and their balances are never touched.
func (s *cardService) SeedDefaults(ctx context.Context, actor uuid.UUID) error {
	for _, seed := range s.catalog {
		card := &model.Card{
			DisplayName: seed.DisplayName,
			Last4:       seed.Last4,
			Channels:    model.ChannelSet(seed.Channels),
			Currency:    seed.Currency,
			Status:      model.CardStatusActive,
			CreatedBy:   actor,
		}
		if _, err := s.cardRepo.InsertIfAbsent(ctx, card); err != nil {
			return fmt.Errorf("seed card %s: %w", seed.Last4, err)
		}
	}
	return nil
}
