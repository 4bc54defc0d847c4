package service

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"adcards/internal/cache"
	"adcards/internal/errors"
	"adcards/internal/events"
	"adcards/internal/model"
	"adcards/internal/repository"
)

// ManualTopUpReference is the fixed reference recorded on operator top-ups.
const ManualTopUpReference = "manual-topup"

// DefaultEntryLimit caps how many entries a ledger read returns.
const DefaultEntryLimit = 50

// Mutation describes one requested balance movement.
type Mutation struct {
	CardID    uuid.UUID
	Type      model.EntryType
	Amount    decimal.Decimal
	Direction model.Direction
	Channel   string
	Reference string
	Note      string
	Actor     uuid.UUID
}

// LedgerService is the only writer of card balances. Every accepted
// mutation changes the balance and appends the matching ledger entry as
// one indivisible unit; every rejection leaves zero writes behind.
type LedgerService interface {
	Apply(ctx context.Context, m Mutation) (*model.Card, *model.LedgerEntry, error)
	TopUp(ctx context.Context, cardID uuid.UUID, amount decimal.Decimal, note string, actor uuid.UUID) (*model.Card, *model.LedgerEntry, error)
	Charge(ctx context.Context, cardID uuid.UUID, amount decimal.Decimal, channel, reference, note string, actor uuid.UUID) (*model.Card, *model.LedgerEntry, error)
	RecentEntries(ctx context.Context, cardID uuid.UUID, limit int) (*model.Card, []model.LedgerEntry, error)
}

type ledgerService struct {
	cardRepo     repository.CardRepository
	ledgerRepo   repository.LedgerRepository
	operatorRepo repository.OperatorRepository
	cache        *cache.Client
	publisher    events.Publisher
	// Mutex map for per-card serialization of Apply.
	cardMutexes sync.Map
}

// NewLedgerService creates a new ledger service.
func NewLedgerService(
	cardRepo repository.CardRepository,
	ledgerRepo repository.LedgerRepository,
	operatorRepo repository.OperatorRepository,
	cache *cache.Client,
	publisher events.Publisher,
) LedgerService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &ledgerService{
		cardRepo:     cardRepo,
		ledgerRepo:   ledgerRepo,
		operatorRepo: operatorRepo,
		cache:        cache,
		publisher:    publisher,
	}
}

// getMutex returns the mutex for a specific card ID.
func (s *ledgerService) getMutex(cardID uuid.UUID) *sync.Mutex {
	value, _ := s.cardMutexes.LoadOrStore(cardID.String(), &sync.Mutex{})
	return value.(*sync.Mutex)
}

// Apply validates and applies one balance movement. The read-compute-
// write sequence runs under a per-card mutex and inside one database
// transaction with the card row locked, so concurrent calls on the same
// card serialize instead of losing updates; calls on different cards
// proceed in parallel.
func (s *ledgerService) Apply(ctx context.Context, m Mutation) (*model.Card, *model.LedgerEntry, error) {
	if !m.Amount.IsPositive() {
		return nil, nil, errors.ErrInvalidAmount
	}

	mutex := s.getMutex(m.CardID)
	mutex.Lock()
	defer mutex.Unlock()

	var (
		card  *model.Card
		entry *model.LedgerEntry
	)
	err := s.cardRepo.WithTransaction(ctx, func(ctx context.Context, cards repository.CardRepository, entries repository.LedgerRepository) error {
		locked, err := cards.FindByIDForUpdate(ctx, m.CardID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.ErrCardNotFound
			}
			return err
		}

		newBalance := locked.Balance.Add(m.Amount)
		if m.Direction == model.DirectionDebit {
			newBalance = locked.Balance.Sub(m.Amount)
			if newBalance.IsNegative() {
				return errors.ErrInsufficientBalance
			}
		}

		if err := cards.UpdateBalance(ctx, locked.ID, newBalance); err != nil {
			return fmt.Errorf("update balance: %w", err)
		}

		entry = &model.LedgerEntry{
			CardID:       locked.ID,
			Type:         m.Type,
			Amount:       m.Amount,
			Direction:    m.Direction,
			Channel:      model.NormalizeChannel(m.Channel),
			Reference:    m.Reference,
			Note:         m.Note,
			BalanceAfter: newBalance,
			CreatedBy:    m.Actor,
		}
		if err := entries.Create(ctx, entry); err != nil {
			return fmt.Errorf("append ledger entry: %w", err)
		}

		locked.Balance = newBalance
		card = locked
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	_ = s.cache.Delete(ctx, cardCacheKey(card.ID))
	s.publishEntry(ctx, card, entry)

	return card, entry, nil
}

// TopUp credits a card from a manual operator top-up.
func (s *ledgerService) TopUp(ctx context.Context, cardID uuid.UUID, amount decimal.Decimal, note string, actor uuid.UUID) (*model.Card, *model.LedgerEntry, error) {
	return s.Apply(ctx, Mutation{
		CardID:    cardID,
		Type:      model.EntryTypeTopUp,
		Amount:    amount,
		Direction: model.DirectionCredit,
		Channel:   model.ChannelOther,
		Reference: ManualTopUpReference,
		Note:      note,
		Actor:     actor,
	})
}

// Charge debits ad-platform spend from a card. The channel is recorded
// for attribution only; membership in the card's channel set is not
// enforced.
func (s *ledgerService) Charge(ctx context.Context, cardID uuid.UUID, amount decimal.Decimal, channel, reference, note string, actor uuid.UUID) (*model.Card, *model.LedgerEntry, error) {
	return s.Apply(ctx, Mutation{
		CardID:    cardID,
		Type:      model.EntryTypeCharge,
		Amount:    amount,
		Direction: model.DirectionDebit,
		Channel:   channel,
		Reference: reference,
		Note:      note,
		Actor:     actor,
	})
}

// RecentEntries returns a card with its most recent ledger entries,
// newest first, with actor names resolved for display. The card itself
// is read through the cache; Apply invalidates the key on every
// mutation, so the cached copy tracks the entry list.
func (s *ledgerService) RecentEntries(ctx context.Context, cardID uuid.UUID, limit int) (*model.Card, []model.LedgerEntry, error) {
	if limit <= 0 || limit > DefaultEntryLimit {
		limit = DefaultEntryLimit
	}

	card, err := cachedCard(ctx, s.cardRepo, s.cache, cardID)
	if err != nil {
		return nil, nil, err
	}

	entries, err := s.ledgerRepo.ListByCard(ctx, cardID, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("list ledger entries: %w", err)
	}

	s.resolveActors(ctx, entries)
	return card, entries, nil
}

// resolveActors fills CreatedByName on entries. Resolution is for
// display only; failures leave the names blank.
func (s *ledgerService) resolveActors(ctx context.Context, entries []model.LedgerEntry) {
	ids := make([]uuid.UUID, 0, len(entries))
	seen := make(map[uuid.UUID]bool, len(entries))
	for _, e := range entries {
		if e.CreatedBy != uuid.Nil && !seen[e.CreatedBy] {
			seen[e.CreatedBy] = true
			ids = append(ids, e.CreatedBy)
		}
	}
	operators, err := s.operatorRepo.FindByIDs(ctx, ids)
	if err != nil {
		return
	}
	for i := range entries {
		if op, ok := operators[entries[i].CreatedBy]; ok {
			entries[i].CreatedByName = op.Name
		}
	}
}

// publishEntry emits the committed entry, best-effort.
func (s *ledgerService) publishEntry(ctx context.Context, card *model.Card, entry *model.LedgerEntry) {
	err := s.publisher.PublishEntryRecorded(ctx, events.EntryRecorded{
		EntryID:      entry.ID.String(),
		CardID:       card.ID.String(),
		Type:         string(entry.Type),
		Direction:    string(entry.Direction),
		Amount:       entry.Amount.String(),
		BalanceAfter: entry.BalanceAfter.String(),
		Channel:      entry.Channel,
		CreatedBy:    entry.CreatedBy.String(),
		OccurredAt:   entry.CreatedAt,
	})
	if err != nil {
		log.Printf("publish ledger event for card %s: %v", card.ID, err)
	}
}
