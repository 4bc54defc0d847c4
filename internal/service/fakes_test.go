package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"adcards/internal/cache"
	"adcards/internal/events"
	"adcards/internal/model"
	"adcards/internal/repository"
)

// fakeStore is a minimal in-memory stand-in for the database, shared by
// the fake card and ledger repositories. Each repository call is
// individually consistent, but the store provides no cross-call
// transactionality: serialization of read-compute-write sequences is
// the service's job, which is exactly what the concurrency tests check.
type fakeStore struct {
	mu      sync.Mutex
	cards   map[uuid.UUID]model.Card
	entries []model.LedgerEntry
	seq     int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{cards: make(map[uuid.UUID]model.Card)}
}

func (s *fakeStore) addCard(card model.Card) model.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	if card.ID == uuid.Nil {
		card.ID = uuid.New()
	}
	s.cards[card.ID] = card
	return card
}

// memCache backs the cache wrapper with a plain map so tests can
// observe cache hits; the deployed wrapper talks to redis through the
// same Commands interface.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *cache.Client {
	return cache.NewFromCommands(&memCache{data: make(map[string][]byte)})
}

func (m *memCache) Get(ctx context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(data), nil)
}

func (m *memCache) Set(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if payload, ok := value.([]byte); ok {
		m.data[key] = payload
	}
	return redis.NewStatusResult("OK", nil)
}

func (m *memCache) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for _, key := range keys {
		if _, ok := m.data[key]; ok {
			delete(m.data, key)
			removed++
		}
	}
	return redis.NewIntResult(removed, nil)
}

type fakeCardRepo struct {
	store *fakeStore
}

func (r *fakeCardRepo) Create(ctx context.Context, card *model.Card) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.cards {
		if existing.Last4 == card.Last4 {
			return gorm.ErrDuplicatedKey
		}
	}
	if card.ID == uuid.Nil {
		card.ID = uuid.New()
	}
	card.CreatedAt = time.Now()
	r.store.cards[card.ID] = *card
	return nil
}

func (r *fakeCardRepo) Save(ctx context.Context, card *model.Card) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.cards[card.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	for _, existing := range r.store.cards {
		if existing.ID != card.ID && existing.Last4 == card.Last4 {
			return gorm.ErrDuplicatedKey
		}
	}
	r.store.cards[card.ID] = *card
	return nil
}

func (r *fakeCardRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Card, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	card, ok := r.store.cards[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &card, nil
}

func (r *fakeCardRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Card, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeCardRepo) FindByLast4(ctx context.Context, last4 string) (*model.Card, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, card := range r.store.cards {
		if card.Last4 == last4 {
			c := card
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeCardRepo) ListByLast4(ctx context.Context) ([]model.Card, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cards := make([]model.Card, 0, len(r.store.cards))
	for _, card := range r.store.cards {
		cards = append(cards, card)
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].Last4 < cards[j].Last4 })
	return cards, nil
}

func (r *fakeCardRepo) UpdateBalance(ctx context.Context, id uuid.UUID, newBalance decimal.Decimal) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	card, ok := r.store.cards[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	card.Balance = newBalance
	r.store.cards[id] = card
	return nil
}

func (r *fakeCardRepo) InsertIfAbsent(ctx context.Context, card *model.Card) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.cards {
		if existing.Last4 == card.Last4 {
			return false, nil
		}
	}
	if card.ID == uuid.Nil {
		card.ID = uuid.New()
	}
	card.CreatedAt = time.Now()
	r.store.cards[card.ID] = *card
	return true, nil
}

func (r *fakeCardRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.cards[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.store.cards, id)
	return nil
}

func (r *fakeCardRepo) WithTransaction(ctx context.Context, fn func(ctx context.Context, cards repository.CardRepository, entries repository.LedgerRepository) error) error {
	return fn(ctx, r, &fakeLedgerRepo{store: r.store})
}

type fakeLedgerRepo struct {
	store *fakeStore
}

func (r *fakeLedgerRepo) Create(ctx context.Context, entry *model.LedgerEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	// Monotonic timestamps so creation order survives sub-millisecond
	// bursts in the concurrency tests.
	r.store.seq++
	entry.CreatedAt = time.Unix(0, r.store.seq)
	r.store.entries = append(r.store.entries, *entry)
	return nil
}

func (r *fakeLedgerRepo) ListByCard(ctx context.Context, cardID uuid.UUID, limit int) ([]model.LedgerEntry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var matched []model.LedgerEntry
	for _, e := range r.store.entries {
		if e.CardID == cardID {
			matched = append(matched, e)
		}
	}
	// Newest first.
	out := make([]model.LedgerEntry, 0, len(matched))
	for i := len(matched) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, matched[i])
	}
	return out, nil
}

func (r *fakeLedgerRepo) DeleteByCard(ctx context.Context, cardID uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	kept := r.store.entries[:0]
	for _, e := range r.store.entries {
		if e.CardID != cardID {
			kept = append(kept, e)
		}
	}
	r.store.entries = kept
	return nil
}

type fakeOperatorRepo struct {
	operators map[uuid.UUID]model.Operator
}

func (r *fakeOperatorRepo) Create(ctx context.Context, operator *model.Operator) error {
	if operator.ID == uuid.Nil {
		operator.ID = uuid.New()
	}
	r.operators[operator.ID] = *operator
	return nil
}

func (r *fakeOperatorRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Operator, error) {
	op, ok := r.operators[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &op, nil
}

func (r *fakeOperatorRepo) FindByEmail(ctx context.Context, email string) (*model.Operator, error) {
	for _, op := range r.operators {
		if op.Email == email {
			o := op
			return &o, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeOperatorRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Operator, error) {
	out := make(map[uuid.UUID]model.Operator, len(ids))
	for _, id := range ids {
		if op, ok := r.operators[id]; ok {
			out[id] = op
		}
	}
	return out, nil
}

// capturingPublisher records every published event.
type capturingPublisher struct {
	mu     sync.Mutex
	events []events.EntryRecorded
}

func (p *capturingPublisher) PublishEntryRecorded(ctx context.Context, event events.EntryRecorded) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) recorded() []events.EntryRecorded {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.EntryRecorded(nil), p.events...)
}
