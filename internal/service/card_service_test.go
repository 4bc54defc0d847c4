package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adcards/internal/config"
	"adcards/internal/errors"
	"adcards/internal/model"
)

func newTestCardService(t *testing.T, catalog []config.CardSeed) (CardService, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	svc := NewCardService(&fakeCardRepo{store: store}, &fakeLedgerRepo{store: store}, nil, catalog)
	return svc, store
}

func TestCreateCard_Defaults(t *testing.T) {
	svc, _ := newTestCardService(t, nil)
	actor := uuid.New()

	card, err := svc.Create(context.Background(), "Meta Card", "4821", []string{"facebook"}, "", "", actor)
	require.NoError(t, err)

	assert.Equal(t, model.CardStatusActive, card.Status)
	assert.Equal(t, "USD", card.Currency)
	assert.True(t, card.Balance.IsZero())
	assert.Equal(t, actor, card.CreatedBy)
	assert.True(t, card.Channels.Contains("facebook"))
}

func TestCreateCard_DuplicateLast4(t *testing.T) {
	svc, _ := newTestCardService(t, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, "First", "1000", nil, "", "", uuid.New())
	require.NoError(t, err)

	_, err = svc.Create(ctx, "Second", "1000", nil, "", "", uuid.New())
	assert.ErrorIs(t, err, errors.ErrDuplicateLast4)
}

func TestUpdateCard_PartialFields(t *testing.T) {
	svc, _ := newTestCardService(t, nil)
	ctx := context.Background()

	card, err := svc.Create(ctx, "Old Name", "1000", []string{"google"}, "", "", uuid.New())
	require.NoError(t, err)

	newName := "New Name"
	status := model.CardStatusInactive
	updated, err := svc.Update(ctx, card.ID, CardUpdate{DisplayName: &newName, Status: &status})
	require.NoError(t, err)

	assert.Equal(t, "New Name", updated.DisplayName)
	assert.Equal(t, model.CardStatusInactive, updated.Status)
	// Untouched fields survive.
	assert.Equal(t, "1000", updated.Last4)
	assert.True(t, updated.Channels.Contains("google"))
}

func TestUpdateCard_DuplicateLast4ExcludesSelf(t *testing.T) {
	svc, _ := newTestCardService(t, nil)
	ctx := context.Background()

	first, err := svc.Create(ctx, "First", "1000", nil, "", "", uuid.New())
	require.NoError(t, err)
	_, err = svc.Create(ctx, "Second", "2000", nil, "", "", uuid.New())
	require.NoError(t, err)

	// Re-submitting the card's own last4 is not a conflict.
	same := "1000"
	_, err = svc.Update(ctx, first.ID, CardUpdate{Last4: &same})
	require.NoError(t, err)

	// Moving onto another card's last4 is.
	taken := "2000"
	_, err = svc.Update(ctx, first.ID, CardUpdate{Last4: &taken})
	assert.ErrorIs(t, err, errors.ErrDuplicateLast4)
}

func TestUpdateCard_NotFound(t *testing.T) {
	svc, _ := newTestCardService(t, nil)
	name := "whatever"
	_, err := svc.Update(context.Background(), uuid.New(), CardUpdate{DisplayName: &name})
	assert.ErrorIs(t, err, errors.ErrCardNotFound)
}

func TestListCards_OrderedByLast4(t *testing.T) {
	svc, _ := newTestCardService(t, nil)
	ctx := context.Background()

	for _, last4 := range []string{"9999", "0001", "4821"} {
		_, err := svc.Create(ctx, "Card "+last4, last4, nil, "", "", uuid.New())
		require.NoError(t, err)
	}

	cards, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 3)
	assert.Equal(t, "0001", cards[0].Last4)
	assert.Equal(t, "4821", cards[1].Last4)
	assert.Equal(t, "9999", cards[2].Last4)
}

func TestDeleteCard_CascadesLedgerEntries(t *testing.T) {
	svc, store := newTestCardService(t, nil)
	ctx := context.Background()

	card, err := svc.Create(ctx, "Doomed", "1000", nil, "", "", uuid.New())
	require.NoError(t, err)
	keeper, err := svc.Create(ctx, "Keeper", "2000", nil, "", "", uuid.New())
	require.NoError(t, err)

	ledger := &fakeLedgerRepo{store: store}
	require.NoError(t, ledger.Create(ctx, &model.LedgerEntry{CardID: card.ID, Amount: dec("10"), Direction: model.DirectionCredit, BalanceAfter: dec("10")}))
	require.NoError(t, ledger.Create(ctx, &model.LedgerEntry{CardID: keeper.ID, Amount: dec("5"), Direction: model.DirectionCredit, BalanceAfter: dec("5")}))

	deleted, err := svc.Delete(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, card.ID, deleted.ID)

	// The deleted card's entries are discarded; others are untouched.
	require.Len(t, store.entries, 1)
	assert.Equal(t, keeper.ID, store.entries[0].CardID)

	_, err = svc.Delete(ctx, card.ID)
	assert.ErrorIs(t, err, errors.ErrCardNotFound)
}

func TestSeedDefaults_Idempotent(t *testing.T) {
	catalog := []config.CardSeed{
		{DisplayName: "Meta Ads Card", Last4: "4821", Channels: []string{"facebook"}, Currency: "USD"},
		{DisplayName: "Google Ads Card", Last4: "7305", Channels: []string{"google"}, Currency: "USD"},
	}
	svc, store := newTestCardService(t, catalog)
	ctx := context.Background()
	actor := uuid.New()

	require.NoError(t, svc.SeedDefaults(ctx, actor))
	cards, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 2)

	// Fund one seeded card, then seed again: the second run must not
	// create duplicates and must not touch existing balances.
	funded := cards[0]
	require.NoError(t, (&fakeCardRepo{store: store}).UpdateBalance(ctx, funded.ID, dec("750")))

	require.NoError(t, svc.SeedDefaults(ctx, actor))
	cards, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 2)

	reread, err := (&fakeCardRepo{store: store}).FindByID(ctx, funded.ID)
	require.NoError(t, err)
	assert.True(t, reread.Balance.Equal(dec("750")))
}

func TestSeedDefaults_SkipsExistingLast4(t *testing.T) {
	catalog := []config.CardSeed{
		{DisplayName: "Catalog Card", Last4: "4821", Currency: "USD"},
	}
	svc, _ := newTestCardService(t, catalog)
	ctx := context.Background()

	// An operator-created card already owns the catalog last4.
	manual, err := svc.Create(ctx, "Manual Card", "4821", nil, "", "EUR", uuid.New())
	require.NoError(t, err)

	require.NoError(t, svc.SeedDefaults(ctx, uuid.New()))

	cards, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, manual.ID, cards[0].ID)
	assert.Equal(t, "Manual Card", cards[0].DisplayName)
}

func TestDeleteCard_FreesLast4ForNewCard(t *testing.T) {
	svc, _ := newTestCardService(t, nil)
	ctx := context.Background()

	old, err := svc.Create(ctx, "Old Card", "4821", []string{"facebook"}, "", "", uuid.New())
	require.NoError(t, err)

	_, err = svc.Delete(ctx, old.ID)
	require.NoError(t, err)

	// The digits belong to nobody once the card is gone: a replacement
	// card may claim them again.
	replacement, err := svc.Create(ctx, "Replacement", "4821", nil, "", "", uuid.New())
	require.NoError(t, err)
	assert.NotEqual(t, old.ID, replacement.ID)
	assert.Equal(t, "4821", replacement.Last4)
}

func TestSeedDefaults_RestoresDeletedCatalogCard(t *testing.T) {
	catalog := []config.CardSeed{
		{DisplayName: "Meta Ads Card", Last4: "4821", Channels: []string{"facebook"}, Currency: "USD"},
	}
	svc, _ := newTestCardService(t, catalog)
	ctx := context.Background()

	require.NoError(t, svc.SeedDefaults(ctx, uuid.New()))
	cards, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 1)

	_, err = svc.Delete(ctx, cards[0].ID)
	require.NoError(t, err)

	// A removed catalog card is absent, not tombstoned: the next seeding
	// run recreates it with a fresh zero balance.
	require.NoError(t, svc.SeedDefaults(ctx, uuid.New()))
	cards, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "4821", cards[0].Last4)
	assert.True(t, cards[0].Balance.Equal(decimal.Zero))
}

func TestGetCard_ServesFromCacheUntilInvalidated(t *testing.T) {
	store := newFakeStore()
	svc := NewCardService(&fakeCardRepo{store: store}, &fakeLedgerRepo{store: store}, newMemCache(), nil)
	ctx := context.Background()

	card, err := svc.Create(ctx, "Cached Card", "1000", nil, "", "", uuid.New())
	require.NoError(t, err)

	first, err := svc.Get(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cached Card", first.DisplayName)

	// A write that bypasses the service is invisible while the cached
	// copy lives.
	behind := *card
	behind.DisplayName = "Renamed Behind Cache"
	store.addCard(behind)

	second, err := svc.Get(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cached Card", second.DisplayName)

	// Updating through the service drops the key, so the next read sees
	// current state.
	name := "Renamed Properly"
	_, err = svc.Update(ctx, card.ID, CardUpdate{DisplayName: &name})
	require.NoError(t, err)

	third, err := svc.Get(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed Properly", third.DisplayName)
}

func TestGetCard_NotFound(t *testing.T) {
	store := newFakeStore()
	svc := NewCardService(&fakeCardRepo{store: store}, &fakeLedgerRepo{store: store}, newMemCache(), nil)

	_, err := svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, errors.ErrCardNotFound)
}

func TestBalanceIdentity_AcrossRegistryAndLedger(t *testing.T) {
	store := newFakeStore()
	cardSvc := NewCardService(&fakeCardRepo{store: store}, &fakeLedgerRepo{store: store}, nil, nil)
	ledgerSvc := NewLedgerService(&fakeCardRepo{store: store}, &fakeLedgerRepo{store: store}, &fakeOperatorRepo{operators: map[uuid.UUID]model.Operator{}}, nil, nil)
	ctx := context.Background()
	actor := uuid.New()

	card, err := cardSvc.Create(ctx, "Identity", "1000", nil, "", "", actor)
	require.NoError(t, err)

	_, _, err = ledgerSvc.TopUp(ctx, card.ID, dec("300"), "", actor)
	require.NoError(t, err)
	_, _, err = ledgerSvc.Charge(ctx, card.ID, dec("120"), model.ChannelFacebook, "", "", actor)
	require.NoError(t, err)
	_, _, err = ledgerSvc.TopUp(ctx, card.ID, dec("20"), "", actor)
	require.NoError(t, err)

	sum := decimal.Zero
	for _, e := range store.entries {
		sum = sum.Add(e.SignedAmount())
	}
	current, err := (&fakeCardRepo{store: store}).FindByID(ctx, card.ID)
	require.NoError(t, err)
	assert.True(t, current.Balance.Equal(sum), "balance %s, entry sum %s", current.Balance, sum)
}
