package events

import (
	"context"
	"time"
)

// EntryRecorded is emitted after a balance mutation has committed. It is
// the integration point for downstream consumers (notification feed,
// reporting) and carries no mutable state.
type EntryRecorded struct {
	EntryID      string    `json:"entry_id"`
	CardID       string    `json:"card_id"`
	Type         string    `json:"type"`
	Direction    string    `json:"direction"`
	Amount       string    `json:"amount"`
	BalanceAfter string    `json:"balance_after"`
	Channel      string    `json:"channel"`
	CreatedBy    string    `json:"created_by"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Publisher publishes ledger events. Publishing is best-effort: the
// ledger commit has already happened by the time Publish is called.
type Publisher interface {
	PublishEntryRecorded(ctx context.Context, event EntryRecorded) error
}

// Noop discards events. Used when no broker is configured.
type Noop struct{}

// PublishEntryRecorded implements Publisher.
func (Noop) PublishEntryRecorded(ctx context.Context, event EntryRecorded) error {
	return nil
}
