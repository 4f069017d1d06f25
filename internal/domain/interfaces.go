package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrQuestionPending means the asker already has an open question.
	ErrQuestionPending = errors.New("asker already has a pending question")

	// ErrItemNotFound means no priced item matched the requested key.
	ErrItemNotFound = errors.New("item not found")

	// ErrInsufficientDays means a downtime spend would overdraw the balance.
	ErrInsufficientDays = errors.New("insufficient downtime days")
)

// MessageDeliverer sends a scheduled message to its target. A failed
// delivery is reported, not retried.
type MessageDeliverer interface {
	Deliver(ctx context.Context, guildID, channelID, body string) error
}

// RecordStore is flat line-oriented persistence: one record per line,
// comma-delimited, first field is the key.
type RecordStore interface {
	LoadRecords(name string) ([]Record, error)
	SaveRecords(name string, records []Record) error
}

// ChatGateway is the bot-facing slice of the chat platform connection.
type ChatGateway interface {
	SendMessage(ctx context.Context, channelID, body string) (messageID string, err error)
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	AddReaction(ctx context.Context, channelID, messageID, emoji string) error
}

// Scheduler interface
type MessageScheduler interface {
	Add(ctx context.Context, body, guildID, channelID string, startAt time.Time, interval time.Duration) (string, error)
	Remove(ctx context.Context, id string) bool
	Tick(ctx context.Context, now time.Time)
	Jobs() []*ScheduledMessage
}

// Repository interfaces
type PriceRepository interface {
	GetItem(ctx context.Context, key string) (*PricedItem, error)
	ListItems(ctx context.Context) ([]*PricedItem, error)
	UpsertItem(ctx context.Context, item *PricedItem) error
}

type DowntimeRepository interface {
	AppendEntry(ctx context.Context, entry *DowntimeEntry) error
	Balance(ctx context.Context, guildID, userID, character string) (int, error)
	History(ctx context.Context, guildID, userID, character string) ([]*DowntimeEntry, error)
}

// Cache interfaces
type PriceCache interface {
	GetItem(ctx context.Context, key string) (*PricedItem, error)
	SetItem(ctx context.Context, item *PricedItem) error
	Invalidate(ctx context.Context, key string) error
}

// PingLimiter gates role pings to at most one per cooldown window.
type PingLimiter interface {
	Acquire(ctx context.Context, guildID, roleID string, cooldown time.Duration) (bool, error)
}
