package domain

import (
	"time"
)

// ScheduledMessage is a chat message with a fire-time policy.
// Interval == 0 means one-shot: delivered once, then removed.
type ScheduledMessage struct {
	ID            string
	Body          string
	GuildID       string
	ChannelID     string
	StartAt       time.Time
	Interval      time.Duration
	NextAt        time.Time
	PendingDelete bool
}

// Unresolved is the ResolvedIndex of a question nobody has answered yet.
const Unresolved = -1

// PendingQuestion is an outstanding multiple-choice prompt keyed by the
// asking user. ResolvedIndex is written at most once.
type PendingQuestion struct {
	AskerID         string
	ChannelID       string
	Options         []string
	PromptMessageID string
	ResolvedIndex   int
	ReplyMessageID  string
}

// PricedItem keys are lower-cased and unique. Costs are in copper pieces.
// The relation low <= average <= high is not enforced here.
type PricedItem struct {
	Key         string
	Category    string
	AverageCost int64
	LowCost     int64
	HighCost    int64
	Restricted  bool
}

type DowntimeEntry struct {
	ID         string
	GuildID    string
	UserID     string
	Character  string
	Days       int
	Activity   string
	RecordedAt time.Time
}

// GuildSettings holds per-guild bot configuration persisted as flat records.
type GuildSettings struct {
	GuildID         string
	NotifyChannelID string
	PingCooldown    time.Duration
}

// Record is one line of the flat persistence format. The key is the first
// comma-delimited field on disk.
type Record struct {
	Key    string
	Fields []string
}

// InboundMessage is a chat message as seen by the command layer.
type InboundMessage struct {
	MessageID string
	GuildID   string
	ChannelID string
	AuthorID  string
	Content   string
}
