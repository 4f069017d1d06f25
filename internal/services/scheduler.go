package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"tavern-bot/internal/domain"
	"tavern-bot/pkg/logger"
	"tavern-bot/pkg/utils"
)

const scheduleRecordName = "scheduled_messages"

// oneShotPark keeps a delivered one-shot out of the due set until the
// cleanup pass removes it.
const oneShotPark = 24 * 365 * time.Hour

// MessageScheduler owns the set of scheduled messages. All mutation goes
// through its methods under one mutex; Tick is expected to be driven by a
// single periodic caller.
type MessageScheduler struct {
	store     domain.RecordStore
	deliverer domain.MessageDeliverer
	log       logger.Logger
	mu        sync.Mutex
	jobs      []*domain.ScheduledMessage
}

func NewMessageScheduler(store domain.RecordStore, deliverer domain.MessageDeliverer, log logger.Logger) *MessageScheduler {
	s := &MessageScheduler{
		store:     store,
		deliverer: deliverer,
		log:       log,
	}
	s.load()
	return s
}

func (s *MessageScheduler) load() {
	records, err := s.store.LoadRecords(scheduleRecordName)
	if err != nil {
		s.log.Error("Failed to load scheduled messages", "error", err)
		return
	}

	for _, rec := range records {
		job, err := jobFromRecord(rec)
		if err != nil {
			s.log.Warn("Skipping malformed schedule record", "key", rec.Key, "error", err)
			continue
		}
		s.jobs = append(s.jobs, job)
	}

	s.log.Info("Loaded scheduled messages", "count", len(s.jobs))
}

// Add creates a job due at startAt. A startAt in the past means the job is
// due on the first tick. interval == 0 makes it one-shot.
func (s *MessageScheduler) Add(ctx context.Context, body, guildID, channelID string, startAt time.Time, interval time.Duration) (string, error) {
	job := &domain.ScheduledMessage{
		ID:        utils.GenerateID("msg"),
		Body:      body,
		GuildID:   guildID,
		ChannelID: channelID,
		StartAt:   startAt,
		Interval:  interval,
		NextAt:    startAt,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs = append(s.jobs, job)
	if err := s.persistLocked(); err != nil {
		return "", err
	}

	s.log.Info("Scheduled message added",
		"id", job.ID, "guild_id", guildID, "channel_id", channelID,
		"start_at", startAt, "interval", interval)
	return job.ID, nil
}

// Remove deletes the job with the given id. Not found is a negative result,
// not an error.
func (s *MessageScheduler) Remove(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, job := range s.jobs {
		if job.ID == id {
			s.jobs = append(s.jobs[:i], s.jobs[i+1:]...)
			if err := s.persistLocked(); err != nil {
				s.log.Error("Failed to persist after remove", "id", id, "error", err)
			}
			s.log.Info("Scheduled message removed", "id", id)
			return true
		}
	}
	return false
}

// Tick delivers every due job, recomputes its next occurrence, then removes
// delivered one-shots in a second pass and persists once. A failed delivery
// still advances the job: the send is best-effort, the schedule is not.
func (s *MessageScheduler) Tick(ctx context.Context, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fired := 0
	for _, job := range s.jobs {
		if job.NextAt.IsZero() || job.NextAt.After(now) {
			continue
		}

		if err := s.deliverer.Deliver(ctx, job.GuildID, job.ChannelID, job.Body); err != nil {
			s.log.Error("Failed to deliver scheduled message",
				"id", job.ID, "channel_id", job.ChannelID, "error", err)
		}
		fired++

		if job.Interval == 0 {
			job.PendingDelete = true
			job.NextAt = now.Add(oneShotPark)
			continue
		}
		job.StartAt, job.NextAt = nextOccurrence(job.StartAt, job.Interval, now)
	}

	removed := 0
	if fired > 0 {
		kept := s.jobs[:0]
		for _, job := range s.jobs {
			if job.PendingDelete {
				removed++
				continue
			}
			kept = append(kept, job)
		}
		s.jobs = kept
	}

	if fired > 0 || removed > 0 {
		if err := s.persistLocked(); err != nil {
			s.log.Error("Failed to persist after tick", "error", err)
		}
	}
}

// Jobs returns a snapshot of the current job list.
func (s *MessageScheduler) Jobs() []*domain.ScheduledMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.ScheduledMessage, len(s.jobs))
	for i, job := range s.jobs {
		copied := *job
		out[i] = &copied
	}
	return out
}

func (s *MessageScheduler) persistLocked() error {
	records := make([]domain.Record, 0, len(s.jobs))
	for _, job := range s.jobs {
		records = append(records, recordFromJob(job))
	}
	return s.store.SaveRecords(scheduleRecordName, records)
}

// nextOccurrence walks the anchor forward by whole intervals so repeated
// ticks never re-scan from the original start. For a recurring job the
// returned fire time satisfies now < fire <= now + interval.
func nextOccurrence(anchor time.Time, interval time.Duration, now time.Time) (newAnchor, fireAt time.Time) {
	if anchor.After(now) {
		return anchor, anchor
	}
	if interval <= 0 {
		return anchor, anchor
	}
	steps := now.Sub(anchor) / interval
	newAnchor = anchor.Add(steps * interval)
	return newAnchor, newAnchor.Add(interval)
}

func recordFromJob(job *domain.ScheduledMessage) domain.Record {
	return domain.Record{
		Key: job.ID,
		Fields: []string{
			job.GuildID,
			job.ChannelID,
			strconv.FormatInt(job.StartAt.UnixNano(), 10),
			job.Interval.String(),
			job.Body,
		},
	}
}

func jobFromRecord(rec domain.Record) (*domain.ScheduledMessage, error) {
	if len(rec.Fields) < 5 {
		return nil, fmt.Errorf("expected 5 fields, got %d", len(rec.Fields))
	}

	startNanos, err := strconv.ParseInt(rec.Fields[2], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad start time %q: %w", rec.Fields[2], err)
	}

	interval, err := time.ParseDuration(rec.Fields[3])
	if err != nil {
		return nil, fmt.Errorf("bad interval %q: %w", rec.Fields[3], err)
	}

	startAt := time.Unix(0, startNanos)
	return &domain.ScheduledMessage{
		ID:        rec.Key,
		GuildID:   rec.Fields[0],
		ChannelID: rec.Fields[1],
		StartAt:   startAt,
		Interval:  interval,
		NextAt:    startAt,
		Body:      rec.Fields[4],
	}, nil
}
