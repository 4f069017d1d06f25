package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tavern-bot/internal/domain"
	"tavern-bot/pkg/logger"
)

// memRecordStore is an in-memory RecordStore for tests.
type memRecordStore struct {
	mu   sync.Mutex
	sets map[string][]domain.Record
}

func newMemRecordStore() *memRecordStore {
	return &memRecordStore{sets: make(map[string][]domain.Record)}
}

func (m *memRecordStore) LoadRecords(name string) ([]domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Record(nil), m.sets[name]...), nil
}

func (m *memRecordStore) SaveRecords(name string, records []domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets[name] = append([]domain.Record(nil), records...)
	return nil
}

// recordingDeliverer counts deliveries and optionally fails them all.
type recordingDeliverer struct {
	mu         sync.Mutex
	deliveries []string
	fail       bool
}

func (d *recordingDeliverer) Deliver(ctx context.Context, guildID, channelID, body string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deliveries = append(d.deliveries, body)
	if d.fail {
		return errors.New("channel gone")
	}
	return nil
}

func (d *recordingDeliverer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.deliveries)
}

func newTestScheduler(t *testing.T) (*MessageScheduler, *memRecordStore, *recordingDeliverer) {
	t.Helper()
	store := newMemRecordStore()
	deliverer := &recordingDeliverer{}
	return NewMessageScheduler(store, deliverer, logger.NewNop()), store, deliverer
}

func TestScheduler_OneShotDeliveredOnceThenRemoved(t *testing.T) {
	s, _, deliverer := newTestScheduler(t)
	now := time.Now()

	id, err := s.Add(context.Background(), "session tonight!", "g1", "c1", now.Add(-time.Minute), 0)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	s.Tick(context.Background(), now)

	assert.Equal(t, 1, deliverer.count())
	assert.Empty(t, s.Jobs(), "one-shot must be gone after the cleanup pass")

	s.Tick(context.Background(), now)
	assert.Equal(t, 1, deliverer.count(), "second tick must not redeliver")
}

func TestScheduler_RecurringAdvancesWithinOneInterval(t *testing.T) {
	s, _, deliverer := newTestScheduler(t)
	now := time.Now()
	interval := 30 * time.Minute

	_, err := s.Add(context.Background(), "downtime reminder", "g1", "c1", now.Add(-time.Hour), interval)
	require.NoError(t, err)

	s.Tick(context.Background(), now)

	require.Equal(t, 1, deliverer.count())
	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.True(t, jobs[0].NextAt.After(now), "next fire must be in the future")
	assert.LessOrEqual(t, jobs[0].NextAt.Sub(now), interval, "next fire must be within one interval")
}

func TestScheduler_TickIsIdempotentForSameNow(t *testing.T) {
	s, _, deliverer := newTestScheduler(t)
	now := time.Now()

	_, err := s.Add(context.Background(), "weekly ping", "g1", "c1", now.Add(-time.Hour), time.Hour)
	require.NoError(t, err)

	s.Tick(context.Background(), now)
	s.Tick(context.Background(), now)

	assert.Equal(t, 1, deliverer.count())
}

func TestScheduler_FutureJobNotDelivered(t *testing.T) {
	s, _, deliverer := newTestScheduler(t)
	now := time.Now()

	_, err := s.Add(context.Background(), "later", "g1", "c1", now.Add(time.Hour), 0)
	require.NoError(t, err)

	s.Tick(context.Background(), now)

	assert.Zero(t, deliverer.count())
	require.Len(t, s.Jobs(), 1)
}

func TestScheduler_RemoveReportsPresence(t *testing.T) {
	s, _, _ := newTestScheduler(t)

	id, err := s.Add(context.Background(), "x", "g1", "c1", time.Now().Add(time.Hour), 0)
	require.NoError(t, err)

	assert.True(t, s.Remove(context.Background(), id))
	assert.False(t, s.Remove(context.Background(), id), "second remove finds nothing")
	assert.False(t, s.Remove(context.Background(), "msg-nope"))
}

func TestScheduler_DeliveryFailureStillAdvances(t *testing.T) {
	s, _, deliverer := newTestScheduler(t)
	deliverer.fail = true
	now := time.Now()

	_, err := s.Add(context.Background(), "into the void", "g1", "c-deleted", now.Add(-time.Minute), time.Hour)
	require.NoError(t, err)

	s.Tick(context.Background(), now)

	jobs := s.Jobs()
	require.Len(t, jobs, 1, "the job definition survives a failed send")
	assert.True(t, jobs[0].NextAt.After(now), "schedule advances exactly as on success")

	s.Tick(context.Background(), now)
	assert.Equal(t, 1, deliverer.count(), "no retry")
}

func TestScheduler_DuplicateJobsBothFire(t *testing.T) {
	s, _, deliverer := newTestScheduler(t)
	now := time.Now()

	_, err := s.Add(context.Background(), "same", "g1", "c1", now.Add(-time.Minute), 0)
	require.NoError(t, err)
	_, err = s.Add(context.Background(), "same", "g1", "c1", now.Add(-time.Minute), 0)
	require.NoError(t, err)

	s.Tick(context.Background(), now)

	assert.Equal(t, 2, deliverer.count())
}

func TestScheduler_PersistenceRoundTrip(t *testing.T) {
	s, store, _ := newTestScheduler(t)
	now := time.Now()
	interval := 45 * time.Minute

	_, err := s.Add(context.Background(), "body, with a comma", "g1", "c1", now.Add(-2*time.Hour), interval)
	require.NoError(t, err)
	s.Tick(context.Background(), now)

	before := s.Jobs()
	require.Len(t, before, 1)

	reloaded := NewMessageScheduler(store, &recordingDeliverer{}, logger.NewNop())
	after := reloaded.Jobs()
	require.Len(t, after, 1)

	assert.Equal(t, before[0].ID, after[0].ID)
	assert.Equal(t, before[0].Body, after[0].Body)
	assert.Equal(t, before[0].Interval, after[0].Interval)
	assert.True(t, before[0].StartAt.Equal(after[0].StartAt), "anchor must round-trip losslessly")

	// Recomputing the next occurrence from the reloaded anchor at the same
	// now reproduces the pre-persistence value.
	_, fireAt := nextOccurrence(after[0].StartAt, after[0].Interval, now)
	assert.True(t, fireAt.Equal(before[0].NextAt))
}

func TestScheduler_SkipsMalformedPersistedRecord(t *testing.T) {
	store := newMemRecordStore()
	require.NoError(t, store.SaveRecords(scheduleRecordName, []domain.Record{
		{Key: "msg-good", Fields: []string{"g1", "c1", "1700000000000000000", "1h0m0s", "hello"}},
		{Key: "msg-bad", Fields: []string{"g1", "c1", "not-a-time", "1h0m0s", "hello"}},
		{Key: "msg-short", Fields: []string{"g1"}},
	}))

	s := NewMessageScheduler(store, &recordingDeliverer{}, logger.NewNop())

	jobs := s.Jobs()
	require.Len(t, jobs, 1, "malformed records are skipped, not fatal")
	assert.Equal(t, "msg-good", jobs[0].ID)
}

func TestScheduler_EndToEndScenario(t *testing.T) {
	// Add with startAt = now-1h, interval = 30m; tick at now delivers once
	// and leaves the next fire in (now, now+30m].
	s, _, deliverer := newTestScheduler(t)
	now := time.Now()

	_, err := s.Add(context.Background(), "market day", "g1", "c1", now.Add(-time.Hour), 30*time.Minute)
	require.NoError(t, err)

	s.Tick(context.Background(), now)

	require.Equal(t, 1, deliverer.count())
	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.True(t, jobs[0].NextAt.After(now))
	assert.LessOrEqual(t, jobs[0].NextAt.Sub(now), 30*time.Minute)
}

func TestNextOccurrence(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("future anchor is returned untouched", func(t *testing.T) {
		anchor := base.Add(time.Hour)
		newAnchor, fireAt := nextOccurrence(anchor, time.Hour, base)
		assert.True(t, newAnchor.Equal(anchor))
		assert.True(t, fireAt.Equal(anchor))
	})

	t.Run("anchor walks forward by whole intervals", func(t *testing.T) {
		anchor := base.Add(-125 * time.Minute)
		newAnchor, fireAt := nextOccurrence(anchor, time.Hour, base)
		assert.True(t, newAnchor.Equal(base.Add(-5*time.Minute)))
		assert.True(t, fireAt.Equal(base.Add(55*time.Minute)))
	})

	t.Run("exact multiple lands on now", func(t *testing.T) {
		anchor := base.Add(-2 * time.Hour)
		newAnchor, fireAt := nextOccurrence(anchor, time.Hour, base)
		assert.True(t, newAnchor.Equal(base))
		assert.True(t, fireAt.Equal(base.Add(time.Hour)))
	})
}
