package services

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"tavern-bot/internal/domain"
	"tavern-bot/pkg/logger"
)

// pendingEntry pairs a question with the signal its waiter blocks on.
// The channel is closed exactly once, by the reply that resolves it.
type pendingEntry struct {
	question *domain.PendingQuestion
	resolved chan struct{}
}

// DisambiguationBroker correlates an asking user with one outstanding
// multiple-choice question. Per asker the lifecycle is
// none -> pending -> resolved or timed out, and terminal states remove the
// asker from the map.
type DisambiguationBroker struct {
	mu      sync.Mutex
	pending map[string]*pendingEntry
	log     logger.Logger
}

func NewDisambiguationBroker(log logger.Logger) *DisambiguationBroker {
	return &DisambiguationBroker{
		pending: make(map[string]*pendingEntry),
		log:     log,
	}
}

// Ask registers a question for askerID. A second question while one is
// pending is rejected with ErrQuestionPending, never queued.
func (b *DisambiguationBroker) Ask(askerID, channelID string, options []string, promptMessageID string) (*domain.PendingQuestion, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.pending[askerID]; exists {
		return nil, domain.ErrQuestionPending
	}

	question := &domain.PendingQuestion{
		AskerID:         askerID,
		ChannelID:       channelID,
		Options:         options,
		PromptMessageID: promptMessageID,
		ResolvedIndex:   domain.Unresolved,
	}
	b.pending[askerID] = &pendingEntry{
		question: question,
		resolved: make(chan struct{}),
	}

	b.log.Debug("Question registered", "asker_id", askerID, "options", len(options))
	return question, nil
}

// OnReply resolves the asker's pending question if text parses as an
// integer within [1, optionCount]. Anything else is ignored and the
// question stays pending. The first valid reply wins; ResolvedIndex is
// never written twice.
func (b *DisambiguationBroker) OnReply(authorID, channelID, text, replyMessageID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, exists := b.pending[authorID]
	if !exists || entry.question.ChannelID != channelID {
		return
	}

	choice, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || choice < 1 || choice > len(entry.question.Options) {
		return
	}

	entry.question.ResolvedIndex = choice - 1
	entry.question.ReplyMessageID = replyMessageID
	delete(b.pending, authorID)
	close(entry.resolved)

	b.log.Debug("Question resolved", "asker_id", authorID, "choice", choice)
}

// Await blocks until the question is resolved or timeout elapses. On
// timeout the question is removed from the active set; it does not leak. A
// resolution that lands as the timer fires still wins.
func (b *DisambiguationBroker) Await(ctx context.Context, question *domain.PendingQuestion, timeout time.Duration) (string, bool) {
	b.mu.Lock()
	entry, exists := b.pending[question.AskerID]
	if !exists || entry.question != question {
		// Already resolved (or expired) before the waiter arrived.
		resolved := question.ResolvedIndex != domain.Unresolved
		b.mu.Unlock()
		if resolved {
			return question.Options[question.ResolvedIndex], true
		}
		return "", false
	}
	b.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-entry.resolved:
		return question.Options[question.ResolvedIndex], true
	case <-timer.C:
	case <-ctx.Done():
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if question.ResolvedIndex != domain.Unresolved {
		return question.Options[question.ResolvedIndex], true
	}
	delete(b.pending, question.AskerID)

	b.log.Debug("Question timed out", "asker_id", question.AskerID)
	return "", false
}

// HasPending reports whether askerID has an open question.
func (b *DisambiguationBroker) HasPending(askerID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, exists := b.pending[askerID]
	return exists
}
