package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"tavern-bot/internal/domain"
	"tavern-bot/pkg/logger"
	"tavern-bot/pkg/utils"
)

// DowntimeService tracks per-character downtime-day balances as an
// append-only ledger of earn and spend entries.
type DowntimeService struct {
	repo domain.DowntimeRepository
	log  logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewDowntimeService(repo domain.DowntimeRepository, log logger.Logger) *DowntimeService {
	return &DowntimeService{
		repo:  repo,
		log:   log,
		locks: make(map[string]*sync.Mutex),
	}
}

// characterLock returns the mutex serializing ledger writes for one
// character. Spend's balance check and debit must not interleave with
// another writer for the same character.
func (s *DowntimeService) characterLock(guildID, userID, character string) *sync.Mutex {
	key := guildID + ":" + userID + ":" + character

	s.mu.Lock()
	defer s.mu.Unlock()

	lock, exists := s.locks[key]
	if !exists {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

// Earn credits days to a character. days must be positive.
func (s *DowntimeService) Earn(ctx context.Context, guildID, userID, character string, days int, activity string) error {
	if days <= 0 {
		return errors.New("days must be positive")
	}
	return s.append(ctx, guildID, userID, character, days, activity)
}

// Spend debits days from a character, rejecting overdrafts.
func (s *DowntimeService) Spend(ctx context.Context, guildID, userID, character string, days int, activity string) error {
	if days <= 0 {
		return errors.New("days must be positive")
	}

	lock := s.characterLock(guildID, userID, character)
	lock.Lock()
	defer lock.Unlock()

	balance, err := s.repo.Balance(ctx, guildID, userID, character)
	if err != nil {
		return err
	}
	if balance < days {
		return domain.ErrInsufficientDays
	}

	return s.append(ctx, guildID, userID, character, -days, activity)
}

func (s *DowntimeService) Balance(ctx context.Context, guildID, userID, character string) (int, error) {
	return s.repo.Balance(ctx, guildID, userID, character)
}

func (s *DowntimeService) History(ctx context.Context, guildID, userID, character string) ([]*domain.DowntimeEntry, error) {
	return s.repo.History(ctx, guildID, userID, character)
}

func (s *DowntimeService) append(ctx context.Context, guildID, userID, character string, days int, activity string) error {
	entry := &domain.DowntimeEntry{
		ID:         utils.GenerateID("dt"),
		GuildID:    guildID,
		UserID:     userID,
		Character:  character,
		Days:       days,
		Activity:   activity,
		RecordedAt: time.Now(),
	}

	if err := s.repo.AppendEntry(ctx, entry); err != nil {
		return err
	}

	s.log.Info("Downtime entry recorded",
		"guild_id", guildID, "user_id", userID, "character", character,
		"days", days, "activity", activity)
	return nil
}
