package services

import (
	"sync"
	"time"

	"tavern-bot/internal/domain"
	"tavern-bot/pkg/logger"
)

const settingsRecordName = "guild_settings"

// SettingsService holds per-guild configuration, persisted as flat records
// through the same adapter as scheduled messages.
type SettingsService struct {
	store           domain.RecordStore
	defaultCooldown time.Duration
	log             logger.Logger
	mu              sync.RWMutex
	guilds          map[string]*domain.GuildSettings
}

func NewSettingsService(store domain.RecordStore, defaultCooldown time.Duration, log logger.Logger) *SettingsService {
	s := &SettingsService{
		store:           store,
		defaultCooldown: defaultCooldown,
		log:             log,
		guilds:          make(map[string]*domain.GuildSettings),
	}
	s.load()
	return s
}

func (s *SettingsService) load() {
	records, err := s.store.LoadRecords(settingsRecordName)
	if err != nil {
		s.log.Error("Failed to load guild settings", "error", err)
		return
	}

	for _, rec := range records {
		if len(rec.Fields) < 2 {
			s.log.Warn("Skipping malformed settings record", "key", rec.Key)
			continue
		}
		cooldown, err := time.ParseDuration(rec.Fields[1])
		if err != nil {
			s.log.Warn("Skipping settings record with bad cooldown", "key", rec.Key, "error", err)
			continue
		}
		s.guilds[rec.Key] = &domain.GuildSettings{
			GuildID:         rec.Key,
			NotifyChannelID: rec.Fields[0],
			PingCooldown:    cooldown,
		}
	}

	s.log.Info("Loaded guild settings", "count", len(s.guilds))
}

// Get returns the settings for a guild, falling back to defaults for
// guilds never configured.
func (s *SettingsService) Get(guildID string) domain.GuildSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if cfg, exists := s.guilds[guildID]; exists {
		return *cfg
	}
	return domain.GuildSettings{
		GuildID:      guildID,
		PingCooldown: s.defaultCooldown,
	}
}

// SetNotifyChannel points a guild's pings at a channel and persists.
func (s *SettingsService) SetNotifyChannel(guildID, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, exists := s.guilds[guildID]
	if !exists {
		cfg = &domain.GuildSettings{GuildID: guildID, PingCooldown: s.defaultCooldown}
		s.guilds[guildID] = cfg
	}
	cfg.NotifyChannelID = channelID

	return s.persistLocked()
}

// SetPingCooldown overrides a guild's ping cooldown and persists.
func (s *SettingsService) SetPingCooldown(guildID string, cooldown time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, exists := s.guilds[guildID]
	if !exists {
		cfg = &domain.GuildSettings{GuildID: guildID, PingCooldown: s.defaultCooldown}
		s.guilds[guildID] = cfg
	}
	cfg.PingCooldown = cooldown

	return s.persistLocked()
}

func (s *SettingsService) persistLocked() error {
	records := make([]domain.Record, 0, len(s.guilds))
	for _, cfg := range s.guilds {
		records = append(records, domain.Record{
			Key:    cfg.GuildID,
			Fields: []string{cfg.NotifyChannelID, cfg.PingCooldown.String()},
		})
	}
	return s.store.SaveRecords(settingsRecordName, records)
}
