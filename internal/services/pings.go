package services

import (
	"context"
	"fmt"

	"tavern-bot/internal/domain"
	"tavern-bot/pkg/logger"
)

// PingService relays role pings to a guild's notify channel, rate-limited
// to one ping per role per cooldown window.
type PingService struct {
	gateway  domain.ChatGateway
	limiter  domain.PingLimiter
	settings *SettingsService
	log      logger.Logger
}

func NewPingService(gateway domain.ChatGateway, limiter domain.PingLimiter, settings *SettingsService, log logger.Logger) *PingService {
	return &PingService{
		gateway:  gateway,
		limiter:  limiter,
		settings: settings,
		log:      log,
	}
}

// RelayPing posts a role mention to the guild's notify channel. A ping that
// lands inside the cooldown window is dropped; the caller hears whether it
// went out.
func (s *PingService) RelayPing(ctx context.Context, guildID, roleID, requesterID, note string) (bool, error) {
	cfg := s.settings.Get(guildID)
	if cfg.NotifyChannelID == "" {
		return false, fmt.Errorf("guild %s has no notify channel configured", guildID)
	}

	allowed, err := s.limiter.Acquire(ctx, guildID, roleID, cfg.PingCooldown)
	if err != nil {
		return false, err
	}
	if !allowed {
		s.log.Info("Ping suppressed by cooldown", "guild_id", guildID, "role_id", roleID)
		return false, nil
	}

	body := fmt.Sprintf("<@&%s> ping requested by <@%s>", roleID, requesterID)
	if note != "" {
		body += ": " + note
	}

	if _, err := s.gateway.SendMessage(ctx, cfg.NotifyChannelID, body); err != nil {
		return false, err
	}

	s.log.Info("Role ping relayed", "guild_id", guildID, "role_id", roleID, "requester_id", requesterID)
	return true, nil
}
