package commands

import (
	"context"
	"strings"

	"tavern-bot/internal/domain"
	"tavern-bot/internal/services"
	"tavern-bot/pkg/logger"
)

const prefix = "!"

// Router dispatches inbound chat messages. Every message is first offered
// to the disambiguation broker as a potential reply; only then is it
// considered as a command.
type Router struct {
	gateway   domain.ChatGateway
	broker    *services.DisambiguationBroker
	scheduler domain.MessageScheduler
	prices    *services.PriceService
	downtime  *services.DowntimeService
	pings     *services.PingService
	settings  *services.SettingsService
	admins    map[string]bool
	log       logger.Logger
}

func NewRouter(
	gateway domain.ChatGateway,
	broker *services.DisambiguationBroker,
	scheduler domain.MessageScheduler,
	prices *services.PriceService,
	downtime *services.DowntimeService,
	pings *services.PingService,
	settings *services.SettingsService,
	adminIDs []string,
	log logger.Logger,
) *Router {
	admins := make(map[string]bool, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = true
	}
	return &Router{
		gateway:   gateway,
		broker:    broker,
		scheduler: scheduler,
		prices:    prices,
		downtime:  downtime,
		pings:     pings,
		settings:  settings,
		admins:    admins,
		log:       log,
	}
}

// HandleMessage is the gateway's inbound callback. Commands run on their
// own goroutine because a price lookup may block on a disambiguation
// prompt, and the read pump must keep draining replies meanwhile.
func (r *Router) HandleMessage(msg *domain.InboundMessage) {
	r.broker.OnReply(msg.AuthorID, msg.ChannelID, msg.Content, msg.MessageID)

	if !strings.HasPrefix(msg.Content, prefix) {
		return
	}

	go r.dispatch(context.Background(), msg)
}

func (r *Router) dispatch(ctx context.Context, msg *domain.InboundMessage) {
	fields := strings.Fields(msg.Content)
	command := strings.TrimPrefix(fields[0], prefix)
	rest := strings.TrimSpace(strings.TrimPrefix(msg.Content, fields[0]))

	var err error
	switch strings.ToLower(command) {
	case "price":
		err = r.handlePrice(ctx, msg, rest)
	case "downtime":
		err = r.handleDowntime(ctx, msg, rest)
	case "schedule":
		err = r.handleSchedule(ctx, msg, rest)
	case "notify":
		err = r.handleNotify(ctx, msg, rest)
	case "notifychannel":
		err = r.handleNotifyChannel(ctx, msg)
	default:
		return
	}

	if err != nil {
		r.log.Warn("Command failed",
			"command", command, "author_id", msg.AuthorID, "error", err)
		r.reply(ctx, msg, "Sorry, that didn't work: "+err.Error())
	}
}

func (r *Router) reply(ctx context.Context, msg *domain.InboundMessage, body string) {
	if _, err := r.gateway.SendMessage(ctx, msg.ChannelID, body); err != nil {
		r.log.Error("Failed to send reply", "channel_id", msg.ChannelID, "error", err)
	}
}

func (r *Router) isAdmin(userID string) bool {
	return r.admins[userID]
}
