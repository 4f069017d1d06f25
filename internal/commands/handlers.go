package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tavern-bot/internal/domain"
)

func (r *Router) handlePrice(ctx context.Context, msg *domain.InboundMessage, rest string) error {
	if rest == "" {
		r.reply(ctx, msg, "Usage: !price <item name>")
		return nil
	}

	item, err := r.prices.LookupItem(ctx, msg.AuthorID, msg.ChannelID, rest, r.isAdmin(msg.AuthorID))
	if err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			r.reply(ctx, msg, fmt.Sprintf("No item matching %q.", rest))
			return nil
		}
		if errors.Is(err, domain.ErrQuestionPending) {
			r.reply(ctx, msg, "Answer your previous prompt first.")
			return nil
		}
		return err
	}

	r.reply(ctx, msg, fmt.Sprintf("**%s** (%s) — average %s, range %s to %s",
		item.Key, item.Category,
		formatCopper(item.AverageCost), formatCopper(item.LowCost), formatCopper(item.HighCost)))
	return nil
}

func (r *Router) handleDowntime(ctx context.Context, msg *domain.InboundMessage, rest string) error {
	fields := strings.Fields(rest)
	if len(fields) < 2 {
		r.reply(ctx, msg, "Usage: !downtime balance|earn|spend <character> [days] [activity]")
		return nil
	}

	verb, character := strings.ToLower(fields[0]), fields[1]

	switch verb {
	case "balance":
		balance, err := r.downtime.Balance(ctx, msg.GuildID, msg.AuthorID, character)
		if err != nil {
			return err
		}
		r.reply(ctx, msg, fmt.Sprintf("%s has %d downtime days.", character, balance))
		return nil

	case "earn", "spend":
		if len(fields) < 3 {
			r.reply(ctx, msg, fmt.Sprintf("Usage: !downtime %s <character> <days> [activity]", verb))
			return nil
		}
		days, err := strconv.Atoi(fields[2])
		if err != nil {
			r.reply(ctx, msg, fmt.Sprintf("%q is not a number of days.", fields[2]))
			return nil
		}
		activity := strings.Join(fields[3:], " ")

		if verb == "earn" {
			err = r.downtime.Earn(ctx, msg.GuildID, msg.AuthorID, character, days, activity)
		} else {
			err = r.downtime.Spend(ctx, msg.GuildID, msg.AuthorID, character, days, activity)
		}
		if errors.Is(err, domain.ErrInsufficientDays) {
			r.reply(ctx, msg, fmt.Sprintf("%s doesn't have %d days to spend.", character, days))
			return nil
		}
		if err != nil {
			return err
		}
		r.reply(ctx, msg, fmt.Sprintf("Recorded %d days (%s) for %s.", days, verb, character))
		return nil

	default:
		r.reply(ctx, msg, "Usage: !downtime balance|earn|spend <character> [days] [activity]")
		return nil
	}
}

// handleSchedule covers "add <body>, <RFC3339 start>, <duration>",
// "remove <id>" and "list". A zero duration schedules a one-shot.
func (r *Router) handleSchedule(ctx context.Context, msg *domain.InboundMessage, rest string) error {
	verb, args, _ := strings.Cut(rest, " ")

	switch strings.ToLower(verb) {
	case "add":
		parts := strings.Split(args, ",")
		if len(parts) != 3 {
			r.reply(ctx, msg, "Usage: !schedule add <message>, <start time (RFC3339)>, <interval (0 for one-shot)>")
			return nil
		}
		body := strings.TrimSpace(parts[0])
		startAt, err := time.Parse(time.RFC3339, strings.TrimSpace(parts[1]))
		if err != nil {
			r.reply(ctx, msg, fmt.Sprintf("Can't parse %q as a start time.", strings.TrimSpace(parts[1])))
			return nil
		}
		interval, err := parseInterval(strings.TrimSpace(parts[2]))
		if err != nil {
			r.reply(ctx, msg, fmt.Sprintf("Can't parse %q as an interval.", strings.TrimSpace(parts[2])))
			return nil
		}

		id, err := r.scheduler.Add(ctx, body, msg.GuildID, msg.ChannelID, startAt, interval)
		if err != nil {
			return err
		}
		r.reply(ctx, msg, fmt.Sprintf("Scheduled. Remove with `!schedule remove %s`.", id))
		return nil

	case "remove":
		id := strings.TrimSpace(args)
		if id == "" {
			r.reply(ctx, msg, "Usage: !schedule remove <id>")
			return nil
		}
		if r.scheduler.Remove(ctx, id) {
			r.reply(ctx, msg, "Removed.")
		} else {
			r.reply(ctx, msg, fmt.Sprintf("No scheduled message with id %s.", id))
		}
		return nil

	case "list":
		jobs := r.scheduler.Jobs()
		if len(jobs) == 0 {
			r.reply(ctx, msg, "Nothing scheduled.")
			return nil
		}
		var sb strings.Builder
		sb.WriteString("Scheduled messages:\n")
		for _, job := range jobs {
			if job.GuildID != msg.GuildID {
				continue
			}
			fmt.Fprintf(&sb, "- `%s` in <#%s>: %q, next %s",
				job.ID, job.ChannelID, job.Body, job.NextAt.Format(time.RFC3339))
			if job.Interval > 0 {
				fmt.Fprintf(&sb, " (every %s)", job.Interval)
			}
			sb.WriteString("\n")
		}
		r.reply(ctx, msg, sb.String())
		return nil

	default:
		r.reply(ctx, msg, "Usage: !schedule add|remove|list")
		return nil
	}
}

func (r *Router) handleNotify(ctx context.Context, msg *domain.InboundMessage, rest string) error {
	roleID, note, _ := strings.Cut(rest, " ")
	if roleID == "" {
		r.reply(ctx, msg, "Usage: !notify <role id> [note]")
		return nil
	}

	sent, err := r.pings.RelayPing(ctx, msg.GuildID, roleID, msg.AuthorID, strings.TrimSpace(note))
	if err != nil {
		return err
	}
	if !sent {
		r.reply(ctx, msg, "That role was pinged recently; try again later.")
	}
	return nil
}

func (r *Router) handleNotifyChannel(ctx context.Context, msg *domain.InboundMessage) error {
	if !r.isAdmin(msg.AuthorID) {
		r.reply(ctx, msg, "Only bot admins can set the notify channel.")
		return nil
	}
	if err := r.settings.SetNotifyChannel(msg.GuildID, msg.ChannelID); err != nil {
		return err
	}
	r.reply(ctx, msg, "Role pings for this guild will land here.")
	return nil
}

func parseInterval(s string) (time.Duration, error) {
	if s == "0" || strings.EqualFold(s, "once") {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("interval must not be negative")
	}
	return d, nil
}

// formatCopper renders a copper amount as gold/silver/copper.
func formatCopper(c int64) string {
	gold, rem := c/100, c%100
	silver, copper := rem/10, rem%10

	var parts []string
	if gold > 0 {
		parts = append(parts, fmt.Sprintf("%d gp", gold))
	}
	if silver > 0 {
		parts = append(parts, fmt.Sprintf("%d sp", silver))
	}
	if copper > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%d cp", copper))
	}
	return strings.Join(parts, " ")
}
