package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"tavern-bot/internal/domain"
	"tavern-bot/pkg/logger"
)

// NoneOfTheAbove is always the last option of a disambiguation prompt.
const NoneOfTheAbove = "None of the above"

// maxChoices caps how many fuzzy candidates get offered to the asker.
const maxChoices = 6

// ItemResolver turns free-text item input into a single catalog key,
// asking the invoking user to choose when the match is ambiguous.
type ItemResolver struct {
	broker     *DisambiguationBroker
	gateway    domain.ChatGateway
	askTimeout time.Duration
	log        logger.Logger
}

func NewItemResolver(broker *DisambiguationBroker, gateway domain.ChatGateway, askTimeout time.Duration, log logger.Logger) *ItemResolver {
	return &ItemResolver{
		broker:     broker,
		gateway:    gateway,
		askTimeout: askTimeout,
		log:        log,
	}
}

// Resolve scores every candidate against input and returns the matching
// key. An exact match short-circuits. Several close matches become a
// numbered prompt in the asker's channel; choosing the sentinel or letting
// the prompt time out yields not-found.
func (r *ItemResolver) Resolve(ctx context.Context, askerID, channelID, input string, candidates []string, filter func(string) bool) (string, bool, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return "", false, nil
	}

	type scored struct {
		key   string
		score int
	}

	var remaining []scored
	for _, key := range candidates {
		if filter != nil && !filter(key) {
			continue
		}
		score := LCSLength(input, key)
		if score == len(input) && len(input) == len(key) {
			return key, true, nil
		}
		if score > 0 {
			remaining = append(remaining, scored{key: key, score: score})
		}
	}

	switch len(remaining) {
	case 0:
		return "", false, nil
	case 1:
		return remaining[0].key, true, nil
	}

	sort.SliceStable(remaining, func(i, j int) bool {
		return remaining[i].score > remaining[j].score
	})
	if len(remaining) > maxChoices {
		remaining = remaining[:maxChoices]
	}

	options := make([]string, 0, len(remaining)+1)
	for _, c := range remaining {
		options = append(options, c.key)
	}
	options = append(options, NoneOfTheAbove)

	choice, ok, err := r.askUser(ctx, askerID, channelID, input, options)
	if err != nil {
		return "", false, err
	}
	if !ok || choice == NoneOfTheAbove {
		return "", false, nil
	}
	return choice, true, nil
}

func (r *ItemResolver) askUser(ctx context.Context, askerID, channelID, input string, options []string) (string, bool, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "No exact match for %q. Reply with a number:\n", input)
	for i, opt := range options {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, opt)
	}

	promptID, err := r.gateway.SendMessage(ctx, channelID, sb.String())
	if err != nil {
		return "", false, err
	}

	question, err := r.broker.Ask(askerID, channelID, options, promptID)
	if err != nil {
		if delErr := r.gateway.DeleteMessage(ctx, channelID, promptID); delErr != nil {
			r.log.Warn("Failed to delete prompt", "message_id", promptID, "error", delErr)
		}
		return "", false, err
	}

	choice, resolved := r.broker.Await(ctx, question, r.askTimeout)

	// Prompt first, then the asker's reply, only once the outcome is final.
	if err := r.gateway.DeleteMessage(ctx, channelID, promptID); err != nil {
		r.log.Warn("Failed to delete prompt", "message_id", promptID, "error", err)
	}
	if resolved && question.ReplyMessageID != "" {
		if err := r.gateway.DeleteMessage(ctx, channelID, question.ReplyMessageID); err != nil {
			r.log.Warn("Failed to delete reply", "message_id", question.ReplyMessageID, "error", err)
		}
	}

	return choice, resolved, nil
}
