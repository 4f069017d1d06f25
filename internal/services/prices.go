package services

import (
	"context"
	"errors"
	"strings"

	"tavern-bot/internal/domain"
	"tavern-bot/pkg/logger"
)

// PriceService serves the item price catalog with a read-through cache and
// fuzzy lookup via the resolver.
type PriceService struct {
	repo     domain.PriceRepository
	cache    domain.PriceCache
	resolver *ItemResolver
	log      logger.Logger
}

func NewPriceService(repo domain.PriceRepository, cache domain.PriceCache, resolver *ItemResolver, log logger.Logger) *PriceService {
	return &PriceService{
		repo:     repo,
		cache:    cache,
		resolver: resolver,
		log:      log,
	}
}

// LookupItem resolves free-text input to a catalog item. Restricted items
// are invisible to unprivileged askers; ambiguous input turns into a
// disambiguation prompt in the asker's channel.
func (s *PriceService) LookupItem(ctx context.Context, askerID, channelID, input string, privileged bool) (*domain.PricedItem, error) {
	items, err := s.repo.ListItems(ctx)
	if err != nil {
		return nil, err
	}

	restricted := make(map[string]bool, len(items))
	keys := make([]string, 0, len(items))
	for _, item := range items {
		keys = append(keys, item.Key)
		restricted[item.Key] = item.Restricted
	}

	filter := func(key string) bool {
		return privileged || !restricted[key]
	}

	key, found, err := s.resolver.Resolve(ctx, askerID, channelID, input, keys, filter)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrItemNotFound
	}

	return s.GetItem(ctx, key)
}

// GetItem fetches one item by exact key, consulting the cache first.
func (s *PriceService) GetItem(ctx context.Context, key string) (*domain.PricedItem, error) {
	key = strings.ToLower(key)

	if s.cache != nil {
		item, err := s.cache.GetItem(ctx, key)
		if err == nil && item != nil {
			return item, nil
		}
		if err != nil {
			s.log.Warn("Price cache read failed", "key", key, "error", err)
		}
	}

	item, err := s.repo.GetItem(ctx, key)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrItemNotFound
	}

	if s.cache != nil {
		if err := s.cache.SetItem(ctx, item); err != nil {
			s.log.Warn("Price cache write failed", "key", key, "error", err)
		}
	}
	return item, nil
}

// UpsertItem writes an item to the catalog. Keys are case-folded; cost
// field ordering is the caller's business.
func (s *PriceService) UpsertItem(ctx context.Context, item *domain.PricedItem) error {
	if item == nil || strings.TrimSpace(item.Key) == "" {
		return errors.New("item key required")
	}
	item.Key = strings.ToLower(strings.TrimSpace(item.Key))

	if err := s.repo.UpsertItem(ctx, item); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, item.Key); err != nil {
			s.log.Warn("Price cache invalidate failed", "key", item.Key, "error", err)
		}
	}

	s.log.Info("Price item upserted", "key", item.Key, "category", item.Category)
	return nil
}
