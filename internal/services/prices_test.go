package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tavern-bot/internal/domain"
	"tavern-bot/pkg/logger"
)

type memPriceRepo struct {
	mu    sync.Mutex
	items map[string]*domain.PricedItem
	gets  int
}

func newMemPriceRepo(items ...*domain.PricedItem) *memPriceRepo {
	m := &memPriceRepo{items: make(map[string]*domain.PricedItem)}
	for _, item := range items {
		m.items[item.Key] = item
	}
	return m
}

func (m *memPriceRepo) GetItem(ctx context.Context, key string) (*domain.PricedItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	item, exists := m.items[key]
	if !exists {
		return nil, nil
	}
	copied := *item
	return &copied, nil
}

func (m *memPriceRepo) ListItems(ctx context.Context) ([]*domain.PricedItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.PricedItem, 0, len(m.items))
	for _, item := range m.items {
		copied := *item
		out = append(out, &copied)
	}
	return out, nil
}

func (m *memPriceRepo) UpsertItem(ctx context.Context, item *domain.PricedItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *item
	m.items[item.Key] = &copied
	return nil
}

type memPriceCache struct {
	mu    sync.Mutex
	items map[string]*domain.PricedItem
}

func newMemPriceCache() *memPriceCache {
	return &memPriceCache{items: make(map[string]*domain.PricedItem)}
}

func (m *memPriceCache) GetItem(ctx context.Context, key string) (*domain.PricedItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[key], nil
}

func (m *memPriceCache) SetItem(ctx context.Context, item *domain.PricedItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.Key] = item
	return nil
}

func (m *memPriceCache) Invalidate(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func newTestPriceService(repo *memPriceRepo) (*PriceService, *memPriceCache) {
	broker := NewDisambiguationBroker(logger.NewNop())
	resolver := NewItemResolver(broker, &fakeGateway{}, 50*time.Millisecond, logger.NewNop())
	cache := newMemPriceCache()
	return NewPriceService(repo, cache, resolver, logger.NewNop()), cache
}

func TestPrices_GetItemReadsThroughCache(t *testing.T) {
	repo := newMemPriceRepo(&domain.PricedItem{Key: "rope", Category: "gear", AverageCost: 100})
	s, _ := newTestPriceService(repo)
	ctx := context.Background()

	item, err := s.GetItem(ctx, "rope")
	require.NoError(t, err)
	assert.Equal(t, int64(100), item.AverageCost)

	_, err = s.GetItem(ctx, "rope")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.gets, "second read is served from the cache")
}

func TestPrices_GetItemUnknownKey(t *testing.T) {
	s, _ := newTestPriceService(newMemPriceRepo())

	_, err := s.GetItem(context.Background(), "nonsense")
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestPrices_LookupItemExactMatch(t *testing.T) {
	repo := newMemPriceRepo(
		&domain.PricedItem{Key: "longsword", Category: "weapon", AverageCost: 1500},
		&domain.PricedItem{Key: "rope", Category: "gear", AverageCost: 100},
	)
	s, _ := newTestPriceService(repo)

	item, err := s.LookupItem(context.Background(), "u1", "c1", "longsword", false)
	require.NoError(t, err)
	assert.Equal(t, "longsword", item.Key)
}

func TestPrices_RestrictedItemsHiddenFromUnprivileged(t *testing.T) {
	repo := newMemPriceRepo(
		&domain.PricedItem{Key: "poison vial", Category: "contraband", AverageCost: 5000, Restricted: true},
		&domain.PricedItem{Key: "potion", Category: "consumable", AverageCost: 300},
	)
	s, _ := newTestPriceService(repo)

	// "poison" would fuzzy-match the restricted item, but the filter hides
	// it, leaving the potion as the only candidate.
	item, err := s.LookupItem(context.Background(), "u1", "c1", "poison", false)
	require.NoError(t, err)
	assert.Equal(t, "potion", item.Key)

	privileged, err := s.LookupItem(context.Background(), "u1", "c1", "poison vial", true)
	require.NoError(t, err)
	assert.Equal(t, "poison vial", privileged.Key)
}

func TestPrices_UpsertCaseFoldsAndInvalidates(t *testing.T) {
	repo := newMemPriceRepo()
	s, cache := newTestPriceService(repo)
	ctx := context.Background()

	require.NoError(t, s.UpsertItem(ctx, &domain.PricedItem{Key: "  Bag of Holding ", AverageCost: 50000}))

	item, err := s.GetItem(ctx, "bag of holding")
	require.NoError(t, err)
	assert.Equal(t, int64(50000), item.AverageCost)

	// A later upsert must not leave the old value in the cache.
	require.NoError(t, s.UpsertItem(ctx, &domain.PricedItem{Key: "bag of holding", AverageCost: 40000}))
	cached, err := cache.GetItem(ctx, "bag of holding")
	require.NoError(t, err)
	assert.Nil(t, cached)

	item, err = s.GetItem(ctx, "bag of holding")
	require.NoError(t, err)
	assert.Equal(t, int64(40000), item.AverageCost)

	assert.Error(t, s.UpsertItem(ctx, &domain.PricedItem{Key: "   "}))
}
