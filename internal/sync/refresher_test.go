package sync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudpos/possync/internal/models"
)

type fakeSource struct {
	mu       sync.Mutex
	products []models.CachedProduct
	err      error
	calls    int
}

func (s *fakeSource) FetchProducts(ctx context.Context, storeID string) ([]models.CachedProduct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.products, nil
}

func (s *fakeSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeCache struct {
	mu       sync.Mutex
	replaced [][]models.CachedProduct
}

func (c *fakeCache) ReplaceAllProducts(products []models.CachedProduct) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replaced = append(c.replaced, products)
	return nil
}

func (c *fakeCache) replaceCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.replaced)
}

func TestRefresher_ReplacesCacheWhileOnline(t *testing.T) {
	source := &fakeSource{products: []models.CachedProduct{
		{ID: "p1", StoreID: "store-1", Name: "Widget", Price: 3.00},
	}}
	cache := &fakeCache{}

	r := NewRefresher(source, cache, &fakeStatus{online: true}, "store-1", 5*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return cache.replaceCount() >= 1 }, time.Second, time.Millisecond)
	cancel()
	<-done

	cache.mu.Lock()
	defer cache.mu.Unlock()
	require.NotEmpty(t, cache.replaced)
	assert.Equal(t, "p1", cache.replaced[0][0].ID)
}

func TestRefresher_SkipsCyclesWhileOffline(t *testing.T) {
	source := &fakeSource{err: errors.New("should not be called")}
	cache := &fakeCache{}

	r := NewRefresher(source, cache, &fakeStatus{online: false}, "store-1", time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	assert.Zero(t, source.callCount())
	assert.Zero(t, cache.replaceCount())
}
