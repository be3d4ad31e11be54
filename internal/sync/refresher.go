package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloudpos/possync/internal/models"
	"github.com/cloudpos/possync/pkg/infra"
	"github.com/cloudpos/possync/pkg/metrics"
)

// ProductSource defines the remote catalog read contract.
type ProductSource interface {
	FetchProducts(ctx context.Context, storeID string) ([]models.CachedProduct, error)
}

// ProductCache defines the local mirror the refresher repopulates.
type ProductCache interface {
	ReplaceAllProducts(products []models.CachedProduct) error
}

// Refresher keeps the offline product mirror warm. While online it
// periodically pulls the store's catalog and replaces the cache wholesale;
// failures back off exponentially so a struggling backend is not hammered.
// Offline cycles are skipped entirely.
type Refresher struct {
	source   ProductSource
	cache    ProductCache
	status   StatusSource
	storeID  string
	interval time.Duration
	logger   *slog.Logger
}

func NewRefresher(source ProductSource, cache ProductCache, status StatusSource, storeID string, interval time.Duration, logger *slog.Logger) *Refresher {
	return &Refresher{
		source:   source,
		cache:    cache,
		status:   status,
		storeID:  storeID,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks until the context is canceled.
func (r *Refresher) Run(ctx context.Context) {
	backoff := infra.NewBackoff(r.interval, 10*time.Minute, 2.0)

	r.logger.Info("Product cache refresher started",
		"store_id", r.storeID,
		"interval", r.interval,
	)

	for {
		wait := r.interval

		if !r.status.Online() {
			r.logger.Debug("Offline, skipping product refresh cycle")
		} else if err := r.refreshOnce(ctx); err != nil {
			wait = backoff.Next()
			r.logger.Warn("Product cache refresh failed, backing off",
				"retry_in", wait,
				"error", err,
			)
		} else {
			backoff.Reset()
		}

		select {
		case <-ctx.Done():
			r.logger.Info("Product cache refresher shutting down")
			return
		case <-time.After(wait):
		}
	}
}

func (r *Refresher) refreshOnce(ctx context.Context) error {
	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	products, err := r.source.FetchProducts(fetchCtx, r.storeID)
	if err != nil {
		metrics.ProductRefreshes.WithLabelValues("error").Inc()
		return fmt.Errorf("fetch failed: %w", err)
	}

	if err := r.cache.ReplaceAllProducts(products); err != nil {
		metrics.ProductRefreshes.WithLabelValues("error").Inc()
		return fmt.Errorf("cache replace failed: %w", err)
	}

	metrics.ProductRefreshes.WithLabelValues("success").Inc()
	metrics.CachedProducts.Set(float64(len(products)))

	r.logger.Debug("Product cache refreshed", "count", len(products))
	return nil
}
