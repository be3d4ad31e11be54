package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/cloudpos/possync/internal/models"
)

// Remote is the backend catalog contract.
type Remote interface {
	FetchProducts(ctx context.Context, storeID string) ([]models.CachedProduct, error)
	DeleteProduct(ctx context.Context, productID string) error
}

// Cache is the offline product mirror contract.
type Cache interface {
	ListProductsForStore(storeID string) ([]models.CachedProduct, error)
	DeleteProduct(id string) error
}

// StatusSource exposes the current connectivity signal.
type StatusSource interface {
	Online() bool
}

// DeleteOutcome reports both halves of a two-phase product delete. Either
// phase can fail without blocking the other; callers see exactly what
// happened instead of a silently swallowed local error.
type DeleteOutcome struct {
	RemoteErr error
	LocalErr  error
}

func (o DeleteOutcome) OK() bool {
	return o.RemoteErr == nil && o.LocalErr == nil
}

// Service serves the product catalog to the register: live from the backend
// while online, from the offline mirror otherwise.
type Service struct {
	remote Remote
	cache  Cache
	status StatusSource
	logger *slog.Logger
}

// NewService creates the catalog service. cache may be nil when the local
// store is unavailable; the service then has no offline fallback.
func NewService(remote Remote, cache Cache, status StatusSource, logger *slog.Logger) *Service {
	return &Service{
		remote: remote,
		cache:  cache,
		status: status,
		logger: logger,
	}
}

// ListProducts returns the catalog for one store. Online reads come from
// the backend, falling back to the cache if the read fails mid-session.
func (s *Service) ListProducts(ctx context.Context, storeID string) ([]models.CachedProduct, error) {
	if s.status.Online() {
		products, err := s.remote.FetchProducts(ctx, storeID)
		if err == nil {
			return products, nil
		}
		s.logger.Warn("Backend catalog read failed, falling back to cache", "error", err)
	}

	if s.cache == nil {
		return nil, nil
	}
	return s.cache.ListProductsForStore(storeID)
}

// DeleteProduct removes a product from the backend and from the local
// mirror. Each phase is attempted regardless of the other's outcome and
// both results are reported.
func (s *Service) DeleteProduct(ctx context.Context, productID string) DeleteOutcome {
	var outcome DeleteOutcome

	deleteCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	outcome.RemoteErr = s.remote.DeleteProduct(deleteCtx, productID)
	if outcome.RemoteErr != nil {
		s.logger.Error("Remote product delete failed", "product_id", productID, "error", outcome.RemoteErr)
	}

	if s.cache != nil {
		outcome.LocalErr = s.cache.DeleteProduct(productID)
		if outcome.LocalErr != nil {
			s.logger.Error("Local product delete failed", "product_id", productID, "error", outcome.LocalErr)
		}
	}

	return outcome
}
