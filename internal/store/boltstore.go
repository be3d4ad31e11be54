package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/cloudpos/possync/internal/models"
)

// ErrDuplicateSale is returned when a pending sale is inserted with an ID
// that already exists in the queue. Callers generate unique IDs, so this
// indicates a programming error on their side.
var ErrDuplicateSale = errors.New("pending sale id already exists")

// ErrStoreUnavailable is returned when the local database file cannot be
// opened. The daemon degrades to online-only operation in that case.
var ErrStoreUnavailable = errors.New("local store unavailable")

var (
	bucketPendingSales = []byte("pending_sales")
	bucketProducts     = []byte("products")
)

// BoltStore is the on-device durable queue: pending sales waiting for
// replay plus the offline product cache. Every method runs in its own bbolt
// transaction, so each call either fully applies or leaves prior state
// intact, and the data survives process restarts.
type BoltStore struct {
	db     *bolt.DB
	logger *slog.Logger
}

// Open opens (or creates) the database file and ensures both buckets exist.
func Open(path string, logger *slog.Logger) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketPendingSales); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketProducts)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	logger.Info("Local store opened", "path", path)
	return &BoltStore{db: db, logger: logger}, nil
}

// PutPendingSale durably inserts a new queued sale. The sale is visible to
// ListUnsynced only after this returns.
func (s *BoltStore) PutPendingSale(sale models.PendingSale) error {
	body, err := json.Marshal(sale)
	if err != nil {
		return fmt.Errorf("failed to encode pending sale: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPendingSales)
		if b.Get([]byte(sale.ID)) != nil {
			return fmt.Errorf("%w: %s", ErrDuplicateSale, sale.ID)
		}
		return b.Put([]byte(sale.ID), body)
	})
}

// ListUnsynced returns every queued sale not yet committed remotely.
// No ordering is guaranteed.
func (s *BoltStore) ListUnsynced() ([]models.PendingSale, error) {
	var pending []models.PendingSale

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPendingSales).ForEach(func(k, v []byte) error {
			var sale models.PendingSale
			if err := json.Unmarshal(v, &sale); err != nil {
				return fmt.Errorf("corrupt pending sale %s: %w", k, err)
			}
			if !sale.Synced {
				pending = append(pending, sale)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return pending, nil
}

// MarkSynced flips the synced flag on a queued sale. It is idempotent: a
// missing or already-synced record is a successful no-op, so a crash between
// remote commit and this call can be recovered by a plain retry.
func (s *BoltStore) MarkSynced(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPendingSales)

		raw := b.Get([]byte(id))
		if raw == nil {
			s.logger.Debug("MarkSynced on unknown sale, ignoring", "sale_id", id)
			return nil
		}

		var sale models.PendingSale
		if err := json.Unmarshal(raw, &sale); err != nil {
			return fmt.Errorf("corrupt pending sale %s: %w", id, err)
		}
		if sale.Synced {
			return nil
		}

		sale.Synced = true
		body, err := json.Marshal(sale)
		if err != nil {
			return fmt.Errorf("failed to encode pending sale: %w", err)
		}
		return b.Put([]byte(id), body)
	})
}

// CountUnsynced returns the current replay backlog size.
func (s *BoltStore) CountUnsynced() (int, error) {
	pending, err := s.ListUnsynced()
	if err != nil {
		return 0, err
	}
	return len(pending), nil
}

// ReplaceAllProducts atomically clears and repopulates the product cache.
// The refresh is wholesale: stale rows never linger after a successful call.
func (s *BoltStore) ReplaceAllProducts(products []models.CachedProduct) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketProducts); err != nil {
			return err
		}
		b, err := tx.CreateBucket(bucketProducts)
		if err != nil {
			return err
		}

		for _, p := range products {
			body, err := json.Marshal(p)
			if err != nil {
				return fmt.Errorf("failed to encode product %s: %w", p.ID, err)
			}
			if err := b.Put([]byte(p.ID), body); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListProductsForStore returns the cached catalog rows for one store.
func (s *BoltStore) ListProductsForStore(storeID string) ([]models.CachedProduct, error) {
	var products []models.CachedProduct

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketProducts).ForEach(func(k, v []byte) error {
			var p models.CachedProduct
			if err := json.Unmarshal(v, &p); err != nil {
				return fmt.Errorf("corrupt cached product %s: %w", k, err)
			}
			if p.StoreID == storeID {
				products = append(products, p)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

// DeleteProduct removes a single row from the local cache. Deleting an
// unknown ID is a no-op. This is the local half of the two-phase product
// delete; the remote half lives in the catalog service.
func (s *BoltStore) DeleteProduct(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketProducts).Delete([]byte(id))
	})
}

// Close releases the database file lock.
func (s *BoltStore) Close() error {
	s.logger.Info("Closing local store")
	return s.db.Close()
}
