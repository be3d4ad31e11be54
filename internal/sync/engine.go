package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cloudpos/possync/internal/mapper"
	"github.com/cloudpos/possync/internal/models"
	"github.com/cloudpos/possync/internal/remote"
	"github.com/cloudpos/possync/pkg/metrics"
)

// ErrSyncInProgress is returned when a drain is requested while another one
// is running. It is part of the single-flight contract and is silently
// swallowed by trigger wiring, never shown to the user.
var ErrSyncInProgress = errors.New("sync already in progress")

// Queue defines the contract for the durable local queue the engine drains.
type Queue interface {
	ListUnsynced() ([]models.PendingSale, error)
	MarkSynced(id string) error
}

// Committer defines the remote commit endpoint contract.
type Committer interface {
	CommitSale(ctx context.Context, c remote.SaleCommit) (string, error)
}

// StatusSource exposes the current connectivity signal.
type StatusSource interface {
	Online() bool
}

// Engine replays queued offline sales against the remote commit endpoint.
// Drains are single-flight: concurrent triggers (online transition firing
// while a manual sync runs) collapse into the one in progress. A record is
// marked synced only after the endpoint acknowledged the commit, and is
// never discarded on failure.
type Engine struct {
	queue             Queue
	committer         Committer
	status            StatusSource
	logger            *slog.Logger
	commitTimeout     time.Duration
	continueOnFailure bool

	draining atomic.Bool

	mu      sync.Mutex
	lastErr string
}

func NewEngine(q Queue, c Committer, s StatusSource, commitTimeout time.Duration, continueOnFailure bool, logger *slog.Logger) *Engine {
	return &Engine{
		queue:             q,
		committer:         c,
		status:            s,
		logger:            logger,
		commitTimeout:     commitTimeout,
		continueOnFailure: continueOnFailure,
	}
}

// Sync performs one drain pass. Offline triggers are a no-op. The default
// policy halts the pass on the first failing record so a systemic outage is
// never masked as partial success; with continueOnFailure set, failed
// records are skipped and the rest of the batch still drains.
func (e *Engine) Sync(ctx context.Context) error {
	if !e.status.Online() {
		e.logger.Debug("Sync requested while offline, skipping")
		return nil
	}

	if !e.draining.CompareAndSwap(false, true) {
		return ErrSyncInProgress
	}
	defer e.draining.Store(false)

	start := time.Now()

	pending, err := e.queue.ListUnsynced()
	if err != nil {
		err = fmt.Errorf("failed to read unsynced queue: %w", err)
		e.setError(err.Error())
		return err
	}

	metrics.PendingBacklog.Set(float64(len(pending)))
	if len(pending) == 0 {
		e.setError("")
		return nil
	}

	defer func() {
		metrics.DrainDuration.Observe(time.Since(start).Seconds())
		e.logger.Info("Drain cycle finished",
			"count", len(pending),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}()

	var drainErr error
	synced := 0

	for _, sale := range pending {
		if ctx.Err() != nil {
			drainErr = ctx.Err()
			break
		}

		if err := e.replayOne(ctx, sale); err != nil {
			metrics.SalesDrained.WithLabelValues("error").Inc()
			e.logger.Error("Sale replay failed", "sale_id", sale.ID, "error", err)
			drainErr = err

			if !e.continueOnFailure {
				break
			}
			continue
		}

		metrics.SalesDrained.WithLabelValues("synced").Inc()
		synced++
	}

	metrics.PendingBacklog.Set(float64(len(pending) - synced))

	if drainErr != nil {
		e.setError(drainErr.Error())
		return drainErr
	}

	e.setError("")
	return nil
}

// replayOne submits a single queued sale and durably marks it synced. The
// remote call gets its own timeout so one stuck commit cannot wedge the
// engine forever.
func (e *Engine) replayOne(ctx context.Context, sale models.PendingSale) error {
	commitCtx, cancel := context.WithTimeout(ctx, e.commitTimeout)
	defer cancel()

	req := mapper.BuildCommit(sale, true)

	remoteID, err := e.committer.CommitSale(commitCtx, req)
	if err != nil {
		return err
	}

	// The commit is acknowledged at this point. MarkSynced is idempotent,
	// so retrying this step after a crash is always safe.
	if err := e.queue.MarkSynced(sale.ID); err != nil {
		return fmt.Errorf("sale committed remotely but local flag update failed: %w", err)
	}

	e.logger.Info("Offline sale replayed",
		"sale_id", sale.ID,
		"remote_id", remoteID,
		"total_minor", req.TotalMinor,
	)
	return nil
}

// Syncing reports whether a drain pass is currently running.
func (e *Engine) Syncing() bool {
	return e.draining.Load()
}

// LastError returns the error surfaced by the most recent drain, or the
// empty string after a fully successful one.
func (e *Engine) LastError() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

func (e *Engine) setError(msg string) {
	e.mu.Lock()
	e.lastErr = msg
	e.mu.Unlock()
}
