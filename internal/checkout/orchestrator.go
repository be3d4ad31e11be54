package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cloudpos/possync/internal/mapper"
	"github.com/cloudpos/possync/internal/models"
	"github.com/cloudpos/possync/internal/remote"
	"github.com/cloudpos/possync/internal/store"
)

var (
	ErrEmptyCart      = errors.New("cart is empty")
	ErrInvalidPayment = errors.New("invalid payment method")
)

// Queue is the durable local queue contract used for offline checkouts.
type Queue interface {
	PutPendingSale(sale models.PendingSale) error
}

// Committer is the remote commit endpoint contract for the online path.
type Committer interface {
	CommitSale(ctx context.Context, c remote.SaleCommit) (string, error)
}

// StatusSource exposes the current connectivity signal.
type StatusSource interface {
	Online() bool
}

// Result reports how a completed checkout was settled.
type Result struct {
	SaleID  string `json:"sale_id"`
	Offline bool   `json:"offline"`
}

// Orchestrator decides the commit path at the moment of sale. Online sales
// go straight to the remote endpoint; a failed online attempt surfaces its
// error and is never silently queued, so connectivity flapping cannot
// masquerade as an offline sale. Offline sales are durably queued and
// accepted provisionally.
//
// queue may be nil when the local store could not be opened at startup; the
// orchestrator then refuses offline checkouts with a clear error instead of
// crashing.
type Orchestrator struct {
	queue         Queue
	committer     Committer
	status        StatusSource
	logger        *slog.Logger
	storeID       string
	taxRate       float64
	commitTimeout time.Duration
}

func NewOrchestrator(q Queue, c Committer, s StatusSource, storeID string, taxRate float64, commitTimeout time.Duration, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		queue:         q,
		committer:     c,
		status:        s,
		logger:        logger,
		storeID:       storeID,
		taxRate:       taxRate,
		commitTimeout: commitTimeout,
	}
}

// CompleteSale settles the given cart lines with the selected payment
// method and returns where the sale landed.
func (o *Orchestrator) CompleteSale(ctx context.Context, cashierID, paymentMethod, notes string, items []models.SaleItem) (*Result, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	paymentMethod = strings.ToLower(strings.TrimSpace(paymentMethod))
	if !models.KnownPaymentMethod(paymentMethod) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPayment, paymentMethod)
	}

	sale := o.buildSale(cashierID, paymentMethod, notes, items)
	l := o.logger.With("sale_id", sale.ID, "cashier_id", cashierID)

	if o.status.Online() {
		commitCtx, cancel := context.WithTimeout(ctx, o.commitTimeout)
		defer cancel()

		remoteID, err := o.committer.CommitSale(commitCtx, mapper.BuildCommit(sale, false))
		if err != nil {
			l.Error("Online checkout failed, cart left intact", "error", err)
			return nil, err
		}

		l.Info("Sale committed online", "remote_id", remoteID, "total", sale.Total)
		return &Result{SaleID: remoteID, Offline: false}, nil
	}

	if o.queue == nil {
		return nil, fmt.Errorf("cannot queue sale while offline: %w", store.ErrStoreUnavailable)
	}

	if err := o.queue.PutPendingSale(sale); err != nil {
		l.Error("Failed to queue offline sale", "error", err)
		return nil, err
	}

	l.Info("Sale queued offline", "total", sale.Total)
	return &Result{SaleID: sale.ID, Offline: true}, nil
}

func (o *Orchestrator) buildSale(cashierID, paymentMethod, notes string, items []models.SaleItem) models.PendingSale {
	var subtotal float64
	for _, it := range items {
		subtotal += it.UnitPrice * float64(it.Quantity)
	}
	subtotal = roundCents(subtotal)
	tax := roundCents(subtotal * o.taxRate)

	return models.PendingSale{
		ID:            newSaleID(),
		StoreID:       o.storeID,
		CashierID:     cashierID,
		Items:         items,
		Subtotal:      subtotal,
		Tax:           tax,
		Total:         subtotal + tax,
		PaymentMethod: paymentMethod,
		Notes:         notes,
		Timestamp:     time.Now(),
		Synced:        false,
	}
}

// newSaleID builds the queue key: time-based for operator readability, with
// a random suffix so two sales in the same millisecond cannot collide.
func newSaleID() string {
	return fmt.Sprintf("tx-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

func roundCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}
