package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudpos/possync/internal/models"
	"github.com/cloudpos/possync/internal/remote"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeQueue is an in-memory stand-in for the durable local queue. It
// preserves insertion order so failure-isolation tests are deterministic.
type fakeQueue struct {
	mu      sync.Mutex
	order   []string
	sales   map[string]*models.PendingSale
	listErr error
}

func newFakeQueue(sales ...models.PendingSale) *fakeQueue {
	q := &fakeQueue{sales: make(map[string]*models.PendingSale)}
	for i := range sales {
		s := sales[i]
		q.order = append(q.order, s.ID)
		q.sales[s.ID] = &s
	}
	return q
}

func (q *fakeQueue) ListUnsynced() ([]models.PendingSale, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.listErr != nil {
		return nil, q.listErr
	}
	var pending []models.PendingSale
	for _, id := range q.order {
		if s := q.sales[id]; !s.Synced {
			pending = append(pending, *s)
		}
	}
	return pending, nil
}

func (q *fakeQueue) MarkSynced(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if s, ok := q.sales[id]; ok {
		s.Synced = true
	}
	return nil
}

func (q *fakeQueue) synced(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.sales[id].Synced
}

// fakeCommitter records every commit and can fail or block on demand.
type fakeCommitter struct {
	mu      sync.Mutex
	commits []remote.SaleCommit
	failOn  map[string]error
	release chan struct{} // when set, CommitSale blocks until closed
	started chan struct{} // signaled once the first blocked commit begins
}

func (c *fakeCommitter) CommitSale(ctx context.Context, sc remote.SaleCommit) (string, error) {
	if c.started != nil {
		select {
		case c.started <- struct{}{}:
		default:
		}
	}
	if c.release != nil {
		<-c.release
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err, ok := c.failOn[sc.ClientSaleID]; ok {
		return "", err
	}
	c.commits = append(c.commits, sc)
	return "remote-" + sc.ClientSaleID, nil
}

func (c *fakeCommitter) committed() []remote.SaleCommit {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]remote.SaleCommit, len(c.commits))
	copy(out, c.commits)
	return out
}

type fakeStatus struct{ online bool }

func (s *fakeStatus) Online() bool { return s.online }

func testSale(id string, items []models.SaleItem, subtotal, tax float64, payment string) models.PendingSale {
	return models.PendingSale{
		ID:            id,
		StoreID:       "store-1",
		CashierID:     "cashier-1",
		Items:         items,
		Subtotal:      subtotal,
		Tax:           tax,
		Total:         subtotal + tax,
		PaymentMethod: payment,
		Timestamp:     time.Now(),
	}
}

func newTestEngine(q Queue, c Committer, online, continueOnFailure bool) *Engine {
	return NewEngine(q, c, &fakeStatus{online: online}, 5*time.Second, continueOnFailure, testLogger())
}

func TestSync_DrainsQueueEndToEnd(t *testing.T) {
	// Offline sale: 2x item A at $3.00 plus 1x item B at $5.00, no tax.
	sale := testSale("tx-1", []models.SaleItem{
		{ProductID: "item-a", ProductName: "Item A", UnitPrice: 3.00, Quantity: 2},
		{ProductID: "item-b", ProductName: "Item B", UnitPrice: 5.00, Quantity: 1},
	}, 11.00, 0, "cash")

	queue := newFakeQueue(sale)
	committer := &fakeCommitter{}
	engine := newTestEngine(queue, committer, true, false)

	require.NoError(t, engine.Sync(context.Background()))

	commits := committer.committed()
	require.Len(t, commits, 1)

	c := commits[0]
	assert.Equal(t, "CASH", c.PaymentMethod)
	assert.Equal(t, int64(1100), c.SubtotalMinor)
	assert.Equal(t, int64(0), c.TaxMinor)
	assert.Equal(t, int64(1100), c.TotalMinor)
	require.Len(t, c.Items, 2)
	assert.Equal(t, int64(300), c.Items[0].UnitPriceMinor)
	assert.Equal(t, int64(500), c.Items[1].UnitPriceMinor)
	assert.True(t, c.Offline)

	assert.True(t, queue.synced("tx-1"))
	assert.Empty(t, engine.LastError())

	pending, err := queue.ListUnsynced()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSync_NeverResubmitsSyncedRecords(t *testing.T) {
	queue := newFakeQueue(testSale("tx-1", nil, 1.00, 0, "cash"))
	committer := &fakeCommitter{}
	engine := newTestEngine(queue, committer, true, false)

	require.NoError(t, engine.Sync(context.Background()))
	require.NoError(t, engine.Sync(context.Background()))
	require.NoError(t, engine.Sync(context.Background()))

	assert.Len(t, committer.committed(), 1)
}

func TestSync_HaltsBatchOnFirstFailure(t *testing.T) {
	queue := newFakeQueue(
		testSale("tx-1", nil, 1.00, 0, "cash"),
		testSale("tx-2", nil, 2.00, 0, "cash"),
		testSale("tx-3", nil, 3.00, 0, "cash"),
	)
	committer := &fakeCommitter{failOn: map[string]error{"tx-2": errors.New("backend rejected sale")}}
	engine := newTestEngine(queue, committer, true, false)

	err := engine.Sync(context.Background())
	require.Error(t, err)

	// First record drained before the failure; nothing after it touched.
	assert.True(t, queue.synced("tx-1"))
	assert.False(t, queue.synced("tx-2"))
	assert.False(t, queue.synced("tx-3"))

	commits := committer.committed()
	require.Len(t, commits, 1)
	assert.Equal(t, "tx-1", commits[0].ClientSaleID)

	assert.Contains(t, engine.LastError(), "backend rejected sale")
}

func TestSync_ContinueOnFailureSkipsBadRecord(t *testing.T) {
	queue := newFakeQueue(
		testSale("tx-1", nil, 1.00, 0, "cash"),
		testSale("tx-2", nil, 2.00, 0, "cash"),
		testSale("tx-3", nil, 3.00, 0, "cash"),
	)
	committer := &fakeCommitter{failOn: map[string]error{"tx-2": errors.New("backend rejected sale")}}
	engine := newTestEngine(queue, committer, true, true)

	err := engine.Sync(context.Background())
	require.Error(t, err)

	assert.True(t, queue.synced("tx-1"))
	assert.False(t, queue.synced("tx-2"))
	assert.True(t, queue.synced("tx-3"))
	assert.Len(t, committer.committed(), 2)
}

func TestSync_SingleFlight(t *testing.T) {
	queue := newFakeQueue(testSale("tx-1", nil, 1.00, 0, "cash"))
	committer := &fakeCommitter{
		release: make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	engine := newTestEngine(queue, committer, true, false)

	done := make(chan error, 1)
	go func() { done <- engine.Sync(context.Background()) }()

	// Wait until the first drain is inside the remote call, then trigger
	// again: the second call must be refused, not queued.
	<-committer.started
	assert.True(t, engine.Syncing())
	assert.ErrorIs(t, engine.Sync(context.Background()), ErrSyncInProgress)

	close(committer.release)
	require.NoError(t, <-done)

	assert.Len(t, committer.committed(), 1)
	assert.False(t, engine.Syncing())
}

func TestSync_SkipsWhileOffline(t *testing.T) {
	queue := newFakeQueue(testSale("tx-1", nil, 1.00, 0, "cash"))
	committer := &fakeCommitter{}
	engine := newTestEngine(queue, committer, false, false)

	require.NoError(t, engine.Sync(context.Background()))

	assert.Empty(t, committer.committed())
	assert.False(t, queue.synced("tx-1"))
}

func TestSync_ClearsErrorAfterSuccessfulDrain(t *testing.T) {
	queue := newFakeQueue(testSale("tx-1", nil, 1.00, 0, "cash"))
	committer := &fakeCommitter{failOn: map[string]error{"tx-1": fmt.Errorf("%w: network down", remote.ErrRemoteCommit)}}
	engine := newTestEngine(queue, committer, true, false)

	require.Error(t, engine.Sync(context.Background()))
	assert.NotEmpty(t, engine.LastError())
	assert.False(t, queue.synced("tx-1"))

	// Connectivity restored: the record is still queued and drains cleanly.
	committer.mu.Lock()
	committer.failOn = nil
	committer.mu.Unlock()

	require.NoError(t, engine.Sync(context.Background()))
	assert.Empty(t, engine.LastError())
	assert.True(t, queue.synced("tx-1"))
}

func TestSync_QueueReadFailureSurfaces(t *testing.T) {
	queue := newFakeQueue()
	queue.listErr = errors.New("disk io error")
	engine := newTestEngine(queue, &fakeCommitter{}, true, false)

	err := engine.Sync(context.Background())
	require.Error(t, err)
	assert.Contains(t, engine.LastError(), "disk io error")
}
