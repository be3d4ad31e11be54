package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SalesDrained tracks replay outcomes across drain passes
	// status: synced (remote commit acknowledged) or error
	SalesDrained = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "possync_sales_drained_total",
		Help: "Total queued sales processed by the sync engine",
	}, []string{"status"})

	// DrainDuration measures how long a full drain pass takes
	// Slow drains usually mean a degraded link to the backend
	DrainDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "possync_drain_duration_seconds",
		Help:    "Duration of a sync drain pass in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// PendingBacklog is the number of unsynced sales sitting in the local
	// queue. This is the primary indicator of how far behind the device is
	PendingBacklog = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "possync_pending_backlog",
		Help: "Current number of unsynced sales in the local queue",
	})

	// OnlineStatus provides a binary 0/1 signal for device connectivity
	OnlineStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "possync_online",
		Help: "Current connectivity status (1 online, 0 offline)",
	})

	// ProductRefreshes counts product cache refresh cycles by outcome
	ProductRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "possync_product_refreshes_total",
		Help: "Total product cache refresh attempts",
	}, []string{"status"})

	// CachedProducts is the size of the offline product mirror
	CachedProducts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "possync_cached_products",
		Help: "Number of products currently held in the offline cache",
	})
)
