package models

import "time"

// Payment methods accepted at the register. Stored lowercase, exactly as the
// cashier selected them; the remote endpoint's enum casing is applied by the
// commit mapper.
const (
	PaymentCash  = "cash"
	PaymentCard  = "card"
	PaymentCheck = "check"
	PaymentOther = "other"
)

// KnownPaymentMethod reports whether m is one of the accepted categories.
func KnownPaymentMethod(m string) bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentCheck, PaymentOther:
		return true
	}
	return false
}

// SaleItem is a single cart line captured at checkout time. Immutable once
// the parent sale is created.
type SaleItem struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    int     `json:"quantity"`
}

// PendingSale is a sale completed while the device was offline, queued
// locally until the sync engine replays it against the backend.
//
// ID doubles as the queue key and the replay idempotency handle. Synced
// flips to true exactly once, after the remote commit acknowledged success,
// and never reverts. Records are kept after syncing as an audit trail.
type PendingSale struct {
	ID            string     `json:"id"`
	StoreID       string     `json:"store_id"`
	CashierID     string     `json:"cashier_id"`
	Items         []SaleItem `json:"items"`
	Subtotal      float64    `json:"subtotal"`
	Tax           float64    `json:"tax"`
	Total         float64    `json:"total"`
	PaymentMethod string     `json:"payment_method"`
	Notes         string     `json:"notes,omitempty"`
	Timestamp     time.Time  `json:"timestamp"`
	Synced        bool       `json:"synced"`
}

// CachedProduct is a local mirror of a backend product row, kept so the
// register can keep selling while offline. The cache is replaced wholesale
// on each refresh, never merged.
type CachedProduct struct {
	ID            string  `json:"id"`
	StoreID       string  `json:"store_id"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	StockQuantity int     `json:"stock_quantity"`
	Category      string  `json:"category"`
}
