package remote

import "errors"

// ErrRemoteCommit wraps any rejection or transport failure from the commit
// endpoint. It is always recoverable: the caller keeps the record queued and
// retries on the next drain.
var ErrRemoteCommit = errors.New("remote commit failed")

// Payment method casing expected by the backend enum.
const (
	PaymentCash  = "CASH"
	PaymentCard  = "CARD"
	PaymentCheck = "CHECK"
	PaymentOther = "OTHER"
)

// CommitItem is one sale line in the endpoint's wire shape. Prices are
// integral minor currency units (cents), never floats.
type CommitItem struct {
	ProductID      string
	Quantity       int
	UnitPriceMinor int64
	LineTotalMinor int64
}

// SaleCommit is the request accepted by the remote commit endpoint. The
// client sale ID rides along in the transaction number so replayed offline
// sales stay traceable on the backend.
type SaleCommit struct {
	ClientSaleID  string
	StoreID       string
	CashierID     string
	Items         []CommitItem
	SubtotalMinor int64
	TaxMinor      int64
	TotalMinor    int64
	DiscountMinor int64
	PaymentMethod string
	Notes         string
	Offline       bool
}

// TransactionNumber derives the backend-visible reference for this commit.
// Replayed offline sales are prefixed distinctly so they stay traceable.
func (c SaleCommit) TransactionNumber() string {
	if c.Offline {
		return "OFFLINE-" + c.ClientSaleID
	}
	return "TXN-" + c.ClientSaleID
}
