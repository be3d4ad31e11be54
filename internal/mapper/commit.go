package mapper

import (
	"math"
	"strings"

	"github.com/cloudpos/possync/internal/models"
	"github.com/cloudpos/possync/internal/remote"
)

// ToMinorUnits converts a decimal currency amount into integral minor units
// (cents). Rounding is half-away-from-zero so register-entered prices like
// 19.99 survive the float trip exactly.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// NormalizePaymentMethod maps the register's lowercase payment categories
// onto the backend enum casing. Anything unrecognized lands in OTHER rather
// than failing the commit.
func NormalizePaymentMethod(method string) string {
	switch strings.ToLower(strings.TrimSpace(method)) {
	case models.PaymentCash:
		return remote.PaymentCash
	case models.PaymentCard:
		return remote.PaymentCard
	case models.PaymentCheck:
		return remote.PaymentCheck
	default:
		return remote.PaymentOther
	}
}

// BuildCommit translates a sale into the commit endpoint's wire shape. The
// online checkout path and the sync engine both go through here, so direct
// and replayed commits hit the backend with an identical request.
//
// Discount is always zero: the offline path cannot represent one.
func BuildCommit(sale models.PendingSale, offline bool) remote.SaleCommit {
	items := make([]remote.CommitItem, 0, len(sale.Items))
	for _, it := range sale.Items {
		unitMinor := ToMinorUnits(it.UnitPrice)
		items = append(items, remote.CommitItem{
			ProductID:      it.ProductID,
			Quantity:       it.Quantity,
			UnitPriceMinor: unitMinor,
			LineTotalMinor: unitMinor * int64(it.Quantity),
		})
	}

	return remote.SaleCommit{
		ClientSaleID:  sale.ID,
		StoreID:       sale.StoreID,
		CashierID:     sale.CashierID,
		Items:         items,
		SubtotalMinor: ToMinorUnits(sale.Subtotal),
		TaxMinor:      ToMinorUnits(sale.Tax),
		TotalMinor:    ToMinorUnits(sale.Total),
		DiscountMinor: 0,
		PaymentMethod: NormalizePaymentMethod(sale.PaymentMethod),
		Notes:         sale.Notes,
		Offline:       offline,
	}
}
