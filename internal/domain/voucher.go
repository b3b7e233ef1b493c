package domain

import "time"

// SeckillVoucher is a flash-sale voucher with strictly limited stock.
// Stock lives in two places: the authoritative count on this row and an
// advisory counter in Redis used by the eligibility gate. The advisory
// counter may drift low but must never promise more stock than the row has.
type SeckillVoucher struct {
	VoucherID  int64
	Title      string
	Stock      int
	BeginTime  time.Time
	EndTime    time.Time
	CreateTime time.Time
}

// SaleStarted reports whether the sale window has opened by the given
// instant. Opening is inclusive: a purchase at exactly BeginTime is valid.
func (v SeckillVoucher) SaleStarted(now time.Time) bool {
	return !now.Before(v.BeginTime)
}

// SaleEnded reports whether the sale window has closed by the given
// instant. Closing is exclusive: a purchase at exactly EndTime is rejected.
func (v SeckillVoucher) SaleEnded(now time.Time) bool {
	return !now.Before(v.EndTime)
}
