package domain

import "time"

// VoucherOrder is a fulfilled purchase. At most one row exists per
// (UserID, VoucherID) pair; the fulfiller enforces that inside the
// persistence transaction, backed by a unique index.
type VoucherOrder struct {
	ID         uint64
	UserID     int64
	VoucherID  int64
	CreateTime time.Time
}

// OrderTask is the transient message carried on the order channel between
// admission and fulfillment. Durability, if any, is the channel's concern.
type OrderTask struct {
	OrderID   uint64 `json:"id"`
	UserID    int64  `json:"userId"`
	VoucherID int64  `json:"voucherId"`
}
