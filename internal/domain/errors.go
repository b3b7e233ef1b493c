package domain

import "errors"

var (
	ErrVoucherNotFound = errors.New("voucher not found")
	ErrSaleNotStarted  = errors.New("sale not started")
	ErrSaleEnded       = errors.New("sale ended")
	ErrSoldOut         = errors.New("sold out")
	ErrAlreadyOrdered  = errors.New("already ordered")
	ErrChannelFull     = errors.New("order channel full")
	ErrNotFound        = errors.New("not found")
	ErrInvalidStock    = errors.New("invalid stock")
	ErrInvalidSaleTime = errors.New("invalid sale time window")
)
