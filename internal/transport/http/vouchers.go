package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/flashmart/seckill/internal/app"
	"github.com/flashmart/seckill/internal/domain"
)

// VoucherPublisher is the minimal interface needed to publish a voucher.
type VoucherPublisher interface {
	PublishVoucher(ctx context.Context, in app.PublishVoucherInput) (domain.SeckillVoucher, error)
}

// HandlePublishVoucher returns the handler for POST /vouchers.
func HandlePublishVoucher(svc VoucherPublisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req publishVoucherRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		voucher, err := svc.PublishVoucher(r.Context(), app.PublishVoucherInput{
			Title:     req.Title,
			Stock:     req.Stock,
			BeginTime: req.BeginTime,
			EndTime:   req.EndTime,
		})
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrInvalidStock):
				writeError(w, http.StatusBadRequest, codeInvalidStock, err.Error())
			case errors.Is(err, domain.ErrInvalidSaleTime):
				writeError(w, http.StatusBadRequest, codeInvalidSaleTime, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusCreated, publishVoucherResponse{
			VoucherID: voucher.VoucherID,
			Title:     voucher.Title,
			Stock:     voucher.Stock,
			BeginTime: voucher.BeginTime,
			EndTime:   voucher.EndTime,
		})
	}
}

type publishVoucherRequest struct {
	Title     string `json:"title"`
	Stock     int    `json:"stock"`
	BeginTime int64  `json:"begin_time"`
	EndTime   int64  `json:"end_time"`
}

type publishVoucherResponse struct {
	VoucherID int64     `json:"voucher_id"`
	Title     string    `json:"title"`
	Stock     int       `json:"stock"`
	BeginTime time.Time `json:"begin_time"`
	EndTime   time.Time `json:"end_time"`
}
