package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/flashmart/seckill/internal/domain"
)

// Purchaser is the minimal interface needed to admit a purchase.
type Purchaser interface {
	Purchase(ctx context.Context, voucherID, userID int64) (uint64, error)
}

// HandleSeckill returns the handler for POST /vouchers/{voucherID}/seckill.
// The authenticated user id arrives in X-User-Id; session handling lives in
// front of this service.
func HandleSeckill(svc Purchaser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		voucherID, err := strconv.ParseInt(mux.Vars(r)["voucherID"], 10, 64)
		if err != nil || voucherID <= 0 {
			writeError(w, http.StatusBadRequest, codeInvalidID, "invalid voucher id")
			return
		}
		userID, err := strconv.ParseInt(r.Header.Get("X-User-Id"), 10, 64)
		if err != nil || userID <= 0 {
			writeError(w, http.StatusBadRequest, codeUserRequired, "X-User-Id header required")
			return
		}

		orderID, err := svc.Purchase(r.Context(), voucherID, userID)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrVoucherNotFound):
				writeError(w, http.StatusNotFound, codeVoucherNotFound, err.Error())
			case errors.Is(err, domain.ErrSaleNotStarted):
				writeError(w, http.StatusConflict, codeSaleNotStarted, err.Error())
			case errors.Is(err, domain.ErrSaleEnded):
				writeError(w, http.StatusConflict, codeSaleEnded, err.Error())
			case errors.Is(err, domain.ErrSoldOut):
				writeError(w, http.StatusConflict, codeSoldOut, err.Error())
			case errors.Is(err, domain.ErrAlreadyOrdered):
				writeError(w, http.StatusConflict, codeAlreadyOrdered, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusAccepted, seckillResponse{
			OrderID: strconv.FormatUint(orderID, 10),
		})
	}
}

// seckillResponse carries the order id as a string: the ids use the full
// 64-bit range and JSON numbers lose precision past 2^53.
type seckillResponse struct {
	OrderID string `json:"order_id"`
}
