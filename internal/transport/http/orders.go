package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/flashmart/seckill/internal/domain"
)

// OrderGetter serves order lookups, normally through the passthrough cache.
type OrderGetter interface {
	Get(ctx context.Context, orderID uint64) (*domain.VoucherOrder, error)
}

// HandleGetOrder returns the handler for GET /orders/{orderID}.
func HandleGetOrder(svc OrderGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := strconv.ParseUint(mux.Vars(r)["orderID"], 10, 64)
		if err != nil || orderID == 0 {
			writeError(w, http.StatusBadRequest, codeInvalidID, "invalid order id")
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				writeError(w, http.StatusNotFound, codeOrderNotFound, "order not found")
				return
			}
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, orderResponse{
			ID:         strconv.FormatUint(order.ID, 10),
			UserID:     order.UserID,
			VoucherID:  order.VoucherID,
			CreateTime: order.CreateTime,
		})
	}
}

type orderResponse struct {
	ID         string    `json:"id"`
	UserID     int64     `json:"user_id"`
	VoucherID  int64     `json:"voucher_id"`
	CreateTime time.Time `json:"create_time"`
}
