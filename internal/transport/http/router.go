package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// NewRouter wires the service's public surface.
func NewRouter(purchases Purchaser, vouchers VoucherPublisher, orders OrderGetter, logger zerolog.Logger) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", HealthHandler).Methods(http.MethodGet)
	r.Handle("/vouchers", HandlePublishVoucher(vouchers)).Methods(http.MethodPost)
	r.Handle("/vouchers/{voucherID}/seckill", HandleSeckill(purchases)).Methods(http.MethodPost)
	r.Handle("/orders/{orderID}", HandleGetOrder(orders)).Methods(http.MethodGet)
	return RequestLogger(r, logger)
}
