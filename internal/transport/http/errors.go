package http

import (
	"encoding/json"
	"net/http"
)

const (
	codeInvalidRequestBody = "invalid_request_body"
	codeInvalidID          = "invalid_id"
	codeUserRequired       = "user_id_required"
	codeInvalidStock       = "invalid_stock"
	codeInvalidSaleTime    = "invalid_sale_time"
	codeVoucherNotFound    = "voucher_not_found"
	codeOrderNotFound      = "order_not_found"
	codeSaleNotStarted     = "sale_not_started"
	codeSaleEnded          = "sale_ended"
	codeSoldOut            = "sold_out"
	codeAlreadyOrdered     = "already_ordered"
	codeInternalError      = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
