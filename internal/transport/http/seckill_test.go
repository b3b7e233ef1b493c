package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/flashmart/seckill/internal/domain"
)

type fakePurchaser struct {
	orderID   uint64
	err       error
	voucherID int64
	userID    int64
}

func (f *fakePurchaser) Purchase(ctx context.Context, voucherID, userID int64) (uint64, error) {
	f.voucherID = voucherID
	f.userID = userID
	return f.orderID, f.err
}

func TestHandleSeckill_Accepted(t *testing.T) {
	t.Parallel()

	svc := &fakePurchaser{orderID: 1<<40 + 7}
	router := NewRouter(svc, nil, nil, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/vouchers/3/seckill", nil)
	req.Header.Set("X-User-Id", "42")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.voucherID != 3 || svc.userID != 42 {
		t.Fatalf("service called with voucher=%d user=%d", svc.voucherID, svc.userID)
	}

	var resp struct {
		OrderID string `json:"order_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.OrderID != "1099511627783" {
		t.Fatalf("expected order id as decimal string, got %q", resp.OrderID)
	}
}

func TestHandleSeckill_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"voucher not found", domain.ErrVoucherNotFound, http.StatusNotFound, codeVoucherNotFound},
		{"sale not started", domain.ErrSaleNotStarted, http.StatusConflict, codeSaleNotStarted},
		{"sale ended", domain.ErrSaleEnded, http.StatusConflict, codeSaleEnded},
		{"sold out", domain.ErrSoldOut, http.StatusConflict, codeSoldOut},
		{"already ordered", domain.ErrAlreadyOrdered, http.StatusConflict, codeAlreadyOrdered},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewRouter(&fakePurchaser{err: tt.err}, nil, nil, zerolog.Nop())

			req := httptest.NewRequest(http.MethodPost, "/vouchers/3/seckill", nil)
			req.Header.Set("X-User-Id", "42")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			var resp struct {
				Code string `json:"code"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Fatalf("expected code %q, got %q", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestHandleSeckill_RejectsBadInput(t *testing.T) {
	t.Parallel()

	router := NewRouter(&fakePurchaser{}, nil, nil, zerolog.Nop())

	t.Run("non-numeric voucher id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/vouchers/abc/seckill", nil)
		req.Header.Set("X-User-Id", "42")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("missing user header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/vouchers/3/seckill", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
