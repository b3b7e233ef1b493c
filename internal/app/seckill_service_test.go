package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/flashmart/seckill/internal/clock"
	"github.com/flashmart/seckill/internal/domain"
	"github.com/flashmart/seckill/internal/gate"
	"github.com/flashmart/seckill/internal/queue"
)

type fakeVoucherReader struct {
	vouchers map[int64]*domain.SeckillVoucher
}

func (f *fakeVoucherReader) Get(_ context.Context, voucherID int64) (*domain.SeckillVoucher, error) {
	v, ok := f.vouchers[voucherID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return v, nil
}

type fakeGate struct {
	result gate.Result
	err    error
	calls  int
}

func (f *fakeGate) CheckAndReserve(context.Context, int64, int64) (gate.Result, error) {
	f.calls++
	return f.result, f.err
}

type fakeIDGen struct {
	next uint64
	err  error
}

func (f *fakeIDGen) NextID(context.Context, string) (uint64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.next++
	return f.next, nil
}

func TestSeckillService_Purchase(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	onSale := &domain.SeckillVoucher{
		VoucherID: 3,
		Stock:     10,
		BeginTime: now.Add(-time.Hour),
		EndTime:   now.Add(time.Hour),
	}

	newService := func(g *fakeGate, ch queue.Channel) *SeckillService {
		return NewSeckillService(
			&fakeVoucherReader{vouchers: map[int64]*domain.SeckillVoucher{3: onSale}},
			g,
			&fakeIDGen{next: 41},
			ch,
			clock.NewFixed(now),
			zerolog.Nop(),
		)
	}

	t.Run("admits purchase and enqueues task", func(t *testing.T) {
		ch := queue.NewMemoryChannel(4)
		svc := newService(&fakeGate{result: gate.Reserved}, ch)

		orderID, err := svc.Purchase(context.Background(), 3, 7)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if orderID != 42 {
			t.Fatalf("expected order id 42, got %d", orderID)
		}

		d, err := ch.Consume(context.Background())
		if err != nil {
			t.Fatalf("expected task enqueued, got %v", err)
		}
		want := domain.OrderTask{OrderID: 42, UserID: 7, VoucherID: 3}
		if d.Task != want {
			t.Fatalf("expected task %+v, got %+v", want, d.Task)
		}
	})

	t.Run("sold out is a user-facing rejection", func(t *testing.T) {
		svc := newService(&fakeGate{result: gate.SoldOut}, queue.NewMemoryChannel(4))

		_, err := svc.Purchase(context.Background(), 3, 7)
		if !errors.Is(err, domain.ErrSoldOut) {
			t.Fatalf("expected ErrSoldOut, got %v", err)
		}
	})

	t.Run("duplicate user is rejected", func(t *testing.T) {
		svc := newService(&fakeGate{result: gate.AlreadyOrdered}, queue.NewMemoryChannel(4))

		_, err := svc.Purchase(context.Background(), 3, 7)
		if !errors.Is(err, domain.ErrAlreadyOrdered) {
			t.Fatalf("expected ErrAlreadyOrdered, got %v", err)
		}
	})

	t.Run("unknown voucher skips the gate", func(t *testing.T) {
		g := &fakeGate{result: gate.Reserved}
		svc := newService(g, queue.NewMemoryChannel(4))

		_, err := svc.Purchase(context.Background(), 99, 7)
		if !errors.Is(err, domain.ErrVoucherNotFound) {
			t.Fatalf("expected ErrVoucherNotFound, got %v", err)
		}
		if g.calls != 0 {
			t.Fatalf("expected gate untouched, got %d calls", g.calls)
		}
	})

	t.Run("sale window is enforced", func(t *testing.T) {
		early := &domain.SeckillVoucher{VoucherID: 3, BeginTime: now.Add(time.Minute), EndTime: now.Add(time.Hour)}
		late := &domain.SeckillVoucher{VoucherID: 3, BeginTime: now.Add(-time.Hour), EndTime: now}

		for _, tc := range []struct {
			name    string
			voucher *domain.SeckillVoucher
			want    error
		}{
			{"before begin", early, domain.ErrSaleNotStarted},
			{"after end", late, domain.ErrSaleEnded},
		} {
			svc := NewSeckillService(
				&fakeVoucherReader{vouchers: map[int64]*domain.SeckillVoucher{3: tc.voucher}},
				&fakeGate{result: gate.Reserved},
				&fakeIDGen{},
				queue.NewMemoryChannel(4),
				clock.NewFixed(now),
				zerolog.Nop(),
			)
			if _, err := svc.Purchase(context.Background(), 3, 7); !errors.Is(err, tc.want) {
				t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
			}
		}
	})

	t.Run("full channel surfaces an infrastructure error", func(t *testing.T) {
		ch := queue.NewMemoryChannel(1)
		if err := ch.Submit(context.Background(), domain.OrderTask{OrderID: 1}); err != nil {
			t.Fatalf("fill channel: %v", err)
		}
		svc := newService(&fakeGate{result: gate.Reserved}, ch)

		_, err := svc.Purchase(context.Background(), 3, 7)
		if !errors.Is(err, domain.ErrChannelFull) {
			t.Fatalf("expected ErrChannelFull, got %v", err)
		}
	})
}
