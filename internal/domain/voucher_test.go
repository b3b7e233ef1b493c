package domain

import (
	"testing"
	"time"
)

func TestSeckillVoucher_SaleWindow(t *testing.T) {
	t.Parallel()

	begin := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	end := begin.Add(2 * time.Hour)
	v := SeckillVoucher{BeginTime: begin, EndTime: end}

	tests := []struct {
		name        string
		now         time.Time
		wantStarted bool
		wantEnded   bool
	}{
		{"before window", begin.Add(-time.Second), false, false},
		{"at begin", begin, true, false},
		{"mid window", begin.Add(time.Hour), true, false},
		{"at end", end, true, true},
		{"after window", end.Add(time.Second), true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := v.SaleStarted(tt.now); got != tt.wantStarted {
				t.Fatalf("SaleStarted(%v) = %v, want %v", tt.now, got, tt.wantStarted)
			}
			if got := v.SaleEnded(tt.now); got != tt.wantEnded {
				t.Fatalf("SaleEnded(%v) = %v, want %v", tt.now, got, tt.wantEnded)
			}
		})
	}
}
