package clock

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/geanlabs/pqlean/types"
)

func fixedTime(unixSeconds int64) func() time.Time {
	return func() time.Time {
		return time.Unix(unixSeconds, 0)
	}
}

func TestCurrentSlot(t *testing.T) {
	const genesisTime = 1000
	tests := []struct {
		name     string
		now      int64
		wantSlot types.Slot
	}{
		{"before genesis", 500, 0},
		{"at genesis", 1000, 0},
		{"inside slot 0", 1003, 0},
		{"slot 1 boundary", 1004, 1},
		{"slot 2", 1008, 2},
		{"slot 25", 1100, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewWithTimeFunc(genesisTime, fixedTime(tt.now))
			if got := c.CurrentSlot(); got != tt.wantSlot {
				t.Errorf("CurrentSlot = %d, want %d", got, tt.wantSlot)
			}
		})
	}
}

func TestIntervals(t *testing.T) {
	const genesisTime = 1000
	tests := []struct {
		now          int64
		wantInterval Interval
		wantTotal    Interval
	}{
		{500, 0, 0},
		{1000, 0, 0},
		{1001, 1, 1},
		{1003, 3, 3},
		{1004, 0, 4},
		{1009, 1, 9},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("t=%d", tt.now), func(t *testing.T) {
			c := NewWithTimeFunc(genesisTime, fixedTime(tt.now))
			if got := c.CurrentInterval(); got != tt.wantInterval {
				t.Errorf("CurrentInterval = %d, want %d", got, tt.wantInterval)
			}
			if got := c.TotalIntervals(); got != tt.wantTotal {
				t.Errorf("TotalIntervals = %d, want %d", got, tt.wantTotal)
			}
		})
	}
}

func TestSlotStartTime(t *testing.T) {
	c := New(1000)
	tests := []struct {
		slot types.Slot
		want uint64
	}{
		{0, 1000},
		{1, 1004},
		{100, 1400},
	}
	for _, tt := range tests {
		if got := c.SlotStartTime(tt.slot); got != tt.want {
			t.Errorf("SlotStartTime(%d) = %d, want %d", tt.slot, got, tt.want)
		}
	}
}

func TestIsBeforeGenesis(t *testing.T) {
	tests := []struct {
		now  int64
		want bool
	}{
		{500, true},
		{999, true},
		{1000, false},
		{1001, false},
	}
	for _, tt := range tests {
		c := NewWithTimeFunc(1000, fixedTime(tt.now))
		if got := c.IsBeforeGenesis(); got != tt.want {
			t.Errorf("IsBeforeGenesis at %d = %v, want %v", tt.now, got, tt.want)
		}
	}
}

func TestUntilNextSlot(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Duration
	}{
		{"before genesis", time.Unix(990, 0), 10 * time.Second},
		{"at genesis", time.Unix(1000, 0), 4 * time.Second},
		{"mid slot", time.Unix(1005, 500_000_000), 2500 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewWithTimeFunc(1000, func() time.Time { return tt.now })
			if got := c.UntilNextSlot(); got != tt.want {
				t.Errorf("UntilNextSlot = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSubscribeSlots(t *testing.T) {
	// Genesis one second from now with a real clock: the first tick is slot 0.
	genesis := uint64(time.Now().Unix()) + 1
	c := New(genesis)

	ctx, cancel := context.WithCancel(context.Background())
	slots := c.SubscribeSlots(ctx)

	select {
	case slot := <-slots:
		if slot != 0 {
			t.Errorf("first slot = %d, want 0", slot)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no slot tick within 5s")
	}

	cancel()
	for range slots {
	}
}
