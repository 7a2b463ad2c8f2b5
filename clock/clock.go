// Package clock maps wall-clock time onto consensus slots and intervals.
package clock

import (
	"context"
	"time"

	"github.com/geanlabs/pqlean/types"
)

// Interval is a position within a slot, or a count of intervals since genesis.
type Interval uint64

// SlotClock converts wall-clock time to consensus slots and intervals.
// All time values are in seconds (Unix timestamps).
type SlotClock struct {
	GenesisTime uint64
	timeFunc    func() time.Time
}

func New(genesisTime uint64) *SlotClock {
	return NewWithTimeFunc(genesisTime, time.Now)
}

// NewWithTimeFunc creates a SlotClock with a custom time source.
func NewWithTimeFunc(genesisTime uint64, timeFunc func() time.Time) *SlotClock {
	return &SlotClock{
		GenesisTime: genesisTime,
		timeFunc:    timeFunc,
	}
}

func (c *SlotClock) now() uint64 {
	t := c.timeFunc().Unix()
	if t < 0 {
		return 0
	}
	return uint64(t)
}

// secondsSinceGenesis returns seconds elapsed since genesis (0 if before genesis).
func (c *SlotClock) secondsSinceGenesis() uint64 {
	now := c.now()
	if now < c.GenesisTime {
		return 0
	}
	return now - c.GenesisTime
}

// CurrentSlot returns the current slot number (0 if before genesis).
func (c *SlotClock) CurrentSlot() types.Slot {
	return types.TimeToSlot(c.now(), c.GenesisTime)
}

// CurrentInterval returns the current interval within the slot.
func (c *SlotClock) CurrentInterval() Interval {
	secondsIntoSlot := c.secondsSinceGenesis() % types.SecondsPerSlot
	return Interval(secondsIntoSlot / types.SecondsPerInterval)
}

// TotalIntervals returns total intervals elapsed since genesis.
func (c *SlotClock) TotalIntervals() Interval {
	return Interval(c.secondsSinceGenesis() / types.SecondsPerInterval)
}

// SlotStartTime returns the Unix timestamp when a given slot starts.
func (c *SlotClock) SlotStartTime(slot types.Slot) uint64 {
	return types.SlotToTime(slot, c.GenesisTime)
}

func (c *SlotClock) IsBeforeGenesis() bool {
	return c.now() < c.GenesisTime
}

// UntilNextSlot returns the wait until the next slot boundary, or until
// genesis when it has not happened yet.
func (c *SlotClock) UntilNextSlot() time.Duration {
	now := c.timeFunc()
	var next uint64
	if c.IsBeforeGenesis() {
		next = c.GenesisTime
	} else {
		next = c.SlotStartTime(c.CurrentSlot() + 1)
	}
	return time.Unix(int64(next), 0).Sub(now)
}

// SubscribeSlots delivers each new slot on the returned channel as its
// boundary passes, until ctx is done. Slots missed by a slow reader are dropped.
func (c *SlotClock) SubscribeSlots(ctx context.Context) <-chan types.Slot {
	out := make(chan types.Slot, 1)
	go func() {
		defer close(out)
		timer := time.NewTimer(c.UntilNextSlot())
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				select {
				case out <- c.CurrentSlot():
				default:
				}
				timer.Reset(c.UntilNextSlot())
			}
		}
	}()
	return out
}
