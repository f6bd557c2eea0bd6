// Package clock provides aligned tickers on top of an injectable Clock.
// An aligned ticker is a channel of time.Time "ticks" similar to time.Ticker,
// but the ticks are even multiples of the requested period, and are delivered
// as shortly as possible after the clock reaching these timestamps.
// For example, with period=10s, the ticker ticks shortly after the passing of a unix
// timestamp that is a multiple of 10s, and the values returned are always these multiples.
// Tickers stop, and close their channel, when their context is canceled.
package clock

import (
	"context"
	"time"

	benclock "github.com/benbjohnson/clock"
)

// Clock is the source of time for tickers, reporters and decaying statistics.
type Clock = benclock.Clock

// Mock is a Clock that only moves when told to.
type Mock = benclock.Mock

// New returns the real wall clock.
func New() Clock {
	return benclock.New()
}

// NewMock returns a mock clock set to the unix epoch.
func NewMock() *Mock {
	return benclock.NewMock()
}

// sleep waits for d on clk. It returns false if ctx got canceled first.
func sleep(ctx context.Context, clk Clock, d time.Duration) bool {
	timer := clk.Timer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// AlignedTickLossy returns an aligned ticker that may drop ticks
// (if the consumer is slow or the clock jumps forward)
func AlignedTickLossy(ctx context.Context, clk Clock, period time.Duration) <-chan time.Time {
	c := make(chan time.Time)
	go func() {
		defer close(c)
		for {
			now := clk.Now()
			diff := period - (time.Duration(now.UnixNano()) % period)
			ideal := now.Add(diff)
			if !sleep(ctx, clk, diff) {
				return
			}
			select {
			case c <- ideal:
			default:
			}
		}
	}()
	return c
}

// AlignedTickLossless returns an aligned ticker that waits for slow receivers,
// and backfills later as necessary to publish any pending ticks, at possibly
// a much more aggressive schedule. (keeps ticking until fully caught up)
func AlignedTickLossless(ctx context.Context, clk Clock, period time.Duration) <-chan time.Time {
	c := make(chan time.Time)
	nsec := (clk.Now().UnixNano() / int64(period)) * int64(period)
	next := time.Unix(0, nsec).Add(period)

	send := func(t time.Time) bool {
		select {
		case c <- t:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(c)
		for {
			now := clk.Now()

			// catch up, if the consumer has run behind the clock
			for !now.Before(next) {
				if !send(next) {
					return
				}
				next = next.Add(period)
				now = clk.Now()
			}

			if !sleep(ctx, clk, next.Sub(now)) {
				return
			}
			if !send(next) {
				return
			}
			next = next.Add(period)
		}
	}()
	return c
}
