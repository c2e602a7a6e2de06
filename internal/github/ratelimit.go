package github

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"
)

// Rate-limit backoff defaults.
const (
	DefaultRateThreshold = 50
	DefaultMaxRateWait   = 60 * time.Second
	// resetGrace is added to the reported reset time before resuming.
	resetGrace = time.Second
)

// Unlimited marks a remaining budget that is assumed unconstrained until the
// next response reports real values.
const Unlimited = math.MaxInt

// Rate is the rate-limit information reported by a single response.
type Rate struct {
	Remaining int
	Reset     time.Time
	// Present is false when the response carried no rate-limit headers.
	Present bool
}

func parseRate(h http.Header) Rate {
	remaining, err := strconv.Atoi(h.Get(headerRateRemaining))
	if err != nil {
		return Rate{}
	}
	reset, err := strconv.ParseInt(h.Get(headerRateReset), 10, 64)
	if err != nil {
		return Rate{}
	}
	return Rate{
		Remaining: remaining,
		Reset:     time.Unix(reset, 0),
		Present:   true,
	}
}

// RateState is the rate-limit view of one aggregation run. It is not shared
// between runs, so concurrent requests throttle independently.
type RateState struct {
	Remaining int
	Reset     time.Time
}

// NewRateState returns a state with an unconstrained budget.
func NewRateState() *RateState {
	return &RateState{Remaining: Unlimited}
}

// Observe records the rate-limit headers of resp, if any.
func (s *RateState) Observe(resp *Response) {
	if resp == nil || !resp.Rate.Present {
		return
	}
	s.Remaining = resp.Rate.Remaining
	s.Reset = resp.Rate.Reset
}

// Throttle pauses a run when its remaining budget drops below Threshold.
// Zero-valued fields fall back to the package defaults.
type Throttle struct {
	Threshold int
	MaxWait   time.Duration
	Now       func() time.Time
	Sleep     func(ctx context.Context, d time.Duration) error
}

// NewThrottle creates a throttle with the given threshold and wait cap.
func NewThrottle(threshold int, maxWait time.Duration) *Throttle {
	return &Throttle{Threshold: threshold, MaxWait: maxWait}
}

// Wait blocks until the reset time plus one second when the state's remaining
// budget is below the threshold, never longer than MaxWait. Afterwards the
// state is optimistically reset to Unlimited. It returns the time slept.
func (t *Throttle) Wait(ctx context.Context, s *RateState) (time.Duration, error) {
	if s.Remaining >= t.threshold() {
		return 0, nil
	}

	wait := s.Reset.Add(resetGrace).Sub(t.now())
	if wait > t.maxWait() {
		wait = t.maxWait()
	}
	if wait > 0 {
		if err := t.sleep(ctx, wait); err != nil {
			return 0, err
		}
	} else {
		wait = 0
	}

	s.Remaining = Unlimited
	return wait, nil
}

func (t *Throttle) threshold() int {
	if t == nil || t.Threshold <= 0 {
		return DefaultRateThreshold
	}
	return t.Threshold
}

func (t *Throttle) maxWait() time.Duration {
	if t == nil || t.MaxWait <= 0 {
		return DefaultMaxRateWait
	}
	return t.MaxWait
}

func (t *Throttle) now() time.Time {
	if t == nil || t.Now == nil {
		return time.Now()
	}
	return t.Now()
}

func (t *Throttle) sleep(ctx context.Context, d time.Duration) error {
	if t != nil && t.Sleep != nil {
		return t.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
