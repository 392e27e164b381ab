package service

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// CallGate enforces the minimum spacing between outbound analysis calls.
// It is shared by every worker of every job: the external provider's rate
// limit is global, so concurrent tasks must not collectively exceed it.
// This is a deliberate throttle, not a performance knob.
type CallGate struct {
	limiter *rate.Limiter
}

// NewCallGate builds a gate that admits one call per interval. A zero or
// negative interval disables the gate.
func NewCallGate(interval time.Duration) *CallGate {
	if interval <= 0 {
		return &CallGate{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &CallGate{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next call is allowed or the context is canceled
func (g *CallGate) Wait(ctx context.Context) error {
	return g.limiter.Wait(ctx)
}
