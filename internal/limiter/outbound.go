package limiter

import (
	"context"

	"golang.org/x/time/rate"
)

// Outbound paces requests to a third-party service.
type Outbound struct {
	lim *rate.Limiter
}

// NewOutbound allows rps requests per second with the given burst.
// A non-positive rps disables limiting.
func NewOutbound(rps float64, burst int) *Outbound {
	if rps <= 0 {
		return &Outbound{lim: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst < 1 {
		burst = 1
	}
	return &Outbound{lim: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Wait blocks until a request may proceed or ctx is done.
func (o *Outbound) Wait(ctx context.Context) error {
	return o.lim.Wait(ctx)
}
