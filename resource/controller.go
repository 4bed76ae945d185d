// Package resource provides IO throttling for index persistence, so bulk
// saves and loads of large descriptor collections do not saturate shared
// disks or network links.
package resource

import (
	"context"

	"golang.org/x/time/rate"
)

// Config configures a Controller.
type Config struct {
	// IOBytesPerSec caps the throughput of rate-limited readers/writers.
	// 0 disables limiting.
	IOBytesPerSec int64

	// Burst is the maximum burst size in bytes. 0 defaults to one second
	// worth of throughput.
	Burst int
}

// Controller enforces IO throughput limits.
type Controller struct {
	limiter *rate.Limiter
}

// NewController creates a Controller from cfg.
func NewController(cfg Config) *Controller {
	c := &Controller{}
	if cfg.IOBytesPerSec > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = int(cfg.IOBytesPerSec)
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.IOBytesPerSec), burst)
	}
	return c
}

// AcquireIO blocks until n bytes of IO budget are available, honoring ctx
// cancellation. Requests larger than the burst are split.
func (c *Controller) AcquireIO(ctx context.Context, n int) error {
	if c == nil || c.limiter == nil {
		return nil
	}
	burst := c.limiter.Burst()
	for n > 0 {
		chunk := min(n, burst)
		if err := c.limiter.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}
