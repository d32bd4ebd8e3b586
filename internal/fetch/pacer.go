package fetch

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/timmy/hotelrank/internal/domain"
	"golang.org/x/time/rate"
)

// Pacer spaces out calls to each platform independently. Every call after the
// first waits until the previous call to the same platform plus a delay drawn
// uniformly from [min, max]. A shared token bucket caps the overall request
// rate across platforms.
type Pacer struct {
	mu        sync.Mutex
	platforms map[domain.Platform]*platformPace
	global    *rate.Limiter
}

type platformPace struct {
	// turn serializes callers of one platform; it holds one token.
	turn chan struct{}
	last time.Time
}

// NewPacer creates a pacer. requestsPerSecond <= 0 disables the global cap.
func NewPacer(requestsPerSecond float64) *Pacer {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &Pacer{
		platforms: make(map[domain.Platform]*platformPace),
		global:    rate.NewLimiter(limit, 1),
	}
}

// Wait blocks until the platform may be contacted again or ctx is done.
func (p *Pacer) Wait(ctx context.Context, platform domain.Platform, minDelay, maxDelay time.Duration) error {
	pace := p.pace(platform)
	select {
	case pace.turn <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-pace.turn }()

	if !pace.last.IsZero() {
		if wait := time.Until(pace.last.Add(drawDelay(minDelay, maxDelay))); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	if err := p.global.Wait(ctx); err != nil {
		return err
	}

	pace.last = time.Now()
	return nil
}

func (p *Pacer) pace(platform domain.Platform) *platformPace {
	p.mu.Lock()
	defer p.mu.Unlock()

	pace, ok := p.platforms[platform]
	if !ok {
		pace = &platformPace{turn: make(chan struct{}, 1)}
		p.platforms[platform] = pace
	}
	return pace
}

// drawDelay returns a uniform delay in [minDelay, maxDelay].
func drawDelay(minDelay, maxDelay time.Duration) time.Duration {
	if minDelay < 0 {
		minDelay = 0
	}
	if maxDelay <= minDelay {
		return minDelay
	}
	return minDelay + time.Duration(rand.Int64N(int64(maxDelay-minDelay)+1))
}
