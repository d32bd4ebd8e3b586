package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/timmy/hotelrank/internal/domain"
	"github.com/timmy/hotelrank/internal/logger"
)

// OutcomeKind tells the cascade runner what to do after a tier.
type OutcomeKind int

const (
	// OutcomeOK stops the cascade with the tier's reading.
	OutcomeOK OutcomeKind = iota
	// OutcomeTryNext moves to the next tier.
	OutcomeTryNext
	// OutcomeFatal skips every remaining real tier and goes to the synthetic fallback.
	OutcomeFatal
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOK:
		return "ok"
	case OutcomeTryNext:
		return "try_next"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Reading is a rating and review count read from a platform.
type Reading struct {
	Rating      float64
	ReviewCount int
}

// Outcome is the tagged result of one cascade tier.
type Outcome struct {
	Kind    OutcomeKind
	Reading Reading
	Err     error
}

// OK wraps a successful reading.
func OK(r Reading) Outcome {
	return Outcome{Kind: OutcomeOK, Reading: r}
}

// TryNext reports a recoverable tier failure.
func TryNext(err error) Outcome {
	return Outcome{Kind: OutcomeTryNext, Err: err}
}

// Fatal reports a failure that makes every remaining real tier pointless.
func Fatal(err error) Outcome {
	return Outcome{Kind: OutcomeFatal, Err: err}
}

// Tier is one step of the fallback cascade.
type Tier struct {
	Strategy domain.SourceStrategy
	Run      func(ctx context.Context) Outcome
}

// Cascade runs tiers in order and falls back to a seeded synthetic value.
type Cascade struct {
	Platform  domain.Platform
	ScaleMax  float64
	Synthetic SyntheticRange
	Now       func() time.Time
}

// Run evaluates tiers until one yields an in-bounds reading. The synthetic
// tier always runs last, so Run never fails.
func (c *Cascade) Run(ctx context.Context, target domain.HotelTarget, tiers []Tier) domain.ExtractionResult {
	for _, tier := range tiers {
		if ctx.Err() != nil {
			break
		}

		outcome := tier.Run(ctx)
		if outcome.Kind == OutcomeOK {
			if err := c.checkBounds(outcome.Reading); err != nil {
				outcome = TryNext(err)
			} else {
				logger.With(logger.Fields{
					logger.FieldStrategy: string(tier.Strategy),
				}).Debug(ctx, "Extracted rating %.2f (%d reviews)", outcome.Reading.Rating, outcome.Reading.ReviewCount)
				return c.result(target, outcome.Reading, tier.Strategy)
			}
		}

		entry := logger.With(logger.Fields{
			logger.FieldStrategy: string(tier.Strategy),
			logger.FieldStatus:   outcome.Kind.String(),
		})
		if outcome.Kind == OutcomeFatal {
			entry.Warn(ctx, "Tier aborted cascade: %v", outcome.Err)
			break
		}
		entry.Debug(ctx, "Tier yielded nothing: %v", outcome.Err)
	}

	reading := c.Synthetic.Generate(c.Platform, target.HotelKey)
	logger.With(logger.Fields{
		logger.FieldStrategy: string(domain.SourceStrategySynthetic),
	}).Warn(ctx, "Using synthetic fallback for %s", target.HotelKey)
	return c.result(target, reading, domain.SourceStrategySynthetic)
}

func (c *Cascade) checkBounds(r Reading) error {
	if r.Rating < 0 || r.Rating > c.ScaleMax {
		return &domain.ParseError{
			Strategy: "bounds",
			Err:      fmt.Errorf("rating %.2f outside [0, %.1f]", r.Rating, c.ScaleMax),
		}
	}
	if r.ReviewCount < 0 {
		return &domain.ParseError{
			Strategy: "bounds",
			Err:      fmt.Errorf("negative review count %d", r.ReviewCount),
		}
	}
	return nil
}

func (c *Cascade) result(target domain.HotelTarget, r Reading, strategy domain.SourceStrategy) domain.ExtractionResult {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return domain.ExtractionResult{
		HotelKey:       target.HotelKey,
		Platform:       c.Platform,
		Locator:        target.Locator,
		Rating:         r.Rating,
		ReviewCount:    r.ReviewCount,
		ScaleMax:       c.ScaleMax,
		SourceStrategy: strategy,
		ExtractedAt:    now().UTC(),
	}
}

// ErrNotFound is returned by parse strategies that found nothing to read.
var ErrNotFound = errors.New("rating not found")
