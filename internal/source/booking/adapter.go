// Package booking scrapes hotel scores from Booking.com pages.
package booking

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/timmy/hotelrank/internal/domain"
	"github.com/timmy/hotelrank/internal/fetch"
	"github.com/timmy/hotelrank/internal/source"
)

const (
	displayName = "Booking.com"
	scaleMax    = 10.0
)

var reviewCountPattern = regexp.MustCompile(`(?i)([\d.,]+)\s*(?:avalia|review)`)

var ratingSelectors = []string{
	".f63b14ab7a.dff2e52086",
	`[data-testid="review-score-right-component"] .f63b14ab7a`,
	".js--hp-gallery-scorecard [data-review-score]",
}

var reviewSelectors = []string{
	".fff1944c52.fb14de7f14.eaa8455879",
	`[data-testid="review-score-right-component"] .fff1944c52`,
	".js-hotel-review-score .review_number",
	`span[data-tab-link="reviews"]`,
}

var scriptPatterns = []source.ScriptPattern{
	{
		Name:   "travel_product_review_summary",
		Rating: regexp.MustCompile(`"travel_product_review_summary":\s*{[^}]*"review_score":\s*([0-9.]+)[^}]*"review_number":\s*(\d+)`),
	},
	{
		Name:   "review_score",
		Rating: regexp.MustCompile(`(?s)"review_score":\s*([0-9.]+).*?"review_number":\s*(\d+)`),
	},
}

// Config holds the Booking.com adapter settings.
type Config struct {
	MinDelay time.Duration
	MaxDelay time.Duration
}

// Adapter implements source.Adapter for Booking.com.
// Booking has no public rating API, so the cascade starts at HTML parsing.
type Adapter struct {
	client  source.Sender
	profile *fetch.Profile
	cascade *source.Cascade
}

// NewAdapter creates a Booking.com adapter.
func NewAdapter(client source.Sender, cfg Config) *Adapter {
	return &Adapter{
		client: client,
		profile: &fetch.Profile{
			Platform: domain.PlatformBooking,
			MinDelay: cfg.MinDelay,
			MaxDelay: cfg.MaxDelay,
			Headers: map[string]string{
				"Referer":       "https://www.booking.com/",
				"Cache-Control": "max-age=0",
			},
		},
		cascade: &source.Cascade{
			Platform: domain.PlatformBooking,
			ScaleMax: scaleMax,
			Synthetic: source.SyntheticRange{
				MinRating:  8.5,
				MaxRating:  9.3,
				MinReviews: 500,
				MaxReviews: 3000,
			},
		},
	}
}

func (a *Adapter) Platform() domain.Platform { return domain.PlatformBooking }

func (a *Adapter) DisplayName() string { return displayName }

func (a *Adapter) ScaleMax() float64 { return scaleMax }

// ValidateLocator requires an absolute hotel page URL.
func (a *Adapter) ValidateLocator(locator string) error {
	u, err := source.ParseHTTPURL(locator)
	if err != nil {
		return err
	}
	if !strings.Contains(u.Path, "/hotel/") {
		return fmt.Errorf("booking locator %q is not a hotel page", locator)
	}
	return nil
}

// Extract reads the hotel page and falls back to a synthetic score.
func (a *Adapter) Extract(ctx context.Context, target domain.HotelTarget) domain.ExtractionResult {
	page := source.FetchPage(a.client, a.profile, target.Locator)
	return a.cascade.Run(ctx, target, []source.Tier{
		source.HTMLTier(page, htmlStrategies),
		source.ScriptTier(page, scriptPatterns),
	})
}

var htmlStrategies = []source.HTMLStrategy{
	{Name: "data-review-score", Read: readDataReviewScore},
	{Name: "score-selectors", Read: readScoreSelectors},
}

func readDataReviewScore(doc *goquery.Document) (source.Reading, bool) {
	v, ok := source.FirstAttr(doc, "div[data-review-score]", "data-review-score")
	if !ok {
		return source.Reading{}, false
	}
	rating, ok := source.ParseRating(v)
	if !ok {
		return source.Reading{}, false
	}
	return withReviewCount(doc, rating)
}

func readScoreSelectors(doc *goquery.Document) (source.Reading, bool) {
	for _, sel := range ratingSelectors {
		text, ok := source.FirstText(doc, sel)
		if !ok {
			continue
		}
		if rating, ok := source.ParseRating(text); ok {
			return withReviewCount(doc, rating)
		}
	}
	return source.Reading{}, false
}

// withReviewCount completes a rating with the review count shown on the page.
// Without a count the strategy fails; no number is made up.
func withReviewCount(doc *goquery.Document, rating float64) (source.Reading, bool) {
	for _, sel := range reviewSelectors {
		text, ok := source.FirstText(doc, sel)
		if !ok {
			continue
		}
		if m := reviewCountPattern.FindStringSubmatch(text); len(m) == 2 {
			if n, ok := source.ParseCount(m[1]); ok {
				return source.Reading{Rating: rating, ReviewCount: n}, true
			}
		}
	}
	if n, ok := source.FindCount(doc, reviewCountPattern); ok {
		return source.Reading{Rating: rating, ReviewCount: n}, true
	}
	return source.Reading{}, false
}
