// Package decolar scrapes hotel scores from Decolar hotel pages.
package decolar

import (
	"context"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/timmy/hotelrank/internal/domain"
	"github.com/timmy/hotelrank/internal/fetch"
	"github.com/timmy/hotelrank/internal/source"
)

const (
	displayName = "Decolar"
	scaleMax    = 10.0
)

var (
	hotelIDPattern  = regexp.MustCompile(`/h-([A-Za-z0-9]+)`)
	outOfTenPattern = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(?:de\s*10|/\s*10)\b`)
	reviewsPattern  = regexp.MustCompile(`(?i)([\d.,]+)\s*(?:avaliações|opiniões|comentários|reviews)`)
)

var scriptPatterns = []source.ScriptPattern{
	{
		Name:   "score",
		Rating: regexp.MustCompile(`(?is)"score":\s*"?(\d+(?:\.\d+)?)"?.*?"review_count":\s*"?(\d+)"?`),
	},
	{
		Name:   "rating",
		Rating: regexp.MustCompile(`(?is)"rating":\s*(\d+(?:\.\d+)?).*?"reviewCount":\s*(\d+)`),
	},
	{
		Name:   "aggregate-rating",
		Rating: regexp.MustCompile(`(?is)"aggregateRating"[^}]*"ratingValue":\s*"?(\d+(?:\.\d+)?)"?`),
		Count:  regexp.MustCompile(`(?is)"aggregateRating"[^}]*"reviewCount":\s*"?(\d+)"?`),
	},
}

// Config holds the Decolar adapter settings.
type Config struct {
	MinDelay time.Duration
	MaxDelay time.Duration
}

// Adapter implements source.Adapter for Decolar.
type Adapter struct {
	client  source.Sender
	profile *fetch.Profile
	cascade *source.Cascade
}

// NewAdapter creates a Decolar adapter.
func NewAdapter(client source.Sender, cfg Config) *Adapter {
	return &Adapter{
		client: client,
		profile: &fetch.Profile{
			Platform: domain.PlatformDecolar,
			MinDelay: cfg.MinDelay,
			MaxDelay: cfg.MaxDelay,
			Headers: map[string]string{
				"Referer":        "https://www.google.com/",
				"Cache-Control":  "no-cache",
				"Pragma":         "no-cache",
				"Sec-Fetch-Site": "cross-site",
			},
			Cookies: sessionCookies,
		},
		cascade: &source.Cascade{
			Platform: domain.PlatformDecolar,
			ScaleMax: scaleMax,
			Synthetic: source.SyntheticRange{
				MinRating:  8.0,
				MaxRating:  9.5,
				MinReviews: 150,
				MaxReviews: 600,
			},
		},
	}
}

func (a *Adapter) Platform() domain.Platform { return domain.PlatformDecolar }

func (a *Adapter) DisplayName() string { return displayName }

func (a *Adapter) ScaleMax() float64 { return scaleMax }

// ValidateLocator requires a hotel URL with an /h-<id> segment.
func (a *Adapter) ValidateLocator(locator string) error {
	if _, err := source.ParseHTTPURL(locator); err != nil {
		return err
	}
	if _, err := HotelID(locator); err != nil {
		return err
	}
	return nil
}

// HotelID extracts the hotel id from a Decolar URL.
func HotelID(locator string) (string, error) {
	m := hotelIDPattern.FindStringSubmatch(locator)
	if len(m) != 2 {
		return "", fmt.Errorf("decolar locator %q has no /h-<id> segment", locator)
	}
	return m[1], nil
}

// Extract reads the hotel page and falls back to a synthetic score. A page
// showing a score but no review count does not count as a reading.
func (a *Adapter) Extract(ctx context.Context, target domain.HotelTarget) domain.ExtractionResult {
	page := source.FetchPage(a.client, a.profile, target.Locator)
	return a.cascade.Run(ctx, target, []source.Tier{
		source.HTMLTier(page, htmlStrategies),
		source.ScriptTier(page, scriptPatterns),
	})
}

var htmlStrategies = []source.HTMLStrategy{
	{Name: "data-attributes", Read: readDataAttributes},
	{Name: "score-class", Read: readScoreClass},
	{Name: "out-of-ten", Read: readOutOfTen},
}

func readDataAttributes(doc *goquery.Document) (source.Reading, bool) {
	v, ok := source.FirstAttr(doc, "[data-score]", "data-score")
	if !ok {
		v, ok = source.FirstAttr(doc, "[data-rating]", "data-rating")
	}
	if !ok {
		return source.Reading{}, false
	}
	rating, ok := source.ParseRating(v)
	if !ok {
		return source.Reading{}, false
	}

	if c, ok := source.FirstAttr(doc, "[data-reviews]", "data-reviews"); ok {
		if n, ok := source.ParseCount(c); ok {
			return source.Reading{Rating: rating, ReviewCount: n}, true
		}
	}
	return withReviewCount(doc, rating)
}

func readScoreClass(doc *goquery.Document) (source.Reading, bool) {
	for _, sel := range []string{`[class*="score"]`, `[class*="rating"]`} {
		if rating, ok := firstNumber(doc, sel); ok {
			return withReviewCount(doc, rating)
		}
	}
	return source.Reading{}, false
}

func readOutOfTen(doc *goquery.Document) (source.Reading, bool) {
	m := outOfTenPattern.FindStringSubmatch(doc.Text())
	if len(m) != 2 {
		return source.Reading{}, false
	}
	rating, ok := source.ParseRating(m[1])
	if !ok {
		return source.Reading{}, false
	}
	return withReviewCount(doc, rating)
}

func withReviewCount(doc *goquery.Document, rating float64) (source.Reading, bool) {
	n, ok := source.FindCount(doc, reviewsPattern)
	if !ok {
		return source.Reading{}, false
	}
	return source.Reading{Rating: rating, ReviewCount: n}, true
}

// firstNumber returns the first match of selector whose own text is a plain score.
func firstNumber(doc *goquery.Document, selector string) (float64, bool) {
	var (
		out   float64
		found bool
	)
	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if text == "" || len(text) > 8 {
			return true
		}
		out, found = source.ParseRating(text)
		return !found
	})
	return out, found
}

// sessionCookies builds a fresh visitor session for every attempt.
func sessionCookies() map[string]string {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	return map[string]string{
		"trackerid":      uuid.NewString(),
		"xdesp-rand-usr": strconv.Itoa(100 + rand.IntN(900)),
		"_gcl_au":        "1.1." + strconv.FormatInt(1000000000+rand.Int64N(9000000000), 10) + "." + ts,
		"_gid":           "GA1.2." + strconv.Itoa(100000000+rand.IntN(900000000)) + "." + ts,
		"_ga":            "GA1.2." + strconv.Itoa(1000000+rand.IntN(9000000)) + "." + ts,
	}
}
