// Package google reads hotel ratings from the Google Places API, with the
// public Maps search page as a fallback.
package google

import (
	"context"
	"encoding/json"
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
	displayName      = "Google Places"
	scaleMax         = 5.0
	defaultPlacesURL = "https://maps.googleapis.com/maps/api"
	defaultMapsURL   = "https://www.google.com/maps/search/"
	defaultLanguage  = "pt-BR"
)

var (
	starsPattern   = regexp.MustCompile(`(?i)(\d(?:[.,]\d)?)\s*(?:estrelas|stars|de 5)`)
	reviewsPattern = regexp.MustCompile(`(?i)([\d.,]+)\s*(?:avaliações|avaliacoes|comentários|reviews)`)
)

var scriptPatterns = []source.ScriptPattern{
	{
		Name:   "rating-value",
		Rating: regexp.MustCompile(`(?s)"ratingValue":\s*"?([0-9.,]+)"?.*?"reviewCount":\s*"?([\d.,]+)"?`),
	},
	{
		Name:   "user-ratings-total",
		Rating: regexp.MustCompile(`(?s)"rating":\s*([0-9.]+).*?"user_ratings_total":\s*(\d+)`),
	},
}

// Config holds the Google adapter settings.
type Config struct {
	APIKey    string
	PlacesURL string
	MapsURL   string
	Language  string
	MinDelay  time.Duration
	MaxDelay  time.Duration
}

// Adapter implements source.Adapter for Google. The locator is a search term.
type Adapter struct {
	client      source.Sender
	apiKey      string
	placesURL   string
	mapsURL     string
	language    string
	apiProfile  *fetch.Profile
	pageProfile *fetch.Profile
	cascade     *source.Cascade
}

// NewAdapter creates a Google adapter. Without an API key the primary tier
// aborts the cascade.
func NewAdapter(client source.Sender, cfg Config) *Adapter {
	placesURL := strings.TrimSuffix(cfg.PlacesURL, "/")
	if placesURL == "" {
		placesURL = defaultPlacesURL
	}
	mapsURL := cfg.MapsURL
	if mapsURL == "" {
		mapsURL = defaultMapsURL
	}
	language := cfg.Language
	if language == "" {
		language = defaultLanguage
	}

	return &Adapter{
		client:    client,
		apiKey:    cfg.APIKey,
		placesURL: placesURL,
		mapsURL:   mapsURL,
		language:  language,
		apiProfile: &fetch.Profile{
			Platform: domain.PlatformGoogle,
			MinDelay: cfg.MinDelay,
			MaxDelay: cfg.MaxDelay,
			Headers:  map[string]string{"Accept": "application/json"},
		},
		pageProfile: &fetch.Profile{
			Platform: domain.PlatformGoogle,
			MinDelay: cfg.MinDelay,
			MaxDelay: cfg.MaxDelay,
			Headers:  map[string]string{"Referer": "https://www.google.com/"},
		},
		cascade: &source.Cascade{
			Platform: domain.PlatformGoogle,
			ScaleMax: scaleMax,
			Synthetic: source.SyntheticRange{
				MinRating:  4.0,
				MaxRating:  4.9,
				MinReviews: 100,
				MaxReviews: 2500,
			},
		},
	}
}

func (a *Adapter) Platform() domain.Platform { return domain.PlatformGoogle }

func (a *Adapter) DisplayName() string { return displayName }

func (a *Adapter) ScaleMax() float64 { return scaleMax }

// ValidateLocator requires a non-empty search term.
func (a *Adapter) ValidateLocator(locator string) error {
	if strings.TrimSpace(locator) == "" {
		return fmt.Errorf("google locator must be a non-empty search term")
	}
	return nil
}

// Extract asks the Places API, then the Maps search page.
func (a *Adapter) Extract(ctx context.Context, target domain.HotelTarget) domain.ExtractionResult {
	query := strings.TrimSpace(target.Locator)
	page := source.NewPageLoader(func(ctx context.Context) (*fetch.Response, error) {
		return a.client.Send(ctx, a.pageProfile, &fetch.Request{
			URL:   a.mapsURL,
			Query: map[string]string{"api": "1", "query": query, "hl": a.language},
		})
	})

	return a.cascade.Run(ctx, target, []source.Tier{
		{
			Strategy: domain.SourceStrategyPrimaryAPI,
			Run: func(ctx context.Context) source.Outcome {
				return a.queryPlaces(ctx, query)
			},
		},
		source.HTMLTier(page, htmlStrategies),
		source.ScriptTier(page, scriptPatterns),
	})
}

type findPlaceResponse struct {
	Status     string `json:"status"`
	Candidates []struct {
		PlaceID string `json:"place_id"`
	} `json:"candidates"`
}

type detailsResponse struct {
	Status string `json:"status"`
	Result *struct {
		Name             string   `json:"name"`
		Rating           *float64 `json:"rating"`
		UserRatingsTotal *int     `json:"user_ratings_total"`
		URL              string   `json:"url"`
	} `json:"result"`
}

func (a *Adapter) queryPlaces(ctx context.Context, query string) source.Outcome {
	if a.apiKey == "" {
		return source.Fatal(&domain.ConfigurationError{Platform: domain.PlatformGoogle, Reason: "GOOGLE_API_KEY is not set"})
	}

	var found findPlaceResponse
	if outcome, ok := a.getJSON(ctx, "/place/findplacefromtext/json", map[string]string{
		"input":     query,
		"inputtype": "textquery",
		"fields":    "place_id",
		"language":  a.language,
		"key":       a.apiKey,
	}, &found); !ok {
		return outcome
	}
	if outcome, ok := checkStatus(found.Status); !ok {
		return outcome
	}
	if len(found.Candidates) == 0 || found.Candidates[0].PlaceID == "" {
		return source.TryNext(&domain.ParseError{Strategy: "places", Err: fmt.Errorf("no candidates for %q", query)})
	}

	var details detailsResponse
	if outcome, ok := a.getJSON(ctx, "/place/details/json", map[string]string{
		"place_id": found.Candidates[0].PlaceID,
		"fields":   "name,rating,user_ratings_total,url",
		"language": a.language,
		"key":      a.apiKey,
	}, &details); !ok {
		return outcome
	}
	if outcome, ok := checkStatus(details.Status); !ok {
		return outcome
	}
	if details.Result == nil || details.Result.Rating == nil || details.Result.UserRatingsTotal == nil {
		return source.TryNext(&domain.ParseError{Strategy: "places", Err: fmt.Errorf("incomplete place details")})
	}

	return source.OK(source.Reading{
		Rating:      *details.Result.Rating,
		ReviewCount: *details.Result.UserRatingsTotal,
	})
}

// getJSON returns ok=false with the outcome to report when the call fails.
func (a *Adapter) getJSON(ctx context.Context, path string, query map[string]string, out interface{}) (source.Outcome, bool) {
	resp, err := a.client.Send(ctx, a.apiProfile, &fetch.Request{
		URL:   a.placesURL + path,
		Query: query,
	})
	if err != nil {
		return source.TryNext(err), false
	}
	if !resp.OK() {
		return source.TryNext(fmt.Errorf("places api returned status %d", resp.StatusCode)), false
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return source.TryNext(&domain.ParseError{Strategy: "places", Err: err}), false
	}
	return source.Outcome{}, true
}

// checkStatus maps a Places API status. A denied key will not work for any
// other hotel either, so it aborts the cascade.
func checkStatus(status string) (source.Outcome, bool) {
	switch status {
	case "OK":
		return source.Outcome{}, true
	case "REQUEST_DENIED":
		return source.Fatal(&domain.ConfigurationError{Platform: domain.PlatformGoogle, Reason: "places api denied the request"}), false
	default:
		return source.TryNext(&domain.ParseError{Strategy: "places", Err: fmt.Errorf("status %s", status)}), false
	}
}

var htmlStrategies = []source.HTMLStrategy{
	{Name: "aria-label", Read: readAriaLabels},
}

// readAriaLabels reads "4,5 estrelas" and "1.234 avaliações" style labels,
// which may sit on one element or on two neighbours.
func readAriaLabels(doc *goquery.Document) (source.Reading, bool) {
	var (
		rating                float64
		count                 int
		haveRating, haveCount bool
	)
	doc.Find("[aria-label]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		label, _ := s.Attr("aria-label")
		if !haveRating {
			if m := starsPattern.FindStringSubmatch(label); len(m) == 2 {
				rating, haveRating = source.ParseRating(m[1])
			}
		}
		if !haveCount {
			if m := reviewsPattern.FindStringSubmatch(label); len(m) == 2 {
				count, haveCount = source.ParseCount(m[1])
			}
		}
		return !(haveRating && haveCount)
	})
	if !haveRating || !haveCount {
		return source.Reading{}, false
	}
	return source.Reading{Rating: rating, ReviewCount: count}, true
}
