// Package tripadvisor scrapes hotel ratings from TripAdvisor's GraphQL
// endpoint, falling back to the public hotel page.
package tripadvisor

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
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
	displayName    = "TripAdvisor"
	scaleMax       = 5.0
	defaultBaseURL = "https://www.tripadvisor.com.br"
	defaultGeoID   = 644400
	graphQLPath    = "/data/graphql/ids"
	trackerConsent = "eyJvdXQiOiJTT0NJQUxfTUVESUEiLCJpbiI6IkFEVixBTkEsRlVOQ1RJT05BTCJ9"
)

var locationIDPattern = regexp.MustCompile(`-d(\d+)(?:[-.]|$)`)

var scriptPatterns = []source.ScriptPattern{
	{
		Name:   "location",
		Rating: regexp.MustCompile(`"rating":\s*([0-9.]+)[^{}]*?"numberOfReviews":\s*(\d+)`),
	},
	{
		Name:   "review_summary",
		Rating: regexp.MustCompile(`"responseData":\s*{[^{}]*?"rating":\s*([0-9.]+)[^{}]*?"count":\s*(\d+)`),
	},
}

// Config holds the TripAdvisor adapter settings.
type Config struct {
	BaseURL  string
	GeoID    int
	MinDelay time.Duration
	MaxDelay time.Duration
}

// Adapter implements source.Adapter for TripAdvisor.
type Adapter struct {
	client      source.Sender
	baseURL     string
	geoID       int
	apiProfile  *fetch.Profile
	pageProfile *fetch.Profile
	cascade     *source.Cascade
}

// NewAdapter creates a TripAdvisor adapter.
func NewAdapter(client source.Sender, cfg Config) *Adapter {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	geoID := cfg.GeoID
	if geoID == 0 {
		geoID = defaultGeoID
	}

	return &Adapter{
		client:  client,
		baseURL: baseURL,
		geoID:   geoID,
		apiProfile: &fetch.Profile{
			Platform: domain.PlatformTripAdvisor,
			MinDelay: cfg.MinDelay,
			MaxDelay: cfg.MaxDelay,
			Headers: map[string]string{
				"Accept":         "*/*",
				"Content-Type":   "application/json",
				"Origin":         baseURL,
				"Referer":        baseURL + "/",
				"Cache-Control":  "no-cache",
				"Pragma":         "no-cache",
				"Sec-Fetch-Dest": "empty",
				"Sec-Fetch-Mode": "same-origin",
				"Sec-Fetch-Site": "same-origin",
			},
			Cookies: sessionCookies,
		},
		pageProfile: &fetch.Profile{
			Platform: domain.PlatformTripAdvisor,
			MinDelay: cfg.MinDelay,
			MaxDelay: cfg.MaxDelay,
			Headers: map[string]string{
				"Referer": "https://www.google.com/",
			},
			Cookies: sessionCookies,
		},
		cascade: &source.Cascade{
			Platform: domain.PlatformTripAdvisor,
			ScaleMax: scaleMax,
			Synthetic: source.SyntheticRange{
				MinRating:  4.0,
				MaxRating:  4.8,
				MinReviews: 200,
				MaxReviews: 3000,
			},
		},
	}
}

func (a *Adapter) Platform() domain.Platform { return domain.PlatformTripAdvisor }

func (a *Adapter) DisplayName() string { return displayName }

func (a *Adapter) ScaleMax() float64 { return scaleMax }

// ValidateLocator requires a hotel URL carrying a -d<location id> segment.
func (a *Adapter) ValidateLocator(locator string) error {
	if _, err := source.ParseHTTPURL(locator); err != nil {
		return err
	}
	if _, err := LocationID(locator); err != nil {
		return err
	}
	return nil
}

// LocationID extracts the numeric location id from a hotel URL.
func LocationID(locator string) (int, error) {
	m := locationIDPattern.FindStringSubmatch(locator)
	if len(m) != 2 {
		return 0, fmt.Errorf("tripadvisor locator %q has no -d<id> segment", locator)
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("tripadvisor locator %q: %w", locator, err)
	}
	return id, nil
}

// Extract queries the GraphQL endpoint, then the public page.
func (a *Adapter) Extract(ctx context.Context, target domain.HotelTarget) domain.ExtractionResult {
	page := source.FetchPage(a.client, a.pageProfile, target.Locator)
	return a.cascade.Run(ctx, target, []source.Tier{
		{
			Strategy: domain.SourceStrategyPrimaryAPI,
			Run: func(ctx context.Context) source.Outcome {
				return a.queryGraphQL(ctx, target.Locator)
			},
		},
		source.HTMLTier(page, htmlStrategies),
		source.ScriptTier(page, scriptPatterns),
	})
}

type graphQLQuery struct {
	Variables  map[string]interface{} `json:"variables"`
	Extensions graphQLExtensions      `json:"extensions"`
}

type graphQLExtensions struct {
	PreRegisteredQueryID string `json:"preRegisteredQueryId"`
}

type graphQLResult struct {
	Data struct {
		ReviewSummaryInfo []struct {
			ResponseData *reviewSummary `json:"responseData"`
		} `json:"reviewSummaryInfo"`
		Location  *locationSummary  `json:"location"`
		Locations []locationSummary `json:"locations"`
	} `json:"data"`
}

type reviewSummary struct {
	Rating *float64 `json:"rating"`
	Count  *int     `json:"count"`
}

type locationSummary struct {
	Rating          *float64 `json:"rating"`
	NumberOfReviews *int     `json:"numberOfReviews"`
}

func (a *Adapter) buildPayload(locationID int) []graphQLQuery {
	return []graphQLQuery{
		{
			Variables:  map[string]interface{}{"page": "Hotel_Review", "platform": "mobileweb"},
			Extensions: graphQLExtensions{PreRegisteredQueryID: "b4613962d98df032"},
		},
		{
			Variables:  map[string]interface{}{"locationId": locationID},
			Extensions: graphQLExtensions{PreRegisteredQueryID: "5b064920a1417d48"},
		},
		{
			Variables: map[string]interface{}{
				"deviceType":      "MOBILE",
				"trafficSource":   "ba",
				"locationId":      locationID,
				"geoId":           a.geoID,
				"servletName":     "Hotel_Review",
				"hotelTravelInfo": nil,
				"language":        "pt",
				"isJp":            false,
			},
			Extensions: graphQLExtensions{PreRegisteredQueryID: "85513b806d5405da"},
		},
		{
			Variables: map[string]interface{}{
				"locationId":       locationID,
				"trafficSource":    "ba",
				"deviceType":       "MOBILE",
				"servletName":      "Hotel_Review",
				"hotelTravelInfo":  nil,
				"withContactLinks": false,
			},
			Extensions: graphQLExtensions{PreRegisteredQueryID: "d9072109f7378ce1"},
		},
		{
			Variables: map[string]interface{}{
				"locationId":    locationID,
				"currencyCode":  "BRL",
				"sessionId":     sessionID(),
				"pageviewUid":   uuid.NewString(),
				"travelInfo":    nil,
				"requestNumber": 0,
				"filters":       nil,
				"route": map[string]interface{}{
					"page":   "Hotel_Review",
					"params": map[string]interface{}{"geoId": a.geoID, "detailId": locationID},
				},
				"application":        "HOTEL_DETAIL",
				"requestCaller":      "Hotel_Review",
				"loadReviewSnippets": true,
			},
			Extensions: graphQLExtensions{PreRegisteredQueryID: "b6da76ae151e9c7c"},
		},
	}
}

func (a *Adapter) queryGraphQL(ctx context.Context, locator string) source.Outcome {
	locationID, err := LocationID(locator)
	if err != nil {
		return source.TryNext(err)
	}

	resp, err := a.client.Send(ctx, a.apiProfile, &fetch.Request{
		Method: http.MethodPost,
		URL:    a.baseURL + graphQLPath,
		Body:   a.buildPayload(locationID),
	})
	if err != nil {
		return source.TryNext(err)
	}
	if !resp.OK() {
		return source.TryNext(fmt.Errorf("graphql returned status %d", resp.StatusCode))
	}

	reading, err := parseGraphQL(resp.Body)
	if err != nil {
		return source.TryNext(&domain.ParseError{Strategy: "graphql", Err: err})
	}
	return source.OK(reading)
}

// parseGraphQL walks the batch responses in order and takes the first
// review summary, location, or locations[0] block that has both numbers.
func parseGraphQL(body []byte) (source.Reading, error) {
	var batch []json.RawMessage
	if err := json.Unmarshal(body, &batch); err != nil {
		return source.Reading{}, fmt.Errorf("decode batch: %w", err)
	}

	for _, raw := range batch {
		var result graphQLResult
		if err := json.Unmarshal(raw, &result); err != nil {
			continue
		}
		data := result.Data

		if len(data.ReviewSummaryInfo) > 0 {
			if rs := data.ReviewSummaryInfo[0].ResponseData; rs != nil && rs.Rating != nil && rs.Count != nil {
				return source.Reading{Rating: *rs.Rating, ReviewCount: *rs.Count}, nil
			}
		}
		if loc := data.Location; loc != nil && loc.Rating != nil && loc.NumberOfReviews != nil {
			return source.Reading{Rating: *loc.Rating, ReviewCount: *loc.NumberOfReviews}, nil
		}
		if len(data.Locations) > 0 {
			if loc := data.Locations[0]; loc.Rating != nil && loc.NumberOfReviews != nil {
				return source.Reading{Rating: *loc.Rating, ReviewCount: *loc.NumberOfReviews}, nil
			}
		}
	}
	return source.Reading{}, source.ErrNotFound
}

var htmlStrategies = []source.HTMLStrategy{
	{Name: "data-automation", Read: readDataAutomation},
	{Name: "bubble-label", Read: readBubbleLabel},
}

var bubbleLabelPattern = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(?:de|of)\s*5`)

func readDataAutomation(doc *goquery.Document) (source.Reading, bool) {
	ratingText, ok := source.FirstText(doc, `[data-automation="bubbleRatingValue"]`)
	if !ok {
		return source.Reading{}, false
	}
	rating, ok := source.ParseRating(ratingText)
	if !ok {
		return source.Reading{}, false
	}
	countText, ok := source.FirstText(doc, `[data-automation="bubbleReviewCount"], [data-automation="reviewCount"]`)
	if !ok {
		return source.Reading{}, false
	}
	count, ok := source.ParseCount(countText)
	if !ok {
		return source.Reading{}, false
	}
	return source.Reading{Rating: rating, ReviewCount: count}, true
}

func readBubbleLabel(doc *goquery.Document) (source.Reading, bool) {
	var rating float64
	found := false
	doc.Find(`[aria-label], title`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		label, _ := s.Attr("aria-label")
		if label == "" {
			label = s.Text()
		}
		if m := bubbleLabelPattern.FindStringSubmatch(label); len(m) == 2 {
			rating, found = source.ParseRating(m[1])
		}
		return !found
	})
	if !found {
		return source.Reading{}, false
	}
	count, ok := source.FindCount(doc, reviewCountPattern)
	if !ok {
		return source.Reading{}, false
	}
	return source.Reading{Rating: rating, ReviewCount: count}, true
}

var reviewCountPattern = regexp.MustCompile(`(?i)([\d.,]+)\s*(?:avalia|opini|review)`)

func sessionID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// sessionCookies builds a fresh visitor session for every attempt.
func sessionCookies() map[string]string {
	id := sessionID()
	now := time.Now()
	ts := now.Unix()
	return map[string]string{
		"TASID":          id,
		"TASession":      "V2ID." + id + "*SQ.1*LS.Hotel_Review*HS.recommended*ES.popularity*DS.5*SAS.popularity*FPS.oldFirst*FA.1*DF.0*TRA.true",
		"TATrkConsent":   trackerConsent,
		"OptanonConsent": "isGpcEnabled=0&datestamp=" + strings.ReplaceAll(now.Format("Mon+Jan+02+2006+15:04:05"), ":", "%3A"),
		"_ga":            fmt.Sprintf("GA1.1.%d.%d", 100000000+rand.IntN(900000000), ts),
		"_gcl_au":        fmt.Sprintf("1.1.%d.%d", 100000000+rand.IntN(900000000), ts),
	}
}
