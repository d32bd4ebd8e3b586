package tripadvisor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/hotelrank/internal/domain"
	"github.com/timmy/hotelrank/internal/fetch"
	"github.com/timmy/hotelrank/internal/source"
)

const hotelPath = "/Hotel_Review-g303-d123456-Reviews-Salinas_Maragogi.html"

type fixtureConfig struct {
	graphQLStatus int
	graphQLBody   string
	pageStatus    int
	pageBody      string
}

type fixture struct {
	fixtureConfig

	mu          sync.Mutex
	lastPayload []graphQLQuery
	lastCookie  string
}

func (f *fixture) start(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(graphQLPath, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.lastPayload = nil
		json.Unmarshal(body, &f.lastPayload)
		f.lastCookie = r.Header.Get("Cookie")
		f.mu.Unlock()
		w.WriteHeader(f.graphQLStatus)
		w.Write([]byte(f.graphQLBody))
	})
	mux.HandleFunc(hotelPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(f.pageStatus)
		w.Write([]byte(f.pageBody))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestAdapter(baseURL string) *Adapter {
	return NewAdapter(fetch.NewClient(fetch.Config{Timeout: time.Second}), Config{BaseURL: baseURL})
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name         string
		fx           fixtureConfig
		wantStrategy domain.SourceStrategy
		wantRating   float64
		wantReviews  int
	}{
		{
			name: "graphql review summary",
			fx: fixtureConfig{
				graphQLStatus: http.StatusOK,
				graphQLBody:   `[{"data":{"page":{}}},{"data":{"reviewSummaryInfo":[{"responseData":{"rating":4.5,"count":1234}}]}}]`,
				pageStatus:    http.StatusOK,
			},
			wantStrategy: domain.SourceStrategyPrimaryAPI,
			wantRating:   4.5,
			wantReviews:  1234,
		},
		{
			name: "graphql location block",
			fx: fixtureConfig{
				graphQLStatus: http.StatusOK,
				graphQLBody:   `[{"data":{"reviewSummaryInfo":[]}},{"data":{"location":{"rating":4.0,"numberOfReviews":87}}}]`,
				pageStatus:    http.StatusOK,
			},
			wantStrategy: domain.SourceStrategyPrimaryAPI,
			wantRating:   4.0,
			wantReviews:  87,
		},
		{
			name: "html page after graphql failure",
			fx: fixtureConfig{
				graphQLStatus: http.StatusInternalServerError,
				pageStatus:    http.StatusOK,
				pageBody: `<html><body>
					<div data-automation="bubbleRatingValue">4,5</div>
					<div data-automation="bubbleReviewCount">2.345 avaliações</div>
				</body></html>`,
			},
			wantStrategy: domain.SourceStrategyHTMLParse,
			wantRating:   4.5,
			wantReviews:  2345,
		},
		{
			name: "json-ld after unparseable graphql",
			fx: fixtureConfig{
				graphQLStatus: http.StatusOK,
				graphQLBody:   `{"errors":["blocked"]}`,
				pageStatus:    http.StatusOK,
				pageBody:      `<html><head><script type="application/ld+json">{"@type":"Hotel","aggregateRating":{"ratingValue":"4.0","reviewCount":"310"}}</script></head></html>`,
			},
			wantStrategy: domain.SourceStrategyScriptExtract,
			wantRating:   4.0,
			wantReviews:  310,
		},
		{
			name: "everything blocked",
			fx: fixtureConfig{
				graphQLStatus: http.StatusForbidden,
				pageStatus:    http.StatusForbidden,
			},
			wantStrategy: domain.SourceStrategySynthetic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := &fixture{fixtureConfig: tt.fx}
			srv := fx.start(t)
			target := domain.HotelTarget{HotelKey: "salinas", Platform: domain.PlatformTripAdvisor, Locator: srv.URL + hotelPath}

			got := newTestAdapter(srv.URL).Extract(context.Background(), target)

			assert.Equal(t, tt.wantStrategy, got.SourceStrategy)
			assert.Equal(t, 5.0, got.ScaleMax)
			if tt.wantStrategy == domain.SourceStrategySynthetic {
				assert.GreaterOrEqual(t, got.Rating, 4.0)
				assert.LessOrEqual(t, got.Rating, 4.8)
				return
			}
			assert.Equal(t, tt.wantRating, got.Rating)
			assert.Equal(t, tt.wantReviews, got.ReviewCount)
		})
	}
}

func TestGraphQLRequest(t *testing.T) {
	fx := &fixture{fixtureConfig: fixtureConfig{
		graphQLStatus: http.StatusOK,
		graphQLBody:   `[{"data":{"locations":[{"rating":3.5,"numberOfReviews":12}]}}]`,
	}}
	srv := fx.start(t)
	a := newTestAdapter(srv.URL)

	out := a.queryGraphQL(context.Background(), srv.URL+hotelPath)
	require.Equal(t, source.OutcomeOK, out.Kind)
	assert.Equal(t, source.Reading{Rating: 3.5, ReviewCount: 12}, out.Reading)

	fx.mu.Lock()
	defer fx.mu.Unlock()
	require.Len(t, fx.lastPayload, 5)
	assert.Equal(t, "5b064920a1417d48", fx.lastPayload[1].Extensions.PreRegisteredQueryID)
	assert.Equal(t, float64(123456), fx.lastPayload[1].Variables["locationId"])
	assert.Equal(t, float64(defaultGeoID), fx.lastPayload[2].Variables["geoId"])
	assert.Contains(t, fx.lastCookie, "TASID=")
	assert.Contains(t, fx.lastCookie, "TASession=V2ID.")
}

func TestParseGraphQL(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    source.Reading
		wantErr bool
	}{
		{"review summary wins over location", `[{"data":{"reviewSummaryInfo":[{"responseData":{"rating":4.5,"count":10}}],"location":{"rating":3,"numberOfReviews":1}}}]`, source.Reading{Rating: 4.5, ReviewCount: 10}, false},
		{"location missing count", `[{"data":{"location":{"rating":4.5}}}]`, source.Reading{}, true},
		{"locations array", `[{"data":{"locations":[{"rating":5,"numberOfReviews":3}]}}]`, source.Reading{Rating: 5, ReviewCount: 3}, false},
		{"malformed item skipped", `[{"data":{"location":"oops"}},{"data":{"location":{"rating":4,"numberOfReviews":2}}}]`, source.Reading{Rating: 4, ReviewCount: 2}, false},
		{"not a batch", `{"data":{}}`, source.Reading{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseGraphQL([]byte(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateLocator(t *testing.T) {
	a := newTestAdapter("")
	assert.NoError(t, a.ValidateLocator("https://www.tripadvisor.com.br/Hotel_Review-g303-d987-Reviews-X.html"))
	assert.Error(t, a.ValidateLocator("https://www.tripadvisor.com.br/Hotel_Review-g303-Reviews-X.html"))
	assert.Error(t, a.ValidateLocator("not a url -d123-"))

	id, err := LocationID("https://www.tripadvisor.com.br/Hotel_Review-g303-d987-Reviews-X.html")
	require.NoError(t, err)
	assert.Equal(t, 987, id)
}

func TestSessionCookiesAreFresh(t *testing.T) {
	first := sessionCookies()
	second := sessionCookies()
	assert.NotEqual(t, first["TASID"], second["TASID"])
	assert.Len(t, first["TASID"], 32)
	assert.Equal(t, trackerConsent, first["TATrkConsent"])
}
