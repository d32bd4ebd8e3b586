package booking

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/hotelrank/internal/domain"
	"github.com/timmy/hotelrank/internal/fetch"
)

func newTestAdapter() *Adapter {
	return NewAdapter(fetch.NewClient(fetch.Config{Timeout: time.Second}), Config{})
}

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		wantStrategy domain.SourceStrategy
		wantRating   float64
		wantReviews  int
	}{
		{
			name:   "data-review-score attribute",
			status: http.StatusOK,
			body: `<html><body>
				<div data-review-score="8.7">Fantástico</div>
				<span data-tab-link="reviews">1.999 avaliações</span>
			</body></html>`,
			wantStrategy: domain.SourceStrategyHTMLParse,
			wantRating:   8.7,
			wantReviews:  1999,
		},
		{
			name:   "review score component",
			status: http.StatusOK,
			body: `<html><body>
				<div data-testid="review-score-right-component">
					<div class="f63b14ab7a dff2e52086">Com nota 9,1</div>
					<div class="fff1944c52">2,345 reviews</div>
				</div>
			</body></html>`,
			wantStrategy: domain.SourceStrategyHTMLParse,
			wantRating:   9.1,
			wantReviews:  2345,
		},
		{
			name:   "embedded review summary",
			status: http.StatusOK,
			body: `<html><body><script>
				window.data = {"travel_product_review_summary": {"review_score": 8.9, "review_number": 412}};
			</script></body></html>`,
			wantStrategy: domain.SourceStrategyScriptExtract,
			wantRating:   8.9,
			wantReviews:  412,
		},
		{
			name:         "rating without count is not completed",
			status:       http.StatusOK,
			body:         `<html><body><div data-review-score="8.2"></div></body></html>`,
			wantStrategy: domain.SourceStrategySynthetic,
		},
		{
			name:         "blocked page",
			status:       http.StatusForbidden,
			body:         "denied",
			wantStrategy: domain.SourceStrategySynthetic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(t, tt.status, tt.body)
			target := domain.HotelTarget{HotelKey: "salinas", Platform: domain.PlatformBooking, Locator: srv.URL + "/hotel/br/salinas.html"}

			got := newTestAdapter().Extract(context.Background(), target)

			assert.Equal(t, tt.wantStrategy, got.SourceStrategy)
			assert.Equal(t, 10.0, got.ScaleMax)
			assert.Equal(t, domain.PlatformBooking, got.Platform)
			if tt.wantStrategy != domain.SourceStrategySynthetic {
				assert.Equal(t, tt.wantRating, got.Rating)
				assert.Equal(t, tt.wantReviews, got.ReviewCount)
			} else {
				assert.GreaterOrEqual(t, got.Rating, 8.5)
				assert.LessOrEqual(t, got.Rating, 9.3)
				assert.GreaterOrEqual(t, got.ReviewCount, 500)
				assert.LessOrEqual(t, got.ReviewCount, 3000)
			}
		})
	}
}

func TestExtractUnreachableHost(t *testing.T) {
	target := domain.HotelTarget{HotelKey: "kenoa", Platform: domain.PlatformBooking, Locator: "http://127.0.0.1:1/hotel/br/kenoa.html"}

	got := newTestAdapter().Extract(context.Background(), target)
	require.Equal(t, domain.SourceStrategySynthetic, got.SourceStrategy)
	assert.GreaterOrEqual(t, got.Rating, 0.0)
	assert.LessOrEqual(t, got.Rating, scaleMax)
	assert.GreaterOrEqual(t, got.ReviewCount, 0)
}

func TestValidateLocator(t *testing.T) {
	a := newTestAdapter()
	assert.NoError(t, a.ValidateLocator("https://www.booking.com/hotel/br/salinas-maragogi.pt-br.html"))
	assert.Error(t, a.ValidateLocator("www.booking.com/hotel/br/x.html"))
	assert.Error(t, a.ValidateLocator("https://www.booking.com/searchresults.html"))
	assert.Error(t, a.ValidateLocator("ftp://www.booking.com/hotel/br/x.html"))
}
