package google

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/hotelrank/internal/domain"
	"github.com/timmy/hotelrank/internal/fetch"
)

type fakeGoogle struct {
	findBody    string
	detailsBody string
	mapsBody    string

	mu      sync.Mutex
	paths   []string
	queries []url.Values
}

func (f *fakeGoogle) start(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.paths = append(f.paths, r.URL.Path)
		f.queries = append(f.queries, r.URL.Query())
		f.mu.Unlock()

		switch r.URL.Path {
		case "/api/place/findplacefromtext/json":
			w.Write([]byte(f.findBody))
		case "/api/place/details/json":
			w.Write([]byte(f.detailsBody))
		case "/maps/search/":
			w.Write([]byte(f.mapsBody))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (f *fakeGoogle) requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

func newTestAdapter(srvURL, apiKey string) *Adapter {
	return NewAdapter(fetch.NewClient(fetch.Config{Timeout: time.Second}), Config{
		APIKey:    apiKey,
		PlacesURL: srvURL + "/api",
		MapsURL:   srvURL + "/maps/search/",
	})
}

var target = domain.HotelTarget{HotelKey: "salinas", Platform: domain.PlatformGoogle, Locator: "Salinas Maragogi All Inclusive Resort"}

func TestExtractPlacesAPI(t *testing.T) {
	fake := &fakeGoogle{
		findBody:    `{"status":"OK","candidates":[{"place_id":"ChIJ123"}]}`,
		detailsBody: `{"status":"OK","result":{"name":"Salinas","rating":4.6,"user_ratings_total":1520}}`,
	}
	srv := fake.start(t)

	got := newTestAdapter(srv.URL, "test-key").Extract(context.Background(), target)

	assert.Equal(t, domain.SourceStrategyPrimaryAPI, got.SourceStrategy)
	assert.Equal(t, 4.6, got.Rating)
	assert.Equal(t, 1520, got.ReviewCount)
	assert.Equal(t, []string{"/api/place/findplacefromtext/json", "/api/place/details/json"}, fake.requests())

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, "Salinas Maragogi All Inclusive Resort", fake.queries[0].Get("input"))
	assert.Equal(t, "textquery", fake.queries[0].Get("inputtype"))
	assert.Equal(t, "test-key", fake.queries[0].Get("key"))
	assert.Equal(t, "ChIJ123", fake.queries[1].Get("place_id"))
	assert.Equal(t, "name,rating,user_ratings_total,url", fake.queries[1].Get("fields"))
}

func TestExtractWithoutAPIKeyGoesSynthetic(t *testing.T) {
	fake := &fakeGoogle{}
	srv := fake.start(t)

	got := newTestAdapter(srv.URL, "").Extract(context.Background(), target)

	assert.Equal(t, domain.SourceStrategySynthetic, got.SourceStrategy)
	assert.GreaterOrEqual(t, got.Rating, 4.0)
	assert.LessOrEqual(t, got.Rating, 4.9)
	assert.GreaterOrEqual(t, got.ReviewCount, 100)
	assert.LessOrEqual(t, got.ReviewCount, 2500)
	assert.Empty(t, fake.requests())
}

func TestExtractDeniedKeySkipsPage(t *testing.T) {
	fake := &fakeGoogle{findBody: `{"status":"REQUEST_DENIED","candidates":[]}`}
	srv := fake.start(t)

	got := newTestAdapter(srv.URL, "bad-key").Extract(context.Background(), target)

	assert.Equal(t, domain.SourceStrategySynthetic, got.SourceStrategy)
	assert.Equal(t, []string{"/api/place/findplacefromtext/json"}, fake.requests())
}

func TestExtractMapsPageFallback(t *testing.T) {
	fake := &fakeGoogle{
		findBody: `{"status":"ZERO_RESULTS","candidates":[]}`,
		mapsBody: `<html><body>
			<span role="img" aria-label="4,4 estrelas"></span>
			<button aria-label="2.118 avaliações"></button>
		</body></html>`,
	}
	srv := fake.start(t)

	got := newTestAdapter(srv.URL, "test-key").Extract(context.Background(), target)

	require.Equal(t, domain.SourceStrategyHTMLParse, got.SourceStrategy)
	assert.Equal(t, 4.4, got.Rating)
	assert.Equal(t, 2118, got.ReviewCount)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	last := fake.queries[len(fake.queries)-1]
	assert.Equal(t, "Salinas Maragogi All Inclusive Resort", last.Get("query"))
}

func TestExtractIncompleteDetails(t *testing.T) {
	fake := &fakeGoogle{
		findBody:    `{"status":"OK","candidates":[{"place_id":"ChIJ123"}]}`,
		detailsBody: `{"status":"OK","result":{"name":"Salinas","rating":4.6}}`,
		mapsBody:    `<html><script>{"ratingValue":"4.3","reviewCount":"77"}</script></html>`,
	}
	srv := fake.start(t)

	got := newTestAdapter(srv.URL, "test-key").Extract(context.Background(), target)

	assert.Equal(t, domain.SourceStrategyScriptExtract, got.SourceStrategy)
	assert.Equal(t, 4.3, got.Rating)
	assert.Equal(t, 77, got.ReviewCount)
}

func TestValidateLocator(t *testing.T) {
	a := newTestAdapter("http://unused", "")
	assert.NoError(t, a.ValidateLocator("Kenoa Resort Barra de São Miguel"))
	assert.Error(t, a.ValidateLocator("   "))
}
