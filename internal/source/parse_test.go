package source

import (
	"context"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/hotelrank/internal/domain"
	"github.com/timmy/hotelrank/internal/fetch"
)

func TestParseRating(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"8.7", 8.7, true},
		{"Nota 8,7", 8.7, true},
		{"Avaliação: 9", 9, true},
		{"4.5 de 5 bolhas", 4.5, true},
		{"sem nota", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseRating(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"1.999 avaliações", 1999, true},
		{"1,999 reviews", 1999, true},
		{"12 345 opiniões", 12345, true},
		{"(87)", 87, true},
		{"nenhuma", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseCount(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func doc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return d
}

func TestScanJSONLD(t *testing.T) {
	d := doc(t, `<html><head>
<script type="application/ld+json">{"@type":"BreadcrumbList"}</script>
<script type="application/ld+json">{"@graph":[{"@type":"Hotel","aggregateRating":{"ratingValue":"4,5","reviewCount":"1.234"}}]}</script>
</head></html>`)

	got, ok := ScanJSONLD(d)
	require.True(t, ok)
	assert.Equal(t, Reading{Rating: 4.5, ReviewCount: 1234}, got)

	_, ok = ScanJSONLD(doc(t, `<html><script type="application/ld+json">not json</script></html>`))
	assert.False(t, ok)
}

func staticLoader(body string, calls *atomic.Int32) *PageLoader {
	return NewPageLoader(func(context.Context) (*fetch.Response, error) {
		calls.Add(1)
		return &fetch.Response{StatusCode: 200, Body: []byte(body)}, nil
	})
}

func TestTiersShareOnePageFetch(t *testing.T) {
	var calls atomic.Int32
	page := staticLoader(`<html><body><script>var x = {"review_score": 8.9, "other": 1, "review_number": 321};</script></body></html>`, &calls)

	html := HTMLTier(page, []HTMLStrategy{{
		Name: "data-review-score",
		Read: func(d *goquery.Document) (Reading, bool) {
			v, ok := FirstAttr(d, "[data-review-score]", "data-review-score")
			if !ok {
				return Reading{}, false
			}
			r, ok := ParseRating(v)
			return Reading{Rating: r}, ok
		},
	}})
	script := ScriptTier(page, []ScriptPattern{{
		Name:   "review_score",
		Rating: regexp.MustCompile(`"review_score":\s*([0-9.]+).*?"review_number":\s*(\d+)`),
	}})

	ctx := context.Background()
	out := html.Run(ctx)
	assert.Equal(t, OutcomeTryNext, out.Kind)

	out = script.Run(ctx)
	require.Equal(t, OutcomeOK, out.Kind)
	assert.Equal(t, Reading{Rating: 8.9, ReviewCount: 321}, out.Reading)
	assert.Equal(t, domain.SourceStrategyScriptExtract, script.Strategy)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPageLoaderRejectsErrorStatus(t *testing.T) {
	loader := NewPageLoader(func(context.Context) (*fetch.Response, error) {
		return &fetch.Response{StatusCode: 403}, nil
	})
	_, err := loader.Load(context.Background())
	assert.ErrorContains(t, err, "403")
}

func TestFindCount(t *testing.T) {
	d := doc(t, `<div><span>Fantástico</span> <span>1.999 avaliações</span></div>`)
	n, ok := FindCount(d, regexp.MustCompile(`([\d.,]+)\s*(?:avalia|review)`))
	require.True(t, ok)
	assert.Equal(t, 1999, n)
}
