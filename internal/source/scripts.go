package source

import (
	"context"
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/timmy/hotelrank/internal/domain"
)

// ScriptPattern finds a rating and review count in raw page text.
// When Count is nil, Rating must capture the count as its second group.
type ScriptPattern struct {
	Name   string
	Rating *regexp.Regexp
	Count  *regexp.Regexp
}

func (p ScriptPattern) read(body string) (Reading, bool) {
	m := p.Rating.FindStringSubmatch(body)
	if len(m) < 2 {
		return Reading{}, false
	}
	rating, ok := ParseRating(m[1])
	if !ok {
		return Reading{}, false
	}

	var countText string
	if p.Count == nil {
		if len(m) < 3 {
			return Reading{}, false
		}
		countText = m[2]
	} else {
		cm := p.Count.FindStringSubmatch(body)
		if len(cm) < 2 {
			return Reading{}, false
		}
		countText = cm[1]
	}
	count, ok := ParseCount(countText)
	if !ok {
		return Reading{}, false
	}
	return Reading{Rating: rating, ReviewCount: count}, true
}

// ScriptTier builds the script-extract tier over the shared page. JSON-LD
// aggregateRating blocks are checked before the regex patterns.
func ScriptTier(page *PageLoader, patterns []ScriptPattern) Tier {
	return Tier{
		Strategy: domain.SourceStrategyScriptExtract,
		Run: func(ctx context.Context) Outcome {
			p, err := page.Load(ctx)
			if err != nil {
				return TryNext(err)
			}
			if doc, err := p.Document(); err == nil {
				if r, ok := ScanJSONLD(doc); ok {
					return OK(r)
				}
			}
			body := string(p.Body)
			for _, pattern := range patterns {
				if r, ok := pattern.read(body); ok {
					return OK(r)
				}
			}
			return TryNext(&domain.ParseError{Strategy: "script", Err: ErrNotFound})
		},
	}
}

// ScanJSONLD looks for an aggregateRating in the page's JSON-LD blocks.
func ScanJSONLD(doc *goquery.Document) (Reading, bool) {
	var (
		out   Reading
		found bool
	)
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var v interface{}
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &v); err != nil {
			return true
		}
		out, found = findAggregateRating(v)
		return !found
	})
	return out, found
}

func findAggregateRating(v interface{}) (Reading, bool) {
	switch node := v.(type) {
	case map[string]interface{}:
		if agg, ok := node["aggregateRating"].(map[string]interface{}); ok {
			rating, rok := jsonRating(agg["ratingValue"])
			count, cok := jsonCount(agg["reviewCount"])
			if !cok {
				count, cok = jsonCount(agg["ratingCount"])
			}
			if rok && cok {
				return Reading{Rating: rating, ReviewCount: count}, true
			}
		}
		keys := make([]string, 0, len(node))
		for k := range node {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if r, ok := findAggregateRating(node[k]); ok {
				return r, true
			}
		}
	case []interface{}:
		for _, child := range node {
			if r, ok := findAggregateRating(child); ok {
				return r, true
			}
		}
	}
	return Reading{}, false
}

// jsonRating accepts JSON numbers and numeric strings such as "8,7".
func jsonRating(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		return ParseRating(n)
	}
	return 0, false
}

// jsonCount accepts JSON numbers and strings with thousands separators.
func jsonCount(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case string:
		return ParseCount(n)
	}
	return 0, false
}
