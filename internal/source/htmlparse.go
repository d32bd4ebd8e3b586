package source

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/timmy/hotelrank/internal/domain"
)

var (
	ratingPattern = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	countPattern  = regexp.MustCompile(`\d[\d.,\s]*`)
)

// HTMLStrategy reads a rating and review count from a parsed page.
type HTMLStrategy struct {
	Name string
	Read func(doc *goquery.Document) (Reading, bool)
}

// HTMLTier builds the html-parse tier over the shared page. Strategies are
// tried in order; the first complete reading wins.
func HTMLTier(page *PageLoader, strategies []HTMLStrategy) Tier {
	return Tier{
		Strategy: domain.SourceStrategyHTMLParse,
		Run: func(ctx context.Context) Outcome {
			p, err := page.Load(ctx)
			if err != nil {
				return TryNext(err)
			}
			doc, err := p.Document()
			if err != nil {
				return TryNext(&domain.ParseError{Strategy: "html", Err: err})
			}
			for _, s := range strategies {
				if r, ok := s.Read(doc); ok {
					return OK(r)
				}
			}
			return TryNext(&domain.ParseError{Strategy: "html", Err: ErrNotFound})
		},
	}
}

// ParseRating reads the first decimal number in text. A comma decimal
// separator is accepted.
func ParseRating(text string) (float64, bool) {
	m := ratingPattern.FindString(text)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseCount reads the first integer in text, ignoring thousands separators
// such as "1.999", "1,999" or "1 999".
func ParseCount(text string) (int, bool) {
	m := countPattern.FindString(text)
	if m == "" {
		return 0, false
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, m)
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

// FirstText returns the trimmed text of the first non-empty match of selector.
func FirstText(doc *goquery.Document, selector string) (string, bool) {
	var out string
	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if t := strings.TrimSpace(s.Text()); t != "" {
			out = t
			return false
		}
		return true
	})
	return out, out != ""
}

// FirstAttr returns the first non-empty value of attr among matches of selector.
func FirstAttr(doc *goquery.Document, selector, attr string) (string, bool) {
	var out string
	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
			out = strings.TrimSpace(v)
			return false
		}
		return true
	})
	return out, out != ""
}

// FindCount scans the document text for the first match of pattern and
// parses its first group as a review count.
func FindCount(doc *goquery.Document, pattern *regexp.Regexp) (int, bool) {
	m := pattern.FindStringSubmatch(doc.Text())
	if len(m) < 2 {
		return 0, false
	}
	return ParseCount(m[1])
}
