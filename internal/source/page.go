package source

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/timmy/hotelrank/internal/fetch"
)

// Page is a fetched platform page shared by the HTML and script tiers of one extraction.
type Page struct {
	Body []byte

	docOnce sync.Once
	doc     *goquery.Document
	docErr  error
}

// Document parses the body once and returns the goquery document.
func (p *Page) Document() (*goquery.Document, error) {
	p.docOnce.Do(func() {
		p.doc, p.docErr = goquery.NewDocumentFromReader(bytes.NewReader(p.Body))
		if p.docErr != nil {
			p.docErr = fmt.Errorf("failed to parse HTML: %w", p.docErr)
		}
	})
	return p.doc, p.docErr
}

// PageLoader fetches a page at most once, however many tiers ask for it.
type PageLoader struct {
	fetch func(ctx context.Context) (*fetch.Response, error)

	once sync.Once
	page *Page
	err  error
}

// NewPageLoader wraps a fetch function.
func NewPageLoader(fn func(ctx context.Context) (*fetch.Response, error)) *PageLoader {
	return &PageLoader{fetch: fn}
}

// Load returns the page, fetching it on first use. A non-2xx status is an error.
func (l *PageLoader) Load(ctx context.Context) (*Page, error) {
	l.once.Do(func() {
		resp, err := l.fetch(ctx)
		if err != nil {
			l.err = err
			return
		}
		if !resp.OK() {
			l.err = fmt.Errorf("page returned status %d", resp.StatusCode)
			return
		}
		l.page = &Page{Body: resp.Body}
	})
	return l.page, l.err
}
