package source

import (
	"context"
	"fmt"
	"net/url"

	"github.com/timmy/hotelrank/internal/fetch"
)

// Sender sends a paced, fingerprinted request. *fetch.Client implements it.
type Sender interface {
	Send(ctx context.Context, profile *fetch.Profile, req *fetch.Request) (*fetch.Response, error)
}

// FetchPage returns a loader that GETs pageURL once through client.
func FetchPage(client Sender, profile *fetch.Profile, pageURL string) *PageLoader {
	return NewPageLoader(func(ctx context.Context) (*fetch.Response, error) {
		return client.Send(ctx, profile, &fetch.Request{URL: pageURL})
	})
}

// ParseHTTPURL parses an absolute http(s) locator.
func ParseHTTPURL(locator string) (*url.URL, error) {
	u, err := url.Parse(locator)
	if err != nil {
		return nil, fmt.Errorf("invalid locator %q: %w", locator, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("locator %q is not an http(s) URL", locator)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("locator %q has no host", locator)
	}
	return u, nil
}
