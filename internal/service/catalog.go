package service

import (
	"github.com/timmy/hotelrank/internal/config"
	"github.com/timmy/hotelrank/internal/domain"
)

// Catalog is the ordered set of configured hotels.
// Its order drives both the scrape order and the consolidation output order.
type Catalog struct {
	hotels []domain.Hotel
	index  map[string]int
}

// NewCatalog creates a catalog; hotels keep the order given.
func NewCatalog(hotels []domain.Hotel) *Catalog {
	c := &Catalog{index: make(map[string]int, len(hotels))}
	for _, h := range hotels {
		if _, dup := c.index[h.Key]; dup {
			continue
		}
		c.index[h.Key] = len(c.hotels)
		c.hotels = append(c.hotels, h)
	}
	return c
}

// CatalogFromConfig builds the catalog from configured hotels.
// A hotel without a name gets one derived from its key.
func CatalogFromConfig(hotels []config.HotelConfig) *Catalog {
	out := make([]domain.Hotel, 0, len(hotels))
	for _, hc := range hotels {
		name := hc.Name
		if name == "" {
			name = config.FormatHotelName(hc.Key)
		}
		locators := make(map[domain.Platform]string, len(hc.Targets))
		for platform, locator := range hc.Targets {
			locators[domain.Platform(platform)] = locator
		}
		out = append(out, domain.Hotel{Key: hc.Key, DisplayName: name, Locators: locators})
	}
	return NewCatalog(out)
}

// Hotels returns every hotel in catalog order.
func (c *Catalog) Hotels() []domain.Hotel {
	return append([]domain.Hotel(nil), c.hotels...)
}

// Has reports whether key is a configured hotel.
func (c *Catalog) Has(key string) bool {
	_, ok := c.index[key]
	return ok
}

// DisplayName returns the configured name of a hotel.
func (c *Catalog) DisplayName(key string) (string, bool) {
	i, ok := c.index[key]
	if !ok {
		return "", false
	}
	return c.hotels[i].DisplayName, true
}

// Targets returns the hotels configured on platform in catalog order,
// restricted to keys when it is not empty.
func (c *Catalog) Targets(platform domain.Platform, keys []string) []domain.HotelTarget {
	var only map[string]bool
	if len(keys) > 0 {
		only = make(map[string]bool, len(keys))
		for _, k := range keys {
			only[k] = true
		}
	}

	var targets []domain.HotelTarget
	for _, h := range c.hotels {
		if only != nil && !only[h.Key] {
			continue
		}
		if t, ok := h.Target(platform); ok {
			targets = append(targets, t)
		}
	}
	return targets
}

// CountFor returns how many hotels have a locator on platform.
func (c *Catalog) CountFor(platform domain.Platform) int {
	return len(c.Targets(platform, nil))
}

func (c *Catalog) position(key string) (int, bool) {
	i, ok := c.index[key]
	return i, ok
}
