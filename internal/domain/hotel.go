package domain

// Platform identifies one external rating source.
type Platform string

const (
	PlatformBooking     Platform = "booking"
	PlatformTripAdvisor Platform = "tripadvisor"
	PlatformGoogle      Platform = "google"
	PlatformDecolar     Platform = "decolar"
)

// AllPlatforms lists every platform the service knows how to scrape, in the
// order they are reported when a request does not name any.
var AllPlatforms = []Platform{
	PlatformTripAdvisor,
	PlatformBooking,
	PlatformGoogle,
	PlatformDecolar,
}

// String returns the platform identifier.
func (p Platform) String() string {
	return string(p)
}

// IsKnown reports whether p is one of AllPlatforms.
func (p Platform) IsKnown() bool {
	for _, known := range AllPlatforms {
		if p == known {
			return true
		}
	}
	return false
}

// Hotel is a configured hotel with its per-platform locators.
// Key is the stable identity shared across platforms; it is never derived
// from scraped text.
type Hotel struct {
	Key         string              `json:"key"`
	DisplayName string              `json:"display_name"`
	Locators    map[Platform]string `json:"locators"`
}

// Target returns the HotelTarget for the given platform, or false when the
// hotel has no locator configured there.
func (h Hotel) Target(platform Platform) (HotelTarget, bool) {
	locator, ok := h.Locators[platform]
	if !ok || locator == "" {
		return HotelTarget{}, false
	}
	return HotelTarget{
		HotelKey: h.Key,
		Platform: platform,
		Locator:  locator,
	}, true
}

// HotelTarget is one hotel as scraped on one platform.
type HotelTarget struct {
	HotelKey string   `json:"hotel_key"`
	Platform Platform `json:"platform"`
	Locator  string   `json:"locator"`
}
