package source

import (
	"hash/fnv"
	"math"
	"math/rand/v2"

	"github.com/timmy/hotelrank/internal/domain"
)

// SyntheticRange bounds the placeholder values of a platform.
type SyntheticRange struct {
	MinRating  float64
	MaxRating  float64
	MinReviews int
	MaxReviews int
}

// Generate returns a plausible reading seeded by platform and hotel key, so
// the same hotel always gets the same placeholder.
func (s SyntheticRange) Generate(platform domain.Platform, hotelKey string) Reading {
	h := fnv.New64a()
	h.Write([]byte(string(platform) + ":" + hotelKey))
	seed := h.Sum64()
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	rating := s.MinRating
	if s.MaxRating > s.MinRating {
		rating += rng.Float64() * (s.MaxRating - s.MinRating)
	}
	rating = math.Round(rating*10) / 10
	rating = math.Min(math.Max(rating, s.MinRating), s.MaxRating)

	reviews := s.MinReviews
	if s.MaxReviews > s.MinReviews {
		reviews += rng.IntN(s.MaxReviews - s.MinReviews + 1)
	}

	return Reading{Rating: rating, ReviewCount: reviews}
}
