package config

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// hotelPlatforms are the variable prefixes recognised in a hotels file.
var hotelPlatforms = []string{"tripadvisor", "booking", "google", "decolar"}

// lowercaseParticles stay lowercase when a hotel key is turned into a display name.
var lowercaseParticles = map[string]bool{
	"de": true, "da": true, "do": true, "das": true, "dos": true, "e": true,
}

// namePrefixes are leading words that already identify a lodging.
var namePrefixes = []string{"hotel", "maragogi", "pousada", "resort"}

// LoadHotelsFile reads PLATFORM_HOTEL_KEY=locator lines and groups them per hotel.
// Hotels keep the order in which they first appear. A missing file yields no hotels.
func LoadHotelsFile(path string) ([]HotelConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read hotels file: %w", err)
	}

	vars, err := godotenv.UnmarshalBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse hotels file: %w", err)
	}
	return HotelsFromVars(vars, dotenvKeys(data, vars)), nil
}

// dotenvKeys lists the variable names of a dotenv file in file order.
// Names not present in vars, such as text inside multi-line values, are skipped.
func dotenvKeys(data []byte, vars map[string]string) []string {
	var keys []string
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		sep := strings.IndexAny(line, "=:")
		if sep < 0 {
			continue
		}
		name := strings.TrimSpace(line[:sep])
		if seen[name] {
			continue
		}
		if _, ok := vars[name]; ok {
			seen[name] = true
			keys = append(keys, name)
		}
	}
	return keys
}

// HotelsFromVars builds hotel definitions from PLATFORM_HOTEL_KEY=locator pairs.
// Keys ending in _ID or _API_KEY are settings, not hotels. Hotels follow the
// first appearance of any of their variables in order; hotels with no variable
// in order come last, sorted by key.
func HotelsFromVars(vars map[string]string, order []string) []HotelConfig {
	b := hotelBuilder{vars: vars, byKey: make(map[string]*HotelConfig)}
	listed := make(map[string]bool, len(order))
	for _, name := range order {
		if _, ok := vars[name]; ok && !listed[name] {
			listed[name] = true
			b.add(name)
		}
	}

	ordered := len(b.keys)
	for name := range vars {
		if !listed[name] {
			b.add(name)
		}
	}
	sort.Strings(b.keys[ordered:])

	hotels := make([]HotelConfig, 0, len(b.keys))
	for _, key := range b.keys {
		hotels = append(hotels, *b.byKey[key])
	}
	return hotels
}

type hotelBuilder struct {
	vars  map[string]string
	byKey map[string]*HotelConfig
	keys  []string
}

func (b *hotelBuilder) add(name string) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	if strings.HasSuffix(upper, "_ID") || strings.HasSuffix(upper, "_API_KEY") {
		return
	}
	value := strings.TrimSpace(b.vars[name])
	if value == "" {
		return
	}
	for _, platform := range hotelPlatforms {
		prefix := strings.ToUpper(platform) + "_"
		if !strings.HasPrefix(upper, prefix) || len(upper) == len(prefix) {
			continue
		}
		rawKey := upper[len(prefix):]
		key := strings.ToLower(rawKey)
		h, ok := b.byKey[key]
		if !ok {
			h = &HotelConfig{
				Key:     key,
				Name:    FormatHotelName(rawKey),
				Targets: make(map[string]string),
			}
			b.byKey[key] = h
			b.keys = append(b.keys, key)
		}
		h.Targets[platform] = value
		return
	}
}

// FormatHotelName turns a key such as PRAIA_DE_MARAGOGI into "Hotel Praia de Maragogi".
func FormatHotelName(key string) string {
	title := cases.Title(language.BrazilianPortuguese)
	words := strings.Fields(strings.ReplaceAll(key, "_", " "))
	for i, w := range words {
		lower := strings.ToLower(w)
		if lowercaseParticles[lower] {
			words[i] = lower
			continue
		}
		words[i] = title.String(lower)
	}
	name := strings.Join(words, " ")

	lower := strings.ToLower(name)
	for _, prefix := range namePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return name
		}
	}
	return "Hotel " + name
}
