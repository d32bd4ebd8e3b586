package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatHotelName(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"MARAGOGI_BRISA_EXCLUSIVE", "Maragogi Brisa Exclusive"},
		{"PRAIA_DE_MARAGOGI", "Hotel Praia de Maragogi"},
		{"POUSADA_DOS_COQUEIROS", "Pousada dos Coqueiros"},
		{"HOTEL_SOL_E_MAR", "Hotel Sol e Mar"},
		{"resort_da_lagoa", "Resort da Lagoa"},
		{"SALINAS", "Hotel Salinas"},
		{"ÁGUA_AZUL", "Hotel Água Azul"},
		{"ÉDEN_DO_MAR", "Hotel Éden do Mar"},
		{"POUSADA_ÍRIS", "Pousada Íris"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatHotelName(tt.key))
		})
	}
}

func TestHotelsFromVars(t *testing.T) {
	vars := map[string]string{
		"BOOKING_SALINAS":           "https://www.booking.com/hotel/br/salinas.html",
		"DECOLAR_SALINAS":           "https://www.decolar.com/hoteis/h-123456/",
		"TRIPADVISOR_PRAIA_DE_BELA": "https://www.tripadvisor.com.br/Hotel_Review-g1-d99-Reviews.html",
		"TRIPADVISOR_GEO_ID":        "644400",
		"GOOGLE_API_KEY":            "secret",
		"BOOKING_EMPTY":             "  ",
		"LOG_LEVEL":                 "debug",
	}

	hotels := HotelsFromVars(vars, nil)
	require.Len(t, hotels, 2)

	assert.Equal(t, "praia_de_bela", hotels[0].Key)
	assert.Equal(t, "Hotel Praia de Bela", hotels[0].Name)
	assert.Len(t, hotels[0].Targets, 1)

	assert.Equal(t, "salinas", hotels[1].Key)
	assert.Equal(t, map[string]string{
		"booking": "https://www.booking.com/hotel/br/salinas.html",
		"decolar": "https://www.decolar.com/hoteis/h-123456/",
	}, hotels[1].Targets)
}

func TestLoadHotelsFileMissing(t *testing.T) {
	hotels, err := LoadHotelsFile(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Empty(t, hotels)
}

func TestLoadHotelsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.env")
	content := "# hotels\nBOOKING_SALINAS=https://www.booking.com/hotel/br/salinas.html\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	hotels, err := LoadHotelsFile(path)
	require.NoError(t, err)
	require.Len(t, hotels, 1)
	assert.Equal(t, "Hotel Salinas", hotels[0].Name)
}

func TestHotelsFromVarsFollowsOrder(t *testing.T) {
	vars := map[string]string{
		"BOOKING_ZETA":      "https://www.booking.com/hotel/br/zeta.html",
		"GOOGLE_ALPHA":      "https://maps.google.com/?cid=1",
		"BOOKING_ALPHA":     "https://www.booking.com/hotel/br/alpha.html",
		"DECOLAR_UNLISTED":  "https://www.decolar.com/hoteis/h-1/",
		"BOOKING_AAA_EXTRA": "https://www.booking.com/hotel/br/aaa.html",
	}
	order := []string{"BOOKING_ZETA", "GOOGLE_ALPHA", "BOOKING_ALPHA", "MISSING_VAR"}

	hotels := HotelsFromVars(vars, order)
	keys := make([]string, 0, len(hotels))
	for _, h := range hotels {
		keys = append(keys, h.Key)
	}
	assert.Equal(t, []string{"zeta", "alpha", "aaa_extra", "unlisted"}, keys)
	assert.Len(t, hotels[1].Targets, 2)
}

func TestLoadHotelsFileKeepsFileOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.env")
	content := `# hotels, in display order
TRIPADVISOR_GEO_ID=644400
BOOKING_ZETA=https://www.booking.com/hotel/br/zeta.html
export GOOGLE_MIDDLE="https://maps.google.com/?cid=2"
BOOKING_ALPHA=https://www.booking.com/hotel/br/alpha.html
DECOLAR_ZETA=https://www.decolar.com/hoteis/h-9/
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	hotels, err := LoadHotelsFile(path)
	require.NoError(t, err)
	require.Len(t, hotels, 3)
	assert.Equal(t, "zeta", hotels[0].Key)
	assert.Equal(t, "middle", hotels[1].Key)
	assert.Equal(t, "alpha", hotels[2].Key)
	assert.Equal(t, map[string]string{
		"booking": "https://www.booking.com/hotel/br/zeta.html",
		"decolar": "https://www.decolar.com/hoteis/h-9/",
	}, hotels[0].Targets)
	assert.Equal(t, "https://maps.google.com/?cid=2", hotels[1].Targets["google"])
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
auth:
  api_key: test-key
hotels_file: ""
hotels:
  - key: salinas
    name: Salinas Maragogi
    targets:
      booking: https://www.booking.com/hotel/br/salinas.html
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Auth.Enabled)
	assert.Equal(t, 15*time.Second, cfg.Scraper.Timeout)
	assert.Equal(t, 2, cfg.Scraper.MaxRetries)
	assert.Equal(t, "memory", cfg.Jobs.Store)
	require.Len(t, cfg.Hotels, 1)
	assert.Equal(t, "Salinas Maragogi", cfg.Hotels[0].Name)

	minDelay, maxDelay := cfg.Scraper.DelayFor("booking")
	assert.Equal(t, 4*time.Second, minDelay)
	assert.Equal(t, 10*time.Second, maxDelay)

	minDelay, maxDelay = cfg.Scraper.DelayFor("google")
	assert.Equal(t, 3*time.Second, minDelay)
	assert.Equal(t, 15*time.Second, maxDelay)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Auth:    AuthConfig{Enabled: true, APIKey: "k"},
			Jobs:    JobsConfig{Store: "memory"},
			Scraper: ScraperConfig{MinDelay: time.Second, MaxDelay: 2 * time.Second},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"auth enabled without key", func(c *Config) { c.Auth.APIKey = "" }, true},
		{"auth disabled without key", func(c *Config) { c.Auth = AuthConfig{} }, false},
		{"inverted delays", func(c *Config) { c.Scraper.MaxDelay = 0 }, true},
		{"unknown job store", func(c *Config) { c.Jobs.Store = "redis" }, true},
		{"duplicate hotel", func(c *Config) {
			c.Hotels = []HotelConfig{{Key: "a"}, {Key: "a"}}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
