package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	Platforms PlatformsConfig `mapstructure:"platforms"`
	Hotels    []HotelConfig   `mapstructure:"hotels"`
	// HotelsFile is a dotenv file with PLATFORM_HOTEL_KEY=locator lines,
	// read when no hotels are configured inline.
	HotelsFile string `mapstructure:"hotels_file"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

// AuthConfig controls the shared-secret check on the scraper routes.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	URL             string        `mapstructure:"url"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the connection string for the configured driver.
// An explicit URL takes precedence for postgres.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		if c.URL != "" {
			return c.URL
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
	}
	return c.Path
}

// JobsConfig selects where job state lives: "memory" or "database".
type JobsConfig struct {
	Store string `mapstructure:"store"`
}

type StorageConfig struct {
	Type      string `mapstructure:"type"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
	LocalPath string `mapstructure:"local_path"`
}

type ScraperConfig struct {
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	// RequestsPerSecond caps requests across all platforms; zero disables it.
	RequestsPerSecond float64                `mapstructure:"requests_per_second"`
	MinDelay          time.Duration          `mapstructure:"min_delay"`
	MaxDelay          time.Duration          `mapstructure:"max_delay"`
	AutoConsolidate   bool                   `mapstructure:"auto_consolidate"`
	Delays            map[string]DelayConfig `mapstructure:"delays"`
}

// DelayConfig overrides the pacing window of one platform.
type DelayConfig struct {
	Min time.Duration `mapstructure:"min"`
	Max time.Duration `mapstructure:"max"`
}

// DelayFor returns the pacing window for a platform, falling back to the global one.
func (c *ScraperConfig) DelayFor(platform string) (time.Duration, time.Duration) {
	if d, ok := c.Delays[platform]; ok && d.Max > 0 {
		return d.Min, d.Max
	}
	return c.MinDelay, c.MaxDelay
}

// PlatformsConfig holds endpoint overrides and credentials per platform.
// Booking and Decolar are addressed by the hotel URLs alone.
type PlatformsConfig struct {
	TripAdvisor TripAdvisorConfig `mapstructure:"tripadvisor"`
	Google      GoogleConfig      `mapstructure:"google"`
}

type TripAdvisorConfig struct {
	BaseURL string `mapstructure:"base_url"`
	GeoID   int    `mapstructure:"geo_id"`
}

type GoogleConfig struct {
	APIKey    string `mapstructure:"api_key"`
	PlacesURL string `mapstructure:"places_url"`
	MapsURL   string `mapstructure:"maps_url"`
	Language  string `mapstructure:"language"`
}

// HotelConfig is one hotel and its locator on each platform.
type HotelConfig struct {
	Key     string            `mapstructure:"key"`
	Name    string            `mapstructure:"name"`
	Targets map[string]string `mapstructure:"targets"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	// Set config file path
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("auth.enabled", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/hotelrank.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("jobs.store", "memory")
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "./data/output")
	v.SetDefault("storage.bucket", "hotelrank")
	v.SetDefault("scraper.timeout", 15*time.Second)
	v.SetDefault("scraper.max_retries", 2)
	v.SetDefault("scraper.requests_per_second", 2.0)
	v.SetDefault("scraper.min_delay", 3*time.Second)
	v.SetDefault("scraper.max_delay", 15*time.Second)
	v.SetDefault("scraper.auto_consolidate", true)
	v.SetDefault("scraper.delays.booking.min", 4*time.Second)
	v.SetDefault("scraper.delays.booking.max", 10*time.Second)
	v.SetDefault("scraper.delays.google.min", 2*time.Second)
	v.SetDefault("scraper.delays.google.max", 5*time.Second)
	v.SetDefault("scraper.delays.decolar.min", 3*time.Second)
	v.SetDefault("scraper.delays.decolar.max", 8*time.Second)
	v.SetDefault("platforms.tripadvisor.geo_id", 644400)
	v.SetDefault("platforms.google.language", "pt-BR")
	v.SetDefault("hotels_file", "./config.env")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("auth.api_key", "API_SECRET_KEY")
	v.BindEnv("auth.enabled", "API_ENABLE_AUTH")
	v.BindEnv("server.port", "API_PORT")
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("platforms.google.api_key", "GOOGLE_API_KEY")
	v.BindEnv("hotels_file", "HOTELS_FILE")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(cfg.Hotels) == 0 && cfg.HotelsFile != "" {
		hotels, err := LoadHotelsFile(cfg.HotelsFile)
		if err != nil {
			return nil, err
		}
		cfg.Hotels = hotels
	}

	return &cfg, nil
}

// Validate reports misconfiguration that must stop startup.
func (c *Config) Validate() error {
	if c.Auth.Enabled && strings.TrimSpace(c.Auth.APIKey) == "" {
		return fmt.Errorf("auth is enabled but API_SECRET_KEY is empty")
	}
	if c.Scraper.MaxDelay < c.Scraper.MinDelay {
		return fmt.Errorf("scraper.max_delay (%s) is below scraper.min_delay (%s)", c.Scraper.MaxDelay, c.Scraper.MinDelay)
	}
	switch c.Jobs.Store {
	case "memory", "database":
	default:
		return fmt.Errorf("unknown jobs.store %q", c.Jobs.Store)
	}
	seen := make(map[string]bool, len(c.Hotels))
	for _, h := range c.Hotels {
		if h.Key == "" {
			return fmt.Errorf("hotel with empty key")
		}
		if seen[h.Key] {
			return fmt.Errorf("duplicate hotel key %q", h.Key)
		}
		seen[h.Key] = true
	}
	return nil
}
