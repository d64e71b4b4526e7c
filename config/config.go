package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DedupePolicy decides what happens when the same listing_id is re-scraped
// with different data.
type DedupePolicy string

const (
	// FirstSeenWins keeps the originally admitted record. This is the
	// default: stable for historical analysis.
	FirstSeenWins DedupePolicy = "first_seen"
	// LastWriteWins replaces the stored record with the newest scrape.
	LastWriteWins DedupePolicy = "last_write"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Session bounds. Zero means unlimited where noted.
	MaxSearchPages int // search result pages per session
	MaxBuildings   int // buildings per session, 0 = unlimited
	MaxRetries     int

	// Auto-restart controller.
	AutoRestart     bool
	MaxSessions     int
	SessionCooldown time.Duration
	TargetListings  int

	DedupePolicy DedupePolicy

	// Geocoding politeness contract toward Nominatim.
	GeocodeBaseURL   string
	GeocodeUserAgent string
	GeocodeEmail     string
	GeocodeDelay     time.Duration

	// Output paths.
	CombinedCSVPath    string
	SessionCSVPath     string
	UnfilteredCSVPath  string
	RegistryPath       string
	LocationCountsPath string

	// Optional Postgres mirror of the combined set. Enabled when
	// PostgresHost is non-empty.
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	ChromeBin string
	Headless  bool
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		MaxSearchPages: getEnvInt("MAX_SEARCH_PAGES", 50),
		MaxBuildings:   getEnvInt("MAX_BUILDINGS", 0),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),

		AutoRestart:     getEnvBool("AUTO_RESTART", false),
		MaxSessions:     getEnvInt("MAX_SESSIONS", 50),
		SessionCooldown: time.Duration(getEnvInt("SESSION_COOLDOWN_SECONDS", 600)) * time.Second,
		TargetListings:  getEnvInt("TARGET_LISTINGS", 1000),

		DedupePolicy: DedupePolicy(getEnv("DEDUPE_POLICY", string(FirstSeenWins))),

		GeocodeBaseURL:   getEnv("GEOCODE_BASE_URL", "https://nominatim.openstreetmap.org/search"),
		GeocodeUserAgent: getEnv("GEOCODE_USER_AGENT", "UMN-Housing-Research/1.0"),
		GeocodeEmail:     getEnv("GEOCODE_EMAIL", ""),
		GeocodeDelay:     time.Duration(getEnvInt("GEOCODE_DELAY_MS", 1500)) * time.Millisecond,

		CombinedCSVPath:    getEnv("COMBINED_CSV_PATH", "./output/umn_housing_combined.csv"),
		SessionCSVPath:     getEnv("SESSION_CSV_PATH", "./output/umn_housing_session.csv"),
		UnfilteredCSVPath:  getEnv("UNFILTERED_CSV_PATH", "./output/umn_housing_all.csv"),
		RegistryPath:       getEnv("REGISTRY_PATH", "./output/scraped_urls.txt"),
		LocationCountsPath: getEnv("LOCATION_COUNTS_PATH", "./output/location_counts.txt"),

		PostgresHost:     getEnv("POSTGRES_HOST", ""),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "housing_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		ChromeBin: getEnv("CHROME_BIN", ""),
		Headless:  getEnvBool("HEADLESS", true),
	}
}

// Validate reports invalid or contradictory settings. This is the only
// error class that aborts the process before any session starts.
func (c *Config) Validate() error {
	if c.MaxSearchPages < 0 {
		return fmt.Errorf("config: MAX_SEARCH_PAGES must not be negative (got %d)", c.MaxSearchPages)
	}
	if c.MaxBuildings < 0 {
		return fmt.Errorf("config: MAX_BUILDINGS must not be negative (got %d)", c.MaxBuildings)
	}
	if c.SessionCooldown < 0 {
		return fmt.Errorf("config: SESSION_COOLDOWN_SECONDS must not be negative (got %v)", c.SessionCooldown)
	}
	if c.AutoRestart && c.MaxSessions <= 0 {
		return fmt.Errorf("config: MAX_SESSIONS must be positive in auto-restart mode (got %d)", c.MaxSessions)
	}
	if c.AutoRestart && c.TargetListings <= 0 {
		return fmt.Errorf("config: TARGET_LISTINGS must be positive in auto-restart mode (got %d)", c.TargetListings)
	}
	switch c.DedupePolicy {
	case FirstSeenWins, LastWriteWins:
	default:
		return fmt.Errorf("config: DEDUPE_POLICY must be %q or %q (got %q)",
			FirstSeenWins, LastWriteWins, c.DedupePolicy)
	}
	if c.GeocodeDelay < 0 {
		return fmt.Errorf("config: GEOCODE_DELAY_MS must not be negative (got %v)", c.GeocodeDelay)
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	val := strings.ToLower(os.Getenv(key))
	switch val {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	return fallback
}
