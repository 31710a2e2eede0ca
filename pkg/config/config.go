package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Env        string           `yaml:"env"`
	Cache      CacheConfig      `yaml:"cache"`
	Dataset    DatasetConfig    `yaml:"dataset"`
	Geocoding  GeocodingConfig  `yaml:"geocoding"`
	Recreation RecreationConfig `yaml:"recreation"`
	Fetch      FetchConfig      `yaml:"fetch"`
	Search     SearchConfig     `yaml:"search"`
}

// CacheConfig holds freshness-tracking configuration
type CacheConfig struct {
	Dir        string `yaml:"dir" validate:"required"`
	TTLMinutes int    `yaml:"ttl_minutes" validate:"gt=0"`
}

// DatasetConfig holds bulk dataset source configuration
type DatasetConfig struct {
	URL         string `yaml:"url" validate:"required,url"`
	ArchivePath string `yaml:"archive_path" validate:"required"`
	ListPath    string `yaml:"list_path" validate:"required"`
}

// GeocodingConfig holds geocoding lookup configuration
type GeocodingConfig struct {
	BaseURL     string `yaml:"base_url" validate:"required,url"`
	UserAgent   string `yaml:"user_agent" validate:"required"`
	CountryCode string `yaml:"country_code" validate:"required"`
	TimeoutSecs int    `yaml:"timeout_seconds" validate:"gt=0"`
}

// RecreationConfig holds availability endpoint configuration
type RecreationConfig struct {
	BaseURL     string `yaml:"base_url" validate:"required,url"`
	TimeoutSecs int    `yaml:"timeout_seconds" validate:"gt=0"`
}

// FetchConfig holds orchestration configuration
type FetchConfig struct {
	OutputDir   string `yaml:"output_dir" validate:"required"`
	Workers     int    `yaml:"workers" validate:"gt=0"`
	BaseDelayMS int    `yaml:"base_delay_ms" validate:"gte=0"`
}

// SearchConfig holds the default search center used when no location is given
type SearchConfig struct {
	DefaultLocation  string  `yaml:"default_location" validate:"required"`
	DefaultLatitude  float64 `yaml:"default_latitude"`
	DefaultLongitude float64 `yaml:"default_longitude"`
	DefaultDistance  float64 `yaml:"default_distance" validate:"gt=0"`
}

// Load builds configuration from environment variables, then applies an
// optional YAML override file named by RECGOV_CONFIG (or ./recgov.yml when
// present), and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Env: getEnv("RECGOV_ENV", "development"),
		Cache: CacheConfig{
			Dir:        getEnv("RECGOV_CACHE_DIR", "temp"),
			TTLMinutes: getEnvAsInt("RECGOV_CACHE_TTL_MINUTES", 30),
		},
		Dataset: DatasetConfig{
			URL:         getEnv("RECGOV_RIDB_URL", "https://ridb.recreation.gov/downloads/RIDBFullExport_V1_CSV.zip"),
			ArchivePath: getEnv("RECGOV_RIDB_ARCHIVE", "RIDBFullExport_V1_CSV.zip"),
			ListPath:    getEnv("RECGOV_LIST_PATH", "download.csv"),
		},
		Geocoding: GeocodingConfig{
			BaseURL:     getEnv("RECGOV_GEOCODE_URL", "https://nominatim.openstreetmap.org/search"),
			UserAgent:   getEnv("RECGOV_GEOCODE_USER_AGENT", "campground-finder/1.0"),
			CountryCode: getEnv("RECGOV_GEOCODE_COUNTRY", "us"),
			TimeoutSecs: getEnvAsInt("RECGOV_GEOCODE_TIMEOUT_SECONDS", 10),
		},
		Recreation: RecreationConfig{
			BaseURL:     getEnv("RECGOV_API_URL", "https://www.recreation.gov"),
			TimeoutSecs: getEnvAsInt("RECGOV_API_TIMEOUT_SECONDS", 30),
		},
		Fetch: FetchConfig{
			OutputDir:   getEnv("RECGOV_OUTPUT_DIR", "temp"),
			Workers:     getEnvAsInt("RECGOV_FETCH_WORKERS", 10),
			BaseDelayMS: getEnvAsInt("RECGOV_FETCH_BASE_DELAY_MS", 600),
		},
		Search: SearchConfig{
			DefaultLocation:  getEnv("RECGOV_DEFAULT_LOCATION", "San Francisco"),
			DefaultLatitude:  getEnvAsFloat("RECGOV_DEFAULT_LATITUDE", 37.7749),
			DefaultLongitude: getEnvAsFloat("RECGOV_DEFAULT_LONGITUDE", -122.4194),
			DefaultDistance:  getEnvAsFloat("RECGOV_DEFAULT_DISTANCE", 150),
		},
	}

	if err := applyFileOverrides(cfg); err != nil {
		return nil, err
	}

	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyFileOverrides(cfg *Config) error {
	path := os.Getenv("RECGOV_CONFIG")
	if path == "" {
		path = "recgov.yml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
