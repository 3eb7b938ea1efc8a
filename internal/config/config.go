// Package config loads and validates service configuration via Viper.
package config

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Gemini   GeminiConfig   `mapstructure:"gemini"`
	Search   SearchConfig   `mapstructure:"search"`
	Sheets   SheetsConfig   `mapstructure:"sheets"`
	CV       CVConfig       `mapstructure:"cv"`
	Dedupe   DedupeConfig   `mapstructure:"dedupe"`
	Scrape   ScrapeConfig   `mapstructure:"scrape"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls dashboard HTTP server behavior.
type ServerConfig struct {
	Port     int           `mapstructure:"port"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// GeminiConfig holds the LLM credentials and model selection.
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// SearchConfig holds Google Custom Search credentials and defaults.
type SearchConfig struct {
	APIKey     string `mapstructure:"api_key"`
	EngineID   string `mapstructure:"engine_id"`
	Query      string `mapstructure:"query"`
	MaxResults int    `mapstructure:"max_results"`
}

// SheetsConfig identifies the spreadsheet store and its service account.
// Exactly one of the three credential forms must be supplied.
type SheetsConfig struct {
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	CredentialsJSON string `mapstructure:"credentials_json"`
	CredentialsB64  string `mapstructure:"credentials_b64"`
	CredentialsPath string `mapstructure:"credentials_path"`
}

// CVConfig points at the candidate's CV document.
type CVConfig struct {
	Path string `mapstructure:"path"`
}

// DedupeConfig tunes near-duplicate detection.
type DedupeConfig struct {
	FuzzyThreshold int `mapstructure:"fuzzy_threshold"`
}

// ScrapeConfig governs page fetching and text extraction.
type ScrapeConfig struct {
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
	MaxChars  int           `mapstructure:"max_chars"`
}

// PipelineConfig controls the run protocol.
type PipelineConfig struct {
	Delay time.Duration `mapstructure:"delay"`
}

// ArchiveConfig selects the optional scraped-page archive backend.
// An empty provider disables archiving.
type ArchiveConfig struct {
	Provider string `mapstructure:"provider"`
	Dir      string `mapstructure:"dir"`
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SCHOLARHUNT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindLegacyEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cache_ttl", 5*time.Minute)
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("search.query", "fully funded msc in AI scholarship 2026 international")
	v.SetDefault("search.max_results", 10)
	v.SetDefault("cv.path", "cv.md")
	v.SetDefault("dedupe.fuzzy_threshold", 85)
	v.SetDefault("scrape.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	v.SetDefault("scrape.timeout", 10*time.Second)
	v.SetDefault("scrape.max_chars", 8000)
	v.SetDefault("pipeline.delay", 2*time.Second)
	v.SetDefault("archive.prefix", "pages")
	v.SetDefault("logging.development", false)
}

// bindLegacyEnv keeps the environment variable names the original
// deployment used working alongside the SCHOLARHUNT_* prefix.
func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("gemini.api_key", "SCHOLARHUNT_GEMINI_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("search.api_key", "SCHOLARHUNT_SEARCH_API_KEY", "GOOGLE_SEARCH_API_KEY")
	_ = v.BindEnv("search.engine_id", "SCHOLARHUNT_SEARCH_ENGINE_ID", "GOOGLE_SEARCH_ENGINE_ID")
	_ = v.BindEnv("sheets.spreadsheet_id", "SCHOLARHUNT_SHEETS_SPREADSHEET_ID", "SPREADSHEET_ID")
	_ = v.BindEnv("sheets.credentials_json", "SCHOLARHUNT_SHEETS_CREDENTIALS_JSON", "GOOGLE_SHEETS_CREDS")
	_ = v.BindEnv("sheets.credentials_b64", "SCHOLARHUNT_SHEETS_CREDENTIALS_B64", "GOOGLE_SHEETS_CREDS_B64")
	_ = v.BindEnv("sheets.credentials_path", "SCHOLARHUNT_SHEETS_CREDENTIALS_PATH", "GOOGLE_SHEETS_CREDS_PATH")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("gemini.api_key is required (GEMINI_API_KEY)")
	}
	if c.Search.APIKey == "" {
		return fmt.Errorf("search.api_key is required (GOOGLE_SEARCH_API_KEY)")
	}
	if c.Search.EngineID == "" {
		return fmt.Errorf("search.engine_id is required (GOOGLE_SEARCH_ENGINE_ID)")
	}
	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be > 0")
	}
	if c.Sheets.SpreadsheetID == "" {
		return fmt.Errorf("sheets.spreadsheet_id is required (SPREADSHEET_ID)")
	}
	if err := c.Sheets.validateCredentials(); err != nil {
		return err
	}
	if c.Dedupe.FuzzyThreshold < 0 || c.Dedupe.FuzzyThreshold > 100 {
		return fmt.Errorf("dedupe.fuzzy_threshold must be between 0 and 100")
	}
	if c.Scrape.MaxChars <= 0 {
		return fmt.Errorf("scrape.max_chars must be > 0")
	}
	if c.Scrape.Timeout <= 0 {
		return fmt.Errorf("scrape.timeout must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.Archive.Provider {
	case "", "local", "gcs":
	default:
		return fmt.Errorf("archive.provider must be one of \"\", \"local\", \"gcs\"")
	}
	if c.Archive.Provider == "local" && c.Archive.Dir == "" {
		return fmt.Errorf("archive.dir is required for the local archive provider")
	}
	if c.Archive.Provider == "gcs" && c.Archive.Bucket == "" {
		return fmt.Errorf("archive.bucket is required for the gcs archive provider")
	}
	return nil
}

func (s SheetsConfig) validateCredentials() error {
	supplied := 0
	for _, v := range []string{s.CredentialsJSON, s.CredentialsB64, s.CredentialsPath} {
		if strings.TrimSpace(v) != "" {
			supplied++
		}
	}
	switch supplied {
	case 0:
		return fmt.Errorf("sheets credentials not provided: set one of sheets.credentials_json (GOOGLE_SHEETS_CREDS), sheets.credentials_b64 (GOOGLE_SHEETS_CREDS_B64), or sheets.credentials_path (GOOGLE_SHEETS_CREDS_PATH)")
	case 1:
		return nil
	default:
		return fmt.Errorf("sheets credentials over-specified: set exactly one credential form, got %d", supplied)
	}
}

// ResolveCredentials returns the service-account key from whichever
// credential form was supplied and verifies it decodes as JSON.
func (s SheetsConfig) ResolveCredentials() ([]byte, error) {
	var (
		data []byte
		src  string
	)
	switch {
	case strings.TrimSpace(s.CredentialsJSON) != "":
		data = []byte(s.CredentialsJSON)
		src = "sheets.credentials_json"
	case strings.TrimSpace(s.CredentialsB64) != "":
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s.CredentialsB64))
		if err != nil {
			return nil, fmt.Errorf("sheets.credentials_b64 is not valid base64: %w", err)
		}
		data = decoded
		src = "sheets.credentials_b64"
	case strings.TrimSpace(s.CredentialsPath) != "":
		read, err := os.ReadFile(s.CredentialsPath)
		if err != nil {
			return nil, fmt.Errorf("reading sheets credentials from %q: %w", s.CredentialsPath, err)
		}
		data = read
		src = s.CredentialsPath
	default:
		return nil, fmt.Errorf("sheets credentials not provided")
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("%s is not valid JSON", src)
	}
	return data, nil
}
