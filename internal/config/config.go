package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Application Application `yaml:"application"`
	Remote      Remote      `yaml:"remote"`
	Listing     Listing     `yaml:"listing"`
	Normalizer  Normalizer  `yaml:"normalizer"`
	Server      Server      `yaml:"server"`
	Export      Export      `yaml:"export"`
}

type Application struct {
	Name     string `yaml:"name"`
	Version  string `yaml:"version"`
	LogLevel string `yaml:"log_level"`
}

type Remote struct {
	Backend           string        `yaml:"backend"` // "drive" | "local"
	BaseURL           string        `yaml:"base_url"`
	AccessToken       string        `yaml:"access_token"`
	Query             string        `yaml:"query"`
	LocalDir          string        `yaml:"local_dir"`
	PageSize          int           `yaml:"page_size"`
	MaxPages          int           `yaml:"max_pages"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
}

type Listing struct {
	TTL           time.Duration `yaml:"ttl"`
	FilePrefix    string        `yaml:"file_prefix"`
	VariantMarker string        `yaml:"variant_marker"`
	StatePath     string        `yaml:"state_path"`
	WarmInterval  time.Duration `yaml:"warm_interval"` // 0 disables background refresh
}

type Normalizer struct {
	PriceColumn string `yaml:"price_column"`
}

type Server struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type Export struct {
	Dir    string `yaml:"dir"`
	Format string `yaml:"format"` // "arrow" | "parquet"
}

const (
	BackendDrive = "drive"
	BackendLocal = "local"

	FormatArrow   = "arrow"
	FormatParquet = "parquet"

	DefaultTTL           = 300 * time.Second
	DefaultFilePrefix    = "(e)df_npp_m_"
	DefaultVariantMarker = "fut"
	DefaultPriceColumn   = "now_prc"
	DefaultDriveBaseURL  = "https://www.googleapis.com/drive/v3"
)

// Default returns a configuration with every field populated.
func Default() *Config {
	return &Config{
		Application: Application{
			Name:     "tick-viewer",
			Version:  "0.1.0",
			LogLevel: "info",
		},
		Remote: Remote{
			Backend:           BackendDrive,
			BaseURL:           DefaultDriveBaseURL,
			PageSize:          100,
			MaxPages:          100,
			RequestTimeout:    30 * time.Second,
			RequestsPerMinute: 600,
		},
		Listing: Listing{
			TTL:           DefaultTTL,
			FilePrefix:    DefaultFilePrefix,
			VariantMarker: DefaultVariantMarker,
		},
		Normalizer: Normalizer{
			PriceColumn: DefaultPriceColumn,
		},
		Server: Server{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Export: Export{
			Dir:    "exports",
			Format: FormatArrow,
		},
	}
}

// Save writes c as YAML. Durations are rendered in Go duration syntax so
// the file passes schema validation on the next load.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
