package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DataPrimaryPath  string `env:"DATA_PRIMARY_PATH" validate:"required"`
	DataFallbackPath string `env:"DATA_FALLBACK_PATH" validate:"required"`
	CSVDelimiter     rune
	SQLiteTable      string `env:"DATA_SQLITE_TABLE" validate:"required"`

	HTTPAddr        string `env:"HTTP_ADDR" validate:"required"`
	LogLevel        string `env:"LOG_LEVEL" validate:"oneof=debug info warn warning error"`
	LogFormat       string `env:"LOG_FORMAT" validate:"oneof=json text"`
	ShutdownTimeout time.Duration
	ViewCacheSize   int `env:"VIEW_CACHE_SIZE" validate:"min=0"`

	Presentation Presentation

	// Kafka refresh notices and load events, off unless KAFKA_ENABLED=true.
	KafkaEnabled      bool
	KafkaBrokers      []string
	KafkaRefreshTopic string
	KafkaEventsTopic  string
	KafkaGroupID      string

	ConfigFile string
}

// Presentation holds the dashboard settings that CONFIG_FILE may override.
type Presentation struct {
	DefaultColorBy     string   `yaml:"default_color_by" env:"DEFAULT_COLOR_BY" validate:"required"`
	DefaultTopN        int      `yaml:"default_top_n" env:"DEFAULT_TOP_N" validate:"min=1,max=100"`
	HistogramBins      int      `yaml:"histogram_bins" env:"HISTOGRAM_BINS" validate:"min=1,max=200"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS" validate:"min=1,dive,required"`
	// Palette replaces the cluster colors when set.
	Palette []string `yaml:"palette" validate:"omitempty,dive,hexcolor"`
}

// Load reads configuration from environment variables, applying defaults
// where unset, then overlays CONFIG_FILE and validates the result.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	delimiter, err := parseDelimiter(sharedcfg.EnvOrDefault("DATA_CSV_DELIMITER", ","))
	if err != nil {
		return nil, err
	}

	topN, err := parseInt("DEFAULT_TOP_N", 10)
	if err != nil {
		return nil, err
	}
	bins, err := parseInt("HISTOGRAM_BINS", 20)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseInt("VIEW_CACHE_SIZE", 256)
	if err != nil {
		return nil, err
	}

	kafkaEnabled, err := strconv.ParseBool(sharedcfg.EnvOrDefault("KAFKA_ENABLED", "false"))
	if err != nil {
		return nil, errors.New("invalid KAFKA_ENABLED")
	}

	cfg := &Config{
		DataPrimaryPath:  sharedcfg.EnvOrDefault("DATA_PRIMARY_PATH", "data/processed/gares_avec_clusters.csv"),
		DataFallbackPath: sharedcfg.EnvOrDefault("DATA_FALLBACK_PATH", "data/processed/frequentation-gares-clean.csv"),
		CSVDelimiter:     delimiter,
		SQLiteTable:      sharedcfg.EnvOrDefault("DATA_SQLITE_TABLE", "gares"),
		HTTPAddr:         sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:         sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:        sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:  shutdownTimeout,
		ViewCacheSize:    cacheSize,

		Presentation: Presentation{
			DefaultColorBy:     sharedcfg.EnvOrDefault("DEFAULT_COLOR_BY", "cluster"),
			DefaultTopN:        topN,
			HistogramBins:      bins,
			CORSAllowedOrigins: splitList(sharedcfg.EnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
		},

		KafkaEnabled:      kafkaEnabled,
		KafkaBrokers:      sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaRefreshTopic: sharedcfg.EnvOrDefault("KAFKA_REFRESH_TOPIC", "station-dataset-refresh"),
		KafkaEventsTopic:  sharedcfg.EnvOrDefault("KAFKA_EVENTS_TOPIC", "station-dataset-events"),
		KafkaGroupID:      sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "station-ridership"),

		ConfigFile: os.Getenv("CONFIG_FILE"),
	}

	if cfg.ConfigFile != "" {
		if err := overlayFile(cfg.ConfigFile, &cfg.Presentation); err != nil {
			return nil, err
		}
	}

	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overlayFile replaces the presentation settings present in a YAML file.
// Keys absent from the file keep their environment value.
func overlayFile(path string, p *Presentation) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read CONFIG_FILE: %w", err)
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return fmt.Errorf("parse CONFIG_FILE %s: %w", path, err)
	}
	return nil
}

func validate(cfg *Config) error {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})

	err := v.Struct(cfg)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("invalid %s: failed %q check", fe.Field(), fe.Tag())
	}
	return err
}

func parseInt(name string, def int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return n, nil
}

// parseDelimiter accepts a single character, or "tab" / `\t` for tabs.
func parseDelimiter(s string) (rune, error) {
	switch s {
	case "tab", `\t`:
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, errors.New("invalid DATA_CSV_DELIMITER: want a single character")
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
