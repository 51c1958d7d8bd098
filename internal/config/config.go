// Package config loads recall's configuration from defaults, an optional YAML
// file, RECALL_ environment variables and command-line flags, in that order.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/conorfennell/recall/internal/study"
)

// EnvPrefix is the prefix of environment variables read into the config.
const EnvPrefix = "RECALL_"

// Config represents the application configuration.
type Config struct {
	App     AppConfig     `koanf:"app"`
	HTTP    HTTPConfig    `koanf:"http"`
	Storage StorageConfig `koanf:"storage"`
	Auth    AuthConfig    `koanf:"auth"`
	Study   StudyConfig   `koanf:"study"`
	Sync    SyncConfig    `koanf:"sync"`
}

// AppConfig holds process-level settings.
type AppConfig struct {
	LogLevel  slog.Level `koanf:"log_level"`
	LogFormat string     `koanf:"log_format" validate:"oneof=json text"`
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"min=1s"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"min=1s"`
}

// StorageConfig holds SQLite database configuration.
type StorageConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// AuthConfig holds the API bearer token. An empty token disables auth.
type AuthConfig struct {
	Token string `koanf:"token"`
}

// StudyConfig sizes study sessions.
type StudyConfig struct {
	NewCardsLimit int `koanf:"new_cards_limit" validate:"min=0"`
	ReviewLimit   int `koanf:"review_limit" validate:"min=0"`
	GraduateAfter int `koanf:"graduate_after" validate:"min=1"`
}

// SyncConfig controls source syncing.
type SyncConfig struct {
	ReposDir string `koanf:"repos_dir" validate:"required"`
	// Interval between background syncs. Zero disables them.
	Interval time.Duration `koanf:"interval" validate:"min=0s"`
}

// StudyService converts the study section to the study package's config.
func (c StudyConfig) StudyService() study.Config {
	return study.Config{
		NewCardsLimit: c.NewCardsLimit,
		ReviewLimit:   c.ReviewLimit,
		GraduateAfter: c.GraduateAfter,
	}
}

// Default returns a new Config with sensible default values.
func Default() *Config {
	sc := study.DefaultConfig()
	return &Config{
		App: AppConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: "text",
		},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{Path: "recall.db"},
		Study: StudyConfig{
			NewCardsLimit: sc.NewCardsLimit,
			ReviewLimit:   sc.ReviewLimit,
			GraduateAfter: sc.GraduateAfter,
		},
		Sync: SyncConfig{ReposDir: "repos"},
	}
}

// flagKeys maps command-line flags onto config keys. Flags not listed here
// select a mode and are not configuration.
var flagKeys = map[string]string{
	"db":        "storage.path",
	"addr":      "http.addr",
	"log-level": "app.log_level",
	"token":     "auth.token",
}

// Load builds the configuration. path may be empty to skip the file and flags
// may be nil. Only flags the user actually set override earlier layers.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", nil, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey turns RECALL_HTTP_READ_TIMEOUT into http.read_timeout. Sections are
// single words, so only the first underscore separates section from key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, key, ok := strings.Cut(s, "_")
	if !ok {
		return ""
	}
	return section + "." + key
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
			}
			return fmt.Errorf("config validation failed: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
