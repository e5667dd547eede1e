// Package config loads the bot configuration.
//
// Values are layered: built-in defaults, then the YAML file, then FIELDBOT_*
// environment variables. A .env file, when present, is loaded into the
// environment first. Environment keys join section and field with an
// underscore, e.g. FIELDBOT_PROVISIONING_TIMEOUT=10s or
// FIELDBOT_DATASET_EXCLUDED_COLUMNS=No,BTS Name. The message size limit is
// FIELDBOT_INPUT_MAX_SIZE.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/aretw0/fieldbot/pkg/persistence/middleware"
	"github.com/aretw0/fieldbot/pkg/router"
	"github.com/aretw0/fieldbot/pkg/search"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FIELDBOT_"

// ErrInvalid is returned when the merged configuration cannot run the bot.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Log          Log          `mapstructure:"log"`
	Server       Server       `mapstructure:"server"`
	Input        Input        `mapstructure:"input"`
	Dataset      Dataset      `mapstructure:"dataset"`
	Provisioning Provisioning `mapstructure:"provisioning"`
	Audit        Audit        `mapstructure:"audit"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

type Server struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Input bounds raw user messages. MaxSize is in bytes.
type Input struct {
	MaxSize int `mapstructure:"max_size"`
}

// Dataset locates the site workbook. URL wins over Path when both are set.
type Dataset struct {
	URL             string        `mapstructure:"url"`
	Path            string        `mapstructure:"path"`
	Timeout         time.Duration `mapstructure:"timeout"`
	ExcludedColumns []string      `mapstructure:"excluded_columns"`
	MaxResults      int           `mapstructure:"max_results"`
}

// Excluded returns the columns hidden from results.
// Unset means search.DefaultExcluded; an explicit empty list hides nothing.
func (d Dataset) Excluded() []string {
	if d.ExcludedColumns == nil {
		return search.DefaultExcluded
	}
	return d.ExcludedColumns
}

// Provisioning holds the gateway endpoint and its static credentials.
type Provisioning struct {
	Endpoint string        `mapstructure:"endpoint"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	WSCode   string        `mapstructure:"ws_code"`
	Token    string        `mapstructure:"token"`
	Locale   string        `mapstructure:"locale"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Audit selects the audit sink. An empty RedisAddr keeps entries in memory.
//
// RedactFields names entry fields to mask (user_id, account, device_code,
// raw_response, error); RedactPatterns are regular expressions masked inside
// raw responses and errors. EncryptionKey is a base64 AES-256 key sealing raw
// responses; FallbackKeys keep entries sealed with older keys readable.
type Audit struct {
	RedisAddr      string   `mapstructure:"redis_addr"`
	RedisPassword  string   `mapstructure:"redis_password"`
	RedisDB        int      `mapstructure:"redis_db"`
	Key            string   `mapstructure:"key"`
	MaxEntries     int      `mapstructure:"max_entries"`
	RedactFields   []string `mapstructure:"redact_fields"`
	RedactPatterns []string `mapstructure:"redact_patterns"`
	EncryptionKey  string   `mapstructure:"encryption_key"`
	FallbackKeys   []string `mapstructure:"fallback_keys"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log: Log{Level: "info"},
		Server: Server{
			Addr:            ":8080",
			ShutdownTimeout: 5 * time.Second,
		},
		Input: Input{MaxSize: router.DefaultMaxInputSize},
		Dataset: Dataset{
			Timeout:    30 * time.Second,
			MaxResults: search.DefaultMaxRendered,
		},
		Provisioning: Provisioning{
			WSCode:  "ChangeDeviceAccFtth",
			Locale:  "en_US",
			Timeout: 30 * time.Second,
		},
		Audit: Audit{
			Key:        "fieldbot:audit",
			MaxEntries: 10000,
		},
	}
}

// Load builds the configuration from path (optional) and the environment.
func Load(path string) (*Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if err := applyEnv(os.Environ(), &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment: %w", err)
	}
	return &cfg, nil
}

// LoadDotEnv loads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

// Validate reports settings the bot cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Dataset.URL == "" && c.Dataset.Path == "" {
		errs = append(errs, errors.New("dataset.url or dataset.path is required"))
	}
	if c.Provisioning.Endpoint == "" {
		errs = append(errs, errors.New("provisioning.endpoint is required"))
	}
	if c.Input.MaxSize <= 0 {
		errs = append(errs, errors.New("input.max_size must be positive"))
	}
	if c.Dataset.MaxResults < 0 {
		errs = append(errs, errors.New("dataset.max_results must not be negative"))
	}
	if c.Audit.EncryptionKey != "" {
		if _, err := middleware.ParseKey(c.Audit.EncryptionKey); err != nil {
			errs = append(errs, fmt.Errorf("audit.encryption_key: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

func decodeYAML(data []byte, cfg *Config) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	return decode(raw, cfg, true)
}

// applyEnv overlays FIELDBOT_<SECTION>_<FIELD> variables.
// Variables that do not name a field are ignored.
func applyEnv(environ []string, cfg *Config) error {
	raw := map[string]any{}
	for _, kv := range environ {
		key, val, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		section, field, ok := strings.Cut(strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), "_")
		if !ok || field == "" {
			continue
		}
		m, _ := raw[section].(map[string]any)
		if m == nil {
			m = map[string]any{}
			raw[section] = m
		}
		m[field] = val
	}
	if len(raw) == 0 {
		return nil
	}
	return decode(raw, cfg, false)
}

func decode(raw map[string]any, cfg *Config, strict bool) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      strict,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}
