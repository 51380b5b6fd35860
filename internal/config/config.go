package config

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aretw0/ussdflow/internal/logging"
	"github.com/aretw0/ussdflow/internal/runtime"
	"github.com/aretw0/ussdflow/pkg/dialog"
	"github.com/aretw0/ussdflow/pkg/matcher"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "USSDFLOW_"

// Host drivers.
const (
	HostADB = "adb"
	HostSim = "sim"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Ledger drivers.
const (
	LedgerMemory = "memory"
	LedgerSQLite = "sqlite"
	LedgerWAL    = "wal"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the full runtime configuration of the ussdflow binary.
type Config struct {
	Host       string           `mapstructure:"host" yaml:"host"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
	Controller ControllerConfig `mapstructure:"controller" yaml:"controller"`
	Store      StoreConfig      `mapstructure:"store" yaml:"store"`
	Ledger     LedgerConfig     `mapstructure:"ledger" yaml:"ledger"`
	Menu       MenuConfig       `mapstructure:"menu" yaml:"menu"`
	Templates  TemplatesConfig  `mapstructure:"templates" yaml:"templates"`
	ADB        ADBConfig        `mapstructure:"adb" yaml:"adb"`
	HTTP       HTTPConfig       `mapstructure:"http" yaml:"http"`
	Metrics    MetricsConfig    `mapstructure:"metrics" yaml:"metrics"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type ControllerConfig struct {
	SendDelay      time.Duration `mapstructure:"send_delay" yaml:"send_delay"`
	ResetDelay     time.Duration `mapstructure:"reset_delay" yaml:"reset_delay"`
	SessionKey     string        `mapstructure:"session_key" yaml:"session_key"`
	MaxPinAttempts int           `mapstructure:"max_pin_attempts" yaml:"max_pin_attempts"`
	MaxReentries   int           `mapstructure:"max_reentries" yaml:"max_reentries"`
	SendLabels     []string      `mapstructure:"send_labels" yaml:"send_labels"`
}

type StoreConfig struct {
	Driver        string        `mapstructure:"driver" yaml:"driver"`
	Path          string        `mapstructure:"path" yaml:"path"`
	RedisAddr     string        `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db" yaml:"redis_db"`
	Prefix        string        `mapstructure:"prefix" yaml:"prefix"`
	TTL           time.Duration `mapstructure:"ttl" yaml:"ttl"`
	LockTTL       time.Duration `mapstructure:"lock_ttl" yaml:"lock_ttl"`
	// EncryptionKey is a base64 or hex encoded 32-byte AES key. Empty disables sealing.
	EncryptionKey string   `mapstructure:"encryption_key" yaml:"encryption_key"`
	FallbackKeys  []string `mapstructure:"fallback_keys" yaml:"fallback_keys"`
}

type LedgerConfig struct {
	Driver  string `mapstructure:"driver" yaml:"driver"`
	Path    string `mapstructure:"path" yaml:"path"`
	MaskPII bool   `mapstructure:"mask_pii" yaml:"mask_pii"`
}

// MenuConfig overrides the built-in menu vocabulary. Entries given here
// replace the built-in entry for the same type.
type MenuConfig struct {
	Vocabulary matcher.Vocabulary    `mapstructure:"vocabulary" yaml:"vocabulary"`
	Defaults   matcher.DefaultDigits `mapstructure:"defaults" yaml:"defaults"`
	Classifier *dialog.Classifier    `mapstructure:"classifier" yaml:"classifier"`
}

type TemplatesConfig struct {
	Path  string `mapstructure:"path" yaml:"path"`
	Watch bool   `mapstructure:"watch" yaml:"watch"`
}

type ADBConfig struct {
	Serial       string        `mapstructure:"serial" yaml:"serial"`
	Binary       string        `mapstructure:"binary" yaml:"binary"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Host: HostADB,
		Log:  LogConfig{Level: "info", Format: "text"},
		Controller: ControllerConfig{
			SendDelay:      500 * time.Millisecond,
			ResetDelay:     3 * time.Second,
			SessionKey:     "active",
			MaxPinAttempts: runtime.DefaultMaxPinAttempts,
			MaxReentries:   runtime.DefaultMaxReentries,
		},
		Store: StoreConfig{
			Driver:  StoreFile,
			Path:    ".ussdflow/params",
			LockTTL: 10 * time.Second,
		},
		Ledger: LedgerConfig{
			Driver:  LedgerSQLite,
			Path:    ".ussdflow/ledger.db",
			MaskPII: true,
		},
		Templates: TemplatesConfig{Path: "ussd-codes.yaml"},
		ADB:       ADBConfig{Binary: "adb", PollInterval: 750 * time.Millisecond},
		HTTP:      HTTPConfig{Addr: ":8080"},
	}
}

// envKeys maps each USSDFLOW_* suffix to its dotted config path.
var envKeys = map[string]string{
	"HOST":             "host",
	"LOG_LEVEL":        "log.level",
	"LOG_FORMAT":       "log.format",
	"SEND_DELAY":       "controller.send_delay",
	"RESET_DELAY":      "controller.reset_delay",
	"SESSION_KEY":      "controller.session_key",
	"MAX_PIN_ATTEMPTS": "controller.max_pin_attempts",
	"STORE":            "store.driver",
	"STORE_PATH":       "store.path",
	"REDIS_ADDR":       "store.redis_addr",
	"REDIS_PASSWORD":   "store.redis_password",
	"REDIS_DB":         "store.redis_db",
	"ENCRYPTION_KEY":   "store.encryption_key",
	"LEDGER":           "ledger.driver",
	"LEDGER_PATH":      "ledger.path",
	"TEMPLATES":        "templates.path",
	"ADB_SERIAL":       "adb.serial",
	"ADB_PATH":         "adb.binary",
	"HTTP_ADDR":        "http.addr",
	"METRICS_ADDR":     "metrics.addr",
}

// Load builds a Config from the defaults, the YAML file at path (skipped when
// empty or missing), any .env files and finally the USSDFLOW_* environment.
func Load(path string, envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles...); err != nil {
		return nil, err
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := cfg.decodeYAML(data); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEnvFiles loads .env files without overriding the real environment.
// A missing file is not an error.
func loadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

func (c *Config) decodeYAML(data []byte) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse yaml: %w", err)
	}
	return c.decode(raw, true)
}

// decode lays raw over c. Keys absent from raw keep their current value.
func (c *Config) decode(raw map[string]any, strict bool) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      strict,
		Result:           c,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	raw := map[string]any{}
	for suffix, path := range envKeys {
		v, ok := lookup(EnvPrefix + suffix)
		if !ok || v == "" {
			continue
		}
		setPath(raw, strings.Split(path, "."), v)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := c.decode(raw, false); err != nil {
		return fmt.Errorf("failed to apply environment: %w", err)
	}
	return nil
}

func setPath(m map[string]any, path []string, v string) {
	for _, p := range path[:len(path)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[p] = next
		}
		m = next
	}
	m[path[len(path)-1]] = v
}

// Validate checks drivers, durations and keys.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(oneOf(c.Host, HostADB, HostSim), "host must be adb or sim, got %q", c.Host)
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	check(oneOf(c.Log.Format, "text", "json"), "log.format must be text or json, got %q", c.Log.Format)
	check(c.Controller.SendDelay >= 0, "controller.send_delay must not be negative")
	check(c.Controller.ResetDelay >= 0, "controller.reset_delay must not be negative")
	check(strings.TrimSpace(c.Controller.SessionKey) != "", "controller.session_key is required")
	check(c.Controller.MaxPinAttempts > 0, "controller.max_pin_attempts must be positive")
	check(c.Controller.MaxReentries >= 0, "controller.max_reentries must not be negative")

	check(oneOf(c.Store.Driver, StoreMemory, StoreFile, StoreRedis), "store.driver must be memory, file or redis, got %q", c.Store.Driver)
	check(c.Store.Driver != StoreFile || c.Store.Path != "", "store.path is required for the file driver")
	check(c.Store.Driver != StoreRedis || c.Store.RedisAddr != "", "store.redis_addr is required for the redis driver")
	if _, _, err := c.Store.Keys(); err != nil {
		errs = append(errs, err)
	}

	check(oneOf(c.Ledger.Driver, LedgerMemory, LedgerSQLite, LedgerWAL), "ledger.driver must be memory, sqlite or wal, got %q", c.Ledger.Driver)
	check(c.Ledger.Driver == LedgerMemory || c.Ledger.Path != "", "ledger.path is required for the %s driver", c.Ledger.Driver)
	check(c.ADB.PollInterval >= 0, "adb.poll_interval must not be negative")

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// Keys decodes the encryption keys. active is nil when sealing is disabled.
func (s StoreConfig) Keys() (active []byte, fallback [][]byte, err error) {
	if s.EncryptionKey == "" {
		return nil, nil, nil
	}
	active, err = decodeKey(s.EncryptionKey)
	if err != nil {
		return nil, nil, fmt.Errorf("store.encryption_key: %w", err)
	}
	for i, k := range s.FallbackKeys {
		b, err := decodeKey(k)
		if err != nil {
			return nil, nil, fmt.Errorf("store.fallback_keys[%d]: %w", i, err)
		}
		fallback = append(fallback, b)
	}
	return active, fallback, nil
}

func decodeKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if b, err := hex.DecodeString(s); err == nil && len(b) == 32 {
		return b, nil
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil && len(b) == 32 {
		return b, nil
	}
	return nil, errors.New("key must be 32 bytes, hex or base64 encoded")
}

// VocabularyOrDefault returns the built-in vocabulary with configured entries laid on top.
func (m MenuConfig) VocabularyOrDefault() matcher.Vocabulary {
	v := matcher.DefaultVocabulary()
	for t, phrases := range m.Vocabulary.Main {
		v.Main[t] = phrases
	}
	for t, phrases := range m.Vocabulary.Sub {
		v.Sub[t] = phrases
	}
	return v
}

// DefaultDigits returns the built-in defaults table merged with the configured one.
func (m MenuConfig) DefaultDigits() matcher.DefaultDigits {
	return matcher.StandardDefaultDigits().Merge(m.Defaults)
}

// ClassifierOrDefault returns the configured classifier, or the built-in one.
func (m MenuConfig) ClassifierOrDefault() *dialog.Classifier {
	if m.Classifier == nil {
		return dialog.DefaultClassifier()
	}
	return m.Classifier
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}
