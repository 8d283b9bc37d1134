package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for auroraqa.
type Config struct {
	General  GeneralConfig  `json:"general"`
	Corpus   CorpusConfig   `json:"corpus"`
	Vocab    VocabConfig    `json:"vocab"`
	Store    StoreConfig    `json:"store"`
	Refresh  RefreshConfig  `json:"refresh"`
	API      APIConfig      `json:"api"`
	Telegram TelegramConfig `json:"telegram"`
	Metrics  MetricsConfig  `json:"metrics"`
}

type GeneralConfig struct {
	LogLevel  string `json:"logLevel" validate:"oneof=debug info warn error"`
	LogFormat string `json:"logFormat" validate:"oneof=text json"`
	LogFile   string `json:"logFile,omitempty"`
	DataDir   string `json:"dataDir" validate:"required"`
}

// CorpusConfig selects where member messages come from and how they are cached.
type CorpusConfig struct {
	Source            string  `json:"source" validate:"oneof=http file store"`
	BaseURL           string  `json:"baseURL,omitempty" validate:"omitempty,url"`
	FilePath          string  `json:"filePath,omitempty"`
	WatchFile         bool    `json:"watchFile"`
	PageSize          int     `json:"pageSize" validate:"min=1,max=1000"`
	MaxRetries        int     `json:"maxRetries" validate:"min=0,max=10"`
	CacheTTLSeconds   int     `json:"cacheTTLSeconds" validate:"min=1"`
	TimeoutSeconds    int     `json:"timeoutSeconds" validate:"min=1,max=600"`
	RequestsPerSecond float64 `json:"requestsPerSecond" validate:"min=0"`
}

func (c CorpusConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func (c CorpusConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type VocabConfig struct {
	Path string `json:"path,omitempty"`
}

type StoreConfig struct {
	Enabled bool   `json:"enabled"`
	DBPath  string `json:"dbPath"`
}

// RefreshConfig schedules periodic corpus syncs.
type RefreshConfig struct {
	Enabled  bool   `json:"enabled"`
	Interval string `json:"interval"` // Go duration, e.g. "5m"
}

func (r RefreshConfig) IntervalDuration() time.Duration {
	d, err := time.ParseDuration(r.Interval)
	if err != nil {
		return 0
	}
	return d
}

type APIConfig struct {
	Enabled            bool   `json:"enabled"`
	Host               string `json:"host"`
	Port               int    `json:"port" validate:"min=0,max=65535"`
	RateLimitPerMinute int    `json:"rateLimitPerMinute" validate:"min=0"` // 0 = unlimited
}

func (a APIConfig) Addr() string {
	return a.Host + ":" + strconv.Itoa(a.Port)
}

type TelegramConfig struct {
	Enabled   bool           `json:"enabled"`
	Token     string         `json:"token"`
	AllowFrom FlexStringList `json:"allowFrom"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path" validate:"omitempty,startswith=/"`
}

// FlexStringList is a []string that also accepts numbers in the JSON array,
// so Telegram user ids can be written either way.
type FlexStringList []string

func (f *FlexStringList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			result = append(result, s)
			continue
		}
		var n float64
		if err := json.Unmarshal(item, &n); err == nil {
			result = append(result, strconv.FormatInt(int64(n), 10))
			continue
		}
		result = append(result, string(item))
	}
	*f = result
	return nil
}

func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".auroraqa"
	}
	return filepath.Join(home, ".auroraqa")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// Load reads the JSON config at path on top of the defaults, expanding
// ${VAR} and ${VAR:-default} references and ~/ paths, then validates it.
func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.General.DataDir = ExpandPath(cfg.General.DataDir)
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)
	cfg.Corpus.FilePath = ExpandPath(cfg.Corpus.FilePath)
	cfg.Store.DBPath = ExpandPath(cfg.Store.DBPath)
	cfg.Vocab.Path = ExpandPath(cfg.Vocab.Path)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with its environment value. ${VAR:-default}
// uses default when VAR is unset or empty; an unset ${VAR} without a default
// is left untouched.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		name, def := groups[1], groups[2]
		if val, ok := os.LookupEnv(name); ok && val != "" {
			return val
		}
		if def != "" {
			return def
		}
		return match
	})
}

func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field constraints and the rules that span fields. Every
// problem is reported, not just the first.
func Validate(cfg *Config) error {
	var errs []string

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			errs = append(errs, describe(fe))
		}
	}

	switch cfg.Corpus.Source {
	case "http":
		if cfg.Corpus.BaseURL == "" {
			errs = append(errs, "corpus.baseURL is required when corpus.source is http")
		}
	case "file":
		if cfg.Corpus.FilePath == "" {
			errs = append(errs, "corpus.filePath is required when corpus.source is file")
		}
	case "store":
		if !cfg.Store.Enabled {
			errs = append(errs, "store.enabled must be true when corpus.source is store")
		}
	}

	if cfg.Store.Enabled && cfg.Store.DBPath == "" {
		errs = append(errs, "store.dbPath is required when the store is enabled")
	}
	if cfg.Refresh.Enabled {
		if d, err := time.ParseDuration(cfg.Refresh.Interval); err != nil || d < time.Second {
			errs = append(errs, "refresh.interval must be a duration of at least 1s")
		}
	}
	if cfg.Telegram.Enabled && cfg.Telegram.Token == "" {
		errs = append(errs, "telegram.token is required when telegram is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func describe(fe validator.FieldError) string {
	// namespace is "Config.section.field"
	_, field, _ := strings.Cut(fe.Namespace(), ".")
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be <= %s", field, fe.Param())
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "startswith":
		return fmt.Sprintf("%s must start with %q", field, fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}

// ExpandPath resolves a leading ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
