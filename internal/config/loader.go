package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load reads the environment, applies defaults and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// MustLoad is Load for main: it panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

var (
	durationType = reflect.TypeOf(time.Duration(0))
	timeType     = reflect.TypeOf(time.Time{})
)

// loadStruct fills tagged fields of v from the environment, descending into
// nested structs. Tags: env (name), envAlt (fallback name), default and
// required. Every bad variable is reported, not just the first.
func loadStruct(v reflect.Value) error {
	var errs []error
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		sf, fv := t.Field(i), v.Field(i)
		if !fv.CanSet() {
			continue
		}
		if sf.Type.Kind() == reflect.Struct && sf.Type != timeType {
			if err := loadStruct(fv); err != nil {
				errs = append(errs, err)
			}
			continue
		}

		name := sf.Tag.Get("env")
		if name == "" {
			continue
		}
		raw, ok := lookupEnv(name, sf.Tag.Get("envAlt"))
		switch {
		case ok:
		case sf.Tag.Get("required") == "true":
			errs = append(errs, fmt.Errorf("required environment variable %s is not set", name))
			continue
		default:
			raw = sf.Tag.Get("default")
		}
		if raw == "" {
			continue
		}

		if err := parseInto(fv, raw); err != nil {
			errs = append(errs, fmt.Errorf("%s=%q: %w", name, raw, err))
		}
	}
	return errors.Join(errs...)
}

// lookupEnv returns the first non-empty value among name and alt.
func lookupEnv(name, alt string) (string, bool) {
	if v := os.Getenv(name); v != "" {
		return v, true
	}
	if alt != "" {
		if v := os.Getenv(alt); v != "" {
			return v, true
		}
	}
	return "", false
}

// parseInto converts raw to the kind of dst. Durations use Go syntax
// ("90s"); string slices are comma-separated with blanks dropped.
func parseInto(dst reflect.Value, raw string) error {
	if dst.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		dst.SetInt(int64(d))
		return nil
	}

	switch dst.Kind() {
	case reflect.String:
		dst.SetString(raw)
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, dst.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		dst.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		dst.SetBool(b)
	case reflect.Slice:
		if dst.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice of %s", dst.Type().Elem().Kind())
		}
		var items []string
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
		dst.Set(reflect.ValueOf(items))
	default:
		return fmt.Errorf("unsupported field type %s", dst.Kind())
	}
	return nil
}

// problems accumulates validation failures.
type problems []string

func (p *problems) check(bad bool, format string, args ...any) {
	if bad {
		*p = append(*p, fmt.Sprintf(format, args...))
	}
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var p problems

	switch strings.ToLower(c.Store.Driver) {
	case DriverPostgres:
		p.check(c.Database.URL == "", "DATABASE_URL is required when STORE_DRIVER=postgres")
	case DriverMemory:
	default:
		p.check(true, "STORE_DRIVER (%q) must be one of: postgres, memory", c.Store.Driver)
	}
	p.check(c.Database.MaxConns <= 0, "DB_MAX_CONNS must be positive")
	p.check(c.Database.MinConns < 0, "DB_MIN_CONNS must be non-negative")
	p.check(c.Database.MaxConns < c.Database.MinConns,
		"DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", c.Database.MaxConns, c.Database.MinConns)

	p.check(c.Server.Port <= 0 || c.Server.Port > 65535, "SERVER_PORT (%d) must be 1-65535", c.Server.Port)
	p.check(c.Server.ReadTimeout < 0, "SERVER_READ_TIMEOUT must be non-negative")
	p.check(c.Server.ShutdownTimeout <= 0, "SERVER_SHUTDOWN_TIMEOUT must be positive")

	p.check(c.Import.ChunkSize <= 0, "IMPORT_CHUNK_SIZE must be positive")
	p.check(c.Import.MaxFileSize <= 0, "IMPORT_MAX_FILE_SIZE must be positive")
	p.check(c.Import.MaxConcurrent <= 0, "IMPORT_MAX_CONCURRENT must be positive")
	p.check(c.Import.MaxWaitTime <= 0, "IMPORT_MAX_WAIT_TIME must be positive")
	p.check(c.Import.Timeout <= 0, "IMPORT_TIMEOUT must be positive")
	if c.Import.AliasesFile != "" {
		_, err := os.Stat(c.Import.AliasesFile)
		p.check(err != nil, "IMPORT_ALIASES_FILE (%q) is not readable: %v", c.Import.AliasesFile, err)
	}

	p.check(c.Redis.URL != "" && c.Redis.LockTTL <= 0, "IMPORT_LOCK_TTL must be positive when REDIS_URL is set")

	if c.Rate.Enabled {
		p.check(c.Rate.RequestsPerMinute <= 0, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
		p.check(c.Rate.ImportLimit <= 0, "RATE_LIMIT_IMPORT must be positive when rate limiting is enabled")
	}

	p.check(c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0,
		"REQUIRE_API_KEY is true but API_KEYS is empty")

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		p.check(true, "LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		p.check(true, "LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format)
	}

	if len(p) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(p, "\n  - "))
	}
	return nil
}

// String renders the config for the startup log. Connection strings and
// API keys are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port)
	fmt.Fprintf(&b, "Store: {Driver: %q, AutoMigrate: %v}, ", c.Store.Driver, c.Store.AutoMigrate)
	fmt.Fprintf(&b, "Database: {URL: %s, MaxConns: %d, MinConns: %d}, ",
		mask(c.Database.URL), c.Database.MaxConns, c.Database.MinConns)
	fmt.Fprintf(&b, "Import: {ChunkSize: %d, MaxFileSize: %d, MaxConcurrent: %d, AliasesFile: %q}, ",
		c.Import.ChunkSize, c.Import.MaxFileSize, c.Import.MaxConcurrent, c.Import.AliasesFile)
	fmt.Fprintf(&b, "Redis: {URL: %s, LockTTL: %s}, ", mask(c.Redis.URL), c.Redis.LockTTL)
	fmt.Fprintf(&b, "Events: {AMQPURL: %s}, ", mask(c.Events.AMQPURL))
	fmt.Fprintf(&b, "Rate: {Enabled: %v, RequestsPerMinute: %d, ImportLimit: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute, c.Rate.ImportLimit)
	fmt.Fprintf(&b, "Security: {RequireAPIKey: %v, APIKeys: %d configured}, ",
		c.Security.RequireAPIKey, len(c.Security.APIKeys))
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}

func mask(secret string) string {
	if secret == "" {
		return "[unset]"
	}
	return "[MASKED]"
}
