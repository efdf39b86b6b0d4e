// Package config loads the entfiles configuration.
//
// Values are layered, later layers winning:
//
//  1. built-in defaults
//  2. an optional YAML file
//  3. an optional .env file (never overrides variables already set)
//  4. environment variables
//
// The result is validated before it is returned.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v3"

	"github.com/koustreak/entfiles/internal/database"
	"github.com/koustreak/entfiles/internal/filestore"
)

// Version is set at build time through -ldflags.
var Version = "dev"

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig     `yaml:"server"`
	Log      LogConfig        `yaml:"log"`
	Database database.Config  `yaml:"database"`
	Storage  filestore.Config `yaml:"storage"`
	Auth     AuthConfig       `yaml:"auth"`
	Upload   UploadConfig     `yaml:"upload"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// AuthConfig configures token signing and password hashing.
type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	BcryptCost int           `yaml:"bcrypt_cost"`
}

// UploadConfig configures uploads and signed links.
type UploadConfig struct {
	MaxSize      ByteSize      `yaml:"max_size"`
	SignedURLTTL time.Duration `yaml:"signed_url_ttl"`
	StagingDir   string        `yaml:"staging_dir"`
}

// ByteSize is a size in bytes that YAML and the environment may spell in
// human form ("64MiB", "10 MB").
type ByteSize int64

// UnmarshalYAML accepts either a plain integer or a human-readable size.
func (b *ByteSize) UnmarshalYAML(node *yaml.Node) error {
	n, err := humanize.ParseBytes(node.Value)
	if err != nil {
		return fmt.Errorf("invalid size %q: %w", node.Value, err)
	}
	*b = ByteSize(n)
	return nil
}

func (b ByteSize) String() string { return humanize.IBytes(uint64(b)) }

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	db := database.DefaultConfig(database.DriverPostgres)
	db.Port = 0 // filled in from the driver once it is known

	return &Config{
		Server: ServerConfig{
			Port:            5000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    10 * time.Minute,
			IdleTimeout:     2 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
			CORSOrigins:     []string{"http://localhost:3000"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Database: *db,
		Storage:  *filestore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin"),
		Auth: AuthConfig{
			TokenTTL:   15 * time.Minute,
			BcryptCost: 12,
		},
		Upload: UploadConfig{
			MaxSize:      64 << 20,
			SignedURLTTL: time.Hour,
		},
	}
}

// Options says where Load looks for files.
type Options struct {
	// ConfigFile is a YAML file. Empty skips the YAML layer.
	ConfigFile string

	// EnvFile is a dotenv file. Empty means ".env" when it exists.
	EnvFile string

	// LookupEnv reads environment variables. Nil means os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load builds the configuration from every layer and validates it.
func Load(opts Options) (*Config, error) {
	cfg := Default()

	if opts.ConfigFile != "" {
		if err := cfg.loadYAML(opts.ConfigFile); err != nil {
			return nil, err
		}
	}

	envFile := opts.EnvFile
	if envFile == "" {
		if _, err := os.Stat(".env"); err == nil {
			envFile = ".env"
		}
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("config: load env file %s: %w", envFile, err)
		}
	}

	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides fields from environment variables. Every malformed
// variable is reported, not just the first.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	e := envReader{lookup: lookup}

	e.str("MINIO_ENDPOINT", &c.Storage.Endpoint)
	e.str("MINIO_ACCESS_KEY", &c.Storage.AccessKey)
	e.str("MINIO_SECRET_KEY", &c.Storage.SecretKey)
	e.str("MINIO_BUCKET", &c.Storage.Bucket)
	e.boolean("MINIO_USE_SSL", &c.Storage.UseSSL)
	if v, ok := e.get("STORAGE_PROVIDER"); ok {
		c.Storage.Provider = filestore.Provider(strings.ToLower(v))
	}

	if v, ok := e.get("DB_DRIVER"); ok {
		c.Database.Driver = database.Driver(strings.ToLower(v))
	}
	e.str("DB_HOST", &c.Database.Host)
	e.integer("DB_PORT", &c.Database.Port)
	e.str("DB_USER", &c.Database.User)
	e.str("DB_PASSWORD", &c.Database.Password)
	e.str("DB_NAME", &c.Database.Name)
	e.str("DB_SSLMODE", &c.Database.SSLMode)

	e.str("JWT_SECRET", &c.Auth.JWTSecret)
	e.duration("TOKEN_TTL", &c.Auth.TokenTTL)

	e.integer("SERVER_PORT", &c.Server.Port)
	if v, ok := e.get("CORS_ORIGINS"); ok {
		c.Server.CORSOrigins = splitList(v)
	}

	e.str("LOG_LEVEL", &c.Log.Level)
	e.str("LOG_FORMAT", &c.Log.Format)

	if v, ok := e.get("MAX_UPLOAD_SIZE"); ok {
		n, err := humanize.ParseBytes(v)
		if err != nil {
			e.fail("MAX_UPLOAD_SIZE", v, err)
		} else {
			c.Upload.MaxSize = ByteSize(n)
		}
	}
	e.duration("SIGNED_URL_TTL", &c.Upload.SignedURLTTL)
	e.str("STAGING_DIR", &c.Upload.StagingDir)

	return errors.Join(e.errs...)
}

func (c *Config) normalize() {
	if c.Database.Port == 0 {
		c.Database.Port = database.DefaultConfig(c.Database.Driver).Port
	}
	if c.Storage.Provider == "" {
		c.Storage.Provider = filestore.ProviderMinIO
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
	c.Log.Format = strings.ToLower(c.Log.Format)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("config: "+format, args...))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		add("server port %d out of range", c.Server.Port)
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		add("log format %q (use json or console)", c.Log.Format)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		add("log level %q (use debug, info, warn or error)", c.Log.Level)
	}

	switch c.Database.Driver {
	case database.DriverPostgres, database.DriverMySQL:
	default:
		add("database driver %q (use postgres or mysql)", c.Database.Driver)
	}
	if c.Database.Host == "" {
		add("database host is required")
	}
	if c.Database.Name == "" {
		add("database name is required")
	}

	switch c.Storage.Provider {
	case filestore.ProviderMinIO:
		if c.Storage.Endpoint == "" {
			add("storage endpoint is required")
		}
	case filestore.ProviderMemory:
	default:
		add("storage provider %q (use minio or memory)", c.Storage.Provider)
	}
	if c.Storage.Bucket == "" {
		add("storage bucket is required")
	}

	if c.Auth.JWTSecret == "" {
		add("JWT_SECRET is required")
	}
	if c.Auth.TokenTTL <= 0 {
		add("token ttl must be positive")
	}

	if c.Upload.MaxSize <= 0 {
		add("max upload size must be positive")
	}
	if c.Upload.SignedURLTTL <= 0 || c.Upload.SignedURLTTL > 7*24*time.Hour {
		add("signed url ttl must be between 1s and 7 days")
	}

	return errors.Join(errs...)
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Server.Port)
}

type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) fail(key, val string, err error) {
	e.errs = append(e.errs, fmt.Errorf("config: %s=%q: %w", key, val, err))
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) integer(key string, dst *int) {
	if v, ok := e.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) boolean(key string, dst *bool) {
	if v, ok := e.get(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = b
	}
}

func (e *envReader) duration(key string, dst *time.Duration) {
	if v, ok := e.get(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = d
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
