package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	HTTPAddr string

	StoreDriver    string
	DatabaseURL    string
	DBQueryTimeout time.Duration
	DBMaxOpenConns int
	DBMaxIdleConns int
	RunMigrations  bool
	SweepSchedule  string

	// SessionRetention is how long closed sessions are kept before the
	// sweeper deletes them.
	SessionRetention time.Duration

	JWTSecret  string
	JWTIssuer  string
	JWTTTL     time.Duration
	BcryptCost int

	// RegistrationTypes are the account types anonymous callers may sign up
	// as.
	RegistrationTypes []string

	SentryDSN         string
	SentryEnvironment string
	LogLevel          logrus.Level
	CORSOrigins       []string

	// TrustedProxies lists the proxy ranges whose X-Forwarded-For is
	// believed. Empty means the peer address is the client.
	TrustedProxies []*net.IPNet
}

// Load reads configuration from the environment, after merging a .env file
// when one exists. Variables already set in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup, which has the signature of
// os.LookupEnv.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	r := reader{lookup: lookup}
	cfg := &Config{
		HTTPAddr:          r.str("HTTP_ADDR", ":8080"),
		StoreDriver:       strings.ToLower(r.str("STORE_DRIVER", StoreDriverPostgres)),
		DatabaseURL:       r.str("DATABASE_URL", ""),
		DBQueryTimeout:    r.duration("DB_QUERY_TIMEOUT", 5*time.Second),
		DBMaxOpenConns:    r.integer("DB_MAX_OPEN_CONNS", 20),
		DBMaxIdleConns:    r.integer("DB_MAX_IDLE_CONNS", 5),
		RunMigrations:     r.boolean("RUN_MIGRATIONS", true),
		SweepSchedule:     r.raw("SESSION_SWEEP_SCHEDULE", "@every 15m"),
		SessionRetention:  r.duration("SESSION_RETENTION", 30*24*time.Hour),
		JWTSecret:         r.str("JWT_SECRET", ""),
		JWTIssuer:         r.str("JWT_ISSUER", "ytempire"),
		JWTTTL:            r.duration("JWT_TTL", 7*24*time.Hour),
		BcryptCost:        r.integer("BCRYPT_COST", 10),
		RegistrationTypes: r.list("REGISTRATION_ACCOUNT_TYPES"),
		SentryDSN:         r.str("SENTRY_DSN", ""),
		SentryEnvironment: r.str("SENTRY_ENVIRONMENT", "development"),
		LogLevel:          r.level("LOG_LEVEL", logrus.InfoLevel),
		CORSOrigins:       r.list("CORS_ALLOWED_ORIGINS"),
		TrustedProxies:    r.cidrs("TRUSTED_PROXIES"),
	}
	if cfg.RegistrationTypes == nil {
		cfg.RegistrationTypes = []string{"creator", "manager"}
	}
	if err := errors.Join(r.errs...); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORE_DRIVER=postgres"))
		}
	case StoreDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreDriverPostgres, StoreDriverMemory, c.StoreDriver))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	if c.SessionRetention <= 0 {
		errs = append(errs, errors.New("SESSION_RETENTION must be positive"))
	}
	for _, accountType := range c.RegistrationTypes {
		switch accountType {
		case "creator", "manager", "admin":
		default:
			errs = append(errs, fmt.Errorf("REGISTRATION_ACCOUNT_TYPES: unknown account type %q", accountType))
		}
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost))
	}
	return errors.Join(errs...)
}

type reader struct {
	lookup func(string) (string, bool)
	errs   []error
}

// raw keeps an explicitly empty value; only an unset variable gets fallback.
func (r *reader) raw(key string, fallback string) string {
	value, ok := r.lookup(key)
	if !ok {
		return fallback
	}
	return strings.TrimSpace(value)
}

func (r *reader) str(key string, fallback string) string {
	value, _ := r.lookup(key)
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}

func (r *reader) integer(key string, fallback int) int {
	value := r.str(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: invalid integer %q", key, value))
		return fallback
	}
	return parsed
}

func (r *reader) boolean(key string, fallback bool) bool {
	value := r.str(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: invalid boolean %q", key, value))
		return fallback
	}
	return parsed
}

func (r *reader) duration(key string, fallback time.Duration) time.Duration {
	value := r.str(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: invalid duration %q", key, value))
		return fallback
	}
	return parsed
}

func (r *reader) level(key string, fallback logrus.Level) logrus.Level {
	value := r.str(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := logrus.ParseLevel(value)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return parsed
}

func (r *reader) list(key string) []string {
	value := r.str(key, "")
	if value == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func (r *reader) cidrs(key string) []*net.IPNet {
	var nets []*net.IPNet
	for _, item := range r.list(key) {
		_, network, err := net.ParseCIDR(item)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("%s: invalid CIDR %q", key, item))
			continue
		}
		nets = append(nets, network)
	}
	return nets
}
