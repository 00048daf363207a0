package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"certsync/pkg/platform/strings"
)

// DefaultCertifications are the product-finder program IDs harvested when
// CERTSYNC_CERTIFICATIONS is unset.
var DefaultCertifications = []string{"276", "235", "189", "1652"}

// ErrMissingCredentials is returned by Postgres.Validate when a required
// connection setting has no value. Credentials never have defaults.
var ErrMissingCredentials = errors.New("missing database credentials")

// Config is built once at process start and handed to each component.
type Config struct {
	Postgres Postgres
	Finder   Finder
	Export   Export
	Drive    Drive
	Log      Log
	Metrics  Metrics
}

// Postgres captures store connection settings.
type Postgres struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
	Table    string
}

// Finder captures product-finder API settings.
type Finder struct {
	BaseURL        string
	Certifications []string
	PageSize       int
	Timeout        time.Duration
	RatePerSecond  float64
	Lookback       time.Duration
}

// Export captures where monthly exports are written.
type Export struct {
	Root string
}

// Drive captures the optional upload destination.
type Drive struct {
	CredentialsFile string
	ParentID        string
}

// Log captures slog handler settings.
type Log struct {
	Level  string
	Format string
}

// Metrics captures the node_exporter textfile destination. Empty disables it.
type Metrics struct {
	TextfilePath string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return fallback
	}

	var errs []error
	port, err := strconv.Atoi(get("POSTGRES_PORT", "5432"))
	if err != nil {
		errs = append(errs, fmt.Errorf("POSTGRES_PORT: %w", err))
	}
	pageSize, err := strconv.Atoi(get("CERTSYNC_PAGE_SIZE", "100"))
	if err != nil || pageSize <= 0 {
		errs = append(errs, fmt.Errorf("CERTSYNC_PAGE_SIZE must be a positive integer"))
	}
	timeout, err := time.ParseDuration(get("CERTSYNC_HTTP_TIMEOUT", "30s"))
	if err != nil {
		errs = append(errs, fmt.Errorf("CERTSYNC_HTTP_TIMEOUT: %w", err))
	}
	rps, err := strconv.ParseFloat(get("CERTSYNC_RATE_LIMIT", "2"), 64)
	if err != nil || rps <= 0 {
		errs = append(errs, fmt.Errorf("CERTSYNC_RATE_LIMIT must be a positive number"))
	}
	lookback, err := time.ParseDuration(get("CERTSYNC_SYNC_LOOKBACK", "168h"))
	if err != nil {
		errs = append(errs, fmt.Errorf("CERTSYNC_SYNC_LOOKBACK: %w", err))
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}

	certs := DefaultCertifications
	if v, ok := lookup("CERTSYNC_CERTIFICATIONS"); ok && v != "" {
		certs = strings.SplitList(v)
	}

	return Config{
		Postgres: Postgres{
			Host:     get("POSTGRES_HOST", ""),
			Port:     port,
			Database: get("POSTGRES_DB", ""),
			User:     get("POSTGRES_USER", ""),
			Password: get("POSTGRES_PASSWORD", ""),
			SSLMode:  get("POSTGRES_SSLMODE", "require"),
			Table:    get("CERTSYNC_TABLE", "wifi_products"),
		},
		Finder: Finder{
			BaseURL:        get("CERTSYNC_FINDER_URL", "https://www.wi-fi.org/product-finder-api"),
			Certifications: certs,
			PageSize:       pageSize,
			Timeout:        timeout,
			RatePerSecond:  rps,
			Lookback:       lookback,
		},
		Export: Export{Root: get("CERTSYNC_EXPORT_DIR", "data")},
		Drive: Drive{
			CredentialsFile: get("CERTSYNC_DRIVE_CREDENTIALS", ""),
			ParentID:        get("CERTSYNC_DRIVE_PARENT_ID", ""),
		},
		Log: Log{
			Level:  get("CERTSYNC_LOG_LEVEL", "info"),
			Format: get("CERTSYNC_LOG_FORMAT", "text"),
		},
		Metrics: Metrics{TextfilePath: get("CERTSYNC_METRICS_FILE", "")},
	}, nil
}

// Validate reports every missing connection setting at once.
func (p Postgres) Validate() error {
	var missing []string
	if p.Host == "" {
		missing = append(missing, "POSTGRES_HOST")
	}
	if p.Database == "" {
		missing = append(missing, "POSTGRES_DB")
	}
	if p.User == "" {
		missing = append(missing, "POSTGRES_USER")
	}
	if p.Password == "" {
		missing = append(missing, "POSTGRES_PASSWORD")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrMissingCredentials, missing)
	}
	return nil
}

// Validate reports whether uploads can be attempted.
func (d Drive) Validate() error {
	if d.CredentialsFile == "" || d.ParentID == "" {
		return errors.New("CERTSYNC_DRIVE_CREDENTIALS and CERTSYNC_DRIVE_PARENT_ID are required for uploads")
	}
	return nil
}
