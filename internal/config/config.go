package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds the settings shared by every foodflow binary. Each binary
// reads only the fields it needs and checks its own required values.
type Config struct {
	Port         string
	PostgresURL  string
	SearchPath   string
	KafkaBrokers []string
	OTLPEndpoint string

	CatalogServiceURL string
	OrdersServiceURL  string
	EmailServiceURL   string

	JWTSecret string

	DeliveryFee             int64
	TaxRate                 decimal.Decimal
	EstimatedDeliveryOffset time.Duration
	OrderNumberPrefix       string

	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
}

// Load reads an optional .env file and then the process environment.
// defaultPort is used when PORT is unset.
func Load(defaultPort string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Port:              getEnv("PORT", defaultPort),
		PostgresURL:       os.Getenv("POSTGRES_URL"),
		SearchPath:        os.Getenv("POSTGRES_SEARCH_PATH"),
		KafkaBrokers:      splitList(os.Getenv("KAFKA_BROKERS")),
		OTLPEndpoint:      getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		CatalogServiceURL: os.Getenv("CATALOG_SERVICE_URL"),
		OrdersServiceURL:  os.Getenv("ORDERS_SERVICE_URL"),
		EmailServiceURL:   os.Getenv("EMAIL_SERVICE_URL"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		OrderNumberPrefix: getEnv("ORDER_NUMBER_PREFIX", "ORD"),
	}

	var err error
	if cfg.DeliveryFee, err = getInt64("DELIVERY_FEE", 0); err != nil {
		return nil, err
	}
	if cfg.TaxRate, err = getDecimal("TAX_RATE", decimal.Zero); err != nil {
		return nil, err
	}
	if cfg.EstimatedDeliveryOffset, err = getDuration("ESTIMATED_DELIVERY_OFFSET", 45*time.Minute); err != nil {
		return nil, err
	}
	if cfg.DBMaxOpenConns, err = getInt("DB_MAX_OPEN_CONNS", 25); err != nil {
		return nil, err
	}
	if cfg.DBMaxIdleConns, err = getInt("DB_MAX_IDLE_CONNS", 5); err != nil {
		return nil, err
	}
	if cfg.DBConnMaxLifetime, err = getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DSN returns PostgresURL with a search_path runtime parameter, so every
// pooled connection resolves unqualified tables in the service schema.
// POSTGRES_SEARCH_PATH overrides defaultSchema; an explicit search_path in
// the URL wins over both.
func (c *Config) DSN(defaultSchema string) (string, error) {
	u, err := url.Parse(c.PostgresURL)
	if err != nil {
		return "", fmt.Errorf("invalid POSTGRES_URL: %w", err)
	}
	q := u.Query()
	if q.Get("search_path") == "" {
		schema := c.SearchPath
		if schema == "" {
			schema = defaultSchema
		}
		if schema != "" {
			q.Set("search_path", schema)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getDecimal(key string, fallback decimal.Decimal) (decimal.Decimal, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
