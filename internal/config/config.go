package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// ServerConfig captures all tunable parameters for the tracking gateway.
// Values are primarily loaded from environment variables with sane defaults
// so the binary can run locally without excessive setup.
type ServerConfig struct {
	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Upstream organ-logistics services.
	GeoAlgoURL      string
	LocationURL     string
	DeliveryInfoURL string
	DriverInfoURL   string
	RecipientURL    string
	LabReportURL    string
	MatchURL        string
	OrderURL        string
	NotifyURL       string

	// Tracking loop tuning.
	TickPeriod   time.Duration
	BannerWindow time.Duration
	PollInterval time.Duration

	RedisAddr     string
	RedisPassword string
	RedisGeoKey   string

	KafkaBrokers []string
	KafkaTopic   string

	PGDSN string

	LogLevel      string
	RunMigrations bool
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:        ":8080",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		GeoAlgoURL:      "http://localhost:5006",
		LocationURL:     "https://zsq.outsystemscloud.com/Location/rest/Location",
		DeliveryInfoURL: "http://localhost:5002",
		DriverInfoURL:   "http://localhost:5004",
		RecipientURL:    "http://localhost:5013",
		LabReportURL:    "http://localhost:5007",
		MatchURL:        "http://localhost:5008",
		OrderURL:        "http://localhost:5009",
		TickPeriod:      time.Second,
		BannerWindow:    3 * time.Second,
		PollInterval:    10 * time.Second,
		RedisGeoKey:     "couriers_geo",
		KafkaTopic:      "courier-positions",
		LogLevel:        "info",
	}
}

func LoadServerConfig() (ServerConfig, error) {
	cfg := defaultServerConfig()
	var errs []error

	setStringFromEnv(&cfg.HTTPAddr, "HTTP_ADDR")
	setDurationFromEnv(&cfg.ReadTimeout, "HTTP_READ_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.WriteTimeout, "HTTP_WRITE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.IdleTimeout, "HTTP_IDLE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.ShutdownTimeout, "HTTP_SHUTDOWN_TIMEOUT", &errs)

	setStringFromEnv(&cfg.GeoAlgoURL, "GEOALGO_URL")
	setStringFromEnv(&cfg.LocationURL, "LOCATION_URL")
	setStringFromEnv(&cfg.DeliveryInfoURL, "DELIVERYINFO_URL")
	setStringFromEnv(&cfg.DriverInfoURL, "DRIVERINFO_URL")
	setStringFromEnv(&cfg.RecipientURL, "RECIPIENT_URL")
	setStringFromEnv(&cfg.LabReportURL, "LABREPORT_URL")
	setStringFromEnv(&cfg.MatchURL, "MATCH_URL")
	setStringFromEnv(&cfg.OrderURL, "ORDER_URL")
	setStringFromEnv(&cfg.NotifyURL, "NOTIFY_URL")

	setDurationFromEnv(&cfg.TickPeriod, "TRACK_TICK_PERIOD", &errs)
	setDurationFromEnv(&cfg.BannerWindow, "TRACK_BANNER_WINDOW", &errs)
	setDurationFromEnv(&cfg.PollInterval, "DRIVER_POLL_INTERVAL", &errs)

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	setStringFromEnv(&cfg.RedisGeoKey, "REDIS_GEO_KEY")

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")

	cfg.PGDSN = os.Getenv("PG_DSN")

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	cfg.RunMigrations = strings.EqualFold(os.Getenv("MIGRATE"), "true")

	if cfg.TickPeriod <= 0 {
		errs = append(errs, fmt.Errorf("TRACK_TICK_PERIOD must be > 0"))
	}
	if cfg.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("DRIVER_POLL_INTERVAL must be > 0"))
	}
	return cfg, errors.Join(errs...)
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setStringFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
