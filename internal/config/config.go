package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	// InfluxDB v2 connection. URL and token are required; nothing is embedded in the binary.
	InfluxURL     string
	InfluxToken   string
	InfluxOrg     string
	InfluxBucket  string
	InfluxTimeout time.Duration

	ZoneRefreshInterval time.Duration

	SQLiteDriver          string
	SQLiteDSN             string
	SQLitePath            string
	SQLiteMaxOpenConns    int
	SQLiteMaxIdleConns    int
	SQLiteConnMaxLifetime time.Duration
	SQLiteLogStatements   bool

	// MQTTBroker empty disables zone snapshot publishing.
	MQTTBroker      string
	MQTTPort        int
	MQTTClientID    string
	MQTTTopicPrefix string
}

// MQTTEnabled reports whether a broker was configured.
func (c Config) MQTTEnabled() bool {
	return c.MQTTBroker != ""
}

// LoadFromEnv reads the full server configuration.
func LoadFromEnv() (Config, error) {
	var cfg Config
	for _, load := range []func(*Config) error{loadBase, loadInflux, loadSQLite, loadMQTT} {
		if err := load(&cfg); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

// LoadDBFromEnv reads only what the migrate command needs; InfluxDB settings are not required.
func LoadDBFromEnv() (Config, error) {
	var cfg Config
	for _, load := range []func(*Config) error{loadBase, loadSQLite} {
		if err := load(&cfg); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

func loadBase(cfg *Config) error {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return err
	}

	httpAddr := strings.TrimSpace(os.Getenv("HTTP_ADDR"))
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	zoneRefreshInterval, err := parsePositiveDuration("ZONE_REFRESH_INTERVAL", "30s")
	if err != nil {
		return err
	}

	cfg.AppEnv = appEnv
	cfg.LogLevel = level
	cfg.HTTPAddr = httpAddr
	cfg.ZoneRefreshInterval = zoneRefreshInterval
	return nil
}

func loadInflux(cfg *Config) error {
	influxURL := strings.TrimRight(strings.TrimSpace(os.Getenv("INFLUX_URL")), "/")
	if influxURL == "" {
		return fmt.Errorf("INFLUX_URL is required")
	}
	u, err := url.Parse(influxURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid INFLUX_URL %q (expected http(s)://host[:port])", influxURL)
	}

	influxToken := strings.TrimSpace(os.Getenv("INFLUX_TOKEN"))
	if influxToken == "" {
		return fmt.Errorf("INFLUX_TOKEN is required")
	}

	influxOrg := strings.TrimSpace(os.Getenv("INFLUX_ORG"))
	if influxOrg == "" {
		influxOrg = "Fresas"
	}

	influxBucket := strings.TrimSpace(os.Getenv("INFLUX_BUCKET"))
	if influxBucket == "" {
		influxBucket = "invernaderos"
	}

	influxTimeout, err := parsePositiveDuration("INFLUX_TIMEOUT", "15s")
	if err != nil {
		return err
	}

	cfg.InfluxURL = influxURL
	cfg.InfluxToken = influxToken
	cfg.InfluxOrg = influxOrg
	cfg.InfluxBucket = influxBucket
	cfg.InfluxTimeout = influxTimeout
	return nil
}

func loadSQLite(cfg *Config) error {
	driver := strings.TrimSpace(os.Getenv("DB_DRIVER"))
	if driver == "" {
		driver = "sqlite3"
	}
	path := strings.TrimSpace(os.Getenv("SQLITE_PATH"))
	if path == "" {
		path = ":memory:"
	}

	maxOpenConnsStr := strings.TrimSpace(os.Getenv("DB_MAX_OPEN_CONNS"))
	if maxOpenConnsStr == "" {
		maxOpenConnsStr = "1"
	}
	maxOpenConns, err := strconv.Atoi(maxOpenConnsStr)
	if err != nil {
		return fmt.Errorf("invalid DB_MAX_OPEN_CONNS %q: %w", maxOpenConnsStr, err)
	}

	maxIdleConnsStr := strings.TrimSpace(os.Getenv("DB_MAX_IDLE_CONNS"))
	if maxIdleConnsStr == "" {
		maxIdleConnsStr = "1"
	}
	maxIdleConns, err := strconv.Atoi(maxIdleConnsStr)
	if err != nil {
		return fmt.Errorf("invalid DB_MAX_IDLE_CONNS %q: %w", maxIdleConnsStr, err)
	}

	connMaxLifetimeStr := strings.TrimSpace(os.Getenv("DB_CONN_MAX_LIFETIME"))
	if connMaxLifetimeStr == "" {
		connMaxLifetimeStr = "0s"
	}
	connMaxLifetime, err := time.ParseDuration(connMaxLifetimeStr)
	if err != nil {
		return fmt.Errorf("invalid DB_CONN_MAX_LIFETIME %q: %w", connMaxLifetimeStr, err)
	}

	logSQL := false
	if s := strings.TrimSpace(os.Getenv("DB_LOG_SQL")); s != "" {
		logSQL, err = strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("invalid DB_LOG_SQL %q: %w", s, err)
		}
	}

	dsn := strings.TrimSpace(os.Getenv("DB_DSN"))
	if dsn == "" && path == ":memory:" {
		if maxIdleConns < 1 {
			return fmt.Errorf("DB_MAX_IDLE_CONNS must be at least 1 with an in-memory database, got %d", maxIdleConns)
		}
		if connMaxLifetime > 0 {
			return fmt.Errorf("DB_CONN_MAX_LIFETIME must be 0 with an in-memory database, got %s", connMaxLifetime)
		}
	}

	cfg.SQLiteDriver = driver
	cfg.SQLiteDSN = dsn
	cfg.SQLitePath = path
	cfg.SQLiteMaxOpenConns = maxOpenConns
	cfg.SQLiteMaxIdleConns = maxIdleConns
	cfg.SQLiteConnMaxLifetime = connMaxLifetime
	cfg.SQLiteLogStatements = logSQL
	return nil
}

func loadMQTT(cfg *Config) error {
	mqttPortStr := strings.TrimSpace(os.Getenv("MQTT_PORT"))
	if mqttPortStr == "" {
		mqttPortStr = "1883"
	}
	mqttPort, err := strconv.Atoi(mqttPortStr)
	if err != nil {
		return fmt.Errorf("invalid MQTT_PORT %q: %w", mqttPortStr, err)
	}

	mqttClientID := strings.TrimSpace(os.Getenv("MQTT_CLIENT_ID"))
	if mqttClientID == "" {
		mqttClientID = "greenhouse-dashboard"
	}

	mqttTopicPrefix := strings.Trim(strings.TrimSpace(os.Getenv("MQTT_TOPIC_PREFIX")), "/")
	if mqttTopicPrefix == "" {
		mqttTopicPrefix = "greenhouse"
	}

	cfg.MQTTBroker = strings.TrimSpace(os.Getenv("MQTT_BROKER"))
	cfg.MQTTPort = mqttPort
	cfg.MQTTClientID = mqttClientID
	cfg.MQTTTopicPrefix = mqttTopicPrefix
	return nil
}

func parsePositiveDuration(name, def string) (time.Duration, error) {
	s := strings.TrimSpace(os.Getenv(name))
	if s == "" {
		s = def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %v", name, d)
	}
	return d, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
