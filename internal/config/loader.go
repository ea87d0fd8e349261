package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the classroom service.
type Config struct {
	HTTPPort  int
	SQLiteDSN string

	MQTTBrokerURL string
	MQTTClientID  string
	MQTTUsername  string
	MQTTPassword  string
	MQTTTimeout   time.Duration

	RedisAddr     string
	RedisPassword string
	LockTTL       time.Duration
	CacheTTL      time.Duration
}

// Load parses configuration values from the current process environment.
//
// Every field has a working default so the service boots with an empty
// environment. MQTT and Redis stay disabled until their endpoints are set.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:     8080,
		SQLiteDSN:    "file:bedelia.db",
		MQTTClientID: "bedelia",
		MQTTTimeout:  10 * time.Second,
		LockTTL:      30 * time.Second,
		CacheTTL:     5 * time.Minute,
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("BEDELIA_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "BEDELIA_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("BEDELIA_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	cfg.MQTTBrokerURL = strings.TrimSpace(os.Getenv("BEDELIA_MQTT_BROKER_URL"))
	if clientID := strings.TrimSpace(os.Getenv("BEDELIA_MQTT_CLIENT_ID")); clientID != "" {
		cfg.MQTTClientID = clientID
	}
	cfg.MQTTUsername = strings.TrimSpace(os.Getenv("BEDELIA_MQTT_USERNAME"))
	cfg.MQTTPassword = os.Getenv("BEDELIA_MQTT_PASSWORD")

	if timeoutValue := strings.TrimSpace(os.Getenv("BEDELIA_MQTT_TIMEOUT")); timeoutValue != "" {
		timeout, err := time.ParseDuration(timeoutValue)
		if err != nil || timeout <= 0 {
			invalid = append(invalid, "BEDELIA_MQTT_TIMEOUT")
		} else {
			cfg.MQTTTimeout = timeout
		}
	}

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("BEDELIA_REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("BEDELIA_REDIS_PASSWORD")

	if ttlValue := strings.TrimSpace(os.Getenv("BEDELIA_LOCK_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "BEDELIA_LOCK_TTL")
		} else {
			cfg.LockTTL = ttl
		}
	}

	if ttlValue := strings.TrimSpace(os.Getenv("BEDELIA_CACHE_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "BEDELIA_CACHE_TTL")
		} else {
			cfg.CacheTTL = ttl
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("las variables de entorno tienen valores inválidos: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
