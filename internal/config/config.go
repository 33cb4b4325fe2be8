package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

type Config struct {
	ServerPort  string
	DatabaseURL string
	RedisURL    string
	JWTSecret   string
	JWTExpiry   time.Duration

	// RequestsPath is the remote collection mirrored by the dashboard.
	RequestsPath             string
	DeleteTimeout            time.Duration
	SubscriptionPingInterval time.Duration

	// DeviceToken authorizes bedside devices on the HTTP writer path.
	// Empty disables that route.
	DeviceToken string

	MQTTBroker   string
	MQTTClientID string
	MQTTTopic    string
	MQTTUsername string
	MQTTPassword string

	LogLevel  string
	LogFormat string
}

func LoadConfig() (*Config, error) {
	expiry, err := getDuration("JWT_EXPIRY", "24h")
	if err != nil {
		return nil, err
	}
	deleteTimeout, err := getDuration("DELETE_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	pingInterval, err := getDuration("SUBSCRIPTION_PING_INTERVAL", "15s")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServerPort:               getEnv("SERVER_PORT", "8080"),
		DatabaseURL:              os.Getenv("DATABASE_URL"),
		RedisURL:                 os.Getenv("REDIS_URL"),
		JWTSecret:                os.Getenv("JWT_SECRET"),
		JWTExpiry:                expiry,
		RequestsPath:             getEnv("REQUESTS_PATH", "requests"),
		DeleteTimeout:            deleteTimeout,
		SubscriptionPingInterval: pingInterval,
		DeviceToken:              os.Getenv("DEVICE_TOKEN"),
		MQTTBroker:               os.Getenv("MQTT_BROKER"),
		MQTTClientID:             getEnv("MQTT_CLIENT_ID", "nurseaide-ingest"),
		MQTTTopic:                getEnv("MQTT_TOPIC", "eyetrac/requests"),
		MQTTUsername:             os.Getenv("MQTT_USERNAME"),
		MQTTPassword:             os.Getenv("MQTT_PASSWORD"),
		LogLevel:                 getEnv("LOG_LEVEL", "info"),
		LogFormat:                getEnv("LOG_FORMAT", "json"),
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// MQTTEnabled reports whether bedside ingest over MQTT should be started.
func (c *Config) MQTTEnabled() bool {
	return c.MQTTBroker != ""
}

// Helper: get env with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key, defaultValue string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, defaultValue))
	if err != nil {
		return 0, fmt.Errorf("invalid %s format", key)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}
