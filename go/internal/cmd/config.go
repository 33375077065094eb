package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/dbconfig"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Port            string
	LogLevel        zerolog.Level
	LogJSON         bool
	ShutdownTimeout time.Duration

	Store    string
	Database dbconfig.Config

	// TemplatesPath is an optional YAML library merged over the presets.
	TemplatesPath string

	TickInterval      time.Duration
	PersistEveryTicks int

	// NATSURL enables the JetStream publisher when set.
	NATSURL string

	TelegramToken  string
	TelegramChatID int64

	// WSClientCommands lets websocket clients drive the session. Browsers
	// must then connect from this server's origin or one of WSAllowedOrigins.
	WSClientCommands bool
	WSAllowedOrigins []string
}

func loadConfig() Config {
	level, err := zerolog.ParseLevel(strings.ToLower(getEnv("LOG_LEVEL", "info")))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return Config{
		Port:              getEnv("PORT", "8080"),
		LogLevel:          level,
		LogJSON:           getEnvAsBool("LOG_JSON", false),
		ShutdownTimeout:   getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		Store:             getEnv("STORE", StorePostgres),
		Database:          dbconfig.NewConfigFromEnv(),
		TemplatesPath:     getEnv("TEMPLATES_PATH", ""),
		TickInterval:      getEnvAsDuration("TICK_INTERVAL", time.Second),
		PersistEveryTicks: getEnvAsInt("PERSIST_EVERY_TICKS", 10),
		NATSURL:           getEnv("NATS_URL", ""),
		TelegramToken:     getEnv("TELEGRAM_TOKEN", ""),
		TelegramChatID:    getEnvAsInt64("TELEGRAM_CHAT_ID", 0),
		WSClientCommands:  getEnvAsBool("WS_CLIENT_COMMANDS", false),
		WSAllowedOrigins:  getEnvAsList("WS_ALLOWED_ORIGINS"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
