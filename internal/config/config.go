package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var AppEnv Config

type Config struct {
	Port      string
	DBDriver  string
	MongoURI  string
	DBName    string
	JWTSecret string
	Currency  string

	MediaBucketURL string
	MediaPublicURL string

	RedisAddr      string
	IdempotencyTTL time.Duration

	KafkaBrokers       []string
	OutboxPollInterval time.Duration

	QRCodeSize  int
	QRCodeLevel string
}

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	AppEnv = FromEnv()
}

// FromEnv reads the configuration from the process environment.
func FromEnv() Config {
	port := getEnvOrDefault("PORT", "8080")
	return Config{
		Port:               port,
		DBDriver:           strings.ToLower(getEnvOrDefault("DB_DRIVER", "mongo")),
		MongoURI:           getEnvOrDefault("MONGO_URI", ""),
		DBName:             getEnvOrDefault("DB_NAME", "marketplace"),
		JWTSecret:          getEnvOrDefault("JWT_SECRET", ""),
		Currency:           strings.ToLower(getEnvOrDefault("CURRENCY", "thb")),
		MediaBucketURL:     getEnvOrDefault("MEDIA_BUCKET_URL", "file:///app/public/uploads"),
		MediaPublicURL:     getEnvOrDefault("MEDIA_PUBLIC_URL", "http://localhost:"+port+"/public/uploads"),
		RedisAddr:          getEnvOrDefault("REDIS_ADDR", ""),
		IdempotencyTTL:     getDurationEnv("IDEMPOTENCY_TTL", 24, time.Hour),
		KafkaBrokers:       getListEnv("KAFKA_BROKERS"),
		OutboxPollInterval: getDurationEnv("OUTBOX_POLL_INTERVAL", 2, time.Second),
		QRCodeSize:         getIntEnv("QRCODE_SIZE", 256),
		QRCodeLevel:        strings.ToUpper(getEnvOrDefault("QRCODE_LEVEL", "M")),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * unit
		}
	}
	return time.Duration(defaultValue) * unit
}

func getListEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
