package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_DRIVER", "DB_NAME", "CURRENCY", "MEDIA_PUBLIC_URL", "KAFKA_BROKERS", "IDEMPOTENCY_TTL", "QRCODE_SIZE"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "mongo", cfg.DBDriver)
	assert.Equal(t, "marketplace", cfg.DBName)
	assert.Equal(t, "thb", cfg.Currency)
	assert.Equal(t, "http://localhost:8080/public/uploads", cfg.MediaPublicURL)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, 256, cfg.QRCodeSize)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DB_DRIVER", "Memory")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092 ,")
	t.Setenv("OUTBOX_POLL_INTERVAL", "5")
	t.Setenv("QRCODE_SIZE", "-3")
	t.Setenv("QRCODE_LEVEL", "h")

	cfg := FromEnv()
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "memory", cfg.DBDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 5*time.Second, cfg.OutboxPollInterval)
	assert.Equal(t, 256, cfg.QRCodeSize)
	assert.Equal(t, "H", cfg.QRCodeLevel)
}
