package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "dev-secret")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, 24*time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, 15*time.Minute, cfg.CartCacheTTL)
	assert.Equal(t, "order.created", cfg.OrderTopic)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.False(t, cfg.IsProd())
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestValidate_ProdSecretLength(t *testing.T) {
	cfg := Config{Port: "8080", GoEnv: "prod", JWTSecret: "short", PostgresHost: "db", AccessTokenTTL: time.Hour}
	assert.Error(t, cfg.Validate())

	cfg.JWTSecret = "0123456789abcdef0123456789abcdef"
	assert.NoError(t, cfg.Validate())
}

func TestPostgresDSN(t *testing.T) {
	cfg := Config{
		PostgresHost:     "db",
		PostgresPort:     5432,
		PostgresUser:     "u",
		PostgresPassword: "p",
		PostgresDB:       "shop",
		PostgresSSLMode:  "disable",
	}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=shop sslmode=disable", cfg.PostgresDSN())

	cfg.DatabaseURL = "postgres://u:p@db:5432/shop"
	assert.Equal(t, "postgres://u:p@db:5432/shop", cfg.PostgresDSN())
}

func TestAddr(t *testing.T) {
	assert.Equal(t, ":9000", Config{Port: "9000"}.Addr())
	assert.Equal(t, ":9000", Config{Port: ":9000"}.Addr())
}
