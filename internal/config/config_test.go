package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitCSV(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "single", in: "kafka:9092", want: []string{"kafka:9092"}},
		{name: "spaces and empties", in: " a:1 , ,b:2,", want: []string{"a:1", "b:2"}},
		{name: "empty", in: "", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitCSV(tt.in))
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "0123456789abcdef")
	t.Setenv("BACKEND_BASE_URL", "http://backend.local/api/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://backend.local/api", cfg.Backend.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 12*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 30*time.Minute, cfg.Session.FormTTL)
	assert.NotEmpty(t, cfg.Kafka.Brokers)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SESSION_SECRET", "0123456789abcdef")
	t.Setenv("SESSION_TTL", "90m")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("RECONCILER_WORKERS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 90*time.Minute, cfg.Session.TTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 4, cfg.Kafka.Workers)
}

func TestLoad_RejectsShortSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "short")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_SECRET")
}

func TestAppConfig_IsProduction(t *testing.T) {
	assert.True(t, AppConfig{Env: "production"}.IsProduction())
	assert.True(t, AppConfig{Env: "prod"}.IsProduction())
	assert.False(t, AppConfig{Env: "development"}.IsProduction())
}
