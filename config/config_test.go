package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreEmbedded, cfg.Store.Kind)
	assert.False(t, cfg.Remote())
	assert.Equal(t, 720*time.Hour, cfg.Trash.Retention)
	assert.Equal(t, "30 3 * * *", cfg.Trash.PurgeSchedule)
	assert.Equal(t, "./static", cfg.App.StaticDir)
	assert.Equal(t, int64(8<<20), cfg.Images.UploadMaxBytes)
	assert.Equal(t, 10*time.Second, cfg.Images.FetchTimeout)
	assert.True(t, cfg.App.Seed)
}

func TestLoad_Remote(t *testing.T) {
	t.Setenv("PREVENTIVI_STORE", "Remote")
	t.Setenv("PREVENTIVI_DB_DRIVER", "sqlite")
	t.Setenv("PREVENTIVI_DB_DSN", "file:quotes.db")
	t.Setenv("PREVENTIVI_TRASH_RETENTION", "48h")
	t.Setenv("PREVENTIVI_SEED_PASSWORD", "cambiami-subito")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "cambiami-subito", cfg.App.SeedPassword)

	assert.True(t, cfg.Remote())
	assert.Equal(t, "sqlite", cfg.Store.DBDriver)
	assert.Equal(t, 48*time.Hour, cfg.Trash.Retention)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"remote without dsn", map[string]string{"PREVENTIVI_STORE": "remote"}},
		{"unknown store", map[string]string{"PREVENTIVI_STORE": "redis"}},
		{"unknown driver", map[string]string{"PREVENTIVI_STORE": "remote", "PREVENTIVI_DB_DRIVER": "mysql", "PREVENTIVI_DB_DSN": "x"}},
		{"zero retention", map[string]string{"PREVENTIVI_TRASH_RETENTION": "0s"}},
		{"bad duration", map[string]string{"PREVENTIVI_TRASH_RETENTION": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
