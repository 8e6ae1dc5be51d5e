package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadFrom(t *testing.T) {
	t.Parallel()

	t.Run("applies defaults", func(t *testing.T) {
		cfg, err := LoadFrom(map[string]string{
			"JWT_SECRET":   "  s3cret  ",
			"DATABASE_URL": "postgres://localhost/auth",
		})
		require.NoError(t, err)

		require.Equal(t, "s3cret", cfg.JWTSecret)
		require.Equal(t, time.Hour, cfg.JWTTTL())
		require.Equal(t, "8080", cfg.ServerPort)
		require.Equal(t, "/api", cfg.APIPrefix)
		require.Equal(t, []string{"*"}, cfg.CORSOrigins)
		require.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
		require.Equal(t, 12, cfg.BcryptCost)
		require.Equal(t, 5*time.Second, cfg.StoreTimeout)
		require.Equal(t, 3, cfg.StoreReadAttempts)
		require.Equal(t, "pretty", cfg.LogFormat)
	})

	t.Run("parses overrides", func(t *testing.T) {
		cfg, err := LoadFrom(map[string]string{
			"JWT_SECRET":      "s3cret",
			"JWT_TTL_SECONDS": "60",
			"STORE_DRIVER":    "SQLite",
			"SQLITE_PATH":     "/tmp/auth.db",
			"API_PREFIX":      "v1/",
			"CORS_ORIGINS":    "https://a.example, https://b.example,",
			"STORE_TIMEOUT":   "250ms",
			"LOG_FORMAT":      "JSON",
		})
		require.NoError(t, err)

		require.Equal(t, time.Minute, cfg.JWTTTL())
		require.Equal(t, StoreDriverSQLite, cfg.StoreDriver)
		require.Equal(t, "/v1", cfg.APIPrefix)
		require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
		require.Equal(t, 250*time.Millisecond, cfg.StoreTimeout)
		require.Equal(t, "json", cfg.LogFormat)
	})

	t.Run("allows mounting at the root", func(t *testing.T) {
		cfg, err := LoadFrom(map[string]string{
			"JWT_SECRET":   "s3cret",
			"STORE_DRIVER": "memory",
			"API_PREFIX":   "/",
		})
		require.NoError(t, err)
		require.Equal(t, "", cfg.APIPrefix)
	})

	t.Run("rejects invalid settings", func(t *testing.T) {
		cases := map[string]map[string]string{
			"missing secret":   {"STORE_DRIVER": "memory"},
			"blank secret":     {"JWT_SECRET": "   ", "STORE_DRIVER": "memory"},
			"missing dsn":      {"JWT_SECRET": "s3cret"},
			"unknown driver":   {"JWT_SECRET": "s3cret", "STORE_DRIVER": "mysql"},
			"zero ttl":         {"JWT_SECRET": "s3cret", "STORE_DRIVER": "memory", "JWT_TTL_SECONDS": "0"},
			"bad log format":   {"JWT_SECRET": "s3cret", "STORE_DRIVER": "memory", "LOG_FORMAT": "xml"},
			"unparsable value": {"JWT_SECRET": "s3cret", "STORE_DRIVER": "memory", "STORE_TIMEOUT": "soon"},
		}
		for name, vars := range cases {
			_, err := LoadFrom(vars)
			require.Error(t, err, name)
		}
	})
}
