package infrastructure

import (
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"user-directory-service/internal/adapter/db/postgres"
	"user-directory-service/internal/config"
)

func sqliteConfig(t *testing.T) *config.Config {
	return &config.Config{
		DB: config.DatabaseConfig{
			Driver:       config.DriverSQLite,
			SQLitePath:   filepath.Join(t.TempDir(), "users.db"),
			MaxOpenConns: 4,
			MaxIdleConns: 2,
		},
		Logger: config.LoggerConfig{Level: "info", SlowQuerySeconds: 1},
	}
}

func TestNewDatabase_SQLiteMigrates(t *testing.T) {
	db, err := NewDatabase(sqliteConfig(t), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = CloseDatabase(db) })

	assert.True(t, db.Migrator().HasTable(&postgres.UserSchema{}))
	assert.True(t, db.Migrator().HasIndex(&postgres.UserSchema{}, "Email"))
}

func TestNewDatabase_UnsupportedDriver(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.DB.Driver = "mysql"

	_, err := NewDatabase(cfg, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestCloseDatabase_Nil(t *testing.T) {
	assert.NoError(t, CloseDatabase(nil))
}

func TestNewRedisClient(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		rdb, err := NewRedisClient(&config.Config{}, zaptest.NewLogger(t))
		require.NoError(t, err)
		assert.Nil(t, rdb)
	})

	t.Run("enabled", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := &config.Config{Redis: config.RedisConfig{Enabled: true, Host: mr.Host(), Port: mr.Port(), PoolSize: 2}}

		rdb, err := NewRedisClient(cfg, zaptest.NewLogger(t))
		require.NoError(t, err)
		t.Cleanup(func() { _ = rdb.Close() })
		assert.NotNil(t, rdb.Client)
	})

	t.Run("unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := &config.Config{Redis: config.RedisConfig{Enabled: true, Host: mr.Host(), Port: mr.Port()}}
		mr.Close()

		_, err := NewRedisClient(cfg, zaptest.NewLogger(t))
		assert.Error(t, err)
	})
}
