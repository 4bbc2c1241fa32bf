package config

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, 3001, cfg.Server.Port)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, CatalogOdbcinst, cfg.Remote.Catalog)
	assert.Equal(t, "SQL Server", cfg.Remote.DriverMarker)
	assert.Equal(t, []string{"ODBC Driver 17 for SQL Server"}, cfg.Remote.StaticDrivers)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "8081")
	t.Setenv("DB_DRIVER", DriverPostgres)
	t.Setenv("DB_NAME", "cobranca")
	t.Setenv("ODBC_CATALOG", CatalogStatic)
	t.Setenv("ODBC_DRIVERS", "ODBC Driver 18 for SQL Server, FreeTDS ,,")

	cfg := LoadConfig()

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, []string{"ODBC Driver 18 for SQL Server", "FreeTDS"}, cfg.Remote.StaticDrivers)
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=password dbname=cobranca sslmode=disable",
		cfg.Database.GetDSN())
}

func TestGetEnvAsIntFallsBack(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-number")
	assert.Equal(t, 3001, getEnvAsInt("SERVER_PORT", 3001))
}

func TestSetupDatabaseSeedsOnce(t *testing.T) {
	cfg := LoadConfig()
	cfg.Database.Driver = DriverSQLite
	cfg.Database.Path = filepath.Join(t.TempDir(), "seed.db")

	for i := 0; i < 2; i++ {
		db, err := SetupDatabase(cfg)
		require.NoError(t, err)

		var configs, items, mappings int
		require.NoError(t, db.Get(&configs, "SELECT COUNT(*) FROM message_config"))
		require.NoError(t, db.Get(&items, "SELECT COUNT(*) FROM queue_items"))
		require.NoError(t, db.Get(&mappings, "SELECT COUNT(*) FROM field_mappings"))
		assert.Equal(t, 1, configs)
		assert.Equal(t, 2, items)
		assert.Equal(t, len(DefaultFieldMappings), mappings)

		require.NoError(t, db.Close())
	}
}

func TestSetupDatabaseRejectsUnknownDriver(t *testing.T) {
	cfg := LoadConfig()
	cfg.Database.Driver = "mysql"

	_, err := SetupDatabase(cfg)
	assert.Error(t, err)
}

func TestSetupDatabaseAddsMissingColumns(t *testing.T) {
	cfg := LoadConfig()
	cfg.Database.Driver = DriverSQLite
	cfg.Database.Path = filepath.Join(t.TempDir(), "old.db")

	// A store created before block types existed
	old := sqlx.MustOpen(DriverSQLite, cfg.Database.Path)
	old.MustExec(`CREATE TABLE blocked_clients (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		identifier TEXT NOT NULL UNIQUE,
		client_name TEXT NOT NULL DEFAULT '',
		reason TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	)`)
	old.MustExec(`INSERT INTO blocked_clients (identifier, created_at) VALUES ('10234', '2024-01-02 10:00:00')`)
	require.NoError(t, old.Close())

	db, err := SetupDatabase(cfg)
	require.NoError(t, err)
	defer db.Close()

	cols, err := tableColumns(db, "blocked_clients")
	require.NoError(t, err)
	assert.True(t, cols["block_type"])
	assert.True(t, cols["client_code"])
	assert.True(t, cols["installment_id"])

	var blockType string
	require.NoError(t, db.Get(&blockType, "SELECT block_type FROM blocked_clients WHERE identifier = '10234'"))
	assert.Equal(t, "client", blockType)
}
