package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Supported Local Store drivers
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Supported ODBC driver catalogs
const (
	CatalogOdbcinst = "odbcinst"
	CatalogStatic   = "static"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Remote   RemoteConfig
	Log      LogConfig
}

// ServerConfig holds the server configuration
type ServerConfig struct {
	Port int
}

// DatabaseConfig holds the Local Store configuration
type DatabaseConfig struct {
	Driver   string
	Path     string // sqlite file
	Host     string
	Port     int
	Username string
	Password string
	DBName   string
	SSLMode  string
}

// RemoteConfig controls how the remote SQL Server driver is discovered
type RemoteConfig struct {
	Catalog       string
	OdbcinstPath  string
	StaticDrivers []string
	DriverMarker  string
}

// LogConfig holds the logging configuration
type LogConfig struct {
	Level string
}

// GetDSN returns the database connection string for the configured driver
func (c *DatabaseConfig) GetDSN() string {
	if c.Driver == DriverPostgres {
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.Username, c.Password, c.DBName, c.SSLMode,
		)
	}
	return c.Path + "?_foreign_keys=on&_busy_timeout=5000"
}

// LoadConfig loads the configuration from environment variables. A .env file
// in the working directory, when present, is applied first without
// overriding variables already set.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port: getEnvAsInt("SERVER_PORT", 3001),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", DriverSQLite),
			Path:     getEnv("DB_PATH", "database.db"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Username: getEnv("DB_USERNAME", "postgres"),
			Password: getEnv("DB_PASSWORD", "password"),
			DBName:   getEnv("DB_NAME", "billing"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Remote: RemoteConfig{
			Catalog:       getEnv("ODBC_CATALOG", CatalogOdbcinst),
			OdbcinstPath:  getEnv("ODBCINST_PATH", "/etc/odbcinst.ini"),
			StaticDrivers: getEnvAsList("ODBC_DRIVERS", []string{"ODBC Driver 17 for SQL Server"}),
			DriverMarker:  getEnv("ODBC_DRIVER_MARKER", "SQL Server"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}
}

// Helper functions to read environment variables
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	var values []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}
