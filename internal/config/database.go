package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Default message templates. Tokens prefixed with @ are replaced by the
// sender with the client's data.
const (
	DefaultReminderMsg = "Olá, @nomecliente! Passando para lembrar que sua fatura no valor de R$ @valorparcela vence em @vencimentoparcela. 😊"
	DefaultOverdueMsg  = "Olá, @nomecliente. Identificamos que sua fatura de R$ @valorparcela, vencida em @vencimentoparcela, ainda está em aberto. Por favor, regularize sua situação. O valor total devido é R$ @valortotaldevido."
)

// SetupDatabase initializes the Local Store connection
func SetupDatabase(cfg *Config) (*sqlx.DB, error) {
	driver := cfg.Database.Driver
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Connect(driver, cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings. SQLite serializes writers anyway.
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}

	if err := createTables(db, driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := seedTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seed tables: %w", err)
	}

	return db, nil
}

var dialects = map[string]*strings.Replacer{
	DriverSQLite: strings.NewReplacer(
		"{pk}", "INTEGER PRIMARY KEY AUTOINCREMENT",
		"{bool}", "BOOLEAN",
		"{true}", "1",
		"{false}", "0",
		"{timestamp}", "DATETIME",
	),
	DriverPostgres: strings.NewReplacer(
		"{pk}", "BIGSERIAL PRIMARY KEY",
		"{bool}", "BOOLEAN",
		"{true}", "TRUE",
		"{false}", "FALSE",
		"{timestamp}", "TIMESTAMP",
	),
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS message_config (
		id {pk},
		send_time TEXT NOT NULL DEFAULT '09:00',
		reminder_enabled {bool} NOT NULL DEFAULT {true},
		reminder_days INTEGER NOT NULL DEFAULT 5,
		reminder_msg TEXT NOT NULL DEFAULT '',
		reminder_repeat_times INTEGER NOT NULL DEFAULT 1,
		reminder_repeat_interval_days INTEGER NOT NULL DEFAULT 3,
		overdue_enabled {bool} NOT NULL DEFAULT {true},
		overdue_days INTEGER NOT NULL DEFAULT 3,
		overdue_msg TEXT NOT NULL DEFAULT '',
		overdue_repeat_times INTEGER NOT NULL DEFAULT 1,
		overdue_repeat_interval_days INTEGER NOT NULL DEFAULT 7
	)`,
	`CREATE TABLE IF NOT EXISTS queue_items (
		id {pk},
		client_name TEXT,
		installment_value TEXT,
		due_date TEXT,
		scheduled_date TEXT,
		sent_date TEXT,
		error_date TEXT,
		code TEXT,
		cpf TEXT,
		status TEXT DEFAULT 'PENDING'
	)`,
	`CREATE TABLE IF NOT EXISTS blocked_clients (
		id {pk},
		identifier TEXT NOT NULL UNIQUE,
		client_name TEXT NOT NULL DEFAULT '',
		reason TEXT NOT NULL DEFAULT '',
		block_type TEXT NOT NULL DEFAULT 'client',
		client_code TEXT,
		installment_id TEXT,
		created_at {timestamp} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS db_connections (
		id {pk},
		host TEXT NOT NULL,
		database_name TEXT NOT NULL,
		username TEXT NOT NULL,
		password TEXT NOT NULL,
		active {bool} NOT NULL DEFAULT {false},
		created_at {timestamp} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS saved_queries (
		id {pk},
		name TEXT NOT NULL,
		query_text TEXT NOT NULL,
		created_at {timestamp} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS field_mappings (
		id {pk},
		message_variable TEXT NOT NULL UNIQUE,
		database_column TEXT NOT NULL,
		created_at {timestamp} NOT NULL,
		updated_at {timestamp} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS error_logs (
		id {pk},
		logged_at {timestamp} NOT NULL,
		kind TEXT NOT NULL,
		message TEXT NOT NULL,
		details TEXT,
		client_code TEXT,
		phone TEXT
	)`,
}

// addedColumns lists columns introduced after a table was first released.
// Stores created before then get them through ALTER TABLE.
var addedColumns = []struct {
	table, column, definition string
}{
	{"message_config", "reminder_repeat_times", "INTEGER NOT NULL DEFAULT 1"},
	{"message_config", "reminder_repeat_interval_days", "INTEGER NOT NULL DEFAULT 3"},
	{"message_config", "overdue_repeat_times", "INTEGER NOT NULL DEFAULT 1"},
	{"message_config", "overdue_repeat_interval_days", "INTEGER NOT NULL DEFAULT 7"},
	{"blocked_clients", "block_type", "TEXT NOT NULL DEFAULT 'client'"},
	{"blocked_clients", "client_code", "TEXT"},
	{"blocked_clients", "installment_id", "TEXT"},
}

// DefaultFieldMappings links the template placeholders to the column names
// of the remote billing query.
var DefaultFieldMappings = [][2]string{
	{"@codigocliente", "codigocliente"},
	{"@nomecliente", "nomecliente"},
	{"@cpfcliente", "cpfcliente"},
	{"@fone1", "fone1"},
	{"@fone2", "fone2"},
	{"@descricaoparcela", "descricaoparcela"},
	{"@emissaoparcela", "emissao"},
	{"@vencimentoparcela", "vencimento"},
	{"@valorbrutoparcela", "valorbrutoparcela"},
	{"@desconto", "desconto"},
	{"@juros", "juros"},
	{"@multa", "multa"},
	{"@valorfinalparcela", "valorfinalparcela"},
	{"@valortotaldevido", "valortotaldevido"},
	{"@totalvencido", "totalvencido"},
}

// createTables creates the necessary tables in the database
func createTables(db *sqlx.DB, driver string) error {
	dialect := dialects[driver]
	for _, stmt := range schema {
		if _, err := db.Exec(dialect.Replace(stmt)); err != nil {
			return err
		}
	}

	if err := addMissingColumns(db); err != nil {
		return err
	}

	// Create indexes for better performance
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_queue_items_status ON queue_items(status)",
		"CREATE INDEX IF NOT EXISTS idx_db_connections_active ON db_connections(active)",
		"CREATE INDEX IF NOT EXISTS idx_error_logs_logged_at ON error_logs(logged_at)",
	}

	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			log.Printf("Warning: Failed to create index: %v", err)
			// Don't return error here, indexes are not critical
		}
	}

	return nil
}

func addMissingColumns(db *sqlx.DB) error {
	existing := map[string]map[string]bool{}
	for _, c := range addedColumns {
		cols, ok := existing[c.table]
		if !ok {
			var err error
			if cols, err = tableColumns(db, c.table); err != nil {
				return err
			}
			existing[c.table] = cols
		}
		if cols[c.column] {
			continue
		}

		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", c.table, c.column, c.definition)
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("adding %s.%s: %w", c.table, c.column, err)
		}
		cols[c.column] = true
	}
	return nil
}

// tableColumns reads the column names of table from an empty result set,
// which works the same on every driver.
func tableColumns(db *sqlx.DB, table string) (map[string]bool, error) {
	rows, err := db.Queryx("SELECT * FROM " + table + " WHERE 1 = 0")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	cols := make(map[string]bool, len(names))
	for _, name := range names {
		cols[name] = true
	}
	return cols, nil
}

// seedTables inserts the default message configuration, two example queue
// items and the default field mappings, each only when its table is empty.
func seedTables(db *sqlx.DB) error {
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM message_config"); err != nil {
		return err
	}
	if count == 0 {
		_, err := db.Exec(db.Rebind(`
			INSERT INTO message_config (send_time, reminder_days, reminder_msg, overdue_days, overdue_msg)
			VALUES (?, ?, ?, ?, ?)
		`), "09:00", 5, DefaultReminderMsg, 3, DefaultOverdueMsg)
		if err != nil {
			return err
		}
	}

	if err := db.Get(&count, "SELECT COUNT(*) FROM queue_items"); err != nil {
		return err
	}
	if count == 0 {
		insert := db.Rebind(`
			INSERT INTO queue_items (client_name, installment_value, due_date, scheduled_date, sent_date, error_date, code, cpf, status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		seeds := [][]interface{}{
			{"Ana Silva", "150,00", "30/10/2023", "25/10/2023 10:00", nil, nil, "10234", "123.***.***-00", "PENDING"},
			{"Carlos Pereira", "250,50", "20/10/2023", nil, "24/10/2023 15:30", nil, "10235", "987.***.***-00", "SENT"},
		}
		for _, args := range seeds {
			if _, err := db.Exec(insert, args...); err != nil {
				return err
			}
		}
	}

	if err := db.Get(&count, "SELECT COUNT(*) FROM field_mappings"); err != nil {
		return err
	}
	if count == 0 {
		insert := db.Rebind(`
			INSERT INTO field_mappings (message_variable, database_column, created_at, updated_at)
			VALUES (?, ?, ?, ?)
		`)
		now := time.Now().UTC()
		for _, m := range DefaultFieldMappings {
			if _, err := db.Exec(insert, m[0], m[1], now, now); err != nil {
				return err
			}
		}
	}

	return nil
}
