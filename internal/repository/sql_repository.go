package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/rongwang/billing-admin/internal/models"
)

// ErrDuplicate is returned when an insert violates a uniqueness constraint
var ErrDuplicate = errors.New("duplicate record")

// SavedQueryName is the name recorded for every query saved from the UI
const SavedQueryName = "Last Query"

// Repository interface defines the methods that any Local Store implementation must satisfy
type Repository interface {
	// Message configuration
	GetMessageConfig(ctx context.Context) (*models.MessageConfig, error)
	UpdateMessageConfig(ctx context.Context, cfg *models.MessageConfig) (int64, error)

	// Queue operations
	ListQueueItems(ctx context.Context, status string) ([]models.QueueItem, error)

	// Blocklist operations
	ListBlockedClients(ctx context.Context) ([]models.BlockedClient, error)
	CreateBlockedClient(ctx context.Context, client *models.BlockedClient) error
	DeleteBlockedClient(ctx context.Context, id int64) (int64, error)

	// Remote connection credentials
	GetActiveConnection(ctx context.Context) (*models.DbConnection, error)
	ListConnections(ctx context.Context) ([]models.DbConnection, error)
	InsertConnection(ctx context.Context, conn *models.DbConnection) error
	SetActiveConnection(ctx context.Context, id int64) (bool, error)

	// Saved query history
	AppendSavedQuery(ctx context.Context, query *models.SavedQuery) error
	ListSavedQueries(ctx context.Context, limit int) ([]models.SavedQuery, error)
	DeleteSavedQuery(ctx context.Context, id int64) (int64, error)

	// Template placeholder mappings
	ListFieldMappings(ctx context.Context) ([]models.FieldMapping, error)
	UpsertFieldMappings(ctx context.Context, mappings []models.FieldMapping) error

	// Error log
	InsertErrorLog(ctx context.Context, entry *models.ErrorLog) error
	ListErrorLogs(ctx context.Context, limit int) ([]models.ErrorLog, error)
}

// SQLRepository implements the Repository interface on top of sqlx. Queries
// are written with ? placeholders and rebound for the underlying driver.
type SQLRepository struct {
	db *sqlx.DB
}

// NewSQLRepository creates a new repository over an open Local Store
func NewSQLRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{
		db: db,
	}
}

// GetDB returns the underlying database connection
func (r *SQLRepository) GetDB() *sqlx.DB {
	return r.db
}

// Message configuration methods
func (r *SQLRepository) GetMessageConfig(ctx context.Context) (*models.MessageConfig, error) {
	query := `SELECT * FROM message_config ORDER BY id ASC LIMIT 1`

	var cfg models.MessageConfig
	err := r.db.GetContext(ctx, &cfg, query)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not seeded
		}
		return nil, err
	}

	return &cfg, nil
}

func (r *SQLRepository) UpdateMessageConfig(ctx context.Context, cfg *models.MessageConfig) (int64, error) {
	query := r.db.Rebind(`
		UPDATE message_config SET
			send_time = ?,
			reminder_enabled = ?,
			reminder_days = ?,
			reminder_msg = ?,
			reminder_repeat_times = ?,
			reminder_repeat_interval_days = ?,
			overdue_enabled = ?,
			overdue_days = ?,
			overdue_msg = ?,
			overdue_repeat_times = ?,
			overdue_repeat_interval_days = ?
		WHERE id = (SELECT MIN(id) FROM message_config)
	`)

	res, err := r.db.ExecContext(ctx, query,
		cfg.SendTime, cfg.ReminderEnabled, cfg.ReminderDays, cfg.ReminderMsg,
		cfg.ReminderRepeatTimes, cfg.ReminderRepeatIntervalDays,
		cfg.OverdueEnabled, cfg.OverdueDays, cfg.OverdueMsg,
		cfg.OverdueRepeatTimes, cfg.OverdueRepeatIntervalDays)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

// Queue methods
func (r *SQLRepository) ListQueueItems(ctx context.Context, status string) ([]models.QueueItem, error) {
	query := `SELECT * FROM queue_items`
	var args []interface{}

	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}

	query += ` ORDER BY id DESC`

	items := []models.QueueItem{}
	err := r.db.SelectContext(ctx, &items, r.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}

	return items, nil
}

// Blocklist methods
func (r *SQLRepository) ListBlockedClients(ctx context.Context) ([]models.BlockedClient, error) {
	query := `SELECT * FROM blocked_clients ORDER BY created_at DESC, id DESC`

	clients := []models.BlockedClient{}
	err := r.db.SelectContext(ctx, &clients, query)
	if err != nil {
		return nil, err
	}

	return clients, nil
}

func (r *SQLRepository) CreateBlockedClient(ctx context.Context, client *models.BlockedClient) error {
	query := r.db.Rebind(`
		INSERT INTO blocked_clients (identifier, client_name, reason, block_type, client_code, installment_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	if client.BlockType == "" {
		client.BlockType = models.BlockTypeClient
	}
	if client.CreatedAt.IsZero() {
		client.CreatedAt = time.Now().UTC()
	}

	err := r.db.QueryRowxContext(ctx, query,
		client.Identifier, client.ClientName, client.Reason,
		client.BlockType, client.ClientCode, client.InstallmentID, client.CreatedAt).Scan(&client.ID)

	return translateError(err)
}

func (r *SQLRepository) DeleteBlockedClient(ctx context.Context, id int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM blocked_clients WHERE id = ?`), id)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

// Connection methods

// GetActiveConnection returns the active credentials. When no row carries the
// active flag the most recently inserted one is returned instead.
func (r *SQLRepository) GetActiveConnection(ctx context.Context) (*models.DbConnection, error) {
	query := `SELECT * FROM db_connections ORDER BY active DESC, id DESC LIMIT 1`

	var conn models.DbConnection
	err := r.db.GetContext(ctx, &conn, query)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Nothing configured
		}
		return nil, err
	}

	return &conn, nil
}

func (r *SQLRepository) ListConnections(ctx context.Context) ([]models.DbConnection, error) {
	query := `SELECT * FROM db_connections ORDER BY id DESC`

	conns := []models.DbConnection{}
	err := r.db.SelectContext(ctx, &conns, query)
	if err != nil {
		return nil, err
	}

	return conns, nil
}

// InsertConnection stores new credentials and makes them the only active row
func (r *SQLRepository) InsertConnection(ctx context.Context, conn *models.DbConnection) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	_, err = tx.ExecContext(ctx, tx.Rebind(`UPDATE db_connections SET active = ? WHERE active = ?`), false, true)
	if err != nil {
		return err
	}

	if conn.CreatedAt.IsZero() {
		conn.CreatedAt = time.Now().UTC()
	}
	conn.Active = true

	query := tx.Rebind(`
		INSERT INTO db_connections (host, database_name, username, password, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	err = tx.QueryRowxContext(ctx, query,
		conn.Host, conn.Database, conn.User, conn.Password, conn.Active, conn.CreatedAt).Scan(&conn.ID)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// SetActiveConnection moves the active flag to the row with the given id.
// It reports false when no such row exists.
func (r *SQLRepository) SetActiveConnection(ctx context.Context, id int64) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	var exists bool
	err = tx.QueryRowxContext(ctx,
		tx.Rebind(`SELECT EXISTS(SELECT 1 FROM db_connections WHERE id = ?)`), id).Scan(&exists)
	if err != nil {
		return false, err
	}

	if !exists {
		tx.Rollback()
		return false, nil
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(`UPDATE db_connections SET active = (id = ?)`), id)
	if err != nil {
		return false, err
	}

	return true, tx.Commit()
}

// Saved query methods
func (r *SQLRepository) AppendSavedQuery(ctx context.Context, query *models.SavedQuery) error {
	stmt := r.db.Rebind(`
		INSERT INTO saved_queries (name, query_text, created_at)
		VALUES (?, ?, ?)
		RETURNING id
	`)

	if query.Name == "" {
		query.Name = SavedQueryName
	}
	if query.CreatedAt.IsZero() {
		query.CreatedAt = time.Now().UTC()
	}

	return r.db.QueryRowxContext(ctx, stmt, query.Name, query.QueryText, query.CreatedAt).Scan(&query.ID)
}

func (r *SQLRepository) ListSavedQueries(ctx context.Context, limit int) ([]models.SavedQuery, error) {
	query := r.db.Rebind(`SELECT * FROM saved_queries ORDER BY created_at DESC, id DESC LIMIT ?`)

	queries := []models.SavedQuery{}
	err := r.db.SelectContext(ctx, &queries, query, limit)
	if err != nil {
		return nil, err
	}

	return queries, nil
}

func (r *SQLRepository) DeleteSavedQuery(ctx context.Context, id int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM saved_queries WHERE id = ?`), id)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

// Field mapping methods
func (r *SQLRepository) ListFieldMappings(ctx context.Context) ([]models.FieldMapping, error) {
	query := `SELECT * FROM field_mappings ORDER BY id ASC`

	mappings := []models.FieldMapping{}
	err := r.db.SelectContext(ctx, &mappings, query)
	if err != nil {
		return nil, err
	}

	return mappings, nil
}

// UpsertFieldMappings inserts or repoints every mapping in one transaction.
// Mappings not mentioned are left alone.
func (r *SQLRepository) UpsertFieldMappings(ctx context.Context, mappings []models.FieldMapping) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	stmt := tx.Rebind(`
		INSERT INTO field_mappings (message_variable, database_column, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (message_variable)
		DO UPDATE SET database_column = excluded.database_column, updated_at = excluded.updated_at
	`)

	now := time.Now().UTC()
	for _, m := range mappings {
		_, err = tx.ExecContext(ctx, stmt, m.MessageVariable, m.DatabaseColumn, now, now)
		if err != nil {
			return err
		}
	}

	err = tx.Commit()
	return err
}

// Error log methods
func (r *SQLRepository) InsertErrorLog(ctx context.Context, entry *models.ErrorLog) error {
	query := r.db.Rebind(`
		INSERT INTO error_logs (logged_at, kind, message, details, client_code, phone)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	if entry.LoggedAt.IsZero() {
		entry.LoggedAt = time.Now().UTC()
	}

	return r.db.QueryRowxContext(ctx, query,
		entry.LoggedAt, entry.Kind, entry.Message, entry.Details, entry.ClientCode, entry.Phone).Scan(&entry.ID)
}

func (r *SQLRepository) ListErrorLogs(ctx context.Context, limit int) ([]models.ErrorLog, error) {
	query := r.db.Rebind(`SELECT * FROM error_logs ORDER BY logged_at DESC, id DESC LIMIT ?`)

	logs := []models.ErrorLog{}
	err := r.db.SelectContext(ctx, &logs, query, limit)
	if err != nil {
		return nil, err
	}

	return logs, nil
}

// translateError maps driver specific unique violations to ErrDuplicate
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return ErrDuplicate
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrDuplicate
	}

	return err
}
