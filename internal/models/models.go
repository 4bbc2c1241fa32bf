package models

import (
	"database/sql"
	"strconv"
	"time"
)

// MessageConfig is the singleton row holding the reminder and overdue
// messaging settings. Templates are stored verbatim; placeholder tokens
// such as @nomecliente are substituted by the sender at delivery time.
type MessageConfig struct {
	ID                         int64  `db:"id" json:"id"`
	SendTime                   string `db:"send_time" json:"send_time"`
	ReminderEnabled            bool   `db:"reminder_enabled" json:"reminder_enabled"`
	ReminderDays               int    `db:"reminder_days" json:"reminder_days"`
	ReminderMsg                string `db:"reminder_msg" json:"reminder_msg"`
	ReminderRepeatTimes        int    `db:"reminder_repeat_times" json:"reminder_repeat_times"`
	ReminderRepeatIntervalDays int    `db:"reminder_repeat_interval_days" json:"reminder_repeat_interval_days"`
	OverdueEnabled             bool   `db:"overdue_enabled" json:"overdue_enabled"`
	OverdueDays                int    `db:"overdue_days" json:"overdue_days"`
	OverdueMsg                 string `db:"overdue_msg" json:"overdue_msg"`
	OverdueRepeatTimes         int    `db:"overdue_repeat_times" json:"overdue_repeat_times"`
	OverdueRepeatIntervalDays  int    `db:"overdue_repeat_interval_days" json:"overdue_repeat_interval_days"`
}

// Queue item statuses
const (
	QueueStatusPending = "PENDING"
	QueueStatusSent    = "SENT"
	QueueStatusError   = "ERROR"
)

// QueueItem is a billing notification waiting to be sent, already sent or
// failed. Dates and the installment value are opaque, locale-formatted text.
// It is only exposed through QueueItemResponse.
type QueueItem struct {
	ID               int64          `db:"id"`
	ClientName       sql.NullString `db:"client_name"`
	InstallmentValue sql.NullString `db:"installment_value"`
	DueDate          sql.NullString `db:"due_date"`
	ScheduledDate    sql.NullString `db:"scheduled_date"`
	SentDate         sql.NullString `db:"sent_date"`
	ErrorDate        sql.NullString `db:"error_date"`
	Code             sql.NullString `db:"code"`
	CPF              sql.NullString `db:"cpf"`
	Status           sql.NullString `db:"status"`
}

// Block types
const (
	BlockTypeClient      = "client"
	BlockTypeInstallment = "installment"
)

// BlockedClient excludes a client, or a single installment of a client,
// from messaging. Identifier is unique: the client code for whole-client
// blocks, "<client_code>-<installment_id>" for installment blocks.
type BlockedClient struct {
	ID            int64     `db:"id" json:"id"`
	Identifier    string    `db:"identifier" json:"identifier"`
	ClientName    string    `db:"client_name" json:"client_name"`
	Reason        string    `db:"reason" json:"reason"`
	BlockType     string    `db:"block_type" json:"block_type"`
	ClientCode    *string   `db:"client_code" json:"client_code"`
	InstallmentID *string   `db:"installment_id" json:"installment_id"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// DbConnection holds the credentials of the remote SQL Server database.
// The password is stored in clear text because it has to be replayed to the
// remote server.
type DbConnection struct {
	ID        int64     `db:"id" json:"id"`
	Host      string    `db:"host" json:"host"`
	Database  string    `db:"database_name" json:"database"`
	User      string    `db:"username" json:"user"`
	Password  string    `db:"password" json:"password"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SavedQuery is an append-only history entry of query text typed in the UI.
type SavedQuery struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	QueryText string    `db:"query_text" json:"query_text"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// FieldMapping links a template placeholder such as @nomecliente to the
// remote result column that fills it.
type FieldMapping struct {
	ID              int64     `db:"id" json:"id"`
	MessageVariable string    `db:"message_variable" json:"message_variable"`
	DatabaseColumn  string    `db:"database_column" json:"database_column"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// ErrorLog records a failure worth showing to the operator.
type ErrorLog struct {
	ID         int64     `db:"id" json:"id"`
	LoggedAt   time.Time `db:"logged_at" json:"data_hora"`
	Kind       string    `db:"kind" json:"tipo"`
	Message    string    `db:"message" json:"mensagem"`
	Details    *string   `db:"details" json:"detalhes"`
	ClientCode *string   `db:"client_code" json:"client_code"`
	Phone      *string   `db:"phone" json:"phone"`
}

// ToResponse renames the snake_case columns to the camelCase shape the UI
// expects. The numeric id is rendered as a string.
func (q QueueItem) ToResponse() QueueItemResponse {
	return QueueItemResponse{
		ID:               strconv.FormatInt(q.ID, 10),
		ClientName:       nullable(q.ClientName),
		InstallmentValue: nullable(q.InstallmentValue),
		DueDate:          nullable(q.DueDate),
		ScheduledDate:    nullable(q.ScheduledDate),
		SentDate:         nullable(q.SentDate),
		ErrorDate:        nullable(q.ErrorDate),
		Code:             nullable(q.Code),
		CPF:              nullable(q.CPF),
		Status:           nullable(q.Status),
	}
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
