package models

// Request models
type UpdateConfigRequest struct {
	SendTime                   string `json:"send_time"`
	ReminderEnabled            bool   `json:"reminder_enabled"`
	ReminderDays               int    `json:"reminder_days"`
	ReminderMsg                string `json:"reminder_msg"`
	ReminderRepeatTimes        *int   `json:"reminder_repeat_times"`
	ReminderRepeatIntervalDays *int   `json:"reminder_repeat_interval_days"`
	OverdueEnabled             bool   `json:"overdue_enabled"`
	OverdueDays                int    `json:"overdue_days"`
	OverdueMsg                 string `json:"overdue_msg"`
	OverdueRepeatTimes         *int   `json:"overdue_repeat_times"`
	OverdueRepeatIntervalDays  *int   `json:"overdue_repeat_interval_days"`
}

type CreateBlockedClientRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	ClientName string `json:"client_name"`
	Reason     string `json:"reason"`
}

type BlockInstallmentRequest struct {
	ClientCode    string `json:"client_code" binding:"required"`
	InstallmentID string `json:"installment_id" binding:"required"`
	ClientName    string `json:"client_name"`
	Reason        string `json:"reason"`
}

type BlockClientCodeRequest struct {
	ClientCode string `json:"client_code" binding:"required"`
	ClientName string `json:"client_name"`
	Reason     string `json:"reason"`
}

type FieldMappingRequest struct {
	MessageVariable string `json:"message_variable" binding:"required"`
	DatabaseColumn  string `json:"database_column" binding:"required"`
}

type ConnectionRequest struct {
	Host     string `json:"host" binding:"required"`
	Database string `json:"database" binding:"required"`
	User     string `json:"user" binding:"required"`
	Password string `json:"password"`
}

type QueryRequest struct {
	Query string `json:"query"`
}

// Response models
type QueueItemResponse struct {
	ID               string  `json:"id"`
	ClientName       *string `json:"clientName"`
	InstallmentValue *string `json:"installmentValue"`
	DueDate          *string `json:"dueDate"`
	ScheduledDate    *string `json:"scheduledDate"`
	SentDate         *string `json:"sentDate"`
	ErrorDate        *string `json:"errorDate"`
	Code             *string `json:"code"`
	CPF              *string `json:"cpf"`
	Status           *string `json:"status"`
}

type BlockedClientResponse struct {
	ID         int64  `json:"id"`
	Identifier string `json:"identifier"`
	ClientName string `json:"client_name"`
	Reason     string `json:"reason"`
	BlockType  string `json:"block_type"`
}

type MessageResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id,omitempty"`
	Changes *int64 `json:"changes,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
