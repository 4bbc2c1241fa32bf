package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rongwang/billing-admin/internal/models"
	"github.com/rongwang/billing-admin/internal/remote"
	"github.com/rongwang/billing-admin/internal/repository"
	"github.com/rongwang/billing-admin/internal/utils"
)

var (
	ErrNotFound = errors.New("resource not found")
	ErrConflict = errors.New("resource already exists")
)

// SavedQueriesLimit caps the saved query history returned to the UI
const SavedQueriesLimit = 10

// ErrorLogsLimit caps the error log returned to the UI
const ErrorLogsLimit = 100

// Defaults applied when an update omits the repetition settings
const (
	DefaultReminderRepeatTimes        = 1
	DefaultReminderRepeatIntervalDays = 3
	DefaultOverdueRepeatTimes         = 1
	DefaultOverdueRepeatIntervalDays  = 7
)

// QueryRunner executes SQL text against the remote database
type QueryRunner interface {
	Execute(ctx context.Context, sqlText string) ([]remote.Row, error)
	TestConnection(ctx context.Context, creds models.DbConnection) error
}

// Service defines all the business logic operations
type Service interface {
	// Message configuration
	GetConfig(ctx context.Context) (*models.MessageConfig, error)
	UpdateConfig(ctx context.Context, req models.UpdateConfigRequest) (int64, error)

	// Queue
	ListQueue(ctx context.Context, status string) ([]models.QueueItemResponse, error)

	// Blocklist
	ListBlocked(ctx context.Context) ([]models.BlockedClient, error)
	BlockClient(ctx context.Context, req models.CreateBlockedClientRequest) (*models.BlockedClientResponse, error)
	BlockInstallment(ctx context.Context, req models.BlockInstallmentRequest) (*models.BlockedClientResponse, error)
	BlockClientCode(ctx context.Context, req models.BlockClientCodeRequest) (*models.BlockedClientResponse, error)
	UnblockClient(ctx context.Context, id int64) (int64, error)

	// Remote connection credentials
	GetConnection(ctx context.Context) (*models.DbConnection, error)
	ListConnections(ctx context.Context) ([]models.DbConnection, error)
	SaveConnection(ctx context.Context, req models.ConnectionRequest) (*models.DbConnection, error)
	ActivateConnection(ctx context.Context, id int64) error
	TestConnection(ctx context.Context, req models.ConnectionRequest) error

	// Queries
	SaveQuery(ctx context.Context, req models.QueryRequest) (*models.SavedQuery, error)
	ListSavedQueries(ctx context.Context) ([]models.SavedQuery, error)
	DeleteSavedQuery(ctx context.Context, id int64) (int64, error)
	ExecuteQuery(ctx context.Context, req models.QueryRequest) ([]remote.Row, error)

	// Template placeholder mappings
	ListFieldMappings(ctx context.Context) ([]models.FieldMapping, error)
	SaveFieldMappings(ctx context.Context, reqs []models.FieldMappingRequest) error

	// Error log
	ListErrorLogs(ctx context.Context) ([]models.ErrorLog, error)
}

// DefaultService implements the Service interface
type DefaultService struct {
	repo   repository.Repository
	runner QueryRunner
	logger *utils.Logger
}

// NewDefaultService creates a new DefaultService
func NewDefaultService(repo repository.Repository, runner QueryRunner, logger *utils.Logger) Service {
	return &DefaultService{
		repo:   repo,
		runner: runner,
		logger: logger,
	}
}

// Message configuration
func (s *DefaultService) GetConfig(ctx context.Context) (*models.MessageConfig, error) {
	cfg, err := s.repo.GetMessageConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting message config: %w", err)
	}
	return cfg, nil
}

func (s *DefaultService) UpdateConfig(ctx context.Context, req models.UpdateConfigRequest) (int64, error) {
	cfg := &models.MessageConfig{
		SendTime:                   req.SendTime,
		ReminderEnabled:            req.ReminderEnabled,
		ReminderDays:               req.ReminderDays,
		ReminderMsg:                req.ReminderMsg,
		ReminderRepeatTimes:        intOr(req.ReminderRepeatTimes, DefaultReminderRepeatTimes),
		ReminderRepeatIntervalDays: intOr(req.ReminderRepeatIntervalDays, DefaultReminderRepeatIntervalDays),
		OverdueEnabled:             req.OverdueEnabled,
		OverdueDays:                req.OverdueDays,
		OverdueMsg:                 req.OverdueMsg,
		OverdueRepeatTimes:         intOr(req.OverdueRepeatTimes, DefaultOverdueRepeatTimes),
		OverdueRepeatIntervalDays:  intOr(req.OverdueRepeatIntervalDays, DefaultOverdueRepeatIntervalDays),
	}

	changes, err := s.repo.UpdateMessageConfig(ctx, cfg)
	if err != nil {
		return 0, fmt.Errorf("error updating message config: %w", err)
	}
	return changes, nil
}

// Queue
func (s *DefaultService) ListQueue(ctx context.Context, status string) ([]models.QueueItemResponse, error) {
	items, err := s.repo.ListQueueItems(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("error listing queue: %w", err)
	}

	resp := make([]models.QueueItemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, item.ToResponse())
	}
	return resp, nil
}

// Blocklist
func (s *DefaultService) ListBlocked(ctx context.Context) ([]models.BlockedClient, error) {
	clients, err := s.repo.ListBlockedClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing blocked clients: %w", err)
	}
	return clients, nil
}

func (s *DefaultService) BlockClient(
	ctx context.Context,
	req models.CreateBlockedClientRequest,
) (*models.BlockedClientResponse, error) {
	return s.block(ctx, &models.BlockedClient{
		Identifier: req.Identifier,
		ClientName: req.ClientName,
		Reason:     req.Reason,
		BlockType:  models.BlockTypeClient,
	})
}

// BlockInstallment blocks a single installment of a client
func (s *DefaultService) BlockInstallment(
	ctx context.Context,
	req models.BlockInstallmentRequest,
) (*models.BlockedClientResponse, error) {
	code, installment := strings.TrimSpace(req.ClientCode), strings.TrimSpace(req.InstallmentID)
	return s.block(ctx, &models.BlockedClient{
		Identifier:    code + "-" + installment,
		ClientName:    req.ClientName,
		Reason:        req.Reason,
		BlockType:     models.BlockTypeInstallment,
		ClientCode:    &code,
		InstallmentID: &installment,
	})
}

// BlockClientCode blocks every message for a client code
func (s *DefaultService) BlockClientCode(
	ctx context.Context,
	req models.BlockClientCodeRequest,
) (*models.BlockedClientResponse, error) {
	code := strings.TrimSpace(req.ClientCode)
	return s.block(ctx, &models.BlockedClient{
		Identifier: code,
		ClientName: req.ClientName,
		Reason:     req.Reason,
		BlockType:  models.BlockTypeClient,
		ClientCode: &code,
	})
}

func (s *DefaultService) block(ctx context.Context, client *models.BlockedClient) (*models.BlockedClientResponse, error) {
	if err := s.repo.CreateBlockedClient(ctx, client); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("client %q is already blocked: %w", client.Identifier, ErrConflict)
		}
		return nil, fmt.Errorf("error blocking client: %w", err)
	}

	return &models.BlockedClientResponse{
		ID:         client.ID,
		Identifier: client.Identifier,
		ClientName: client.ClientName,
		Reason:     client.Reason,
		BlockType:  client.BlockType,
	}, nil
}

func (s *DefaultService) UnblockClient(ctx context.Context, id int64) (int64, error) {
	changes, err := s.repo.DeleteBlockedClient(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("error deleting blocked client: %w", err)
	}
	return changes, nil
}

// Remote connection credentials
func (s *DefaultService) GetConnection(ctx context.Context) (*models.DbConnection, error) {
	conn, err := s.repo.GetActiveConnection(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting connection: %w", err)
	}
	return conn, nil
}

func (s *DefaultService) ListConnections(ctx context.Context) ([]models.DbConnection, error) {
	conns, err := s.repo.ListConnections(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing connections: %w", err)
	}
	return conns, nil
}

func (s *DefaultService) SaveConnection(ctx context.Context, req models.ConnectionRequest) (*models.DbConnection, error) {
	conn := connectionFrom(req)
	if err := s.repo.InsertConnection(ctx, &conn); err != nil {
		return nil, fmt.Errorf("error saving connection: %w", err)
	}
	return &conn, nil
}

func (s *DefaultService) ActivateConnection(ctx context.Context, id int64) error {
	found, err := s.repo.SetActiveConnection(ctx, id)
	if err != nil {
		return fmt.Errorf("error activating connection: %w", err)
	}
	if !found {
		return fmt.Errorf("connection %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *DefaultService) TestConnection(ctx context.Context, req models.ConnectionRequest) error {
	err := s.runner.TestConnection(ctx, connectionFrom(req))
	if err != nil {
		s.recordFailure(ctx, err, fmt.Sprintf("connection test to %s/%s as %s", req.Host, req.Database, req.User))
	}
	return err
}

// Queries
func (s *DefaultService) SaveQuery(ctx context.Context, req models.QueryRequest) (*models.SavedQuery, error) {
	query := &models.SavedQuery{
		Name:      repository.SavedQueryName,
		QueryText: req.Query,
	}

	if err := s.repo.AppendSavedQuery(ctx, query); err != nil {
		return nil, fmt.Errorf("error saving query: %w", err)
	}
	return query, nil
}

func (s *DefaultService) ListSavedQueries(ctx context.Context) ([]models.SavedQuery, error) {
	queries, err := s.repo.ListSavedQueries(ctx, SavedQueriesLimit)
	if err != nil {
		return nil, fmt.Errorf("error listing saved queries: %w", err)
	}
	return queries, nil
}

func (s *DefaultService) DeleteSavedQuery(ctx context.Context, id int64) (int64, error) {
	changes, err := s.repo.DeleteSavedQuery(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("error deleting saved query: %w", err)
	}
	return changes, nil
}

// ExecuteQuery passes the query text through untouched. Remote errors are
// recorded in the error log and returned unwrapped so callers can classify
// them.
func (s *DefaultService) ExecuteQuery(ctx context.Context, req models.QueryRequest) ([]remote.Row, error) {
	rows, err := s.runner.Execute(ctx, req.Query)
	if err != nil {
		s.recordFailure(ctx, err, req.Query)
		return nil, err
	}
	return rows, nil
}

// Template placeholder mappings
func (s *DefaultService) ListFieldMappings(ctx context.Context) ([]models.FieldMapping, error) {
	mappings, err := s.repo.ListFieldMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing field mappings: %w", err)
	}
	return mappings, nil
}

func (s *DefaultService) SaveFieldMappings(ctx context.Context, reqs []models.FieldMappingRequest) error {
	mappings := make([]models.FieldMapping, 0, len(reqs))
	for _, req := range reqs {
		mappings = append(mappings, models.FieldMapping{
			MessageVariable: strings.TrimSpace(req.MessageVariable),
			DatabaseColumn:  strings.TrimSpace(req.DatabaseColumn),
		})
	}

	if err := s.repo.UpsertFieldMappings(ctx, mappings); err != nil {
		return fmt.Errorf("error saving field mappings: %w", err)
	}
	return nil
}

// Error log
func (s *DefaultService) ListErrorLogs(ctx context.Context) ([]models.ErrorLog, error) {
	logs, err := s.repo.ListErrorLogs(ctx, ErrorLogsLimit)
	if err != nil {
		return nil, fmt.Errorf("error listing error logs: %w", err)
	}
	return logs, nil
}

// recordFailure stores a remote failure in the error log. A failed write is
// only logged so the caller still sees the remote error.
func (s *DefaultService) recordFailure(ctx context.Context, cause error, details string) {
	entry := &models.ErrorLog{
		Kind:    strings.ToUpper(remote.Outcome(cause)),
		Message: cause.Error(),
		Details: &details,
	}
	if err := s.repo.InsertErrorLog(ctx, entry); err != nil {
		s.logger.Error("failed to record error log", "kind", entry.Kind, "error", err)
	}
}

// Helper functions
func connectionFrom(req models.ConnectionRequest) models.DbConnection {
	return models.DbConnection{
		Host:     req.Host,
		Database: req.Database,
		User:     req.User,
		Password: req.Password,
	}
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
