package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rongwang/billing-admin/internal/metrics"
	"github.com/rongwang/billing-admin/internal/models"
	"github.com/rongwang/billing-admin/internal/utils"
)

// CredentialStore is the part of the Local Store the executor reads from.
type CredentialStore interface {
	GetActiveConnection(ctx context.Context) (*models.DbConnection, error)
}

// Executor runs caller-supplied SQL against the remote database using the
// stored credentials. Each call opens its own connection and closes it
// before returning. Nothing is retried.
type Executor struct {
	creds     CredentialStore
	catalog   DriverCatalog
	selector  DriverSelector
	connector Connector
	logger    *utils.Logger
}

// NewExecutor creates an Executor
func NewExecutor(
	creds CredentialStore,
	catalog DriverCatalog,
	selector DriverSelector,
	connector Connector,
	logger *utils.Logger,
) *Executor {
	return &Executor{
		creds:     creds,
		catalog:   catalog,
		selector:  selector,
		connector: connector,
		logger:    logger,
	}
}

// ResolveCredentials returns the current credentials, or nil when none are saved.
func (e *Executor) ResolveCredentials(ctx context.Context) (*models.DbConnection, error) {
	return e.creds.GetActiveConnection(ctx)
}

// ResolveDriver picks the installed driver to connect with.
func (e *Executor) ResolveDriver() (string, error) {
	return ResolveDriver(e.catalog, e.selector)
}

// Execute runs sqlText verbatim and returns every row of its first result set.
func (e *Executor) Execute(ctx context.Context, sqlText string) (rows []Row, err error) {
	start := time.Now()
	defer func() {
		outcome := Outcome(err)
		r := recover()
		if r != nil {
			outcome = "panic"
		}
		metrics.RemoteQueries.WithLabelValues(outcome).Inc()
		metrics.RemoteQueryDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
		if r != nil {
			panic(r)
		}
	}()

	creds, err := e.ResolveCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading connection: %w", err)
	}
	if creds == nil {
		return nil, ErrNoConnectionConfigured
	}

	driver, err := e.ResolveDriver()
	if err != nil {
		e.logger.Error("driver resolution failed", "error", err)
		return nil, err
	}

	desc := descriptorFor(driver, creds)
	log := e.logger.With("descriptor", desc.Redacted())

	result, err := e.run(ctx, desc, sqlText)
	if err != nil {
		log.Error("remote query failed", "outcome", Outcome(err), "error", err,
			"duration", time.Since(start).String())
		return nil, err
	}

	log.Info("remote query executed", "columns", len(result.Columns), "rows", len(result.Rows),
		"duration", time.Since(start).String())

	return Marshal(result.Columns, result.Rows), nil
}

// TestConnection opens and immediately closes a connection with the given
// credentials. Nothing is stored.
func (e *Executor) TestConnection(ctx context.Context, creds models.DbConnection) error {
	driver, err := e.ResolveDriver()
	if err != nil {
		return err
	}

	conn, err := e.open(ctx, descriptorFor(driver, &creds))
	if err != nil {
		return err
	}
	e.close(conn)

	return nil
}

func (e *Executor) run(ctx context.Context, desc Descriptor, sqlText string) (*TabularResult, error) {
	conn, err := e.open(ctx, desc)
	if err != nil {
		return nil, err
	}
	defer e.close(conn)

	result, err := conn.Query(ctx, sqlText)
	if err != nil {
		return nil, &QueryError{Err: err}
	}

	return result, nil
}

func (e *Executor) open(ctx context.Context, desc Descriptor) (Conn, error) {
	openCtx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()

	conn, err := e.connector.Open(openCtx, desc)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}

	return conn, nil
}

func (e *Executor) close(conn Conn) {
	if err := conn.Close(); err != nil {
		e.logger.Warn("closing remote connection", "error", err)
	}
}

func descriptorFor(driver string, creds *models.DbConnection) Descriptor {
	return Descriptor{
		Driver:   driver,
		Host:     creds.Host,
		Database: creds.Database,
		User:     creds.User,
		Password: creds.Password,
	}
}

// Outcome classifies an Execute error for metrics and logs.
func Outcome(err error) string {
	var connErr *ConnectionError
	var queryErr *QueryError

	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrNoConnectionConfigured):
		return "no_connection"
	case errors.Is(err, ErrDriverNotFound):
		return "driver_not_found"
	case errors.As(err, &connErr):
		return "connection_failed"
	case errors.As(err, &queryErr):
		return "query_failed"
	default:
		return "error"
	}
}
