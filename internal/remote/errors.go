package remote

import "errors"

var (
	// ErrNoConnectionConfigured means no remote credentials have been saved.
	ErrNoConnectionConfigured = errors.New("No database connection configured")

	// ErrDriverNotFound means no installed driver matched the selector.
	ErrDriverNotFound = errors.New("No SQL Server ODBC Driver found on server")
)

// ConnectionError reports a failure to open the remote connection: bad
// credentials, unreachable host or the connect timeout expiring.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string { return e.Err.Error() }

func (e *ConnectionError) Unwrap() error { return e.Err }

// QueryError reports a failure while executing the statement.
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string { return e.Err.Error() }

func (e *QueryError) Unwrap() error { return e.Err }
