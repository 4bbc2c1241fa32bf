package remote

import (
	"context"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/microsoft/go-mssqldb" // SQL Server driver
)

// ConnectTimeout bounds the time spent opening a remote connection.
const ConnectTimeout = 5 * time.Second

// Descriptor carries everything needed to reach the remote database.
type Descriptor struct {
	Driver   string
	Host     string
	Database string
	User     string
	Password string
}

// Redacted is the ODBC connection string with the password masked, safe
// for logs.
func (d Descriptor) Redacted() string {
	return d.odbc("****")
}

func (d Descriptor) odbc(password string) string {
	return "DRIVER=" + odbcQuote(d.Driver) +
		";SERVER=" + odbcQuote(d.Host) +
		";DATABASE=" + odbcQuote(d.Database) +
		";UID=" + odbcQuote(d.User) +
		";PWD=" + odbcQuote(password)
}

// odbcQuote braces an attribute value so that ';' and '}' inside it stay
// part of the value.
func odbcQuote(v string) string {
	return "{" + strings.ReplaceAll(v, "}", "}}") + "}"
}

// URL renders the descriptor in the sqlserver:// form understood by
// go-mssqldb. Host accepts "host", "host,port", "host:port" and
// "host\instance". Only dialing is bounded here: go-mssqldb applies
// "connection timeout" to every read and write, which would cut off long
// running statements. Login is bounded by the context passed to Open.
func (d Descriptor) URL() string {
	host, instance := d.Host, ""
	if i := strings.IndexByte(host, '\\'); i >= 0 {
		host, instance = host[:i], host[i+1:]
	}
	if i := strings.IndexByte(host, ','); i >= 0 {
		host = net.JoinHostPort(strings.TrimSpace(host[:i]), strings.TrimSpace(host[i+1:]))
	}

	query := url.Values{}
	query.Set("database", d.Database)
	query.Set("dial timeout", strconv.Itoa(int(ConnectTimeout/time.Second)))
	query.Set("encrypt", "disable")
	query.Set("TrustServerCertificate", "true")
	if d.Driver != "" {
		query.Set("app name", d.Driver)
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(d.User, d.Password),
		Host:     host,
		RawQuery: query.Encode(),
	}
	if instance != "" {
		u.Path = "/" + instance
	}
	return u.String()
}

// Connector opens connections to the remote database.
type Connector interface {
	Open(ctx context.Context, d Descriptor) (Conn, error)
}

// Conn is a single-use remote connection.
type Conn interface {
	Query(ctx context.Context, sqlText string) (*TabularResult, error)
	Close() error
}

// MSSQLConnector connects to SQL Server with go-mssqldb.
type MSSQLConnector struct{}

func (MSSQLConnector) Open(ctx context.Context, d Descriptor) (Conn, error) {
	db, err := sqlx.Open("sqlserver", d.URL())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return &sqlConn{db: db}, nil
}

type sqlConn struct {
	db *sqlx.DB
}

func (c *sqlConn) Query(ctx context.Context, sqlText string) (*TabularResult, error) {
	rows, err := c.db.QueryxContext(ctx, sqlText)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	result := &TabularResult{Columns: columns, Rows: [][]Value{}}
	for rows.Next() {
		raw, err := rows.SliceScan()
		if err != nil {
			return nil, err
		}

		tuple := make([]Value, len(raw))
		for i, v := range raw {
			tuple[i] = columnValue(types[i].DatabaseTypeName(), v)
		}
		result.Rows = append(result.Rows, tuple)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (c *sqlConn) Close() error {
	return c.db.Close()
}
