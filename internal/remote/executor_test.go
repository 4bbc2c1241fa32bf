package remote_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rongwang/billing-admin/internal/models"
	"github.com/rongwang/billing-admin/internal/remote"
	"github.com/rongwang/billing-admin/internal/remote/remotetest"
	"github.com/rongwang/billing-admin/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCredentials struct {
	conn *models.DbConnection
	err  error
}

func (f fakeCredentials) GetActiveConnection(context.Context) (*models.DbConnection, error) {
	return f.conn, f.err
}

var savedCreds = &models.DbConnection{
	ID:       3,
	Host:     "sql01",
	Database: "erp",
	User:     "reader",
	Password: "pw",
	Active:   true,
}

var sqlServerDrivers = remote.StaticCatalog{"PostgreSQL Unicode", "ODBC Driver 17 for SQL Server"}

func newExecutor(creds remote.CredentialStore, catalog remote.DriverCatalog, connector remote.Connector) *remote.Executor {
	return remote.NewExecutor(
		creds,
		catalog,
		remote.SubstringSelector{Marker: "SQL Server"},
		connector,
		utils.NopLogger(),
	)
}

func TestExecuteWithoutConnection(t *testing.T) {
	connector := &remotetest.FakeConnector{}
	exec := newExecutor(fakeCredentials{}, sqlServerDrivers, connector)

	rows, err := exec.Execute(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, remote.ErrNoConnectionConfigured)
	assert.Nil(t, rows)
	assert.Equal(t, "no_connection", remote.Outcome(err))

	opens, closes := connector.Counts()
	assert.Zero(t, opens)
	assert.Zero(t, closes)
}

func TestExecuteCredentialStoreError(t *testing.T) {
	connector := &remotetest.FakeConnector{}
	exec := newExecutor(fakeCredentials{err: errors.New("disk I/O error")}, sqlServerDrivers, connector)

	_, err := exec.Execute(context.Background(), "SELECT 1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, remote.ErrNoConnectionConfigured)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.Equal(t, "error", remote.Outcome(err))
	assert.Zero(t, connector.Opens)
}

func TestExecuteWithoutDriver(t *testing.T) {
	connector := &remotetest.FakeConnector{}
	exec := newExecutor(fakeCredentials{conn: savedCreds}, remote.StaticCatalog{"PostgreSQL Unicode"}, connector)

	_, err := exec.Execute(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, remote.ErrDriverNotFound)
	assert.Equal(t, "driver_not_found", remote.Outcome(err))

	opens, closes := connector.Counts()
	assert.Zero(t, opens)
	assert.Zero(t, closes)
}

func TestExecuteConnectionFailure(t *testing.T) {
	connector := &remotetest.FakeConnector{OpenErr: errors.New("Login failed for user 'reader'.")}
	exec := newExecutor(fakeCredentials{conn: savedCreds}, sqlServerDrivers, connector)

	_, err := exec.Execute(context.Background(), "SELECT 1")

	var connErr *remote.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "Login failed for user 'reader'.", err.Error())
	assert.Equal(t, "connection_failed", remote.Outcome(err))

	opens, closes := connector.Counts()
	assert.Equal(t, 1, opens)
	assert.Zero(t, closes)
	assert.Empty(t, connector.Queries)
}

func TestExecuteQueryFailureClosesConnection(t *testing.T) {
	connector := &remotetest.FakeConnector{QueryErr: errors.New("Invalid object name 'clientes'.")}
	exec := newExecutor(fakeCredentials{conn: savedCreds}, sqlServerDrivers, connector)

	rows, err := exec.Execute(context.Background(), "SELECT * FROM clientes")

	var queryErr *remote.QueryError
	require.ErrorAs(t, err, &queryErr)
	assert.Equal(t, "Invalid object name 'clientes'.", err.Error())
	assert.Nil(t, rows)

	opens, closes := connector.Counts()
	assert.Equal(t, 1, opens)
	assert.Equal(t, 1, closes)
}

func TestExecutePanicStillClosesConnection(t *testing.T) {
	connector := &remotetest.FakeConnector{PanicOnQuery: true}
	exec := newExecutor(fakeCredentials{conn: savedCreds}, sqlServerDrivers, connector)

	assert.Panics(t, func() {
		_, _ = exec.Execute(context.Background(), "SELECT 1")
	})

	opens, closes := connector.Counts()
	assert.Equal(t, 1, opens)
	assert.Equal(t, 1, closes)
}

func TestExecuteSuccess(t *testing.T) {
	connector := &remotetest.FakeConnector{
		Result: &remote.TabularResult{
			Columns: []string{"codigo", "nome", "valor"},
			Rows: [][]remote.Value{
				{remote.Integer(10234), remote.Text("Ana Silva"), remote.Float(150)},
				{remote.Integer(10235), remote.Null(), remote.Float(250.5)},
			},
		},
	}
	exec := newExecutor(fakeCredentials{conn: savedCreds}, sqlServerDrivers, connector)

	sqlText := "SELECT codigo, nome, valor FROM parcelas; -- passed verbatim"
	rows, err := exec.Execute(context.Background(), sqlText)
	require.NoError(t, err)
	assert.Equal(t, "success", remote.Outcome(err))

	body, err := json.Marshal(rows)
	require.NoError(t, err)
	assert.Equal(t,
		`[{"codigo":10234,"nome":"Ana Silva","valor":150},{"codigo":10235,"nome":null,"valor":250.5}]`,
		string(body))

	opens, closes := connector.Counts()
	assert.Equal(t, 1, opens)
	assert.Equal(t, 1, closes)
	assert.Equal(t, []string{sqlText}, connector.Queries)
	assert.True(t, connector.HadDeadline)

	require.Len(t, connector.Descriptors, 1)
	assert.Equal(t, remote.Descriptor{
		Driver:   "ODBC Driver 17 for SQL Server",
		Host:     "sql01",
		Database: "erp",
		User:     "reader",
		Password: "pw",
	}, connector.Descriptors[0])
}

func TestExecuteEmptyResult(t *testing.T) {
	connector := &remotetest.FakeConnector{}
	exec := newExecutor(fakeCredentials{conn: savedCreds}, sqlServerDrivers, connector)

	rows, err := exec.Execute(context.Background(), "UPDATE parcelas SET pago = 1")
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestTestConnection(t *testing.T) {
	creds := models.DbConnection{Host: "sql02", Database: "erp", User: "sa", Password: "x"}

	connector := &remotetest.FakeConnector{}
	exec := newExecutor(fakeCredentials{}, sqlServerDrivers, connector)
	require.NoError(t, exec.TestConnection(context.Background(), creds))
	opens, closes := connector.Counts()
	assert.Equal(t, 1, opens)
	assert.Equal(t, 1, closes)
	assert.Equal(t, "sql02", connector.Descriptors[0].Host)

	failing := &remotetest.FakeConnector{OpenErr: errors.New("i/o timeout")}
	exec = newExecutor(fakeCredentials{}, sqlServerDrivers, failing)
	err := exec.TestConnection(context.Background(), creds)
	var connErr *remote.ConnectionError
	assert.ErrorAs(t, err, &connErr)

	exec = newExecutor(fakeCredentials{}, remote.StaticCatalog{}, &remotetest.FakeConnector{})
	assert.ErrorIs(t, exec.TestConnection(context.Background(), creds), remote.ErrDriverNotFound)
}
