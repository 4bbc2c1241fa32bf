package testutils

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/rongwang/billing-admin/internal/api"
	"github.com/rongwang/billing-admin/internal/config"
	"github.com/rongwang/billing-admin/internal/remote"
	"github.com/rongwang/billing-admin/internal/remote/remotetest"
	"github.com/rongwang/billing-admin/internal/repository"
	"github.com/rongwang/billing-admin/internal/service"
	"github.com/rongwang/billing-admin/internal/utils"
	"github.com/stretchr/testify/require"
)

// DefaultDrivers is the driver catalog used unless a test supplies its own
var DefaultDrivers = remote.StaticCatalog{"PostgreSQL Unicode", "ODBC Driver 17 for SQL Server"}

// TestContext holds all dependencies for tests
type TestContext struct {
	Router     *gin.Engine
	Repository *repository.SQLRepository
	Service    service.Service
	Connector  *remotetest.FakeConnector
	DB         *sqlx.DB
}

// SetupTestContext creates a test context over a fresh sqlite Local Store
// and a fake remote connector
func SetupTestContext(t *testing.T) *TestContext {
	return SetupTestContextWithCatalog(t, DefaultDrivers)
}

// SetupTestContextWithCatalog is SetupTestContext with a custom driver catalog
func SetupTestContextWithCatalog(t *testing.T, catalog remote.DriverCatalog) *TestContext {
	cfg := config.LoadConfig()

	// Override with test-specific config
	cfg.Database.Driver = config.DriverSQLite
	cfg.Database.Path = filepath.Join(t.TempDir(), "api_test.db")

	// Set up database
	db, err := config.SetupDatabase(cfg)
	require.NoError(t, err, "Failed to set up test database")

	repo := repository.NewSQLRepository(db)
	logger := utils.NopLogger()

	connector := &remotetest.FakeConnector{}
	executor := remote.NewExecutor(
		repo,
		catalog,
		remote.SubstringSelector{Marker: cfg.Remote.DriverMarker},
		connector,
		logger,
	)

	svc := service.NewDefaultService(repo, executor, logger)
	handler := api.NewHandler(svc, logger)

	// Set up Gin router
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler.SetupRoutes(router)

	return &TestContext{
		Router:     router,
		Repository: repo,
		Service:    svc,
		Connector:  connector,
		DB:         db,
	}
}

// CleanupTestContext cleans up test resources
func CleanupTestContext(t *TestContext) {
	if t.DB != nil {
		t.DB.Close()
	}
}

// PerformRequest executes an HTTP request against the router
func PerformRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer

	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// DecodeJSON unmarshals a response body into v
func DecodeJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), "body: %s", w.Body.String())
}
