package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/billing-admin/internal/api"
	"github.com/rongwang/billing-admin/internal/config"
	"github.com/rongwang/billing-admin/internal/metrics"
	"github.com/rongwang/billing-admin/internal/remote"
	"github.com/rongwang/billing-admin/internal/repository"
	"github.com/rongwang/billing-admin/internal/service"
	"github.com/rongwang/billing-admin/internal/utils"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()

	logger := utils.NewLogger(cfg.Log.Level)
	metrics.Init()

	// Set up the Local Store
	db, err := config.SetupDatabase(cfg)
	if err != nil {
		logger.Error("Failed to set up database", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Create repository
	repo := repository.NewSQLRepository(db)

	// Create remote executor
	executor := remote.NewExecutor(
		repo,
		driverCatalog(cfg.Remote),
		remote.SubstringSelector{Marker: cfg.Remote.DriverMarker},
		remote.MSSQLConnector{},
		logger.With("component", "remote"),
	)

	// Create service
	svc := service.NewDefaultService(repo, executor, logger)

	// Create API handler
	handler := api.NewHandler(svc, logger)

	// Set up Gin router
	router := gin.Default()

	// Set up routes
	handler.SetupRoutes(router)

	// Start server
	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Starting server", "addr", serverAddr, "store", cfg.Database.Driver, "catalog", cfg.Remote.Catalog)
	if err := http.ListenAndServe(serverAddr, router); err != nil {
		logger.Error("Failed to start server", "error", err)
		os.Exit(1)
	}
}

func driverCatalog(cfg config.RemoteConfig) remote.DriverCatalog {
	if cfg.Catalog == config.CatalogStatic {
		return remote.StaticCatalog(cfg.StaticDrivers)
	}
	return remote.OdbcinstCatalog{Path: cfg.OdbcinstPath}
}
