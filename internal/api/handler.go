package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rongwang/billing-admin/internal/models"
	"github.com/rongwang/billing-admin/internal/remote"
	"github.com/rongwang/billing-admin/internal/service"
	"github.com/rongwang/billing-admin/internal/utils"
)

// Handler serves the admin REST API
type Handler struct {
	svc    service.Service
	logger *utils.Logger
}

// NewHandler creates a new Handler
func NewHandler(svc service.Service, logger *utils.Logger) *Handler {
	return &Handler{
		svc:    svc,
		logger: logger,
	}
}

// SetupRoutes registers every endpoint on the router
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(cors.Default(), RequestIDMiddleware(), MetricsMiddleware(), LoggingMiddleware(h.logger))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/health", h.Health)

		api.GET("/config", h.GetConfig)
		api.POST("/config", h.UpdateConfig)

		api.GET("/queue", h.ListQueue)

		api.GET("/blocked", h.ListBlocked)
		api.POST("/blocked", h.BlockClient)
		api.POST("/blocked/by-installment", h.BlockInstallment)
		api.POST("/blocked/by-client", h.BlockClientCode)
		api.DELETE("/blocked/:id", h.UnblockClient)

		api.GET("/connection", h.GetConnection)
		api.POST("/connection", h.SaveConnection)
		api.POST("/connection/test", h.TestConnection)
		api.PUT("/connection/:id/active", h.ActivateConnection)
		api.GET("/connections", h.ListConnections)

		api.POST("/query/save", h.SaveQuery)
		api.GET("/query/saved", h.ListSavedQueries)
		api.DELETE("/query/saved/:id", h.DeleteSavedQuery)
		api.POST("/query/execute", h.ExecuteQuery)

		api.GET("/field-mappings", h.ListFieldMappings)
		api.POST("/field-mappings", h.SaveFieldMappings)

		api.GET("/logs", h.ListErrorLogs)
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Message configuration
func (h *Handler) GetConfig(c *gin.Context) {
	cfg, err := h.svc.GetConfig(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	if cfg == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *Handler) UpdateConfig(c *gin.Context) {
	var req models.UpdateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	changes, err := h.svc.UpdateConfig(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "Configuration updated", Changes: &changes})
}

// Queue
func (h *Handler) ListQueue(c *gin.Context) {
	items, err := h.svc.ListQueue(c.Request.Context(), c.Query("status"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// Blocklist
func (h *Handler) ListBlocked(c *gin.Context) {
	clients, err := h.svc.ListBlocked(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, clients)
}

func (h *Handler) BlockClient(c *gin.Context) {
	var req models.CreateBlockedClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	resp, err := h.svc.BlockClient(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) BlockInstallment(c *gin.Context) {
	var req models.BlockInstallmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	resp, err := h.svc.BlockInstallment(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) BlockClientCode(c *gin.Context) {
	var req models.BlockClientCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	resp, err := h.svc.BlockClientCode(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) UnblockClient(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}

	changes, err := h.svc.UnblockClient(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "Deleted", Changes: &changes})
}

// Remote connection credentials
func (h *Handler) GetConnection(c *gin.Context) {
	conn, err := h.svc.GetConnection(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	if conn == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, conn)
}

func (h *Handler) ListConnections(c *gin.Context) {
	conns, err := h.svc.ListConnections(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, conns)
}

func (h *Handler) SaveConnection(c *gin.Context) {
	var req models.ConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	conn, err := h.svc.SaveConnection(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "Connection saved", ID: conn.ID})
}

func (h *Handler) ActivateConnection(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}

	if err := h.svc.ActivateConnection(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "Connection activated", ID: id})
}

func (h *Handler) TestConnection(c *gin.Context) {
	var req models.ConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	if err := h.svc.TestConnection(c.Request.Context(), req); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "Connection successful"})
}

// Queries
func (h *Handler) SaveQuery(c *gin.Context) {
	var req models.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	query, err := h.svc.SaveQuery(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "Query saved", ID: query.ID})
}

func (h *Handler) ListSavedQueries(c *gin.Context) {
	queries, err := h.svc.ListSavedQueries(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, queries)
}

func (h *Handler) DeleteSavedQuery(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}

	changes, err := h.svc.DeleteSavedQuery(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "Query deleted", Changes: &changes})
}

func (h *Handler) ExecuteQuery(c *gin.Context) {
	var req models.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	rows, err := h.svc.ExecuteQuery(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// Helper methods
// Template placeholder mappings
func (h *Handler) ListFieldMappings(c *gin.Context) {
	mappings, err := h.svc.ListFieldMappings(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, mappings)
}

// SaveFieldMappings expects a JSON array of mappings
func (h *Handler) SaveFieldMappings(c *gin.Context) {
	var reqs []models.FieldMappingRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		h.badRequest(c, err)
		return
	}

	if err := h.svc.SaveFieldMappings(c.Request.Context(), reqs); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "Field mappings saved"})
}

// Error log
func (h *Handler) ListErrorLogs(c *gin.Context) {
	logs, err := h.svc.ListErrorLogs(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

func (h *Handler) idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid id"})
		return 0, false
	}
	return id, true
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
}

// writeError maps service and remote errors to HTTP status codes. Remote
// diagnostics are passed through verbatim.
func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := err.Error()

	switch {
	case errors.Is(err, remote.ErrNoConnectionConfigured):
		status = http.StatusBadRequest
	case errors.Is(err, remote.ErrDriverNotFound):
		message = remote.ErrDriverNotFound.Error()
	case errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			"requestId", c.GetString("requestId"),
			"path", c.Request.URL.Path,
			"error", err)
	}

	c.JSON(status, models.ErrorResponse{Error: message})
}
