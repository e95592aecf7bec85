package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"paritybit-setup/internal/models"
	"paritybit-setup/services"
)

type APIController struct {
	server *services.Server
}

/**
 * Create new API controller instance
 * @param {*services.Server} server - status backend
 * @returns {*APIController} New API controller instance
 * @example
 * controller := controllers.NewAPIController(services.NewServer(status))
 */
func NewAPIController(server *services.Server) *APIController {
	return &APIController{
		server: server,
	}
}

/**
 * Register all API routes to Gin engine
 * @param {*gin.Engine} r - Gin router instance
 * @description
 * - /healthz readiness probe
 * - /api/v1/outcome last provisioning outcome
 * - /api/v1/status live unit, proxy and artifact status
 * - /metrics Prometheus exposition
 */
func (a *APIController) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", a.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	api.GET("/outcome", a.Outcome)
	api.GET("/status", a.Status)
}

// @Summary Readiness probe
// @Tags System
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Router /healthz [get]
func (a *APIController) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, a.server.GetHealthz())
}

// @Summary Last provisioning outcome
// @Tags Provision
// @Produce json
// @Success 200 {object} models.RunOutcome
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/outcome [get]
func (a *APIController) Outcome(c *gin.Context) {
	out, err := a.server.LastOutcome()
	if errors.Is(err, services.ErrNoOutcome) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Code: "outcome.not_found", Error: err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Code: "outcome.read_failed", Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary Live host status
// @Description Queries tor and both worker units, probes the SOCKS port and inspects worker artifacts
// @Tags System
// @Produce json
// @Success 200 {object} models.StatusReport
// @Router /api/v1/status [get]
func (a *APIController) Status(c *gin.Context) {
	c.JSON(http.StatusOK, a.server.Check(c.Request.Context()))
}
