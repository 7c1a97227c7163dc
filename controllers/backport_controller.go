package controllers

import (
	"backport-keeper/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type BackportController struct {
	server     *services.Server
	dispatcher *services.Dispatcher
}

/**
 * Create new backport controller instance
 * @param {*services.Server} server - Server owning the installer generation
 * @returns {*BackportController} New backport controller instance
 * @description
 * - Initializes the controller with the server and its dispatcher
 * - Used to manage API routes and handlers for backport operations
 */
func NewBackportController(server *services.Server) *BackportController {
	return &BackportController{
		server:     server,
		dispatcher: services.NewDispatcher(server),
	}
}

/**
 * Register all API routes to Gin engine
 * @param {*gin.Engine} r - Gin router instance
 * @description
 * - Registers routes for:
 *   - Command dispatch (the single inbound request surface)
 *   - Reconfiguration
 *   - Status inspection
 *   - Health and metrics probes
 */
func (b *BackportController) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/backport/api/v1")
	api.POST("/command", b.DoCommand)
	api.POST("/reconfigure", b.Reconfigure)
	api.GET("/status", b.Status)
	api.GET("/config", b.GetConfig)

	r.GET("/healthz", b.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// @Summary Dispatch a named command
// @Description Executes one of the documented backport commands and returns its result fields
// @Tags Backport
// @Accept json
// @Produce json
// @Param request body map[string]interface{} true "Request with a command field, e.g. {\"command\": \"check_status\"}"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /backport/api/v1/command [post]
func (b *BackportController) DoCommand(c *gin.Context) {
	var request map[string]interface{}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(400, gin.H{
			"code":    "backport.bad_request",
			"message": "Invalid request body: " + err.Error(),
		})
		return
	}
	c.JSON(200, b.dispatcher.DoCommand(c.Request.Context(), request))
}

// @Summary Reconfigure the installer
// @Description Replaces the backport configuration with the supplied attribute mapping
// @Tags Backport
// @Accept json
// @Produce json
// @Param request body map[string]interface{} true "Configuration attributes"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{} "Validation rejection; the prior configuration stays in effect"
// @Router /backport/api/v1/reconfigure [post]
func (b *BackportController) Reconfigure(c *gin.Context) {
	var attrs map[string]interface{}
	if err := c.ShouldBindJSON(&attrs); err != nil {
		c.JSON(400, gin.H{
			"code":    "backport.bad_request",
			"message": "Invalid request body: " + err.Error(),
		})
		return
	}
	if err := b.server.Reconfigure(attrs); err != nil {
		c.JSON(400, gin.H{
			"code":    "backport.config_rejected",
			"message": err.Error(),
		})
		return
	}
	c.JSON(200, gin.H{"status": "success"})
}

// @Summary Get backport installation status
// @Description Returns a point-in-time snapshot of the backport installation state
// @Tags Backport
// @Produce json
// @Success 200 {object} models.BackportStatus
// @Failure 409 {object} map[string]interface{} "Installer not configured"
// @Router /backport/api/v1/status [get]
func (b *BackportController) Status(c *gin.Context) {
	ins := b.server.Installer()
	if ins == nil {
		c.JSON(409, gin.H{
			"code":    "backport.not_configured",
			"message": "backport installer is not configured",
		})
		return
	}
	c.JSON(200, ins.Inspect(c.Request.Context()))
}

// @Summary Get effective configuration
// @Description Returns the full effective configuration including derived paths
// @Tags Backport
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{} "Installer not configured"
// @Router /backport/api/v1/config [get]
func (b *BackportController) GetConfig(c *gin.Context) {
	ins := b.server.Installer()
	if ins == nil {
		c.JSON(409, gin.H{
			"code":    "backport.not_configured",
			"message": "backport installer is not configured",
		})
		return
	}
	c.JSON(200, ins.Config().Attributes())
}

// @Summary 业务就绪探针
// @Description 检查服务是否已经做好准备，返回服务版本、启动时间、健康状态和关键指标统计结果
// @Tags System
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Router /healthz [get]
func (b *BackportController) Healthz(c *gin.Context) {
	c.JSON(200, b.server.GetHealthz())
}
