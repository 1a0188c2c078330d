// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthChecker 依赖的健康检查接口
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler 健康检查处理器
type HealthHandler struct {
	version         string
	agentConfigured bool
	redisEnabled    bool
	redis           HealthChecker
}

// NewHealthHandler 创建健康检查处理器
// redisEnabled 为 true 时 Redis 是就绪的必要条件
func NewHealthHandler(version string, agentConfigured, redisEnabled bool, redisClient HealthChecker) *HealthHandler {
	return &HealthHandler{
		version:         version,
		agentConfigured: agentConfigured,
		redisEnabled:    redisEnabled,
		redis:           redisClient,
	}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type readinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type readinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
}

// Health 健康检查接口
// @Summary 健康检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: h.version,
	})
}

// Ready 就绪检查接口
// @Summary 就绪检查
// @Description 检查服务是否可以接收流量
// @Tags System
// @Produce json
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]*readinessCheck{
		"agent": {Status: "ok"},
		"redis": {Status: "disabled"},
	}

	ready := true

	// Agent 凭据（缺失时上游返回 401，不影响就绪态）
	if !h.agentConfigured {
		checks["agent"].Status = "degraded"
		checks["agent"].Error = "agent id or api token not configured"
	}

	// Redis（启用时必需）
	if h.redisEnabled {
		if h.redis == nil {
			checks["redis"].Status = "missing"
			checks["redis"].Error = "redis client not configured"
			ready = false
		} else {
			start := time.Now()
			err := h.redis.HealthCheck(ctx)
			checks["redis"].LatencyMs = time.Since(start).Milliseconds()
			if err != nil {
				checks["redis"].Status = "error"
				checks["redis"].Error = err.Error()
				ready = false
			} else {
				checks["redis"].Status = "ok"
			}
		}
	}

	resp := readinessResponse{
		Status: "ok",
		Checks: checks,
	}
	if !ready {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Live 存活检查接口
// @Summary 存活检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
	})
}
