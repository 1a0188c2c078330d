package handler

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"contextual-chat/internal/application/attribution"
	"contextual-chat/internal/application/relay"
	"contextual-chat/internal/interfaces/http/dto"
	apperrors "contextual-chat/pkg/errors"
	"contextual-chat/pkg/logger"
)

// RelayHandler 上游 Agent API 转发处理器
type RelayHandler struct {
	svc *relay.Service
}

// NewRelayHandler 创建转发处理器
func NewRelayHandler(svc *relay.Service) *RelayHandler {
	return &RelayHandler{svc: svc}
}

// Chat 转发对话请求，强制 stream=false
// @Summary 对话
// @Tags Relay
// @Accept json
// @Produce json
// @Router /api/chat [post]
func (h *RelayHandler) Chat(c *gin.Context) {
	payload, err := decodeObject(c.Request.Body)
	if err != nil {
		dto.AppError(c, apperrors.ErrInvalidParam.WithDetail(err.Error()))
		return
	}

	resp, err := h.svc.Chat(c.Request.Context(), payload)
	if err != nil {
		dto.AppError(c, err)
		return
	}
	writeRelayed(c, resp)
}

// RetrievalInfo 转发单个内容的检索元数据查询
// @Summary 检索信息
// @Tags Relay
// @Produce json
// @Param agent_id query string true "Agent ID"
// @Param message_id query string true "消息 ID"
// @Param content_id query string true "内容 ID"
// @Failure 400 {object} dto.MissingParametersResponse
// @Router /api/retrieval-info [get]
func (h *RelayHandler) RetrievalInfo(c *gin.Context) {
	lookup := relay.Lookup{
		AgentID:   c.Query("agent_id"),
		MessageID: c.Query("message_id"),
		ContentID: c.Query("content_id"),
	}

	resp, err := h.svc.RetrievalInfo(c.Request.Context(), lookup)
	if err != nil {
		if errors.Is(err, apperrors.ErrMissingParameters) {
			dto.MissingParameters(c)
			return
		}
		dto.AppError(c, err)
		return
	}
	writeRelayed(c, resp)
}

// Query 原样转发 query 负载，不修改 stream
// @Summary 重新提交查询
// @Tags Relay
// @Accept json
// @Produce json
// @Router /api/retrieval-info [post]
func (h *RelayHandler) Query(c *gin.Context) {
	payload, err := decodeObject(c.Request.Body)
	if err != nil {
		dto.AppError(c, apperrors.ErrInvalidParam.WithDetail(err.Error()))
		return
	}

	resp, err := h.svc.Query(c.Request.Context(), payload)
	if err != nil {
		dto.AppError(c, err)
		return
	}
	writeRelayed(c, resp)
}

// ResolveAttributions 计算去重后的引用标记
// @Summary 解析引用
// @Tags Relay
// @Accept json
// @Produce json
// @Param body body dto.ResolveAttributionsRequest true "上游响应中的引用字段"
// @Success 200 {object} dto.Response[dto.ResolveAttributionsResponse]
// @Router /api/attributions [post]
func (h *RelayHandler) ResolveAttributions(c *gin.Context) {
	var req dto.ResolveAttributionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.AppError(c, apperrors.ErrInvalidParam.WithDetail(err.Error()))
		return
	}

	dto.Success(c, dto.ResolveAttributionsResponse{
		Markers: attribution.Resolve(req.Attributions, req.RetrievalContents),
	})
}

// writeRelayed 以上游状态码与原始响应体回写
func writeRelayed(c *gin.Context, resp *relay.Response) {
	if !resp.OK() {
		logger.Warn(c.Request.Context(), "relaying upstream error status", "status", resp.StatusCode)
	}
	c.Data(resp.StatusCode, "application/json", resp.Body)
}

// decodeObject 解析 JSON 对象请求体，数字保持原始字面量
func decodeObject(body io.Reader) (map[string]any, error) {
	if body == nil {
		return nil, errors.New("request body is empty")
	}
	dec := json.NewDecoder(body)
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, errors.New("request body must be a JSON object")
	}
	if payload == nil {
		return nil, errors.New("request body must be a JSON object")
	}
	if dec.More() {
		return nil, errors.New("request body must contain a single JSON object")
	}
	return payload, nil
}
