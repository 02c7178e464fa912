package handler

import (
	"net/http"

	"docqa-go/internal/middleware"
	"docqa-go/internal/service"

	"github.com/gin-gonic/gin"
)

// AgentHandler 负责处理 Agent 相关的 API 请求。
type AgentHandler struct {
	agentService *service.AgentService
}

// NewAgentHandler 创建一个新的 AgentHandler 实例。
func NewAgentHandler(agentService *service.AgentService) *AgentHandler {
	return &AgentHandler{agentService: agentService}
}

// AgentRequest 定义了创建和更新 Agent 的请求体结构。
type AgentRequest struct {
	Name         string `json:"name" binding:"required"`
	SystemPrompt string `json:"systemPrompt"`
	RAGEnabled   *bool  `json:"ragEnabled"`
	DocumentIDs  []uint `json:"documentIds"`
}

func (r *AgentRequest) ragEnabled() bool {
	if r.RAGEnabled == nil {
		return true
	}
	return *r.RAGEnabled
}

// Create 创建一个新的 Agent。
func (h *AgentHandler) Create(c *gin.Context) {
	var req AgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "无效的请求负载：name 不能为空")
		return
	}

	userID := middleware.CurrentUserID(c)
	agent, err := h.agentService.Create(userID, req.Name, req.SystemPrompt, req.ragEnabled(), req.DocumentIDs)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, agent)
}

// List 返回当前用户的全部 Agent。
func (h *AgentHandler) List(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	agents, err := h.agentService.List(userID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, agents)
}

// Get 返回单个 Agent。
func (h *AgentHandler) Get(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	agentID, valid := pathID(c, "id")
	if !valid {
		return
	}

	agent, err := h.agentService.Get(userID, agentID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, agent)
}

// Update 更新一个 Agent。
func (h *AgentHandler) Update(c *gin.Context) {
	var req AgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "无效的请求负载：name 不能为空")
		return
	}

	userID := middleware.CurrentUserID(c)
	agentID, valid := pathID(c, "id")
	if !valid {
		return
	}

	agent, err := h.agentService.Update(userID, agentID, req.Name, req.SystemPrompt, req.ragEnabled(), req.DocumentIDs)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, agent)
}

// Delete 删除一个 Agent。
func (h *AgentHandler) Delete(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	agentID, valid := pathID(c, "id")
	if !valid {
		return
	}

	if err := h.agentService.Delete(userID, agentID); err != nil {
		failErr(c, err)
		return
	}
	ok(c, nil)
}
