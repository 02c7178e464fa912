package handler

import (
	"net/http"

	"docqa-go/internal/middleware"
	"docqa-go/internal/service"

	"github.com/gin-gonic/gin"
)

// ConversationHandler 负责处理会话管理相关的 API 请求。
type ConversationHandler struct {
	conversationService *service.ConversationService
}

// NewConversationHandler 创建一个新的 ConversationHandler 实例。
func NewConversationHandler(conversationService *service.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversationService: conversationService}
}

// ConversationRequest 定义了创建和更新会话的请求体结构。
// AgentID / ContextID 传 null 即解绑。
type ConversationRequest struct {
	Title      string `json:"title"`
	AgentID    *uint  `json:"agentId"`
	ContextID  *uint  `json:"contextId"`
	RAGEnabled *bool  `json:"ragEnabled"`
}

func (r *ConversationRequest) ragEnabled() bool {
	if r.RAGEnabled == nil {
		return true
	}
	return *r.RAGEnabled
}

// Create 创建一个新会话。
func (h *ConversationHandler) Create(c *gin.Context) {
	var req ConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "无效的请求负载")
		return
	}

	userID := middleware.CurrentUserID(c)
	conv, err := h.conversationService.Create(userID, req.Title, req.AgentID, req.ContextID, req.ragEnabled())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, conv)
}

// List 返回当前用户的全部会话。
func (h *ConversationHandler) List(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	convs, err := h.conversationService.List(userID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, convs)
}

// Get 返回单个会话。
func (h *ConversationHandler) Get(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	conversationID, valid := pathID(c, "id")
	if !valid {
		return
	}

	conv, err := h.conversationService.Get(userID, conversationID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, conv)
}

// Messages 返回会话的全部消息。
func (h *ConversationHandler) Messages(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	conversationID, valid := pathID(c, "id")
	if !valid {
		return
	}

	messages, err := h.conversationService.Messages(userID, conversationID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, messages)
}

// BindAgentRequest 定义了绑定 Agent 的请求体，agentId 为 null 即解绑。
type BindAgentRequest struct {
	AgentID *uint `json:"agentId"`
}

// BindAgent 绑定或解绑会话的 Agent。
func (h *ConversationHandler) BindAgent(c *gin.Context) {
	var req BindAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "无效的请求负载")
		return
	}

	userID := middleware.CurrentUserID(c)
	conversationID, valid := pathID(c, "id")
	if !valid {
		return
	}

	conv, err := h.conversationService.SetAgent(userID, conversationID, req.AgentID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, conv)
}

// BindContextRequest 定义了绑定知识上下文的请求体，contextId 为 null 即解绑。
type BindContextRequest struct {
	ContextID *uint `json:"contextId"`
}

// BindContext 绑定或解绑会话的知识上下文。
func (h *ConversationHandler) BindContext(c *gin.Context) {
	var req BindContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "无效的请求负载")
		return
	}

	userID := middleware.CurrentUserID(c)
	conversationID, valid := pathID(c, "id")
	if !valid {
		return
	}

	conv, err := h.conversationService.SetContext(userID, conversationID, req.ContextID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, conv)
}

// SetRAGRequest 定义了切换会话 RAG 开关的请求体。
type SetRAGRequest struct {
	RAGEnabled *bool `json:"ragEnabled" binding:"required"`
}

// SetRAG 设置会话级 RAG 开关。
func (h *ConversationHandler) SetRAG(c *gin.Context) {
	var req SetRAGRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "无效的请求负载：ragEnabled 不能为空")
		return
	}

	userID := middleware.CurrentUserID(c)
	conversationID, valid := pathID(c, "id")
	if !valid {
		return
	}

	conv, err := h.conversationService.SetRAG(userID, conversationID, *req.RAGEnabled)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, conv)
}

// Update 更新会话的标题、知识来源绑定和 RAG 开关。
func (h *ConversationHandler) Update(c *gin.Context) {
	var req ConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "无效的请求负载")
		return
	}

	userID := middleware.CurrentUserID(c)
	conversationID, valid := pathID(c, "id")
	if !valid {
		return
	}

	conv, err := h.conversationService.Update(userID, conversationID, req.Title, req.AgentID, req.ContextID, req.ragEnabled())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, conv)
}
