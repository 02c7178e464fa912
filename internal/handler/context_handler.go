package handler

import (
	"net/http"

	"docqa-go/internal/middleware"
	"docqa-go/internal/service"

	"github.com/gin-gonic/gin"
)

// ContextHandler 负责处理知识上下文相关的 API 请求。
type ContextHandler struct {
	contextService *service.ContextService
}

// NewContextHandler 创建一个新的 ContextHandler 实例。
func NewContextHandler(contextService *service.ContextService) *ContextHandler {
	return &ContextHandler{contextService: contextService}
}

// ContextRequest 定义了创建和更新知识上下文的请求体结构。
type ContextRequest struct {
	Name         string `json:"name" binding:"required"`
	SystemPrompt string `json:"systemPrompt"`
	DocumentIDs  []uint `json:"documentIds"`
}

// Create 创建一个新的知识上下文。
func (h *ContextHandler) Create(c *gin.Context) {
	var req ContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "无效的请求负载：name 不能为空")
		return
	}

	userID := middleware.CurrentUserID(c)
	kctx, err := h.contextService.Create(userID, req.Name, req.SystemPrompt, req.DocumentIDs)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, kctx)
}

// List 返回当前用户的全部知识上下文。
func (h *ContextHandler) List(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	contexts, err := h.contextService.List(userID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, contexts)
}

// Get 返回单个知识上下文。
func (h *ContextHandler) Get(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	contextID, valid := pathID(c, "id")
	if !valid {
		return
	}

	kctx, err := h.contextService.Get(userID, contextID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, kctx)
}

// Update 更新一个知识上下文。
func (h *ContextHandler) Update(c *gin.Context) {
	var req ContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "无效的请求负载：name 不能为空")
		return
	}

	userID := middleware.CurrentUserID(c)
	contextID, valid := pathID(c, "id")
	if !valid {
		return
	}

	kctx, err := h.contextService.Update(userID, contextID, req.Name, req.SystemPrompt, req.DocumentIDs)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, kctx)
}

// Delete 删除一个知识上下文。
func (h *ContextHandler) Delete(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	contextID, valid := pathID(c, "id")
	if !valid {
		return
	}

	if err := h.contextService.Delete(userID, contextID); err != nil {
		failErr(c, err)
		return
	}
	ok(c, nil)
}
