package handler

import (
	"net/http"
	"strconv"

	"docqa-go/internal/middleware"
	"docqa-go/internal/service"
	"docqa-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// SearchHandler 负责处理知识库检索请求。
type SearchHandler struct {
	retrievalService *service.RetrievalService
}

// NewSearchHandler 创建一个新的 SearchHandler 实例。
func NewSearchHandler(retrievalService *service.RetrievalService) *SearchHandler {
	return &SearchHandler{retrievalService: retrievalService}
}

// Search 在当前用户的全部已完成文档上执行向量检索。
// query 是检索语句，topK 可选，用于收窄返回条数。
func (h *SearchHandler) Search(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		fail(c, http.StatusBadRequest, "query 参数不能为空")
		return
	}

	userID := middleware.CurrentUserID(c)
	chunks, err := h.retrievalService.SearchForUser(c.Request.Context(), userID, query)
	if err != nil {
		log.Errorf("Search: 检索失败, 用户: %d, err: %v", userID, err)
		failErr(c, err)
		return
	}

	if topK, err := strconv.Atoi(c.Query("topK")); err == nil && topK > 0 && topK < len(chunks) {
		chunks = chunks[:topK]
	}

	ok(c, gin.H{"results": chunks, "count": len(chunks)})
}
