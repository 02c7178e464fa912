package handler

import (
	"io"
	"net/http"
	"strconv"

	"docqa-go/internal/middleware"
	"docqa-go/internal/service"
	"docqa-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// 单次上传的文件大小上限。
const maxUploadSize = 50 << 20

// DocumentHandler 负责处理文档相关的 API 请求。
type DocumentHandler struct {
	documentService *service.DocumentService
}

// NewDocumentHandler 创建一个新的 DocumentHandler 实例。
func NewDocumentHandler(documentService *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

// Upload 处理文档上传请求，表单字段 file 为文件本体，title 可选。
func (h *DocumentHandler) Upload(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, "缺少上传文件")
		return
	}
	if fileHeader.Size > maxUploadSize {
		fail(c, http.StatusRequestEntityTooLarge, "文件过大")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, "无法读取上传文件")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		fail(c, http.StatusBadRequest, "无法读取上传文件")
		return
	}

	title := c.PostForm("title")
	mimeType := fileHeader.Header.Get("Content-Type")

	doc, err := h.documentService.Upload(c.Request.Context(), userID, title, fileHeader.Filename, mimeType, data)
	if err != nil {
		log.Errorf("Upload: 上传文档失败, 用户: %d, err: %v", userID, err)
		failErr(c, err)
		return
	}
	ok(c, doc)
}

// List 返回当前用户的全部文档。
func (h *DocumentHandler) List(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	docs, err := h.documentService.List(userID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, docs)
}

// Get 返回单个文档及其分块数。
func (h *DocumentHandler) Get(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	documentID, valid := pathID(c, "id")
	if !valid {
		return
	}

	doc, chunkCount, err := h.documentService.Get(userID, documentID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, gin.H{"document": doc, "chunkCount": chunkCount})
}

// Delete 删除文档及其全部关联数据。
func (h *DocumentHandler) Delete(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	documentID, valid := pathID(c, "id")
	if !valid {
		return
	}

	if err := h.documentService.Delete(c.Request.Context(), userID, documentID); err != nil {
		failErr(c, err)
		return
	}
	ok(c, nil)
}

// Ingest 同步触发一次文档摄取，返回处理与跳过的分块数。
func (h *DocumentHandler) Ingest(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	documentID, valid := pathID(c, "id")
	if !valid {
		return
	}

	res, err := h.documentService.Ingest(c.Request.Context(), userID, documentID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, gin.H{
		"chunksProcessed": res.Processed,
		"chunksSkipped":   res.Skipped,
	})
}

// pathID 解析路径参数中的数字 ID，非法时直接写出 400。
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		fail(c, http.StatusBadRequest, "无效的 ID")
		return 0, false
	}
	return uint(id), true
}
