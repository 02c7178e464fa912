// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"

	"docqa-go/internal/service"

	"github.com/gin-gonic/gin"
)

// ok 按统一的响应结构返回成功数据。
func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    data,
	})
}

// fail 按统一的响应结构返回错误。
func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"code":    status,
		"message": message,
	})
}

// failErr 把服务层错误映射为 HTTP 状态码。
func failErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		fail(c, http.StatusNotFound, "资源不存在")
	case errors.Is(err, service.ErrPermissionDenied):
		fail(c, http.StatusForbidden, "无权访问该资源")
	case errors.Is(err, service.ErrUserExists):
		fail(c, http.StatusConflict, "用户名已存在")
	case errors.Is(err, service.ErrInvalidPassword):
		fail(c, http.StatusUnauthorized, "用户名或密码错误")
	case errors.Is(err, service.ErrIngestConflict):
		fail(c, http.StatusConflict, "文档正在处理中，请稍后重试")
	default:
		fail(c, http.StatusInternalServerError, err.Error())
	}
}
