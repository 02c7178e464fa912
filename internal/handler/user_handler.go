package handler

import (
	"net/http"

	"docqa-go/internal/middleware"
	"docqa-go/internal/service"
	"docqa-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// UserHandler 负责处理所有与用户相关的 API 请求。
type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler 创建一个新的 UserHandler 实例。
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// RegisterRequest 定义了用户注册 API 的请求体结构。
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

// Register 处理用户注册请求。
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Register: Invalid request payload, error: %v", err)
		fail(c, http.StatusBadRequest, "无效的请求负载：用户名和密码不能为空")
		return
	}

	user, err := h.userService.Register(req.Username, req.Password)
	if err != nil {
		log.Warnf("Register: User registration failed for '%s', error: %v", req.Username, err)
		failErr(c, err)
		return
	}

	log.Infof("User '%s' registered successfully", user.Username)
	ok(c, gin.H{"id": user.ID, "username": user.Username})
}

// LoginRequest 定义了用户登录 API 的请求体结构。
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 处理用户登录请求。
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Login: Invalid request payload, error: %v", err)
		fail(c, http.StatusBadRequest, "无效的请求负载：用户名和密码不能为空")
		return
	}

	user, pair, err := h.userService.Login(req.Username, req.Password)
	if err != nil {
		log.Warnf("Login: failed for '%s', error: %v", req.Username, err)
		failErr(c, err)
		return
	}

	ok(c, gin.H{
		"user":         gin.H{"id": user.ID, "username": user.Username, "role": user.Role},
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

// RefreshRequest 定义了刷新令牌 API 的请求体结构。
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// Refresh 处理令牌刷新请求。
func (h *UserHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "无效的请求负载：refreshToken 不能为空")
		return
	}

	pair, err := h.userService.Refresh(req.RefreshToken)
	if err != nil {
		fail(c, http.StatusUnauthorized, "无效或已过期的 refreshToken")
		return
	}
	ok(c, pair)
}

// Profile 返回当前登录用户的信息。
func (h *UserHandler) Profile(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	user, err := h.userService.Profile(userID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, user)
}
