package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"docqa-go/internal/middleware"
	"docqa-go/internal/service"
	"docqa-go/pkg/log"
	"docqa-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// errStreamStopped 表示客户端主动中断了流式响应。
var errStreamStopped = errors.New("stream stopped by client")

// ChatHandler 负责处理同步问答和 WebSocket 聊天连接。
type ChatHandler struct {
	chatService   *service.ChatService
	jwtManager    *token.JWTManager
	stopToken     string
	stopTokenLock sync.Mutex
	// 每连接停止标志
	stopFlags sync.Map // key: session pointer string, value: bool
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService *service.ChatService, jwtManager *token.JWTManager) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		jwtManager:  jwtManager,
	}
}

// QueryRequest 定义了同步问答 API 的请求体结构。
// RAGEnabled 为可选的单次覆盖，不修改会话级开关。
type QueryRequest struct {
	Message        string `json:"message" binding:"required"`
	ConversationID uint   `json:"conversationId"`
	RAGEnabled     *bool  `json:"ragEnabled"`
}

// Query 处理一次同步问答请求。
func (h *ChatHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "无效的请求负载：message 不能为空")
		return
	}

	userID := middleware.CurrentUserID(c)
	result, err := h.chatService.Query(c.Request.Context(), userID, req.ConversationID, req.Message, req.RAGEnabled)
	if err != nil {
		log.Errorf("Query: 问答失败, 用户: %d, err: %v", userID, err)
		failErr(c, err)
		return
	}
	ok(c, result)
}

// GetWebsocketStopToken 返回一个可用于停止流的令牌。
func (h *ChatHandler) GetWebsocketStopToken(c *gin.Context) {
	h.stopTokenLock.Lock()
	defer h.stopTokenLock.Unlock()
	h.stopToken = "WSS_STOP_CMD_" + token.GenerateRandomString(16)
	ok(c, gin.H{"cmdToken": h.stopToken})
}

// wsQuery 是 WebSocket 连接上单条查询消息的结构。
type wsQuery struct {
	Message        string `json:"message"`
	ConversationID uint   `json:"conversationId"`
	RAGEnabled     *bool  `json:"ragEnabled"`
}

// stoppableWriter 在每次写入前检查停止标志，命中后中断流。
type stoppableWriter struct {
	conn       *websocket.Conn
	shouldStop func() bool
}

func (w *stoppableWriter) WriteMessage(messageType int, data []byte) error {
	if w.shouldStop() {
		return errStreamStopped
	}
	return w.conn.WriteMessage(messageType, data)
}

// Handle 处理一个传入的 WebSocket 连接。
// 连接路径携带 JWT，消息为 JSON：查询消息 {"message":...,"conversationId":...}，
// 停止指令 {"type":"stop","_internal_cmd_token":"..."}。
func (h *ChatHandler) Handle(c *gin.Context) {
	tokenString := c.Param("token")
	claims, err := h.jwtManager.VerifyToken(tokenString)
	if err != nil {
		fail(c, http.StatusUnauthorized, "无效的 token")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()
	defer h.stopFlags.Delete(sessionKey(conn))

	log.Infof("WebSocket 连接已建立，用户: %s", claims.Username)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Warnf("从 WebSocket 读取消息失败: %v", err)
			break
		}

		if h.handleStopCommand(conn, message) {
			continue
		}

		var req wsQuery
		if err := json.Unmarshal(message, &req); err != nil || req.Message == "" {
			// 非 JSON 消息按纯文本查询处理
			req = wsQuery{Message: string(message)}
		}

		key := sessionKey(conn)
		h.stopFlags.Delete(key)
		writer := &stoppableWriter{
			conn: conn,
			shouldStop: func() bool {
				v, loaded := h.stopFlags.Load(key)
				return loaded && v.(bool)
			},
		}

		result, err := h.chatService.StreamQuery(c.Request.Context(), claims.UserID, req.ConversationID, req.Message, req.RAGEnabled, writer)
		if err != nil && !errors.Is(err, errStreamStopped) {
			log.Errorf("处理流式响应失败: %v", err)
			errResp := map[string]string{"error": "AI服务暂时不可用，请稍后重试"}
			b, _ := json.Marshal(errResp)
			_ = conn.WriteMessage(websocket.TextMessage, b)
		}

		// 完成通知，中断或出错时同样发送
		completion := map[string]interface{}{
			"type":      "completion",
			"status":    "finished",
			"message":   "响应已完成",
			"timestamp": time.Now().UnixMilli(),
			"date":      time.Now().Format("2006-01-02T15:04:05"),
		}
		if result != nil {
			completion["conversationId"] = result.ConversationID
			completion["ragUsed"] = result.RagUsed
		}
		cb, _ := json.Marshal(completion)
		_ = conn.WriteMessage(websocket.TextMessage, cb)
	}
}

// handleStopCommand 识别并处理停止指令，返回 true 表示该消息已被消费。
func (h *ChatHandler) handleStopCommand(conn *websocket.Conn, message []byte) bool {
	if len(message) == 0 || message[0] != '{' {
		return false
	}
	var ctrl map[string]interface{}
	if err := json.Unmarshal(message, &ctrl); err != nil {
		return false
	}
	t, isStop := ctrl["type"].(string)
	if !isStop || t != "stop" {
		return false
	}
	tok, hasToken := ctrl["_internal_cmd_token"].(string)
	if !hasToken {
		return false
	}

	h.stopTokenLock.Lock()
	valid := tok == h.stopToken
	h.stopTokenLock.Unlock()
	if !valid {
		return false
	}

	h.stopFlags.Store(sessionKey(conn), true)
	resp := map[string]interface{}{
		"type":      "stop",
		"message":   "响应已停止",
		"timestamp": time.Now().UnixMilli(),
		"date":      time.Now().Format("2006-01-02T15:04:05"),
	}
	b, _ := json.Marshal(resp)
	_ = conn.WriteMessage(websocket.TextMessage, b)
	return true
}

func sessionKey(conn *websocket.Conn) string {
	return fmt.Sprintf("%p", conn)
}
