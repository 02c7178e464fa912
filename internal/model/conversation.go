package model

import "time"

// 消息角色。
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Conversation 对应于 'conversations' 表。
// AgentID 和 ContextID 均可为空；RAGEnabled 是会话级默认值，
// 绑定 Agent 时会被 Agent 的开关覆盖。
type Conversation struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     uint      `gorm:"index;not null" json:"userId"`
	Title      string    `gorm:"type:varchar(255)" json:"title"`
	AgentID    *uint     `gorm:"index" json:"agentId,omitempty"`
	ContextID  *uint     `gorm:"index" json:"contextId,omitempty"`
	RAGEnabled bool      `gorm:"not null;default:true" json:"ragEnabled"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Conversation) TableName() string {
	return "conversations"
}

// Message 对应于 'messages' 表，按创建时间排序，只追加不修改。
type Message struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID uint      `gorm:"index;not null" json:"conversationId"`
	Role           string    `gorm:"type:varchar(20);not null" json:"role"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Message) TableName() string {
	return "messages"
}

// ChatMessage 是发送给生成模型的单条角色消息，
// 也是 Redis 历史缓存中的存储结构。
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
