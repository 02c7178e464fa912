package model

import "time"

// Agent 是带有专属知识库的命名角色。
// DocumentIDs 是有序的文档 ID 列表，构成排他的知识来源：
// 只要该列表非空，检索范围即固定为这些文档。
type Agent struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       uint      `gorm:"index;not null" json:"userId"`
	Name         string    `gorm:"type:varchar(100);not null" json:"name"`
	SystemPrompt string    `gorm:"type:text" json:"systemPrompt"`
	RAGEnabled   bool      `gorm:"not null;default:true" json:"ragEnabled"`
	DocumentIDs  []uint    `gorm:"serializer:json;type:json" json:"documentIds"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Agent) TableName() string {
	return "agents"
}

// KnowledgeContext 是可复用的文档集合，可以附加可选的系统提示，
// 供多个会话共享。优先级低于 Agent 的知识库。
type KnowledgeContext struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       uint      `gorm:"index;not null" json:"userId"`
	Name         string    `gorm:"type:varchar(100);not null" json:"name"`
	SystemPrompt string    `gorm:"type:text" json:"systemPrompt"`
	DocumentIDs  []uint    `gorm:"serializer:json;type:json" json:"documentIds"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (KnowledgeContext) TableName() string {
	return "knowledge_contexts"
}
