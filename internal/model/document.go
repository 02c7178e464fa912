package model

import "time"

// Document 的生命周期状态。上传后即进入 processing，
// 由摄取管道负责迁移到 completed 或 failed，其余字段不再变更。
const (
	DocStatusProcessing = "processing"
	DocStatusCompleted  = "completed"
	DocStatusFailed     = "failed"
)

// Document 对应于数据库中的 'documents' 表，归属于唯一的上传用户。
type Document struct {
	ID                 uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID             uint      `gorm:"index;not null" json:"userId"`
	Title              string    `gorm:"type:varchar(255);not null" json:"title"`
	FileName           string    `gorm:"type:varchar(255);not null" json:"fileName"`
	ObjectKey          string    `gorm:"type:varchar(255);not null" json:"objectKey"`
	MimeType           string    `gorm:"type:varchar(100)" json:"mimeType"`
	Status             string    `gorm:"type:varchar(20);not null;default:'processing';index" json:"status"`
	ProcessingProgress int       `gorm:"not null;default:0" json:"processingProgress"`
	ErrorMessage       string    `gorm:"type:text" json:"errorMessage,omitempty"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Document) TableName() string {
	return "documents"
}

// DocumentChunk 对应于 'document_chunks' 表，是切块后文本的持久化记录。
// 向量本体存储在 Elasticsearch 的同名文档中（见 EsChunk）。
// 分块只在摄取阶段批量创建，此后不再修改，随 Document 删除级联清理。
type DocumentChunk struct {
	ID         uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	DocumentID uint   `gorm:"index;not null" json:"documentId"`
	ChunkIndex int    `gorm:"not null" json:"chunkIndex"`
	Content    string `gorm:"type:text;not null" json:"content"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (DocumentChunk) TableName() string {
	return "document_chunks"
}

// EsChunk 定义了存储在 Elasticsearch 中的分块文档结构。
type EsChunk struct {
	ChunkKey     string    `json:"chunk_key"` // 唯一标识，documentID_chunkIndex
	DocumentID   uint      `json:"document_id"`
	ChunkIndex   int       `json:"chunk_index"`
	Content      string    `json:"content"`
	Vector       []float32 `json:"vector"`
	ModelVersion string    `json:"model_version"`
}

// RetrievedChunk 是相似度检索返回的单条结果。
// Similarity 定义为 1 - cosine_distance(query, chunk)。
type RetrievedChunk struct {
	DocumentID uint    `json:"documentId"`
	ChunkIndex int     `json:"chunkIndex"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}
