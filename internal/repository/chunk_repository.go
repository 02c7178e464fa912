package repository

import (
	"docqa-go/internal/model"

	"gorm.io/gorm"
)

// ChunkRepository 定义了对 document_chunks 表的数据操作接口。
type ChunkRepository interface {
	Create(chunk *model.DocumentChunk) error
	FindByDocumentID(documentID uint) ([]model.DocumentChunk, error)
	CountByDocumentID(documentID uint) (int64, error)
	DeleteByDocumentID(documentID uint) error
}

type chunkRepository struct {
	db *gorm.DB
}

// NewChunkRepository 创建一个新的 ChunkRepository 实例。
func NewChunkRepository(db *gorm.DB) ChunkRepository {
	return &chunkRepository{db: db}
}

// Create 创建单条分块记录。
func (r *chunkRepository) Create(chunk *model.DocumentChunk) error {
	return r.db.Create(chunk).Error
}

// FindByDocumentID 按 chunk_index 升序返回文档的全部分块。
func (r *chunkRepository) FindByDocumentID(documentID uint) ([]model.DocumentChunk, error) {
	var chunks []model.DocumentChunk
	err := r.db.Where("document_id = ?", documentID).Order("chunk_index asc").Find(&chunks).Error
	return chunks, err
}

// CountByDocumentID 统计文档已持久化的分块数量。
func (r *chunkRepository) CountByDocumentID(documentID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.DocumentChunk{}).Where("document_id = ?", documentID).Count(&count).Error
	return count, err
}

// DeleteByDocumentID 删除归属指定文档的全部分块记录。
func (r *chunkRepository) DeleteByDocumentID(documentID uint) error {
	return r.db.Where("document_id = ?", documentID).Delete(&model.DocumentChunk{}).Error
}
