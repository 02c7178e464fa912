// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"docqa-go/internal/model"

	"gorm.io/gorm"
)

// DocumentRepository 接口定义了文档元数据的持久化操作。
type DocumentRepository interface {
	Create(doc *model.Document) error
	FindByID(id uint) (*model.Document, error)
	FindByUserID(userID uint) ([]model.Document, error)
	// FindCompletedByUserID 返回用户已完成处理的文档，按创建时间倒序，最多 limit 条。
	FindCompletedByUserID(userID uint, limit int) ([]model.Document, error)
	FindBatchByIDs(ids []uint) ([]model.Document, error)
	UpdateProgress(id uint, progress int) error
	MarkCompleted(id uint) error
	MarkFailed(id uint, message string) error
	Delete(id uint) error
}

// documentRepository 是 DocumentRepository 接口的 GORM 实现。
type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository 创建一个新的 DocumentRepository 实例。
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

// Create 在数据库中创建一条新的文档记录。
func (r *documentRepository) Create(doc *model.Document) error {
	return r.db.Create(doc).Error
}

// FindByID 根据 ID 查找文档。
func (r *documentRepository) FindByID(id uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.First(&doc, id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// FindByUserID 查找指定用户的所有文档，按创建时间倒序。
func (r *documentRepository) FindByUserID(userID uint) ([]model.Document, error) {
	var docs []model.Document
	err := r.db.Where("user_id = ?", userID).Order("created_at desc").Find(&docs).Error
	return docs, err
}

// FindCompletedByUserID 查找用户已完成处理的文档，最近的在前。
func (r *documentRepository) FindCompletedByUserID(userID uint, limit int) ([]model.Document, error) {
	var docs []model.Document
	err := r.db.Where("user_id = ? AND status = ?", userID, model.DocStatusCompleted).
		Order("created_at desc").Limit(limit).Find(&docs).Error
	return docs, err
}

// FindBatchByIDs 按 ID 集合批量查找文档。
func (r *documentRepository) FindBatchByIDs(ids []uint) ([]model.Document, error) {
	var docs []model.Document
	if len(ids) == 0 {
		return docs, nil
	}
	err := r.db.Where("id IN ?", ids).Find(&docs).Error
	return docs, err
}

// UpdateProgress 更新文档的处理进度。
func (r *documentRepository) UpdateProgress(id uint, progress int) error {
	return r.db.Model(&model.Document{}).Where("id = ?", id).
		Update("processing_progress", progress).Error
}

// MarkCompleted 将文档标记为处理完成，进度置为 100。
func (r *documentRepository) MarkCompleted(id uint) error {
	return r.db.Model(&model.Document{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":              model.DocStatusCompleted,
			"processing_progress": 100,
			"error_message":       "",
		}).Error
}

// MarkFailed 将文档标记为处理失败并记录错误信息。
func (r *documentRepository) MarkFailed(id uint, message string) error {
	return r.db.Model(&model.Document{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        model.DocStatusFailed,
			"error_message": message,
		}).Error
}

// Delete 删除文档记录本身，分块与对象的清理由上层级联完成。
func (r *documentRepository) Delete(id uint) error {
	return r.db.Delete(&model.Document{}, id).Error
}
