package repository

import (
	"docqa-go/internal/model"

	"gorm.io/gorm"
)

// ContextRepository 接口定义了知识上下文的持久化操作。
type ContextRepository interface {
	Create(kctx *model.KnowledgeContext) error
	FindByID(id uint) (*model.KnowledgeContext, error)
	FindByUserID(userID uint) ([]model.KnowledgeContext, error)
	Update(kctx *model.KnowledgeContext) error
	Delete(id uint) error
}

type contextRepository struct {
	db *gorm.DB
}

// NewContextRepository 创建一个新的 ContextRepository 实例。
func NewContextRepository(db *gorm.DB) ContextRepository {
	return &contextRepository{db: db}
}

func (r *contextRepository) Create(kctx *model.KnowledgeContext) error {
	return r.db.Create(kctx).Error
}

func (r *contextRepository) FindByID(id uint) (*model.KnowledgeContext, error) {
	var kctx model.KnowledgeContext
	if err := r.db.First(&kctx, id).Error; err != nil {
		return nil, err
	}
	return &kctx, nil
}

func (r *contextRepository) FindByUserID(userID uint) ([]model.KnowledgeContext, error) {
	var contexts []model.KnowledgeContext
	err := r.db.Where("user_id = ?", userID).Find(&contexts).Error
	return contexts, err
}

func (r *contextRepository) Update(kctx *model.KnowledgeContext) error {
	return r.db.Save(kctx).Error
}

func (r *contextRepository) Delete(id uint) error {
	return r.db.Delete(&model.KnowledgeContext{}, id).Error
}
