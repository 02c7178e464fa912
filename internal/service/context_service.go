package service

import (
	"errors"

	"docqa-go/internal/model"
	"docqa-go/internal/repository"

	"gorm.io/gorm"
)

// ContextService 负责知识上下文的增删改查。
type ContextService struct {
	contextRepo repository.ContextRepository
	docRepo     repository.DocumentRepository
}

// NewContextService 创建一个新的 ContextService 实例。
func NewContextService(contextRepo repository.ContextRepository, docRepo repository.DocumentRepository) *ContextService {
	return &ContextService{contextRepo: contextRepo, docRepo: docRepo}
}

// Create 创建知识上下文，绑定的文档必须全部属于该用户。
func (s *ContextService) Create(userID uint, name, systemPrompt string, documentIDs []uint) (*model.KnowledgeContext, error) {
	ids, err := s.validateDocumentIDs(userID, documentIDs)
	if err != nil {
		return nil, err
	}
	kctx := &model.KnowledgeContext{
		UserID:       userID,
		Name:         name,
		SystemPrompt: systemPrompt,
		DocumentIDs:  ids,
	}
	if err := s.contextRepo.Create(kctx); err != nil {
		return nil, err
	}
	return kctx, nil
}

// List 返回用户的全部知识上下文。
func (s *ContextService) List(userID uint) ([]model.KnowledgeContext, error) {
	return s.contextRepo.FindByUserID(userID)
}

// Get 返回单个知识上下文。
func (s *ContextService) Get(userID, contextID uint) (*model.KnowledgeContext, error) {
	return s.ownedContext(userID, contextID)
}

// Update 更新知识上下文的名称、提示词和文档绑定。
func (s *ContextService) Update(userID, contextID uint, name, systemPrompt string, documentIDs []uint) (*model.KnowledgeContext, error) {
	kctx, err := s.ownedContext(userID, contextID)
	if err != nil {
		return nil, err
	}
	ids, err := s.validateDocumentIDs(userID, documentIDs)
	if err != nil {
		return nil, err
	}
	kctx.Name = name
	kctx.SystemPrompt = systemPrompt
	kctx.DocumentIDs = ids
	if err := s.contextRepo.Update(kctx); err != nil {
		return nil, err
	}
	return kctx, nil
}

// Delete 删除知识上下文。已绑定的会话在解析时按未绑定处理。
func (s *ContextService) Delete(userID, contextID uint) error {
	if _, err := s.ownedContext(userID, contextID); err != nil {
		return err
	}
	return s.contextRepo.Delete(contextID)
}

func (s *ContextService) ownedContext(userID, contextID uint) (*model.KnowledgeContext, error) {
	kctx, err := s.contextRepo.FindByID(contextID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if kctx.UserID != userID {
		return nil, ErrPermissionDenied
	}
	return kctx, nil
}

func (s *ContextService) validateDocumentIDs(userID uint, documentIDs []uint) ([]uint, error) {
	if len(documentIDs) == 0 {
		return nil, nil
	}
	docs, err := s.docRepo.FindBatchByIDs(documentIDs)
	if err != nil {
		return nil, err
	}
	owned := make(map[uint]bool, len(docs))
	for _, d := range docs {
		if d.UserID == userID {
			owned[d.ID] = true
		}
	}
	for _, id := range documentIDs {
		if !owned[id] {
			return nil, ErrPermissionDenied
		}
	}
	return documentIDs, nil
}
