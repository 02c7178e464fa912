package service

import (
	"errors"

	"docqa-go/internal/model"
	"docqa-go/internal/repository"

	"gorm.io/gorm"
)

// AgentService 负责 Agent 的增删改查及其知识库绑定。
type AgentService struct {
	agentRepo repository.AgentRepository
	docRepo   repository.DocumentRepository
}

// NewAgentService 创建一个新的 AgentService 实例。
func NewAgentService(agentRepo repository.AgentRepository, docRepo repository.DocumentRepository) *AgentService {
	return &AgentService{agentRepo: agentRepo, docRepo: docRepo}
}

// Create 创建 Agent，绑定的文档必须全部属于该用户。
func (s *AgentService) Create(userID uint, name, systemPrompt string, ragEnabled bool, documentIDs []uint) (*model.Agent, error) {
	ids, err := s.validateDocumentIDs(userID, documentIDs)
	if err != nil {
		return nil, err
	}
	agent := &model.Agent{
		UserID:       userID,
		Name:         name,
		SystemPrompt: systemPrompt,
		RAGEnabled:   ragEnabled,
		DocumentIDs:  ids,
	}
	if err := s.agentRepo.Create(agent); err != nil {
		return nil, err
	}
	return agent, nil
}

// List 返回用户的全部 Agent。
func (s *AgentService) List(userID uint) ([]model.Agent, error) {
	return s.agentRepo.FindByUserID(userID)
}

// Get 返回单个 Agent。
func (s *AgentService) Get(userID, agentID uint) (*model.Agent, error) {
	return s.ownedAgent(userID, agentID)
}

// Update 更新 Agent 的名称、提示词、开关和文档绑定。
func (s *AgentService) Update(userID, agentID uint, name, systemPrompt string, ragEnabled bool, documentIDs []uint) (*model.Agent, error) {
	agent, err := s.ownedAgent(userID, agentID)
	if err != nil {
		return nil, err
	}
	ids, err := s.validateDocumentIDs(userID, documentIDs)
	if err != nil {
		return nil, err
	}
	agent.Name = name
	agent.SystemPrompt = systemPrompt
	agent.RAGEnabled = ragEnabled
	agent.DocumentIDs = ids
	if err := s.agentRepo.Update(agent); err != nil {
		return nil, err
	}
	return agent, nil
}

// Delete 删除 Agent。已绑定该 Agent 的会话在解析时按未绑定处理。
func (s *AgentService) Delete(userID, agentID uint) error {
	if _, err := s.ownedAgent(userID, agentID); err != nil {
		return err
	}
	return s.agentRepo.Delete(agentID)
}

func (s *AgentService) ownedAgent(userID, agentID uint) (*model.Agent, error) {
	agent, err := s.agentRepo.FindByID(agentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if agent.UserID != userID {
		return nil, ErrPermissionDenied
	}
	return agent, nil
}

// validateDocumentIDs 校验文档归属并保持调用方给定的顺序。
func (s *AgentService) validateDocumentIDs(userID uint, documentIDs []uint) ([]uint, error) {
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
