package service

import (
	"errors"

	"docqa-go/internal/model"
	"docqa-go/internal/repository"

	"gorm.io/gorm"
)

// ConversationService 负责会话的管理：创建、绑定知识来源、开关 RAG。
type ConversationService struct {
	convRepo    repository.ConversationRepository
	agentRepo   repository.AgentRepository
	contextRepo repository.ContextRepository
}

// NewConversationService 创建一个新的 ConversationService 实例。
func NewConversationService(convRepo repository.ConversationRepository, agentRepo repository.AgentRepository, contextRepo repository.ContextRepository) *ConversationService {
	return &ConversationService{
		convRepo:    convRepo,
		agentRepo:   agentRepo,
		contextRepo: contextRepo,
	}
}

// Create 创建一个新会话，可在创建时直接绑定 Agent 或 Context。
func (s *ConversationService) Create(userID uint, title string, agentID, contextID *uint, ragEnabled bool) (*model.Conversation, error) {
	if err := s.checkBindings(userID, agentID, contextID); err != nil {
		return nil, err
	}
	conv := &model.Conversation{
		UserID:     userID,
		Title:      title,
		AgentID:    agentID,
		ContextID:  contextID,
		RAGEnabled: ragEnabled,
	}
	if err := s.convRepo.Create(conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// List 返回用户的全部会话。
func (s *ConversationService) List(userID uint) ([]model.Conversation, error) {
	return s.convRepo.FindByUserID(userID)
}

// Get 返回单个会话。
func (s *ConversationService) Get(userID, conversationID uint) (*model.Conversation, error) {
	return s.ownedConversation(userID, conversationID)
}

// Messages 返回会话的全部消息，按时间升序。
func (s *ConversationService) Messages(userID, conversationID uint) ([]model.Message, error) {
	if _, err := s.ownedConversation(userID, conversationID); err != nil {
		return nil, err
	}
	return s.convRepo.FindMessages(conversationID)
}

// Update 更新会话的标题、知识来源绑定和 RAG 开关。
// agentID / contextID 传 nil 即解绑。
func (s *ConversationService) Update(userID, conversationID uint, title string, agentID, contextID *uint, ragEnabled bool) (*model.Conversation, error) {
	conv, err := s.ownedConversation(userID, conversationID)
	if err != nil {
		return nil, err
	}
	if err := s.checkBindings(userID, agentID, contextID); err != nil {
		return nil, err
	}
	conv.Title = title
	conv.AgentID = agentID
	conv.ContextID = contextID
	conv.RAGEnabled = ragEnabled
	if err := s.convRepo.Update(conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// SetAgent 绑定或解绑会话的 Agent，传 nil 解绑。
func (s *ConversationService) SetAgent(userID, conversationID uint, agentID *uint) (*model.Conversation, error) {
	conv, err := s.ownedConversation(userID, conversationID)
	if err != nil {
		return nil, err
	}
	if err := s.checkBindings(userID, agentID, nil); err != nil {
		return nil, err
	}
	conv.AgentID = agentID
	if err := s.convRepo.Update(conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// SetContext 绑定或解绑会话的知识上下文，传 nil 解绑。
func (s *ConversationService) SetContext(userID, conversationID uint, contextID *uint) (*model.Conversation, error) {
	conv, err := s.ownedConversation(userID, conversationID)
	if err != nil {
		return nil, err
	}
	if err := s.checkBindings(userID, nil, contextID); err != nil {
		return nil, err
	}
	conv.ContextID = contextID
	if err := s.convRepo.Update(conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// SetRAG 设置会话级 RAG 开关。绑定了 Agent 时，查询仍以 Agent 的开关为准。
func (s *ConversationService) SetRAG(userID, conversationID uint, enabled bool) (*model.Conversation, error) {
	conv, err := s.ownedConversation(userID, conversationID)
	if err != nil {
		return nil, err
	}
	conv.RAGEnabled = enabled
	if err := s.convRepo.Update(conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// checkBindings 校验待绑定的 Agent / Context 存在且属于该用户。
func (s *ConversationService) checkBindings(userID uint, agentID, contextID *uint) error {
	if agentID != nil {
		agent, err := s.agentRepo.FindByID(*agentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if agent.UserID != userID {
			return ErrPermissionDenied
		}
	}
	if contextID != nil {
		kctx, err := s.contextRepo.FindByID(*contextID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if kctx.UserID != userID {
			return ErrPermissionDenied
		}
	}
	return nil
}

func (s *ConversationService) ownedConversation(userID, conversationID uint) (*model.Conversation, error) {
	conv, err := s.convRepo.FindByID(conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if conv.UserID != userID {
		return nil, ErrPermissionDenied
	}
	return conv, nil
}
