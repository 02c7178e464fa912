// Package service 实现各业务模块的核心逻辑。
package service

import (
	"errors"

	"docqa-go/internal/model"
	"docqa-go/internal/repository"

	"gorm.io/gorm"
)

// 知识来源的类型。
const (
	KnowledgeSourceAgent   = "agent"
	KnowledgeSourceContext = "context"
	KnowledgeSourceUser    = "user"
	KnowledgeSourceNone    = "none"
)

// Knowledge 是一次查询的知识来源解析结果。
// DocumentIDs 为空表示本次查询没有可检索的文档。
type Knowledge struct {
	Source       string
	DocumentIDs  []uint
	SystemPrompt string
	RAGEnabled   bool
}

// ResolveKnowledge 按固定优先级解析会话的知识来源：
// Agent 的文档列表 > Context 的文档列表 > 用户全部已完成文档。
// 高优先级来源一旦非空即独占检索范围，低优先级来源完全不参与。
// 绑定 Agent 时，Agent 的 RAG 开关覆盖会话级开关。
// 这是一个纯函数，所有输入由调用方负责加载。
func ResolveKnowledge(conv *model.Conversation, agent *model.Agent, kctx *model.KnowledgeContext, userDocs []model.Document) Knowledge {
	if agent != nil {
		k := Knowledge{
			Source:       KnowledgeSourceAgent,
			DocumentIDs:  agent.DocumentIDs,
			SystemPrompt: agent.SystemPrompt,
			RAGEnabled:   agent.RAGEnabled,
		}
		if len(agent.DocumentIDs) > 0 {
			return k
		}
		// Agent 没有绑定文档时只保留它的提示词和开关，知识范围继续向下解析
		if kctx != nil && len(kctx.DocumentIDs) > 0 {
			k.Source = KnowledgeSourceContext
			k.DocumentIDs = kctx.DocumentIDs
			if k.SystemPrompt == "" {
				k.SystemPrompt = kctx.SystemPrompt
			}
			return k
		}
		k.Source = KnowledgeSourceUser
		k.DocumentIDs = documentIDs(userDocs)
		if len(k.DocumentIDs) == 0 {
			k.Source = KnowledgeSourceNone
		}
		return k
	}

	ragEnabled := true
	if conv != nil {
		ragEnabled = conv.RAGEnabled
	}

	if kctx != nil && len(kctx.DocumentIDs) > 0 {
		return Knowledge{
			Source:       KnowledgeSourceContext,
			DocumentIDs:  kctx.DocumentIDs,
			SystemPrompt: kctx.SystemPrompt,
			RAGEnabled:   ragEnabled,
		}
	}

	ids := documentIDs(userDocs)
	source := KnowledgeSourceUser
	if len(ids) == 0 {
		source = KnowledgeSourceNone
	}
	prompt := ""
	if kctx != nil {
		prompt = kctx.SystemPrompt
	}
	return Knowledge{
		Source:       source,
		DocumentIDs:  ids,
		SystemPrompt: prompt,
		RAGEnabled:   ragEnabled,
	}
}

func documentIDs(docs []model.Document) []uint {
	if len(docs) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids
}

// KnowledgeService 负责加载解析知识来源所需的各项数据。
type KnowledgeService struct {
	agentRepo   repository.AgentRepository
	contextRepo repository.ContextRepository
	docRepo     repository.DocumentRepository
	userDocCap  int
}

// NewKnowledgeService 创建一个新的 KnowledgeService 实例。
func NewKnowledgeService(agentRepo repository.AgentRepository, contextRepo repository.ContextRepository, docRepo repository.DocumentRepository, userDocCap int) *KnowledgeService {
	return &KnowledgeService{
		agentRepo:   agentRepo,
		contextRepo: contextRepo,
		docRepo:     docRepo,
		userDocCap:  userDocCap,
	}
}

// Resolve 加载会话绑定的 Agent / Context 以及用户文档，再做纯解析。
// 绑定对象已被删除时按未绑定处理，而不是让整个查询失败。
func (s *KnowledgeService) Resolve(conv *model.Conversation, userID uint) (Knowledge, error) {
	var agent *model.Agent
	var kctx *model.KnowledgeContext

	if conv != nil && conv.AgentID != nil {
		a, err := s.agentRepo.FindByID(*conv.AgentID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return Knowledge{}, err
		}
		agent = a
	}
	if conv != nil && conv.ContextID != nil {
		c, err := s.contextRepo.FindByID(*conv.ContextID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return Knowledge{}, err
		}
		kctx = c
	}

	needUserDocs := (agent == nil || len(agent.DocumentIDs) == 0) &&
		(kctx == nil || len(kctx.DocumentIDs) == 0)
	var userDocs []model.Document
	if needUserDocs {
		docs, err := s.docRepo.FindCompletedByUserID(userID, s.userDocCap)
		if err != nil {
			return Knowledge{}, err
		}
		userDocs = docs
	}

	return ResolveKnowledge(conv, agent, kctx, userDocs), nil
}
