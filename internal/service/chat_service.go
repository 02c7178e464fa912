package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docqa-go/internal/config"
	"docqa-go/internal/model"
	"docqa-go/internal/repository"
	"docqa-go/pkg/llm"
	"docqa-go/pkg/log"

	"github.com/gorilla/websocket"
	"gorm.io/gorm"
)

// QueryResult 是一次问答的返回结果。
type QueryResult struct {
	Response       string `json:"response"`
	RagUsed        bool   `json:"ragUsed"`
	ConversationID uint   `json:"conversationId"`
}

// ChatService 负责组装提示词并调用生成模型完成问答。
type ChatService struct {
	convRepo     repository.ConversationRepository
	knowledge    *KnowledgeService
	retrieval    *RetrievalService
	llmClient    llm.Client
	prompt       config.RAGPromptConfig
	historyLimit int
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(convRepo repository.ConversationRepository, knowledge *KnowledgeService, retrieval *RetrievalService, llmClient llm.Client, prompt config.RAGPromptConfig, historyLimit int) *ChatService {
	return &ChatService{
		convRepo:     convRepo,
		knowledge:    knowledge,
		retrieval:    retrieval,
		llmClient:    llmClient,
		prompt:       prompt,
		historyLimit: historyLimit,
	}
}

// prepared 是一次问答在调用生成模型前的全部组装结果。
type prepared struct {
	conv     *model.Conversation
	messages []llm.Message
	ragUsed  bool
	// shortCircuit 为真时完全跳过生成模型，直接返回 fixedResponse
	shortCircuit  bool
	fixedResponse string
}

// Query 执行一次同步问答。
// conversationID 为 0 时新建会话；用户消息与回答均追加到会话历史。
// ragOverride 非 nil 时只对本次请求覆盖 RAG 开关。
func (s *ChatService) Query(ctx context.Context, userID, conversationID uint, query string, ragOverride *bool) (*QueryResult, error) {
	p, err := s.prepare(ctx, userID, conversationID, query, ragOverride)
	if err != nil {
		return nil, err
	}

	response := p.fixedResponse
	if !p.shortCircuit {
		response, err = s.llmClient.ChatCompletion(ctx, p.messages, nil)
		if err != nil {
			return nil, fmt.Errorf("生成回答失败: %w", err)
		}
	}

	s.appendHistory(ctx, p.conv.ID, query, response)
	return &QueryResult{
		Response:       response,
		RagUsed:        p.ragUsed,
		ConversationID: p.conv.ID,
	}, nil
}

// StreamQuery 执行一次流式问答，增量内容通过 writer 下发。
// 返回完整的回答文本用于写入历史。
func (s *ChatService) StreamQuery(ctx context.Context, userID, conversationID uint, query string, ragOverride *bool, writer llm.MessageWriter) (*QueryResult, error) {
	p, err := s.prepare(ctx, userID, conversationID, query, ragOverride)
	if err != nil {
		return nil, err
	}

	var response string
	if p.shortCircuit {
		// 固定回答也按流式协议下发，客户端无需区分
		if err := writer.WriteMessage(websocket.TextMessage, []byte(p.fixedResponse)); err != nil {
			return nil, err
		}
		response = p.fixedResponse
	} else {
		collector := &collectingWriter{inner: writer}
		if err := s.llmClient.StreamChatMessages(ctx, p.messages, nil, collector); err != nil {
			return nil, fmt.Errorf("生成回答失败: %w", err)
		}
		response = collector.buf.String()
	}

	s.appendHistory(ctx, p.conv.ID, query, response)
	return &QueryResult{
		Response:       response,
		RagUsed:        p.ragUsed,
		ConversationID: p.conv.ID,
	}, nil
}

// collectingWriter 在转发流式消息的同时累积完整回答。
type collectingWriter struct {
	inner llm.MessageWriter
	buf   strings.Builder
}

func (w *collectingWriter) WriteMessage(messageType int, data []byte) error {
	w.buf.Write(data)
	return w.inner.WriteMessage(messageType, data)
}

// prepare 完成知识解析、检索和提示词组装。
func (s *ChatService) prepare(ctx context.Context, userID, conversationID uint, query string, ragOverride *bool) (*prepared, error) {
	conv, err := s.loadOrCreateConversation(ctx, userID, conversationID, query)
	if err != nil {
		return nil, err
	}

	k, err := s.knowledge.Resolve(conv, userID)
	if err != nil {
		return nil, fmt.Errorf("解析知识来源失败: %w", err)
	}
	if ragOverride != nil {
		k.RAGEnabled = *ragOverride
	}

	history, err := s.convRepo.RecentHistory(ctx, conv.ID, s.historyLimit)
	if err != nil {
		log.Warnf("[Chat] 加载会话历史失败, ConversationID: %d, err: %v", conv.ID, err)
		history = nil
	}

	p := &prepared{conv: conv}

	switch {
	case !k.RAGEnabled:
		// RAG 关闭：不检索，声明按通用知识回答
		p.messages = s.assemble(s.systemPrompt(k, s.prompt.RagOffText), history, query)

	case len(k.DocumentIDs) == 0:
		// 没有任何可检索的文档：不检索，提示模型说明这一情况
		p.messages = s.assemble(s.systemPrompt(k, s.prompt.NoDocsText), history, query)

	default:
		chunks, err := s.retrieval.Retrieve(ctx, query, k.DocumentIDs)
		if err != nil {
			return nil, err
		}
		if len(chunks) == 0 {
			// 检索无命中：不调用生成模型，返回固定文案
			p.shortCircuit = true
			p.fixedResponse = s.prompt.NoResultText
			return p, nil
		}
		p.ragUsed = true
		p.messages = s.assemble(s.ragSystemPrompt(k, chunks), history, query)
	}

	return p, nil
}

// systemPrompt 拼装非检索路径的系统提示，保留 Agent/Context 自带的提示词。
func (s *ChatService) systemPrompt(k Knowledge, modeText string) string {
	parts := make([]string, 0, 2)
	if k.SystemPrompt != "" {
		parts = append(parts, k.SystemPrompt)
	}
	if modeText != "" {
		parts = append(parts, modeText)
	}
	return strings.Join(parts, "\n\n")
}

// ragSystemPrompt 把检索命中的分块按相关度顺序嵌入系统提示，
// 并约束模型只依据这些参考内容作答。
func (s *ChatService) ragSystemPrompt(k Knowledge, chunks []model.RetrievedChunk) string {
	var b strings.Builder
	if k.SystemPrompt != "" {
		b.WriteString(k.SystemPrompt)
		b.WriteString("\n\n")
	}
	b.WriteString(s.prompt.Rules)
	b.WriteString("\n")
	b.WriteString(s.prompt.RefStart)
	b.WriteString("\n")
	for i, c := range chunks {
		b.WriteString(fmt.Sprintf("[%d] %s\n", i+1, c.Content))
	}
	b.WriteString(s.prompt.RefEnd)
	return b.String()
}

// assemble 按 系统提示 → 历史消息 → 当前问题 的顺序构造消息序列。
func (s *ChatService) assemble(systemPrompt string, history []model.ChatMessage, query string) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+2)
	if systemPrompt != "" {
		messages = append(messages, llm.Message{Role: model.RoleSystem, Content: systemPrompt})
	}
	for _, m := range history {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, llm.Message{Role: model.RoleUser, Content: query})
	return messages
}

func (s *ChatService) loadOrCreateConversation(_ context.Context, userID, conversationID uint, query string) (*model.Conversation, error) {
	if conversationID == 0 {
		conv := &model.Conversation{
			UserID:     userID,
			Title:      conversationTitle(query),
			RAGEnabled: true,
		}
		if err := s.convRepo.Create(conv); err != nil {
			return nil, fmt.Errorf("创建会话失败: %w", err)
		}
		return conv, nil
	}

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

// appendHistory 写入本轮的用户消息和回答，失败只记日志。
func (s *ChatService) appendHistory(ctx context.Context, conversationID uint, query, response string) {
	userMsg := &model.Message{ConversationID: conversationID, Role: model.RoleUser, Content: query}
	if err := s.convRepo.AppendMessage(ctx, userMsg); err != nil {
		log.Errorf("[Chat] 写入用户消息失败, ConversationID: %d, err: %v", conversationID, err)
	}
	assistantMsg := &model.Message{ConversationID: conversationID, Role: model.RoleAssistant, Content: response}
	if err := s.convRepo.AppendMessage(ctx, assistantMsg); err != nil {
		log.Errorf("[Chat] 写入回答消息失败, ConversationID: %d, err: %v", conversationID, err)
	}
}

// conversationTitle 取问题的前若干字符作为新会话标题。
func conversationTitle(query string) string {
	const maxTitleRunes = 30
	runes := []rune(strings.TrimSpace(query))
	if len(runes) > maxTitleRunes {
		runes = runes[:maxTitleRunes]
	}
	return string(runes)
}
