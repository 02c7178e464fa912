package service

import (
	"context"
	"errors"
	"sync"

	"docqa-go/internal/model"
	"docqa-go/pkg/llm"

	"gorm.io/gorm"
)

// --- 本包测试共用的替身 ---

type fakeEmbedder struct {
	err   error
	calls int
}

func (e *fakeEmbedder) CreateEmbedding(_ context.Context, _ string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return []float32{0.5, 0.5}, nil
}

type fakeSearcher struct {
	results []model.RetrievedChunk
	err     error
	calls   int
	lastIDs []uint
}

func (s *fakeSearcher) Search(_ context.Context, _ []float32, documentIDs []uint, _ float64, _ int) ([]model.RetrievedChunk, error) {
	s.calls++
	s.lastIDs = documentIDs
	return s.results, s.err
}

type fakeLLM struct {
	response string
	err      error
	calls    int
	lastMsgs []llm.Message
}

func (l *fakeLLM) ChatCompletion(_ context.Context, messages []llm.Message, _ *llm.GenerationParams) (string, error) {
	l.calls++
	l.lastMsgs = messages
	return l.response, l.err
}

func (l *fakeLLM) StreamChatMessages(_ context.Context, messages []llm.Message, _ *llm.GenerationParams, writer llm.MessageWriter) error {
	l.calls++
	l.lastMsgs = messages
	if l.err != nil {
		return l.err
	}
	return writer.WriteMessage(1, []byte(l.response))
}

type fakeAgentRepo struct {
	agents map[uint]*model.Agent
}

func (r *fakeAgentRepo) Create(agent *model.Agent) error {
	agent.ID = uint(len(r.agents) + 1)
	r.agents[agent.ID] = agent
	return nil
}

func (r *fakeAgentRepo) FindByID(id uint) (*model.Agent, error) {
	a, found := r.agents[id]
	if !found {
		return nil, gorm.ErrRecordNotFound
	}
	return a, nil
}

func (r *fakeAgentRepo) FindByUserID(userID uint) ([]model.Agent, error) {
	var out []model.Agent
	for _, a := range r.agents {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeAgentRepo) Update(agent *model.Agent) error {
	r.agents[agent.ID] = agent
	return nil
}

func (r *fakeAgentRepo) Delete(id uint) error {
	delete(r.agents, id)
	return nil
}

type fakeContextRepo struct {
	contexts map[uint]*model.KnowledgeContext
}

func (r *fakeContextRepo) Create(kctx *model.KnowledgeContext) error {
	kctx.ID = uint(len(r.contexts) + 1)
	r.contexts[kctx.ID] = kctx
	return nil
}

func (r *fakeContextRepo) FindByID(id uint) (*model.KnowledgeContext, error) {
	c, found := r.contexts[id]
	if !found {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (r *fakeContextRepo) FindByUserID(userID uint) ([]model.KnowledgeContext, error) {
	var out []model.KnowledgeContext
	for _, c := range r.contexts {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeContextRepo) Update(kctx *model.KnowledgeContext) error {
	r.contexts[kctx.ID] = kctx
	return nil
}

func (r *fakeContextRepo) Delete(id uint) error {
	delete(r.contexts, id)
	return nil
}

type fakeDocRepo struct {
	docs map[uint]*model.Document
}

func (r *fakeDocRepo) Create(doc *model.Document) error {
	doc.ID = uint(len(r.docs) + 1)
	r.docs[doc.ID] = doc
	return nil
}

func (r *fakeDocRepo) FindByID(id uint) (*model.Document, error) {
	d, found := r.docs[id]
	if !found {
		return nil, gorm.ErrRecordNotFound
	}
	return d, nil
}

func (r *fakeDocRepo) FindByUserID(userID uint) ([]model.Document, error) {
	var out []model.Document
	for _, d := range r.docs {
		if d.UserID == userID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (r *fakeDocRepo) FindCompletedByUserID(userID uint, limit int) ([]model.Document, error) {
	var out []model.Document
	for _, d := range r.docs {
		if d.UserID == userID && d.Status == model.DocStatusCompleted {
			out = append(out, *d)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *fakeDocRepo) FindBatchByIDs(ids []uint) ([]model.Document, error) {
	var out []model.Document
	for _, id := range ids {
		if d, found := r.docs[id]; found {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (r *fakeDocRepo) UpdateProgress(id uint, progress int) error { return nil }
func (r *fakeDocRepo) MarkCompleted(id uint) error                { return nil }
func (r *fakeDocRepo) MarkFailed(id uint, message string) error   { return nil }

func (r *fakeDocRepo) Delete(id uint) error {
	delete(r.docs, id)
	return nil
}

type fakeConvRepo struct {
	mu       sync.Mutex
	convs    map[uint]*model.Conversation
	messages []model.Message
	history  []model.ChatMessage
}

func newFakeConvRepo() *fakeConvRepo {
	return &fakeConvRepo{convs: make(map[uint]*model.Conversation)}
}

func (r *fakeConvRepo) Create(conv *model.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv.ID = uint(len(r.convs) + 1)
	r.convs[conv.ID] = conv
	return nil
}

func (r *fakeConvRepo) FindByID(id uint) (*model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, found := r.convs[id]
	if !found {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *fakeConvRepo) FindByUserID(userID uint) ([]model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Conversation
	for _, c := range r.convs {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeConvRepo) Update(conv *model.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, found := r.convs[conv.ID]; !found {
		return errors.New("conversation not found")
	}
	r.convs[conv.ID] = conv
	return nil
}

func (r *fakeConvRepo) AppendMessage(_ context.Context, msg *model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg.ID = uint(len(r.messages) + 1)
	r.messages = append(r.messages, *msg)
	return nil
}

func (r *fakeConvRepo) RecentHistory(_ context.Context, _ uint, limit int) ([]model.ChatMessage, error) {
	if len(r.history) > limit {
		return r.history[len(r.history)-limit:], nil
	}
	return r.history, nil
}

func (r *fakeConvRepo) FindMessages(conversationID uint) ([]model.Message, error) {
	var out []model.Message
	for _, m := range r.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	return out, nil
}
