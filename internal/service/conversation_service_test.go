package service

import (
	"testing"

	"docqa-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConversationEnv() (*ConversationService, *fakeConvRepo, *fakeAgentRepo, *fakeContextRepo) {
	convRepo := newFakeConvRepo()
	agentRepo := &fakeAgentRepo{agents: map[uint]*model.Agent{}}
	contextRepo := &fakeContextRepo{contexts: map[uint]*model.KnowledgeContext{}}
	return NewConversationService(convRepo, agentRepo, contextRepo), convRepo, agentRepo, contextRepo
}

func TestConversationBindings(t *testing.T) {
	t.Parallel()

	t.Run("绑定属于自己的 Agent", func(t *testing.T) {
		t.Parallel()
		svc, convRepo, agentRepo, _ := newConversationEnv()
		require.NoError(t, agentRepo.Create(&model.Agent{UserID: 7, Name: "助手"}))
		conv := &model.Conversation{UserID: 7, RAGEnabled: true}
		require.NoError(t, convRepo.Create(conv))

		agentID := uint(1)
		updated, err := svc.SetAgent(7, conv.ID, &agentID)
		require.NoError(t, err)
		require.NotNil(t, updated.AgentID)
		assert.Equal(t, agentID, *updated.AgentID)
	})

	t.Run("传 nil 解绑 Agent", func(t *testing.T) {
		t.Parallel()
		svc, convRepo, _, _ := newConversationEnv()
		agentID := uint(1)
		conv := &model.Conversation{UserID: 7, AgentID: &agentID, RAGEnabled: true}
		require.NoError(t, convRepo.Create(conv))

		updated, err := svc.SetAgent(7, conv.ID, nil)
		require.NoError(t, err)
		assert.Nil(t, updated.AgentID)
	})

	t.Run("绑定他人的 Agent 被拒绝", func(t *testing.T) {
		t.Parallel()
		svc, convRepo, agentRepo, _ := newConversationEnv()
		require.NoError(t, agentRepo.Create(&model.Agent{UserID: 8, Name: "别人的"}))
		conv := &model.Conversation{UserID: 7, RAGEnabled: true}
		require.NoError(t, convRepo.Create(conv))

		agentID := uint(1)
		_, err := svc.SetAgent(7, conv.ID, &agentID)
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("绑定不存在的 Context 报 ErrNotFound", func(t *testing.T) {
		t.Parallel()
		svc, convRepo, _, _ := newConversationEnv()
		conv := &model.Conversation{UserID: 7, RAGEnabled: true}
		require.NoError(t, convRepo.Create(conv))

		contextID := uint(42)
		_, err := svc.SetContext(7, conv.ID, &contextID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("切换会话 RAG 开关", func(t *testing.T) {
		t.Parallel()
		svc, convRepo, _, _ := newConversationEnv()
		conv := &model.Conversation{UserID: 7, RAGEnabled: true}
		require.NoError(t, convRepo.Create(conv))

		updated, err := svc.SetRAG(7, conv.ID, false)
		require.NoError(t, err)
		assert.False(t, updated.RAGEnabled)
	})

	t.Run("操作他人的会话被拒绝", func(t *testing.T) {
		t.Parallel()
		svc, convRepo, _, _ := newConversationEnv()
		conv := &model.Conversation{UserID: 8, RAGEnabled: true}
		require.NoError(t, convRepo.Create(conv))

		_, err := svc.SetRAG(7, conv.ID, false)
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})
}
