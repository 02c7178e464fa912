package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults(t *testing.T) {
	t.Parallel()

	t.Run("未配置的检索参数被填充", func(t *testing.T) {
		t.Parallel()
		var c Config
		applyDefaults(&c)
		assert.Equal(t, 1000, c.RAG.ChunkSize)
		assert.Equal(t, 0.3, c.RAG.MatchThreshold)
		assert.Equal(t, 5, c.RAG.MatchCount)
		assert.Equal(t, 10, c.RAG.HistoryLimit)
		assert.Equal(t, 100, c.RAG.UserDocLimit)
		assert.Equal(t, 1536, c.Embedding.Dimensions)
	})

	t.Run("未配置的提示文案被填充", func(t *testing.T) {
		t.Parallel()
		var c Config
		applyDefaults(&c)
		assert.NotEmpty(t, c.RAG.Prompt.Rules)
		assert.NotEmpty(t, c.RAG.Prompt.RefStart)
		assert.NotEmpty(t, c.RAG.Prompt.RefEnd)
		assert.NotEmpty(t, c.RAG.Prompt.NoResultText)
		assert.NotEmpty(t, c.RAG.Prompt.RagOffText)
		assert.NotEmpty(t, c.RAG.Prompt.NoDocsText)
	})

	t.Run("已配置的值不被覆盖", func(t *testing.T) {
		t.Parallel()
		var c Config
		c.RAG.MatchThreshold = 0.5
		c.RAG.Prompt.NoResultText = "自定义文案"
		applyDefaults(&c)
		assert.Equal(t, 0.5, c.RAG.MatchThreshold)
		assert.Equal(t, "自定义文案", c.RAG.Prompt.NoResultText)
	})
}
