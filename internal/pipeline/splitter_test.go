package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitText(t *testing.T) {
	t.Parallel()

	t.Run("空文本返回零个分块", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, SplitText("", 1000))
	})

	t.Run("非法窗口大小返回零个分块", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, SplitText("hello", 0))
		assert.Empty(t, SplitText("hello", -1))
	})

	t.Run("短于窗口的文本只产生一个分块", func(t *testing.T) {
		t.Parallel()
		chunks := SplitText("hello world", 1000)
		assert.Equal(t, []string{"hello world"}, chunks)
	})

	t.Run("分块数量为长度除以窗口向上取整", func(t *testing.T) {
		t.Parallel()
		text := strings.Repeat("a", 2500)
		chunks := SplitText(text, 1000)
		assert.Len(t, chunks, 3)
		assert.Len(t, chunks[0], 1000)
		assert.Len(t, chunks[1], 1000)
		assert.Len(t, chunks[2], 500)
	})

	t.Run("恰好整除时没有空尾块", func(t *testing.T) {
		t.Parallel()
		chunks := SplitText(strings.Repeat("b", 2000), 1000)
		assert.Len(t, chunks, 2)
		for _, c := range chunks {
			assert.NotEmpty(t, c)
		}
	})

	t.Run("按序拼接还原原始文本", func(t *testing.T) {
		t.Parallel()
		text := strings.Repeat("知识库文档内容abc", 321)
		chunks := SplitText(text, 1000)
		assert.Equal(t, text, strings.Join(chunks, ""))
	})

	t.Run("多字节字符按字符计数不被截断", func(t *testing.T) {
		t.Parallel()
		text := strings.Repeat("中", 1500)
		chunks := SplitText(text, 1000)
		assert.Len(t, chunks, 2)
		assert.Equal(t, 1000, len([]rune(chunks[0])))
		assert.Equal(t, 500, len([]rune(chunks[1])))
		assert.Equal(t, text, strings.Join(chunks, ""))
	})
}
