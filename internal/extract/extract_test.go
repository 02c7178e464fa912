package extract

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildDocx 构造一个只包含 word/document.xml 的最小 docx 容器。
func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestText_Plain(t *testing.T) {
	t.Parallel()

	t.Run("txt 文件按 MIME 类型直接解码", func(t *testing.T) {
		t.Parallel()
		got, err := Text([]byte("hello 世界"), "notes.txt", "text/plain")
		require.NoError(t, err)
		assert.Equal(t, "hello 世界", got)
	})

	t.Run("csv 按扩展名识别", func(t *testing.T) {
		t.Parallel()
		got, err := Text([]byte("a,b,c\n1,2,3"), "data.csv", "")
		require.NoError(t, err)
		assert.Equal(t, "a,b,c\n1,2,3", got)
	})

	t.Run("非法 UTF-8 字节被剔除", func(t *testing.T) {
		t.Parallel()
		got, err := Text([]byte{'o', 'k', 0xff, 0xfe}, "raw.txt", "text/plain")
		require.NoError(t, err)
		assert.Equal(t, "ok", got)
	})

	t.Run("未知类型按文本尽力解码", func(t *testing.T) {
		t.Parallel()
		got, err := Text([]byte("plain content"), "mystery.bin", "application/octet-stream")
		require.NoError(t, err)
		assert.Equal(t, "plain content", got)
	})
}

func TestText_Docx(t *testing.T) {
	t.Parallel()

	t.Run("抽取段落文本并以换行分隔", func(t *testing.T) {
		t.Parallel()
		docXML := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>第一段</w:t></w:r></w:p>
    <w:p><w:r><w:t>第二段</w:t></w:r><w:r><w:t>继续</w:t></w:r></w:p>
  </w:body>
</w:document>`
		data := buildDocx(t, docXML)
		got, err := Text(data, "report.docx", "")
		require.NoError(t, err)
		assert.Equal(t, "第一段\n第二段继续", got)
	})

	t.Run("没有任何文本内容时返回 ErrNoText", func(t *testing.T) {
		t.Parallel()
		docXML := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body></w:body>
</w:document>`
		data := buildDocx(t, docXML)
		_, err := Text(data, "empty.docx", docxMimeType)
		assert.ErrorIs(t, err, ErrNoText)
	})

	t.Run("缺少正文部件时返回 ErrNoText", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		zw := zip.NewWriter(&buf)
		w, err := zw.Create("dummy.txt")
		require.NoError(t, err)
		_, err = w.Write([]byte("no body here"))
		require.NoError(t, err)
		require.NoError(t, zw.Close())

		_, err = Text(buf.Bytes(), "broken.docx", "")
		assert.ErrorIs(t, err, ErrNoText)
	})

	t.Run("损坏的容器报错", func(t *testing.T) {
		t.Parallel()
		_, err := Text([]byte("not a zip at all"), "corrupt.docx", "")
		assert.Error(t, err)
	})
}

func TestText_PDF(t *testing.T) {
	t.Parallel()

	t.Run("损坏的 PDF 报错", func(t *testing.T) {
		t.Parallel()
		_, err := Text([]byte("definitely not a pdf"), "corrupt.pdf", "application/pdf")
		assert.Error(t, err)
	})
}
