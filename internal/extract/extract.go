// Package extract 负责把原始文件字节转换为纯文本。
// 只做文本抽取，不做 OCR，也不做版面还原。
package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNoText 表示无法从文件中恢复任何文本（如纯图片或加密的 PDF）。
var ErrNoText = errors.New("no text could be extracted from file")

const docxMimeType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Text 根据声明的 MIME 类型或文件扩展名抽取纯文本。
// 纯文本类直接解码；.docx 解压并抽取正文文本；PDF 逐页抽取；
// 未知类型按文本尽力解码。
func Text(data []byte, fileName, mimeType string) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))

	switch {
	case mimeType == "text/plain" || mimeType == "text/csv" || ext == ".txt" || ext == ".csv" || ext == ".md":
		return decodePlain(data), nil
	case mimeType == docxMimeType || ext == ".docx":
		return docxText(data)
	case mimeType == "application/pdf" || ext == ".pdf":
		return pdfText(data)
	default:
		// 未识别的类型按文本尽力解码
		return decodePlain(data), nil
	}
}

// decodePlain 将字节解码为合法的 UTF-8 文本。
func decodePlain(data []byte) string {
	return strings.ToValidUTF8(string(data), "")
}

// docxText 解压 .docx 容器并抽取 word/document.xml 中的文本 run。
// 每个段落之间插入换行。
func docxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("打开 docx 容器失败: %w", err)
	}

	var docXML []byte
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			rc, err := f.Open()
			if err != nil {
				return "", fmt.Errorf("读取 docx 正文失败: %w", err)
			}
			docXML, err = io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return "", fmt.Errorf("读取 docx 正文失败: %w", err)
			}
			break
		}
	}
	if docXML == nil {
		return "", fmt.Errorf("%w: docx 缺少 word/document.xml", ErrNoText)
	}

	var sb strings.Builder
	decoder := xml.NewDecoder(bytes.NewReader(docXML))
	inText := false
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("解析 docx 正文失败: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			if t.Name.Local == "t" {
				inText = false
			}
			if t.Name.Local == "p" {
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

// pdfText 逐页抽取 PDF 文本，页与页之间以段落分隔符连接。
// 纯图片或加密的 PDF 会得到空结果，作为错误显式上报而不是静默忽略。
func pdfText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("打开 PDF 失败: %w", err)
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(pageText) != "" {
			pages = append(pages, strings.TrimSpace(pageText))
		}
	}

	if len(pages) == 0 {
		return "", ErrNoText
	}
	return strings.Join(pages, "\n\n"), nil
}
