package pipeline

// SplitText 将文本按固定窗口大小切分为不重叠的有序分块。
// 按 rune 计数，窗口大小为 chunkSize，最后一块可以更短；
// 所有分块按序拼接后恰好还原出原始文本。空文本返回零个分块。
func SplitText(text string, chunkSize int) []string {
	if chunkSize <= 0 {
		return nil
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	chunks := make([]string, 0, (len(runes)+chunkSize-1)/chunkSize)
	for i := 0; i < len(runes); i += chunkSize {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}
