package service

import (
	"context"
	"fmt"
	"sort"

	"docqa-go/internal/model"
	"docqa-go/pkg/embedding"
	"docqa-go/pkg/log"
)

// VectorSearcher 定义检索服务所需的向量检索操作。
type VectorSearcher interface {
	Search(ctx context.Context, queryVector []float32, documentIDs []uint, threshold float64, limit int) ([]model.RetrievedChunk, error)
}

// RetrievalService 负责把自然语言查询转成向量检索结果。
type RetrievalService struct {
	embeddingClient embedding.Client
	searcher        VectorSearcher
	knowledge       *KnowledgeService
	threshold       float64
	limit           int
}

// NewRetrievalService 创建一个新的 RetrievalService 实例。
func NewRetrievalService(embeddingClient embedding.Client, searcher VectorSearcher, knowledge *KnowledgeService, threshold float64, limit int) *RetrievalService {
	return &RetrievalService{
		embeddingClient: embeddingClient,
		searcher:        searcher,
		knowledge:       knowledge,
		threshold:       threshold,
		limit:           limit,
	}
}

// Retrieve 在给定文档集合内检索与查询最相关的分块。
// 查询向量化失败是致命错误：没有向量就没有可比对的语义。
// 文档集合为空时直接返回空结果，不访问索引。
func (s *RetrievalService) Retrieve(ctx context.Context, query string, documentIDs []uint) ([]model.RetrievedChunk, error) {
	if len(documentIDs) == 0 {
		return nil, nil
	}

	queryVector, err := s.embeddingClient.CreateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("查询向量化失败: %w", err)
	}

	chunks, err := s.searcher.Search(ctx, queryVector, documentIDs, s.threshold, s.limit)
	if err != nil {
		return nil, fmt.Errorf("向量检索失败: %w", err)
	}

	// 索引端已按阈值、文档范围和数量过滤，这里再收敛一次以保证对外约定：
	// 相似度必须严格大于阈值，所属文档必须在检索范围内
	allowed := make(map[uint]bool, len(documentIDs))
	for _, id := range documentIDs {
		allowed[id] = true
	}
	filtered := make([]model.RetrievedChunk, 0, len(chunks))
	for _, c := range chunks {
		if !allowed[c.DocumentID] {
			log.Warnf("[Retrieval] 丢弃范围外的分块, DocumentID: %d", c.DocumentID)
			continue
		}
		if c.Similarity > s.threshold {
			filtered = append(filtered, c)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Similarity > filtered[j].Similarity
	})
	if len(filtered) > s.limit {
		filtered = filtered[:s.limit]
	}

	log.Infof("[Retrieval] 检索完成, 文档数=%d, 命中分块=%d", len(documentIDs), len(filtered))
	return filtered, nil
}

// SearchForUser 在用户的全部已完成文档上执行检索，供搜索接口使用。
func (s *RetrievalService) SearchForUser(ctx context.Context, userID uint, query string) ([]model.RetrievedChunk, error) {
	k, err := s.knowledge.Resolve(nil, userID)
	if err != nil {
		return nil, err
	}
	return s.Retrieve(ctx, query, k.DocumentIDs)
}
