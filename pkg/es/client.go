// Package es 提供了与 Elasticsearch 交互的分块向量索引。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"docqa-go/internal/config"
	"docqa-go/internal/model"
	"docqa-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Index 封装了分块向量索引的全部操作。
type Index struct {
	client    *elasticsearch.Client
	indexName string
	dims      int
}

// NewIndex 初始化 Elasticsearch 客户端并确保索引存在。
// dims 是向量维度，必须与 Embedding 服务的输出一致。
func NewIndex(esCfg config.ElasticsearchConfig, dims int) (*Index, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{esCfg.Addresses},
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	idx := &Index{client: client, indexName: esCfg.IndexName, dims: dims}
	if err := idx.ensureIndex(); err != nil {
		return nil, err
	}
	return idx, nil
}

// ensureIndex 检查索引是否存在，不存在则按 cosine 相似度映射创建。
func (x *Index) ensureIndex() error {
	res, err := x.client.Indices.Exists([]string{x.indexName})
	if err != nil {
		return err
	}
	if !res.IsError() && res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", x.indexName)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	mapping := fmt.Sprintf(`{
		"mappings": {
			"properties": {
				"chunk_key": { "type": "keyword" },
				"document_id": { "type": "long" },
				"chunk_index": { "type": "integer" },
				"content": { "type": "text" },
				"vector": {
					"type": "dense_vector",
					"dims": %d,
					"index": true,
					"similarity": "cosine"
				},
				"model_version": { "type": "keyword" }
			}
		}
	}`, x.dims)

	res, err = x.client.Indices.Create(
		x.indexName,
		x.client.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		return err
	}
	if res.IsError() {
		return fmt.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", x.indexName, res.String())
	}

	log.Infof("索引 '%s' 创建成功", x.indexName)
	return nil
}

// IndexChunk 将单个分块向量写入索引。
func (x *Index) IndexChunk(ctx context.Context, doc model.EsChunk) error {
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      x.indexName,
		DocumentID: doc.ChunkKey,
		Body:       bytes.NewReader(docBytes),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, x.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("索引分块到 Elasticsearch 出错: %s", res.String())
		return errors.New("failed to index chunk")
	}
	return nil
}

// DeleteByDocumentID 删除归属指定文档的全部分块，随文档删除级联调用。
func (x *Index) DeleteByDocumentID(ctx context.Context, documentID uint) error {
	query := fmt.Sprintf(`{"query": {"term": {"document_id": %d}}}`, documentID)
	res, err := x.client.DeleteByQuery(
		[]string{x.indexName},
		strings.NewReader(query),
		x.client.DeleteByQuery.WithContext(ctx),
		x.client.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("按文档删除分块失败: %s", res.String())
	}
	return nil
}

// Search 在允许的文档集合内执行余弦相似度检索。
// 相似度检索用 script_score 精确打分；script_score 要求分数非负，
// 因此写入 +1.0 偏移，读出时再减回来，对外始终是 1-cosine_distance。
// 结果按相似度降序，只保留 similarity > threshold 的前 limit 条。
func (x *Index) Search(ctx context.Context, queryVector []float32, documentIDs []uint, threshold float64, limit int) ([]model.RetrievedChunk, error) {
	if len(documentIDs) == 0 {
		return nil, nil
	}

	esQuery := map[string]interface{}{
		"size":      limit,
		"min_score": threshold + 1.0,
		"query": map[string]interface{}{
			"script_score": map[string]interface{}{
				"query": map[string]interface{}{
					"bool": map[string]interface{}{
						"filter": map[string]interface{}{
							"terms": map[string]interface{}{"document_id": documentIDs},
						},
					},
				},
				"script": map[string]interface{}{
					"source": "cosineSimilarity(params.query_vector, 'vector') + 1.0",
					"params": map[string]interface{}{"query_vector": queryVector},
				},
			},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}

	res, err := x.client.Search(
		x.client.Search.WithContext(ctx),
		x.client.Search.WithIndex(x.indexName),
		x.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch returned an error: %s", res.String())
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source model.EsChunk `json:"_source"`
				Score  float64       `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode es response: %w", err)
	}

	results := make([]model.RetrievedChunk, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		results = append(results, model.RetrievedChunk{
			DocumentID: hit.Source.DocumentID,
			ChunkIndex: hit.Source.ChunkIndex,
			Content:    hit.Source.Content,
			Similarity: hit.Score - 1.0,
		})
	}
	return results, nil
}
