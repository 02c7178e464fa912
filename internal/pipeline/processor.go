// Package pipeline 定义了文档摄取的核心流程。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"docqa-go/internal/extract"
	"docqa-go/internal/model"
	"docqa-go/internal/repository"
	"docqa-go/pkg/embedding"
	"docqa-go/pkg/log"
	"docqa-go/pkg/storage"
	"docqa-go/pkg/tasks"

	"gorm.io/gorm"
)

// ErrIngestInFlight 表示该文档已有一个摄取任务在执行中。
var ErrIngestInFlight = errors.New("document ingestion already in flight")

// ingestLockTTL 是单个文档摄取租约的最长持有时间。
const ingestLockTTL = 10 * time.Minute

// VectorIndex 定义了摄取管道所需的向量索引操作。
type VectorIndex interface {
	IndexChunk(ctx context.Context, doc model.EsChunk) error
	DeleteByDocumentID(ctx context.Context, documentID uint) error
}

// Result 累计一次摄取中各分块的处理情况。
// Processed 是成功嵌入并持久化的分块数，Skipped 是嵌入失败被跳过的分块数。
type Result struct {
	Processed int
	Skipped   int
	Errs      []error
}

// Processor 封装了文档摄取的所有依赖和逻辑。
type Processor struct {
	store           storage.ObjectStore
	embeddingClient embedding.Client
	index           VectorIndex
	docRepo         repository.DocumentRepository
	chunkRepo       repository.ChunkRepository
	lockRepo        repository.IngestLockRepository
	chunkSize       int
	modelVersion    string
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(
	store storage.ObjectStore,
	embeddingClient embedding.Client,
	index VectorIndex,
	docRepo repository.DocumentRepository,
	chunkRepo repository.ChunkRepository,
	lockRepo repository.IngestLockRepository,
	chunkSize int,
	modelVersion string,
) *Processor {
	return &Processor{
		store:           store,
		embeddingClient: embeddingClient,
		index:           index,
		docRepo:         docRepo,
		chunkRepo:       chunkRepo,
		lockRepo:        lockRepo,
		chunkSize:       chunkSize,
		modelVersion:    modelVersion,
	}
}

// ProcessTask 实现 kafka.TaskProcessor。
// 已有同文档任务在跑时视为处理完成，让消费者提交 offset。
func (p *Processor) ProcessTask(ctx context.Context, task tasks.DocumentIngestTask) error {
	_, err := p.Process(ctx, task.DocumentID)
	if errors.Is(err, ErrIngestInFlight) {
		log.Warnf("[Processor] 文档 %d 的摄取任务已在执行中，跳过重复触发", task.DocumentID)
		return nil
	}
	return err
}

// Process 执行单个文档的完整摄取。
// 状态机：processing → completed（正常），processing → failed（不可恢复错误）。
// 单个分块的嵌入失败只跳过该分块，不会使整个文档失败。
func (p *Processor) Process(ctx context.Context, documentID uint) (Result, error) {
	if p.lockRepo != nil {
		acquired, err := p.lockRepo.TryAcquire(ctx, documentID, ingestLockTTL)
		if err != nil {
			log.Warnf("[Processor] 获取摄取租约失败, DocumentID: %d, err: %v", documentID, err)
		} else if !acquired {
			return Result{}, ErrIngestInFlight
		} else {
			defer func() { _ = p.lockRepo.Release(ctx, documentID) }()
		}
	}

	// 文档不存在时没有可以写失败状态的行，直接返回
	doc, err := p.docRepo.FindByID(documentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Result{}, fmt.Errorf("文档 %d 不存在: %w", documentID, err)
		}
		return Result{}, fmt.Errorf("加载文档 %d 失败: %w", documentID, err)
	}

	log.Infof("[Processor] 开始处理文档, DocumentID: %d, FileName: %s", doc.ID, doc.FileName)
	res, err := p.ingest(ctx, doc)
	if err != nil {
		// 失败状态写入是尽力而为：管道已经失败，二次错误只记日志
		if mErr := p.docRepo.MarkFailed(doc.ID, err.Error()); mErr != nil {
			log.Errorf("[Processor] 写入失败状态失败, DocumentID: %d, err: %v", doc.ID, mErr)
		}
		return res, err
	}

	log.Infof("[Processor] 文档处理成功完成, DocumentID: %d, processed=%d, skipped=%d",
		doc.ID, res.Processed, res.Skipped)
	return res, nil
}

func (p *Processor) ingest(ctx context.Context, doc *model.Document) (Result, error) {
	var res Result

	// 1. 从对象存储下载原始文件
	data, err := p.store.Download(ctx, doc.ObjectKey)
	if err != nil {
		return res, fmt.Errorf("从存储下载文件失败: %w", err)
	}
	if len(data) == 0 {
		return res, errors.New("文件内容为空")
	}
	log.Infof("[Processor] 步骤1: 文件下载成功, 大小: %d 字节", len(data))

	// 2. 抽取纯文本
	text, err := extract.Text(data, doc.FileName, doc.MimeType)
	if err != nil {
		return res, fmt.Errorf("抽取文本失败: %w", err)
	}
	if text == "" {
		return res, fmt.Errorf("抽取文本失败: %w", extract.ErrNoText)
	}
	log.Infof("[Processor] 步骤2: 文本抽取成功, 内容长度: %d 字符", utf8.RuneCountInString(text))

	// 3. 文本切块
	chunks := SplitText(text, p.chunkSize)
	if len(chunks) == 0 {
		return res, fmt.Errorf("未生成任何文本分块: %w", extract.ErrNoText)
	}
	log.Infof("[Processor] 步骤3: 文本分块完成, 共 %d 个分块", len(chunks))

	// 重复摄取前先清理既有分块，保证幂等
	if err := p.chunkRepo.DeleteByDocumentID(doc.ID); err != nil {
		return res, fmt.Errorf("清理既有分块记录失败: %w", err)
	}
	if err := p.index.DeleteByDocumentID(ctx, doc.ID); err != nil {
		log.Warnf("[Processor] 清理既有向量索引失败, DocumentID: %d, err: %v", doc.ID, err)
	}

	// 4. 逐块嵌入并持久化；嵌入失败跳过该块继续，其余错误终止整个文档
	total := len(chunks)
	for i, content := range chunks {
		vector, err := p.embeddingClient.CreateEmbedding(ctx, content)
		if err != nil {
			if errors.Is(err, embedding.ErrMissingCredentials) {
				// 凭证缺失属于配置错误，继续循环只会全部失败
				return res, err
			}
			log.Warnf("[Processor] 分块 %d 嵌入失败，跳过: %v", i, err)
			res.Skipped++
			res.Errs = append(res.Errs, fmt.Errorf("chunk %d: %w", i, err))
			p.updateProgress(doc.ID, i+1, total)
			continue
		}

		chunk := &model.DocumentChunk{
			DocumentID: doc.ID,
			ChunkIndex: i,
			Content:    content,
		}
		if err := p.chunkRepo.Create(chunk); err != nil {
			return res, fmt.Errorf("持久化分块 %d 失败: %w", i, err)
		}

		esDoc := model.EsChunk{
			ChunkKey:     fmt.Sprintf("%d_%d", doc.ID, i),
			DocumentID:   doc.ID,
			ChunkIndex:   i,
			Content:      content,
			Vector:       vector,
			ModelVersion: p.modelVersion,
		}
		if err := p.index.IndexChunk(ctx, esDoc); err != nil {
			return res, fmt.Errorf("索引分块 %d 失败: %w", i, err)
		}

		res.Processed++
		p.updateProgress(doc.ID, i+1, total)
	}

	// 5. 所有分块尝试完毕即视为完成；部分分块被跳过不影响终态
	if err := p.docRepo.MarkCompleted(doc.ID); err != nil {
		return res, fmt.Errorf("更新文档完成状态失败: %w", err)
	}
	return res, nil
}

// updateProgress 按已尝试的分块数更新进度，失败只记日志不中断。
func (p *Processor) updateProgress(documentID uint, attempted, total int) {
	progress := int(math.Round(float64(attempted) / float64(total) * 100))
	if err := p.docRepo.UpdateProgress(documentID, progress); err != nil {
		log.Warnf("[Processor] 更新进度失败, DocumentID: %d, err: %v", documentID, err)
	}
}
