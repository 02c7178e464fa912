package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"docqa-go/internal/model"
	"docqa-go/internal/pipeline"
	"docqa-go/internal/repository"
	"docqa-go/pkg/log"
	"docqa-go/pkg/storage"
	"docqa-go/pkg/tasks"

	"gorm.io/gorm"
)

// TaskEnqueuer 把摄取任务投递到异步队列。
type TaskEnqueuer func(task tasks.DocumentIngestTask) error

// IndexCleaner 定义删除文档时所需的索引清理操作。
type IndexCleaner interface {
	DeleteByDocumentID(ctx context.Context, documentID uint) error
}

// DocumentService 负责文档的上传、查询、删除和摄取触发。
type DocumentService struct {
	docRepo   repository.DocumentRepository
	chunkRepo repository.ChunkRepository
	store     storage.ObjectStore
	index     IndexCleaner
	processor *pipeline.Processor
	enqueue   TaskEnqueuer
}

// NewDocumentService 创建一个新的 DocumentService 实例。
func NewDocumentService(docRepo repository.DocumentRepository, chunkRepo repository.ChunkRepository, store storage.ObjectStore, index IndexCleaner, processor *pipeline.Processor, enqueue TaskEnqueuer) *DocumentService {
	return &DocumentService{
		docRepo:   docRepo,
		chunkRepo: chunkRepo,
		store:     store,
		index:     index,
		processor: processor,
		enqueue:   enqueue,
	}
}

// Upload 上传原始文件并登记文档，随后投递异步摄取任务。
// 投递失败时文档保留在 processing 状态，可通过同步摄取接口补救。
func (s *DocumentService) Upload(ctx context.Context, userID uint, title, fileName, mimeType string, data []byte) (*model.Document, error) {
	if len(data) == 0 {
		return nil, errors.New("文件内容为空")
	}
	if title == "" {
		title = fileName
	}

	objectKey := fmt.Sprintf("documents/%d/%d%s", userID, time.Now().UnixNano(), filepath.Ext(fileName))
	if err := s.store.Upload(ctx, objectKey, data, mimeType); err != nil {
		return nil, fmt.Errorf("上传文件到存储失败: %w", err)
	}

	doc := &model.Document{
		UserID:    userID,
		Title:     title,
		FileName:  fileName,
		ObjectKey: objectKey,
		MimeType:  mimeType,
		Status:    model.DocStatusProcessing,
	}
	if err := s.docRepo.Create(doc); err != nil {
		// 文档行没建起来，顺手清掉已上传的对象
		if rErr := s.store.Remove(ctx, objectKey); rErr != nil {
			log.Warnf("[Document] 回滚已上传对象失败, key: %s, err: %v", objectKey, rErr)
		}
		return nil, fmt.Errorf("创建文档记录失败: %w", err)
	}

	if err := s.enqueue(tasks.DocumentIngestTask{DocumentID: doc.ID, UserID: userID}); err != nil {
		log.Errorf("[Document] 投递摄取任务失败, DocumentID: %d, err: %v", doc.ID, err)
	}
	return doc, nil
}

// Ingest 同步执行一次摄取，供手动重试使用。
func (s *DocumentService) Ingest(ctx context.Context, userID, documentID uint) (pipeline.Result, error) {
	if _, err := s.ownedDocument(userID, documentID); err != nil {
		return pipeline.Result{}, err
	}
	res, err := s.processor.Process(ctx, documentID)
	if errors.Is(err, pipeline.ErrIngestInFlight) {
		return res, ErrIngestConflict
	}
	return res, err
}

// List 返回用户的全部文档。
func (s *DocumentService) List(userID uint) ([]model.Document, error) {
	return s.docRepo.FindByUserID(userID)
}

// Get 返回单个文档及其分块数。
func (s *DocumentService) Get(userID, documentID uint) (*model.Document, int64, error) {
	doc, err := s.ownedDocument(userID, documentID)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.chunkRepo.CountByDocumentID(documentID)
	if err != nil {
		return nil, 0, err
	}
	return doc, count, nil
}

// Delete 级联删除文档：分块记录、向量索引、存储对象、文档行。
// 索引和存储的清理失败不阻断删除，记录日志后继续。
func (s *DocumentService) Delete(ctx context.Context, userID, documentID uint) error {
	doc, err := s.ownedDocument(userID, documentID)
	if err != nil {
		return err
	}

	if err := s.chunkRepo.DeleteByDocumentID(documentID); err != nil {
		return fmt.Errorf("删除分块记录失败: %w", err)
	}
	if err := s.index.DeleteByDocumentID(ctx, documentID); err != nil {
		log.Warnf("[Document] 删除向量索引失败, DocumentID: %d, err: %v", documentID, err)
	}
	if err := s.store.Remove(ctx, doc.ObjectKey); err != nil {
		log.Warnf("[Document] 删除存储对象失败, key: %s, err: %v", doc.ObjectKey, err)
	}
	return s.docRepo.Delete(documentID)
}

func (s *DocumentService) ownedDocument(userID, documentID uint) (*model.Document, error) {
	doc, err := s.docRepo.FindByID(documentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if doc.UserID != userID {
		return nil, ErrPermissionDenied
	}
	return doc, nil
}
