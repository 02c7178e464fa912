package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"docqa-go/internal/model"
	"docqa-go/internal/pipeline"
	"docqa-go/pkg/tasks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjectStore struct {
	objects map[string][]byte
}

func (s *fakeObjectStore) Upload(_ context.Context, objectName string, data []byte, _ string) error {
	s.objects[objectName] = data
	return nil
}

func (s *fakeObjectStore) Download(_ context.Context, objectName string) ([]byte, error) {
	data, found := s.objects[objectName]
	if !found {
		return nil, errors.New("object not found")
	}
	return data, nil
}

func (s *fakeObjectStore) Remove(_ context.Context, objectName string) error {
	delete(s.objects, objectName)
	return nil
}

type fakeVectorIndex struct {
	docs map[string]model.EsChunk
}

func (x *fakeVectorIndex) IndexChunk(_ context.Context, doc model.EsChunk) error {
	x.docs[doc.ChunkKey] = doc
	return nil
}

func (x *fakeVectorIndex) DeleteByDocumentID(_ context.Context, documentID uint) error {
	for key, doc := range x.docs {
		if doc.DocumentID == documentID {
			delete(x.docs, key)
		}
	}
	return nil
}

type fakeChunkStore struct {
	chunks []model.DocumentChunk
}

func (r *fakeChunkStore) Create(chunk *model.DocumentChunk) error {
	chunk.ID = uint(len(r.chunks) + 1)
	r.chunks = append(r.chunks, *chunk)
	return nil
}

func (r *fakeChunkStore) FindByDocumentID(documentID uint) ([]model.DocumentChunk, error) {
	var out []model.DocumentChunk
	for _, c := range r.chunks {
		if c.DocumentID == documentID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeChunkStore) CountByDocumentID(documentID uint) (int64, error) {
	found, _ := r.FindByDocumentID(documentID)
	return int64(len(found)), nil
}

func (r *fakeChunkStore) DeleteByDocumentID(documentID uint) error {
	var kept []model.DocumentChunk
	for _, c := range r.chunks {
		if c.DocumentID != documentID {
			kept = append(kept, c)
		}
	}
	r.chunks = kept
	return nil
}

type fakeIngestLock struct {
	locks map[uint]bool
}

func (r *fakeIngestLock) TryAcquire(_ context.Context, documentID uint, _ time.Duration) (bool, error) {
	if r.locks[documentID] {
		return false, nil
	}
	r.locks[documentID] = true
	return true, nil
}

func (r *fakeIngestLock) Release(_ context.Context, documentID uint) error {
	delete(r.locks, documentID)
	return nil
}

type docEnv struct {
	docRepo   *fakeDocRepo
	chunkRepo *fakeChunkStore
	store     *fakeObjectStore
	index     *fakeVectorIndex
	lock      *fakeIngestLock
	enqueued  []tasks.DocumentIngestTask
	svc       *DocumentService
}

func newDocEnv(t *testing.T) *docEnv {
	t.Helper()
	env := &docEnv{
		docRepo:   &fakeDocRepo{docs: map[uint]*model.Document{}},
		chunkRepo: &fakeChunkStore{},
		store:     &fakeObjectStore{objects: map[string][]byte{}},
		index:     &fakeVectorIndex{docs: map[string]model.EsChunk{}},
		lock:      &fakeIngestLock{locks: map[uint]bool{}},
	}
	processor := pipeline.NewProcessor(
		env.store, &fakeEmbedder{}, env.index,
		env.docRepo, env.chunkRepo, env.lock,
		1000, "test-embed-v1",
	)
	env.svc = NewDocumentService(env.docRepo, env.chunkRepo, env.store, env.index, processor, func(task tasks.DocumentIngestTask) error {
		env.enqueued = append(env.enqueued, task)
		return nil
	})
	return env
}

func TestUpload(t *testing.T) {
	t.Parallel()

	t.Run("上传后文档处于 processing 并投递摄取任务", func(t *testing.T) {
		t.Parallel()
		env := newDocEnv(t)

		doc, err := env.svc.Upload(context.Background(), 7, "我的文档", "notes.txt", "text/plain", []byte("内容"))
		require.NoError(t, err)
		assert.Equal(t, model.DocStatusProcessing, doc.Status)
		assert.Equal(t, "我的文档", doc.Title)
		assert.Contains(t, env.store.objects, doc.ObjectKey)
		require.Len(t, env.enqueued, 1)
		assert.Equal(t, doc.ID, env.enqueued[0].DocumentID)
	})

	t.Run("未指定标题时使用文件名", func(t *testing.T) {
		t.Parallel()
		env := newDocEnv(t)

		doc, err := env.svc.Upload(context.Background(), 7, "", "notes.txt", "text/plain", []byte("内容"))
		require.NoError(t, err)
		assert.Equal(t, "notes.txt", doc.Title)
	})

	t.Run("空文件被拒绝", func(t *testing.T) {
		t.Parallel()
		env := newDocEnv(t)
		_, err := env.svc.Upload(context.Background(), 7, "t", "empty.txt", "text/plain", nil)
		assert.Error(t, err)
	})
}

func TestIngestSync(t *testing.T) {
	t.Parallel()

	t.Run("同步摄取返回处理统计", func(t *testing.T) {
		t.Parallel()
		env := newDocEnv(t)
		doc, err := env.svc.Upload(context.Background(), 7, "t", "notes.txt", "text/plain", []byte("一些内容"))
		require.NoError(t, err)

		res, err := env.svc.Ingest(context.Background(), 7, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Processed)
		assert.Equal(t, 0, res.Skipped)
	})

	t.Run("摄取进行中返回冲突错误", func(t *testing.T) {
		t.Parallel()
		env := newDocEnv(t)
		doc, err := env.svc.Upload(context.Background(), 7, "t", "notes.txt", "text/plain", []byte("一些内容"))
		require.NoError(t, err)

		env.lock.locks[doc.ID] = true
		_, err = env.svc.Ingest(context.Background(), 7, doc.ID)
		assert.ErrorIs(t, err, ErrIngestConflict)
	})

	t.Run("他人的文档不可触发摄取", func(t *testing.T) {
		t.Parallel()
		env := newDocEnv(t)
		doc, err := env.svc.Upload(context.Background(), 8, "t", "notes.txt", "text/plain", []byte("一些内容"))
		require.NoError(t, err)

		_, err = env.svc.Ingest(context.Background(), 7, doc.ID)
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})
}

func TestDelete(t *testing.T) {
	t.Parallel()

	t.Run("删除级联清理分块、索引和存储对象", func(t *testing.T) {
		t.Parallel()
		env := newDocEnv(t)
		doc, err := env.svc.Upload(context.Background(), 7, "t", "notes.txt", "text/plain", []byte("一些内容"))
		require.NoError(t, err)
		_, err = env.svc.Ingest(context.Background(), 7, doc.ID)
		require.NoError(t, err)

		require.NoError(t, env.svc.Delete(context.Background(), 7, doc.ID))

		count, err := env.chunkRepo.CountByDocumentID(doc.ID)
		require.NoError(t, err)
		assert.Zero(t, count)
		assert.Empty(t, env.index.docs)
		assert.NotContains(t, env.store.objects, doc.ObjectKey)
		_, err = env.docRepo.FindByID(doc.ID)
		assert.Error(t, err)
	})

	t.Run("删除不存在的文档返回 ErrNotFound", func(t *testing.T) {
		t.Parallel()
		env := newDocEnv(t)
		err := env.svc.Delete(context.Background(), 7, 42)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestGet(t *testing.T) {
	t.Parallel()

	t.Run("返回文档与分块数", func(t *testing.T) {
		t.Parallel()
		env := newDocEnv(t)
		doc, err := env.svc.Upload(context.Background(), 7, "t", "notes.txt", "text/plain", []byte("一些内容"))
		require.NoError(t, err)
		_, err = env.svc.Ingest(context.Background(), 7, doc.ID)
		require.NoError(t, err)

		got, count, err := env.svc.Get(7, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, doc.ID, got.ID)
		assert.Equal(t, int64(1), count)
	})

	t.Run("他人的文档不可见", func(t *testing.T) {
		t.Parallel()
		env := newDocEnv(t)
		doc, err := env.svc.Upload(context.Background(), 8, "t", "notes.txt", "text/plain", []byte("一些内容"))
		require.NoError(t, err)

		_, _, err = env.svc.Get(7, doc.ID)
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})
}
