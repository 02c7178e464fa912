// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"docqa-go/internal/model"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// historyCacheTTL 是 Redis 历史缓存的过期时间。
const historyCacheTTL = 7 * 24 * time.Hour

// ConversationRepository 定义了会话与消息的持久化操作。
// 消息真实存储在 MySQL，最近历史通过 Redis 做读穿缓存。
type ConversationRepository interface {
	Create(conv *model.Conversation) error
	FindByID(id uint) (*model.Conversation, error)
	FindByUserID(userID uint) ([]model.Conversation, error)
	Update(conv *model.Conversation) error

	AppendMessage(ctx context.Context, msg *model.Message) error
	// RecentHistory 返回会话最近 limit 条消息，按时间升序。
	RecentHistory(ctx context.Context, conversationID uint, limit int) ([]model.ChatMessage, error)
	FindMessages(conversationID uint) ([]model.Message, error)
}

type conversationRepository struct {
	db          *gorm.DB
	redisClient *redis.Client
}

// NewConversationRepository 创建一个新的 ConversationRepository 实例。
func NewConversationRepository(db *gorm.DB, redisClient *redis.Client) ConversationRepository {
	return &conversationRepository{db: db, redisClient: redisClient}
}

func (r *conversationRepository) historyKey(conversationID uint) string {
	return fmt.Sprintf("conversation:%d:history", conversationID)
}

// Create 创建一个新的会话。
func (r *conversationRepository) Create(conv *model.Conversation) error {
	return r.db.Create(conv).Error
}

// FindByID 根据 ID 查找会话。
func (r *conversationRepository) FindByID(id uint) (*model.Conversation, error) {
	var conv model.Conversation
	if err := r.db.First(&conv, id).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindByUserID 查找用户的全部会话，最近更新的在前。
func (r *conversationRepository) FindByUserID(userID uint) ([]model.Conversation, error) {
	var convs []model.Conversation
	err := r.db.Where("user_id = ?", userID).Order("updated_at desc").Find(&convs).Error
	return convs, err
}

// Update 更新会话（附加/解绑 Agent、切换 RAG 开关等）。
func (r *conversationRepository) Update(conv *model.Conversation) error {
	return r.db.Save(conv).Error
}

// AppendMessage 追加一条消息并使历史缓存失效。
func (r *conversationRepository) AppendMessage(ctx context.Context, msg *model.Message) error {
	if err := r.db.Create(msg).Error; err != nil {
		return err
	}
	// 缓存失效后由下一次读取回填，避免缓存与库不一致
	_ = r.redisClient.Del(ctx, r.historyKey(msg.ConversationID)).Err()
	return nil
}

// RecentHistory 返回会话最近 limit 条消息（时间升序），优先走 Redis 缓存。
func (r *conversationRepository) RecentHistory(ctx context.Context, conversationID uint, limit int) ([]model.ChatMessage, error) {
	key := r.historyKey(conversationID)
	jsonData, err := r.redisClient.Get(ctx, key).Result()
	if err == nil {
		var cached []model.ChatMessage
		if err := json.Unmarshal([]byte(jsonData), &cached); err == nil {
			if len(cached) > limit {
				cached = cached[len(cached)-limit:]
			}
			return cached, nil
		}
	} else if err != redis.Nil {
		// Redis 故障时降级为直接读库
		return r.historyFromDB(ctx, conversationID, limit)
	}

	history, err := r.historyFromDB(ctx, conversationID, limit)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(history); err == nil {
		_ = r.redisClient.Set(ctx, key, data, historyCacheTTL).Err()
	}
	return history, nil
}

func (r *conversationRepository) historyFromDB(_ context.Context, conversationID uint, limit int) ([]model.ChatMessage, error) {
	var msgs []model.Message
	err := r.db.Where("conversation_id = ?", conversationID).
		Order("created_at desc").Limit(limit).Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	// 倒序取最近 limit 条，再反转回时间升序
	history := make([]model.ChatMessage, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		history = append(history, model.ChatMessage{Role: msgs[i].Role, Content: msgs[i].Content})
	}
	return history, nil
}

// FindMessages 返回会话的全部消息，按创建时间升序。
func (r *conversationRepository) FindMessages(conversationID uint) ([]model.Message, error) {
	var msgs []model.Message
	err := r.db.Where("conversation_id = ?", conversationID).
		Order("created_at asc").Find(&msgs).Error
	return msgs, err
}
