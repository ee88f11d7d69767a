package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"todo-assistant/internal/model"
)

// ConversationRepository stores conversations and their messages.
type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) Create(ctx context.Context, conversation *model.Conversation) error {
	return translate("create conversation", r.db.WithContext(ctx).Create(conversation).Error)
}

func (r *ConversationRepository) FindByID(ctx context.Context, userID, conversationID uuid.UUID) (*model.Conversation, error) {
	var conversation model.Conversation
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, conversationID).
		First(&conversation).Error; err != nil {
		return nil, translate("find conversation", err)
	}
	return &conversation, nil
}

func (r *ConversationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Conversation, error) {
	var conversations []model.Conversation
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("updated_at DESC").Find(&conversations).Error; err != nil {
		return nil, translate("list conversations", err)
	}
	return conversations, nil
}

// AppendMessage stores msg and bumps the conversation's updated_at in one transaction.
func (r *ConversationRepository) AppendMessage(ctx context.Context, conversation *model.Conversation, msg *model.Message) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(conversation).UpdateColumn("updated_at", msg.Timestamp).Error
	})
	return translate("append message", err)
}

// Messages returns a conversation's messages oldest first. Equal timestamps fall back to id order.
func (r *ConversationRepository) Messages(ctx context.Context, conversationID uuid.UUID) ([]model.Message, error) {
	var messages []model.Message
	if err := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID).
		Order("timestamp ASC").Order("id ASC").Find(&messages).Error; err != nil {
		return nil, translate("list messages", err)
	}
	return messages, nil
}

