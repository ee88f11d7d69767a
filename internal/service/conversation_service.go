package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"todo-assistant/internal/apperr"
	"todo-assistant/internal/model"
	"todo-assistant/internal/repository"
)

const defaultLanguage = "en"

// MessageInput represents data required to append a message.
type MessageInput struct {
	Role     model.MessageRole
	Content  string
	Language string
	Metadata map[string]any
}

// ConversationService manages conversations and their transcripts.
type ConversationService struct {
	repo *repository.ConversationRepository
	now  func() time.Time
}

func NewConversationService(repo *repository.ConversationRepository) *ConversationService {
	return &ConversationService{repo: repo, now: time.Now}
}

func (s *ConversationService) Create(ctx context.Context, ownerID uuid.UUID, title string) (*model.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = model.DefaultConversationTitle
	}
	if len(title) > 255 {
		return nil, apperr.Invalid("conversation title must not exceed 255 characters")
	}
	conversation := &model.Conversation{UserID: ownerID, Title: title, IsActive: true}
	if err := s.repo.Create(ctx, conversation); err != nil {
		return nil, err
	}
	return conversation, nil
}

func (s *ConversationService) List(ctx context.Context, ownerID uuid.UUID) ([]model.Conversation, error) {
	return s.repo.ListByUser(ctx, ownerID)
}

func (s *ConversationService) Get(ctx context.Context, ownerID, conversationID uuid.UUID) (*model.Conversation, error) {
	conversation, err := s.repo.FindByID(ctx, ownerID, conversationID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.NotFound("Conversation not found")
	}
	return conversation, err
}

// Messages returns the transcript of an owned conversation, oldest first.
func (s *ConversationService) Messages(ctx context.Context, ownerID, conversationID uuid.UUID) ([]model.Message, error) {
	if _, err := s.Get(ctx, ownerID, conversationID); err != nil {
		return nil, err
	}
	return s.repo.Messages(ctx, conversationID)
}

// AppendMessage stores a new message at the current time and bumps the conversation.
func (s *ConversationService) AppendMessage(ctx context.Context, ownerID, conversationID uuid.UUID, input MessageInput) (*model.Message, error) {
	switch input.Role {
	case model.RoleUser, model.RoleAssistant, model.RoleSystem:
	default:
		return nil, apperr.Invalid(fmt.Sprintf("invalid role %q", input.Role))
	}
	conversation, err := s.Get(ctx, ownerID, conversationID)
	if err != nil {
		return nil, err
	}

	language := strings.TrimSpace(input.Language)
	if language == "" {
		language = defaultLanguage
	}

	msg := &model.Message{
		ConversationID: conversation.ID,
		Role:           input.Role,
		Content:        input.Content,
		Timestamp:      s.now().UTC(),
		Language:       language,
	}
	if len(input.Metadata) > 0 {
		raw, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, apperr.Invalid(fmt.Sprintf("metadata is not valid JSON: %v", err))
		}
		msg.Metadata = datatypes.JSON(raw)
	}

	if err := s.repo.AppendMessage(ctx, conversation, msg); err != nil {
		return nil, err
	}
	return msg, nil
}
