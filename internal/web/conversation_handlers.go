package web

import (
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"

	"todo-assistant/internal/apperr"
	"todo-assistant/internal/assistant"
	"todo-assistant/internal/model"
	"todo-assistant/internal/service"
)

type createConversationRequest struct {
	Title string `json:"title"`
}

type createMessageRequest struct {
	Role     model.MessageRole `json:"role"`
	Content  string            `json:"content"`
	Language string            `json:"language"`
	Metadata map[string]any    `json:"metadata_json"`
}

type conversationWithMessages struct {
	*model.Conversation
	Messages []model.Message `json:"messages"`
}

type chatRequest struct {
	Message        string  `json:"message"`
	ConversationID *string `json:"conversation_id"`
}

func (s *Server) listConversationsHandler(w http.ResponseWriter, r *http.Request) {
	conversations, err := s.conversations.List(r.Context(), accountFrom(r.Context()).ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conversations)
}

func (s *Server) createConversationHandler(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}
	conversation, err := s.conversations.Create(r.Context(), accountFrom(r.Context()).ID, req.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, conversation)
}

func (s *Server) getConversationHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}
	owner := accountFrom(r.Context()).ID
	conversation, err := s.conversations.Get(r.Context(), owner, id)
	if err != nil {
		writeError(w, err)
		return
	}
	messages, err := s.conversations.Messages(r.Context(), owner, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conversationWithMessages{Conversation: conversation, Messages: messages})
}

func (s *Server) listMessagesHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}
	messages, err := s.conversations.Messages(r.Context(), accountFrom(r.Context()).ID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (s *Server) createMessageHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}
	var req createMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	msg, err := s.conversations.AppendMessage(r.Context(), accountFrom(r.Context()).ID, id, service.MessageInput{
		Role:     req.Role,
		Content:  req.Content,
		Language: req.Language,
		Metadata: req.Metadata,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	turn := assistant.TurnRequest{OwnerID: accountFrom(r.Context()).ID, Message: req.Message}
	if req.ConversationID != nil && *req.ConversationID != "" {
		id, err := uuid.Parse(*req.ConversationID)
		if err != nil {
			writeDetail(w, http.StatusNotFound, "Conversation not found")
			return
		}
		turn.ConversationID = &id
	}

	out, err := s.chat.Turn(r.Context(), turn)
	if err != nil {
		status := statusFor(err)
		switch {
		case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrInvalidArgument):
			writeDetail(w, status, err.Error())
		default:
			log.Printf("[warn] chat turn failed: %v", err)
			writeDetail(w, status, "Error processing chat")
		}
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func conversationID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Conversation not found")
		return uuid.Nil, false
	}
	return id, true
}
