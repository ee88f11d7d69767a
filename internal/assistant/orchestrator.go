package assistant

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"todo-assistant/internal/apperr"
	"todo-assistant/internal/llm"
	"todo-assistant/internal/model"
	"todo-assistant/internal/service"
)

// maxListedItems bounds how many tasks of a list result are narrated.
const maxListedItems = 5

const systemPromptTemplate = `You are a helpful todo management assistant. You can help users manage their tasks using the available functions.
Only use the available functions and respond in a helpful, friendly way.
The user's message is in %s. Please respond in the same language.`

// State is the phase of a chat turn.
type State int

const (
	StateIdle State = iota
	StateAwaitingCompletion
	StateDispatching
	StateReplied
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingCompletion:
		return "awaiting_completion"
	case StateDispatching:
		return "dispatching"
	case StateReplied:
		return "replied"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// TurnRequest is one user message. A nil ConversationID starts a new conversation.
type TurnRequest struct {
	OwnerID        uuid.UUID
	Message        string
	ConversationID *uuid.UUID
}

// TurnResult is the assistant's reply to a turn.
type TurnResult struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	Reply          string    `json:"response"`
	Timestamp      time.Time `json:"timestamp"`
	Language       string    `json:"language"`
}

// Orchestrator runs chat turns: it records the user message, asks the model,
// executes requested tools in order and records the reply.
type Orchestrator struct {
	conversations *service.ConversationService
	dispatcher    *Dispatcher
	provider      llm.Provider

	// OnState, when set, observes every state a turn enters.
	OnState func(conversationID uuid.UUID, state State)
}

// NewOrchestrator wires a turn runner. provider may be nil, in which case
// every turn fails with apperr.ErrProviderUnavailable.
func NewOrchestrator(conversations *service.ConversationService, dispatcher *Dispatcher, provider llm.Provider) *Orchestrator {
	return &Orchestrator{conversations: conversations, dispatcher: dispatcher, provider: provider}
}

// SystemPrompt is the instruction sent ahead of the history for a language tag.
func SystemPrompt(language string) string {
	return fmt.Sprintf(systemPromptTemplate, languageName(language))
}

// Turn processes one user message. Provider failures abort the turn without
// storing an assistant message; tool side effects that already ran are kept.
func (o *Orchestrator) Turn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return nil, apperr.Invalid("message is required")
	}
	if o.provider == nil {
		return nil, fmt.Errorf("%w: chat completion is not configured", apperr.ErrProviderUnavailable)
	}

	language := DetectLanguage(text)

	var conversation *model.Conversation
	var err error
	if req.ConversationID != nil {
		conversation, err = o.conversations.Get(ctx, req.OwnerID, *req.ConversationID)
	} else {
		conversation, err = o.conversations.Create(ctx, req.OwnerID, model.ChatConversationTitle)
	}
	if err != nil {
		return nil, err
	}
	o.enter(conversation.ID, StateIdle)

	if _, err := o.conversations.AppendMessage(ctx, req.OwnerID, conversation.ID, service.MessageInput{
		Role:     model.RoleUser,
		Content:  text,
		Language: language,
	}); err != nil {
		return nil, fmt.Errorf("store user message: %w", err)
	}

	transcript, err := o.conversations.Messages(ctx, req.OwnerID, conversation.ID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	o.enter(conversation.ID, StateAwaitingCompletion)
	completion, err := o.provider.Complete(ctx, llm.Request{
		SystemPrompt: SystemPrompt(language),
		History:      history(transcript),
		Tools:        Catalog,
	})
	if err != nil {
		log.Printf("[warn] chat turn conversation=%s: completion failed: %v", conversation.ID, err)
		return nil, fmt.Errorf("complete turn: %w", err)
	}

	reply := completion.Text
	var calls []map[string]any
	if len(completion.ToolCalls) > 0 {
		o.enter(conversation.ID, StateDispatching)
		var lines []string
		for _, call := range completion.ToolCalls {
			res, err := o.dispatcher.ExecuteNamed(ctx, req.OwnerID, call.Name, call.Arguments)
			if err != nil {
				log.Printf("[warn] tool %s failed: %v", call.Name, err)
				lines = append(lines, "Sorry, I couldn't complete that action: "+err.Error())
				calls = append(calls, map[string]any{"name": call.Name, "success": false})
				continue
			}
			lines = append(lines, narrate(res)...)
			calls = append(calls, map[string]any{"name": call.Name, "success": res.Success})
		}
		reply = strings.Join(lines, "\n")
	}

	input := service.MessageInput{Role: model.RoleAssistant, Content: reply, Language: language}
	if len(calls) > 0 {
		input.Metadata = map[string]any{"tool_calls": calls}
	}
	assistantMsg, err := o.conversations.AppendMessage(ctx, req.OwnerID, conversation.ID, input)
	if err != nil {
		return nil, fmt.Errorf("store assistant message: %w", err)
	}
	o.enter(conversation.ID, StateReplied)

	log.Printf("[info] chat turn conversation=%s language=%s tool_calls=%d", conversation.ID, language, len(completion.ToolCalls))
	return &TurnResult{
		ConversationID: conversation.ID,
		Reply:          reply,
		Timestamp:      assistantMsg.Timestamp,
		Language:       language,
	}, nil
}

func (o *Orchestrator) enter(conversationID uuid.UUID, state State) {
	if o.OnState != nil {
		o.OnState(conversationID, state)
	}
}

func history(transcript []model.Message) []llm.Message {
	out := make([]llm.Message, 0, len(transcript))
	for _, msg := range transcript {
		role := llm.RoleAssistant
		if msg.Role == model.RoleUser {
			role = llm.RoleUser
		}
		out = append(out, llm.Message{Role: role, Content: msg.Content})
	}
	return out
}

// narrate renders a tool result as reply lines.
func narrate(res Result) []string {
	if !res.Success {
		return []string{"Sorry, I couldn't complete that action: " + res.Message}
	}
	lines := []string{res.Message}
	tasks, ok := res.Result.([]model.Task)
	if !ok || len(tasks) == 0 {
		return lines
	}
	lines = append(lines, "Here are the details:")
	for i, task := range tasks {
		if i == maxListedItems {
			break
		}
		status := "○ Pending"
		if task.Completed {
			status = "✓ Completed"
		}
		lines = append(lines, fmt.Sprintf("- %s %s", status, task.Title))
	}
	return lines
}
