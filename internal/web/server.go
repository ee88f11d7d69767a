// Package web exposes the task, conversation and chat operations as a JSON API.
package web

import (
	"net/http"

	"github.com/rs/cors"

	"todo-assistant/internal/assistant"
	"todo-assistant/internal/service"
)

type Server struct {
	auth          *service.AuthService
	tasks         *service.TaskService
	conversations *service.ConversationService
	chat          *assistant.Orchestrator
	origins       []string
}

func NewServer(auth *service.AuthService, tasks *service.TaskService, conversations *service.ConversationService, chat *assistant.Orchestrator, origins []string) *Server {
	return &Server{
		auth:          auth,
		tasks:         tasks,
		conversations: conversations,
		chat:          chat,
		origins:       origins,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.rootHandler)
	mux.HandleFunc("GET /health", s.healthHandler)

	mux.HandleFunc("POST /api/auth/register", s.registerHandler)
	mux.HandleFunc("POST /api/auth/login", s.loginHandler)
	mux.HandleFunc("POST /api/auth/logout", s.logoutHandler)

	mux.Handle("GET /api/todos", s.requireAuth(s.listTodosHandler))
	mux.Handle("POST /api/todos", s.requireAuth(s.createTodoHandler))
	mux.Handle("GET /api/todos/reminders", s.requireAuth(s.remindersHandler))
	mux.Handle("GET /api/todos/{id}", s.requireAuth(s.getTodoHandler))
	mux.Handle("PUT /api/todos/{id}", s.requireAuth(s.updateTodoHandler))
	mux.Handle("DELETE /api/todos/{id}", s.requireAuth(s.deleteTodoHandler))
	mux.Handle("PATCH /api/todos/{id}/complete", s.requireAuth(s.completeTodoHandler))

	mux.Handle("GET /api/conversations", s.requireAuth(s.listConversationsHandler))
	mux.Handle("POST /api/conversations", s.requireAuth(s.createConversationHandler))
	mux.Handle("GET /api/conversations/{id}", s.requireAuth(s.getConversationHandler))
	mux.Handle("GET /api/conversations/{id}/messages", s.requireAuth(s.listMessagesHandler))
	mux.Handle("POST /api/conversations/{id}/messages", s.requireAuth(s.createMessageHandler))

	mux.Handle("POST /api/chat", s.requireAuth(s.chatHandler))

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	var h http.Handler = mux
	h = bodySizeMiddleware(h)
	h = corsHandler.Handler(h)
	h = loggingMiddleware(h)
	h = recoveryMiddleware(h)
	return h
}

func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Todo Assistant API"})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
