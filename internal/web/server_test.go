package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"todo-assistant/internal/apperr"
	"todo-assistant/internal/assistant"
	"todo-assistant/internal/llm"
	"todo-assistant/internal/repository"
	"todo-assistant/internal/service"
	"todo-assistant/internal/testsupport"
	"todo-assistant/internal/web"
)

type stubProvider struct {
	reply *llm.Completion
	err   error
}

func (p *stubProvider) Complete(context.Context, llm.Request) (*llm.Completion, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.reply, nil
}

type testServer struct {
	*httptest.Server
	provider *stubProvider
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testsupport.NewDB(t)
	taskRepo := repository.NewTaskRepository(db)
	tasks := service.NewTaskService(taskRepo, service.NewRecurrenceEngine(taskRepo))
	conversations := service.NewConversationService(repository.NewConversationRepository(db))
	auth := service.NewAuthService(repository.NewAccountRepository(db), service.AuthConfig{SecretKey: "test", BcryptCost: bcrypt.MinCost})
	provider := &stubProvider{reply: &llm.Completion{Text: "Hi!"}}
	chat := assistant.NewOrchestrator(conversations, assistant.NewDispatcher(tasks), provider)

	srv := httptest.NewServer(web.NewServer(auth, tasks, conversations, chat, []string{"http://localhost:3000"}).Handler())
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, provider: provider}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out
}

func (s *testServer) login(t *testing.T, email string) string {
	t.Helper()
	creds := map[string]string{"email": email, "password": "password123"}
	if status, body := s.do(t, http.MethodPost, "/api/auth/register", "", creds); status != http.StatusCreated {
		t.Fatalf("register: %d %s", status, body)
	}
	status, body := s.do(t, http.MethodPost, "/api/auth/login", "", creds)
	if status != http.StatusOK {
		t.Fatalf("login: %d %s", status, body)
	}
	var out struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	mustDecode(t, body, &out)
	if out.TokenType != "bearer" || out.AccessToken == "" {
		t.Fatalf("unexpected login response %s", body)
	}
	return out.AccessToken
}

func mustDecode(t *testing.T, body []byte, dst any) {
	t.Helper()
	if err := json.Unmarshal(body, dst); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
}

type todoJSON struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Completed    bool    `json:"completed"`
	DueDate      *string `json:"due_date"`
	DueTime      *string `json:"due_time"`
	Priority     string  `json:"priority"`
	ParentTodoID *string `json:"parent_todo_id"`
}

func TestHealthAndRoot(t *testing.T) {
	srv := newTestServer(t)
	if status, body := srv.do(t, http.MethodGet, "/health", "", nil); status != http.StatusOK || !bytes.Contains(body, []byte("healthy")) {
		t.Fatalf("health: %d %s", status, body)
	}
	if status, _ := srv.do(t, http.MethodGet, "/", "", nil); status != http.StatusOK {
		t.Fatalf("root: %d", status)
	}
	if status, _ := srv.do(t, http.MethodGet, "/nope", "", nil); status != http.StatusNotFound {
		t.Fatalf("unknown path: %d", status)
	}
}

func TestAuthFlow(t *testing.T) {
	srv := newTestServer(t)
	srv.login(t, "ann@example.com")

	if status, _ := srv.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "ann@example.com", "password": "password123"}); status != http.StatusConflict {
		t.Errorf("duplicate register: %d", status)
	}
	if status, _ := srv.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "bo@example.com", "password": "short"}); status != http.StatusUnprocessableEntity {
		t.Errorf("short password: %d", status)
	}
	if status, _ := srv.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ann@example.com", "password": "wrong-password"}); status != http.StatusUnauthorized {
		t.Errorf("bad login: %d", status)
	}
	if status, _ := srv.do(t, http.MethodGet, "/api/todos", "", nil); status != http.StatusUnauthorized {
		t.Errorf("missing token: %d", status)
	}
	if status, _ := srv.do(t, http.MethodGet, "/api/todos", "not-a-token", nil); status != http.StatusUnauthorized {
		t.Errorf("bad token: %d", status)
	}
	if status, _ := srv.do(t, http.MethodPost, "/api/auth/logout", "", nil); status != http.StatusOK {
		t.Errorf("logout: %d", status)
	}
}

func TestTodoEndpoints(t *testing.T) {
	srv := newTestServer(t)
	token := srv.login(t, "ann@example.com")

	status, body := srv.do(t, http.MethodPost, "/api/todos", token, map[string]any{
		"title":           "Buy milk",
		"due_date":        "2025-01-01",
		"due_time":        "08:30:00",
		"recurrence_rule": "daily",
	})
	if status != http.StatusCreated {
		t.Fatalf("create: %d %s", status, body)
	}
	var created todoJSON
	mustDecode(t, body, &created)
	if created.Priority != "medium" || created.DueTime == nil || *created.DueTime != "08:30" {
		t.Fatalf("unexpected created todo %s", body)
	}

	if status, _ := srv.do(t, http.MethodPost, "/api/todos", token, map[string]any{"title": "   "}); status != http.StatusUnprocessableEntity {
		t.Errorf("blank title: %d", status)
	}
	if status, _ := srv.do(t, http.MethodPost, "/api/todos", token, map[string]any{"title": "x", "due_date": "tomorrow"}); status != http.StatusUnprocessableEntity {
		t.Errorf("bad date: %d", status)
	}

	status, body = srv.do(t, http.MethodPut, "/api/todos/"+created.ID, token, map[string]any{"priority": "high"})
	if status != http.StatusOK {
		t.Fatalf("update: %d %s", status, body)
	}

	status, body = srv.do(t, http.MethodPatch, "/api/todos/"+created.ID+"/complete", token, nil)
	if status != http.StatusOK {
		t.Fatalf("complete: %d %s", status, body)
	}
	var completed todoJSON
	mustDecode(t, body, &completed)
	if !completed.Completed || completed.Priority != "high" {
		t.Fatalf("unexpected completed todo %s", body)
	}

	status, body = srv.do(t, http.MethodGet, "/api/todos?status=pending", token, nil)
	if status != http.StatusOK {
		t.Fatalf("list pending: %d %s", status, body)
	}
	var pending []todoJSON
	mustDecode(t, body, &pending)
	if len(pending) != 1 || pending[0].ParentTodoID == nil || *pending[0].ParentTodoID != created.ID {
		t.Fatalf("expected successor of %s, got %s", created.ID, body)
	}
	if pending[0].DueDate == nil || (*pending[0].DueDate)[:10] != "2025-01-02" {
		t.Fatalf("unexpected successor due date %s", body)
	}

	status, body = srv.do(t, http.MethodGet, "/api/todos/reminders", token, nil)
	if status != http.StatusOK {
		t.Fatalf("reminders: %d %s", status, body)
	}
	var reminders []todoJSON
	mustDecode(t, body, &reminders)
	if len(reminders) != 1 || reminders[0].ID != pending[0].ID {
		t.Fatalf("unexpected reminders %s", body)
	}

	other := srv.login(t, "eve@example.com")
	if status, _ := srv.do(t, http.MethodGet, "/api/todos/"+created.ID, other, nil); status != http.StatusNotFound {
		t.Errorf("foreign todo: %d", status)
	}
	if status, _ := srv.do(t, http.MethodGet, "/api/todos/not-a-uuid", token, nil); status != http.StatusNotFound {
		t.Errorf("malformed id: %d", status)
	}

	if status, _ := srv.do(t, http.MethodDelete, "/api/todos/"+created.ID, token, nil); status != http.StatusOK {
		t.Errorf("delete: %d", status)
	}
	if status, _ := srv.do(t, http.MethodGet, "/api/todos/"+created.ID, token, nil); status != http.StatusNotFound {
		t.Errorf("deleted todo still visible: %d", status)
	}
}

func TestConversationEndpoints(t *testing.T) {
	srv := newTestServer(t)
	token := srv.login(t, "ann@example.com")

	status, body := srv.do(t, http.MethodPost, "/api/conversations", token, map[string]string{"title": "Groceries"})
	if status != http.StatusCreated {
		t.Fatalf("create: %d %s", status, body)
	}
	var conversation struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	mustDecode(t, body, &conversation)

	path := "/api/conversations/" + conversation.ID + "/messages"
	if status, body := srv.do(t, http.MethodPost, path, token, map[string]any{"role": "user", "content": "remember eggs"}); status != http.StatusCreated {
		t.Fatalf("append: %d %s", status, body)
	}
	if status, _ := srv.do(t, http.MethodPost, path, token, map[string]any{"role": "robot", "content": "beep"}); status != http.StatusUnprocessableEntity {
		t.Errorf("bad role: %d", status)
	}

	status, body = srv.do(t, http.MethodGet, "/api/conversations/"+conversation.ID, token, nil)
	if status != http.StatusOK {
		t.Fatalf("get: %d %s", status, body)
	}
	var full struct {
		Title    string `json:"title"`
		Messages []struct {
			Role     string `json:"role"`
			Content  string `json:"content"`
			Language string `json:"language"`
		} `json:"messages"`
	}
	mustDecode(t, body, &full)
	if full.Title != "Groceries" || len(full.Messages) != 1 || full.Messages[0].Language != "en" {
		t.Fatalf("unexpected conversation %s", body)
	}

	other := srv.login(t, "eve@example.com")
	if status, _ := srv.do(t, http.MethodGet, path, other, nil); status != http.StatusNotFound {
		t.Errorf("foreign transcript: %d", status)
	}
}

func TestChatEndpoint(t *testing.T) {
	srv := newTestServer(t)
	token := srv.login(t, "ann@example.com")

	status, body := srv.do(t, http.MethodPost, "/api/chat", token, map[string]any{"message": "hello"})
	if status != http.StatusOK {
		t.Fatalf("chat: %d %s", status, body)
	}
	var out struct {
		ConversationID string `json:"conversation_id"`
		Response       string `json:"response"`
		Timestamp      string `json:"timestamp"`
		Language       string `json:"language"`
	}
	mustDecode(t, body, &out)
	if out.ConversationID == "" || out.Response != "Hi!" || out.Language != "en" || out.Timestamp == "" {
		t.Fatalf("unexpected chat response %s", body)
	}

	srv.provider.err = fmt.Errorf("%w: timeout", apperr.ErrProviderUnavailable)
	status, body = srv.do(t, http.MethodPost, "/api/chat", token, map[string]any{"message": "again", "conversation_id": out.ConversationID})
	if status != http.StatusServiceUnavailable || !bytes.Contains(body, []byte("Error processing chat")) {
		t.Fatalf("provider failure: %d %s", status, body)
	}

	if status, _ := srv.do(t, http.MethodPost, "/api/chat", token, map[string]any{"message": "x", "conversation_id": "bogus"}); status != http.StatusNotFound {
		t.Errorf("bogus conversation: %d", status)
	}
	if status, _ := srv.do(t, http.MethodPost, "/api/chat", token, map[string]any{"message": "  "}); status != http.StatusUnprocessableEntity {
		t.Errorf("blank message: %d", status)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)
	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/todos", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}

	req, _ = http.NewRequest(http.MethodOptions, srv.URL+"/api/todos", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected origin allowed: %q", got)
	}
}
