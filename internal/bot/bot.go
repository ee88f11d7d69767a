package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"todo-assistant/internal/apperr"
	"todo-assistant/internal/assistant"
	"todo-assistant/internal/model"
	"todo-assistant/internal/repository"
	"todo-assistant/internal/service"
)

const (
	cbCompletePrefix = "complete:"
	cbDeletePrefix   = "delete:"
)

const (
	iconDefault   = "🟢"
	iconDue       = "⏳"
	iconOverdue   = "⚠️"
	iconRecurring = "♻️"
	maxListed     = 30
)

const helpText = `🤖 <b>Todo assistant</b>

Just write what you need, for example "remind me to buy milk tomorrow, every day" or "what is still pending?".

Commands:
/tasks - pending tasks with quick actions
/complete &lt;id or title&gt; - mark a task done
/delete &lt;id or title&gt; - delete a task
/reminders - upcoming and overdue tasks
/new - start a fresh conversation
/help - this message`

// sender is the part of the Telegram API the bot uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api       sender
	updates   *tgbotapi.BotAPI
	accounts  *repository.AccountRepository
	auth      *service.AuthService
	tasks     *service.TaskService
	reminders *service.ReminderService
	chat      *assistant.Orchestrator
	now       func() time.Time

	mu            sync.Mutex
	conversations map[int64]uuid.UUID
}

func New(token string, accounts *repository.AccountRepository, auth *service.AuthService, tasks *service.TaskService, reminders *service.ReminderService, chat *assistant.Orchestrator) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	b := newBot(api, accounts, auth, tasks, reminders, chat)
	b.updates = api
	return b, nil
}

func newBot(api sender, accounts *repository.AccountRepository, auth *service.AuthService, tasks *service.TaskService, reminders *service.ReminderService, chat *assistant.Orchestrator) *Bot {
	return &Bot{
		api:           api,
		accounts:      accounts,
		auth:          auth,
		tasks:         tasks,
		reminders:     reminders,
		chat:          chat,
		now:           time.Now,
		conversations: make(map[int64]uuid.UUID),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if b.updates == nil {
		return errors.New("bot has no update source")
	}
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.updates.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.updates.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.Printf("[warn] handle callback: %v", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Printf("[warn] handle message: %v", err)
			}
		}
	}

	return ctx.Err()
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	account, err := b.ensureAccount(ctx, msg.From)
	if err != nil {
		return err
	}

	if msg.IsCommand() {
		log.Printf("[info] command from %d: /%s %s", msg.From.ID, msg.Command(), msg.CommandArguments())
		return b.handleCommand(ctx, msg, account)
	}
	if strings.TrimSpace(msg.Text) == "" {
		return nil
	}
	return b.handleChat(ctx, msg, account)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, account *model.Account) error {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start":
		name := strings.TrimSpace(msg.From.FirstName)
		if name == "" {
			name = "there"
		}
		return b.sendHTML(chatID, fmt.Sprintf("👋 Hi, %s!\n\n%s", html.EscapeString(name), helpText))
	case "help":
		return b.sendHTML(chatID, helpText)
	case "tasks":
		return b.sendTaskList(ctx, chatID, account)
	case "complete":
		return b.completeTask(ctx, chatID, account, msg.CommandArguments())
	case "delete":
		return b.deleteTask(ctx, chatID, account, msg.CommandArguments())
	case "reminders":
		return b.sendReminders(ctx, chatID, account)
	case "new":
		b.forgetConversation(chatID)
		return b.sendHTML(chatID, "🆕 Started a new conversation.")
	default:
		return b.sendHTML(chatID, "Unknown command. Try /help.")
	}
}

func (b *Bot) handleChat(ctx context.Context, msg *tgbotapi.Message, account *model.Account) error {
	chatID := msg.Chat.ID
	req := assistant.TurnRequest{OwnerID: account.ID, Message: msg.Text}
	if id, ok := b.conversation(chatID); ok {
		req.ConversationID = &id
	}

	out, err := b.chat.Turn(ctx, req)
	if errors.Is(err, apperr.ErrNotFound) && req.ConversationID != nil {
		b.forgetConversation(chatID)
		req.ConversationID = nil
		out, err = b.chat.Turn(ctx, req)
	}
	if err != nil {
		log.Printf("[warn] chat turn for %d: %v", msg.From.ID, err)
		if errors.Is(err, apperr.ErrProviderUnavailable) {
			return b.sendPlain(chatID, "The assistant is not available right now. Please try again later.")
		}
		return b.sendPlain(chatID, "Sorry, something went wrong while processing your message.")
	}

	b.rememberConversation(chatID, out.ConversationID)
	reply := strings.TrimSpace(out.Reply)
	if reply == "" {
		reply = "👍"
	}
	return b.sendPlain(chatID, reply)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("[warn] callback ack: %v", err)
	}

	account, err := b.ensureAccount(ctx, cb.From)
	if err != nil {
		return err
	}

	data := cb.Data
	switch {
	case strings.HasPrefix(data, cbCompletePrefix):
		log.Printf("[info] callback complete user=%d task=%s", cb.From.ID, strings.TrimPrefix(data, cbCompletePrefix))
		taskID, err := parseTaskID(data, cbCompletePrefix)
		if err != nil {
			return nil
		}
		if err := b.completeTask(ctx, cb.Message.Chat.ID, account, taskID.String()); err != nil {
			return err
		}
		return b.sendTaskList(ctx, cb.Message.Chat.ID, account)
	case strings.HasPrefix(data, cbDeletePrefix):
		log.Printf("[info] callback delete user=%d task=%s", cb.From.ID, strings.TrimPrefix(data, cbDeletePrefix))
		taskID, err := parseTaskID(data, cbDeletePrefix)
		if err != nil {
			return nil
		}
		if err := b.deleteTask(ctx, cb.Message.Chat.ID, account, taskID.String()); err != nil {
			return err
		}
		return b.sendTaskList(ctx, cb.Message.Chat.ID, account)
	}
	return nil
}

func (b *Bot) completeTask(ctx context.Context, chatID int64, account *model.Account, ref string) error {
	if strings.TrimSpace(ref) == "" {
		return b.sendHTML(chatID, "Usage: /complete &lt;id or title&gt;")
	}
	task, successor, err := b.tasks.CompleteTask(ctx, account.ID, ref)
	if err != nil {
		return b.sendFailure(chatID, err)
	}

	info := fmt.Sprintf("✅ Task «%s» is done.", html.EscapeString(task.Title))
	if successor != nil {
		info += fmt.Sprintf("\n%s Next one: %s", iconRecurring, html.EscapeString(describeDue(*successor)))
	}
	log.Printf("[info] task completed id=%s user=%s recurring=%t", task.ID, account.ID, task.Recurring())
	return b.sendHTML(chatID, info)
}

func (b *Bot) deleteTask(ctx context.Context, chatID int64, account *model.Account, ref string) error {
	if strings.TrimSpace(ref) == "" {
		return b.sendHTML(chatID, "Usage: /delete &lt;id or title&gt;")
	}
	task, err := b.tasks.DeleteTask(ctx, account.ID, ref)
	if err != nil {
		return b.sendFailure(chatID, err)
	}
	log.Printf("[info] task deleted id=%s user=%s", task.ID, account.ID)
	return b.sendHTML(chatID, fmt.Sprintf("🗑 Task «%s» deleted.", html.EscapeString(task.Title)))
}

func (b *Bot) sendReminders(ctx context.Context, chatID int64, account *model.Account) error {
	text, err := b.reminders.DueSummary(ctx, account.ID, b.now())
	if err != nil {
		return err
	}
	if text == "" {
		text = "Nothing is due. 🎉"
	}
	return b.sendHTML(chatID, text)
}

// SendReminders pushes the due summary to every Telegram-linked account that has something due.
func (b *Bot) SendReminders(ctx context.Context) error {
	accounts, err := b.accounts.ListTelegramLinked(ctx)
	if err != nil {
		return err
	}
	now := b.now()
	for _, account := range accounts {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if account.TelegramID == nil {
			continue
		}
		text, err := b.reminders.DueSummary(ctx, account.ID, now)
		if err != nil {
			log.Printf("[warn] build reminders for %d: %v", *account.TelegramID, err)
			continue
		}
		if text == "" {
			continue
		}
		if err := b.sendHTML(*account.TelegramID, text); err != nil {
			log.Printf("[warn] send reminders to %d: %v", *account.TelegramID, err)
		}
	}
	return nil
}

func (b *Bot) sendTaskList(ctx context.Context, chatID int64, account *model.Account) error {
	tasks, err := b.tasks.ListTasks(ctx, account.ID, repository.StatusPending)
	if err != nil {
		return b.sendHTML(chatID, fmt.Sprintf("Could not load tasks: %s", html.EscapeString(err.Error())))
	}
	if len(tasks) == 0 {
		return b.sendHTML(chatID, "You have no pending tasks. Just tell me what to add.")
	}

	text, buttons := renderTaskList(tasks, b.now())
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err = b.api.Send(msg)
	return err
}

func renderTaskList(tasks []model.Task, now time.Time) (string, [][]tgbotapi.InlineKeyboardButton) {
	var builder strings.Builder
	builder.WriteString("📋 <b>Pending tasks</b>\n")
	builder.WriteString("Tap a button to complete or delete a task.\n\n")

	var buttons [][]tgbotapi.InlineKeyboardButton
	for i, task := range tasks {
		if i == maxListed {
			builder.WriteString(fmt.Sprintf("…and %d more\n", len(tasks)-maxListed))
			break
		}
		builder.WriteString(formatTask(task, now))
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ "+shortTitle(task.Title, 24), cbCompletePrefix+task.ID.String()),
			tgbotapi.NewInlineKeyboardButtonData("🗑", cbDeletePrefix+task.ID.String()),
		))
	}
	return strings.TrimSpace(builder.String()), buttons
}

func formatTask(task model.Task, now time.Time) string {
	icon := iconDefault
	if task.DueDate != nil || task.DueTime != nil {
		deadline := service.Deadline(task, now)
		switch {
		case now.After(deadline):
			icon = iconOverdue
		case deadline.Sub(now) <= 48*time.Hour:
			icon = iconDue
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s %s", icon, html.EscapeString(task.Title)))
	if task.Priority == model.PriorityHigh {
		sb.WriteString(" <b>(high)</b>")
	}
	if task.Recurring() {
		sb.WriteString(fmt.Sprintf(" %s %s", iconRecurring, task.RecurrenceRule))
	}
	if due := describeDue(task); due != "" {
		sb.WriteString(fmt.Sprintf("\n   ⏰ %s", html.EscapeString(due)))
	}
	sb.WriteByte('\n')
	return sb.String()
}

func describeDue(task model.Task) string {
	var parts []string
	if task.DueDate != nil {
		parts = append(parts, task.DueDate.Format("2006-01-02"))
	}
	if task.DueTime != nil {
		parts = append(parts, *task.DueTime)
	}
	if len(parts) == 0 {
		return "no due date"
	}
	return strings.Join(parts, " ")
}

func (b *Bot) ensureAccount(ctx context.Context, from *tgbotapi.User) (*model.Account, error) {
	return b.auth.LinkTelegram(ctx, from.ID, from.FirstName, from.UserName)
}

func (b *Bot) sendFailure(chatID int64, err error) error {
	if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrInvalidArgument) {
		return b.sendHTML(chatID, html.EscapeString(err.Error()))
	}
	log.Printf("[warn] bot action failed: %v", err)
	return b.sendHTML(chatID, "Something went wrong, please try again.")
}

func (b *Bot) sendHTML(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendPlain(chatID int64, text string) error {
	_, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (b *Bot) conversation(chatID int64) (uuid.UUID, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.conversations[chatID]
	return id, ok
}

func (b *Bot) rememberConversation(chatID int64, id uuid.UUID) {
	b.mu.Lock()
	b.conversations[chatID] = id
	b.mu.Unlock()
}

func (b *Bot) forgetConversation(chatID int64) {
	b.mu.Lock()
	delete(b.conversations, chatID)
	b.mu.Unlock()
}

func parseTaskID(data, prefix string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimPrefix(data, prefix))
}

func shortTitle(title string, maxLen int) string {
	clean := strings.Join(strings.Fields(title), " ")
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}
