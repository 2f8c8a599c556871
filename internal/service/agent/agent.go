package agent

import (
	"GroupMeBot/internal/ai"
	"GroupMeBot/internal/service/history"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// FallbackReply отправляется в чат, если модель не ответила.
const FallbackReply = "Sorry, I ran into an issue processing that. Try again!"

const (
	defaultMaxTokens = 500
	defaultTimeout   = 30 * time.Second
)

// Options параметры агента.
type Options struct {
	BotName   string        // имя персонажа в системной инструкции
	Model     string        // идентификатор модели
	MaxTokens int           // лимит токенов ответа
	Timeout   time.Duration // таймаут одного запроса к модели
}

// Agent ведёт историю группы и получает ответ модели.
type Agent struct {
	store  *history.Store
	client ai.Client
	opts   Options
	logger *zap.SugaredLogger
}

func New(store *history.Store, client ai.Client, opts Options, logger *zap.SugaredLogger) *Agent {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Agent{store: store, client: client, opts: opts, logger: logger}
}

// SystemPrompt возвращает системную инструкцию персонажа.
func (a *Agent) SystemPrompt() string {
	return fmt.Sprintf("You are %s, a helpful and friendly AI assistant in a GroupMe group chat. "+
		"Keep responses concise (under 300 characters when possible) since this is a chat app. "+
		"Be conversational, helpful, and engaging. "+
		"Messages will be prefixed with the sender's name like 'Name: message'.", a.opts.BotName)
}

// Respond добавляет реплику пользователя в историю группы, запрашивает модель и возвращает ответ.
// Ошибки модели наружу не выходят: в историю ничего не добавляется, возвращается FallbackReply.
func (a *Agent) Respond(ctx context.Context, groupID, senderName, text string) string {
	// вся последовательность для одной группы выполняется под её замком
	unlock := a.store.Lock(groupID)
	defer unlock()

	a.store.Append(groupID, history.Turn{Role: history.RoleUser, Content: senderName + ": " + text})
	turns := a.store.Snapshot(groupID)

	callCtx, cancel := context.WithTimeoutCause(ctx, a.opts.Timeout, errors.New("completion timeout"))
	defer cancel()

	start := time.Now()
	reply, err := a.client.Complete(callCtx, ai.Request{
		System:    a.SystemPrompt(),
		Messages:  toMessages(turns),
		Model:     a.opts.Model,
		MaxTokens: a.opts.MaxTokens,
	})
	if err != nil {
		if cause := context.Cause(callCtx); cause != nil {
			err = fmt.Errorf("%w (%v)", err, cause)
		}
		a.logger.Errorw("Completion failed", "group", groupID, "duration", time.Since(start).String(), "error", err)
		return FallbackReply
	}

	a.store.Append(groupID, history.Turn{Role: history.RoleAssistant, Content: reply})
	a.logger.Debugw("Completion received", "group", groupID, "duration", time.Since(start).String(), "history", len(turns)+1)
	return reply
}

func toMessages(turns []history.Turn) []ai.Message {
	out := make([]ai.Message, 0, len(turns))
	for _, t := range turns {
		out = append(out, ai.Message{Role: string(t.Role), Content: t.Content})
	}
	return out
}
