package relay

import (
	"GroupMeBot/internal/service/gate"
	"context"

	"go.uber.org/zap"
)

// Status — итог обработки события, возвращается источнику вебхука.
type Status string

const (
	StatusOK      Status = "ok"
	StatusIgnored Status = "ignored"
)

// Responder получает ответ модели для сообщения группы.
type Responder interface {
	Respond(ctx context.Context, groupID, senderName, text string) string
}

// Sender доставляет ответ обратно в чат.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// SenderFunc позволяет использовать функцию как Sender.
type SenderFunc func(ctx context.Context, text string) error

func (f SenderFunc) Send(ctx context.Context, text string) error { return f(ctx, text) }

// Relay связывает решение фильтра, агента и доставку ответа.
type Relay struct {
	agent  Responder
	logger *zap.SugaredLogger
}

func New(agent Responder, logger *zap.SugaredLogger) *Relay {
	return &Relay{agent: agent, logger: logger}
}

// Handle выполняет действие. Ошибки доставки логируются и не влияют на статус.
func (r *Relay) Handle(ctx context.Context, act gate.Action, out Sender) Status {
	if !act.Respond {
		r.logger.Infow("Ignoring message", "reason", string(act.Reason))
		return StatusIgnored
	}

	// отключение клиента вебхука не должно обрывать запрос к модели и отправку
	ctx = context.WithoutCancel(ctx)

	reply := r.agent.Respond(ctx, act.GroupID, act.SenderName, act.Text)
	if err := out.Send(ctx, reply); err != nil {
		r.logger.Errorw("Failed to deliver reply", "group", act.GroupID, "error", err)
	}
	return StatusOK
}
