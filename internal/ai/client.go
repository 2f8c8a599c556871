package ai

import (
	"context"
	"errors"
)

// Роли реплик, понятные всем бэкендам.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrEmptyReply возвращается, когда бэкенд ответил без текста.
var ErrEmptyReply = errors.New("ai: empty reply")

// Message — реплика диалога, передаваемая модели.
type Message struct {
	Role    string
	Content string
}

// Request — всё, что нужно бэкенду для генерации ответа.
type Request struct {
	System    string    // системная инструкция
	Messages  []Message // история, старые первыми
	Model     string
	MaxTokens int
}

// Client интерфейс для взаимодействия с AI. Все реализации должны быть взаимозаменяемыми.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ClientFunc позволяет использовать функцию как Client.
type ClientFunc func(ctx context.Context, req Request) (string, error)

func (f ClientFunc) Complete(ctx context.Context, req Request) (string, error) { return f(ctx, req) }
