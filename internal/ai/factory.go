package ai

import (
	"GroupMeBot/internal/config"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
)

// New выбирает бэкенд по cfg.AIBackend.
func New(cfg *config.Config) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.AIBackend)) {
	case "", "anthropic", "claude":
		return NewAnthropicClient(cfg.AnthropicAPIKey), nil
	case "openai":
		// ключ берётся из OPENAI_API_KEY
		oClient := openai.NewClient()
		return NewTextClient(&oClient), nil
	case "stub":
		return NewStubClient(), nil
	default:
		return nil, fmt.Errorf("unknown ai backend %q", cfg.AIBackend)
	}
}
