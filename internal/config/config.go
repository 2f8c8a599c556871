package config

import (
	"flag"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Значения-заглушки: пока ключ или id равны им, /health сообщает "not set".
const (
	PlaceholderAPIKey = "your_anthropic_api_key_here"
	PlaceholderBotID  = "your_groupme_bot_id_here"
)

type Config struct {
	DebugMode bool `env:"DEBUG_MODE"` // Режим дебага

	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"` // Ключ Anthropic API
	GroupMeBotID    string `env:"GROUPME_BOT_ID"`    // bot_id для исходящих сообщений GroupMe
	GroupMePostURL  string `env:"GROUPME_POST_URL"`  // Адрес Bot API GroupMe
	BotName         string `env:"BOT_NAME"`          // Имя персонажа, должно совпадать с именем бота в GroupMe

	BindAddr   string `env:"BIND_ADDR"`   // Адрес HTTP-сервера вебхуков
	MaxHistory int    `env:"MAX_HISTORY"` // Максимум реплик в истории одной группы

	// Бэкенд генерации
	AIBackend         string        `env:"AI_BACKEND"`         // anthropic|openai|stub
	AIModel           string        `env:"AI_MODEL"`           // Идентификатор модели
	MaxTokens         int           `env:"MAX_TOKENS"`         // Лимит токенов ответа
	CompletionTimeout time.Duration `env:"COMPLETION_TIMEOUT"` // Таймаут запроса к модели
	NotifyTimeout     time.Duration `env:"NOTIFY_TIMEOUT"`     // Таймаут отправки ответа в GroupMe

	Twitch TwitchConfig
}

// TwitchConfig параметры необязательного моста из чата Twitch. Пустые значения — мост выключен.
type TwitchConfig struct {
	Username   string `env:"TWITCH_USERNAME"`    // Логин бота в Twitch
	OAuthToken string `env:"TWITCH_OAUTH_TOKEN"` // OAuth токен (может быть без префикса oauth:)
	Channel    string `env:"TWITCH_CHANNEL"`     // Канал без #
}

// Defaults возвращает конфигурацию с предустановленными значениями по умолчанию.
// Эти значения перекрываются .env, переменными окружения и флагами CLI.
func Defaults() *Config {
	return &Config{
		AnthropicAPIKey:   PlaceholderAPIKey,
		GroupMeBotID:      PlaceholderBotID,
		GroupMePostURL:    "https://api.groupme.com/v3/bots/post",
		BotName:           "AI Assistant",
		BindAddr:          "0.0.0.0:8000",
		MaxHistory:        20,
		AIBackend:         "anthropic",
		AIModel:           "claude-sonnet-4-5-20250929",
		MaxTokens:         500,
		CompletionTimeout: 30 * time.Second,
		NotifyTimeout:     10 * time.Second,
	}
}

// NewConfig загружает конфигурацию приложения.
func NewConfig() *Config {
	_ = godotenv.Load()

	cfg := Defaults()
	_ = env.Parse(cfg)

	cfg.bindFlags(flag.CommandLine)
	flag.Parse()

	cfg.normalize()
	return cfg
}

func (c *Config) bindFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.DebugMode, "debug-mode", c.DebugMode, "включить режим дебага")
	fs.StringVar(&c.AnthropicAPIKey, "anthropic-api-key", c.AnthropicAPIKey, "API ключ Anthropic (перекрывает ENV)")
	fs.StringVar(&c.GroupMeBotID, "groupme-bot-id", c.GroupMeBotID, "bot_id GroupMe для отправки ответов")
	fs.StringVar(&c.GroupMePostURL, "groupme-post-url", c.GroupMePostURL, "адрес Bot API GroupMe")
	fs.StringVar(&c.BotName, "bot-name", c.BotName, "имя ассистента в чате")
	fs.StringVar(&c.BindAddr, "bind-addr", c.BindAddr, "адрес HTTP сервера (напр. 0.0.0.0:8000)")
	fs.IntVar(&c.MaxHistory, "max-history", c.MaxHistory, "максимум реплик в истории одной группы")
	fs.StringVar(&c.AIBackend, "ai-backend", c.AIBackend, "бэкенд генерации: anthropic|openai|stub")
	fs.StringVar(&c.AIModel, "ai-model", c.AIModel, "идентификатор модели")
	fs.IntVar(&c.MaxTokens, "max-tokens", c.MaxTokens, "лимит токенов ответа модели")
	fs.DurationVar(&c.CompletionTimeout, "completion-timeout", c.CompletionTimeout, "таймаут запроса к модели, напр. 30s")
	fs.DurationVar(&c.NotifyTimeout, "notify-timeout", c.NotifyTimeout, "таймаут отправки в GroupMe, напр. 10s")
	fs.StringVar(&c.Twitch.Username, "twitch-username", c.Twitch.Username, "логин Twitch для моста чата")
	fs.StringVar(&c.Twitch.OAuthToken, "twitch-oauth-token", c.Twitch.OAuthToken, "OAuth токен Twitch (может быть без префикса oauth:)")
	fs.StringVar(&c.Twitch.Channel, "twitch-channel", c.Twitch.Channel, "канал Twitch (без #)")
}

// normalize подставляет дефолты вместо невалидных значений.
func (c *Config) normalize() {
	def := Defaults()
	if c.MaxHistory <= 0 {
		c.MaxHistory = def.MaxHistory
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = def.MaxTokens
	}
	if c.CompletionTimeout <= 0 {
		c.CompletionTimeout = def.CompletionTimeout
	}
	if c.NotifyTimeout <= 0 {
		c.NotifyTimeout = def.NotifyTimeout
	}
	if c.BotName == "" {
		c.BotName = def.BotName
	}
}

// APIKeySet сообщает, задан ли реальный ключ Anthropic.
func (c *Config) APIKeySet() bool {
	return c.AnthropicAPIKey != "" && c.AnthropicAPIKey != PlaceholderAPIKey
}

// BotIDSet сообщает, задан ли реальный bot_id GroupMe.
func (c *Config) BotIDSet() bool {
	return c.GroupMeBotID != "" && c.GroupMeBotID != PlaceholderBotID
}
