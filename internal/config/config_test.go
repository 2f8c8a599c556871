package config

import (
	"flag"
	"testing"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, 20, cfg.MaxHistory)
	assert.Equal(t, 500, cfg.MaxTokens)
	assert.Equal(t, "AI Assistant", cfg.BotName)
	assert.Equal(t, 10*time.Second, cfg.NotifyTimeout)
	assert.False(t, cfg.APIKeySet())
	assert.False(t, cfg.BotIDSet())
}

func TestEnvOverridesDefaults(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("GROUPME_BOT_ID", "bot-42")
	t.Setenv("MAX_HISTORY", "7")
	t.Setenv("COMPLETION_TIMEOUT", "5s")
	t.Setenv("TWITCH_CHANNEL", "somechannel")

	cfg := Defaults()
	require.NoError(t, env.Parse(cfg))

	assert.True(t, cfg.APIKeySet())
	assert.True(t, cfg.BotIDSet())
	assert.Equal(t, 7, cfg.MaxHistory)
	assert.Equal(t, 5*time.Second, cfg.CompletionTimeout)
	assert.Equal(t, "somechannel", cfg.Twitch.Channel)
	assert.Equal(t, "AI Assistant", cfg.BotName, "unset env keeps default")
}

func TestFlagsOverrideEnv(t *testing.T) {
	cfg := Defaults()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.bindFlags(fs)

	require.NoError(t, fs.Parse([]string{"-bot-name", "Robo", "-max-history", "4", "-ai-backend", "stub"}))

	assert.Equal(t, "Robo", cfg.BotName)
	assert.Equal(t, 4, cfg.MaxHistory)
	assert.Equal(t, "stub", cfg.AIBackend)
}

func TestNormalize(t *testing.T) {
	cfg := &Config{MaxHistory: -1, MaxTokens: 0}
	cfg.normalize()

	assert.Equal(t, 20, cfg.MaxHistory)
	assert.Equal(t, 500, cfg.MaxTokens)
	assert.Equal(t, 30*time.Second, cfg.CompletionTimeout)
	assert.Equal(t, 10*time.Second, cfg.NotifyTimeout)
	assert.Equal(t, "AI Assistant", cfg.BotName)
}

func TestPlaceholderDetection(t *testing.T) {
	cfg := Defaults()
	cfg.AnthropicAPIKey = ""
	assert.False(t, cfg.APIKeySet(), "empty key is not set")

	cfg.GroupMeBotID = PlaceholderBotID
	assert.False(t, cfg.BotIDSet())
}
