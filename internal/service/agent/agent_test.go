package agent

import (
	"GroupMeBot/internal/ai"
	"GroupMeBot/internal/service/history"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingClient запоминает запросы и отвечает через reply.
type recordingClient struct {
	mu    sync.Mutex
	reqs  []ai.Request
	reply func(req ai.Request) (string, error)
}

func (c *recordingClient) Complete(ctx context.Context, req ai.Request) (string, error) {
	c.mu.Lock()
	c.reqs = append(c.reqs, req)
	c.mu.Unlock()
	return c.reply(req)
}

func (c *recordingClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.reqs)
}

func newAgent(store *history.Store, client ai.Client) *Agent {
	return New(store, client, Options{BotName: "Robo", Model: "test-model"}, zap.NewNop().Sugar())
}

func TestRespond_Success(t *testing.T) {
	store := history.New(20)
	client := &recordingClient{reply: func(req ai.Request) (string, error) {
		// перед вызовом модели история уже содержит реплику пользователя
		return "Hi Alex!", nil
	}}
	a := newAgent(store, client)

	got := a.Respond(context.Background(), "g1", "Alex", "Hello!")

	assert.Equal(t, "Hi Alex!", got)
	require.Equal(t, 1, client.calls())
	req := client.reqs[0]
	assert.Equal(t, []ai.Message{{Role: ai.RoleUser, Content: "Alex: Hello!"}}, req.Messages)
	assert.Equal(t, "test-model", req.Model)
	assert.Equal(t, 500, req.MaxTokens)
	assert.Contains(t, req.System, "You are Robo")
	assert.Contains(t, req.System, "under 300 characters")
	assert.Contains(t, req.System, "'Name: message'")

	assert.Equal(t, []history.Turn{
		{Role: history.RoleUser, Content: "Alex: Hello!"},
		{Role: history.RoleAssistant, Content: "Hi Alex!"},
	}, store.Snapshot("g1"))
}

func TestRespond_BackendFailureKeepsOnlyUserTurn(t *testing.T) {
	store := history.New(20)
	store.Append("g1", history.Turn{Role: history.RoleUser, Content: "A: earlier"})
	store.Append("g1", history.Turn{Role: history.RoleAssistant, Content: "earlier reply"})
	client := &recordingClient{reply: func(ai.Request) (string, error) { return "", errors.New("503") }}
	a := newAgent(store, client)

	got := a.Respond(context.Background(), "g1", "Alex", "Hello!")

	assert.Equal(t, FallbackReply, got)
	assert.Equal(t, []history.Turn{
		{Role: history.RoleUser, Content: "A: earlier"},
		{Role: history.RoleAssistant, Content: "earlier reply"},
		{Role: history.RoleUser, Content: "Alex: Hello!"},
	}, store.Snapshot("g1"))
}

func TestRespond_TimeoutReturnsFallback(t *testing.T) {
	store := history.New(20)
	client := ai.ClientFunc(func(ctx context.Context, _ ai.Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	a := New(store, client, Options{BotName: "Robo", Timeout: 20 * time.Millisecond}, zap.NewNop().Sugar())

	got := a.Respond(context.Background(), "g1", "Alex", "slow?")

	assert.Equal(t, FallbackReply, got)
	assert.Equal(t, 1, store.Len("g1"))
}

func TestRespond_HistoryWindow(t *testing.T) {
	store := history.New(20)
	n := 0
	client := &recordingClient{reply: func(ai.Request) (string, error) {
		n++
		return fmt.Sprintf("reply %d", n), nil
	}}
	a := newAgent(store, client)

	for i := 1; i <= 25; i++ {
		a.Respond(context.Background(), "g2", "User", fmt.Sprintf("message %d", i))
	}

	snap := store.Snapshot("g2")
	require.Len(t, snap, 20)
	// 25 пар = 50 реплик, остаются последние 20: сообщения 16..25 с ответами
	assert.Equal(t, history.Turn{Role: history.RoleUser, Content: "User: message 16"}, snap[0])
	assert.Equal(t, history.Turn{Role: history.RoleAssistant, Content: "reply 25"}, snap[19])

	for _, req := range client.reqs {
		assert.LessOrEqual(t, len(req.Messages), 20)
	}
}

func TestRespond_HistoryWindowWithFailingBackend(t *testing.T) {
	store := history.New(20)
	client := &recordingClient{reply: func(ai.Request) (string, error) { return "", errors.New("down") }}
	a := newAgent(store, client)

	for i := 1; i <= 25; i++ {
		a.Respond(context.Background(), "g2", "User", fmt.Sprintf("message %d", i))
	}

	snap := store.Snapshot("g2")
	require.Len(t, snap, 20)
	assert.Equal(t, "User: message 6", snap[0].Content)
}

func TestRespond_ConcurrentSameGroupKeepsPairsTogether(t *testing.T) {
	store := history.New(100)
	client := ai.ClientFunc(func(_ context.Context, req ai.Request) (string, error) {
		time.Sleep(time.Millisecond)
		last := req.Messages[len(req.Messages)-1]
		return "re " + last.Content, nil
	})
	a := newAgent(store, client)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a.Respond(context.Background(), "g", "U", fmt.Sprintf("%d", i))
		}(i)
	}
	wg.Wait()

	snap := store.Snapshot("g")
	require.Len(t, snap, 40)
	for i := 0; i < len(snap); i += 2 {
		assert.Equal(t, history.RoleUser, snap[i].Role)
		assert.Equal(t, history.RoleAssistant, snap[i+1].Role)
		assert.Equal(t, "re "+snap[i].Content, snap[i+1].Content)
	}
}

func TestNew_Defaults(t *testing.T) {
	a := New(history.New(1), ai.NewStubClient(), Options{}, zap.NewNop().Sugar())
	assert.Equal(t, 500, a.opts.MaxTokens)
	assert.Equal(t, 30*time.Second, a.opts.Timeout)
}
