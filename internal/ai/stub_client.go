package ai

import "context"

// StubClient заглушка, которая не делает реальных запросов и повторяет последнюю реплику пользователя.
type StubClient struct{}

func NewStubClient() *StubClient { return &StubClient{} }

func (c *StubClient) Complete(_ context.Context, req Request) (string, error) {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == RoleUser {
			return "request received: " + req.Messages[i].Content, nil
		}
	}
	return "request received", nil
}
