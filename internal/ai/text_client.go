package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/responses"
)

// TextClient отправляет текстовую историю в OpenAI Responses API.
type TextClient struct {
	client *openai.Client
}

func NewTextClient(client *openai.Client) *TextClient {
	return &TextClient{client: client}
}

func (c *TextClient) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := c.client.Responses.New(ctx, buildResponseParams(req))
	if err != nil {
		return "", fmt.Errorf("openai API call: %w", err)
	}

	out := strings.TrimSpace(resp.OutputText())
	if out == "" {
		return "", ErrEmptyReply
	}
	return out, nil
}

func buildResponseParams(req Request) responses.ResponseNewParams {
	items := make(responses.ResponseInputParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := responses.EasyInputMessageRoleUser
		if m.Role == RoleAssistant {
			role = responses.EasyInputMessageRoleAssistant
		}
		items = append(items, responses.ResponseInputItemParamOfMessage(m.Content, role))
	}

	params := responses.ResponseNewParams{
		Model: openai.ChatModel(req.Model),
		Input: responses.ResponseNewParamsInputUnion{OfInputItemList: items},
	}
	if req.System != "" {
		params.Instructions = openai.String(req.System)
	}
	if req.MaxTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(req.MaxTokens))
	}
	return params
}
