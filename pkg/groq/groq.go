package groq

import (
	"context"
	"fmt"
	"os"

	"SurveillanceGolang/pkg/utils"

	"github.com/sashabaranov/go-openai"
)

// IGroq wraps the external reasoning service. Groq exposes an
// OpenAI-compatible chat completions API, so the client is the go-openai one
// pointed at the Groq base URL.
type IGroq interface {
	ChatCompletion(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}

type groqService struct {
	client *openai.Client
	apiKey string
	model  string
}

func New() IGroq {
	apiKey := os.Getenv("GROQ_API_KEY")
	baseURL := utils.Env("GROQ_BASE_URL", "https://api.groq.com/openai/v1")
	model := utils.Env("GROQ_MODEL", "mixtral-8x7b-32768")

	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL

	return &groqService{
		client: openai.NewClientWithConfig(config),
		apiKey: apiKey,
		model:  model,
	}
}

func (g *groqService) ChatCompletion(ctx context.Context, systemPrompt string, userPrompt string) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("GROQ_API_KEY environment variable not set")
	}

	resp, err := g.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: g.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: userPrompt,
				},
			},
			Temperature: 0.1,
			MaxTokens:   1000,
		},
	)

	if err != nil {
		return "", fmt.Errorf("groq API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from groq")
	}

	return resp.Choices[0].Message.Content, nil
}
