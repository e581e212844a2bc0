package chef

import (
	"context"
	"fmt"

	"lamitna/internal/config"
	"lamitna/internal/llm"
)

// NewCollaborator picks the generation backend from the configuration: a remote
// function URL first, then an OpenAI-compatible key, then Gemini. Without any of
// them every request is answered by Unavailable. The returned close function
// releases provider clients and is never nil.
func NewCollaborator(ctx context.Context, cfg *config.Config) (Collaborator, func() error, error) {
	noop := func() error { return nil }

	switch {
	case cfg.AIFunctionURL != "":
		return NewHTTPCollaborator(cfg.AIFunctionURL), noop, nil
	case cfg.OpenAIAPIKey != "":
		client := llm.NewChatClient(cfg.OpenAIAPIKey, cfg.OpenAIURL, cfg.OpenAIModel)
		return NewLLMCollaborator(client), noop, nil
	case cfg.GeminiAPIKey != "":
		client, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create gemini client: %w", err)
		}
		return NewLLMCollaborator(client), client.Close, nil
	default:
		return Unavailable{}, noop, nil
	}
}
