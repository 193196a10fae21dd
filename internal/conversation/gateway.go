package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Gateway kinds accepted by NewGateway.
const (
	GatewayOpenAI  = "openai"
	GatewayGemini  = "gemini"
	GatewayBedrock = "bedrock"
)

// GatewayConfig carries the credentials every gateway kind may need.
type GatewayConfig struct {
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	GeminiAPIKey string
	GeminiModel  string

	BedrockAPI     BedrockConverseAPI
	BedrockModelID string
}

// NewGateway builds the provider client for kind. An empty kind returns a
// nil client, which the pipeline treats as an unconfigured stage.
func NewGateway(ctx context.Context, kind string, cfg GatewayConfig) (LLMClient, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "":
		return nil, nil
	case GatewayOpenAI:
		client, err := NewOpenAILLMClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
		if err != nil {
			return nil, err
		}
		return client, nil
	case GatewayGemini:
		client, err := NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		return client, nil
	case GatewayBedrock:
		if cfg.BedrockAPI == nil {
			return nil, errors.New("conversation: bedrock gateway requires an aws client")
		}
		if strings.TrimSpace(cfg.BedrockModelID) == "" {
			return nil, errors.New("conversation: bedrock gateway requires a model id")
		}
		return NewBedrockLLMClient(cfg.BedrockAPI, cfg.BedrockModelID), nil
	default:
		return nil, fmt.Errorf("conversation: unknown gateway kind %q", kind)
	}
}
