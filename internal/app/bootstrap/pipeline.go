package bootstrap

import (
	"context"
	"fmt"

	"github.com/indarelin/backoffice/internal/config"
	"github.com/indarelin/backoffice/internal/conversation"
	"github.com/indarelin/backoffice/internal/customreplies"
	"github.com/indarelin/backoffice/internal/observability/metrics"
	"github.com/indarelin/backoffice/pkg/logging"
)

// BuildGateways creates the providerA and providerB clients. A gateway that
// cannot be built is logged and left nil so its stage always fails over.
func BuildGateways(ctx context.Context, cfg *config.Config, bedrock conversation.BedrockConverseAPI, logger *logging.Logger) (conversation.LLMClient, conversation.LLMClient) {
	if cfg == nil {
		return nil, nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	gw := conversation.GatewayConfig{
		OpenAIAPIKey:   cfg.OpenAIAPIKey,
		OpenAIModel:    cfg.OpenAIModel,
		OpenAIBaseURL:  cfg.OpenAIBaseURL,
		GeminiAPIKey:   cfg.GeminiAPIKey,
		GeminiModel:    cfg.GeminiModel,
		BedrockAPI:     bedrock,
		BedrockModelID: cfg.BedrockModelID,
	}

	build := func(stage, kind string) conversation.LLMClient {
		client, err := conversation.NewGateway(ctx, kind, gw)
		if err != nil {
			logger.Warn("provider gateway disabled", "stage", stage, "kind", kind, "error", err)
			return nil
		}
		if client == nil {
			logger.Warn("provider gateway not configured", "stage", stage)
			return nil
		}
		logger.Info("provider gateway ready", "stage", stage, "kind", kind)
		return client
	}
	return build(string(conversation.SourceProviderA), cfg.ProviderA), build(string(conversation.SourceProviderB), cfg.ProviderB)
}

// BuildPipeline wires the reply pipeline over the given stores and gateways.
func BuildPipeline(cfg *config.Config, stores Stores, providerA, providerB conversation.LLMClient, chatMetrics *metrics.ChatMetrics, logger *logging.Logger) (*conversation.Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if stores.Messages == nil {
		return nil, fmt.Errorf("bootstrap: message store is required")
	}
	var matcher conversation.CustomReplyMatcher
	if stores.CustomReplies != nil {
		matcher = customreplies.NewMatcher(stores.CustomReplies)
	}
	return conversation.NewPipeline(conversation.PipelineConfig{
		Matcher:         matcher,
		ProviderA:       providerA,
		ProviderB:       providerB,
		ProviderTimeout: cfg.ProviderTimeout,
		MaxTokens:       int32(cfg.ProviderMaxTokens),
		Temperature:     float32(cfg.ProviderTemperature),
		Log:             stores.Messages,
		Metrics:         chatMetrics,
		Logger:          logger,
	}), nil
}
