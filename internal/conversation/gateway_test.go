package conversation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGateway(t *testing.T) {
	ctx := context.Background()

	client, err := NewGateway(ctx, "", GatewayConfig{})
	require.NoError(t, err)
	assert.Nil(t, client)

	client, err = NewGateway(ctx, " OpenAI ", GatewayConfig{OpenAIAPIKey: "sk-test"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAILLMClient{}, client)

	client, err = NewGateway(ctx, GatewayBedrock, GatewayConfig{BedrockAPI: &fakeConverseAPI{}, BedrockModelID: "m"})
	require.NoError(t, err)
	assert.IsType(t, &BedrockLLMClient{}, client)

	_, err = NewGateway(ctx, GatewayOpenAI, GatewayConfig{})
	assert.Error(t, err)
	_, err = NewGateway(ctx, GatewayGemini, GatewayConfig{})
	assert.Error(t, err)
	_, err = NewGateway(ctx, GatewayBedrock, GatewayConfig{BedrockModelID: "m"})
	assert.Error(t, err)
	_, err = NewGateway(ctx, "cohere", GatewayConfig{})
	assert.ErrorContains(t, err, "unknown gateway kind")
}
