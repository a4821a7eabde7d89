package workflow

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"google.golang.org/genai"

	"github.com/meterwatch-core/server/internal/monitor/model"
	logx "github.com/meterwatch-core/server/pkg/logger"
)

// ChatModelConfig holds the configuration for chat model creation.
type ChatModelConfig struct {
	APIKey    string
	BaseURL   string
	VisionCfg *model.VisionModelConfig
	AgentCfg  *model.AgentModelConfig
}

// ChatModels holds the vision model (classification + extraction) and the
// agent's reasoning model.
type ChatModels struct {
	Vision          *gemini.ChatModel
	Agent           *gemini.ChatModel
	VisionModelName string
	AgentModelName  string
}

// NewChatModels creates both chat models against a shared Gemini client.
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	visionModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.VisionCfg.Model,
		Temperature: &config.VisionCfg.Temperature,
		MaxTokens:   &config.VisionCfg.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating vision model")
		return nil, fmt.Errorf("error creating vision model: %w", err)
	}

	agentModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.AgentCfg.Model,
		Temperature: &config.AgentCfg.Temperature,
		MaxTokens:   &config.AgentCfg.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: true,
			ThinkingBudget:  genai.Ptr(int32(2000)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating agent model")
		return nil, fmt.Errorf("error creating agent model: %w", err)
	}

	return &ChatModels{
		Vision:          visionModel,
		Agent:           agentModel,
		VisionModelName: config.VisionCfg.Model,
		AgentModelName:  config.AgentCfg.Model,
	}, nil
}
