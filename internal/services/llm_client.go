package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/huangang/basewatch/internal/config"
	"github.com/huangang/basewatch/internal/models"
	"github.com/huangang/basewatch/pkg/logger"
	"github.com/ollama/ollama/api"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// LLMCaller sends one prompt to one configured provider.
type LLMCaller interface {
	Call(ctx context.Context, cfg *models.LLMConfig, prompt string) (string, error)
}

// ProviderCaller dispatches on LLMConfig.Provider using each vendor's SDK.
type ProviderCaller struct{}

func NewProviderCaller() *ProviderCaller {
	return &ProviderCaller{}
}

func (p *ProviderCaller) Call(ctx context.Context, cfg *models.LLMConfig, prompt string) (string, error) {
	logger.Debug().Str("provider", cfg.Provider).Str("model", cfg.Model).Int("prompt_chars", len(prompt)).Msg("[LLM] calling provider")

	switch cfg.Provider {
	case "anthropic", "":
		return p.callAnthropic(ctx, cfg, prompt)
	case "ollama":
		return p.callOllama(ctx, cfg, prompt)
	case "gemini":
		return p.callGemini(ctx, cfg, prompt)
	case "azure":
		return p.callAzure(ctx, cfg, prompt)
	default:
		// openai and OpenAI-compatible endpoints
		return p.callOpenAI(ctx, cfg, prompt)
	}
}

func (p *ProviderCaller) callAnthropic(ctx context.Context, cfg *models.LLMConfig, prompt string) (string, error) {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	maxTokens := int64(cfg.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 1024
	}

	resp, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(cfg.Model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	return content.String(), nil
}

func (p *ProviderCaller) callOpenAI(ctx context.Context, cfg *models.LLMConfig, prompt string) (string, error) {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return chatCompletion(ctx, openai.NewClientWithConfig(clientConfig), cfg, prompt, "openai")
}

// callAzure uses Model as the deployment name.
func (p *ProviderCaller) callAzure(ctx context.Context, cfg *models.LLMConfig, prompt string) (string, error) {
	clientConfig := openai.DefaultAzureConfig(cfg.APIKey, cfg.BaseURL)
	return chatCompletion(ctx, openai.NewClientWithConfig(clientConfig), cfg, prompt, "azure")
}

func chatCompletion(ctx context.Context, client *openai.Client, cfg *models.LLMConfig, prompt, label string) (string, error) {
	temperature := float32(0.3)
	if cfg.Temperature > 0 {
		temperature = float32(cfg.Temperature)
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   cfg.MaxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", label, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: empty response", label)
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *ProviderCaller) callOllama(ctx context.Context, cfg *models.LLMConfig, prompt string) (string, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid ollama base url: %w", err)
	}
	client := api.NewClient(u, http.DefaultClient)

	var content strings.Builder
	err = client.Chat(ctx, &api.ChatRequest{
		Model: cfg.Model,
		Messages: []api.Message{
			{Role: "user", Content: prompt},
		},
		Options: map[string]interface{}{
			"temperature": cfg.Temperature,
		},
	}, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}
	return content.String(), nil
}

func (p *ProviderCaller) callGemini(ctx context.Context, cfg *models.LLMConfig, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return "", fmt.Errorf("gemini client: %w", err)
	}
	resp, err := client.Models.GenerateContent(ctx, cfg.Model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	return resp.Text(), nil
}

// bootstrapLLMConfig turns the YAML assistant section into a config row that is
// never persisted.
func bootstrapLLMConfig(cfg config.AssistantConfig) (models.LLMConfig, bool) {
	if !cfg.Configured() {
		return models.LLMConfig{}, false
	}
	return models.LLMConfig{
		Name:        "bootstrap",
		Provider:    cfg.Provider,
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: 0.3,
		IsActive:    true,
	}, true
}
