package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/shirokane-labs/cardex/internal/domain"
	"github.com/shirokane-labs/cardex/internal/domain/query"
)

const classifierSystemPrompt = `あなたはカードゲームQAシステムの検索ルーターです。ユーザーの質問を分析し、次のJSONだけを出力してください。
{"query_type": "greeting|semantic|filterable|hybrid", "confidence": 0.0-1.0, "summary": "...", "filter_keywords": [...], "search_keywords": [...], "reasoning": "..."}
filter_keywords には数値条件や集計条件のトークン(例: "一番高い", "HP")、search_keywords には意味検索向けの語を入れてください。挨拶のみの場合は両方とも空にしてください。`

// Classifier routes queries through a chat-completion model with structured
// JSON output. Failures wrap domain.ErrClassifierUnavailable so the caller
// can fall back to the heuristic path.
type Classifier struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// ClassifierConfig holds the reasoning provider settings.
type ClassifierConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// NewClassifier creates an OpenAI-compatible classification provider.
func NewClassifier(cfg *ClassifierConfig) *Classifier {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Classifier{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: cfg.Logger,
	}
}

// classificationPayload mirrors the JSON contract of the system prompt.
type classificationPayload struct {
	QueryType      string   `json:"query_type"`
	Confidence     float64  `json:"confidence"`
	Summary        string   `json:"summary"`
	FilterKeywords []string `json:"filter_keywords"`
	SearchKeywords []string `json:"search_keywords"`
	Reasoning      string   `json:"reasoning"`
}

// Classify implements the classify usecase's Provider contract.
func (c *Classifier) Classify(ctx context.Context, rawQuery string) (query.Classification, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: classifierSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: rawQuery},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0,
	})
	if err != nil {
		return query.Classification{}, fmt.Errorf("classification request: %w: %w",
			domain.ErrClassifierUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return query.Classification{}, fmt.Errorf("empty classification response: %w",
			domain.ErrClassifierUnavailable)
	}

	var payload classificationPayload
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		c.logger.Warn("Classifier returned malformed JSON",
			zap.String("content", content),
			zap.Error(err),
		)
		return query.Classification{}, fmt.Errorf("decode classification: %w: %w",
			domain.ErrClassifierUnavailable, err)
	}

	t, err := query.ParseType(strings.ToLower(payload.QueryType))
	if err != nil {
		return query.Classification{}, fmt.Errorf("%w: %w", domain.ErrClassifierUnavailable, err)
	}

	return query.NewClassification(
		t, payload.Confidence, payload.Summary,
		payload.FilterKeywords, payload.SearchKeywords, payload.Reasoning,
	), nil
}
