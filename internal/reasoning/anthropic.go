package reasoning

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/adpulse-labs/orchestrator/internal/metrics"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "claude-sonnet-4-5-20250929"

	// DefaultMaxTokens bounds narrative-sized replies.
	DefaultMaxTokens = 2048

	defaultTimeout = 60 * time.Second
)

// AnthropicConfig configures the production engine.
type AnthropicConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// AnthropicEngine implements Engine on the Anthropic Messages API.
type AnthropicEngine struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
	timeout     time.Duration
	logger      *zap.Logger
}

// NewAnthropicEngine creates the production reasoning engine.
func NewAnthropicEngine(cfg AnthropicConfig, logger *zap.Logger) (*AnthropicEngine, error) {
	opts := []option.RequestOption{}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := int64(DefaultMaxTokens)
	if cfg.MaxTokens > 0 {
		maxTokens = int64(cfg.MaxTokens)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &AnthropicEngine{
		client:      anthropic.NewClient(opts...),
		model:       model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		timeout:     timeout,
		logger:      logger,
	}, nil
}

// Complete sends one system+user message pair and returns the text reply.
func (e *AnthropicEngine) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	maxTokens := e.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = int64(req.MaxTokens)
	}
	temperature := e.temperature
	if req.Temperature > 0 {
		temperature = req.Temperature
	}

	start := time.Now()
	message, err := e.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(e.model),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(temperature),
		System: []anthropic.TextBlockParam{
			{Text: req.System},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
	})
	if err != nil {
		metrics.ReasoningCalls.WithLabelValues("error").Inc()
		return "", fmt.Errorf("reasoning completion: %w", err)
	}

	var reply string
	for _, block := range message.Content {
		if block.Type == "text" {
			reply += block.Text
		}
	}

	metrics.ReasoningCalls.WithLabelValues("ok").Inc()
	metrics.ReasoningCallDuration.Observe(time.Since(start).Seconds())
	e.logger.Debug("Reasoning completion",
		zap.Int("input_tokens", int(message.Usage.InputTokens)),
		zap.Int("output_tokens", int(message.Usage.OutputTokens)),
		zap.Duration("duration", time.Since(start)),
	)
	return reply, nil
}
