package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/interastral-2026/novanew/internal/models"
)

const (
	DefaultBaseURL   = "https://generativelanguage.googleapis.com/v1beta/openai/"
	DefaultModel     = "gemini-2.5-pro"
	DefaultMaxTokens = 2048
)

// Generator is the slice of an eino chat model the oracle needs.
type Generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	// MinConfidence is passed to the model as the probability bar for
	// suggesting a trade.
	MinConfidence float64
}

type Oracle struct {
	gen Generator
	cfg Config
}

// New builds an oracle over an OpenAI-compatible chat completion endpoint.
func New(ctx context.Context, cfg Config) (*Oracle, error) {
	cfg = withDefaults(cfg)
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: oracle API key is not set", models.ErrConfig)
	}
	maxTokens := cfg.MaxTokens
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL:   cfg.BaseURL,
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		MaxTokens: &maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create chat model: %v", models.ErrConfig, err)
	}
	fmt.Printf("[ORACLE] Using model %s at %s\n", cfg.Model, cfg.BaseURL)
	return &Oracle{gen: chatModel, cfg: cfg}, nil
}

// NewWithGenerator wires an existing generator, mainly for tests.
func NewWithGenerator(gen Generator, cfg Config) *Oracle {
	return &Oracle{gen: gen, cfg: withDefaults(cfg)}
}

func withDefaults(cfg Config) Config {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = 75
	}
	return cfg
}

// Analyze asks the model for one decision. A nil decision with a nil error
// means the model answered but proposed nothing.
func (o *Oracle) Analyze(ctx context.Context, markets []models.MarketSnapshot, portfolio models.PortfolioSnapshot) (*models.Decision, error) {
	user, err := buildPrompt(markets, portfolio, o.cfg.MinConfidence)
	if err != nil {
		return nil, fmt.Errorf("%w: build prompt: %v", models.ErrOracle, err)
	}

	msg, err := o.gen.Generate(ctx, []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(user),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: generate: %v", models.ErrOracle, err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return nil, nil
	}

	d, err := parseDecision(msg.Content, symbols(markets))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrOracle, err)
	}
	return d, nil
}

func symbols(markets []models.MarketSnapshot) map[string]bool {
	out := make(map[string]bool, len(markets))
	for _, m := range markets {
		out[m.Symbol] = true
	}
	return out
}

// Unconfigured stands in when no model could be built. Every call reports
// the construction error so each cycle still logs it.
type Unconfigured struct {
	Err error
}

func (u Unconfigured) Analyze(context.Context, []models.MarketSnapshot, models.PortfolioSnapshot) (*models.Decision, error) {
	return nil, u.Err
}
