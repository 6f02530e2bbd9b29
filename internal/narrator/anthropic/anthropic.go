// Package anthropic implements narrator.Narrator on Anthropic's Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/cory-johannsen/questweaver/internal/narrator"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "claude-3-5-haiku-latest"

// Config holds the generation settings for the Anthropic backend.
type Config struct {
	APIKey        string
	Model         string
	Temperature   float64
	MaxTokens     int64
	HistoryWindow int
}

// messageCreator is the subset of the SDK's message service used here.
type messageCreator interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Narrator asks an Anthropic model to narrate each action.
type Narrator struct {
	messages messageCreator
	cfg      Config
	logger   *zap.Logger
}

// New builds a Narrator authenticated with cfg.APIKey.
//
// Precondition: cfg.APIKey must be non-empty; logger must not be nil.
func New(cfg Config, logger *zap.Logger) (*Narrator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: api key must not be empty")
	}
	client := sdk.NewClient(option.WithAPIKey(cfg.APIKey))
	return newNarrator(&client.Messages, cfg, logger), nil
}

func newNarrator(messages messageCreator, cfg Config, logger *zap.Logger) *Narrator {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}
	return &Narrator{messages: messages, cfg: cfg, logger: logger}
}

// Narrate sends the system prompt and one user message for req and parses the
// JSON reply.
func (n *Narrator) Narrate(ctx context.Context, req narrator.Request) (narrator.Response, error) {
	if err := narrator.Validate(req); err != nil {
		return narrator.Response{}, err
	}
	prompt, err := narrator.BuildPrompt(req, n.cfg.HistoryWindow)
	if err != nil {
		return narrator.Response{}, err
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(n.cfg.Model),
		MaxTokens: n.cfg.MaxTokens,
		System:    []sdk.TextBlockParam{{Text: narrator.SystemPrompt}},
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(prompt))},
	}
	if n.cfg.Temperature > 0 {
		params.Temperature = sdk.Float(n.cfg.Temperature)
	}

	msg, err := n.messages.New(ctx, params)
	if err != nil {
		return narrator.Response{}, fmt.Errorf("anthropic: creating message: %w", err)
	}
	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	text := b.String()
	if text == "" {
		return narrator.Response{}, errors.New("anthropic: empty reply")
	}
	n.logger.Debug("anthropic reply", zap.String("text", text))

	out, err := narrator.ParseReply(text)
	if err != nil {
		return narrator.Response{}, fmt.Errorf("anthropic: %w", err)
	}
	return out, nil
}
