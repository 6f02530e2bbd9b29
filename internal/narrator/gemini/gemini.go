// Package gemini implements narrator.Narrator on Google's Gemini models.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/cory-johannsen/questweaver/internal/narrator"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gemini-2.0-flash"

// Config holds the generation settings for the Gemini backend.
type Config struct {
	APIKey        string
	Model         string
	Temperature   float32
	TopK          int32
	TopP          float32
	MaxTokens     int32
	HistoryWindow int
}

// DefaultConfig returns the tuned settings: temperature 0.8, topK 40,
// topP 0.95 and 2048 output tokens.
func DefaultConfig() Config {
	return Config{
		Model:         DefaultModel,
		Temperature:   0.8,
		TopK:          40,
		TopP:          0.95,
		MaxTokens:     2048,
		HistoryWindow: narrator.DefaultHistoryWindow,
	}
}

// generator is the subset of *genai.GenerativeModel used here.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Narrator asks a Gemini model to narrate each action.
type Narrator struct {
	client        *genai.Client
	model         generator
	historyWindow int
	logger        *zap.Logger
}

// New connects to the Gemini API.
//
// Precondition: cfg.APIKey must be non-empty; logger must not be nil.
// Postcondition: Returns a ready Narrator, or an error. Call Close when done.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Narrator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: api key must not be empty")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", err)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(cfg.Temperature)
	model.SetTopK(cfg.TopK)
	model.SetTopP(cfg.TopP)
	model.SetMaxOutputTokens(cfg.MaxTokens)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = genai.NewUserContent(genai.Text(narrator.SystemPrompt))
	model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
	}

	n := newNarrator(model, cfg.HistoryWindow, logger)
	n.client = client
	return n, nil
}

func newNarrator(model generator, historyWindow int, logger *zap.Logger) *Narrator {
	return &Narrator{model: model, historyWindow: historyWindow, logger: logger}
}

// Narrate sends the prompt for req and parses the model's JSON reply.
func (n *Narrator) Narrate(ctx context.Context, req narrator.Request) (narrator.Response, error) {
	if err := narrator.Validate(req); err != nil {
		return narrator.Response{}, err
	}
	prompt, err := narrator.BuildPrompt(req, n.historyWindow)
	if err != nil {
		return narrator.Response{}, err
	}

	resp, err := n.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return narrator.Response{}, fmt.Errorf("gemini: generating content: %w", err)
	}
	text := replyText(resp)
	if text == "" {
		return narrator.Response{}, errors.New("gemini: empty reply")
	}
	n.logger.Debug("gemini reply", zap.String("text", text))

	out, err := narrator.ParseReply(text)
	if err != nil {
		return narrator.Response{}, fmt.Errorf("gemini: %w", err)
	}
	return out, nil
}

// Close releases the underlying client.
func (n *Narrator) Close() error {
	if n.client == nil {
		return nil
	}
	return n.client.Close()
}

func replyText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}
