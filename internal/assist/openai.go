package assist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/cargo-intake/internal/record"
	"github.com/danielpatrickdp/cargo-intake/internal/schema"
	"github.com/danielpatrickdp/cargo-intake/internal/suggest"
	"github.com/danielpatrickdp/cargo-intake/internal/validation"
)

// #region config
// OpenAIConfig configures the chat-completion collaborator. BaseURL may point
// at any OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float32 `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int     `yaml:"max_tokens" validate:"gte=0"`
}

const defaultModel = "gpt-4o-mini"

// #endregion config

// #region client
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAI asks a chat model for suggestions and advisory findings.
type OpenAI struct {
	chat   chatCompleter
	cfg    OpenAIConfig
	schema *schema.Schema
	local  *Heuristic
	logger *zap.Logger
}

// NewOpenAI builds the collaborator for records of sc.
func NewOpenAI(cfg OpenAIConfig, sc *schema.Schema, logger *zap.Logger) *OpenAI {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return newOpenAIWithChat(openai.NewClientWithConfig(oc), cfg, sc, logger)
}

func newOpenAIWithChat(chat chatCompleter, cfg OpenAIConfig, sc *schema.Schema, logger *zap.Logger) *OpenAI {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAI{
		chat:   chat,
		cfg:    cfg,
		schema: sc,
		local:  NewHeuristic(),
		logger: logger.With(zap.String("component", "assist.openai"), zap.String("model", cfg.Model)),
	}
}

// #endregion client

// #region suggest
// Suggest sends the record, with other rows for context, and reads back one
// suggestion object per AI-assisted field.
func (o *OpenAI) Suggest(ctx context.Context, rec record.Record, others []record.Record) (map[string]suggest.Suggestion, error) {
	text, err := o.complete(ctx, o.suggestPrompt(rec, others))
	if err != nil {
		return nil, err
	}
	data, err := extractJSON(text)
	if err != nil {
		return nil, err
	}
	return decodeSuggestions(data, o.schema.AIAssisted())
}

func (o *OpenAI) suggestPrompt(rec record.Record, others []record.Record) string {
	var b strings.Builder
	if len(others) > 0 {
		ctxJSON, _ := json.MarshalIndent(recordMaps(others), "", "  ")
		fmt.Fprintf(&b, "Here are %d previous cargo items for context:\n%s\n\n", len(others), ctxJSON)
	}
	b.WriteString("I have a cargo item with these details:\n")
	for _, f := range o.schema.Fields() {
		if f.AIAssisted {
			continue
		}
		v := rec.Get(f.Key)
		s := v.String()
		if v.IsEmpty() {
			s = "Unknown"
		}
		fmt.Fprintf(&b, "%s: %s\n", f.Label, s)
	}
	b.WriteString("\nBased on these characteristics, please suggest appropriate values for:\n")
	example := make(map[string]any)
	for i, key := range o.schema.AIAssisted() {
		f, _ := o.schema.Field(key)
		fmt.Fprintf(&b, "%d. %s %s\n", i+1, f.Label, describe(f))
		example[key] = map[string]any{"value": "...", "confidence": 0.8, "reasoning": "short explanation"}
	}
	exJSON, _ := json.MarshalIndent(example, "", "  ")
	fmt.Fprintf(&b, "\nFormat your response as valid JSON with the following structure:\n%s\n", exJSON)
	b.WriteString("\nNotes:\n- Confidence should be a value between 0 and 1\n" +
		"- Only suggest values if you have reasonable confidence (otherwise leave the field out)\n")
	return b.String()
}

// describe renders a field's constraint for the prompt.
func describe(f schema.Field) string {
	switch c := f.Constraint.(type) {
	case schema.Enum:
		return "(" + strings.Join(c.Allowed, "/") + ")"
	case schema.Numeric:
		if c.Unit != "" {
			return "(number, " + c.Unit + ")"
		}
		return "(number)"
	case schema.Pattern:
		return "(" + c.Hint + ")"
	default:
		return ""
	}
}

// #endregion suggest

// #region validate
// Validate asks the model for findings and adds the local plausibility
// checks, which run even when the model returns nothing usable. When the
// request itself fails the local issues are returned with the error.
func (o *OpenAI) Validate(ctx context.Context, rec record.Record) ([]validation.Issue, error) {
	local, lerr := o.local.Validate(ctx, rec)
	if lerr != nil {
		o.logger.Debug("local checks failed", zap.Error(lerr))
	}

	recJSON, _ := json.Marshal(recordMap(rec))
	prompt := fmt.Sprintf("Validate this cargo item and report implausible values:\n%s\n\n"+
		`Respond with JSON: {"issues": [{"field": "weight", "severity": "warning|error", "message": "...", "confidence": 0.8}]}`+
		"\nReturn an empty list when everything looks plausible.", recJSON)

	text, err := o.complete(ctx, prompt)
	if err != nil {
		return local, err
	}
	data, err := extractJSON(text)
	if err != nil {
		o.logger.Debug("validation reply unreadable, using local checks only", zap.Error(err))
		return local, nil
	}
	remote, err := decodeIssues(data)
	if err != nil {
		o.logger.Debug("validation reply unreadable, using local checks only", zap.Error(err))
		return local, nil
	}
	return append(remote, local...), nil
}

// #endregion validate

// #region complete
func (o *OpenAI) complete(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: o.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You help fill in cargo manifests. Reply with JSON only."},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: o.cfg.Temperature,
	}
	if o.cfg.MaxTokens > 0 {
		req.MaxCompletionTokens = o.cfg.MaxTokens
	}

	resp, err := o.chat.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classifyHTTP(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrMalformed)
	}
	return resp.Choices[0].Message.Content, nil
}

// classifyHTTP maps go-openai errors onto the package sentinels.
func classifyHTTP(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		case apiErr.HTTPStatusCode >= 500:
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return fmt.Errorf("chat completion: %w", err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		switch {
		case reqErr.HTTPStatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		case reqErr.HTTPStatusCode >= 500:
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return fmt.Errorf("chat completion: %w", err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func recordMaps(rs []record.Record) []map[string]any {
	out := make([]map[string]any, len(rs))
	for i, r := range rs {
		out[i] = recordMap(r)
	}
	return out
}

// #endregion complete
