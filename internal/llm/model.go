// Package llm provides the generation service used for navigation and
// answer synthesis, backed by langchaingo.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/bedrock"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/raphaelgruber/podsearch/internal/config"
	"github.com/raphaelgruber/podsearch/internal/metrics"
)

// Generation defaults for structured navigation calls.
const (
	JSONTemperature = 0.3
	JSONMaxTokens   = 2000

	synthesisMaxTokens = 4000
)

// Model wraps a langchaingo LLM for text generation.
type Model struct {
	llm       llms.Model
	modelName string
	metrics   *metrics.Collector
}

// NewModel creates an LLM model for the configured provider.
// modelName overrides cfg.LLMModel when non-empty. collector may be nil.
func NewModel(ctx context.Context, cfg config.Config, modelName string, collector *metrics.Collector) (*Model, error) {
	if modelName == "" {
		modelName = cfg.LLMModel
	}

	var model llms.Model
	var err error

	switch cfg.LLMProvider {
	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(modelName),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		opts := []openai.Option{
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(modelName),
		}
		if cfg.OpenAIBaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.OpenAIBaseURL))
		}
		model, err = openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(modelName),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	case config.ProviderBedrock:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		model, err = bedrock.New(
			bedrock.WithClient(bedrockruntime.NewFromConfig(awsCfg)),
			bedrock.WithModel(modelName),
		)
		if err != nil {
			return nil, fmt.Errorf("create bedrock model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	return NewFromLLM(model, modelName, collector), nil
}

// NewFromLLM wraps an already constructed langchaingo model.
func NewFromLLM(model llms.Model, modelName string, collector *metrics.Collector) *Model {
	return &Model{
		llm:       model,
		modelName: modelName,
		metrics:   collector,
	}
}

// Model returns the LLM model name.
func (m *Model) Model() string {
	return m.modelName
}

// generate runs one chat completion, records usage and classifies errors.
func (m *Model) generate(ctx context.Context, messages []llms.MessageContent, opts ...llms.CallOption) (string, error) {
	start := time.Now()
	response, err := m.llm.GenerateContent(ctx, messages, opts...)
	duration := time.Since(start)
	if err != nil {
		slog.Warn("generation failed", "model", m.modelName, "duration_ms", duration.Milliseconds(), "error", err)
		return "", wrapFatalError(err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	choice := response.Choices[0]
	in, out := tokenUsage(choice.GenerationInfo)
	m.metrics.RecordLLMUsage(metrics.OpLLMGenerate, duration, in, out)

	slog.Debug("generation complete",
		"model", m.modelName,
		"duration_ms", duration.Milliseconds(),
		"input_tokens", in,
		"output_tokens", out,
	)
	return choice.Content, nil
}

// Generate generates text based on a prompt.
func (m *Model) Generate(ctx context.Context, prompt string) (string, error) {
	content, err := m.generate(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	})
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return content, nil
}

// GenerateJSON asks for a single JSON object response. The caller parses
// and validates the returned text.
func (m *Model) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	content, err := m.generate(ctx,
		[]llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)},
		llms.WithJSONMode(),
		llms.WithTemperature(JSONTemperature),
		llms.WithMaxTokens(JSONMaxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("generate json: %w", err)
	}
	return content, nil
}

// GenerateWithSystem generates text with a system prompt.
func (m *Model) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	content, err := m.generate(ctx, messages,
		llms.WithTemperature(JSONTemperature),
		llms.WithMaxTokens(synthesisMaxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("generate with system: %w", err)
	}
	return content, nil
}

// SynthesizeAnswer answers query from formatted transcript excerpts, quoting
// them verbatim with the citation format the verifier expects.
func (m *Model) SynthesizeAnswer(ctx context.Context, query string, context string) (string, error) {
	userPrompt := fmt.Sprintf(`Question: %s

Context from transcripts:
%s`, query, context)

	return m.GenerateWithSystem(ctx, synthesisSystemPrompt, userPrompt)
}

const synthesisSystemPrompt = `You are a research assistant answering questions based on podcast transcripts.

Answer the question directly based on the provided transcript excerpts. Requirements:

1. CITATION RULES (CRITICAL):
   - Support your answer with specific quotes
   - Use format: "quote" — Speaker, "Episode Title" [HH:MM:SS]
   - Quotes must be EXACT from the context - copy verbatim
   - DO NOT paraphrase or modify quotes - use the exact words
   - Wrap quotes in quotation marks

2. STRUCTURE:
   - Start with a direct answer
   - Support with 2-3 relevant quotes
   - Add any important nuances

3. STYLE:
   - Concise but thorough
   - Focus on the specific question asked
   - Acknowledge if information is limited`

// tokenUsage extracts input/output token counts from provider generation
// info. Providers disagree on key names.
func tokenUsage(info map[string]any) (in, out int64) {
	in = firstInt(info, "PromptTokens", "InputTokens", "input_tokens")
	out = firstInt(info, "CompletionTokens", "OutputTokens", "output_tokens")
	return in, out
}

func firstInt(info map[string]any, keys ...string) int64 {
	for _, k := range keys {
		switch v := info[k].(type) {
		case int:
			return int64(v)
		case int32:
			return int64(v)
		case int64:
			return v
		case float64:
			return int64(v)
		}
	}
	return 0
}
