package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/raphaelgruber/podsearch/internal/config"
	"github.com/raphaelgruber/podsearch/internal/metrics"
)

// fakeLLM records the last call and returns a canned response.
type fakeLLM struct {
	response *llms.ContentResponse
	err      error

	messages []llms.MessageContent
	opts     llms.CallOptions
}

func (f *fakeLLM) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	f.opts = llms.CallOptions{}
	for _, o := range options {
		o(&f.opts)
	}
	return f.response, f.err
}

func (f *fakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func reply(content string, info map[string]any) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: content, GenerationInfo: info}}}
}

func TestGenerateJSON(t *testing.T) {
	fake := &fakeLLM{response: reply(`{"selected_themes":["growth"]}`, map[string]any{
		"PromptTokens":     120,
		"CompletionTokens": 15,
	})}
	collector := metrics.NewCollector()
	m := NewFromLLM(fake, "test-model", collector)

	out, err := m.GenerateJSON(context.Background(), "pick themes")
	require.NoError(t, err)
	assert.Equal(t, `{"selected_themes":["growth"]}`, out)

	assert.True(t, fake.opts.JSONMode)
	assert.InDelta(t, JSONTemperature, fake.opts.Temperature, 1e-9)
	assert.Equal(t, JSONMaxTokens, fake.opts.MaxTokens)
	require.Len(t, fake.messages, 1)
	assert.Equal(t, llms.ChatMessageTypeHuman, fake.messages[0].Role)

	snap := collector.Snapshot()
	require.NotNil(t, snap.LLMGenerate)
	assert.Equal(t, int64(1), snap.LLMGenerate.Count)
	assert.Equal(t, int64(120), *snap.LLMGenerate.TotalInputTokens)
	assert.Equal(t, int64(15), *snap.LLMGenerate.TotalOutputTokens)
}

func TestSynthesizeAnswerUsesSystemPrompt(t *testing.T) {
	fake := &fakeLLM{response: reply("answer", nil)}
	m := NewFromLLM(fake, "test-model", nil)

	out, err := m.SynthesizeAnswer(context.Background(), "What is PMF?", "---\nSource: ep\n---")
	require.NoError(t, err)
	assert.Equal(t, "answer", out)

	require.Len(t, fake.messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, fake.messages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, fake.messages[1].Role)
	assert.False(t, fake.opts.JSONMode)
}

func TestGenerateErrors(t *testing.T) {
	t.Run("fatal provider error", func(t *testing.T) {
		m := NewFromLLM(&fakeLLM{err: errors.New("401 unauthorized")}, "m", nil)
		_, err := m.GenerateJSON(context.Background(), "p")
		assert.ErrorIs(t, err, ErrFatalAPI)
	})

	t.Run("transient provider error", func(t *testing.T) {
		m := NewFromLLM(&fakeLLM{err: errors.New("connection reset")}, "m", nil)
		_, err := m.Generate(context.Background(), "p")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrFatalAPI)
	})

	t.Run("no choices", func(t *testing.T) {
		m := NewFromLLM(&fakeLLM{response: &llms.ContentResponse{}}, "m", nil)
		_, err := m.Generate(context.Background(), "p")
		assert.Error(t, err)
	})
}

func TestTokenUsage(t *testing.T) {
	tests := []struct {
		name    string
		info    map[string]any
		in, out int64
	}{
		{"openai style", map[string]any{"PromptTokens": 10, "CompletionTokens": 5}, 10, 5},
		{"anthropic style", map[string]any{"InputTokens": 7, "OutputTokens": 3}, 7, 3},
		{"bedrock style", map[string]any{"input_tokens": int32(4), "output_tokens": float64(2)}, 4, 2},
		{"missing", nil, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, out := tokenUsage(tt.info)
			assert.Equal(t, tt.in, in)
			assert.Equal(t, tt.out, out)
		})
	}
}

func TestNewModelValidation(t *testing.T) {
	ctx := context.Background()

	_, err := NewModel(ctx, config.Config{LLMProvider: config.ProviderOpenAI, LLMModel: "gpt-4o-mini"}, "", nil)
	assert.ErrorContains(t, err, "OpenAI API key required")

	_, err = NewModel(ctx, config.Config{LLMProvider: config.ProviderAnthropic}, "claude", nil)
	assert.ErrorContains(t, err, "Anthropic API key required")

	_, err = NewModel(ctx, config.Config{LLMProvider: "mistral"}, "", nil)
	assert.ErrorContains(t, err, "unsupported LLM provider")

	m, err := NewModel(ctx, config.Config{LLMProvider: config.ProviderOllama, LLMModel: "llama3.1", OllamaHost: "http://localhost:11434"}, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "llama3.1", m.Model())
}
