package summary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"
)

const DefaultPrompt = "\n\nSummarize this fintech news article in two or three sentences. Keep company names and amounts."

// OpenAISummarizer просит модель пересказать текст.
// Без клиента или при ошибке модели отдает выжимку из начала текста.
type OpenAISummarizer struct {
	// sdk для openai, может быть nil
	client *openai.Client
	model  string
	// С его помощью будем просить gpt генерить summary
	prompt string

	fallback *LeadSummarizer
	logger   *slog.Logger
	// Запросы к openai шлем по одному, чтобы не упираться в лимиты
	mu sync.Mutex
}

func NewOpenAISummarizer(client *openai.Client, model, prompt string, logger *slog.Logger) *OpenAISummarizer {
	if prompt == "" {
		prompt = DefaultPrompt
	}

	logger = logger.With("component", "openai_summarizer")
	logger.Info("summarizer configured", "openai_enabled", client != nil)

	return &OpenAISummarizer{
		client:   client,
		model:    model,
		prompt:   prompt,
		fallback: NewLeadSummarizer(DefaultWords),
		logger:   logger,
	}
}

func (s *OpenAISummarizer) Summarize(ctx context.Context, text string) (string, error) {
	if s.client == nil || strings.TrimSpace(text) == "" {
		return s.fallback.Summarize(ctx, text)
	}

	result, err := s.ask(ctx, text)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		s.logger.Warn("openai summary failed, using lead", "error", err)
		return s.fallback.Summarize(ctx, text)
	}

	return result, nil
}

func (s *OpenAISummarizer) ask(ctx context.Context, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	request := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf("%s%s", truncateWords(text, 800), s.prompt),
			},
		},
		MaxTokens:   256,
		Temperature: 0.7,
		TopP:        1,
	}

	resp, err := s.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}

	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	if raw == "" {
		return "", fmt.Errorf("openai returned empty summary")
	}
	if strings.HasSuffix(raw, ".") {
		return raw, nil
	}

	// Ответ обрезан по токенам: оставляем только законченные предложения
	sentences := strings.Split(raw, ".")
	if len(sentences) < 2 {
		return raw, nil
	}

	return strings.Join(sentences[:len(sentences)-1], ".") + ".", nil
}

func truncateWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return s
	}
	return strings.Join(words[:n], " ")
}
