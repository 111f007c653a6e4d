package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/tomakado/containers/set"

	"github.com/kovalyov-valentin/newspulse/internal/model"
)

var errBadModelAnswer = errors.New("unexpected model answer")

const classifyPrompt = `You classify fintech industry news.
Pick exactly one category from this list or "none": %s.
Answer with JSON only: {"primary_category": "...", "relevance_score": 0-100, "confidence_level": "HIGH|MEDIUM|LOW"}`

// OpenAIClassifier просит модель выбрать категорию и оценку.
// Теги регионов и сегментов всегда берутся из ключевых слов.
// Если модель недоступна или ответила мусором, возвращаем результат по ключевым словам.
type OpenAIClassifier struct {
	// sdk для openai
	client *openai.Client
	model  string

	fallback *KeywordClassifier
	// Проверка, что категория есть в таблице
	isKnown func(string) bool
	logger  *slog.Logger
}

func NewOpenAIClassifier(client *openai.Client, model string, fallback *KeywordClassifier, logger *slog.Logger) *OpenAIClassifier {
	known := set.New(Categories()...)

	return &OpenAIClassifier{
		client:   client,
		model:    model,
		fallback: fallback,
		isKnown:  known.Contains,
		logger:   logger.With("component", "openai_classifier"),
	}
}

type modelAnswer struct {
	PrimaryCategory string `json:"primary_category"`
	RelevanceScore  int    `json:"relevance_score"`
	ConfidenceLevel string `json:"confidence_level"`
}

func (c *OpenAIClassifier) ClassifyArticle(ctx context.Context, article model.Article) (model.Classification, error) {
	base := c.fallback.Classify(article.Title, article.Summary, article.Content)

	answer, err := c.ask(ctx, article)
	if err != nil {
		if ctx.Err() != nil {
			return model.Classification{}, ctx.Err()
		}
		c.logger.Warn("openai classification failed, using keywords", "article_id", article.ID, "error", err)
		return base, nil
	}

	category := strings.ToLower(strings.TrimSpace(answer.PrimaryCategory))
	if category == "none" {
		category = ""
	}
	if category != "" && !c.isKnown(category) {
		c.logger.Warn("openai returned unknown category, using keywords", "article_id", article.ID, "category", category)
		return base, nil
	}

	result := base
	result.PrimaryCategory = category
	result.RelevanceScore = min(max(answer.RelevanceScore, 0), 100)
	result.ConfidenceLevel = parseConfidence(answer.ConfidenceLevel)

	if category == "" {
		result.RelevanceScore = 0
		result.ConfidenceLevel = model.ConfidenceLow
	}
	delete(result.SecondaryCategories, category)

	return result, nil
}

func (c *OpenAIClassifier) ask(ctx context.Context, article model.Article) (modelAnswer, error) {
	text := article.Title + "\n\n" + article.Summary
	if article.Content != "" {
		text += "\n\n" + truncateWords(article.Content, 500)
	}

	// Составляем запрос к openai
	request := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf(classifyPrompt, strings.Join(Categories(), ", ")),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
		MaxTokens:   128,
		Temperature: 0,
	}

	resp, err := c.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return modelAnswer{}, err
	}
	if len(resp.Choices) == 0 {
		return modelAnswer{}, fmt.Errorf("%w: no choices", errBadModelAnswer)
	}

	// openai может прислать несколько вариантов, берем первый
	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	raw = strings.TrimSuffix(strings.TrimPrefix(raw, "```json"), "```")

	var answer modelAnswer
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &answer); err != nil {
		return modelAnswer{}, fmt.Errorf("%w: %v", errBadModelAnswer, err)
	}

	return answer, nil
}

func parseConfidence(s string) model.ConfidenceLevel {
	switch model.ConfidenceLevel(strings.ToUpper(strings.TrimSpace(s))) {
	case model.ConfidenceHigh:
		return model.ConfidenceHigh
	case model.ConfidenceMedium:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

// Длинные тексты в модель целиком не отправляем
func truncateWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return s
	}
	return strings.Join(words[:n], " ")
}
