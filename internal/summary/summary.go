package summary

import (
	"context"
	"strings"
)

// Сколько слов берем в выжимку по умолчанию
const DefaultWords = 80

type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Lead собирает выжимку из начала текста: первые maxWords слов,
// обрезанные до последнего законченного предложения.
// Короткий текст возвращается как есть.
func Lead(text string, maxWords int) string {
	text = strings.TrimSpace(text)

	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text
	}

	lead := strings.Join(words[:maxWords], " ")

	sentences := strings.Split(lead, ".")
	if len(sentences) < 2 {
		return lead
	}

	// Последний кусок не закончен, отбрасываем его
	return strings.Join(sentences[:len(sentences)-1], ".") + "."
}

// LeadSummarizer не ходит во внешние сервисы, просто берет начало текста
type LeadSummarizer struct {
	words int
}

func NewLeadSummarizer(words int) *LeadSummarizer {
	if words <= 0 {
		words = DefaultWords
	}
	return &LeadSummarizer{words: words}
}

func (s *LeadSummarizer) Summarize(_ context.Context, text string) (string, error) {
	return Lead(text, s.words), nil
}
