package classifier

import (
	"context"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/kovalyov-valentin/newspulse/internal/model"
)

const (
	// Категории с баллом выше этого попадают во вторичные
	secondaryFloor = 1.0

	highConfidence   = 5.0
	mediumConfidence = 2.0
)

// Стратегия классификации статьи. Ключевые слова работают всегда,
// openai можно подключить вместо них, результат у обоих одинаковый
type Classifier interface {
	ClassifyArticle(ctx context.Context, article model.Article) (model.Classification, error)
}

// Одно ключевое слово: для одиночных слов считаем совпадения по границам слова,
// для фраз - вхождения подстроки
type keyword struct {
	text  string
	whole bool
}

func newKeyword(text string) keyword {
	return keyword{text: text, whole: !strings.Contains(text, " ")}
}

func (k keyword) count(blob string) int {
	if k.whole {
		return countWords(blob, k.text, 0)
	}
	return strings.Count(blob, k.text)
}

// countWords считает непересекающиеся вхождения text, вокруг которых нет букв,
// цифр и '_' в любом алфавите. limit > 0 останавливает счет раньше.
func countWords(blob, text string, limit int) int {
	if text == "" {
		return 0
	}

	n := 0
	for i := 0; i < len(blob); {
		j := strings.Index(blob[i:], text)
		if j < 0 {
			break
		}
		start, end := i+j, i+j+len(text)

		before, _ := utf8.DecodeLastRuneInString(blob[:start])
		after, _ := utf8.DecodeRuneInString(blob[end:])
		if (start == 0 || !isWordRune(before)) && (end == len(blob) || !isWordRune(after)) {
			n++
			if limit > 0 && n >= limit {
				break
			}
			i = end
			continue
		}

		_, size := utf8.DecodeRuneInString(blob[start:])
		i = start + size
	}

	return n
}

func containsWord(blob, text string) bool {
	return countWords(blob, text, 1) > 0
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

type compiledCategory struct {
	name     string
	weight   float64
	keywords []keyword
}

type compiledGroup struct {
	name     string
	keywords []string
}

// KeywordClassifier оценивает текст по таблицам ключевых слов.
// Таблицы готовятся один раз в конструкторе, дальше классификатор
// не меняется и его можно использовать из нескольких горутин.
type KeywordClassifier struct {
	categories []compiledCategory
	regions    []compiledGroup
	segments   []compiledGroup
}

func NewKeywordClassifier() *KeywordClassifier {
	c := &KeywordClassifier{
		categories: make([]compiledCategory, 0, len(categories)),
		regions:    compileGroups(regions),
		segments:   compileGroups(segments),
	}

	for _, cat := range categories {
		c.categories = append(c.categories, compiledCategory{
			name:     cat.name,
			weight:   cat.weight,
			keywords: lo.Map(cat.keywords, func(k string, _ int) keyword { return newKeyword(k) }),
		})
	}

	return c
}

func compileGroups(groups []tagGroup) []compiledGroup {
	return lo.Map(groups, func(g tagGroup, _ int) compiledGroup {
		return compiledGroup{
			name:     g.name,
			keywords: g.keywords,
		}
	})
}

// Classify считает классификацию по заголовку, выжимке и полному тексту.
// Любое из полей может быть пустым.
func (c *KeywordClassifier) Classify(title, summary, content string) model.Classification {
	blob := strings.ToLower(title + " " + summary + " " + content)
	wordCount := max(len(strings.Fields(blob)), 1)

	result := model.Classification{
		ConfidenceLevel:     model.ConfidenceLow,
		SecondaryCategories: map[string]float64{},
		GeographicTags:      c.geographicTags(blob),
		IndustrySegments:    c.industrySegments(blob),
	}

	scores := make([]float64, len(c.categories))
	best, bestScore := -1, 0.0

	for i, cat := range c.categories {
		var score float64
		for _, k := range cat.keywords {
			if n := k.count(blob); n > 0 {
				score += float64(n) / float64(wordCount) * 100
			}
		}
		score *= cat.weight
		scores[i] = score

		// Строгое сравнение: при равенстве остается категория, которая раньше в таблице
		if score > bestScore {
			best, bestScore = i, score
		}
	}

	if best < 0 {
		return result
	}

	result.PrimaryCategory = c.categories[best].name
	result.RelevanceScore = int(math.Min(100, math.Round(bestScore*10)))
	result.ConfidenceLevel = confidence(bestScore)

	for i, score := range scores {
		if i != best && score > secondaryFloor {
			result.SecondaryCategories[c.categories[i].name] = score
		}
	}

	return result
}

// ClassifyBatch классифицирует каждую статью независимо, порядок результатов как у входа
func (c *KeywordClassifier) ClassifyBatch(articles []model.Article) []model.Classification {
	return lo.Map(articles, func(a model.Article, _ int) model.Classification {
		return c.Classify(a.Title, a.Summary, a.Content)
	})
}

func (c *KeywordClassifier) ClassifyArticle(_ context.Context, article model.Article) (model.Classification, error) {
	return c.Classify(article.Title, article.Summary, article.Content), nil
}

func (c *KeywordClassifier) geographicTags(blob string) map[string][]string {
	tags := map[string][]string{}

	for _, region := range c.regions {
		var found []string
		for _, k := range region.keywords {
			if containsWord(blob, k) {
				found = append(found, k)
			}
		}
		if len(found) > 0 {
			tags[region.name] = found
		}
	}

	return tags
}

func (c *KeywordClassifier) industrySegments(blob string) []string {
	found := []string{}

	for _, segment := range c.segments {
		if lo.SomeBy(segment.keywords, func(k string) bool { return containsWord(blob, k) }) {
			found = append(found, segment.name)
		}
	}

	return found
}

func confidence(score float64) model.ConfidenceLevel {
	switch {
	case score >= highConfidence:
		return model.ConfidenceHigh
	case score >= mediumConfidence:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}
