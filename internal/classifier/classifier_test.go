package classifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kovalyov-valentin/newspulse/internal/model"
)

func TestClassify_PaymentGateway(t *testing.T) {
	c := NewKeywordClassifier()

	result := c.Classify("Payment gateway raises $10M funding", "", "")

	// fintech и payments набирают по 20, при равенстве побеждает первая в таблице
	assert.Equal(t, "fintech", result.PrimaryCategory)
	assert.Equal(t, 100, result.RelevanceScore)
	assert.Equal(t, model.ConfidenceHigh, result.ConfidenceLevel)
	assert.GreaterOrEqual(t, result.RelevanceScore, 0)
	assert.LessOrEqual(t, result.RelevanceScore, 100)

	assert.InDelta(t, 20.0, result.SecondaryCategories["payments"], 1e-9)
	assert.InDelta(t, 10.0, result.SecondaryCategories["business"], 1e-9)
	assert.NotContains(t, result.SecondaryCategories, "fintech")
}

func TestClassify_EmptyInput(t *testing.T) {
	result := NewKeywordClassifier().Classify("", "", "")

	assert.Equal(t, "", result.PrimaryCategory)
	assert.Equal(t, 0, result.RelevanceScore)
	assert.Equal(t, model.ConfidenceLow, result.ConfidenceLevel)

	require.NotNil(t, result.SecondaryCategories)
	require.NotNil(t, result.GeographicTags)
	require.NotNil(t, result.IndustrySegments)
	assert.Empty(t, result.SecondaryCategories)
	assert.Empty(t, result.GeographicTags)
	assert.Empty(t, result.IndustrySegments)
}

func TestClassify_NoKeywords(t *testing.T) {
	result := NewKeywordClassifier().Classify("Local weather turns sunny", "A quiet weekend ahead", "")

	assert.Equal(t, "", result.PrimaryCategory)
	assert.Equal(t, 0, result.RelevanceScore)
	assert.Equal(t, model.ConfidenceLow, result.ConfidenceLevel)
}

func TestClassify_TieBreakIsStable(t *testing.T) {
	c := NewKeywordClassifier()

	// "wallet" в fintech, "payment" в payments: по 50 баллов
	for i := 0; i < 20; i++ {
		result := c.Classify("wallet payment", "", "")
		require.Equal(t, "fintech", result.PrimaryCategory)
		require.InDelta(t, 50.0, result.SecondaryCategories["payments"], 1e-9)
	}
}

func TestClassify_WordBoundaries(t *testing.T) {
	c := NewKeywordClassifier()

	// "ai" внутри "raises" и "pos" внутри "position" не считаются
	result := c.Classify("Company raises capital for a new position", "", "")
	assert.NotContains(t, result.SecondaryCategories, "technology")
	assert.NotEqual(t, "technology", result.PrimaryCategory)
	assert.NotEqual(t, "payments", result.PrimaryCategory)
}

func TestCountWords_UnicodeBoundaries(t *testing.T) {
	tests := []struct {
		blob string
		want int
	}{
		{"bank", 1},
		{"the bank.", 1},
		{"bank, bank and bank", 3},
		{"bankö", 0},
		{"übank", 0},
		{"bank_account", 0},
		{"bank2", 0},
		{"«bank»", 1},
		{"bankbank", 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, countWords(tt.blob, "bank", 0), tt.blob)
	}

	assert.Equal(t, 1, countWords("bank bank bank", "bank", 1))
}

func TestClassify_NonASCIIWordBoundaries(t *testing.T) {
	c := NewKeywordClassifier()

	result := c.Classify("Bankö opens in Dubaï", "", "")
	assert.Empty(t, result.PrimaryCategory)
	assert.Empty(t, result.GeographicTags)
	assert.NotContains(t, result.IndustrySegments, "Banking")

	result = c.Classify("Ein Bank. Neue Filiale in Dubai", "", "")
	assert.Equal(t, "banking", result.PrimaryCategory)
	assert.Equal(t, []string{"dubai"}, result.GeographicTags["Middle East"])
	assert.Contains(t, result.IndustrySegments, "Banking")
}

func TestClassify_ScoreScaling(t *testing.T) {
	c := NewKeywordClassifier()

	// 10 слов, одно совпадение с banking: 1/10*100*0.8 = 8
	result := c.Classify("the central authority said the bank will open soon today", "", "")
	assert.Equal(t, "banking", result.PrimaryCategory)
	assert.Equal(t, 80, result.RelevanceScore)
	assert.Equal(t, model.ConfidenceHigh, result.ConfidenceLevel)
}

func TestClassify_ConfidenceBuckets(t *testing.T) {
	assert.Equal(t, model.ConfidenceHigh, confidence(5))
	assert.Equal(t, model.ConfidenceMedium, confidence(4.99))
	assert.Equal(t, model.ConfidenceMedium, confidence(2))
	assert.Equal(t, model.ConfidenceLow, confidence(1.99))
	assert.Equal(t, model.ConfidenceLow, confidence(0))
}

func TestClassify_Tags(t *testing.T) {
	c := NewKeywordClassifier()

	result := c.Classify(
		"Singapore neobank expands to Hong Kong and the UK",
		"The bank adds crypto trading for merchant partners",
		"",
	)

	assert.Equal(t, map[string][]string{
		"Southeast Asia": {"singapore"},
		"Asia Pacific":   {"hong kong"},
		"Europe":         {"uk"},
	}, result.GeographicTags)

	// Порядок сегментов как в таблице
	assert.Equal(t, []string{"Banking", "Investment", "Cryptocurrency", "Retail"}, result.IndustrySegments)
}

func TestClassifyBatch_KeepsOrder(t *testing.T) {
	c := NewKeywordClassifier()

	articles := []model.Article{
		{Title: "Bitcoin hits a new high"},
		{Title: ""},
		{Title: "Shopify improves checkout", Summary: "ecommerce merchants"},
	}

	results := c.ClassifyBatch(articles)
	require.Len(t, results, 3)

	assert.Equal(t, "fintech", results[0].PrimaryCategory)
	assert.Equal(t, "", results[1].PrimaryCategory)
	assert.Equal(t, c.Classify(articles[2].Title, articles[2].Summary, ""), results[2])
}

func TestKeywordClassifier_ClassifyArticle(t *testing.T) {
	c := NewKeywordClassifier()

	got, err := c.ClassifyArticle(context.Background(), model.Article{
		Title:   "Stripe payment volumes grow",
		Content: "Stripe processes card payments",
	})
	require.NoError(t, err)
	assert.Equal(t, "payments", got.PrimaryCategory)
}

func TestCategories(t *testing.T) {
	assert.Equal(t, []string{"fintech", "payments", "banking", "ecommerce", "technology", "business"}, Categories())
}
