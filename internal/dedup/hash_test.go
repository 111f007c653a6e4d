package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kovalyov-valentin/newspulse/internal/model"
)

func TestContentHash_Deterministic(t *testing.T) {
	first := ContentHash("Stripe expands to Singapore", "https://example.com/a", 7)
	second := ContentHash("Stripe expands to Singapore", "https://example.com/a", 7)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestContentHash_AnyFieldChangesDigest(t *testing.T) {
	base := ContentHash("title", "https://example.com/a", 1)

	variants := map[string]string{
		"title":  ContentHash("title!", "https://example.com/a", 1),
		"link":   ContentHash("title", "https://example.com/b", 1),
		"source": ContentHash("title", "https://example.com/a", 2),
	}

	seen := map[string]string{base: "base"}
	for name, digest := range variants {
		assert.NotEqual(t, base, digest, name)
		_, dup := seen[digest]
		assert.False(t, dup, "collision for %s", name)
		seen[digest] = name
	}
}

func TestContentHash_KnownValue(t *testing.T) {
	// поля склеиваются без разделителя: "abc" + "" + "0"
	assert.Equal(t, "56abfbd7d2ea606e667945422de5a368b8b0272b8f29081cb058b594dd7e3249", ContentHash("abc", "", 0))
	assert.Equal(t, ContentHash("ab", "c", 0), ContentHash("abc", "", 0))
}

func TestKey_RejectsBlankFields(t *testing.T) {
	_, err := Key("   ", "https://example.com", 1)
	require.ErrorIs(t, err, model.ErrInvalidArticle)

	_, err = Key("title", "\t\n", 1)
	require.ErrorIs(t, err, model.ErrInvalidArticle)

	key, err := Key("title", "https://example.com", 1)
	require.NoError(t, err)
	assert.Equal(t, ContentHash("title", "https://example.com", 1), key)
}
