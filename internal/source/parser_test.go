package source

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rss2Feed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Fintech News</title>
    <link>https://fintech.example</link>
    <description>news</description>
    <item>
      <title>Stripe launches in Malaysia</title>
      <link>https://fintech.example/stripe-malaysia</link>
      <description>&lt;p&gt;Payments &lt;b&gt;giant&lt;/b&gt; expands&lt;/p&gt;</description>
      <pubDate>Mon, 02 Jan 2006 15:04:05 +0000</pubDate>
      <category>payments</category>
    </item>
    <item>
      <title>No date here</title>
      <link>https://fintech.example/no-date</link>
      <description>plain text</description>
    </item>
  </channel>
</rss>`

const atomFeed = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom News</title>
  <id>urn:uuid:feed</id>
  <updated>2024-03-01T10:00:00Z</updated>
  <entry>
    <title>Neobank raises Series B</title>
    <link href="https://atom.example/neobank"/>
    <id>urn:uuid:1</id>
    <updated>2024-03-01T10:00:00Z</updated>
    <summary>Digital banking startup</summary>
  </entry>
</feed>`

const jsonFeed = `{
  "version": "https://jsonfeed.org/version/1.1",
  "title": "JSON News",
  "items": [
    {
      "id": "1",
      "url": "https://json.example/wallet",
      "title": "Digital wallet adoption grows",
      "summary": "Wallets everywhere",
      "date_published": "2024-05-06T07:08:09Z"
    }
  ]
}`

func TestParser_RSS2(t *testing.T) {
	feed, err := NewParser().Parse([]byte(rss2Feed))
	require.NoError(t, err)
	require.Len(t, feed.Items, 2)
	assert.Empty(t, feed.Warnings)

	first := feed.Items[0]
	assert.Equal(t, "Stripe launches in Malaysia", first.Title)
	assert.Equal(t, "https://fintech.example/stripe-malaysia", first.Link)
	assert.Equal(t, "Payments giant expands", first.Summary)
	require.NotNil(t, first.Date)
	assert.True(t, first.Date.Equal(time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC)))

	// Отсутствующая дата остается пустой, а не "сейчас"
	assert.Nil(t, feed.Items[1].Date)
}

func TestParser_Atom(t *testing.T) {
	feed, err := NewParser().Parse([]byte(atomFeed))
	require.NoError(t, err)
	require.Len(t, feed.Items, 1)

	assert.Equal(t, "Neobank raises Series B", feed.Items[0].Title)
	assert.Equal(t, "https://atom.example/neobank", feed.Items[0].Link)
}

func TestParser_FallbackWithWarning(t *testing.T) {
	feed, err := NewParser().Parse([]byte(jsonFeed))
	require.NoError(t, err)
	require.Len(t, feed.Items, 1)
	require.Len(t, feed.Warnings, 1)

	item := feed.Items[0]
	assert.Equal(t, "Digital wallet adoption grows", item.Title)
	assert.Equal(t, "https://json.example/wallet", item.Link)
	require.NotNil(t, item.Date)
	assert.Equal(t, 2024, item.Date.Year())
}

func TestParser_Garbage(t *testing.T) {
	_, err := NewParser().Parse([]byte("definitely not a feed"))
	require.ErrorIs(t, err, ErrMalformedFeed)
}

func TestParser_CleanText(t *testing.T) {
	p := NewParser()

	assert.Equal(t, "AT&T buys a bank", p.cleanText("<div>AT&amp;T buys <i>a</i> bank</div>"))
	assert.Equal(t, "", p.cleanText(""))
}
