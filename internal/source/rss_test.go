package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kovalyov-valentin/newspulse/internal/dedup"
	"github.com/kovalyov-valentin/newspulse/internal/logging"
	"github.com/kovalyov-valentin/newspulse/internal/model"
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.Timeout = 200 * time.Millisecond
	opts.BackoffBase = 0
	return opts
}

func newTestSource(url string, opts Options) RSSSource {
	client := NewClient(opts, logging.Discard())
	return client.Source(model.Source{ID: 42, Name: "test", FeedURL: url})
}

func TestRSSSource_Fetch(t *testing.T) {
	var userAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rss2Feed))
	}))
	defer srv.Close()

	result, err := newTestSource(srv.URL, testOptions()).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Articles, 2)

	assert.Equal(t, DefaultOptions().UserAgent, userAgent)

	article := result.Articles[0]
	assert.Equal(t, int64(42), article.SourceID)
	assert.Equal(t, model.StatusPending, article.Processed)
	assert.Equal(t, dedup.ContentHash(article.Title, article.Link, 42), article.ContentHash)
	assert.Nil(t, result.Articles[1].PublishedAt)
}

func TestRSSSource_PermanentStatusIsNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestSource(srv.URL, testOptions()).Fetch(context.Background())
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestRSSSource_TransientStatusIsRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(rss2Feed))
	}))
	defer srv.Close()

	result, err := newTestSource(srv.URL, testOptions()).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.Articles, 2)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestRSSSource_TimeoutExhaustsRetries(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	opts := testOptions()
	opts.Timeout = 50 * time.Millisecond

	_, err := newTestSource(srv.URL, opts).Fetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestRSSSource_NoFeedURL(t *testing.T) {
	_, err := newTestSource("  ", testOptions()).Fetch(context.Background())
	require.ErrorIs(t, err, ErrNoFeedURL)
}

func TestRSSSource_EntriesWithoutTitleAreSkipped(t *testing.T) {
	feed := `<?xml version="1.0"?>
<rss version="2.0"><channel><title>t</title><link>https://x.example</link><description>d</description>
<item><title>   </title><link>https://x.example/1</link></item>
<item><title>Good one</title><link>https://x.example/2</link></item>
</channel></rss>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(feed))
	}))
	defer srv.Close()

	result, err := newTestSource(srv.URL, testOptions()).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Articles, 1)
	assert.Equal(t, "Good one", result.Articles[0].Title)
	assert.Len(t, result.Warnings, 1)
}

func TestRSSSource_AllEntriesInvalid(t *testing.T) {
	feed := `<?xml version="1.0"?>
<rss version="2.0"><channel><title>t</title><link>https://x.example</link><description>d</description>
<item><title> </title><link>https://x.example/blank</link></item>
</channel></rss>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(feed))
	}))
	defer srv.Close()

	_, err := newTestSource(srv.URL, testOptions()).Fetch(context.Background())
	require.ErrorIs(t, err, model.ErrEmptyFeed)
}

func TestItemShouldBeSkipped(t *testing.T) {
	keywords := []string{"sports", "Celebrity"}

	assert.True(t, itemShouldBeSkipped(model.Item{Title: "Football and SPORTS betting"}, keywords))
	assert.True(t, itemShouldBeSkipped(model.Item{Title: "x", Categories: []string{"celebrity"}}, keywords))
	assert.False(t, itemShouldBeSkipped(model.Item{Title: "Payments news"}, keywords))
	assert.False(t, itemShouldBeSkipped(model.Item{Title: "sports"}, nil))
}

func TestStatusError_Transient(t *testing.T) {
	assert.True(t, (&StatusError{Code: 503}).Transient())
	assert.True(t, (&StatusError{Code: 429}).Transient())
	assert.True(t, (&StatusError{Code: 408}).Transient())
	assert.False(t, (&StatusError{Code: 404}).Transient())
	assert.False(t, (&StatusError{Code: 403}).Transient())
}
