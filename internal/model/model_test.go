package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArticleApply(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := Classification{
		PrimaryCategory:  "digital_banking",
		RelevanceScore:   80,
		ConfidenceLevel:  ConfidenceHigh,
		IndustrySegments: []string{"B2C"},
	}

	t.Run("pending becomes processed", func(t *testing.T) {
		a := Article{Processed: StatusPending}
		a.Apply(c, at)

		assert.Equal(t, StatusProcessed, a.Processed)
		assert.Equal(t, "digital_banking", a.PrimaryCategory)
		assert.Equal(t, 80, a.RelevanceScore)
		require.NotNil(t, a.ClassifiedAt)
		assert.Equal(t, at, *a.ClassifiedAt)
	})

	t.Run("failed status is kept", func(t *testing.T) {
		a := Article{Processed: StatusFailed}
		a.Apply(c, at)

		assert.Equal(t, StatusFailed, a.Processed)
		assert.Equal(t, ConfidenceHigh, a.ConfidenceLevel)
	})
}

func TestFetchSummaryAdd(t *testing.T) {
	var s FetchSummary

	s.Add(SourceRun{Status: RunCompleted, Found: 10, New: 7, Duplicate: 3})
	s.Add(SourceRun{Status: RunSkipped})

	failed := SourceRun{SourceName: "e27"}
	failed.Fail(errors.New("unexpected http status 503"))
	s.Add(failed)

	assert.Equal(t, 3, s.TotalSources)
	assert.Equal(t, 1, s.SuccessfulSources)
	assert.Equal(t, 1, s.SkippedSources)
	assert.Equal(t, 1, s.FailedSources)
	assert.Equal(t, 10, s.TotalFound)
	assert.Equal(t, 7, s.TotalNew)
	assert.Equal(t, 3, s.TotalDuplicates)
	assert.Equal(t, 1, s.TotalErrors)
	assert.Equal(t, []string{"e27: unexpected http status 503"}, s.Errors)
}
