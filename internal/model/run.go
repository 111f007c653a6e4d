package model

import (
	"fmt"
	"time"
)

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunSkipped   RunStatus = "skipped"
)

// Запись об обходе одного источника
type SourceRun struct {
	ID           int64
	SourceID     int64
	SourceName   string
	StartedAt    time.Time
	CompletedAt  time.Time
	Status       RunStatus
	Found        int
	New          int
	Duplicate    int
	Errors       int
	ErrorMessage string
	Warnings     []string
}

// Fail помечает обход неудачным, в сообщении есть имя источника
func (r *SourceRun) Fail(err error) {
	r.Status = RunFailed
	r.Errors++
	r.ErrorMessage = fmt.Sprintf("%s: %v", r.SourceName, err)
}

// Сводка по всему запуску сборщика
type FetchSummary struct {
	TotalSources      int       `json:"total_sources"`
	SuccessfulSources int       `json:"successful_sources"`
	FailedSources     int       `json:"failed_sources"`
	SkippedSources    int       `json:"skipped_sources"`
	TotalFound        int       `json:"total_articles_found"`
	TotalNew          int       `json:"total_articles_new"`
	TotalDuplicates   int       `json:"total_articles_duplicate"`
	TotalErrors       int       `json:"total_errors"`
	Errors            []string  `json:"errors"`
	StartedAt         time.Time `json:"started_at"`
	CompletedAt       time.Time `json:"completed_at"`
}

// Add учитывает результат одного источника в сводке
func (s *FetchSummary) Add(run SourceRun) {
	s.TotalSources++
	s.TotalFound += run.Found
	s.TotalNew += run.New
	s.TotalDuplicates += run.Duplicate
	s.TotalErrors += run.Errors

	switch run.Status {
	case RunCompleted:
		s.SuccessfulSources++
	case RunSkipped:
		s.SkippedSources++
	default:
		s.FailedSources++
	}

	if run.ErrorMessage != "" {
		s.Errors = append(s.Errors, run.ErrorMessage)
	}
}

// Итог одного прохода классификатора
type BatchStats struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

type SourceStats struct {
	Source        Source
	ArticleCount  int
	LastArticleAt *time.Time
}

type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type PlatformStats struct {
	TotalArticles     int            `json:"total_articles"`
	TotalSources      int            `json:"total_sources"`
	EnabledSources    int            `json:"enabled_sources"`
	ProcessedArticles int            `json:"processed"`
	PendingArticles   int            `json:"pending"`
	FailedArticles    int            `json:"failed"`
	ArticlesLast24h   int            `json:"articles_last_24h"`
	Unclassified      int            `json:"unclassified"`
	AverageRelevance  float64        `json:"average_relevance_score"`
	CategoryBreakdown map[string]int `json:"category_counts"`
}
