package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"github.com/kovalyov-valentin/newspulse/internal/model"
)

// Журнал обходов источников (таблица scraping_sessions)
type RunPostgresStorage struct {
	conn
}

func NewRunStorage(db *sqlx.DB) *RunPostgresStorage {
	return &RunPostgresStorage{conn: conn{db: db}}
}

func (s *RunPostgresStorage) SaveRun(ctx context.Context, run model.SourceRun) error {
	warnings, err := json.Marshal(lo.Ternary(run.Warnings == nil, []string{}, run.Warnings))
	if err != nil {
		return err
	}

	_, err = s.from(ctx).ExecContext(
		ctx,
		`INSERT INTO scraping_sessions
			(source_id, started_at, completed_at, status, articles_found, articles_new,
			articles_duplicate, errors, error_message, warnings)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		run.SourceID,
		run.StartedAt,
		run.CompletedAt,
		string(run.Status),
		run.Found,
		run.New,
		run.Duplicate,
		run.Errors,
		run.ErrorMessage,
		string(warnings),
	)
	if err != nil {
		return fmt.Errorf("insert source run: %w", err)
	}

	return nil
}

// RecentRuns возвращает последние обходы источника, свежие первыми
func (s *RunPostgresStorage) RecentRuns(ctx context.Context, sourceID int64, limit int) ([]model.SourceRun, error) {
	var rows []dbSourceRun

	err := s.from(ctx).SelectContext(ctx, &rows, `
		SELECT r.id, r.source_id, s.name AS source_name, r.started_at, r.completed_at, r.status,
			r.articles_found, r.articles_new, r.articles_duplicate, r.errors, r.error_message, r.warnings
		FROM scraping_sessions r
		JOIN news_sources s ON s.id = r.source_id
		WHERE r.source_id = $1
		ORDER BY r.started_at DESC
		LIMIT $2`, sourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("select source runs: %w", err)
	}

	runs := make([]model.SourceRun, 0, len(rows))
	for _, row := range rows {
		run := model.SourceRun{
			ID:           row.ID,
			SourceID:     row.SourceID,
			SourceName:   row.SourceName,
			StartedAt:    row.StartedAt,
			Status:       model.RunStatus(row.Status),
			Found:        row.Found,
			New:          row.New,
			Duplicate:    row.Duplicate,
			Errors:       row.Errors,
			ErrorMessage: row.ErrorMessage,
			Warnings:     []string{},
		}
		if row.CompletedAt != nil {
			run.CompletedAt = *row.CompletedAt
		}
		if err := unmarshalJSONB(row.Warnings, &run.Warnings); err != nil {
			return nil, fmt.Errorf("source run %d warnings: %w", row.ID, err)
		}
		runs = append(runs, run)
	}

	return runs, nil
}

type dbSourceRun struct {
	ID           int64      `db:"id"`
	SourceID     int64      `db:"source_id"`
	SourceName   string     `db:"source_name"`
	StartedAt    time.Time  `db:"started_at"`
	CompletedAt  *time.Time `db:"completed_at"`
	Status       string     `db:"status"`
	Found        int        `db:"articles_found"`
	New          int        `db:"articles_new"`
	Duplicate    int        `db:"articles_duplicate"`
	Errors       int        `db:"errors"`
	ErrorMessage string     `db:"error_message"`
	Warnings     []byte     `db:"warnings"`
}
