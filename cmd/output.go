package main

import (
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/kovalyov-valentin/newspulse/internal/model"
)

// renderTable выводит таблицу без рамок, заголовок в верхнем регистре
func renderTable(w io.Writer, header []string, rows [][]string) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoWrap: tw.WrapNone,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoFormat: tw.On,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{
					ShowHeader: tw.Off,
				},
			},
		}),
	)

	table.Header(header)
	if err := table.Bulk(rows); err != nil {
		return err
	}

	return table.Render()
}

func printFetchSummary(w io.Writer, s model.FetchSummary) error {
	rows := [][]string{
		{"sources", strconv.Itoa(s.TotalSources)},
		{"successful", strconv.Itoa(s.SuccessfulSources)},
		{"failed", strconv.Itoa(s.FailedSources)},
		{"skipped", strconv.Itoa(s.SkippedSources)},
		{"articles found", strconv.Itoa(s.TotalFound)},
		{"articles new", strconv.Itoa(s.TotalNew)},
		{"duplicates", strconv.Itoa(s.TotalDuplicates)},
		{"duration", s.CompletedAt.Sub(s.StartedAt).Round(time.Millisecond).String()},
	}
	for _, msg := range s.Errors {
		rows = append(rows, []string{"error", msg})
	}

	return renderTable(w, []string{"metric", "value"}, rows)
}

func printBatchStats(w io.Writer, s model.BatchStats) error {
	return renderTable(w, []string{"total", "succeeded", "failed"}, [][]string{{
		strconv.Itoa(s.Total),
		strconv.Itoa(s.Succeeded),
		strconv.Itoa(s.Failed),
	}})
}

func printSourceStats(w io.Writer, stats []model.SourceStats) error {
	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		lastArticle := "-"
		if s.LastArticleAt != nil {
			lastArticle = s.LastArticleAt.UTC().Format(time.DateTime)
		}

		rows = append(rows, []string{
			strconv.FormatInt(s.Source.ID, 10),
			s.Source.Name,
			strconv.FormatBool(s.Source.Enabled),
			strconv.Itoa(s.Source.Priority),
			strconv.Itoa(s.ArticleCount),
			lastArticle,
		})
	}

	return renderTable(w, []string{"id", "name", "enabled", "priority", "articles", "last article"}, rows)
}
