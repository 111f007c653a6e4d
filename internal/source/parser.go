package source

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/SlyMarbo/rss"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"github.com/kovalyov-valentin/newspulse/internal/model"
)

var ErrMalformedFeed = errors.New("malformed feed")

// Разобранная лента и предупреждения, если разбор был не идеальным
type ParsedFeed struct {
	Items    []model.Item
	Warnings []string
}

// Parser разбирает байты ленты в список записей.
// Сначала пробуем строгий парсер SlyMarbo/rss, если он не справился - более терпимый gofeed.
type Parser struct {
	fallback *gofeed.Parser
	// Вычищает html из описаний, в лентах его полно
	policy *bluemonday.Policy
}

func NewParser() *Parser {
	return &Parser{
		fallback: gofeed.NewParser(),
		policy:   bluemonday.StrictPolicy(),
	}
}

func (p *Parser) Parse(data []byte) (ParsedFeed, error) {
	feed, err := rss.Parse(data)
	if err == nil {
		return ParsedFeed{Items: p.fromRSS(feed)}, nil
	}

	// Строгий парсер упал, пробуем разобрать хоть что-то
	parsed, fbErr := p.fallback.Parse(bytes.NewReader(data))
	if fbErr != nil {
		return ParsedFeed{}, fmt.Errorf("%w: %v; fallback: %v", ErrMalformedFeed, err, fbErr)
	}

	return ParsedFeed{
		Items:    p.fromGofeed(parsed),
		Warnings: []string{fmt.Sprintf("feed parsed with fallback parser: %v", err)},
	}, nil
}

func (p *Parser) fromRSS(feed *rss.Feed) []model.Item {
	items := make([]model.Item, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}

		var date *time.Time
		// Если дата не распарсилась, оставляем nil, а не подставляем текущее время
		if item.DateValid {
			d := item.Date.UTC()
			date = &d
		}

		summary := item.Summary
		if summary == "" {
			summary = item.Content
		}

		items = append(items, model.Item{
			Title:      item.Title,
			Categories: item.Categories,
			Link:       item.Link,
			Date:       date,
			Summary:    p.cleanText(summary),
		})
	}

	return items
}

func (p *Parser) fromGofeed(feed *gofeed.Feed) []model.Item {
	items := make([]model.Item, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}

		var date *time.Time
		switch {
		case item.PublishedParsed != nil:
			d := item.PublishedParsed.UTC()
			date = &d
		case item.UpdatedParsed != nil:
			d := item.UpdatedParsed.UTC()
			date = &d
		}

		summary := item.Description
		if summary == "" {
			summary = item.Content
		}

		items = append(items, model.Item{
			Title:      item.Title,
			Categories: item.Categories,
			Link:       item.Link,
			Date:       date,
			Summary:    p.cleanText(summary),
		})
	}

	return items
}

// bluemonday экранирует сущности, поэтому после чистки возвращаем их обратно
func (p *Parser) cleanText(s string) string {
	if s == "" {
		return ""
	}

	return strings.TrimSpace(html.UnescapeString(p.policy.Sanitize(s)))
}
