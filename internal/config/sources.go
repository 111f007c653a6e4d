package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kovalyov-valentin/newspulse/internal/model"
)

type seedFile struct {
	Sources []seedSource `yaml:"sources"`
}

type seedSource struct {
	Name       string `yaml:"name"`
	WebsiteURL string `yaml:"website_url"`
	RSSURL     string `yaml:"rss_url"`
	Region     string `yaml:"region"`
	Language   string `yaml:"language"`
	Priority   int    `yaml:"priority"`
	Enabled    *bool  `yaml:"enabled"`
}

// LoadSeedSources читает начальный список источников из yaml.
// Источники без имени пропускаются, enabled по умолчанию true, language - en.
func LoadSeedSources(path string) ([]model.Source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed sources %s: %w", path, err)
	}

	return ParseSeedSources(raw)
}

func ParseSeedSources(raw []byte) ([]model.Source, error) {
	var file seedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse seed sources: %w", err)
	}

	sources := make([]model.Source, 0, len(file.Sources))
	for _, s := range file.Sources {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			continue
		}

		source := model.Source{
			Name:       name,
			WebsiteURL: strings.TrimSpace(s.WebsiteURL),
			FeedURL:    strings.TrimSpace(s.RSSURL),
			Region:     s.Region,
			Language:   s.Language,
			Priority:   s.Priority,
			Enabled:    true,
		}
		if source.Language == "" {
			source.Language = "en"
		}
		if source.Priority == 0 {
			source.Priority = 1
		}
		if s.Enabled != nil {
			source.Enabled = *s.Enabled
		}

		sources = append(sources, source)
	}

	return sources, nil
}
