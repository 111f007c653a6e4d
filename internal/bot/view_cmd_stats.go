package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kovalyov-valentin/newspulse/internal/botkit"
	"github.com/kovalyov-valentin/newspulse/internal/botkit/markup"
	"github.com/kovalyov-valentin/newspulse/internal/model"
)

type StatsProvider interface {
	PlatformStats(ctx context.Context) (model.PlatformStats, error)
}

func ViewCmdStats(provider StatsProvider) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		stats, err := provider.PlatformStats(ctx)
		if err != nil {
			return err
		}

		reply := tgbotapi.NewMessage(update.Message.Chat.ID, formatStats(stats))
		reply.ParseMode = tgbotapi.ModeMarkdownV2

		_, err = bot.Send(reply)
		return err
	}
}

func formatStats(s model.PlatformStats) string {
	var b strings.Builder

	b.WriteString(markup.Bold("Статистика") + "\n\n")
	fmt.Fprintf(&b, "Статей: %d, за сутки: %d\n", s.TotalArticles, s.ArticlesLast24h)
	fmt.Fprintf(&b, "Без классификации: %d\n", s.Unclassified)
	fmt.Fprintf(&b, "Источников: %d, включено: %d\n", s.TotalSources, s.EnabledSources)
	b.WriteString("Средняя релевантность: " + markup.EscapeForMarkdown(fmt.Sprintf("%.1f", s.AverageRelevance)))

	if len(s.CategoryBreakdown) > 0 {
		names := make([]string, 0, len(s.CategoryBreakdown))
		for name := range s.CategoryBreakdown {
			names = append(names, name)
		}
		// Сначала самые частые категории
		sort.Slice(names, func(i, j int) bool {
			ci, cj := s.CategoryBreakdown[names[i]], s.CategoryBreakdown[names[j]]
			if ci != cj {
				return ci > cj
			}
			return names[i] < names[j]
		})

		b.WriteString("\n\nПо категориям:")
		for _, name := range names {
			fmt.Fprintf(&b, "\n• %s: %d", markup.EscapeForMarkdown(name), s.CategoryBreakdown[name])
		}
	}

	return b.String()
}
