package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"

	"github.com/kovalyov-valentin/newspulse/internal/botkit"
	"github.com/kovalyov-valentin/newspulse/internal/botkit/markup"
	"github.com/kovalyov-valentin/newspulse/internal/model"
)

type SourceLister interface {
	Sources(ctx context.Context) ([]model.Source, error)
}

func ViewCmdListSources(lister SourceLister) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		sources, err := lister.Sources(ctx)
		if err != nil {
			return err
		}

		if len(sources) == 0 {
			return sendText(bot, update.Message.Chat.ID, "Источников пока нет. Добавьте первый через /addsource")
		}

		msgText := fmt.Sprintf(
			"Список источников \\(всего %d\\):\n\n%s",
			len(sources),
			strings.Join(lo.Map(sources, func(source model.Source, _ int) string {
				return formatSource(source)
			}), "\n\n"),
		)

		reply := tgbotapi.NewMessage(update.Message.Chat.ID, msgText)
		reply.ParseMode = tgbotapi.ModeMarkdownV2

		_, err = bot.Send(reply)
		return err
	}
}

// Вывод форматированной информации об источнике
func formatSource(source model.Source) string {
	status := "✅"
	if !source.Enabled {
		status = "⏸"
	}

	feed := source.FeedURL
	if feed == "" {
		feed = "не задан"
	}

	return fmt.Sprintf(
		"%s %s\nID: %s, приоритет: %d\nРегион: %s\nURL фида: %s",
		status,
		markup.Bold(source.Name),
		markup.Code(fmt.Sprint(source.ID)),
		source.Priority,
		markup.EscapeForMarkdown(lo.Ternary(source.Region == "", "-", source.Region)),
		markup.EscapeForMarkdown(feed),
	)
}
