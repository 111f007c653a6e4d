package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kovalyov-valentin/newspulse/internal/botkit"
	"github.com/kovalyov-valentin/newspulse/internal/botkit/markup"
	"github.com/kovalyov-valentin/newspulse/internal/fetcher"
	"github.com/kovalyov-valentin/newspulse/internal/model"
)

// Больше стольких ошибок в ответе не показываем
const maxShownErrors = 5

type FetchRunner interface {
	Fetch(ctx context.Context) (model.FetchSummary, error)
}

// ViewCmdFetch запускает внеочередной обход источников и присылает сводку
func ViewCmdFetch(runner FetchRunner) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		summary, err := runner.Fetch(ctx)
		if errors.Is(err, fetcher.ErrAlreadyRunning) {
			return sendText(bot, update.Message.Chat.ID, "Обход источников уже идет, дождитесь его окончания")
		}
		if err != nil {
			return err
		}

		reply := tgbotapi.NewMessage(update.Message.Chat.ID, formatSummary(summary))
		reply.ParseMode = tgbotapi.ModeMarkdownV2

		_, err = bot.Send(reply)
		return err
	}
}

func formatSummary(s model.FetchSummary) string {
	var b strings.Builder

	b.WriteString(markup.Bold("Обход завершен") + "\n\n")
	fmt.Fprintf(&b, "Источников: %d \\(успешно %d, с ошибкой %d, пропущено %d\\)\n",
		s.TotalSources, s.SuccessfulSources, s.FailedSources, s.SkippedSources)
	fmt.Fprintf(&b, "Статей найдено: %d, новых: %d, дублей: %d", s.TotalFound, s.TotalNew, s.TotalDuplicates)

	if len(s.Errors) > 0 {
		b.WriteString("\n\nОшибки:")
		for i, msg := range s.Errors {
			if i == maxShownErrors {
				fmt.Fprintf(&b, "\n… и еще %d", len(s.Errors)-maxShownErrors)
				break
			}
			b.WriteString("\n• " + markup.EscapeForMarkdown(msg))
		}
	}

	return b.String()
}
