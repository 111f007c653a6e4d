package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kovalyov-valentin/newspulse/internal/botkit"
	"github.com/kovalyov-valentin/newspulse/internal/botkit/markup"
	"github.com/kovalyov-valentin/newspulse/internal/model"
)

const addSourceUsage = "Использование: /addsource {\"name\": \"e27\", \"url\": \"https://e27.co/feed/\", \"region\": \"Southeast Asia\", \"priority\": 2}"

type SourceStorage interface {
	Add(ctx context.Context, source model.Source) (int64, error)
}

// Метод для добавления источника в БД
func ViewCmdAddSource(storage SourceStorage) botkit.ViewFunc {
	type addSourceArgs struct {
		Name       string `json:"name"`
		URL        string `json:"url"`
		WebsiteURL string `json:"website_url"`
		Region     string `json:"region"`
		Language   string `json:"language"`
		Priority   *int   `json:"priority"`
	}

	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		args, err := botkit.ParseJSON[addSourceArgs](update.Message.CommandArguments())
		if err != nil || strings.TrimSpace(args.Name) == "" || strings.TrimSpace(args.URL) == "" {
			// Некорректный ввод - это не ошибка бота, просто подсказываем формат
			return sendText(bot, update.Message.Chat.ID, addSourceUsage)
		}

		// Воссоздаем метаинформацию об источнике из аргументов
		source := model.Source{
			Name:       strings.TrimSpace(args.Name),
			FeedURL:    strings.TrimSpace(args.URL),
			WebsiteURL: args.WebsiteURL,
			Region:     args.Region,
			Language:   args.Language,
			Priority:   1,
			Enabled:    true,
		}
		if source.Language == "" {
			source.Language = "en"
		}
		if args.Priority != nil {
			source.Priority = *args.Priority
		}

		sourceID, err := storage.Add(ctx, source)
		if errors.Is(err, model.ErrSourceExists) {
			return sendText(bot, update.Message.Chat.ID, "Источник с таким именем уже есть")
		}
		if err != nil {
			return err
		}

		reply := tgbotapi.NewMessage(update.Message.Chat.ID, fmt.Sprintf(
			"Источник %s добавлен с ID: %s\\. Используйте этот ID для управления источником\\.",
			markup.Bold(source.Name),
			markup.Code(fmt.Sprint(sourceID)),
		))
		reply.ParseMode = tgbotapi.ModeMarkdownV2

		_, err = bot.Send(reply)
		return err
	}
}

func sendText(bot *tgbotapi.BotAPI, chatID int64, text string) error {
	_, err := bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}
