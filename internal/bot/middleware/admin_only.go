package middleware

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"

	"github.com/kovalyov-valentin/newspulse/internal/botkit"
)

// AdminOnly пропускает команду дальше, только если ее прислал администратор канала
func AdminOnly(channelID int64, next botkit.ViewFunc) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		if update.Message.From == nil {
			return nil
		}

		admins, err := bot.GetChatAdministrators(
			tgbotapi.ChatAdministratorsConfig{
				ChatConfig: tgbotapi.ChatConfig{
					ChatID: channelID,
				},
			},
		)
		if err != nil {
			return err
		}

		isAdmin := lo.ContainsBy(admins, func(admin tgbotapi.ChatMember) bool {
			return admin.User != nil && admin.User.ID == update.Message.From.ID
		})
		if isAdmin {
			return next(ctx, bot, update)
		}

		_, err = bot.Send(tgbotapi.NewMessage(update.Message.Chat.ID, "У вас нет прав для выполнения этой команды"))
		return err
	}
}
