package botkit

import (
	"context"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Сколько времени даем одной команде. /fetch обходит все источники, поэтому с запасом
const updateTimeout = 5 * time.Minute

type Bot struct {
	// Инстанс апи телеграма
	api *tgbotapi.BotAPI
	// Мапа в которой будем хранить view
	cmdViews map[string]ViewFunc
	logger   *slog.Logger
}

// Update здесь это любой эвент, который приходит от телеграма при взаимодействии пользователя с ботом.
// Это функция которая будет реагировать на определенную команду
type ViewFunc func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error

func New(api *tgbotapi.BotAPI, logger *slog.Logger) *Bot {
	return &Bot{
		api:      api,
		cmdViews: make(map[string]ViewFunc),
		logger:   logger.With("component", "bot"),
	}
}

// Метод для регистрации View для команды
func (b *Bot) RegisterCmdView(cmd string, view ViewFunc) {
	b.cmdViews[strings.ToLower(cmd)] = view
}

func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	b.logger.Info("bot started", "username", b.api.Self.UserName)

	for {
		select {
		case update := <-updates:
			updateCtx, updateCancel := context.WithTimeout(ctx, updateTimeout)
			b.HandleUpdate(updateCtx, update)
			updateCancel()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// HandleUpdate роутит команду на соответствующую view.
// Паника во view не роняет бота, пользователь получает сообщение об ошибке
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if p := recover(); p != nil {
			b.logger.Error("panic recovered", "panic", p, "stack", string(debug.Stack()))
		}
	}()

	if update.Message == nil || !update.Message.IsCommand() {
		return
	}

	// Сообщение может содержать не только команду, но и аргументы
	cmd := strings.ToLower(update.Message.Command())

	view, ok := b.cmdViews[cmd]
	if !ok {
		return
	}

	if err := view(ctx, b.api, update); err != nil {
		b.logger.Error("failed to handle command", "command", cmd, "error", err)

		if _, err := b.api.Send(
			tgbotapi.NewMessage(update.Message.Chat.ID, "Внутренняя ошибка, попробуйте позже"),
		); err != nil {
			b.logger.Error("failed to send message", "error", err)
		}
	}
}
