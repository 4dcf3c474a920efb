package controller

import (
	"context"
	"time"

	"github.com/Freeeeeet/slotswap_bot/internal/controller/handlers"
	"github.com/Freeeeeet/slotswap_bot/internal/controller/state"
	"github.com/Freeeeeet/slotswap_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Services сервисы, которые использует бот
type Services struct {
	Users   *service.UserService
	Slots   *service.SlotService
	Swaps   *service.SwapService
	Queries *service.QueryService
}

type BotController struct {
	bot      *bot.Bot
	handlers *handlers.Handlers
	logger   *zap.Logger
}

func NewBotController(botInstance *bot.Bot, services Services, location *time.Location, logger *zap.Logger) *BotController {
	cmdHandlers := handlers.NewHandlers(
		services.Users,
		services.Slots,
		services.Swaps,
		services.Queries,
		state.NewManager(),
		location,
		logger,
	)

	return &BotController{
		bot:      botInstance,
		handlers: cmdHandlers,
		logger:   logger,
	}
}

// RegisterHandlers регистрирует все обработчики команд
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	commands := map[string]bot.HandlerFunc{
		"/start":    c.handlers.HandleStart,
		"/help":     c.handlers.HandleHelp,
		"/cancel":   c.handlers.HandleCancel,
		"/newslot":  c.handlers.HandleNewSlot,
		"/myslots":  c.handlers.HandleMySlots,
		"/week":     c.handlers.HandleWeek,
		"/export":   c.handlers.HandleExport,
		"/market":   c.handlers.HandleMarket,
		"/incoming": c.handlers.HandleIncoming,
		"/outgoing": c.handlers.HandleOutgoing,
	}
	for command, handler := range commands {
		c.bot.RegisterHandler(bot.HandlerTypeMessageText, command, bot.MatchTypeExact, handler)
	}

	// Обработчик текстовых сообщений (для диалогов с состояниями)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, c.handlers.HandleTextMessage)

	// Обработчик нажатий на inline кнопки
	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, c.handlers.HandleCallbackQuery)

	return c.setCommands(ctx)
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "newslot", Description: "➕ Создать слот"},
		{Command: "myslots", Description: "🗓 Мои слоты"},
		{Command: "market", Description: "🔁 Слоты для обмена"},
		{Command: "incoming", Description: "📨 Входящие запросы"},
		{Command: "outgoing", Description: "📤 Мои запросы"},
		{Command: "week", Description: "🖼 Неделя картинкой"},
		{Command: "export", Description: "📅 Выгрузить в календарь"},
		{Command: "help", Description: "❓ Справка по командам"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})
	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("Bot commands menu set")
	return nil
}

// Start запускает long polling и блокируется до отмены ctx
func (c *BotController) Start(ctx context.Context) error {
	c.logger.Info("Starting bot")
	c.bot.Start(ctx)
	c.logger.Info("Bot stopped")
	return nil
}
