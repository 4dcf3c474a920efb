package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/slotswap_bot/internal/controller/state"
	"github.com/Freeeeeet/slotswap_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const helpText = "📚 Справка по командам:\n\n" +
	"Мои слоты:\n" +
	"/newslot - Создать слот\n" +
	"/myslots - Мои слоты и управление ими\n" +
	"/week - Картинка с моими слотами на неделю\n" +
	"/export - Выгрузить слоты в календарь (.ics)\n\n" +
	"Обмен:\n" +
	"/market - Чужие слоты, доступные для обмена\n" +
	"/incoming - Входящие запросы на обмен\n" +
	"/outgoing - Мои запросы на обмен\n\n" +
	"/cancel - Отменить текущий диалог\n\n" +
	"Чтобы обменяться, отметьте свой слот «Можно обменять» в /myslots " +
	"и предложите его в обмен на слот из /market."

// HandleStart регистрирует пользователя или обновляет его профиль
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	from := update.Message.From

	user, err := h.userService.RegisterUser(ctx, service.TelegramProfile{
		TelegramID:   from.ID,
		Username:     from.Username,
		FirstName:    from.FirstName,
		LastName:     from.LastName,
		LanguageCode: from.LanguageCode,
	})
	if err != nil {
		h.logger.Error("Failed to register user", zap.Int64("telegram_id", from.ID), zap.Error(err))
		h.sendMessage(ctx, b, update.Message.Chat.ID, "❌ Произошла ошибка при регистрации. Попробуйте позже.", nil)
		return
	}

	welcome := fmt.Sprintf(
		"👋 Привет, %s!\n\n"+
			"Это бот для обмена слотами в расписании: отдайте неудобное время "+
			"и заберите удобное у другого участника.\n\n%s",
		user.DisplayName(),
		helpText,
	)

	// Счётчик входящих только подсказка, ошибку не показываем
	pending, err := h.queryService.CountPendingIncoming(ctx, user.ID)
	if err != nil {
		h.logger.Warn("Failed to count incoming requests", zap.Int64("user_id", user.ID), zap.Error(err))
	} else if pending > 0 {
		welcome += fmt.Sprintf("\n\n📨 Ждут вашего ответа: %d. Откройте /incoming.", pending)
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID, welcome, nil)
}

// HandleHelp обрабатывает команду /help
func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.sendMessage(ctx, b, update.Message.Chat.ID, helpText, nil)
}

// HandleCancel обрабатывает команду /cancel - отмена текущего диалога
func (h *Handlers) HandleCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	telegramID := update.Message.From.ID
	if h.stateManager.GetState(telegramID) == state.StateNone {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "❌ Нет активных операций для отмены.", nil)
		return
	}

	h.stateManager.ClearState(telegramID)
	h.sendMessage(ctx, b, update.Message.Chat.ID, "✅ Операция отменена.\n\nИспользуйте /help для просмотра доступных команд.", nil)
}

// HandleTextMessage передаёт текст в текущий шаг диалога
func (h *Handlers) HandleTextMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil || update.Message.Text == "" {
		return
	}

	// Команды обрабатываются своими handlers
	if strings.HasPrefix(update.Message.Text, "/") {
		return
	}

	telegramID := update.Message.From.ID
	currentState := h.stateManager.GetState(telegramID)

	h.logger.Debug("Text message",
		zap.Int64("telegram_id", telegramID),
		zap.String("state", string(currentState)))

	switch currentState {
	case state.StateSlotTitle:
		h.handleSlotTitleStep(ctx, b, update)
	case state.StateSlotStart:
		h.handleSlotStartStep(ctx, b, update)
	case state.StateSlotEnd:
		h.handleSlotEndStep(ctx, b, update)
	default:
		h.sendMessage(ctx, b, update.Message.Chat.ID, "🤔 Не понимаю. Используйте /help для просмотра доступных команд.", nil)
	}
}
