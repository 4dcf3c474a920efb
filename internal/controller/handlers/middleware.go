package handlers

import (
	"context"
	"errors"

	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const textNotRegistered = "❌ Пользователь не найден. Используйте /start для регистрации."

// requireUser находит зарегистрированного пользователя по отправителю сообщения
func (h *Handlers) requireUser(ctx context.Context, b *bot.Bot, update *models.Update) (*model.User, bool) {
	if update.Message == nil || update.Message.From == nil {
		return nil, false
	}

	telegramID := update.Message.From.ID
	user, err := h.userService.GetByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			h.sendMessage(ctx, b, update.Message.Chat.ID, textNotRegistered, nil)
			return nil, false
		}
		h.logger.Error("Failed to get user", zap.Int64("telegram_id", telegramID), zap.Error(err))
		h.sendMessage(ctx, b, update.Message.Chat.ID, "❌ Произошла ошибка. Попробуйте позже.", nil)
		return nil, false
	}

	return user, true
}

// requireCallbackUser то же для нажатия кнопки; ошибки показываются всплывающим окном
func (h *Handlers) requireCallbackUser(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery) (*model.User, bool) {
	telegramID := callback.From.ID
	user, err := h.userService.GetByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			h.answerAlert(ctx, b, callback.ID, textNotRegistered)
			return nil, false
		}
		h.logger.Error("Failed to get user", zap.Int64("telegram_id", telegramID), zap.Error(err))
		h.answerAlert(ctx, b, callback.ID, "❌ Произошла ошибка. Попробуйте позже.")
		return nil, false
	}

	return user, true
}
