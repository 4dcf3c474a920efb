package handlers

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/slotswap_bot/internal/controller/callbacks"
	"github.com/Freeeeeet/slotswap_bot/internal/controller/formatting"
	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// localRequest копия запроса со слотами в часовом поясе бота
func (h *Handlers) localRequest(req *model.SwapRequest) *model.SwapRequest {
	out := *req
	if req.RequesterSlot != nil {
		out.RequesterSlot = h.local(req.RequesterSlot)
	}
	if req.TargetSlot != nil {
		out.TargetSlot = h.local(req.TargetSlot)
	}
	return &out
}

// HandleMarket показывает чужие слоты, доступные для обмена
func (h *Handlers) HandleMarket(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	slots, err := h.queryService.ListSwappable(ctx, user.ID)
	if err != nil {
		h.logger.Error("Failed to list swappable slots", zap.Int64("user_id", user.ID), zap.Error(err))
		h.sendMessage(ctx, b, chatID, formatting.ErrorText(err), nil)
		return
	}

	if len(slots) == 0 {
		h.sendMessage(ctx, b, chatID, "📭 Сейчас никто не предлагает слоты для обмена.", nil)
		return
	}

	h.sendMessage(ctx, b, chatID, fmt.Sprintf("🔁 Доступно для обмена (%d):", len(slots)), nil)
	for _, slot := range slots {
		h.sendMessage(ctx, b, chatID, formatting.SlotCard(h.local(slot)), callbacks.MarketOffer(slot))
	}
}

// HandleIncoming показывает входящие запросы; на ожидающие можно ответить
func (h *Handlers) HandleIncoming(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	requests, err := h.queryService.ListIncoming(ctx, user.ID)
	if err != nil {
		h.logger.Error("Failed to list incoming requests", zap.Int64("user_id", user.ID), zap.Error(err))
		h.sendMessage(ctx, b, chatID, formatting.ErrorText(err), nil)
		return
	}

	if len(requests) == 0 {
		h.sendMessage(ctx, b, chatID, "📭 Входящих запросов нет.", nil)
		return
	}

	for _, req := range requests {
		h.sendMessage(ctx, b, chatID, formatting.IncomingCard(h.localRequest(req)), callbacks.RequestActions(req))
	}
}

// HandleOutgoing показывает отправленные пользователем запросы
func (h *Handlers) HandleOutgoing(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	requests, err := h.queryService.ListOutgoing(ctx, user.ID)
	if err != nil {
		h.logger.Error("Failed to list outgoing requests", zap.Int64("user_id", user.ID), zap.Error(err))
		h.sendMessage(ctx, b, chatID, formatting.ErrorText(err), nil)
		return
	}

	if len(requests) == 0 {
		h.sendMessage(ctx, b, chatID, "📭 Вы ещё не отправляли запросов. Загляните в /market", nil)
		return
	}

	for _, req := range requests {
		h.sendMessage(ctx, b, chatID, formatting.OutgoingCard(h.localRequest(req)), nil)
	}
}

// notifyUser пишет пользователю userID. Ошибка только логируется:
// обмен уже зафиксирован и от доставки не зависит.
func (h *Handlers) notifyUser(ctx context.Context, b *bot.Bot, userID int64, text string, kb *models.InlineKeyboardMarkup) {
	user, err := h.userService.GetByID(ctx, userID)
	if err != nil {
		h.logger.Warn("Failed to load user for notification", zap.Int64("user_id", userID), zap.Error(err))
		return
	}

	_, err = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      user.TelegramID,
		Text:        text,
		ReplyMarkup: replyMarkup(kb),
	})
	if err != nil {
		h.logger.Warn("Failed to notify user",
			zap.Int64("user_id", userID),
			zap.Int64("telegram_id", user.TelegramID),
			zap.Error(err),
		)
	}
}
