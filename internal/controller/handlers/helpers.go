package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// replyMarkup не отдаёт типизированный nil в интерфейс
func replyMarkup(kb *models.InlineKeyboardMarkup) models.ReplyMarkup {
	if kb == nil {
		return nil
	}
	return kb
}

// sendMessage отправляет сообщение и логирует если не удалось
func (h *Handlers) sendMessage(ctx context.Context, b *bot.Bot, chatID int64, text string, kb *models.InlineKeyboardMarkup) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: replyMarkup(kb),
	})
	if err != nil {
		h.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}

// editMessage заменяет текст сообщения с кнопкой; старые сообщения недоступны для правки
func (h *Handlers) editMessage(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, text string, kb *models.InlineKeyboardMarkup) {
	msg := callback.Message.Message
	if msg == nil {
		h.sendMessage(ctx, b, callback.From.ID, text, kb)
		return
	}

	_, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      msg.Chat.ID,
		MessageID:   msg.ID,
		Text:        text,
		ReplyMarkup: replyMarkup(kb),
	})
	if err != nil {
		h.logger.Warn("Failed to edit message",
			zap.Int64("chat_id", msg.Chat.ID),
			zap.Int("message_id", msg.ID),
			zap.Error(err),
		)
	}
}

// answer отвечает на callback query (без alert)
func (h *Handlers) answer(ctx context.Context, b *bot.Bot, callbackID string, text string) {
	h.answerCallback(ctx, b, callbackID, text, false)
}

// answerAlert отвечает на callback query всплывающим окном
func (h *Handlers) answerAlert(ctx context.Context, b *bot.Bot, callbackID string, text string) {
	h.answerCallback(ctx, b, callbackID, text, true)
}

func (h *Handlers) answerCallback(ctx context.Context, b *bot.Bot, callbackID string, text string, alert bool) {
	_, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	})
	if err != nil {
		h.logger.Warn("Failed to answer callback", zap.Error(err))
	}
}
