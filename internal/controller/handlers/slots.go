package handlers

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/slotswap_bot/internal/controller/callbacks"
	"github.com/Freeeeeet/slotswap_bot/internal/controller/formatting"
	"github.com/Freeeeeet/slotswap_bot/internal/controller/weekimage"
	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// local копия слота со временем в часовом поясе бота
func (h *Handlers) local(slot *model.Slot) *model.Slot {
	out := *slot
	out.StartTime = slot.StartTime.In(h.location)
	out.EndTime = slot.EndTime.In(h.location)
	return &out
}

// HandleMySlots показывает слоты пользователя, каждый со своими кнопками
func (h *Handlers) HandleMySlots(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	slots, err := h.slotService.ListMySlots(ctx, user.ID)
	if err != nil {
		h.logger.Error("Failed to list slots", zap.Int64("user_id", user.ID), zap.Error(err))
		h.sendMessage(ctx, b, chatID, formatting.ErrorText(err), nil)
		return
	}

	if len(slots) == 0 {
		h.sendMessage(ctx, b, chatID, "📭 У вас пока нет слотов.\n\nСоздать: /newslot", nil)
		return
	}

	h.sendMessage(ctx, b, chatID, fmt.Sprintf("🗓 Ваши слоты (%d):", len(slots)), nil)
	for _, slot := range slots {
		h.sendMessage(ctx, b, chatID, formatting.SlotCard(h.local(slot)), callbacks.SlotActions(slot))
	}
}

// HandleExport отправляет слоты пользователя файлом .ics
func (h *Handlers) HandleExport(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	data, err := h.queryService.ExportCalendar(ctx, user.ID)
	if err != nil {
		h.logger.Error("Failed to export calendar", zap.Int64("user_id", user.ID), zap.Error(err))
		h.sendMessage(ctx, b, chatID, formatting.ErrorText(err), nil)
		return
	}

	_, err = b.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:   chatID,
		Document: &models.InputFileUpload{Filename: "slots.ics", Data: bytes.NewReader(data)},
		Caption:  "📅 Ваши слоты. Откройте файл, чтобы добавить их в календарь.",
	})
	if err != nil {
		h.logger.Error("Failed to send calendar", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// HandleWeek рисует текущую неделю слотов пользователя
func (h *Handlers) HandleWeek(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	slots, err := h.slotService.ListMySlots(ctx, user.ID)
	if err != nil {
		h.logger.Error("Failed to list slots", zap.Int64("user_id", user.ID), zap.Error(err))
		h.sendMessage(ctx, b, chatID, formatting.ErrorText(err), nil)
		return
	}

	now := time.Now().In(h.location)
	imageData, err := weekimage.Render(now, slots, now)
	if err != nil {
		h.logger.Error("Failed to render week image", zap.Int64("user_id", user.ID), zap.Error(err))
		h.sendMessage(ctx, b, chatID, formatting.ErrorText(err), nil)
		return
	}

	_, err = b.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:  chatID,
		Photo:   &models.InputFileUpload{Filename: "week.png", Data: bytes.NewReader(imageData)},
		Caption: "🗓 Ваши слоты на эту неделю",
	})
	if err != nil {
		h.logger.Error("Failed to send week image", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
