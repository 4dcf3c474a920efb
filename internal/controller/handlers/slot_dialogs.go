package handlers

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Freeeeeet/slotswap_bot/internal/controller/callbacks"
	"github.com/Freeeeeet/slotswap_bot/internal/controller/formatting"
	"github.com/Freeeeeet/slotswap_bot/internal/controller/state"
	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"github.com/Freeeeeet/slotswap_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const timeInputHint = "Формат: ДД.ММ.ГГГГ ЧЧ:ММ, например 05.12.2024 14:30"

// HandleNewSlot начинает диалог создания слота
func (h *Handlers) HandleNewSlot(ctx context.Context, b *bot.Bot, update *models.Update) {
	if _, ok := h.requireUser(ctx, b, update); !ok {
		return
	}

	telegramID := update.Message.From.ID
	h.stateManager.ClearState(telegramID)
	h.stateManager.SetState(telegramID, state.StateSlotTitle)

	h.sendMessage(ctx, b, update.Message.Chat.ID,
		"📝 Новый слот\n\n"+
			"Шаг 1 из 4: Как назовём слот?\n\n"+
			"Например: Дежурство, Созвон с командой, Смена в кафе\n\n"+
			"Для отмены используйте /cancel", nil)
}

// startEditDialog начинает диалог редактирования слота slot
func (h *Handlers) startEditDialog(ctx context.Context, b *bot.Bot, telegramID int64, slot *model.Slot) {
	h.stateManager.ClearState(telegramID)
	h.stateManager.SetState(telegramID, state.StateSlotTitle)
	h.stateManager.SetData(telegramID, state.KeyEditSlot, slot.ID)

	h.sendMessage(ctx, b, telegramID,
		fmt.Sprintf("✏️ Редактирование слота\n\n%s\n\n"+
			"Шаг 1 из 3: Введите новое название\n\n"+
			"Для отмены используйте /cancel", formatting.SlotCard(slot)), nil)
}

// editing возвращает ID редактируемого слота, если идёт редактирование
func (h *Handlers) editing(telegramID int64) (uuid.UUID, bool) {
	return h.stateManager.GetUUID(telegramID, state.KeyEditSlot)
}

func (h *Handlers) stepsTotal(telegramID int64) int {
	if _, ok := h.editing(telegramID); ok {
		return 3
	}
	return 4
}

func (h *Handlers) handleSlotTitleStep(ctx context.Context, b *bot.Bot, update *models.Update) {
	telegramID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	title := strings.TrimSpace(update.Message.Text)

	if title == "" {
		h.sendMessage(ctx, b, chatID, "❌ Название не может быть пустым.\n\nПопробуйте ещё раз:", nil)
		return
	}
	if utf8.RuneCountInString(title) > service.SlotTitleMaxLength {
		h.sendMessage(ctx, b, chatID,
			fmt.Sprintf("❌ Название слишком длинное. Максимум %d символов.\n\nПопробуйте ещё раз:", service.SlotTitleMaxLength), nil)
		return
	}

	h.stateManager.SetData(telegramID, state.KeyTitle, title)
	h.stateManager.SetState(telegramID, state.StateSlotStart)

	h.sendMessage(ctx, b, chatID,
		fmt.Sprintf("✅ Название: %s\n\n"+
			"Шаг 2 из %d: Когда слот начинается?\n%s\n\n"+
			"Для отмены используйте /cancel", title, h.stepsTotal(telegramID), timeInputHint), nil)
}

func (h *Handlers) handleSlotStartStep(ctx context.Context, b *bot.Bot, update *models.Update) {
	telegramID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	start, err := formatting.ParseDateTime(update.Message.Text, h.location)
	if err != nil {
		h.sendMessage(ctx, b, chatID, "❌ Неверный формат времени!\n\n"+timeInputHint+"\n\nПопробуйте ещё раз или отправьте /cancel для отмены.", nil)
		return
	}

	h.stateManager.SetData(telegramID, state.KeyStartTime, start)
	h.stateManager.SetState(telegramID, state.StateSlotEnd)

	h.sendMessage(ctx, b, chatID,
		fmt.Sprintf("✅ Начало: %s\n\n"+
			"Шаг 3 из %d: Когда слот заканчивается?\n%s",
			formatting.FormatDateTime(start.In(h.location)), h.stepsTotal(telegramID), timeInputHint), nil)
}

func (h *Handlers) handleSlotEndStep(ctx context.Context, b *bot.Bot, update *models.Update) {
	telegramID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	end, err := formatting.ParseDateTime(update.Message.Text, h.location)
	if err != nil {
		h.sendMessage(ctx, b, chatID, "❌ Неверный формат времени!\n\n"+timeInputHint+"\n\nПопробуйте ещё раз или отправьте /cancel для отмены.", nil)
		return
	}

	title, okTitle := h.stateManager.GetString(telegramID, state.KeyTitle)
	start, okStart := h.stateManager.GetTime(telegramID, state.KeyStartTime)
	if !okTitle || !okStart {
		h.stateManager.ClearState(telegramID)
		h.sendMessage(ctx, b, chatID, "❌ Диалог устарел. Начните заново: /newslot", nil)
		return
	}

	if err := model.ValidateRange(start, end); err != nil {
		h.sendMessage(ctx, b, chatID, "❌ Конец слота должен быть позже начала.\n\nВведите время окончания ещё раз:", nil)
		return
	}

	slotID, isEdit := h.editing(telegramID)
	if !isEdit {
		h.stateManager.SetData(telegramID, state.KeyEndTime, end)
		h.sendMessage(ctx, b, chatID,
			fmt.Sprintf("✅ %s\n🕐 %s\n\nШаг 4 из 4: Готовы отдать этот слот в обмен?",
				title, formatting.Range(start.In(h.location), end.In(h.location))),
			callbacks.NewSlotStatus())
		return
	}

	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	slot, err := h.slotService.UpdateSlot(ctx, user.ID, slotID, service.UpdateSlotInput{
		Title:     title,
		StartTime: start,
		EndTime:   end,
	})
	h.stateManager.ClearState(telegramID)
	if err != nil {
		h.logger.Warn("Failed to update slot", zap.String("slot_id", slotID.String()), zap.Error(err))
		h.sendMessage(ctx, b, chatID, formatting.ErrorText(err), nil)
		return
	}

	h.sendMessage(ctx, b, chatID, "✅ Слот обновлён\n\n"+formatting.SlotCard(h.local(slot)), callbacks.SlotActions(slot))
}

// finishNewSlot последний шаг создания: статус выбран кнопкой
func (h *Handlers) finishNewSlot(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, user *model.User, status model.SlotStatus) {
	telegramID := callback.From.ID

	title, okTitle := h.stateManager.GetString(telegramID, state.KeyTitle)
	start, okStart := h.stateManager.GetTime(telegramID, state.KeyStartTime)
	end, okEnd := h.stateManager.GetTime(telegramID, state.KeyEndTime)
	if !okTitle || !okStart || !okEnd {
		h.answerAlert(ctx, b, callback.ID, "❌ Диалог устарел. Начните заново: /newslot")
		return
	}

	slot, err := h.slotService.CreateSlot(ctx, service.CreateSlotInput{
		OwnerID:   user.ID,
		Title:     title,
		StartTime: start,
		EndTime:   end,
		Status:    status,
	})
	if err != nil {
		h.logger.Warn("Failed to create slot", zap.Int64("user_id", user.ID), zap.Error(err))
		h.answerAlert(ctx, b, callback.ID, formatting.ErrorText(err))
		return
	}

	h.stateManager.ClearState(telegramID)
	h.answer(ctx, b, callback.ID, "✅ Слот создан")
	h.editMessage(ctx, b, callback, "✅ Слот создан\n\n"+formatting.SlotCard(h.local(slot)), callbacks.SlotActions(slot))
}
