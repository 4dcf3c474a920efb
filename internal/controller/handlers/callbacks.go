package handlers

import (
	"context"

	"github.com/Freeeeeet/slotswap_bot/internal/controller/callbacks"
	"github.com/Freeeeeet/slotswap_bot/internal/controller/formatting"
	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HandleCallbackQuery разбирает данные кнопки и вызывает нужное действие
func (h *Handlers) HandleCallbackQuery(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	callback := update.CallbackQuery

	h.logger.Debug("Callback received",
		zap.String("data", callback.Data),
		zap.Int64("telegram_id", callback.From.ID),
	)

	data, err := callbacks.Parse(callback.Data)
	if err != nil {
		h.logger.Warn("Invalid callback data", zap.String("data", callback.Data), zap.Error(err))
		h.answerAlert(ctx, b, callback.ID, "❌ Неверный формат")
		return
	}

	if data.Action == callbacks.ActionNoop {
		h.answer(ctx, b, callback.ID, "")
		return
	}

	route, ok := h.routes[data.Action]
	if !ok {
		h.logger.Error("No route for callback action", zap.String("action", string(data.Action)))
		h.answerAlert(ctx, b, callback.ID, "❌ Действие не поддерживается")
		return
	}

	user, ok := h.requireCallbackUser(ctx, b, callback)
	if !ok {
		return
	}

	route(ctx, b, callback, user, data)
}

// callbackHandler обрабатывает кнопку уже зарегистрированного пользователя
type callbackHandler func(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, user *model.User, data callbacks.Data)

// callbackRoutes связывает каждое действие кнопки с обработчиком.
// Число идентификаторов в data уже проверено callbacks.Parse.
func (h *Handlers) callbackRoutes() map[callbacks.Action]callbackHandler {
	slotStatus := func(status model.SlotStatus) callbackHandler {
		return func(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, user *model.User, data callbacks.Data) {
			h.setSlotStatus(ctx, b, callback, user, data.ID(0), status)
		}
	}
	newSlot := func(status model.SlotStatus) callbackHandler {
		return func(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, user *model.User, _ callbacks.Data) {
			h.finishNewSlot(ctx, b, callback, user, status)
		}
	}
	respond := func(accept bool) callbackHandler {
		return func(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, user *model.User, data callbacks.Data) {
			h.respondToSwap(ctx, b, callback, user, data.ID(0), accept)
		}
	}

	return map[callbacks.Action]callbackHandler{
		callbacks.ActionMakeSwappable: slotStatus(model.SlotStatusSwappable),
		callbacks.ActionMakeBusy:      slotStatus(model.SlotStatusBusy),
		callbacks.ActionEdit: func(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, user *model.User, data callbacks.Data) {
			h.editSlot(ctx, b, callback, user, data.ID(0))
		},
		callbacks.ActionDelete: func(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, user *model.User, data callbacks.Data) {
			h.askDeleteSlot(ctx, b, callback, user, data.ID(0))
		},
		callbacks.ActionDeleteConfirm: func(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, user *model.User, data callbacks.Data) {
			h.deleteSlot(ctx, b, callback, user, data.ID(0))
		},
		callbacks.ActionNewBusy:      newSlot(model.SlotStatusBusy),
		callbacks.ActionNewSwappable: newSlot(model.SlotStatusSwappable),
		callbacks.ActionOffer: func(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, user *model.User, data callbacks.Data) {
			h.offerSwap(ctx, b, callback, user, data.ID(0))
		},
		callbacks.ActionPick: func(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, user *model.User, data callbacks.Data) {
			h.requestSwap(ctx, b, callback, user, data.ID(0), data.ID(1))
		},
		callbacks.ActionAccept: respond(true),
		callbacks.ActionReject: respond(false),
	}
}

// failCallback показывает ошибку домена всплывающим окном
func (h *Handlers) failCallback(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, op string, err error) {
	h.logger.Warn("Callback action failed",
		zap.String("operation", op),
		zap.Int64("telegram_id", callback.From.ID),
		zap.Error(err),
	)
	h.answerAlert(ctx, b, callback.ID, formatting.ErrorText(err))
}

func (h *Handlers) setSlotStatus(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, user *model.User, slotID uuid.UUID, status model.SlotStatus) {
	slot, err := h.slotService.SetSlotStatus(ctx, user.ID, slotID, status)
	if err != nil {
		h.failCallback(ctx, b, callback, "set_slot_status", err)
		return
	}

	h.answer(ctx, b, callback.ID, formatting.StatusLabel(slot.Status))
	h.editMessage(ctx, b, callback, formatting.SlotCard(h.local(slot)), callbacks.SlotActions(slot))
}

func (h *Handlers) editSlot(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, user *model.User, slotID uuid.UUID) {
	slot, err := h.slotService.GetOwnedSlot(ctx, user.ID, slotID)
	if err != nil {
		h.failCallback(ctx, b, callback, "edit_slot", err)
		return
	}
	if slot.IsLocked() {
		h.answerAlert(ctx, b, callback.ID, "⏳ Слот участвует в обмене. Дождитесь ответа на запрос.")
		return
	}

	h.answer(ctx, b, callback.ID, "")
	h.startEditDialog(ctx, b, callback.From.ID, h.local(slot))
}

func (h *Handlers) askDeleteSlot(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, user *model.User, slotID uuid.UUID) {
	slot, err := h.slotService.GetOwnedSlot(ctx, user.ID, slotID)
	if err != nil {
		h.failCallback(ctx, b, callback, "delete_slot", err)
		return
	}

	h.answer(ctx, b, callback.ID, "")
	h.editMessage(ctx, b, callback, "🗑 Удалить слот?\n\n"+formatting.SlotCard(h.local(slot)), callbacks.ConfirmDelete(slot))
}

func (h *Handlers) deleteSlot(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, user *model.User, slotID uuid.UUID) {
	if err := h.slotService.DeleteSlot(ctx, user.ID, slotID); err != nil {
		h.failCallback(ctx, b, callback, "delete_slot", err)
		return
	}

	h.answer(ctx, b, callback.ID, "🗑 Удалено")
	h.editMessage(ctx, b, callback, "🗑 Слот удалён", nil)
}

// offerSwap предлагает выбрать свой слот в обмен на theirSlotID
func (h *Handlers) offerSwap(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, user *model.User, theirSlotID uuid.UUID) {
	theirs, err := h.queryService.GetSlot(ctx, theirSlotID)
	if err != nil {
		h.failCallback(ctx, b, callback, "offer_swap", err)
		return
	}
	if theirs.Status != model.SlotStatusSwappable {
		h.answerAlert(ctx, b, callback.ID, "⚠️ Этот слот уже недоступен для обмена. Обновите /market")
		return
	}

	mine, err := h.queryService.ListMySwappable(ctx, user.ID)
	if err != nil {
		h.failCallback(ctx, b, callback, "offer_swap", err)
		return
	}
	if len(mine) == 0 {
		h.answerAlert(ctx, b, callback.ID, "📭 У вас нет слотов для обмена. Отметьте слот «Можно обменять» в /myslots")
		return
	}

	local := make([]*model.Slot, 0, len(mine))
	for _, slot := range mine {
		local = append(local, h.local(slot))
	}

	h.answer(ctx, b, callback.ID, "")
	h.sendMessage(ctx, b, callback.From.ID,
		"🤝 Какой свой слот отдадите за этот?\n\n"+formatting.SlotCard(h.local(theirs)),
		callbacks.PickMySlot(local, theirs))
}

func (h *Handlers) requestSwap(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, user *model.User, mySlotID, theirSlotID uuid.UUID) {
	req, err := h.swapService.RequestSwap(ctx, user.ID, mySlotID, theirSlotID)
	if err != nil {
		h.failCallback(ctx, b, callback, "request_swap", err)
		return
	}

	req.Requester = user
	h.answer(ctx, b, callback.ID, "📤 Запрос отправлен")
	h.editMessage(ctx, b, callback, "📤 Запрос отправлен. Слоты заблокированы до ответа.\n\n"+formatting.OutgoingCard(h.localRequest(req)), nil)

	h.notifyUser(ctx, b, req.TargetUserID,
		"🔔 Вам предлагают обмен!\n\n"+formatting.IncomingCard(h.localRequest(req)),
		callbacks.RequestActions(req))
}

func (h *Handlers) respondToSwap(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, user *model.User, requestID uuid.UUID, accept bool) {
	req, err := h.swapService.RespondToSwap(ctx, user.ID, requestID, accept)
	if err != nil {
		h.failCallback(ctx, b, callback, "respond_to_swap", err)
		return
	}

	result := "❌ Запрос отклонён. Слоты снова доступны для обмена."
	notice := "😔 Ваш запрос на обмен отклонили. Слоты снова доступны для обмена."
	if accept {
		result = "✅ Обмен состоялся! Слоты поменялись владельцами. Смотрите /myslots"
		notice = "🎉 Ваш запрос на обмен приняли! Смотрите /myslots"
	}

	h.answer(ctx, b, callback.ID, formatting.SwapStatusLabel(req.Status))
	h.editMessage(ctx, b, callback, result, nil)
	h.notifyUser(ctx, b, req.RequesterID, notice, nil)
}
