package callbacks

import (
	"fmt"

	"github.com/Freeeeeet/slotswap_bot/internal/controller/formatting"
	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"github.com/go-telegram/bot/models"
)

func button(text string, data string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{Text: text, CallbackData: data}
}

func markup(rows ...[]models.InlineKeyboardButton) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// SlotActions кнопки под слотом владельца. Слот в обмене заблокирован,
// поэтому кнопок у него нет.
func SlotActions(slot *model.Slot) *models.InlineKeyboardMarkup {
	if slot.IsLocked() {
		return nil
	}

	toggle := button("🔁 Отдать в обмен", Encode(ActionMakeSwappable, slot.ID))
	if slot.Status == model.SlotStatusSwappable {
		toggle = button("🔒 Сделать занятым", Encode(ActionMakeBusy, slot.ID))
	}

	return markup(
		[]models.InlineKeyboardButton{toggle},
		[]models.InlineKeyboardButton{
			button("✏️ Изменить", Encode(ActionEdit, slot.ID)),
			button("🗑 Удалить", Encode(ActionDelete, slot.ID)),
		},
	)
}

// ConfirmDelete подтверждение удаления слота
func ConfirmDelete(slot *model.Slot) *models.InlineKeyboardMarkup {
	return markup([]models.InlineKeyboardButton{
		button("✅ Да, удалить", Encode(ActionDeleteConfirm, slot.ID)),
		button("❌ Нет", Encode(ActionNoop)),
	})
}

// NewSlotStatus выбор статуса на последнем шаге создания слота
func NewSlotStatus() *models.InlineKeyboardMarkup {
	return markup([]models.InlineKeyboardButton{
		button(formatting.StatusLabel(model.SlotStatusBusy), Encode(ActionNewBusy)),
		button(formatting.StatusLabel(model.SlotStatusSwappable), Encode(ActionNewSwappable)),
	})
}

// MarketOffer кнопка под чужим слотом на витрине
func MarketOffer(slot *model.Slot) *models.InlineKeyboardMarkup {
	return markup([]models.InlineKeyboardButton{
		button("🤝 Предложить обмен", Encode(ActionOffer, slot.ID)),
	})
}

// PickMySlot список своих слотов для обмена на theirs
func PickMySlot(mine []*model.Slot, theirs *model.Slot) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(mine)+1)
	for _, slot := range mine {
		text := fmt.Sprintf("%s · %s", slot.Title, formatting.Range(slot.StartTime, slot.EndTime))
		rows = append(rows, []models.InlineKeyboardButton{
			button(text, Encode(ActionPick, slot.ID, theirs.ID)),
		})
	}
	rows = append(rows, []models.InlineKeyboardButton{button("❌ Отмена", Encode(ActionNoop))})
	return markup(rows...)
}

// RequestActions принять или отклонить входящий запрос
func RequestActions(req *model.SwapRequest) *models.InlineKeyboardMarkup {
	if !req.IsPending() {
		return nil
	}
	return markup([]models.InlineKeyboardButton{
		button("✅ Принять", Encode(ActionAccept, req.ID)),
		button("❌ Отклонить", Encode(ActionReject, req.ID)),
	})
}
