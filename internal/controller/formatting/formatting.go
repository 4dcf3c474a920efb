// Package formatting тексты сообщений бота.
package formatting

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/slotswap_bot/internal/model"
)

const (
	dateTimeLayout = "02.01.2006 15:04"
	timeLayout     = "15:04"
)

// FormatDateTime форматирует дату и время
func FormatDateTime(t time.Time) string {
	return t.Format(dateTimeLayout)
}

// Range форматирует интервал слота; день повторяется, только если он меняется
func Range(start, end time.Time) string {
	if start.Year() == end.Year() && start.YearDay() == end.YearDay() {
		return fmt.Sprintf("%s-%s", start.Format(dateTimeLayout), end.Format(timeLayout))
	}
	return fmt.Sprintf("%s - %s", start.Format(dateTimeLayout), end.Format(dateTimeLayout))
}

// ParseDateTime принимает "02.01.2006 15:04" в loc или RFC3339
func ParseDateTime(text string, loc *time.Location) (time.Time, error) {
	text = strings.TrimSpace(text)

	if t, err := time.ParseInLocation(dateTimeLayout, text, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, text); err == nil {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("%w: cannot parse time %q", model.ErrInvalidInput, text)
}

// StatusLabel emoji и название статуса слота
func StatusLabel(status model.SlotStatus) string {
	switch status {
	case model.SlotStatusBusy:
		return "🔒 Занят"
	case model.SlotStatusSwappable:
		return "🔁 Можно обменять"
	case model.SlotStatusSwapPending:
		return "⏳ Ожидает обмена"
	default:
		return string(status)
	}
}

// SwapStatusLabel emoji и название статуса запроса
func SwapStatusLabel(status model.SwapStatus) string {
	switch status {
	case model.SwapStatusPending:
		return "⏳ Ожидает ответа"
	case model.SwapStatusAccepted:
		return "✅ Принят"
	case model.SwapStatusRejected:
		return "❌ Отклонён"
	default:
		return string(status)
	}
}

// SlotCard описание слота для списков
func SlotCard(slot *model.Slot) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📌 %s\n", slot.Title)
	fmt.Fprintf(&sb, "🕐 %s\n", Range(slot.StartTime, slot.EndTime))
	fmt.Fprintf(&sb, "📊 %s", StatusLabel(slot.Status))
	if slot.Owner != nil {
		fmt.Fprintf(&sb, "\n👤 %s", slot.Owner.DisplayName())
	}
	return sb.String()
}

// slotRef короткое описание слота в запросе; слот мог быть удалён
func slotRef(slot *model.Slot) string {
	if slot == nil {
		return "слот удалён"
	}
	return fmt.Sprintf("%s (%s)", slot.Title, Range(slot.StartTime, slot.EndTime))
}

func userRef(user *model.User) string {
	if user == nil {
		return "пользователь"
	}
	return user.DisplayName()
}

// IncomingCard входящий запрос: что предлагают и что просят
func IncomingCard(req *model.SwapRequest) string {
	return fmt.Sprintf(
		"📨 Запрос от %s\n"+
			"Вам предлагают: %s\n"+
			"В обмен на ваш: %s\n"+
			"📊 %s",
		userRef(req.Requester),
		slotRef(req.RequesterSlot),
		slotRef(req.TargetSlot),
		SwapStatusLabel(req.Status),
	)
}

// OutgoingCard исходящий запрос
func OutgoingCard(req *model.SwapRequest) string {
	return fmt.Sprintf(
		"📤 Запрос к %s\n"+
			"Вы отдаёте: %s\n"+
			"Вы получаете: %s\n"+
			"📊 %s",
		userRef(req.Target),
		slotRef(req.RequesterSlot),
		slotRef(req.TargetSlot),
		SwapStatusLabel(req.Status),
	)
}

// ErrorText переводит ошибку домена в сообщение пользователю
func ErrorText(err error) string {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		return "❌ Некорректные данные. Проверьте ввод и попробуйте ещё раз."
	case errors.Is(err, model.ErrNotFound):
		return "❌ Не найдено. Возможно, слот или запрос уже удалён."
	case errors.Is(err, model.ErrForbidden):
		return "⛔ Нет доступа: это не ваш слот или запрос."
	case errors.Is(err, model.ErrConflict):
		return "⚠️ Состояние изменилось, пока вы смотрели. Обновите список и попробуйте снова."
	default:
		return "❌ Произошла ошибка. Попробуйте позже."
	}
}
