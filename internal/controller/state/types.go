package state

// UserState текущий шаг диалога пользователя
type UserState string

const (
	StateNone UserState = "" // Нет активного диалога

	// Создание и редактирование слота
	StateSlotTitle UserState = "slot_title"
	StateSlotStart UserState = "slot_start"
	StateSlotEnd   UserState = "slot_end"
)

// Ключи данных диалога
const (
	KeyTitle     = "title"
	KeyStartTime = "start_time"
	KeyEndTime   = "end_time"
	KeyEditSlot  = "edit_slot_id" // есть только при редактировании
)

// UserData хранит прогресс диалога. Только UI, доменное состояние живёт в БД.
type UserData struct {
	State UserState
	Data  map[string]any
}
