// Package callbacks кодирует данные inline-кнопок и собирает клавиатуры.
//
// Telegram ограничивает callback_data 64 байтами, поэтому идентификаторы
// пишутся в base64url (22 символа вместо 36), а действие короткой меткой.
// Формат: действие[:id[:id]].
package callbacks

import (
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// MaxDataLength ограничение Telegram на callback_data
const MaxDataLength = 64

type Action string

const (
	ActionNoop Action = "noop"

	// Слоты владельца
	ActionMakeSwappable Action = "ss" // ss:slot
	ActionMakeBusy      Action = "sb" // sb:slot
	ActionEdit          Action = "se" // se:slot
	ActionDelete        Action = "sd" // sd:slot, спрашивает подтверждение
	ActionDeleteConfirm Action = "sx" // sx:slot

	// Новый слот: выбор статуса в конце диалога
	ActionNewBusy      Action = "nb"
	ActionNewSwappable Action = "ns"

	// Обмен
	ActionOffer  Action = "of" // of:their_slot, выбрать свой слот
	ActionPick   Action = "pk" // pk:my_slot:their_slot, создать запрос
	ActionAccept Action = "ac" // ac:request
	ActionReject Action = "rj" // rj:request
)

// ids сколько идентификаторов ожидает действие
var ids = map[Action]int{
	ActionNoop:          0,
	ActionMakeSwappable: 1,
	ActionMakeBusy:      1,
	ActionEdit:          1,
	ActionDelete:        1,
	ActionDeleteConfirm: 1,
	ActionNewBusy:       0,
	ActionNewSwappable:  0,
	ActionOffer:         1,
	ActionPick:          2,
	ActionAccept:        1,
	ActionReject:        1,
}

// Actions возвращает все известные действия в стабильном порядке
func Actions() []Action {
	out := make([]Action, 0, len(ids))
	for action := range ids {
		out = append(out, action)
	}
	slices.Sort(out)
	return out
}

var ErrInvalidData = errors.New("invalid callback data")

// Data разобранные данные кнопки
type Data struct {
	Action Action
	IDs    []uuid.UUID
}

// ID возвращает i-й идентификатор; Parse гарантирует их количество
func (d Data) ID(i int) uuid.UUID {
	return d.IDs[i]
}

// Encode собирает callback_data
func Encode(action Action, slotOrRequestIDs ...uuid.UUID) string {
	var sb strings.Builder
	sb.WriteString(string(action))
	for _, id := range slotOrRequestIDs {
		sb.WriteByte(':')
		sb.WriteString(base64.RawURLEncoding.EncodeToString(id[:]))
	}
	return sb.String()
}

// Parse разбирает callback_data и проверяет число идентификаторов
func Parse(data string) (Data, error) {
	if data == "" || len(data) > MaxDataLength {
		return Data{}, fmt.Errorf("%w: length %d", ErrInvalidData, len(data))
	}

	parts := strings.Split(data, ":")
	action := Action(parts[0])

	want, ok := ids[action]
	if !ok {
		return Data{}, fmt.Errorf("%w: unknown action %q", ErrInvalidData, parts[0])
	}
	if len(parts)-1 != want {
		return Data{}, fmt.Errorf("%w: action %q expects %d ids, got %d", ErrInvalidData, action, want, len(parts)-1)
	}

	out := Data{Action: action, IDs: make([]uuid.UUID, 0, want)}
	for _, part := range parts[1:] {
		raw, err := base64.RawURLEncoding.DecodeString(part)
		if err != nil {
			return Data{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
		}
		id, err := uuid.FromBytes(raw)
		if err != nil {
			return Data{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
		}
		out.IDs = append(out.IDs, id)
	}

	return out, nil
}
