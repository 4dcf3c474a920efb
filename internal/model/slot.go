package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type SlotStatus string

const (
	SlotStatusBusy        SlotStatus = "BUSY"
	SlotStatusSwappable   SlotStatus = "SWAPPABLE"
	SlotStatusSwapPending SlotStatus = "SWAP_PENDING" // заблокирован открытым обменом
)

// slotTransitions допустимые переходы статуса слота.
// SWAP_PENDING -> BUSY допустим только вместе со сменой владельца.
var slotTransitions = map[SlotStatus][]SlotStatus{
	SlotStatusBusy:        {SlotStatusBusy, SlotStatusSwappable},
	SlotStatusSwappable:   {SlotStatusBusy, SlotStatusSwappable, SlotStatusSwapPending},
	SlotStatusSwapPending: {SlotStatusBusy, SlotStatusSwappable},
}

// ParseSlotStatus разбирает статус из строки
func ParseSlotStatus(s string) (SlotStatus, error) {
	status := SlotStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("%w: unknown slot status %q", ErrInvalidInput, s)
	}
	return status, nil
}

func (s SlotStatus) IsValid() bool {
	_, ok := slotTransitions[s]
	return ok
}

// IsOwnerSettable проверяет, может ли владелец сам выставить этот статус
// (при создании или переключении). SWAP_PENDING выставляет только обмен.
func (s SlotStatus) IsOwnerSettable() bool {
	return s == SlotStatusBusy || s == SlotStatusSwappable
}

// CanTransitionTo проверяет допустимость перехода из текущего статуса
func (s SlotStatus) CanTransitionTo(to SlotStatus) bool {
	for _, next := range slotTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type Slot struct {
	ID        uuid.UUID  `json:"id"`
	OwnerID   int64      `json:"owner_id"`
	Title     string     `json:"title"`
	StartTime time.Time  `json:"start_time"`
	EndTime   time.Time  `json:"end_time"`
	Status    SlotStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Дополнительные поля для удобства (не из БД)
	Owner *User `json:"owner,omitempty"`
}

// ValidateRange проверяет что начало слота строго раньше конца
func ValidateRange(start, end time.Time) error {
	if !start.Before(end) {
		return fmt.Errorf("%w: start time must be before end time", ErrInvalidInput)
	}
	return nil
}

// IsLocked показывает, участвует ли слот в открытом обмене
func (s *Slot) IsLocked() bool {
	return s.Status == SlotStatusSwapPending
}

// SlotAnomaly слот, нарушающий связь SWAP_PENDING <-> открытый запрос
type SlotAnomaly struct {
	SlotID       uuid.UUID  `json:"slot_id"`
	Status       SlotStatus `json:"status"`
	OpenRequests int        `json:"open_requests"`
}
