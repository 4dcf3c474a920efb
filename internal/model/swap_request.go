package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type SwapStatus string

const (
	SwapStatusPending  SwapStatus = "PENDING"
	SwapStatusAccepted SwapStatus = "ACCEPTED"
	SwapStatusRejected SwapStatus = "REJECTED"
)

func (s SwapStatus) IsValid() bool {
	switch s {
	case SwapStatusPending, SwapStatusAccepted, SwapStatusRejected:
		return true
	}
	return false
}

// IsTerminal ACCEPTED и REJECTED финальные, дальше переходов нет
func (s SwapStatus) IsTerminal() bool {
	return s == SwapStatusAccepted || s == SwapStatusRejected
}

// Resolve возвращает финальный статус для ответа на запрос
func (s SwapStatus) Resolve(accept bool) (SwapStatus, error) {
	if s != SwapStatusPending {
		return "", fmt.Errorf("%w: swap request is already %s", ErrConflict, s)
	}
	if accept {
		return SwapStatusAccepted, nil
	}
	return SwapStatusRejected, nil
}

type SwapRequest struct {
	ID              uuid.UUID  `json:"id"`
	RequesterID     int64      `json:"requester_id"`
	TargetUserID    int64      `json:"target_user_id"`
	RequesterSlotID uuid.UUID  `json:"requester_slot_id"`
	TargetSlotID    uuid.UUID  `json:"target_slot_id"`
	Status          SwapStatus `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	ResolvedAt      *time.Time `json:"resolved_at"`

	// Дополнительные поля для удобства (не из БД).
	// Слот может быть nil, если его удалили после завершения обмена.
	RequesterSlot *Slot `json:"requester_slot,omitempty"`
	TargetSlot    *Slot `json:"target_slot,omitempty"`
	Requester     *User `json:"requester,omitempty"`
	Target        *User `json:"target,omitempty"`
}

func (r *SwapRequest) IsPending() bool {
	return r.Status == SwapStatusPending
}
