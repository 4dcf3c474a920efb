package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"github.com/google/uuid"
)

// QueryService только чтение: витрина слотов и списки запросов.
// Транзакций не открывает.
type QueryService struct {
	slots    SlotStore
	requests SwapLedger
}

func NewQueryService(slots SlotStore, requests SwapLedger) *QueryService {
	return &QueryService{
		slots:    slots,
		requests: requests,
	}
}

// GetSlot получает любой слот по ID, без проверки владельца
func (s *QueryService) GetSlot(ctx context.Context, slotID uuid.UUID) (*model.Slot, error) {
	return s.slots.GetByID(ctx, slotID)
}

// ListSwappable получает чужие слоты, доступные для обмена
func (s *QueryService) ListSwappable(ctx context.Context, viewerID int64) ([]*model.Slot, error) {
	slots, err := s.slots.ListSwappableExcludingOwner(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("list swappable: %w", err)
	}
	return slots, nil
}

// ListMySwappable получает свои слоты, которые можно предложить в обмен
func (s *QueryService) ListMySwappable(ctx context.Context, ownerID int64) ([]*model.Slot, error) {
	slots, err := s.slots.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list my slots: %w", err)
	}

	var swappable []*model.Slot
	for _, slot := range slots {
		if slot.Status == model.SlotStatusSwappable {
			swappable = append(swappable, slot)
		}
	}
	return swappable, nil
}

// ListIncoming получает запросы, где пользователь адресат
func (s *QueryService) ListIncoming(ctx context.Context, userID int64) ([]*model.SwapRequest, error) {
	requests, err := s.requests.ListIncoming(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list incoming: %w", err)
	}
	return requests, nil
}

// ListOutgoing получает запросы, отправленные пользователем
func (s *QueryService) ListOutgoing(ctx context.Context, userID int64) ([]*model.SwapRequest, error) {
	requests, err := s.requests.ListOutgoing(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list outgoing: %w", err)
	}
	return requests, nil
}

// CountPendingIncoming сколько входящих запросов ждут ответа
func (s *QueryService) CountPendingIncoming(ctx context.Context, userID int64) (int, error) {
	requests, err := s.ListIncoming(ctx, userID)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, req := range requests {
		if req.IsPending() {
			count++
		}
	}
	return count, nil
}
