package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/Freeeeeet/slotswap_bot/internal/metrics"
	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SwapService ведёт переговоры об обмене слотами.
//
// Слот, участвующий в обмене, блокируется переходом SWAPPABLE -> SWAP_PENDING
// при создании запроса и освобождается только ответом на этот запрос:
// принятие меняет владельцев и ставит обоим слотам BUSY, отказ возвращает SWAPPABLE.
// Каждая операция выполняется одной транзакцией, все переходы сделаны
// условными UPDATE, поэтому сервис можно запускать в нескольких процессах.
type SwapService struct {
	tx       TxRunner
	slots    SlotStore
	requests SwapLedger
	metrics  *metrics.Collector
	logger   *zap.Logger
}

func NewSwapService(
	tx TxRunner,
	slots SlotStore,
	requests SwapLedger,
	collector *metrics.Collector,
	logger *zap.Logger,
) *SwapService {
	return &SwapService{
		tx:       tx,
		slots:    slots,
		requests: requests,
		metrics:  collector,
		logger:   logger,
	}
}

// RequestSwap предлагает свой слот mySlotID в обмен на чужой theirSlotID
func (s *SwapService) RequestSwap(ctx context.Context, requesterID int64, mySlotID, theirSlotID uuid.UUID) (*model.SwapRequest, error) {
	if mySlotID == theirSlotID {
		return nil, fmt.Errorf("%w: cannot swap a slot with itself", model.ErrInvalidInput)
	}

	mySlot, err := s.slots.GetByID(ctx, mySlotID)
	if err != nil {
		return nil, fmt.Errorf("get offered slot: %w", err)
	}

	theirSlot, err := s.slots.GetByID(ctx, theirSlotID)
	if err != nil {
		return nil, fmt.Errorf("get requested slot: %w", err)
	}

	if mySlot.OwnerID != requesterID {
		return nil, fmt.Errorf("%w: offered slot does not belong to requester", model.ErrForbidden)
	}

	if mySlot.OwnerID == theirSlot.OwnerID {
		return nil, fmt.Errorf("%w: cannot swap slots of the same owner", model.ErrInvalidInput)
	}

	if mySlot.Status != model.SlotStatusSwappable || theirSlot.Status != model.SlotStatusSwappable {
		return nil, fmt.Errorf("%w: both slots must be %s", model.ErrInvalidInput, model.SlotStatusSwappable)
	}

	req := &model.SwapRequest{
		RequesterID:     requesterID,
		TargetUserID:    theirSlot.OwnerID,
		RequesterSlotID: mySlotID,
		TargetSlotID:    theirSlotID,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		// Порядок блокировок фиксирован, чтобы встречные запросы A<->B
		// не взаимоблокировались, а получали конфликт
		for _, id := range lockOrder(mySlotID, theirSlotID) {
			if err := s.slots.UpdateStatus(ctx, id, model.SlotStatusSwappable, model.SlotStatusSwapPending); err != nil {
				return err
			}
		}

		// Строки уже заблокированы нашим UPDATE, владельцы не изменятся до commit
		if err := s.verifyOwner(ctx, mySlotID, requesterID); err != nil {
			return err
		}
		if err := s.verifyOwner(ctx, theirSlotID, theirSlot.OwnerID); err != nil {
			return err
		}

		return s.requests.Create(ctx, req)
	})
	if err != nil {
		if errors.Is(err, model.ErrConflict) {
			s.metrics.Conflicts.WithLabelValues("request_swap").Inc()
			s.logger.Warn("Swap request lost a race",
				zap.Int64("requester_id", requesterID),
				zap.String("my_slot_id", mySlotID.String()),
				zap.String("their_slot_id", theirSlotID.String()),
				zap.Error(err),
			)
		}
		return nil, fmt.Errorf("request swap: %w", err)
	}

	s.metrics.SwapsRequested.Inc()
	s.logger.Info("Swap requested",
		zap.String("request_id", req.ID.String()),
		zap.Int64("requester_id", requesterID),
		zap.Int64("target_user_id", req.TargetUserID),
		zap.String("requester_slot_id", mySlotID.String()),
		zap.String("target_slot_id", theirSlotID.String()),
	)

	mySlot.Status = model.SlotStatusSwapPending
	theirSlot.Status = model.SlotStatusSwapPending
	req.RequesterSlot = mySlot
	req.TargetSlot = theirSlot

	return req, nil
}

// RespondToSwap принимает или отклоняет входящий запрос.
// Ответить может только адресат, и только один раз.
func (s *SwapService) RespondToSwap(ctx context.Context, responderID int64, requestID uuid.UUID, accept bool) (*model.SwapRequest, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("get swap request: %w", err)
	}

	if req.TargetUserID != responderID {
		return nil, fmt.Errorf("%w: only the target user can respond", model.ErrForbidden)
	}

	status, err := req.Status.Resolve(accept)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		// Сначала закрываем запрос: параллельный ответ упрётся в эту строку
		if err := s.requests.Resolve(ctx, req.ID, status); err != nil {
			return err
		}

		if accept {
			return s.exchangeOwners(ctx, req)
		}
		return s.releaseSlots(ctx, req)
	})
	if err != nil {
		if errors.Is(err, model.ErrConflict) {
			s.metrics.Conflicts.WithLabelValues("respond_to_swap").Inc()
		}
		return nil, fmt.Errorf("respond to swap: %w", err)
	}

	s.metrics.SwapsResolved.WithLabelValues(string(status)).Inc()
	s.logger.Info("Swap resolved",
		zap.String("request_id", req.ID.String()),
		zap.Int64("responder_id", responderID),
		zap.String("status", string(status)),
	)

	req.Status = status
	return req, nil
}

// exchangeOwners меняет владельцев слотов и ставит обоим BUSY
func (s *SwapService) exchangeOwners(ctx context.Context, req *model.SwapRequest) error {
	if err := s.slots.TransferOwnership(ctx, req.RequesterSlotID, req.RequesterID, req.TargetUserID, model.SlotStatusBusy); err != nil {
		return err
	}
	return s.slots.TransferOwnership(ctx, req.TargetSlotID, req.TargetUserID, req.RequesterID, model.SlotStatusBusy)
}

// releaseSlots возвращает оба слота в SWAPPABLE без смены владельцев
func (s *SwapService) releaseSlots(ctx context.Context, req *model.SwapRequest) error {
	if err := s.slots.UpdateStatus(ctx, req.RequesterSlotID, model.SlotStatusSwapPending, model.SlotStatusSwappable); err != nil {
		return err
	}
	return s.slots.UpdateStatus(ctx, req.TargetSlotID, model.SlotStatusSwapPending, model.SlotStatusSwappable)
}

func (s *SwapService) verifyOwner(ctx context.Context, slotID uuid.UUID, ownerID int64) error {
	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		return err
	}
	if slot.OwnerID != ownerID {
		return fmt.Errorf("%w: slot %s changed owner", model.ErrConflict, slotID)
	}
	return nil
}

// lockOrder задаёт общий для всех процессов порядок блокировки слотов
func lockOrder(a, b uuid.UUID) []uuid.UUID {
	if bytes.Compare(a[:], b[:]) < 0 {
		return []uuid.UUID{a, b}
	}
	return []uuid.UUID{b, a}
}
