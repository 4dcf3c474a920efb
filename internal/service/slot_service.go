package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Freeeeeet/slotswap_bot/internal/metrics"
	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SlotService struct {
	slots   SlotStore
	metrics *metrics.Collector
	logger  *zap.Logger
}

func NewSlotService(slots SlotStore, collector *metrics.Collector, logger *zap.Logger) *SlotService {
	return &SlotService{
		slots:   slots,
		metrics: collector,
		logger:  logger,
	}
}

// CreateSlot создаёт слот владельца в статусе BUSY или SWAPPABLE
func (s *SlotService) CreateSlot(ctx context.Context, in CreateSlotInput) (*model.Slot, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	slot := &model.Slot{
		OwnerID:   in.OwnerID,
		Title:     in.Title,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
		Status:    in.Status,
	}

	if err := s.slots.Create(ctx, slot); err != nil {
		return nil, fmt.Errorf("create slot: %w", err)
	}

	s.metrics.SlotsCreated.Inc()
	s.logger.Info("Slot created",
		zap.String("slot_id", slot.ID.String()),
		zap.Int64("owner_id", slot.OwnerID),
		zap.String("status", string(slot.Status)),
	)

	return slot, nil
}

// ListMySlots получает все слоты владельца
func (s *SlotService) ListMySlots(ctx context.Context, ownerID int64) ([]*model.Slot, error) {
	return s.slots.ListByOwner(ctx, ownerID)
}

// GetOwnedSlot получает слот и проверяет что он принадлежит пользователю
func (s *SlotService) GetOwnedSlot(ctx context.Context, ownerID int64, slotID uuid.UUID) (*model.Slot, error) {
	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		return nil, err
	}

	if slot.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: slot does not belong to user", model.ErrForbidden)
	}

	return slot, nil
}

// SetSlotStatus переключает слот между BUSY и SWAPPABLE.
// Слот в открытом обмене переключать нельзя.
func (s *SlotService) SetSlotStatus(ctx context.Context, ownerID int64, slotID uuid.UUID, status model.SlotStatus) (*model.Slot, error) {
	if !status.IsOwnerSettable() {
		return nil, fmt.Errorf("%w: status %q cannot be set directly", model.ErrInvalidInput, status)
	}

	slot, err := s.GetOwnedSlot(ctx, ownerID, slotID)
	if err != nil {
		return nil, err
	}

	if slot.IsLocked() {
		return nil, fmt.Errorf("%w: slot is locked by a pending swap", model.ErrConflict)
	}

	if slot.Status == status {
		return slot, nil
	}

	if err := s.slots.UpdateStatus(ctx, slotID, slot.Status, status); err != nil {
		if errors.Is(err, model.ErrConflict) {
			s.metrics.Conflicts.WithLabelValues("set_slot_status").Inc()
		}
		return nil, fmt.Errorf("set slot status: %w", err)
	}

	s.logger.Info("Slot status changed",
		zap.String("slot_id", slotID.String()),
		zap.String("from", string(slot.Status)),
		zap.String("to", string(status)),
	)

	slot.Status = status
	return slot, nil
}

// UpdateSlot меняет название и время слота владельца
func (s *SlotService) UpdateSlot(ctx context.Context, ownerID int64, slotID uuid.UUID, in UpdateSlotInput) (*model.Slot, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	slot := &model.Slot{
		ID:        slotID,
		OwnerID:   ownerID,
		Title:     in.Title,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
	}

	if err := s.slots.Update(ctx, slot); err != nil {
		return nil, fmt.Errorf("update slot: %w", err)
	}

	s.logger.Info("Slot updated",
		zap.String("slot_id", slotID.String()),
		zap.Int64("owner_id", ownerID),
	)

	return slot, nil
}

// DeleteSlot удаляет слот владельца
func (s *SlotService) DeleteSlot(ctx context.Context, ownerID int64, slotID uuid.UUID) error {
	if err := s.slots.Delete(ctx, slotID, ownerID); err != nil {
		if errors.Is(err, model.ErrConflict) {
			s.metrics.Conflicts.WithLabelValues("delete_slot").Inc()
		}
		return fmt.Errorf("delete slot: %w", err)
	}

	s.metrics.SlotsDeleted.Inc()
	s.logger.Info("Slot deleted",
		zap.String("slot_id", slotID.String()),
		zap.Int64("owner_id", ownerID),
	)

	return nil
}
