package service

import (
	"context"

	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"github.com/google/uuid"
)

// SlotStore хранилище слотов (repository.SlotRepository)
type SlotStore interface {
	Create(ctx context.Context, slot *model.Slot) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Slot, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*model.Slot, error)
	ListSwappableExcludingOwner(ctx context.Context, ownerID int64) ([]*model.Slot, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.SlotStatus) error
	TransferOwnership(ctx context.Context, id uuid.UUID, expectedOwnerID, newOwnerID int64, newStatus model.SlotStatus) error
	Update(ctx context.Context, slot *model.Slot) error
	Delete(ctx context.Context, id uuid.UUID, requestedBy int64) error
}

// SwapLedger журнал запросов на обмен (repository.SwapRequestRepository)
type SwapLedger interface {
	Create(ctx context.Context, req *model.SwapRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.SwapRequest, error)
	Resolve(ctx context.Context, id uuid.UUID, status model.SwapStatus) error
	ListIncoming(ctx context.Context, userID int64) ([]*model.SwapRequest, error)
	ListOutgoing(ctx context.Context, userID int64) ([]*model.SwapRequest, error)
}

// UserStore хранилище пользователей (repository.UserRepository)
type UserStore interface {
	Upsert(ctx context.Context, user *model.User) error
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// TxRunner выполняет функцию в одной транзакции (base.TxManager)
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
