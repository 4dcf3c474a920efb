package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"github.com/Freeeeeet/slotswap_bot/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const slotColumns = `id, owner_id, title, start_time, end_time, status, created_at, updated_at`

type SlotRepository struct {
	db *base.Repository
}

func NewSlotRepository(pool *pgxpool.Pool) *SlotRepository {
	return &SlotRepository{db: base.NewRepository(pool)}
}

func scanSlot(row pgx.Row) (*model.Slot, error) {
	var slot model.Slot
	err := row.Scan(
		&slot.ID,
		&slot.OwnerID,
		&slot.Title,
		&slot.StartTime,
		&slot.EndTime,
		&slot.Status,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// Create создаёт новый слот. Статус при создании только BUSY или SWAPPABLE.
func (r *SlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	if !slot.Status.IsOwnerSettable() {
		return fmt.Errorf("%w: slot cannot be created with status %q", model.ErrInvalidInput, slot.Status)
	}
	if err := model.ValidateRange(slot.StartTime, slot.EndTime); err != nil {
		return err
	}
	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}

	query := `
		INSERT INTO slots (id, owner_id, title, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		slot.ID,
		slot.OwnerID,
		slot.Title,
		slot.StartTime,
		slot.EndTime,
		slot.Status,
	).Scan(&slot.CreatedAt, &slot.UpdatedAt)

	if err != nil {
		switch {
		case base.IsCheckViolation(err):
			return fmt.Errorf("%w: create slot: %v", model.ErrInvalidInput, err)
		case base.IsForeignKeyViolation(err):
			return fmt.Errorf("%w: owner %d", model.ErrNotFound, slot.OwnerID)
		}
		return fmt.Errorf("create slot: %w", err)
	}

	return nil
}

// GetByID получает слот по ID
func (r *SlotRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = $1`

	slot, err := scanSlot(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, fmt.Errorf("%w: slot %s", model.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}

	return slot, nil
}

// ListByOwner получает все слоты владельца по времени начала
func (r *SlotRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE owner_id = $1
		ORDER BY start_time
	`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list slots by owner: %w", err)
	}
	defer rows.Close()

	var slots []*model.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}

	return slots, rows.Err()
}

// ListSwappableExcludingOwner получает SWAPPABLE слоты всех остальных
// пользователей вместе с данными владельца
func (r *SlotRepository) ListSwappableExcludingOwner(ctx context.Context, ownerID int64) ([]*model.Slot, error) {
	query := `
		SELECT s.id, s.owner_id, s.title, s.start_time, s.end_time, s.status, s.created_at, s.updated_at,
		       u.id, u.telegram_id, u.username, u.first_name, u.last_name
		FROM slots s
		JOIN users u ON u.id = s.owner_id
		WHERE s.status = $1
		  AND s.owner_id <> $2
		ORDER BY s.start_time
	`

	rows, err := r.db.Query(ctx, query, model.SlotStatusSwappable, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list swappable slots: %w", err)
	}
	defer rows.Close()

	var slots []*model.Slot
	for rows.Next() {
		var slot model.Slot
		var owner model.User
		err := rows.Scan(
			&slot.ID,
			&slot.OwnerID,
			&slot.Title,
			&slot.StartTime,
			&slot.EndTime,
			&slot.Status,
			&slot.CreatedAt,
			&slot.UpdatedAt,
			&owner.ID,
			&owner.TelegramID,
			&owner.Username,
			&owner.FirstName,
			&owner.LastName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan swappable slot: %w", err)
		}
		slot.Owner = &owner
		slots = append(slots, &slot)
	}

	return slots, rows.Err()
}

// UpdateStatus атомарно переводит слот из статуса from в статус to.
// Если текущий статус другой (слот успел заблокировать кто-то ещё), возвращает ErrConflict.
func (r *SlotRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.SlotStatus) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: slot status %s -> %s", model.ErrInvalidInput, from, to)
	}

	query := `
		UPDATE slots
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
	`

	affected, err := r.db.ExecAffected(ctx, query, to, id, from)
	if err != nil {
		return fmt.Errorf("update slot status: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("%w: slot %s is not %s", model.ErrConflict, id, from)
	}

	return nil
}

// TransferOwnership передаёт заблокированный обменом слот новому владельцу
// и выставляет статус одной записью. Текущий владелец должен совпасть с expectedOwnerID.
func (r *SlotRepository) TransferOwnership(ctx context.Context, id uuid.UUID, expectedOwnerID, newOwnerID int64, newStatus model.SlotStatus) error {
	if !model.SlotStatusSwapPending.CanTransitionTo(newStatus) {
		return fmt.Errorf("%w: slot status %s -> %s", model.ErrInvalidInput, model.SlotStatusSwapPending, newStatus)
	}

	query := `
		UPDATE slots
		SET owner_id = $1, status = $2, updated_at = now()
		WHERE id = $3 AND owner_id = $4 AND status = $5
	`

	affected, err := r.db.ExecAffected(ctx, query, newOwnerID, newStatus, id, expectedOwnerID, model.SlotStatusSwapPending)
	if err != nil {
		return fmt.Errorf("transfer slot ownership: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("%w: slot %s changed owner or is not locked", model.ErrConflict, id)
	}

	return nil
}

// Update меняет название и время слота. Заблокированный обменом слот не меняется.
func (r *SlotRepository) Update(ctx context.Context, slot *model.Slot) error {
	if err := model.ValidateRange(slot.StartTime, slot.EndTime); err != nil {
		return err
	}

	query := `
		UPDATE slots
		SET title = $1, start_time = $2, end_time = $3, updated_at = now()
		WHERE id = $4 AND owner_id = $5 AND status <> $6
		RETURNING status, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		slot.Title,
		slot.StartTime,
		slot.EndTime,
		slot.ID,
		slot.OwnerID,
		model.SlotStatusSwapPending,
	).Scan(&slot.Status, &slot.UpdatedAt)

	if err != nil {
		if base.IsNotFound(err) {
			return r.classifyMiss(ctx, slot.ID, slot.OwnerID)
		}
		return fmt.Errorf("update slot: %w", err)
	}

	return nil
}

// Delete удаляет слот владельца. Слот в открытом обмене удалить нельзя.
func (r *SlotRepository) Delete(ctx context.Context, id uuid.UUID, requestedBy int64) error {
	query := `
		DELETE FROM slots
		WHERE id = $1 AND owner_id = $2 AND status <> $3
	`

	affected, err := r.db.ExecAffected(ctx, query, id, requestedBy, model.SlotStatusSwapPending)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}

	if affected == 0 {
		return r.classifyMiss(ctx, id, requestedBy)
	}

	return nil
}

// classifyMiss объясняет, почему условная запись не затронула ни одной строки
func (r *SlotRepository) classifyMiss(ctx context.Context, id uuid.UUID, ownerID int64) error {
	slot, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if slot.OwnerID != ownerID {
		return fmt.Errorf("%w: slot %s belongs to another user", model.ErrForbidden, id)
	}

	if slot.IsLocked() {
		return fmt.Errorf("%w: slot %s is locked by a pending swap", model.ErrConflict, id)
	}

	return fmt.Errorf("%w: slot %s was modified concurrently", model.ErrConflict, id)
}

// FindInvariantViolations ищет слоты, у которых статус SWAP_PENDING
// не соответствует ровно одному открытому запросу обмена
func (r *SlotRepository) FindInvariantViolations(ctx context.Context) ([]model.SlotAnomaly, error) {
	query := `
		SELECT s.id, s.status, COUNT(sr.id) AS open_requests
		FROM slots s
		LEFT JOIN swap_requests sr
		       ON sr.status = $1
		      AND (sr.requester_slot_id = s.id OR sr.target_slot_id = s.id)
		GROUP BY s.id, s.status
		HAVING (s.status = $2 AND COUNT(sr.id) <> 1)
		    OR (s.status <> $2 AND COUNT(sr.id) > 0)
	`

	rows, err := r.db.Query(ctx, query, model.SwapStatusPending, model.SlotStatusSwapPending)
	if err != nil {
		return nil, fmt.Errorf("find slot invariant violations: %w", err)
	}
	defer rows.Close()

	var anomalies []model.SlotAnomaly
	for rows.Next() {
		var a model.SlotAnomaly
		if err := rows.Scan(&a.SlotID, &a.Status, &a.OpenRequests); err != nil {
			return nil, fmt.Errorf("scan slot anomaly: %w", err)
		}
		anomalies = append(anomalies, a)
	}

	return anomalies, rows.Err()
}
