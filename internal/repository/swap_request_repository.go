package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"github.com/Freeeeeet/slotswap_bot/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const swapRequestColumns = `id, requester_id, target_user_id, requester_slot_id, target_slot_id, status, created_at, resolved_at`

// SwapRequestRepository журнал запросов на обмен
type SwapRequestRepository struct {
	db *base.Repository
}

func NewSwapRequestRepository(pool *pgxpool.Pool) *SwapRequestRepository {
	return &SwapRequestRepository{db: base.NewRepository(pool)}
}

// Create создаёт запрос на обмен в статусе PENDING
func (r *SwapRequestRepository) Create(ctx context.Context, req *model.SwapRequest) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	req.Status = model.SwapStatusPending

	query := `
		INSERT INTO swap_requests (id, requester_id, target_user_id, requester_slot_id, target_slot_id, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err := r.db.QueryRow(
		ctx, query,
		req.ID,
		req.RequesterID,
		req.TargetUserID,
		req.RequesterSlotID,
		req.TargetSlotID,
		req.Status,
	).Scan(&req.CreatedAt)

	if err != nil {
		switch {
		case base.IsUniqueViolation(err):
			return fmt.Errorf("%w: slot already has an open swap request", model.ErrConflict)
		case base.IsCheckViolation(err):
			return fmt.Errorf("%w: create swap request: %v", model.ErrInvalidInput, err)
		}
		return fmt.Errorf("create swap request: %w", err)
	}

	return nil
}

// GetByID получает запрос на обмен по ID
func (r *SwapRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.SwapRequest, error) {
	query := `SELECT ` + swapRequestColumns + ` FROM swap_requests WHERE id = $1`

	var req model.SwapRequest
	err := r.db.QueryRow(ctx, query, id).Scan(
		&req.ID,
		&req.RequesterID,
		&req.TargetUserID,
		&req.RequesterSlotID,
		&req.TargetSlotID,
		&req.Status,
		&req.CreatedAt,
		&req.ResolvedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, fmt.Errorf("%w: swap request %s", model.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get swap request by id: %w", err)
	}

	return &req, nil
}

// Resolve переводит запрос из PENDING в финальный статус.
// Если запрос уже закрыт, возвращает ErrConflict.
func (r *SwapRequestRepository) Resolve(ctx context.Context, id uuid.UUID, status model.SwapStatus) error {
	if !status.IsTerminal() {
		return fmt.Errorf("%w: swap request cannot be resolved as %q", model.ErrInvalidInput, status)
	}

	query := `
		UPDATE swap_requests
		SET status = $1, resolved_at = now()
		WHERE id = $2 AND status = $3
	`

	affected, err := r.db.ExecAffected(ctx, query, status, id, model.SwapStatusPending)
	if err != nil {
		return fmt.Errorf("resolve swap request: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("%w: swap request %s is not pending", model.ErrConflict, id)
	}

	return nil
}

// ListIncoming получает запросы, адресованные пользователю
func (r *SwapRequestRepository) ListIncoming(ctx context.Context, userID int64) ([]*model.SwapRequest, error) {
	return r.listEnriched(ctx, "sr.target_user_id = $1", userID)
}

// ListOutgoing получает запросы, отправленные пользователем
func (r *SwapRequestRepository) ListOutgoing(ctx context.Context, userID int64) ([]*model.SwapRequest, error) {
	return r.listEnriched(ctx, "sr.requester_id = $1", userID)
}

// listEnriched выбирает запросы вместе с данными обоих слотов и пользователей.
// Слоты подключаются через LEFT JOIN: после обмена их могут удалить.
func (r *SwapRequestRepository) listEnriched(ctx context.Context, where string, userID int64) ([]*model.SwapRequest, error) {
	query := `
		SELECT sr.id, sr.requester_id, sr.target_user_id, sr.requester_slot_id, sr.target_slot_id,
		       sr.status, sr.created_at, sr.resolved_at,
		       rs.title, rs.start_time, rs.end_time, rs.owner_id, rs.status,
		       ts.title, ts.start_time, ts.end_time, ts.owner_id, ts.status,
		       ru.telegram_id, ru.username, ru.first_name, ru.last_name,
		       tu.telegram_id, tu.username, tu.first_name, tu.last_name
		FROM swap_requests sr
		LEFT JOIN slots rs ON rs.id = sr.requester_slot_id
		LEFT JOIN slots ts ON ts.id = sr.target_slot_id
		JOIN users ru ON ru.id = sr.requester_id
		JOIN users tu ON tu.id = sr.target_user_id
		WHERE ` + where + `
		ORDER BY sr.created_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list swap requests: %w", err)
	}
	defer rows.Close()

	var requests []*model.SwapRequest
	for rows.Next() {
		req, err := scanEnrichedRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan swap request: %w", err)
		}
		requests = append(requests, req)
	}

	return requests, rows.Err()
}

// nullableSlot колонки слота из LEFT JOIN
type nullableSlot struct {
	title   *string
	start   *time.Time
	end     *time.Time
	ownerID *int64
	status  *model.SlotStatus
}

func (n nullableSlot) toSlot(id uuid.UUID) *model.Slot {
	if n.title == nil {
		return nil
	}
	return &model.Slot{
		ID:        id,
		Title:     *n.title,
		StartTime: *n.start,
		EndTime:   *n.end,
		OwnerID:   *n.ownerID,
		Status:    *n.status,
	}
}

func scanEnrichedRequest(rows pgx.Rows) (*model.SwapRequest, error) {
	var req model.SwapRequest
	var rs, ts nullableSlot
	requester := model.User{}
	target := model.User{}

	err := rows.Scan(
		&req.ID,
		&req.RequesterID,
		&req.TargetUserID,
		&req.RequesterSlotID,
		&req.TargetSlotID,
		&req.Status,
		&req.CreatedAt,
		&req.ResolvedAt,
		&rs.title, &rs.start, &rs.end, &rs.ownerID, &rs.status,
		&ts.title, &ts.start, &ts.end, &ts.ownerID, &ts.status,
		&requester.TelegramID, &requester.Username, &requester.FirstName, &requester.LastName,
		&target.TelegramID, &target.Username, &target.FirstName, &target.LastName,
	)
	if err != nil {
		return nil, err
	}

	requester.ID = req.RequesterID
	target.ID = req.TargetUserID
	req.Requester = &requester
	req.Target = &target
	req.RequesterSlot = rs.toSlot(req.RequesterSlotID)
	req.TargetSlot = ts.toSlot(req.TargetSlotID)

	return &req, nil
}
