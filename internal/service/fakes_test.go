package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/slotswap_bot/internal/metrics"
	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memDB хранилище в памяти с откатом транзакций через журнал отмены.
// Условные записи атомарны под mu, как условный UPDATE в PostgreSQL.
type memDB struct {
	mu       sync.Mutex
	slots    map[uuid.UUID]model.Slot
	requests map[uuid.UUID]model.SwapRequest

	// beforeCAS вызывается перед каждой условной сменой статуса слота, вне mu
	beforeCAS func(id uuid.UUID)
}

func newMemDB() *memDB {
	return &memDB{
		slots:    make(map[uuid.UUID]model.Slot),
		requests: make(map[uuid.UUID]model.SwapRequest),
	}
}

type undoKey struct{}

type undoLog struct {
	fns []func()
}

func (db *memDB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(undoKey{}).(*undoLog); ok {
		return fn(ctx)
	}

	log := &undoLog{}
	err := fn(context.WithValue(ctx, undoKey{}, log))
	if err != nil {
		db.mu.Lock()
		for i := len(log.fns) - 1; i >= 0; i-- {
			log.fns[i]()
		}
		db.mu.Unlock()
	}
	return err
}

// record запоминает отмену изменения; вызывается под mu
func (db *memDB) record(ctx context.Context, undo func()) {
	if log, ok := ctx.Value(undoKey{}).(*undoLog); ok {
		log.fns = append(log.fns, undo)
	}
}

func (db *memDB) slot(t *testing.T, id uuid.UUID) model.Slot {
	t.Helper()
	db.mu.Lock()
	defer db.mu.Unlock()
	slot, ok := db.slots[id]
	require.True(t, ok, "slot %s not found", id)
	return slot
}

func (db *memDB) request(t *testing.T, id uuid.UUID) model.SwapRequest {
	t.Helper()
	db.mu.Lock()
	defer db.mu.Unlock()
	req, ok := db.requests[id]
	require.True(t, ok, "request %s not found", id)
	return req
}

func (db *memDB) putSlot(owner int64, status model.SlotStatus) uuid.UUID {
	db.mu.Lock()
	defer db.mu.Unlock()
	start := time.Date(2024, 12, 1, 10, 0, 0, 0, time.UTC).Add(time.Duration(len(db.slots)) * time.Hour)
	slot := model.Slot{
		ID:        uuid.New(),
		OwnerID:   owner,
		Title:     fmt.Sprintf("slot of %d", owner),
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Status:    status,
	}
	db.slots[slot.ID] = slot
	return slot.ID
}

// requireInvariant SWAP_PENDING <=> ровно один открытый запрос на слот
func (db *memDB) requireInvariant(t *testing.T) {
	t.Helper()
	db.mu.Lock()
	defer db.mu.Unlock()

	for id, slot := range db.slots {
		open := 0
		for _, req := range db.requests {
			if req.Status == model.SwapStatusPending && (req.RequesterSlotID == id || req.TargetSlotID == id) {
				open++
			}
		}
		if slot.Status == model.SlotStatusSwapPending {
			require.Equal(t, 1, open, "pending slot %s must have one open request", id)
		} else {
			require.Zero(t, open, "slot %s in %s must have no open requests", id, slot.Status)
		}
	}
}

type memSlots struct{ db *memDB }

func (s memSlots) Create(ctx context.Context, slot *model.Slot) error {
	if !slot.Status.IsOwnerSettable() {
		return fmt.Errorf("%w: status", model.ErrInvalidInput)
	}
	if err := model.ValidateRange(slot.StartTime, slot.EndTime); err != nil {
		return err
	}
	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.slots[slot.ID] = *slot
	return nil
}

func (s memSlots) GetByID(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	slot, ok := s.db.slots[id]
	if !ok {
		return nil, fmt.Errorf("%w: slot %s", model.ErrNotFound, id)
	}
	return &slot, nil
}

func (s memSlots) list(match func(model.Slot) bool) []*model.Slot {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []*model.Slot
	for _, slot := range s.db.slots {
		if match(slot) {
			out = append(out, &slot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

func (s memSlots) ListByOwner(ctx context.Context, ownerID int64) ([]*model.Slot, error) {
	return s.list(func(slot model.Slot) bool { return slot.OwnerID == ownerID }), nil
}

func (s memSlots) ListSwappableExcludingOwner(ctx context.Context, ownerID int64) ([]*model.Slot, error) {
	slots := s.list(func(slot model.Slot) bool {
		return slot.OwnerID != ownerID && slot.Status == model.SlotStatusSwappable
	})
	for _, slot := range slots {
		slot.Owner = &model.User{ID: slot.OwnerID, FirstName: fmt.Sprintf("User %d", slot.OwnerID)}
	}
	return slots, nil
}

func (s memSlots) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.SlotStatus) error {
	if s.db.beforeCAS != nil {
		s.db.beforeCAS(id)
	}
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", model.ErrInvalidInput, from, to)
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	slot, ok := s.db.slots[id]
	if !ok || slot.Status != from {
		return fmt.Errorf("%w: slot %s is not %s", model.ErrConflict, id, from)
	}
	prev := slot
	slot.Status = to
	s.db.slots[id] = slot
	s.db.record(ctx, func() { s.db.slots[id] = prev })
	return nil
}

func (s memSlots) TransferOwnership(ctx context.Context, id uuid.UUID, expectedOwnerID, newOwnerID int64, newStatus model.SlotStatus) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	slot, ok := s.db.slots[id]
	if !ok || slot.OwnerID != expectedOwnerID || slot.Status != model.SlotStatusSwapPending {
		return fmt.Errorf("%w: slot %s", model.ErrConflict, id)
	}
	prev := slot
	slot.OwnerID = newOwnerID
	slot.Status = newStatus
	s.db.slots[id] = slot
	s.db.record(ctx, func() { s.db.slots[id] = prev })
	return nil
}

func (s memSlots) classifyMiss(id uuid.UUID, ownerID int64) error {
	slot, ok := s.db.slots[id]
	switch {
	case !ok:
		return fmt.Errorf("%w: slot %s", model.ErrNotFound, id)
	case slot.OwnerID != ownerID:
		return fmt.Errorf("%w: slot %s", model.ErrForbidden, id)
	default:
		return fmt.Errorf("%w: slot %s is locked", model.ErrConflict, id)
	}
}

func (s memSlots) Update(ctx context.Context, slot *model.Slot) error {
	if err := model.ValidateRange(slot.StartTime, slot.EndTime); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	current, ok := s.db.slots[slot.ID]
	if !ok || current.OwnerID != slot.OwnerID || current.IsLocked() {
		return s.classifyMiss(slot.ID, slot.OwnerID)
	}
	current.Title = slot.Title
	current.StartTime = slot.StartTime
	current.EndTime = slot.EndTime
	s.db.slots[slot.ID] = current
	slot.Status = current.Status
	return nil
}

func (s memSlots) Delete(ctx context.Context, id uuid.UUID, requestedBy int64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	current, ok := s.db.slots[id]
	if !ok || current.OwnerID != requestedBy || current.IsLocked() {
		return s.classifyMiss(id, requestedBy)
	}
	delete(s.db.slots, id)
	return nil
}

type memRequests struct{ db *memDB }

func (r memRequests) Create(ctx context.Context, req *model.SwapRequest) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, other := range r.db.requests {
		if other.Status != model.SwapStatusPending {
			continue
		}
		if other.RequesterSlotID == req.RequesterSlotID || other.TargetSlotID == req.TargetSlotID {
			return fmt.Errorf("%w: slot already has an open swap request", model.ErrConflict)
		}
	}
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	req.Status = model.SwapStatusPending
	req.CreatedAt = time.Now()
	r.db.requests[req.ID] = *req
	id := req.ID
	r.db.record(ctx, func() { delete(r.db.requests, id) })
	return nil
}

func (r memRequests) GetByID(ctx context.Context, id uuid.UUID) (*model.SwapRequest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	req, ok := r.db.requests[id]
	if !ok {
		return nil, fmt.Errorf("%w: swap request %s", model.ErrNotFound, id)
	}
	return &req, nil
}

func (r memRequests) Resolve(ctx context.Context, id uuid.UUID, status model.SwapStatus) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	req, ok := r.db.requests[id]
	if !ok || req.Status != model.SwapStatusPending {
		return fmt.Errorf("%w: swap request %s is not pending", model.ErrConflict, id)
	}
	prev := req
	now := time.Now()
	req.Status = status
	req.ResolvedAt = &now
	r.db.requests[id] = req
	r.db.record(ctx, func() { r.db.requests[id] = prev })
	return nil
}

func (r memRequests) list(match func(model.SwapRequest) bool) []*model.SwapRequest {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*model.SwapRequest
	for _, req := range r.db.requests {
		if !match(req) {
			continue
		}
		if slot, ok := r.db.slots[req.RequesterSlotID]; ok {
			req.RequesterSlot = &slot
		}
		if slot, ok := r.db.slots[req.TargetSlotID]; ok {
			req.TargetSlot = &slot
		}
		req.Requester = &model.User{ID: req.RequesterID}
		req.Target = &model.User{ID: req.TargetUserID}
		out = append(out, &req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r memRequests) ListIncoming(ctx context.Context, userID int64) ([]*model.SwapRequest, error) {
	return r.list(func(req model.SwapRequest) bool { return req.TargetUserID == userID }), nil
}

func (r memRequests) ListOutgoing(ctx context.Context, userID int64) ([]*model.SwapRequest, error) {
	return r.list(func(req model.SwapRequest) bool { return req.RequesterID == userID }), nil
}

type fixture struct {
	db      *memDB
	slots   *SlotService
	swaps   *SwapService
	queries *QueryService
	metrics *metrics.Collector
}

func newFixture() *fixture {
	db := newMemDB()
	collector := metrics.NewCollector()
	logger := zap.NewNop()
	slots := memSlots{db: db}
	requests := memRequests{db: db}

	return &fixture{
		db:      db,
		slots:   NewSlotService(slots, collector, logger),
		swaps:   NewSwapService(db, slots, requests, collector, logger),
		queries: NewQueryService(slots, requests),
		metrics: collector,
	}
}
