package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	userOne   int64 = 1
	userTwo   int64 = 2
	userThree int64 = 3
)

func TestRequestSwap_LocksBothSlots(t *testing.T) {
	f := newFixture()
	a := f.db.putSlot(userOne, model.SlotStatusSwappable)
	b := f.db.putSlot(userTwo, model.SlotStatusSwappable)

	req, err := f.swaps.RequestSwap(context.Background(), userOne, a, b)
	require.NoError(t, err)

	assert.Equal(t, model.SwapStatusPending, req.Status)
	assert.Equal(t, a, req.RequesterSlotID)
	assert.Equal(t, b, req.TargetSlotID)
	assert.Equal(t, userOne, req.RequesterID)
	assert.Equal(t, userTwo, req.TargetUserID)

	assert.Equal(t, model.SlotStatusSwapPending, f.db.slot(t, a).Status)
	assert.Equal(t, model.SlotStatusSwapPending, f.db.slot(t, b).Status)
	assert.Equal(t, model.SwapStatusPending, f.db.request(t, req.ID).Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SwapsRequested))
	f.db.requireInvariant(t)
}

func TestRequestSwap_Validation(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(db *memDB) (requester int64, mine, theirs uuid.UUID)
		wantErr error
	}{
		{
			name: "same slot",
			setup: func(db *memDB) (int64, uuid.UUID, uuid.UUID) {
				a := db.putSlot(userOne, model.SlotStatusSwappable)
				return userOne, a, a
			},
			wantErr: model.ErrInvalidInput,
		},
		{
			name: "same missing slot",
			setup: func(db *memDB) (int64, uuid.UUID, uuid.UUID) {
				id := uuid.New()
				return userOne, id, id
			},
			wantErr: model.ErrInvalidInput,
		},
		{
			name: "both slots of requester",
			setup: func(db *memDB) (int64, uuid.UUID, uuid.UUID) {
				return userOne, db.putSlot(userOne, model.SlotStatusSwappable), db.putSlot(userOne, model.SlotStatusSwappable)
			},
			wantErr: model.ErrInvalidInput,
		},
		{
			name: "both slots of another user",
			setup: func(db *memDB) (int64, uuid.UUID, uuid.UUID) {
				return userTwo, db.putSlot(userOne, model.SlotStatusSwappable), db.putSlot(userOne, model.SlotStatusSwappable)
			},
			wantErr: model.ErrForbidden,
		},
		{
			name: "offered slot not owned",
			setup: func(db *memDB) (int64, uuid.UUID, uuid.UUID) {
				return userThree, db.putSlot(userOne, model.SlotStatusSwappable), db.putSlot(userTwo, model.SlotStatusSwappable)
			},
			wantErr: model.ErrForbidden,
		},
		{
			name: "my slot missing",
			setup: func(db *memDB) (int64, uuid.UUID, uuid.UUID) {
				return userOne, uuid.New(), db.putSlot(userTwo, model.SlotStatusSwappable)
			},
			wantErr: model.ErrNotFound,
		},
		{
			name: "their slot missing",
			setup: func(db *memDB) (int64, uuid.UUID, uuid.UUID) {
				return userOne, db.putSlot(userOne, model.SlotStatusSwappable), uuid.New()
			},
			wantErr: model.ErrNotFound,
		},
		{
			name: "their slot busy",
			setup: func(db *memDB) (int64, uuid.UUID, uuid.UUID) {
				return userOne, db.putSlot(userOne, model.SlotStatusSwappable), db.putSlot(userTwo, model.SlotStatusBusy)
			},
			wantErr: model.ErrInvalidInput,
		},
		{
			name: "my slot busy",
			setup: func(db *memDB) (int64, uuid.UUID, uuid.UUID) {
				return userOne, db.putSlot(userOne, model.SlotStatusBusy), db.putSlot(userTwo, model.SlotStatusSwappable)
			},
			wantErr: model.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			requester, mine, theirs := tt.setup(f.db)

			_, err := f.swaps.RequestSwap(context.Background(), requester, mine, theirs)
			require.ErrorIs(t, err, tt.wantErr)

			f.db.mu.Lock()
			assert.Empty(t, f.db.requests)
			for _, slot := range f.db.slots {
				assert.NotEqual(t, model.SlotStatusSwapPending, slot.Status)
			}
			f.db.mu.Unlock()
		})
	}
}

func TestRequestSwap_SlotAlreadyPending(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.db.putSlot(userOne, model.SlotStatusSwappable)
	b := f.db.putSlot(userTwo, model.SlotStatusSwappable)
	c := f.db.putSlot(userThree, model.SlotStatusSwappable)

	_, err := f.swaps.RequestSwap(ctx, userOne, a, b)
	require.NoError(t, err)

	_, err = f.swaps.RequestSwap(ctx, userThree, c, b)
	require.ErrorIs(t, err, model.ErrInvalidInput)
	assert.Equal(t, model.SlotStatusSwappable, f.db.slot(t, c).Status)
	f.db.requireInvariant(t)
}

func TestRequestSwap_RollsBackWhenSecondLockFails(t *testing.T) {
	f := newFixture()
	a := f.db.putSlot(userOne, model.SlotStatusSwappable)
	b := f.db.putSlot(userTwo, model.SlotStatusSwappable)

	// Владелец B успевает сделать слот занятым между проверкой и блокировкой
	f.db.beforeCAS = func(id uuid.UUID) {
		if id != b {
			return
		}
		f.db.mu.Lock()
		slot := f.db.slots[b]
		slot.Status = model.SlotStatusBusy
		f.db.slots[b] = slot
		f.db.mu.Unlock()
	}

	_, err := f.swaps.RequestSwap(context.Background(), userOne, a, b)
	require.ErrorIs(t, err, model.ErrConflict)

	assert.Equal(t, model.SlotStatusSwappable, f.db.slot(t, a).Status)
	assert.Equal(t, model.SlotStatusBusy, f.db.slot(t, b).Status)
	assert.Empty(t, f.db.requests)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Conflicts.WithLabelValues("request_swap")))
	f.db.requireInvariant(t)
}

func TestRequestSwap_ConcurrentRequestsForSameSlot(t *testing.T) {
	f := newFixture()
	a := f.db.putSlot(userOne, model.SlotStatusSwappable)
	c := f.db.putSlot(userThree, model.SlotStatusSwappable)
	b := f.db.putSlot(userTwo, model.SlotStatusSwappable)

	// Оба запроса проходят предварительные проверки до того, как кто-то заблокирует слот
	var arrived sync.WaitGroup
	arrived.Add(2)
	var calls atomic.Int32
	f.db.beforeCAS = func(uuid.UUID) {
		if calls.Add(1) <= 2 {
			arrived.Done()
			arrived.Wait()
		}
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	offers := []struct {
		requester int64
		slot      uuid.UUID
	}{
		{userOne, a},
		{userThree, c},
	}

	for i, offer := range offers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.swaps.RequestSwap(context.Background(), offer.requester, offer.slot, b)
		}()
	}
	wg.Wait()

	succeeded, conflicted := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case assert.ErrorIs(t, err, model.ErrConflict):
			conflicted++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, conflicted)

	assert.Equal(t, model.SlotStatusSwapPending, f.db.slot(t, b).Status)
	assert.Len(t, f.db.requests, 1)
	f.db.requireInvariant(t)
}

func TestRequestSwap_CrossOffersDoNotBothSucceed(t *testing.T) {
	f := newFixture()
	a := f.db.putSlot(userOne, model.SlotStatusSwappable)
	b := f.db.putSlot(userTwo, model.SlotStatusSwappable)

	var arrived sync.WaitGroup
	arrived.Add(2)
	var calls atomic.Int32
	f.db.beforeCAS = func(uuid.UUID) {
		if calls.Add(1) <= 2 {
			arrived.Done()
			arrived.Wait()
		}
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = f.swaps.RequestSwap(context.Background(), userOne, a, b)
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = f.swaps.RequestSwap(context.Background(), userTwo, b, a)
	}()
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			require.ErrorIs(t, err, model.ErrConflict)
			failures++
		}
	}
	assert.GreaterOrEqual(t, failures, 1)
	assert.LessOrEqual(t, len(f.db.requests), 1)
	f.db.requireInvariant(t)
}

func newPendingSwap(t *testing.T, f *fixture) (a, b uuid.UUID, req *model.SwapRequest) {
	t.Helper()
	a = f.db.putSlot(userOne, model.SlotStatusSwappable)
	b = f.db.putSlot(userTwo, model.SlotStatusSwappable)

	req, err := f.swaps.RequestSwap(context.Background(), userOne, a, b)
	require.NoError(t, err)
	return a, b, req
}

func TestRespondToSwap_AcceptExchangesOwners(t *testing.T) {
	f := newFixture()
	a, b, req := newPendingSwap(t, f)

	resolved, err := f.swaps.RespondToSwap(context.Background(), userTwo, req.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.SwapStatusAccepted, resolved.Status)

	slotA := f.db.slot(t, a)
	slotB := f.db.slot(t, b)
	assert.Equal(t, userTwo, slotA.OwnerID)
	assert.Equal(t, model.SlotStatusBusy, slotA.Status)
	assert.Equal(t, userOne, slotB.OwnerID)
	assert.Equal(t, model.SlotStatusBusy, slotB.Status)

	stored := f.db.request(t, req.ID)
	assert.Equal(t, model.SwapStatusAccepted, stored.Status)
	assert.NotNil(t, stored.ResolvedAt)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SwapsResolved.WithLabelValues("ACCEPTED")))
	f.db.requireInvariant(t)
}

func TestRespondToSwap_RejectRestoresSlots(t *testing.T) {
	f := newFixture()
	a, b, req := newPendingSwap(t, f)

	resolved, err := f.swaps.RespondToSwap(context.Background(), userTwo, req.ID, false)
	require.NoError(t, err)
	assert.Equal(t, model.SwapStatusRejected, resolved.Status)

	slotA := f.db.slot(t, a)
	slotB := f.db.slot(t, b)
	assert.Equal(t, userOne, slotA.OwnerID)
	assert.Equal(t, model.SlotStatusSwappable, slotA.Status)
	assert.Equal(t, userTwo, slotB.OwnerID)
	assert.Equal(t, model.SlotStatusSwappable, slotB.Status)
	assert.Equal(t, model.SwapStatusRejected, f.db.request(t, req.ID).Status)
	f.db.requireInvariant(t)
}

func TestRespondToSwap_SecondResponseConflicts(t *testing.T) {
	for _, second := range []bool{true, false} {
		f := newFixture()
		a, _, req := newPendingSwap(t, f)

		_, err := f.swaps.RespondToSwap(context.Background(), userTwo, req.ID, true)
		require.NoError(t, err)

		_, err = f.swaps.RespondToSwap(context.Background(), userTwo, req.ID, second)
		require.ErrorIs(t, err, model.ErrConflict)

		assert.Equal(t, userTwo, f.db.slot(t, a).OwnerID)
		assert.Equal(t, model.SwapStatusAccepted, f.db.request(t, req.ID).Status)
	}
}

func TestRespondToSwap_OnlyTargetMayRespond(t *testing.T) {
	f := newFixture()
	a, b, req := newPendingSwap(t, f)

	for _, user := range []int64{userOne, userThree} {
		_, err := f.swaps.RespondToSwap(context.Background(), user, req.ID, true)
		require.ErrorIs(t, err, model.ErrForbidden)
	}

	assert.Equal(t, model.SlotStatusSwapPending, f.db.slot(t, a).Status)
	assert.Equal(t, model.SlotStatusSwapPending, f.db.slot(t, b).Status)
	assert.Equal(t, model.SwapStatusPending, f.db.request(t, req.ID).Status)
}

func TestRespondToSwap_NotFound(t *testing.T) {
	f := newFixture()

	_, err := f.swaps.RespondToSwap(context.Background(), userTwo, uuid.New(), true)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestRespondToSwap_OwnerChangedAbortsAccept(t *testing.T) {
	f := newFixture()
	a, b, req := newPendingSwap(t, f)

	f.db.mu.Lock()
	slot := f.db.slots[b]
	slot.OwnerID = userThree
	f.db.slots[b] = slot
	f.db.mu.Unlock()

	_, err := f.swaps.RespondToSwap(context.Background(), userTwo, req.ID, true)
	require.ErrorIs(t, err, model.ErrConflict)

	assert.Equal(t, userOne, f.db.slot(t, a).OwnerID)
	assert.Equal(t, model.SlotStatusSwapPending, f.db.slot(t, a).Status)
	assert.Equal(t, model.SwapStatusPending, f.db.request(t, req.ID).Status)
}

func TestRespondToSwap_ConcurrentResponsesResolveOnce(t *testing.T) {
	f := newFixture()
	_, _, req := newPendingSwap(t, f)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, accept := range []bool{true, false} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.swaps.RespondToSwap(context.Background(), userTwo, req.ID, accept)
		}()
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			require.ErrorIs(t, err, model.ErrConflict)
			failures++
		}
	}
	assert.Equal(t, 1, failures)
	f.db.requireInvariant(t)
}

func TestLockOrder(t *testing.T) {
	low := uuid.MustParse("00000000-0000-0000-0000-0000000000ff")
	high := uuid.MustParse("01000000-0000-0000-0000-000000000000")

	assert.Equal(t, []uuid.UUID{low, high}, lockOrder(low, high))
	assert.Equal(t, []uuid.UUID{low, high}, lockOrder(high, low))

	a, b := uuid.New(), uuid.New()
	assert.Equal(t, lockOrder(a, b), lockOrder(b, a))
}
