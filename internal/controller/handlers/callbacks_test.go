package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path"
	"sync"
	"testing"

	"github.com/Freeeeeet/slotswap_bot/internal/controller/callbacks"
	"github.com/Freeeeeet/slotswap_bot/internal/controller/state"
	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"github.com/Freeeeeet/slotswap_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// apiCall запрос, пришедший в фейковый Bot API
type apiCall struct {
	method string
	fields map[string]string
}

type fakeBotAPI struct {
	mu    sync.Mutex
	calls []apiCall
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	call := apiCall{method: path.Base(r.URL.Path), fields: map[string]string{}}
	if err := r.ParseMultipartForm(1 << 20); err == nil {
		for k, v := range r.MultipartForm.Value {
			call.fields[k] = v[0]
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
}

func (f *fakeBotAPI) recorded() []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]apiCall(nil), f.calls...)
}

// unknownUsers хранилище, в котором никто не зарегистрирован
type unknownUsers struct {
	mu      sync.Mutex
	lookups int
}

func (u *unknownUsers) Upsert(context.Context, *model.User) error { return nil }

func (u *unknownUsers) GetByTelegramID(_ context.Context, telegramID int64) (*model.User, error) {
	u.mu.Lock()
	u.lookups++
	u.mu.Unlock()
	return nil, fmt.Errorf("%w: user with telegram id %d", model.ErrNotFound, telegramID)
}

func (u *unknownUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	return nil, fmt.Errorf("%w: user %d", model.ErrNotFound, id)
}

func newTestBot(t *testing.T) (*bot.Bot, *fakeBotAPI) {
	t.Helper()

	api := &fakeBotAPI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	b, err := bot.New("123:test", bot.WithServerURL(srv.URL), bot.WithSkipGetMe())
	require.NoError(t, err)
	return b, api
}

func newTestHandlers(users service.UserStore) *Handlers {
	logger := zap.NewNop()
	return NewHandlers(service.NewUserService(users, logger), nil, nil, nil, state.NewManager(), nil, logger)
}

func TestCallbackRoutes_CoverEveryAction(t *testing.T) {
	h := newTestHandlers(&unknownUsers{})

	for _, action := range callbacks.Actions() {
		_, routed := h.routes[action]
		if action == callbacks.ActionNoop {
			assert.False(t, routed, "noop is answered before routing")
			continue
		}
		assert.True(t, routed, "no route for action %q", action)
	}
	assert.Len(t, h.routes, len(callbacks.Actions())-1)
}

func TestHandleCallbackQuery_Dispatch(t *testing.T) {
	tests := []struct {
		name        string
		data        string
		wantText    string
		wantAlert   bool
		wantLookups int
	}{
		{
			name:      "malformed data",
			data:      "zz:???",
			wantText:  "❌ Неверный формат",
			wantAlert: true,
		},
		{
			name:     "noop",
			data:     callbacks.Encode(callbacks.ActionNoop),
			wantText: "",
		},
		{
			name:        "unregistered user",
			data:        callbacks.Encode(callbacks.ActionAccept, uuid.New()),
			wantText:    textNotRegistered,
			wantAlert:   true,
			wantLookups: 1,
		},
		{
			name:        "unregistered user picks a slot",
			data:        callbacks.Encode(callbacks.ActionPick, uuid.New(), uuid.New()),
			wantText:    textNotRegistered,
			wantAlert:   true,
			wantLookups: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := &unknownUsers{}
			h := newTestHandlers(users)
			b, api := newTestBot(t)

			h.HandleCallbackQuery(context.Background(), b, &models.Update{
				CallbackQuery: &models.CallbackQuery{
					ID:   "cb-1",
					From: models.User{ID: 42},
					Data: tt.data,
				},
			})

			calls := api.recorded()
			require.Len(t, calls, 1)
			assert.Equal(t, "answerCallbackQuery", calls[0].method)
			assert.Equal(t, "cb-1", calls[0].fields["callback_query_id"])
			assert.Equal(t, tt.wantText, calls[0].fields["text"])
			if tt.wantAlert {
				assert.Equal(t, "true", calls[0].fields["show_alert"])
			} else {
				assert.Empty(t, calls[0].fields["show_alert"])
			}
			assert.Equal(t, tt.wantLookups, users.lookups)
		})
	}
}

func TestHandleCallbackQuery_IgnoresOtherUpdates(t *testing.T) {
	h := newTestHandlers(&unknownUsers{})
	b, api := newTestBot(t)

	h.HandleCallbackQuery(context.Background(), b, &models.Update{})

	assert.Empty(t, api.recorded())
}
