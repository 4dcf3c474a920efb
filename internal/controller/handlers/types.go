package handlers

import (
	"time"

	"github.com/Freeeeeet/slotswap_bot/internal/controller/callbacks"
	"github.com/Freeeeeet/slotswap_bot/internal/controller/state"
	"github.com/Freeeeeet/slotswap_bot/internal/service"
	"go.uber.org/zap"
)

// Handlers содержит все зависимости для обработки команд и кнопок
type Handlers struct {
	userService  *service.UserService
	slotService  *service.SlotService
	swapService  *service.SwapService
	queryService *service.QueryService
	stateManager *state.Manager
	location     *time.Location // в нём разбирается ввод "02.01.2006 15:04"
	logger       *zap.Logger
	routes       map[callbacks.Action]callbackHandler
}

// NewHandlers создаёт новый обработчик команд
func NewHandlers(
	userService *service.UserService,
	slotService *service.SlotService,
	swapService *service.SwapService,
	queryService *service.QueryService,
	stateManager *state.Manager,
	location *time.Location,
	logger *zap.Logger,
) *Handlers {
	if location == nil {
		location = time.Local
	}
	h := &Handlers{
		userService:  userService,
		slotService:  slotService,
		swapService:  swapService,
		queryService: queryService,
		stateManager: stateManager,
		location:     location,
		logger:       logger,
	}
	h.routes = h.callbackRoutes()
	return h
}
