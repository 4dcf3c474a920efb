package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"go.uber.org/zap"
)

// TelegramProfile данные пользователя из апдейта Telegram
type TelegramProfile struct {
	TelegramID   int64  `validate:"required,gt=0"`
	Username     string `validate:"max=64"`
	FirstName    string `validate:"max=128"`
	LastName     string `validate:"max=128"`
	LanguageCode string `validate:"max=35"`
}

// UserService регистрирует участников обмена
type UserService struct {
	users  UserStore
	logger *zap.Logger
}

func NewUserService(users UserStore, logger *zap.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

// RegisterUser создаёт пользователя при первом /start и обновляет
// профиль при повторных. Внутренний ID при этом не меняется.
func (s *UserService) RegisterUser(ctx context.Context, profile TelegramProfile) (*model.User, error) {
	profile.Username = strings.TrimPrefix(strings.TrimSpace(profile.Username), "@")
	profile.FirstName = strings.TrimSpace(profile.FirstName)
	profile.LastName = strings.TrimSpace(profile.LastName)

	if err := validateInput(profile); err != nil {
		return nil, err
	}

	user := &model.User{
		TelegramID:   profile.TelegramID,
		Username:     profile.Username,
		FirstName:    profile.FirstName,
		LastName:     profile.LastName,
		LanguageCode: profile.LanguageCode,
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("register user: %w", err)
	}

	s.logger.Debug("User profile saved",
		zap.Int64("user_id", user.ID),
		zap.Int64("telegram_id", user.TelegramID),
	)

	return user, nil
}

// GetByTelegramID находит зарегистрированного пользователя по Telegram ID
func (s *UserService) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	user, err := s.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("get user by telegram id: %w", err)
	}
	return user, nil
}

// GetByID нужен для уведомлений второй стороны обмена
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}
