package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"github.com/go-playground/validator/v10"
)

// Ограничения на поля слота
const (
	SlotTitleMaxLength = 200
)

// CreateSlotInput данные для создания слота
type CreateSlotInput struct {
	OwnerID   int64            `validate:"required,gt=0"`
	Title     string           `validate:"required,max=200"`
	StartTime time.Time        `validate:"required"`
	EndTime   time.Time        `validate:"required,gtfield=StartTime"`
	Status    model.SlotStatus `validate:"required,oneof=BUSY SWAPPABLE"`
}

// UpdateSlotInput данные для изменения слота
type UpdateSlotInput struct {
	Title     string    `validate:"required,max=200"`
	StartTime time.Time `validate:"required"`
	EndTime   time.Time `validate:"required,gtfield=StartTime"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateInput проверяет структуру по тегам и приводит ошибку к ErrInvalidInput
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s(%s)", fe.Field(), fe.Tag()))
	}

	return fmt.Errorf("%w: invalid fields: %s", model.ErrInvalidInput, strings.Join(fields, ", "))
}
