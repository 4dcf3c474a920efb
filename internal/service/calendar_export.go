package service

import (
	"context"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/Freeeeeet/slotswap_bot/internal/model"
)

const (
	icsProductID      = "-//slotswap_bot//slots//RU"
	icsSlotStatusProp = ics.ComponentProperty("X-SLOTSWAP-STATUS")
)

// ExportCalendar выгружает слоты пользователя в формате iCalendar (RFC 5545)
func (s *QueryService) ExportCalendar(ctx context.Context, ownerID int64) ([]byte, error) {
	slots, err := s.slots.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list slots for export: %w", err)
	}

	return BuildCalendar(slots, time.Now()), nil
}

// BuildCalendar собирает календарь из слотов; stamp попадает в DTSTAMP
func BuildCalendar(slots []*model.Slot, stamp time.Time) []byte {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(icsProductID)

	for _, slot := range slots {
		event := cal.AddEvent(slot.ID.String())
		event.SetDtStampTime(stamp.UTC())
		event.SetStartAt(slot.StartTime.UTC())
		event.SetEndAt(slot.EndTime.UTC())
		event.SetSummary(slot.Title)
		event.SetProperty(icsSlotStatusProp, string(slot.Status))
	}

	return []byte(cal.Serialize())
}
