// Package weekimage рисует неделю слотов пользователя в PNG.
package weekimage

import (
	"bytes"
	"fmt"
	"image/color"
	"sync"
	"time"

	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Размеры и отступы
const (
	imageWidth       = 1400
	imageHeight      = 900
	headerHeight     = 100
	leftLabelsWidth  = 80
	legendWidth      = 160
	dayPaddingX      = 8
	minSlotHeight    = 8.0
	slotBorderRadius = 6.0
	daysInWeek       = 7
	hourPadding      = 1
)

const (
	titleFontSize  = 25.0
	dayFontSize    = 24.0
	hourFontSize   = 16.0
	slotFontSize   = 15.0
	legendFontSize = 13.0
)

var (
	bgColor        = color.RGBA{245, 246, 248, 255}
	textColor      = color.RGBA{80, 85, 90, 220}
	hourLabelColor = color.RGBA{110, 115, 120, 200}
	hourLineColor  = color.NRGBA{150, 150, 150, 255}
	todayBgColor   = color.NRGBA{255, 99, 71, 90}
	evenDayColor   = color.NRGBA{240, 240, 240, 255}
	oddDayColor    = color.NRGBA{225, 225, 225, 255}
	slotTextColor  = color.RGBA{20, 24, 28, 230}

	statusColors = map[model.SlotStatus]color.RGBA{
		model.SlotStatusBusy:        {255, 182, 193, 255},
		model.SlotStatusSwappable:   {133, 193, 85, 220},
		model.SlotStatusSwapPending: {255, 200, 87, 230},
	}
	defaultSlotColor = color.RGBA{220, 220, 220, 200}
)

type fontWeight int

const (
	weightRegular fontWeight = iota
	weightBold
)

var (
	fontsOnce sync.Once
	fonts     map[fontWeight]*opentype.Font
)

func parseFonts() {
	fonts = make(map[fontWeight]*opentype.Font)
	if f, err := opentype.Parse(goregular.TTF); err == nil {
		fonts[weightRegular] = f
	}
	if f, err := opentype.Parse(gobold.TTF); err == nil {
		fonts[weightBold] = f
	}
}

// setFont ставит Go-шрифт (есть кириллица) или basicfont, если разбор не удался
func setFont(dc *gg.Context, size float64, weight fontWeight) {
	fontsOnce.Do(parseFonts)

	if f, ok := fonts[weight]; ok {
		face, err := opentype.NewFace(f, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err == nil {
			dc.SetFontFace(face)
			return
		}
	}
	dc.SetFontFace(basicfont.Face7x13)
}

type hourRange struct {
	start int
	end   int
}

func (h hourRange) total() int {
	return h.end - h.start + 1
}

// Render рисует неделю, в которую попадает day. now отмечает сегодняшний день.
func Render(day time.Time, slots []*model.Slot, now time.Time) ([]byte, error) {
	weekStart := WeekStart(day)
	weekEnd := weekStart.AddDate(0, 0, daysInWeek)

	var inWeek []*model.Slot
	for _, slot := range slots {
		if slot.StartTime.Before(weekEnd) && slot.EndTime.After(weekStart) {
			inWeek = append(inWeek, slot)
		}
	}

	hours := visibleHours(inWeek, day.Location())

	dc := gg.NewContext(imageWidth, imageHeight)
	dc.SetColor(bgColor)
	dc.Clear()

	dayWidth := (imageWidth - leftLabelsWidth - legendWidth) / daysInWeek
	dayHeight := imageHeight - headerHeight
	cellHeight := float64(dayHeight) / float64(hours.total())

	drawHeader(dc, weekStart)
	drawHourLabels(dc, hours, cellHeight)

	today := now.In(day.Location())
	for i := 0; i < daysInWeek; i++ {
		date := weekStart.AddDate(0, 0, i)
		x := float64(leftLabelsWidth + i*dayWidth)
		drawDay(dc, date, i, sameDay(date, today), x, dayWidth, dayHeight, hours, cellHeight)

		for _, slot := range inWeek {
			start := slot.StartTime.In(day.Location())
			if sameDay(start, date) {
				drawSlot(dc, slot, start, slot.EndTime.In(day.Location()), x, dayWidth, hours, cellHeight)
			}
		}
	}

	drawLegend(dc, dayWidth)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode week image: %w", err)
	}
	return buf.Bytes(), nil
}

// WeekStart понедельник 00:00 недели, в которую попадает t
func WeekStart(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// visibleHours часы, которые покрывают все слоты недели, с запасом
func visibleHours(slots []*model.Slot, loc *time.Location) hourRange {
	if len(slots) == 0 {
		return hourRange{start: 8, end: 20}
	}

	minHour, maxHour := 23, 0
	for _, slot := range slots {
		start := slot.StartTime.In(loc)
		end := slot.EndTime.In(loc)

		endHour := end.Hour()
		if end.Minute() > 0 {
			endHour++
		}
		if !sameDay(start, end) {
			endHour = 24
		}

		minHour = min(minHour, start.Hour())
		maxHour = max(maxHour, endHour)
	}

	return hourRange{
		start: max(0, minHour-hourPadding),
		end:   min(23, maxHour+hourPadding),
	}
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

func drawHeader(dc *gg.Context, weekStart time.Time) {
	weekEnd := weekStart.AddDate(0, 0, daysInWeek-1)
	title := fmt.Sprintf("Мои слоты: %s - %s", weekStart.Format("02.01"), weekEnd.Format("02.01.2006"))

	setFont(dc, titleFontSize, weightBold)
	dc.SetColor(textColor)
	dc.DrawStringAnchored(title, float64(leftLabelsWidth), float64(headerHeight)/4, 0, 0.5)
}

func drawHourLabels(dc *gg.Context, hours hourRange, cellHeight float64) {
	setFont(dc, hourFontSize, weightRegular)
	dc.SetColor(hourLabelColor)

	for i := 0; i < hours.total(); i++ {
		y := float64(headerHeight) + float64(i)*cellHeight
		dc.DrawStringAnchored(fmt.Sprintf("%02d:00", hours.start+i), float64(leftLabelsWidth)-10, y, 1, 0.5)
	}
}

func drawDay(dc *gg.Context, date time.Time, index int, isToday bool, x float64, dayWidth, dayHeight int, hours hourRange, cellHeight float64) {
	y := float64(headerHeight)

	switch {
	case isToday:
		dc.SetColor(todayBgColor)
	case index%2 == 0:
		dc.SetColor(evenDayColor)
	default:
		dc.SetColor(oddDayColor)
	}
	dc.DrawRectangle(x, y, float64(dayWidth), float64(dayHeight))
	dc.Fill()

	setFont(dc, dayFontSize, weightBold)
	dc.SetColor(textColor)
	label := fmt.Sprintf("%s %s", weekdayShort(date.Weekday()), date.Format("02.01"))
	dc.DrawStringAnchored(label, x+float64(dayWidth)/2, y-12, 0.5, 0)

	dc.SetLineWidth(0.3)
	dc.SetColor(hourLineColor)
	for i := 0; i <= hours.total(); i++ {
		hy := y + float64(i)*cellHeight
		dc.DrawLine(x, hy, x+float64(dayWidth), hy)
		dc.Stroke()
	}
}

func drawSlot(dc *gg.Context, slot *model.Slot, start, end time.Time, x float64, dayWidth int, hours hourRange, cellHeight float64) {
	startHour := float64(start.Hour()) + float64(start.Minute())/60
	endHour := float64(end.Hour()) + float64(end.Minute())/60
	if !sameDay(start, end) {
		endHour = float64(hours.end + 1)
	}

	slotY := float64(headerHeight) + (startHour-float64(hours.start))*cellHeight
	slotHeight := max((endHour-startHour)*cellHeight, minSlotHeight)
	slotWidth := float64(dayWidth) - dayPaddingX*2

	fill, ok := statusColors[slot.Status]
	if !ok {
		fill = defaultSlotColor
	}

	dc.SetColor(fill)
	dc.DrawRoundedRectangle(x+dayPaddingX, slotY+2, slotWidth, slotHeight-4, slotBorderRadius)
	dc.Fill()

	dc.SetColor(darken(fill, 0.8))
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(x+dayPaddingX, slotY+2, slotWidth, slotHeight-4, slotBorderRadius)
	dc.Stroke()

	setFont(dc, slotFontSize, weightBold)
	dc.SetColor(slotTextColor)
	textX := x + dayPaddingX + 8
	dc.DrawStringAnchored(start.Format("15:04"), textX, slotY+18, 0, 0)

	if slotHeight > 40 {
		setFont(dc, slotFontSize-2, weightRegular)
		dc.DrawStringAnchored(truncate(slot.Title, 18), textX, slotY+36, 0, 0)
	}
}

func drawLegend(dc *gg.Context, dayWidth int) {
	x := float64(leftLabelsWidth + daysInWeek*dayWidth + 14)
	y := float64(imageHeight) - 110

	items := []model.SlotStatus{model.SlotStatusBusy, model.SlotStatusSwappable, model.SlotStatusSwapPending}
	labels := map[model.SlotStatus]string{
		model.SlotStatusBusy:        "Занят",
		model.SlotStatusSwappable:   "Можно обменять",
		model.SlotStatusSwapPending: "Ожидает обмена",
	}

	setFont(dc, legendFontSize, weightRegular)
	for _, status := range items {
		dc.SetColor(statusColors[status])
		dc.DrawRoundedRectangle(x, y, 20, 14, 3)
		dc.Fill()

		dc.SetColor(textColor)
		dc.DrawStringAnchored(labels[status], x+28, y+7, 0, 0.35)
		y += 28
	}
}

func darken(c color.RGBA, factor float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
		A: c.A,
	}
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func weekdayShort(weekday time.Weekday) string {
	return [...]string{"Вс", "Пн", "Вт", "Ср", "Чт", "Пт", "Сб"}[weekday]
}
