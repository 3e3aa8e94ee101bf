package domain

import (
	"fmt"
	"strconv"
	"time"
)

// Имена полей записей в потоках. Совпадают с полями, которые пишут
// существующие продюсеры и консьюмеры, менять нельзя.
const (
	FieldQuarterName  = "quarter_name"
	FieldTopLeftX     = "top_left_x"
	FieldTopLeftY     = "top_left_y"
	FieldBottomRightX = "bottom_right_x"
	FieldBottomRightY = "bottom_right_y"
	FieldCanvasWidth  = "canvas_width"
	FieldCanvasHeight = "canvas_height"
	FieldTimestamp    = "timestamp"

	// Только в WorkMessage.
	FieldSubdividedBy = "subdivided_by"

	// Только в ResultMessage.
	FieldColorR   = "color_r"
	FieldColorG   = "color_g"
	FieldColorB   = "color_b"
	FieldWorkerID = "worker_id"
)

// unknownLabel подставляется, если в записи нет quarter_name или worker_id.
const unknownLabel = "unknown"

// WorkMessage — единица работы в очереди: область, которую нужно вычислить.
//
// Создаётся Coordinator'ом (глубина 0) или Worker'ом при разбиении
// (тогда заполнен SubdividedBy).
type WorkMessage struct {
	Region Region

	// Timestamp — время создания (в записи хранится в секундах Unix).
	Timestamp time.Time

	// SubdividedBy — ID воркера, породившего сообщение. Пусто для seed.
	SubdividedBy string
}

// Fields кодирует сообщение в плоскую карту полей записи.
func (m WorkMessage) Fields() map[string]string {
	fields := regionFields(m.Region, m.Timestamp)
	if m.SubdividedBy != "" {
		fields[FieldSubdividedBy] = m.SubdividedBy
	}
	return fields
}

// ParseWorkMessage разбирает запись очереди работ.
func ParseWorkMessage(fields map[string]string) (WorkMessage, error) {
	region, err := parseRegion(fields)
	if err != nil {
		return WorkMessage{}, err
	}

	return WorkMessage{
		Region:       region,
		Timestamp:    parseTimestamp(fields),
		SubdividedBy: fields[FieldSubdividedBy],
	}, nil
}

// ResultMessage — вычисленный цвет области.
type ResultMessage struct {
	Region    Region
	Color     Color
	WorkerID  string
	Timestamp time.Time
}

// Fields кодирует результат в плоскую карту полей записи.
func (m ResultMessage) Fields() map[string]string {
	fields := regionFields(m.Region, m.Timestamp)
	fields[FieldColorR] = strconv.Itoa(int(m.Color.R))
	fields[FieldColorG] = strconv.Itoa(int(m.Color.G))
	fields[FieldColorB] = strconv.Itoa(int(m.Color.B))
	fields[FieldWorkerID] = m.WorkerID
	return fields
}

// ParseResultMessage разбирает запись потока результатов.
//
// Размеры холста в результате необязательны для компоновщика,
// поэтому проверяются только координаты и цвет.
func ParseResultMessage(fields map[string]string) (ResultMessage, error) {
	var (
		msg ResultMessage
		err error
	)

	msg.Region.Quarter = fieldOr(fields, FieldQuarterName, unknownLabel)
	ints := []struct {
		key string
		dst *int
	}{
		{FieldTopLeftX, &msg.Region.TopLeft.X},
		{FieldTopLeftY, &msg.Region.TopLeft.Y},
		{FieldBottomRightX, &msg.Region.BottomRight.X},
		{FieldBottomRightY, &msg.Region.BottomRight.Y},
	}
	for _, f := range ints {
		if *f.dst, err = intField(fields, f.key); err != nil {
			return ResultMessage{}, err
		}
	}
	if err := checkRect(msg.Region.TopLeft, msg.Region.BottomRight); err != nil {
		return ResultMessage{}, err
	}

	// canvas_* пишут все продюсеры, но отсутствие не мешает покраске
	msg.Region.CanvasWidth, _ = intField(fields, FieldCanvasWidth)
	msg.Region.CanvasHeight, _ = intField(fields, FieldCanvasHeight)

	channels := []struct {
		key string
		dst *uint8
	}{
		{FieldColorR, &msg.Color.R},
		{FieldColorG, &msg.Color.G},
		{FieldColorB, &msg.Color.B},
	}
	for _, ch := range channels {
		if *ch.dst, err = channelField(fields, ch.key); err != nil {
			return ResultMessage{}, err
		}
	}

	msg.WorkerID = fieldOr(fields, FieldWorkerID, unknownLabel)
	msg.Timestamp = parseTimestamp(fields)

	return msg, nil
}

func regionFields(r Region, ts time.Time) map[string]string {
	if ts.IsZero() {
		ts = time.Now()
	}
	return map[string]string{
		FieldQuarterName:  r.Quarter,
		FieldTopLeftX:     strconv.Itoa(r.TopLeft.X),
		FieldTopLeftY:     strconv.Itoa(r.TopLeft.Y),
		FieldBottomRightX: strconv.Itoa(r.BottomRight.X),
		FieldBottomRightY: strconv.Itoa(r.BottomRight.Y),
		FieldCanvasWidth:  strconv.Itoa(r.CanvasWidth),
		FieldCanvasHeight: strconv.Itoa(r.CanvasHeight),
		FieldTimestamp:    strconv.FormatInt(ts.Unix(), 10),
	}
}

func parseRegion(fields map[string]string) (Region, error) {
	var (
		r   Region
		err error
	)

	r.Quarter = fieldOr(fields, FieldQuarterName, unknownLabel)
	ints := []struct {
		key string
		dst *int
	}{
		{FieldTopLeftX, &r.TopLeft.X},
		{FieldTopLeftY, &r.TopLeft.Y},
		{FieldBottomRightX, &r.BottomRight.X},
		{FieldBottomRightY, &r.BottomRight.Y},
		{FieldCanvasWidth, &r.CanvasWidth},
		{FieldCanvasHeight, &r.CanvasHeight},
	}
	for _, f := range ints {
		if *f.dst, err = intField(fields, f.key); err != nil {
			return Region{}, err
		}
	}

	if err := r.Validate(); err != nil {
		return Region{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return r, nil
}

// checkRect требует неотрицательный top_left строго левее и выше
// bottom_right. Перевёрнутый прямоугольник не рисуется: image.Rect
// переставил бы углы и закрасил чужую область.
func checkRect(tl, br Point) error {
	if tl.X < 0 || tl.Y < 0 {
		return fmt.Errorf("%w: %w: top_left %d,%d is negative", ErrDecode, ErrInvalidField, tl.X, tl.Y)
	}
	if tl.X >= br.X || tl.Y >= br.Y {
		return fmt.Errorf("%w: %w: empty or inverted rect %d,%d-%d,%d",
			ErrDecode, ErrInvalidField, tl.X, tl.Y, br.X, br.Y)
	}
	return nil
}

func intField(fields map[string]string, key string) (int, error) {
	raw, ok := fields[key]
	if !ok || raw == "" {
		return 0, fmt.Errorf("%w: %w: %s", ErrDecode, ErrMissingField, key)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %w: %s=%q", ErrDecode, ErrInvalidField, key, raw)
	}
	return v, nil
}

func channelField(fields map[string]string, key string) (uint8, error) {
	v, err := intField(fields, key)
	if err != nil {
		return 0, err
	}
	if v < 0 || v > 255 {
		return 0, fmt.Errorf("%w: %w: %s=%d out of 0..255", ErrDecode, ErrInvalidField, key, v)
	}
	return uint8(v), nil
}

// parseTimestamp — отсутствующий или кривой timestamp не ошибка.
func parseTimestamp(fields map[string]string) time.Time {
	sec, err := strconv.ParseInt(fields[FieldTimestamp], 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}

func fieldOr(fields map[string]string, key, fallback string) string {
	if v, ok := fields[key]; ok && v != "" {
		return v
	}
	return fallback
}
