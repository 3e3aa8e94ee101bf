package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkMessage_Fields(t *testing.T) {
	msg := WorkMessage{
		Region:       region(400, 0, 800, 300),
		Timestamp:    time.Unix(1700000000, 0),
		SubdividedBy: "worker-abcd1234",
	}
	msg.Region.Quarter = "top_right_sub"

	fields := msg.Fields()

	assert.Equal(t, map[string]string{
		"quarter_name":   "top_right_sub",
		"top_left_x":     "400",
		"top_left_y":     "0",
		"bottom_right_x": "800",
		"bottom_right_y": "300",
		"canvas_width":   "800",
		"canvas_height":  "600",
		"timestamp":      "1700000000",
		"subdivided_by":  "worker-abcd1234",
	}, fields)

	parsed, err := ParseWorkMessage(fields)
	require.NoError(t, err)
	assert.Equal(t, msg.Region, parsed.Region)
	assert.Equal(t, msg.SubdividedBy, parsed.SubdividedBy)
	assert.True(t, parsed.Timestamp.Equal(msg.Timestamp))
}

func TestWorkMessage_SeedHasNoSubdividedBy(t *testing.T) {
	fields := WorkMessage{Region: region(0, 0, 400, 300)}.Fields()

	_, ok := fields[FieldSubdividedBy]
	assert.False(t, ok)
	assert.NotEmpty(t, fields[FieldTimestamp])
}

func TestParseWorkMessage_Errors(t *testing.T) {
	valid := func() map[string]string {
		return WorkMessage{Region: region(0, 0, 10, 10)}.Fields()
	}

	tests := []struct {
		name   string
		mutate func(map[string]string)
		target error
	}{
		{"missing top_left_x", func(f map[string]string) { delete(f, FieldTopLeftX) }, ErrMissingField},
		{"empty canvas_width", func(f map[string]string) { f[FieldCanvasWidth] = "" }, ErrMissingField},
		{"non-numeric", func(f map[string]string) { f[FieldBottomRightY] = "ten" }, ErrInvalidField},
		{"float", func(f map[string]string) { f[FieldTopLeftY] = "1.5" }, ErrInvalidField},
		{"outside canvas", func(f map[string]string) { f[FieldBottomRightX] = "900" }, ErrInvalidRegion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := valid()
			tt.mutate(fields)

			_, err := ParseWorkMessage(fields)
			assert.ErrorIs(t, err, ErrDecode)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestParseWorkMessage_DefaultsQuarterName(t *testing.T) {
	fields := WorkMessage{Region: region(0, 0, 10, 10)}.Fields()
	delete(fields, FieldQuarterName)
	delete(fields, FieldTimestamp)

	msg, err := ParseWorkMessage(fields)
	require.NoError(t, err)
	assert.Equal(t, "unknown", msg.Region.Quarter)
	assert.True(t, msg.Timestamp.IsZero())
}

func TestResultMessage_Fields(t *testing.T) {
	msg := ResultMessage{
		Region:    region(0, 300, 400, 600),
		Color:     Color{R: 12, G: 200, B: 255},
		WorkerID:  "worker-1",
		Timestamp: time.Unix(1700000001, 0),
	}

	fields := msg.Fields()
	assert.Equal(t, "12", fields[FieldColorR])
	assert.Equal(t, "200", fields[FieldColorG])
	assert.Equal(t, "255", fields[FieldColorB])
	assert.Equal(t, "worker-1", fields[FieldWorkerID])
	_, ok := fields[FieldSubdividedBy]
	assert.False(t, ok)

	parsed, err := ParseResultMessage(fields)
	require.NoError(t, err)
	assert.Equal(t, msg.Region, parsed.Region)
	assert.Equal(t, msg.Color, parsed.Color)
	assert.Equal(t, msg.WorkerID, parsed.WorkerID)
}

func TestParseResultMessage_Errors(t *testing.T) {
	base := func() map[string]string {
		return ResultMessage{Region: region(0, 0, 4, 4), Color: Color{R: 1, G: 2, B: 3}}.Fields()
	}

	tests := []struct {
		name   string
		mutate func(map[string]string)
		target error
	}{
		{"missing color", func(f map[string]string) { delete(f, FieldColorG) }, ErrMissingField},
		{"color overflow", func(f map[string]string) { f[FieldColorB] = "256" }, ErrInvalidField},
		{"negative color", func(f map[string]string) { f[FieldColorR] = "-1" }, ErrInvalidField},
		{"garbage coordinate", func(f map[string]string) { f[FieldTopLeftX] = "x" }, ErrInvalidField},
		{"inverted rect", func(f map[string]string) {
			f[FieldTopLeftX], f[FieldTopLeftY] = "6", "6"
			f[FieldBottomRightX], f[FieldBottomRightY] = "2", "2"
		}, ErrInvalidField},
		{"zero width", func(f map[string]string) { f[FieldBottomRightX] = f[FieldTopLeftX] }, ErrInvalidField},
		{"zero height", func(f map[string]string) { f[FieldBottomRightY] = f[FieldTopLeftY] }, ErrInvalidField},
		{"negative corner", func(f map[string]string) { f[FieldTopLeftY] = "-1" }, ErrInvalidField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := base()
			tt.mutate(fields)

			_, err := ParseResultMessage(fields)
			assert.ErrorIs(t, err, ErrDecode)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestParseResultMessage_CanvasOptional(t *testing.T) {
	fields := ResultMessage{Region: region(0, 0, 4, 4)}.Fields()
	delete(fields, FieldCanvasWidth)
	delete(fields, FieldCanvasHeight)
	delete(fields, FieldWorkerID)

	msg, err := ParseResultMessage(fields)
	require.NoError(t, err)
	assert.Equal(t, 0, msg.Region.CanvasWidth)
	assert.Equal(t, "unknown", msg.WorkerID)
}
