package provider

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type colour int

func (c colour) String() string { return "colour" }

type point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func TestNormalizeArguments(t *testing.T) {
	when := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	raw := map[string]any{
		"s":      "text",
		"i":      int32(7),
		"f":      float32(1.5),
		"b":      true,
		"n":      nil,
		"num":    json.Number("12"),
		"time":   when,
		"list":   []string{"a", "b"},
		"nested": map[string]any{"inner": []int{1, 2}},
		"intmap": map[int]string{1: "one"},
		"ptr":    &point{X: 1, Y: 2},
		"nan":    math.NaN(),
		"fn":     func() {},
		"enum":   colour(3),
	}

	got := NormalizeArguments(raw, nil)

	assert.Equal(t, "text", got["s"])
	assert.Equal(t, 7.0, got["i"])
	assert.Equal(t, 1.5, got["f"])
	assert.Equal(t, true, got["b"])
	assert.Nil(t, got["n"])
	assert.Equal(t, 12.0, got["num"])
	assert.Equal(t, "2024-06-01T09:30:00Z", got["time"])
	assert.Equal(t, []any{"a", "b"}, got["list"])
	assert.Equal(t, map[string]any{"inner": []any{1.0, 2.0}}, got["nested"])
	assert.Equal(t, map[string]any{"1": "one"}, got["intmap"])
	assert.Equal(t, map[string]any{"x": 1.0, "y": 2.0}, got["ptr"])
	assert.Nil(t, got["nan"])
	assert.Nil(t, got["fn"])
	assert.Equal(t, 3.0, got["enum"])

	_, err := json.Marshal(got)
	assert.NoError(t, err, "normalized arguments must always serialize")
}

func TestNormalizeArgumentsEmpty(t *testing.T) {
	assert.Equal(t, map[string]any{}, NormalizeArguments(nil, nil))
}
