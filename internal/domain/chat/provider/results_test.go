package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeResult(t *testing.T) {
	assert.JSONEq(t, `{"id":3}`, EncodeResult("x", map[string]any{"id": 3}, nil))
	assert.Equal(t, unserializableResult, EncodeResult("x", make(chan int), nil))
}

func TestResultObject(t *testing.T) {
	type saved struct {
		ID     int    `json:"id"`
		Status string `json:"status"`
	}

	assert.Equal(t, map[string]any{"id": 1.0, "status": "draft"}, ResultObject("save_post", saved{ID: 1, Status: "draft"}, nil))
	assert.Equal(t, map[string]any{"result": []any{"a"}}, ResultObject("list", []string{"a"}, nil))
	assert.Equal(t, map[string]any{"error": "boom"}, ResultObject("x", map[string]any{"error": "boom"}, nil))
}
