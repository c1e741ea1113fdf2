package aggregate

import (
	"encoding/base64"
	"strings"
	"time"
)

type Role string

const (
	RoleUser   Role = "user"
	RoleAgent  Role = "agent"
	RoleSystem Role = "system"
)

// FunctionCall is the persisted form of a tool call made while producing an agent turn.
type FunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// Turn is one entry in a user's conversation log. Turns are never mutated after append.
type Turn struct {
	ID            string         `json:"id"`
	UserID        string         `json:"user_id"`
	Role          Role           `json:"role"`
	Message       string         `json:"message"`
	FunctionCalls []FunctionCall `json:"function_calls,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// ToolInvocation is a tool call requested by the model within a single hop.
// ID correlates the call with its result on backends that require it.
type ToolInvocation struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolResult is the dispatcher output for one ToolInvocation.
type ToolResult struct {
	CallID string `json:"call_id"`
	Name   string `json:"name"`
	Result any    `json:"result"`
}

// Attachment is a user-supplied file carried inline as base64.
type Attachment struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

func (a Attachment) IsImage() bool {
	return strings.HasPrefix(strings.ToLower(a.MimeType), "image/")
}

// Decode returns the raw bytes. Data URLs ("data:image/png;base64,...") are accepted.
func (a Attachment) Decode() ([]byte, error) {
	data := a.Data
	if i := strings.Index(data, ";base64,"); strings.HasPrefix(data, "data:") && i >= 0 {
		data = data[i+len(";base64,"):]
	}
	return base64.StdEncoding.DecodeString(data)
}
