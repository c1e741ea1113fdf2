package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "error with cause",
			err: Wrap(KindProvider, "openai.start", "chat completion failed",
				errors.New("connection reset")),
			contains: []string{"[provider:openai.start]", "chat completion failed", "connection reset"},
		},
		{
			name:     "error without cause",
			err:      New(KindContext, "dispatch", "acting user missing"),
			contains: []string{"[context:dispatch]", "acting user missing"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errStr := tt.err.Error()
			for _, substr := range tt.contains {
				if !strings.Contains(errStr, substr) {
					t.Errorf("error string %q does not contain %q", errStr, substr)
				}
			}
		})
	}
}

func TestWrap_NilAndPassThrough(t *testing.T) {
	if Wrap(KindStorage, "op", "msg", nil) != nil {
		t.Fatal("Wrap(nil) should return nil")
	}

	inner := New(KindTool, "save_post", "repository unavailable")
	outer := Wrap(KindDomain, "dispatch", "handler failed", fmt.Errorf("call: %w", inner))
	if outer != inner {
		t.Errorf("Wrap should keep the innermost typed error, got %v", outer)
	}
}

func TestError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	wrappedErr := Wrap(KindConfig, "test", "wrapped", originalErr)

	if !errors.Is(wrappedErr, originalErr) {
		t.Error("Unwrap should return the original error")
	}
}

func TestIsKind(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		kind     Kind
		expected bool
	}{
		{
			name:     "direct error kind match",
			err:      New(KindSerialization, "test", "message"),
			kind:     KindSerialization,
			expected: true,
		},
		{
			name:     "wrapped error kind match",
			err:      fmt.Errorf("outer: %w", Wrap(KindProvider, "test", "message", errors.New("cause"))),
			kind:     KindProvider,
			expected: true,
		},
		{
			name:     "error kind mismatch",
			err:      New(KindConfig, "test", "message"),
			kind:     KindDomain,
			expected: false,
		},
		{
			name:     "non-typed error",
			err:      errors.New("plain error"),
			kind:     KindConfig,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsKind(tt.err, tt.kind)
			if result != tt.expected {
				t.Errorf("IsKind() = %v, expected %v", result, tt.expected)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(errors.New("plain")); got != KindUnknown {
		t.Errorf("KindOf(plain) = %s", got)
	}
	if got := KindOf(New(KindTimeout, "exchange", "deadline")); got != KindTimeout {
		t.Errorf("KindOf(timeout) = %s", got)
	}
}
