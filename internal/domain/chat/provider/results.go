package provider

import (
	"github.com/bytedance/sonic"

	"socialhub-server-go/internal/platform/logging"
)

const unserializableResult = `{"error":"tool result could not be serialized"}`

// EncodeResult renders a tool result as JSON text. Results that cannot be
// encoded are replaced by an error object so the model still gets an answer.
func EncodeResult(name string, result any, logger *logging.Logger) string {
	s, err := sonic.MarshalString(result)
	if err != nil {
		logger.ErrorTag("LLM", "serialize result of %s: %v", name, err)
		return unserializableResult
	}
	return s
}

// ResultObject renders a tool result as a JSON object. Non-object results are
// wrapped as {"result": value}.
func ResultObject(name string, result any, logger *logging.Logger) map[string]any {
	if m, ok := result.(map[string]any); ok {
		return NormalizeArguments(m, logger)
	}

	var decoded any
	if err := sonic.UnmarshalString(EncodeResult(name, result, logger), &decoded); err != nil {
		return map[string]any{"error": "tool result could not be serialized"}
	}
	if m, ok := decoded.(map[string]any); ok {
		return m
	}
	return map[string]any{"result": decoded}
}
