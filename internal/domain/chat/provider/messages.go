package provider

import "fmt"

const (
	SafetyBlockedMessage    = "I'm sorry, I can't help with that request because it was blocked by the model's safety filters."
	MalformedCallMessage    = "I'm sorry, I ran into a problem while preparing that action. Could you rephrase the request?"
	ProviderFailureMessage  = "I'm sorry, I couldn't reach the language model right now. Please try again in a moment."
	CircuitOpenMessage      = "I'm sorry, the language model is temporarily unavailable. Please try again shortly."
	EmptyCompletionMessage  = "I'm sorry, I didn't get a response from the model. Please try again."
	InvalidAttachmentFormat = "I'm sorry, I couldn't read the attachment %q. Please re-upload it."
)

// UnsupportedAttachmentMessage explains why an attachment was refused.
func UnsupportedAttachmentMessage(backend, name, mimeType string) string {
	return fmt.Sprintf("I'm sorry, the %s model can't read attachments of type %s (%q). Please describe the content in text or switch to a model that supports it.",
		backend, mimeType, name)
}

// Terminal builds a terminated response carrying text and zero usage.
func Terminal(text string) *Response {
	return &Response{Text: text, Terminated: true}
}
