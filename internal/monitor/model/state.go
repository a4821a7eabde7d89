package model

import "time"

// MessageKind classifies an inbound message after parsing.
type MessageKind string

const (
	KindUnset MessageKind = ""
	KindImage MessageKind = "image"
	KindText  MessageKind = "text"
	KindEmpty MessageKind = "empty"
)

// InboundMessage is what the messaging gateway delivers per event.
// Signature verification has already happened upstream.
type InboundMessage struct {
	MessageID string   `json:"message_id"`
	SenderID  string   `json:"sender_id"`
	Body      string   `json:"body"`
	MediaURLs []string `json:"media_urls"`
}

// ToolCallRecord is one entry of the agent's tool-call trace, kept for
// observability and tests; routing never reads it.
type ToolCallRecord struct {
	Tool   string `json:"tool"`
	Input  string `json:"input"`
	Output string `json:"output"`
}

// WorkflowState is the per-run record threaded through every node of the
// graph. One instance exists per inbound message; nodes only ever add
// fields, never retract a predecessor's verdict.
//
// Concurrency model: a state is owned by exactly one run and nodes within
// a run execute strictly sequentially, so no locking is needed. Runs for
// distinct messages share nothing but the external stores.
type WorkflowState struct {
	// identity
	MessageID string
	SenderID  string

	// input
	Body      string
	MediaURLs []string

	// derived by the parser
	HasImage bool
	Kind     MessageKind

	// classification
	IsMeterImage  bool
	ClassifierErr string // diagnostic only; classification failure is non-fatal

	// extraction; Measurement and ReadingDate are set together or not at all
	Measurement *float64
	ReadingDate *time.Time
	Confidence  *float64

	// persistence
	WriteSucceeded bool
	WriteErr       string // empty for the "nothing to write" no-op

	// agent
	FinalAnswer string
	ToolTrace   []ToolCallRecord

	// output; non-empty by the time the run terminates
	Response string
}

// HasReading reports whether extraction produced a complete, validated reading.
func (s *WorkflowState) HasReading() bool {
	return s.Measurement != nil && s.ReadingDate != nil
}

// NewWorkflowState seeds a fresh run state from an inbound message.
func NewWorkflowState(msg InboundMessage) *WorkflowState {
	return &WorkflowState{
		MessageID: msg.MessageID,
		SenderID:  msg.SenderID,
		Body:      msg.Body,
		MediaURLs: msg.MediaURLs,
	}
}
