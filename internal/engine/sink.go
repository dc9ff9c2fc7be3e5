package engine

// Pipeline phases emitted to the event sink.
const (
	EventProcessing = "processing"
	EventProgress   = "progress"
	EventComplete   = "complete"
	EventError      = "error"
)

// EventSink receives phase notifications as the pipeline advances. It is
// injected so the engine carries no ambient broadcaster dependency;
// implementations typically push to a realtime channel per account.
type EventSink interface {
	Emit(accountID, event string, payload any)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Emit(string, string, any) {}
