package event

import "time"

// Phase identifies a lifecycle point at which an event is emitted.
type Phase string

// Lifecycle phases emitted by taskflow components. ErrorOccurred is the
// only phase the dispatcher core requires; the remainder exist so that
// workflows built on top of the dispatcher can share one bus.
const (
	ErrorOccurred Phase = "ERROR_OCCURRED"
	BeforeStart   Phase = "BEFORE_START"
	BeforeClose   Phase = "BEFORE_CLOSE"
	OnConsume     Phase = "ON_CONSUME"
	OnParsing     Phase = "ON_PARSING"
	BeforeGetSeed Phase = "BEFORE_GET_SEEDS"
	AfterGetSeed  Phase = "AFTER_GET_SEEDS"
	BeforeRetry   Phase = "BEFORE_RETRY"
	AfterRetry    Phase = "AFTER_RETRY"
	BeforeRequest Phase = "BEFORE_REQUEST"
	AfterRequest  Phase = "AFTER_REQUEST"
)

// Event is a structured notification delivered to subscribers.
type Event struct {
	// Phase identifies what kind of event this is.
	Phase Phase

	// Err carries the causing error for ErrorOccurred events, nil otherwise.
	Err error

	// Source names the component that emitted the event (dispatcher name,
	// worker name).
	Source string

	// Payload carries optional phase-specific data.
	Payload interface{}

	// At is the emission time.
	At time.Time
}
