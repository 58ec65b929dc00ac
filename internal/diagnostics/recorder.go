package diagnostics

import "sync"

// Event is one recorded emission.
type Event struct {
	Severity Severity
	Category string
	Message  string
	Payload  map[string]any
}

// Recorder keeps every event in memory. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(severity Severity, category, message string, payload map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Severity: severity, Category: category, Message: message, Payload: payload})
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Messages returns the messages of events in category, in order.
func (r *Recorder) Messages(category string) []string {
	var out []string
	for _, e := range r.Events() {
		if e.Category == category {
			out = append(out, e.Message)
		}
	}
	return out
}
