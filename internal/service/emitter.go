package service

import (
	"context"
	"sync"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter: decouples services from their hosts
// ─────────────────────────────────────────────────────────────

// Events emitted by the services.
const (
	EventDocumentChanged = "document:changed"
	EventHistoryChanged  = "history:changed"
	EventAssetReady      = "asset:ready"
	EventAssetFailed     = "asset:failed"
	EventExportState     = "export:state"
	EventExportCompleted = "export:completed"
	EventExportFailed    = "export:failed"
	EventDownloadReady   = "download:ready"
)

// EventEmitter delivers change notifications to whoever renders the editor:
// the Wails frontend, preview websocket clients, or nothing at all.
// Emit may be called from background goroutines.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// NopEmitter discards every event. Used by headless commands.
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, string, any) {}

// MultiEmitter fans every event out to each of its emitters in order.
type MultiEmitter []EventEmitter

func (m MultiEmitter) Emit(ctx context.Context, event string, data any) {
	for _, e := range m {
		if e != nil {
			e.Emit(ctx, event, data)
		}
	}
}

// MockEmitter is a test-friendly EventEmitter that records all calls.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Names returns the recorded event names in order.
func (m *MockEmitter) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Events))
	for i, e := range m.Events {
		out[i] = e.Event
	}
	return out
}

// Find returns the most recent emission of event.
func (m *MockEmitter) Find(event string) (EmittedEvent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.Events) - 1; i >= 0; i-- {
		if m.Events[i].Event == event {
			return m.Events[i], true
		}
	}
	return EmittedEvent{}, false
}

// Filter returns every recorded emission of event in order.
func (m *MockEmitter) Filter(event string) []EmittedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []EmittedEvent
	for _, e := range m.Events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// Reset forgets every recorded event.
func (m *MockEmitter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = nil
}
