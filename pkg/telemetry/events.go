package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event represents a telemetry event in sqlitedrop.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// Source identifies where the event originated.
	Source string `json:"source"`

	// Operation is the lifecycle operation, if applicable.
	Operation string `json:"operation,omitempty"`

	// Path is the drop-in path, if applicable.
	Path string `json:"path,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventType constants.
const (
	EventTypeDropInInstalled = "dropin.installed"
	EventTypeDropInRemoved   = "dropin.removed"
	EventTypeDropInSkipped   = "dropin.skipped"
	EventTypeDropInFailed    = "dropin.failed"
	EventTypeNoticeEmitted   = "notice.emitted"
)

// EventLevel constants for event severity.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be processed.
type EventFilter func(event Event) bool

// EventPublisher manages event publishing and subscriptions.
type EventPublisher struct {
	config      EventsConfig
	buffer      chan Event
	subscribers []subscriberEntry
	filters     []EventFilter
	wg          sync.WaitGroup
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventPublisher creates a new event publisher with the given configuration.
func NewEventPublisher(cfg EventsConfig) (*EventPublisher, error) {
	if !cfg.Enabled {
		return &EventPublisher{config: cfg}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	ep := &EventPublisher{
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
	}

	if cfg.EnableAsync {
		if ep.config.MaxBatchSize <= 0 {
			ep.config.MaxBatchSize = 1
		}
		ep.buffer = make(chan Event, cfg.BufferSize)
		ep.wg.Add(1)
		go ep.processEvents()
	}

	return ep, nil
}

// Publish publishes an event to all subscribers. In synchronous mode
// subscribers have run by the time Publish returns.
func (ep *EventPublisher) Publish(event Event) error {
	if !ep.config.Enabled {
		return nil
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	ep.mu.RLock()
	for _, filter := range ep.filters {
		if !filter(event) {
			ep.mu.RUnlock()
			return nil // Event filtered out
		}
	}
	ep.mu.RUnlock()

	if ep.config.EnableAsync {
		select {
		case ep.buffer <- event:
			return nil
		case <-ep.ctx.Done():
			return fmt.Errorf("event publisher stopped")
		default:
			return fmt.Errorf("event buffer full, event dropped")
		}
	}

	ep.deliverEvent(event)
	return nil
}

// PublishInstalled publishes a drop-in installed event.
func (ep *EventPublisher) PublishInstalled(path string, bytes int) error {
	return ep.Publish(Event{
		Type:      EventTypeDropInInstalled,
		Source:    "installer",
		Operation: "install",
		Path:      path,
		Message:   fmt.Sprintf("Drop-in installed at %s", path),
		Level:     EventLevelInfo,
		Data: map[string]interface{}{
			"bytes": bytes,
		},
	})
}

// PublishRemoved publishes a drop-in removed event.
func (ep *EventPublisher) PublishRemoved(path string) error {
	return ep.Publish(Event{
		Type:      EventTypeDropInRemoved,
		Source:    "remover",
		Operation: "remove",
		Path:      path,
		Message:   fmt.Sprintf("Drop-in removed from %s", path),
		Level:     EventLevelInfo,
	})
}

// PublishSkipped publishes an event for an operation that changed nothing.
func (ep *EventPublisher) PublishSkipped(operation, path, reason string) error {
	return ep.Publish(Event{
		Type:      EventTypeDropInSkipped,
		Source:    sourceFor(operation),
		Operation: operation,
		Path:      path,
		Message:   fmt.Sprintf("Drop-in %s skipped: %s", operation, reason),
		Level:     EventLevelInfo,
		Data: map[string]interface{}{
			"reason": reason,
		},
	})
}

// PublishFailed publishes a failed lifecycle operation.
func (ep *EventPublisher) PublishFailed(operation, path, kind string, err error) error {
	return ep.Publish(Event{
		Type:      EventTypeDropInFailed,
		Source:    sourceFor(operation),
		Operation: operation,
		Path:      path,
		Message:   fmt.Sprintf("Drop-in %s failed: %v", operation, err),
		Level:     EventLevelError,
		Data: map[string]interface{}{
			"kind": kind,
		},
	})
}

// PublishNotice publishes an emitted admin notice.
func (ep *EventPublisher) PublishNotice(code, message string) error {
	return ep.Publish(Event{
		Type:    EventTypeNoticeEmitted,
		Source:  "notices",
		Message: message,
		Level:   EventLevelWarning,
		Data: map[string]interface{}{
			"code": code,
		},
	})
}

func sourceFor(operation string) string {
	if operation == "remove" {
		return "remover"
	}
	return "installer"
}

// Subscribe adds a new event subscriber.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.subscribers = append(ep.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

// AddFilter adds a global event filter.
func (ep *EventPublisher) AddFilter(filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.filters = append(ep.filters, filter)
}

// processEvents processes events from the buffer asynchronously.
func (ep *EventPublisher) processEvents() {
	defer ep.wg.Done()

	batch := make([]Event, 0, ep.config.MaxBatchSize)
	flush := func() {
		for _, event := range batch {
			ep.deliverEvent(event)
		}
		batch = batch[:0]
	}

	for {
		select {
		case event := <-ep.buffer:
			batch = append(batch, event)
			// Deliver as soon as the buffer drains or the batch is full.
			if len(ep.buffer) == 0 || len(batch) >= ep.config.MaxBatchSize {
				flush()
			}

		case <-ep.ctx.Done():
			for {
				select {
				case event := <-ep.buffer:
					batch = append(batch, event)
				default:
					flush()
					return
				}
			}
		}
	}
}

// deliverEvent delivers an event to all matching subscribers in order.
func (ep *EventPublisher) deliverEvent(event Event) {
	ep.mu.RLock()
	defer ep.mu.RUnlock()

	for _, entry := range ep.subscribers {
		if entry.filter != nil && !entry.filter(event) {
			continue
		}
		entry.subscriber(event)
	}
}

// Shutdown gracefully shuts down the event publisher, delivering any
// buffered events first.
func (ep *EventPublisher) Shutdown(ctx context.Context) error {
	if !ep.config.Enabled {
		return nil
	}

	ep.cancel()

	done := make(chan struct{})
	go func() {
		ep.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event publisher shutdown timeout")
	}
}

// Common event filters.

// FilterByLevel creates a filter that only allows events of a specific level or higher.
func FilterByLevel(minLevel string) EventFilter {
	levels := map[string]int{
		EventLevelInfo:    0,
		EventLevelWarning: 1,
		EventLevelError:   2,
	}

	minLevelValue := levels[minLevel]

	return func(event Event) bool {
		return levels[event.Level] >= minLevelValue
	}
}

// FilterByType creates a filter that only allows events of specific types.
func FilterByType(types ...string) EventFilter {
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	return func(event Event) bool {
		return typeSet[event.Type]
	}
}

// FilterByOperation creates a filter that only allows events for one lifecycle operation.
func FilterByOperation(operation string) EventFilter {
	return func(event Event) bool {
		return event.Operation == operation
	}
}
