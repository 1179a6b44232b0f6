// Package events provides event management functionality.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventType represents different event types
type EventType string

const (
	TradeExecuted      EventType = "TRADE_EXECUTED"
	EquityUpdated      EventType = "EQUITY_UPDATED"
	RebalanceCompleted EventType = "REBALANCE_COMPLETED"
	StopLossTriggered  EventType = "STOP_LOSS_TRIGGERED"
	PicksGenerated     EventType = "PICKS_GENERATED"
	SnapshotSaved      EventType = "SNAPSHOT_SAVED"
	ErrorOccurred      EventType = "ERROR_OCCURRED"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}

// Bus handles event emission, logging, and fan-out to subscribers.
// Slow subscribers drop events rather than block publishers.
type Bus struct {
	log zerolog.Logger

	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
}

// NewBus creates a new event bus
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		log:  log.With().Str("service", "events").Logger(),
		subs: make(map[int]chan Event),
	}
}

// Emit publishes an event to the log and all subscribers.
func (b *Bus) Emit(eventType EventType, module string, data map[string]interface{}) {
	event := Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
		Module:    module,
	}

	eventJSON, _ := json.Marshal(event)
	b.log.Info().
		Str("event_type", string(eventType)).
		Str("module", module).
		RawJSON("event", eventJSON).
		Msg("Event emitted")

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			// subscriber buffer full, drop
		}
	}
}

// EmitError emits an error event
func (b *Bus) EmitError(module string, err error, context map[string]interface{}) {
	data := map[string]interface{}{
		"error":   err.Error(),
		"context": context,
	}
	b.Emit(ErrorOccurred, module, data)
}

// Subscribe registers a buffered event channel. Call the returned cancel
// function to unsubscribe and close the channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, 64)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
