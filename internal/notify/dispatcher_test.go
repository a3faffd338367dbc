package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"dispatch/internal/types"
)

type memSource struct {
	mu      sync.Mutex
	pending []Event
	settled map[string]bool
}

func newMemSource(events ...Event) *memSource {
	return &memSource{pending: events, settled: make(map[string]bool)}
}

func (m *memSource) PendingBatch(_ context.Context, limit int) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, ev := range m.pending {
		if m.settled[ev.ID] {
			continue
		}
		out = append(out, ev)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memSource) MarkPublished(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		m.settled[id] = true
	}
	return nil
}

func (m *memSource) pendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, ev := range m.pending {
		if !m.settled[ev.ID] {
			n++
		}
	}
	return n
}

type recordingPublisher struct {
	mu       sync.Mutex
	failOn   map[string]bool
	received map[string][][]byte
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{failOn: make(map[string]bool), received: make(map[string][][]byte)}
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failOn[channel] {
		return errors.New("broker down")
	}
	p.received[channel] = append(p.received[channel], payload)
	return nil
}

func (p *recordingPublisher) count(channel string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.received[channel])
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestDispatcherDrainPublishesAndSettles(t *testing.T) {
	events := AgentAssigned("o1", "c1", "r1", "a1", &types.Point{Lat: 25.0, Lng: 121.5}, 7)
	source := newMemSource(events...)
	pub := newRecordingPublisher()
	d := NewDispatcher(source, pub, testLogger(), time.Second, 10)

	d.drain(context.Background())

	if got := source.pendingCount(); got != 0 {
		t.Fatalf("expected all events settled, %d still pending", got)
	}
	if pub.count(CustomerChannel("c1")) != 1 {
		t.Error("customer channel did not receive the assignment event")
	}
	if pub.count(RestaurantChannel("r1")) != 1 {
		t.Error("restaurant channel did not receive the assignment event")
	}
	if pub.count(ChannelAgents) != 1 {
		t.Error("agents channel did not receive the order-taken broadcast")
	}
}

func TestDispatcherRetriesFailedPublish(t *testing.T) {
	events := TrackingUpdate("o2", "c2", "picked_up", nil, nil)
	source := newMemSource(events...)
	pub := newRecordingPublisher()
	pub.failOn[CustomerChannel("c2")] = true
	d := NewDispatcher(source, pub, testLogger(), time.Second, 10)

	d.drain(context.Background())

	// The order-channel event went through; the customer event stays pending.
	if pub.count(OrderChannel("o2")) != 1 {
		t.Error("order channel event should have been published")
	}
	if got := source.pendingCount(); got != 1 {
		t.Fatalf("expected 1 pending event after failure, got %d", got)
	}

	// Broker recovers; next pass delivers the remainder.
	pub.mu.Lock()
	pub.failOn[CustomerChannel("c2")] = false
	pub.mu.Unlock()
	d.drain(context.Background())

	if got := source.pendingCount(); got != 0 {
		t.Fatalf("expected outbox drained after retry, got %d pending", got)
	}
	if pub.count(CustomerChannel("c2")) != 1 {
		t.Error("customer event not delivered on retry")
	}
}

func TestDispatcherKickDoesNotBlock(t *testing.T) {
	d := NewDispatcher(newMemSource(), newRecordingPublisher(), testLogger(), time.Second, 10)
	for i := 0; i < 100; i++ {
		d.Kick()
	}
}

func TestDispatcherBatchLimit(t *testing.T) {
	var events []Event
	for i := 0; i < 5; i++ {
		events = append(events, Rejected(types.ID("o"+string(rune('0'+i))), "a1", "busy"))
	}
	source := newMemSource(events...)
	pub := newRecordingPublisher()
	d := NewDispatcher(source, pub, testLogger(), time.Second, 2)

	d.drain(context.Background())
	if got := source.pendingCount(); got != 3 {
		t.Fatalf("expected 3 pending after one batch of 2, got %d", got)
	}
}
