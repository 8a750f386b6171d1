package generator

import "sync"

// Stage names a step of the generation pipeline, in the order a request
// moves through them. Failed is terminal.
type Stage string

const (
	StageReceived         Stage = "received"
	StageClassified       Stage = "classified"
	StageScriptPlanned    Stage = "script_planned"
	StageSlidesGenerating Stage = "slides_generating"
	StageAssembled        Stage = "assembled"
	StageDelivered        Stage = "delivered"
	StageFailed           Stage = "failed"
)

// Event is one progress update for a generation in flight.
type Event struct {
	Stage       Stage `json:"stage"`
	SlidesReady int   `json:"slidesReady"`
	SlidesTotal int   `json:"slidesTotal"`
}

// Broker fans generation progress out to subscribers keyed by session.
// Publishing never blocks: a subscriber that falls behind misses events.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

// NewBroker creates a progress broker.
func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan Event]struct{}),
	}
}

// Subscribe registers for progress events on the session key. The returned
// cancel func must be called to release the subscription.
func (b *Broker) Subscribe(key string) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	b.mu.Lock()
	if b.subs[key] == nil {
		b.subs[key] = make(map[chan Event]struct{})
	}
	b.subs[key][ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if set, ok := b.subs[key]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(b.subs, key)
			}
		}
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber of the session key.
func (b *Broker) Publish(key string, ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs[key] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// SubscriberCount returns the number of listeners on a session key.
func (b *Broker) SubscriberCount(key string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[key])
}
