package session

import (
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/showme-app/showme/plugin/ai/classifier"
)

// MaxTopics bounds the number of topics a session holds. Appending a topic
// beyond the bound evicts the least recently active one.
const MaxTopics = 3

// maxHistory bounds the retained query history.
const maxHistory = 20

// AppendTarget names where generated slides should land: an existing topic
// by ID, or a new topic described by name and icon.
type AppendTarget struct {
	TopicID      string
	NewTopicName string
	NewTopicIcon string
}

// Manager is the state of one client session. All methods are safe for
// concurrent use.
type Manager struct {
	id string

	mu            sync.Mutex
	topics        []*Topic
	activeTopicID string
	history       []classifier.Exchange
	nextSeq       uint64

	now func() time.Time
}

// NewManager creates an empty session.
func NewManager(id string) *Manager {
	return &Manager{
		id:  id,
		now: time.Now,
	}
}

// ID returns the session key.
func (m *Manager) ID() string {
	return m.id
}

// ActiveContext returns the active topic's ID and name, or empty strings
// when the session has no topics.
func (m *Manager) ActiveContext() (topicID, topicName string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.findTopic(m.activeTopicID)
	if t == nil {
		return "", ""
	}
	return t.ID, t.Name
}

// AppendSlides attaches slides to the target topic, creating it when the
// target names a new topic or the referenced topic has been evicted. The
// append, activation, and any resulting eviction happen atomically: a
// concurrent reader never observes more than MaxTopics topics. When a
// topic is created here its first slide is marked as the topic header,
// so the header decision always matches the creation decision. It returns
// a deep copy of the updated topic.
func (m *Manager) AppendSlides(target AppendTarget, slides []Slide) Topic {
	m.mu.Lock()
	defer m.mu.Unlock()

	ts := m.now().UnixMilli()

	t := m.findTopic(target.TopicID)
	if t == nil {
		t = &Topic{
			ID:        "topic_" + shortuuid.New(),
			Name:      target.NewTopicName,
			Icon:      target.NewTopicIcon,
			CreatedTs: ts,
			seq:       m.nextSeq,
		}
		m.nextSeq++
		m.topics = append(m.topics, t)
		if len(slides) > 0 {
			slides[0].IsTopicHeader = true
		}
	}

	for i := range slides {
		slides[i].TopicID = t.ID
	}
	t.Slides = append(t.Slides, slides...)
	t.LastActiveTs = ts
	m.activeTopicID = t.ID

	for len(m.topics) > MaxTopics {
		m.evictColdest()
	}

	return t.clone()
}

// Touch marks a topic as active without modifying its slides.
func (m *Manager) Touch(topicID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.findTopic(topicID)
	if t == nil {
		return false
	}
	t.LastActiveTs = m.now().UnixMilli()
	m.activeTopicID = t.ID
	return true
}

// RecordExchange appends a classified query to the session history.
func (m *Manager) RecordExchange(query string, classification classifier.Label) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = append(m.history, classifier.Exchange{
		Query:          query,
		Classification: string(classification),
		Timestamp:      m.now().UnixMilli(),
	})
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
}

// History returns a copy of the recorded exchanges, oldest first.
func (m *Manager) History() []classifier.Exchange {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]classifier.Exchange, len(m.history))
	copy(out, m.history)
	return out
}

// Snapshot returns deep copies of the session topics in insertion order.
func (m *Manager) Snapshot() []Topic {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Topic, 0, len(m.topics))
	for _, t := range m.topics {
		out = append(out, t.clone())
	}
	return out
}

// TopicCount returns the number of topics currently held.
func (m *Manager) TopicCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.topics)
}

// findTopic returns the topic with the given ID, or nil.
// Must be called with the lock held.
func (m *Manager) findTopic(id string) *Topic {
	if id == "" {
		return nil
	}
	for _, t := range m.topics {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// evictColdest drops the least recently active topic, breaking timestamp
// ties by insertion order. Must be called with the lock held.
func (m *Manager) evictColdest() {
	if len(m.topics) == 0 {
		return
	}

	coldest := 0
	for i, t := range m.topics[1:] {
		c := m.topics[coldest]
		if t.LastActiveTs < c.LastActiveTs ||
			(t.LastActiveTs == c.LastActiveTs && t.seq < c.seq) {
			coldest = i + 1
		}
	}

	evicted := m.topics[coldest]
	m.topics = append(m.topics[:coldest], m.topics[coldest+1:]...)
	if m.activeTopicID == evicted.ID {
		m.activeTopicID = ""
	}
}
