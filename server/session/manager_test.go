package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showme-app/showme/plugin/ai/classifier"
)

// testClock returns a manager whose clock only moves when advanced.
func testClock(m *Manager) func(d time.Duration) {
	var mu sync.Mutex
	now := time.Unix(1700000000, 0)
	m.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	return func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(d)
	}
}

func newSlides(n int) []Slide {
	out := make([]Slide, n)
	for i := range out {
		out[i] = Slide{
			ID:       fmt.Sprintf("slide_%d", i),
			Subtitle: fmt.Sprintf("subtitle %d", i),
			Duration: 3.5,
		}
	}
	return out
}

func TestAppendSlidesCreatesTopic(t *testing.T) {
	m := NewManager("sess_1")

	topic := m.AppendSlides(AppendTarget{NewTopicName: "Volcanoes", NewTopicIcon: "🌋"}, newSlides(3))

	assert.NotEmpty(t, topic.ID)
	assert.Equal(t, "Volcanoes", topic.Name)
	assert.Equal(t, "🌋", topic.Icon)
	require.Len(t, topic.Slides, 3)
	for _, s := range topic.Slides {
		assert.Equal(t, topic.ID, s.TopicID)
	}
	assert.True(t, topic.Slides[0].IsTopicHeader)
	assert.False(t, topic.Slides[1].IsTopicHeader)

	id, name := m.ActiveContext()
	assert.Equal(t, topic.ID, id)
	assert.Equal(t, "Volcanoes", name)
}

func TestAppendSlidesFollowUp(t *testing.T) {
	m := NewManager("sess_1")

	topic := m.AppendSlides(AppendTarget{NewTopicName: "Volcanoes"}, newSlides(2))
	updated := m.AppendSlides(AppendTarget{TopicID: topic.ID}, newSlides(2))

	assert.Equal(t, topic.ID, updated.ID)
	assert.Len(t, updated.Slides, 4)
	assert.Equal(t, 1, m.TopicCount())

	// Only the topic's very first slide is the header.
	assert.True(t, updated.Slides[0].IsTopicHeader)
	for _, s := range updated.Slides[1:] {
		assert.False(t, s.IsTopicHeader)
	}
}

func TestEvictionDropsLeastRecentlyActive(t *testing.T) {
	m := NewManager("sess_1")
	advance := testClock(m)

	t1 := m.AppendSlides(AppendTarget{NewTopicName: "One"}, newSlides(1))
	advance(time.Second)
	t2 := m.AppendSlides(AppendTarget{NewTopicName: "Two"}, newSlides(1))
	advance(time.Second)
	t3 := m.AppendSlides(AppendTarget{NewTopicName: "Three"}, newSlides(1))
	advance(time.Second)

	// Revisiting One makes Two the coldest topic.
	require.True(t, m.Touch(t1.ID))
	advance(time.Second)

	t4 := m.AppendSlides(AppendTarget{NewTopicName: "Four"}, newSlides(1))

	ids := map[string]bool{}
	for _, topic := range m.Snapshot() {
		ids[topic.ID] = true
	}
	assert.Equal(t, MaxTopics, len(ids))
	assert.True(t, ids[t1.ID])
	assert.False(t, ids[t2.ID], "least recently active topic must be evicted")
	assert.True(t, ids[t3.ID])
	assert.True(t, ids[t4.ID])
}

func TestEvictionTieBreaksByInsertionOrder(t *testing.T) {
	m := NewManager("sess_1")
	testClock(m) // frozen clock: every topic shares a timestamp

	t1 := m.AppendSlides(AppendTarget{NewTopicName: "One"}, newSlides(1))
	m.AppendSlides(AppendTarget{NewTopicName: "Two"}, newSlides(1))
	m.AppendSlides(AppendTarget{NewTopicName: "Three"}, newSlides(1))
	m.AppendSlides(AppendTarget{NewTopicName: "Four"}, newSlides(1))

	for _, topic := range m.Snapshot() {
		assert.NotEqual(t, t1.ID, topic.ID, "oldest insertion must lose the tie")
	}
	assert.Equal(t, MaxTopics, m.TopicCount())
}

func TestAppendToEvictedTopicCreatesNewTopic(t *testing.T) {
	m := NewManager("sess_1")
	advance := testClock(m)

	t1 := m.AppendSlides(AppendTarget{NewTopicName: "One"}, newSlides(1))
	for _, name := range []string{"Two", "Three", "Four"} {
		advance(time.Second)
		m.AppendSlides(AppendTarget{NewTopicName: name}, newSlides(1))
	}

	// One is gone; targeting it falls back to creating a fresh topic,
	// whose first slide becomes the header.
	topic := m.AppendSlides(AppendTarget{TopicID: t1.ID, NewTopicName: "One again"}, newSlides(1))
	assert.NotEqual(t, t1.ID, topic.ID)
	assert.Equal(t, "One again", topic.Name)
	assert.True(t, topic.Slides[0].IsTopicHeader)
	assert.Equal(t, MaxTopics, m.TopicCount())
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	m := NewManager("sess_1")
	m.AppendSlides(AppendTarget{NewTopicName: "One"}, newSlides(2))

	snap := m.Snapshot()
	require.Len(t, snap, 1)
	snap[0].Slides[0].Subtitle = "mutated"
	snap[0].Name = "mutated"

	again := m.Snapshot()
	assert.Equal(t, "subtitle 0", again[0].Slides[0].Subtitle)
	assert.Equal(t, "One", again[0].Name)
}

func TestRecordExchangeHistory(t *testing.T) {
	m := NewManager("sess_1")

	m.RecordExchange("How do volcanoes form?", classifier.LabelNewTopic)
	m.RecordExchange("Why do they erupt?", classifier.LabelFollowUp)

	history := m.History()
	require.Len(t, history, 2)
	assert.Equal(t, "How do volcanoes form?", history[0].Query)
	assert.Equal(t, string(classifier.LabelFollowUp), history[1].Classification)

	// Returned slice is a copy.
	history[0].Query = "mutated"
	assert.Equal(t, "How do volcanoes form?", m.History()[0].Query)
}

func TestConcurrentAppendsNeverExceedMaxTopics(t *testing.T) {
	m := NewManager("sess_1")

	var wg sync.WaitGroup
	done := make(chan struct{})

	// Readers assert the bound while writers churn topics.
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				assert.LessOrEqual(t, len(m.Snapshot()), MaxTopics)
			}
		}()
	}

	var writers sync.WaitGroup
	for i := 0; i < 8; i++ {
		writers.Add(1)
		go func(n int) {
			defer writers.Done()
			for j := 0; j < 25; j++ {
				m.AppendSlides(AppendTarget{
					NewTopicName: fmt.Sprintf("Topic %d-%d", n, j),
				}, newSlides(1))
			}
		}(i)
	}
	writers.Wait()
	close(done)
	wg.Wait()

	assert.Equal(t, MaxTopics, m.TopicCount())
}
