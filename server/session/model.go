// Package session holds per-client conversation state: the bounded set of
// active topics, their slides, and the recent query history used for
// classification.
package session

// Slide is one narrated frame of a topic.
type Slide struct {
	ID            string  `json:"id"`
	TopicID       string  `json:"topicId"`
	ImageURL      string  `json:"imageUrl"`
	AudioURL      string  `json:"audioUrl"`
	Subtitle      string  `json:"subtitle"`
	Duration      float64 `json:"duration"`
	SegmentID     string  `json:"segmentId"`
	IsTopicHeader bool    `json:"isTopicHeader"`
}

// Topic is a named thread of slides within a session.
type Topic struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Icon         string  `json:"icon"`
	Slides       []Slide `json:"slides"`
	CreatedTs    int64   `json:"createdTs"`
	LastActiveTs int64   `json:"lastActiveTs"`

	// seq orders topics by insertion and breaks eviction ties.
	seq uint64
}

func (t *Topic) clone() Topic {
	out := *t
	out.Slides = make([]Slide, len(t.Slides))
	copy(out.Slides, t.Slides)
	return out
}
