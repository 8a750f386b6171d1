package classifier

import (
	"strings"
	"unicode"
)

// RuleClassifier is a lexical fallback for when the LLM judgment is
// unavailable. It scores word overlap between the query and the active
// topic plus anaphoric cues, and classifies conservatively: anything
// below the threshold is a new topic.
type RuleClassifier struct{}

// NewRuleClassifier creates a rule-based classifier.
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{}
}

// followUpThreshold is the minimum score for a follow_up ruling.
// Overlapping content words and anaphora each score two points.
const followUpThreshold = 2

// Classify applies the lexical rules. It never fails.
func (c *RuleClassifier) Classify(req *Request) Label {
	if req.ActiveTopic == "" && req.ActiveTopicID == "" {
		return LabelNewTopic
	}

	queryWords := contentWords(req.Query)
	if len(queryWords) == 0 {
		return LabelNewTopic
	}

	topicWords := contentWords(req.ActiveTopic)
	for _, e := range req.History {
		for w := range contentWords(e.Query) {
			topicWords[w] = struct{}{}
		}
	}

	score := 0
	for w := range queryWords {
		if _, ok := topicWords[w]; ok {
			score += 2
		}
	}
	if hasAnaphor(req.Query) {
		score += 2
	}

	if score >= followUpThreshold {
		return LabelFollowUp
	}
	return LabelNewTopic
}

// anaphors are referring words that only make sense with prior context.
var anaphors = map[string]struct{}{
	"it": {}, "its": {}, "they": {}, "them": {}, "their": {},
	"that": {}, "this": {}, "those": {}, "these": {},
}

var followUpOpeners = []string{"what about", "how about", "and what", "why not"}

func hasAnaphor(query string) bool {
	lower := strings.ToLower(strings.TrimSpace(query))
	for _, opener := range followUpOpeners {
		if strings.HasPrefix(lower, opener) {
			return true
		}
	}
	for _, w := range splitWords(lower) {
		if _, ok := anaphors[w]; ok {
			return true
		}
	}
	return false
}

// stopwords are dropped before overlap scoring.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"do": {}, "does": {}, "did": {}, "how": {}, "what": {}, "why": {},
	"when": {}, "where": {}, "who": {}, "which": {}, "can": {}, "could": {},
	"will": {}, "would": {}, "at": {}, "in": {}, "on": {}, "of": {}, "to": {},
	"for": {}, "with": {}, "we": {}, "you": {}, "i": {}, "happens": {},
	"happen": {}, "work": {}, "works": {},
}

func contentWords(text string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range splitWords(strings.ToLower(text)) {
		if len(w) < 2 {
			continue
		}
		if _, ok := stopwords[w]; ok {
			continue
		}
		if _, ok := anaphors[w]; ok {
			continue
		}
		words[w] = struct{}{}
	}
	return words
}

func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
