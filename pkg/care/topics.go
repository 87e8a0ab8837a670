package care

import (
	"fmt"
	"strings"
)

// FAQEntry is one curated question/answer pair inside a topic pack.
type FAQEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Topic is one curated topic pack: a stable id, display names, lowercase
// label substrings used for matching, and per-language FAQ content.
type Topic struct {
	ID     string              `json:"id"`
	Names  map[Lang]string     `json:"names"`
	Labels []string            `json:"labels"`
	FAQ    map[Lang][]FAQEntry `json:"faq"`
}

// Name returns the topic display name for a language, falling back to the id.
func (t Topic) Name(lang Lang) string {
	if name := strings.TrimSpace(t.Names[lang]); name != "" {
		return name
	}

	return t.ID
}

// Topics is an ordered topic pack set. Declaration order is the match order.
type Topics []Topic

const packEntryLimit = 3

// Detect maps free text to the first topic whose label set contains a
// substring match against the lowercased input.
//
// First-match-wins by declaration order is the tie-break contract; callers
// depending on a different winner reorder the pack, not the matcher.
func (ts Topics) Detect(text string) (string, bool) {
	lowered := strings.ToLower(text)
	if strings.TrimSpace(lowered) == "" {
		return "", false
	}

	for _, topic := range ts {
		for _, label := range topic.Labels {
			if label == "" {
				continue
			}
			if strings.Contains(lowered, label) {
				return topic.ID, true
			}
		}
	}

	return "", false
}

// ByID looks a topic up by its stable identifier.
func (ts Topics) ByID(id string) (Topic, bool) {
	for _, topic := range ts {
		if topic.ID == id {
			return topic, true
		}
	}

	return Topic{}, false
}

// FAQAnswer renders the canned FAQ block for one topic and language.
//
// An empty FAQ list for the language is an explicit miss, not an error: the
// orchestrator falls through to retrieval.
func (ts Topics) FAQAnswer(id string, lang Lang) (string, bool) {
	topic, ok := ts.ByID(id)
	if !ok {
		return "", false
	}

	entries := topic.FAQ[lang]
	if len(entries) == 0 {
		return "", false
	}
	if len(entries) > packEntryLimit {
		entries = entries[:packEntryLimit]
	}

	var b strings.Builder
	fmt.Fprintf(&b, packHeader(lang), topic.Name(lang))
	for _, entry := range entries {
		b.WriteString("\n\n")
		fmt.Fprintf(&b, "• %s\n  %s", entry.Question, entry.Answer)
	}

	return b.String(), true
}

// Validate checks the pack invariants: unique ids and non-empty label sets.
func (ts Topics) Validate() error {
	seen := make(map[string]struct{}, len(ts))
	for _, topic := range ts {
		id := strings.TrimSpace(topic.ID)
		if id == "" {
			return fmt.Errorf("topic pack has empty id")
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("duplicate topic id %q", id)
		}
		seen[id] = struct{}{}

		if len(topic.Labels) == 0 {
			return fmt.Errorf("topic %q has no labels", id)
		}
		for _, label := range topic.Labels {
			if strings.TrimSpace(label) == "" {
				return fmt.Errorf("topic %q has a blank label", id)
			}
			if label != strings.ToLower(label) {
				return fmt.Errorf("topic %q label %q is not lowercase", id, label)
			}
		}
	}

	return nil
}
