package care

import "strings"

// Lang identifies one of the two supported conversation languages.
type Lang string

const (
	LangEnglish Lang = "en"
	LangSwahili Lang = "sw"
)

// Category tags which pipeline state produced a response.
type Category string

const (
	CategoryGeneral   Category = "general"
	CategorySafety    Category = "safety"
	CategoryEducation Category = "education"
)

// Message is one inbound chat message handed to the orchestrator by a channel adapter.
type Message struct {
	Text string `json:"text"`
	Lang Lang   `json:"lang"`
}

// Response is the single structured reply produced for one inbound message.
type Response struct {
	Type        string   `json:"type"`
	Content     string   `json:"content"`
	Suggestions []string `json:"suggestions,omitempty"`
	Category    Category `json:"category"`
}

// MaxSuggestions bounds quick-reply suggestions per response, matching the
// WhatsApp interactive-button limit.
const MaxSuggestions = 3

// ParseLang normalizes a channel-supplied language value.
//
// Language selection belongs to the channel boundary; anything outside the
// two supported values falls back to English.
func ParseLang(value string) Lang {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(LangSwahili), "swahili", "kiswahili":
		return LangSwahili
	default:
		return LangEnglish
	}
}
