package care

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const retrievalTopK = 3

// Orchestrator converts one inbound message into one structured bot response
// through a strictly ordered pipeline: safety check, topic pack lookup,
// retrieval-augmented lookup, fallback.
//
// The pipeline is total: Route returns a valid response for every input and
// never propagates an error. Capability failures degrade to "no answer from
// this state" and fall through.
type Orchestrator struct {
	topics    Topics
	lexicon   Lexicon
	search    Searcher
	translate Translator
	log       *slog.Logger
}

// NewOrchestrator wires the pipeline. A nil searcher or translator is
// replaced with a degraded no-op so Route stays total.
func NewOrchestrator(topics Topics, lexicon Lexicon, search Searcher, translate Translator, log *slog.Logger) *Orchestrator {
	if search == nil {
		search = noSearch{}
	}
	if translate == nil {
		translate = noTranslate{}
	}
	if log == nil {
		log = slog.Default()
	}

	return &Orchestrator{
		topics:    topics,
		lexicon:   lexicon,
		search:    search,
		translate: translate,
		log:       log.With("component", "care.orchestrator"),
	}
}

// Route runs the four pipeline states in order and returns the first
// terminal response. Crisis detection always runs first: a crisis phrase
// wins even when the same text matches a topic label or retrieval content.
func (o *Orchestrator) Route(ctx context.Context, msg Message) Response {
	if ctx == nil {
		ctx = context.Background()
	}

	if o.lexicon.IsCrisis(msg.Text) {
		o.log.Info("Routed to safety response", "lang", msg.Lang)
		return o.safetyResponse(msg.Lang)
	}

	topicID, topicFound := o.topics.Detect(msg.Text)
	if topicFound {
		if content, ok := o.topics.FAQAnswer(topicID, msg.Lang); ok {
			o.log.Info("Routed to topic pack response", "topic", topicID, "lang", msg.Lang)
			return o.packResponse(topicID, msg.Lang, content)
		}
		o.log.Debug("Topic matched but pack has no content for language", "topic", topicID, "lang", msg.Lang)
	}

	if response, ok := o.retrievalResponse(ctx, msg, topicID); ok {
		o.log.Info("Routed to retrieval response", "topic", topicID, "lang", msg.Lang)
		return response
	}

	o.log.Info("Routed to fallback response", "lang", msg.Lang)
	return o.fallbackResponse(msg.Lang)
}

func (o *Orchestrator) safetyResponse(lang Lang) Response {
	return Response{
		Type:        "bot",
		Content:     localized(safetyMessages, lang),
		Suggestions: []string{"Grounding exercise", "Talk to a counselor"},
		Category:    CategorySafety,
	}
}

func (o *Orchestrator) packResponse(topicID string, lang Lang, content string) Response {
	topic, _ := o.topics.ByID(topicID)

	return Response{
		Type:    "bot",
		Content: content,
		Suggestions: []string{
			localized(copingToolsLabels, lang),
			fmt.Sprintf(localized(quickCheckLabels, lang), topic.Name(lang)),
			localized(counselorLabels, lang),
		},
		Category: CategoryGeneral,
	}
}

// retrievalResponse queries the knowledge searcher and stitches ranked
// snippets into one answer block. An empty result set (including searcher
// unavailability, which the searcher contract maps to empty) reports a miss.
func (o *Orchestrator) retrievalResponse(ctx context.Context, msg Message, topicID string) (Response, bool) {
	snippets := o.search.Search(ctx, Query{
		Text:  msg.Text,
		Lang:  msg.Lang,
		Topic: topicID,
		TopK:  retrievalTopK,
	})
	if len(snippets) == 0 {
		return Response{}, false
	}

	parts := make([]string, 0, len(snippets))
	for _, snippet := range snippets {
		if text := strings.TrimSpace(snippet.Text); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return Response{}, false
	}

	stitched := strings.Join(parts, "\n\n")
	if msg.Lang == LangSwahili && containsASCIILetters(stitched) {
		stitched = o.translate.Translate(ctx, stitched, TranslateOptions{
			Source: LangEnglish,
			Target: LangSwahili,
			Safe:   true,
		})
	}

	return Response{
		Type:    "bot",
		Content: stitched + "\n\n" + localized(disclaimers, msg.Lang),
		Suggestions: []string{
			localized(copingToolsLabels, msg.Lang),
			localized(counselorLabels, msg.Lang),
		},
		Category: CategoryEducation,
	}, true
}

func (o *Orchestrator) fallbackResponse(lang Lang) Response {
	return Response{
		Type:    "bot",
		Content: localized(fallbackMessages, lang),
		Suggestions: []string{
			localized(copingToolsLabels, lang),
			localized(counselorLabels, lang),
		},
		Category: CategoryGeneral,
	}
}

// containsASCIILetters reports whether text contains any ASCII letter.
// It stands in for untranslated-English detection before a Swahili
// delivery. It is not a language detector: Swahili is also written in
// Latin script, so the check over-triggers and the stitched text may be
// sent through translation even when already Swahili.
func containsASCIILetters(text string) bool {
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}

	return false
}
