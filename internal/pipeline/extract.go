package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"procure/internal"
	"procure/internal/llm"
	"procure/internal/util"
)

// completeTimeout bounds the model call; expiry degrades to the fallback
// path like any other model error.
const completeTimeout = 20 * time.Second

// Extractor turns a free-text purchase request into a structured requirement.
// The language model is the primary path; anything unusable in its reply
// degrades to digit-scanning plus fuzzy matching. A model failure is never
// surfaced to the caller.
type Extractor struct {
	completer llm.Completer
	matcher   *Matcher
	names     []string
}

// NewExtractor builds an extractor over the known catalog names. completer
// may be nil, in which case only the fallback path runs.
func NewExtractor(completer llm.Completer, threshold float64, names []string) *Extractor {
	return &Extractor{
		completer: completer,
		matcher:   NewMatcher(threshold, names),
		names:     names,
	}
}

// Extract resolves text to a requirement. ok=false means neither the model
// nor the fallback could produce one.
func (e *Extractor) Extract(ctx context.Context, text string) (internal.Requirement, bool) {
	if e.completer == nil {
		return e.fallback(text)
	}

	ctx, cancel := context.WithTimeout(ctx, completeTimeout)
	defer cancel()

	reply, err := e.completer.Complete(ctx, e.buildPrompt(text))
	if err != nil {
		return e.fallback(text)
	}

	req, ok := e.parseReply(reply)
	if !ok {
		return e.fallback(text)
	}
	return req, true
}

func (e *Extractor) buildPrompt(text string) string {
	var b strings.Builder
	b.WriteString("You are given a set of known products:\n")
	for _, name := range e.names {
		fmt.Fprintf(&b, "- %s\n", name)
	}
	fmt.Fprintf(&b, "\nThe user says: %q\n\n", text)
	b.WriteString("You must return a JSON object with exactly two fields:\n")
	b.WriteString("  \"item_name\": (one from the known list above, if possible)\n")
	b.WriteString("  \"quantity\": (an integer)\n\n")
	b.WriteString("If you must guess the item_name, pick the closest from the known list.\n")
	b.WriteString("If the user does not specify a quantity, use 1.\n")
	b.WriteString("Output ONLY valid JSON, no extra text.\n")
	return b.String()
}

// parseReply salvages the requirement from a model reply. ok=false covers
// every unusable shape: no JSON object, wrong types, empty item, or a
// quantity that is missing, non-numeric or below one.
func (e *Extractor) parseReply(reply string) (internal.Requirement, bool) {
	payload, ok := salvageJSONObject(reply)
	if !ok {
		return internal.Requirement{}, false
	}

	item, _ := payload["item_name"].(string)
	item = strings.TrimSpace(item)
	if item == "" {
		return internal.Requirement{}, false
	}

	qty, ok := toQuantity(payload["quantity"])
	if !ok || qty < 1 {
		return internal.Requirement{}, false
	}

	if !e.isKnownName(item) {
		if match, _, ok := e.matcher.BestMatch(item); ok {
			item = match
		}
	}

	return internal.Requirement{ItemName: item, Quantity: qty}, true
}

// fallback scans the raw text for the first run of digits (defaulting to 1)
// and fuzzy-matches the whole text against the catalog names.
func (e *Extractor) fallback(text string) (internal.Requirement, bool) {
	qty := 1
	if n, ok := util.FirstNumber(text); ok && n >= 1 {
		qty = n
	}

	match, _, ok := e.matcher.BestMatch(text)
	if !ok {
		return internal.Requirement{}, false
	}

	return internal.Requirement{ItemName: match, Quantity: qty}, true
}

func (e *Extractor) isKnownName(item string) bool {
	for _, name := range e.names {
		if name == item {
			return true
		}
	}
	return false
}

// salvageJSONObject pulls the first {...} span out of a reply and decodes it,
// tolerating code fences and prose around the JSON.
func salvageJSONObject(reply string) (map[string]any, bool) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, false
	}

	dec := json.NewDecoder(strings.NewReader(reply[start : end+1]))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, false
	}
	return payload, true
}

func toQuantity(v any) (int, bool) {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i), true
		}
		if f, err := t.Float64(); err == nil {
			return int(f), true
		}
		return 0, false
	case string:
		if n, ok := util.FirstNumber(t); ok {
			return n, true
		}
		return 0, false
	default:
		return 0, false
	}
}
