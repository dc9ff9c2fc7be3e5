// Package sanitize normalizes semi-structured conversation-analysis
// output into the strict internal shape. It is the primary defense
// against malformed language-model JSON: arrays arriving as strings,
// stringified sub-objects, single-quoted or unquoted-key pseudo-JSON.
//
// Sanitize is total and idempotent. A field that cannot be repaired
// degrades to its zero value; it never aborts the pipeline.
package sanitize

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"voice-relations-go/internal/types"
)

// Sanitize maps decoded analysis output to the strict internal shape.
func Sanitize(raw map[string]any) types.AnalysisResult {
	var out types.AnalysisResult
	if raw == nil {
		return out
	}
	out.Metadata = metadata(obj(raw["conversation_metadata"]))
	for _, m := range objSlice(raw["speakers"]) {
		out.Speakers = append(out.Speakers, types.SpeakerInsight{
			SpeakerLabel: str(m["speaker_label"]),
			Name:         str(m["name"]),
			IsUser:       boolean(m["is_user"]),
			Profile:      profile(obj(m["profile"])),
		})
	}
	for _, m := range objSlice(raw["action_items"]) {
		out.ActionItems = append(out.ActionItems, types.RawActionItem{
			Description:   str(m["description"]),
			AssignedTo:    str(m["assigned_to"]),
			FromSpeaker:   str(m["from_speaker"]),
			ExtractedFrom: str(m["extracted_from"]),
		})
	}
	out.Tasks = obligations(raw["tasks"])
	out.Reminders = obligations(raw["reminders"])
	out.PendingFollowups = followups(raw["pending_followups"])
	out.SuggestedFollowups = followups(raw["suggested_followups"])
	for _, m := range objSlice(raw["network_connections"]) {
		out.NetworkConnections = append(out.NetworkConnections, types.RawConnection{
			Person1:          str(m["person1"]),
			Person2:          str(m["person2"]),
			RelationshipType: str(m["relationship_type"]),
			Strength:         num(m["strength"]),
		})
	}
	return out
}

func metadata(m map[string]any) types.ConversationMetadata {
	return types.ConversationMetadata{
		Title:            str(m["title"]),
		Summary:          summary(m["summary"]),
		DurationMinutes:  num(m["duration_minutes"]),
		Tags:             strSlice(m["tags"]),
		DetectedSpeakers: integer(m["detected_speakers"]),
	}
}

// summary accepts either {short, extended} or a bare string, which is
// taken as the short form.
func summary(v any) types.Summary {
	if s, ok := v.(string); ok {
		if parsed, ok := repairObject(s); ok {
			v = parsed
		} else {
			return types.Summary{Short: s}
		}
	}
	m, _ := v.(map[string]any)
	return types.Summary{Short: str(m["short"]), Extended: str(m["extended"])}
}

func obligations(v any) []types.RawObligation {
	var out []types.RawObligation
	for _, m := range objSlice(v) {
		out = append(out, types.RawObligation{
			Title:         str(m["title"]),
			From:          str(m["from"]),
			DueDateText:   str(m["due_date_text"]),
			Priority:      str(m["priority"]),
			Category:      str(m["category"]),
			ExtractedFrom: str(m["extracted_from"]),
		})
	}
	return out
}

func followups(v any) []types.RawFollowUp {
	var out []types.RawFollowUp
	for _, m := range objSlice(v) {
		out = append(out, types.RawFollowUp{
			Description:   str(m["description"]),
			Person:        str(m["person"]),
			Reason:        str(m["reason"]),
			Priority:      str(m["priority"]),
			ExtractedFrom: str(m["extracted_from"]),
		})
	}
	return out
}

// profile sanitizes the nested profile field-by-field, never replacing a
// sub-object wholesale, so partial data survives.
func profile(m map[string]any) types.RawProfile {
	rel := obj(m["relationship"])
	comm := obj(m["communication"])
	sent := obj(m["sentiment"])
	ki := obj(m["key_info"])
	fav := obj(ki["favorites"])
	wi := obj(ki["work_info"])
	pi := obj(ki["personal_info"])

	return types.RawProfile{
		Relationship: types.Relationship{
			Type:    str(rel["type"]),
			Subtype: str(rel["subtype"]),
			Source:  str(rel["source"]),
		},
		Communication: types.RawCommunication{Frequency: str(comm["frequency"])},
		Sentiment: types.Sentiment{
			ClosenessScore: num(pick(sent, "closenessScore", "closeness_score")),
			Tone:           str(sent["tone"]),
		},
		Summary: str(m["summary"]),
		KeyInfo: types.KeyInfo{
			Hobbies:   strSlice(ki["hobbies"]),
			Interests: strSlice(ki["interests"]),
			Favorites: types.Favorites{
				Movies: strSlice(fav["movies"]),
				Music:  strSlice(fav["music"]),
				Books:  strSlice(fav["books"]),
				Food:   strSlice(fav["food"]),
			},
			Travel: strSlice(ki["travel"]),
			WorkInfo: types.WorkInfo{
				Company:  str(wi["company"]),
				Position: str(wi["position"]),
				Industry: str(wi["industry"]),
			},
			PersonalInfo: types.PersonalInfo{
				Relatives: strSlice(pi["relatives"]),
				Pets:      strSlice(pi["pets"]),
				Birthdate: str(pi["birthdate"]),
				Location:  strSlice(pi["location"]),
			},
		},
		CommonTopics:   topics(m["common_topics"]),
		ImportantDates: importantDates(m["important_dates"]),
	}
}

// topics repairs common_topics entries into {topic, frequency >= 1},
// dropping entries with an empty topic. A bare string entry becomes a
// topic with frequency 1.
func topics(v any) []types.TopicCount {
	var out []types.TopicCount
	for _, e := range anySlice(v) {
		var tc types.TopicCount
		switch t := e.(type) {
		case string:
			if parsed, ok := repairObject(t); ok {
				tc = types.TopicCount{Topic: str(parsed["topic"]), Frequency: integer(parsed["frequency"])}
			} else {
				tc = types.TopicCount{Topic: strings.TrimSpace(t)}
			}
		case map[string]any:
			tc = types.TopicCount{Topic: str(t["topic"]), Frequency: integer(t["frequency"])}
		default:
			continue
		}
		if tc.Topic == "" {
			continue
		}
		if tc.Frequency < 1 {
			tc.Frequency = 1
		}
		out = append(out, tc)
	}
	return out
}

// importantDates repairs entries into {date, description, type}, dropping
// entries whose resolved date is empty. A bare string entry is taken as a
// date-only record.
func importantDates(v any) []types.ImportantDate {
	var out []types.ImportantDate
	for _, e := range anySlice(v) {
		var d types.ImportantDate
		switch t := e.(type) {
		case string:
			if parsed, ok := repairObject(t); ok {
				d = types.ImportantDate{Date: str(parsed["date"]), Description: str(parsed["description"]), Type: str(parsed["type"])}
			} else {
				d = types.ImportantDate{Date: strings.TrimSpace(t)}
			}
		case map[string]any:
			d = types.ImportantDate{Date: str(t["date"]), Description: str(t["description"]), Type: str(t["type"])}
		default:
			continue
		}
		if d.Date == "" {
			continue
		}
		out = append(out, d)
	}
	return out
}

// --- coercion helpers ---

func str(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// pick returns the first key present in m. Model output is inconsistent
// about camelCase versus snake_case field names.
func pick(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v
		}
	}
	return nil
}

func num(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func integer(v any) int { return int(num(v)) }

func boolean(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(strings.TrimSpace(t), "true")
	default:
		return false
	}
}

// obj coerces a value that must be an object, repairing stringified JSON.
// Always returns a non-nil map so callers can index freely.
func obj(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case string:
		if m, ok := repairObject(t); ok {
			return m
		}
	}
	return map[string]any{}
}

// anySlice coerces a value that must be an array: arrays pass through,
// stringified JSON arrays are repaired, a lone scalar or object becomes a
// one-element array, and anything unrecoverable becomes empty.
func anySlice(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	case string:
		if parsed, ok := repairValue(t); ok {
			if arr, ok := parsed.([]any); ok {
				return arr
			}
			return []any{parsed}
		}
		if strings.TrimSpace(t) == "" {
			return nil
		}
		return []any{t}
	case map[string]any:
		return []any{t}
	default:
		return []any{t}
	}
}

// objSlice keeps only the object elements of a coerced array.
func objSlice(v any) []map[string]any {
	var out []map[string]any
	for _, e := range anySlice(v) {
		if m := obj(e); len(m) > 0 || isMap(e) {
			out = append(out, m)
		}
	}
	return out
}

func isMap(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}

func strSlice(v any) []string {
	var out []string
	for _, e := range anySlice(v) {
		if s := str(e); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// --- pseudo-JSON repair ---

var (
	fenceRe      = regexp.MustCompile("```[a-z]*")
	unquotedKeys = regexp.MustCompile(`([,{[]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
)

// repairValue parses a string that should hold JSON, tolerating the
// common LLM artifacts: markdown fences, single quotes, unquoted keys.
func repairValue(s string) (any, bool) {
	s = strings.TrimSpace(fenceRe.ReplaceAllString(s, ""))
	if len(s) == 0 {
		return nil, false
	}
	if s[0] != '{' && s[0] != '[' {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v, true
	}
	repaired := unquotedKeys.ReplaceAllString(strings.ReplaceAll(s, "'", `"`), `$1"$2":`)
	if err := json.Unmarshal([]byte(repaired), &v); err == nil {
		return v, true
	}
	return nil, false
}

func repairObject(s string) (map[string]any, bool) {
	v, ok := repairValue(s)
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}
