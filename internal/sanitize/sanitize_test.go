package sanitize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-relations-go/internal/types"
)

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

func TestSanitizeWellFormed(t *testing.T) {
	raw := decode(t, `{
		"conversation_metadata": {
			"title": "Coffee with Maria",
			"summary": {"short": "Caught up.", "extended": "Caught up over coffee."},
			"duration_minutes": 12.5,
			"tags": ["personal", "coffee"],
			"detected_speakers": 2
		},
		"speakers": [
			{"speaker_label": "SPEAKER 1", "name": "Me", "is_user": true},
			{
				"speaker_label": "SPEAKER 2", "name": "Maria", "is_user": false,
				"profile": {
					"relationship": {"type": "friend"},
					"communication": {"frequency": "monthly"},
					"sentiment": {"closenessScore": 0.8, "tone": "warm"},
					"summary": "Old friend from school.",
					"key_info": {
						"hobbies": ["hiking"],
						"personal_info": {"pets": ["Rex"], "location": ["Lisbon"]}
					},
					"common_topics": [{"topic": "travel", "frequency": 3}],
					"important_dates": [{"date": "2025-06-01", "description": "birthday", "type": "birthday"}]
				}
			}
		],
		"tasks": [{"title": "Send photos", "due_date_text": "tomorrow", "priority": "high", "category": "task"}],
		"reminders": [{"title": "Call back", "due_date_text": "next friday"}],
		"pending_followups": [{"description": "Share the article", "person": "Maria", "priority": "medium"}],
		"network_connections": [{"person1": "Maria", "person2": "Tom", "relationship_type": "colleague", "strength": 0.4}]
	}`)

	res := Sanitize(raw)

	assert.Equal(t, "Coffee with Maria", res.Metadata.Title)
	assert.Equal(t, "Caught up.", res.Metadata.Summary.Short)
	assert.InDelta(t, 12.5, res.Metadata.DurationMinutes, 1e-9)
	assert.Equal(t, 2, res.Metadata.DetectedSpeakers)

	require.Len(t, res.Speakers, 2)
	assert.True(t, res.Speakers[0].IsUser)
	maria := res.Speakers[1]
	assert.Equal(t, "Maria", maria.Name)
	assert.Equal(t, "friend", maria.Profile.Relationship.Type)
	assert.Equal(t, "monthly", maria.Profile.Communication.Frequency)
	assert.InDelta(t, 0.8, maria.Profile.Sentiment.ClosenessScore, 1e-9)
	assert.Equal(t, []string{"hiking"}, maria.Profile.KeyInfo.Hobbies)
	assert.Equal(t, []string{"Lisbon"}, maria.Profile.KeyInfo.PersonalInfo.Location)
	require.Len(t, maria.Profile.CommonTopics, 1)
	assert.Equal(t, 3, maria.Profile.CommonTopics[0].Frequency)

	require.Len(t, res.Tasks, 1)
	assert.Equal(t, "Send photos", res.Tasks[0].Title)
	require.Len(t, res.Reminders, 1)
	require.Len(t, res.PendingFollowups, 1)
	require.Len(t, res.NetworkConnections, 1)
	assert.InDelta(t, 0.4, res.NetworkConnections[0].Strength, 1e-9)
}

func TestSanitizeRepairsStringifiedFields(t *testing.T) {
	raw := map[string]any{
		"conversation_metadata": map[string]any{
			"title":   "Repair test",
			"summary": "just a plain sentence",
			"tags":    `["one", "two"]`,
		},
		"speakers": []any{
			map[string]any{
				"speaker_label": "SPEAKER 2",
				"name":          "Tom",
				"profile": map[string]any{
					// single quotes and unquoted keys, the usual artifacts
					"sentiment": "{closenessScore: 0.6, tone: 'casual'}",
					"key_info": map[string]any{
						"hobbies": "['surfing', 'chess']",
						"personal_info": map[string]any{
							"location": "Berlin",
						},
					},
				},
			},
		},
		"tasks": "```json\n[{\"title\": \"Fenced task\"}]\n```",
	}

	res := Sanitize(raw)

	assert.Equal(t, "just a plain sentence", res.Metadata.Summary.Short)
	assert.Equal(t, []string{"one", "two"}, res.Metadata.Tags)

	require.Len(t, res.Speakers, 1)
	p := res.Speakers[0].Profile
	assert.InDelta(t, 0.6, p.Sentiment.ClosenessScore, 1e-9)
	assert.Equal(t, "casual", p.Sentiment.Tone)
	assert.Equal(t, []string{"surfing", "chess"}, p.KeyInfo.Hobbies)
	// a lone scalar where an array belongs is wrapped, not dropped
	assert.Equal(t, []string{"Berlin"}, p.KeyInfo.PersonalInfo.Location)

	require.Len(t, res.Tasks, 1)
	assert.Equal(t, "Fenced task", res.Tasks[0].Title)
}

func TestSanitizeTopicsAndDates(t *testing.T) {
	raw := map[string]any{
		"conversation_metadata": map[string]any{"title": "t"},
		"speakers": []any{
			map[string]any{
				"name": "Ana",
				"profile": map[string]any{
					"common_topics": []any{
						map[string]any{"topic": "skiing", "frequency": 0.0},
						map[string]any{"topic": ""},
						"running",
						42.5,
					},
					"important_dates": []any{
						"2025-06-01",
						map[string]any{"description": "no date, dropped"},
						map[string]any{"date": "2025-07-04", "type": "holiday"},
					},
				},
			},
		},
	}

	p := Sanitize(raw).Speakers[0].Profile

	require.Len(t, p.CommonTopics, 2)
	assert.Equal(t, types.TopicCount{Topic: "skiing", Frequency: 1}, p.CommonTopics[0])
	assert.Equal(t, types.TopicCount{Topic: "running", Frequency: 1}, p.CommonTopics[1])

	require.Len(t, p.ImportantDates, 2)
	assert.Equal(t, "2025-06-01", p.ImportantDates[0].Date)
	assert.Equal(t, "holiday", p.ImportantDates[1].Type)
}

func TestSanitizeNeverPanics(t *testing.T) {
	inputs := []map[string]any{
		nil,
		{},
		{"conversation_metadata": "not an object at all"},
		{"conversation_metadata": []any{"wrong", "shape"}},
		{"speakers": 42.0, "tasks": true, "reminders": "garbage {{{"},
		{"speakers": []any{nil, 1.0, "SPEAKER 1", map[string]any{"profile": "{{broken"}}},
		{"pending_followups": map[string]any{"description": "lone object"}},
		{"network_connections": []any{map[string]any{"strength": "0.9"}}},
	}
	for i, raw := range inputs {
		assert.NotPanics(t, func() { Sanitize(raw) }, "input %d", i)
	}
}

// Sanitizing an already-sanitized result changes nothing.
func TestSanitizeIdempotent(t *testing.T) {
	raw := decode(t, `{
		"conversation_metadata": {
			"title": "Round trip",
			"summary": {"short": "s", "extended": "e"},
			"duration_minutes": 7,
			"tags": ["a"],
			"detected_speakers": 2
		},
		"speakers": [{
			"speaker_label": "SPEAKER 2", "name": "Maria",
			"profile": {
				"relationship": {"type": "friend", "subtype": "close"},
				"communication": {"frequency": "weekly"},
				"sentiment": "{closenessScore: 0.9, tone: 'warm'}",
				"key_info": {"hobbies": "['hiking']"},
				"common_topics": [{"topic": "travel", "frequency": 2}],
				"important_dates": ["2025-06-01"]
			}
		}],
		"tasks": [{"title": "t1", "priority": "high"}],
		"suggested_followups": [{"description": "d", "person": "Maria", "reason": "r"}]
	}`)

	first := Sanitize(raw)

	b, err := json.Marshal(first)
	require.NoError(t, err)
	var round map[string]any
	require.NoError(t, json.Unmarshal(b, &round))

	second := Sanitize(round)
	assert.Equal(t, first, second)
}
