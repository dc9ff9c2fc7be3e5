package analysis

import "fmt"

// BuildPrompt renders the conversation-analysis prompt. The model is
// instructed to return only JSON matching the contract the sanitizer and
// validators enforce; its output is still treated as untrusted.
func BuildPrompt(transcript, accountName string) string {
	prompt := `You are an active-listening agent. Convert a raw multi-speaker
transcript into structured conversational intelligence.

Account Name: %s

Conversation Transcript:
%s

CRITICAL: Return ONLY valid JSON. No markdown, no code blocks, no explanations.

1. Identify all unique speakers. Use explicitly mentioned names; mark the
   speaker matching the account name with "is_user": true.
2. Extract conversation metadata, action items, tasks, reminders with the
   exact deadline phrasing, pending follow-ups, suggested follow-ups, and
   connections between mentioned people.
3. Build a personal profile for each non-user speaker: relationship,
   communication frequency, sentiment, hobbies, interests, favorites,
   travel, work info, personal info, common topics, important dates.

Return ONLY valid JSON with this EXACT structure:

{
  "conversation_metadata": {
    "title": "string",
    "summary": {"short": "string", "extended": "string"},
    "duration_minutes": 30,
    "tags": ["meeting"],
    "detected_speakers": 2
  },
  "speakers": [
    {
      "speaker_label": "SPEAKER 1",
      "name": "John Doe",
      "is_user": true,
      "profile": {
        "relationship": {"type": "colleague", "subtype": "manager", "source": "workplace"},
        "communication": {"frequency": "weekly"},
        "sentiment": {"closenessScore": 0.8, "tone": "professional"},
        "summary": "Brief profile summary",
        "key_info": {
          "hobbies": [], "interests": [],
          "favorites": {"movies": [], "music": [], "books": [], "food": []},
          "travel": [],
          "work_info": {"company": "", "position": "", "industry": ""},
          "personal_info": {"relatives": [], "pets": [], "birthdate": "", "location": []}
        },
        "common_topics": [{"topic": "project planning", "frequency": 5}],
        "important_dates": [{"date": "2025-12-15", "description": "Conference", "type": "travel"}]
      }
    }
  ],
  "action_items": [{"description": "", "assigned_to": "", "from_speaker": "", "extracted_from": ""}],
  "tasks": [{"title": "", "from": "", "due_date_text": "", "priority": "high", "category": "task", "extracted_from": ""}],
  "reminders": [{"title": "", "from": "", "due_date_text": "", "priority": "high", "category": "meeting", "extracted_from": ""}],
  "pending_followups": [{"description": "", "person": "", "extracted_from": "", "priority": "medium"}],
  "suggested_followups": [{"person": "", "reason": "", "priority": "low"}],
  "network_connections": [{"person1": "", "person2": "", "relationship_type": "", "strength": 0.9}]
}

CRITICAL RULES:
1. Return ONLY the JSON object, no extra text
2. All dates are strings: ISO format (YYYY-MM-DD) or descriptive text
3. important_dates is an array of objects with date/description/type strings
4. location is an array of strings
5. Arrays contain proper objects or strings, never stringified JSON
6. Do not wrap JSON in code blocks or markdown`

	return fmt.Sprintf(prompt, accountName, transcript)
}
