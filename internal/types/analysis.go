package types

// Segment is one time-stamped transcription segment as returned by the
// speech-to-text service, with a speaker label attached afterwards.
type Segment struct {
	Speaker string  `json:"speaker,omitempty"`
	Text    string  `json:"text"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// SpeakerTurn groups the segments attributed to one speaker label.
type SpeakerTurn struct {
	Label             string    `json:"label"`
	Segments          []Segment `json:"segments"`
	TotalSpeakingTime float64   `json:"total_speaking_time"`
}

// AnalysisResult is the strict internal shape of the language-model
// analysis after sanitization. Field types here are trustworthy; enum
// membership is not (the validators enforce that).
type AnalysisResult struct {
	Metadata           ConversationMetadata `json:"conversation_metadata"`
	Speakers           []SpeakerInsight     `json:"speakers"`
	ActionItems        []RawActionItem      `json:"action_items"`
	Tasks              []RawObligation      `json:"tasks"`
	Reminders          []RawObligation      `json:"reminders"`
	PendingFollowups   []RawFollowUp        `json:"pending_followups"`
	SuggestedFollowups []RawFollowUp        `json:"suggested_followups"`
	NetworkConnections []RawConnection      `json:"network_connections"`
}

type ConversationMetadata struct {
	Title            string   `json:"title"`
	Summary          Summary  `json:"summary"`
	DurationMinutes  float64  `json:"duration_minutes"`
	Tags             []string `json:"tags"`
	DetectedSpeakers int      `json:"detected_speakers"`
}

// SpeakerInsight is the per-speaker block of the analysis output.
type SpeakerInsight struct {
	SpeakerLabel string     `json:"speaker_label"`
	Name         string     `json:"name"`
	IsUser       bool       `json:"is_user"`
	Profile      RawProfile `json:"profile"`
}

// RawProfile carries the extracted profile facts before validation.
type RawProfile struct {
	Relationship  Relationship    `json:"relationship"`
	Communication RawCommunication `json:"communication"`
	Sentiment     Sentiment       `json:"sentiment"`
	Summary       string          `json:"summary"`
	KeyInfo       KeyInfo         `json:"key_info"`
	CommonTopics  []TopicCount    `json:"common_topics"`
	ImportantDates []ImportantDate `json:"important_dates"`
}

type RawCommunication struct {
	Frequency string `json:"frequency"`
}

type RawActionItem struct {
	Description   string `json:"description"`
	AssignedTo    string `json:"assigned_to"`
	FromSpeaker   string `json:"from_speaker"`
	ExtractedFrom string `json:"extracted_from"`
}

type RawObligation struct {
	Title         string `json:"title"`
	From          string `json:"from"`
	DueDateText   string `json:"due_date_text"`
	Priority      string `json:"priority"`
	Category      string `json:"category"`
	ExtractedFrom string `json:"extracted_from"`
}

type RawFollowUp struct {
	Description   string `json:"description"`
	Person        string `json:"person"`
	Reason        string `json:"reason"`
	Priority      string `json:"priority"`
	ExtractedFrom string `json:"extracted_from"`
}

type RawConnection struct {
	Person1          string  `json:"person1"`
	Person2          string  `json:"person2"`
	RelationshipType string  `json:"relationship_type"`
	Strength         float64 `json:"strength"`
}
