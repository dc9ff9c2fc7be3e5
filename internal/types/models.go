package types

import "time"

// Person is one human contact, scoped to an owning account. Created on
// first mention in an analyzed conversation, merged on every later one.
type Person struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	Name      string `json:"name"`
	Initials  string `json:"initials,omitempty"`

	Relationship  Relationship  `json:"relationship"`
	Communication Communication `json:"communication"`
	Sentiment     Sentiment     `json:"sentiment"`
	Profile       Profile       `json:"profile"`

	Connections []Connection `json:"connections,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Relationship struct {
	Type    string `json:"type"`
	Subtype string `json:"subtype,omitempty"`
	Source  string `json:"source,omitempty"`
}

type Communication struct {
	LastContacted       *time.Time `json:"last_contacted,omitempty"`
	Frequency           string     `json:"frequency"`
	TotalConversations  int        `json:"total_conversations"`
	ConversationCounter int        `json:"conversation_counter"`
}

type Sentiment struct {
	ClosenessScore float64 `json:"closeness_score"`
	Tone           string  `json:"tone"`
}

type Profile struct {
	Summary        string          `json:"summary,omitempty"`
	KeyInfo        KeyInfo         `json:"key_info"`
	CommonTopics   []TopicCount    `json:"common_topics,omitempty"`
	ImportantDates []ImportantDate `json:"important_dates,omitempty"`
}

type KeyInfo struct {
	Hobbies      []string     `json:"hobbies,omitempty"`
	Interests    []string     `json:"interests,omitempty"`
	Favorites    Favorites    `json:"favorites"`
	Travel       []string     `json:"travel,omitempty"`
	WorkInfo     WorkInfo     `json:"work_info"`
	PersonalInfo PersonalInfo `json:"personal_info"`
}

type Favorites struct {
	Movies []string `json:"movies,omitempty"`
	Music  []string `json:"music,omitempty"`
	Books  []string `json:"books,omitempty"`
	Food   []string `json:"food,omitempty"`
}

type WorkInfo struct {
	Company  string `json:"company,omitempty"`
	Position string `json:"position,omitempty"`
	Industry string `json:"industry,omitempty"`
}

type PersonalInfo struct {
	Relatives []string `json:"relatives,omitempty"`
	Pets      []string `json:"pets,omitempty"`
	Birthdate string   `json:"birthdate,omitempty"`
	Location  []string `json:"location,omitempty"`
}

type TopicCount struct {
	Topic     string `json:"topic"`
	Frequency int    `json:"frequency"`
}

type ImportantDate struct {
	Date        string `json:"date"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
}

// Connection is a one-directional edge in the contact network, stored on
// the first person of the pair only.
type Connection struct {
	PersonID         string  `json:"person_id"`
	RelationshipType string  `json:"relationship_type,omitempty"`
	Strength         float64 `json:"strength"`
}

// Conversation is one analyzed transcript. It owns its participant list
// and references, but does not own, Person records.
type Conversation struct {
	ID           string        `json:"id"`
	AccountID    string        `json:"account_id"`
	TranscriptID string        `json:"transcript_id"`
	Title        string        `json:"title"`
	Summary      Summary       `json:"summary"`
	Participants []Participant `json:"participants"`
	Date         time.Time     `json:"date"`
	Duration     float64       `json:"duration,omitempty"`
	Tags         []string      `json:"tags,omitempty"`
	ActionItems  []ActionItem  `json:"action_items,omitempty"`
	Status       string        `json:"processing_status"`
	CreatedAt    time.Time     `json:"created_at"`
}

type Summary struct {
	Short    string `json:"short,omitempty"`
	Extended string `json:"extended,omitempty"`
}

type Participant struct {
	PersonID     string `json:"person_id,omitempty"` // empty for the account owner
	SpeakerLabel string `json:"speaker_label,omitempty"`
	Name         string `json:"name"`
	IsUser       bool   `json:"is_user"`
}

type ActionItem struct {
	Description string `json:"description"`
	AssignedTo  string `json:"assigned_to,omitempty"`
	Speaker     string `json:"speaker,omitempty"`
	Completed   bool   `json:"completed"`
}

// Transcript lifecycle states.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Transcript is one audio/transcript submission. Mutated by the pipeline
// as processing advances; terminal on completed/failed.
type Transcript struct {
	ID          string        `json:"id"`
	AccountID   string        `json:"account_id"`
	Filename    string        `json:"filename,omitempty"`
	NumSpeakers int           `json:"num_speakers"`
	FullText    string        `json:"full_text,omitempty"`
	Speakers    []SpeakerTurn `json:"speakers,omitempty"`
	Status      string        `json:"status"`
	Error       ProcessError  `json:"error,omitempty"`
	DurationMs  int64         `json:"processing_time_ms,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

type ProcessError struct {
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Obligation is one extracted task or reminder. Tasks and reminders share
// the shape; Kind at the storage layer tells them apart.
type Obligation struct {
	ID            string     `json:"id"`
	AccountID     string     `json:"account_id"`
	TranscriptID  string     `json:"transcript_id,omitempty"`
	Title         string     `json:"title"`
	From          string     `json:"from,omitempty"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	DueDateText   string     `json:"due_date_text,omitempty"`
	Priority      string     `json:"priority"`
	Category      string     `json:"category"`
	ExtractedFrom string     `json:"extracted_from,omitempty"`
	Completed     bool       `json:"completed"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// FollowUp types.
const (
	FollowUpPending   = "pending"
	FollowUpSuggested = "suggested"
)

// FollowUp is one pending or suggested relationship action.
type FollowUp struct {
	ID             string     `json:"id"`
	AccountID      string     `json:"account_id"`
	PersonID       string     `json:"person_id"`
	ConversationID string     `json:"conversation_id,omitempty"`
	Type           string     `json:"type"`
	Priority       string     `json:"priority"`
	Context        string     `json:"context"`
	Reason         string     `json:"reason,omitempty"` // suggested only
	Completed      bool       `json:"completed"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
