// Package store is the durable record store behind the pipeline, backed
// by SQLite. Nested profile data is kept as JSON columns; the scalar
// fields the queries filter and sort on get their own columns.
package store

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"voice-relations-go/internal/types"
)

//go:embed schema.sql
var schema string

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("record not found")

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	// The DSN parameter applies per connection; a PRAGMA in the schema
	// would only cover whichever pooled connection ran it.
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ---- people ----

// FindPersonByName resolves a contact by exact name, case-insensitively,
// within one account. Returns ErrNotFound when no contact matches.
func (s *Store) FindPersonByName(accountID, name string) (*types.Person, error) {
	return s.scanPerson(s.db.QueryRow(
		personSelect+" WHERE account_id = ? AND name = ? COLLATE NOCASE",
		accountID, name,
	))
}

func (s *Store) GetPerson(id string) (*types.Person, error) {
	return s.scanPerson(s.db.QueryRow(personSelect+" WHERE id = ?", id))
}

func (s *Store) CreatePerson(p *types.Person) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	profile, connections := marshal(p.Profile), marshal(p.Connections)
	_, err := s.db.Exec(`INSERT INTO people
		(id, account_id, name, initials, rel_type, rel_subtype, rel_source,
		 last_contacted, frequency, total_conversations, conversation_counter,
		 closeness, tone, profile, connections, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.AccountID, p.Name, p.Initials,
		p.Relationship.Type, p.Relationship.Subtype, p.Relationship.Source,
		p.Communication.LastContacted, p.Communication.Frequency,
		p.Communication.TotalConversations, p.Communication.ConversationCounter,
		p.Sentiment.ClosenessScore, p.Sentiment.Tone,
		profile, connections, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert person: %w", err)
	}
	return nil
}

func (s *Store) UpdatePerson(p *types.Person) error {
	p.UpdatedAt = time.Now()
	res, err := s.db.Exec(`UPDATE people SET
		name = ?, initials = ?, rel_type = ?, rel_subtype = ?, rel_source = ?,
		last_contacted = ?, frequency = ?, total_conversations = ?,
		conversation_counter = ?, closeness = ?, tone = ?, profile = ?,
		connections = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.Initials,
		p.Relationship.Type, p.Relationship.Subtype, p.Relationship.Source,
		p.Communication.LastContacted, p.Communication.Frequency,
		p.Communication.TotalConversations, p.Communication.ConversationCounter,
		p.Sentiment.ClosenessScore, p.Sentiment.Tone,
		marshal(p.Profile), marshal(p.Connections), p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("update person: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListPeople(accountID string) ([]types.Person, error) {
	rows, err := s.db.Query(
		personSelect+" WHERE account_id = ? ORDER BY last_contacted DESC", accountID)
	if err != nil {
		return nil, fmt.Errorf("list people: %w", err)
	}
	defer rows.Close()

	var out []types.Person
	for rows.Next() {
		p, err := s.scanPerson(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *Store) CountPeople(accountID string) (total, closeContacts int, err error) {
	err = s.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(closeness >= 0.7), 0)
		FROM people WHERE account_id = ?`, accountID).Scan(&total, &closeContacts)
	if err != nil {
		return 0, 0, fmt.Errorf("count people: %w", err)
	}
	return total, closeContacts, nil
}

const personSelect = `SELECT id, account_id, name, initials, rel_type,
	rel_subtype, rel_source, last_contacted, frequency, total_conversations,
	conversation_counter, closeness, tone, profile, connections,
	created_at, updated_at FROM people`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanPerson(row rowScanner) (*types.Person, error) {
	var p types.Person
	var profile, connections string
	err := row.Scan(&p.ID, &p.AccountID, &p.Name, &p.Initials,
		&p.Relationship.Type, &p.Relationship.Subtype, &p.Relationship.Source,
		&p.Communication.LastContacted, &p.Communication.Frequency,
		&p.Communication.TotalConversations, &p.Communication.ConversationCounter,
		&p.Sentiment.ClosenessScore, &p.Sentiment.Tone,
		&profile, &connections, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan person: %w", err)
	}
	unmarshal(profile, &p.Profile)
	unmarshal(connections, &p.Connections)
	return &p, nil
}

// ---- transcripts ----

func (s *Store) CreateTranscript(t *types.Transcript) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	t.Status = types.StatusPending
	t.CreatedAt = time.Now()
	_, err := s.db.Exec(`INSERT INTO transcripts
		(id, account_id, filename, num_speakers, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.AccountID, t.Filename, t.NumSpeakers, t.Status, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transcript: %w", err)
	}
	return nil
}

func (s *Store) GetTranscript(id string) (*types.Transcript, error) {
	var t types.Transcript
	var speakers string
	err := s.db.QueryRow(`SELECT id, account_id, filename, num_speakers,
		full_text, speakers, status, error_message, error_code, duration_ms,
		created_at, completed_at FROM transcripts WHERE id = ?`, id).
		Scan(&t.ID, &t.AccountID, &t.Filename, &t.NumSpeakers,
			&t.FullText, &speakers, &t.Status, &t.Error.Message, &t.Error.Code,
			&t.DurationMs, &t.CreatedAt, &t.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transcript: %w", err)
	}
	unmarshal(speakers, &t.Speakers)
	return &t, nil
}

func (s *Store) MarkTranscriptProcessing(id string) error {
	return s.setTranscriptStatus(id, types.StatusProcessing)
}

// CompleteTranscript stores the derived transcript and marks the
// submission terminal.
func (s *Store) CompleteTranscript(id, fullText string, speakers []types.SpeakerTurn, durationMs int64) error {
	now := time.Now()
	_, err := s.db.Exec(`UPDATE transcripts SET status = ?, full_text = ?,
		speakers = ?, duration_ms = ?, completed_at = ? WHERE id = ?`,
		types.StatusCompleted, fullText, marshal(speakers), durationMs, now, id)
	if err != nil {
		return fmt.Errorf("complete transcript: %w", err)
	}
	return nil
}

// FailTranscript marks the submission terminal-failed. fullText carries
// the best-effort transcription so the literal text is not lost when only
// the intelligence extraction failed.
func (s *Store) FailTranscript(id, fullText, message, code string) error {
	now := time.Now()
	_, err := s.db.Exec(`UPDATE transcripts SET status = ?, full_text = ?,
		error_message = ?, error_code = ?, completed_at = ? WHERE id = ?`,
		types.StatusFailed, fullText, message, code, now, id)
	if err != nil {
		return fmt.Errorf("fail transcript: %w", err)
	}
	return nil
}

func (s *Store) setTranscriptStatus(id, status string) error {
	_, err := s.db.Exec(`UPDATE transcripts SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("set transcript status: %w", err)
	}
	return nil
}

// ---- conversations ----

func (s *Store) CreateConversation(c *types.Conversation) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt = time.Now()
	_, err := s.db.Exec(`INSERT INTO conversations
		(id, account_id, transcript_id, title, summary_short, summary_extended,
		 participants, date, duration, tags, action_items, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.AccountID, c.TranscriptID, c.Title,
		c.Summary.Short, c.Summary.Extended, marshal(c.Participants),
		c.Date, c.Duration, marshal(c.Tags), marshal(c.ActionItems),
		c.Status, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

func (s *Store) ListConversations(accountID string, limit int) ([]types.Conversation, error) {
	rows, err := s.db.Query(`SELECT id, account_id, transcript_id, title,
		summary_short, summary_extended, participants, date, duration, tags,
		action_items, status, created_at FROM conversations
		WHERE account_id = ? ORDER BY date DESC LIMIT ?`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var out []types.Conversation
	for rows.Next() {
		var c types.Conversation
		var participants, tags, actionItems string
		if err := rows.Scan(&c.ID, &c.AccountID, &c.TranscriptID, &c.Title,
			&c.Summary.Short, &c.Summary.Extended, &participants, &c.Date,
			&c.Duration, &tags, &actionItems, &c.Status, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		unmarshal(participants, &c.Participants)
		unmarshal(tags, &c.Tags)
		unmarshal(actionItems, &c.ActionItems)
		out = append(out, c)
	}
	return out, rows.Err()
}

// ---- tasks and reminders ----

// CreateObligations bulk-inserts one conversation's extracted tasks or
// reminders. kind is "task" or "reminder".
func (s *Store) CreateObligations(kind string, items []types.Obligation) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for i := range items {
		o := &items[i]
		if o.ID == "" {
			o.ID = uuid.New().String()
		}
		o.CreatedAt = time.Now()
		if _, err := tx.Exec(`INSERT INTO obligations
			(id, account_id, transcript_id, kind, title, sender, due_date,
			 due_date_text, priority, category, extracted_from, completed, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
			o.ID, o.AccountID, o.TranscriptID, kind, o.Title, o.From,
			o.DueDate, o.DueDateText, o.Priority, o.Category,
			o.ExtractedFrom, o.CreatedAt); err != nil {
			return fmt.Errorf("insert %s: %w", kind, err)
		}
	}
	return tx.Commit()
}

func (s *Store) ListObligations(accountID, kind string, includeCompleted bool) ([]types.Obligation, error) {
	q := `SELECT id, account_id, transcript_id, title, sender, due_date,
		due_date_text, priority, category, extracted_from, completed,
		completed_at, created_at FROM obligations
		WHERE account_id = ? AND kind = ?`
	if !includeCompleted {
		q += ` AND completed = 0`
	}
	rows, err := s.db.Query(q+` ORDER BY due_date IS NULL, due_date`, accountID, kind)
	if err != nil {
		return nil, fmt.Errorf("list %ss: %w", kind, err)
	}
	defer rows.Close()

	var out []types.Obligation
	for rows.Next() {
		var o types.Obligation
		if err := rows.Scan(&o.ID, &o.AccountID, &o.TranscriptID, &o.Title,
			&o.From, &o.DueDate, &o.DueDateText, &o.Priority, &o.Category,
			&o.ExtractedFrom, &o.Completed, &o.CompletedAt, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) CompleteObligation(accountID, id string) error {
	res, err := s.db.Exec(`UPDATE obligations SET completed = 1, completed_at = ?
		WHERE account_id = ? AND id = ? AND completed = 0`, time.Now(), accountID, id)
	if err != nil {
		return fmt.Errorf("complete obligation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- followups ----

func (s *Store) CreateFollowUp(f *types.FollowUp) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	f.CreatedAt = time.Now()
	_, err := s.db.Exec(`INSERT INTO followups
		(id, account_id, person_id, conversation_id, type, priority, context,
		 reason, completed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		f.ID, f.AccountID, f.PersonID, f.ConversationID, f.Type, f.Priority,
		f.Context, f.Reason, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert followup: %w", err)
	}
	return nil
}

// ListFollowUps returns an account's follow-ups. typ filters by
// pending/suggested; empty means all. Completed records are excluded.
func (s *Store) ListFollowUps(accountID, typ string) ([]types.FollowUp, error) {
	q := `SELECT id, account_id, person_id, conversation_id, type, priority,
		context, reason, completed, completed_at, created_at FROM followups
		WHERE account_id = ? AND completed = 0`
	args := []any{accountID}
	if typ != "" {
		q += ` AND type = ?`
		args = append(args, typ)
	}
	rows, err := s.db.Query(q+` ORDER BY priority, created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list followups: %w", err)
	}
	defer rows.Close()

	var out []types.FollowUp
	for rows.Next() {
		var f types.FollowUp
		if err := rows.Scan(&f.ID, &f.AccountID, &f.PersonID, &f.ConversationID,
			&f.Type, &f.Priority, &f.Context, &f.Reason, &f.Completed,
			&f.CompletedAt, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan followup: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) CompleteFollowUp(accountID, id string) error {
	res, err := s.db.Exec(`UPDATE followups SET completed = 1, completed_at = ?
		WHERE account_id = ? AND id = ? AND completed = 0`, time.Now(), accountID, id)
	if err != nil {
		return fmt.Errorf("complete followup: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- helpers ----

func marshal(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func unmarshal(s string, v any) {
	if s == "" {
		return
	}
	_ = json.Unmarshal([]byte(s), v)
}
