// Package engine turns a sanitized conversation analysis into persisted
// entities: it resolves each mentioned person to an existing or new
// profile, merges incoming facts without losing prior data, and creates
// the conversation, task, reminder, follow-up and connection records.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"voice-relations-go/internal/analysis"
	"voice-relations-go/internal/dates"
	"voice-relations-go/internal/logger"
	"voice-relations-go/internal/sanitize"
	"voice-relations-go/internal/store"
	"voice-relations-go/internal/types"
	"voice-relations-go/internal/validate"
)

// ErrNoMetadata reports analysis output missing the minimum required
// shape. Nothing has been written when it is returned.
var ErrNoMetadata = errors.New("analysis result lacks conversation_metadata")

// Storage is the persistence capability the engine requires.
type Storage interface {
	FindPersonByName(accountID, name string) (*types.Person, error)
	CreatePerson(*types.Person) error
	UpdatePerson(*types.Person) error
	CreateConversation(*types.Conversation) error
	CreateObligations(kind string, items []types.Obligation) error
	CreateFollowUp(*types.FollowUp) error
}

// Result is the full set of records touched or created by one analysis.
type Result struct {
	Conversation *types.Conversation `json:"conversation"`
	People       []*types.Person     `json:"people"`
	Tasks        []types.Obligation  `json:"tasks"`
	Reminders    []types.Obligation  `json:"reminders"`
	FollowUps    []types.FollowUp    `json:"followups"`
}

type Engine struct {
	storage  Storage
	analyzer analysis.Analyzer
	sink     EventSink
	log      *logrus.Entry

	// accounts serializes person resolve-and-merge per account. Concurrent
	// analyses naming the same person would otherwise race the
	// read-modify-write and drop counter increments.
	accounts keyedMutex

	// injected clock; tests pin it
	now func() time.Time
}

func New(storage Storage, analyzer analysis.Analyzer, sink EventSink) *Engine {
	if sink == nil {
		sink = NopSink{}
	}
	return &Engine{
		storage:  storage,
		analyzer: analyzer,
		sink:     sink,
		log:      logger.New().WithField("component", "engine"),
		now:      time.Now,
	}
}

// WithClock pins the engine's clock. Date resolution and lastContacted
// stamps become deterministic.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// ProcessAnalysis runs the full extraction-and-merge pipeline for one
// transcript. Steps through the conversation commit are the critical
// path: any failure there aborts with no partial writes. Everything
// after (tasks, reminders, follow-ups, connections) is best-effort and
// never rolls back the committed conversation.
func (e *Engine) ProcessAnalysis(ctx context.Context, transcriptID, transcriptText, accountID, accountName string) (*Result, error) {
	log := e.log.WithFields(logrus.Fields{"transcript_id": transcriptID, "account_id": accountID})
	now := e.now()

	e.sink.Emit(accountID, EventProcessing, map[string]string{"transcript_id": transcriptID})

	raw, err := e.analyzer.Analyze(ctx, transcriptText, accountName)
	if err != nil {
		e.sink.Emit(accountID, EventError, map[string]string{"transcript_id": transcriptID, "message": err.Error()})
		return nil, fmt.Errorf("analysis invocation: %w", err)
	}
	if _, ok := raw["conversation_metadata"]; !ok {
		e.sink.Emit(accountID, EventError, map[string]string{"transcript_id": transcriptID, "message": ErrNoMetadata.Error()})
		return nil, ErrNoMetadata
	}

	res := sanitize.Sanitize(raw)
	log.WithFields(logrus.Fields{
		"speakers":  len(res.Speakers),
		"tasks":     len(res.Tasks),
		"reminders": len(res.Reminders),
	}).Info("analysis sanitized")

	// Person resolution is read-modify-write; serialize it per account.
	unlock := e.accounts.Lock(accountID)
	defer unlock()

	out := &Result{}

	conv := &types.Conversation{
		AccountID:    accountID,
		TranscriptID: transcriptID,
		Title:        res.Metadata.Title,
		Summary:      res.Metadata.Summary,
		Date:         now,
		Duration:     res.Metadata.DurationMinutes,
		Tags:         res.Metadata.Tags,
		Status:       types.StatusCompleted,
	}
	if conv.Title == "" {
		conv.Title = "Conversation"
	}

	for _, sp := range res.Speakers {
		if sp.IsUser {
			conv.Participants = append(conv.Participants, types.Participant{
				SpeakerLabel: sp.SpeakerLabel,
				Name:         accountName,
				IsUser:       true,
			})
			continue
		}
		name := sp.Name
		if name == "" {
			name = sp.SpeakerLabel
		}
		if name == "" {
			continue
		}
		person, err := e.resolveAndMerge(accountID, name, sp, now)
		if err != nil {
			log.WithError(err).WithField("speaker", name).Error("person resolution failed")
			return nil, fmt.Errorf("resolve %q: %w", name, err)
		}
		out.People = append(out.People, person)
		conv.Participants = append(conv.Participants, types.Participant{
			PersonID:     person.ID,
			SpeakerLabel: sp.SpeakerLabel,
			Name:         person.Name,
		})
	}

	for _, ai := range res.ActionItems {
		if ai.Description == "" {
			continue
		}
		conv.ActionItems = append(conv.ActionItems, types.ActionItem{
			Description: ai.Description,
			AssignedTo:  ai.AssignedTo,
			Speaker:     ai.FromSpeaker,
		})
	}

	if err := e.storage.CreateConversation(conv); err != nil {
		e.sink.Emit(accountID, EventError, map[string]string{"transcript_id": transcriptID, "message": err.Error()})
		return nil, fmt.Errorf("persist conversation: %w", err)
	}
	out.Conversation = conv
	log.WithField("participants", len(conv.Participants)).Info("conversation committed")
	e.sink.Emit(accountID, EventProgress, map[string]string{"transcript_id": transcriptID, "stage": "conversation"})

	// Past this point failures degrade to skipped batches; the committed
	// conversation is more valuable than cross-entity atomicity.
	out.Tasks = e.createObligations("task", transcriptID, accountID, res.Tasks, now, log)
	out.Reminders = e.createObligations("reminder", transcriptID, accountID, res.Reminders, now, log)
	out.FollowUps = e.createFollowUps(conv, res, now, log)
	e.linkConnections(accountID, res.NetworkConnections, log)

	e.sink.Emit(accountID, EventComplete, map[string]string{"transcript_id": transcriptID, "conversation_id": conv.ID})
	return out, nil
}

// createObligations validates, date-resolves and bulk-creates one batch
// of tasks or reminders. Failures are logged and skipped.
func (e *Engine) createObligations(kind, transcriptID, accountID string, raw []types.RawObligation, now time.Time, log *logrus.Entry) []types.Obligation {
	var items []types.Obligation
	for _, r := range raw {
		v := validate.TaskReminder(r)
		o := types.Obligation{
			AccountID:     accountID,
			TranscriptID:  transcriptID,
			Title:         v.Title,
			From:          v.From,
			DueDateText:   v.DueDateText,
			Priority:      v.Priority,
			Category:      v.Category,
			ExtractedFrom: v.ExtractedFrom,
		}
		if kind == "task" {
			o.Category = "task"
		}
		if due, ok := dates.Resolve(v.DueDateText, now); ok {
			o.DueDate = &due
		}
		items = append(items, o)
	}
	if len(items) == 0 {
		return nil
	}
	if err := e.storage.CreateObligations(kind, items); err != nil {
		log.WithError(err).WithField("kind", kind).Error("obligation batch skipped")
		return nil
	}
	log.WithFields(logrus.Fields{"kind": kind, "count": len(items)}).Info("obligations created")
	return items
}

// createFollowUps persists pending then suggested follow-ups. A pending
// follow-up naming an unknown person creates that person; a suggested one
// naming an unknown person is dropped. Pending items are user-asserted
// obligations, suggested items are speculative.
func (e *Engine) createFollowUps(conv *types.Conversation, res types.AnalysisResult, now time.Time, log *logrus.Entry) []types.FollowUp {
	var out []types.FollowUp

	for _, raw := range res.PendingFollowups {
		f := validate.FollowUp(raw)
		if f.Person == "" {
			continue
		}
		person, err := e.findOrCreateMinimal(conv.AccountID, f.Person, now)
		if err != nil {
			log.WithError(err).WithField("person", f.Person).Error("pending followup skipped")
			continue
		}
		fu := types.FollowUp{
			AccountID:      conv.AccountID,
			PersonID:       person.ID,
			ConversationID: conv.ID,
			Type:           types.FollowUpPending,
			Priority:       f.Priority,
			Context:        f.Description,
		}
		if err := e.storage.CreateFollowUp(&fu); err != nil {
			log.WithError(err).Error("pending followup skipped")
			continue
		}
		out = append(out, fu)
	}

	for _, raw := range res.SuggestedFollowups {
		f := validate.FollowUp(raw)
		if f.Person == "" {
			continue
		}
		person, err := e.storage.FindPersonByName(conv.AccountID, f.Person)
		if err != nil {
			if isNotFound(err) {
				log.WithField("person", f.Person).Debug("suggested followup dropped, unknown person")
			} else {
				log.WithError(err).Error("suggested followup skipped")
			}
			continue
		}
		fu := types.FollowUp{
			AccountID:      conv.AccountID,
			PersonID:       person.ID,
			ConversationID: conv.ID,
			Type:           types.FollowUpSuggested,
			Priority:       f.Priority,
			Context:        f.Description,
			Reason:         f.Reason,
		}
		if err := e.storage.CreateFollowUp(&fu); err != nil {
			log.WithError(err).Error("suggested followup skipped")
			continue
		}
		out = append(out, fu)
	}

	log.WithField("count", len(out)).Info("followups created")
	return out
}

// linkConnections appends a one-directional connection edge on the first
// person of each reported pair, when both people exist and no matching
// edge does.
func (e *Engine) linkConnections(accountID string, conns []types.RawConnection, log *logrus.Entry) {
	linked := 0
	for _, c := range conns {
		if c.Person1 == "" || c.Person2 == "" {
			continue
		}
		p1, err := e.storage.FindPersonByName(accountID, c.Person1)
		if err != nil {
			continue
		}
		p2, err := e.storage.FindPersonByName(accountID, c.Person2)
		if err != nil {
			continue
		}
		exists := false
		for _, edge := range p1.Connections {
			if edge.PersonID == p2.ID {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		p1.Connections = append(p1.Connections, types.Connection{
			PersonID:         p2.ID,
			RelationshipType: c.RelationshipType,
			Strength:         c.Strength,
		})
		if err := e.storage.UpdatePerson(p1); err != nil {
			log.WithError(err).Error("connection skipped")
			continue
		}
		linked++
	}
	log.WithField("count", linked).Info("network connections linked")
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

// keyedMutex hands out one mutex per key. Entries are retained for the
// process lifetime, so memory grows with the number of distinct keys;
// acceptable while keys are account ids with low cardinality.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = map[string]*sync.Mutex{}
	}
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()
	l.Lock()
	return l.Unlock
}
