package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-relations-go/internal/types"
)

func TestRelationship(t *testing.T) {
	assert.Equal(t, "friend", Relationship(types.Relationship{Type: "friend"}).Type)
	assert.Equal(t, "other", Relationship(types.Relationship{Type: "bogus"}).Type)
	assert.Equal(t, "other", Relationship(types.Relationship{}).Type)

	// subtype passes through untouched
	r := Relationship(types.Relationship{Type: "family", Subtype: "sister"})
	assert.Equal(t, "sister", r.Subtype)
}

func TestCommunication(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	c := Communication(types.RawCommunication{Frequency: "weekly"}, now)
	assert.Equal(t, "weekly", c.Frequency)
	require.NotNil(t, c.LastContacted)
	assert.Equal(t, now, *c.LastContacted)

	assert.Equal(t, "rarely", Communication(types.RawCommunication{Frequency: "sometimes"}, now).Frequency)
	assert.Equal(t, "rarely", Communication(types.RawCommunication{}, now).Frequency)
}

func TestValidFrequency(t *testing.T) {
	for _, f := range []string{"daily", "weekly", "monthly", "quarterly", "yearly", "rarely"} {
		assert.True(t, ValidFrequency(f), f)
	}
	assert.False(t, ValidFrequency("sometimes"))
	assert.False(t, ValidFrequency(""))
}

func TestSentiment(t *testing.T) {
	s := Sentiment(types.Sentiment{ClosenessScore: 0.9, Tone: "warm"})
	assert.InDelta(t, 0.9, s.ClosenessScore, 1e-9)
	assert.Equal(t, "warm", s.Tone)

	assert.InDelta(t, 0.5, Sentiment(types.Sentiment{ClosenessScore: 5}).ClosenessScore, 1e-9)
	assert.InDelta(t, 0.5, Sentiment(types.Sentiment{ClosenessScore: -0.1}).ClosenessScore, 1e-9)
	assert.Equal(t, "neutral", Sentiment(types.Sentiment{Tone: "angry"}).Tone)
}

func TestPersonProfile(t *testing.T) {
	p := PersonProfile(types.RawProfile{
		Summary: "s",
		CommonTopics: []types.TopicCount{
			{Topic: "travel", Frequency: 0},
			{Topic: ""},
		},
		ImportantDates: []types.ImportantDate{
			{Date: "2025-06-01"},
			{Description: "dateless"},
		},
	})

	assert.Equal(t, "s", p.Summary)
	require.Len(t, p.CommonTopics, 1)
	assert.Equal(t, 1, p.CommonTopics[0].Frequency)
	require.Len(t, p.ImportantDates, 1)
	assert.Equal(t, "other", p.ImportantDates[0].Type)
}

func TestTaskReminder(t *testing.T) {
	o := TaskReminder(types.RawObligation{})
	assert.Equal(t, "Untitled", o.Title)
	assert.Equal(t, "normal", o.Priority)
	assert.Equal(t, "task", o.Category)

	assert.Equal(t, "normal", TaskReminder(types.RawObligation{Priority: "medium"}).Priority)
	assert.Equal(t, "normal", TaskReminder(types.RawObligation{Priority: "urgent"}).Priority)
	assert.Equal(t, "high", TaskReminder(types.RawObligation{Priority: "high"}).Priority)
	assert.Equal(t, "meeting", TaskReminder(types.RawObligation{Category: "meeting"}).Category)
	assert.Equal(t, "task", TaskReminder(types.RawObligation{Category: "groceries"}).Category)
}

func TestFollowUp(t *testing.T) {
	f := FollowUp(types.RawFollowUp{ExtractedFrom: "I said I'd call her"})
	assert.Equal(t, "I said I'd call her", f.Description)
	assert.Equal(t, "medium", f.Priority)

	assert.Equal(t, "high", FollowUp(types.RawFollowUp{Priority: "high"}).Priority)
	assert.Equal(t, "medium", FollowUp(types.RawFollowUp{Priority: "normal"}).Priority)
	assert.Equal(t, "d", FollowUp(types.RawFollowUp{Description: "d", ExtractedFrom: "e"}).Description)
}
