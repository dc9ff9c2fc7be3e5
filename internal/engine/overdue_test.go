package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-relations-go/internal/types"
)

func personLastContacted(name, frequency string, daysAgo int, now time.Time) types.Person {
	last := now.Add(-time.Duration(daysAgo) * 24 * time.Hour)
	return types.Person{
		ID:   "p-" + name,
		Name: name,
		Communication: types.Communication{
			LastContacted: &last,
			Frequency:     frequency,
		},
	}
}

func TestComputeOverdueThresholds(t *testing.T) {
	now := time.Date(2025, 1, 30, 12, 0, 0, 0, time.UTC)

	people := []types.Person{
		personLastContacted("within", "weekly", 5, now),     // under the 10 day threshold
		personLastContacted("boundary", "weekly", 10, now),  // exactly at threshold, not overdue
		personLastContacted("overdue", "weekly", 15, now),   // over threshold
		personLastContacted("way-over", "weekly", 25, now),  // over twice the threshold
		personLastContacted("daily-gap", "daily", 5, now),   // daily tolerates 2 days
		personLastContacted("rare", "rarely", 100, now),     // rarely tolerates 730
		personLastContacted("unknown-freq", "", 31, now),    // default threshold is 30
	}

	got := ComputeOverdue(people, now)
	require.Len(t, got, 4)

	byName := map[string]Suggestion{}
	for _, s := range got {
		byName[s.PersonName] = s
	}

	assert.Equal(t, "medium", byName["overdue"].Priority)
	assert.Equal(t, "high", byName["way-over"].Priority)
	assert.Equal(t, "high", byName["daily-gap"].Priority)
	assert.Equal(t, "medium", byName["unknown-freq"].Priority)

	assert.NotContains(t, byName, "within")
	assert.NotContains(t, byName, "boundary")
	assert.NotContains(t, byName, "rare")
}

func TestComputeOverdueReason(t *testing.T) {
	now := time.Date(2025, 1, 30, 12, 0, 0, 0, time.UTC)
	got := ComputeOverdue([]types.Person{personLastContacted("Maria", "weekly", 15, now)}, now)
	require.Len(t, got, 1)
	assert.Equal(t, "You haven't connected with Maria in 15 days. You usually talk weekly.", got[0].Reason)
	assert.Equal(t, "p-Maria", got[0].PersonID)
}

func TestComputeOverdueSkipsNeverContacted(t *testing.T) {
	now := time.Now()
	got := ComputeOverdue([]types.Person{{ID: "p1", Name: "Nobody"}}, now)
	assert.Empty(t, got)
}
