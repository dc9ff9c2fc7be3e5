package report

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"voice-relations-go/internal/types"
)

func TestWriteWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")

	last := time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC)
	due := time.Date(2025, 1, 13, 15, 0, 0, 0, time.UTC)
	people := []types.Person{{
		Name:         "Maria",
		Relationship: types.Relationship{Type: "friend"},
		Communication: types.Communication{
			LastContacted:      &last,
			Frequency:          "monthly",
			TotalConversations: 3,
		},
		Sentiment: types.Sentiment{ClosenessScore: 0.8, Tone: "warm"},
		Profile: types.Profile{
			Summary: "Old friend.",
			KeyInfo: types.KeyInfo{Interests: []string{"travel", "food"}},
		},
	}}
	tasks := []types.Obligation{{Title: "Send photos", Priority: "high", Category: "task"}}
	reminders := []types.Obligation{{
		Title: "Meet Maria", DueDate: &due, DueDateText: "next Monday at 3pm",
		Priority: "normal", Category: "meeting",
	}}

	require.NoError(t, WriteWorkbook(path, people, tasks, reminders))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{"People", "Tasks", "Reminders"}, f.GetSheetList())

	name, err := f.GetCellValue("People", "A2")
	require.NoError(t, err)
	assert.Equal(t, "Maria", name)
	contacted, err := f.GetCellValue("People", "D2")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-05", contacted)
	interests, err := f.GetCellValue("People", "H2")
	require.NoError(t, err)
	assert.Equal(t, "travel, food", interests)

	title, err := f.GetCellValue("Reminders", "A2")
	require.NoError(t, err)
	assert.Equal(t, "Meet Maria", title)
	phrase, err := f.GetCellValue("Reminders", "D2")
	require.NoError(t, err)
	assert.Equal(t, "next Monday at 3pm", phrase)
}

func TestWriteWorkbookEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, WriteWorkbook(path, nil, nil, nil))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Len(t, f.GetSheetList(), 3)
}
