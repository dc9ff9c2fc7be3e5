// Package report writes an operator-facing xlsx workbook summarizing an
// account's relationship intelligence.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"voice-relations-go/internal/types"
)

// WriteWorkbook renders People, Tasks and Reminders sheets to path.
func WriteWorkbook(path string, people []types.Person, tasks, reminders []types.Obligation) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := peopleSheet(f, people); err != nil {
		return err
	}
	if err := obligationSheet(f, "Tasks", tasks); err != nil {
		return err
	}
	if err := obligationSheet(f, "Reminders", reminders); err != nil {
		return err
	}
	// the default sheet excelize creates
	f.DeleteSheet("Sheet1")

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func peopleSheet(f *excelize.File, people []types.Person) error {
	const sheet = "People"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("new sheet: %w", err)
	}
	headers := []string{"Name", "Relationship", "Frequency", "Last Contacted",
		"Conversations", "Closeness", "Tone", "Interests", "Summary"}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, p := range people {
		last := ""
		if p.Communication.LastContacted != nil {
			last = p.Communication.LastContacted.Format("2006-01-02")
		}
		row := []any{
			p.Name,
			p.Relationship.Type,
			p.Communication.Frequency,
			last,
			p.Communication.TotalConversations,
			p.Sentiment.ClosenessScore,
			p.Sentiment.Tone,
			strings.Join(p.Profile.KeyInfo.Interests, ", "),
			p.Profile.Summary,
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	return nil
}

func obligationSheet(f *excelize.File, sheet string, items []types.Obligation) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("new sheet: %w", err)
	}
	headers := []string{"Title", "From", "Due", "Due Phrase", "Priority",
		"Category", "Completed", "Created"}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, o := range items {
		due := ""
		if o.DueDate != nil {
			due = o.DueDate.Format(time.RFC3339)
		}
		row := []any{
			o.Title, o.From, due, o.DueDateText, o.Priority,
			o.Category, o.Completed, o.CreatedAt.Format("2006-01-02"),
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	return nil
}
