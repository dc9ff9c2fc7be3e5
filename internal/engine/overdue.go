package engine

import (
	"fmt"
	"time"

	"voice-relations-go/internal/types"
)

// Days without contact tolerated per communication frequency before a
// reconnection suggestion fires.
var frequencyThresholds = map[string]int{
	"daily":     2,
	"weekly":    10,
	"monthly":   35,
	"quarterly": 100,
	"yearly":    400,
	"rarely":    730,
}

const defaultThreshold = 30

// Suggestion is one computed reconnection opportunity.
type Suggestion struct {
	PersonID   string `json:"person_id"`
	PersonName string `json:"person_name"`
	Reason     string `json:"reason"`
	Priority   string `json:"priority"`
}

// ComputeOverdue scores each contact's days since last contact against
// its frequency threshold. Exceeding the threshold yields a suggestion;
// exceeding twice the threshold escalates it to high priority. Pure and
// recomputed on every request; callers deduplicate against stored
// suggested follow-ups.
func ComputeOverdue(people []types.Person, now time.Time) []Suggestion {
	var out []Suggestion
	for _, p := range people {
		if p.Communication.LastContacted == nil {
			continue
		}
		days := int(now.Sub(*p.Communication.LastContacted).Hours() / 24)
		threshold, ok := frequencyThresholds[p.Communication.Frequency]
		if !ok {
			threshold = defaultThreshold
		}
		if days <= threshold {
			continue
		}
		priority := "medium"
		if days > 2*threshold {
			priority = "high"
		}
		out = append(out, Suggestion{
			PersonID:   p.ID,
			PersonName: p.Name,
			Reason: fmt.Sprintf("You haven't connected with %s in %d days. You usually talk %s.",
				p.Name, days, p.Communication.Frequency),
			Priority: priority,
		})
	}
	return out
}
