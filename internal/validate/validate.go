// Package validate enforces the enum and range contracts on sanitized
// entity sub-records. Each function is total: any input maps to a fully
// populated, schema-conformant record with safe defaults. This is the
// last line of defense before persistence.
package validate

import (
	"time"

	"voice-relations-go/internal/types"
)

var relationshipTypes = set("friend", "family", "colleague", "client", "investor", "mentor", "acquaintance", "other")
var frequencies = set("daily", "weekly", "monthly", "quarterly", "yearly", "rarely")
var tones = set("warm", "neutral", "formal", "casual", "professional")
var obligationPriorities = set("high", "normal", "low")
var obligationCategories = set("meeting", "call", "task", "deadline", "personal", "email", "followup")
var followUpPriorities = set("high", "medium", "low")

func set(vals ...string) map[string]bool {
	m := make(map[string]bool, len(vals))
	for _, v := range vals {
		m[v] = true
	}
	return m
}

// Relationship substitutes "other" for unrecognized types.
func Relationship(r types.Relationship) types.Relationship {
	if !relationshipTypes[r.Type] {
		r.Type = "other"
	}
	return r
}

// ValidFrequency reports whether f is a recognized communication
// frequency. Merging uses it to keep garbage model output from
// degrading a known value.
func ValidFrequency(f string) bool {
	return frequencies[f]
}

// Communication defaults the frequency to "rarely" and stamps
// lastContacted with now when absent.
func Communication(c types.RawCommunication, now time.Time) types.Communication {
	freq := c.Frequency
	if !frequencies[freq] {
		freq = "rarely"
	}
	return types.Communication{
		LastContacted: &now,
		Frequency:     freq,
	}
}

// Sentiment clamps out-of-range closeness scores back to the neutral 0.5
// and defaults the tone to "neutral".
func Sentiment(s types.Sentiment) types.Sentiment {
	if s.ClosenessScore < 0 || s.ClosenessScore > 1 {
		s.ClosenessScore = 0.5
	}
	if !tones[s.Tone] {
		s.Tone = "neutral"
	}
	return s
}

// PersonProfile passes the sanitized profile through unchanged in shape;
// topic frequencies below 1 become 1 and dateless entries are dropped,
// mirroring the sanitizer so a profile built elsewhere is still safe.
func PersonProfile(p types.RawProfile) types.Profile {
	out := types.Profile{
		Summary: p.Summary,
		KeyInfo: p.KeyInfo,
	}
	for _, t := range p.CommonTopics {
		if t.Topic == "" {
			continue
		}
		if t.Frequency < 1 {
			t.Frequency = 1
		}
		out.CommonTopics = append(out.CommonTopics, t)
	}
	for _, d := range p.ImportantDates {
		if d.Date == "" {
			continue
		}
		if d.Type == "" {
			d.Type = "other"
		}
		out.ImportantDates = append(out.ImportantDates, d)
	}
	return out
}

// TaskReminder normalizes an extracted obligation. "medium" priority is
// folded into "normal" (the stored schema allows high/normal/low) and
// unknown categories fall back to "task".
func TaskReminder(o types.RawObligation) types.RawObligation {
	if o.Title == "" {
		o.Title = "Untitled"
	}
	if o.Priority == "medium" {
		o.Priority = "normal"
	}
	if !obligationPriorities[o.Priority] {
		o.Priority = "normal"
	}
	if !obligationCategories[o.Category] {
		o.Category = "task"
	}
	return o
}

// FollowUp normalizes an extracted follow-up; the context falls back to
// the source quote so no follow-up persists without a description.
func FollowUp(f types.RawFollowUp) types.RawFollowUp {
	if f.Description == "" {
		f.Description = f.ExtractedFrom
	}
	if !followUpPriorities[f.Priority] {
		f.Priority = "medium"
	}
	return f
}
