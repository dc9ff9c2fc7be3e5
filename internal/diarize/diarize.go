// Package diarize groups time-stamped transcription segments into
// speaker-labeled turns and renders a readable transcript.
//
// AssignSpeakers is a windowed round-robin heuristic, not true acoustic
// diarization: a label is never re-used across non-adjacent windows that
// happen to contain the same voice.
package diarize

import (
	"fmt"
	"strings"

	"voice-relations-go/internal/types"
)

// window granularity for the speaker-assignment heuristic, in seconds.
const windowSeconds = 10

// AssignSpeakers buckets segments into time windows and assigns a
// round-robin speaker label per new window. numSpeakers below 1 is
// treated as 1.
func AssignSpeakers(segments []types.Segment, numSpeakers int) []types.Segment {
	if numSpeakers < 1 {
		numSpeakers = 1
	}
	out := make([]types.Segment, len(segments))
	lastWindow := -1
	speaker := -1
	for i, seg := range segments {
		w := int(seg.Start) / windowSeconds
		if w != lastWindow {
			speaker = (speaker + 1) % numSpeakers
			lastWindow = w
		}
		seg.Speaker = fmt.Sprintf("SPEAKER %d", speaker+1)
		out[i] = seg
	}
	return out
}

// GroupBySpeaker collects the segments of each speaker label, in order of
// first appearance, with total speaking time per speaker.
func GroupBySpeaker(segments []types.Segment) []types.SpeakerTurn {
	index := map[string]int{}
	var turns []types.SpeakerTurn
	for _, seg := range segments {
		i, ok := index[seg.Speaker]
		if !ok {
			i = len(turns)
			index[seg.Speaker] = i
			turns = append(turns, types.SpeakerTurn{Label: seg.Speaker})
		}
		turns[i].Segments = append(turns[i].Segments, seg)
		turns[i].TotalSpeakingTime += seg.End - seg.Start
	}
	return turns
}

// FormatTranscript renders one block per contiguous run of the same
// speaker, prefixed with "[HH:MM:SS - HH:MM:SS] LABEL:".
func FormatTranscript(segments []types.Segment) string {
	if len(segments) == 0 {
		return ""
	}
	var b strings.Builder
	runStart := 0
	for i := 1; i <= len(segments); i++ {
		if i < len(segments) && segments[i].Speaker == segments[runStart].Speaker {
			continue
		}
		run := segments[runStart:i]
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%s - %s] %s:",
			clock(run[0].Start), clock(run[len(run)-1].End), run[0].Speaker)
		for _, seg := range run {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(seg.Text))
		}
		runStart = i
	}
	return b.String()
}

// clock renders a second offset as zero-padded HH:MM:SS.
func clock(seconds float64) string {
	s := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}
