// Package processor runs one submitted transcript through the full
// pipeline as an independent background unit of work: transcription,
// speaker assignment, analysis and entity merge, with the transcript
// record advancing pending -> processing -> completed|failed.
package processor

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"voice-relations-go/internal/analysis"
	"voice-relations-go/internal/diarize"
	"voice-relations-go/internal/engine"
	"voice-relations-go/internal/logger"
	"voice-relations-go/internal/store"
	"voice-relations-go/internal/types"
)

const (
	codeTranscription = "transcription_error"
	codeAnalysis      = "analysis_error"

	// overall budget per submission; upstream calls must not hang the
	// worker indefinitely
	processTimeout = 5 * time.Minute
)

type Processor struct {
	store       *store.Store
	transcriber analysis.Transcriber
	engine      *engine.Engine
	log         *logrus.Entry
}

func New(st *store.Store, tr analysis.Transcriber, eng *engine.Engine) *Processor {
	return &Processor{
		store:       st,
		transcriber: tr,
		engine:      eng,
		log:         logger.New().WithField("component", "processor"),
	}
}

// Submit registers a new transcript record and starts its background
// processing. It returns as soon as the record exists; callers observe
// progress through the transcript's status. Once started, processing is
// not cancelable.
func (p *Processor) Submit(t *types.Transcript, accountName string, audio []byte, rawText string) error {
	if err := p.store.CreateTranscript(t); err != nil {
		return err
	}
	go p.process(t.ID, t.AccountID, accountName, t.NumSpeakers, audio, rawText)
	return nil
}

func (p *Processor) process(transcriptID, accountID, accountName string, numSpeakers int, audio []byte, rawText string) {
	log := p.log.WithFields(logrus.Fields{"transcript_id": transcriptID, "account_id": accountID})
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
	defer cancel()

	if err := p.store.MarkTranscriptProcessing(transcriptID); err != nil {
		log.WithError(err).Error("could not mark processing")
		return
	}

	var (
		fullText  string
		formatted string
		turns     []types.SpeakerTurn
	)
	if rawText != "" {
		// Text submissions skip transcription entirely.
		fullText = rawText
		formatted = rawText
	} else {
		segments, err := p.transcriber.Transcribe(ctx, audio, transcriptID)
		if err != nil {
			log.WithError(err).Error("transcription failed")
			p.fail(transcriptID, "", err.Error(), codeTranscription, log)
			return
		}
		segments = diarize.AssignSpeakers(segments, numSpeakers)
		turns = diarize.GroupBySpeaker(segments)
		formatted = diarize.FormatTranscript(segments)
		fullText = plainText(segments)
	}

	_, err := p.engine.ProcessAnalysis(ctx, transcriptID, formatted, accountID, accountName)
	if err != nil {
		log.WithError(err).Error("analysis failed")
		// Keep the literal transcription even though intelligence
		// extraction failed.
		p.fail(transcriptID, fullText, err.Error(), codeAnalysis, log)
		return
	}

	durationMs := time.Since(start).Milliseconds()
	if err := p.store.CompleteTranscript(transcriptID, fullText, turns, durationMs); err != nil {
		log.WithError(err).Error("could not mark completed")
		return
	}
	log.WithField("duration_ms", durationMs).Info("transcript processed")
}

func (p *Processor) fail(transcriptID, fullText, message, code string, log *logrus.Entry) {
	if err := p.store.FailTranscript(transcriptID, fullText, message, code); err != nil {
		log.WithError(err).Error("could not mark failed")
	}
}

func plainText(segments []types.Segment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		parts = append(parts, strings.TrimSpace(s.Text))
	}
	return strings.Join(parts, " ")
}
