package moderation

import (
	"context"

	"minbar/internal/middleware"
	"minbar/internal/observability"
)

// Stage names the cascade step that decided a verdict.
const (
	StageTranscribe = "transcribe"
	StageHeuristic  = "heuristic"
	StageClassifier = "classifier"
)

// Result is the outcome of a full cascade run. Err carries the collaborator
// failure when the verdict was fail-closed rather than decided.
type Result struct {
	Accepted   bool
	Stage      string
	Transcript string
	Err        error
}

// Cascade runs transcription, the lexicon heuristic, and the semantic
// classifier in order. Every upload passes through it before persisting.
type Cascade struct {
	transcriber Transcriber
	classifier  Classifier
}

// NewCascade wires a cascade from its two collaborators.
func NewCascade(transcriber Transcriber, classifier Classifier) *Cascade {
	return &Cascade{transcriber: transcriber, classifier: classifier}
}

// Verify runs the cascade over the audio bytes. A heuristic hit short-circuits
// without calling the classifier. Collaborator failures at any stage reject
// the upload (fail-closed) and surface the error in the result.
func (c *Cascade) Verify(ctx context.Context, audio []byte) Result {
	transcript, err := c.transcriber.Transcribe(ctx, audio)
	if err != nil {
		middleware.ModerationVerdicts.WithLabelValues(StageTranscribe, "rejected").Inc()
		observability.LogModerationVerdict(ctx, StageTranscribe, false, err)
		return Result{Accepted: false, Stage: StageTranscribe, Err: err}
	}

	if HeuristicIsQuran(transcript) {
		middleware.ModerationVerdicts.WithLabelValues(StageHeuristic, "accepted").Inc()
		observability.LogModerationVerdict(ctx, StageHeuristic, true, nil)
		return Result{Accepted: true, Stage: StageHeuristic, Transcript: transcript}
	}

	accepted, err := c.classifier.IsQuran(ctx, transcript)
	if err != nil {
		middleware.ModerationVerdicts.WithLabelValues(StageClassifier, "rejected").Inc()
		observability.LogModerationVerdict(ctx, StageClassifier, false, err)
		return Result{Accepted: false, Stage: StageClassifier, Transcript: transcript, Err: err}
	}

	outcome := "rejected"
	if accepted {
		outcome = "accepted"
	}
	middleware.ModerationVerdicts.WithLabelValues(StageClassifier, outcome).Inc()
	observability.LogModerationVerdict(ctx, StageClassifier, accepted, nil)
	return Result{Accepted: accepted, Stage: StageClassifier, Transcript: transcript}
}
