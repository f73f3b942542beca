// Package moderation implements the content moderation cascade that gates
// recitation uploads: transcription, a lexicon heuristic, and a semantic
// classifier fallback.
package moderation

import "fmt"

// TranscriptionError indicates the transcription collaborator was
// unreachable or returned no usable text.
type TranscriptionError struct {
	Err error
}

func (e *TranscriptionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transcription failed: %v", e.Err)
	}
	return "transcription returned no usable text"
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// ClassificationError indicates the classification collaborator was
// unreachable or returned a malformed response.
type ClassificationError struct {
	Err error
}

func (e *ClassificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("classification failed: %v", e.Err)
	}
	return "classification returned a malformed response"
}

func (e *ClassificationError) Unwrap() error { return e.Err }
