package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"minbar/internal/config"
	"minbar/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// Transcriber converts recitation audio into normalized Arabic text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// OpenAITranscriber calls the OpenAI audio transcription endpoint.
type OpenAITranscriber struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewOpenAITranscriber builds a transcriber from config.
func NewOpenAITranscriber(cfg *config.Config) *OpenAITranscriber {
	model := cfg.TranscriptionModel
	if model == "" {
		model = "whisper-1"
	}
	return &OpenAITranscriber{
		baseURL:    strings.TrimSuffix(cfg.OpenAIBaseURL, "/"),
		apiKey:     cfg.OpenAIAPIKey,
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads the audio and returns the lower-cased transcript.
// The source language hint is fixed to Arabic and temperature to 0 so
// runs are deterministic. An empty transcript is a TranscriptionError.
func (t *OpenAITranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	span, ctx := observability.NewClientSpan(ctx, "openai.transcribe",
		attribute.String("model", t.model),
		attribute.Int("audio_bytes", len(audio)),
	)
	defer span.End()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "recitation.mp3")
	if err != nil {
		return "", &TranscriptionError{Err: err}
	}
	if _, err := part.Write(audio); err != nil {
		return "", &TranscriptionError{Err: err}
	}
	_ = writer.WriteField("model", t.model)
	_ = writer.WriteField("language", "ar")
	_ = writer.WriteField("temperature", "0")
	if err := writer.Close(); err != nil {
		return "", &TranscriptionError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", &TranscriptionError{Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := t.httpClient.Do(req)
	if err != nil {
		span.SetError(err)
		return "", &TranscriptionError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		span.SetError(err)
		return "", &TranscriptionError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("transcription API returned %d: %s", resp.StatusCode, raw)
		span.SetError(err)
		return "", &TranscriptionError{Err: err}
	}

	var parsed transcriptionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		span.SetError(err)
		return "", &TranscriptionError{Err: err}
	}

	transcript := strings.ToLower(strings.TrimSpace(parsed.Text))
	if transcript == "" {
		return "", &TranscriptionError{}
	}
	return transcript, nil
}
