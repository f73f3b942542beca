package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"minbar/internal/config"
	"minbar/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// Classifier decides whether a transcript is Quranic recitation.
type Classifier interface {
	IsQuran(ctx context.Context, transcript string) (bool, error)
}

// OpenAIClassifier calls a chat-completions model with a few-shot prompt.
type OpenAIClassifier struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewOpenAIClassifier builds a classifier from config.
func NewOpenAIClassifier(cfg *config.Config) *OpenAIClassifier {
	model := cfg.ClassifierModel
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAIClassifier{
		baseURL:    strings.TrimSuffix(cfg.OpenAIBaseURL, "/"),
		apiKey:     cfg.OpenAIAPIKey,
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

const classifierSystemPrompt = "You are a text classifier."

const classifierPromptTemplate = `Classify the following Arabic text. Answer with exactly one label.

Text: "بسم الله الرحمن الرحيم الحمد لله رب العالمين"
Label: Quran

Text: "اشتريت اليوم خضروات من السوق وكان الطقس جميلا"
Label: Not Quran

Text: "قل هو الله أحد الله الصمد"
Label: Quran

Text: "%s"
Label:`

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// IsQuran asks the model for a label and interprets the answer.
// Any response naming "not quran" is a rejection; otherwise a response
// containing "quran" is an acceptance. Anything else is malformed.
func (c *OpenAIClassifier) IsQuran(ctx context.Context, transcript string) (bool, error) {
	span, ctx := observability.NewClientSpan(ctx, "openai.classify",
		attribute.String("model", c.model),
	)
	defer span.End()

	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: classifierSystemPrompt},
			{Role: "user", Content: fmt.Sprintf(classifierPromptTemplate, transcript)},
		},
		Temperature: 0,
		MaxTokens:   5,
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return false, &ClassificationError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(encoded))
	if err != nil {
		return false, &ClassificationError{Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.SetError(err)
		return false, &ClassificationError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		span.SetError(err)
		return false, &ClassificationError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("classifier API returned %d: %s", resp.StatusCode, raw)
		span.SetError(err)
		return false, &ClassificationError{Err: err}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		span.SetError(err)
		return false, &ClassificationError{Err: err}
	}
	if len(parsed.Choices) == 0 {
		return false, &ClassificationError{}
	}

	label := strings.ToLower(strings.TrimSpace(parsed.Choices[0].Message.Content))
	switch {
	case strings.Contains(label, "not quran"):
		return false, nil
	case strings.Contains(label, "quran"):
		return true, nil
	default:
		return false, &ClassificationError{Err: fmt.Errorf("unrecognized label %q", label)}
	}
}
