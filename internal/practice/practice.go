package practice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"syllabo/internal/ai"
	"syllabo/internal/session"
)

// ErrGenerationFormat means the model output could not be parsed into the
// question schema even after the stricter retry.
var ErrGenerationFormat = errors.New("practice generation format invalid")

const (
	KindConceptual  = "conceptual"
	KindApplication = "application"
	KindNumerical   = "numerical"
)

// Question is one practice item in the fixed output schema.
type Question struct {
	Text       string   `json:"question"`
	Answer     string   `json:"answer"`
	Steps      []string `json:"solution_steps"`
	Kind       string   `json:"kind"`
	Difficulty string   `json:"difficulty"`
}

// CountForPace sizes a practice set: slower learners get fewer, more
// deliberate questions.
func CountForPace(pace string) int {
	switch pace {
	case session.PaceSlow:
		return 3
	case session.PaceFast:
		return 7
	default:
		return 5
	}
}

type model interface {
	Complete(ctx context.Context, messages []ai.ChatMessage) (string, error)
}

// Generator asks the model service for a fixed-count question set and
// validates the result at the boundary.
type Generator struct {
	model model
}

func NewGenerator(m model) *Generator {
	return &Generator{model: m}
}

// Generate produces exactly count questions for the topic from the given
// supporting material. On a malformed response it retries once with a
// stricter prompt before surfacing ErrGenerationFormat.
func (g *Generator) Generate(ctx context.Context, topicLabel string, contexts []string, count int) ([]Question, error) {
	raw, err := g.model.Complete(ctx, buildPrompt(topicLabel, contexts, count, false))
	if err != nil {
		return nil, err
	}
	questions, parseErr := Parse(raw, count)
	if parseErr == nil {
		return questions, nil
	}

	raw, err = g.model.Complete(ctx, buildPrompt(topicLabel, contexts, count, true))
	if err != nil {
		return nil, err
	}
	questions, parseErr = Parse(raw, count)
	if parseErr != nil {
		return nil, parseErr
	}
	return questions, nil
}

func buildPrompt(topicLabel string, contexts []string, count int, strict bool) []ai.ChatMessage {
	var sb strings.Builder
	sb.WriteString("COURSE MATERIAL:\n")
	for i, c := range contexts {
		fmt.Fprintf(&sb, "[%d] %s\n", i+1, c)
	}
	fmt.Fprintf(&sb, "\nWrite exactly %d practice questions about %q, grounded in the course material above.\n", count, topicLabel)
	sb.WriteString("Mix the kinds: conceptual, application, and numerical where the material allows.\n")
	sb.WriteString("Respond with a JSON array only. Each element must have the keys: ")
	sb.WriteString(`"question", "answer", "solution_steps" (array of strings), "kind", "difficulty".` + "\n")
	if strict {
		sb.WriteString("IMPORTANT: output raw JSON with no markdown fences, no commentary, no text before or after the array. ")
		sb.WriteString("Your previous attempt was not parseable.\n")
	}

	return []ai.ChatMessage{
		{Role: "system", Content: "You are a course tutor writing practice questions. You output only valid JSON."},
		{Role: "user", Content: sb.String()},
	}
}

// Parse validates the model output against the schema. Markdown fences
// and surrounding prose are tolerated; a wrong count or missing fields
// are not.
func Parse(raw string, wantCount int) ([]Question, error) {
	payload := extractJSONArray(raw)
	if payload == "" {
		return nil, fmt.Errorf("%w: no JSON array in output", ErrGenerationFormat)
	}

	var questions []Question
	if err := json.Unmarshal([]byte(payload), &questions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFormat, err)
	}
	if wantCount > 0 && len(questions) != wantCount {
		return nil, fmt.Errorf("%w: got %d questions, want %d", ErrGenerationFormat, len(questions), wantCount)
	}

	for i, q := range questions {
		if strings.TrimSpace(q.Text) == "" || strings.TrimSpace(q.Answer) == "" {
			return nil, fmt.Errorf("%w: question %d missing text or answer", ErrGenerationFormat, i)
		}
		switch q.Kind {
		case KindConceptual, KindApplication, KindNumerical:
		default:
			return nil, fmt.Errorf("%w: question %d has unknown kind %q", ErrGenerationFormat, i, q.Kind)
		}
	}
	return questions, nil
}

// extractJSONArray finds the outermost [...] span, skipping markdown
// fences and any prose around it.
func extractJSONArray(raw string) string {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return ""
	}
	return raw[start : end+1]
}
