package practice

import (
	"context"
	"errors"
	"strings"
	"testing"

	"syllabo/internal/ai"
	"syllabo/internal/session"
)

const validSet = `[
  {"question":"What is a deadlock?","answer":"A cyclic wait.","solution_steps":["Define the four conditions"],"kind":"conceptual","difficulty":"easy"},
  {"question":"Apply the banker's algorithm to this state.","answer":"The state is safe.","solution_steps":["Compute need","Find a safe sequence"],"kind":"application","difficulty":"medium"}
]`

func TestParseValidOutput(t *testing.T) {
	questions, err := Parse(validSet, 2)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if questions[0].Kind != KindConceptual || questions[1].Kind != KindApplication {
		t.Fatalf("kinds not preserved: %+v", questions)
	}
	if len(questions[1].Steps) != 2 {
		t.Fatalf("solution steps lost: %+v", questions[1])
	}
}

func TestParseToleratesFencesAndProse(t *testing.T) {
	raw := "Here you go!\n```json\n" + validSet + "\n```\nGood luck."
	if _, err := Parse(raw, 2); err != nil {
		t.Fatalf("fenced output should parse: %v", err)
	}
}

func TestParseRejectsWrongCount(t *testing.T) {
	if _, err := Parse(validSet, 5); !errors.Is(err, ErrGenerationFormat) {
		t.Fatalf("expected format error for wrong count, got %v", err)
	}
}

func TestParseRejectsUnknownKind(t *testing.T) {
	raw := `[{"question":"q","answer":"a","solution_steps":[],"kind":"riddle","difficulty":"easy"}]`
	if _, err := Parse(raw, 1); !errors.Is(err, ErrGenerationFormat) {
		t.Fatalf("expected format error for unknown kind, got %v", err)
	}
}

func TestParseRejectsNonJSON(t *testing.T) {
	if _, err := Parse("I could not produce questions.", 2); !errors.Is(err, ErrGenerationFormat) {
		t.Fatalf("expected format error for prose, got %v", err)
	}
}

// scriptedModel replays canned outputs and records the prompts it saw.
type scriptedModel struct {
	outputs []string
	calls   []string
}

func (m *scriptedModel) Complete(_ context.Context, messages []ai.ChatMessage) (string, error) {
	m.calls = append(m.calls, messages[len(messages)-1].Content)
	out := m.outputs[0]
	if len(m.outputs) > 1 {
		m.outputs = m.outputs[1:]
	}
	return out, nil
}

func TestGenerateRetriesWithStricterPrompt(t *testing.T) {
	m := &scriptedModel{outputs: []string{"sorry, no JSON today", validSet}}
	g := NewGenerator(m)

	questions, err := g.Generate(context.Background(), "Deadlocks", []string{"ctx"}, 2)
	if err != nil {
		t.Fatalf("generate failed after retry: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	if len(m.calls) != 2 {
		t.Fatalf("expected exactly one retry, got %d calls", len(m.calls))
	}
	if !strings.Contains(m.calls[1], "previous attempt was not parseable") {
		t.Fatalf("retry prompt should be stricter")
	}
}

func TestGenerateSurfacesFormatErrorAfterRetry(t *testing.T) {
	m := &scriptedModel{outputs: []string{"nope", "still nope"}}
	g := NewGenerator(m)

	if _, err := g.Generate(context.Background(), "Deadlocks", nil, 2); !errors.Is(err, ErrGenerationFormat) {
		t.Fatalf("expected format error, got %v", err)
	}
	if len(m.calls) != 2 {
		t.Fatalf("expected exactly two calls, got %d", len(m.calls))
	}
}

func TestCountForPace(t *testing.T) {
	if CountForPace(session.PaceSlow) >= CountForPace(session.PaceMedium) {
		t.Fatalf("slow pace should get fewer questions than medium")
	}
	if CountForPace(session.PaceMedium) >= CountForPace(session.PaceFast) {
		t.Fatalf("medium pace should get fewer questions than fast")
	}
}
