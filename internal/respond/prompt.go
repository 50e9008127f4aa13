package respond

import (
	"fmt"
	"strings"

	"syllabo/internal/ai"
	"syllabo/internal/session"
)

// LessonMode adjusts a teaching turn without moving the topic walk.
type LessonMode string

const (
	ModeInitial LessonMode = "initial"
	ModeSimpler LessonMode = "simpler"
	ModeExample LessonMode = "example"
)

const systemRole = "You are a patient course tutor. You teach strictly from the provided course material and syllabus. " +
	"Never introduce outside facts unless the prompt explicitly includes externally sourced material."

// paceSections lists the structural elements a response must contain.
// Slow requests strictly more structure than medium, and medium more than
// fast; answer length follows from the prompt contract, not from luck.
func paceSections(pace string) []string {
	switch pace {
	case session.PaceSlow:
		return []string{
			"a short intuitive introduction",
			"a step-by-step explanation, one idea per step",
			"at least two worked examples",
			"a closing summary of the key points",
		}
	case session.PaceFast:
		return []string{"a concise list of the key points only"}
	default:
		return []string{
			"a clear explanation",
			"one worked example",
			"a one-line summary",
		}
	}
}

func sectionInstruction(pace string) string {
	sections := paceSections(pace)
	var sb strings.Builder
	sb.WriteString("Structure your response with exactly these elements:\n")
	for i, s := range sections {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, s)
	}
	return sb.String()
}

func contextBlock(contexts []string) string {
	if len(contexts) == 0 {
		return "COURSE MATERIAL: (none retrieved)\n"
	}
	var sb strings.Builder
	sb.WriteString("COURSE MATERIAL:\n")
	for i, c := range contexts {
		fmt.Fprintf(&sb, "[%d] %s\n", i+1, c)
	}
	return sb.String()
}

// BuildLessonPrompt composes the teaching-turn prompt for one topic.
func BuildLessonPrompt(topicLabel string, contexts []string, pace string, mode LessonMode) []ai.ChatMessage {
	var sb strings.Builder
	sb.WriteString(contextBlock(contexts))
	sb.WriteString("\n")

	switch mode {
	case ModeSimpler:
		fmt.Fprintf(&sb, "Re-explain the topic %q at a much lower reading level, as if to a beginner. Use plain words and short sentences.\n", topicLabel)
	case ModeExample:
		fmt.Fprintf(&sb, "Give additional worked examples for the topic %q. Walk through each example slowly.\n", topicLabel)
	default:
		fmt.Fprintf(&sb, "Teach the topic %q using only the course material above.\n", topicLabel)
	}
	sb.WriteString(sectionInstruction(pace))

	return []ai.ChatMessage{
		{Role: "system", Content: systemRole},
		{Role: "user", Content: sb.String()},
	}
}

// BuildAnswerPrompt composes the retrieval-grounded Q&A prompt. The
// current teaching topic, when set, anchors ambiguous asides.
func BuildAnswerPrompt(query string, contexts []string, pace, topicLabel string, history []session.Entry) []ai.ChatMessage {
	messages := []ai.ChatMessage{{Role: "system", Content: systemRole}}
	for _, h := range history {
		messages = append(messages, ai.ChatMessage{Role: h.Role, Content: h.Content})
	}

	var sb strings.Builder
	sb.WriteString(contextBlock(contexts))
	sb.WriteString("\n")
	if topicLabel != "" {
		fmt.Fprintf(&sb, "The learner is currently studying %q; interpret the question in that context.\n", topicLabel)
	}
	sb.WriteString("Answer the question using only the course material above. If the material does not contain the answer, say so plainly.\n")
	sb.WriteString(sectionInstruction(pace))
	fmt.Fprintf(&sb, "\nQUESTION: %s", query)

	return append(messages, ai.ChatMessage{Role: "user", Content: sb.String()})
}

// BuildRedirectPrompt produces the scope-redirection message for an
// out-of-scope query. No retrieved content reaches this prompt.
func BuildRedirectPrompt(query string, topicLabels []string) []ai.ChatMessage {
	var sb strings.Builder
	sb.WriteString("The learner asked something outside the scope of their course. Do NOT answer the question itself.\n")
	sb.WriteString("Politely explain that the question falls outside this course, and point them back to the syllabus topics:\n")
	for _, label := range topicLabels {
		fmt.Fprintf(&sb, "- %s\n", label)
	}
	fmt.Fprintf(&sb, "\nTHEIR QUESTION: %s", query)

	return []ai.ChatMessage{
		{Role: "system", Content: systemRole},
		{Role: "user", Content: sb.String()},
	}
}

// RedirectFallback is used when the model service is unavailable for a
// redirect; an out-of-scope query must still get a redirection, never an
// answer.
func RedirectFallback(topicLabels []string) string {
	var sb strings.Builder
	sb.WriteString("That question is outside the scope of this course. Topics I can help with:\n")
	for _, label := range topicLabels {
		fmt.Fprintf(&sb, "- %s\n", label)
	}
	return sb.String()
}

// BuildWebAnswerPrompt composes the borderline-path prompt from whitelisted
// search snippets. The caller labels the rendered answer as externally
// sourced; the snippets are never persisted.
func BuildWebAnswerPrompt(query string, contexts, snippets []string, pace string) []ai.ChatMessage {
	var sb strings.Builder
	sb.WriteString(contextBlock(contexts))
	sb.WriteString("\nEXTERNAL REFERENCE MATERIAL (from trusted educational sites):\n")
	for i, s := range snippets {
		fmt.Fprintf(&sb, "[W%d] %s\n", i+1, s)
	}
	sb.WriteString("\nThe course material alone cannot fully answer this question. Combine it with the external reference material to fill the gap, and keep the answer anchored to the course's level.\n")
	sb.WriteString(sectionInstruction(pace))
	fmt.Fprintf(&sb, "\nQUESTION: %s", query)

	return []ai.ChatMessage{
		{Role: "system", Content: systemRole},
		{Role: "user", Content: sb.String()},
	}
}

// BuildSubtopicPrompt asks for the subtopics of a query so retrieval can
// run one narrow search per subtopic alongside the main one.
func BuildSubtopicPrompt(query string) []ai.ChatMessage {
	var sb strings.Builder
	sb.WriteString("List the important subtopics of the following topic.\n\n")
	fmt.Fprintf(&sb, "TOPIC: %s\n\n", query)
	sb.WriteString("Return only a comma separated list. Do NOT explain.")

	return []ai.ChatMessage{
		{Role: "user", Content: sb.String()},
	}
}

// InternetLabel prefixes externally enhanced answers so their provenance
// is visible to the learner.
const InternetLabel = "[Internet Enhanced] "
