package teach

import (
	"regexp"
	"strings"
)

// Intent is the classified purpose of one free-text teaching turn.
type Intent string

const (
	IntentNext     Intent = "next"
	IntentSimpler  Intent = "simpler"
	IntentExample  Intent = "example"
	IntentPractice Intent = "practice"
	IntentStop     Intent = "stop"
	IntentQuestion Intent = "question"
)

var intentPatterns = []struct {
	intent Intent
	re     *regexp.Regexp
}{
	{IntentStop, regexp.MustCompile(`\b(stop|quit|exit|end (the )?(session|lesson)|that'?s (all|enough))\b`)},
	{IntentPractice, regexp.MustCompile(`\b(practice|quiz( me)?|test me|exercises?|problems?( to solve)?)\b`)},
	{IntentExample, regexp.MustCompile(`\b(examples?|for instance|illustrate|show me how|demonstrate)\b`)},
	{IntentSimpler, regexp.MustCompile(`\b(simpler|simplify|easier|too (hard|fast|complex)|don'?t (understand|get it)|confused|slow down|eli5|explain (it )?again)\b`)},
	{IntentNext, regexp.MustCompile(`\b(next|continue|go on|move on|proceed|keep going|got it|understood|ready)\b`)},
}

// ClassifyIntent maps free text onto a teaching action. Anything
// unrecognized is a question, so a learner can interrupt the walk with an
// aside without losing their place.
func ClassifyIntent(text string) Intent {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return IntentNext
	}
	for _, p := range intentPatterns {
		if p.re.MatchString(normalized) {
			return p.intent
		}
	}
	return IntentQuestion
}

var startTeachingRe = regexp.MustCompile(`\b(start|begin|resume)\b.*\b(teaching|lesson|lessons|course|walk)\b|\bteach me\b`)

// WantsTeaching reports whether a free-form chat message asks to begin
// or resume the guided walk.
func WantsTeaching(text string) bool {
	return startTeachingRe.MatchString(strings.ToLower(text))
}
