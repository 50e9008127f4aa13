package syllabus

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoStructure means the syllabus text had no recognizable heading
// hierarchy. Callers fall back to a flat topic list instead of failing.
var ErrNoStructure = errors.New("no parseable syllabus structure")

// Topic is one node in the syllabus forest. IDs are hierarchical slugs
// derived from the label path, so the same syllabus always yields the
// same identifiers.
type Topic struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	ParentID string `json:"parent_id,omitempty"`
	Depth    int    `json:"depth"`
}

var (
	unitLineRe     = regexp.MustCompile(`(?i)^(unit|module|chapter|part|week|section)\s+([0-9ivxlc]+)\s*[:.\-]?\s*(.*)$`)
	numberedLineRe = regexp.MustCompile(`^(\d+(?:\.\d+)*)[.)]?\s+(.+)$`)
	bulletLineRe   = regexp.MustCompile(`^[-*•○◦]\s+(.+)$`)
)

// Parse turns heading-style syllabus text into a topic forest. Lines that
// match no heading pattern are ignored; if nothing matches at all it
// returns ErrNoStructure.
func Parse(text string) ([]Topic, error) {
	var topics []Topic
	b := newTreeBuilder()

	for _, raw := range strings.Split(text, "\n") {
		indent := countIndent(raw)
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		label, depth, ok := classifyLine(line, indent)
		if !ok {
			continue
		}
		topics = append(topics, b.add(label, depth))
	}

	if len(topics) == 0 {
		return nil, ErrNoStructure
	}
	return topics, nil
}

// ParseOrFlat parses the syllabus, degrading to one flat topic per line
// when no hierarchy is detectable. Only a blank syllabus is an error.
func ParseOrFlat(text string) ([]Topic, error) {
	topics, err := Parse(text)
	if err == nil {
		return topics, nil
	}
	if !errors.Is(err, ErrNoStructure) {
		return nil, err
	}
	topics = FlatTopics(text)
	if len(topics) == 0 {
		return nil, fmt.Errorf("empty syllabus: %w", ErrNoStructure)
	}
	return topics, nil
}

// FlatTopics treats every non-empty line as a root-level topic.
func FlatTopics(text string) []Topic {
	var topics []Topic
	b := newTreeBuilder()
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		topics = append(topics, b.add(line, 0))
	}
	return topics
}

func classifyLine(line string, indent int) (label string, depth int, ok bool) {
	if m := unitLineRe.FindStringSubmatch(line); m != nil {
		label = strings.TrimSpace(m[3])
		if label == "" {
			label = strings.TrimSpace(m[1] + " " + m[2])
		}
		return label, 0, true
	}
	if m := numberedLineRe.FindStringSubmatch(line); m != nil {
		depth = strings.Count(m[1], ".")
		return strings.TrimSpace(m[2]), depth, true
	}
	if m := bulletLineRe.FindStringSubmatch(line); m != nil {
		depth = 1 + indent/2
		return strings.TrimSpace(m[1]), depth, true
	}
	if strings.HasSuffix(line, ":") {
		label = strings.TrimSpace(strings.TrimSuffix(line, ":"))
		if label != "" {
			return label, 0, true
		}
	}
	return "", 0, false
}

func countIndent(raw string) int {
	n := 0
	for _, r := range raw {
		switch r {
		case ' ':
			n++
		case '\t':
			n += 4
		default:
			return n
		}
	}
	return n
}

// treeBuilder tracks the current ancestor chain and guarantees unique,
// path-derived IDs. Depth jumps are clamped to parent+1 so a malformed
// outline can't orphan a node.
type treeBuilder struct {
	stack []Topic             // ancestors of the next node, one per depth
	used  map[string]struct{} // all IDs issued so far
}

func newTreeBuilder() *treeBuilder {
	return &treeBuilder{used: make(map[string]struct{})}
}

func (b *treeBuilder) add(label string, depth int) Topic {
	if depth > len(b.stack) {
		depth = len(b.stack)
	}
	b.stack = b.stack[:depth]

	parentID := ""
	parentPath := ""
	if depth > 0 {
		parent := b.stack[depth-1]
		parentID = parent.ID
		parentPath = parent.ID + "/"
	}

	id := b.uniqueID(parentPath + slugify(label))
	t := Topic{ID: id, Label: label, ParentID: parentID, Depth: depth}
	b.stack = append(b.stack, t)
	return t
}

func (b *treeBuilder) uniqueID(base string) string {
	id := base
	for n := 2; ; n++ {
		if _, taken := b.used[id]; !taken {
			b.used[id] = struct{}{}
			return id
		}
		id = fmt.Sprintf("%s-%d", base, n)
	}
}

func slugify(label string) string {
	var sb strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(label) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				sb.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(sb.String(), "-")
}

// PreOrder returns the topics in teaching order: roots in declaration
// order, each followed by its subtree.
func PreOrder(topics []Topic) []Topic {
	children := make(map[string][]Topic)
	var roots []Topic
	for _, t := range topics {
		if t.ParentID == "" {
			roots = append(roots, t)
		} else {
			children[t.ParentID] = append(children[t.ParentID], t)
		}
	}

	out := make([]Topic, 0, len(topics))
	var walk func(t Topic)
	walk = func(t Topic) {
		out = append(out, t)
		for _, child := range children[t.ID] {
			walk(child)
		}
	}
	for _, r := range roots {
		walk(r)
	}
	return out
}

// LabelPath renders a topic's full ancestry, e.g. "Memory Management > Paging".
func LabelPath(topics []Topic, id string) string {
	byID := make(map[string]Topic, len(topics))
	for _, t := range topics {
		byID[t.ID] = t
	}
	var parts []string
	for cur, ok := byID[id]; ok; cur, ok = byID[cur.ParentID] {
		parts = append([]string{cur.Label}, parts...)
		if cur.ParentID == "" {
			break
		}
	}
	return strings.Join(parts, " > ")
}

// EncodeTree and DecodeTree move the forest in and out of the deck row.

func EncodeTree(topics []Topic) (string, error) {
	b, err := json.Marshal(topics)
	if err != nil {
		return "", fmt.Errorf("encode syllabus tree failed: %w", err)
	}
	return string(b), nil
}

func DecodeTree(raw string) ([]Topic, error) {
	if raw == "" {
		return nil, nil
	}
	var topics []Topic
	if err := json.Unmarshal([]byte(raw), &topics); err != nil {
		return nil, fmt.Errorf("decode syllabus tree failed: %w", err)
	}
	return topics, nil
}
