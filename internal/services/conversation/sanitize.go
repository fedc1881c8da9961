package conversation

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

var blankLines = regexp.MustCompile(`\n{3,}`)

// maxDecodePasses bounds how many layers of entity encoding are peeled off
const maxDecodePasses = 8

// Sanitizer turns raw visitor input into plain text safe to forward
type Sanitizer struct {
	policy *bluemonday.Policy
}

func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize strips markup and control characters, collapses whitespace and trims.
// Script and style bodies are dropped along with their tags.
func (s *Sanitizer) Sanitize(input string) string {
	text := s.stripMarkup(input)
	text = strings.ReplaceAll(text, "\r\n", "\n")

	text = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || r == '\uFEFF' {
			return -1
		}
		return r
	}, text)

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	text = strings.Join(lines, "\n")

	return strings.TrimSpace(blankLines.ReplaceAllString(text, "\n\n"))
}

// stripMarkup applies the policy and decodes entities until the text stops
// changing, so encoded tags cannot come back as markup after decoding.
func (s *Sanitizer) stripMarkup(input string) string {
	text := input
	for i := 0; i < maxDecodePasses; i++ {
		next := html.UnescapeString(s.policy.Sanitize(text))
		if next == text {
			return text
		}
		text = next
	}
	// still decoding: drop everything that could form a tag or an entity
	return strings.NewReplacer("<", "", ">", "", "&", "").Replace(text)
}
