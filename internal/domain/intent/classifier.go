// Package intent decides whether an AI prompt asks for a new email or for a
// change to the email currently open in the editor. The result only picks
// which confirmation dialog the editor shows.
package intent

import (
	"fmt"
	"regexp"
	"strings"
)

type Intent string

const (
	Create  Intent = "create"
	Update  Intent = "update"
	Unclear Intent = "unclear"
)

// KeywordWeight is the score each matched keyword adds.
const KeywordWeight = 2

// minScore is the score an intent needs before it can win.
const minScore = 2

var updateKeywords = []string{
	"change", "update", "modify", "edit", "replace", "adjust", "tweak", "fix",
	"remove", "delete", "add", "move", "rename", "swap", "recolor", "resize",
	"increase", "decrease", "shorten", "lengthen", "rewrite", "rephrase",
	"make the", "make it bigger", "make it smaller", "instead of",
	"the button", "the header", "the footer", "the image", "the title", "the text",
	"this email", "current email", "existing email",
}

var createKeywords = []string{
	"create", "new email", "new template", "write", "draft", "generate", "compose",
	"build", "design", "from scratch", "start over", "another email", "brand new",
	"newsletter", "announcement", "welcome email", "promotional email", "campaign",
}

// Result is the outcome of Classify. Confidence is in [0, 1].
type Result struct {
	Intent     Intent   `json:"intent"`
	Confidence float64  `json:"confidence"`
	Reasoning  []string `json:"reasoning"`
}

// Letters outside ASCII stay part of their word, so "fixé" is not "fix".
var nonWord = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// normalize lowercases the prompt and collapses punctuation into single
// spaces, padded so keywords can be matched on word boundaries.
func normalize(s string) string {
	return " " + strings.TrimSpace(nonWord.ReplaceAllString(strings.ToLower(s), " ")) + " "
}

func matches(text string, keywords []string) []string {
	var out []string
	for _, kw := range keywords {
		if strings.Contains(text, " "+kw+" ") {
			out = append(out, kw)
		}
	}
	return out
}

// Classify scores the prompt against fixed keyword lists. It is a pure
// function: the same input always yields the same result.
//
// Without an existing email the answer is always Create. Otherwise Update wins
// only with a score of at least 2 that is strictly above the Create score.
func Classify(prompt string, hasExistingEmail bool) Result {
	text := normalize(prompt)
	updates := matches(text, updateKeywords)
	creates := matches(text, createKeywords)
	updateScore := KeywordWeight * len(updates)
	createScore := KeywordWeight * len(creates)

	var reasoning []string
	if len(updates) > 0 {
		reasoning = append(reasoning, fmt.Sprintf("update keywords %q scored %d", updates, updateScore))
	}
	if len(creates) > 0 {
		reasoning = append(reasoning, fmt.Sprintf("create keywords %q scored %d", creates, createScore))
	}

	if !hasExistingEmail {
		reasoning = append(reasoning, "no existing email, a new one will be created")
		return Result{Intent: Create, Confidence: confidence(createScore, updateScore, 0.9), Reasoning: reasoning}
	}

	switch {
	case updateScore >= minScore && updateScore > createScore:
		reasoning = append(reasoning, "update score is highest")
		return Result{Intent: Update, Confidence: confidence(updateScore, createScore, 0), Reasoning: reasoning}
	case createScore >= minScore:
		reasoning = append(reasoning, "create score is at least as high as update score")
		return Result{Intent: Create, Confidence: confidence(createScore, updateScore, 0), Reasoning: reasoning}
	}

	reasoning = append(reasoning, "no strong keywords found")
	return Result{Intent: Unclear, Confidence: 0.3, Reasoning: reasoning}
}

// confidence grows with the winning score and shrinks with the opposing one.
// floor is used when the winner is forced rather than scored.
func confidence(winner, loser int, floor float64) float64 {
	c := 0.5 + 0.1*float64(winner) - 0.05*float64(loser)
	if c < 0.55 {
		c = 0.55
	}
	if winner == 0 && floor > 0 {
		c = floor
	}
	if c > 0.95 {
		c = 0.95
	}
	return float64(int(c*100+0.5)) / 100
}
