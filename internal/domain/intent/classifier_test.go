package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		prompt   string
		existing bool
		want     Intent
	}{
		{"change button colour", "change the button color to red", true, Update},
		{"create welcome", "create a welcome email", true, Create},
		{"create welcome without email", "create a welcome email", false, Create},
		{"vague", "make it better", true, Unclear},
		{"vague without email", "make it better", false, Create},
		{"update forced to create", "change the button color to red", false, Create},
		{"tie goes to create", "write the header", true, Create},
		{"punctuation and case", "Please REPLACE the image!!!", true, Update},
		{"rewrite is not write", "rewrite the title", true, Update},
		{"empty", "", true, Unclear},
		{"accented word is one word", "le texte est fixé", true, Unclear},
		{"accented prompt keeps keywords", "créer: change the footer", true, Update},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Classify(tt.prompt, tt.existing)
			assert.Equal(t, tt.want, got.Intent)
			assert.NotEmpty(t, got.Reasoning)
			assert.GreaterOrEqual(t, got.Confidence, 0.0)
			assert.LessOrEqual(t, got.Confidence, 1.0)
		})
	}
}

func TestClassify_UpdateExampleConfidence(t *testing.T) {
	t.Parallel()

	got := Classify("change the button color to red", true)
	assert.Equal(t, Update, got.Intent)
	assert.Greater(t, got.Confidence, 0.5)

	unclear := Classify("make it better", true)
	assert.LessOrEqual(t, unclear.Confidence, 0.5)
}

func TestClassify_SingleCreateKeywordAlwaysCreates(t *testing.T) {
	t.Parallel()

	for _, kw := range createKeywords {
		for _, existing := range []bool{true, false} {
			got := Classify(kw, existing)
			assert.Equal(t, Create, got.Intent, "keyword %q existing=%v", kw, existing)
			assert.Greater(t, got.Confidence, 0.5)
		}
	}
}

func TestClassify_NeverUpdateWithoutExistingEmail(t *testing.T) {
	t.Parallel()

	prompts := append([]string{"make it better", ""}, updateKeywords...)
	for _, p := range prompts {
		assert.NotEqual(t, Update, Classify(p, false).Intent, "prompt %q", p)
		assert.Equal(t, Create, Classify(p, false).Intent, "prompt %q", p)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	t.Parallel()

	a := Classify("update the footer and add a new image", true)
	b := Classify("update the footer and add a new image", true)
	assert.Equal(t, a, b)
}
