package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreprocessStripsQuestionWords(t *testing.T) {
	assert.Equal(t, "meaning of patience?",
		Preprocess("What is the meaning of patience?"))
	assert.Equal(t, "did speaker say about forgiveness",
		Preprocess("what did the speaker say about forgiveness"))
}

func TestPreprocessTrimsWhitespace(t *testing.T) {
	assert.Equal(t, "forgiveness", Preprocess("  the forgiveness  "))
}

func TestPreprocessAllStopWordsKeepsOriginal(t *testing.T) {
	assert.Equal(t, "What is the", Preprocess("  What is the  "))
	assert.Equal(t, "why?", Preprocess("why?"))
}

func TestPreprocessPunctuationAwareMatching(t *testing.T) {
	// "why," strips to a question word and is removed; "whyever" is not one.
	assert.Equal(t, "whyever not", Preprocess("why, whyever not"))
}
