package query

import "strings"

// Interrogative and filler words that carry no retrieval signal. Stripping
// them before embedding sharpens the similarity search for short questions.
var questionWords = map[string]bool{
	"what": true, "why": true, "how": true, "when": true, "where": true,
	"who": true, "which": true, "whom": true, "whose": true,
	"is": true, "the": true, "a": true,
}

// Preprocess trims the question and removes question words. If stripping
// would leave nothing (the whole question was stop-words), the trimmed
// original is kept so the embedding still has input.
func Preprocess(question string) string {
	question = strings.TrimSpace(question)

	var kept []string
	for _, word := range strings.Fields(question) {
		if questionWords[strings.ToLower(strings.Trim(word, "?.,!"))] {
			continue
		}
		kept = append(kept, word)
	}
	if len(kept) == 0 {
		return question
	}
	return strings.Join(kept, " ")
}
