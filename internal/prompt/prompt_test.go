package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragserver/internal/domain"
)

func doc(text string, meta map[string]any) domain.RetrievedDocument {
	return domain.RetrievedDocument{Text: text, Metadata: meta}
}

func TestBuildIncludesQuestionAndQuotes(t *testing.T) {
	docs := []domain.RetrievedDocument{
		doc("patience is the companion of wisdom", map[string]any{"name_space": "lecture-1", "time_start": "00:01:02,000"}),
	}

	built, err := Build("what did he say about patience", docs, 0)
	require.NoError(t, err)

	assert.Contains(t, built, "what did he say about patience")
	assert.Contains(t, built, `"patience is the companion of wisdom"`)
	assert.Contains(t, built, "(Source: name_space: lecture-1, time_start: 00:01:02,000)")
}

func TestBuildSortsMetadataKeys(t *testing.T) {
	docs := []domain.RetrievedDocument{
		doc("a quote", map[string]any{"z_last": 1, "a_first": 2, "m_mid": 3}),
	}

	built, err := Build("q", docs, 0)
	require.NoError(t, err)
	assert.Contains(t, built, "(Source: a_first: 2, m_mid: 3, z_last: 1)")
}

func TestBuildKeepsPrefixUnderBudget(t *testing.T) {
	big := strings.Repeat("word ", 200)
	docs := []domain.RetrievedDocument{
		doc("first small quote", nil),
		doc(big, nil),
		doc("third quote that fits but must not appear", nil),
	}

	// Budget fits the first entry only; the second overflows and everything
	// after it is dropped even though it would fit.
	built, err := Build("q", docs, 40)
	require.NoError(t, err)

	assert.Contains(t, built, "first small quote")
	assert.NotContains(t, built, strings.TrimSpace(big))
	assert.NotContains(t, built, "third quote")
}

func TestBuildEmptyDocumentFails(t *testing.T) {
	docs := []domain.RetrievedDocument{doc("   ", nil)}

	_, err := Build("q", docs, 0)
	require.ErrorIs(t, err, domain.ErrPromptGeneration)
}

func TestBuildNoDocuments(t *testing.T) {
	built, err := Build("a question", nil, 0)
	require.NoError(t, err)
	assert.Contains(t, built, "a question")
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, estimateTokens("abc"))
	assert.Equal(t, 25, estimateTokens(strings.Repeat("a", 100)))
}
