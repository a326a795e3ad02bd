// Package prompt assembles the grounding prompt for the LLM from a question
// and the retrieved passages, under a token budget.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"ragserver/internal/domain"
)

// DefaultMaxTokens is the context budget when none is configured.
const DefaultMaxTokens = 1500

// SystemMessage is the fixed persona sent alongside every prompt.
const SystemMessage = "You are a helpful assistant knowledgeable in the speaker's recorded teachings."

const template = `You are an expert on the speaker's philosophy, teachings, and life. A user has asked a question about them. Use the quotes and metadata below to construct a thoughtful and accurate response. You must **include the most relevant quotes directly in your answer**, and mention their associated metadata (such as source and timestamps) to support your explanation. If the question is gibberish or unrelated, inquire with the user for clarification.

# Context
%s

# User Question
%s

# Instructions

1. Understand the Question: Analyze the user's question to identify the main points of inquiry.
2. Review Context: Carefully examine the provided context to locate relevant quotes and metadata that align with the question.
3. Select Relevant Quotes: Choose the most impactful quotes that directly relate to the user's question and are supported by the context.
4. Craft a Response: Construct a clear and comprehensive answer by using the selected quotes.
5. Include Metadata: For each quote used, include the associated metadata such as the source and timestamps to substantiate your explanation.
6. Inquire for Clarity: If the question appears to be gibberish or irrelevant, politely ask the user to clarify or reframe their question.

# Output Format

The response should be a well-structured paragraph or multiple paragraphs.
- Start with a brief introduction to the topic addressed in the question.
- Incorporate quotes directly into the text, followed by relevant metadata.
- Conclude with an explanation tying together the quotes and their broader significance.`

// Build greedily packs documents, in their given order, into the prompt
// until the next one would push the estimated cost past maxTokens. Accepted
// documents always form a prefix of the input, so when the caller passes
// them score-descending the highest-relevance material survives truncation.
// Dropping documents for budget is silent and not an error.
func Build(question string, docs []domain.RetrievedDocument, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	var parts []string
	tokens := 0
	for _, doc := range docs {
		entry, err := formatEntry(doc)
		if err != nil {
			return "", err
		}
		cost := estimateTokens(entry)
		if tokens+cost > maxTokens {
			break
		}
		parts = append(parts, entry)
		tokens += cost
	}

	context := strings.Join(parts, "\n\n")
	return fmt.Sprintf(template, context, question), nil
}

// formatEntry renders one passage as a quoted excerpt with its provenance.
// Metadata keys are sorted so the prompt is deterministic.
func formatEntry(doc domain.RetrievedDocument) (string, error) {
	quote := strings.TrimSpace(doc.Text)
	if quote == "" {
		return "", fmt.Errorf("%w: document has no text", domain.ErrPromptGeneration)
	}

	keys := make([]string, 0, len(doc.Metadata))
	for k := range doc.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s: %v", k, doc.Metadata[k]))
	}
	return fmt.Sprintf("%q\n(Source: %s)", quote, strings.Join(pairs, ", ")), nil
}

// estimateTokens is the cheap length/4 approximation, not real tokenization.
func estimateTokens(text string) int {
	return len(text) / 4
}
