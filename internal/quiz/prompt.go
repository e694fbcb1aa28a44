package quiz

import (
	"fmt"
	"strings"
)

const (
	DefaultLevel      = "Medium"
	DefaultNumOptions = 4

	// SystemPrompt is sent as the system message of every completion.
	SystemPrompt = "You are an SSC CGL question generator."
)

const promptTemplate = `You are an expert question setter for the SSC CGL exam in India.

Please generate **one single multiple-choice question** for the SSC CGL exam on the topic: "%s".

- The question should be suitable for the %s difficulty level.
- Provide exactly %d options, each uniquely labeled as %s.
- Mark the correct answer clearly.
- Provide a short explanation in 1-2 sentences that helps a student understand why the answer is correct.

**IMPORTANT: Follow this output format EXACTLY (no extra text, no markdown, no titles):**

Question: <your question text here>
%s
Answer: <one letter %s>
Explanation: <1-2 sentence explanation>

Example:
Question: What is the capital of India?
A) Mumbai
B) Kolkata
C) New Delhi
D) Chennai
Answer: C
Explanation: New Delhi is the capital of India and houses important government institutions.

Now generate the question.
`

// BuildPrompt renders the instruction for one question on topic.
// An empty level falls back to DefaultLevel and a non-positive option count
// to DefaultNumOptions.
func BuildPrompt(topic, level string, numOptions int) string {
	level = strings.TrimSpace(level)
	if level == "" {
		level = DefaultLevel
	}
	if numOptions <= 0 {
		numOptions = DefaultNumOptions
	}

	letters := make([]string, 0, numOptions)
	lines := make([]string, 0, numOptions)
	for i := 0; i < numOptions; i++ {
		l := string(rune('A' + i))
		letters = append(letters, l)
		lines = append(lines, fmt.Sprintf("%s) <option %s>", l, l))
	}

	return fmt.Sprintf(promptTemplate,
		strings.TrimSpace(topic),
		level,
		numOptions,
		strings.Join(letters, "), ")+")",
		strings.Join(lines, "\n"),
		strings.Join(letters, "/"),
	)
}
