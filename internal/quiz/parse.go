package quiz

import (
	"errors"
	"strings"
)

var ErrMalformedCompletion = errors.New("malformed completion")

// MalformedCompletionError describes why a model reply could not be turned
// into a Question. Token carries the offending answer token when there is one.
type MalformedCompletionError struct {
	Reason string
	Token  string
}

func (e *MalformedCompletionError) Error() string {
	if e.Token != "" {
		return "malformed completion: " + e.Reason + ": " + e.Token
	}
	return "malformed completion: " + e.Reason
}

func (e *MalformedCompletionError) Is(target error) bool { return target == ErrMalformedCompletion }

func malformed(reason, token string) error {
	return &MalformedCompletionError{Reason: reason, Token: token}
}

const (
	questionPrefix    = "Question:"
	answerPrefix      = "Answer:"
	explanationPrefix = "Explanation:"
	optionSep         = ") "
)

// ParseCompletion extracts a Question from the line-oriented reply format
// requested by BuildPrompt:
//
//	Question: <text>
//	A) <option>
//	B) <option>
//	C) <option>
//	D) <option>
//	Answer: <letter>
//	Explanation: <text>
func ParseCompletion(raw string) (Question, error) {
	lines := strings.Split(strings.ReplaceAll(strings.TrimSpace(raw), "\r\n", "\n"), "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	if len(lines) < 1+len(Labels) {
		return Question{}, malformed("too few lines", "")
	}

	text := strings.TrimSpace(strings.TrimPrefix(lines[0], questionPrefix))
	if text == "" {
		return Question{}, malformed("empty question", "")
	}

	var opts Options
	for _, line := range lines[1 : 1+len(Labels)] {
		key, val, ok := strings.Cut(line, optionSep)
		if !ok {
			continue
		}
		l, err := ParseLabel(key)
		if err != nil {
			continue
		}
		opts[l] = strings.TrimSpace(val)
	}

	rawAnswer, ok := valueAfter(lines, answerPrefix)
	if !ok {
		return Question{}, malformed("missing answer line", "")
	}
	letter := rawAnswer
	if before, _, found := strings.Cut(rawAnswer, optionSep); found {
		letter = before
	}
	answer, err := ParseLabel(letter)
	if err != nil || opts[answer] == "" {
		return Question{}, malformed("answer is not one of the options", rawAnswer)
	}

	explanation, ok := valueAfter(lines, explanationPrefix)
	if !ok || explanation == "" {
		return Question{}, malformed("missing explanation line", "")
	}

	q, err := NewQuestion(text, opts, answer, explanation)
	if err != nil {
		return Question{}, malformed(err.Error(), "")
	}
	return q, nil
}

// valueAfter returns the trimmed remainder of the first line starting with prefix.
func valueAfter(lines []string, prefix string) (string, bool) {
	for _, l := range lines {
		if strings.HasPrefix(l, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(l, prefix)), true
		}
	}
	return "", false
}
