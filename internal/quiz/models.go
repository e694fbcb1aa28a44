package quiz

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Label identifies one of the four fixed multiple-choice options.
type Label int

const (
	LabelA Label = iota
	LabelB
	LabelC
	LabelD
)

// Labels lists every option label in display order.
var Labels = [...]Label{LabelA, LabelB, LabelC, LabelD}

var ErrInvalidLabel = errors.New("label must be one of A, B, C, D")

func (l Label) String() string {
	if !l.Valid() {
		return fmt.Sprintf("Label(%d)", int(l))
	}
	return string(rune('A' + int(l)))
}

func (l Label) Valid() bool { return l >= LabelA && l <= LabelD }

// ParseLabel accepts a single letter, case-insensitive, surrounding whitespace ignored.
func ParseLabel(s string) (Label, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != 1 || s[0] < 'A' || s[0] > 'D' {
		return 0, ErrInvalidLabel
	}
	return Label(s[0] - 'A'), nil
}

func (l Label) MarshalJSON() ([]byte, error) {
	if !l.Valid() {
		return nil, ErrInvalidLabel
	}
	return json.Marshal(l.String())
}

func (l *Label) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseLabel(s)
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// Options holds the option texts indexed by Label. JSON form is an object
// keyed A..D, always emitted in display order.
type Options [len(Labels)]string

func (o Options) Get(l Label) string { return o[l] }

// Complete reports whether every label has non-empty text.
func (o Options) Complete() bool {
	for _, t := range o {
		if t == "" {
			return false
		}
	}
	return true
}

func (o Options) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, l := range Labels {
		if i > 0 {
			buf.WriteByte(',')
		}
		v, err := json.Marshal(o[l])
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, "%q:", l.String())
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (o *Options) UnmarshalJSON(b []byte) error {
	var m map[string]string
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	var out Options
	for k, v := range m {
		l, err := ParseLabel(k)
		if err != nil {
			return fmt.Errorf("option %q: %w", k, err)
		}
		out[l] = v
	}
	*o = out
	return nil
}

// Question is one generated multiple-choice question. Answer is always a
// populated option; NewQuestion enforces it.
type Question struct {
	Text        string  `json:"question"`
	Options     Options `json:"options"`
	Answer      Label   `json:"correct_answer"`
	Explanation string  `json:"explanation"`
}

func NewQuestion(text string, opts Options, answer Label, explanation string) (Question, error) {
	switch {
	case strings.TrimSpace(text) == "":
		return Question{}, errors.New("question text is empty")
	case !opts.Complete():
		return Question{}, errors.New("question needs all four options")
	case !answer.Valid() || opts[answer] == "":
		return Question{}, ErrInvalidLabel
	case strings.TrimSpace(explanation) == "":
		return Question{}, errors.New("explanation is empty")
	}
	return Question{Text: text, Options: opts, Answer: answer, Explanation: explanation}, nil
}

// Item is a question inside a session together with the user's latest answer.
type Item struct {
	ID         string   `json:"id"`
	Question   Question `json:"question"`
	UserAnswer *Label   `json:"user_answer,omitempty"`
}

type Session struct {
	ID        string    `json:"session_id"`
	OwnerID   string    `json:"owner_id"`
	Topic     string    `json:"topic"`
	Level     string    `json:"level"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Item returns the item with the given question id.
func (s Session) Item(questionID string) (Item, bool) {
	for _, it := range s.Items {
		if it.ID == questionID {
			return it, true
		}
	}
	return Item{}, false
}

// Verdict is the outcome of grading one submitted answer.
type Verdict struct {
	Correct       bool   `json:"correct"`
	CorrectAnswer Label  `json:"correct_answer"`
	Explanation   string `json:"explanation"`
}

// Result is the client-facing label of the verdict.
func (v Verdict) Result() string {
	if v.Correct {
		return "correct"
	}
	return "incorrect"
}
