package domain

import (
	"fmt"
	"time"
)

// Step is the position of an operator inside the article authoring conversation.
type Step int

const (
	StepAwaitingTitle Step = iota + 1
	StepAwaitingContent
	StepAwaitingExcerpt
	StepAwaitingImage
)

var stepNames = map[Step]string{
	StepAwaitingTitle:   "awaiting_title",
	StepAwaitingContent: "awaiting_content",
	StepAwaitingExcerpt: "awaiting_excerpt",
	StepAwaitingImage:   "awaiting_image",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// Valid reports whether s is one of the four known steps.
func (s Step) Valid() bool {
	_, ok := stepNames[s]
	return ok
}

// ParseStep is the inverse of Step.String.
func ParseStep(name string) (Step, error) {
	for step, n := range stepNames {
		if n == name {
			return step, nil
		}
	}
	return 0, fmt.Errorf("domain: unknown step %q", name)
}

func (s Step) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("domain: cannot marshal %s", s)
	}
	return []byte(s.String()), nil
}

func (s *Step) UnmarshalText(text []byte) error {
	step, err := ParseStep(string(text))
	if err != nil {
		return err
	}
	*s = step
	return nil
}

// Draft holds the article fields collected so far.
type Draft struct {
	Title         string `json:"title,omitempty"`
	Content       string `json:"content,omitempty"`
	Excerpt       string `json:"excerpt,omitempty"`
	CoverImageURL string `json:"coverImageUrl,omitempty"`
}

// Session is the conversation state of one operator.
type Session struct {
	OperatorID int64     `json:"operatorId"`
	ChatID     int64     `json:"chatId"`
	Username   string    `json:"username,omitempty"`
	Step       Step      `json:"step"`
	Draft      Draft     `json:"draft"`
	StartedAt  time.Time `json:"startedAt"`
}
