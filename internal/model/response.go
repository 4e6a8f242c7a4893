package model

import (
	"sort"
	"time"
)

// Response is one respondent session's state against a survey
type Response struct {
	ID        string                  `json:"id" bson:"_id,omitempty"`
	Survey    string                  `json:"survey" bson:"survey"`
	Token     string                  `json:"token" bson:"token"`
	Recipient string                  `json:"recipient,omitempty" bson:"recipient,omitempty"`
	Language  string                  `json:"language,omitempty" bson:"language,omitempty"`
	Answer    map[string]*AnswerValue `json:"answer" bson:"answer"`
	Skipped   ItemSet                 `json:"skipped" bson:"skipped"`
	// SkippedByFlow holds items a flow logic jumped over that were not reached since
	SkippedByFlow ItemSet `json:"skippedByFlow,omitempty" bson:"skippedByFlow,omitempty"`
	Flow      []int                   `json:"flow" bson:"flow"`

	Step                int       `json:"step" bson:"step"`
	StepHistory         StepStack `json:"stepHistory" bson:"stepHistory"`
	QuestionStepHistory ItemStack `json:"questionStepHistory" bson:"questionStepHistory"`
	Completed           bool      `json:"completed" bson:"completed"`
	EndPage             string    `json:"endPage,omitempty" bson:"endPage,omitempty"`

	QuizCorrect int     `json:"quizCorrect" bson:"quizCorrect"`
	QuizTotal   int     `json:"quizTotal" bson:"quizTotal"`
	ScorePoints int     `json:"scorePoints" bson:"scorePoints"`
	Scored      ItemSet `json:"scored,omitempty" bson:"scored,omitempty"`

	Dimensions Dimensions `json:"dimensions" bson:"dimensions"`

	Version   int64     `json:"version" bson:"version"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// NewResponse creates a not-started response positioned on the first visible section
func NewResponse(survey *Survey, token string, dims Dimensions) *Response {
	step := survey.FirstVisibleSection()
	if step < 0 {
		step = 0
	}
	return &Response{
		Survey:     survey.ID,
		Token:      token,
		Answer:     make(map[string]*AnswerValue),
		Step:       step,
		Dimensions: dims,
	}
}

// Dimensions are the optional segment keys statistics are split by
type Dimensions struct {
	Round    string   `json:"round,omitempty" bson:"round,omitempty"`
	Driver   string   `json:"driver,omitempty" bson:"driver,omitempty"`
	Campaign string   `json:"campaign,omitempty" bson:"campaign,omitempty"`
	Target   string   `json:"target,omitempty" bson:"target,omitempty"`
	Tags     []string `json:"tags,omitempty" bson:"tags,omitempty"`
}

// StepStack is the section-level history
type StepStack []int

// Push appends step unless it already is the top of the stack
func (s *StepStack) Push(step int) {
	if top, ok := s.Top(); ok && top == step {
		return
	}
	*s = append(*s, step)
}

// PushAlways appends step even when it repeats the top
func (s *StepStack) PushAlways(step int) {
	*s = append(*s, step)
}

func (s *StepStack) Pop() (int, bool) {
	n := len(*s)
	if n == 0 {
		return 0, false
	}
	v := (*s)[n-1]
	*s = (*s)[:n-1]
	return v, true
}

func (s StepStack) Top() (int, bool) {
	if len(s) == 0 {
		return 0, false
	}
	return s[len(s)-1], true
}

// ItemStack is the item-level history used in single-question mode
type ItemStack []string

func (s *ItemStack) Push(id string) {
	*s = append(*s, id)
}

func (s *ItemStack) Pop() (string, bool) {
	n := len(*s)
	if n == 0 {
		return "", false
	}
	v := (*s)[n-1]
	*s = (*s)[:n-1]
	return v, true
}

func (s ItemStack) Top() (string, bool) {
	if len(s) == 0 {
		return "", false
	}
	return s[len(s)-1], true
}

// ItemSet is a sorted set of item ids
type ItemSet []string

func (s ItemSet) Has(id string) bool {
	i := sort.SearchStrings(s, id)
	return i < len(s) && s[i] == id
}

// Add inserts id and reports whether it was missing
func (s *ItemSet) Add(id string) bool {
	i := sort.SearchStrings(*s, id)
	if i < len(*s) && (*s)[i] == id {
		return false
	}
	*s = append(*s, "")
	copy((*s)[i+1:], (*s)[i:])
	(*s)[i] = id
	return true
}

// Remove deletes id and reports whether it was present
func (s *ItemSet) Remove(id string) bool {
	i := sort.SearchStrings(*s, id)
	if i >= len(*s) || (*s)[i] != id {
		return false
	}
	*s = append((*s)[:i], (*s)[i+1:]...)
	return true
}
