package model

import "time"

// SurveyType selects which post-processing a submission gets
type SurveyType string

const (
	SurveyTypeSurvey SurveyType = "survey"
	SurveyTypeQuiz   SurveyType = "quiz"
	SurveyTypePulse  SurveyType = "pulse"
)

// ItemType distinguishes answerable questions from static content blocks
type ItemType string

const (
	ItemTypeQuestion ItemType = "question"
	ItemTypeContent  ItemType = "content"
)

// Survey is the read-only definition a response is processed against
type Survey struct {
	ID                    string     `json:"id" bson:"_id,omitempty"`
	HostID                string     `json:"hostId" bson:"hostId"`
	Title                 string     `json:"title" bson:"title"`
	Type                  SurveyType `json:"type" bson:"type"`
	DisplaySingleQuestion bool       `json:"displaySingleQuestion" bson:"displaySingleQuestion"`
	AllowReAnswer         bool       `json:"allowReAnswer" bson:"allowReAnswer"`
	Scoring               bool       `json:"scoring" bson:"scoring"`
	DefaultLanguage       string     `json:"defaultLanguage" bson:"defaultLanguage"`
	Sections              []Section  `json:"sections" bson:"sections"`
	CreatedAt             time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// Section groups items shown together on one step
type Section struct {
	ID     string       `json:"id" bson:"id"`
	Title  string       `json:"title,omitempty" bson:"title,omitempty"`
	Hidden bool         `json:"hidden,omitempty" bson:"hidden,omitempty"`
	Items  []SurveyItem `json:"items" bson:"items"`
}

// SurveyItem places a question or content block inside a section
type SurveyItem struct {
	ID           string         `json:"id" bson:"id"`
	Type         ItemType       `json:"type" bson:"type"`
	Text         string         `json:"text,omitempty" bson:"text,omitempty"` // content blocks only
	Question     *Question      `json:"question,omitempty" bson:"question,omitempty"`
	FlowLogic    []FlowLogic    `json:"flowLogic,omitempty" bson:"flowLogic,omitempty"`
	DisplayLogic []DisplayLogic `json:"displayLogic,omitempty" bson:"displayLogic,omitempty"`
}

// IsQuestion reports whether the item carries an answerable question
func (i *SurveyItem) IsQuestion() bool {
	return i.Type != ItemTypeContent && i.Question != nil
}

// Option is a selectable choice, matrix row or matrix column
type Option struct {
	ID      string `json:"id" bson:"id"`
	Label   string `json:"label" bson:"label"`
	Score   int    `json:"score,omitempty" bson:"score,omitempty"`
	Correct bool   `json:"correct,omitempty" bson:"correct,omitempty"`
}

// InputType restricts free text answers
type InputType string

const (
	InputTypeText   InputType = "text"
	InputTypeEmail  InputType = "email"
	InputTypeNumber InputType = "number"
)

// Question is the typed, validated part of an item
type Question struct {
	ID           string       `json:"id" bson:"id"`
	Type         QuestionType `json:"type" bson:"type"`
	Prompt       string       `json:"prompt" bson:"prompt"`
	Required     bool         `json:"required,omitempty" bson:"required,omitempty"`
	Options      []Option     `json:"options,omitempty" bson:"options,omitempty"`
	Rows         []Option     `json:"rows,omitempty" bson:"rows,omitempty"`
	Columns      []Option     `json:"columns,omitempty" bson:"columns,omitempty"`
	CustomAnswer bool         `json:"customAnswer,omitempty" bson:"customAnswer,omitempty"`
	MinSelect    int          `json:"minSelect,omitempty" bson:"minSelect,omitempty"`
	MaxSelect    int          `json:"maxSelect,omitempty" bson:"maxSelect,omitempty"`
	MaxLength    int          `json:"maxLength,omitempty" bson:"maxLength,omitempty"`
	Input        InputType    `json:"input,omitempty" bson:"input,omitempty"`
	// Numeric range for scales, sliders and NPS
	From     int         `json:"from" bson:"from"`
	To       int         `json:"to" bson:"to"`
	MaxScore int         `json:"maxScore,omitempty" bson:"maxScore,omitempty"`
	Quiz     *QuizConfig `json:"quiz,omitempty" bson:"quiz,omitempty"`
}

// OptionByID returns the option with the given id, or nil
func (q *Question) OptionByID(id string) *Option {
	for i := range q.Options {
		if q.Options[i].ID == id {
			return &q.Options[i]
		}
	}
	return nil
}

// ColumnByID returns the matrix column with the given id, or nil
func (q *Question) ColumnByID(id string) *Option {
	for i := range q.Columns {
		if q.Columns[i].ID == id {
			return &q.Columns[i]
		}
	}
	return nil
}

// HasRow reports whether the matrix defines a row with the given id
func (q *Question) HasRow(id string) bool {
	for _, r := range q.Rows {
		if r.ID == id {
			return true
		}
	}
	return false
}

// QuizConfig holds the correctness rule of a quiz question.
// Choice questions use Option.Correct; TopN grades bounded multi-select by score.
type QuizConfig struct {
	Answers []string `json:"answers,omitempty" bson:"answers,omitempty"` // text, thumbs, country
	From    *int     `json:"from,omitempty" bson:"from,omitempty"`
	To      *int     `json:"to,omitempty" bson:"to,omitempty"`
	TopN    int      `json:"topN,omitempty" bson:"topN,omitempty"`
}

// LogicMethod combines the conditions of one logic entry
type LogicMethod string

const (
	LogicAll LogicMethod = "all"
	LogicAny LogicMethod = "any"
)

// FlowAction is what a matching flow logic does to navigation
type FlowAction string

const (
	FlowToSection FlowAction = "toSection"
	FlowEndSurvey FlowAction = "endSurvey"
)

// FlowLogic redirects navigation when its conditions hold
type FlowLogic struct {
	ID         string      `json:"id" bson:"id"`
	Method     LogicMethod `json:"method" bson:"method"`
	Action     FlowAction  `json:"action" bson:"action"`
	Section    string      `json:"section,omitempty" bson:"section,omitempty"`
	EndPage    string      `json:"endPage,omitempty" bson:"endPage,omitempty"`
	Conditions []Condition `json:"conditions" bson:"conditions"`
}

// DisplayAction is the visibility a matching display logic applies
type DisplayAction string

const (
	DisplayShow DisplayAction = "show"
	DisplayHide DisplayAction = "hide"
)

// DisplayLogic shows or hides the owning item
type DisplayLogic struct {
	ID         string        `json:"id" bson:"id"`
	Method     LogicMethod   `json:"method" bson:"method"`
	Action     DisplayAction `json:"action" bson:"action"`
	Conditions []Condition   `json:"conditions" bson:"conditions"`
}

// ConditionAction is the comparison a condition performs
type ConditionAction string

const (
	CondEmpty        ConditionAction = "empty"
	CondNotEmpty     ConditionAction = "notEmpty"
	CondSelected     ConditionAction = "selected"
	CondNotSelected  ConditionAction = "notSelected"
	CondGreater      ConditionAction = "greater"
	CondGreaterEqual ConditionAction = "greaterEqual"
	CondLess         ConditionAction = "less"
	CondLessEqual    ConditionAction = "lessEqual"
	CondEqual        ConditionAction = "equal"
	CondNotEqual     ConditionAction = "notEqual"
	CondContains     ConditionAction = "contains"
	CondNotContains  ConditionAction = "notContains"
	CondBeginsWith   ConditionAction = "beginsWith"
	CondEndsWith     ConditionAction = "endsWith"
	CondMatchRegExp  ConditionAction = "matchRegExp"
)

// Condition tests the answer of one item. Item defaults to the owning item.
type Condition struct {
	Item         string          `json:"item,omitempty" bson:"item,omitempty"`
	QuestionType QuestionType    `json:"questionType" bson:"questionType"`
	Action       ConditionAction `json:"action" bson:"action"`
	Items        []string        `json:"items,omitempty" bson:"items,omitempty"`
	Count        int             `json:"count,omitempty" bson:"count,omitempty"`
	Value        string          `json:"value,omitempty" bson:"value,omitempty"`
	Row          string          `json:"row,omitempty" bson:"row,omitempty"`
	Column       string          `json:"column,omitempty" bson:"column,omitempty"`
}

// SectionIndex returns the index of the section with the given id, or -1
func (s *Survey) SectionIndex(id string) int {
	for i := range s.Sections {
		if s.Sections[i].ID == id {
			return i
		}
	}
	return -1
}

// FirstVisibleSection returns the index of the first non-hidden section, or -1
func (s *Survey) FirstVisibleSection() int {
	return s.NextVisibleSection(-1)
}

// NextVisibleSection returns the first non-hidden section after index, or -1
func (s *Survey) NextVisibleSection(after int) int {
	for i := after + 1; i < len(s.Sections); i++ {
		if !s.Sections[i].Hidden {
			return i
		}
	}
	return -1
}

// ValidStep reports whether step points at an existing, non-hidden section
func (s *Survey) ValidStep(step int) bool {
	return step >= 0 && step < len(s.Sections) && !s.Sections[step].Hidden
}

// FindItem locates an item and the index of its section
func (s *Survey) FindItem(id string) (*SurveyItem, int) {
	for si := range s.Sections {
		for ii := range s.Sections[si].Items {
			if s.Sections[si].Items[ii].ID == id {
				return &s.Sections[si].Items[ii], si
			}
		}
	}
	return nil, -1
}
