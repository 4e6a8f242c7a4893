package model

// CustomAnswerKey is the contribution key and condition operand for free text "other" answers
const CustomAnswerKey = "customAnswer"

// Thumbs answers
const (
	ThumbsYes = "yes"
	ThumbsNo  = "no"
)

// Crossing is one selected matrix cell
type Crossing struct {
	Row    string `json:"row" bson:"row"`
	Column string `json:"column" bson:"column"`
}

// AnswerValue is the canonical, normalized answer of one item.
// Exactly one of Value, Number, Items or Crossings is set for a non-empty answer.
type AnswerValue struct {
	Value        string     `json:"value,omitempty" bson:"value,omitempty"` // text, thumbs, country id
	Number       *int       `json:"number,omitempty" bson:"number,omitempty"`
	Items        []string   `json:"items,omitempty" bson:"items,omitempty"`
	Crossings    []Crossing `json:"crossings,omitempty" bson:"crossings,omitempty"`
	CustomAnswer string     `json:"customAnswer,omitempty" bson:"customAnswer,omitempty"`
}

// IsEmpty reports whether the value carries no answer at all
func (v *AnswerValue) IsEmpty() bool {
	if v == nil {
		return true
	}
	return v.Value == "" && v.Number == nil && len(v.Items) == 0 && len(v.Crossings) == 0 && v.CustomAnswer == ""
}

// RawAnswer is one item's answer as submitted by a client
type RawAnswer struct {
	Value        string     `json:"value,omitempty"`
	Items        []string   `json:"items,omitempty"`
	Crossings    []Crossing `json:"crossings,omitempty"`
	CustomAnswer string     `json:"customAnswer,omitempty"`
}

// SubmitAnswerRequest carries the answers of the current step keyed by item id.
// Omitted items keep their previous answer; present but empty items are cleared.
type SubmitAnswerRequest struct {
	Answers map[string]RawAnswer `json:"answers"`
}
