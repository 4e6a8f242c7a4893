package model

import "fmt"

// QuestionType defines the type of question
type QuestionType string

const (
	QuestionTypeText                 QuestionType = "text"
	QuestionTypeMultipleChoice       QuestionType = "multipleChoice"
	QuestionTypeDropdown             QuestionType = "dropdown"
	QuestionTypeCountryList          QuestionType = "countryList"
	QuestionTypeCheckboxes           QuestionType = "checkboxes"
	QuestionTypeImageChoice          QuestionType = "imageChoice"
	QuestionTypeMultipleChoiceMatrix QuestionType = "multipleChoiceMatrix"
	QuestionTypeCheckboxMatrix       QuestionType = "checkboxMatrix"
	QuestionTypeLinearScale          QuestionType = "linearScale"
	QuestionTypeSlider               QuestionType = "slider"
	QuestionTypeNetPromoterScore     QuestionType = "netPromoterScore"
	QuestionTypeThumbs               QuestionType = "thumbs"
)

// Kind is the closed set of answer shapes. Only the types in this file implement it.
type Kind interface {
	isKind()
}

// SingleSelectKind picks at most one option id
type SingleSelectKind struct{}

// MultiSelectKind picks any number of option ids
type MultiSelectKind struct{}

// MatrixKind picks (row, column) crossings. Multiple allows several columns per row.
type MatrixKind struct{ Multiple bool }

// NumericKind answers with one integer
type NumericKind struct{}

// TextKind answers with free text
type TextKind struct{}

// ThumbsKind answers yes or no
type ThumbsKind struct{}

// CountryKind answers with one country id
type CountryKind struct{}

func (SingleSelectKind) isKind() {}
func (MultiSelectKind) isKind()  {}
func (MatrixKind) isKind()       {}
func (NumericKind) isKind()      {}
func (TextKind) isKind()         {}
func (ThumbsKind) isKind()       {}
func (CountryKind) isKind()      {}

var kinds = map[QuestionType]Kind{
	QuestionTypeText:                 TextKind{},
	QuestionTypeMultipleChoice:       SingleSelectKind{},
	QuestionTypeDropdown:             SingleSelectKind{},
	QuestionTypeCountryList:          CountryKind{},
	QuestionTypeCheckboxes:           MultiSelectKind{},
	QuestionTypeImageChoice:          MultiSelectKind{},
	QuestionTypeMultipleChoiceMatrix: MatrixKind{},
	QuestionTypeCheckboxMatrix:       MatrixKind{Multiple: true},
	QuestionTypeLinearScale:          NumericKind{},
	QuestionTypeSlider:               NumericKind{},
	QuestionTypeNetPromoterScore:     NumericKind{},
	QuestionTypeThumbs:               ThumbsKind{},
}

// KindOf resolves a question type to its kind
func KindOf(t QuestionType) (Kind, bool) {
	k, ok := kinds[t]
	return k, ok
}

// KindVisitor must handle every kind. Adding a kind breaks every visitor at compile time.
type KindVisitor[T any] interface {
	SingleSelect(SingleSelectKind) T
	MultiSelect(MultiSelectKind) T
	Matrix(MatrixKind) T
	Numeric(NumericKind) T
	Text(TextKind) T
	Thumbs(ThumbsKind) T
	Country(CountryKind) T
}

// Visit dispatches k to the matching visitor method
func Visit[T any](k Kind, v KindVisitor[T]) T {
	switch k := k.(type) {
	case SingleSelectKind:
		return v.SingleSelect(k)
	case MultiSelectKind:
		return v.MultiSelect(k)
	case MatrixKind:
		return v.Matrix(k)
	case NumericKind:
		return v.Numeric(k)
	case TextKind:
		return v.Text(k)
	case ThumbsKind:
		return v.Thumbs(k)
	case CountryKind:
		return v.Country(k)
	}
	// Kind is sealed; only a nil Kind gets here.
	panic(fmt.Sprintf("model: unhandled kind %T", k))
}
