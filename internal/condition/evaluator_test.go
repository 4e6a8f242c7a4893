package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveyengine/internal/answer"
	"surveyengine/internal/model"
)

func intPtr(v int) *int { return &v }

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name  string
		cond  model.Condition
		value *model.AnswerValue
		want  bool
	}{
		{
			name:  "empty on nil value",
			cond:  model.Condition{QuestionType: model.QuestionTypeText, Action: model.CondEmpty},
			value: nil,
			want:  true,
		},
		{
			name:  "notEmpty ignores unknown type",
			cond:  model.Condition{QuestionType: "mystery", Action: model.CondNotEmpty},
			value: &model.AnswerValue{Value: "x"},
			want:  true,
		},
		{
			name:  "unknown type is false",
			cond:  model.Condition{QuestionType: "mystery", Action: model.CondSelected, Items: []string{"a"}},
			value: &model.AnswerValue{Items: []string{"a"}},
			want:  false,
		},
		{
			name:  "single select selected",
			cond:  model.Condition{QuestionType: model.QuestionTypeMultipleChoice, Action: model.CondSelected, Items: []string{"a"}},
			value: &model.AnswerValue{Items: []string{"a"}},
			want:  true,
		},
		{
			name:  "single select notSelected",
			cond:  model.Condition{QuestionType: model.QuestionTypeDropdown, Action: model.CondNotSelected, Items: []string{"b"}},
			value: &model.AnswerValue{Items: []string{"a"}},
			want:  true,
		},
		{
			name:  "custom answer acts as an id",
			cond:  model.Condition{QuestionType: model.QuestionTypeMultipleChoice, Action: model.CondSelected, Items: []string{model.CustomAnswerKey}},
			value: &model.AnswerValue{CustomAnswer: "something else"},
			want:  true,
		},
		{
			name:  "multi select subset",
			cond:  model.Condition{QuestionType: model.QuestionTypeCheckboxes, Action: model.CondSelected, Items: []string{"a", "c"}},
			value: &model.AnswerValue{Items: []string{"a", "b", "c"}},
			want:  true,
		},
		{
			name:  "multi select not a subset",
			cond:  model.Condition{QuestionType: model.QuestionTypeCheckboxes, Action: model.CondSelected, Items: []string{"a", "d"}},
			value: &model.AnswerValue{Items: []string{"a", "b"}},
			want:  false,
		},
		{
			name:  "multi select count greaterEqual",
			cond:  model.Condition{QuestionType: model.QuestionTypeImageChoice, Action: model.CondGreaterEqual, Count: 2},
			value: &model.AnswerValue{Items: []string{"a"}, CustomAnswer: "other"},
			want:  true,
		},
		{
			name:  "matrix cell selected",
			cond:  model.Condition{QuestionType: model.QuestionTypeMultipleChoiceMatrix, Action: model.CondSelected, Row: "r1", Column: "c2"},
			value: &model.AnswerValue{Crossings: []model.Crossing{{Row: "r1", Column: "c2"}}},
			want:  true,
		},
		{
			name: "matrix count filtered by column",
			cond: model.Condition{QuestionType: model.QuestionTypeCheckboxMatrix, Action: model.CondEqual, Column: "c1", Count: 2},
			value: &model.AnswerValue{Crossings: []model.Crossing{
				{Row: "r1", Column: "c1"}, {Row: "r2", Column: "c1"}, {Row: "r2", Column: "c2"},
			}},
			want: true,
		},
		{
			name:  "numeric less",
			cond:  model.Condition{QuestionType: model.QuestionTypeNetPromoterScore, Action: model.CondLess, Count: 7},
			value: &model.AnswerValue{Number: intPtr(6)},
			want:  true,
		},
		{
			name:  "numeric without value",
			cond:  model.Condition{QuestionType: model.QuestionTypeSlider, Action: model.CondNotEqual, Count: 7},
			value: &model.AnswerValue{},
			want:  false,
		},
		{
			name:  "text beginsWith",
			cond:  model.Condition{QuestionType: model.QuestionTypeText, Action: model.CondBeginsWith, Value: "Hel"},
			value: &model.AnswerValue{Value: "Hello"},
			want:  true,
		},
		{
			name:  "text regexp is case sensitive",
			cond:  model.Condition{QuestionType: model.QuestionTypeText, Action: model.CondMatchRegExp, Value: "^hello$"},
			value: &model.AnswerValue{Value: "Hello"},
			want:  false,
		},
		{
			name:  "text invalid regexp",
			cond:  model.Condition{QuestionType: model.QuestionTypeText, Action: model.CondMatchRegExp, Value: "("},
			value: &model.AnswerValue{Value: "("},
			want:  false,
		},
		{
			name:  "thumbs equal",
			cond:  model.Condition{QuestionType: model.QuestionTypeThumbs, Action: model.CondEqual, Value: model.ThumbsYes},
			value: &model.AnswerValue{Value: model.ThumbsYes},
			want:  true,
		},
		{
			name:  "thumbs unsupported action",
			cond:  model.Condition{QuestionType: model.QuestionTypeThumbs, Action: model.CondContains, Value: "y"},
			value: &model.AnswerValue{Value: model.ThumbsYes},
			want:  false,
		},
		{
			name:  "country selected",
			cond:  model.Condition{QuestionType: model.QuestionTypeCountryList, Action: model.CondSelected, Items: []string{"CH"}},
			value: &model.AnswerValue{Value: "CH"},
			want:  true,
		},
		{
			name:  "empty operand never selects",
			cond:  model.Condition{QuestionType: model.QuestionTypeCheckboxes, Action: model.CondNotSelected},
			value: &model.AnswerValue{Items: []string{"a"}},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.cond, tt.value))
		})
	}
}

func TestOperandsFollowAnswerCanonicalForm(t *testing.T) {
	tests := []struct {
		name  string
		qtype model.QuestionType
		raw   model.RawAnswer
		cond  model.Condition
		want  bool
	}{
		{
			name:  "thumbs operand in upper case",
			qtype: model.QuestionTypeThumbs,
			raw:   model.RawAnswer{Value: "Yes"},
			cond:  model.Condition{Action: model.CondEqual, Value: "YES"},
			want:  true,
		},
		{
			name:  "thumbs operand padded",
			qtype: model.QuestionTypeThumbs,
			raw:   model.RawAnswer{Value: "no"},
			cond:  model.Condition{Action: model.CondNotEqual, Value: " No "},
			want:  false,
		},
		{
			name:  "country operand in lower case",
			qtype: model.QuestionTypeCountryList,
			raw:   model.RawAnswer{Value: "ch"},
			cond:  model.Condition{Action: model.CondSelected, Items: []string{"ch"}},
			want:  true,
		},
		{
			name:  "country not selected with mixed case",
			qtype: model.QuestionTypeCountryList,
			raw:   model.RawAnswer{Items: []string{"de"}},
			cond:  model.Condition{Action: model.CondNotSelected, Items: []string{"De"}},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := answer.Normalize(&model.Question{ID: "q1", Type: tt.qtype}, tt.raw)
			require.NoError(t, err)
			tt.cond.QuestionType = tt.qtype
			assert.Equal(t, tt.want, Evaluate(tt.cond, v))
		})
	}
}

func TestMatch(t *testing.T) {
	answers := map[string]*model.AnswerValue{
		"q1": {Items: []string{"a"}},
		"q2": {Number: intPtr(9)},
	}
	isA := model.Condition{QuestionType: model.QuestionTypeMultipleChoice, Action: model.CondSelected, Items: []string{"a"}}
	q2Low := model.Condition{Item: "q2", QuestionType: model.QuestionTypeLinearScale, Action: model.CondLess, Count: 5}

	assert.True(t, Match(model.LogicAny, []model.Condition{isA, q2Low}, "q1", answers))
	assert.False(t, Match(model.LogicAll, []model.Condition{isA, q2Low}, "q1", answers))
	assert.True(t, Match(model.LogicAll, []model.Condition{isA}, "q1", answers))
	assert.False(t, Match(model.LogicAll, nil, "q1", answers))
	assert.False(t, Match("sometimes", []model.Condition{isA}, "q1", answers))
}

func TestVisible(t *testing.T) {
	answers := map[string]*model.AnswerValue{"q1": {Value: model.ThumbsNo}}
	thumbsYes := model.Condition{Item: "q1", QuestionType: model.QuestionTypeThumbs, Action: model.CondEqual, Value: model.ThumbsYes}
	thumbsNo := model.Condition{Item: "q1", QuestionType: model.QuestionTypeThumbs, Action: model.CondEqual, Value: model.ThumbsNo}

	tests := []struct {
		name  string
		logic []model.DisplayLogic
		want  bool
	}{
		{"no logic", nil, true},
		{"show when yes", []model.DisplayLogic{{Action: model.DisplayShow, Method: model.LogicAll, Conditions: []model.Condition{thumbsYes}}}, false},
		{"hide when no", []model.DisplayLogic{{Action: model.DisplayHide, Method: model.LogicAll, Conditions: []model.Condition{thumbsNo}}}, false},
		{"hide when yes", []model.DisplayLogic{{Action: model.DisplayHide, Method: model.LogicAll, Conditions: []model.Condition{thumbsYes}}}, true},
		{"first match wins", []model.DisplayLogic{
			{Action: model.DisplayShow, Method: model.LogicAll, Conditions: []model.Condition{thumbsNo}},
			{Action: model.DisplayHide, Method: model.LogicAll, Conditions: []model.Condition{thumbsNo}},
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := &model.SurveyItem{ID: "q2", DisplayLogic: tt.logic}
			assert.Equal(t, tt.want, Visible(item, answers))
			// pure: repeated calls agree
			assert.Equal(t, tt.want, Visible(item, answers))
		})
	}
}
