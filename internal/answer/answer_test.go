package answer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveyengine/internal/model"
)

func choiceQuestion(t model.QuestionType, ids ...string) *model.Question {
	q := &model.Question{ID: "q", Type: t}
	for _, id := range ids {
		q.Options = append(q.Options, model.Option{ID: id, Label: id})
	}
	return q
}

func fieldKey(t *testing.T, err error) string {
	t.Helper()
	var fe *FieldError
	require.True(t, errors.As(err, &fe), "expected FieldError, got %v", err)
	return fe.Key
}

func TestNormalize(t *testing.T) {
	checkboxes := choiceQuestion(model.QuestionTypeCheckboxes, "a", "b", "c")
	checkboxes.MaxSelect = 2
	checkboxes.CustomAnswer = true

	scale := &model.Question{ID: "s", Type: model.QuestionTypeLinearScale, From: 1, To: 5}
	email := &model.Question{ID: "e", Type: model.QuestionTypeText, Input: model.InputTypeEmail}
	short := &model.Question{ID: "t", Type: model.QuestionTypeText, MaxLength: 3}
	matrix := &model.Question{
		ID: "m", Type: model.QuestionTypeMultipleChoiceMatrix,
		Rows:    []model.Option{{ID: "r1"}, {ID: "r2"}},
		Columns: []model.Option{{ID: "c1"}, {ID: "c2"}},
	}

	t.Run("dedupes selected ids", func(t *testing.T) {
		v, err := Normalize(checkboxes, model.RawAnswer{Items: []string{"a", "a", "b"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, v.Items)
	})

	t.Run("custom answer counts toward max", func(t *testing.T) {
		_, err := Normalize(checkboxes, model.RawAnswer{Items: []string{"a", "b"}, CustomAnswer: "x"})
		assert.Equal(t, MsgMaxSelect, fieldKey(t, err))
	})

	t.Run("unknown option", func(t *testing.T) {
		_, err := Normalize(checkboxes, model.RawAnswer{Items: []string{"z"}})
		assert.Equal(t, MsgUnknownOption, fieldKey(t, err))
	})

	t.Run("single select rejects two ids", func(t *testing.T) {
		_, err := Normalize(choiceQuestion(model.QuestionTypeMultipleChoice, "a", "b"), model.RawAnswer{Items: []string{"a", "b"}})
		assert.Equal(t, MsgMaxSelect, fieldKey(t, err))
	})

	t.Run("empty submission is nil", func(t *testing.T) {
		v, err := Normalize(checkboxes, model.RawAnswer{})
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("numeric parses", func(t *testing.T) {
		v, err := Normalize(scale, model.RawAnswer{Value: " 4 "})
		require.NoError(t, err)
		require.NotNil(t, v.Number)
		assert.Equal(t, 4, *v.Number)
	})

	t.Run("numeric malformed", func(t *testing.T) {
		_, err := Normalize(scale, model.RawAnswer{Value: "four"})
		assert.Equal(t, MsgInvalidNumber, fieldKey(t, err))
	})

	t.Run("numeric out of range", func(t *testing.T) {
		_, err := Normalize(scale, model.RawAnswer{Value: "9"})
		assert.Equal(t, MsgOutOfRange, fieldKey(t, err))
	})

	t.Run("email", func(t *testing.T) {
		_, err := Normalize(email, model.RawAnswer{Value: "not-an-email"})
		assert.Equal(t, MsgInvalidEmail, fieldKey(t, err))
		v, err := Normalize(email, model.RawAnswer{Value: "ann@example.com"})
		require.NoError(t, err)
		assert.Equal(t, "ann@example.com", v.Value)
	})

	t.Run("text too long", func(t *testing.T) {
		_, err := Normalize(short, model.RawAnswer{Value: "über"})
		assert.Equal(t, MsgMaxLength, fieldKey(t, err))
	})

	t.Run("thumbs", func(t *testing.T) {
		v, err := Normalize(&model.Question{Type: model.QuestionTypeThumbs}, model.RawAnswer{Value: "YES"})
		require.NoError(t, err)
		assert.Equal(t, model.ThumbsYes, v.Value)
		_, err = Normalize(&model.Question{Type: model.QuestionTypeThumbs}, model.RawAnswer{Value: "maybe"})
		assert.Equal(t, MsgInvalidValue, fieldKey(t, err))
	})

	t.Run("matrix one column per row", func(t *testing.T) {
		_, err := Normalize(matrix, model.RawAnswer{Crossings: []model.Crossing{{Row: "r1", Column: "c1"}, {Row: "r1", Column: "c2"}}})
		assert.Equal(t, MsgOneColumnPerRow, fieldKey(t, err))
	})

	t.Run("unsupported type", func(t *testing.T) {
		_, err := Normalize(&model.Question{Type: "hologram"}, model.RawAnswer{Value: "x"})
		assert.Equal(t, MsgUnsupportedType, fieldKey(t, err))
	})
}

func TestRequired(t *testing.T) {
	matrix := &model.Question{
		Type: model.QuestionTypeCheckboxMatrix, Required: true,
		Rows:    []model.Option{{ID: "r1"}, {ID: "r2"}},
		Columns: []model.Option{{ID: "c1"}},
	}
	assert.Equal(t, MsgRequired, fieldKey(t, Required(matrix, nil)))
	partial := &model.AnswerValue{Crossings: []model.Crossing{{Row: "r1", Column: "c1"}}}
	assert.Equal(t, MsgMatrixRowRequired, fieldKey(t, Required(matrix, partial)))
	full := &model.AnswerValue{Crossings: []model.Crossing{{Row: "r1", Column: "c1"}, {Row: "r2", Column: "c1"}}}
	assert.NoError(t, Required(matrix, full))
	assert.NoError(t, Required(&model.Question{Type: model.QuestionTypeText}, nil))
}

func TestContributionKeys(t *testing.T) {
	n := 9
	assert.Equal(t, []string{"a", model.CustomAnswerKey},
		ContributionKeys(model.QuestionTypeCheckboxes, &model.AnswerValue{Items: []string{"a"}, CustomAnswer: "x"}))
	assert.Equal(t, []string{"r1#c2"},
		ContributionKeys(model.QuestionTypeCheckboxMatrix, &model.AnswerValue{Crossings: []model.Crossing{{Row: "r1", Column: "c2"}}}))
	assert.Equal(t, []string{"9"}, ContributionKeys(model.QuestionTypeNetPromoterScore, &model.AnswerValue{Number: &n}))
	assert.Equal(t, []string{"CH"}, ContributionKeys(model.QuestionTypeCountryList, &model.AnswerValue{Value: "CH"}))
	assert.Nil(t, ContributionKeys(model.QuestionTypeText, nil))
}

func TestDiff(t *testing.T) {
	t.Run("checkbox correction", func(t *testing.T) {
		d := Diff(model.QuestionTypeCheckboxes,
			&model.AnswerValue{Items: []string{"A", "B"}},
			&model.AnswerValue{Items: []string{"A", "C"}})
		assert.Equal(t, []string{"C"}, d.Increment)
		assert.Equal(t, []string{"B"}, d.Decrement)
	})

	t.Run("fresh answer", func(t *testing.T) {
		d := Diff(model.QuestionTypeCheckboxes, nil, &model.AnswerValue{Items: []string{"B", "A"}})
		assert.Equal(t, []string{"A", "B"}, d.Increment)
		assert.Empty(t, d.Decrement)
	})

	t.Run("scalar swaps fully", func(t *testing.T) {
		five, six := 5, 6
		d := Diff(model.QuestionTypeLinearScale,
			&model.AnswerValue{Number: &five, CustomAnswer: "x"},
			&model.AnswerValue{Number: &six, CustomAnswer: "x"})
		assert.ElementsMatch(t, []string{"6", model.CustomAnswerKey}, d.Increment)
		assert.ElementsMatch(t, []string{"5", model.CustomAnswerKey}, d.Decrement)
	})

	t.Run("unchanged text", func(t *testing.T) {
		d := Diff(model.QuestionTypeText, &model.AnswerValue{Value: "hi"}, &model.AnswerValue{Value: "hi"})
		assert.True(t, d.IsZero())
	})
}

func TestClassify(t *testing.T) {
	a := &model.AnswerValue{Items: []string{"a"}}
	b := &model.AnswerValue{Items: []string{"b"}}
	tests := []struct {
		name       string
		prev, next *model.AnswerValue
		wasSkipped bool
		want       Transition
	}{
		{"newly answered", nil, a, false, Answered},
		{"answered after skip", nil, a, true, Answered},
		{"newly skipped", nil, nil, false, Skipped},
		{"already skipped", nil, nil, true, Unchanged},
		{"corrected", a, b, false, Corrected},
		{"same answer", a, &model.AnswerValue{Items: []string{"a"}}, false, Unchanged},
		{"custom text edited", &model.AnswerValue{CustomAnswer: "x"}, &model.AnswerValue{CustomAnswer: "y"}, false, Corrected},
		{"cleared", a, nil, false, Retracted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(model.QuestionTypeCheckboxes, tt.prev, tt.next, tt.wasSkipped))
		})
	}
}
