package quiz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"surveyengine/internal/model"
)

func intPtr(v int) *int { return &v }

func quizItem() *model.SurveyItem {
	return &model.SurveyItem{
		ID:   "q1",
		Type: model.ItemTypeQuestion,
		Question: &model.Question{
			ID:   "question-1",
			Type: model.QuestionTypeMultipleChoice,
			Options: []model.Option{
				{ID: "optionA", Correct: true, Score: 3},
				{ID: "optionB", Score: 1},
			},
		},
	}
}

func TestScoreQuiz(t *testing.T) {
	tests := []struct {
		name        string
		option      string
		wantCorrect int
	}{
		{"correct option", "optionA", 1},
		{"wrong option", "optionB", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			survey := &model.Survey{Type: model.SurveyTypeQuiz}
			item := quizItem()
			r := &model.Response{Answer: map[string]*model.AnswerValue{
				"q1": {Items: []string{tt.option}},
			}}

			New(survey).Score(r, []*model.SurveyItem{item})
			assert.Equal(t, tt.wantCorrect, r.QuizCorrect)
			assert.Equal(t, 1, r.QuizTotal)
			assert.Zero(t, r.ScorePoints)
		})
	}
}

func TestScoreOncePerPass(t *testing.T) {
	survey := &model.Survey{Type: model.SurveyTypeQuiz, Scoring: true}
	item := quizItem()
	r := &model.Response{Answer: map[string]*model.AnswerValue{"q1": {Items: []string{"optionA"}}}}
	s := New(survey)

	s.Score(r, []*model.SurveyItem{item})
	r.Answer["q1"] = &model.AnswerValue{Items: []string{"optionB"}}
	s.Score(r, []*model.SurveyItem{item})

	assert.Equal(t, 1, r.QuizCorrect)
	assert.Equal(t, 1, r.QuizTotal)
	assert.Equal(t, 3, r.ScorePoints)
	assert.True(t, r.Scored.Has("q1"))
}

func TestScoreDisabled(t *testing.T) {
	r := &model.Response{Answer: map[string]*model.AnswerValue{"q1": {Items: []string{"optionA"}}}}
	New(&model.Survey{Type: model.SurveyTypeSurvey}).Score(r, []*model.SurveyItem{quizItem()})
	assert.Zero(t, r.QuizCorrect)
	assert.Empty(t, r.Scored)
}

func TestCorrect(t *testing.T) {
	multi := &model.Question{Type: model.QuestionTypeCheckboxes, Options: []model.Option{
		{ID: "a", Score: 5}, {ID: "b", Score: 1}, {ID: "c", Score: 4},
	}, Quiz: &model.QuizConfig{TopN: 2}}
	scale := &model.Question{Type: model.QuestionTypeLinearScale, Quiz: &model.QuizConfig{From: intPtr(7), To: intPtr(9)}}
	text := &model.Question{Type: model.QuestionTypeText, Quiz: &model.QuizConfig{Answers: []string{"Bern"}}}

	tests := []struct {
		name        string
		q           *model.Question
		v           *model.AnswerValue
		wantCorrect bool
		wantOK      bool
	}{
		{"top n exact", multi, &model.AnswerValue{Items: []string{"c", "a"}}, true, true},
		{"top n wrong", multi, &model.AnswerValue{Items: []string{"a", "b"}}, false, true},
		{"range inside", scale, &model.AnswerValue{Number: intPtr(8)}, true, true},
		{"range outside", scale, &model.AnswerValue{Number: intPtr(3)}, false, true},
		{"text case insensitive", text, &model.AnswerValue{Value: "bern"}, true, true},
		{"no rule", &model.Question{Type: model.QuestionTypeText}, &model.AnswerValue{Value: "x"}, false, false},
		{"matrix not graded", &model.Question{Type: model.QuestionTypeCheckboxMatrix}, &model.AnswerValue{}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			correct, ok := Correct(tt.q, tt.v)
			assert.Equal(t, tt.wantCorrect, correct)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestPoints(t *testing.T) {
	q := &model.Question{
		Type:      model.QuestionTypeCheckboxes,
		MaxSelect: 2,
		MaxScore:  8,
		Options:   []model.Option{{ID: "a", Score: 5}, {ID: "b", Score: 1}, {ID: "c", Score: 4}},
	}
	assert.Equal(t, 8, Points(q, &model.AnswerValue{Items: []string{"a", "b", "c"}}))
	assert.Equal(t, 6, Points(q, &model.AnswerValue{Items: []string{"a", "b"}}))

	matrix := &model.Question{Type: model.QuestionTypeMultipleChoiceMatrix, Columns: []model.Option{{ID: "c1", Score: 2}}}
	assert.Equal(t, 4, Points(matrix, &model.AnswerValue{Crossings: []model.Crossing{{Row: "r1", Column: "c1"}, {Row: "r2", Column: "c1"}}}))
}
