package navigation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveyengine/internal/answer"
	"surveyengine/internal/model"
)

func choiceItem(id string, flow ...model.FlowLogic) model.SurveyItem {
	return model.SurveyItem{
		ID:   id,
		Type: model.ItemTypeQuestion,
		Question: &model.Question{
			ID:      "question-" + id,
			Type:    model.QuestionTypeMultipleChoice,
			Options: []model.Option{{ID: "x"}, {ID: "y"}},
		},
		FlowLogic: flow,
	}
}

func picked(option string) model.Condition {
	return model.Condition{QuestionType: model.QuestionTypeMultipleChoice, Action: model.CondSelected, Items: []string{option}}
}

func toSection(id, option, section string) model.FlowLogic {
	return model.FlowLogic{ID: id, Method: model.LogicAll, Action: model.FlowToSection, Section: section, Conditions: []model.Condition{picked(option)}}
}

func endSurvey(id, option, endPage string) model.FlowLogic {
	return model.FlowLogic{ID: id, Method: model.LogicAll, Action: model.FlowEndSurvey, EndPage: endPage, Conditions: []model.Condition{picked(option)}}
}

func selection(option string) *model.AnswerValue {
	return &model.AnswerValue{Items: []string{option}}
}

// three sections; q1 jumps to s3 on y
func branchingSurvey() *model.Survey {
	return &model.Survey{
		ID:            "survey",
		Type:          model.SurveyTypeSurvey,
		AllowReAnswer: true,
		Sections: []model.Section{
			{ID: "s1", Items: []model.SurveyItem{choiceItem("q1", toSection("jump", "y", "s3"))}},
			{ID: "s2", Items: []model.SurveyItem{
				choiceItem("q2"),
				{ID: "intro", Type: model.ItemTypeContent, Text: "hello"},
				choiceItem("q3"),
			}},
			{ID: "s3", Items: []model.SurveyItem{choiceItem("q4")}},
		},
	}
}

func ids(items []*model.SurveyItem) []string {
	out := make([]string, 0, len(items))
	for _, i := range items {
		out = append(out, i.ID)
	}
	return out
}

func TestSubmitTwoSectionsNoSkip(t *testing.T) {
	survey := &model.Survey{
		ID:   "survey",
		Type: model.SurveyTypeSurvey,
		Sections: []model.Section{
			{ID: "s1", Items: []model.SurveyItem{choiceItem("q1", toSection("go", "x", "s2"))}},
			{ID: "s2", Items: []model.SurveyItem{choiceItem("q2")}},
		},
	}
	m := New(survey)
	r := model.NewResponse(survey, "tok", model.Dimensions{})

	res, err := m.Submit(r, map[string]*model.AnswerValue{"q1": selection("x")})
	require.NoError(t, err)
	assert.Equal(t, 1, r.Step)
	assert.Empty(t, res.SkippedByFlow)
	assert.Equal(t, ActionToSection, res.Action.Kind)
	assert.Equal(t, model.StepStack{0}, r.StepHistory)
	assert.Equal(t, []int{0, 1}, r.Flow)
}

func TestSubmitBranchSkipsMiddleSection(t *testing.T) {
	survey := branchingSurvey()
	m := New(survey)
	r := model.NewResponse(survey, "tok", model.Dimensions{})

	res, err := m.Submit(r, map[string]*model.AnswerValue{"q1": selection("y")})
	require.NoError(t, err)
	assert.Equal(t, 2, r.Step)
	assert.Equal(t, []string{"q2", "q3"}, ids(res.SkippedByFlow))
	assert.Equal(t, "jump", res.Action.Logic)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, answer.Answered, res.Changes[0].Transition)
}

func TestFlowPrecedence(t *testing.T) {
	survey := branchingSurvey()
	survey.Sections[0].Items[0].FlowLogic = []model.FlowLogic{
		toSection("first", "y", "s3"),
		endSurvey("second", "y", "bye"),
	}
	m := New(survey)
	r := model.NewResponse(survey, "tok", model.Dimensions{})

	res, err := m.Submit(r, map[string]*model.AnswerValue{"q1": selection("y")})
	require.NoError(t, err)
	assert.Equal(t, "first", res.Action.Logic)
	assert.False(t, r.Completed)
	assert.Empty(t, r.EndPage)
}

func TestFlowToUnknownSectionFallsThrough(t *testing.T) {
	survey := branchingSurvey()
	survey.Sections[0].Items[0].FlowLogic = []model.FlowLogic{toSection("broken", "y", "missing")}
	m := New(survey)
	r := model.NewResponse(survey, "tok", model.Dimensions{})

	res, err := m.Submit(r, map[string]*model.AnswerValue{"q1": selection("y")})
	require.NoError(t, err)
	assert.Equal(t, 1, r.Step)
	assert.Empty(t, res.Action.Logic)
}

func TestEndSurveyFromFlow(t *testing.T) {
	survey := branchingSurvey()
	survey.Sections[0].Items[0].FlowLogic = []model.FlowLogic{endSurvey("stop", "x", "thanks")}
	m := New(survey)
	r := model.NewResponse(survey, "tok", model.Dimensions{})

	res, err := m.Submit(r, map[string]*model.AnswerValue{"q1": selection("x")})
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.True(t, r.Completed)
	assert.Equal(t, "thanks", r.EndPage)
	assert.Equal(t, []string{"q2", "q3", "q4"}, ids(res.SkippedByFlow))

	_, err = m.Submit(r, nil)
	assert.ErrorIs(t, err, ErrCompleted)
}

func TestDefaultEndAfterLastSection(t *testing.T) {
	survey := branchingSurvey()
	m := New(survey)
	r := model.NewResponse(survey, "tok", model.Dimensions{})

	for i := 0; i < 3; i++ {
		_, err := m.Submit(r, nil)
		require.NoError(t, err)
	}
	assert.True(t, r.Completed)
	assert.Equal(t, 2, r.Step)
	assert.Equal(t, model.StepStack{0, 1, 2}, r.StepHistory)
}

func TestItemOutsideStepRejected(t *testing.T) {
	survey := branchingSurvey()
	m := New(survey)
	r := model.NewResponse(survey, "tok", model.Dimensions{})

	_, err := m.Submit(r, map[string]*model.AnswerValue{"q4": selection("x")})
	var notInStep *ItemNotInStepError
	require.True(t, errors.As(err, &notInStep))
	assert.Equal(t, "q4", notInStep.Item)
	assert.Equal(t, 0, r.Step)
	assert.Empty(t, r.Answer)
}

func TestStepBackSymmetry(t *testing.T) {
	survey := branchingSurvey()
	m := New(survey)
	r := model.NewResponse(survey, "tok", model.Dimensions{})

	_, err := m.Submit(r, map[string]*model.AnswerValue{"q1": selection("x")})
	require.NoError(t, err)
	beforeStep, beforeHistory := r.Step, append(model.StepStack(nil), r.StepHistory...)

	_, err = m.Submit(r, map[string]*model.AnswerValue{"q2": selection("y")})
	require.NoError(t, err)
	require.NoError(t, m.StepBack(r))

	assert.Equal(t, beforeStep, r.Step)
	assert.Equal(t, beforeHistory, r.StepHistory)
	// answers are not rolled back
	assert.Equal(t, selection("y"), r.Answer["q2"])
}

func TestStepBackRejected(t *testing.T) {
	survey := branchingSurvey()
	m := New(survey)
	r := model.NewResponse(survey, "tok", model.Dimensions{})

	assert.ErrorIs(t, m.StepBack(r), ErrCannotChangeStep)

	survey.AllowReAnswer = false
	_, err := m.Submit(r, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, m.StepBack(r), ErrCannotChangeStep)
	assert.Equal(t, 1, r.Step)
}

func TestRestart(t *testing.T) {
	survey := branchingSurvey()
	m := New(survey)
	r := model.NewResponse(survey, "tok", model.Dimensions{})

	assert.ErrorIs(t, m.Restart(r), ErrCannotChangeStep)

	_, err := m.Submit(r, map[string]*model.AnswerValue{"q1": selection("y")})
	require.NoError(t, err)
	_, err = m.Submit(r, nil)
	require.NoError(t, err)
	require.True(t, r.Completed)

	require.NoError(t, m.Restart(r))
	assert.False(t, r.Completed)
	assert.Equal(t, 0, r.Step)
	assert.Empty(t, r.StepHistory)
	assert.Equal(t, selection("y"), r.Answer["q1"])

	survey.Type = model.SurveyTypeQuiz
	_, err = m.Submit(r, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, m.Restart(r), ErrCannotChangeStep)
}

func TestSkippedAndSkippedByFlowDisjoint(t *testing.T) {
	survey := branchingSurvey()
	m := New(survey)
	r := model.NewResponse(survey, "tok", model.Dimensions{})

	_, err := m.Submit(r, map[string]*model.AnswerValue{"q1": selection("x")})
	require.NoError(t, err)
	res, err := m.Submit(r, map[string]*model.AnswerValue{"q3": selection("x")})
	require.NoError(t, err)
	require.Len(t, res.Changes, 2)
	assert.Equal(t, answer.Skipped, res.Changes[0].Transition)
	assert.True(t, r.Skipped.Has("q2"))

	require.NoError(t, m.StepBack(r))
	require.NoError(t, m.StepBack(r))
	res, err = m.Submit(r, map[string]*model.AnswerValue{"q1": selection("y")})
	require.NoError(t, err)
	assert.Equal(t, answer.Corrected, res.Changes[0].Transition)
	// q2 was reached and skipped, q3 was answered: neither counts as skipped by flow
	assert.Empty(t, res.SkippedByFlow)
}

func TestFlowSkippedItemReachedLater(t *testing.T) {
	survey := branchingSurvey()
	m := New(survey)
	r := model.NewResponse(survey, "tok", model.Dimensions{})

	res, err := m.Submit(r, map[string]*model.AnswerValue{"q1": selection("y")})
	require.NoError(t, err)
	assert.Equal(t, []string{"q2", "q3"}, ids(res.SkippedByFlow))
	assert.Equal(t, model.ItemSet{"q2", "q3"}, r.SkippedByFlow)

	require.NoError(t, m.StepBack(r))
	res, err = m.Submit(r, map[string]*model.AnswerValue{"q1": selection("x")})
	require.NoError(t, err)
	assert.Empty(t, res.SkippedByFlow)
	require.Equal(t, 1, r.Step)

	res, err = m.Submit(r, map[string]*model.AnswerValue{"q3": selection("x")})
	require.NoError(t, err)
	require.Len(t, res.Changes, 2)
	assert.Equal(t, answer.Skipped, res.Changes[0].Transition)
	assert.True(t, res.Changes[0].WasSkippedByFlow)
	assert.Equal(t, answer.Answered, res.Changes[1].Transition)
	assert.True(t, res.Changes[1].WasSkippedByFlow)
	assert.Empty(t, r.SkippedByFlow)
	assert.True(t, r.Skipped.Has("q2"))
}

func TestRepeatedJumpCountsOnce(t *testing.T) {
	survey := branchingSurvey()
	m := New(survey)
	r := model.NewResponse(survey, "tok", model.Dimensions{})

	counted := 0
	for i := 0; i < 3; i++ {
		res, err := m.Submit(r, map[string]*model.AnswerValue{"q1": selection("y")})
		require.NoError(t, err)
		counted += len(res.SkippedByFlow)
		require.NoError(t, m.StepBack(r))
	}
	assert.Equal(t, 2, counted)

	// a new pass takes the same jump without counting it again
	_, err := m.Submit(r, nil)
	require.NoError(t, err)
	_, err = m.Submit(r, nil)
	require.NoError(t, err)
	require.True(t, r.Completed)
	require.NoError(t, m.Restart(r))

	res, err := m.Submit(r, nil)
	require.NoError(t, err)
	assert.Equal(t, ActionToSection, res.Action.Kind)
	assert.Empty(t, res.SkippedByFlow)
}

func TestRetraction(t *testing.T) {
	survey := branchingSurvey()
	m := New(survey)
	r := model.NewResponse(survey, "tok", model.Dimensions{})

	_, err := m.Submit(r, map[string]*model.AnswerValue{"q1": selection("x")})
	require.NoError(t, err)
	require.NoError(t, m.StepBack(r))

	res, err := m.Submit(r, map[string]*model.AnswerValue{"q1": nil})
	require.NoError(t, err)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, answer.Retracted, res.Changes[0].Transition)
	assert.NotContains(t, r.Answer, "q1")
	assert.True(t, r.Skipped.Has("q1"))
}

func TestDisplayLogicFiltersItems(t *testing.T) {
	survey := branchingSurvey()
	survey.Sections[1].Items[2].DisplayLogic = []model.DisplayLogic{{
		Action: model.DisplayShow, Method: model.LogicAll,
		Conditions: []model.Condition{{Item: "q1", QuestionType: model.QuestionTypeMultipleChoice, Action: model.CondSelected, Items: []string{"y"}}},
	}}
	m := New(survey)
	r := model.NewResponse(survey, "tok", model.Dimensions{})

	_, err := m.Submit(r, map[string]*model.AnswerValue{"q1": selection("x")})
	require.NoError(t, err)
	first := ids(m.VisibleItems(r))
	assert.Equal(t, []string{"q2", "intro"}, first)
	assert.Equal(t, first, ids(m.VisibleItems(r)))

	res, err := m.Submit(r, nil)
	require.NoError(t, err)
	// the hidden q3 was never reached
	require.Len(t, res.Changes, 1)
	assert.Equal(t, "q2", res.Changes[0].Item.ID)
	assert.False(t, r.Skipped.Has("q3"))
}

func TestSingleQuestionMode(t *testing.T) {
	survey := branchingSurvey()
	survey.DisplaySingleQuestion = true
	m := New(survey)
	r := model.NewResponse(survey, "tok", model.Dimensions{})

	assert.Equal(t, []string{"q1"}, ids(m.CurrentItems(r)))

	_, err := m.Submit(r, map[string]*model.AnswerValue{"q1": selection("x")})
	require.NoError(t, err)
	assert.Equal(t, 1, r.Step)
	assert.Equal(t, []string{"q2"}, ids(m.CurrentItems(r)))

	_, err = m.Submit(r, map[string]*model.AnswerValue{"q2": selection("x")})
	require.NoError(t, err)
	assert.Equal(t, []string{"intro"}, ids(m.CurrentItems(r)))
	assert.Equal(t, model.StepStack{0, 1}, r.StepHistory)
	assert.Equal(t, model.ItemStack{"q2", "intro"}, r.QuestionStepHistory)
	assert.LessOrEqual(t, len(r.QuestionStepHistory), len(r.StepHistory))

	require.NoError(t, m.StepBack(r))
	assert.Equal(t, []string{"q2"}, ids(m.CurrentItems(r)))
	require.NoError(t, m.StepBack(r))
	assert.Equal(t, 0, r.Step)
	assert.Equal(t, []string{"q1"}, ids(m.CurrentItems(r)))
	assert.Empty(t, r.QuestionStepHistory)
}

func TestSingleQuestionModeFlowJump(t *testing.T) {
	survey := branchingSurvey()
	survey.DisplaySingleQuestion = true
	m := New(survey)
	r := model.NewResponse(survey, "tok", model.Dimensions{})

	res, err := m.Submit(r, map[string]*model.AnswerValue{"q1": selection("y")})
	require.NoError(t, err)
	assert.Equal(t, 2, r.Step)
	assert.Equal(t, "q4", res.Action.Item)
	assert.Equal(t, []string{"q4"}, ids(m.CurrentItems(r)))
	assert.Equal(t, []string{"q2", "q3"}, ids(res.SkippedByFlow))
}

func TestNavigationDeterminism(t *testing.T) {
	answers := []map[string]*model.AnswerValue{
		{"q1": selection("x")},
		{"q2": selection("y"), "q3": selection("x")},
		{"q4": selection("x")},
	}
	replay := func() *model.Response {
		survey := branchingSurvey()
		m := New(survey)
		r := model.NewResponse(survey, "tok", model.Dimensions{})
		for _, a := range answers {
			_, err := m.Submit(r, a)
			require.NoError(t, err)
		}
		return r
	}

	a, b := replay(), replay()
	assert.Equal(t, a.Step, b.Step)
	assert.Equal(t, a.StepHistory, b.StepHistory)
	assert.Equal(t, a.Completed, b.Completed)
	assert.True(t, a.Completed)
}
