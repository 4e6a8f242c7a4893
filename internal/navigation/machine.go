// Package navigation moves a response through the sections and items of a survey.
package navigation

import (
	"errors"
	"fmt"

	"surveyengine/internal/answer"
	"surveyengine/internal/condition"
	"surveyengine/internal/model"
)

var (
	ErrCompleted        = errors.New("response already completed")
	ErrCannotChangeStep = errors.New("cannot change step")
	ErrEmptySurvey      = errors.New("survey has no visible section")
)

// ItemNotInStepError rejects an answer for an item outside the current position
type ItemNotInStepError struct {
	Item string
}

func (e *ItemNotInStepError) Error() string {
	return fmt.Sprintf("item %s is not part of the current step", e.Item)
}

// ActionKind is how a submit moved the response
type ActionKind int

const (
	ActionNextItem ActionKind = iota
	ActionNextSection
	ActionToSection
	ActionEndSurvey
)

// Action is the resolved navigation of one submit
type Action struct {
	Kind    ActionKind
	Section int
	Item    string // single-question mode target
	EndPage string
	Logic   string // id of the flow logic that fired, empty for the default action
}

// Change records how one item's persisted answer moved during a submit
type Change struct {
	Item       *model.SurveyItem
	Previous   *model.AnswerValue
	Current    *model.AnswerValue
	WasSkipped bool
	// set when an earlier jump counted the item before it was reached
	WasSkippedByFlow bool
	Transition       answer.Transition
}

// Result is everything a submit did to a response
type Result struct {
	Items         []*model.SurveyItem // the step that was submitted
	Changes       []Change
	SkippedByFlow []*model.SurveyItem
	Action        Action
	Completed     bool // true only when this submit completed the response
}

// Machine is the step state machine of one survey definition
type Machine struct {
	survey *model.Survey
}

// New creates a machine for survey
func New(survey *model.Survey) *Machine {
	return &Machine{survey: survey}
}

// CurrentItems resolves the items at the response's position, before display logic
func (m *Machine) CurrentItems(r *model.Response) []*model.SurveyItem {
	if !m.survey.ValidStep(r.Step) {
		return nil
	}
	section := &m.survey.Sections[r.Step]

	if !m.survey.DisplaySingleQuestion {
		items := make([]*model.SurveyItem, 0, len(section.Items))
		for i := range section.Items {
			items = append(items, &section.Items[i])
		}
		return items
	}

	if id, ok := r.QuestionStepHistory.Top(); ok {
		if item, si := m.survey.FindItem(id); item != nil && si == r.Step {
			return []*model.SurveyItem{item}
		}
	}
	if item := m.firstVisibleItem(r.Step, 0, r.Answer); item != nil {
		return []*model.SurveyItem{item}
	}
	return nil
}

// VisibleItems applies display logic to the current items. Nothing is persisted.
func (m *Machine) VisibleItems(r *model.Response) []*model.SurveyItem {
	var out []*model.SurveyItem
	for _, item := range m.CurrentItems(r) {
		if condition.Visible(item, r.Answer) {
			out = append(out, item)
		}
	}
	return out
}

// CanStepBack reports whether StepBack would succeed
func (m *Machine) CanStepBack(r *model.Response) bool {
	return m.survey.AllowReAnswer && !r.Completed && len(r.StepHistory) > 0
}

// CanRestart reports whether Restart would succeed
func (m *Machine) CanRestart(r *model.Response) bool {
	return m.survey.AllowReAnswer && m.survey.Type == model.SurveyTypeSurvey && len(r.StepHistory) > 0
}

// Submit merges values into the response and advances it. A key mapped to nil clears
// that item's answer; items without a key keep their persisted answer.
func (m *Machine) Submit(r *model.Response, values map[string]*model.AnswerValue) (*Result, error) {
	if r.Completed {
		return nil, ErrCompleted
	}
	if !m.survey.ValidStep(r.Step) {
		// the definition changed under the response
		if r.Step = m.survey.FirstVisibleSection(); r.Step < 0 {
			return nil, ErrEmptySurvey
		}
	}
	if r.Answer == nil {
		r.Answer = make(map[string]*model.AnswerValue)
	}

	items := m.CurrentItems(r)
	inStep := make(map[string]bool, len(items))
	for _, item := range items {
		inStep[item.ID] = true
	}
	for id := range values {
		if !inStep[id] {
			return nil, &ItemNotInStepError{Item: id}
		}
	}

	res := &Result{Items: items}

	// merge first so display logic sees the answers of this step
	previous := make(map[string]*model.AnswerValue, len(items))
	for _, item := range items {
		if !item.IsQuestion() {
			continue
		}
		previous[item.ID] = r.Answer[item.ID]
		if v, ok := values[item.ID]; ok {
			setAnswer(r, item.ID, v)
		}
	}

	var visible []*model.SurveyItem
	for _, item := range items {
		shown := condition.Visible(item, r.Answer)
		if shown {
			visible = append(visible, item)
		}
		if !item.IsQuestion() {
			continue
		}
		prev, next := previous[item.ID], r.Answer[item.ID]
		if !shown && prev.IsEmpty() && next.IsEmpty() {
			continue
		}
		wasSkipped := r.Skipped.Has(item.ID)
		tr := answer.Classify(item.Question.Type, prev, next, wasSkipped)
		switch tr {
		case answer.Unchanged:
			continue
		case answer.Answered:
			r.Skipped.Remove(item.ID)
		case answer.Skipped, answer.Retracted:
			r.Skipped.Add(item.ID)
		}
		res.Changes = append(res.Changes, Change{
			Item:             item,
			Previous:         prev,
			Current:          next,
			WasSkipped:       wasSkipped,
			WasSkippedByFlow: r.SkippedByFlow.Remove(item.ID),
			Transition:       tr,
		})
	}

	res.Action = m.resolve(r, items, visible)
	res.SkippedByFlow = m.skippedByFlow(r, res.Action)
	for _, item := range res.SkippedByFlow {
		r.SkippedByFlow.Add(item.ID)
	}
	m.apply(r, res.Action)
	res.Completed = r.Completed
	return res, nil
}

// resolve picks the first matching flow logic of the visible items, else the default action
func (m *Machine) resolve(r *model.Response, items, visible []*model.SurveyItem) Action {
	for _, item := range visible {
		for _, logic := range item.FlowLogic {
			if !condition.Match(logic.Method, logic.Conditions, item.ID, r.Answer) {
				continue
			}
			switch logic.Action {
			case model.FlowEndSurvey:
				return Action{Kind: ActionEndSurvey, Section: r.Step, EndPage: logic.EndPage, Logic: logic.ID}
			case model.FlowToSection:
				idx := m.survey.SectionIndex(logic.Section)
				if !m.survey.ValidStep(idx) {
					continue
				}
				a := Action{Kind: ActionToSection, Section: idx, Logic: logic.ID}
				if m.survey.DisplaySingleQuestion {
					section, target := m.entry(idx, r.Answer)
					if target == nil {
						return Action{Kind: ActionEndSurvey, Section: r.Step, Logic: logic.ID}
					}
					a.Section, a.Item = section, target.ID
				}
				return a
			}
		}
	}
	return m.next(r, items)
}

// next is the default action: following item, then following section, then the end
func (m *Machine) next(r *model.Response, items []*model.SurveyItem) Action {
	if m.survey.DisplaySingleQuestion {
		from := 0
		if len(items) == 1 {
			from = itemIndex(&m.survey.Sections[r.Step], items[0].ID) + 1
		}
		if item := m.firstVisibleItem(r.Step, from, r.Answer); item != nil {
			return Action{Kind: ActionNextItem, Section: r.Step, Item: item.ID}
		}
		section, item := m.entry(m.survey.NextVisibleSection(r.Step), r.Answer)
		if item == nil {
			return Action{Kind: ActionEndSurvey, Section: r.Step}
		}
		return Action{Kind: ActionNextSection, Section: section, Item: item.ID}
	}

	if idx := m.survey.NextVisibleSection(r.Step); idx >= 0 {
		return Action{Kind: ActionNextSection, Section: idx}
	}
	return Action{Kind: ActionEndSurvey, Section: r.Step}
}

// skippedByFlow lists question items of sections a flow logic jumped over. Items the
// respondent already answered, skipped, or that an earlier jump already counted are left out.
func (m *Machine) skippedByFlow(r *model.Response, a Action) []*model.SurveyItem {
	if a.Logic == "" {
		return nil
	}
	end := len(m.survey.Sections)
	if a.Kind == ActionToSection {
		end = a.Section
	}

	var out []*model.SurveyItem
	for si := r.Step + 1; si < end; si++ {
		section := &m.survey.Sections[si]
		if section.Hidden {
			continue
		}
		for ii := range section.Items {
			item := &section.Items[ii]
			if !item.IsQuestion() || r.Skipped.Has(item.ID) || r.SkippedByFlow.Has(item.ID) || !r.Answer[item.ID].IsEmpty() {
				continue
			}
			out = append(out, item)
		}
	}
	return out
}

func (m *Machine) apply(r *model.Response, a Action) {
	pre := r.Step
	if len(r.Flow) == 0 {
		r.Flow = append(r.Flow, pre)
	}

	// single-question mode keeps both stacks in lock-step
	if m.survey.DisplaySingleQuestion {
		r.StepHistory.PushAlways(pre)
	} else {
		r.StepHistory.Push(pre)
	}

	if a.Kind == ActionEndSurvey {
		r.Completed = true
		r.EndPage = a.EndPage
		return
	}

	if m.survey.DisplaySingleQuestion {
		r.QuestionStepHistory.Push(a.Item)
	}
	r.Step = a.Section
	if a.Section != pre {
		r.Flow = append(r.Flow, a.Section)
	}
}

// StepBack restores the previous position. Answers are left untouched.
func (m *Machine) StepBack(r *model.Response) error {
	if !m.survey.AllowReAnswer {
		return fmt.Errorf("%w: re-answering is disabled", ErrCannotChangeStep)
	}
	if r.Completed {
		return fmt.Errorf("%w: response is completed", ErrCannotChangeStep)
	}
	step, ok := r.StepHistory.Pop()
	if !ok {
		return fmt.Errorf("%w: no previous step", ErrCannotChangeStep)
	}
	if m.survey.DisplaySingleQuestion {
		r.QuestionStepHistory.Pop()
	}
	if !m.survey.ValidStep(step) {
		step = m.survey.FirstVisibleSection()
	}
	r.Step = step
	return nil
}

// Restart starts a new pass from the first section, keeping prior answers. The skipped
// and skipped-by-flow sets are kept too, since the counts they stand for stay in the buckets.
func (m *Machine) Restart(r *model.Response) error {
	if !m.survey.AllowReAnswer || m.survey.Type != model.SurveyTypeSurvey {
		return fmt.Errorf("%w: restarting is disabled", ErrCannotChangeStep)
	}
	if len(r.StepHistory) == 0 {
		return fmt.Errorf("%w: nothing to restart", ErrCannotChangeStep)
	}
	r.StepHistory = nil
	r.QuestionStepHistory = nil
	r.Flow = nil
	r.Step = m.survey.FirstVisibleSection()
	r.Completed = false
	r.EndPage = ""
	r.QuizCorrect, r.QuizTotal, r.ScorePoints = 0, 0, 0
	r.Scored = nil
	return nil
}

// entry finds the first visible item at or after section, scanning forward through
// non-hidden sections
func (m *Machine) entry(section int, answers map[string]*model.AnswerValue) (int, *model.SurveyItem) {
	for si := section; si >= 0 && si < len(m.survey.Sections); si = m.survey.NextVisibleSection(si) {
		if m.survey.Sections[si].Hidden {
			continue
		}
		if item := m.firstVisibleItem(si, 0, answers); item != nil {
			return si, item
		}
	}
	return -1, nil
}

func (m *Machine) firstVisibleItem(section, from int, answers map[string]*model.AnswerValue) *model.SurveyItem {
	items := m.survey.Sections[section].Items
	for i := from; i < len(items); i++ {
		if condition.Visible(&items[i], answers) {
			return &items[i]
		}
	}
	return nil
}

func itemIndex(section *model.Section, id string) int {
	for i := range section.Items {
		if section.Items[i].ID == id {
			return i
		}
	}
	return -1
}

func setAnswer(r *model.Response, id string, v *model.AnswerValue) {
	if v.IsEmpty() {
		delete(r.Answer, id)
		return
	}
	r.Answer[id] = v
}
