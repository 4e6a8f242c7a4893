// Package condition evaluates flow and display conditions against normalized answers.
package condition

import (
	"regexp"
	"strings"

	"surveyengine/internal/model"
)

// Evaluate reports whether value satisfies cond. Unsupported combinations are false.
func Evaluate(cond model.Condition, value *model.AnswerValue) bool {
	switch cond.Action {
	case model.CondEmpty:
		return value.IsEmpty()
	case model.CondNotEmpty:
		return !value.IsEmpty()
	}

	kind, ok := model.KindOf(cond.QuestionType)
	if !ok {
		return false
	}
	if value == nil {
		value = &model.AnswerValue{}
	}
	return model.Visit[bool](kind, evaluator{cond: cond, value: value})
}

// Match combines conditions with method. Each condition reads the answer of its item,
// or of owner when it names none. An empty condition list never matches.
func Match(method model.LogicMethod, conds []model.Condition, owner string, answers map[string]*model.AnswerValue) bool {
	if len(conds) == 0 {
		return false
	}
	for _, c := range conds {
		item := c.Item
		if item == "" {
			item = owner
		}
		ok := Evaluate(c, answers[item])
		switch method {
		case model.LogicAny:
			if ok {
				return true
			}
		case model.LogicAll, "":
			if !ok {
				return false
			}
		default:
			return false
		}
	}
	return method != model.LogicAny
}

// Visible applies an item's display logic. The first matching logic decides; when none
// matches the item is shown unless it declares a "show" logic.
func Visible(item *model.SurveyItem, answers map[string]*model.AnswerValue) bool {
	visible := true
	for _, l := range item.DisplayLogic {
		if Match(l.Method, l.Conditions, item.ID, answers) {
			return l.Action != model.DisplayHide
		}
		if l.Action == model.DisplayShow {
			visible = false
		}
	}
	return visible
}

type evaluator struct {
	cond  model.Condition
	value *model.AnswerValue
}

func (e evaluator) SingleSelect(model.SingleSelectKind) bool {
	return selection(e.cond.Action, e.cond.Items, selectedIDs(e.value))
}

func (e evaluator) MultiSelect(model.MultiSelectKind) bool {
	ids := selectedIDs(e.value)
	switch e.cond.Action {
	case model.CondSelected, model.CondNotSelected:
		return selection(e.cond.Action, e.cond.Items, ids)
	}
	return compare(e.cond.Action, len(ids), e.cond.Count)
}

func (e evaluator) Matrix(model.MatrixKind) bool {
	switch e.cond.Action {
	case model.CondSelected, model.CondNotSelected:
		operand := e.cond.Items
		if e.cond.Row != "" && e.cond.Column != "" {
			operand = []string{e.cond.Row + "#" + e.cond.Column}
		}
		cells := make([]string, 0, len(e.value.Crossings))
		for _, c := range e.value.Crossings {
			cells = append(cells, c.Row+"#"+c.Column)
		}
		return selection(e.cond.Action, operand, cells)
	}

	n := 0
	for _, c := range e.value.Crossings {
		if e.cond.Row != "" && c.Row != e.cond.Row {
			continue
		}
		if e.cond.Column != "" && c.Column != e.cond.Column {
			continue
		}
		n++
	}
	return compare(e.cond.Action, n, e.cond.Count)
}

func (e evaluator) Numeric(model.NumericKind) bool {
	if e.value.Number == nil {
		return false
	}
	return compare(e.cond.Action, *e.value.Number, e.cond.Count)
}

func (e evaluator) Text(model.TextKind) bool {
	v, op := e.value.Value, e.cond.Value
	switch e.cond.Action {
	case model.CondEqual:
		return v == op
	case model.CondNotEqual:
		return v != op
	case model.CondContains:
		return strings.Contains(v, op)
	case model.CondNotContains:
		return !strings.Contains(v, op)
	case model.CondBeginsWith:
		return strings.HasPrefix(v, op)
	case model.CondEndsWith:
		return strings.HasSuffix(v, op)
	case model.CondMatchRegExp:
		re, err := regexp.Compile(op)
		if err != nil {
			return false
		}
		return re.MatchString(v)
	}
	return false
}

func (e evaluator) Thumbs(model.ThumbsKind) bool {
	// answers are stored lower-cased, operands may not be
	op := strings.ToLower(strings.TrimSpace(e.cond.Value))
	switch e.cond.Action {
	case model.CondEqual:
		return e.value.Value == op
	case model.CondNotEqual:
		return e.value.Value != op
	}
	return false
}

func (e evaluator) Country(model.CountryKind) bool {
	var ids []string
	if e.value.Value != "" {
		ids = []string{e.value.Value}
	}
	operand := make([]string, 0, len(e.cond.Items))
	for _, id := range e.cond.Items {
		operand = append(operand, strings.ToUpper(strings.TrimSpace(id)))
	}
	return selection(e.cond.Action, operand, ids)
}

// selectedIDs treats supplied custom text as one more selected id
func selectedIDs(v *model.AnswerValue) []string {
	if v.CustomAnswer == "" {
		return v.Items
	}
	ids := make([]string, 0, len(v.Items)+1)
	ids = append(ids, v.Items...)
	return append(ids, model.CustomAnswerKey)
}

func selection(action model.ConditionAction, operand, selected []string) bool {
	if len(operand) == 0 {
		return false
	}
	subset := true
	for _, id := range operand {
		if !contains(selected, id) {
			subset = false
			break
		}
	}
	switch action {
	case model.CondSelected:
		return subset
	case model.CondNotSelected:
		return !subset
	}
	return false
}

func compare(action model.ConditionAction, actual, operand int) bool {
	switch action {
	case model.CondGreater:
		return actual > operand
	case model.CondGreaterEqual:
		return actual >= operand
	case model.CondLess:
		return actual < operand
	case model.CondLessEqual:
		return actual <= operand
	case model.CondEqual:
		return actual == operand
	case model.CondNotEqual:
		return actual != operand
	}
	return false
}

func contains(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}
