// Package answer turns raw submissions into canonical answer values and diffs them.
package answer

import (
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"unicode/utf8"

	"surveyengine/internal/model"
)

// Message keys of field errors
const (
	MsgRequired          = "required"
	MsgMinSelect         = "minSelect"
	MsgMaxSelect         = "maxSelect"
	MsgMaxLength         = "maxLength"
	MsgInvalidNumber     = "invalidNumber"
	MsgInvalidEmail      = "invalidEmail"
	MsgOutOfRange        = "outOfRange"
	MsgUnknownOption     = "unknownOption"
	MsgInvalidValue      = "invalidValue"
	MsgMatrixRowRequired = "matrixRowRequired"
	MsgOneColumnPerRow   = "oneColumnPerRow"
	MsgUnsupportedType   = "unsupportedType"
	MsgNotInCurrentStep  = "notInCurrentStep"
)

// FieldError is a user-correctable problem with one item's answer
type FieldError struct {
	Key    string
	Params map[string]any
}

func (e *FieldError) Error() string {
	if len(e.Params) == 0 {
		return e.Key
	}
	return fmt.Sprintf("%s %v", e.Key, e.Params)
}

func fieldErr(key string, kv ...any) *FieldError {
	e := &FieldError{Key: key}
	if len(kv) > 0 {
		e.Params = make(map[string]any, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			e.Params[kv[i].(string)] = kv[i+1]
		}
	}
	return e
}

// Normalize converts raw into the canonical value for q. An empty submission yields nil.
func Normalize(q *model.Question, raw model.RawAnswer) (*model.AnswerValue, error) {
	kind, ok := model.KindOf(q.Type)
	if !ok {
		return nil, fieldErr(MsgUnsupportedType, "type", string(q.Type))
	}
	res := model.Visit[normalized](kind, normalizer{q: q, raw: raw})
	if res.err != nil {
		return nil, res.err
	}
	if res.value.IsEmpty() {
		return nil, nil
	}
	return res.value, nil
}

// Required checks the merged value of a required question
func Required(q *model.Question, v *model.AnswerValue) error {
	if !q.Required {
		return nil
	}
	if v.IsEmpty() {
		return fieldErr(MsgRequired)
	}
	if kind, _ := model.KindOf(q.Type); kind != nil {
		if _, isMatrix := kind.(model.MatrixKind); isMatrix {
			for _, r := range q.Rows {
				if !hasRow(v.Crossings, r.ID) {
					return fieldErr(MsgMatrixRowRequired, "row", r.ID)
				}
			}
		}
	}
	return nil
}

type normalized struct {
	value *model.AnswerValue
	err   *FieldError
}

type normalizer struct {
	q   *model.Question
	raw model.RawAnswer
}

func (n normalizer) SingleSelect(model.SingleSelectKind) normalized {
	v, err := n.selection()
	if err != nil {
		return normalized{err: err}
	}
	if len(v.Items) > 1 || (len(v.Items) == 1 && v.CustomAnswer != "") {
		return normalized{err: fieldErr(MsgMaxSelect, "max", 1)}
	}
	return normalized{value: v}
}

func (n normalizer) MultiSelect(model.MultiSelectKind) normalized {
	v, err := n.selection()
	if err != nil {
		return normalized{err: err}
	}
	count := len(v.Items)
	if v.CustomAnswer != "" {
		count++
	}
	if count > 0 && n.q.MinSelect > 0 && count < n.q.MinSelect {
		return normalized{err: fieldErr(MsgMinSelect, "min", n.q.MinSelect)}
	}
	if n.q.MaxSelect > 0 && count > n.q.MaxSelect {
		return normalized{err: fieldErr(MsgMaxSelect, "max", n.q.MaxSelect)}
	}
	return normalized{value: v}
}

func (n normalizer) Matrix(k model.MatrixKind) normalized {
	v := &model.AnswerValue{}
	seen := make(map[model.Crossing]bool, len(n.raw.Crossings))
	perRow := make(map[string]int)
	for _, c := range n.raw.Crossings {
		if !n.q.HasRow(c.Row) || n.q.ColumnByID(c.Column) == nil {
			return normalized{err: fieldErr(MsgUnknownOption, "row", c.Row, "column", c.Column)}
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		perRow[c.Row]++
		if !k.Multiple && perRow[c.Row] > 1 {
			return normalized{err: fieldErr(MsgOneColumnPerRow, "row", c.Row)}
		}
		v.Crossings = append(v.Crossings, c)
	}
	return normalized{value: v}
}

func (n normalizer) Numeric(model.NumericKind) normalized {
	v := &model.AnswerValue{}
	if custom := strings.TrimSpace(n.raw.CustomAnswer); custom != "" {
		if !n.q.CustomAnswer {
			return normalized{err: fieldErr(MsgUnknownOption, "option", model.CustomAnswerKey)}
		}
		v.CustomAnswer = custom
	}
	s := strings.TrimSpace(n.raw.Value)
	if s == "" {
		return normalized{value: v}
	}
	num, err := strconv.Atoi(s)
	if err != nil {
		return normalized{err: fieldErr(MsgInvalidNumber)}
	}
	if n.q.To > n.q.From && (num < n.q.From || num > n.q.To) {
		return normalized{err: fieldErr(MsgOutOfRange, "from", n.q.From, "to", n.q.To)}
	}
	v.Number = &num
	return normalized{value: v}
}

func (n normalizer) Text(model.TextKind) normalized {
	s := strings.TrimSpace(n.raw.Value)
	if s == "" {
		return normalized{value: &model.AnswerValue{}}
	}
	if n.q.MaxLength > 0 && utf8.RuneCountInString(s) > n.q.MaxLength {
		return normalized{err: fieldErr(MsgMaxLength, "max", n.q.MaxLength)}
	}
	switch n.q.Input {
	case model.InputTypeEmail:
		addr, err := mail.ParseAddress(s)
		if err != nil || addr.Address != s {
			return normalized{err: fieldErr(MsgInvalidEmail)}
		}
	case model.InputTypeNumber:
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return normalized{err: fieldErr(MsgInvalidNumber)}
		}
	}
	return normalized{value: &model.AnswerValue{Value: s}}
}

func (n normalizer) Thumbs(model.ThumbsKind) normalized {
	s := strings.ToLower(strings.TrimSpace(n.raw.Value))
	switch s {
	case "", model.ThumbsYes, model.ThumbsNo:
		return normalized{value: &model.AnswerValue{Value: s}}
	}
	return normalized{err: fieldErr(MsgInvalidValue)}
}

func (n normalizer) Country(model.CountryKind) normalized {
	s := strings.ToUpper(strings.TrimSpace(n.raw.Value))
	if s == "" && len(n.raw.Items) == 1 {
		s = strings.ToUpper(strings.TrimSpace(n.raw.Items[0]))
	}
	return normalized{value: &model.AnswerValue{Value: s}}
}

// selection de-duplicates and validates option ids plus the optional custom answer
func (n normalizer) selection() (*model.AnswerValue, *FieldError) {
	v := &model.AnswerValue{}
	seen := make(map[string]bool, len(n.raw.Items))
	for _, id := range n.raw.Items {
		if seen[id] {
			continue
		}
		seen[id] = true
		if n.q.OptionByID(id) == nil {
			return nil, fieldErr(MsgUnknownOption, "option", id)
		}
		v.Items = append(v.Items, id)
	}
	if custom := strings.TrimSpace(n.raw.CustomAnswer); custom != "" {
		if !n.q.CustomAnswer {
			return nil, fieldErr(MsgUnknownOption, "option", model.CustomAnswerKey)
		}
		v.CustomAnswer = custom
	}
	return v, nil
}

func hasRow(crossings []model.Crossing, row string) bool {
	for _, c := range crossings {
		if c.Row == row {
			return true
		}
	}
	return false
}
