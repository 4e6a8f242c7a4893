package answer

import (
	"sort"
	"strconv"

	"surveyengine/internal/model"
)

// ContributionKeys lists the statistic keys a value contributes to
func ContributionKeys(t model.QuestionType, v *model.AnswerValue) []string {
	if v.IsEmpty() {
		return nil
	}
	kind, ok := model.KindOf(t)
	if !ok {
		return nil
	}
	return model.Visit[[]string](kind, keyer{v: v})
}

type keyer struct{ v *model.AnswerValue }

func (k keyer) SingleSelect(model.SingleSelectKind) []string { return k.selection() }
func (k keyer) MultiSelect(model.MultiSelectKind) []string   { return k.selection() }

func (k keyer) Matrix(model.MatrixKind) []string {
	keys := make([]string, 0, len(k.v.Crossings))
	for _, c := range k.v.Crossings {
		keys = append(keys, c.Row+"#"+c.Column)
	}
	return keys
}

func (k keyer) Numeric(model.NumericKind) []string {
	var keys []string
	if k.v.Number != nil {
		keys = append(keys, strconv.Itoa(*k.v.Number))
	}
	if k.v.CustomAnswer != "" {
		keys = append(keys, model.CustomAnswerKey)
	}
	return keys
}

func (k keyer) Text(model.TextKind) []string       { return k.scalar() }
func (k keyer) Thumbs(model.ThumbsKind) []string   { return k.scalar() }
func (k keyer) Country(model.CountryKind) []string { return k.scalar() }

func (k keyer) scalar() []string {
	if k.v.Value == "" {
		return nil
	}
	return []string{k.v.Value}
}

func (k keyer) selection() []string {
	keys := append([]string(nil), k.v.Items...)
	if k.v.CustomAnswer != "" {
		keys = append(keys, model.CustomAnswerKey)
	}
	return keys
}

// Delta lists contribution keys to add and to remove
type Delta struct {
	Increment []string
	Decrement []string
}

// IsZero reports whether the delta changes nothing
func (d Delta) IsZero() bool {
	return len(d.Increment) == 0 && len(d.Decrement) == 0
}

// Diff is the symmetric difference of contribution keys. Scalar valued kinds swap all
// keys whenever anything changed.
func Diff(t model.QuestionType, prev, next *model.AnswerValue) Delta {
	oldKeys := sortedSet(ContributionKeys(t, prev))
	newKeys := sortedSet(ContributionKeys(t, next))

	if isScalar(t) {
		if equalKeys(oldKeys, newKeys) {
			return Delta{}
		}
		return Delta{Increment: newKeys, Decrement: oldKeys}
	}

	var d Delta
	i, j := 0, 0
	for i < len(oldKeys) || j < len(newKeys) {
		switch {
		case j == len(newKeys) || (i < len(oldKeys) && oldKeys[i] < newKeys[j]):
			d.Decrement = append(d.Decrement, oldKeys[i])
			i++
		case i == len(oldKeys) || newKeys[j] < oldKeys[i]:
			d.Increment = append(d.Increment, newKeys[j])
			j++
		default:
			i++
			j++
		}
	}
	return d
}

// Transition is the statistical state change of one item relative to its persisted value
type Transition int

const (
	Unchanged Transition = iota
	Answered
	Skipped
	Corrected
	Retracted
)

func (t Transition) String() string {
	switch t {
	case Answered:
		return "answered"
	case Skipped:
		return "skipped"
	case Corrected:
		return "corrected"
	case Retracted:
		return "retracted"
	}
	return "unchanged"
}

// Classify compares a persisted value with the merged one. wasSkipped reports whether the
// item is already in the response's skipped set.
func Classify(t model.QuestionType, prev, next *model.AnswerValue, wasSkipped bool) Transition {
	switch {
	case prev.IsEmpty() && next.IsEmpty():
		if wasSkipped {
			return Unchanged
		}
		return Skipped
	case prev.IsEmpty():
		return Answered
	case next.IsEmpty():
		return Retracted
	}
	if Diff(t, prev, next).IsZero() && prev.Value == next.Value && prev.CustomAnswer == next.CustomAnswer {
		return Unchanged
	}
	return Corrected
}

func isScalar(t model.QuestionType) bool {
	kind, ok := model.KindOf(t)
	if !ok {
		return false
	}
	switch kind.(type) {
	case model.NumericKind, model.TextKind, model.ThumbsKind, model.CountryKind:
		return true
	}
	return false
}

func sortedSet(keys []string) []string {
	if len(keys) == 0 {
		return nil
	}
	out := append([]string(nil), keys...)
	sort.Strings(out)
	uniq := out[:1]
	for _, k := range out[1:] {
		if k != uniq[len(uniq)-1] {
			uniq = append(uniq, k)
		}
	}
	return uniq
}

func equalKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
