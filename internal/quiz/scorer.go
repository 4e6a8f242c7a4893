// Package quiz grades answers of quiz surveys and sums answer points of scored surveys.
package quiz

import (
	"sort"
	"strings"

	"surveyengine/internal/model"
)

// Scorer grades responses of one survey
type Scorer struct {
	survey *model.Survey
}

// New creates a scorer for survey
func New(survey *model.Survey) *Scorer {
	return &Scorer{survey: survey}
}

// Enabled reports whether the survey is graded or scored at all
func (s *Scorer) Enabled() bool {
	return s.survey.Type == model.SurveyTypeQuiz || s.survey.Scoring
}

// Score grades the answered items of a submitted step. Each item is graded once per pass,
// so the counters never decrease until the response restarts.
func (s *Scorer) Score(r *model.Response, items []*model.SurveyItem) {
	if !s.Enabled() {
		return
	}
	for _, item := range items {
		if !item.IsQuestion() || r.Scored.Has(item.ID) {
			continue
		}
		v := r.Answer[item.ID]
		if v.IsEmpty() {
			continue
		}

		graded := false
		if s.survey.Type == model.SurveyTypeQuiz {
			if correct, ok := Correct(item.Question, v); ok {
				r.QuizTotal++
				if correct {
					r.QuizCorrect++
				}
				graded = true
			}
		}
		if s.survey.Scoring {
			r.ScorePoints += Points(item.Question, v)
			graded = true
		}
		if graded {
			r.Scored.Add(item.ID)
		}
	}
}

// Correct grades v against the question's rule. ok is false when the question has none.
func Correct(q *model.Question, v *model.AnswerValue) (correct, ok bool) {
	kind, known := model.KindOf(q.Type)
	if !known {
		return false, false
	}
	g := model.Visit[grade](kind, grader{q: q, v: v})
	return g.correct, g.ok
}

// Points sums the scores of the selected options, keeping the best MaxSelect of them and
// capping the total at MaxScore
func Points(q *model.Question, v *model.AnswerValue) int {
	var scores []int
	for _, id := range v.Items {
		if o := q.OptionByID(id); o != nil {
			scores = append(scores, o.Score)
		}
	}
	for _, c := range v.Crossings {
		if col := q.ColumnByID(c.Column); col != nil {
			scores = append(scores, col.Score)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(scores)))
	if q.MaxSelect > 0 && len(scores) > q.MaxSelect {
		scores = scores[:q.MaxSelect]
	}

	total := 0
	for _, sc := range scores {
		total += sc
	}
	if q.MaxScore > 0 && total > q.MaxScore {
		total = q.MaxScore
	}
	if total < 0 {
		return 0
	}
	return total
}

type grade struct {
	correct bool
	ok      bool
}

type grader struct {
	q *model.Question
	v *model.AnswerValue
}

func (g grader) SingleSelect(model.SingleSelectKind) grade {
	want := correctOptions(g.q)
	if len(want) == 0 {
		return grade{}
	}
	return grade{ok: true, correct: g.v.CustomAnswer == "" && len(g.v.Items) == 1 && want[g.v.Items[0]]}
}

func (g grader) MultiSelect(model.MultiSelectKind) grade {
	want := correctOptions(g.q)
	if g.q.Quiz != nil && g.q.Quiz.TopN > 0 {
		want = topByScore(g.q.Options, g.q.Quiz.TopN)
	}
	if len(want) == 0 {
		return grade{}
	}
	if g.v.CustomAnswer != "" || len(g.v.Items) != len(want) {
		return grade{ok: true}
	}
	for _, id := range g.v.Items {
		if !want[id] {
			return grade{ok: true}
		}
	}
	return grade{ok: true, correct: true}
}

func (g grader) Matrix(model.MatrixKind) grade {
	return grade{}
}

func (g grader) Numeric(model.NumericKind) grade {
	rule := g.q.Quiz
	if rule == nil || (rule.From == nil && rule.To == nil) || g.v.Number == nil {
		return grade{}
	}
	n := *g.v.Number
	correct := (rule.From == nil || n >= *rule.From) && (rule.To == nil || n <= *rule.To)
	return grade{ok: true, correct: correct}
}

func (g grader) Text(model.TextKind) grade       { return g.exact() }
func (g grader) Thumbs(model.ThumbsKind) grade   { return g.exact() }
func (g grader) Country(model.CountryKind) grade { return g.exact() }

func (g grader) exact() grade {
	if g.q.Quiz == nil || len(g.q.Quiz.Answers) == 0 {
		return grade{}
	}
	got := strings.TrimSpace(g.v.Value)
	for _, a := range g.q.Quiz.Answers {
		if strings.EqualFold(strings.TrimSpace(a), got) {
			return grade{ok: true, correct: true}
		}
	}
	return grade{ok: true}
}

func correctOptions(q *model.Question) map[string]bool {
	out := make(map[string]bool)
	for _, o := range q.Options {
		if o.Correct {
			out[o.ID] = true
		}
	}
	return out
}

func topByScore(options []model.Option, n int) map[string]bool {
	sorted := append([]model.Option(nil), options...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
	if n > len(sorted) {
		n = len(sorted)
	}
	out := make(map[string]bool, n)
	for _, o := range sorted[:n] {
		out[o.ID] = true
	}
	return out
}
