// Package stats projects response changes onto statistic buckets.
package stats

import (
	"context"

	"surveyengine/internal/answer"
	"surveyengine/internal/model"
	"surveyengine/internal/navigation"
)

// Store applies one delta to one bucket, creating the bucket when it does not exist.
// Counters are floored at zero.
type Store interface {
	ApplyDelta(ctx context.Context, key model.BucketKey, delta model.BucketDelta) error
}

// Build turns what a submit did into one delta per touched bucket
func Build(r *model.Response, res *navigation.Result) []model.BucketChange {
	var out []model.BucketChange
	index := make(map[model.BucketKey]int)

	add := func(item *model.SurveyItem, d model.BucketDelta) {
		if d.IsZero() {
			return
		}
		key := model.NewBucketKey(r.Survey, item, r.CreatedAt, r.Dimensions)
		if i, ok := index[key]; ok {
			out[i].Delta.Merge(d)
			return
		}
		index[key] = len(out)
		out = append(out, model.BucketChange{Key: key, Delta: d})
	}

	for _, c := range res.Changes {
		add(c.Item, changeDelta(c))
	}
	for _, item := range res.SkippedByFlow {
		add(item, model.BucketDelta{SkippedByFlow: 1})
	}
	return out
}

func changeDelta(c navigation.Change) model.BucketDelta {
	var d model.BucketDelta
	t := c.Item.Question.Type

	switch c.Transition {
	case answer.Answered:
		d.Increment(answer.ContributionKeys(t, c.Current)...)
		d.Answered = 1
		if c.WasSkipped {
			d.Skipped = -1
		}
	case answer.Skipped:
		d.Skipped = 1
	case answer.Corrected:
		diff := answer.Diff(t, c.Previous, c.Current)
		d.Increment(diff.Increment...)
		d.Decrement(diff.Decrement...)
	case answer.Retracted:
		d.Decrement(answer.ContributionKeys(t, c.Previous)...)
		d.Answered = -1
		d.Skipped = 1
	}
	if c.WasSkippedByFlow {
		d.SkippedByFlow = -1
	}
	return d
}
