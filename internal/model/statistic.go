package model

import (
	"sort"
	"strings"
	"time"
)

// BucketKey identifies one statistic bucket. Empty optional dimensions are not part of the key.
type BucketKey struct {
	Survey   string    `json:"survey" bson:"survey"`
	Item     string    `json:"surveyItem" bson:"surveyItem"`
	Question string    `json:"question" bson:"question"`
	Time     time.Time `json:"time" bson:"time"`
	Round    string    `json:"round,omitempty" bson:"round,omitempty"`
	Driver   string    `json:"driver,omitempty" bson:"driver,omitempty"`
	Campaign string    `json:"campaign,omitempty" bson:"campaign,omitempty"`
	Target   string    `json:"target,omitempty" bson:"target,omitempty"`
	Tags     string    `json:"tags,omitempty" bson:"tags,omitempty"`
}

// NewBucketKey builds the key of an item's bucket for a response created at createdAt
func NewBucketKey(surveyID string, item *SurveyItem, createdAt time.Time, dims Dimensions) BucketKey {
	return BucketKey{
		Survey:   surveyID,
		Item:     item.ID,
		Question: item.Question.ID,
		Time:     HourBucket(createdAt),
		Round:    dims.Round,
		Driver:   dims.Driver,
		Campaign: dims.Campaign,
		Target:   dims.Target,
		Tags:     TagSignature(dims.Tags),
	}
}

// HourBucket truncates t to the UTC hour
func HourBucket(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}

// TagSignature is the sorted, de-duplicated, comma joined tag set
func TagSignature(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	sorted := append([]string(nil), tags...)
	sort.Strings(sorted)
	out := sorted[:0]
	for i, t := range sorted {
		if t == "" || (i > 0 && t == sorted[i-1]) {
			continue
		}
		out = append(out, t)
	}
	return strings.Join(out, ",")
}

// BucketDelta is the change one submission applies to one bucket
type BucketDelta struct {
	Data          map[string]int `json:"data,omitempty"`
	Answered      int            `json:"answered,omitempty"`
	Skipped       int            `json:"skipped,omitempty"`
	SkippedByFlow int            `json:"skippedByFlow,omitempty"`
}

// IsZero reports whether applying the delta would change nothing
func (d *BucketDelta) IsZero() bool {
	if d.Answered != 0 || d.Skipped != 0 || d.SkippedByFlow != 0 {
		return false
	}
	for _, v := range d.Data {
		if v != 0 {
			return false
		}
	}
	return true
}

// Increment adds one to each key
func (d *BucketDelta) Increment(keys ...string) {
	d.add(keys, 1)
}

// Decrement removes one from each key
func (d *BucketDelta) Decrement(keys ...string) {
	d.add(keys, -1)
}

func (d *BucketDelta) add(keys []string, n int) {
	if d.Data == nil {
		d.Data = make(map[string]int, len(keys))
	}
	for _, k := range keys {
		d.Data[k] += n
		if d.Data[k] == 0 {
			delete(d.Data, k)
		}
	}
}

// Merge folds other into d
func (d *BucketDelta) Merge(other BucketDelta) {
	for k, v := range other.Data {
		d.add([]string{k}, v)
	}
	d.Answered += other.Answered
	d.Skipped += other.Skipped
	d.SkippedByFlow += other.SkippedByFlow
}

// QuestionStatistic is one persisted bucket
type QuestionStatistic struct {
	ID            string `json:"id" bson:"_id,omitempty"`
	BucketKey     `bson:",inline"`
	Data          map[string]int `json:"data" bson:"data"`
	Answered      int            `json:"answered" bson:"answered"`
	Skipped       int            `json:"skipped" bson:"skipped"`
	SkippedByFlow int            `json:"skippedByFlow" bson:"skippedByFlow"`
	UpdatedAt     time.Time      `json:"updatedAt" bson:"updatedAt"`
}

// StatisticsDelta is the live-data payload of one submission
type StatisticsDelta struct {
	Survey  string         `json:"survey"`
	Buckets []BucketChange `json:"buckets"`
}

// BucketChange pairs a bucket key with the delta applied to it
type BucketChange struct {
	Key   BucketKey   `json:"key"`
	Delta BucketDelta `json:"delta"`
}
