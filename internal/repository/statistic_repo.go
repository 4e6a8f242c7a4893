package repository

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"surveyengine/internal/model"
)

// StatisticQuery selects buckets of one survey
type StatisticQuery struct {
	Survey string
	Item   string
	From   time.Time
	To     time.Time
	Limit  int64
}

// StatisticRepo stores question statistic buckets
type StatisticRepo interface {
	// ApplyDelta finds or creates the bucket at key and applies delta, flooring every
	// counter at zero. Concurrent creation of the same bucket fails one writer with a
	// duplicate key error; callers retry.
	ApplyDelta(ctx context.Context, key model.BucketKey, delta model.BucketDelta) error
	Scan(ctx context.Context, q StatisticQuery, fn func(*model.QuestionStatistic) error) error
}

type statisticRepo struct {
	collection *mongo.Collection
}

// NewStatisticRepo creates a new statistic repository
func NewStatisticRepo(db *mongo.Database) StatisticRepo {
	repo := &statisticRepo{
		collection: db.Collection("question_statistics"),
	}
	ctx := context.Background()
	createIndex(ctx, repo.collection, bson.D{
		{Key: "survey", Value: 1},
		{Key: "surveyItem", Value: 1},
		{Key: "question", Value: 1},
		{Key: "time", Value: 1},
		{Key: "round", Value: 1},
		{Key: "driver", Value: 1},
		{Key: "campaign", Value: 1},
		{Key: "target", Value: 1},
		{Key: "tags", Value: 1},
	}, true)
	createIndex(ctx, repo.collection, bson.D{
		{Key: "survey", Value: 1},
		{Key: "time", Value: 1},
	}, false)
	return repo
}

func (r *statisticRepo) ApplyDelta(ctx context.Context, key model.BucketKey, delta model.BucketDelta) error {
	if delta.IsZero() {
		return nil
	}
	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, bucketFilter(key), deltaPipeline(delta), opts)
	return err
}

func (r *statisticRepo) Scan(ctx context.Context, q StatisticQuery, fn func(*model.QuestionStatistic) error) error {
	filter := bson.M{"survey": q.Survey}
	if q.Item != "" {
		filter["surveyItem"] = q.Item
	}
	if !q.From.IsZero() || !q.To.IsZero() {
		window := bson.M{}
		if !q.From.IsZero() {
			window["$gte"] = model.HourBucket(q.From)
		}
		if !q.To.IsZero() {
			window["$lt"] = q.To.UTC()
		}
		filter["time"] = window
	}

	opts := options.Find().SetSort(bson.D{{Key: "time", Value: 1}, {Key: "surveyItem", Value: 1}})
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var stat model.QuestionStatistic
		if err := cursor.Decode(&stat); err != nil {
			return err
		}
		stat.Data = decodeData(stat.Data)
		if err := fn(&stat); err != nil {
			return err
		}
	}
	return cursor.Err()
}

// bucketFilter matches exactly one bucket. Absent dimensions must be absent on the
// document too, otherwise a key without a campaign would match every campaign.
func bucketFilter(key model.BucketKey) bson.D {
	filter := bson.D{
		{Key: "survey", Value: key.Survey},
		{Key: "surveyItem", Value: key.Item},
		{Key: "question", Value: key.Question},
		{Key: "time", Value: key.Time},
	}
	dims := []struct{ field, value string }{
		{"round", key.Round},
		{"driver", key.Driver},
		{"campaign", key.Campaign},
		{"target", key.Target},
		{"tags", key.Tags},
	}
	for _, d := range dims {
		if d.value != "" {
			filter = append(filter, bson.E{Key: d.field, Value: d.value})
		} else {
			filter = append(filter, bson.E{Key: d.field, Value: bson.M{"$exists": false}})
		}
	}
	return filter
}

// deltaPipeline is an update pipeline so the floor can read the stored value
func deltaPipeline(delta model.BucketDelta) mongo.Pipeline {
	set := bson.D{
		{Key: "answered", Value: floorAdd("$answered", delta.Answered)},
		{Key: "skipped", Value: floorAdd("$skipped", delta.Skipped)},
		{Key: "skippedByFlow", Value: floorAdd("$skippedByFlow", delta.SkippedByFlow)},
		{Key: "updatedAt", Value: "$$NOW"},
	}
	for _, k := range sortedKeys(delta.Data) {
		field := "data." + escapeKey(k)
		set = append(set, bson.E{Key: field, Value: floorAdd("$"+field, delta.Data[k])})
	}
	return mongo.Pipeline{{{Key: "$set", Value: set}}}
}

func floorAdd(field string, n int) bson.M {
	return bson.M{"$max": bson.A{0, bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{field, 0}}, n}}}}
}

var keyEscaper = strings.NewReplacer(".", "．", "$", "＄")
var keyUnescaper = strings.NewReplacer("．", ".", "＄", "$")

// escapeKey makes a contribution key safe as a field name
func escapeKey(k string) string {
	return keyEscaper.Replace(k)
}

// decodeData restores contribution keys and drops counters that were floored to zero
func decodeData(data map[string]int) map[string]int {
	out := make(map[string]int, len(data))
	for k, v := range data {
		if v > 0 {
			out[keyUnescaper.Replace(k)] = v
		}
	}
	return out
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
